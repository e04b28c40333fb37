// Package replication implements change tracking and replica sync inside
// syncgate.
//
// Layering:
// - domain: change records with derived kinds, revision hashing, the diff engine
// - application: tracker (rectify/checkpoint), replicate/bulk-update commands,
//   conflict handles, change queries, the rectify sweep worker
// - ports: stable boundaries for entity, change, and checkpoint persistence
// - adapters: concrete memory, postgres, sqlite, and event-bus implementations
//
// Boundary notes:
// - Keep this module self-contained under the data-sync context.
// - A conflicting record is data (an unresolved Conflict handle); only the
//   aggregated bulk-update rejection surfaces as an error value.
// - Either side of a sync pair is just a Replica; source and target are roles,
//   not types.
package replication
