// Package accesscontrol implements the ACL resolution engine inside syncgate.
//
// Layering:
// - domain: access request/rule entities, the rule scorer and permission resolver
// - application: check-permission/check-access queries and the role registry
// - ports: stable boundaries for the persistence capability set and model registry
// - adapters: concrete memory and postgres implementations
//
// Boundary notes:
// - Keep this module self-contained under the access-control context.
// - Authorization denials are data (a resolved DENY permission), never errors.
// - The REST remoting layer translating these calls is an external collaborator.
package accesscontrol
