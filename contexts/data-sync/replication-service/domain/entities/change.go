package entities

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
)

// Document is one tracked entity instance as a generic attribute map.
// The "id" key holds the identifier.
type Document map[string]any

// ID returns the document identifier as a string.
func (d Document) ID() string {
	value, ok := d["id"]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	raw, _ := json.Marshal(value)
	return string(raw)
}

// RevUnknown marks a prev revision that could not be recovered. A change
// record carrying it is useless for diffing and is deleted as a
// corruption-recovery measure.
const RevUnknown = "unknown"

// ChangeKind is the derived mutation type of a change record.
type ChangeKind string

const (
	ChangeCreate  ChangeKind = "create"
	ChangeUpdate  ChangeKind = "update"
	ChangeDelete  ChangeKind = "delete"
	ChangeUnknown ChangeKind = "unknown"
)

// Change tracks one mutation of one tracked entity. Rev is the revision of
// the current entity state (empty when the entity is deleted); Prev is the
// revision at the last checkpoint boundary; Checkpoint is the sequence at
// the last rectification.
type Change struct {
	ID         string
	ModelName  string
	ModelID    string
	Rev        string
	Prev       string
	Checkpoint int64
}

// ChangeID derives the deterministic change identifier for one tracked
// entity.
func ChangeID(modelName, modelID string) string {
	return hashString(modelName + "-" + modelID)
}

// Revision hashes the canonical serialization of an entity document.
// json.Marshal writes map keys in sorted order, so equal documents always
// hash equally.
func Revision(doc Document) string {
	raw, err := json.Marshal(doc)
	if err != nil {
		// Documents come from JSON-shaped stores; a marshal failure means a
		// non-serializable value was injected programmatically.
		return hashString("unserializable")
	}
	return hashString(string(raw))
}

func hashString(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Kind derives the mutation type from (rev, prev) presence. It is never
// stored, so it cannot desynchronize from the source fields.
func (c Change) Kind() ChangeKind {
	revSet := c.Rev != ""
	prevSet := c.Prev != ""
	switch {
	case revSet && prevSet:
		return ChangeUpdate
	case revSet:
		return ChangeCreate
	case prevSet:
		return ChangeDelete
	default:
		return ChangeUnknown
	}
}

// ConflictsWith reports whether two competing changes to the same entity
// cannot be reconciled automatically. The relation is symmetric: it
// depends only on the two records' field values.
func (c Change) ConflictsWith(other Change) bool {
	a, b := c.Kind(), other.Kind()

	// Two deletes agree by definition.
	if a == ChangeDelete && b == ChangeDelete {
		return false
	}
	// A delete against anything else always conflicts.
	if a == ChangeDelete || b == ChangeDelete {
		return true
	}
	if a == ChangeCreate && b == ChangeCreate {
		return c.Rev != other.Rev
	}
	if a == ChangeUpdate && b == ChangeUpdate {
		// Reconcilable when one side is provably based on the other.
		return !(c.Prev == other.Rev || other.Prev == c.Rev)
	}
	if (a == ChangeCreate && b == ChangeUpdate) || (a == ChangeUpdate && b == ChangeCreate) {
		// A create/update pairing is folded into update semantics by the
		// diff layer.
		return false
	}
	// An unknown on either side cannot prove descent.
	return true
}
