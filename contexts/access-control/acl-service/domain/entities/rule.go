package entities

// Rule is one permission statement tying a principal to a model, property,
// and access type. Static (schema-declared) and dynamic (stored) rules are
// structurally identical and merged before scoring.
type Rule struct {
	ID            string
	Model         string
	Property      string
	AccessType    AccessType
	PrincipalType PrincipalType
	PrincipalID   string
	Permission    Permission
}

// Principal identifies one member of an access context's principal set.
type Principal struct {
	Type PrincipalType
	ID   string
}

// MatchesPrincipal reports whether the rule is granted directly to one of
// the given principals. Role-typed rules never match directly; membership
// is evaluated by the role registry instead.
func (r Rule) MatchesPrincipal(principals []Principal) bool {
	if r.PrincipalType == PrincipalRole {
		return false
	}
	for _, p := range principals {
		if p.Type == r.PrincipalType && p.ID == r.PrincipalID {
			return true
		}
	}
	return false
}
