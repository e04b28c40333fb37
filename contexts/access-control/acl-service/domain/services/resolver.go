package services

import (
	"sort"

	"syncgate/contexts/access-control/acl-service/domain/entities"
)

// ResolvePermission picks the winning permission for one request out of a
// merged static+dynamic rule set. Inapplicable rules (score -1) are skipped.
// The result is a copy of the request carrying a concrete permission: a
// DEFAULT outcome is elucidated against the request's configured default
// permission exactly once before returning.
func ResolvePermission(rules []entities.Rule, req entities.AccessRequest, order PermissionOrder) entities.AccessRequest {
	resolved := resolve(rules, req, order)

	if resolved.IsWildcard() && resolved.Permission == entities.PermissionDefault {
		// A blanket request left unresolved is decided conservatively: a
		// single denied specific access type poisons the wildcard.
		for _, accessType := range []entities.AccessType{
			entities.AccessRead,
			entities.AccessWrite,
			entities.AccessExecute,
		} {
			sub := req
			sub.AccessType = accessType
			sub.Permission = entities.PermissionDefault
			if ResolvePermission(rules, sub, order).Permission == entities.PermissionDeny {
				resolved.Permission = entities.PermissionDeny
				break
			}
		}
	}

	if resolved.Permission == entities.PermissionDefault {
		resolved.Permission = defaultPermission(req)
	}
	return resolved
}

type candidate struct {
	rule  entities.Rule
	score int
}

func resolve(rules []entities.Rule, req entities.AccessRequest, order PermissionOrder) entities.AccessRequest {
	candidates := make([]candidate, 0, len(rules))
	for _, rule := range rules {
		candidates = append(candidates, candidate{rule: rule, score: MatchingScore(rule, req, order)})
	}
	// Stable sort keeps relative input order between equal scores, which
	// makes tie-breaking deterministic.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	resolved := req
	leaderScore := -1
	var prev *candidate

	for i := range candidates {
		c := candidates[i]
		if c.score < 0 {
			break
		}

		if leaderScore < 0 {
			leaderScore = c.score
			resolved.Permission = c.rule.Permission
			if !req.IsWildcard() {
				// A specific request is settled by the single best rule.
				break
			}
			prev = &candidates[i]
			continue
		}

		if c.score < leaderScore {
			// Rules are sorted; nothing below can win anymore.
			break
		}

		if c.rule.PrincipalType == entities.PrincipalRole {
			if RoleStrength(c.rule.PrincipalID) > prevRoleStrength(prev) {
				resolved.Permission = c.rule.Permission
			}
		} else if c.rule.AccessType == req.AccessType {
			resolved.Permission = c.rule.Permission
		}
		prev = &candidates[i]
	}

	return resolved
}

func prevRoleStrength(prev *candidate) int {
	if prev == nil || prev.rule.PrincipalType != entities.PrincipalRole {
		return 0
	}
	return RoleStrength(prev.rule.PrincipalID)
}

func defaultPermission(req entities.AccessRequest) entities.Permission {
	if req.DefaultPermission != "" && req.DefaultPermission != entities.PermissionDefault {
		return req.DefaultPermission
	}
	return entities.PermissionAllow
}
