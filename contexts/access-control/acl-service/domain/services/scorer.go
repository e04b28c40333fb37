package services

import (
	"syncgate/contexts/access-control/acl-service/domain/entities"
)

// PermissionOrder assigns each permission its rank in the deployment-chosen
// total order. The rank only breaks ties between otherwise identical rule
// scores; it never changes which rule matches.
type PermissionOrder map[entities.Permission]int

// DefaultPermissionOrder ranks DENY > ALLOW > AUDIT > ALARM > DEFAULT.
// Deployments that need a different total order pass their own.
func DefaultPermissionOrder() PermissionOrder {
	return PermissionOrder{
		entities.PermissionDefault: 1,
		entities.PermissionAlarm:   2,
		entities.PermissionAudit:   3,
		entities.PermissionAllow:   4,
		entities.PermissionDeny:    5,
	}
}

func (o PermissionOrder) rank(p entities.Permission) int {
	if r, ok := o[p]; ok {
		return r
	}
	return 1
}

// MatchingScore computes how specifically a rule applies to a request.
// Returns -1 when the rule cannot apply at all. Higher scores are more
// specific matches; an exact match on a field always outranks a wildcard.
func MatchingScore(rule entities.Rule, req entities.AccessRequest, order PermissionOrder) int {
	fields := [3][2]string{
		{rule.Model, req.Model},
		{rule.Property, req.Property},
		{string(rule.AccessType), string(req.AccessType)},
	}

	score := 0
	for i, f := range fields {
		score = score << 2
		switch {
		case fieldMatches(i, rule, req):
			score += 3
		case f[0] == entities.Wildcard:
			// Rule is broader than the request.
			score += 2
		case f[1] == entities.Wildcard:
			// Request is broader than the rule, weaker match.
			score += 1
		default:
			return -1
		}
	}

	score = score*4 + principalTypeWeight(rule.PrincipalType)

	score = score * 8
	if rule.PrincipalType == entities.PrincipalRole {
		score += RoleStrength(rule.PrincipalID)
	}

	return score*4 + order.rank(rule.Permission) - 1
}

// fieldMatches reports an exact match on field i, including method-name
// aliases for the property field and access-type subsumption: a rule
// granting EXECUTE also covers READ/WRITE/REPLICATE requests, and a rule
// granting WRITE also covers a REPLICATE request.
func fieldMatches(i int, rule entities.Rule, req entities.AccessRequest) bool {
	switch i {
	case 0:
		return rule.Model == req.Model
	case 1:
		if rule.Property == req.Property {
			return true
		}
		for _, alias := range req.MethodNames {
			if rule.Property == alias {
				return true
			}
		}
		return false
	default:
		if rule.AccessType == req.AccessType {
			return true
		}
		switch rule.AccessType {
		case entities.AccessExecute:
			return req.AccessType == entities.AccessRead ||
				req.AccessType == entities.AccessWrite ||
				req.AccessType == entities.AccessReplicate
		case entities.AccessWrite:
			return req.AccessType == entities.AccessReplicate
		}
		return false
	}
}

func principalTypeWeight(t entities.PrincipalType) int {
	switch t {
	case entities.PrincipalUser:
		return 4
	case entities.PrincipalApp:
		return 3
	case entities.PrincipalRole:
		return 2
	default:
		return 1
	}
}

// RoleStrength orders built-in roles; unrecognized names rank above every
// built-in so admin-defined roles are never shadowed by the fixed hierarchy.
func RoleStrength(roleName string) int {
	switch roleName {
	case entities.RoleOwner:
		return 4
	case entities.RoleRelated:
		return 3
	case entities.RoleAuthenticated, entities.RoleUnauthenticated:
		return 2
	case entities.RoleEveryone:
		return 1
	default:
		return 5
	}
}
