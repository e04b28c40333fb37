package services

import (
	"testing"

	"syncgate/contexts/access-control/acl-service/domain/entities"
)

func roleRule(roleName string, permission entities.Permission) entities.Rule {
	return entities.Rule{
		Model:         "account",
		Property:      entities.Wildcard,
		AccessType:    entities.AccessAll,
		PrincipalType: entities.PrincipalRole,
		PrincipalID:   roleName,
		Permission:    permission,
	}
}

func TestOwnerRuleWinsOverEveryoneDeny(t *testing.T) {
	rules := []entities.Rule{
		roleRule(entities.RoleEveryone, entities.PermissionDeny),
		roleRule(entities.RoleOwner, entities.PermissionAllow),
	}
	req := entities.NewAccessRequest("account", "find", entities.AccessWrite)

	resolved := ResolvePermission(rules, req, DefaultPermissionOrder())
	if resolved.Permission != entities.PermissionAllow {
		t.Fatalf("expected owner rule to win, got %s", resolved.Permission)
	}
}

func TestWildcardPermissionPoisonedByDeniedSubType(t *testing.T) {
	user := func(accessType entities.AccessType, permission entities.Permission) entities.Rule {
		return entities.Rule{
			Model:         "account",
			Property:      entities.Wildcard,
			AccessType:    accessType,
			PrincipalType: entities.PrincipalUser,
			PrincipalID:   "user-1",
			Permission:    permission,
		}
	}
	rules := []entities.Rule{
		user(entities.AccessAll, entities.PermissionDefault),
		user(entities.AccessRead, entities.PermissionAllow),
		user(entities.AccessWrite, entities.PermissionAllow),
		user(entities.AccessExecute, entities.PermissionDeny),
	}
	req := entities.NewAccessRequest("account", "", entities.AccessAll)

	resolved := ResolvePermission(rules, req, DefaultPermissionOrder())
	if resolved.Permission != entities.PermissionDeny {
		t.Fatalf("expected denied sub-action to poison wildcard permission, got %s", resolved.Permission)
	}
}

func TestDefaultElucidatedToModelDefault(t *testing.T) {
	req := entities.NewAccessRequest("account", "find", entities.AccessRead)

	resolved := ResolvePermission(nil, req, DefaultPermissionOrder())
	if resolved.Permission != entities.PermissionAllow {
		t.Fatalf("expected DEFAULT to elucidate to ALLOW when unconfigured, got %s", resolved.Permission)
	}

	req.DefaultPermission = entities.PermissionDeny
	resolved = ResolvePermission(nil, req, DefaultPermissionOrder())
	if resolved.Permission != entities.PermissionDeny {
		t.Fatalf("expected DEFAULT to elucidate to configured DENY, got %s", resolved.Permission)
	}
}

func TestHigherScoreWinsRegardlessOfOrder(t *testing.T) {
	broad := roleRule(entities.RoleEveryone, entities.PermissionAllow)
	specific := entities.Rule{
		Model:         "account",
		Property:      "find",
		AccessType:    entities.AccessRead,
		PrincipalType: entities.PrincipalUser,
		PrincipalID:   "user-1",
		Permission:    entities.PermissionDeny,
	}
	req := entities.NewAccessRequest("account", "find", entities.AccessRead)

	for _, rules := range [][]entities.Rule{
		{broad, specific},
		{specific, broad},
	} {
		resolved := ResolvePermission(rules, req, DefaultPermissionOrder())
		if resolved.Permission != entities.PermissionDeny {
			t.Fatalf("expected specific deny to win, got %s", resolved.Permission)
		}
	}
}

func TestEqualScoreTieBreakPreservesInputOrder(t *testing.T) {
	// Two identical non-role rules differing only in permission rank tie on
	// nothing: the permission-order term separates them, and the higher
	// ranked permission must win deterministically.
	allow := entities.Rule{
		Model:         "account",
		Property:      "find",
		AccessType:    entities.AccessRead,
		PrincipalType: entities.PrincipalUser,
		PrincipalID:   "user-1",
		Permission:    entities.PermissionAllow,
	}
	deny := allow
	deny.Permission = entities.PermissionDeny

	req := entities.NewAccessRequest("account", "find", entities.AccessRead)
	for _, rules := range [][]entities.Rule{
		{allow, deny},
		{deny, allow},
	} {
		resolved := ResolvePermission(rules, req, DefaultPermissionOrder())
		if resolved.Permission != entities.PermissionDeny {
			t.Fatalf("expected DENY to rank above ALLOW in the default order, got %s", resolved.Permission)
		}
	}
}

func TestCustomPermissionOrderIsHonored(t *testing.T) {
	// A deployment ranking ALLOW above DENY flips the previous outcome.
	order := PermissionOrder{
		entities.PermissionDefault: 1,
		entities.PermissionAlarm:   2,
		entities.PermissionAudit:   3,
		entities.PermissionDeny:    4,
		entities.PermissionAllow:   5,
	}
	allow := entities.Rule{
		Model:         "account",
		Property:      "find",
		AccessType:    entities.AccessRead,
		PrincipalType: entities.PrincipalUser,
		PrincipalID:   "user-1",
		Permission:    entities.PermissionAllow,
	}
	deny := allow
	deny.Permission = entities.PermissionDeny

	resolved := ResolvePermission([]entities.Rule{deny, allow}, entities.NewAccessRequest("account", "find", entities.AccessRead), order)
	if resolved.Permission != entities.PermissionAllow {
		t.Fatalf("expected custom order to rank ALLOW above DENY, got %s", resolved.Permission)
	}
}
