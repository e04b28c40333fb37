package services

import (
	"testing"

	"syncgate/contexts/access-control/acl-service/domain/entities"
)

func request(model, property string, accessType entities.AccessType) entities.AccessRequest {
	return entities.NewAccessRequest(model, property, accessType)
}

func TestExactMatchOutscoresWildcardMatch(t *testing.T) {
	order := DefaultPermissionOrder()
	req := request("account", "find", entities.AccessRead)

	exact := entities.Rule{
		Model:         "account",
		Property:      "find",
		AccessType:    entities.AccessRead,
		PrincipalType: entities.PrincipalRole,
		PrincipalID:   entities.RoleEveryone,
		Permission:    entities.PermissionAllow,
	}
	wildcard := entities.Rule{
		Model:         entities.Wildcard,
		Property:      entities.Wildcard,
		AccessType:    entities.AccessAll,
		PrincipalType: entities.PrincipalRole,
		PrincipalID:   entities.RoleEveryone,
		Permission:    entities.PermissionAllow,
	}

	exactScore := MatchingScore(exact, req, order)
	wildcardScore := MatchingScore(wildcard, req, order)
	if exactScore <= wildcardScore {
		t.Fatalf("expected exact match to outscore wildcard, got %d vs %d", exactScore, wildcardScore)
	}
}

func TestUserRuleOutscoresRoleRuleOfEqualSpecificity(t *testing.T) {
	order := DefaultPermissionOrder()
	req := request("account", "find", entities.AccessRead)

	userRule := entities.Rule{
		Model:         "account",
		Property:      "find",
		AccessType:    entities.AccessRead,
		PrincipalType: entities.PrincipalUser,
		PrincipalID:   "user-1",
		Permission:    entities.PermissionAllow,
	}
	roleRule := userRule
	roleRule.PrincipalType = entities.PrincipalRole
	roleRule.PrincipalID = entities.RoleOwner

	if MatchingScore(userRule, req, order) <= MatchingScore(roleRule, req, order) {
		t.Fatalf("expected user rule to outscore role rule")
	}
}

func TestNonApplicableRuleScoresNegative(t *testing.T) {
	order := DefaultPermissionOrder()
	req := request("account", "find", entities.AccessRead)

	rule := entities.Rule{
		Model:         "invoice",
		Property:      "find",
		AccessType:    entities.AccessRead,
		PrincipalType: entities.PrincipalUser,
		PrincipalID:   "user-1",
		Permission:    entities.PermissionAllow,
	}
	if score := MatchingScore(rule, req, order); score != -1 {
		t.Fatalf("expected -1 for non-applicable rule, got %d", score)
	}
}

func TestAccessTypeSubsumption(t *testing.T) {
	order := DefaultPermissionOrder()

	executeRule := entities.Rule{
		Model:         "account",
		Property:      entities.Wildcard,
		AccessType:    entities.AccessExecute,
		PrincipalType: entities.PrincipalRole,
		PrincipalID:   entities.RoleEveryone,
		Permission:    entities.PermissionAllow,
	}
	for _, accessType := range []entities.AccessType{
		entities.AccessRead,
		entities.AccessWrite,
		entities.AccessReplicate,
	} {
		if score := MatchingScore(executeRule, request("account", "find", accessType), order); score < 0 {
			t.Fatalf("expected EXECUTE rule to match %s request", accessType)
		}
	}

	writeRule := executeRule
	writeRule.AccessType = entities.AccessWrite
	if score := MatchingScore(writeRule, request("account", "find", entities.AccessReplicate), order); score < 0 {
		t.Fatalf("expected WRITE rule to match REPLICATE request")
	}
	if score := MatchingScore(writeRule, request("account", "find", entities.AccessRead), order); score != -1 {
		t.Fatalf("expected WRITE rule not to match READ request, got %d", score)
	}
}

func TestMethodAliasMatchesProperty(t *testing.T) {
	order := DefaultPermissionOrder()
	req := request("account", "removeById", entities.AccessWrite)
	req.MethodNames = []string{"deleteById", "destroyById"}

	rule := entities.Rule{
		Model:         "account",
		Property:      "deleteById",
		AccessType:    entities.AccessWrite,
		PrincipalType: entities.PrincipalUser,
		PrincipalID:   "user-1",
		Permission:    entities.PermissionAllow,
	}
	aliasScore := MatchingScore(rule, req, order)

	wildcardRule := rule
	wildcardRule.Property = entities.Wildcard
	if aliasScore <= MatchingScore(wildcardRule, req, order) {
		t.Fatalf("expected alias match to count as exact property match")
	}
}

func TestCustomRoleOutranksBuiltins(t *testing.T) {
	if RoleStrength("team-admin") <= RoleStrength(entities.RoleOwner) {
		t.Fatalf("expected custom role strength above every built-in")
	}
	if RoleStrength(entities.RoleOwner) <= RoleStrength(entities.RoleRelated) {
		t.Fatalf("expected $owner above $related")
	}
	if RoleStrength(entities.RoleAuthenticated) != RoleStrength(entities.RoleUnauthenticated) {
		t.Fatalf("expected $authenticated and $unauthenticated to rank equally")
	}
	if RoleStrength(entities.RoleEveryone) != 1 {
		t.Fatalf("expected $everyone at the bottom of the hierarchy")
	}
}
