package queries

import (
	"context"
	"errors"
	"testing"

	"syncgate/contexts/access-control/acl-service/adapters/memory"
	"syncgate/contexts/access-control/acl-service/application/roles"
	"syncgate/contexts/access-control/acl-service/domain/entities"
	domainerrors "syncgate/contexts/access-control/acl-service/domain/errors"
	"syncgate/contexts/access-control/acl-service/ports"
)

func newUseCases(t *testing.T) (*memory.Store, CheckPermissionUseCase, CheckAccessForContextUseCase) {
	t.Helper()
	store := memory.NewStore()
	checkPermission := CheckPermissionUseCase{Rules: store, Models: store}
	checkAccess := CheckAccessForContextUseCase{
		Rules:    store,
		Models:   store,
		Registry: roles.NewRegistry(nil),
	}
	return store, checkPermission, checkAccess
}

func TestCheckPermissionRejectsUnknownPrincipalType(t *testing.T) {
	_, checkPermission, _ := newUseCases(t)

	_, err := checkPermission.Execute(context.Background(), CheckPermissionQuery{
		PrincipalType: "GROUP",
		PrincipalID:   "g-1",
		Model:         "account",
	})
	if err == nil {
		t.Fatalf("expected typed error for unknown principal type")
	}
	var coded *domainerrors.CodedError
	if !errors.As(err, &coded) {
		t.Fatalf("expected coded error, got %T", err)
	}
	if coded.Code != "INVALID_PRINCIPAL_TYPE" || coded.StatusCode != 400 {
		t.Fatalf("unexpected error code %s/%d", coded.Code, coded.StatusCode)
	}
}

func TestStaticDenyShortCircuitsDynamicRules(t *testing.T) {
	store, checkPermission, _ := newUseCases(t)

	store.DefineModel("account", ports.ModelConfig{
		ACLs: []entities.Rule{{
			Model:         "account",
			Property:      entities.Wildcard,
			AccessType:    entities.AccessAll,
			PrincipalType: entities.PrincipalUser,
			PrincipalID:   "user-1",
			Permission:    entities.PermissionDeny,
		}},
	})
	// A stored ALLOW that would otherwise win cannot override a static DENY.
	if _, err := store.Create(context.Background(), entities.Rule{
		Model:         "account",
		Property:      entities.Wildcard,
		AccessType:    entities.AccessAll,
		PrincipalType: entities.PrincipalUser,
		PrincipalID:   "user-1",
		Permission:    entities.PermissionAllow,
	}); err != nil {
		t.Fatalf("seed dynamic rule failed: %v", err)
	}

	resolved, err := checkPermission.Execute(context.Background(), CheckPermissionQuery{
		PrincipalType: entities.PrincipalUser,
		PrincipalID:   "user-1",
		Model:         "account",
		Property:      "find",
		AccessType:    entities.AccessRead,
	})
	if err != nil {
		t.Fatalf("check permission failed: %v", err)
	}
	if resolved.Permission != entities.PermissionDeny {
		t.Fatalf("expected static deny to stand, got %s", resolved.Permission)
	}
}

func TestDynamicRuleGrantsAccess(t *testing.T) {
	store, checkPermission, _ := newUseCases(t)
	store.DefineModel("account", ports.ModelConfig{DefaultPermission: entities.PermissionDeny})

	if _, err := store.Create(context.Background(), entities.Rule{
		Model:         "account",
		Property:      entities.Wildcard,
		AccessType:    entities.AccessRead,
		PrincipalType: entities.PrincipalUser,
		PrincipalID:   "user-1",
		Permission:    entities.PermissionAllow,
	}); err != nil {
		t.Fatalf("seed dynamic rule failed: %v", err)
	}

	resolved, err := checkPermission.Execute(context.Background(), CheckPermissionQuery{
		PrincipalType: entities.PrincipalUser,
		PrincipalID:   "user-1",
		Model:         "account",
		Property:      "find",
		AccessType:    entities.AccessRead,
	})
	if err != nil {
		t.Fatalf("check permission failed: %v", err)
	}
	if !resolved.IsAllowed() {
		t.Fatalf("expected dynamic allow, got %s", resolved.Permission)
	}

	// Same model, different principal: falls back to the DENY default.
	resolved, err = checkPermission.Execute(context.Background(), CheckPermissionQuery{
		PrincipalType: entities.PrincipalUser,
		PrincipalID:   "user-2",
		Model:         "account",
		Property:      "find",
		AccessType:    entities.AccessRead,
	})
	if err != nil {
		t.Fatalf("check permission failed: %v", err)
	}
	if resolved.IsAllowed() {
		t.Fatalf("expected default deny for unmatched principal")
	}
}

func TestScopeGateDeniesBeforeRuleEvaluation(t *testing.T) {
	store, _, checkAccess := newUseCases(t)
	store.DefineModel("account", ports.ModelConfig{
		ACLs: []entities.Rule{{
			Model:         "account",
			Property:      entities.Wildcard,
			AccessType:    entities.AccessAll,
			PrincipalType: entities.PrincipalRole,
			PrincipalID:   entities.RoleEveryone,
			Permission:    entities.PermissionAllow,
		}},
	})

	decision, err := checkAccess.Execute(context.Background(), entities.AccessContext{
		Token:      &entities.Token{UserID: "user-1", Scopes: []string{"read-only"}},
		Model:      "account",
		Property:   "find",
		AccessType: entities.AccessRead,
		Scopes:     []string{"admin"},
	})
	if err != nil {
		t.Fatalf("check access failed: %v", err)
	}
	if decision.Allowed() {
		t.Fatalf("expected scope gate to deny despite permissive rules")
	}
	if len(decision.AuthorizedRoles) != 0 {
		t.Fatalf("expected no authorized roles on scope denial")
	}
}

func TestOwnerWinsOverEveryoneDenyInContext(t *testing.T) {
	store, _, checkAccess := newUseCases(t)
	accounts := store.DefineModel("account", ports.ModelConfig{
		ACLs: []entities.Rule{
			{
				Model:         "account",
				Property:      entities.Wildcard,
				AccessType:    entities.AccessAll,
				PrincipalType: entities.PrincipalRole,
				PrincipalID:   entities.RoleEveryone,
				Permission:    entities.PermissionDeny,
			},
			{
				Model:         "account",
				Property:      entities.Wildcard,
				AccessType:    entities.AccessAll,
				PrincipalType: entities.PrincipalRole,
				PrincipalID:   entities.RoleOwner,
				Permission:    entities.PermissionAllow,
			},
		},
	})
	if _, err := accounts.Create(context.Background(), ports.Document{"id": "acct-1", "userId": "user-1"}); err != nil {
		t.Fatalf("seed account failed: %v", err)
	}

	decision, err := checkAccess.Execute(context.Background(), entities.AccessContext{
		Token:      &entities.Token{UserID: "user-1"},
		Model:      "account",
		ModelID:    "acct-1",
		Property:   "find",
		AccessType: entities.AccessWrite,
	})
	if err != nil {
		t.Fatalf("check access failed: %v", err)
	}
	if !decision.Allowed() {
		t.Fatalf("expected owner rule to win, got %s", decision.Request.Permission)
	}
	if len(decision.AuthorizedRoles) == 0 {
		t.Fatalf("expected authorizing roles to be captured")
	}

	// Non-owner only matches $everyone and is denied; the role capture is
	// cleared entirely on denial.
	decision, err = checkAccess.Execute(context.Background(), entities.AccessContext{
		Token:      &entities.Token{UserID: "user-2"},
		Model:      "account",
		ModelID:    "acct-1",
		Property:   "find",
		AccessType: entities.AccessWrite,
	})
	if err != nil {
		t.Fatalf("check access failed: %v", err)
	}
	if decision.Allowed() {
		t.Fatalf("expected non-owner to be denied")
	}
	if len(decision.AuthorizedRoles) != 0 {
		t.Fatalf("expected authorized roles cleared on denial")
	}
}

func TestCheckAccessForTokenMapsMethodToAccessType(t *testing.T) {
	store, _, checkAccess := newUseCases(t)
	store.DefineModel("account", ports.ModelConfig{
		ACLs: []entities.Rule{
			{
				Model:         "account",
				Property:      entities.Wildcard,
				AccessType:    entities.AccessWrite,
				PrincipalType: entities.PrincipalRole,
				PrincipalID:   entities.RoleAuthenticated,
				Permission:    entities.PermissionDeny,
			},
			{
				Model:         "account",
				Property:      entities.Wildcard,
				AccessType:    entities.AccessRead,
				PrincipalType: entities.PrincipalRole,
				PrincipalID:   entities.RoleAuthenticated,
				Permission:    entities.PermissionAllow,
			},
		},
	})

	checkToken := CheckAccessForTokenUseCase{CheckAccess: checkAccess}
	allowed, err := checkToken.Execute(context.Background(), entities.Token{UserID: "user-1"}, "account", "acct-1", "find")
	if err != nil {
		t.Fatalf("token check failed: %v", err)
	}
	if !allowed {
		t.Fatalf("expected read method to be allowed")
	}

	allowed, err = checkToken.Execute(context.Background(), entities.Token{UserID: "user-1"}, "account", "acct-1", "destroyById")
	if err != nil {
		t.Fatalf("token check failed: %v", err)
	}
	if allowed {
		t.Fatalf("expected write method to be denied")
	}
}
