package queries

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	application "syncgate/contexts/access-control/acl-service/application"
	"syncgate/contexts/access-control/acl-service/application/roles"
	"syncgate/contexts/access-control/acl-service/domain/entities"
	"syncgate/contexts/access-control/acl-service/domain/services"
	"syncgate/contexts/access-control/acl-service/ports"
)

// AccessDecision is the outcome of a context-wide access check. The
// authorized roles are captured for downstream auditing collaborators; the
// set is cleared entirely when the final resolution denies access.
type AccessDecision struct {
	Request         entities.AccessRequest
	AuthorizedRoles []string
}

// Allowed reports whether the resolved permission grants access.
func (d AccessDecision) Allowed() bool {
	return d.Request.IsAllowed()
}

// CheckAccessForContextUseCase resolves access over a full principal set:
// the authenticated user, their roles, and the calling application.
type CheckAccessForContextUseCase struct {
	Rules    ports.RuleStore
	Models   ports.ModelRegistry
	Registry *roles.Registry
	Order    services.PermissionOrder
	Logger   *slog.Logger
}

// Execute applies the token scope gate, gathers static+dynamic rules for
// the model (or wildcard), partitions them into effective rules — non-role
// rules by direct principal match, role rules by concurrent membership
// checks — and resolves the permission over the effective set.
func (u CheckAccessForContextUseCase) Execute(ctx context.Context, access entities.AccessContext) (AccessDecision, error) {
	logger := application.ResolveLogger(u.Logger)

	req := entities.NewAccessRequest(access.Model, access.Property, access.AccessType)
	if model, ok := u.Models.FindModel(access.Model); ok {
		req.MethodNames = model.Config.MethodAliases[req.Property]
		req.DefaultPermission = model.Config.DefaultPermission
	}

	// The scope gate is a hard precondition: an unauthorized token scope
	// denies before any rule is examined.
	if !access.HasAuthorizedScope() {
		logger.Warn("token scope not authorized for requested scope",
			"event", "acl_scope_denied",
			"module", "access-control/acl-service",
			"layer", "application",
			"model", access.Model,
			"property", req.Property,
		)
		req.Permission = entities.PermissionDeny
		return AccessDecision{Request: req}, nil
	}

	rules, err := u.gatherRules(ctx, access, req)
	if err != nil {
		return AccessDecision{}, err
	}

	effective, authorizedRoles, err := u.effectiveRules(ctx, access, rules)
	if err != nil {
		return AccessDecision{}, err
	}

	resolved := services.ResolvePermission(effective, req, u.order())
	decision := AccessDecision{Request: resolved, AuthorizedRoles: authorizedRoles}
	if resolved.Permission == entities.PermissionDeny {
		// No partial credit on denial.
		decision.AuthorizedRoles = nil
		logger.Debug("context access denied",
			"event", "acl_context_denied",
			"module", "access-control/acl-service",
			"layer", "application",
			"model", access.Model,
			"property", req.Property,
			"access_type", string(req.AccessType),
			"user_id", access.UserID(),
		)
		return decision, nil
	}

	logger.Debug("context access resolved",
		"event", "acl_context_resolved",
		"module", "access-control/acl-service",
		"layer", "application",
		"model", access.Model,
		"property", req.Property,
		"access_type", string(req.AccessType),
		"user_id", access.UserID(),
		"permission", string(resolved.Permission),
		"authorized_roles", len(decision.AuthorizedRoles),
	)
	return decision, nil
}

func (u CheckAccessForContextUseCase) gatherRules(
	ctx context.Context,
	access entities.AccessContext,
	req entities.AccessRequest,
) ([]entities.Rule, error) {
	var rules []entities.Rule
	if model, ok := u.Models.FindModel(access.Model); ok {
		rules = append(rules, model.Config.StaticRules(req.Property)...)
	}

	dynamic, err := u.Rules.FindMatching(ctx, ports.RuleQuery{
		Models:     []string{access.Model, entities.Wildcard},
		Properties: []string{req.Property, entities.Wildcard},
		AccessTypes: []entities.AccessType{
			req.AccessType,
			entities.AccessExecute,
			entities.AccessAll,
		},
	})
	if err != nil {
		return nil, err
	}
	return append(rules, dynamic...), nil
}

// effectiveRules partitions candidate rules: non-role rules are included
// when granted to a principal present in the context; role rules are
// included when the calling principal is a member. Membership checks are
// independent async predicates, so they run concurrently; a store error in
// any branch aborts the whole check.
func (u CheckAccessForContextUseCase) effectiveRules(
	ctx context.Context,
	access entities.AccessContext,
	rules []entities.Rule,
) ([]entities.Rule, []string, error) {
	principals := contextPrincipals(access)
	rc := roles.Context{Access: access, Models: u.Models}

	var mu sync.Mutex
	included := make([]bool, len(rules))
	memberRoles := make(map[string]bool)

	group, groupCtx := errgroup.WithContext(ctx)
	for i, rule := range rules {
		if rule.PrincipalType != entities.PrincipalRole {
			included[i] = rule.MatchesPrincipal(principals)
			continue
		}

		i, rule := i, rule
		group.Go(func() error {
			member, err := u.Registry.IsInRole(groupCtx, rule.PrincipalID, rc)
			if err != nil {
				return err
			}
			if member {
				mu.Lock()
				included[i] = true
				memberRoles[rule.PrincipalID] = true
				mu.Unlock()
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	var effective []entities.Rule
	for i, rule := range rules {
		if included[i] {
			effective = append(effective, rule)
		}
	}
	authorized := make([]string, 0, len(memberRoles))
	for role := range memberRoles {
		authorized = append(authorized, role)
	}
	return effective, authorized, nil
}

func contextPrincipals(access entities.AccessContext) []entities.Principal {
	principals := append([]entities.Principal(nil), access.Principals...)
	if access.Token != nil {
		if access.Token.UserID != "" {
			principals = append(principals, entities.Principal{Type: entities.PrincipalUser, ID: access.Token.UserID})
		}
		if access.Token.AppID != "" {
			principals = append(principals, entities.Principal{Type: entities.PrincipalApp, ID: access.Token.AppID})
		}
	}
	return principals
}

func (u CheckAccessForContextUseCase) order() services.PermissionOrder {
	if u.Order != nil {
		return u.Order
	}
	return services.DefaultPermissionOrder()
}

// CheckAccessForTokenUseCase is the boolean convenience wrapper building a
// context from a token plus resource coordinates.
type CheckAccessForTokenUseCase struct {
	CheckAccess CheckAccessForContextUseCase
	Logger      *slog.Logger
}

// Execute maps the method name to an access type, builds the context, and
// returns whether access is allowed.
func (u CheckAccessForTokenUseCase) Execute(
	ctx context.Context,
	token entities.Token,
	model string,
	modelID string,
	method string,
) (bool, error) {
	access := entities.AccessContext{
		Token:      &token,
		Model:      model,
		ModelID:    modelID,
		Property:   method,
		AccessType: methodAccessType(method),
	}
	decision, err := u.CheckAccess.Execute(ctx, access)
	if err != nil {
		return false, err
	}
	return decision.Allowed(), nil
}

// methodAccessType classifies well-known persisted-model method names;
// anything unrecognized is a custom method and maps to EXECUTE.
func methodAccessType(method string) entities.AccessType {
	switch method {
	case "create", "updateOrCreate", "upsert", "updateAttributes", "updateAll",
		"destroy", "destroyById", "destroyAll", "deleteById", "removeById":
		return entities.AccessWrite
	case "find", "findById", "findOne", "count", "exists", "get":
		return entities.AccessRead
	case "replicate", "changes", "diff", "checkpoint", "createUpdates", "bulkUpdate":
		return entities.AccessReplicate
	default:
		return entities.AccessExecute
	}
}
