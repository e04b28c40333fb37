package roles

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"syncgate/contexts/access-control/acl-service/domain/entities"
	domainerrors "syncgate/contexts/access-control/acl-service/domain/errors"
	"syncgate/contexts/access-control/acl-service/ports"
)

// Context is everything a role predicate may consult: the access context
// under evaluation and the model registry for resource lookups.
type Context struct {
	Access entities.AccessContext
	Models ports.ModelRegistry
}

// Resolver is an async membership predicate for one role name.
type Resolver func(ctx context.Context, roleName string, rc Context) (bool, error)

// Registry owns the role-name to predicate mapping. It is an explicit
// value held by the ACL service rather than a process-wide singleton, so
// independent configurations can coexist (and tests can run concurrently).
type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]Resolver
	builtin   map[string]bool
	logger    *slog.Logger
}

// NewRegistry builds a registry with the built-in roles pre-registered.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		resolvers: make(map[string]Resolver),
		builtin:   make(map[string]bool),
		logger:    logger,
	}
	for name, resolver := range map[string]Resolver{
		entities.RoleOwner:           resolveOwner,
		entities.RoleRelated:         resolveRelated,
		entities.RoleAuthenticated:   resolveAuthenticated,
		entities.RoleUnauthenticated: resolveUnauthenticated,
		entities.RoleEveryone:        resolveEveryone,
	} {
		r.resolvers[name] = resolver
		r.builtin[name] = true
	}
	return r
}

// Register installs a custom role predicate, replacing any previous one
// under the same name.
func (r *Registry) Register(roleName string, resolver Resolver) error {
	if roleName == "" {
		return domainerrors.ErrMissingRoleName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[roleName] = resolver
	r.builtin[roleName] = false
	return nil
}

// IsInRole evaluates membership of the context's calling principal in the
// named role. Membership is evaluated per request and never cached across
// requests, since ownership can change between checks.
//
// Custom predicate failures are logged and treated as "not in role"
// (fail-closed). Built-in predicates surface store errors to the caller,
// whose policy decides whether to abort.
func (r *Registry) IsInRole(ctx context.Context, roleName string, rc Context) (bool, error) {
	if roleName == "" {
		return false, domainerrors.ErrMissingRoleName
	}

	r.mu.RLock()
	resolver, registered := r.resolvers[roleName]
	builtin := r.builtin[roleName]
	r.mu.RUnlock()

	if !registered {
		return r.isInStaticRole(ctx, roleName, rc)
	}

	member, err := resolver(ctx, roleName, rc)
	if err != nil {
		if builtin {
			return false, err
		}
		r.logger.Warn("custom role predicate failed, treating as not in role",
			"event", "acl_role_predicate_failed",
			"module", "access-control/acl-service",
			"layer", "application",
			"role", roleName,
			"error", err.Error(),
		)
		return false, nil
	}
	return member, nil
}

// isInStaticRole falls back to the stored Role/RoleMapping collections for
// role names without a registered predicate.
func (r *Registry) isInStaticRole(ctx context.Context, roleName string, rc Context) (bool, error) {
	if rc.Models == nil {
		return false, nil
	}
	roleModel, ok := rc.Models.ModelByType(ports.BaseTypeRole)
	if !ok {
		return false, nil
	}
	mappingModel, ok := rc.Models.ModelByType(ports.BaseTypeRoleMapping)
	if !ok {
		return false, nil
	}

	role, found, err := roleModel.Entities.FindOne(ctx, ports.Filter{
		Where: ports.Where{"name": roleName},
	})
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	roleID := fmt.Sprint(role["id"])

	principals := principalSet(rc.Access)
	for _, p := range principals {
		count, err := mappingModel.Entities.Count(ctx, ports.Where{
			"roleId":        roleID,
			"principalType": string(p.Type),
			"principalId":   p.ID,
		})
		if err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

func principalSet(access entities.AccessContext) []entities.Principal {
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

func resolveEveryone(_ context.Context, _ string, _ Context) (bool, error) {
	return true, nil
}

func resolveAuthenticated(_ context.Context, _ string, rc Context) (bool, error) {
	return rc.Access.IsAuthenticated(), nil
}

func resolveUnauthenticated(_ context.Context, _ string, rc Context) (bool, error) {
	return !rc.Access.IsAuthenticated(), nil
}

// resolveOwner checks the resource's owner field or its configured
// belongs-to-user relations, supporting single and multi owner setups.
func resolveOwner(ctx context.Context, _ string, rc Context) (bool, error) {
	return matchRelations(ctx, rc, ownerKeys(rc))
}

func resolveRelated(ctx context.Context, _ string, rc Context) (bool, error) {
	model, ok := rc.Models.FindModel(rc.Access.Model)
	if !ok {
		return false, nil
	}
	keys := make([]string, 0, len(model.Config.RelatedRelations))
	for _, relation := range model.Config.RelatedRelations {
		keys = append(keys, relation.ForeignKey)
	}
	return matchRelations(ctx, rc, keys)
}

func ownerKeys(rc Context) []string {
	model, ok := rc.Models.FindModel(rc.Access.Model)
	if !ok {
		return nil
	}
	if len(model.Config.OwnerRelations) > 0 {
		keys := make([]string, 0, len(model.Config.OwnerRelations))
		for _, relation := range model.Config.OwnerRelations {
			keys = append(keys, relation.ForeignKey)
		}
		return keys
	}
	return []string{"userId", "owner"}
}

func matchRelations(ctx context.Context, rc Context, foreignKeys []string) (bool, error) {
	if rc.Models == nil || len(foreignKeys) == 0 {
		return false, nil
	}
	userID := rc.Access.UserID()
	if userID == "" || rc.Access.ModelID == "" {
		return false, nil
	}
	model, ok := rc.Models.FindModel(rc.Access.Model)
	if !ok {
		return false, nil
	}
	doc, found, err := model.Entities.FindByID(ctx, rc.Access.ModelID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	for _, key := range foreignKeys {
		value, ok := doc[key]
		if !ok || value == nil {
			continue
		}
		if fmt.Sprint(value) == userID {
			return true, nil
		}
	}
	return false, nil
}
