package queries

import (
	"context"
	"log/slog"

	application "syncgate/contexts/access-control/acl-service/application"
	"syncgate/contexts/access-control/acl-service/domain/entities"
	domainerrors "syncgate/contexts/access-control/acl-service/domain/errors"
	"syncgate/contexts/access-control/acl-service/domain/services"
	"syncgate/contexts/access-control/acl-service/ports"
)

// CheckPermissionQuery is the request model for one principal/resource/
// action access check.
type CheckPermissionQuery struct {
	PrincipalType entities.PrincipalType
	PrincipalID   string
	Model         string
	Property      string
	AccessType    entities.AccessType
}

// CheckPermissionUseCase resolves access for a single principal by merging
// schema-declared and stored rules.
type CheckPermissionUseCase struct {
	Rules  ports.RuleStore
	Models ports.ModelRegistry
	Order  services.PermissionOrder
	Logger *slog.Logger
}

// Execute gathers static rules first; a static DENY cannot be overridden
// by dynamic rules, so resolution short-circuits fail-closed. Otherwise the
// stored rules matching the principal are merged in and the combined set is
// re-resolved.
func (u CheckPermissionUseCase) Execute(ctx context.Context, query CheckPermissionQuery) (entities.AccessRequest, error) {
	switch query.PrincipalType {
	case entities.PrincipalUser, entities.PrincipalApp, entities.PrincipalRole, entities.PrincipalScope:
	default:
		return entities.AccessRequest{}, domainerrors.NewInvalidPrincipalType(string(query.PrincipalType))
	}
	if query.Model == "" {
		return entities.AccessRequest{}, domainerrors.ErrInvalidModelName
	}

	logger := application.ResolveLogger(u.Logger)
	req := u.buildRequest(query)

	staticRules := u.staticRules(query.Model, req.Property)
	resolved := services.ResolvePermission(staticRules, req, u.order())
	if resolved.Permission == entities.PermissionDeny {
		logger.Debug("static rules denied access",
			"event", "acl_static_deny",
			"module", "access-control/acl-service",
			"layer", "application",
			"model", query.Model,
			"property", req.Property,
			"access_type", string(req.AccessType),
			"principal_type", string(query.PrincipalType),
			"principal_id", query.PrincipalID,
		)
		return resolved, nil
	}

	dynamicRules, err := u.Rules.FindMatching(ctx, ports.RuleQuery{
		Models:     []string{query.Model},
		Properties: []string{req.Property, entities.Wildcard},
		AccessTypes: []entities.AccessType{
			req.AccessType,
			entities.AccessExecute,
			entities.AccessAll,
		},
		Principals: []entities.Principal{{Type: query.PrincipalType, ID: query.PrincipalID}},
	})
	if err != nil {
		return entities.AccessRequest{}, err
	}

	combined := append(append([]entities.Rule(nil), staticRules...), dynamicRules...)
	resolved = services.ResolvePermission(combined, req, u.order())

	logger.Debug("permission resolved",
		"event", "acl_permission_resolved",
		"module", "access-control/acl-service",
		"layer", "application",
		"model", query.Model,
		"property", req.Property,
		"access_type", string(req.AccessType),
		"principal_type", string(query.PrincipalType),
		"principal_id", query.PrincipalID,
		"permission", string(resolved.Permission),
		"rule_count", len(combined),
	)
	return resolved, nil
}

func (u CheckPermissionUseCase) buildRequest(query CheckPermissionQuery) entities.AccessRequest {
	req := entities.NewAccessRequest(query.Model, query.Property, query.AccessType)
	if model, ok := u.Models.FindModel(query.Model); ok {
		req.MethodNames = model.Config.MethodAliases[req.Property]
		req.DefaultPermission = model.Config.DefaultPermission
	}
	return req
}

func (u CheckPermissionUseCase) staticRules(modelName, property string) []entities.Rule {
	model, ok := u.Models.FindModel(modelName)
	if !ok {
		return nil
	}
	return model.Config.StaticRules(property)
}

func (u CheckPermissionUseCase) order() services.PermissionOrder {
	if u.Order != nil {
		return u.Order
	}
	return services.DefaultPermissionOrder()
}
