package accesscontrol

import (
	"log/slog"

	"syncgate/contexts/access-control/acl-service/adapters/memory"
	"syncgate/contexts/access-control/acl-service/application/queries"
	"syncgate/contexts/access-control/acl-service/application/roles"
	"syncgate/contexts/access-control/acl-service/domain/services"
	"syncgate/contexts/access-control/acl-service/ports"
)

// Module is the acl-service composition root exposed to runtime wiring.
type Module struct {
	CheckPermission queries.CheckPermissionUseCase
	CheckAccess     queries.CheckAccessForContextUseCase
	CheckToken      queries.CheckAccessForTokenUseCase
	Registry        *roles.Registry
	Store           *memory.Store
}

// Dependencies captures all runtime ports/config required by NewModule.
type Dependencies struct {
	Rules           ports.RuleStore
	Models          ports.ModelRegistry
	Registry        *roles.Registry
	PermissionOrder services.PermissionOrder
	Logger          *slog.Logger
}

// NewModule wires the access-check use cases using explicit ports.
func NewModule(deps Dependencies) Module {
	registry := deps.Registry
	if registry == nil {
		registry = roles.NewRegistry(deps.Logger)
	}
	order := deps.PermissionOrder
	if order == nil {
		order = services.DefaultPermissionOrder()
	}

	checkPermission := queries.CheckPermissionUseCase{
		Rules:  deps.Rules,
		Models: deps.Models,
		Order:  order,
		Logger: deps.Logger,
	}
	checkAccess := queries.CheckAccessForContextUseCase{
		Rules:    deps.Rules,
		Models:   deps.Models,
		Registry: registry,
		Order:    order,
		Logger:   deps.Logger,
	}
	checkToken := queries.CheckAccessForTokenUseCase{
		CheckAccess: checkAccess,
		Logger:      deps.Logger,
	}

	return Module{
		CheckPermission: checkPermission,
		CheckAccess:     checkAccess,
		CheckToken:      checkToken,
		Registry:        registry,
	}
}

// NewInMemoryModule builds a development/testing module with in-memory
// adapters.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Rules:  store,
		Models: store,
		Logger: logger,
	})
	module.Store = store
	return module
}
