package ports

import (
	"context"

	"syncgate/contexts/access-control/acl-service/domain/entities"
)

// IDGenerator abstracts UUID generation for stored rules.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// Document is one persisted entity instance as seen through the
// persistence collaborator. The "id" key holds the identifier.
type Document map[string]any

// Op is a non-equality comparison inside a where clause.
type Op struct {
	Name  string
	Value any
}

func In(values ...any) Op  { return Op{Name: "inq", Value: values} }
func Gt(value any) Op      { return Op{Name: "gt", Value: value} }
func Gte(value any) Op     { return Op{Name: "gte", Value: value} }
func Lt(value any) Op      { return Op{Name: "lt", Value: value} }
func Lte(value any) Op     { return Op{Name: "lte", Value: value} }
func Neq(value any) Op     { return Op{Name: "neq", Value: value} }

// Where maps field names to either a plain value (equality) or an Op.
type Where map[string]any

// Filter is the query contract of the persistence collaborator.
type Filter struct {
	Where  Where
	Fields []string
	Order  string
	Skip   int
	Limit  int
}

// EntityStore is the minimal capability set the core demands from the
// persistence collaborator, per entity collection.
type EntityStore interface {
	Create(ctx context.Context, doc Document) (Document, error)
	FindByID(ctx context.Context, id string) (Document, bool, error)
	FindOne(ctx context.Context, filter Filter) (Document, bool, error)
	Find(ctx context.Context, filter Filter) ([]Document, error)
	UpdateAttributes(ctx context.Context, id string, data Document) (Document, error)
	DestroyByID(ctx context.Context, id string) error
	Count(ctx context.Context, where Where) (int64, error)
	UpdateAll(ctx context.Context, where Where, data Document) (int64, error)
}

// OwnerRelation configures one belongs-to-user relation consulted by the
// $owner role resolver.
type OwnerRelation struct {
	// ForeignKey is the document field holding the owning user id.
	ForeignKey string
}

// ModelConfig carries the schema-level ACL configuration of one model.
type ModelConfig struct {
	// ACLs are the schema-declared rules for the whole model.
	ACLs []entities.Rule
	// PropertyACLs are per-property/per-method embedded declarations.
	PropertyACLs map[string][]entities.Rule
	// MethodAliases maps a method name to its recognized aliases.
	MethodAliases map[string][]string
	// DefaultPermission elucidates a DEFAULT resolution; empty means ALLOW.
	DefaultPermission entities.Permission
	// OwnerRelations configure $owner/$related membership. When empty, the
	// resolver falls back to the document's userId/owner fields.
	OwnerRelations   []OwnerRelation
	RelatedRelations []OwnerRelation
}

// StaticRules returns the schema-declared rules applying to a property,
// matching declarations by exact name, alias membership, or wildcard.
func (c ModelConfig) StaticRules(property string) []entities.Rule {
	aliases := c.MethodAliases[property]
	var rules []entities.Rule
	for _, rule := range c.ACLs {
		if rule.Property == property || rule.Property == entities.Wildcard {
			rules = append(rules, rule)
			continue
		}
		for _, alias := range aliases {
			if rule.Property == alias {
				rules = append(rules, rule)
				break
			}
		}
	}
	rules = append(rules, c.PropertyACLs[property]...)
	return rules
}

// ModelRef is one registered model: its name, configuration, and backing
// entity collection.
type ModelRef struct {
	Name     string
	Config   ModelConfig
	Entities EntityStore
}

// Base type names resolvable through ModelByType.
const (
	BaseTypeRole        = "Role"
	BaseTypeRoleMapping = "RoleMapping"
	BaseTypeUser        = "User"
	BaseTypeApplication = "Application"
)

// ModelRegistry is the identity-resolution collaborator.
type ModelRegistry interface {
	FindModel(name string) (ModelRef, bool)
	ModelByType(baseType string) (ModelRef, bool)
}

// RuleQuery selects stored dynamic rules. Empty slices match everything
// for that dimension.
type RuleQuery struct {
	Models      []string
	Properties  []string
	AccessTypes []entities.AccessType
	Principals  []entities.Principal
}

// RuleStore persists dynamic ACL rules.
type RuleStore interface {
	FindMatching(ctx context.Context, query RuleQuery) ([]entities.Rule, error)
	Create(ctx context.Context, rule entities.Rule) (entities.Rule, error)
}
