package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"syncgate/contexts/access-control/acl-service/domain/entities"
	"syncgate/contexts/access-control/acl-service/ports"

	"github.com/google/uuid"
)

// Store is an in-memory adapter implementing the rule store, the model
// registry, and the id generator port. It is intended for tests and
// local development wiring.
type Store struct {
	mu sync.RWMutex

	models    map[string]ports.ModelRef
	baseTypes map[string]string
	rules     []entities.Rule
}

func NewStore() *Store {
	return &Store{
		models:    make(map[string]ports.ModelRef),
		baseTypes: make(map[string]string),
	}
}

// DefineModel registers a model with its ACL configuration and a fresh
// entity collection, returning the collection for seeding.
func (s *Store) DefineModel(name string, config ports.ModelConfig) *Collection {
	collection := NewCollection()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[name] = ports.ModelRef{Name: name, Config: config, Entities: collection}
	return collection
}

// DefineBaseType maps a base type name (Role, RoleMapping, User,
// Application) to a registered model.
func (s *Store) DefineBaseType(baseType, modelName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseTypes[baseType] = modelName
}

func (s *Store) FindModel(name string) (ports.ModelRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.models[name]
	return ref, ok
}

func (s *Store) ModelByType(baseType string) (ports.ModelRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.baseTypes[baseType]
	if !ok {
		return ports.ModelRef{}, false
	}
	ref, ok := s.models[name]
	return ref, ok
}

func (s *Store) FindMatching(_ context.Context, query ports.RuleQuery) ([]entities.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []entities.Rule
	for _, rule := range s.rules {
		if !containsString(query.Models, rule.Model) {
			continue
		}
		if !containsString(query.Properties, rule.Property) {
			continue
		}
		if !containsAccessType(query.AccessTypes, rule.AccessType) {
			continue
		}
		if len(query.Principals) > 0 {
			found := false
			for _, p := range query.Principals {
				if p.Type == rule.PrincipalType && p.ID == rule.PrincipalID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		matched = append(matched, rule)
	}
	return matched, nil
}

func (s *Store) Create(_ context.Context, rule entities.Rule) (entities.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	s.rules = append(s.rules, rule)
	return rule, nil
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func containsString(values []string, value string) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func containsAccessType(values []entities.AccessType, value entities.AccessType) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// Collection is an in-memory entity collection implementing the
// persistence capability set.
type Collection struct {
	mu   sync.RWMutex
	docs map[string]ports.Document
}

func NewCollection() *Collection {
	return &Collection{docs: make(map[string]ports.Document)}
}

func (c *Collection) Create(_ context.Context, doc ports.Document) (ports.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := cloneDoc(doc)
	id := fmt.Sprint(stored["id"])
	if id == "" || id == "<nil>" {
		id = uuid.NewString()
		stored["id"] = id
	}
	c.docs[id] = stored
	return cloneDoc(stored), nil
}

func (c *Collection) FindByID(_ context.Context, id string) (ports.Document, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[id]
	if !ok {
		return nil, false, nil
	}
	return cloneDoc(doc), true, nil
}

func (c *Collection) FindOne(ctx context.Context, filter ports.Filter) (ports.Document, bool, error) {
	filter.Limit = 1
	docs, err := c.Find(ctx, filter)
	if err != nil {
		return nil, false, err
	}
	if len(docs) == 0 {
		return nil, false, nil
	}
	return docs[0], true, nil
}

func (c *Collection) Find(_ context.Context, filter ports.Filter) ([]ports.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []ports.Document
	for _, doc := range c.docs {
		if matchesWhere(doc, filter.Where) {
			out = append(out, cloneDoc(doc))
		}
	}
	sortDocs(out, filter.Order)

	if filter.Skip > 0 {
		if filter.Skip >= len(out) {
			out = nil
		} else {
			out = out[filter.Skip:]
		}
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	if len(filter.Fields) > 0 {
		for i, doc := range out {
			out[i] = projectFields(doc, filter.Fields)
		}
	}
	return out, nil
}

func (c *Collection) UpdateAttributes(_ context.Context, id string, data ports.Document) (ports.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[id]
	if !ok {
		doc = ports.Document{"id": id}
		c.docs[id] = doc
	}
	for k, v := range data {
		if k == "id" {
			continue
		}
		doc[k] = v
	}
	return cloneDoc(doc), nil
}

func (c *Collection) DestroyByID(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, id)
	return nil
}

func (c *Collection) Count(_ context.Context, where ports.Where) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var count int64
	for _, doc := range c.docs {
		if matchesWhere(doc, where) {
			count++
		}
	}
	return count, nil
}

func (c *Collection) UpdateAll(_ context.Context, where ports.Where, data ports.Document) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var count int64
	for _, doc := range c.docs {
		if !matchesWhere(doc, where) {
			continue
		}
		for k, v := range data {
			if k == "id" {
				continue
			}
			doc[k] = v
		}
		count++
	}
	return count, nil
}

func matchesWhere(doc ports.Document, where ports.Where) bool {
	for field, cond := range where {
		value := doc[field]
		if op, ok := cond.(ports.Op); ok {
			if !matchesOp(value, op) {
				return false
			}
			continue
		}
		if fmt.Sprint(value) != fmt.Sprint(cond) {
			return false
		}
	}
	return true
}

func matchesOp(value any, op ports.Op) bool {
	switch op.Name {
	case "inq":
		values, ok := op.Value.([]any)
		if !ok {
			return false
		}
		for _, v := range values {
			if fmt.Sprint(value) == fmt.Sprint(v) {
				return true
			}
		}
		return false
	case "neq":
		return fmt.Sprint(value) != fmt.Sprint(op.Value)
	case "gt":
		return compareValues(value, op.Value) > 0
	case "gte":
		return compareValues(value, op.Value) >= 0
	case "lt":
		return compareValues(value, op.Value) < 0
	case "lte":
		return compareValues(value, op.Value) <= 0
	default:
		return false
	}
}

func compareValues(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func sortDocs(docs []ports.Document, order string) {
	if order == "" {
		// Deterministic iteration for tests.
		sort.Slice(docs, func(i, j int) bool {
			return fmt.Sprint(docs[i]["id"]) < fmt.Sprint(docs[j]["id"])
		})
		return
	}
	parts := strings.Fields(order)
	field := parts[0]
	desc := len(parts) > 1 && strings.EqualFold(parts[1], "DESC")
	sort.Slice(docs, func(i, j int) bool {
		cmp := compareValues(docs[i][field], docs[j][field])
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func projectFields(doc ports.Document, fields []string) ports.Document {
	out := make(ports.Document, len(fields))
	for _, field := range fields {
		if value, ok := doc[field]; ok {
			out[field] = value
		}
	}
	return out
}

func cloneDoc(doc ports.Document) ports.Document {
	out := make(ports.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
