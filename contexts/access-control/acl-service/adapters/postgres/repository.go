package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"syncgate/contexts/access-control/acl-service/domain/entities"
	"syncgate/contexts/access-control/acl-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Repository struct {
	db     *gorm.DB
	ids    ports.IDGenerator
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, ids: UUIDGenerator{}, logger: logger}
}

type aclModel struct {
	ID            string `gorm:"primaryKey;column:id"`
	Model         string `gorm:"column:model;index"`
	Property      string `gorm:"column:property"`
	AccessType    string `gorm:"column:access_type"`
	PrincipalType string `gorm:"column:principal_type"`
	PrincipalID   string `gorm:"column:principal_id"`
	Permission    string `gorm:"column:permission"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (aclModel) TableName() string { return "acl_rules" }

func (r *Repository) FindMatching(ctx context.Context, query ports.RuleQuery) ([]entities.Rule, error) {
	tx := r.db.WithContext(ctx).Model(&aclModel{})
	if len(query.Models) > 0 {
		tx = tx.Where("model IN ?", query.Models)
	}
	if len(query.Properties) > 0 {
		tx = tx.Where("property IN ?", query.Properties)
	}
	if len(query.AccessTypes) > 0 {
		accessTypes := make([]string, 0, len(query.AccessTypes))
		for _, at := range query.AccessTypes {
			accessTypes = append(accessTypes, string(at))
		}
		tx = tx.Where("access_type IN ?", accessTypes)
	}
	if len(query.Principals) > 0 {
		principal := r.db
		for i, p := range query.Principals {
			clause := r.db.Where("principal_type = ? AND principal_id = ?", string(p.Type), p.ID)
			if i == 0 {
				principal = clause
			} else {
				principal = principal.Or(clause)
			}
		}
		tx = tx.Where(principal)
	}

	var rows []aclModel
	if err := tx.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("acl_repo_find_matching_failed", err)
	}

	rules := make([]entities.Rule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, row.toEntity())
	}
	return rules, nil
}

func (r *Repository) Create(ctx context.Context, rule entities.Rule) (entities.Rule, error) {
	row := aclModelFromEntity(rule)
	if row.ID == "" {
		id, err := r.ids.NewID(ctx)
		if err != nil {
			return entities.Rule{}, err
		}
		row.ID = id
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.Rule{}, gorm.ErrDuplicatedKey
		}
		return entities.Rule{}, r.logError("acl_repo_create_failed", err, "rule_id", row.ID)
	}
	return row.toEntity(), nil
}

func (m aclModel) toEntity() entities.Rule {
	return entities.Rule{
		ID:            m.ID,
		Model:         m.Model,
		Property:      m.Property,
		AccessType:    entities.AccessType(m.AccessType),
		PrincipalType: entities.PrincipalType(m.PrincipalType),
		PrincipalID:   m.PrincipalID,
		Permission:    entities.Permission(m.Permission),
	}
}

func aclModelFromEntity(rule entities.Rule) aclModel {
	return aclModel{
		ID:            rule.ID,
		Model:         rule.Model,
		Property:      rule.Property,
		AccessType:    string(rule.AccessType),
		PrincipalType: string(rule.PrincipalType),
		PrincipalID:   rule.PrincipalID,
		Permission:    string(rule.Permission),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "access-control/acl-service",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("acl repository operation failed", fields...)
	return err
}
