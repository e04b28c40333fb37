package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"syncgate/contexts/data-sync/replication-service/domain/entities"
	"syncgate/contexts/data-sync/replication-service/ports"
)

// NewReplica wires a postgres-backed replica for one tracked model. All
// tracked models share the three tables, partitioned by model name.
func NewReplica(db *gorm.DB, modelName string, logger *slog.Logger) ports.Replica {
	if logger == nil {
		logger = slog.Default()
	}
	return ports.Replica{
		ModelName:   modelName,
		Entities:    &DocumentStore{db: db, modelName: modelName, logger: logger},
		Changes:     &ChangeStore{db: db, modelName: modelName, logger: logger},
		Checkpoints: &CheckpointStore{db: db, modelName: modelName, logger: logger},
	}
}

type changeModel struct {
	ID         string `gorm:"primaryKey;column:id"`
	ModelName  string `gorm:"column:model_name;uniqueIndex:idx_change_model"`
	ModelID    string `gorm:"column:model_id;uniqueIndex:idx_change_model"`
	Rev        string `gorm:"column:rev"`
	Prev       string `gorm:"column:prev"`
	Checkpoint int64  `gorm:"column:checkpoint;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (changeModel) TableName() string { return "replication_changes" }

type checkpointModel struct {
	ModelName string `gorm:"primaryKey;column:model_name"`
	Seq       int64  `gorm:"column:seq"`
	UpdatedAt time.Time
}

func (checkpointModel) TableName() string { return "replication_checkpoints" }

type documentModel struct {
	ModelName string `gorm:"primaryKey;column:model_name"`
	DocID     string `gorm:"primaryKey;column:doc_id"`
	Data      []byte `gorm:"column:data;type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (documentModel) TableName() string { return "replicated_documents" }

// ChangeStore persists change records for one tracked model.
type ChangeStore struct {
	db        *gorm.DB
	modelName string
	logger    *slog.Logger
}

func (s *ChangeStore) FindByModelID(ctx context.Context, modelID string) (entities.Change, bool, error) {
	var row changeModel
	err := s.db.WithContext(ctx).
		Where("model_name = ? AND model_id = ?", s.modelName, modelID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.Change{}, false, nil
	}
	if err != nil {
		return entities.Change{}, false, s.logError("change_find_failed", err, "model_id", modelID)
	}
	return row.toEntity(), true, nil
}

func (s *ChangeStore) Since(ctx context.Context, checkpoint int64, skip, limit int) ([]entities.Change, error) {
	tx := s.db.WithContext(ctx).Model(&changeModel{}).
		Where("model_name = ?", s.modelName)
	if checkpoint > 0 {
		tx = tx.Where("checkpoint >= ?", checkpoint)
	}
	tx = tx.Order("model_id ASC")
	if skip > 0 {
		tx = tx.Offset(skip)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var rows []changeModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, s.logError("change_since_failed", err)
	}
	changes := make([]entities.Change, 0, len(rows))
	for _, row := range rows {
		changes = append(changes, row.toEntity())
	}
	return changes, nil
}

func (s *ChangeStore) Save(ctx context.Context, change entities.Change) (entities.Change, error) {
	row := changeModelFromEntity(change)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rev", "prev", "checkpoint", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return entities.Change{}, s.logError("change_save_failed", err, "change_id", change.ID)
	}
	return row.toEntity(), nil
}

func (s *ChangeStore) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&changeModel{}).Error
	if err != nil {
		return s.logError("change_delete_failed", err, "change_id", id)
	}
	return nil
}

func (s *ChangeStore) All(ctx context.Context) ([]entities.Change, error) {
	return s.Since(ctx, 0, 0, 0)
}

func (m changeModel) toEntity() entities.Change {
	return entities.Change{
		ID:         m.ID,
		ModelName:  m.ModelName,
		ModelID:    m.ModelID,
		Rev:        m.Rev,
		Prev:       m.Prev,
		Checkpoint: m.Checkpoint,
	}
}

func changeModelFromEntity(change entities.Change) changeModel {
	return changeModel{
		ID:         change.ID,
		ModelName:  change.ModelName,
		ModelID:    change.ModelID,
		Rev:        change.Rev,
		Prev:       change.Prev,
		Checkpoint: change.Checkpoint,
	}
}

// CheckpointStore holds one sequence row per tracked model.
type CheckpointStore struct {
	db        *gorm.DB
	modelName string
	logger    *slog.Logger
}

func (s *CheckpointStore) Current(ctx context.Context) (int64, error) {
	var row checkpointModel
	err := s.db.WithContext(ctx).
		Where("model_name = ?", s.modelName).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, s.logError("checkpoint_read_failed", err)
	}
	return row.Seq, nil
}

func (s *CheckpointStore) Bump(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row checkpointModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("model_name = ?", s.modelName).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = checkpointModel{ModelName: s.modelName, Seq: 1}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		row.Seq++
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		seq = row.Seq
		return nil
	})
	if err != nil {
		return 0, s.logError("checkpoint_bump_failed", err)
	}
	return seq, nil
}

// DocumentStore persists tracked entity snapshots as JSONB documents. The
// query contract supports id equality and id-in filters in SQL; remaining
// where fields are matched on the decoded document.
type DocumentStore struct {
	db        *gorm.DB
	modelName string
	logger    *slog.Logger
}

func (s *DocumentStore) Create(ctx context.Context, doc entities.Document) (entities.Document, error) {
	id := doc.ID()
	if id == "" {
		return nil, fmt.Errorf("document is missing an id")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	row := documentModel{ModelName: s.modelName, DocID: id, Data: data}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, s.logError("document_create_failed", err, "doc_id", id)
	}
	return doc, nil
}

func (s *DocumentStore) FindByID(ctx context.Context, id string) (entities.Document, bool, error) {
	var row documentModel
	err := s.db.WithContext(ctx).
		Where("model_name = ? AND doc_id = ?", s.modelName, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.logError("document_find_failed", err, "doc_id", id)
	}
	doc, err := decodeDocument(row.Data)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (s *DocumentStore) Find(ctx context.Context, filter ports.Filter) ([]entities.Document, error) {
	tx := s.db.WithContext(ctx).Model(&documentModel{}).
		Where("model_name = ?", s.modelName)
	residual := make(ports.Where)
	for field, cond := range filter.Where {
		if field != "id" {
			residual[field] = cond
			continue
		}
		if op, ok := cond.(ports.Op); ok && op.Name == "inq" {
			if ids, ok := op.Value.([]any); ok {
				tx = tx.Where("doc_id IN ?", ids)
			}
			continue
		}
		tx = tx.Where("doc_id = ?", fmt.Sprint(cond))
	}
	tx = tx.Order("doc_id ASC")
	if len(residual) == 0 {
		if filter.Skip > 0 {
			tx = tx.Offset(filter.Skip)
		}
		if filter.Limit > 0 {
			tx = tx.Limit(filter.Limit)
		}
	}

	var rows []documentModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, s.logError("document_list_failed", err)
	}
	var out []entities.Document
	for _, row := range rows {
		doc, err := decodeDocument(row.Data)
		if err != nil {
			return nil, err
		}
		if !matchesResidual(doc, residual) {
			continue
		}
		out = append(out, doc)
	}
	if len(residual) > 0 {
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
	}
	if len(filter.Fields) > 0 {
		for i, doc := range out {
			projected := make(entities.Document, len(filter.Fields))
			for _, field := range filter.Fields {
				if value, ok := doc[field]; ok {
					projected[field] = value
				}
			}
			out[i] = projected
		}
	}
	return out, nil
}

func (s *DocumentStore) UpdateAttributes(ctx context.Context, id string, data entities.Document) (entities.Document, error) {
	doc, found, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		doc = entities.Document{"id": id}
	}
	for k, v := range data {
		if k == "id" {
			continue
		}
		doc[k] = v
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	row := documentModel{ModelName: s.modelName, DocID: id, Data: raw}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "model_name"}, {Name: "doc_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return nil, s.logError("document_update_failed", err, "doc_id", id)
	}
	return doc, nil
}

func (s *DocumentStore) DestroyByID(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).
		Where("model_name = ? AND doc_id = ?", s.modelName, id).
		Delete(&documentModel{}).Error
	if err != nil {
		return s.logError("document_destroy_failed", err, "doc_id", id)
	}
	return nil
}

func (s *DocumentStore) Count(ctx context.Context, where ports.Where) (int64, error) {
	docs, err := s.Find(ctx, ports.Filter{Where: where})
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func decodeDocument(data []byte) (entities.Document, error) {
	var doc entities.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func matchesResidual(doc entities.Document, where ports.Where) bool {
	for field, cond := range where {
		if op, ok := cond.(ports.Op); ok {
			if op.Name != "inq" {
				return false
			}
			values, ok := op.Value.([]any)
			if !ok {
				return false
			}
			matched := false
			for _, v := range values {
				if fmt.Sprint(doc[field]) == fmt.Sprint(v) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
			continue
		}
		if fmt.Sprint(doc[field]) != fmt.Sprint(cond) {
			return false
		}
	}
	return true
}

func (s *ChangeStore) logError(event string, err error, args ...any) error {
	return logStoreError(s.logger, event, err, args...)
}

func (s *CheckpointStore) logError(event string, err error, args ...any) error {
	return logStoreError(s.logger, event, err, args...)
}

func (s *DocumentStore) logError(event string, err error, args ...any) error {
	return logStoreError(s.logger, event, err, args...)
}

func logStoreError(logger *slog.Logger, event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "data-sync/replication-service",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	logger.Error("replication store operation failed", fields...)
	return err
}
