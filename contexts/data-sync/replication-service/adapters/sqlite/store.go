// Package sqlite backs a replica with a local sqlite database, the
// offline-capable side of a sync pair.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"syncgate/contexts/data-sync/replication-service/adapters/sqlite/migrations"
	"syncgate/contexts/data-sync/replication-service/domain/entities"
	"syncgate/contexts/data-sync/replication-service/ports"
)

// NewReplica wires a sqlite-backed replica for one tracked model,
// migrating the schema first.
func NewReplica(db *sql.DB, modelName string, logger *slog.Logger) (ports.Replica, error) {
	if err := migrations.Up(db); err != nil {
		return ports.Replica{}, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return ports.Replica{
		ModelName:   modelName,
		Entities:    &DocumentStore{db: db, modelName: modelName, logger: logger},
		Changes:     &ChangeStore{db: db, modelName: modelName, logger: logger},
		Checkpoints: &CheckpointStore{db: db, modelName: modelName, logger: logger},
	}, nil
}

// ChangeStore persists change records for one tracked model.
type ChangeStore struct {
	db        *sql.DB
	modelName string
	logger    *slog.Logger
}

func (s *ChangeStore) FindByModelID(ctx context.Context, modelID string) (entities.Change, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, rev, prev, checkpoint FROM replication_changes WHERE model_name = ? AND model_id = ?`,
		s.modelName, modelID)
	change := entities.Change{ModelName: s.modelName, ModelID: modelID}
	err := row.Scan(&change.ID, &change.Rev, &change.Prev, &change.Checkpoint)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Change{}, false, nil
	}
	if err != nil {
		return entities.Change{}, false, s.fail("change_find_failed", err)
	}
	return change, true, nil
}

func (s *ChangeStore) Since(ctx context.Context, checkpoint int64, skip, limit int) ([]entities.Change, error) {
	query := `SELECT id, model_id, rev, prev, checkpoint FROM replication_changes WHERE model_name = ?`
	args := []any{s.modelName}
	if checkpoint > 0 {
		query += ` AND checkpoint >= ?`
		args = append(args, checkpoint)
	}
	query += ` ORDER BY model_id ASC`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, skip)
	} else if skip > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, skip)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail("change_since_failed", err)
	}
	defer rows.Close()

	var changes []entities.Change
	for rows.Next() {
		change := entities.Change{ModelName: s.modelName}
		if err := rows.Scan(&change.ID, &change.ModelID, &change.Rev, &change.Prev, &change.Checkpoint); err != nil {
			return nil, s.fail("change_scan_failed", err)
		}
		changes = append(changes, change)
	}
	return changes, rows.Err()
}

func (s *ChangeStore) Save(ctx context.Context, change entities.Change) (entities.Change, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO replication_changes (id, model_name, model_id, rev, prev, checkpoint, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
		 ON CONFLICT (id) DO UPDATE SET rev = excluded.rev, prev = excluded.prev,
		   checkpoint = excluded.checkpoint, updated_at = excluded.updated_at`,
		change.ID, change.ModelName, change.ModelID, change.Rev, change.Prev, change.Checkpoint)
	if err != nil {
		return entities.Change{}, s.fail("change_save_failed", err)
	}
	return change, nil
}

func (s *ChangeStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM replication_changes WHERE id = ?`, id); err != nil {
		return s.fail("change_delete_failed", err)
	}
	return nil
}

func (s *ChangeStore) All(ctx context.Context) ([]entities.Change, error) {
	return s.Since(ctx, 0, 0, 0)
}

// CheckpointStore holds one sequence row per tracked model.
type CheckpointStore struct {
	db        *sql.DB
	modelName string
	logger    *slog.Logger
}

func (s *CheckpointStore) Current(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT seq FROM replication_checkpoints WHERE model_name = ?`, s.modelName).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 1, nil
	}
	if err != nil {
		return 0, s.fail("checkpoint_read_failed", err)
	}
	return seq, nil
}

func (s *CheckpointStore) Bump(ctx context.Context) (int64, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO replication_checkpoints (model_name, seq, updated_at)
		 VALUES (?, 2, datetime('now'))
		 ON CONFLICT (model_name) DO UPDATE SET seq = seq + 1, updated_at = excluded.updated_at`,
		s.modelName)
	if err != nil {
		return 0, s.fail("checkpoint_bump_failed", err)
	}
	return s.Current(ctx)
}

// DocumentStore persists tracked entity snapshots as JSON text rows.
type DocumentStore struct {
	db        *sql.DB
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
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO replicated_documents (model_name, doc_id, data) VALUES (?, ?, ?)`,
		s.modelName, id, string(data))
	if err != nil {
		return nil, s.fail("document_create_failed", err)
	}
	return doc, nil
}

func (s *DocumentStore) FindByID(ctx context.Context, id string) (entities.Document, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM replicated_documents WHERE model_name = ? AND doc_id = ?`,
		s.modelName, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.fail("document_find_failed", err)
	}
	var doc entities.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, false, fmt.Errorf("decode document %s: %w", id, err)
	}
	return doc, true, nil
}

func (s *DocumentStore) Find(ctx context.Context, filter ports.Filter) ([]entities.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM replicated_documents WHERE model_name = ? ORDER BY doc_id ASC`, s.modelName)
	if err != nil {
		return nil, s.fail("document_list_failed", err)
	}
	defer rows.Close()

	var out []entities.Document
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, s.fail("document_scan_failed", err)
		}
		var doc entities.Document
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		if !matchesWhere(doc, filter.Where) {
			continue
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
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
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO replicated_documents (model_name, doc_id, data) VALUES (?, ?, ?)
		 ON CONFLICT (model_name, doc_id) DO UPDATE SET data = excluded.data, updated_at = datetime('now')`,
		s.modelName, id, string(raw))
	if err != nil {
		return nil, s.fail("document_update_failed", err)
	}
	return doc, nil
}

func (s *DocumentStore) DestroyByID(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM replicated_documents WHERE model_name = ? AND doc_id = ?`, s.modelName, id)
	if err != nil {
		return s.fail("document_destroy_failed", err)
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

func matchesWhere(doc entities.Document, where ports.Where) bool {
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

func (s *ChangeStore) fail(event string, err error) error {
	return logStoreError(s.logger, event, err)
}

func (s *CheckpointStore) fail(event string, err error) error {
	return logStoreError(s.logger, event, err)
}

func (s *DocumentStore) fail(event string, err error) error {
	return logStoreError(s.logger, event, err)
}

func logStoreError(logger *slog.Logger, event string, err error) error {
	logger.Error("sqlite replica operation failed",
		slog.String("event", event),
		slog.String("module", "data-sync/replication-service"),
		slog.String("layer", "adapter"),
		slog.String("error", err.Error()),
	)
	return err
}
