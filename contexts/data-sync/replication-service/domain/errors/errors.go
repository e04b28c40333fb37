package errors

import (
	"errors"
	"fmt"
)

var (
	ErrChangeNotFound     = errors.New("change record not found")
	ErrEntityNotFound     = errors.New("tracked entity not found")
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	ErrMissingModelID     = errors.New("model id is required")
)

// UpdateConflict records one update that bulkUpdate refused to apply.
type UpdateConflict struct {
	ModelID string
	Kind    string
}

// ConflictError aggregates every conflicting record of one bulkUpdate
// batch. Non-conflicting records in the same batch were still applied.
type ConflictError struct {
	ModelName  string
	StatusCode int
	Conflicts  []UpdateConflict
}

func NewConflictError(modelName string, conflicts []UpdateConflict) *ConflictError {
	return &ConflictError{ModelName: modelName, StatusCode: 409, Conflicts: conflicts}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict applying %d change(s) to %s", len(e.Conflicts), e.ModelName)
}

// AsConflictError unwraps err into a ConflictError when one is present.
func AsConflictError(err error) (*ConflictError, bool) {
	var conflictErr *ConflictError
	if errors.As(err, &conflictErr) {
		return conflictErr, true
	}
	return nil, false
}
