package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidModelName = errors.New("invalid model name")
	ErrMissingRoleName  = errors.New("role name is required")
	ErrRoleNotFound     = errors.New("role not found")
	ErrModelNotFound    = errors.New("model not found")
)

// CodedError is a validation error surfaced verbatim to the external
// caller with a stable code and an HTTP-style status code.
type CodedError struct {
	Code       string
	StatusCode int
	Message    string
}

func (e *CodedError) Error() string {
	return e.Message
}

// NewInvalidPrincipalType reports an unrecognized principal type during
// principal resolution.
func NewInvalidPrincipalType(principalType string) *CodedError {
	return &CodedError{
		Code:       "INVALID_PRINCIPAL_TYPE",
		StatusCode: 400,
		Message:    fmt.Sprintf("invalid principal type: %s", principalType),
	}
}
