package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidQuery is returned when a query names an unknown column or relation
	ErrInvalidQuery = errors.New("invalid query")

	// ErrResetNotAllowed is returned when a forced schema sync is requested
	// against a store that has not opted in to destructive resets
	ErrResetNotAllowed = errors.New("schema reset is not allowed for this database")
)

// ViolationReason tells why a field failed validation
type ViolationReason string

const (
	ReasonRequired  ViolationReason = "required"
	ReasonDuplicate ViolationReason = "duplicate"
	ReasonInvalid   ViolationReason = "invalid"
)

// Violation is a single failed constraint on a single field
type Violation struct {
	Field  string          `json:"field"`
	Reason ViolationReason `json:"reason"`
}

// ValidationError lists every constraint a create or update violated
type ValidationError struct {
	Entity     string      `json:"entity"`
	Violations []Violation `json:"violations"`
}

// NewValidationError creates an empty validation error for the entity
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{Entity: entity}
}

// Add records a violation
func (e *ValidationError) Add(field string, reason ViolationReason) {
	e.Violations = append(e.Violations, Violation{Field: field, Reason: reason})
}

// Has reports whether the field failed for the given reason
func (e *ValidationError) Has(field string, reason ViolationReason) bool {
	for _, v := range e.Violations {
		if v.Field == field && v.Reason == reason {
			return true
		}
	}
	return false
}

// Fields returns the names of the offending fields in report order
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Field)
	}
	return fields
}

// OrNil returns the error only when at least one violation was recorded
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Violations) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s is %s", v.Field, v.Reason))
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Entity, strings.Join(parts, ", "))
}

// State describes why an instance cannot take part in an operation
type State string

const (
	StateUnpersisted State = "not persisted"
	StateDeleted     State = "deleted"
)

// InvalidStateError is returned when an operation targets a keyless or deleted instance
type InvalidStateError struct {
	Entity string
	ID     int
	State  State
}

// Error implements the error interface
func (e *InvalidStateError) Error() string {
	if e.State == StateUnpersisted {
		return fmt.Sprintf("%s is %s", e.Entity, e.State)
	}
	return fmt.Sprintf("%s %d is %s", e.Entity, e.ID, e.State)
}

// ConstraintKind classifies a storage-level constraint failure
type ConstraintKind string

const (
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintForeignKey ConstraintKind = "foreign key"
	ConstraintNotNull    ConstraintKind = "not null"
	ConstraintOther      ConstraintKind = "constraint"
)

// IntegrityError wraps a constraint violation reported by the store itself
type IntegrityError struct {
	Kind       ConstraintKind
	Constraint string
	Err        error
}

// Error implements the error interface
func (e *IntegrityError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("%s constraint %s violated: %v", e.Kind, e.Constraint, e.Err)
	}
	return fmt.Sprintf("%s constraint violated: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying driver error
func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned by find-or-fail lookups that match nothing
type NotFoundError struct {
	Entity   string
	Criteria string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.Criteria == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s not found (%s)", e.Entity, e.Criteria)
}

// RelationError is returned when an accessor is built for a relation whose
// direction, kind or entity pair does not match the descriptor table
type RelationError struct {
	Source   string
	Relation string
	Reason   string
}

// Error implements the error interface
func (e *RelationError) Error() string {
	return fmt.Sprintf("relation %s.%s: %s", e.Source, e.Relation, e.Reason)
}

// Error codes for the outer API layer
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeInvalidState   = "INVALID_STATE"
	ErrCodeIntegrity      = "INTEGRITY_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeRelation       = "RELATION_MISMATCH"
	ErrCodeInvalidQuery   = "INVALID_QUERY"
	ErrCodeResetForbidden = "RESET_NOT_ALLOWED"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// Code maps an error returned by the data layer to a stable code
func Code(err error) string {
	var (
		validationErr *ValidationError
		stateErr      *InvalidStateError
		integrityErr  *IntegrityError
		notFoundErr   *NotFoundError
		relationErr   *RelationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr):
		return ErrCodeValidation
	case errors.As(err, &stateErr):
		return ErrCodeInvalidState
	case errors.As(err, &integrityErr):
		return ErrCodeIntegrity
	case errors.As(err, &notFoundErr):
		return ErrCodeNotFound
	case errors.As(err, &relationErr):
		return ErrCodeRelation
	case errors.Is(err, ErrInvalidQuery):
		return ErrCodeInvalidQuery
	case errors.Is(err, ErrResetNotAllowed):
		return ErrCodeResetForbidden
	default:
		return ErrCodeInternal
	}
}

// IsDomainError reports whether err already carries a data-layer classification
func IsDomainError(err error) bool {
	code := Code(err)
	return code != "" && code != ErrCodeInternal
}
