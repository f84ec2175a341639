package domain

import (
	"errors"
	"fmt"
)

// Error classes. Typed errors below match these with errors.Is.
var (
	ErrFetch        = errors.New("fetch failure")
	ErrFieldMissing = errors.New("missing field")
	ErrPersistence  = errors.New("persistence failure")
)

// FetchError reports a failed forecast request. StatusCode is zero when no
// response was received.
type FetchError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("fetch failure: status %d: %v", e.StatusCode, e.Err)
	case e.StatusCode != 0:
		if e.Body != "" {
			return fmt.Sprintf("fetch failure: status %d: %s", e.StatusCode, e.Body)
		}
		return fmt.Sprintf("fetch failure: status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch failure: %v", e.Err)
	default:
		return "fetch failure"
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// FieldMissingError reports an absent or null payload field. Field is the
// dotted path, e.g. "current_weather.temperature".
type FieldMissingError struct {
	Field string
}

func (e *FieldMissingError) Error() string {
	return fmt.Sprintf("missing field: %s", e.Field)
}

func (e *FieldMissingError) Is(target error) bool { return target == ErrFieldMissing }

// FieldTypeError reports a payload field holding the wrong JSON type.
type FieldTypeError struct {
	Field string
	Want  string
	Value any
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("invalid field %s: expected %s, got %T", e.Field, e.Want, e.Value)
}

// PersistenceError reports a failed database operation. Op names the step:
// connect, begin, create table, insert, commit or query.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
