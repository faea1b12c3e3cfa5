package ecs

import (
	"fmt"
)

// ErrorCode classifies a non-fatal ECSError by the §7 error-kind table:
// configuration and logic-invariant violations are fatal (they panic
// instead of returning one of these), everything else is a value the
// caller can branch on.
type ErrorCode string

const (
	ErrCodeTransientLoadFailure  ErrorCode = "transient_load_failure"
	ErrCodeMalformedTransmission ErrorCode = "malformed_transmission"
	ErrCodeCapacity              ErrorCode = "capacity"
	ErrCodeNotFound              ErrorCode = "not_found"
)

// ECSError carries the context the teacher's error type records: the
// code, a message, and whichever of entity/component the failure concerns.
type ECSError struct {
	Code      ErrorCode
	Message   string
	Entity    EntityID
	Component ComponentType
}

func (e *ECSError) Error() string {
	if e.Entity != InvalidEntityID {
		return fmt.Sprintf("[%s] %s (entity=%d)", e.Code, e.Message, e.Entity)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *ECSError {
	return &ECSError{Code: code, Message: message}
}

func (e *ECSError) WithEntity(id EntityID) *ECSError {
	e.Entity = id
	return e
}

func (e *ECSError) WithComponent(t ComponentType) *ECSError {
	e.Component = t
	return e
}

// FatalConfigError panics with a programmer-error message. Configuration
// failures (duplicate registration, unknown type, missing factory) and
// logic-invariant violations (non-increasing unique ID into a store,
// cyclic parent link) are never recoverable, per §7, so they are raised
// this way rather than returned.
func FatalConfigError(format string, args ...interface{}) {
	panic(fmt.Sprintf("ecs: configuration error: "+format, args...))
}

// FatalInvariantError panics with an invariant-violation message.
func FatalInvariantError(format string, args ...interface{}) {
	panic(fmt.Sprintf("ecs: invariant violation: "+format, args...))
}
