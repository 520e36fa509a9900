package querysql

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes compilation failures.
type ErrorCode string

const (
	// ErrCodeMissingField indicates a required request field is absent.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// ErrCodeWrongType indicates a request field has the wrong JSON type.
	ErrCodeWrongType ErrorCode = "WRONG_TYPE"

	// ErrCodeDisallowedQuery indicates the query keyword is not whitelisted.
	ErrCodeDisallowedQuery ErrorCode = "DISALLOWED_QUERY"

	// ErrCodeDisallowedTable indicates the table is not whitelisted.
	ErrCodeDisallowedTable ErrorCode = "DISALLOWED_TABLE"

	// ErrCodeDisallowedItem indicates a select item (or aggregate argument) is not whitelisted.
	ErrCodeDisallowedItem ErrorCode = "DISALLOWED_ITEM"

	// ErrCodeDisallowedConnection indicates the connection keyword is not whitelisted.
	ErrCodeDisallowedConnection ErrorCode = "DISALLOWED_CONNECTION"

	// ErrCodeDisallowedColumn indicates a logic node references an undeclared column.
	ErrCodeDisallowedColumn ErrorCode = "DISALLOWED_COLUMN"

	// ErrCodeInvalidComparator indicates an unknown comparison operator.
	ErrCodeInvalidComparator ErrorCode = "INVALID_COMPARATOR"

	// ErrCodeInvalidComparisonValue indicates an operand that does not fit
	// the column's kind or the comparator's arity.
	ErrCodeInvalidComparisonValue ErrorCode = "INVALID_COMPARISON_VALUE"

	// ErrCodeInvalidLogicShape indicates an empty node, a multi-key node,
	// a connector with fewer than two children, or excessive nesting.
	ErrCodeInvalidLogicShape ErrorCode = "INVALID_LOGIC_SHAPE"

	// ErrCodeInternal indicates a comparator that passed validation but has
	// no compilation rule. Reaching it is a bug in this package.
	ErrCodeInternal ErrorCode = "INTERNAL_COMPILER_INCONSISTENCY"
)

// ReasonNothingToCompute is the message for an empty logic object.
const ReasonNothingToCompute = "nothing to compute"

// CompileError is a rejected request.
//
// Message names the offending field, identifier or comparator and never
// echoes bound literal values, so it is safe to return to the caller.
type CompileError struct {
	Code    ErrorCode
	Message string

	// Err is the inner failure when this error wraps one (logic failures
	// are wrapped by the query compiler).
	Err error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, format string, args ...any) *CompileError {
	return &CompileError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the ErrorCode of err, or "" if err is not a CompileError.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsCode reports whether err is a CompileError with the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// Reason returns the caller-facing failure reason: the CompileError message,
// or err.Error() for any other error.
func Reason(err error) string {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
