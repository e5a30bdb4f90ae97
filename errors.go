package monetdbe

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode is a stable short code identifying a class of failure.
type ErrorCode string

const (
	CodeUnsupportedType          ErrorCode = "UNSUPPORTED_TYPE"
	CodeConversionNotAllowed     ErrorCode = "CONVERSION_NOT_ALLOWED"
	CodeParameterIndexOutOfRange ErrorCode = "PARAMETER_INDEX_OUT_OF_RANGE"
	CodeIndexOutOfRange          ErrorCode = "INDEX_OUT_OF_RANGE"
	CodeInvalidLength            ErrorCode = "INVALID_LENGTH"
	CodeCursorClosed             ErrorCode = "CURSOR_CLOSED"
	CodeUnknownColumn            ErrorCode = "UNKNOWN_COLUMN"
	CodeBatchAborted             ErrorCode = "BATCH_ABORTED"
	CodeEngine                   ErrorCode = "ENGINE"
	CodeStatementClosed          ErrorCode = "STATEMENT_CLOSED"
	CodeNoResultSet              ErrorCode = "NO_RESULT_SET"
	CodeResultSetProduced        ErrorCode = "RESULT_SET_PRODUCED"
	CodeNotSupported             ErrorCode = "NOT_SUPPORTED"
	CodeLibraryLoad              ErrorCode = "LIBRARY_LOAD"
)

// SQLState values reported by this driver.
const (
	SQLStateNoData                = "02000" // No data found
	SQLStateRestrictedDataType    = "07006" // Restricted data type attribute violation
	SQLStateInvalidDescIndex      = "07009" // Invalid descriptor index
	SQLStateFeatureNotSupported   = "0A000" // Feature not supported
	SQLStateCardinalityViolation  = "21000" // Cardinality violation
	SQLStateInvalidCursorState    = "24000" // Invalid cursor state
	SQLStateColumnNotFound        = "42S22" // Column not found
	SQLStateSystemError           = "58000" // System error
	SQLStateGeneralError          = "HY000" // General error
	SQLStateFunctionSequenceError = "HY010" // Function sequence error
	SQLStateInvalidStringLength   = "HY090" // Invalid string or buffer length
)

var codeStates = map[ErrorCode]string{
	CodeUnsupportedType:          SQLStateFeatureNotSupported,
	CodeConversionNotAllowed:     SQLStateRestrictedDataType,
	CodeParameterIndexOutOfRange: SQLStateInvalidDescIndex,
	CodeIndexOutOfRange:          SQLStateInvalidDescIndex,
	CodeInvalidLength:            SQLStateInvalidStringLength,
	CodeCursorClosed:             SQLStateInvalidCursorState,
	CodeUnknownColumn:            SQLStateColumnNotFound,
	CodeBatchAborted:             SQLStateGeneralError,
	CodeEngine:                   SQLStateGeneralError,
	CodeStatementClosed:          SQLStateFunctionSequenceError,
	CodeNoResultSet:              SQLStateNoData,
	CodeResultSetProduced:        SQLStateCardinalityViolation,
	CodeNotSupported:             SQLStateFeatureNotSupported,
	CodeLibraryLoad:              SQLStateSystemError,
}

// Error is the error type returned by every operation in this package.
// Code is stable across releases and is what errors.Is compares.
type Error struct {
	Code     ErrorCode
	SQLState string
	Message  string

	cause error
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.SQLState, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for use with errors.Is.
var (
	ErrUnsupportedType          = &Error{Code: CodeUnsupportedType}
	ErrConversionNotAllowed     = &Error{Code: CodeConversionNotAllowed}
	ErrParameterIndexOutOfRange = &Error{Code: CodeParameterIndexOutOfRange}
	ErrIndexOutOfRange          = &Error{Code: CodeIndexOutOfRange}
	ErrInvalidLength            = &Error{Code: CodeInvalidLength}
	ErrCursorClosed             = &Error{Code: CodeCursorClosed}
	ErrUnknownColumn            = &Error{Code: CodeUnknownColumn}
	ErrBatchAborted             = &Error{Code: CodeBatchAborted}
	ErrEngine                   = &Error{Code: CodeEngine}
	ErrStatementClosed          = &Error{Code: CodeStatementClosed}
	ErrNoResultSet              = &Error{Code: CodeNoResultSet}
	ErrResultSetProduced        = &Error{Code: CodeResultSetProduced}
	ErrNotSupported             = &Error{Code: CodeNotSupported}
	ErrLibraryLoad              = &Error{Code: CodeLibraryLoad}
)

func newError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:     code,
		SQLState: codeStates[code],
		Message:  fmt.Sprintf(format, args...),
	}
}

// NewEngineError returns an error carrying a message reported by the
// native engine. The message is kept verbatim.
func NewEngineError(msg string) error {
	return errors.WithStack(&Error{
		Code:     CodeEngine,
		SQLState: SQLStateGeneralError,
		Message:  msg,
	})
}

func conversionError(from HostKind, to SQLType) *Error {
	return newError(CodeConversionNotAllowed, "conversion from %s to %s is not allowed", from, to)
}

// BatchError is returned when a batch stops before all of its entries ran.
// Counts holds the update counts of the entries that completed.
type BatchError struct {
	Counts []int64
	Err    error
}

// Error implements the error interface
func (e *BatchError) Error() string {
	return fmt.Sprintf("[%s] batch aborted after %d statement(s): %v",
		codeStates[CodeBatchAborted], len(e.Counts), e.Err)
}

// Unwrap exposes the cause so errors.Is(err, ErrBatchAborted) holds.
func (e *BatchError) Unwrap() []error {
	return []error{ErrBatchAborted, e.Err}
}

// Code returns the error code of err if it carries one, or "" otherwise.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var be *BatchError
	if errors.As(err, &be) {
		return CodeBatchAborted
	}
	return ""
}

// IsConversionError reports whether err is a rejected host-to-SQL conversion.
func IsConversionError(err error) bool {
	return errors.Is(err, ErrConversionNotAllowed)
}

// IsEngineError reports whether err was reported by the native engine.
func IsEngineError(err error) bool {
	return errors.Is(err, ErrEngine)
}
