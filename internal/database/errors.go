package database

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/koustreak/pdo/internal/errs"
	"github.com/rs/zerolog"
)

// Generic SQLSTATE values used when a driver has no server-side state to report.
const (
	SQLStateGeneral = "HY000" // general error
	SQLStateTimeout = "HYT00" // timeout expired
	SQLStateNoData  = "02000" // no data
)

// Code is an error code that is either an integer or a string.
// The zero value is the integer 0.
type Code struct {
	num   int
	str   string
	isStr bool
}

// IntCode returns an integer Code.
func IntCode(n int) Code { return Code{num: n} }

// StringCode returns a string Code, typically a five character SQLSTATE.
func StringCode(s string) Code { return Code{str: s, isStr: true} }

// IsString reports whether the code holds a string.
func (c Code) IsString() bool { return c.isStr }

// Int returns the integer value and true, or 0 and false for string codes.
func (c Code) Int() (int, bool) {
	if c.isStr {
		return 0, false
	}
	return c.num, true
}

// Value returns the code as an int or a string.
func (c Code) Value() any {
	if c.isStr {
		return c.str
	}
	return c.num
}

// IsZero reports whether the code is the default integer 0.
func (c Code) IsZero() bool { return !c.isStr && c.num == 0 }

func (c Code) String() string {
	if c.isStr {
		return c.str
	}
	return strconv.Itoa(c.num)
}

// MarshalJSON encodes integer codes as numbers and string codes as strings.
func (c Code) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value())
}

// ErrorInfo is the ordered diagnostic payload of a DBError.
// By convention it holds [SQLSTATE, driver-specific code, driver-specific message].
type ErrorInfo []any

// SQLState returns the first element when it is a string.
func (i ErrorInfo) SQLState() string {
	if len(i) > 0 {
		if s, ok := i[0].(string); ok {
			return s
		}
	}
	return ""
}

// DriverCode returns the second element, or nil.
func (i ErrorInfo) DriverCode() any {
	if len(i) > 1 {
		return i[1]
	}
	return nil
}

// DriverMessage returns the third element when it is a string.
func (i ErrorInfo) DriverMessage() string {
	if len(i) > 2 {
		if s, ok := i[2].(string); ok {
			return s
		}
	}
	return ""
}

// DBError is the single error type returned by all database operations.
// Drivers translate their native errors into DBError before returning them.
//
// The code is fixed at construction. The error info starts out nil and may be
// attached once, by the operation that raises the error, before the error is
// returned to the caller.
type DBError struct {
	Kind    errs.ErrKind
	Message string
	Cause   error // original driver-level error, for logging/debugging

	code Code
	info ErrorInfo
}

// NewError creates a DBError. Pass Code{} for the default code 0.
func NewError(kind errs.ErrKind, code Code, msg string, cause error) *DBError {
	return &DBError{Kind: kind, Message: msg, Cause: cause, code: code}
}

// NewDriverError creates a DBError whose code is the SQLSTATE of info and
// whose error info is info. Drivers use it from their mapError functions.
func NewDriverError(kind errs.ErrKind, msg string, cause error, info ErrorInfo) *DBError {
	var code Code
	if state := info.SQLState(); state != "" {
		code = StringCode(state)
	}
	e := NewError(kind, code, msg, cause)
	if info != nil {
		e.info = slices.Clone(info)
	}
	return e
}

func (e *DBError) Error() string {
	msg := e.Message
	if e.code.IsString() {
		msg = fmt.Sprintf("SQLSTATE[%s]: %s", e.code, e.Message)
	} else if !e.code.IsZero() {
		msg = fmt.Sprintf("(%d) %s", e.code.num, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

func (e *DBError) Unwrap() error {
	return e.Cause
}

// ErrKind implements errs.Kinded.
func (e *DBError) ErrKind() errs.ErrKind {
	return e.Kind
}

// Code returns the code the error was constructed with.
func (e *DBError) Code() Code {
	return e.code
}

// ErrorInfo returns a copy of the attached error info, or nil if none was set.
func (e *DBError) ErrorInfo() ErrorInfo {
	if e.info == nil {
		return nil
	}
	return slices.Clone(e.info)
}

// SetErrorInfo attaches info to the error. It succeeds only once; later calls
// return an invalid_input error and keep the original value.
func (e *DBError) SetErrorInfo(info ErrorInfo) error {
	if e.info != nil {
		return errs.New(errs.ErrKindInvalidInput, "error info already set")
	}
	if info == nil {
		info = ErrorInfo{}
	}
	e.info = slices.Clone(info)
	return nil
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *DBError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("kind", e.Kind.String()).
		Interface("code", e.code.Value()).
		Str("message", e.Message)
	if e.info != nil {
		ev.Interface("error_info", []any(e.info))
	}
	if e.Cause != nil {
		ev.AnErr("cause", e.Cause)
	}
}

// --- Constructor helpers used inside the package ---

func errInvalidInput(msg string) *DBError {
	return NewError(errs.ErrKindInvalidInput, Code{}, msg, nil)
}

func errQuery(msg string, cause error) *DBError {
	return NewError(errs.ErrKindQueryFailed, Code{}, msg, cause)
}

// --- Public predicates for callers ---

// IsNotFound reports whether err represents a "no rows" result.
func IsNotFound(err error) bool { return errs.IsNotFound(err) }

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool { return errs.IsTimeout(err) }

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool { return errs.IsConnectionFailed(err) }

// IsQueryFailed reports whether err is a SQL execution error.
func IsQueryFailed(err error) bool { return errs.IsQueryFailed(err) }

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool { return errs.IsInvalidInput(err) }

// IsConflict reports whether err is a constraint violation.
func IsConflict(err error) bool { return errs.IsConflict(err) }
