// Package errors defines the stable error code system for ganban.
package errors

import (
	"errors"
	"fmt"
	"io"
)

// Code is a stable error code string.
type Code string

// Error codes. Stable public contract.
const (
	EUsage Code = "E_USAGE"

	// Repository and branch discovery
	ENoRepo      Code = "E_NO_REPO"
	ENoBoard     Code = "E_NO_BOARD"
	EBoardExists Code = "E_BOARD_EXISTS"

	// Object store access
	EObjectRead  Code = "E_OBJECT_READ"
	EObjectWrite Code = "E_OBJECT_WRITE"
	ERefUpdate   Code = "E_REF_UPDATE"

	// Concurrency
	EStaleBase Code = "E_STALE_BASE"

	// Synchronization
	ESyncConflict Code = "E_SYNC_CONFLICT"
	ERemote       Code = "E_REMOTE"

	// Lookup failures on the mutation contract
	ECardNotFound   Code = "E_CARD_NOT_FOUND"
	EColumnNotFound Code = "E_COLUMN_NOT_FOUND"
	EBadIdentifier  Code = "E_BAD_IDENTIFIER"

	// Tool prerequisites
	EGitNotInstalled Code = "E_GIT_NOT_INSTALLED"
	EInternal        Code = "E_INTERNAL"
)

// GanbanError is the standard error type for ganban errors.
type GanbanError struct {
	Code    Code
	Msg     string
	Cause   error
	Details map[string]string // optional structured context
}

// Error returns the stable error format: "CODE: message".
func (e *GanbanError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *GanbanError) Unwrap() error {
	return e.Cause
}

// New creates a new GanbanError with the given code and message.
func New(code Code, msg string) error {
	return &GanbanError{Code: code, Msg: msg}
}

// Newf creates a new GanbanError with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &GanbanError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a new GanbanError wrapping an underlying error.
func Wrap(code Code, msg string, err error) error {
	return &GanbanError{Code: code, Msg: msg, Cause: err}
}

// NewWithDetails creates a new GanbanError with structured details.
// Details map is defensively copied (nil if empty).
func NewWithDetails(code Code, msg string, details map[string]string) error {
	return &GanbanError{Code: code, Msg: msg, Details: copyDetails(details)}
}

// WrapWithDetails creates a new GanbanError wrapping an underlying error with details.
// Details map is defensively copied (nil if empty).
func WrapWithDetails(code Code, msg string, err error, details map[string]string) error {
	return &GanbanError{Code: code, Msg: msg, Cause: err, Details: copyDetails(details)}
}

// GetCode extracts the error code from an error, or empty string if not a GanbanError.
func GetCode(err error) Code {
	var ge *GanbanError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// HasCode reports whether err is or wraps a GanbanError with the given code.
func HasCode(err error, code Code) bool {
	return GetCode(err) == code
}

// AsGanbanError returns (*GanbanError, true) if err is or wraps a GanbanError.
func AsGanbanError(err error) (*GanbanError, bool) {
	var ge *GanbanError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

func copyDetails(details map[string]string) map[string]string {
	if len(details) == 0 {
		return nil
	}
	cp := make(map[string]string, len(details))
	for k, v := range details {
		cp[k] = v
	}
	return cp
}

// ExitCode returns the appropriate exit code for an error.
// Returns 0 if err is nil, 2 for E_USAGE, 1 for all other errors.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if GetCode(err) == EUsage {
		return 2
	}
	return 1
}

// Print writes the error to w in the stable stderr format:
//
//	error_code: <CODE>
//	<message>
func Print(w io.Writer, err error) {
	if err == nil {
		return
	}
	var ge *GanbanError
	if errors.As(err, &ge) {
		fmt.Fprintf(w, "error_code: %s\n", ge.Code)
		fmt.Fprintln(w, ge.Msg)
	} else {
		fmt.Fprintln(w, err.Error())
	}
}
