package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abaranti/abaranti/internal/platform/pending"
)

var (
	// ErrValidation is matched by every *FieldError.
	ErrValidation = errors.New("validation failed")
	// ErrMissingPendingChange means the confirm step was reached with
	// nothing staged for this session; the user restarts at the input step.
	ErrMissingPendingChange = errors.New("no pending change to confirm")
	// ErrStalePendingChange means the confirm form refers to a change that
	// has since been replaced by a newer submission.
	ErrStalePendingChange = errors.New("pending change was replaced by a newer submission")
	// ErrModeNotSupported is returned when a definition is used in a mode
	// it has no editable fields for.
	ErrModeNotSupported = errors.New("operation mode not supported")
)

// Code classifies a FieldError for templates and tests.
type Code string

const (
	CodeRequired         Code = "required"
	CodeTooShort         Code = "too_short"
	CodeTooLong          Code = "too_long"
	CodeInvalidFormat    Code = "invalid_format"
	CodeInvalidNumber    Code = "invalid_number"
	CodeOutOfRange       Code = "out_of_range"
	CodeInvalidChoice    Code = "invalid_choice"
	CodeInvalidDate      Code = "invalid_date"
	CodeUnknownReference Code = "unknown_reference"
)

// FieldError is a single-field validation failure.
type FieldError struct {
	Field   string
	Code    Code
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrValidation
}

// FieldMismatch reports a confirmation field that differs from its primary.
type FieldMismatch struct {
	Field        string
	ConfirmField string
	Message      string
}

func (e *FieldMismatch) Error() string {
	return fmt.Sprintf("%s and %s do not match", e.Field, e.ConfirmField)
}

// DuplicateKey reports an identifier that is already registered.
type DuplicateKey struct {
	Field   string
	Value   string
	Message string
}

func (e *DuplicateKey) Error() string {
	return fmt.Sprintf("%s %q is already registered", e.Field, e.Value)
}

// PersistenceFailure wraps a commit error. The pending change is kept so the
// user can retry from the confirm page.
type PersistenceFailure struct {
	Kind pending.Kind
	Err  error
}

func (e *PersistenceFailure) Error() string {
	return fmt.Sprintf("commit %s: %v", e.Kind, e.Err)
}

func (e *PersistenceFailure) Unwrap() error {
	return e.Err
}

// ValidationErrors collects every problem found in one submission.
type ValidationErrors []error

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, err := range v {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) Unwrap() []error {
	return v
}

// ByField maps form field names to the message to show beside them.
// Errors not tied to a field are returned under the empty key.
func (v ValidationErrors) ByField() map[string]string {
	out := make(map[string]string, len(v))
	for _, err := range v {
		name, msg := fieldMessage(err)
		if _, taken := out[name]; !taken {
			out[name] = msg
		}
	}
	return out
}

// AsValidationErrors normalizes any user-correctable stage error into a
// ValidationErrors value. ok is false for infrastructure errors.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve, true
	}
	var fe *FieldError
	var fm *FieldMismatch
	var dk *DuplicateKey
	if errors.As(err, &fe) || errors.As(err, &fm) || errors.As(err, &dk) {
		return ValidationErrors{err}, true
	}
	return nil, false
}

func fieldMessage(err error) (string, string) {
	var fe *FieldError
	var fm *FieldMismatch
	var dk *DuplicateKey
	switch {
	case errors.As(err, &fe):
		return fe.Field, fe.Message
	case errors.As(err, &fm):
		msg := fm.Message
		if msg == "" {
			msg = fm.Error()
		}
		return fm.ConfirmField, msg
	case errors.As(err, &dk):
		msg := dk.Message
		if msg == "" {
			msg = dk.Error()
		}
		return dk.Field, msg
	default:
		return "", err.Error()
	}
}
