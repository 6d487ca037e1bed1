// Package errclass defines the stable, machine-readable error classes
// surfaced by the ito CLI.
package errclass

import "fmt"

// ItoError is a stable, machine-readable error class.
type ItoError struct {
	Code    string
	Message string
}

func (e *ItoError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on Code so that errors.Is works against the class sentinels.
func (e *ItoError) Is(target error) bool {
	t, ok := target.(*ItoError)
	return ok && e.Code == t.Code
}

// WithMessage returns a new ItoError with the same Code but a specific message.
func (e *ItoError) WithMessage(msg string) *ItoError {
	return &ItoError{Code: e.Code, Message: msg}
}

// WithMessagef returns a new ItoError with a formatted message.
func (e *ItoError) WithMessagef(format string, args ...any) *ItoError {
	return &ItoError{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrProjectNotFound   = &ItoError{Code: "E_PROJECT_NOT_FOUND"}
	ErrNameInvalid       = &ItoError{Code: "E_NAME_INVALID"}
	ErrEntityKindUnknown = &ItoError{Code: "E_ENTITY_KIND_UNKNOWN"}
	ErrEventInvalid      = &ItoError{Code: "E_EVENT_INVALID"}
	ErrAuditWrite        = &ItoError{Code: "E_AUDIT_WRITE"}
	ErrValidationFailed  = &ItoError{Code: "E_VALIDATION_FAILED"}
	ErrConfigKeyUnknown  = &ItoError{Code: "E_CONFIG_KEY_UNKNOWN"}
	ErrFormatUnsupported = &ItoError{Code: "E_FORMAT_UNSUPPORTED"}
)
