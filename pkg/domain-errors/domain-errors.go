package domainerrors

import "errors"

// Code represents a stable rejection category independent of transport layer.
// Clients branch on these codes, so renaming one is a breaking API change.
type Code string

const (
	// Tenant resolution.
	CodeTenantNotFound   Code = "TENANT_NOT_FOUND"
	CodeTenantInactive   Code = "TENANT_INACTIVE"
	CodeNoTenantContext  Code = "NO_TENANT_CONTEXT"
	CodeIPNotWhitelisted Code = "IP_NOT_WHITELISTED"

	// Authentication.
	CodeNoToken                Code = "NO_TOKEN"
	CodeInvalidToken           Code = "INVALID_TOKEN"
	CodeTenantMismatch         Code = "TENANT_MISMATCH"
	CodeUserNotFound           Code = "USER_NOT_FOUND"
	CodeUserInactive           Code = "USER_INACTIVE"
	CodeTenantAccessRestricted Code = "TENANT_ACCESS_RESTRICTED"
	CodeSessionInvalid         Code = "SESSION_INVALID"
	CodeNotAuthenticated       Code = "NOT_AUTHENTICATED"

	// Authorization.
	CodeForbidden         Code = "FORBIDDEN"
	CodePermissionDenied  Code = "PERMISSION_DENIED"
	CodeMFARequired       Code = "MFA_REQUIRED"
	CodeNotTenantAdmin    Code = "NOT_TENANT_ADMIN"
	CodeFeatureNotEnabled Code = "FEATURE_NOT_ENABLED"

	// Budgets.
	CodeRateLimitExceeded   Code = "RATE_LIMIT_EXCEEDED"
	CodeTenantLimitExceeded Code = "TENANT_LIMIT_EXCEEDED"

	// Generic.
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeValidation   Code = "VALIDATION_FAILED"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the code from a domain error, defaulting to CodeInternal
// so infrastructure failures never surface as policy rejections.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
