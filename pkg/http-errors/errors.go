package httpErrors

import (
	"net/http"

	dErrors "aureon/pkg/domain-errors"
)

// ToHTTPStatus maps stable rejection codes to HTTP statuses. The mapping
// follows the original API surface: resolution failures are 400, missing or
// bad credentials 401, policy rejections 403, budget rejections 429, and
// anything unrecognized falls back to 500 (fail closed, no detail leaked).
func ToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeTenantNotFound, dErrors.CodeNoTenantContext,
		dErrors.CodeInvalidInput, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeNoToken, dErrors.CodeInvalidToken, dErrors.CodeUserNotFound,
		dErrors.CodeSessionInvalid, dErrors.CodeNotAuthenticated:
		return http.StatusUnauthorized
	case dErrors.CodeTenantInactive, dErrors.CodeIPNotWhitelisted,
		dErrors.CodeTenantMismatch, dErrors.CodeUserInactive,
		dErrors.CodeTenantAccessRestricted, dErrors.CodeForbidden,
		dErrors.CodePermissionDenied, dErrors.CodeMFARequired,
		dErrors.CodeNotTenantAdmin, dErrors.CodeFeatureNotEnabled,
		dErrors.CodeTenantLimitExceeded:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
