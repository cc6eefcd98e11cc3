package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "aureon/pkg/domain-errors"
	httpErrors "aureon/pkg/http-errors"
)

func writeJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so encoding
	// errors are ignored; the headers are already sent.
	_ = json.NewEncoder(w).Encode(response)
}

// errorEnvelope is the rejection body every client sees. The code field is
// the stable contract; error and message are for humans.
type errorEnvelope struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// writeError translates a domain error into the JSON rejection envelope.
// Unrecognized errors surface as a generic 500 with no internal detail.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	message := ""

	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		code = domainErr.Code
		message = domainErr.Message
	}

	status := httpErrors.ToHTTPStatus(code)
	writeJSON(w, status, errorEnvelope{
		Error:   http.StatusText(status),
		Code:    string(code),
		Message: message,
	})
}

// decodeJSON decodes the request body into T and validates it when the type
// knows how. On failure the rejection is already written.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return nil, false
	}
	if v, ok := any(&req).(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			var domainErr *dErrors.Error
			if errors.As(err, &domainErr) {
				writeError(w, err)
			} else {
				writeError(w, dErrors.New(dErrors.CodeValidation, err.Error()))
			}
			return nil, false
		}
	}
	return &req, true
}
