// Package httputil centralizes JSON response envelopes and domain error
// translation so every handler returns consistent bodies and status codes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "civicdesk/pkg/domain-errors"
)

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:   http.StatusBadRequest,
	dErrors.CodeValidation:   http.StatusBadRequest,
	dErrors.CodeNotFound:     http.StatusNotFound,
	dErrors.CodeConflict:     http.StatusConflict,
	dErrors.CodeGone:         http.StatusGone,
	dErrors.CodeUnauthorized: http.StatusUnauthorized,
	dErrors.CodeForbidden:    http.StatusForbidden,
	dErrors.CodeInternal:     http.StatusInternalServerError,
}

// ToHTTPStatus maps a domain error code to its HTTP status.
func ToHTTPStatus(code dErrors.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into the standard error envelope. Internal errors
// omit the description so store details never leak to clients. Structured
// details (e.g. archived_at on a gone response) are merged into the body.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]any{"error": string(code)}

	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) && de.Message != "" {
			body["error_description"] = de.Message
		}
		for k, v := range dErrors.DetailsOf(err) {
			body[k] = v
		}
	}

	WriteJSON(w, ToHTTPStatus(code), body)
}
