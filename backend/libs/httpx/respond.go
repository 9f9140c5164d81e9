package httpx

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apperrors "campusev/backend/libs/errors"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error APIError `json:"error"`
}

// APIError carries the machine readable code and a public message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON encodes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteRaw copies an already encoded JSON body.
func WriteRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_, _ = w.Write(body)
	}
}

// WriteMessage writes an error body for a code with a caller supplied message.
func WriteMessage(w http.ResponseWriter, code apperrors.Code, message string) {
	meta := apperrors.MetadataFor(code)
	WriteJSON(w, meta.HTTPStatus, ErrorBody{Error: APIError{Code: string(code), Message: message}})
}

// WriteError maps err onto its HTTP status. Server side failures are logged
// with their full chain and surfaced with the public message only.
func WriteError(w http.ResponseWriter, logger *zap.Logger, err error) {
	typed := apperrors.As(err)
	if typed == nil {
		typed = apperrors.Wrap(apperrors.CodeInternal, err, "unexpected error")
	}
	meta := apperrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if meta.ExposeMessage && typed.Message() != "" {
		msg = typed.Message()
	}

	body := ErrorBody{Error: APIError{Code: string(typed.Code()), Message: msg}}
	if meta.DetailsAllowed {
		body.Error.Details = typed.Details()
	}

	if logger != nil {
		fields := apperrors.Dump(err).Fields()
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Debug("request rejected", fields...)
		}
	}

	WriteJSON(w, meta.HTTPStatus, body)
}
