// Package handlers contains the REST request handlers. Handlers only parse
// and validate transport concerns; all domain rules live in the services.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError translates service errors into HTTP responses.
func respondError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	apperrors.WriteHTTP(w, r, logger, err)
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperrors.NewInvalidArgumentError("invalid request body: " + err.Error())
	}
	return nil
}
