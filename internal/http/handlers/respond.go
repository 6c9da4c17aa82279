// Package handlers holds the HTTP surface: request decoding, error mapping
// and the JSON envelope shared by every endpoint.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/trainerhub/trainerhub/internal/scheduling"
	"github.com/trainerhub/trainerhub/pkg/logging"
)

// envelope is the wire shape of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: message})
}

// writeDomainError maps domain error types onto status codes. Anything
// unrecognized is a storage or programming fault: logged and masked as 500.
func writeDomainError(w http.ResponseWriter, logger *logging.Logger, err error) {
	var policyErr *scheduling.PolicyError
	var conflictErr *scheduling.ConflictError
	var notFoundErr *scheduling.NotFoundError
	var validationErr *scheduling.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Reason)
	case errors.As(err, &policyErr):
		writeError(w, http.StatusForbidden, policyErr.Reason)
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &conflictErr):
		writeError(w, http.StatusConflict, conflictErr.Reason)
	default:
		if logger == nil {
			logger = logging.Default()
		}
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
