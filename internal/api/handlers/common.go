package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/janitarr/janitarr/internal/apperrors"
	"github.com/sirupsen/logrus"
)

// userHeader carries the acting user; absent means the configured default
const userHeader = "X-Janitarr-User"

// userID resolves the acting user for a request
func userID(r *http.Request, defaultUser string) string {
	if user := r.Header.Get(userHeader); user != "" {
		return user
	}
	return defaultUser
}

// respondJSON writes a JSON response with the given status
func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// respondError maps an error to its HTTP status and writes a JSON error
// body. Unclassified errors are logged and reported as a plain 500.
func respondError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	status := apperrors.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("Request failed")
		message = "internal server error"
	}
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON parses a request body, rejecting unknown fields
func decodeJSON(r *http.Request, into interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return apperrors.Wrap(apperrors.KindValidation, err, "invalid request body")
	}
	return nil
}
