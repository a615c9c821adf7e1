package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "article-reader/pkg/errors"
)

// writeJSON writes a JSON response (helper function)
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response (helper function)
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps a service error onto an HTTP response, using the
// typed error's status when available.
func writeServiceError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		writeError(w, appErr.StatusCode, appErr.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}
