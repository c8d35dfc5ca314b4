package utils

import (
	"encoding/json"
	"log"
	"net/http"

	"rentledger-backend/internal/apperrors"
)

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}

// ErrorResponse is the uniform error payload
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error writes an error response with the status derived from the error
// taxonomy: not-found 404, validation 400, quota 507, storage down 503,
// anything else 500.
func Error(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[HTTP] %d: %v", status, err)
	}
	JSON(w, status, ErrorResponse{Error: err.Error()})
}

// ErrorWithStatus writes an error response with an explicit status code,
// for cases the taxonomy doesn't cover (401, 403, 405).
func ErrorWithStatus(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// Message writes a simple confirmation payload
func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"message": message})
}
