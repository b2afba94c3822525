package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/medguard/internal/models"
	"github.com/ternarybob/medguard/internal/services/chat"
	"github.com/ternarybob/medguard/internal/services/consultation"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a standard success JSON response.
func WriteSuccess(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": message,
	})
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteServiceError maps pipeline and session errors onto HTTP status codes.
// Messages are the error text only; none of them carry document content.
func WriteServiceError(w http.ResponseWriter, err error) error {
	status := http.StatusInternalServerError
	switch {
	case models.IsExtractionFailure(err):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, consultation.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, consultation.ErrNoContext):
		status = http.StatusConflict
	case errors.Is(err, consultation.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, chat.ErrAssistantUnavailable):
		status = http.StatusServiceUnavailable
	}
	return WriteError(w, status, err.Error())
}

// PathSegments splits the path below prefix.
// "/api/consultations/ses_1/ask" with prefix "/api/consultations/" gives ["ses_1", "ask"].
func PathSegments(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

// GetLimitParam reads ?limit=N, falling back to def and capping at max
func GetLimitParam(r *http.Request, def, max int) int {
	limit := def
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}
