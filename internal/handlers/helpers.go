package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// RequireMethod reports whether r uses one of the allowed methods. HEAD is
// accepted wherever GET is. Any other method gets a 405 with an Allow header.
func RequireMethod(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	for _, m := range allowed {
		if r.Method == m || (m == http.MethodGet && r.Method == http.MethodHead) {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

// WriteJSON encodes data as the response body with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
}

// apiError is the body of every JSON error response.
type apiError struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// WriteError writes an apiError with the given status.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, apiError{Status: "error", Error: message})
}
