package httpext

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/deepgram/catgpt/pkg/logger"
)

// ErrorResponse represents a standardised JSON error response
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// JsonError writes a JSON error response with the specified status code
func JsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		logger.Error(logger.HANDLER, "Failed to encode error response: %v", err)
	}
}

// JsonResponse writes v as a 200 JSON body
func JsonResponse(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error(logger.HANDLER, "Failed to encode response: %v", err)
		http.Error(w, "{\"error\":\"Internal Server Error\"}", http.StatusInternalServerError)
	}
}

// ErrorMessage extracts a human readable message from an error body returned
// by a backend. It understands our own ErrorResponse and FastAPI's
// {"detail": ...} shape and falls back to the trimmed raw body.
func ErrorMessage(body []byte) string {
	var parsed struct {
		Error  string      `json:"error"`
		Detail interface{} `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if s, ok := parsed.Detail.(string); ok && s != "" {
			return s
		}
		if parsed.Detail != nil {
			if b, err := json.Marshal(parsed.Detail); err == nil {
				return string(b)
			}
		}
	}
	return strings.TrimSpace(string(body))
}
