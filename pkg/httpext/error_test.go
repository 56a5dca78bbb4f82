package httpext

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJsonError(t *testing.T) {
	tests := []struct {
		name           string
		message        string
		code           int
		expectedStatus int
	}{
		{
			name:           "Basic error",
			message:        "Something went wrong",
			code:           http.StatusBadRequest,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Internal server error",
			message:        "Internal error",
			code:           http.StatusInternalServerError,
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			JsonError(w, tt.message, tt.code)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status code %d, got %d", tt.expectedStatus, w.Code)
			}

			if w.Header().Get("Content-Type") != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %s", w.Header().Get("Content-Type"))
			}

			var response ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response body: %v", err)
			}

			if response.Error != tt.message {
				t.Errorf("Expected error message %q, got %q", tt.message, response.Error)
			}
		})
	}
}

func TestJsonResponse(t *testing.T) {
	w := httptest.NewRecorder()
	JsonResponse(w, map[string]string{"content": "meow"})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	if body["content"] != "meow" {
		t.Errorf("Expected content %q, got %q", "meow", body["content"])
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"Own error shape", `{"error":"bad input"}`, "bad input"},
		{"FastAPI string detail", `{"detail":"session_id cannot be empty"}`, "session_id cannot be empty"},
		{"FastAPI structured detail", `{"detail":[{"loc":["body"]}]}`, `[{"loc":["body"]}]`},
		{"Plain text", "  upstream timeout\n", "upstream timeout"},
		{"Empty body", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorMessage([]byte(tt.body)); got != tt.want {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStreamWriter(t *testing.T) {
	w := httptest.NewRecorder()

	sw, err := NewStreamWriter(w, "text/event-stream")
	if err != nil {
		t.Fatalf("NewStreamWriter() error = %v", err)
	}
	if err := sw.WriteChunk("data: a\n\n"); err != nil {
		t.Fatalf("WriteChunk() error = %v", err)
	}
	if err := sw.WriteChunk("data: b\n\n"); err != nil {
		t.Fatalf("WriteChunk() error = %v", err)
	}

	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}
	if !w.Flushed {
		t.Error("Expected recorder to be flushed")
	}
	if got := w.Body.String(); got != "data: a\n\ndata: b\n\n" {
		t.Errorf("body = %q", got)
	}
}
