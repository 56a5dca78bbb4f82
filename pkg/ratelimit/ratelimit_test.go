package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiterAllow(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(time.Minute, 2)
	l.now = func() time.Time { return current }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("Expected first two hits to be allowed")
	}
	if l.Allow("a") {
		t.Error("Expected third hit inside the window to be rejected")
	}
	if !l.Allow("b") {
		t.Error("Expected a different key to be allowed")
	}

	current = current.Add(61 * time.Second)
	if !l.Allow("a") {
		t.Error("Expected hit after the window to be allowed")
	}
}

func TestLimiterMiddleware(t *testing.T) {
	l := NewLimiter(time.Minute, 1)
	handler := l.Middleware(func(r *http.Request) string { return "global" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	)

	tests := []struct {
		name           string
		expectedStatus int
	}{
		{"first request passes", http.StatusNoContent},
		{"second request is limited", http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}
