package httpext

import (
	"fmt"
	"net/http"
)

// StreamWriter writes chunks to a response and flushes after each one so the
// client sees them as they are produced.
type StreamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewStreamWriter sets the streaming headers and returns a writer, or an
// error when the ResponseWriter cannot flush.
func NewStreamWriter(w http.ResponseWriter, contentType string) (*StreamWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	return &StreamWriter{w: w, flusher: flusher}, nil
}

// WriteChunk writes s and flushes it.
func (s *StreamWriter) WriteChunk(chunk string) error {
	if _, err := s.w.Write([]byte(chunk)); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
