// Package mocklogger provides an slog.Handler test double that captures
// records in memory.
package mocklogger

import (
	"context"
	"log/slog"
	"sync"
)

type MockHandler struct {
	mu       sync.Mutex
	Messages []string
	Levels   []slog.Level
}

func (h *MockHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *MockHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Messages = append(h.Messages, r.Message)
	h.Levels = append(h.Levels, r.Level)
	return nil
}

func (h *MockHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *MockHandler) WithGroup(name string) slog.Handler {
	return h
}

// Captured returns a copy of the messages seen so far.
func (h *MockHandler) Captured() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.Messages))
	copy(out, h.Messages)
	return out
}

// NewMockLogger creates a logger backed by a fresh capturing handler.
func NewMockLogger() *slog.Logger {
	return slog.New(&MockHandler{})
}
