package logging

import (
	"context"
	"log/slog"
)

// teeHandler fans records out to several handlers. A failing handler does
// not stop the others.
type teeHandler struct {
	handlers []slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			_ = handler.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.each(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return h.each(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (h *teeHandler) each(fn func(slog.Handler) slog.Handler) *teeHandler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, s := range h.handlers {
		handlers[i] = fn(s)
	}
	return &teeHandler{handlers: handlers}
}
