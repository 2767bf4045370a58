package logger

import (
	"context"
	"errors"
	"log/slog"
)

// fanoutHandler delivers each record to every handler that accepts it.
type fanoutHandler struct {
	handlers []slog.Handler
}

var _ slog.Handler = (*fanoutHandler)(nil)

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error

	for _, h := range f.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}

		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}

	return &fanoutHandler{handlers: next}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}

	return &fanoutHandler{handlers: next}
}

// levelGate drops records below min before they reach inner.
type levelGate struct {
	inner slog.Handler
	min   slog.Level
}

func (g *levelGate) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= g.min && g.inner.Enabled(ctx, level)
}

func (g *levelGate) Handle(ctx context.Context, record slog.Record) error {
	return g.inner.Handle(ctx, record) //nolint:wrapcheck
}

func (g *levelGate) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelGate{inner: g.inner.WithAttrs(attrs), min: g.min}
}

func (g *levelGate) WithGroup(name string) slog.Handler {
	return &levelGate{inner: g.inner.WithGroup(name), min: g.min}
}
