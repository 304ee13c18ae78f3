package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/miyog/miyog-engine/internal/redact"
)

// InMemoryEventEmitter dispatches events synchronously to the handlers
// registered in this process.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []EventHandler
	logger   *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter returns an emitter with no handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With(slog.String("component", "event_emitter")),
	}
}

// RegisterHandler adds h to the dispatch list.
func (e *InMemoryEventEmitter) RegisterHandler(h EventHandler) {
	e.mu.Lock()
	e.handlers = append(e.handlers, h)
	n := len(e.handlers)
	e.mu.Unlock()
	e.logger.Debug("event handler registered", slog.Int("handlers", n))
}

// EmitEvent hands event to every handler, even after one fails, and returns
// the joined handler errors.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *TaskRequestEvent) error {
	e.mu.RLock()
	handlers := append([]EventHandler(nil), e.handlers...)
	e.mu.RUnlock()

	log := e.logger.With(
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type),
	)
	if len(handlers) == 0 {
		log.Warn("event dropped: no handlers registered")
		return nil
	}

	var errs []error
	for i, h := range handlers {
		if err := h.HandleEvent(ctx, event); err != nil {
			log.Error("event handler failed",
				slog.Int("handler", i),
				slog.String("error", redact.Error(err)))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
