// Package local provides an in-process event bus for single-instance
// deployments. The memory and sqlite drivers have no relay worker, so
// in-process subscribers are the only event consumers in those modes.
package local

import (
	"context"
	"sync"

	"pantry-backend/application/ports"
	"pantry-backend/domain/events"

	"go.uber.org/zap"
)

// Bus fans events out to subscribers registered by event type. Dispatch is
// synchronous; handler errors are logged and never fail the publish.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]ports.EventHandler
	logger   *zap.Logger
}

// NewBus creates an empty in-process event bus
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]ports.EventHandler),
		logger:   logger,
	}
}

// Publish delivers a single event to every subscriber of its type
func (b *Bus) Publish(ctx context.Context, event events.DomainEvent) error {
	b.mu.RLock()
	handlers := b.handlers[event.GetEventType()]
	b.mu.RUnlock()

	for _, handler := range handlers {
		if !handler.CanHandle(event.GetEventType()) {
			continue
		}
		if err := handler.Handle(ctx, event); err != nil {
			b.logger.Warn("Event handler failed",
				zap.String("eventType", event.GetEventType()),
				zap.String("aggregateID", event.GetAggregateID()),
				zap.Error(err),
			)
		}
	}

	return nil
}

// PublishBatch delivers events in order
func (b *Bus) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		if err := b.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers a handler for an event type
func (b *Bus) Subscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Unsubscribe removes a previously registered handler
func (b *Bus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	registered := b.handlers[eventType]
	for i, h := range registered {
		if h == handler {
			b.handlers[eventType] = append(registered[:i], registered[i+1:]...)
			return nil
		}
	}
	return nil
}

var _ ports.EventBus = (*Bus)(nil)
