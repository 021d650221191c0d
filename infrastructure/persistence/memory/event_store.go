package memory

import (
	"context"

	"pantry-backend/domain/events"
)

// EventStore implements ports.EventStore over the store's append-only log
type EventStore struct {
	store *Store
}

// NewEventStore creates an in-memory event store
func NewEventStore(store *Store) *EventStore {
	return &EventStore{store: store}
}

// SaveEvents appends domain events to the log
func (s *EventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	s.store.events = append(s.store.events, domainEvents...)
	return nil
}

// GetEvents retrieves events for an aggregate in append order
func (s *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	var out []events.DomainEvent
	for _, event := range s.store.events {
		if event.GetAggregateID() == aggregateID {
			out = append(out, event)
		}
	}
	return out, nil
}

// GetEventsByType retrieves the most recent events of one type
func (s *EventStore) GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	var out []events.DomainEvent
	for i := len(s.store.events) - 1; i >= 0; i-- {
		if s.store.events[i].GetEventType() != eventType {
			continue
		}
		out = append(out, s.store.events[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
