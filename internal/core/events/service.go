// Package events reads the events collection.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/we-be/vibe-chuck/internal/baas"
)

// Service defines the read operations on events
type Service interface {
	// ListEvents returns every event, most recent start first.
	ListEvents(ctx context.Context) ([]Event, error)

	// ActiveEvents returns the events that have started at now, most recent start first.
	ActiveEvents(ctx context.Context, now time.Time) ([]Event, error)

	// GetEventList builds the event list page. Backend failures are reported in
	// the view's error field.
	GetEventList(ctx context.Context) *ListView
}

type eventService struct {
	backend baas.Backend
}

// NewEventService creates a new event service
func NewEventService(backend baas.Backend) Service {
	return &eventService{backend: backend}
}

func (s *eventService) ListEvents(ctx context.Context) ([]Event, error) {
	records, err := s.backend.GetFullList(ctx, baas.CollectionEvents, baas.ListQuery{Sort: "-start"})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]Event, 0, len(records))
	for _, rec := range records {
		events = append(events, FromRecord(rec))
	}
	return events, nil
}

func (s *eventService) ActiveEvents(ctx context.Context, now time.Time) ([]Event, error) {
	all, err := s.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]Event, 0, len(all))
	for _, ev := range all {
		if ev.IsActive(now) {
			active = append(active, ev)
		}
	}
	return active, nil
}

func (s *eventService) GetEventList(ctx context.Context) *ListView {
	events, err := s.ListEvents(ctx)
	if err != nil {
		slog.Error("failed to load event list", "error", err)
		msg := "Failed to load events. Please try again later."
		return &ListView{Events: []Event{}, Error: &msg}
	}
	return &ListView{Events: events}
}
