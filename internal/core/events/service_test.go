package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/we-be/vibe-chuck/internal/baas"
	"github.com/we-be/vibe-chuck/internal/baas/baastest"
)

func TestFromRecord(t *testing.T) {
	ev := FromRecord(baastest.Event("e1", "Spring Shootout", "2024-04-01 09:00:00.000Z"))
	assert.Equal(t, "e1", ev.ID)
	assert.Equal(t, "Spring Shootout", ev.DisplayName)
	assert.True(t, ev.Start.Equal(time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)))

	fallback := FromRecord(baas.Record{"id": "e2", "name": "Fallback"})
	assert.Equal(t, "Fallback", fallback.DisplayName)
	assert.True(t, fallback.Start.IsZero())

	bare := FromRecord(baas.Record{"id": "e3"})
	assert.Equal(t, "e3", bare.DisplayName)
}

func TestEvent_IsActive(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, Event{Start: now.Add(-time.Hour)}.IsActive(now))
	assert.True(t, Event{Start: now}.IsActive(now), "an event starting exactly now is active")
	assert.False(t, Event{Start: now.Add(time.Second)}.IsActive(now))
	assert.False(t, Event{}.IsActive(now), "no start time means never active")
}

func TestActiveEvents(t *testing.T) {
	backend := &baastest.MockBackend{
		GetFullListFunc: func(ctx context.Context, collection string, query baas.ListQuery) ([]baas.Record, error) {
			return []baas.Record{
				baastest.Event("future", "Future", "2030-01-01 00:00:00.000Z"),
				baastest.Event("recent", "Recent", "2024-05-01 00:00:00.000Z"),
				baastest.Event("old", "Old", "2023-01-01 00:00:00.000Z"),
				baastest.Event("unscheduled", "Unscheduled", ""),
			}, nil
		},
	}
	svc := NewEventService(backend)

	active, err := svc.ActiveEvents(context.Background(), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "recent", active[0].ID)
	assert.Equal(t, "old", active[1].ID)

	calls := backend.Calls("GetFullList")
	require.Len(t, calls, 1)
	assert.Equal(t, baas.CollectionEvents, calls[0].Collection)
	assert.Equal(t, "-start", calls[0].Query.Sort)
}

func TestGetEventList_BackendFailure(t *testing.T) {
	backend := &baastest.MockBackend{
		GetFullListFunc: func(ctx context.Context, collection string, query baas.ListQuery) ([]baas.Record, error) {
			return nil, baas.ErrUnavailable
		},
	}
	svc := NewEventService(backend)

	view := svc.GetEventList(context.Background())
	require.NotNil(t, view.Error)
	assert.NotNil(t, view.Events)
	assert.Empty(t, view.Events)

	_, err := svc.ListEvents(context.Background())
	assert.True(t, errors.Is(err, baas.ErrUnavailable))
}

func TestGetEventList(t *testing.T) {
	backend := &baastest.MockBackend{
		GetFullListFunc: func(ctx context.Context, collection string, query baas.ListQuery) ([]baas.Record, error) {
			return []baas.Record{baastest.Event("e1", "One", "2024-01-01 00:00:00.000Z")}, nil
		},
	}

	view := NewEventService(backend).GetEventList(context.Background())
	assert.Nil(t, view.Error)
	require.Len(t, view.Events, 1)
	assert.Equal(t, "One", view.Events[0].DisplayName)
}
