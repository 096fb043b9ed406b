package events

import (
	"time"

	"github.com/we-be/vibe-chuck/internal/baas"
)

// Event is a voting round that posts are submitted to.
// Events are created and edited in the backend; this application only reads them.
type Event struct {
	Start       time.Time `json:"start"`
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
}

// FromRecord maps a raw events record.
// Display name precedence: displayName, then name, then the record id.
func FromRecord(rec baas.Record) Event {
	ev := Event{ID: rec.ID()}
	if name, ok := rec.String("displayName"); ok && name != "" {
		ev.DisplayName = name
	} else if name, ok := rec.String("name"); ok && name != "" {
		ev.DisplayName = name
	} else {
		ev.DisplayName = ev.ID
	}
	if start, ok := rec.Time("start"); ok {
		ev.Start = start
	}
	return ev
}

// IsActive reports whether the event has started at now.
// An event without a start time never becomes active.
func (e Event) IsActive(now time.Time) bool {
	return !e.Start.IsZero() && !e.Start.After(now)
}

// ListView is the view-model of the event list page.
type ListView struct {
	Error  *string `json:"error"`
	Events []Event `json:"events"`
}
