// Package reminders computes deterministic reminder keys and reconciles the
// desired reminder set for a rolling window against what is already scheduled.
package reminders

import (
	"fmt"
	"time"
)

// Event is one calendar occurrence carrying reminders.
type Event struct {
	EventID    string
	OrgID      string
	SourceType string
	SourceID   string // empty when the event has no originating domain record
	Title      string
	Location   string
	StartAt    time.Time
	Reminders  []Reminder
}

// Reminder is one lead-time entry attached to an event.
type Reminder struct {
	OffsetMinutes    int
	ScheduledAt      time.Time // StartAt minus the offset
	DeterministicKey string    // authoritative when the upstream supplies it
}

// DeterministicID returns the idempotency key for an (event, reminder) pair.
// It is pure and total: the same inputs always yield the same string.
//
// SourceID wins over EventID when present because a domain record id survives
// regeneration of the synthetic calendar event, so a format change upstream
// cannot double-schedule reminders.
func DeterministicID(ev Event, r Reminder) string {
	if r.DeterministicKey != "" {
		return r.DeterministicKey
	}

	src := ev.SourceID
	if src == "" {
		src = ev.EventID
	}

	at := r.ScheduledAt
	if at.IsZero() {
		at = ev.StartAt
	}

	return fmt.Sprintf("%s_%s_%s_%d", ev.SourceType, src, at.Format("2006-01-02"), r.OffsetMinutes)
}
