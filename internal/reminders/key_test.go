package reminders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicIDUpstreamKeyWins(t *testing.T) {
	ev := Event{EventID: "evt_1", SourceType: "medical", SourceID: "medrec_1"}
	r := Reminder{OffsetMinutes: 60, DeterministicKey: "upstream-key"}

	assert.Equal(t, "upstream-key", DeterministicID(ev, r))
}

func TestDeterministicIDComputedShape(t *testing.T) {
	start := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)
	ev := Event{
		EventID:    "evt_1",
		SourceType: "medical",
		SourceID:   "medrec_1",
		StartAt:    start,
	}
	r := Reminder{OffsetMinutes: 60, ScheduledAt: start.Add(-60 * time.Minute)}

	assert.Equal(t, "medical_medrec_1_2025-12-20_60", DeterministicID(ev, r))
}

func TestDeterministicIDStable(t *testing.T) {
	start := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)
	ev := Event{EventID: "evt_1", SourceType: "medical", SourceID: "medrec_1", StartAt: start}
	r := Reminder{OffsetMinutes: 60, ScheduledAt: start.Add(-time.Hour)}

	assert.Equal(t, DeterministicID(ev, r), DeterministicID(ev, r))
}

func TestDeterministicIDIgnoresEventIDWhenSourceIDSet(t *testing.T) {
	start := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)
	r := Reminder{OffsetMinutes: 60, ScheduledAt: start.Add(-time.Hour)}

	a := DeterministicID(Event{EventID: "evt_old", SourceType: "medical", SourceID: "medrec_1", StartAt: start}, r)
	b := DeterministicID(Event{EventID: "evt_regenerated", SourceType: "medical", SourceID: "medrec_1", StartAt: start}, r)

	assert.Equal(t, a, b, "changing only the event id must not change the key")
}

func TestDeterministicIDFallsBackToEventID(t *testing.T) {
	start := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)
	ev := Event{EventID: "evt_1", SourceType: "general", StartAt: start}

	assert.Equal(t, "general_evt_1_2025-12-20_30", DeterministicID(ev, Reminder{OffsetMinutes: 30, ScheduledAt: start.Add(-30 * time.Minute)}))
}

func TestDeterministicIDDateFromStartWhenNoScheduledAt(t *testing.T) {
	ev := Event{
		EventID:    "evt_1",
		SourceType: "transport",
		SourceID:   "tr_9",
		StartAt:    time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, "transport_tr_9_2026-01-05_0", DeterministicID(ev, Reminder{}))
}

func TestKeyOfLegacyFieldNames(t *testing.T) {
	tests := []struct {
		name string
		n    Notification
		want string
	}{
		{"direct key", Notification{Key: "k1"}, "k1"},
		{"deterministicKey", Notification{Data: map[string]string{"deterministicKey": "k2"}}, "k2"},
		{"deterministicId", Notification{Data: map[string]string{"deterministicId": "k3"}}, "k3"},
		{"reminderId", Notification{Data: map[string]string{"reminderId": "k4"}}, "k4"},
		{"precedence", Notification{Data: map[string]string{"reminderId": "low", "deterministicKey": "high"}}, "high"},
		{"nothing", Notification{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyOf(tt.n))
		})
	}
}
