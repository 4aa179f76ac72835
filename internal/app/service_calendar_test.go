package app

import (
	"encoding/json"
	"testing"
	"time"

	"rescueops/api/internal/reminders"
	"rescueops/api/internal/store"
)

func calendarTestEvent(meta string, offsets ...int) store.CalendarEvent {
	start := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	ev := store.CalendarEvent{
		ID:         "evt_1",
		OrgID:      "org-1",
		SourceType: "general",
		Title:      "Adoption day",
		StartAt:    start,
		EndAt:      start.Add(time.Hour),
	}
	if meta != "" {
		ev.Meta = json.RawMessage(meta)
	}
	for _, off := range offsets {
		ev.Reminders = append(ev.Reminders, store.EventReminder{EventID: ev.ID, OffsetMinutes: off})
	}
	return ev
}

func reminderKeys(ev store.CalendarEvent) []string {
	views := reminderViews(ev)
	keys := make([]string, 0, len(views))
	for _, v := range views {
		keys = append(keys, reminders.DeterministicID(toReminderEvent(ev), v))
	}
	return keys
}

func TestReminderKeysDistinctPerOffset(t *testing.T) {
	ev := calendarTestEvent(`{"deterministicKey":"upstream-key"}`, 30, 60)

	keys := reminderKeys(ev)
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
	if keys[0] == keys[1] {
		t.Fatalf("offsets must yield distinct keys, both were %q", keys[0])
	}
	for _, key := range keys {
		if key == "upstream-key" {
			t.Fatalf("event-level meta key must not apply to a multi-reminder event")
		}
	}
}

func TestReminderKeyFromMetaForSingleReminder(t *testing.T) {
	ev := calendarTestEvent(`{"deterministicKey":"upstream-key"}`, 60)

	keys := reminderKeys(ev)
	if len(keys) != 1 || keys[0] != "upstream-key" {
		t.Fatalf("expected the upstream key to win, got %v", keys)
	}
}

func TestReminderKeysFromMetaByOffset(t *testing.T) {
	ev := calendarTestEvent(`{"deterministicKeys":{"30":"k30","60":"k60"}}`, 30, 60)

	keys := reminderKeys(ev)
	if len(keys) != 2 || keys[0] != "k30" || keys[1] != "k60" {
		t.Fatalf("expected per-offset upstream keys, got %v", keys)
	}
}

func TestEventPayloadReminderFieldsAreCamelCase(t *testing.T) {
	svc := newTestService(&fakeStore{})
	payload := svc.eventPayload(calendarTestEvent("", 30, 60))

	items, _ := payload["reminders"].([]map[string]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 reminder entries, got %d", len(items))
	}
	seen := map[string]bool{}
	for _, item := range items {
		key, ok := item["deterministicKey"].(string)
		if !ok || key == "" {
			t.Fatalf("expected deterministicKey in %v", item)
		}
		if _, snake := item["deterministic_key"]; snake {
			t.Fatalf("unexpected snake_case key in %v", item)
		}
		seen[key] = true
	}
	if len(seen) != 2 {
		t.Fatalf("expected distinct keys per offset, got %v", seen)
	}
}
