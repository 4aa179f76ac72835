package timeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAuditNormalizesEventType(t *testing.T) {
	tests := []struct {
		eventType string
		want      string
	}{
		{"dog_created", "dog.created"},
		{"dog.created", "dog.created"},
		{"transport_status_changed", "transport.status.changed"},
		{"", "activity"},
		{"   ", "activity"},
	}

	for _, tt := range tests {
		item := FromAudit(AuditRecord{ID: "1", EventType: tt.eventType})
		assert.Equal(t, tt.want, item.Subtitle, "event type %q", tt.eventType)
	}
}

func TestFromAuditPrefixesID(t *testing.T) {
	item := FromAudit(AuditRecord{ID: "abc"})
	assert.Equal(t, "audit_abc", item.ID)
	assert.Equal(t, KindAudit, item.Kind)
}

func TestFromAuditSystemFlag(t *testing.T) {
	item := FromAudit(AuditRecord{ID: "1", Related: map[string]any{"system": true}})
	assert.True(t, item.System)

	item = FromAudit(AuditRecord{ID: "1", Related: map[string]any{"system": "yes"}})
	assert.False(t, item.System, "non-bool system flag must not count")

	item = FromAudit(AuditRecord{ID: "1"})
	assert.False(t, item.System)
}

func TestFromAuditTimestampNormalization(t *testing.T) {
	item := FromAudit(AuditRecord{ID: "1", CreatedAt: "2025-06-01T10:30:00+02:00"})
	assert.Equal(t, "2025-06-01T08:30:00Z", item.OccurredAt)
}

func TestFromAuditUnparseableTimestampKeptVerbatim(t *testing.T) {
	item := FromAudit(AuditRecord{ID: "1", CreatedAt: "not-a-date"})
	assert.Equal(t, "not-a-date", item.OccurredAt)
}

func TestFromSchedule(t *testing.T) {
	item := FromSchedule(ScheduleRecord{
		EventID:    "evt1",
		SourceType: "medical",
		Title:      "Vet visit",
		StartAt:    "2025-12-20T10:00:00Z",
		EndAt:      "2025-12-20T11:00:00Z",
		Status:     "scheduled",
		LinkType:   "dog",
		LinkID:     "dog_1",
	})

	assert.Equal(t, "sched_evt1", item.ID)
	assert.Equal(t, KindSchedule, item.Kind)
	assert.Equal(t, "medical · scheduled", item.Subtitle)
	require.Len(t, item.Details, 2)
	assert.Equal(t, Detail{Label: "when", Value: "Dec 20 10:00 → Dec 20 11:00"}, item.Details[0])
	assert.Equal(t, Detail{Label: "link", Value: "dog:dog_1"}, item.Details[1])
}

func TestFromScheduleNoStatusNoLink(t *testing.T) {
	item := FromSchedule(ScheduleRecord{
		EventID:    "evt1",
		SourceType: "general",
		StartAt:    "2025-12-20T10:00:00Z",
		EndAt:      "2025-12-20T11:00:00Z",
		LinkType:   "none",
		LinkID:     "x",
	})

	assert.Equal(t, "general", item.Subtitle)
	require.Len(t, item.Details, 1, "link_type none must not produce a link row")
}

func TestMergeSortsNewestFirst(t *testing.T) {
	items := []Item{
		{ID: "a", OccurredAt: "2025-01-01T00:00:00Z"},
		{ID: "c", OccurredAt: "2025-03-01T00:00:00Z"},
		{ID: "b", OccurredAt: "2025-02-01T00:00:00Z"},
	}

	merged := Merge(items)

	require.Len(t, merged, 3)
	assert.Equal(t, "c", merged[0].ID)
	assert.Equal(t, "b", merged[1].ID)
	assert.Equal(t, "a", merged[2].ID)
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	items := []Item{
		{ID: "a", OccurredAt: "2025-01-01T00:00:00Z"},
		{ID: "b", OccurredAt: "2025-02-01T00:00:00Z"},
	}

	Merge(items)

	assert.Equal(t, "a", items[0].ID, "input order must be untouched")
}

func TestMergeTiesKeepInputOrder(t *testing.T) {
	items := []Item{
		{ID: "first", OccurredAt: "2025-01-01T00:00:00Z"},
		{ID: "second", OccurredAt: "2025-01-01T00:00:00Z"},
		{ID: "third", OccurredAt: "2025-01-01T00:00:00Z"},
	}

	merged := Merge(items)

	assert.Equal(t, "first", merged[0].ID)
	assert.Equal(t, "second", merged[1].ID)
	assert.Equal(t, "third", merged[2].ID)
}

func TestMergeStrictDescendingProperty(t *testing.T) {
	var items []Item
	for i := 0; i < 50; i++ {
		items = append(items, Item{
			ID:         fmt.Sprintf("i%d", i),
			OccurredAt: fmt.Sprintf("2025-01-01T%02d:%02d:00Z", (i*7)%24, (i*13)%60),
		})
	}

	merged := Merge(items)

	for i := 1; i < len(merged); i++ {
		assert.GreaterOrEqual(t, merged[i-1].OccurredAt, merged[i].OccurredAt)
	}
}

func TestImportantFiltering(t *testing.T) {
	items := []Item{
		{ID: "1", Kind: KindAudit, Subtitle: "dog.created"},
		{ID: "2", Kind: KindAudit, Subtitle: "contact.updated"},
		{ID: "3", Kind: KindSchedule, Subtitle: "medical · scheduled"},
		{ID: "4", Kind: KindSchedule, Subtitle: "general · scheduled"},
	}

	filtered := FilterImportant(items)

	require.Len(t, filtered, 2)
	assert.Equal(t, "1", filtered[0].ID)
	assert.Equal(t, "3", filtered[1].ID)
}

func TestFilterKinds(t *testing.T) {
	items := []Item{
		{ID: "1", Kind: KindAudit},
		{ID: "2", Kind: KindSchedule},
	}

	onlyAudit := FilterKinds(items, true, false)
	require.Len(t, onlyAudit, 1)
	assert.Equal(t, "1", onlyAudit[0].ID)

	onlySchedule := FilterKinds(items, false, true)
	require.Len(t, onlySchedule, 1)
	assert.Equal(t, "2", onlySchedule[0].ID)

	assert.Len(t, FilterKinds(items, true, true), 2)
	assert.Empty(t, FilterKinds(items, false, false))
}
