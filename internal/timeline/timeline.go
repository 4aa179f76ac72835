// Package timeline normalizes audit records and calendar records into a
// single feed shape and merges them into reverse-chronological order.
package timeline

import (
	"log"
	"sort"
	"strings"
	"time"
)

// Kind identifies which source space a feed item came from.
type Kind string

const (
	KindAudit    Kind = "audit"
	KindSchedule Kind = "schedule"
)

// Detail is one expandable label/value row under a feed item.
type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Item is a single feed entry. Items are built fresh on every fetch and
// never persisted.
type Item struct {
	ID         string   `json:"id"`
	Kind       Kind     `json:"kind"`
	OccurredAt string   `json:"occurredAt"`
	Title      string   `json:"title"`
	Subtitle   string   `json:"subtitle"`
	System     bool     `json:"system"`
	Details    []Detail `json:"details"`
}

// AuditRecord is the upstream audit/activity shape fed into normalization.
// Payload and Related are the decoded JSON documents.
type AuditRecord struct {
	ID         string
	CreatedAt  string
	EntityType string
	EventType  string
	Summary    string
	Payload    map[string]any
	Related    map[string]any
}

// ScheduleRecord is the upstream calendar shape fed into normalization.
type ScheduleRecord struct {
	EventID    string
	SourceType string
	Title      string
	StartAt    string
	EndAt      string
	Status     string
	LinkType   string
	LinkID     string
}

// FromAudit converts one audit record into a feed item.
func FromAudit(rec AuditRecord) Item {
	system := false
	if rec.Related != nil {
		if v, ok := rec.Related["system"]; ok {
			b, isBool := v.(bool)
			system = isBool && b
		}
	}

	return Item{
		ID:         "audit_" + rec.ID,
		Kind:       KindAudit,
		OccurredAt: normalizeTimestamp(rec.CreatedAt),
		Title:      rec.Summary,
		Subtitle:   normalizeEventType(rec.EventType),
		System:     system,
		Details:    DetailRows(rec.EntityType, rec.Payload),
	}
}

// FromSchedule converts one calendar record into a feed item.
func FromSchedule(rec ScheduleRecord) Item {
	subtitle := rec.SourceType
	if rec.Status != "" {
		subtitle = rec.SourceType + " · " + rec.Status
	}

	details := []Detail{
		{Label: "when", Value: shortTime(rec.StartAt) + " → " + shortTime(rec.EndAt)},
	}
	if rec.LinkType != "" && rec.LinkType != "none" && rec.LinkID != "" {
		details = append(details, Detail{Label: "link", Value: rec.LinkType + ":" + rec.LinkID})
	}

	return Item{
		ID:         "sched_" + rec.EventID,
		Kind:       KindSchedule,
		OccurredAt: normalizeTimestamp(rec.StartAt),
		Title:      rec.Title,
		Subtitle:   subtitle,
		Details:    details,
	}
}

// Merge returns a new slice sorted newest-first by OccurredAt using plain
// lexicographic comparison, valid because normalized timestamps share one
// fixed-offset ISO-8601 form. Equal timestamps keep their input order.
func Merge(items []Item) []Item {
	merged := make([]Item, len(items))
	copy(merged, items)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].OccurredAt > merged[j].OccurredAt
	})
	return merged
}

// importantAuditTypes lists the high-signal audit event types that survive
// "important" filtering.
var importantAuditTypes = map[string]bool{
	"dog.created":        true,
	"dog.updated":        true,
	"dog.stage_changed":  true,
	"dog.deleted":        true,
	"transport.created":  true,
	"transport.updated":  true,
	"transport.deleted":  true,
	"attachment.created": true,
	"attachment.deleted": true,
}

// importantScheduleSources lists the calendar source types that survive
// "important" filtering.
var importantScheduleSources = map[string]bool{
	"medical":    true,
	"transport":  true,
	"quarantine": true,
}

// Important reports whether an item survives the "important" feed mode.
func Important(item Item) bool {
	switch item.Kind {
	case KindAudit:
		return importantAuditTypes[item.Subtitle]
	case KindSchedule:
		source, _, _ := strings.Cut(item.Subtitle, " · ")
		return importantScheduleSources[source]
	}
	return false
}

// FilterImportant keeps only items that pass Important.
func FilterImportant(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if Important(item) {
			out = append(out, item)
		}
	}
	return out
}

// FilterKinds applies the per-kind visibility toggles.
func FilterKinds(items []Item, showAudit, showSchedule bool) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Kind == KindAudit && !showAudit {
			continue
		}
		if item.Kind == KindSchedule && !showSchedule {
			continue
		}
		out = append(out, item)
	}
	return out
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// normalizeTimestamp coerces an upstream timestamp string into RFC 3339 UTC.
// Unparseable input is returned unchanged with a warning; a garbage timestamp
// then sorts lexicographically among the valid ones, which is tolerated
// rather than treated as a hard error.
func normalizeTimestamp(raw string) string {
	s := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	if s != "" {
		log.Printf("timeline: unparseable timestamp %q kept as-is", raw)
	}
	return raw
}

// normalizeEventType maps legacy underscore-delimited event types onto the
// dotted form. Types that already contain a dot pass through, blank types
// become "activity".
func normalizeEventType(eventType string) string {
	t := strings.TrimSpace(eventType)
	if t == "" {
		return "activity"
	}
	if strings.Contains(t, ".") {
		return t
	}
	return strings.ReplaceAll(t, "_", ".")
}

func shortTime(raw string) string {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return t.UTC().Format("Jan 2 15:04")
		}
	}
	return raw
}
