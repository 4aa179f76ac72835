package app

import (
	"context"
	"encoding/json"
	"time"

	"rescueops/api/internal/rbac"
	"rescueops/api/internal/store"
	"rescueops/api/internal/timeline"
)

type FeedOptions struct {
	Mode         string // "important" (default) or "all"
	ShowAudit    bool
	ShowSchedule bool
	Limit        int
}

// DogTimeline merges the dog's audit trail with its calendar events into one
// reverse-chronological feed.
func (s *Service) DogTimeline(ctx context.Context, orgID, dogID string, opts FeedOptions, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}
	if _, err := s.store.GetDog(ctx, orgID, dogID); err != nil {
		return nil, err
	}

	var items []timeline.Item

	if opts.ShowAudit {
		auditEvents, err := s.store.ListAuditEvents(ctx, orgID, store.AuditFilter{
			EntityID: dogID,
			Limit:    opts.Limit,
		})
		if err != nil {
			return nil, err
		}
		for _, ev := range auditEvents {
			items = append(items, timeline.FromAudit(toAuditRecord(ev)))
		}
	}

	if opts.ShowSchedule {
		now := time.Now()
		window := CalendarWindow{From: now.AddDate(-1, 0, 0), To: now.AddDate(0, 3, 0), DogID: dogID}
		events, err := s.calendarWindow(ctx, orgID, window)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			items = append(items, timeline.FromSchedule(toScheduleRecord(ev)))
		}
	}

	merged := timeline.Merge(items)
	if opts.Mode != "all" {
		merged = timeline.FilterImportant(merged)
	}
	merged = timeline.FilterKinds(merged, opts.ShowAudit, opts.ShowSchedule)
	if opts.Limit > 0 && len(merged) > opts.Limit {
		merged = merged[:opts.Limit]
	}

	return map[string]any{"items": merged}, nil
}

// OrgFeed is the org-wide activity feed: recent audit events across every
// entity, normalized the same way as the dog timeline.
func (s *Service) OrgFeed(ctx context.Context, orgID string, opts FeedOptions, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}

	auditEvents, err := s.store.ListAuditEvents(ctx, orgID, store.AuditFilter{Limit: opts.Limit})
	if err != nil {
		return nil, err
	}

	items := make([]timeline.Item, 0, len(auditEvents))
	for _, ev := range auditEvents {
		items = append(items, timeline.FromAudit(toAuditRecord(ev)))
	}

	merged := timeline.Merge(items)
	if opts.Mode != "all" {
		merged = timeline.FilterImportant(merged)
	}
	if opts.Limit > 0 && len(merged) > opts.Limit {
		merged = merged[:opts.Limit]
	}

	return map[string]any{"items": merged}, nil
}

func toAuditRecord(ev store.AuditEvent) timeline.AuditRecord {
	return timeline.AuditRecord{
		ID:         ev.ID,
		CreatedAt:  ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		EntityType: ev.EntityType,
		EventType:  ev.EventType,
		Summary:    ev.Summary,
		Payload:    decodeJSONObject(ev.Payload),
		Related:    decodeJSONObject(ev.Related),
	}
}

func toScheduleRecord(ev store.CalendarEvent) timeline.ScheduleRecord {
	return timeline.ScheduleRecord{
		EventID:    ev.ID,
		SourceType: ev.SourceType,
		Title:      ev.Title,
		StartAt:    ev.StartAt.UTC().Format(time.RFC3339),
		EndAt:      ev.EndAt.UTC().Format(time.RFC3339),
		Status:     ev.Status,
		LinkType:   ev.LinkType,
		LinkID:     ev.LinkID,
	}
}

func decodeJSONObject(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
