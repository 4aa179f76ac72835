package app

import (
	"context"
	"time"

	"rescueops/api/internal/rbac"
	"rescueops/api/internal/reminders"
)

// eventSource feeds the reconciler from the live calendar window.
type eventSource struct {
	s *Service
}

func (es eventSource) ListUpcomingEvents(ctx context.Context, orgID string, from, to time.Time) ([]reminders.Event, error) {
	events, err := es.s.calendarWindow(ctx, orgID, CalendarWindow{From: from, To: to})
	if err != nil {
		return nil, err
	}
	out := make([]reminders.Event, 0, len(events))
	for _, ev := range events {
		if len(ev.Reminders) == 0 {
			continue
		}
		rev := toReminderEvent(ev)
		rev.Reminders = reminderViews(ev)
		out = append(out, rev)
	}
	return out, nil
}

// optInSource answers the reconciler's permission gate from the caller's
// membership toggle.
type optInSource struct {
	s *Service
}

func (o optInSource) NotificationsOptedIn(ctx context.Context, orgID, userID string) (bool, error) {
	member, err := o.s.store.GetMembership(ctx, orgID, userID)
	if err != nil {
		return false, err
	}
	return member.NotifyEnabled, nil
}

// memberSource lists reminder recipients for the dispatcher.
type memberSource struct {
	s *Service
}

func (ms memberSource) ListNotifiableMembers(ctx context.Context, orgID string) ([]reminders.Recipient, error) {
	members, err := ms.s.store.ListMemberships(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out := make([]reminders.Recipient, 0, len(members))
	for _, m := range members {
		if !m.NotifyEnabled || m.Email == "" {
			continue
		}
		out = append(out, reminders.Recipient{Email: m.Email, DisplayName: m.DisplayName})
	}
	return out, nil
}

// DispatcherMemberSource exposes the recipient lookup for main wiring.
func (s *Service) DispatcherMemberSource() reminders.MemberSource {
	return memberSource{s}
}

// SyncReminders runs an on-demand reconciliation for the caller.
func (s *Service) SyncReminders(ctx context.Context, orgID string, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}
	result := s.reconciler.Sync(ctx, orgID, session.UserID)
	return reminderResultPayload(result), nil
}

// ReminderStatus reports the last reconciliation outcome.
func (s *Service) ReminderStatus(ctx context.Context, orgID string, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}
	state, last := s.reconciler.Status()
	payload := reminderResultPayload(last)
	payload["state"] = string(state)
	return payload, nil
}

func reminderResultPayload(result reminders.Result) map[string]any {
	payload := map[string]any{
		"state":      string(result.State),
		"message":    result.Message,
		"windowDays": result.WindowDays,
		"scheduled":  result.Scheduled,
		"canceled":   result.Canceled,
	}
	if !result.SyncedAt.IsZero() {
		payload["syncedAt"] = result.SyncedAt.UTC().Format(time.RFC3339)
	}
	return payload
}
