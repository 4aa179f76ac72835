package app

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"rescueops/api/internal/rbac"
	"rescueops/api/internal/reminders"
	"rescueops/api/internal/store"
	"rescueops/api/internal/util"
)

// quarantineDays is the standard intake quarantine period; the quarantine-end
// calendar event is synthesized from intake_at plus this.
const quarantineDays = 14

// defaultSyntheticOffset is the reminder offset attached to synthesized
// medical and transport events.
const defaultSyntheticOffset = 60

// storedSourceTypes are the source types callers may create directly. The
// medical, transport and quarantine types are reserved for synthesis.
var storedSourceTypes = map[string]bool{
	"general":     true,
	"task":        true,
	"finance":     true,
	"external":    true,
	"system_task": true,
}

type CalendarEventInput struct {
	SourceType     string         `json:"sourceType"`
	Title          string         `json:"title"`
	StartAt        time.Time      `json:"startAt"`
	EndAt          time.Time      `json:"endAt"`
	Location       string         `json:"location"`
	Status         string         `json:"status"`
	LinkType       string         `json:"linkType"`
	LinkID         string         `json:"linkId"`
	Visibility     string         `json:"visibility"`
	RecurrenceRule string         `json:"recurrenceRule"`
	Meta           map[string]any `json:"meta"`
	Reminders      []int          `json:"reminders"`
}

type CalendarWindow struct {
	From        time.Time
	To          time.Time
	SourceTypes []string // empty = all
	DogID       string
	Query       string
}

// ── stored event CRUD ──

func (s *Service) CreateCalendarEvent(ctx context.Context, orgID string, in CalendarEventInput, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionSchedule); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	sourceType := firstNonEmpty(in.SourceType, "general")
	if !storedSourceTypes[sourceType] {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown source type", map[string]any{"sourceType": sourceType})
	}
	if in.StartAt.IsZero() {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "startAt is required", nil)
	}
	if in.EndAt.IsZero() {
		in.EndAt = in.StartAt.Add(time.Hour)
	}
	if in.EndAt.Before(in.StartAt) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "endAt must not precede startAt", nil)
	}
	if in.RecurrenceRule != "" {
		if _, err := rrule.StrToROption(in.RecurrenceRule); err != nil {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid recurrence rule", map[string]any{"rule": in.RecurrenceRule})
		}
	}

	ev := store.CalendarEvent{
		ID:             util.NewID("evt"),
		OrgID:          orgID,
		SourceType:     sourceType,
		Title:          strings.TrimSpace(in.Title),
		StartAt:        in.StartAt.UTC(),
		EndAt:          in.EndAt.UTC(),
		Location:       in.Location,
		Status:         firstNonEmpty(in.Status, "scheduled"),
		LinkType:       firstNonEmpty(in.LinkType, "none"),
		LinkID:         in.LinkID,
		Visibility:     firstNonEmpty(in.Visibility, "org"),
		RecurrenceRule: in.RecurrenceRule,
		Meta:           mustJSON(in.Meta),
		CreatedBy:      session.UserID,
		Reminders:      reminderRows("", in.Reminders),
	}
	if err := s.store.InsertCalendarEvent(ctx, ev); err != nil {
		return nil, err
	}

	s.audit(ctx, orgID, "calendar_event", ev.ID, "event.created",
		session.UserName+" scheduled "+ev.Title,
		map[string]any{"title": ev.Title, "startAt": ev.StartAt.Format(time.RFC3339)}, session.UserID)

	return s.eventPayload(ev), nil
}

func (s *Service) GetCalendarEvent(ctx context.Context, orgID, eventID string, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}
	ev, err := s.store.GetCalendarEvent(ctx, orgID, eventID)
	if err != nil {
		return nil, err
	}
	return s.eventPayload(ev), nil
}

func (s *Service) UpdateCalendarEvent(ctx context.Context, orgID, eventID string, in CalendarEventInput, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionSchedule); err != nil {
		return nil, err
	}
	prev, err := s.store.GetCalendarEvent(ctx, orgID, eventID)
	if err != nil {
		return nil, err
	}

	next := prev
	next.Title = firstNonEmpty(strings.TrimSpace(in.Title), prev.Title)
	if !in.StartAt.IsZero() {
		next.StartAt = in.StartAt.UTC()
	}
	if !in.EndAt.IsZero() {
		next.EndAt = in.EndAt.UTC()
	}
	if next.EndAt.Before(next.StartAt) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "endAt must not precede startAt", nil)
	}
	next.Location = firstNonEmpty(in.Location, prev.Location)
	next.Status = firstNonEmpty(in.Status, prev.Status)
	next.LinkType = firstNonEmpty(in.LinkType, prev.LinkType)
	next.LinkID = firstNonEmpty(in.LinkID, prev.LinkID)
	next.Visibility = firstNonEmpty(in.Visibility, prev.Visibility)
	if in.RecurrenceRule != "" {
		if _, err := rrule.StrToROption(in.RecurrenceRule); err != nil {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid recurrence rule", map[string]any{"rule": in.RecurrenceRule})
		}
		next.RecurrenceRule = in.RecurrenceRule
	}
	if in.Meta != nil {
		next.Meta = mustJSON(in.Meta)
	}
	if in.Reminders != nil {
		next.Reminders = reminderRows(eventID, in.Reminders)
	}

	updated, err := s.store.UpdateCalendarEvent(ctx, next)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, notFound("Event")
	}

	s.audit(ctx, orgID, "calendar_event", eventID, "event.updated",
		session.UserName+" updated "+next.Title,
		map[string]any{"title": next.Title}, session.UserID)

	return s.eventPayload(next), nil
}

func (s *Service) DeleteCalendarEvent(ctx context.Context, orgID, eventID string, session Session) error {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionSchedule); err != nil {
		return err
	}
	ev, err := s.store.GetCalendarEvent(ctx, orgID, eventID)
	if err != nil {
		return err
	}
	deleted, err := s.store.DeleteCalendarEvent(ctx, orgID, eventID)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound("Event")
	}
	s.audit(ctx, orgID, "calendar_event", eventID, "event.deleted",
		session.UserName+" cancelled "+ev.Title,
		map[string]any{"title": ev.Title}, session.UserID)
	return nil
}

// ── window query ──

func (s *Service) ListCalendarWindow(ctx context.Context, orgID string, w CalendarWindow, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}
	events, err := s.calendarWindow(ctx, orgID, w)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		items = append(items, s.eventPayload(ev))
	}
	return map[string]any{
		"events": items,
		"from":   w.From.UTC().Format(time.RFC3339),
		"to":     w.To.UTC().Format(time.RFC3339),
	}, nil
}

// calendarWindow assembles stored rows (recurrences expanded), plus events
// synthesized from medical records, transports and quarantine stays, filtered
// and sorted by start time.
func (s *Service) calendarWindow(ctx context.Context, orgID string, w CalendarWindow) ([]store.CalendarEvent, error) {
	if w.To.Before(w.From) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "window end precedes start", nil)
	}

	var all []store.CalendarEvent

	stored, err := s.store.ListCalendarEvents(ctx, orgID, w.From, w.To)
	if err != nil {
		return nil, err
	}
	for _, ev := range stored {
		all = append(all, expandEvent(ev, w.From, w.To)...)
	}

	if wantSource(w.SourceTypes, "medical") {
		records, err := s.store.ListMedicalRecordsDueBetween(ctx, orgID, w.From, w.To)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			all = append(all, medicalEvent(rec))
		}
	}

	if wantSource(w.SourceTypes, "transport") {
		transports, err := s.store.ListTransportsBetween(ctx, orgID, w.From, w.To)
		if err != nil {
			return nil, err
		}
		for _, tr := range transports {
			if tr.DepartAt == nil {
				continue
			}
			all = append(all, transportEvent(tr))
		}
	}

	if wantSource(w.SourceTypes, "quarantine") {
		dogs, err := s.store.ListDogsInQuarantine(ctx, orgID)
		if err != nil {
			return nil, err
		}
		for _, d := range dogs {
			if d.IntakeAt == nil {
				continue
			}
			end := d.IntakeAt.Add(quarantineDays * 24 * time.Hour)
			if end.Before(w.From) || !end.Before(w.To) {
				continue
			}
			all = append(all, quarantineEvent(d, end))
		}
	}

	filtered := all[:0:0]
	for _, ev := range all {
		if len(w.SourceTypes) > 0 && !wantSource(w.SourceTypes, ev.SourceType) {
			continue
		}
		if w.DogID != "" && !(ev.LinkType == "dog" && ev.LinkID == w.DogID) {
			continue
		}
		if w.Query != "" && !strings.Contains(strings.ToLower(ev.Title), strings.ToLower(w.Query)) {
			continue
		}
		if ev.EndAt.Before(ev.StartAt) {
			continue
		}
		filtered = append(filtered, ev)
	}
	if len(all) > 0 && len(filtered) == 0 {
		log.Printf("calendar window for org %s: all %d events filtered out", orgID, len(all))
	}

	sortEventsByStart(filtered)
	return filtered, nil
}

// ExportICS renders the calendar window as an iCalendar document.
func (s *Service) ExportICS(ctx context.Context, orgID string, w CalendarWindow, session Session) (string, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return "", err
	}
	events, err := s.calendarWindow(ctx, orgID, w)
	if err != nil {
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//RescueOps//Calendar//EN")
	for _, ev := range events {
		uid := ev.ID + "@" + orgID
		item := cal.AddEvent(uid)
		item.SetStartAt(ev.StartAt.UTC())
		item.SetEndAt(ev.EndAt.UTC())
		item.SetSummary(ev.Title)
		if ev.Location != "" {
			item.SetLocation(ev.Location)
		}
		item.SetDescription(ev.SourceType + " / " + ev.Status)
	}
	return cal.Serialize(), nil
}

// ── synthesis and expansion ──

// expandEvent returns the occurrences of a stored event inside the window.
// Non-recurring events pass through when they overlap it.
func expandEvent(ev store.CalendarEvent, from, to time.Time) []store.CalendarEvent {
	if ev.RecurrenceRule == "" {
		if ev.StartAt.Before(to) && !ev.EndAt.Before(from) {
			return []store.CalendarEvent{ev}
		}
		return nil
	}

	opt, err := rrule.StrToROption(ev.RecurrenceRule)
	if err != nil {
		log.Printf("event %s: bad recurrence rule %q: %v", ev.ID, ev.RecurrenceRule, err)
		return nil
	}
	opt.Dtstart = ev.StartAt
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		log.Printf("event %s: recurrence rule %q: %v", ev.ID, ev.RecurrenceRule, err)
		return nil
	}

	duration := ev.EndAt.Sub(ev.StartAt)
	var out []store.CalendarEvent
	for _, occ := range rule.Between(from, to, true) {
		inst := ev
		inst.StartAt = occ
		inst.EndAt = occ.Add(duration)
		out = append(out, inst)
	}
	return out
}

func medicalEvent(rec store.MedicalRecord) store.CalendarEvent {
	due := *rec.DueAt
	return store.CalendarEvent{
		ID:         "med_" + rec.ID,
		OrgID:      rec.OrgID,
		SourceType: "medical",
		SourceID:   strPtr(rec.ID),
		Title:      rec.Title,
		StartAt:    due,
		EndAt:      due.Add(30 * time.Minute),
		Status:     "due",
		LinkType:   "dog",
		LinkID:     rec.DogID,
		Visibility: "org",
		Reminders:  []store.EventReminder{{OffsetMinutes: defaultSyntheticOffset}},
	}
}

func transportEvent(tr store.Transport) store.CalendarEvent {
	start := *tr.DepartAt
	end := start.Add(time.Hour)
	if tr.ArriveAt != nil {
		end = *tr.ArriveAt
	}
	return store.CalendarEvent{
		ID:         "trn_" + tr.ID,
		OrgID:      tr.OrgID,
		SourceType: "transport",
		SourceID:   strPtr(tr.ID),
		Title:      "Transport to " + tr.ToLocation,
		StartAt:    start,
		EndAt:      end,
		Location:   tr.ToLocation,
		Status:     tr.Status,
		LinkType:   "dog",
		LinkID:     tr.DogID,
		Visibility: "org",
		Reminders:  []store.EventReminder{{OffsetMinutes: defaultSyntheticOffset}},
	}
}

func quarantineEvent(d store.Dog, end time.Time) store.CalendarEvent {
	return store.CalendarEvent{
		ID:         "qtn_" + d.ID,
		OrgID:      d.OrgID,
		SourceType: "quarantine",
		SourceID:   strPtr(d.ID),
		Title:      "Quarantine ends: " + d.Name,
		StartAt:    end,
		EndAt:      end.Add(30 * time.Minute),
		Status:     "scheduled",
		LinkType:   "dog",
		LinkID:     d.ID,
		Visibility: "org",
	}
}

// ── payload helpers ──

func (s *Service) eventPayload(ev store.CalendarEvent) map[string]any {
	remItems := make([]map[string]any, 0, len(ev.Reminders))
	for _, r := range reminderViews(ev) {
		remItems = append(remItems, map[string]any{
			"offsetMinutes":    r.OffsetMinutes,
			"scheduledAt":      r.ScheduledAt.UTC().Format(time.RFC3339),
			"deterministicKey": reminders.DeterministicID(toReminderEvent(ev), r),
		})
	}

	var meta map[string]any
	if len(ev.Meta) > 0 {
		_ = json.Unmarshal(ev.Meta, &meta)
	}

	return map[string]any{
		"id":             ev.ID,
		"sourceType":     ev.SourceType,
		"sourceId":       ev.SourceID,
		"title":          ev.Title,
		"startAt":        ev.StartAt.UTC().Format(time.RFC3339),
		"endAt":          ev.EndAt.UTC().Format(time.RFC3339),
		"location":       ev.Location,
		"status":         ev.Status,
		"linkType":       ev.LinkType,
		"linkId":         ev.LinkID,
		"visibility":     ev.Visibility,
		"recurrenceRule": ev.RecurrenceRule,
		"meta":           meta,
		"reminders":      remItems,
	}
}

// reminderViews precomputes scheduled_at for each reminder offset.
func reminderViews(ev store.CalendarEvent) []reminders.Reminder {
	out := make([]reminders.Reminder, 0, len(ev.Reminders))
	for _, r := range ev.Reminders {
		out = append(out, reminders.Reminder{
			OffsetMinutes:    r.OffsetMinutes,
			ScheduledAt:      ev.StartAt.Add(-time.Duration(r.OffsetMinutes) * time.Minute),
			DeterministicKey: metaReminderKey(ev, r.OffsetMinutes),
		})
	}
	return out
}

// metaReminderKey returns an upstream-supplied key for one reminder, if the
// event meta carries it. Keys are per reminder: under "deterministicKeys"
// mapped by offset, or under the single "deterministicKey" when the event has
// exactly one reminder. An upstream key wins over the computed one.
func metaReminderKey(ev store.CalendarEvent, offsetMinutes int) string {
	if len(ev.Meta) == 0 {
		return ""
	}
	var meta map[string]any
	if err := json.Unmarshal(ev.Meta, &meta); err != nil {
		return ""
	}
	if byOffset, ok := meta["deterministicKeys"].(map[string]any); ok {
		if key, ok := byOffset[strconv.Itoa(offsetMinutes)].(string); ok {
			return key
		}
	}
	if len(ev.Reminders) == 1 {
		if key, ok := meta["deterministicKey"].(string); ok {
			return key
		}
	}
	return ""
}

func toReminderEvent(ev store.CalendarEvent) reminders.Event {
	sourceID := ""
	if ev.SourceID != nil {
		sourceID = *ev.SourceID
	}
	return reminders.Event{
		EventID:    ev.ID,
		OrgID:      ev.OrgID,
		SourceType: ev.SourceType,
		SourceID:   sourceID,
		Title:      ev.Title,
		Location:   ev.Location,
		StartAt:    ev.StartAt,
	}
}

func reminderRows(eventID string, offsets []int) []store.EventReminder {
	rows := make([]store.EventReminder, 0, len(offsets))
	for _, off := range offsets {
		rows = append(rows, store.EventReminder{EventID: eventID, OffsetMinutes: off})
	}
	return rows
}

func wantSource(want []string, source string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		if w == source {
			return true
		}
	}
	return false
}

func sortEventsByStart(events []store.CalendarEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartAt.Before(events[j].StartAt)
	})
}

func strPtr(s string) *string { return &s }
