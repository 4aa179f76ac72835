package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const calendarColumns = `id, org_id, source_type, source_id, title, start_at, end_at, location, status, link_type, link_id, visibility, recurrence_rule, meta, created_by, created_at, updated_at`

func (s *PostgresStore) InsertCalendarEvent(ctx context.Context, ev CalendarEvent) error {
	meta := ev.Meta
	if len(meta) == 0 {
		meta = json.RawMessage(`{}`)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calendar_events (id, org_id, source_type, source_id, title, start_at, end_at, location, status, link_type, link_id, visibility, recurrence_rule, meta, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, ev.ID, ev.OrgID, ev.SourceType, ev.SourceID, ev.Title, ev.StartAt, ev.EndAt, ev.Location, ev.Status, ev.LinkType, ev.LinkID, ev.Visibility, ev.RecurrenceRule, meta, ev.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert calendar event: %w", err)
	}
	return s.ReplaceEventReminders(ctx, ev.ID, ev.Reminders)
}

func (s *PostgresStore) GetCalendarEvent(ctx context.Context, orgID, eventID string) (CalendarEvent, error) {
	var ev CalendarEvent
	err := s.db.QueryRowContext(ctx, `
		SELECT `+calendarColumns+` FROM calendar_events WHERE org_id=$1 AND id=$2
	`, orgID, eventID).Scan(&ev.ID, &ev.OrgID, &ev.SourceType, &ev.SourceID, &ev.Title, &ev.StartAt, &ev.EndAt, &ev.Location, &ev.Status, &ev.LinkType, &ev.LinkID, &ev.Visibility, &ev.RecurrenceRule, &ev.Meta, &ev.CreatedBy, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return CalendarEvent{}, err
	}
	reminders, err := s.listEventReminders(ctx, []string{ev.ID})
	if err != nil {
		return CalendarEvent{}, err
	}
	ev.Reminders = reminders[ev.ID]
	return ev, nil
}

// ListCalendarEvents returns stored rows overlapping [from, to), plus any row
// with a recurrence rule regardless of its base window; the service expands
// recurrences into the requested window.
func (s *PostgresStore) ListCalendarEvents(ctx context.Context, orgID string, from, to time.Time) ([]CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+calendarColumns+` FROM calendar_events
		WHERE org_id=$1 AND ((start_at < $3 AND end_at >= $2) OR recurrence_rule <> '')
		ORDER BY start_at
	`, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	defer rows.Close()

	items := make([]CalendarEvent, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var ev CalendarEvent
		if err := rows.Scan(&ev.ID, &ev.OrgID, &ev.SourceType, &ev.SourceID, &ev.Title, &ev.StartAt, &ev.EndAt, &ev.Location, &ev.Status, &ev.LinkType, &ev.LinkID, &ev.Visibility, &ev.RecurrenceRule, &ev.Meta, &ev.CreatedBy, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		items = append(items, ev)
		ids = append(ids, ev.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calendar events: %w", err)
	}

	reminders, err := s.listEventReminders(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Reminders = reminders[items[i].ID]
	}
	return items, nil
}

func (s *PostgresStore) UpdateCalendarEvent(ctx context.Context, ev CalendarEvent) (bool, error) {
	meta := ev.Meta
	if len(meta) == 0 {
		meta = json.RawMessage(`{}`)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE calendar_events
		SET source_type=$3, source_id=$4, title=$5, start_at=$6, end_at=$7, location=$8, status=$9,
			link_type=$10, link_id=$11, visibility=$12, recurrence_rule=$13, meta=$14, updated_at=NOW()
		WHERE org_id=$1 AND id=$2
	`, ev.OrgID, ev.ID, ev.SourceType, ev.SourceID, ev.Title, ev.StartAt, ev.EndAt, ev.Location, ev.Status, ev.LinkType, ev.LinkID, ev.Visibility, ev.RecurrenceRule, meta)
	if err != nil {
		return false, fmt.Errorf("update calendar event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update calendar event rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	if err := s.ReplaceEventReminders(ctx, ev.ID, ev.Reminders); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) DeleteCalendarEvent(ctx context.Context, orgID, eventID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE org_id=$1 AND id=$2`, orgID, eventID)
	if err != nil {
		return false, fmt.Errorf("delete calendar event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete calendar event rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ReplaceEventReminders(ctx context.Context, eventID string, reminders []EventReminder) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM event_reminders WHERE event_id=$1`, eventID); err != nil {
		return fmt.Errorf("clear event reminders: %w", err)
	}
	for _, r := range reminders {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO event_reminders (event_id, offset_minutes) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, eventID, r.OffsetMinutes); err != nil {
			return fmt.Errorf("insert event reminder: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) listEventReminders(ctx context.Context, eventIDs []string) (map[string][]EventReminder, error) {
	out := make(map[string][]EventReminder, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, offset_minutes FROM event_reminders
		WHERE event_id = ANY($1)
		ORDER BY event_id, offset_minutes
	`, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("list event reminders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r EventReminder
		if err := rows.Scan(&r.EventID, &r.OffsetMinutes); err != nil {
			return nil, fmt.Errorf("scan event reminder: %w", err)
		}
		out[r.EventID] = append(out[r.EventID], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event reminders: %w", err)
	}
	return out, nil
}

// ── window sources for synthesized events ──

func (s *PostgresStore) ListTransportsBetween(ctx context.Context, orgID string, from, to time.Time) ([]Transport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transportColumns+` FROM transports
		WHERE org_id=$1 AND depart_at IS NOT NULL AND depart_at < $3 AND COALESCE(arrive_at, depart_at) >= $2
			AND status <> 'cancelled'
		ORDER BY depart_at
	`, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transports in window: %w", err)
	}
	defer rows.Close()

	items := make([]Transport, 0)
	for rows.Next() {
		var t Transport
		if err := rows.Scan(&t.ID, &t.OrgID, &t.DogID, &t.FromLocation, &t.ToLocation, &t.DepartAt, &t.ArriveAt, &t.DriverContactID, &t.Status, &t.Notes, &t.UpdatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan transport: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transports: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListMedicalRecordsDueBetween(ctx context.Context, orgID string, from, to time.Time) ([]MedicalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+medicalColumns+` FROM medical_records
		WHERE org_id=$1 AND due_at IS NOT NULL AND due_at >= $2 AND due_at < $3 AND administered_at IS NULL
		ORDER BY due_at
	`, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list medical records in window: %w", err)
	}
	defer rows.Close()

	items := make([]MedicalRecord, 0)
	for rows.Next() {
		var m MedicalRecord
		if err := rows.Scan(&m.ID, &m.OrgID, &m.DogID, &m.Kind, &m.Title, &m.DueAt, &m.AdministeredAt, &m.VetContactID, &m.Notes, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan medical record: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate medical records: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListDogsInQuarantine(ctx context.Context, orgID string) ([]Dog, error) {
	return s.ListDogs(ctx, orgID, "quarantine", "")
}

// ── audit events ──

func (s *PostgresStore) InsertAuditEvent(ctx context.Context, ev AuditEvent) error {
	payload := ev.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	related := ev.Related
	if len(related) == 0 {
		related = json.RawMessage(`{}`)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, org_id, entity_type, entity_id, event_type, summary, payload, related, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, ev.ID, ev.OrgID, ev.EntityType, ev.EntityID, ev.EventType, ev.Summary, payload, related, ev.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAuditEvents(ctx context.Context, orgID string, filter AuditFilter) ([]AuditEvent, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	sqlQuery := `
		SELECT id, org_id, entity_type, entity_id, event_type, summary, payload, related, created_by, created_at
		FROM audit_events WHERE org_id=$1`
	args := []any{orgID}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		sqlQuery += fmt.Sprintf(" AND entity_type=$%d", len(args))
	}
	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		sqlQuery += fmt.Sprintf(" AND entity_id=$%d", len(args))
	}
	args = append(args, limit)
	sqlQuery += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	items := make([]AuditEvent, 0)
	for rows.Next() {
		var ev AuditEvent
		if err := rows.Scan(&ev.ID, &ev.OrgID, &ev.EntityType, &ev.EntityID, &ev.EventType, &ev.Summary, &ev.Payload, &ev.Related, &ev.CreatedBy, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		items = append(items, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return items, nil
}
