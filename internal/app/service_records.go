package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"rescueops/api/internal/rbac"
	"rescueops/api/internal/search"
	"rescueops/api/internal/store"
	"rescueops/api/internal/util"
)

var dogStages = map[string]bool{
	"intake":      true,
	"quarantine":  true,
	"in_foster":   true,
	"adopted":     true,
	"transferred": true,
	"deceased":    true,
}

var transportStatuses = map[string]bool{
	"planned":     true,
	"in_progress": true,
	"completed":   true,
	"cancelled":   true,
}

type DogInput struct {
	Name      string     `json:"name"`
	Breed     string     `json:"breed"`
	Sex       string     `json:"sex"`
	Stage     string     `json:"stage"`
	IntakeAt  *time.Time `json:"intakeAt"`
	Microchip string     `json:"microchip"`
	Notes     string     `json:"notes"`
}

type TransportInput struct {
	DogID           string     `json:"dogId"`
	FromLocation    string     `json:"fromLocation"`
	ToLocation      string     `json:"toLocation"`
	DepartAt        *time.Time `json:"departAt"`
	ArriveAt        *time.Time `json:"arriveAt"`
	DriverContactID *string    `json:"driverContactId"`
	Status          string     `json:"status"`
	Notes           string     `json:"notes"`
}

type ContactInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Kind  string `json:"kind"`
	Notes string `json:"notes"`
}

type MedicalInput struct {
	DogID          string     `json:"dogId"`
	Kind           string     `json:"kind"`
	Title          string     `json:"title"`
	DueAt          *time.Time `json:"dueAt"`
	AdministeredAt *time.Time `json:"administeredAt"`
	VetContactID   *string    `json:"vetContactId"`
	Notes          string     `json:"notes"`
}

// ── dogs ──

func (s *Service) CreateDog(ctx context.Context, orgID string, in DogInput, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionWrite); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	stage := in.Stage
	if stage == "" {
		stage = "intake"
	}
	if !dogStages[stage] {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown stage", map[string]any{"stage": stage})
	}

	dog := store.Dog{
		ID:        util.NewID("dog"),
		OrgID:     orgID,
		Name:      strings.TrimSpace(in.Name),
		Breed:     in.Breed,
		Sex:       in.Sex,
		Stage:     stage,
		IntakeAt:  in.IntakeAt,
		Microchip: in.Microchip,
		Notes:     in.Notes,
		UpdatedBy: session.UserName,
	}
	if err := s.store.InsertDog(ctx, dog); err != nil {
		return nil, err
	}

	s.audit(ctx, orgID, "dog", dog.ID, "dog.created",
		session.UserName+" added "+dog.Name,
		map[string]any{"name": dog.Name, "stage": dog.Stage}, session.UserID)
	s.indexDog(dog)

	return dogPayload(dog), nil
}

func (s *Service) GetDog(ctx context.Context, orgID, dogID string, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}
	dog, err := s.store.GetDog(ctx, orgID, dogID)
	if err != nil {
		return nil, err
	}
	return dogPayload(dog), nil
}

func (s *Service) ListDogs(ctx context.Context, orgID, stage, query string, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}
	if stage != "" && !dogStages[stage] {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown stage", map[string]any{"stage": stage})
	}
	dogs, err := s.store.ListDogs(ctx, orgID, stage, query)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(dogs))
	for _, d := range dogs {
		items = append(items, dogPayload(d))
	}
	return map[string]any{"dogs": items}, nil
}

func (s *Service) UpdateDog(ctx context.Context, orgID, dogID string, in DogInput, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionWrite); err != nil {
		return nil, err
	}
	prev, err := s.store.GetDog(ctx, orgID, dogID)
	if err != nil {
		return nil, err
	}
	if in.Stage != "" && !dogStages[in.Stage] {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown stage", map[string]any{"stage": in.Stage})
	}

	next := prev
	next.Name = firstNonEmpty(strings.TrimSpace(in.Name), prev.Name)
	next.Breed = firstNonEmpty(in.Breed, prev.Breed)
	next.Sex = firstNonEmpty(in.Sex, prev.Sex)
	next.Stage = firstNonEmpty(in.Stage, prev.Stage)
	if in.IntakeAt != nil {
		next.IntakeAt = in.IntakeAt
	}
	next.Microchip = firstNonEmpty(in.Microchip, prev.Microchip)
	next.Notes = firstNonEmpty(in.Notes, prev.Notes)
	next.UpdatedBy = session.UserName

	updated, err := s.store.UpdateDog(ctx, next)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, notFound("Dog")
	}

	if next.Stage != prev.Stage {
		s.audit(ctx, orgID, "dog", dogID, "dog.stage_changed",
			session.UserName+" moved "+next.Name+" to "+next.Stage,
			map[string]any{"from": prev.Stage, "to": next.Stage}, session.UserID)
	}
	if changes := dogChanges(prev, next); len(changes) > 0 {
		s.audit(ctx, orgID, "dog", dogID, "dog.updated",
			session.UserName+" updated "+next.Name,
			map[string]any{"changes": changes}, session.UserID)
	}
	s.indexDog(next)

	return dogPayload(next), nil
}

func (s *Service) DeleteDog(ctx context.Context, orgID, dogID string, session Session) error {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionWrite); err != nil {
		return err
	}
	dog, err := s.store.GetDog(ctx, orgID, dogID)
	if err != nil {
		return err
	}
	deleted, err := s.store.DeleteDog(ctx, orgID, dogID)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound("Dog")
	}
	s.audit(ctx, orgID, "dog", dogID, "dog.deleted",
		session.UserName+" removed "+dog.Name,
		map[string]any{"name": dog.Name}, session.UserID)
	if s.search != nil {
		s.search.DeleteDog(dogID)
	}
	return nil
}

// ── transports ──

func (s *Service) CreateTransport(ctx context.Context, orgID string, in TransportInput, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionSchedule); err != nil {
		return nil, err
	}
	if in.DogID == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "dogId is required", nil)
	}
	if _, err := s.store.GetDog(ctx, orgID, in.DogID); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = "planned"
	}
	if !transportStatuses[status] {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown status", map[string]any{"status": status})
	}

	tr := store.Transport{
		ID:              util.NewID("trn"),
		OrgID:           orgID,
		DogID:           in.DogID,
		FromLocation:    in.FromLocation,
		ToLocation:      in.ToLocation,
		DepartAt:        in.DepartAt,
		ArriveAt:        in.ArriveAt,
		DriverContactID: in.DriverContactID,
		Status:          status,
		Notes:           in.Notes,
		UpdatedBy:       session.UserName,
	}
	if err := s.store.InsertTransport(ctx, tr); err != nil {
		return nil, err
	}

	s.audit(ctx, orgID, "transport", tr.ID, "transport.created",
		session.UserName+" scheduled a transport to "+tr.ToLocation,
		map[string]any{"dogId": tr.DogID, "toLocation": tr.ToLocation, "status": tr.Status}, session.UserID)

	return transportPayload(tr), nil
}

func (s *Service) GetTransport(ctx context.Context, orgID, transportID string, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}
	tr, err := s.store.GetTransport(ctx, orgID, transportID)
	if err != nil {
		return nil, err
	}
	return transportPayload(tr), nil
}

func (s *Service) ListTransports(ctx context.Context, orgID, dogID, status string, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}
	transports, err := s.store.ListTransports(ctx, orgID, dogID, status)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(transports))
	for _, tr := range transports {
		items = append(items, transportPayload(tr))
	}
	return map[string]any{"transports": items}, nil
}

func (s *Service) UpdateTransport(ctx context.Context, orgID, transportID string, in TransportInput, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionSchedule); err != nil {
		return nil, err
	}
	prev, err := s.store.GetTransport(ctx, orgID, transportID)
	if err != nil {
		return nil, err
	}
	if in.Status != "" && !transportStatuses[in.Status] {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown status", map[string]any{"status": in.Status})
	}

	next := prev
	next.FromLocation = firstNonEmpty(in.FromLocation, prev.FromLocation)
	next.ToLocation = firstNonEmpty(in.ToLocation, prev.ToLocation)
	if in.DepartAt != nil {
		next.DepartAt = in.DepartAt
	}
	if in.ArriveAt != nil {
		next.ArriveAt = in.ArriveAt
	}
	if in.DriverContactID != nil {
		next.DriverContactID = in.DriverContactID
	}
	next.Status = firstNonEmpty(in.Status, prev.Status)
	next.Notes = firstNonEmpty(in.Notes, prev.Notes)
	next.UpdatedBy = session.UserName

	updated, err := s.store.UpdateTransport(ctx, next)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, notFound("Transport")
	}

	if changes := transportChanges(prev, next); len(changes) > 0 {
		s.audit(ctx, orgID, "transport", transportID, "transport.updated",
			session.UserName+" updated a transport",
			map[string]any{"changes": changes}, session.UserID)
	}

	return transportPayload(next), nil
}

func (s *Service) DeleteTransport(ctx context.Context, orgID, transportID string, session Session) error {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionSchedule); err != nil {
		return err
	}
	tr, err := s.store.GetTransport(ctx, orgID, transportID)
	if err != nil {
		return err
	}
	deleted, err := s.store.DeleteTransport(ctx, orgID, transportID)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound("Transport")
	}
	s.audit(ctx, orgID, "transport", transportID, "transport.deleted",
		session.UserName+" cancelled a transport to "+tr.ToLocation,
		map[string]any{"toLocation": tr.ToLocation}, session.UserID)
	return nil
}

// ── contacts ──

func (s *Service) CreateContact(ctx context.Context, orgID string, in ContactInput, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionWrite); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}

	c := store.Contact{
		ID:    util.NewID("ct"),
		OrgID: orgID,
		Name:  strings.TrimSpace(in.Name),
		Email: in.Email,
		Phone: in.Phone,
		Kind:  in.Kind,
		Notes: in.Notes,
	}
	if err := s.store.InsertContact(ctx, c); err != nil {
		return nil, err
	}

	s.audit(ctx, orgID, "contact", c.ID, "contact.created",
		session.UserName+" added contact "+c.Name,
		map[string]any{"name": c.Name, "kind": c.Kind}, session.UserID)
	s.indexContact(c)

	return contactPayload(c), nil
}

func (s *Service) GetContact(ctx context.Context, orgID, contactID string, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}
	c, err := s.store.GetContact(ctx, orgID, contactID)
	if err != nil {
		return nil, err
	}
	return contactPayload(c), nil
}

func (s *Service) ListContacts(ctx context.Context, orgID, kind string, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}
	contacts, err := s.store.ListContacts(ctx, orgID, kind)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(contacts))
	for _, c := range contacts {
		items = append(items, contactPayload(c))
	}
	return map[string]any{"contacts": items}, nil
}

func (s *Service) UpdateContact(ctx context.Context, orgID, contactID string, in ContactInput, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionWrite); err != nil {
		return nil, err
	}
	prev, err := s.store.GetContact(ctx, orgID, contactID)
	if err != nil {
		return nil, err
	}

	next := prev
	next.Name = firstNonEmpty(strings.TrimSpace(in.Name), prev.Name)
	next.Email = firstNonEmpty(in.Email, prev.Email)
	next.Phone = firstNonEmpty(in.Phone, prev.Phone)
	next.Kind = firstNonEmpty(in.Kind, prev.Kind)
	next.Notes = firstNonEmpty(in.Notes, prev.Notes)

	updated, err := s.store.UpdateContact(ctx, next)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, notFound("Contact")
	}

	if changes := contactChanges(prev, next); len(changes) > 0 {
		s.audit(ctx, orgID, "contact", contactID, "contact.updated",
			session.UserName+" updated contact "+next.Name,
			map[string]any{"changes": changes}, session.UserID)
	}
	s.indexContact(next)

	return contactPayload(next), nil
}

func (s *Service) DeleteContact(ctx context.Context, orgID, contactID string, session Session) error {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionWrite); err != nil {
		return err
	}
	c, err := s.store.GetContact(ctx, orgID, contactID)
	if err != nil {
		return err
	}
	deleted, err := s.store.DeleteContact(ctx, orgID, contactID)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound("Contact")
	}
	s.audit(ctx, orgID, "contact", contactID, "contact.deleted",
		session.UserName+" removed contact "+c.Name,
		map[string]any{"name": c.Name}, session.UserID)
	if s.search != nil {
		s.search.DeleteContact(contactID)
	}
	return nil
}

// ── medical records ──

func (s *Service) CreateMedicalRecord(ctx context.Context, orgID string, in MedicalInput, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionWrite); err != nil {
		return nil, err
	}
	if in.DogID == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "dogId is required", nil)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	if _, err := s.store.GetDog(ctx, orgID, in.DogID); err != nil {
		return nil, err
	}

	rec := store.MedicalRecord{
		ID:             util.NewID("med"),
		OrgID:          orgID,
		DogID:          in.DogID,
		Kind:           in.Kind,
		Title:          strings.TrimSpace(in.Title),
		DueAt:          in.DueAt,
		AdministeredAt: in.AdministeredAt,
		VetContactID:   in.VetContactID,
		Notes:          in.Notes,
	}
	if err := s.store.InsertMedicalRecord(ctx, rec); err != nil {
		return nil, err
	}

	s.audit(ctx, orgID, "medical_record", rec.ID, "medical_record.created",
		session.UserName+" added "+rec.Title,
		map[string]any{"dogId": rec.DogID, "title": rec.Title, "kind": rec.Kind}, session.UserID)

	return medicalPayload(rec), nil
}

func (s *Service) GetMedicalRecord(ctx context.Context, orgID, recordID string, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}
	rec, err := s.store.GetMedicalRecord(ctx, orgID, recordID)
	if err != nil {
		return nil, err
	}
	return medicalPayload(rec), nil
}

func (s *Service) ListMedicalRecords(ctx context.Context, orgID, dogID string, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}
	records, err := s.store.ListMedicalRecords(ctx, orgID, dogID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		items = append(items, medicalPayload(rec))
	}
	return map[string]any{"records": items}, nil
}

func (s *Service) UpdateMedicalRecord(ctx context.Context, orgID, recordID string, in MedicalInput, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionWrite); err != nil {
		return nil, err
	}
	prev, err := s.store.GetMedicalRecord(ctx, orgID, recordID)
	if err != nil {
		return nil, err
	}

	next := prev
	next.Kind = firstNonEmpty(in.Kind, prev.Kind)
	next.Title = firstNonEmpty(strings.TrimSpace(in.Title), prev.Title)
	if in.DueAt != nil {
		next.DueAt = in.DueAt
	}
	if in.AdministeredAt != nil {
		next.AdministeredAt = in.AdministeredAt
	}
	if in.VetContactID != nil {
		next.VetContactID = in.VetContactID
	}
	next.Notes = firstNonEmpty(in.Notes, prev.Notes)

	updated, err := s.store.UpdateMedicalRecord(ctx, next)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, notFound("Medical record")
	}

	if prev.AdministeredAt == nil && next.AdministeredAt != nil {
		s.audit(ctx, orgID, "medical_record", recordID, "medical_record.administered",
			session.UserName+" marked "+next.Title+" administered",
			map[string]any{"title": next.Title}, session.UserID)
	} else if changes := medicalChanges(prev, next); len(changes) > 0 {
		s.audit(ctx, orgID, "medical_record", recordID, "medical_record.updated",
			session.UserName+" updated "+next.Title,
			map[string]any{"changes": changes}, session.UserID)
	}

	return medicalPayload(next), nil
}

func (s *Service) DeleteMedicalRecord(ctx context.Context, orgID, recordID string, session Session) error {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionWrite); err != nil {
		return err
	}
	rec, err := s.store.GetMedicalRecord(ctx, orgID, recordID)
	if err != nil {
		return err
	}
	deleted, err := s.store.DeleteMedicalRecord(ctx, orgID, recordID)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound("Medical record")
	}
	s.audit(ctx, orgID, "medical_record", recordID, "medical_record.deleted",
		session.UserName+" removed "+rec.Title,
		map[string]any{"title": rec.Title}, session.UserID)
	return nil
}

// ── helpers ──

func (s *Service) indexDog(d store.Dog) {
	if s.search == nil {
		return
	}
	s.search.IndexDog(search.DogRecord{
		ID:        d.ID,
		OrgID:     d.OrgID,
		Name:      d.Name,
		Breed:     d.Breed,
		Microchip: d.Microchip,
		Stage:     d.Stage,
		Notes:     d.Notes,
	})
}

func (s *Service) indexContact(c store.Contact) {
	if s.search == nil {
		return
	}
	s.search.IndexContact(search.ContactRecord{
		ID:    c.ID,
		OrgID: c.OrgID,
		Name:  c.Name,
		Email: c.Email,
		Phone: c.Phone,
		Kind:  c.Kind,
		Notes: c.Notes,
	})
}

func dogPayload(d store.Dog) map[string]any {
	return map[string]any{
		"id":        d.ID,
		"name":      d.Name,
		"breed":     d.Breed,
		"sex":       d.Sex,
		"stage":     d.Stage,
		"intakeAt":  timePtr(d.IntakeAt),
		"microchip": d.Microchip,
		"notes":     d.Notes,
		"updatedBy": d.UpdatedBy,
		"createdAt": d.CreatedAt,
		"updatedAt": d.UpdatedAt,
	}
}

func transportPayload(tr store.Transport) map[string]any {
	return map[string]any{
		"id":              tr.ID,
		"dogId":           tr.DogID,
		"fromLocation":    tr.FromLocation,
		"toLocation":      tr.ToLocation,
		"departAt":        timePtr(tr.DepartAt),
		"arriveAt":        timePtr(tr.ArriveAt),
		"driverContactId": tr.DriverContactID,
		"status":          tr.Status,
		"notes":           tr.Notes,
		"updatedBy":       tr.UpdatedBy,
		"createdAt":       tr.CreatedAt,
		"updatedAt":       tr.UpdatedAt,
	}
}

func contactPayload(c store.Contact) map[string]any {
	return map[string]any{
		"id":        c.ID,
		"name":      c.Name,
		"email":     c.Email,
		"phone":     c.Phone,
		"kind":      c.Kind,
		"notes":     c.Notes,
		"createdAt": c.CreatedAt,
		"updatedAt": c.UpdatedAt,
	}
}

func medicalPayload(rec store.MedicalRecord) map[string]any {
	return map[string]any{
		"id":             rec.ID,
		"dogId":          rec.DogID,
		"kind":           rec.Kind,
		"title":          rec.Title,
		"dueAt":          timePtr(rec.DueAt),
		"administeredAt": timePtr(rec.AdministeredAt),
		"vetContactId":   rec.VetContactID,
		"notes":          rec.Notes,
		"createdAt":      rec.CreatedAt,
		"updatedAt":      rec.UpdatedAt,
	}
}

func dogChanges(prev, next store.Dog) map[string]any {
	changes := map[string]any{}
	addChange(changes, "name", prev.Name, next.Name)
	addChange(changes, "breed", prev.Breed, next.Breed)
	addChange(changes, "sex", prev.Sex, next.Sex)
	addChange(changes, "microchip", prev.Microchip, next.Microchip)
	addChange(changes, "notes", prev.Notes, next.Notes)
	return changes
}

func transportChanges(prev, next store.Transport) map[string]any {
	changes := map[string]any{}
	addChange(changes, "from_location", prev.FromLocation, next.FromLocation)
	addChange(changes, "to_location", prev.ToLocation, next.ToLocation)
	addChange(changes, "status", prev.Status, next.Status)
	addChange(changes, "notes", prev.Notes, next.Notes)
	addTimeChange(changes, "depart_at", prev.DepartAt, next.DepartAt)
	addTimeChange(changes, "arrive_at", prev.ArriveAt, next.ArriveAt)
	return changes
}

func contactChanges(prev, next store.Contact) map[string]any {
	changes := map[string]any{}
	addChange(changes, "name", prev.Name, next.Name)
	addChange(changes, "email", prev.Email, next.Email)
	addChange(changes, "phone", prev.Phone, next.Phone)
	addChange(changes, "kind", prev.Kind, next.Kind)
	addChange(changes, "notes", prev.Notes, next.Notes)
	return changes
}

func medicalChanges(prev, next store.MedicalRecord) map[string]any {
	changes := map[string]any{}
	addChange(changes, "kind", prev.Kind, next.Kind)
	addChange(changes, "title", prev.Title, next.Title)
	addChange(changes, "notes", prev.Notes, next.Notes)
	addTimeChange(changes, "due_at", prev.DueAt, next.DueAt)
	return changes
}

func addChange(changes map[string]any, field, from, to string) {
	if from != to {
		changes[field] = map[string]any{"from": from, "to": to}
	}
}

func addTimeChange(changes map[string]any, field string, from, to *time.Time) {
	f, t := "", ""
	if from != nil {
		f = from.UTC().Format(time.RFC3339)
	}
	if to != nil {
		t = to.UTC().Format(time.RFC3339)
	}
	if f != t {
		changes[field] = map[string]any{"from": f, "to": t}
	}
}

func timePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
