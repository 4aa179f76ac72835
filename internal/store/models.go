package store

import (
	"encoding/json"
	"time"
)

type User struct {
	ID                    string
	DisplayName           string
	Email                 string
	PasswordHash          string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	DeactivatedAt         *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Org struct {
	ID        string
	Name      string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Membership struct {
	OrgID         string
	UserID        string
	Role          string
	NotifyEnabled bool
	DisplayName   string
	Email         string
	CreatedAt     time.Time
}

// Dog stages follow the rescue pipeline: intake, quarantine, in_foster,
// adopted, transferred, deceased.
type Dog struct {
	ID        string
	OrgID     string
	Name      string
	Breed     string
	Sex       string
	Stage     string
	IntakeAt  *time.Time
	Microchip string
	Notes     string
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Transport struct {
	ID              string
	OrgID           string
	DogID           string
	FromLocation    string
	ToLocation      string
	DepartAt        *time.Time
	ArriveAt        *time.Time
	DriverContactID *string
	Status          string
	Notes           string
	UpdatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Contact struct {
	ID        string
	OrgID     string
	Name      string
	Email     string
	Phone     string
	Kind      string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type MedicalRecord struct {
	ID             string
	OrgID          string
	DogID          string
	Kind           string
	Title          string
	DueAt          *time.Time
	AdministeredAt *time.Time
	VetContactID   *string
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AuditEvent is an immutable record of something that already happened to a
// domain entity. Payload and Related are free-form JSON; Related carries a
// "system" flag for trigger-generated entries.
type AuditEvent struct {
	ID         string
	OrgID      string
	EntityType string
	EntityID   string
	EventType  string
	Summary    string
	Payload    json.RawMessage
	Related    json.RawMessage
	CreatedBy  string
	CreatedAt  time.Time
}

type AuditFilter struct {
	EntityType string
	EntityID   string
	Limit      int
}

// CalendarEvent is a stored row for user-scheduled events. Synthesized events
// (medical, transport, quarantine) are built by the service at query time and
// never hit this table.
type CalendarEvent struct {
	ID             string
	OrgID          string
	SourceType     string
	SourceID       *string
	Title          string
	StartAt        time.Time
	EndAt          time.Time
	Location       string
	Status         string
	LinkType       string
	LinkID         string
	Visibility     string
	RecurrenceRule string
	Meta           json.RawMessage
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Reminders      []EventReminder
}

type EventReminder struct {
	EventID       string
	OffsetMinutes int
}

type Attachment struct {
	ID          string
	OrgID       string
	EntityType  string
	EntityID    string
	FileName    string
	ObjectKey   string
	ContentType string
	SizeBytes   int64
	Kind        string
	Caption     string
	UploadedBy  string
	CreatedAt   time.Time
}
