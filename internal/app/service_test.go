package app

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"rescueops/api/internal/config"
	"rescueops/api/internal/store"
)

// fakeStore implements dataStore with overridable function fields. Methods
// without an override return empty results, or sql.ErrNoRows for lookups.
type fakeStore struct {
	pingFn func(context.Context) error

	getUserByIDFn    func(context.Context, string) (store.User, error)
	getUserByEmailFn func(context.Context, string) (store.User, error)

	saveRefreshSessionFn   func(context.Context, string, string, time.Time) error
	lookupRefreshSessionFn func(context.Context, string) (store.User, error)
	revokeRefreshSessionFn func(context.Context, string) error
	revokeAccessTokenFn    func(context.Context, string, time.Time) error
	isAccessTokenRevokedFn func(context.Context, string) (bool, error)

	insertOrgFn            func(context.Context, store.Org) error
	getOrgFn               func(context.Context, string) (store.Org, error)
	listOrgsForUserFn      func(context.Context, string) ([]store.Org, error)
	upsertMembershipFn     func(context.Context, store.Membership) error
	getMembershipFn        func(context.Context, string, string) (store.Membership, error)
	listMembershipsFn      func(context.Context, string) ([]store.Membership, error)
	updateMembershipRoleFn func(context.Context, string, string, string) (bool, error)
	setMembershipNotifyFn  func(context.Context, string, string, bool) (bool, error)
	deleteMembershipFn     func(context.Context, string, string) (bool, error)

	insertDogFn func(context.Context, store.Dog) error
	getDogFn    func(context.Context, string, string) (store.Dog, error)
	listDogsFn  func(context.Context, string, string, string) ([]store.Dog, error)
	updateDogFn func(context.Context, store.Dog) (bool, error)
	deleteDogFn func(context.Context, string, string) (bool, error)

	insertTransportFn       func(context.Context, store.Transport) error
	getTransportFn          func(context.Context, string, string) (store.Transport, error)
	listTransportsFn        func(context.Context, string, string, string) ([]store.Transport, error)
	updateTransportFn       func(context.Context, store.Transport) (bool, error)
	deleteTransportFn       func(context.Context, string, string) (bool, error)
	listTransportsBetweenFn func(context.Context, string, time.Time, time.Time) ([]store.Transport, error)

	insertContactFn func(context.Context, store.Contact) error
	getContactFn    func(context.Context, string, string) (store.Contact, error)
	listContactsFn  func(context.Context, string, string) ([]store.Contact, error)
	updateContactFn func(context.Context, store.Contact) (bool, error)
	deleteContactFn func(context.Context, string, string) (bool, error)

	insertMedicalRecordFn        func(context.Context, store.MedicalRecord) error
	getMedicalRecordFn           func(context.Context, string, string) (store.MedicalRecord, error)
	listMedicalRecordsFn         func(context.Context, string, string) ([]store.MedicalRecord, error)
	updateMedicalRecordFn        func(context.Context, store.MedicalRecord) (bool, error)
	deleteMedicalRecordFn        func(context.Context, string, string) (bool, error)
	listMedicalRecordsDueBetween func(context.Context, string, time.Time, time.Time) ([]store.MedicalRecord, error)

	listDogsInQuarantineFn func(context.Context, string) ([]store.Dog, error)

	insertCalendarEventFn func(context.Context, store.CalendarEvent) error
	getCalendarEventFn    func(context.Context, string, string) (store.CalendarEvent, error)
	listCalendarEventsFn  func(context.Context, string, time.Time, time.Time) ([]store.CalendarEvent, error)
	updateCalendarEventFn func(context.Context, store.CalendarEvent) (bool, error)
	deleteCalendarEventFn func(context.Context, string, string) (bool, error)

	insertAuditEventFn func(context.Context, store.AuditEvent) error
	listAuditEventsFn  func(context.Context, string, store.AuditFilter) ([]store.AuditEvent, error)

	insertAttachmentFn func(context.Context, store.Attachment) error
	getAttachmentFn    func(context.Context, string, string) (store.Attachment, error)
	listAttachmentsFn  func(context.Context, string, string, string) ([]store.Attachment, error)
	deleteAttachmentFn func(context.Context, string, string) (bool, error)
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, id)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if f.getUserByEmailFn != nil {
		return f.getUserByEmailFn(ctx, email)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) SaveRefreshSession(ctx context.Context, hash, userID string, exp time.Time) error {
	if f.saveRefreshSessionFn != nil {
		return f.saveRefreshSessionFn(ctx, hash, userID, exp)
	}
	return nil
}

func (f *fakeStore) LookupRefreshSession(ctx context.Context, hash string) (store.User, error) {
	if f.lookupRefreshSessionFn != nil {
		return f.lookupRefreshSessionFn(ctx, hash)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) RevokeRefreshSession(ctx context.Context, hash string) error {
	if f.revokeRefreshSessionFn != nil {
		return f.revokeRefreshSessionFn(ctx, hash)
	}
	return nil
}

func (f *fakeStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	if f.revokeAccessTokenFn != nil {
		return f.revokeAccessTokenFn(ctx, jti, exp)
	}
	return nil
}

func (f *fakeStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if f.isAccessTokenRevokedFn != nil {
		return f.isAccessTokenRevokedFn(ctx, jti)
	}
	return false, nil
}

func (f *fakeStore) InsertOrg(ctx context.Context, org store.Org) error {
	if f.insertOrgFn != nil {
		return f.insertOrgFn(ctx, org)
	}
	return nil
}

func (f *fakeStore) GetOrg(ctx context.Context, orgID string) (store.Org, error) {
	if f.getOrgFn != nil {
		return f.getOrgFn(ctx, orgID)
	}
	return store.Org{}, sql.ErrNoRows
}

func (f *fakeStore) ListOrgsForUser(ctx context.Context, userID string) ([]store.Org, error) {
	if f.listOrgsForUserFn != nil {
		return f.listOrgsForUserFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeStore) UpsertMembership(ctx context.Context, m store.Membership) error {
	if f.upsertMembershipFn != nil {
		return f.upsertMembershipFn(ctx, m)
	}
	return nil
}

func (f *fakeStore) GetMembership(ctx context.Context, orgID, userID string) (store.Membership, error) {
	if f.getMembershipFn != nil {
		return f.getMembershipFn(ctx, orgID, userID)
	}
	return store.Membership{}, sql.ErrNoRows
}

func (f *fakeStore) ListMemberships(ctx context.Context, orgID string) ([]store.Membership, error) {
	if f.listMembershipsFn != nil {
		return f.listMembershipsFn(ctx, orgID)
	}
	return nil, nil
}

func (f *fakeStore) UpdateMembershipRole(ctx context.Context, orgID, userID, role string) (bool, error) {
	if f.updateMembershipRoleFn != nil {
		return f.updateMembershipRoleFn(ctx, orgID, userID, role)
	}
	return true, nil
}

func (f *fakeStore) SetMembershipNotify(ctx context.Context, orgID, userID string, enabled bool) (bool, error) {
	if f.setMembershipNotifyFn != nil {
		return f.setMembershipNotifyFn(ctx, orgID, userID, enabled)
	}
	return true, nil
}

func (f *fakeStore) DeleteMembership(ctx context.Context, orgID, userID string) (bool, error) {
	if f.deleteMembershipFn != nil {
		return f.deleteMembershipFn(ctx, orgID, userID)
	}
	return true, nil
}

func (f *fakeStore) InsertDog(ctx context.Context, dog store.Dog) error {
	if f.insertDogFn != nil {
		return f.insertDogFn(ctx, dog)
	}
	return nil
}

func (f *fakeStore) GetDog(ctx context.Context, orgID, dogID string) (store.Dog, error) {
	if f.getDogFn != nil {
		return f.getDogFn(ctx, orgID, dogID)
	}
	return store.Dog{}, sql.ErrNoRows
}

func (f *fakeStore) ListDogs(ctx context.Context, orgID, stage, query string) ([]store.Dog, error) {
	if f.listDogsFn != nil {
		return f.listDogsFn(ctx, orgID, stage, query)
	}
	return nil, nil
}

func (f *fakeStore) UpdateDog(ctx context.Context, dog store.Dog) (bool, error) {
	if f.updateDogFn != nil {
		return f.updateDogFn(ctx, dog)
	}
	return true, nil
}

func (f *fakeStore) DeleteDog(ctx context.Context, orgID, dogID string) (bool, error) {
	if f.deleteDogFn != nil {
		return f.deleteDogFn(ctx, orgID, dogID)
	}
	return true, nil
}

func (f *fakeStore) InsertTransport(ctx context.Context, tr store.Transport) error {
	if f.insertTransportFn != nil {
		return f.insertTransportFn(ctx, tr)
	}
	return nil
}

func (f *fakeStore) GetTransport(ctx context.Context, orgID, id string) (store.Transport, error) {
	if f.getTransportFn != nil {
		return f.getTransportFn(ctx, orgID, id)
	}
	return store.Transport{}, sql.ErrNoRows
}

func (f *fakeStore) ListTransports(ctx context.Context, orgID, dogID, status string) ([]store.Transport, error) {
	if f.listTransportsFn != nil {
		return f.listTransportsFn(ctx, orgID, dogID, status)
	}
	return nil, nil
}

func (f *fakeStore) UpdateTransport(ctx context.Context, tr store.Transport) (bool, error) {
	if f.updateTransportFn != nil {
		return f.updateTransportFn(ctx, tr)
	}
	return true, nil
}

func (f *fakeStore) DeleteTransport(ctx context.Context, orgID, id string) (bool, error) {
	if f.deleteTransportFn != nil {
		return f.deleteTransportFn(ctx, orgID, id)
	}
	return true, nil
}

func (f *fakeStore) ListTransportsBetween(ctx context.Context, orgID string, from, to time.Time) ([]store.Transport, error) {
	if f.listTransportsBetweenFn != nil {
		return f.listTransportsBetweenFn(ctx, orgID, from, to)
	}
	return nil, nil
}

func (f *fakeStore) InsertContact(ctx context.Context, c store.Contact) error {
	if f.insertContactFn != nil {
		return f.insertContactFn(ctx, c)
	}
	return nil
}

func (f *fakeStore) GetContact(ctx context.Context, orgID, id string) (store.Contact, error) {
	if f.getContactFn != nil {
		return f.getContactFn(ctx, orgID, id)
	}
	return store.Contact{}, sql.ErrNoRows
}

func (f *fakeStore) ListContacts(ctx context.Context, orgID, kind string) ([]store.Contact, error) {
	if f.listContactsFn != nil {
		return f.listContactsFn(ctx, orgID, kind)
	}
	return nil, nil
}

func (f *fakeStore) UpdateContact(ctx context.Context, c store.Contact) (bool, error) {
	if f.updateContactFn != nil {
		return f.updateContactFn(ctx, c)
	}
	return true, nil
}

func (f *fakeStore) DeleteContact(ctx context.Context, orgID, id string) (bool, error) {
	if f.deleteContactFn != nil {
		return f.deleteContactFn(ctx, orgID, id)
	}
	return true, nil
}

func (f *fakeStore) InsertMedicalRecord(ctx context.Context, m store.MedicalRecord) error {
	if f.insertMedicalRecordFn != nil {
		return f.insertMedicalRecordFn(ctx, m)
	}
	return nil
}

func (f *fakeStore) GetMedicalRecord(ctx context.Context, orgID, id string) (store.MedicalRecord, error) {
	if f.getMedicalRecordFn != nil {
		return f.getMedicalRecordFn(ctx, orgID, id)
	}
	return store.MedicalRecord{}, sql.ErrNoRows
}

func (f *fakeStore) ListMedicalRecords(ctx context.Context, orgID, dogID string) ([]store.MedicalRecord, error) {
	if f.listMedicalRecordsFn != nil {
		return f.listMedicalRecordsFn(ctx, orgID, dogID)
	}
	return nil, nil
}

func (f *fakeStore) UpdateMedicalRecord(ctx context.Context, m store.MedicalRecord) (bool, error) {
	if f.updateMedicalRecordFn != nil {
		return f.updateMedicalRecordFn(ctx, m)
	}
	return true, nil
}

func (f *fakeStore) DeleteMedicalRecord(ctx context.Context, orgID, id string) (bool, error) {
	if f.deleteMedicalRecordFn != nil {
		return f.deleteMedicalRecordFn(ctx, orgID, id)
	}
	return true, nil
}

func (f *fakeStore) ListMedicalRecordsDueBetween(ctx context.Context, orgID string, from, to time.Time) ([]store.MedicalRecord, error) {
	if f.listMedicalRecordsDueBetween != nil {
		return f.listMedicalRecordsDueBetween(ctx, orgID, from, to)
	}
	return nil, nil
}

func (f *fakeStore) ListDogsInQuarantine(ctx context.Context, orgID string) ([]store.Dog, error) {
	if f.listDogsInQuarantineFn != nil {
		return f.listDogsInQuarantineFn(ctx, orgID)
	}
	return nil, nil
}

func (f *fakeStore) InsertCalendarEvent(ctx context.Context, ev store.CalendarEvent) error {
	if f.insertCalendarEventFn != nil {
		return f.insertCalendarEventFn(ctx, ev)
	}
	return nil
}

func (f *fakeStore) GetCalendarEvent(ctx context.Context, orgID, id string) (store.CalendarEvent, error) {
	if f.getCalendarEventFn != nil {
		return f.getCalendarEventFn(ctx, orgID, id)
	}
	return store.CalendarEvent{}, sql.ErrNoRows
}

func (f *fakeStore) ListCalendarEvents(ctx context.Context, orgID string, from, to time.Time) ([]store.CalendarEvent, error) {
	if f.listCalendarEventsFn != nil {
		return f.listCalendarEventsFn(ctx, orgID, from, to)
	}
	return nil, nil
}

func (f *fakeStore) UpdateCalendarEvent(ctx context.Context, ev store.CalendarEvent) (bool, error) {
	if f.updateCalendarEventFn != nil {
		return f.updateCalendarEventFn(ctx, ev)
	}
	return true, nil
}

func (f *fakeStore) DeleteCalendarEvent(ctx context.Context, orgID, id string) (bool, error) {
	if f.deleteCalendarEventFn != nil {
		return f.deleteCalendarEventFn(ctx, orgID, id)
	}
	return true, nil
}

func (f *fakeStore) InsertAuditEvent(ctx context.Context, ev store.AuditEvent) error {
	if f.insertAuditEventFn != nil {
		return f.insertAuditEventFn(ctx, ev)
	}
	return nil
}

func (f *fakeStore) ListAuditEvents(ctx context.Context, orgID string, filter store.AuditFilter) ([]store.AuditEvent, error) {
	if f.listAuditEventsFn != nil {
		return f.listAuditEventsFn(ctx, orgID, filter)
	}
	return nil, nil
}

func (f *fakeStore) InsertAttachment(ctx context.Context, a store.Attachment) error {
	if f.insertAttachmentFn != nil {
		return f.insertAttachmentFn(ctx, a)
	}
	return nil
}

func (f *fakeStore) GetAttachment(ctx context.Context, orgID, id string) (store.Attachment, error) {
	if f.getAttachmentFn != nil {
		return f.getAttachmentFn(ctx, orgID, id)
	}
	return store.Attachment{}, sql.ErrNoRows
}

func (f *fakeStore) ListAttachments(ctx context.Context, orgID, entityType, entityID string) ([]store.Attachment, error) {
	if f.listAttachmentsFn != nil {
		return f.listAttachmentsFn(ctx, orgID, entityType, entityID)
	}
	return nil, nil
}

func (f *fakeStore) DeleteAttachment(ctx context.Context, orgID, id string) (bool, error) {
	if f.deleteAttachmentFn != nil {
		return f.deleteAttachmentFn(ctx, orgID, id)
	}
	return true, nil
}

func newTestService(fs *fakeStore) *Service {
	cfg := config.Config{
		JWTSecret:  "test-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}
	return &Service{cfg: cfg, store: fs, refresh: refreshFake{fs}}
}

// refreshFake adapts fakeStore to the refresh session surface.
type refreshFake struct {
	fs *fakeStore
}

func (r refreshFake) SaveRefreshSession(ctx context.Context, hash, userID string, exp time.Time) error {
	return r.fs.SaveRefreshSession(ctx, hash, userID, exp)
}

func (r refreshFake) LookupRefreshSession(ctx context.Context, hash string) (store.User, error) {
	return r.fs.LookupRefreshSession(ctx, hash)
}

func (r refreshFake) RevokeRefreshSession(ctx context.Context, hash string) error {
	return r.fs.RevokeRefreshSession(ctx, hash)
}

func memberStore(role string, user store.User) *fakeStore {
	return &fakeStore{
		getUserByIDFn: func(_ context.Context, id string) (store.User, error) {
			if id == user.ID {
				return user, nil
			}
			return store.User{}, sql.ErrNoRows
		},
		getMembershipFn: func(_ context.Context, orgID, userID string) (store.Membership, error) {
			if userID == user.ID {
				return store.Membership{OrgID: orgID, UserID: userID, Role: role, NotifyEnabled: true}, nil
			}
			return store.Membership{}, sql.ErrNoRows
		},
	}
}

func TestCreateSessionIssuesTokenPair(t *testing.T) {
	saved := 0
	fs := memberStore("admin", store.User{ID: "user-1", DisplayName: "Avery", Email: "avery@example.com"})
	fs.saveRefreshSessionFn = func(_ context.Context, hash, userID string, _ time.Time) error {
		saved++
		if hash == "" {
			t.Fatalf("expected hashed refresh token")
		}
		if userID != "user-1" {
			t.Fatalf("expected user-1, got %s", userID)
		}
		return nil
	}
	svc := newTestService(fs)

	session, err := svc.CreateSession(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.Token == "" || session.RefreshToken == "" {
		t.Fatalf("expected token pair, got %+v", session)
	}
	if session.UserName != "Avery" {
		t.Fatalf("expected display name Avery, got %q", session.UserName)
	}
	if saved != 1 {
		t.Fatalf("expected one refresh session save, got %d", saved)
	}
}

func TestSessionFromTokenRejectsRevokedJTI(t *testing.T) {
	fs := memberStore("admin", store.User{ID: "user-1", DisplayName: "Avery"})
	fs.isAccessTokenRevokedFn = func(context.Context, string) (bool, error) {
		return true, nil
	}
	svc := newTestService(fs)

	session, err := svc.CreateSession(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if _, err := svc.SessionFromToken(context.Background(), session.Token); err == nil {
		t.Fatalf("expected revoked token to be rejected")
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	revoked := []string{}
	fs := memberStore("admin", store.User{ID: "user-1", DisplayName: "Avery"})
	fs.lookupRefreshSessionFn = func(_ context.Context, hash string) (store.User, error) {
		return store.User{ID: "user-1", DisplayName: "Avery"}, nil
	}
	fs.revokeRefreshSessionFn = func(_ context.Context, hash string) error {
		revoked = append(revoked, hash)
		return nil
	}
	svc := newTestService(fs)

	session, err := svc.Refresh(context.Background(), "old-refresh-token")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if session.RefreshToken == "" || session.RefreshToken == "old-refresh-token" {
		t.Fatalf("expected a new refresh token")
	}
	if len(revoked) != 1 {
		t.Fatalf("expected old refresh session revoked once, got %d", len(revoked))
	}
}

func TestCreateOrgMakesCallerAdmin(t *testing.T) {
	var membership store.Membership
	fs := memberStore("admin", store.User{ID: "user-1", DisplayName: "Avery"})
	fs.upsertMembershipFn = func(_ context.Context, m store.Membership) error {
		membership = m
		return nil
	}
	svc := newTestService(fs)

	payload, err := svc.CreateOrg(context.Background(), "  Happy Tails  ", Session{UserID: "user-1", UserName: "Avery"})
	if err != nil {
		t.Fatalf("CreateOrg: %v", err)
	}
	if payload["name"] != "Happy Tails" {
		t.Fatalf("expected trimmed name, got %v", payload["name"])
	}
	if membership.Role != "admin" || membership.UserID != "user-1" {
		t.Fatalf("expected admin membership for creator, got %+v", membership)
	}
	if !membership.NotifyEnabled {
		t.Fatalf("expected notifications on by default")
	}
}

func TestCreateOrgRejectsBlankName(t *testing.T) {
	svc := newTestService(&fakeStore{})
	if _, err := svc.CreateOrg(context.Background(), "   ", Session{UserID: "user-1"}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestRequireMemberRejectsNonMember(t *testing.T) {
	svc := newTestService(&fakeStore{})
	_, err := svc.GetOrg(context.Background(), "org-1", Session{UserID: "stranger"})
	if err == nil {
		t.Fatalf("expected membership error")
	}
	status, code, _, _ := mapError(err)
	if status != 403 || code != "NOT_A_MEMBER" {
		t.Fatalf("expected 403 NOT_A_MEMBER, got %d %s", status, code)
	}
}

func TestViewerCannotCreateDog(t *testing.T) {
	fs := memberStore("viewer", store.User{ID: "user-1", DisplayName: "Avery"})
	svc := newTestService(fs)

	_, err := svc.CreateDog(context.Background(), "org-1", DogInput{Name: "Rex"}, Session{UserID: "user-1"})
	if err == nil {
		t.Fatalf("expected forbidden")
	}
	status, code, _, _ := mapError(err)
	if status != 403 || code != "FORBIDDEN" {
		t.Fatalf("expected 403 FORBIDDEN, got %d %s", status, code)
	}
}

func TestUpdateDogStageChangeEmitsAudit(t *testing.T) {
	events := []store.AuditEvent{}
	fs := memberStore("coordinator", store.User{ID: "user-1", DisplayName: "Avery"})
	fs.getDogFn = func(_ context.Context, orgID, dogID string) (store.Dog, error) {
		return store.Dog{ID: dogID, OrgID: orgID, Name: "Rex", Stage: "intake"}, nil
	}
	fs.insertAuditEventFn = func(_ context.Context, ev store.AuditEvent) error {
		events = append(events, ev)
		return nil
	}
	svc := newTestService(fs)

	payload, err := svc.UpdateDog(context.Background(), "org-1", "dog-1", DogInput{Stage: "in_foster"}, Session{UserID: "user-1", UserName: "Avery"})
	if err != nil {
		t.Fatalf("UpdateDog: %v", err)
	}
	if payload["stage"] != "in_foster" {
		t.Fatalf("expected updated stage, got %v", payload["stage"])
	}
	if len(events) != 1 {
		t.Fatalf("expected exactly one audit event, got %d", len(events))
	}
	if events[0].EventType != "dog.stage_changed" {
		t.Fatalf("expected dog.stage_changed, got %s", events[0].EventType)
	}
	if string(events[0].Payload) == "" || events[0].EntityID != "dog-1" {
		t.Fatalf("unexpected audit event %+v", events[0])
	}
}

func TestUpdateDogRejectsUnknownStage(t *testing.T) {
	fs := memberStore("coordinator", store.User{ID: "user-1"})
	fs.getDogFn = func(_ context.Context, orgID, dogID string) (store.Dog, error) {
		return store.Dog{ID: dogID, OrgID: orgID, Name: "Rex", Stage: "intake"}, nil
	}
	svc := newTestService(fs)

	_, err := svc.UpdateDog(context.Background(), "org-1", "dog-1", DogInput{Stage: "hibernating"}, Session{UserID: "user-1"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestCreateTransportRequiresExistingDog(t *testing.T) {
	fs := memberStore("coordinator", store.User{ID: "user-1"})
	svc := newTestService(fs)

	_, err := svc.CreateTransport(context.Background(), "org-1", TransportInput{DogID: "ghost"}, Session{UserID: "user-1"})
	if err == nil {
		t.Fatalf("expected missing dog error")
	}
	status, _, _, _ := mapError(err)
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestInviteMemberUnknownEmail(t *testing.T) {
	fs := memberStore("admin", store.User{ID: "user-1", DisplayName: "Avery"})
	svc := newTestService(fs)

	_, err := svc.InviteMember(context.Background(), "org-1", "nobody@example.com", "foster", Session{UserID: "user-1"})
	if err == nil {
		t.Fatalf("expected USER_NOT_FOUND")
	}
	status, code, _, _ := mapError(err)
	if status != 404 || code != "USER_NOT_FOUND" {
		t.Fatalf("expected 404 USER_NOT_FOUND, got %d %s", status, code)
	}
}

func TestInviteMemberNormalizesRole(t *testing.T) {
	var upserted store.Membership
	fs := memberStore("admin", store.User{ID: "user-1", DisplayName: "Avery"})
	fs.getUserByEmailFn = func(_ context.Context, email string) (store.User, error) {
		return store.User{ID: "user-2", DisplayName: "Billie", Email: email}, nil
	}
	fs.upsertMembershipFn = func(_ context.Context, m store.Membership) error {
		upserted = m
		return nil
	}
	svc := newTestService(fs)

	payload, err := svc.InviteMember(context.Background(), "org-1", "Billie@Example.com", "bogus-role", Session{UserID: "user-1", UserName: "Avery"})
	if err != nil {
		t.Fatalf("InviteMember: %v", err)
	}
	if upserted.Role != "viewer" {
		t.Fatalf("expected unknown role normalized to viewer, got %s", upserted.Role)
	}
	if payload["userId"] != "user-2" {
		t.Fatalf("expected invited user id, got %v", payload["userId"])
	}
}

func TestCreateTransportStatusEnum(t *testing.T) {
	fs := memberStore("coordinator", store.User{ID: "user-1", DisplayName: "Avery"})
	fs.getDogFn = func(_ context.Context, orgID, dogID string) (store.Dog, error) {
		return store.Dog{ID: dogID, OrgID: orgID, Name: "Rex", Stage: "intake"}, nil
	}
	svc := newTestService(fs)
	session := Session{UserID: "user-1", UserName: "Avery"}

	payload, err := svc.CreateTransport(context.Background(), "org-1",
		TransportInput{DogID: "dog-1", ToLocation: "Portland", Status: "in_progress"}, session)
	if err != nil {
		t.Fatalf("CreateTransport: %v", err)
	}
	if payload["status"] != "in_progress" {
		t.Fatalf("expected in_progress status, got %v", payload["status"])
	}

	_, err = svc.CreateTransport(context.Background(), "org-1",
		TransportInput{DogID: "dog-1", ToLocation: "Portland", Status: "en_route"}, session)
	status, code, _, _ := mapError(err)
	if status != 422 || code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR for unknown status, got %d %s", status, code)
	}
}
