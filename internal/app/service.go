package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"rescueops/api/internal/auth"
	"rescueops/api/internal/authpw"
	"rescueops/api/internal/config"
	"rescueops/api/internal/email"
	"rescueops/api/internal/rbac"
	"rescueops/api/internal/reminders"
	"rescueops/api/internal/search"
	"rescueops/api/internal/store"
	"rescueops/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	JTI          string
	ExpiresAt    time.Time
}

// dataStore is the storage surface the service depends on. PostgresStore is
// the production implementation; tests substitute function-field fakes.
type dataStore interface {
	Ping(ctx context.Context) error

	GetUserByID(context.Context, string) (store.User, error)
	GetUserByEmail(context.Context, string) (store.User, error)

	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)

	InsertOrg(context.Context, store.Org) error
	GetOrg(context.Context, string) (store.Org, error)
	ListOrgsForUser(context.Context, string) ([]store.Org, error)
	UpsertMembership(context.Context, store.Membership) error
	GetMembership(context.Context, string, string) (store.Membership, error)
	ListMemberships(context.Context, string) ([]store.Membership, error)
	UpdateMembershipRole(context.Context, string, string, string) (bool, error)
	SetMembershipNotify(context.Context, string, string, bool) (bool, error)
	DeleteMembership(context.Context, string, string) (bool, error)

	InsertDog(context.Context, store.Dog) error
	GetDog(context.Context, string, string) (store.Dog, error)
	ListDogs(context.Context, string, string, string) ([]store.Dog, error)
	UpdateDog(context.Context, store.Dog) (bool, error)
	DeleteDog(context.Context, string, string) (bool, error)

	InsertTransport(context.Context, store.Transport) error
	GetTransport(context.Context, string, string) (store.Transport, error)
	ListTransports(context.Context, string, string, string) ([]store.Transport, error)
	UpdateTransport(context.Context, store.Transport) (bool, error)
	DeleteTransport(context.Context, string, string) (bool, error)
	ListTransportsBetween(context.Context, string, time.Time, time.Time) ([]store.Transport, error)

	InsertContact(context.Context, store.Contact) error
	GetContact(context.Context, string, string) (store.Contact, error)
	ListContacts(context.Context, string, string) ([]store.Contact, error)
	UpdateContact(context.Context, store.Contact) (bool, error)
	DeleteContact(context.Context, string, string) (bool, error)

	InsertMedicalRecord(context.Context, store.MedicalRecord) error
	GetMedicalRecord(context.Context, string, string) (store.MedicalRecord, error)
	ListMedicalRecords(context.Context, string, string) ([]store.MedicalRecord, error)
	UpdateMedicalRecord(context.Context, store.MedicalRecord) (bool, error)
	DeleteMedicalRecord(context.Context, string, string) (bool, error)
	ListMedicalRecordsDueBetween(context.Context, string, time.Time, time.Time) ([]store.MedicalRecord, error)

	ListDogsInQuarantine(context.Context, string) ([]store.Dog, error)

	InsertCalendarEvent(context.Context, store.CalendarEvent) error
	GetCalendarEvent(context.Context, string, string) (store.CalendarEvent, error)
	ListCalendarEvents(context.Context, string, time.Time, time.Time) ([]store.CalendarEvent, error)
	UpdateCalendarEvent(context.Context, store.CalendarEvent) (bool, error)
	DeleteCalendarEvent(context.Context, string, string) (bool, error)

	InsertAuditEvent(context.Context, store.AuditEvent) error
	ListAuditEvents(context.Context, string, store.AuditFilter) ([]store.AuditEvent, error)

	InsertAttachment(context.Context, store.Attachment) error
	GetAttachment(context.Context, string, string) (store.Attachment, error)
	ListAttachments(context.Context, string, string, string) ([]store.Attachment, error)
	DeleteAttachment(context.Context, string, string) (bool, error)
}

// refreshStore holds refresh sessions; Redis in production with the Postgres
// store as fallback when Redis is not configured.
type refreshStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

// objectStorage issues presigned URLs for attachment blobs.
type objectStorage interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	cfg        config.Config
	store      dataStore
	refresh    refreshStore
	authpw     *authpw.Service
	email      *email.Service
	search     *search.Service
	storage    objectStorage
	reconciler *reminders.Reconciler
}

func New(cfg config.Config, dataStore *store.PostgresStore) *Service {
	s := &Service{
		cfg:     cfg,
		store:   dataStore,
		refresh: dataStore,
	}
	s.reconciler = reminders.NewReconciler(eventSource{s}, nil, optInSource{s}, cfg.NotificationsEnabled, cfg.ReminderWindowDays)
	return s
}

// SetRefreshStore swaps the refresh session backend (Redis when available).
func (s *Service) SetRefreshStore(rs refreshStore) {
	if rs != nil {
		s.refresh = rs
	}
}

func (s *Service) SetAuthPasswordService(svc *authpw.Service) { s.authpw = svc }

func (s *Service) AuthPasswordService() *authpw.Service { return s.authpw }

func (s *Service) SetEmailService(svc *email.Service) { s.email = svc }

func (s *Service) SetSearchService(svc *search.Service) { s.search = svc }

func (s *Service) SetObjectStorage(st objectStorage) { s.storage = st }

// SetScheduler wires the reminder scheduler backend and rebuilds the
// reconciler around it.
func (s *Service) SetScheduler(sched reminders.Scheduler) {
	s.reconciler = reminders.NewReconciler(eventSource{s}, sched, optInSource{s}, s.cfg.NotificationsEnabled, s.cfg.ReminderWindowDays)
}

func (s *Service) Reconciler() *reminders.Reconciler { return s.reconciler }

func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ── sessions ──

func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.refresh.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.refresh.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	if user.DisplayName == "" {
		full, err := s.store.GetUserByID(ctx, user.ID)
		if err == nil {
			user = full
		}
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), user.ID, user.DisplayName, jti, expiresAt)
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.refresh.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Email:        user.Email,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Email:     user.Email,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.refresh.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// ── orgs and memberships ──

// requireMember resolves the caller's membership in an org and checks the
// requested action against their role.
func (s *Service) requireMember(ctx context.Context, orgID, userID string, action rbac.Action) (store.Membership, error) {
	member, err := s.store.GetMembership(ctx, orgID, userID)
	if err != nil {
		return store.Membership{}, domainError(http.StatusForbidden, "NOT_A_MEMBER", "You are not a member of this organization", nil)
	}
	if !rbac.Can(rbac.Normalize(member.Role), action) {
		return store.Membership{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	return member, nil
}

func (s *Service) CreateOrg(ctx context.Context, name string, session Session) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}

	org := store.Org{
		ID:        util.NewID("org"),
		Name:      name,
		CreatedBy: session.UserID,
	}
	if err := s.store.InsertOrg(ctx, org); err != nil {
		return nil, err
	}

	if err := s.store.UpsertMembership(ctx, store.Membership{
		OrgID:         org.ID,
		UserID:        session.UserID,
		Role:          string(rbac.RoleAdmin),
		NotifyEnabled: true,
	}); err != nil {
		return nil, err
	}

	s.audit(ctx, org.ID, "org", org.ID, "org.created", fmt.Sprintf("%s created the organization", session.UserName), nil, session.UserID)

	return map[string]any{"id": org.ID, "name": org.Name, "role": string(rbac.RoleAdmin)}, nil
}

func (s *Service) ListOrgs(ctx context.Context, session Session) (map[string]any, error) {
	orgs, err := s.store.ListOrgsForUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(orgs))
	for _, org := range orgs {
		items = append(items, map[string]any{"id": org.ID, "name": org.Name})
	}
	return map[string]any{"orgs": items}, nil
}

func (s *Service) GetOrg(ctx context.Context, orgID string, session Session) (map[string]any, error) {
	member, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead)
	if err != nil {
		return nil, err
	}
	org, err := s.store.GetOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":            org.ID,
		"name":          org.Name,
		"role":          member.Role,
		"notifyEnabled": member.NotifyEnabled,
	}, nil
}

// InviteMember adds an existing user to an org by email and notifies them.
func (s *Service) InviteMember(ctx context.Context, orgID, inviteeEmail, role string, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionAdmin); err != nil {
		return nil, err
	}

	role = string(rbac.Normalize(role))
	inviteeEmail = strings.TrimSpace(strings.ToLower(inviteeEmail))
	if inviteeEmail == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "email is required", nil)
	}

	invitee, err := s.store.GetUserByEmail(ctx, inviteeEmail)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "USER_NOT_FOUND", "No account exists for that email", nil)
	}

	if err := s.store.UpsertMembership(ctx, store.Membership{
		OrgID:         orgID,
		UserID:        invitee.ID,
		Role:          role,
		NotifyEnabled: true,
	}); err != nil {
		return nil, err
	}

	s.audit(ctx, orgID, "membership", invitee.ID, "member.invited",
		fmt.Sprintf("%s added %s as %s", session.UserName, invitee.DisplayName, role), nil, session.UserID)

	if s.SMTPConfigured() {
		org, orgErr := s.store.GetOrg(ctx, orgID)
		if orgErr == nil {
			joinURL := fmt.Sprintf("%s/orgs/%s", s.cfg.AppBaseURL, orgID)
			if err := s.email.SendInviteEmail(invitee.Email, org.Name, session.UserName, role, joinURL); err != nil {
				log.Printf("invite email to %s: %v", invitee.Email, err)
			}
		}
	}

	return map[string]any{"userId": invitee.ID, "role": role}, nil
}

func (s *Service) ListMembers(ctx context.Context, orgID string, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}
	members, err := s.store.ListMemberships(ctx, orgID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(members))
	for _, m := range members {
		items = append(items, map[string]any{
			"userId":        m.UserID,
			"displayName":   m.DisplayName,
			"email":         m.Email,
			"role":          m.Role,
			"notifyEnabled": m.NotifyEnabled,
		})
	}
	return map[string]any{"members": items}, nil
}

func (s *Service) UpdateMemberRole(ctx context.Context, orgID, userID, role string, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionAdmin); err != nil {
		return nil, err
	}
	role = string(rbac.Normalize(role))
	updated, err := s.store.UpdateMembershipRole(ctx, orgID, userID, role)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, notFound("Membership")
	}
	s.audit(ctx, orgID, "membership", userID, "member.role_changed",
		fmt.Sprintf("%s changed a member role to %s", session.UserName, role), nil, session.UserID)
	return map[string]any{"userId": userID, "role": role}, nil
}

// SetNotifyEnabled is the caller's own opt-in toggle for reminder delivery.
func (s *Service) SetNotifyEnabled(ctx context.Context, orgID string, enabled bool, session Session) (map[string]any, error) {
	if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionRead); err != nil {
		return nil, err
	}
	updated, err := s.store.SetMembershipNotify(ctx, orgID, session.UserID, enabled)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, notFound("Membership")
	}
	return map[string]any{"notifyEnabled": enabled}, nil
}

func (s *Service) RemoveMember(ctx context.Context, orgID, userID string, session Session) error {
	if userID != session.UserID {
		if _, err := s.requireMember(ctx, orgID, session.UserID, rbac.ActionAdmin); err != nil {
			return err
		}
	}
	removed, err := s.store.DeleteMembership(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return notFound("Membership")
	}
	s.audit(ctx, orgID, "membership", userID, "member.removed",
		fmt.Sprintf("%s removed a member", session.UserName), nil, session.UserID)
	return nil
}

// ── search ──

func (s *Service) Search(ctx context.Context, q search.Query, session Session) (search.Response, error) {
	if q.OrgID == "" {
		return search.Response{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "orgId is required", nil)
	}
	if _, err := s.requireMember(ctx, q.OrgID, session.UserID, rbac.ActionRead); err != nil {
		return search.Response{}, err
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}, nil
	}
	return s.search.Search(q), nil
}

// ── audit ──

// audit records a best-effort audit event; failures are logged, not
// propagated, so a history write never fails the mutation it describes.
func (s *Service) audit(ctx context.Context, orgID, entityType, entityID, eventType, summary string, payload map[string]any, userID string) {
	ev := store.AuditEvent{
		ID:         util.NewID("ae"),
		OrgID:      orgID,
		EntityType: entityType,
		EntityID:   entityID,
		EventType:  eventType,
		Summary:    summary,
		Payload:    mustJSON(payload),
		Related:    mustJSON(map[string]any{"system": false}),
		CreatedBy:  userID,
	}
	if err := s.store.InsertAuditEvent(ctx, ev); err != nil {
		log.Printf("audit %s %s: %v", eventType, entityID, err)
	}
}

func mustJSON(v any) json.RawMessage {
	if v == nil {
		return json.RawMessage(`{}`)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}
