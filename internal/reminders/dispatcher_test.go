package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMembers struct {
	recipients []Recipient
}

func (f *fakeMembers) ListNotifiableMembers(ctx context.Context, orgID string) ([]Recipient, error) {
	return f.recipients, nil
}

type fakeMailer struct {
	configured bool
	sent       []string
}

func (f *fakeMailer) IsConfigured() bool { return f.configured }

func (f *fakeMailer) SendReminderEmail(to, userName, eventTitle, eventTime, location, eventURL string) error {
	f.sent = append(f.sent, to)
	return nil
}

func TestDispatchDueSendsToOptedInMembers(t *testing.T) {
	s := newRedisScheduler(t)
	ctx := context.Background()

	require.NoError(t, s.Schedule(ctx, Notification{
		Key:    "k1",
		Title:  "Vet visit",
		FireAt: time.Now().Add(-time.Minute),
		Data:   map[string]string{"orgId": "org_1", "eventId": "evt_1"},
	}))

	mailer := &fakeMailer{configured: true}
	d := NewDispatcher(s, &fakeMembers{recipients: []Recipient{
		{Email: "a@rescue.org", DisplayName: "A"},
		{Email: "b@rescue.org", DisplayName: "B"},
	}}, mailer, "https://app.example.com")

	require.NoError(t, d.DispatchDue(ctx))

	assert.ElementsMatch(t, []string{"a@rescue.org", "b@rescue.org"}, mailer.sent)

	remaining, err := s.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining, "dispatched reminder must be drained")
}

func TestDispatchDueLeavesFutureReminders(t *testing.T) {
	s := newRedisScheduler(t)
	ctx := context.Background()

	require.NoError(t, s.Schedule(ctx, Notification{
		Key:    "future",
		FireAt: time.Now().Add(time.Hour),
		Data:   map[string]string{"orgId": "org_1"},
	}))

	mailer := &fakeMailer{configured: true}
	d := NewDispatcher(s, &fakeMembers{}, mailer, "")

	require.NoError(t, d.DispatchDue(ctx))

	assert.Empty(t, mailer.sent)
	remaining, err := s.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
