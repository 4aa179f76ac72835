package reminders

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Recipient is one org member eligible for reminder delivery.
type Recipient struct {
	Email       string
	DisplayName string
}

// MemberSource lists the members of an org who opted in to notifications.
type MemberSource interface {
	ListNotifiableMembers(ctx context.Context, orgID string) ([]Recipient, error)
}

// Mailer delivers a due reminder. Delivery is a best-effort side channel;
// failures are logged and never abort the dispatch loop.
type Mailer interface {
	IsConfigured() bool
	SendReminderEmail(to, userName, eventTitle, eventTime, location, eventURL string) error
}

// Dispatcher drains due notifications from the scheduler and emails them to
// opted-in org members on a cron cadence.
type Dispatcher struct {
	scheduler *RedisScheduler
	members   MemberSource
	mailer    Mailer
	baseURL   string
}

func NewDispatcher(scheduler *RedisScheduler, members MemberSource, mailer Mailer, baseURL string) *Dispatcher {
	return &Dispatcher{
		scheduler: scheduler,
		members:   members,
		mailer:    mailer,
		baseURL:   baseURL,
	}
}

// Start runs DispatchDue on the given cron spec until the returned cron is
// stopped.
func (d *Dispatcher) Start(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := d.DispatchDue(ctx); err != nil {
			log.Printf("reminders: dispatch: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule dispatch job: %w", err)
	}
	c.Start()
	return c, nil
}

// DispatchDue pops every notification whose fire time has arrived and sends
// it to the org's opted-in members.
func (d *Dispatcher) DispatchDue(ctx context.Context) error {
	due, err := d.scheduler.PopDue(ctx, time.Now().Unix())
	if err != nil {
		return err
	}

	for _, n := range due {
		orgID := n.Data["orgId"]
		if orgID == "" {
			log.Printf("reminders: dropping notification %s without org", n.Key)
			continue
		}

		recipients, err := d.members.ListNotifiableMembers(ctx, orgID)
		if err != nil {
			log.Printf("reminders: list recipients for %s: %v", orgID, err)
			continue
		}

		if !d.mailer.IsConfigured() {
			log.Printf("reminders: email not configured, dropping reminder %s", n.Key)
			continue
		}

		eventURL := ""
		if d.baseURL != "" && n.Data["eventId"] != "" {
			eventURL = fmt.Sprintf("%s/orgs/%s/events/%s", d.baseURL, orgID, n.Data["eventId"])
		}

		for _, rcpt := range recipients {
			if err := d.mailer.SendReminderEmail(rcpt.Email, rcpt.DisplayName, n.Title, n.Data["startAt"], n.Data["location"], eventURL); err != nil {
				log.Printf("reminders: send to %s: %v", rcpt.Email, err)
			}
		}
	}
	return nil
}
