package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State tracks where a sync run is in its lifecycle.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Result is the outcome of one reconciliation run.
type Result struct {
	State      State     `json:"state"`
	Message    string    `json:"message"`
	WindowDays int       `json:"windowDays"`
	Scheduled  int       `json:"scheduled"`
	Canceled   int       `json:"canceled"`
	SyncedAt   time.Time `json:"syncedAt"`
}

// EventSource supplies the authoritative upcoming events for an org. There
// is deliberately no cached or mock fallback behind this interface:
// scheduling reminders from fabricated data would be actively misleading.
type EventSource interface {
	ListUpcomingEvents(ctx context.Context, orgID string, from, to time.Time) ([]Event, error)
}

// OptInChecker reports whether a member has opted in to reminder delivery.
type OptInChecker interface {
	NotificationsOptedIn(ctx context.Context, orgID, userID string) (bool, error)
}

// Reconciler diffs the desired reminder set for a rolling window against
// the scheduler's pending set and applies the minimal cancel/schedule delta.
type Reconciler struct {
	events     EventSource
	scheduler  Scheduler
	optIn      OptInChecker
	enabled    bool
	windowDays int

	mu    sync.Mutex
	state State
	last  Result
}

func NewReconciler(events EventSource, scheduler Scheduler, optIn OptInChecker, enabled bool, windowDays int) *Reconciler {
	if windowDays <= 0 {
		windowDays = 14
	}
	return &Reconciler{
		events:     events,
		scheduler:  scheduler,
		optIn:      optIn,
		enabled:    enabled,
		windowDays: windowDays,
		state:      StateIdle,
	}
}

// Status returns the current state and the last completed result.
func (r *Reconciler) Status() (State, Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.last
}

// Sync runs one full reconciliation pass for the org. Any error aborts the
// whole run; there is no partial-success reporting.
func (r *Reconciler) Sync(ctx context.Context, orgID, userID string) Result {
	r.mu.Lock()
	r.state = StateSyncing
	r.mu.Unlock()

	res := r.run(ctx, orgID, userID)

	r.mu.Lock()
	r.state = res.State
	r.last = res
	r.mu.Unlock()
	return res
}

func (r *Reconciler) run(ctx context.Context, orgID, userID string) Result {
	now := time.Now()

	if orgID == "" {
		return r.fail(now, "no organization selected")
	}

	if !r.enabled || r.scheduler == nil {
		// Capability gate, not a failure. A missing scheduler backend means
		// scheduled notifications are simply unavailable in this deployment.
		return Result{
			State:      StateSuccess,
			Message:    "scheduled notifications are not supported here",
			WindowDays: r.windowDays,
			SyncedAt:   now,
		}
	}

	optedIn, err := r.optIn.NotificationsOptedIn(ctx, orgID, userID)
	if err != nil {
		return r.fail(now, fmt.Sprintf("check notification opt-in: %v", err))
	}
	if !optedIn {
		return r.fail(now, "notification permission missing")
	}

	events, err := r.events.ListUpcomingEvents(ctx, orgID, now, now.AddDate(0, 0, r.windowDays))
	if err != nil {
		return r.fail(now, fmt.Sprintf("fetch upcoming events: %v", err))
	}

	type pending struct {
		event    Event
		reminder Reminder
	}
	desired := make(map[string]pending)
	for _, ev := range events {
		for _, rem := range ev.Reminders {
			desired[DeterministicID(ev, rem)] = pending{event: ev, reminder: rem}
		}
	}

	scheduled, err := r.scheduler.ListScheduled(ctx)
	if err != nil {
		return r.fail(now, fmt.Sprintf("list scheduled reminders: %v", err))
	}

	have := make(map[string]bool)
	canceled := 0
	for _, n := range scheduled {
		key := KeyOf(n)
		if key == "" {
			continue
		}
		// The pending set is shared across orgs; only this org's entries are
		// in scope for stale cleanup. Entries without an org tag predate the
		// tagging and are cancel-eligible by any sync.
		if owner := n.Data["orgId"]; owner != "" && owner != orgID {
			continue
		}
		if _, wanted := desired[key]; !wanted {
			if err := r.scheduler.Cancel(ctx, key); err != nil {
				return r.fail(now, fmt.Sprintf("cancel stale reminder: %v", err))
			}
			canceled++
			continue
		}
		have[key] = true
	}

	added := 0
	for key, p := range desired {
		if have[key] {
			continue
		}
		fireAt := p.reminder.ScheduledAt
		if fireAt.IsZero() {
			fireAt = p.event.StartAt.Add(-time.Duration(p.reminder.OffsetMinutes) * time.Minute)
		}
		// Past fire times are skipped, never scheduled retroactively.
		if !fireAt.After(now) {
			continue
		}
		n := Notification{
			Key:    key,
			Title:  p.event.Title,
			Body:   fmt.Sprintf("Starts at %s", p.event.StartAt.Format("Jan 2 15:04")),
			FireAt: fireAt,
			Data: map[string]string{
				"deterministicKey": key,
				"orgId":            p.event.OrgID,
				"eventId":          p.event.EventID,
				"sourceType":       p.event.SourceType,
				"location":         p.event.Location,
				"startAt":          p.event.StartAt.Format(time.RFC3339),
			},
		}
		if err := r.scheduler.Schedule(ctx, n); err != nil {
			return r.fail(now, fmt.Sprintf("schedule reminder: %v", err))
		}
		added++
	}

	return Result{
		State:      StateSuccess,
		Message:    fmt.Sprintf("synced reminders for the next %d days", r.windowDays),
		WindowDays: r.windowDays,
		Scheduled:  added,
		Canceled:   canceled,
		SyncedAt:   now,
	}
}

func (r *Reconciler) fail(at time.Time, msg string) Result {
	if msg == "" {
		msg = "reminder sync failed"
	}
	return Result{
		State:      StateError,
		Message:    msg,
		WindowDays: r.windowDays,
		SyncedAt:   at,
	}
}
