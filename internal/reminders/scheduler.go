package reminders

import (
	"context"
	"time"
)

// Notification is one pending reminder delivery held by a Scheduler.
type Notification struct {
	Key    string            `json:"key"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	FireAt time.Time         `json:"fireAt"`
	Data   map[string]string `json:"data"`
}

// Scheduler is the pending-notification store the reconciler diffs against.
type Scheduler interface {
	ListScheduled(ctx context.Context) ([]Notification, error)
	Schedule(ctx context.Context, n Notification) error
	Cancel(ctx context.Context, key string) error
}

// legacy payload field names that older writers used for the key
var legacyKeyFields = []string{"deterministicKey", "deterministicId", "reminderId"}

// KeyOf extracts a notification's deterministic key, falling back through
// the legacy data-payload field names.
func KeyOf(n Notification) string {
	if n.Key != "" {
		return n.Key
	}
	for _, field := range legacyKeyFields {
		if v := n.Data[field]; v != "" {
			return v
		}
	}
	return ""
}
