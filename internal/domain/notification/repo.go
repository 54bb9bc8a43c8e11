package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

var ErrNotFound = errors.New("notification not found")

// Stats counts notifications per status.
type Stats struct {
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	// ListDue returns PENDING notifications whose scheduled_for has passed,
	// oldest first, capped at limit.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	// MarkAttemptFailed records a failed attempt. status is PENDING when the
	// dispatcher will retry and FAILED when the attempt budget is spent;
	// nextAttempt only matters for retries.
	MarkAttemptFailed(ctx context.Context, id uuid.UUID, status string, lastError string, nextAttempt time.Time) error
	// Requeue puts a FAILED notification back in the queue.
	Requeue(ctx context.Context, id uuid.UUID, scheduledFor time.Time) error
	Search(ctx context.Context, params map[string]string, pg pagination.Params) ([]*Notification, int, error)
	Stats(ctx context.Context) (*Stats, error)
	// DeleteOlderThan removes delivered or failed rows older than the cutoff
	// and reports how many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	// ExistsForAppointment reports whether a notification for the given
	// appointment and template already exists, so jobs do not queue
	// duplicate reminders.
	ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID, template string) (bool, error)
}
