package notification

import (
	"time"

	"github.com/google/uuid"
)

// Delivery channels.
const (
	ChannelEmail    = "EMAIL"
	ChannelWhatsApp = "WHATSAPP"
)

// Delivery statuses. PENDING rows are picked up by the dispatcher; FAILED
// is terminal once the attempt budget is spent.
const (
	StatusPending = "PENDING"
	StatusSent    = "SENT"
	StatusFailed  = "FAILED"
)

// Notification is one queued message for one recipient on one channel.
type Notification struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AppointmentID *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	PatientID     *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	Channel       string     `db:"channel" json:"channel"`
	Template      string     `db:"template" json:"template"`
	Recipient     string     `db:"recipient" json:"recipient"`
	Subject       *string    `db:"subject" json:"subject,omitempty"`
	Body          string     `db:"body" json:"body"`
	Status        string     `db:"status" json:"status"`
	Attempts      int        `db:"attempts" json:"attempts"`
	LastError     *string    `db:"last_error" json:"last_error,omitempty"`
	ScheduledFor  time.Time  `db:"scheduled_for" json:"scheduled_for"`
	SentAt        *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}
