package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. SCHEDULED and CONFIRMED occupy the professional's
// agenda; COMPLETED, NO_SHOW and CANCELLED are terminal.
const (
	StatusScheduled = "SCHEDULED"
	StatusConfirmed = "CONFIRMED"
	StatusCompleted = "COMPLETED"
	StatusNoShow    = "NO_SHOW"
	StatusCancelled = "CANCELLED"
)

// ActiveStatuses are the statuses that block the agenda.
var ActiveStatuses = []string{StatusScheduled, StatusConfirmed}

// statusTransitions is the full state machine. Terminal statuses have no
// outgoing edges.
var statusTransitions = map[string][]string{
	StatusScheduled: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusNoShow, StatusCancelled},
	StatusCompleted: {},
	StatusNoShow:    {},
	StatusCancelled: {},
}

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s string) bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether the state machine allows moving from one
// status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(status string) bool {
	targets, ok := statusTransitions[status]
	return ok && len(targets) == 0
}

// Appointment maps to the appointment table.
type Appointment struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProfessionalID  uuid.UUID  `db:"professional_id" json:"professional_id"`
	TreatmentTypeID *uuid.UUID `db:"treatment_type_id" json:"treatment_type_id,omitempty"`
	StartsAt        time.Time  `db:"starts_at" json:"starts_at"`
	EndsAt          time.Time  `db:"ends_at" json:"ends_at"`
	Status          string     `db:"status" json:"status"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	Observations    *string    `db:"observations" json:"observations,omitempty"`
	CreatedBy       *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	UpdatedBy       *uuid.UUID `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
