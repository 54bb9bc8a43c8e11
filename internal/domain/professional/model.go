package professional

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Professional maps to the professional table.
type Professional struct {
	ID               uuid.UUID `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	Specialty        string    `db:"specialty" json:"specialty"`
	RegistrationCode *string   `db:"registration_code" json:"registration_code,omitempty"`
	Phone            *string   `db:"phone" json:"phone,omitempty"`
	Email            *string   `db:"email" json:"email,omitempty"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// WorkingHour maps to the working_hour table. The window is stored as
// minutes from midnight and never spans midnight.
type WorkingHour struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ProfessionalID uuid.UUID `db:"professional_id" json:"professional_id"`
	Weekday        int       `db:"weekday" json:"weekday"` // 0 = Sunday .. 6 = Saturday
	StartMinute    int       `db:"start_minute" json:"start_minute"`
	EndMinute      int       `db:"end_minute" json:"end_minute"`
	Active         bool      `db:"active" json:"active"`
}

// Contains reports whether the minute-of-day range [startMin, endMin] falls
// inside the working window.
func (w *WorkingHour) Contains(startMin, endMin int) bool {
	return startMin >= w.StartMinute && endMin <= w.EndMinute
}

// ScheduleBlock maps to the schedule_block table. Blocks mark a professional
// as unavailable for a time range (vacation, meetings, lunch).
type ScheduleBlock struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ProfessionalID uuid.UUID `db:"professional_id" json:"professional_id"`
	StartsAt       time.Time `db:"starts_at" json:"starts_at"`
	EndsAt         time.Time `db:"ends_at" json:"ends_at"`
	Reason         *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// TreatmentType maps to the treatment_type table. Each treatment belongs to
// exactly one professional and determines the appointment duration.
type TreatmentType struct {
	ID              uuid.UUID `db:"id" json:"id"`
	ProfessionalID  uuid.UUID `db:"professional_id" json:"professional_id"`
	Name            string    `db:"name" json:"name"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	PriceCents      *int      `db:"price_cents" json:"price_cents,omitempty"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ParseClock converts an "HH:MM" clock string into minutes from midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

// FormatClock converts minutes from midnight into an "HH:MM" string.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
