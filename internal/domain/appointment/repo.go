package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

var (
	ErrNotFound = errors.New("appointment not found")

	// ErrConflict is returned when an insert or update collides with another
	// agenda-blocking appointment, either in the pre-check or from the
	// database exclusion constraint.
	ErrConflict = errors.New("appointment overlaps an existing one")
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, updatedBy *uuid.UUID) error
	Search(ctx context.Context, params map[string]string, pg pagination.Params) ([]*Appointment, int, error)
	// ListOverlapping returns agenda-blocking appointments for the
	// professional intersecting [start, end). excludeID, when non-nil, is
	// left out of the result so a reschedule does not collide with itself.
	ListOverlapping(ctx context.Context, professionalID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*Appointment, error)
	// ListBetween returns agenda-blocking appointments starting in [from, to)
	// across all professionals, ordered by start time.
	ListBetween(ctx context.Context, from, to time.Time) ([]*Appointment, error)
}
