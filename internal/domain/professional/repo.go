package professional

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

type Repository interface {
	Create(ctx context.Context, p *Professional) error
	GetByID(ctx context.Context, id uuid.UUID) (*Professional, error)
	Update(ctx context.Context, p *Professional) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Search(ctx context.Context, params map[string]string, pg pagination.Params) ([]*Professional, int, error)
}

type WorkingHourRepository interface {
	// Replace swaps the full weekly schedule of a professional in one
	// transaction.
	Replace(ctx context.Context, professionalID uuid.UUID, hours []*WorkingHour) error
	ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]*WorkingHour, error)
	// GetForWeekday returns the active working hour for a weekday, or
	// ErrNotFound when the professional does not work that day.
	GetForWeekday(ctx context.Context, professionalID uuid.UUID, weekday int) (*WorkingHour, error)
}

type ScheduleBlockRepository interface {
	Create(ctx context.Context, b *ScheduleBlock) error
	GetByID(ctx context.Context, id uuid.UUID) (*ScheduleBlock, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]*ScheduleBlock, error)
	// ListOverlapping returns blocks intersecting [start, end).
	ListOverlapping(ctx context.Context, professionalID uuid.UUID, start, end time.Time) ([]*ScheduleBlock, error)
}

type TreatmentTypeRepository interface {
	Create(ctx context.Context, t *TreatmentType) error
	GetByID(ctx context.Context, id uuid.UUID) (*TreatmentType, error)
	Update(ctx context.Context, t *TreatmentType) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]*TreatmentType, error)
}
