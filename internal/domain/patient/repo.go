package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

// ErrNotFound is returned when a patient does not exist.
var ErrNotFound = errors.New("patient not found")

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Search(ctx context.Context, params map[string]string, pg pagination.Params) ([]*Patient, int, error)
}
