package patient

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/httpapi"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return httpapi.Validation("name is required")
	}
	if strings.TrimSpace(p.Phone) == "" {
		return httpapi.Validation("phone is required")
	}
	p.Active = true
	return s.patients.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httpapi.NotFound("patient not found")
	}
	return p, err
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	existing, err := s.Get(ctx, p.ID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = existing.Name
	}
	if strings.TrimSpace(p.Phone) == "" {
		p.Phone = existing.Phone
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.patients.SetActive(ctx, id, active)
}

func (s *Service) Search(ctx context.Context, params map[string]string, pg pagination.Params) ([]*Patient, int, error) {
	return s.patients.Search(ctx, params, pg)
}
