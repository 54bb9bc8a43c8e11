package professional

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/cache"
	"github.com/clinicdesk/clinicdesk/internal/platform/httpapi"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

type Service struct {
	professionals Repository
	workingHours  WorkingHourRepository
	blocks        ScheduleBlockRepository
	treatments    TreatmentTypeRepository
	cache         cache.Cache
}

func NewService(prof Repository, wh WorkingHourRepository, blocks ScheduleBlockRepository, treatments TreatmentTypeRepository, c cache.Cache) *Service {
	return &Service{professionals: prof, workingHours: wh, blocks: blocks, treatments: treatments, cache: c}
}

// invalidateAvailability drops cached availability for a professional after
// anything that affects their free slots changes.
func (s *Service) invalidateAvailability(ctx context.Context, professionalID uuid.UUID) {
	_ = s.cache.DeletePrefix(ctx, "avail:"+professionalID.String())
}

// -- Professional --

func (s *Service) Create(ctx context.Context, p *Professional) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return httpapi.Validation("name is required")
	}
	if strings.TrimSpace(p.Specialty) == "" {
		return httpapi.Validation("specialty is required")
	}
	p.Active = true
	return s.professionals.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Professional, error) {
	p, err := s.professionals.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httpapi.NotFound("professional not found")
	}
	return p, err
}

func (s *Service) Update(ctx context.Context, p *Professional) error {
	existing, err := s.Get(ctx, p.ID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = existing.Name
	}
	if strings.TrimSpace(p.Specialty) == "" {
		p.Specialty = existing.Specialty
	}
	return s.professionals.Update(ctx, p)
}

func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.professionals.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.invalidateAvailability(ctx, id)
	return nil
}

func (s *Service) Search(ctx context.Context, params map[string]string, pg pagination.Params) ([]*Professional, int, error) {
	return s.professionals.Search(ctx, params, pg)
}

// -- Working hours --

// ReplaceWorkingHours swaps the full weekly schedule. Each weekday may
// appear at most once and windows must not span midnight.
func (s *Service) ReplaceWorkingHours(ctx context.Context, professionalID uuid.UUID, hours []*WorkingHour) error {
	if _, err := s.Get(ctx, professionalID); err != nil {
		return err
	}

	seen := map[int]bool{}
	for _, w := range hours {
		if w.Weekday < 0 || w.Weekday > 6 {
			return httpapi.Validation("weekday must be between 0 (Sunday) and 6 (Saturday), got %d", w.Weekday)
		}
		if seen[w.Weekday] {
			return httpapi.Validation("duplicate working hour for weekday %d", w.Weekday)
		}
		seen[w.Weekday] = true
		if w.StartMinute < 0 || w.EndMinute > 24*60 || w.StartMinute >= w.EndMinute {
			return httpapi.Validation("invalid working window %s-%s",
				FormatClock(w.StartMinute), FormatClock(w.EndMinute))
		}
	}

	if err := s.workingHours.Replace(ctx, professionalID, hours); err != nil {
		return err
	}
	s.invalidateAvailability(ctx, professionalID)
	return nil
}

func (s *Service) ListWorkingHours(ctx context.Context, professionalID uuid.UUID) ([]*WorkingHour, error) {
	if _, err := s.Get(ctx, professionalID); err != nil {
		return nil, err
	}
	return s.workingHours.ListByProfessional(ctx, professionalID)
}

// WorkingHourFor returns the active working hour for a weekday, or nil when
// the professional does not work that day.
func (s *Service) WorkingHourFor(ctx context.Context, professionalID uuid.UUID, weekday time.Weekday) (*WorkingHour, error) {
	w, err := s.workingHours.GetForWeekday(ctx, professionalID, int(weekday))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return w, err
}

// -- Schedule blocks --

func (s *Service) CreateBlock(ctx context.Context, b *ScheduleBlock) error {
	if _, err := s.Get(ctx, b.ProfessionalID); err != nil {
		return err
	}
	if b.StartsAt.IsZero() || b.EndsAt.IsZero() {
		return httpapi.Validation("starts_at and ends_at are required")
	}
	if !b.EndsAt.After(b.StartsAt) {
		return httpapi.Validation("ends_at must be after starts_at")
	}
	if err := s.blocks.Create(ctx, b); err != nil {
		return err
	}
	s.invalidateAvailability(ctx, b.ProfessionalID)
	return nil
}

func (s *Service) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	b, err := s.blocks.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return httpapi.NotFound("schedule block not found")
	}
	if err != nil {
		return err
	}
	if err := s.blocks.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateAvailability(ctx, b.ProfessionalID)
	return nil
}

func (s *Service) ListBlocks(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]*ScheduleBlock, error) {
	if _, err := s.Get(ctx, professionalID); err != nil {
		return nil, err
	}
	return s.blocks.ListByProfessional(ctx, professionalID, from, to)
}

// BlocksOverlapping returns blocks intersecting [start, end).
func (s *Service) BlocksOverlapping(ctx context.Context, professionalID uuid.UUID, start, end time.Time) ([]*ScheduleBlock, error) {
	return s.blocks.ListOverlapping(ctx, professionalID, start, end)
}

// -- Treatment types --

func (s *Service) CreateTreatmentType(ctx context.Context, t *TreatmentType) error {
	if _, err := s.Get(ctx, t.ProfessionalID); err != nil {
		return err
	}
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return httpapi.Validation("name is required")
	}
	if t.DurationMinutes <= 0 {
		return httpapi.Validation("duration_minutes must be positive")
	}
	t.Active = true
	return s.treatments.Create(ctx, t)
}

func (s *Service) GetTreatmentType(ctx context.Context, id uuid.UUID) (*TreatmentType, error) {
	t, err := s.treatments.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httpapi.NotFound("treatment type not found")
	}
	return t, err
}

func (s *Service) UpdateTreatmentType(ctx context.Context, t *TreatmentType) error {
	existing, err := s.GetTreatmentType(ctx, t.ID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(t.Name) == "" {
		t.Name = existing.Name
	}
	if t.DurationMinutes == 0 {
		t.DurationMinutes = existing.DurationMinutes
	}
	if t.DurationMinutes < 0 {
		return httpapi.Validation("duration_minutes must be positive")
	}
	return s.treatments.Update(ctx, t)
}

func (s *Service) SetTreatmentTypeActive(ctx context.Context, id uuid.UUID, active bool) error {
	if _, err := s.GetTreatmentType(ctx, id); err != nil {
		return err
	}
	return s.treatments.SetActive(ctx, id, active)
}

func (s *Service) ListTreatmentTypes(ctx context.Context, professionalID uuid.UUID) ([]*TreatmentType, error) {
	if _, err := s.Get(ctx, professionalID); err != nil {
		return nil, err
	}
	return s.treatments.ListByProfessional(ctx, professionalID)
}
