package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/patient"
	"github.com/clinicdesk/clinicdesk/internal/domain/professional"
	"github.com/clinicdesk/clinicdesk/internal/platform/cache"
	"github.com/clinicdesk/clinicdesk/internal/platform/httpapi"
	"github.com/clinicdesk/clinicdesk/internal/platform/metrics"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

const availabilityTTL = time.Minute

// PatientDirectory is the slice of the patient service the scheduler needs.
type PatientDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// ProfessionalDirectory is the slice of the professional service the
// scheduler needs: the professional itself, their working window for a
// weekday, their schedule blocks and their treatment catalogue.
type ProfessionalDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*professional.Professional, error)
	WorkingHourFor(ctx context.Context, professionalID uuid.UUID, weekday time.Weekday) (*professional.WorkingHour, error)
	BlocksOverlapping(ctx context.Context, professionalID uuid.UUID, start, end time.Time) ([]*professional.ScheduleBlock, error)
	GetTreatmentType(ctx context.Context, id uuid.UUID) (*professional.TreatmentType, error)
}

// Notifier is told about appointment lifecycle events so messages can be
// queued for the patient. Implementations handle their own failures.
type Notifier interface {
	AppointmentScheduled(ctx context.Context, a *Appointment)
	AppointmentCancelled(ctx context.Context, a *Appointment)
}

// NoopNotifier discards all events.
type NoopNotifier struct{}

func (NoopNotifier) AppointmentScheduled(context.Context, *Appointment) {}
func (NoopNotifier) AppointmentCancelled(context.Context, *Appointment) {}

type Service struct {
	repo          Repository
	patients      PatientDirectory
	professionals ProfessionalDirectory
	cache         cache.Cache
	notifier      Notifier
}

func NewService(repo Repository, patients PatientDirectory, professionals ProfessionalDirectory, c cache.Cache, n Notifier) *Service {
	if n == nil {
		n = NoopNotifier{}
	}
	return &Service{repo: repo, patients: patients, professionals: professionals, cache: c, notifier: n}
}

func (s *Service) invalidateAvailability(ctx context.Context, professionalID uuid.UUID) {
	_ = s.cache.DeletePrefix(ctx, "avail:"+professionalID.String())
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httpapi.NotFound("appointment not found")
	}
	return a, err
}

func (s *Service) Search(ctx context.Context, params map[string]string, pg pagination.Params) ([]*Appointment, int, error) {
	return s.repo.Search(ctx, params, pg)
}

// ListBetween exposes agenda-blocking appointments in [from, to) for
// background jobs such as reminders.
func (s *Service) ListBetween(ctx context.Context, from, to time.Time) ([]*Appointment, error) {
	return s.repo.ListBetween(ctx, from, to)
}

// Create books a new appointment. The slot must sit inside the
// professional's working hours and must not collide with another
// agenda-blocking appointment or a schedule block.
func (s *Service) Create(ctx context.Context, a *Appointment) error {
	if a.Status != "" && a.Status != StatusScheduled {
		return httpapi.Validation("new appointments always start as %s", StatusScheduled)
	}
	a.Status = StatusScheduled

	if err := s.validateSchedulable(ctx, a, nil); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, ErrConflict) {
			metrics.IncScheduleConflict()
			return httpapi.Conflict("the requested time is no longer available")
		}
		return err
	}

	metrics.IncAppointmentCreated()
	s.invalidateAvailability(ctx, a.ProfessionalID)
	s.notifier.AppointmentScheduled(ctx, a)
	return nil
}

// Update reschedules or annotates an existing non-terminal appointment.
// Zero-valued fields keep their current value; a time change is validated
// like a fresh booking, excluding the appointment itself from the conflict
// check.
func (s *Service) Update(ctx context.Context, a *Appointment) error {
	existing, err := s.Get(ctx, a.ID)
	if err != nil {
		return err
	}
	if IsTerminal(existing.Status) {
		return &httpapi.Error{
			Status:  http.StatusBadRequest,
			Code:    httpapi.CodeInvalidTransition,
			Message: fmt.Sprintf("appointment is %s and can no longer be modified", existing.Status),
		}
	}

	if a.PatientID == uuid.Nil {
		a.PatientID = existing.PatientID
	}
	if a.TreatmentTypeID == nil {
		a.TreatmentTypeID = existing.TreatmentTypeID
	}
	if a.StartsAt.IsZero() {
		a.StartsAt = existing.StartsAt
	}
	if a.EndsAt.IsZero() && a.StartsAt.Equal(existing.StartsAt) {
		a.EndsAt = existing.EndsAt
	}
	if a.Notes == nil {
		a.Notes = existing.Notes
	}
	if a.Observations == nil {
		a.Observations = existing.Observations
	}
	a.ProfessionalID = existing.ProfessionalID
	a.Status = existing.Status

	if err := s.validateSchedulable(ctx, a, &a.ID); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, a); err != nil {
		if errors.Is(err, ErrConflict) {
			metrics.IncScheduleConflict()
			return httpapi.Conflict("the requested time is no longer available")
		}
		return err
	}
	s.invalidateAvailability(ctx, a.ProfessionalID)
	return nil
}

// Transition moves an appointment through the status state machine.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to string, updatedBy *uuid.UUID) (*Appointment, error) {
	if !ValidStatus(to) {
		return nil, httpapi.Validation("unknown status %q", to)
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(a.Status, to) {
		return nil, httpapi.InvalidTransition(a.Status, to)
	}
	if err := s.repo.UpdateStatus(ctx, id, to, updatedBy); err != nil {
		return nil, err
	}
	a.Status = to
	a.UpdatedBy = updatedBy

	metrics.IncAppointmentStatusChanged(to)
	if IsTerminal(to) {
		// Terminal statuses stop blocking the agenda.
		s.invalidateAvailability(ctx, a.ProfessionalID)
	}
	if to == StatusCancelled {
		s.notifier.AppointmentCancelled(ctx, a)
	}
	return a, nil
}

// Availability lists free slots for a professional on a given day,
// cached briefly since the agenda view polls it.
func (s *Service) Availability(ctx context.Context, professionalID uuid.UUID, date time.Time, treatmentTypeID *uuid.UUID) ([]Slot, error) {
	if _, err := s.activeProfessional(ctx, professionalID); err != nil {
		return nil, err
	}

	duration := DefaultSlotDuration
	cacheSuffix := "default"
	if treatmentTypeID != nil {
		t, err := s.treatmentFor(ctx, professionalID, treatmentTypeID)
		if err != nil {
			return nil, err
		}
		duration = time.Duration(t.DurationMinutes) * time.Minute
		cacheSuffix = t.ID.String()
	}

	key := fmt.Sprintf("avail:%s:%s:%s", professionalID, date.Format("2006-01-02"), cacheSuffix)
	if raw, err := s.cache.Get(ctx, key); err == nil {
		var cached []Slot
		if json.Unmarshal(raw, &cached) == nil {
			return cached, nil
		}
	}

	slots, err := s.computeAvailability(ctx, professionalID, date, duration)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(slots); err == nil {
		_ = s.cache.Set(ctx, key, raw, availabilityTTL)
	}
	return slots, nil
}

func (s *Service) computeAvailability(ctx context.Context, professionalID uuid.UUID, date time.Time, duration time.Duration) ([]Slot, error) {
	wh, err := s.professionals.WorkingHourFor(ctx, professionalID, date.Weekday())
	if err != nil {
		return nil, err
	}
	if wh == nil {
		// The professional does not work that day.
		return []Slot{}, nil
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	windowStart := dayStart.Add(time.Duration(wh.StartMinute) * time.Minute)
	windowEnd := dayStart.Add(time.Duration(wh.EndMinute) * time.Minute)

	busy, err := s.busyIntervals(ctx, professionalID, windowStart, windowEnd, nil)
	if err != nil {
		return nil, err
	}
	return AvailableSlots(windowStart, windowEnd, duration, busy), nil
}

// CheckAvailability reports whether [start, end) is free for the
// professional. excludeID leaves one appointment out of the check so a
// reschedule does not conflict with itself.
func (s *Service) CheckAvailability(ctx context.Context, professionalID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	if _, err := s.activeProfessional(ctx, professionalID); err != nil {
		return false, err
	}
	if !end.After(start) {
		return false, httpapi.Validation("end must be after start")
	}
	busy, err := s.busyIntervals(ctx, professionalID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return len(busy) == 0, nil
}

func (s *Service) busyIntervals(ctx context.Context, professionalID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]Interval, error) {
	var busy []Interval

	appts, err := s.repo.ListOverlapping(ctx, professionalID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	for _, a := range appts {
		busy = append(busy, Interval{Start: a.StartsAt, End: a.EndsAt})
	}

	blocks, err := s.professionals.BlocksOverlapping(ctx, professionalID, start, end)
	if err != nil {
		return nil, err
	}
	for _, b := range blocks {
		busy = append(busy, Interval{Start: b.StartsAt, End: b.EndsAt})
	}
	return busy, nil
}

// validateSchedulable runs the full booking checks: referenced records exist
// and are active, the treatment belongs to the professional, the slot sits
// inside working hours and nothing else occupies it.
func (s *Service) validateSchedulable(ctx context.Context, a *Appointment, excludeID *uuid.UUID) error {
	if a.PatientID == uuid.Nil {
		return httpapi.Validation("patient_id is required")
	}
	if a.ProfessionalID == uuid.Nil {
		return httpapi.Validation("professional_id is required")
	}
	if a.StartsAt.IsZero() {
		return httpapi.Validation("starts_at is required")
	}

	p, err := s.patients.Get(ctx, a.PatientID)
	if err != nil {
		return err
	}
	if !p.Active {
		return httpapi.NotFound("patient not found")
	}

	if _, err := s.activeProfessional(ctx, a.ProfessionalID); err != nil {
		return err
	}

	if a.TreatmentTypeID != nil {
		t, err := s.treatmentFor(ctx, a.ProfessionalID, a.TreatmentTypeID)
		if err != nil {
			return err
		}
		if a.EndsAt.IsZero() {
			a.EndsAt = a.StartsAt.Add(time.Duration(t.DurationMinutes) * time.Minute)
		}
	}
	if a.EndsAt.IsZero() {
		a.EndsAt = a.StartsAt.Add(DefaultSlotDuration)
	}
	if !a.EndsAt.After(a.StartsAt) {
		return httpapi.Validation("ends_at must be after starts_at")
	}

	if err := s.checkWorkingHours(ctx, a); err != nil {
		return err
	}

	busy, err := s.busyIntervals(ctx, a.ProfessionalID, a.StartsAt, a.EndsAt, excludeID)
	if err != nil {
		return err
	}
	if len(busy) > 0 {
		metrics.IncScheduleConflict()
		return httpapi.Conflict("the requested time conflicts with an existing appointment or block")
	}
	return nil
}

func (s *Service) checkWorkingHours(ctx context.Context, a *Appointment) error {
	wh, err := s.professionals.WorkingHourFor(ctx, a.ProfessionalID, a.StartsAt.Weekday())
	if err != nil {
		return err
	}
	if wh == nil {
		return httpapi.OutsideWorkingHours("professional does not work on %s", a.StartsAt.Weekday())
	}

	startMin := a.StartsAt.Hour()*60 + a.StartsAt.Minute()
	endMin, ok := endMinuteSameDay(a.StartsAt, a.EndsAt)
	if !ok {
		return httpapi.OutsideWorkingHours("appointment must start and end on the same day")
	}
	if !wh.Contains(startMin, endMin) {
		return httpapi.OutsideWorkingHours("appointment falls outside working hours %s-%s",
			professional.FormatClock(wh.StartMinute), professional.FormatClock(wh.EndMinute))
	}
	return nil
}

// endMinuteSameDay converts the end time to a minute-of-day on the start's
// calendar day. Midnight at the start of the next day counts as 24:00.
func endMinuteSameDay(start, end time.Time) (int, bool) {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy == ey && sm == em && sd == ed {
		return end.Hour()*60 + end.Minute(), true
	}
	nextMidnight := time.Date(sy, sm, sd, 0, 0, 0, 0, start.Location()).AddDate(0, 0, 1)
	if end.Equal(nextMidnight) {
		return 24 * 60, true
	}
	return 0, false
}

func (s *Service) activeProfessional(ctx context.Context, id uuid.UUID) (*professional.Professional, error) {
	p, err := s.professionals.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, httpapi.NotFound("professional not found")
	}
	return p, nil
}

func (s *Service) treatmentFor(ctx context.Context, professionalID uuid.UUID, treatmentTypeID *uuid.UUID) (*professional.TreatmentType, error) {
	t, err := s.professionals.GetTreatmentType(ctx, *treatmentTypeID)
	if err != nil {
		return nil, err
	}
	if t.ProfessionalID != professionalID || !t.Active {
		return nil, httpapi.NotFound("treatment type not found")
	}
	return t, nil
}
