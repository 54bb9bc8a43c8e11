package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/appointment"
	"github.com/clinicdesk/clinicdesk/internal/domain/patient"
	"github.com/clinicdesk/clinicdesk/internal/domain/professional"
	"github.com/clinicdesk/clinicdesk/internal/platform/httpapi"
	"github.com/clinicdesk/clinicdesk/internal/platform/metrics"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

const (
	maxAttempts   = 3
	retryBackoff  = 5 * time.Minute
	dispatchBatch = 50
	retention     = 90 * 24 * time.Hour
)

// PatientDirectory resolves recipients.
type PatientDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// ProfessionalDirectory resolves the professional named in the message.
type ProfessionalDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*professional.Professional, error)
}

// AppointmentSource feeds the reminder job.
type AppointmentSource interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]*appointment.Appointment, error)
}

type Service struct {
	repo          Repository
	senders       map[string]Sender
	patients      PatientDirectory
	professionals ProfessionalDirectory
	appointments  AppointmentSource
	logger        zerolog.Logger
}

func NewService(repo Repository, senders map[string]Sender, patients PatientDirectory,
	professionals ProfessionalDirectory, appointments AppointmentSource, logger zerolog.Logger) *Service {
	return &Service{
		repo:          repo,
		senders:       senders,
		patients:      patients,
		professionals: professionals,
		appointments:  appointments,
		logger:        logger,
	}
}

// -- Appointment lifecycle events --

// AppointmentScheduled queues a booking confirmation for the patient.
func (s *Service) AppointmentScheduled(ctx context.Context, a *appointment.Appointment) {
	if err := s.enqueueForAppointment(ctx, a, TemplateScheduled, time.Now()); err != nil {
		s.logger.Error().Err(err).Str("appointment_id", a.ID.String()).
			Msg("failed to queue scheduled notification")
	}
}

// AppointmentCancelled queues a cancellation notice for the patient.
func (s *Service) AppointmentCancelled(ctx context.Context, a *appointment.Appointment) {
	if err := s.enqueueForAppointment(ctx, a, TemplateCancelled, time.Now()); err != nil {
		s.logger.Error().Err(err).Str("appointment_id", a.ID.String()).
			Msg("failed to queue cancellation notification")
	}
}

// enqueueForAppointment renders the template for the appointment's patient
// and queues one message per channel the patient is reachable on. Patients
// always have a phone; email is optional.
func (s *Service) enqueueForAppointment(ctx context.Context, a *appointment.Appointment, tmpl string, when time.Time) error {
	p, err := s.patients.Get(ctx, a.PatientID)
	if err != nil {
		return err
	}
	prof, err := s.professionals.Get(ctx, a.ProfessionalID)
	if err != nil {
		return err
	}

	subject, body, ok := Render(tmpl, map[string]string{
		"patient":      p.Name,
		"professional": prof.Name,
		"date":         a.StartsAt.Format("02 Jan 2006"),
		"time":         a.StartsAt.Format("15:04"),
	})
	if !ok {
		return errors.New("unknown notification template " + tmpl)
	}

	apptID := a.ID
	patientID := p.ID

	queue := func(channel, recipient string) error {
		n := &Notification{
			AppointmentID: &apptID,
			PatientID:     &patientID,
			Channel:       channel,
			Template:      tmpl,
			Recipient:     recipient,
			Body:          body,
			Status:        StatusPending,
			ScheduledFor:  when,
		}
		if channel == ChannelEmail {
			n.Subject = &subject
		}
		return s.repo.Create(ctx, n)
	}

	if err := queue(ChannelWhatsApp, p.Phone); err != nil {
		return err
	}
	if p.Email != nil && *p.Email != "" {
		return queue(ChannelEmail, *p.Email)
	}
	return nil
}

// EnqueueReminders queues reminder messages for appointments starting in
// [from, to), skipping those already reminded. Returns how many
// appointments were queued.
func (s *Service) EnqueueReminders(ctx context.Context, from, to time.Time) (int, error) {
	appts, err := s.appointments.ListBetween(ctx, from, to)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, a := range appts {
		exists, err := s.repo.ExistsForAppointment(ctx, a.ID, TemplateReminder)
		if err != nil {
			return queued, err
		}
		if exists {
			continue
		}
		if err := s.enqueueForAppointment(ctx, a, TemplateReminder, time.Now()); err != nil {
			s.logger.Error().Err(err).Str("appointment_id", a.ID.String()).
				Msg("failed to queue reminder")
			continue
		}
		queued++
	}
	return queued, nil
}

// DispatchDue drains the pending queue: every due notification gets one
// delivery attempt. Failures are retried with a backoff until the attempt
// budget is spent. Returns how many were delivered.
func (s *Service) DispatchDue(ctx context.Context) (int, error) {
	due, err := s.repo.ListDue(ctx, time.Now(), dispatchBatch)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, n := range due {
		if err := s.deliver(ctx, n); err != nil {
			s.logger.Warn().Err(err).
				Str("notification_id", n.ID.String()).
				Str("channel", n.Channel).
				Int("attempts", n.Attempts+1).
				Msg("notification delivery failed")
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *Service) deliver(ctx context.Context, n *Notification) error {
	sender, ok := s.senders[n.Channel]
	if !ok {
		err := errors.New("no sender configured for channel " + n.Channel)
		metrics.IncNotificationSent(n.Channel, "error")
		if markErr := s.repo.MarkAttemptFailed(ctx, n.ID, StatusFailed, err.Error(), time.Now()); markErr != nil {
			return markErr
		}
		return err
	}

	if err := sender.Send(ctx, n); err != nil {
		metrics.IncNotificationSent(n.Channel, "error")
		status := StatusPending
		if n.Attempts+1 >= maxAttempts {
			status = StatusFailed
		}
		if markErr := s.repo.MarkAttemptFailed(ctx, n.ID, status, err.Error(), time.Now().Add(retryBackoff)); markErr != nil {
			return markErr
		}
		return err
	}

	metrics.IncNotificationSent(n.Channel, "sent")
	return s.repo.MarkSent(ctx, n.ID, time.Now())
}

// Retry puts a failed notification back in the queue with a fresh attempt
// budget.
func (s *Service) Retry(ctx context.Context, id uuid.UUID) (*Notification, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status != StatusFailed {
		return nil, httpapi.Validation("only failed notifications can be retried")
	}
	if err := s.repo.Requeue(ctx, id, time.Now()); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Cleanup deletes delivered and failed notifications past the retention
// window. Returns how many rows were removed.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	return s.repo.DeleteOlderThan(ctx, time.Now().Add(-retention))
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httpapi.NotFound("notification not found")
	}
	return n, err
}

func (s *Service) Search(ctx context.Context, params map[string]string, pg pagination.Params) ([]*Notification, int, error) {
	return s.repo.Search(ctx, params, pg)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}
