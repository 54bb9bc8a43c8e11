package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/appointment"
	"github.com/clinicdesk/clinicdesk/internal/domain/patient"
	"github.com/clinicdesk/clinicdesk/internal/domain/professional"
	"github.com/clinicdesk/clinicdesk/internal/platform/httpapi"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

// -- Mocks --

type mockRepo struct {
	notifs map[uuid.UUID]*Notification
}

func newMockRepo() *mockRepo {
	return &mockRepo{notifs: make(map[uuid.UUID]*Notification)}
}

func (m *mockRepo) Create(_ context.Context, n *Notification) error {
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	n.UpdatedAt = time.Now()
	m.notifs[n.ID] = n
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Notification, error) {
	n, ok := m.notifs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

func (m *mockRepo) ListDue(_ context.Context, now time.Time, limit int) ([]*Notification, error) {
	var due []*Notification
	for _, n := range m.notifs {
		if n.Status == StatusPending && !n.ScheduledFor.After(now) {
			due = append(due, n)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (m *mockRepo) MarkSent(_ context.Context, id uuid.UUID, sentAt time.Time) error {
	n, ok := m.notifs[id]
	if !ok {
		return ErrNotFound
	}
	n.Status = StatusSent
	n.Attempts++
	n.SentAt = &sentAt
	n.LastError = nil
	return nil
}

func (m *mockRepo) MarkAttemptFailed(_ context.Context, id uuid.UUID, status, lastError string, nextAttempt time.Time) error {
	n, ok := m.notifs[id]
	if !ok {
		return ErrNotFound
	}
	n.Status = status
	n.Attempts++
	n.LastError = &lastError
	n.ScheduledFor = nextAttempt
	return nil
}

func (m *mockRepo) Requeue(_ context.Context, id uuid.UUID, scheduledFor time.Time) error {
	n, ok := m.notifs[id]
	if !ok {
		return ErrNotFound
	}
	n.Status = StatusPending
	n.Attempts = 0
	n.LastError = nil
	n.ScheduledFor = scheduledFor
	return nil
}

func (m *mockRepo) Search(_ context.Context, _ map[string]string, _ pagination.Params) ([]*Notification, int, error) {
	var result []*Notification
	for _, n := range m.notifs {
		result = append(result, n)
	}
	return result, len(result), nil
}

func (m *mockRepo) Stats(_ context.Context) (*Stats, error) {
	var stats Stats
	for _, n := range m.notifs {
		switch n.Status {
		case StatusPending:
			stats.Pending++
		case StatusSent:
			stats.Sent++
		case StatusFailed:
			stats.Failed++
		}
	}
	return &stats, nil
}

func (m *mockRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	deleted := 0
	for id, n := range m.notifs {
		if n.Status != StatusPending && n.CreatedAt.Before(cutoff) {
			delete(m.notifs, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockRepo) ExistsForAppointment(_ context.Context, appointmentID uuid.UUID, template string) (bool, error) {
	for _, n := range m.notifs {
		if n.AppointmentID != nil && *n.AppointmentID == appointmentID && n.Template == template {
			return true, nil
		}
	}
	return false, nil
}

type fakeSender struct {
	sent []*Notification
	err  error
}

func (f *fakeSender) Send(_ context.Context, n *Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

type mockPatients struct{ patients map[uuid.UUID]*patient.Patient }

func (m *mockPatients) Get(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, httpapi.NotFound("patient not found")
	}
	return p, nil
}

type mockProfessionals struct{ profs map[uuid.UUID]*professional.Professional }

func (m *mockProfessionals) Get(_ context.Context, id uuid.UUID) (*professional.Professional, error) {
	p, ok := m.profs[id]
	if !ok {
		return nil, httpapi.NotFound("professional not found")
	}
	return p, nil
}

type mockAppointments struct{ appts []*appointment.Appointment }

func (m *mockAppointments) ListBetween(_ context.Context, from, to time.Time) ([]*appointment.Appointment, error) {
	var result []*appointment.Appointment
	for _, a := range m.appts {
		if !a.StartsAt.Before(from) && a.StartsAt.Before(to) {
			result = append(result, a)
		}
	}
	return result, nil
}

// -- Fixture --

type fixture struct {
	svc      *Service
	repo     *mockRepo
	email    *fakeSender
	whatsapp *fakeSender
	appts    *mockAppointments

	appt *appointment.Appointment
}

func newFixture() *fixture {
	patientID := uuid.New()
	professionalID := uuid.New()
	email := "ana@example.com"

	appt := &appointment.Appointment{
		ID:             uuid.New(),
		PatientID:      patientID,
		ProfessionalID: professionalID,
		StartsAt:       time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		EndsAt:         time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC),
		Status:         appointment.StatusScheduled,
	}

	f := &fixture{
		repo:     newMockRepo(),
		email:    &fakeSender{},
		whatsapp: &fakeSender{},
		appts:    &mockAppointments{appts: []*appointment.Appointment{appt}},
		appt:     appt,
	}
	f.svc = NewService(
		f.repo,
		map[string]Sender{ChannelEmail: f.email, ChannelWhatsApp: f.whatsapp},
		&mockPatients{patients: map[uuid.UUID]*patient.Patient{
			patientID: {ID: patientID, Name: "Ana Souza", Phone: "+5511999990000", Email: &email, Active: true},
		}},
		&mockProfessionals{profs: map[uuid.UUID]*professional.Professional{
			professionalID: {ID: professionalID, Name: "Dr. Lima", Specialty: "Dermatology", Active: true},
		}},
		f.appts,
		zerolog.Nop(),
	)
	return f
}

// -- Tests --

func TestAppointmentScheduledQueuesBothChannels(t *testing.T) {
	f := newFixture()
	f.svc.AppointmentScheduled(context.Background(), f.appt)

	if len(f.repo.notifs) != 2 {
		t.Fatalf("queued %d notifications, want 2 (whatsapp + email)", len(f.repo.notifs))
	}
	channels := map[string]bool{}
	for _, n := range f.repo.notifs {
		channels[n.Channel] = true
		if n.Status != StatusPending {
			t.Errorf("status = %s, want %s", n.Status, StatusPending)
		}
		if n.Template != TemplateScheduled {
			t.Errorf("template = %s, want %s", n.Template, TemplateScheduled)
		}
	}
	if !channels[ChannelEmail] || !channels[ChannelWhatsApp] {
		t.Errorf("channels = %v, want both EMAIL and WHATSAPP", channels)
	}
}

func TestDispatchDueDelivers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.svc.AppointmentScheduled(ctx, f.appt)

	sent, err := f.svc.DispatchDue(ctx)
	if err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if sent != 2 {
		t.Fatalf("sent = %d, want 2", sent)
	}
	for _, n := range f.repo.notifs {
		if n.Status != StatusSent {
			t.Errorf("notification %s status = %s, want SENT", n.Channel, n.Status)
		}
		if n.SentAt == nil {
			t.Errorf("sent_at not recorded for %s", n.Channel)
		}
	}
}

func TestDispatchRetriesThenFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.whatsapp.err = errors.New("gateway timeout")
	f.email.err = errors.New("relay down")
	f.svc.AppointmentScheduled(ctx, f.appt)

	for i := 0; i < maxAttempts; i++ {
		// Pending retries are pushed into the future; pull them back.
		for _, n := range f.repo.notifs {
			n.ScheduledFor = time.Now()
		}
		sent, err := f.svc.DispatchDue(ctx)
		if err != nil {
			t.Fatalf("DispatchDue: %v", err)
		}
		if sent != 0 {
			t.Fatalf("sent = %d with broken senders, want 0", sent)
		}
	}

	for _, n := range f.repo.notifs {
		if n.Status != StatusFailed {
			t.Errorf("status after %d attempts = %s, want FAILED", maxAttempts, n.Status)
		}
		if n.Attempts != maxAttempts {
			t.Errorf("attempts = %d, want %d", n.Attempts, maxAttempts)
		}
		if n.LastError == nil {
			t.Error("last_error not recorded")
		}
	}
}

func TestRetryRequeuesFailed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.svc.AppointmentScheduled(ctx, f.appt)

	var target *Notification
	for _, n := range f.repo.notifs {
		target = n
		break
	}
	if _, err := f.svc.Retry(ctx, target.ID); err == nil {
		t.Fatal("retrying a PENDING notification should be rejected")
	}

	target.Status = StatusFailed
	target.Attempts = maxAttempts
	got, err := f.svc.Retry(ctx, target.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if got.Status != StatusPending || got.Attempts != 0 {
		t.Errorf("after retry status=%s attempts=%d, want PENDING/0", got.Status, got.Attempts)
	}
}

func TestEnqueueRemindersDedupes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	from := f.appt.StartsAt.Add(-time.Hour)
	to := f.appt.StartsAt.Add(time.Hour)

	queued, err := f.svc.EnqueueReminders(ctx, from, to)
	if err != nil {
		t.Fatalf("EnqueueReminders: %v", err)
	}
	if queued != 1 {
		t.Fatalf("queued = %d, want 1", queued)
	}

	queued, err = f.svc.EnqueueReminders(ctx, from, to)
	if err != nil {
		t.Fatalf("EnqueueReminders second run: %v", err)
	}
	if queued != 0 {
		t.Fatalf("second run queued = %d, want 0", queued)
	}
}

func TestRenderTemplates(t *testing.T) {
	subject, body, ok := Render(TemplateReminder, map[string]string{
		"patient":      "Ana",
		"professional": "Dr. Lima",
		"time":         "10:00",
	})
	if !ok {
		t.Fatal("known template reported missing")
	}
	if subject == "" {
		t.Error("empty subject")
	}
	want := "Hello Ana, this is a reminder of your appointment with Dr. Lima tomorrow at 10:00."
	if body != want {
		t.Errorf("body = %q, want %q", body, want)
	}

	if _, _, ok := Render("no-such-template", nil); ok {
		t.Error("unknown template reported as found")
	}
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	got := renderText("Hi {{patient}}, see {{unknown}}", map[string]string{"patient": "Ana"})
	want := "Hi Ana, see {{unknown}}"
	if got != want {
		t.Errorf("renderText = %q, want %q", got, want)
	}
}
