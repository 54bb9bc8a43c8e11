package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/patient"
	"github.com/clinicdesk/clinicdesk/internal/domain/professional"
	"github.com/clinicdesk/clinicdesk/internal/platform/cache"
	"github.com/clinicdesk/clinicdesk/internal/platform/httpapi"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

// -- Mocks --

type mockRepo struct {
	appts map[uuid.UUID]*Appointment
	// createErr simulates a database-level failure on the next Create,
	// e.g. the exclusion constraint firing under concurrency.
	createErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	if m.createErr != nil {
		err := m.createErr
		m.createErr = nil
		return err
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	m.appts[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) error {
	existing, ok := m.appts[a.ID]
	if !ok {
		return ErrNotFound
	}
	a.CreatedAt = existing.CreatedAt
	m.appts[a.ID] = a
	return nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string, updatedBy *uuid.UUID) error {
	a, ok := m.appts[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.UpdatedBy = updatedBy
	return nil
}

func (m *mockRepo) Search(_ context.Context, _ map[string]string, _ pagination.Params) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		result = append(result, a)
	}
	return result, len(result), nil
}

func (m *mockRepo) ListOverlapping(_ context.Context, professionalID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*Appointment, error) {
	var result []*Appointment
	for _, a := range m.appts {
		if a.ProfessionalID != professionalID || !isActive(a.Status) {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.StartsAt.Before(end) && a.EndsAt.After(start) {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockRepo) ListBetween(_ context.Context, from, to time.Time) ([]*Appointment, error) {
	var result []*Appointment
	for _, a := range m.appts {
		if isActive(a.Status) && !a.StartsAt.Before(from) && a.StartsAt.Before(to) {
			result = append(result, a)
		}
	}
	return result, nil
}

func isActive(status string) bool {
	for _, s := range ActiveStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type mockPatients struct {
	patients map[uuid.UUID]*patient.Patient
}

func (m *mockPatients) Get(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, httpapi.NotFound("patient not found")
	}
	return p, nil
}

type mockDirectory struct {
	profs      map[uuid.UUID]*professional.Professional
	hours      map[uuid.UUID]map[int]*professional.WorkingHour
	blocks     []*professional.ScheduleBlock
	treatments map[uuid.UUID]*professional.TreatmentType
}

func (m *mockDirectory) Get(_ context.Context, id uuid.UUID) (*professional.Professional, error) {
	p, ok := m.profs[id]
	if !ok {
		return nil, httpapi.NotFound("professional not found")
	}
	return p, nil
}

func (m *mockDirectory) WorkingHourFor(_ context.Context, professionalID uuid.UUID, weekday time.Weekday) (*professional.WorkingHour, error) {
	return m.hours[professionalID][int(weekday)], nil
}

func (m *mockDirectory) BlocksOverlapping(_ context.Context, professionalID uuid.UUID, start, end time.Time) ([]*professional.ScheduleBlock, error) {
	var result []*professional.ScheduleBlock
	for _, b := range m.blocks {
		if b.ProfessionalID == professionalID && b.StartsAt.Before(end) && b.EndsAt.After(start) {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *mockDirectory) GetTreatmentType(_ context.Context, id uuid.UUID) (*professional.TreatmentType, error) {
	t, ok := m.treatments[id]
	if !ok {
		return nil, httpapi.NotFound("treatment type not found")
	}
	return t, nil
}

type recordingNotifier struct {
	scheduled int
	cancelled int
}

func (n *recordingNotifier) AppointmentScheduled(context.Context, *Appointment) { n.scheduled++ }
func (n *recordingNotifier) AppointmentCancelled(context.Context, *Appointment) { n.cancelled++ }

// -- Fixture --

type fixture struct {
	svc      *Service
	repo     *mockRepo
	patients *mockPatients
	dir      *mockDirectory
	notifier *recordingNotifier

	patientID      uuid.UUID
	professionalID uuid.UUID
	treatmentID    uuid.UUID
}

// newFixture wires a scheduler with one active patient and one active
// professional who works Mondays 09:00-12:00 and offers a 45m treatment.
func newFixture() *fixture {
	patientID := uuid.New()
	professionalID := uuid.New()
	treatmentID := uuid.New()

	f := &fixture{
		repo: newMockRepo(),
		patients: &mockPatients{patients: map[uuid.UUID]*patient.Patient{
			patientID: {ID: patientID, Name: "Ana Souza", Phone: "+5511999990000", Active: true},
		}},
		dir: &mockDirectory{
			profs: map[uuid.UUID]*professional.Professional{
				professionalID: {ID: professionalID, Name: "Dr. Lima", Specialty: "Dermatology", Active: true},
			},
			hours: map[uuid.UUID]map[int]*professional.WorkingHour{
				professionalID: {
					1: {ProfessionalID: professionalID, Weekday: 1, StartMinute: 9 * 60, EndMinute: 12 * 60, Active: true},
				},
			},
			treatments: map[uuid.UUID]*professional.TreatmentType{
				treatmentID: {ID: treatmentID, ProfessionalID: professionalID, Name: "Peeling", DurationMinutes: 45, Active: true},
			},
		},
		notifier:       &recordingNotifier{},
		patientID:      patientID,
		professionalID: professionalID,
		treatmentID:    treatmentID,
	}
	f.svc = NewService(f.repo, f.patients, f.dir, cache.NewNoop(), f.notifier)
	return f
}

func (f *fixture) book(t *testing.T, start, end time.Time) *Appointment {
	t.Helper()
	a := &Appointment{
		PatientID:      f.patientID,
		ProfessionalID: f.professionalID,
		StartsAt:       start,
		EndsAt:         end,
	}
	if err := f.svc.Create(context.Background(), a); err != nil {
		t.Fatalf("Create appointment: %v", err)
	}
	return a
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *httpapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

// -- Tests --

func TestCreateAppointment(t *testing.T) {
	f := newFixture()
	a := f.book(t, monday(9, 0), monday(9, 30))

	if a.Status != StatusScheduled {
		t.Errorf("status = %s, want %s", a.Status, StatusScheduled)
	}
	if f.notifier.scheduled != 1 {
		t.Errorf("scheduled notifications = %d, want 1", f.notifier.scheduled)
	}
}

func TestCreateDerivesEndFromTreatment(t *testing.T) {
	f := newFixture()
	a := &Appointment{
		PatientID:       f.patientID,
		ProfessionalID:  f.professionalID,
		TreatmentTypeID: &f.treatmentID,
		StartsAt:        monday(9, 0),
	}
	if err := f.svc.Create(context.Background(), a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !a.EndsAt.Equal(monday(9, 45)) {
		t.Errorf("ends_at = %v, want 09:45", a.EndsAt)
	}
}

func TestCreateOutsideWorkingHours(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cases := []struct {
		name       string
		start, end time.Time
	}{
		{"unconfigured weekday", monday(9, 0).AddDate(0, 0, -1), monday(9, 30).AddDate(0, 0, -1)},
		{"before window", monday(8, 30), monday(9, 0)},
		{"past window end", monday(11, 45), monday(12, 15)},
		{"spans days", monday(11, 0), monday(9, 0).AddDate(0, 0, 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.svc.Create(ctx, &Appointment{
				PatientID:      f.patientID,
				ProfessionalID: f.professionalID,
				StartsAt:       tc.start,
				EndsAt:         tc.end,
			})
			wantCode(t, err, httpapi.CodeOutsideHours)
		})
	}

	// Ending exactly at the window end is allowed
	f.book(t, monday(11, 30), monday(12, 0))
}

func TestCreateConflict(t *testing.T) {
	f := newFixture()
	f.book(t, monday(10, 0), monday(10, 30))

	err := f.svc.Create(context.Background(), &Appointment{
		PatientID:      f.patientID,
		ProfessionalID: f.professionalID,
		StartsAt:       monday(10, 15),
		EndsAt:         monday(10, 45),
	})
	wantCode(t, err, httpapi.CodeScheduleConflict)

	// Back to back is fine
	f.book(t, monday(10, 30), monday(11, 0))
}

func TestCreateConflictWithScheduleBlock(t *testing.T) {
	f := newFixture()
	f.dir.blocks = append(f.dir.blocks, &professional.ScheduleBlock{
		ID:             uuid.New(),
		ProfessionalID: f.professionalID,
		StartsAt:       monday(10, 0),
		EndsAt:         monday(11, 0),
	})

	err := f.svc.Create(context.Background(), &Appointment{
		PatientID:      f.patientID,
		ProfessionalID: f.professionalID,
		StartsAt:       monday(10, 30),
		EndsAt:         monday(11, 0),
	})
	wantCode(t, err, httpapi.CodeScheduleConflict)
}

func TestCreateExclusionConstraintMapped(t *testing.T) {
	// The pre-check passed but another booking won the race; the repo
	// surfaces the exclusion constraint as ErrConflict.
	f := newFixture()
	f.repo.createErr = ErrConflict

	err := f.svc.Create(context.Background(), &Appointment{
		PatientID:      f.patientID,
		ProfessionalID: f.professionalID,
		StartsAt:       monday(9, 0),
		EndsAt:         monday(9, 30),
	})
	wantCode(t, err, httpapi.CodeScheduleConflict)
}

func TestCreateInactivePatient(t *testing.T) {
	f := newFixture()
	f.patients.patients[f.patientID].Active = false

	err := f.svc.Create(context.Background(), &Appointment{
		PatientID:      f.patientID,
		ProfessionalID: f.professionalID,
		StartsAt:       monday(9, 0),
		EndsAt:         monday(9, 30),
	})
	wantCode(t, err, httpapi.CodeNotFound)
}

func TestCreateInactiveProfessional(t *testing.T) {
	f := newFixture()
	f.dir.profs[f.professionalID].Active = false

	err := f.svc.Create(context.Background(), &Appointment{
		PatientID:      f.patientID,
		ProfessionalID: f.professionalID,
		StartsAt:       monday(9, 0),
		EndsAt:         monday(9, 30),
	})
	wantCode(t, err, httpapi.CodeNotFound)
}

func TestCreateTreatmentOfOtherProfessional(t *testing.T) {
	f := newFixture()
	otherID := uuid.New()
	foreign := uuid.New()
	f.dir.treatments[foreign] = &professional.TreatmentType{
		ID: foreign, ProfessionalID: otherID, Name: "Botox", DurationMinutes: 30, Active: true,
	}

	err := f.svc.Create(context.Background(), &Appointment{
		PatientID:       f.patientID,
		ProfessionalID:  f.professionalID,
		TreatmentTypeID: &foreign,
		StartsAt:        monday(9, 0),
	})
	wantCode(t, err, httpapi.CodeNotFound)
}

func TestUpdateReschedulesAroundItself(t *testing.T) {
	f := newFixture()
	a := f.book(t, monday(9, 0), monday(10, 0))

	// The new time overlaps the old one; the appointment must not
	// conflict with itself.
	a.StartsAt = monday(9, 30)
	a.EndsAt = monday(10, 30)
	if err := f.svc.Update(context.Background(), a); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := f.svc.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.StartsAt.Equal(monday(9, 30)) {
		t.Errorf("starts_at = %v, want 09:30", got.StartsAt)
	}
}

func TestUpdateTerminalAppointment(t *testing.T) {
	f := newFixture()
	a := f.book(t, monday(9, 0), monday(9, 30))
	if _, err := f.svc.Transition(context.Background(), a.ID, StatusCancelled, nil); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	a.StartsAt = monday(10, 0)
	a.EndsAt = monday(10, 30)
	err := f.svc.Update(context.Background(), a)
	wantCode(t, err, httpapi.CodeInvalidTransition)
}

func TestTransitionFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, monday(9, 0), monday(9, 30))

	if _, err := f.svc.Transition(ctx, a.ID, StatusCompleted, nil); err == nil {
		t.Fatal("SCHEDULED -> COMPLETED should be rejected")
	}

	got, err := f.svc.Transition(ctx, a.ID, StatusConfirmed, nil)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got.Status != StatusConfirmed {
		t.Errorf("status = %s, want %s", got.Status, StatusConfirmed)
	}

	if _, err := f.svc.Transition(ctx, a.ID, StatusCompleted, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err = f.svc.Transition(ctx, a.ID, StatusCancelled, nil)
	wantCode(t, err, httpapi.CodeInvalidTransition)
}

func TestCancelNotifiesAndFreesSlot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, monday(9, 0), monday(9, 30))

	if _, err := f.svc.Transition(ctx, a.ID, StatusCancelled, nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if f.notifier.cancelled != 1 {
		t.Errorf("cancelled notifications = %d, want 1", f.notifier.cancelled)
	}

	// The slot is bookable again
	f.book(t, monday(9, 0), monday(9, 30))
}

func TestAvailability(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	slots, err := f.svc.Availability(ctx, f.professionalID, monday(0, 0), nil)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if len(slots) != 6 {
		t.Fatalf("empty agenda: got %d slots, want 6", len(slots))
	}

	f.book(t, monday(10, 0), monday(10, 30))
	f.dir.blocks = append(f.dir.blocks, &professional.ScheduleBlock{
		ID:             uuid.New(),
		ProfessionalID: f.professionalID,
		StartsAt:       monday(11, 0),
		EndsAt:         monday(11, 30),
	})

	slots, err = f.svc.Availability(ctx, f.professionalID, monday(0, 0), nil)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if len(slots) != 4 {
		t.Fatalf("got %d slots after one booking and one block, want 4", len(slots))
	}
	for _, s := range slots {
		if s.Start.Equal(monday(10, 0)) || s.Start.Equal(monday(11, 0)) {
			t.Errorf("occupied slot %v still offered", s.Start)
		}
	}
}

func TestAvailabilityUnconfiguredDay(t *testing.T) {
	f := newFixture()
	sunday := monday(0, 0).AddDate(0, 0, -1)

	slots, err := f.svc.Availability(context.Background(), f.professionalID, sunday, nil)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("got %d slots on a day off, want 0", len(slots))
	}
}

func TestAvailabilityUsesTreatmentDuration(t *testing.T) {
	f := newFixture()

	// 45m treatment on the 30m grid: 09:00..11:00 fit, 11:30 would
	// end past 12:00.
	slots, err := f.svc.Availability(context.Background(), f.professionalID, monday(0, 0), &f.treatmentID)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if len(slots) != 5 {
		t.Fatalf("got %d slots for 45m treatment, want 5", len(slots))
	}
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, monday(10, 0), monday(10, 30))

	free, err := f.svc.CheckAvailability(ctx, f.professionalID, monday(10, 0), monday(10, 30), nil)
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if free {
		t.Error("occupied slot reported as free")
	}

	// Excluding the appointment itself frees the slot (reschedule check)
	free, err = f.svc.CheckAvailability(ctx, f.professionalID, monday(10, 0), monday(10, 30), &a.ID)
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if !free {
		t.Error("slot occupied only by the excluded appointment reported busy")
	}

	free, err = f.svc.CheckAvailability(ctx, f.professionalID, monday(10, 30), monday(11, 0), nil)
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if !free {
		t.Error("adjacent slot reported busy")
	}
}
