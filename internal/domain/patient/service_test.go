package patient

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/httpapi"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

// -- Mock Repository --

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	p, ok := m.patients[id]
	if !ok {
		return ErrNotFound
	}
	p.Active = active
	return nil
}

func (m *mockRepo) Search(_ context.Context, params map[string]string, pg pagination.Params) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		if name, ok := params["name"]; ok && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(name)) {
			continue
		}
		result = append(result, p)
	}
	return result, len(result), nil
}

// -- Tests --

func TestCreatePatient(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	p := &Patient{Name: "  Maria Souza  ", Phone: "+5511999990000"}
	if err := svc.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Name != "Maria Souza" {
		t.Errorf("name not trimmed: %q", p.Name)
	}
	if !p.Active {
		t.Error("new patient should be active")
	}
}

func TestCreatePatientValidation(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	cases := []struct {
		name    string
		patient *Patient
	}{
		{"missing name", &Patient{Phone: "123"}},
		{"missing phone", &Patient{Name: "Maria"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Create(ctx, tc.patient)
			var apiErr *httpapi.Error
			if !errors.As(err, &apiErr) || apiErr.Code != httpapi.CodeValidation {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestGetPatientNotFound(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.Get(context.Background(), uuid.New())
	var apiErr *httpapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != httpapi.CodeNotFound {
		t.Fatalf("expected RESOURCE_NOT_FOUND, got %v", err)
	}
}

func TestUpdateKeepsExistingFields(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	p := &Patient{Name: "Maria", Phone: "123"}
	if err := svc.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	update := &Patient{ID: p.ID, Phone: "456"}
	if err := svc.Update(ctx, update); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if update.Name != "Maria" {
		t.Errorf("name = %q, want Maria carried over", update.Name)
	}
	if update.Phone != "456" {
		t.Errorf("phone = %q, want 456", update.Phone)
	}
}

func TestDeactivatePatient(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	p := &Patient{Name: "Maria", Phone: "123"}
	if err := svc.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.SetActive(ctx, p.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if repo.patients[p.ID].Active {
		t.Error("patient still active")
	}
}
