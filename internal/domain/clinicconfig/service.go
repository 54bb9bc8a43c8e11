package clinicconfig

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/httpapi"
)

// keyPattern keeps setting keys machine-friendly: dotted lowercase
// identifiers like clinic.name or reminders.lead_hours.
var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)*$`)

// Defaults seeds fresh installations. Values are strings; callers parse.
var Defaults = map[string]string{
	"clinic.name":          "ClinicDesk",
	"reminders.lead_hours": "24",
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns stored settings merged over the defaults, so a fresh
// installation still answers with the full set.
func (s *Service) List(ctx context.Context) ([]*Setting, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	byKey := map[string]*Setting{}
	for key, value := range Defaults {
		byKey[key] = &Setting{Key: key, Value: value}
	}
	for _, st := range stored {
		byKey[st.Key] = st
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]*Setting, 0, len(keys))
	for _, key := range keys {
		result = append(result, byKey[key])
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, key string) (*Setting, error) {
	st, err := s.repo.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		if value, ok := Defaults[key]; ok {
			return &Setting{Key: key, Value: value}, nil
		}
		return nil, httpapi.NotFound("setting not found")
	}
	return st, err
}

func (s *Service) Set(ctx context.Context, key, value string, updatedBy *uuid.UUID) (*Setting, error) {
	key = strings.TrimSpace(key)
	if !keyPattern.MatchString(key) {
		return nil, httpapi.Validation("invalid setting key %q", key)
	}
	st := &Setting{Key: key, Value: value, UpdatedBy: updatedBy}
	if err := s.repo.Upsert(ctx, st); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, key)
}
