package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/httpapi"
)

var validRoles = map[string]bool{
	auth.RoleAdmin: true, auth.RoleSecretary: true,
}

type Service struct {
	users  UserRepository
	tokens *auth.TokenIssuer
}

func NewService(users UserRepository, tokens *auth.TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens}
}

// Login verifies credentials and returns a signed access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", nil, httpapi.Validation("email and password are required")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return "", nil, httpapi.Unauthorized("invalid credentials")
	}
	if err != nil {
		return "", nil, err
	}
	if !u.Active || !auth.CheckPassword(u.PasswordHash, password) {
		return "", nil, httpapi.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.Issue(u.ID.String(), u.Name, u.Role)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *Service) CreateUser(ctx context.Context, u *User, password string) error {
	if u.Name == "" {
		return httpapi.Validation("name is required")
	}
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	if u.Email == "" {
		return httpapi.Validation("email is required")
	}
	if len(password) < 8 {
		return httpapi.Validation("password must be at least 8 characters")
	}
	if u.Role == "" {
		u.Role = auth.RoleSecretary
	}
	if !validRoles[u.Role] {
		return httpapi.Validation("invalid role: %s", u.Role)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.Active = true

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return httpapi.Validation("email %s is already in use", u.Email)
		}
		return err
	}
	return nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httpapi.NotFound("user not found")
	}
	return u, err
}

func (s *Service) UpdateUser(ctx context.Context, u *User) error {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return err
	}
	if u.Name == "" {
		u.Name = existing.Name
	}
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	if u.Email == "" {
		u.Email = existing.Email
	}
	if u.Role == "" {
		u.Role = existing.Role
	}
	if !validRoles[u.Role] {
		return httpapi.Validation("invalid role: %s", u.Role)
	}

	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return httpapi.Validation("email %s is already in use", u.Email)
		}
		return err
	}
	return nil
}

// ChangePassword verifies the current password before setting a new one.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, current) {
		return httpapi.Unauthorized("current password is incorrect")
	}
	if len(next) < 8 {
		return httpapi.Validation("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, id, hash)
}

func (s *Service) SetUserActive(ctx context.Context, id uuid.UUID, active bool) error {
	if _, err := s.GetUser(ctx, id); err != nil {
		return err
	}
	return s.users.SetActive(ctx, id, active)
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}
