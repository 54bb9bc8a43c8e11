package clinicconfig

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("setting not found")

type Repository interface {
	List(ctx context.Context) ([]*Setting, error)
	Get(ctx context.Context, key string) (*Setting, error)
	Upsert(ctx context.Context, s *Setting) error
}
