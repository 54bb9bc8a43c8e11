// Package clinicconfig stores clinic-level settings as key-value pairs,
// e.g. the clinic name printed in messages or the reminder lead time.
package clinicconfig

import (
	"time"

	"github.com/google/uuid"
)

// Setting is one configuration entry.
type Setting struct {
	Key       string     `db:"key" json:"key"`
	Value     string     `db:"value" json:"value"`
	UpdatedBy *uuid.UUID `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
