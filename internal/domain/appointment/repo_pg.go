package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const apptCols = `id, patient_id, professional_id, treatment_type_id, starts_at, ends_at,
	status, notes, observations, created_by, updated_by, created_at, updated_at`

var apptSortColumns = map[string]string{
	"startsAt":  "starts_at",
	"createdAt": "created_at",
	"status":    "status",
}

// isExclusionViolation matches SQLSTATE 23P01, raised by the EXCLUDE
// constraint on the appointment table when two agenda-blocking appointments
// for the same professional would overlap.
func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.ProfessionalID, &a.TreatmentTypeID,
		&a.StartsAt, &a.EndsAt, &a.Status, &a.Notes, &a.Observations,
		&a.CreatedBy, &a.UpdatedBy, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, patient_id, professional_id, treatment_type_id,
			starts_at, ends_at, status, notes, observations, created_by, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.PatientID, a.ProfessionalID, a.TreatmentTypeID,
		a.StartsAt, a.EndsAt, a.Status, a.Notes, a.Observations, a.CreatedBy, a.UpdatedBy)
	if isExclusionViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET patient_id=$2, treatment_type_id=$3, starts_at=$4, ends_at=$5,
			notes=$6, observations=$7, updated_by=$8, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.PatientID, a.TreatmentTypeID, a.StartsAt, a.EndsAt,
		a.Notes, a.Observations, a.UpdatedBy)
	if isExclusionViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string, updatedBy *uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointment SET status=$2, updated_by=$3, updated_at=NOW() WHERE id = $1`,
		id, status, updatedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, pg pagination.Params) ([]*Appointment, int, error) {
	query := `SELECT ` + apptCols + ` FROM appointment WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM appointment WHERE 1=1`
	var args []interface{}
	idx := 1

	addFilter := func(clause string, value interface{}) {
		query += fmt.Sprintf(clause, idx)
		countQuery += fmt.Sprintf(clause, idx)
		args = append(args, value)
		idx++
	}

	if p, ok := params["professionalId"]; ok {
		addFilter(` AND professional_id = $%d`, p)
	}
	if p, ok := params["patientId"]; ok {
		addFilter(` AND patient_id = $%d`, p)
	}
	if p, ok := params["status"]; ok {
		addFilter(` AND status = $%d`, p)
	}
	if p, ok := params["from"]; ok {
		addFilter(` AND starts_at >= $%d`, p)
	}
	if p, ok := params["to"]; ok {
		addFilter(` AND starts_at < $%d`, p)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ` + pg.OrderClause(apptSortColumns, "startsAt")
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, pg.Limit, pg.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *repoPG) ListOverlapping(ctx context.Context, professionalID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*Appointment, error) {
	query := `
		SELECT ` + apptCols + ` FROM appointment
		WHERE professional_id = $1
		  AND status = ANY($2)
		  AND starts_at < $4 AND ends_at > $3`
	args := []interface{}{professionalID, ActiveStatuses, start, end}
	if excludeID != nil {
		query += ` AND id <> $5`
		args = append(args, *excludeID)
	}
	query += ` ORDER BY starts_at`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}

func (r *repoPG) ListBetween(ctx context.Context, from, to time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointment
		WHERE status = ANY($1) AND starts_at >= $2 AND starts_at < $3
		ORDER BY starts_at`,
		ActiveStatuses, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}
