package professional

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// =========== Professional Repository ===========

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const profCols = `id, name, specialty, registration_code, phone, email, active, created_at, updated_at`

var profSortColumns = map[string]string{
	"name":      "name",
	"specialty": "specialty",
	"createdAt": "created_at",
}

func scanProfessional(row pgx.Row) (*Professional, error) {
	var p Professional
	err := row.Scan(&p.ID, &p.Name, &p.Specialty, &p.RegistrationCode, &p.Phone, &p.Email,
		&p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Professional) error {
	p.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO professional (id, name, specialty, registration_code, phone, email, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.Name, p.Specialty, p.RegistrationCode, p.Phone, p.Email, p.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Professional, error) {
	return scanProfessional(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+profCols+` FROM professional WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Professional) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE professional SET name=$2, specialty=$3, registration_code=$4, phone=$5, email=$6, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Specialty, p.RegistrationCode, p.Phone, p.Email)
	return err
}

func (r *repoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE professional SET active=$2, updated_at=NOW() WHERE id = $1`, id, active)
	return err
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, pg pagination.Params) ([]*Professional, int, error) {
	query := `SELECT ` + profCols + ` FROM professional WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM professional WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["name"]; ok {
		query += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}
	if p, ok := params["specialty"]; ok {
		query += fmt.Sprintf(` AND specialty = $%d`, idx)
		countQuery += fmt.Sprintf(` AND specialty = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["active"]; ok {
		query += fmt.Sprintf(` AND active = $%d`, idx)
		countQuery += fmt.Sprintf(` AND active = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ` + pg.OrderClause(profSortColumns, "name")
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, pg.Limit, pg.Offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Professional
	for rows.Next() {
		p, err := scanProfessional(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

// =========== Working Hour Repository ===========

type workingHourRepoPG struct{ pool *pgxpool.Pool }

func NewWorkingHourRepoPG(pool *pgxpool.Pool) WorkingHourRepository {
	return &workingHourRepoPG{pool: pool}
}

const whCols = `id, professional_id, weekday, start_minute, end_minute, active`

func scanWorkingHour(row pgx.Row) (*WorkingHour, error) {
	var w WorkingHour
	err := row.Scan(&w.ID, &w.ProfessionalID, &w.Weekday, &w.StartMinute, &w.EndMinute, &w.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &w, err
}

func (r *workingHourRepoPG) Replace(ctx context.Context, professionalID uuid.UUID, hours []*WorkingHour) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		c := conn(ctx, r.pool)
		if _, err := c.Exec(ctx, `DELETE FROM working_hour WHERE professional_id = $1`, professionalID); err != nil {
			return err
		}
		for _, w := range hours {
			w.ID = uuid.New()
			w.ProfessionalID = professionalID
			if _, err := c.Exec(ctx, `
				INSERT INTO working_hour (id, professional_id, weekday, start_minute, end_minute, active)
				VALUES ($1,$2,$3,$4,$5,$6)`,
				w.ID, w.ProfessionalID, w.Weekday, w.StartMinute, w.EndMinute, w.Active); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *workingHourRepoPG) ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]*WorkingHour, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+whCols+` FROM working_hour WHERE professional_id = $1 ORDER BY weekday`, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*WorkingHour
	for rows.Next() {
		w, err := scanWorkingHour(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, nil
}

func (r *workingHourRepoPG) GetForWeekday(ctx context.Context, professionalID uuid.UUID, weekday int) (*WorkingHour, error) {
	return scanWorkingHour(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+whCols+` FROM working_hour WHERE professional_id = $1 AND weekday = $2 AND active`,
		professionalID, weekday))
}

// =========== Schedule Block Repository ===========

type scheduleBlockRepoPG struct{ pool *pgxpool.Pool }

func NewScheduleBlockRepoPG(pool *pgxpool.Pool) ScheduleBlockRepository {
	return &scheduleBlockRepoPG{pool: pool}
}

const blockCols = `id, professional_id, starts_at, ends_at, reason, created_at`

func scanBlock(row pgx.Row) (*ScheduleBlock, error) {
	var b ScheduleBlock
	err := row.Scan(&b.ID, &b.ProfessionalID, &b.StartsAt, &b.EndsAt, &b.Reason, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &b, err
}

func (r *scheduleBlockRepoPG) Create(ctx context.Context, b *ScheduleBlock) error {
	b.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO schedule_block (id, professional_id, starts_at, ends_at, reason)
		VALUES ($1,$2,$3,$4,$5)`,
		b.ID, b.ProfessionalID, b.StartsAt, b.EndsAt, b.Reason)
	return err
}

func (r *scheduleBlockRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ScheduleBlock, error) {
	return scanBlock(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+blockCols+` FROM schedule_block WHERE id = $1`, id))
}

func (r *scheduleBlockRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM schedule_block WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *scheduleBlockRepoPG) ListByProfessional(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]*ScheduleBlock, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+blockCols+` FROM schedule_block
		WHERE professional_id = $1 AND ends_at > $2 AND starts_at < $3
		ORDER BY starts_at`,
		professionalID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ScheduleBlock
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, nil
}

func (r *scheduleBlockRepoPG) ListOverlapping(ctx context.Context, professionalID uuid.UUID, start, end time.Time) ([]*ScheduleBlock, error) {
	// Half-open interval overlap: starts_at < end AND ends_at > start
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+blockCols+` FROM schedule_block
		WHERE professional_id = $1 AND starts_at < $3 AND ends_at > $2
		ORDER BY starts_at`,
		professionalID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ScheduleBlock
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, nil
}

// =========== Treatment Type Repository ===========

type treatmentTypeRepoPG struct{ pool *pgxpool.Pool }

func NewTreatmentTypeRepoPG(pool *pgxpool.Pool) TreatmentTypeRepository {
	return &treatmentTypeRepoPG{pool: pool}
}

const treatmentCols = `id, professional_id, name, duration_minutes, price_cents, active, created_at, updated_at`

func scanTreatment(row pgx.Row) (*TreatmentType, error) {
	var t TreatmentType
	err := row.Scan(&t.ID, &t.ProfessionalID, &t.Name, &t.DurationMinutes, &t.PriceCents,
		&t.Active, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &t, err
}

func (r *treatmentTypeRepoPG) Create(ctx context.Context, t *TreatmentType) error {
	t.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO treatment_type (id, professional_id, name, duration_minutes, price_cents, active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		t.ID, t.ProfessionalID, t.Name, t.DurationMinutes, t.PriceCents, t.Active)
	return err
}

func (r *treatmentTypeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TreatmentType, error) {
	return scanTreatment(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+treatmentCols+` FROM treatment_type WHERE id = $1`, id))
}

func (r *treatmentTypeRepoPG) Update(ctx context.Context, t *TreatmentType) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE treatment_type SET name=$2, duration_minutes=$3, price_cents=$4, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.DurationMinutes, t.PriceCents)
	return err
}

func (r *treatmentTypeRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE treatment_type SET active=$2, updated_at=NOW() WHERE id = $1`, id, active)
	return err
}

func (r *treatmentTypeRepoPG) ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]*TreatmentType, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+treatmentCols+` FROM treatment_type WHERE professional_id = $1 ORDER BY name`, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TreatmentType
	for rows.Next() {
		t, err := scanTreatment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, nil
}
