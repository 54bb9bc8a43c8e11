package notification

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

const notifCols = `id, appointment_id, patient_id, channel, template, recipient, subject, body,
	status, attempts, last_error, scheduled_for, sent_at, created_at, updated_at`

var notifSortColumns = map[string]string{
	"createdAt":    "created_at",
	"scheduledFor": "scheduled_for",
	"status":       "status",
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.AppointmentID, &n.PatientID, &n.Channel, &n.Template,
		&n.Recipient, &n.Subject, &n.Body, &n.Status, &n.Attempts, &n.LastError,
		&n.ScheduledFor, &n.SentAt, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &n, err
}

func (r *repoPG) Create(ctx context.Context, n *Notification) error {
	n.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO notification (id, appointment_id, patient_id, channel, template,
			recipient, subject, body, status, scheduled_for)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		n.ID, n.AppointmentID, n.PatientID, n.Channel, n.Template,
		n.Recipient, n.Subject, n.Body, n.Status, n.ScheduledFor)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return scanNotification(r.conn(ctx).QueryRow(ctx,
		`SELECT `+notifCols+` FROM notification WHERE id = $1`, id))
}

func (r *repoPG) ListDue(ctx context.Context, now time.Time, limit int) ([]*Notification, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+notifCols+` FROM notification
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for
		LIMIT $3`,
		StatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, nil
}

func (r *repoPG) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE notification
		SET status=$2, attempts=attempts+1, sent_at=$3, last_error=NULL, updated_at=NOW()
		WHERE id = $1`,
		id, StatusSent, sentAt)
	return err
}

func (r *repoPG) MarkAttemptFailed(ctx context.Context, id uuid.UUID, status string, lastError string, nextAttempt time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE notification
		SET status=$2, attempts=attempts+1, last_error=$3, scheduled_for=$4, updated_at=NOW()
		WHERE id = $1`,
		id, status, lastError, nextAttempt)
	return err
}

func (r *repoPG) Requeue(ctx context.Context, id uuid.UUID, scheduledFor time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE notification
		SET status=$2, attempts=0, last_error=NULL, scheduled_for=$3, updated_at=NOW()
		WHERE id = $1`,
		id, StatusPending, scheduledFor)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, pg pagination.Params) ([]*Notification, int, error) {
	query := `SELECT ` + notifCols + ` FROM notification WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM notification WHERE 1=1`
	var args []interface{}
	idx := 1

	addFilter := func(clause string, value interface{}) {
		query += fmt.Sprintf(clause, idx)
		countQuery += fmt.Sprintf(clause, idx)
		args = append(args, value)
		idx++
	}

	if p, ok := params["status"]; ok {
		addFilter(` AND status = $%d`, p)
	}
	if p, ok := params["channel"]; ok {
		addFilter(` AND channel = $%d`, p)
	}
	if p, ok := params["appointmentId"]; ok {
		addFilter(` AND appointment_id = $%d`, p)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ` + pg.OrderClause(notifSortColumns, "createdAt")
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, pg.Limit, pg.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, nil
}

func (r *repoPG) Stats(ctx context.Context) (*Stats, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT status, COUNT(*) FROM notification GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		switch status {
		case StatusPending:
			stats.Pending = count
		case StatusSent:
			stats.Sent = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	return &stats, rows.Err()
}

func (r *repoPG) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM notification
		WHERE status IN ($1, $2) AND created_at < $3`,
		StatusSent, StatusFailed, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *repoPG) ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID, template string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notification WHERE appointment_id = $1 AND template = $2
		)`,
		appointmentID, template).Scan(&exists)
	return exists, err
}
