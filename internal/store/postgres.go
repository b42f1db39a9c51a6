package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"voice-appointment-service/internal/models"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres stores records in the appointments table.
type Postgres struct {
	db rowQuerier
}

// NewPostgres wraps a pgx pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	if pool == nil {
		panic("store: pgx pool required")
	}
	return &Postgres{db: pool}
}

func newPostgresWithQuerier(db rowQuerier) *Postgres {
	if db == nil {
		panic("store: querier required")
	}
	return &Postgres{db: db}
}

const listQuery = `
	SELECT id::text, patient_id, office_id, service_ids, date, time, duration_minutes,
	       reason, internal_notes, starts_at, ends_at, created_at
	FROM appointments
	ORDER BY starts_at, id
`

// List returns every record ordered by start.
func (p *Postgres) List(ctx context.Context) ([]models.Record, error) {
	rows, err := p.db.Query(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("store: list appointments: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var (
			r        models.Record
			day      time.Time
			clock    string
			services []string
		)
		if err := rows.Scan(&r.ID, &r.PatientID, &r.OfficeID, &services, &day, &clock, &r.Duration,
			&r.Reason, &r.InternalNotes, &r.Start, &r.End, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan appointment: %w", err)
		}
		r.ServiceIDs = services
		r.Date = civil.DateOf(day)
		if r.Time, err = models.ParseClockTime(clock); err != nil {
			return nil, fmt.Errorf("store: appointment %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list appointments: %w", err)
	}
	return out, nil
}

const insertQuery = `
	INSERT INTO appointments (id, patient_id, office_id, service_ids, date, time, duration_minutes,
	                          reason, internal_notes, starts_at, ends_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

// Insert stores r, generating an id if needed.
func (p *Postgres) Insert(ctx context.Context, r models.Record) (models.Record, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.ServiceIDs == nil {
		r.ServiceIDs = []string{}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := p.db.Exec(ctx, insertQuery,
		r.ID, r.PatientID, r.OfficeID, r.ServiceIDs, r.Date.In(time.UTC), r.Time.String(), r.Duration,
		r.Reason, r.InternalNotes, r.Start, r.End, r.CreatedAt)
	if err != nil {
		return models.Record{}, fmt.Errorf("store: insert appointment: %w", err)
	}
	return r, nil
}

// Remove deletes the record with id.
func (p *Postgres) Remove(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	ct, err := p.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: remove appointment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
