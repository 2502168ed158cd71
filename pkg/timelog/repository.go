package timelog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrEntryNotFound = apperror.NotFound("time entry")
var ErrAlreadyReversed = fmt.Errorf("time entry is already reversed: %w", apperror.ErrValidation)

const uniqueViolation = "23505"

type Repository interface {
	AppendEntry(ctx context.Context, tenantId int, entry Entry) (Entry, error)
	GetEntry(ctx context.Context, tenantId int, id uuid.UUID) (Entry, error)
	// FindEntries returns entries of a client dated within [from, to], ordered by date and then insertion.
	FindEntries(ctx context.Context, tenantId int, clientId int, from, to time.Time) ([]Entry, error)
	SumHours(ctx context.Context, tenantId int, clientId int, from, to time.Time, billableOnly bool) (float64, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const selectEntry = `SELECT id, seq, tenant_id, engagement_id, task_id, user_id, entry_date, hours::float8, description,
       billable, kind, reverses_id, created_at
FROM time_entry`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.Id, &e.Seq, &e.TenantId, &e.ClientId, &e.TaskId, &e.UserId, &e.Date, &e.Hours, &e.Description,
		&e.Billable, &e.Kind, &e.ReversesId, &e.CreatedAt)
	return e, err
}

func (r *RepositoryImpl) AppendEntry(ctx context.Context, tenantId int, entry Entry) (Entry, error) {
	query := `INSERT INTO time_entry (id, tenant_id, engagement_id, task_id, user_id, entry_date, hours, description, billable, kind, reverses_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			  RETURNING seq, created_at`
	err := r.db.QueryRow(ctx, query, entry.Id, tenantId, entry.ClientId, entry.TaskId, entry.UserId, entry.Date,
		entry.Hours, entry.Description, entry.Billable, entry.Kind, entry.ReversesId).Scan(&entry.Seq, &entry.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && entry.ReversesId != nil {
			return Entry{}, ErrAlreadyReversed
		}
		err = fmt.Errorf("could not append time entry: %w", err)
		log.Error(err)
		return Entry{}, err
	}
	entry.TenantId = tenantId
	return entry, nil
}

func (r *RepositoryImpl) GetEntry(ctx context.Context, tenantId int, id uuid.UUID) (Entry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx, selectEntry+` WHERE tenant_id = $1 AND id = $2`, tenantId, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		log.Error(err)
		return Entry{}, err
	}
	return e, nil
}

func (r *RepositoryImpl) FindEntries(ctx context.Context, tenantId int, clientId int, from, to time.Time) ([]Entry, error) {
	query := selectEntry + ` WHERE tenant_id = $1 AND engagement_id = $2 AND entry_date BETWEEN $3 AND $4
			  ORDER BY entry_date, seq`
	rows, err := r.db.Query(ctx, query, tenantId, clientId, from, to)
	if err != nil {
		log.Error(err)
		return nil, err
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		return scanEntry(row)
	})
	if err != nil {
		log.Error(err)
		return nil, err
	}
	return entries, nil
}

func (r *RepositoryImpl) SumHours(ctx context.Context, tenantId int, clientId int, from, to time.Time, billableOnly bool) (float64, error) {
	query := `SELECT COALESCE(SUM(CASE WHEN kind = 'reversal' THEN -hours ELSE hours END), 0)::float8
			  FROM time_entry
			  WHERE tenant_id = $1 AND engagement_id = $2 AND entry_date BETWEEN $3 AND $4
			    AND (billable OR NOT $5)`
	var total float64
	if err := r.db.QueryRow(ctx, query, tenantId, clientId, from, to, billableOnly).Scan(&total); err != nil {
		log.Error(err)
		return 0, err
	}
	return total, nil
}
