package deliverable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrDeliverableNotFound = apperror.NotFound("deliverable")
var ErrStatusChanged = fmt.Errorf("deliverable status was changed by someone else: %w", apperror.ErrConcurrencyConflict)

type Repository interface {
	Create(ctx context.Context, tenantId int, d Deliverable) (Deliverable, error)
	// CreateIfAbsent stores d unless a deliverable with the same SourceKey exists. It reports whether d was stored.
	CreateIfAbsent(ctx context.Context, tenantId int, d Deliverable) (bool, error)
	Get(ctx context.Context, tenantId int, id int) (Deliverable, error)
	List(ctx context.Context, tenantId int) ([]Deliverable, error)
	ListForClient(ctx context.Context, tenantId int, clientId int) ([]Deliverable, error)
	// SaveStatus moves a deliverable to status only if its stored status still equals expectedPrior.
	SaveStatus(ctx context.Context, tenantId int, id int, status Status, expectedPrior Status, changedAt time.Time) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const selectDeliverable = `SELECT id, tenant_id, engagement_id, type, title, status, due_date, completed_date,
       counts_toward_hours, assignee, external_link, status_changed_at, source_key
FROM deliverable`

func scanDeliverable(row pgx.Row) (Deliverable, error) {
	var d Deliverable
	err := row.Scan(&d.Id, &d.TenantId, &d.ClientId, &d.Type, &d.Title, &d.Status, &d.DueDate, &d.CompletedDate,
		&d.CountsTowardHours, &d.Assignee, &d.ExternalLink, &d.StatusChangedAt, &d.SourceKey)
	return d, err
}

const insertDeliverable = `INSERT INTO deliverable (tenant_id, engagement_id, type, title, status, due_date, completed_date,
                         counts_toward_hours, assignee, external_link, status_changed_at, source_key)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func insertArgs(tenantId int, d Deliverable) []any {
	return []any{tenantId, d.ClientId, d.Type, d.Title, d.Status, d.DueDate, d.CompletedDate,
		d.CountsTowardHours, d.Assignee, d.ExternalLink, d.StatusChangedAt, d.SourceKey}
}

func (r *RepositoryImpl) Create(ctx context.Context, tenantId int, d Deliverable) (Deliverable, error) {
	err := r.db.QueryRow(ctx, insertDeliverable+` RETURNING id`, insertArgs(tenantId, d)...).Scan(&d.Id)
	if err != nil {
		err = fmt.Errorf("could not insert deliverable: %w", err)
		log.Error(err)
		return Deliverable{}, err
	}
	d.TenantId = tenantId
	return d, nil
}

func (r *RepositoryImpl) CreateIfAbsent(ctx context.Context, tenantId int, d Deliverable) (bool, error) {
	query := insertDeliverable + ` ON CONFLICT (tenant_id, source_key) WHERE source_key IS NOT NULL DO NOTHING`
	tag, err := r.db.Exec(ctx, query, insertArgs(tenantId, d)...)
	if err != nil {
		err = fmt.Errorf("could not insert deliverable: %w", err)
		log.Error(err)
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, tenantId int, id int) (Deliverable, error) {
	d, err := scanDeliverable(r.db.QueryRow(ctx, selectDeliverable+` WHERE tenant_id = $1 AND id = $2`, tenantId, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Deliverable{}, ErrDeliverableNotFound
		}
		log.Error(err)
		return Deliverable{}, err
	}
	return d, nil
}

func (r *RepositoryImpl) List(ctx context.Context, tenantId int) ([]Deliverable, error) {
	return r.query(ctx, selectDeliverable+` WHERE tenant_id = $1 ORDER BY due_date, id`, tenantId)
}

func (r *RepositoryImpl) ListForClient(ctx context.Context, tenantId int, clientId int) ([]Deliverable, error) {
	return r.query(ctx, selectDeliverable+` WHERE tenant_id = $1 AND engagement_id = $2 ORDER BY due_date, id`, tenantId, clientId)
}

func (r *RepositoryImpl) query(ctx context.Context, query string, args ...any) ([]Deliverable, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		log.Error(err)
		return nil, err
	}
	deliverables, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Deliverable, error) {
		return scanDeliverable(row)
	})
	if err != nil {
		log.Error(err)
		return nil, err
	}
	return deliverables, nil
}

func (r *RepositoryImpl) SaveStatus(ctx context.Context, tenantId int, id int, status Status, expectedPrior Status, changedAt time.Time) error {
	query := `UPDATE deliverable
			  SET status            = $1::text,
			      status_changed_at = $2::timestamptz,
			      completed_date    = CASE
			                              WHEN $1::text IN ('approved', 'published')
			                                  THEN COALESCE(completed_date, ($2::timestamptz)::date)
			                          END
			  WHERE tenant_id = $3 AND id = $4 AND status = $5`
	tag, err := r.db.Exec(ctx, query, status, changedAt, tenantId, id, expectedPrior)
	if err != nil {
		err = fmt.Errorf("could not update deliverable status: %w", err)
		log.Error(err)
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	// nothing matched, either the row is gone or its status moved on
	if _, err := r.Get(ctx, tenantId, id); err != nil {
		return err
	}
	return ErrStatusChanged
}
