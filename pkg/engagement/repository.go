package engagement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrEngagementNotFound = apperror.NotFound("engagement")

type Repository interface {
	Create(ctx context.Context, tenantId int, e Engagement) (Engagement, error)
	Get(ctx context.Context, tenantId int, clientId int) (Engagement, error)
	List(ctx context.Context, tenantId int) ([]Engagement, error)
	Count(ctx context.Context, tenantId int) (int, error)
	SaveTerms(ctx context.Context, tenantId int, clientId int, terms Terms) error
	UpdateStatus(ctx context.Context, tenantId int, clientId int, status Status) error
	// IncrementUsage adds hours to the cached usage of a window without reading it first.
	IncrementUsage(ctx context.Context, tenantId int, clientId int, windowStart time.Time, hours float64) error
	SetUsage(ctx context.Context, tenantId int, clientId int, windowStart time.Time, hours float64) error
	GetUsage(ctx context.Context, tenantId int, clientId int, windowStart time.Time) (float64, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// engagementRow is the flat table shape of an engagement; variant columns are NULL for the other model.
type engagementRow struct {
	id, tenantId         int
	name, accountManager string
	status               Status
	tier                 int
	launchDate           *time.Time
	model                Model
	startDate, endDate   *time.Time
	totalHours           *float64
	contentQuota         *int
	backlinkQuota        *int
	monthlyHours         *float64
	rollover             RolloverPolicy
}

const selectEngagement = `SELECT id, tenant_id, name, status, tier, account_manager, launch_date, model,
       start_date, end_date, total_hours, monthly_content_quota, monthly_backlink_quota, monthly_hours, rollover
FROM engagement`

func (r *RepositoryImpl) Create(ctx context.Context, tenantId int, e Engagement) (Engagement, error) {
	err := database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		query := `INSERT INTO engagement (tenant_id, name, status, tier, account_manager, launch_date, model)
				  VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
		err := tx.QueryRow(ctx, query, tenantId, e.Name, e.Status, e.Tier, e.AccountManager, e.LaunchDate, e.Terms.Model()).
			Scan(&e.ClientId)
		if err != nil {
			return fmt.Errorf("could not insert engagement: %w", err)
		}
		return saveTerms(ctx, tx, tenantId, e.ClientId, e.Terms)
	})
	if err != nil {
		log.Error(err)
		return Engagement{}, err
	}
	e.TenantId = tenantId
	return e, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, tenantId int, clientId int) (Engagement, error) {
	rows, err := r.db.Query(ctx, selectEngagement+` WHERE tenant_id = $1 AND id = $2`, tenantId, clientId)
	if err != nil {
		log.Error(err)
		return Engagement{}, err
	}
	engagements, err := r.collect(ctx, tenantId, rows)
	if err != nil {
		return Engagement{}, err
	}
	if len(engagements) == 0 {
		return Engagement{}, ErrEngagementNotFound
	}
	return engagements[0], nil
}

func (r *RepositoryImpl) List(ctx context.Context, tenantId int) ([]Engagement, error) {
	rows, err := r.db.Query(ctx, selectEngagement+` WHERE tenant_id = $1 ORDER BY name, id`, tenantId)
	if err != nil {
		log.Error(err)
		return nil, err
	}
	return r.collect(ctx, tenantId, rows)
}

func (r *RepositoryImpl) Count(ctx context.Context, tenantId int) (int, error) {
	var count int
	query := `SELECT count(*) FROM engagement WHERE tenant_id = $1 AND status NOT IN ('archived', 'cancelled')`
	if err := r.db.QueryRow(ctx, query, tenantId).Scan(&count); err != nil {
		log.Error(err)
		return 0, err
	}
	return count, nil
}

func (r *RepositoryImpl) collect(ctx context.Context, tenantId int, rows pgx.Rows) ([]Engagement, error) {
	flat, err := pgx.CollectRows(rows, func(cr pgx.CollectableRow) (engagementRow, error) {
		var fr engagementRow
		err := cr.Scan(&fr.id, &fr.tenantId, &fr.name, &fr.status, &fr.tier, &fr.accountManager, &fr.launchDate,
			&fr.model, &fr.startDate, &fr.endDate, &fr.totalHours, &fr.contentQuota, &fr.backlinkQuota,
			&fr.monthlyHours, &fr.rollover)
		return fr, err
	})
	if err != nil {
		log.Error(err)
		return nil, err
	}

	engagements := make([]Engagement, 0, len(flat))
	for _, fr := range flat {
		e := Engagement{
			ClientId:       fr.id,
			TenantId:       fr.tenantId,
			Name:           fr.name,
			Status:         fr.status,
			Tier:           fr.tier,
			AccountManager: fr.accountManager,
			LaunchDate:     fr.launchDate,
		}
		switch fr.model {
		case ModelCampaign:
			e.Terms = Campaign{
				StartDate:            deref(fr.startDate),
				EndDate:              deref(fr.endDate),
				TotalHours:           deref(fr.totalHours),
				MonthlyContentQuota:  deref(fr.contentQuota),
				MonthlyBacklinkQuota: deref(fr.backlinkQuota),
			}
		case ModelRetainer:
			recurring, err := r.recurringDeliverables(ctx, tenantId, fr.id)
			if err != nil {
				return nil, err
			}
			e.Terms = Retainer{
				MonthlyHours:          deref(fr.monthlyHours),
				RecurringDeliverables: recurring,
				Rollover:              fr.rollover,
			}
		default:
			return nil, fmt.Errorf("engagement %d has unknown model %q", fr.id, fr.model)
		}
		engagements = append(engagements, e)
	}
	return engagements, nil
}

func (r *RepositoryImpl) recurringDeliverables(ctx context.Context, tenantId int, clientId int) ([]RecurringDeliverable, error) {
	query := `SELECT type, count FROM engagement_recurring_deliverable
			  WHERE tenant_id = $1 AND engagement_id = $2 ORDER BY position`
	rows, err := r.db.Query(ctx, query, tenantId, clientId)
	if err != nil {
		log.Error(err)
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RecurringDeliverable, error) {
		var rd RecurringDeliverable
		err := row.Scan(&rd.Type, &rd.Count)
		return rd, err
	})
}

func (r *RepositoryImpl) SaveTerms(ctx context.Context, tenantId int, clientId int, terms Terms) error {
	err := database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		return saveTerms(ctx, tx, tenantId, clientId, terms)
	})
	if err != nil {
		log.Error(err)
	}
	return err
}

func saveTerms(ctx context.Context, tx pgx.Tx, tenantId int, clientId int, terms Terms) error {
	var tag pgconn.CommandTag
	var err error
	switch t := terms.(type) {
	case Campaign:
		tag, err = tx.Exec(ctx, `UPDATE engagement SET model = $1, start_date = $2, end_date = $3, total_hours = $4,
			monthly_content_quota = $5, monthly_backlink_quota = $6, monthly_hours = NULL, rollover = 'none'
			WHERE tenant_id = $7 AND id = $8`,
			ModelCampaign, t.StartDate, t.EndDate, t.TotalHours, t.MonthlyContentQuota, t.MonthlyBacklinkQuota, tenantId, clientId)
	case Retainer:
		rollover := t.Rollover
		if rollover == RolloverDefault {
			rollover = RolloverNone
		}
		tag, err = tx.Exec(ctx, `UPDATE engagement SET model = $1, start_date = NULL, end_date = NULL, total_hours = NULL,
			monthly_content_quota = NULL, monthly_backlink_quota = NULL, monthly_hours = $2, rollover = $3
			WHERE tenant_id = $4 AND id = $5`,
			ModelRetainer, t.MonthlyHours, rollover, tenantId, clientId)
	default:
		return fmt.Errorf("unsupported terms %T", terms)
	}
	if err != nil {
		return fmt.Errorf("could not store engagement terms: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEngagementNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM engagement_recurring_deliverable WHERE tenant_id = $1 AND engagement_id = $2`,
		tenantId, clientId); err != nil {
		return fmt.Errorf("could not clear recurring deliverables: %w", err)
	}
	retainer, ok := terms.(Retainer)
	if !ok {
		return nil
	}
	for i, rd := range retainer.RecurringDeliverables {
		_, err := tx.Exec(ctx, `INSERT INTO engagement_recurring_deliverable (tenant_id, engagement_id, position, type, count)
			VALUES ($1, $2, $3, $4, $5)`, tenantId, clientId, i, rd.Type, rd.Count)
		if err != nil {
			return fmt.Errorf("could not store recurring deliverable: %w", err)
		}
	}
	return nil
}

func (r *RepositoryImpl) UpdateStatus(ctx context.Context, tenantId int, clientId int, status Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE engagement SET status = $1 WHERE tenant_id = $2 AND id = $3`, status, tenantId, clientId)
	if err != nil {
		log.Error(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEngagementNotFound
	}
	return nil
}

func (r *RepositoryImpl) IncrementUsage(ctx context.Context, tenantId int, clientId int, windowStart time.Time, hours float64) error {
	query := `INSERT INTO engagement_usage (tenant_id, engagement_id, window_start, hours) VALUES ($1, $2, $3, $4)
			  ON CONFLICT (tenant_id, engagement_id, window_start)
			  DO UPDATE SET hours = engagement_usage.hours + EXCLUDED.hours`
	if _, err := r.db.Exec(ctx, query, tenantId, clientId, windowStart, hours); err != nil {
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) SetUsage(ctx context.Context, tenantId int, clientId int, windowStart time.Time, hours float64) error {
	query := `INSERT INTO engagement_usage (tenant_id, engagement_id, window_start, hours) VALUES ($1, $2, $3, $4)
			  ON CONFLICT (tenant_id, engagement_id, window_start) DO UPDATE SET hours = EXCLUDED.hours`
	if _, err := r.db.Exec(ctx, query, tenantId, clientId, windowStart, hours); err != nil {
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) GetUsage(ctx context.Context, tenantId int, clientId int, windowStart time.Time) (float64, error) {
	var hours float64
	query := `SELECT hours FROM engagement_usage WHERE tenant_id = $1 AND engagement_id = $2 AND window_start = $3`
	err := r.db.QueryRow(ctx, query, tenantId, clientId, windowStart).Scan(&hours)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		log.Error(err)
		return 0, err
	}
	return hours, nil
}

func deref[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}
