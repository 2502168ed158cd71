package period_plan

import (
	"context"
	"fmt"
	"time"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrOverrideNotFound = apperror.NotFound("plan override")

type Repository interface {
	// Upsert stores the override for its week, replacing an existing one.
	Upsert(ctx context.Context, tenantId int, override PlanOverride) (PlanOverride, error)
	FindOverrides(ctx context.Context, tenantId int, clientId int, from, to time.Time) ([]PlanOverride, error)
	Delete(ctx context.Context, tenantId int, clientId int, weekStart time.Time) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Upsert(ctx context.Context, tenantId int, override PlanOverride) (PlanOverride, error) {
	query := `INSERT INTO plan_override (tenant_id, engagement_id, week_start, planned_hours, notes)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (tenant_id, engagement_id, week_start)
			      DO UPDATE SET planned_hours = EXCLUDED.planned_hours, notes = EXCLUDED.notes
			  RETURNING id`
	err := r.db.QueryRow(ctx, query, tenantId, override.ClientId, override.WeekStart, override.PlannedHours, override.Notes).Scan(&override.Id)
	if err != nil {
		err = fmt.Errorf("could not store plan override: %w", err)
		log.Error(err)
		return PlanOverride{}, err
	}
	return override, nil
}

func (r *RepositoryImpl) FindOverrides(ctx context.Context, tenantId int, clientId int, from, to time.Time) ([]PlanOverride, error) {
	query := `SELECT id, engagement_id, week_start, planned_hours::float8, notes
			  FROM plan_override
			  WHERE tenant_id = $1 AND engagement_id = $2 AND week_start BETWEEN $3 AND $4
			  ORDER BY week_start`
	rows, err := r.db.Query(ctx, query, tenantId, clientId, from, to)
	if err != nil {
		log.Error(err)
		return nil, err
	}
	overrides, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (PlanOverride, error) {
		var o PlanOverride
		err := row.Scan(&o.Id, &o.ClientId, &o.WeekStart, &o.PlannedHours, &o.Notes)
		return o, err
	})
	if err != nil {
		log.Error(err)
		return nil, err
	}
	return overrides, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, tenantId int, clientId int, weekStart time.Time) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM plan_override WHERE tenant_id = $1 AND engagement_id = $2 AND week_start = $3`,
		tenantId, clientId, weekStart)
	if err != nil {
		err = fmt.Errorf("could not delete plan override: %w", err)
		log.Error(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOverrideNotFound
	}
	return nil
}
