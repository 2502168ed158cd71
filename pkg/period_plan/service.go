package period_plan

import (
	"context"
	"fmt"
	"time"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/agencydesk/agencydesk/pkg/engagement"
	"github.com/agencydesk/agencydesk/pkg/tenant"
	"github.com/agencydesk/agencydesk/pkg/timelog"
)

type Service interface {
	MonthlyPlan(ctx context.Context, clientId int, month time.Time) (MonthlyPlan, error)
	MonthlyPlanFor(ctx context.Context, e engagement.Engagement, month time.Time) (MonthlyPlan, error)
	SetOverride(ctx context.Context, override PlanOverride) (PlanOverride, error)
	DeleteOverride(ctx context.Context, clientId int, weekStart time.Time) error
}

type EngagementSource interface {
	Get(ctx context.Context, clientId int) (engagement.Engagement, error)
}

type LedgerSource interface {
	EntriesFor(ctx context.Context, clientId int, from, to time.Time) ([]timelog.Entry, error)
}

type ServiceImpl struct {
	repo        Repository
	engagements EngagementSource
	ledger      LedgerSource
	anchor      time.Weekday
}

func NewService(repo Repository, engagements EngagementSource, ledger LedgerSource, anchor time.Weekday) *ServiceImpl {
	return &ServiceImpl{
		repo:        repo,
		engagements: engagements,
		ledger:      ledger,
		anchor:      anchor,
	}
}

func (s *ServiceImpl) MonthlyPlan(ctx context.Context, clientId int, month time.Time) (MonthlyPlan, error) {
	e, err := s.engagements.Get(ctx, clientId)
	if err != nil {
		return MonthlyPlan{}, err
	}
	return s.MonthlyPlanFor(ctx, e, month)
}

func (s *ServiceImpl) MonthlyPlanFor(ctx context.Context, e engagement.Engagement, month time.Time) (MonthlyPlan, error) {
	tenantId, err := tenant.CurrentId(ctx)
	if err != nil {
		return MonthlyPlan{}, fmt.Errorf("failed to get current tenant: %w", err)
	}
	start, end := engagement.MonthWindow(month)
	entries, err := s.ledger.EntriesFor(ctx, e.ClientId, start, end)
	if err != nil {
		return MonthlyPlan{}, err
	}
	overrides, err := s.repo.FindOverrides(ctx, tenantId, e.ClientId, start, end)
	if err != nil {
		return MonthlyPlan{}, err
	}
	return BuildMonthlyPlan(e, month, s.anchor, entries, overrides), nil
}

func (s *ServiceImpl) SetOverride(ctx context.Context, override PlanOverride) (PlanOverride, error) {
	identity, err := tenant.Manager(ctx)
	if err != nil {
		return PlanOverride{}, err
	}
	tenantId := identity.TenantId
	if !override.WeekStart.IsZero() {
		override.WeekStart = utils.DateOf(override.WeekStart)
	}
	if err := apperror.ValidateStruct(override); err != nil {
		return PlanOverride{}, err
	}
	if !s.isBucketStart(override.WeekStart) {
		return PlanOverride{}, apperror.Invalid("weekStart", "must be the first day of a week bucket")
	}
	if _, err := s.engagements.Get(ctx, override.ClientId); err != nil {
		return PlanOverride{}, err
	}
	return s.repo.Upsert(ctx, tenantId, override)
}

func (s *ServiceImpl) DeleteOverride(ctx context.Context, clientId int, weekStart time.Time) error {
	identity, err := tenant.Manager(ctx)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, identity.TenantId, clientId, utils.DateOf(weekStart))
}

func (s *ServiceImpl) isBucketStart(day time.Time) bool {
	for _, bucket := range PartitionMonth(day.Year(), day.Month(), s.anchor) {
		if bucket.Start.Equal(day) {
			return true
		}
	}
	return false
}
