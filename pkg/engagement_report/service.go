package engagement_report

import (
	"context"
	"time"

	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/agencydesk/agencydesk/pkg/dashboard"
	"github.com/agencydesk/agencydesk/pkg/deliverable"
	"github.com/agencydesk/agencydesk/pkg/engagement"
	"github.com/agencydesk/agencydesk/pkg/period_plan"
	"github.com/agencydesk/agencydesk/pkg/risk"
)

type Service interface {
	ClientReport(ctx context.Context, clientId int, asOf time.Time) (Report, error)
	Portfolio(ctx context.Context, asOf time.Time) ([]Report, error)
	CountAtRisk(ctx context.Context, asOf time.Time) (dashboard.PortfolioCounts, error)
}

type Engagements interface {
	Get(ctx context.Context, clientId int) (engagement.Engagement, error)
	List(ctx context.Context) ([]engagement.Engagement, error)
	BudgetFor(ctx context.Context, e engagement.Engagement, asOf time.Time) (engagement.BudgetStatus, error)
}

type Deliverables interface {
	ListForClient(ctx context.Context, clientId int) ([]deliverable.Deliverable, error)
}

type Planner interface {
	MonthlyPlanFor(ctx context.Context, e engagement.Engagement, month time.Time) (period_plan.MonthlyPlan, error)
}

type ServiceImpl struct {
	engagements  Engagements
	deliverables Deliverables
	planner      Planner
	cfg          risk.Config
}

func NewService(engagements Engagements, deliverables Deliverables, planner Planner, cfg risk.Config) *ServiceImpl {
	return &ServiceImpl{
		engagements:  engagements,
		deliverables: deliverables,
		planner:      planner,
		cfg:          cfg,
	}
}

func (s *ServiceImpl) ClientReport(ctx context.Context, clientId int, asOf time.Time) (Report, error) {
	e, err := s.engagements.Get(ctx, clientId)
	if err != nil {
		return Report{}, err
	}
	return s.report(ctx, e, utils.DateOf(asOf))
}

func (s *ServiceImpl) Portfolio(ctx context.Context, asOf time.Time) ([]Report, error) {
	engagements, err := s.engagements.List(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]Report, 0, len(engagements))
	for _, e := range engagements {
		if !Reportable(e) {
			continue
		}
		r, err := s.report(ctx, e, utils.DateOf(asOf))
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (s *ServiceImpl) CountAtRisk(ctx context.Context, asOf time.Time) (dashboard.PortfolioCounts, error) {
	reports, err := s.Portfolio(ctx, asOf)
	if err != nil {
		return dashboard.PortfolioCounts{}, err
	}
	counts := dashboard.PortfolioCounts{Clients: len(reports)}
	for _, r := range reports {
		if r.Assessment.IsAtRisk {
			counts.AtRiskClients++
		}
	}
	return counts, nil
}

func (s *ServiceImpl) report(ctx context.Context, e engagement.Engagement, asOf time.Time) (Report, error) {
	budget, err := s.engagements.BudgetFor(ctx, e, asOf)
	if err != nil {
		return Report{}, err
	}
	deliverables, err := s.deliverables.ListForClient(ctx, e.ClientId)
	if err != nil {
		return Report{}, err
	}
	plan, err := s.planner.MonthlyPlanFor(ctx, e, asOf)
	if err != nil {
		return Report{}, err
	}
	return Build(e, budget, deliverables, plan, asOf, s.cfg), nil
}
