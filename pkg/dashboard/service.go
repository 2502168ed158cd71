package dashboard

import (
	"context"
	"time"

	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/agencydesk/agencydesk/pkg/deliverable"
	"github.com/agencydesk/agencydesk/pkg/task"
)

type Service interface {
	Summary(ctx context.Context) (Summary, error)
}

type DeliverableLister interface {
	List(ctx context.Context) ([]deliverable.Deliverable, error)
}

type TaskLister interface {
	List(ctx context.Context) ([]task.Task, error)
}

type PortfolioCounter interface {
	CountAtRisk(ctx context.Context, asOf time.Time) (PortfolioCounts, error)
}

type ServiceImpl struct {
	deliverables  DeliverableLister
	tasks         TaskLister
	portfolio     PortfolioCounter
	clock         utils.Clock
	upcomingLimit int
}

func NewService(deliverables DeliverableLister, tasks TaskLister, portfolio PortfolioCounter, clock utils.Clock, upcomingLimit int) *ServiceImpl {
	if upcomingLimit <= 0 {
		upcomingLimit = 8
	}
	return &ServiceImpl{
		deliverables:  deliverables,
		tasks:         tasks,
		portfolio:     portfolio,
		clock:         clock,
		upcomingLimit: upcomingLimit,
	}
}

func (s *ServiceImpl) Summary(ctx context.Context) (Summary, error) {
	deliverables, err := s.deliverables.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	today := utils.Today(s.clock)
	portfolio, err := s.portfolio.CountAtRisk(ctx, today)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(deliverables, tasks, portfolio, today, s.upcomingLimit), nil
}
