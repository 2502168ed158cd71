package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/agencydesk/agencydesk/internal/config"
	"github.com/agencydesk/agencydesk/internal/event_bus"
	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/agencydesk/agencydesk/pkg/dashboard"
	"github.com/agencydesk/agencydesk/pkg/deliverable"
	"github.com/agencydesk/agencydesk/pkg/engagement"
	"github.com/agencydesk/agencydesk/pkg/engagement_report"
	"github.com/agencydesk/agencydesk/pkg/organization"
	"github.com/agencydesk/agencydesk/pkg/period_plan"
	"github.com/agencydesk/agencydesk/pkg/risk"
	"github.com/agencydesk/agencydesk/pkg/task"
	"github.com/agencydesk/agencydesk/pkg/tenant"
	"github.com/agencydesk/agencydesk/pkg/timelog"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus
	Clock    utils.Clock

	OrganizationService *organization.ServiceImpl
	OrganizationHandler *organization.Handler

	EngagementRepo    engagement.Repository
	EngagementService *engagement.ServiceImpl
	EngagementHandler *engagement.Handler

	TaskService *task.ServiceImpl
	TaskHandler *task.Handler

	TimelogService *timelog.ServiceImpl
	TimelogHandler *timelog.Handler

	DeliverableService *deliverable.ServiceImpl
	DeliverableHandler *deliverable.Handler

	PeriodPlanService *period_plan.ServiceImpl
	PeriodPlanHandler *period_plan.Handler

	ReportService *engagement_report.ServiceImpl
	ReportHandler *engagement_report.Handler

	DashboardService *dashboard.ServiceImpl
	DashboardHandler *dashboard.Handler
}

// clientDirectory answers "does this client exist" for the ledger straight from the engagement
// repository, so the ledger does not depend on the engagement service that reads from it.
type clientDirectory struct {
	repo engagement.Repository
}

func (d clientDirectory) ClientExists(ctx context.Context, clientId int) (bool, error) {
	tenantId, err := tenant.CurrentId(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get current tenant: %w", err)
	}
	_, err = d.repo.Get(ctx, tenantId, clientId)
	if errors.Is(err, engagement.ErrEngagementNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) (*Dependencies, error) {
	anchor, err := period_plan.ParseWeekday(cfg.Planner.AnchorWeekday)
	if err != nil {
		return nil, fmt.Errorf("invalid planner anchor weekday: %w", err)
	}
	rule, err := risk.ParseRule(cfg.Risk.Rule)
	if err != nil {
		return nil, fmt.Errorf("invalid risk rule: %w", err)
	}
	rollover := engagement.RolloverPolicy(cfg.Engagement.Rollover)
	if !rollover.Valid() {
		return nil, fmt.Errorf("invalid rollover policy %q", cfg.Engagement.Rollover)
	}
	riskCfg := risk.DefaultConfig()
	riskCfg.Rule = rule
	if cfg.Risk.ApprovalMaxAgeDays > 0 {
		riskCfg.ApprovalMaxAgeDays = cfg.Risk.ApprovalMaxAgeDays
	}
	if cfg.Risk.WarningThreshold > 0 {
		riskCfg.WarningThreshold = cfg.Risk.WarningThreshold
	}

	deps := &Dependencies{}
	deps.EventBus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}

	deps.OrganizationService = organization.NewService(organization.NewRepository(db))
	deps.OrganizationHandler = organization.NewHandler(deps.OrganizationService)

	deps.TaskService = task.NewService(task.NewRepository(db))
	deps.TaskHandler = task.NewHandler(deps.TaskService)

	deps.EngagementRepo = engagement.NewRepository(db)
	deps.TimelogService = timelog.NewService(
		timelog.NewRepository(db),
		clientDirectory{repo: deps.EngagementRepo},
		deps.TaskService,
		deps.OrganizationService,
		deps.EventBus,
		deps.Clock,
	)
	deps.TimelogHandler = timelog.NewHandler(deps.TimelogService, deps.Clock)

	deps.EngagementService = engagement.NewService(
		deps.EngagementRepo,
		deps.TimelogService,
		deps.OrganizationService,
		deps.EventBus,
		deps.Clock,
		rollover,
	)
	deps.EngagementHandler = engagement.NewHandler(deps.EngagementService, deps.Clock)

	deps.DeliverableService = deliverable.NewService(deliverable.NewRepository(db), deps.EngagementService, deps.EventBus, deps.Clock)
	deps.DeliverableHandler = deliverable.NewHandler(deps.DeliverableService, deps.Clock)

	deps.PeriodPlanService = period_plan.NewService(period_plan.NewRepository(db), deps.EngagementService, deps.TimelogService, anchor)
	deps.PeriodPlanHandler = period_plan.NewHandler(deps.PeriodPlanService, period_plan.NewCsvPlanRenderer(), deps.Clock)

	deps.ReportService = engagement_report.NewService(deps.EngagementService, deps.DeliverableService, deps.PeriodPlanService, riskCfg)
	deps.ReportHandler = engagement_report.NewHandler(deps.ReportService, deps.Clock)

	deps.DashboardService = dashboard.NewService(deps.DeliverableService, deps.TaskService, deps.ReportService, deps.Clock, cfg.Dashboard.UpcomingLimit)
	deps.DashboardHandler = dashboard.NewHandler(deps.DashboardService)

	subscribeAuditLog(deps.EventBus)

	return deps, nil
}

// subscribeAuditLog records every deliverable status change.
func subscribeAuditLog(bus *event_bus.EventBus) {
	event_bus.SubscribeTyped(bus, event_bus.DeliverableStatusChanged, func(e event_bus.EventT[event_bus.DeliverableStatusUpdated]) error {
		log.WithFields(log.Fields{
			"tenant":      e.Data.TenantId,
			"client":      e.Data.ClientId,
			"deliverable": e.Data.DeliverableId,
			"from":        e.Data.From,
			"to":          e.Data.To,
		}).Info("deliverable status changed")
		return nil
	})
}
