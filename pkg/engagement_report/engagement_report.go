package engagement_report

import (
	"time"

	"github.com/agencydesk/agencydesk/pkg/deliverable"
	"github.com/agencydesk/agencydesk/pkg/engagement"
	"github.com/agencydesk/agencydesk/pkg/period_plan"
	"github.com/agencydesk/agencydesk/pkg/risk"
)

// Report is everything known about one client as of a day. Hours and deliverables are reported side by side
// and never converted into each other.
type Report struct {
	AsOf             time.Time
	Engagement       engagement.Engagement
	Budget           engagement.BudgetStatus
	Content          risk.ContentProgress
	PendingApprovals []deliverable.PendingApproval
	Assessment       risk.Assessment
	Plan             period_plan.MonthlyPlan
}

// Build assembles a report from already loaded state. Content delivered counts content deliverables
// completed between the start of the current window and asOf.
func Build(e engagement.Engagement, budget engagement.BudgetStatus, deliverables []deliverable.Deliverable, plan period_plan.MonthlyPlan, asOf time.Time, cfg risk.Config) Report {
	schedule := e.ContentSchedule(asOf)
	delivered := 0
	if !schedule.Window.Start.IsZero() {
		delivered = deliverable.CountCompleted(deliverables, engagement.DeliverableContent, schedule.Window.Start, asOf)
	}
	progress := risk.ScheduledContentProgress(schedule, delivered)
	approvals := deliverable.PendingApprovals(deliverables, asOf)
	return Report{
		AsOf:             asOf,
		Engagement:       e,
		Budget:           budget,
		Content:          progress,
		PendingApprovals: approvals,
		Assessment:       risk.Evaluate(budget, progress, approvals, cfg),
		Plan:             plan,
	}
}

// Reportable is false for engagements that ended. They are left out of the portfolio.
func Reportable(e engagement.Engagement) bool {
	return e.Status != engagement.StatusArchived && e.Status != engagement.StatusCancelled
}
