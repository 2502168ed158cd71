package app

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	// Organization
	r.HandleFunc("/api/organization", deps.OrganizationHandler.GetCurrent).Methods("GET")
	r.HandleFunc("/api/organization/setup", deps.OrganizationHandler.Setup).Methods("POST")
	r.HandleFunc("/api/organization/member", deps.OrganizationHandler.AddMember).Methods("PUT")
	r.HandleFunc("/api/organization/subscription", deps.OrganizationHandler.UpdateSubscriptionStatus).Methods("PUT")

	// Engagements
	r.HandleFunc("/api/engagement", deps.EngagementHandler.List).Methods("GET")
	r.HandleFunc("/api/engagement", deps.EngagementHandler.Onboard).Methods("POST")
	r.HandleFunc("/api/engagement/{clientId}", deps.EngagementHandler.Get).Methods("GET")
	r.HandleFunc("/api/engagement/{clientId}/terms", deps.EngagementHandler.Configure).Methods("PUT")
	r.HandleFunc("/api/engagement/{clientId}/status", deps.EngagementHandler.SetStatus).Methods("PUT")
	r.HandleFunc("/api/engagement/{clientId}/budget", deps.EngagementHandler.GetBudget).Methods("GET")

	// Time ledger
	r.HandleFunc("/api/engagement/{clientId}/time", deps.TimelogHandler.Record).Methods("POST")
	r.HandleFunc("/api/engagement/{clientId}/time", deps.TimelogHandler.List).Methods("GET")
	r.HandleFunc("/api/time/{entryId}/reversal", deps.TimelogHandler.Reverse).Methods("POST")

	// Deliverables
	r.HandleFunc("/api/engagement/{clientId}/deliverable", deps.DeliverableHandler.ListForClient).Methods("GET")
	r.HandleFunc("/api/engagement/{clientId}/deliverable", deps.DeliverableHandler.Create).Methods("POST")
	r.HandleFunc("/api/engagement/{clientId}/deliverable/pending-approval", deps.DeliverableHandler.PendingApprovals).Methods("GET")
	r.HandleFunc("/api/engagement/{clientId}/deliverable/unroll", deps.DeliverableHandler.UnrollCampaign).Methods("POST")
	r.HandleFunc("/api/deliverable/recurring", deps.DeliverableHandler.MaterializeRecurring).Methods("POST")
	r.HandleFunc("/api/deliverable/{deliverableId}/status", deps.DeliverableHandler.Advance).Methods("PUT")

	// Tasks
	r.HandleFunc("/api/task", deps.TaskHandler.List).Methods("GET")
	r.HandleFunc("/api/task", deps.TaskHandler.Create).Methods("POST")
	r.HandleFunc("/api/task/{taskId}/status", deps.TaskHandler.UpdateStatus).Methods("PUT")

	// Monthly plan
	r.HandleFunc("/api/engagement/{clientId}/plan", deps.PeriodPlanHandler.GetMonthlyPlan).Methods("GET")
	r.HandleFunc("/api/engagement/{clientId}/plan/override", deps.PeriodPlanHandler.SetOverride).Methods("PUT")
	r.HandleFunc("/api/engagement/{clientId}/plan/override/{weekStart}", deps.PeriodPlanHandler.DeleteOverride).Methods("DELETE")

	// Reports
	r.HandleFunc("/api/engagement/{clientId}/report", deps.ReportHandler.GetClientReport).Methods("GET")
	r.HandleFunc("/api/report/portfolio", deps.ReportHandler.GetPortfolio).Methods("GET")
	r.HandleFunc("/api/dashboard", deps.DashboardHandler.GetSummary).Methods("GET")
}
