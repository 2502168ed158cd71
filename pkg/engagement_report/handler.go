package engagement_report

import (
	"net/http"
	"time"

	"github.com/agencydesk/agencydesk/internal/rest"
	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/agencydesk/agencydesk/pkg/deliverable"
	"github.com/agencydesk/agencydesk/pkg/engagement"
	"github.com/agencydesk/agencydesk/pkg/period_plan"
	log "github.com/sirupsen/logrus"
)

type ContentDTO struct {
	Target    int  `json:"target"`
	DueToDate int  `json:"dueToDate"`
	Delivered int  `json:"delivered"`
	PastDue   int  `json:"pastDue"`
	OnTrack   bool `json:"isOnTrack"`
}

type AssessmentDTO struct {
	UtilizationPct   int      `json:"utilizationPct"`
	UtilizationRatio float64  `json:"utilizationRatio"`
	Level            string   `json:"level"`
	IsAtRisk         bool     `json:"isAtRisk"`
	Reasons          []string `json:"reasons"`
}

type PendingApprovalDTO struct {
	Deliverable deliverable.DeliverableDTO `json:"deliverable"`
	AgeDays     int                        `json:"ageDays"`
}

type ReportDTO struct {
	AsOf             string                     `json:"asOf"`
	Engagement       engagement.EngagementDTO   `json:"engagement"`
	Budget           engagement.BudgetDTO       `json:"budget"`
	Content          ContentDTO                 `json:"content"`
	PendingApprovals []PendingApprovalDTO       `json:"pendingApprovals"`
	Assessment       AssessmentDTO              `json:"assessment"`
	Plan             period_plan.MonthlyPlanDTO `json:"plan"`
}

type Handler struct {
	service Service
	clock   utils.Clock
}

func NewHandler(service Service, clock utils.Clock) *Handler {
	return &Handler{service: service, clock: clock}
}

// GetClientReport godoc
// @Summary Budget, content progress, risk and monthly plan of one client
// @Tags Report
// @Produce json
// @Param clientId path int true "Client ID"
// @Param date query string false "As-of date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} ReportDTO
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/engagement/{clientId}/report [get]
// @Security XTenantId
func (h *Handler) GetClientReport(w http.ResponseWriter, r *http.Request) {
	clientId, ok := rest.PathInt(w, r, "clientId")
	if !ok {
		return
	}
	asOf, ok := engagement.AsOfParam(w, r, h.clock)
	if !ok {
		return
	}
	log.Debugf("Building report of client %d as of %s", clientId, asOf.Format(time.DateOnly))
	report, err := h.service.ClientReport(r.Context(), clientId, asOf)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(report))
}

// GetPortfolio godoc
// @Summary Reports of every active client
// @Tags Report
// @Produce json
// @Param date query string false "As-of date (YYYY-MM-DD), defaults to today"
// @Success 200 {array} ReportDTO
// @Router /api/report/portfolio [get]
// @Security XTenantId
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	asOf, ok := engagement.AsOfParam(w, r, h.clock)
	if !ok {
		return
	}
	reports, err := h.service.Portfolio(r.Context(), asOf)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	dtos := make([]ReportDTO, 0, len(reports))
	for _, report := range reports {
		dtos = append(dtos, ToDTO(report))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func ToDTO(r Report) ReportDTO {
	approvals := make([]PendingApprovalDTO, 0, len(r.PendingApprovals))
	for _, p := range r.PendingApprovals {
		approvals = append(approvals, PendingApprovalDTO{Deliverable: deliverable.ToDTO(p.Deliverable), AgeDays: p.AgeDays})
	}
	reasons := r.Assessment.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return ReportDTO{
		AsOf:       r.AsOf.Format(time.DateOnly),
		Engagement: engagement.ToDTO(r.Engagement),
		Budget:     engagement.BudgetToDTO(r.Budget),
		Content: ContentDTO{
			Target:    r.Content.Target,
			DueToDate: r.Content.DueToDate,
			Delivered: r.Content.Delivered,
			PastDue:   r.Content.PastDue,
			OnTrack:   r.Content.OnTrack,
		},
		PendingApprovals: approvals,
		Assessment: AssessmentDTO{
			UtilizationPct:   r.Assessment.UtilizationPct,
			UtilizationRatio: r.Assessment.UtilizationRatio,
			Level:            string(r.Assessment.Level),
			IsAtRisk:         r.Assessment.IsAtRisk,
			Reasons:          reasons,
		},
		Plan: period_plan.ToDTO(r.Plan),
	}
}
