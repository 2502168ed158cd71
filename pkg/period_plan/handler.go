package period_plan

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/internal/rest"
	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type WeekBucketDTO struct {
	WeekNumber int     `json:"weekNumber"`
	StartDate  string  `json:"startDate"`
	EndDate    string  `json:"endDate"`
	Label      string  `json:"label"`
	Full       bool    `json:"full"`
	Active     bool    `json:"active"`
	Overridden bool    `json:"overridden"`
	Planned    float64 `json:"planned"`
	Logged     float64 `json:"logged"`
	Variance   float64 `json:"variance"`
}

type MonthlyPlanDTO struct {
	ClientId      int             `json:"clientId"`
	Month         string          `json:"month"`
	Weeks         []WeekBucketDTO `json:"weeks"`
	TotalPlanned  float64         `json:"totalPlanned"`
	TotalLogged   float64         `json:"totalLogged"`
	TotalVariance float64         `json:"totalVariance"`
}

type PlanOverrideDTO struct {
	Id           int     `json:"id"`
	WeekStart    string  `json:"weekStart"`
	PlannedHours float64 `json:"plannedHours"`
	Notes        string  `json:"notes"`
}

type Handler struct {
	service  Service
	renderer *CsvPlanRenderer
	clock    utils.Clock
}

func NewHandler(service Service, renderer *CsvPlanRenderer, clock utils.Clock) *Handler {
	return &Handler{service: service, renderer: renderer, clock: clock}
}

// GetMonthlyPlan godoc
// @Summary Planned and logged hours of a client per week of a month
// @Tags Plan
// @Produce json
// @Produce text/csv
// @Param clientId path int true "Client ID"
// @Param month query string false "Month (YYYY-MM), defaults to the current month"
// @Param format query string false "json (default) or csv"
// @Success 200 {object} MonthlyPlanDTO
// @Router /api/engagement/{clientId}/plan [get]
// @Security XTenantId
func (h *Handler) GetMonthlyPlan(w http.ResponseWriter, r *http.Request) {
	clientId, ok := rest.PathInt(w, r, "clientId")
	if !ok {
		return
	}
	month := utils.Today(h.clock)
	if monthString := r.URL.Query().Get("month"); monthString != "" {
		parsed, err := time.Parse("2006-01", monthString)
		if err != nil {
			rest.WriteBadRequest(w, "Invalid month format", "month must be in YYYY-MM format")
			return
		}
		month = parsed
	}
	log.Debugf("Getting monthly plan of client %d for %s", clientId, month.Format("2006-01"))

	plan, err := h.service.MonthlyPlan(r.Context(), clientId, month)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	if wantsCsv(r) {
		body, err := h.renderer.RenderPlan(plan)
		if err != nil {
			rest.WriteError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=plan-"+plan.Month.Format("2006-01")+".csv")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(plan))
}

// SetOverride godoc
// @Summary Replace the planned hours of one week bucket
// @Tags Plan
// @Accept json
// @Produce json
// @Param clientId path int true "Client ID"
// @Param override body PlanOverrideDTO true "Override"
// @Success 200 {object} PlanOverrideDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/engagement/{clientId}/plan/override [put]
// @Security XTenantId
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	clientId, ok := rest.PathInt(w, r, "clientId")
	if !ok {
		return
	}
	var dto PlanOverrideDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body", err.Error())
		return
	}
	weekStart, err := utils.ParseDate(dto.WeekStart)
	if err != nil {
		rest.WriteError(w, apperror.Invalid("weekStart", "must be in YYYY-MM-DD format"))
		return
	}
	stored, err := h.service.SetOverride(r.Context(), PlanOverride{
		ClientId:     clientId,
		WeekStart:    weekStart,
		PlannedHours: dto.PlannedHours,
		Notes:        dto.Notes,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, PlanOverrideDTO{
		Id:           stored.Id,
		WeekStart:    stored.WeekStart.Format(time.DateOnly),
		PlannedHours: stored.PlannedHours,
		Notes:        stored.Notes,
	})
}

// DeleteOverride godoc
// @Summary Remove the override of one week bucket
// @Tags Plan
// @Param clientId path int true "Client ID"
// @Param weekStart path string true "First day of the bucket (YYYY-MM-DD)"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/engagement/{clientId}/plan/override/{weekStart} [delete]
// @Security XTenantId
func (h *Handler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	clientId, ok := rest.PathInt(w, r, "clientId")
	if !ok {
		return
	}
	weekStart, err := utils.ParseDate(mux.Vars(r)["weekStart"])
	if err != nil {
		rest.WriteBadRequest(w, "Invalid date format", "weekStart must be in YYYY-MM-DD format")
		return
	}
	if err := h.service.DeleteOverride(r.Context(), clientId, weekStart); err != nil {
		rest.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func wantsCsv(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv" || strings.Contains(r.Header.Get("Accept"), "text/csv")
}

func ToDTO(plan MonthlyPlan) MonthlyPlanDTO {
	weeks := make([]WeekBucketDTO, 0, len(plan.Weeks))
	for _, week := range plan.Weeks {
		weeks = append(weeks, WeekBucketDTO{
			WeekNumber: week.WeekNumber,
			StartDate:  week.Start.Format(time.DateOnly),
			EndDate:    week.End.Format(time.DateOnly),
			Label:      week.Label,
			Full:       week.Full,
			Active:     week.Active,
			Overridden: week.Overridden,
			Planned:    week.Planned,
			Logged:     week.Logged,
			Variance:   week.Variance,
		})
	}
	return MonthlyPlanDTO{
		ClientId:      plan.ClientId,
		Month:         plan.Month.Format("2006-01"),
		Weeks:         weeks,
		TotalPlanned:  plan.TotalPlanned,
		TotalLogged:   plan.TotalLogged,
		TotalVariance: plan.TotalVariance,
	}
}
