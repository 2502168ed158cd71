package engagement

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/internal/rest"
	"github.com/agencydesk/agencydesk/internal/utils"
	log "github.com/sirupsen/logrus"
)

type CampaignDTO struct {
	StartDate            string  `json:"startDate"`
	EndDate              string  `json:"endDate"`
	TotalHours           float64 `json:"totalHours"`
	MonthlyContentQuota  int     `json:"monthlyContentQuota"`
	MonthlyBacklinkQuota int     `json:"monthlyBacklinkQuota"`
}

type RecurringDeliverableDTO struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type RetainerDTO struct {
	MonthlyHours          float64                   `json:"monthlyHours"`
	RecurringDeliverables []RecurringDeliverableDTO `json:"recurringDeliverables"`
	Rollover              string                    `json:"rollover,omitempty"`
}

// TermsDTO carries exactly one of Campaign or Retainer, selected by Model.
type TermsDTO struct {
	Model    string       `json:"model"`
	Campaign *CampaignDTO `json:"campaign,omitempty"`
	Retainer *RetainerDTO `json:"retainer,omitempty"`
}

type EngagementDTO struct {
	ClientId       int      `json:"clientId"`
	Name           string   `json:"name"`
	Status         string   `json:"status"`
	Tier           int      `json:"tier"`
	AccountManager string   `json:"accountManager"`
	LaunchDate     *string  `json:"launchDate,omitempty"`
	Terms          TermsDTO `json:"terms"`
}

type StatusDTO struct {
	Status string `json:"status"`
}

type BudgetDTO struct {
	WindowStart      string  `json:"windowStart"`
	WindowEnd        string  `json:"windowEnd"`
	InWindow         bool    `json:"inWindow"`
	PlannedRemaining float64 `json:"plannedRemaining"`
	Allocated        float64 `json:"allocated"`
	Carried          float64 `json:"carried"`
	Total            float64 `json:"total"`
	Used             float64 `json:"used"`
	Remaining        float64 `json:"remaining"`
	OverBudget       bool    `json:"overBudget"`
}

type Handler struct {
	service Service
	clock   utils.Clock
}

func NewHandler(service Service, clock utils.Clock) *Handler {
	return &Handler{service: service, clock: clock}
}

// List godoc
// @Summary List client engagements of the current agency
// @Tags Engagement
// @Produce json
// @Success 200 {array} EngagementDTO
// @Router /api/engagement [get]
// @Security XTenantId
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing engagements")
	engagements, err := h.service.List(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	dtos := make([]EngagementDTO, 0, len(engagements))
	for _, e := range engagements {
		dtos = append(dtos, ToDTO(e))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// Get godoc
// @Summary Get a client engagement
// @Tags Engagement
// @Produce json
// @Param clientId path int true "Client ID"
// @Success 200 {object} EngagementDTO
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/engagement/{clientId} [get]
// @Security XTenantId
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	clientId, ok := clientIdVar(w, r)
	if !ok {
		return
	}
	e, err := h.service.Get(r.Context(), clientId)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(e))
}

// Onboard godoc
// @Summary Onboard a new client engagement
// @Tags Engagement
// @Accept json
// @Produce json
// @Param engagement body EngagementDTO true "Engagement"
// @Success 201 {object} EngagementDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/engagement [post]
// @Security XTenantId
func (h *Handler) Onboard(w http.ResponseWriter, r *http.Request) {
	log.Debug("Onboarding engagement")
	var dto EngagementDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body", err.Error())
		return
	}
	e, err := FromDTO(dto)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	created, err := h.service.Onboard(r.Context(), e)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, ToDTO(created))
}

// Configure godoc
// @Summary Replace the campaign or retainer terms of an engagement
// @Tags Engagement
// @Accept json
// @Produce json
// @Param clientId path int true "Client ID"
// @Param terms body TermsDTO true "Terms"
// @Success 200 {object} EngagementDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/engagement/{clientId}/terms [put]
// @Security XTenantId
func (h *Handler) Configure(w http.ResponseWriter, r *http.Request) {
	clientId, ok := clientIdVar(w, r)
	if !ok {
		return
	}
	var dto TermsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body", err.Error())
		return
	}
	terms, err := TermsFromDTO(dto)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	e, err := h.service.Configure(r.Context(), clientId, terms)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(e))
}

// SetStatus godoc
// @Summary Change the lifecycle status of an engagement (archive instead of delete)
// @Tags Engagement
// @Accept json
// @Produce json
// @Param clientId path int true "Client ID"
// @Param status body StatusDTO true "Status"
// @Success 200 {object} EngagementDTO
// @Router /api/engagement/{clientId}/status [put]
// @Security XTenantId
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	clientId, ok := clientIdVar(w, r)
	if !ok {
		return
	}
	var dto StatusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body", err.Error())
		return
	}
	e, err := h.service.SetStatus(r.Context(), clientId, Status(dto.Status))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(e))
}

// GetBudget godoc
// @Summary Hours allocated, used and remaining in the window containing the date
// @Tags Engagement
// @Produce json
// @Param clientId path int true "Client ID"
// @Param date query string false "As-of date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} BudgetDTO
// @Router /api/engagement/{clientId}/budget [get]
// @Security XTenantId
func (h *Handler) GetBudget(w http.ResponseWriter, r *http.Request) {
	clientId, ok := clientIdVar(w, r)
	if !ok {
		return
	}
	asOf, ok := AsOfParam(w, r, h.clock)
	if !ok {
		return
	}
	budget, err := h.service.Budget(r.Context(), clientId, asOf)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, BudgetToDTO(budget))
}

// AsOfParam reads the optional "date" query parameter, falling back to today.
func AsOfParam(w http.ResponseWriter, r *http.Request, clock utils.Clock) (time.Time, bool) {
	return rest.QueryDate(w, r, "date", utils.Today(clock))
}

func clientIdVar(w http.ResponseWriter, r *http.Request) (int, bool) {
	return rest.PathInt(w, r, "clientId")
}

func ToDTO(e Engagement) EngagementDTO {
	dto := EngagementDTO{
		ClientId:       e.ClientId,
		Name:           e.Name,
		Status:         string(e.Status),
		Tier:           e.Tier,
		AccountManager: e.AccountManager,
		Terms:          TermsToDTO(e.Terms),
	}
	if e.LaunchDate != nil {
		launch := e.LaunchDate.Format(time.DateOnly)
		dto.LaunchDate = &launch
	}
	return dto
}

func TermsToDTO(terms Terms) TermsDTO {
	switch t := terms.(type) {
	case Campaign:
		return TermsDTO{Model: string(ModelCampaign), Campaign: &CampaignDTO{
			StartDate:            t.StartDate.Format(time.DateOnly),
			EndDate:              t.EndDate.Format(time.DateOnly),
			TotalHours:           t.TotalHours,
			MonthlyContentQuota:  t.MonthlyContentQuota,
			MonthlyBacklinkQuota: t.MonthlyBacklinkQuota,
		}}
	case Retainer:
		recurring := make([]RecurringDeliverableDTO, 0, len(t.RecurringDeliverables))
		for _, rd := range t.RecurringDeliverables {
			recurring = append(recurring, RecurringDeliverableDTO{Type: string(rd.Type), Count: rd.Count})
		}
		return TermsDTO{Model: string(ModelRetainer), Retainer: &RetainerDTO{
			MonthlyHours:          t.MonthlyHours,
			RecurringDeliverables: recurring,
			Rollover:              string(t.Rollover),
		}}
	default:
		return TermsDTO{}
	}
}

func FromDTO(dto EngagementDTO) (Engagement, error) {
	terms, err := TermsFromDTO(dto.Terms)
	if err != nil {
		return Engagement{}, err
	}
	e := Engagement{
		Name:           dto.Name,
		Status:         Status(dto.Status),
		Tier:           dto.Tier,
		AccountManager: dto.AccountManager,
		Terms:          terms,
	}
	if dto.LaunchDate != nil {
		launch, err := utils.ParseDate(*dto.LaunchDate)
		if err != nil {
			return Engagement{}, apperror.Invalid("launchDate", "must be in YYYY-MM-DD format")
		}
		e.LaunchDate = &launch
	}
	return e, nil
}

// TermsFromDTO rejects payloads carrying the fields of the wrong variant.
func TermsFromDTO(dto TermsDTO) (Terms, error) {
	switch Model(dto.Model) {
	case ModelCampaign:
		if dto.Campaign == nil || dto.Retainer != nil {
			return nil, apperror.Invalid("campaign", "is required for the campaign model")
		}
		start, err := utils.ParseDate(dto.Campaign.StartDate)
		if err != nil {
			return nil, apperror.Invalid("startDate", "must be in YYYY-MM-DD format")
		}
		end, err := utils.ParseDate(dto.Campaign.EndDate)
		if err != nil {
			return nil, apperror.Invalid("endDate", "must be in YYYY-MM-DD format")
		}
		return Campaign{
			StartDate:            start,
			EndDate:              end,
			TotalHours:           dto.Campaign.TotalHours,
			MonthlyContentQuota:  dto.Campaign.MonthlyContentQuota,
			MonthlyBacklinkQuota: dto.Campaign.MonthlyBacklinkQuota,
		}, nil
	case ModelRetainer:
		if dto.Retainer == nil || dto.Campaign != nil {
			return nil, apperror.Invalid("retainer", "is required for the retainer model")
		}
		recurring := make([]RecurringDeliverable, 0, len(dto.Retainer.RecurringDeliverables))
		for _, rd := range dto.Retainer.RecurringDeliverables {
			recurring = append(recurring, RecurringDeliverable{Type: DeliverableType(rd.Type), Count: rd.Count})
		}
		return Retainer{
			MonthlyHours:          dto.Retainer.MonthlyHours,
			RecurringDeliverables: recurring,
			Rollover:              RolloverPolicy(dto.Retainer.Rollover),
		}, nil
	default:
		return nil, apperror.Invalid("model", "must be campaign or retainer")
	}
}

func BudgetToDTO(b BudgetStatus) BudgetDTO {
	return BudgetDTO{
		WindowStart:      b.Window.Start.Format(time.DateOnly),
		WindowEnd:        b.Window.End.Format(time.DateOnly),
		InWindow:         b.Window.Contains,
		PlannedRemaining: b.Window.PlannedRemaining,
		Allocated:        b.Allocated,
		Carried:          b.Carried,
		Total:            b.Total,
		Used:             b.Used,
		Remaining:        b.Remaining,
		OverBudget:       b.OverBudget(),
	}
}
