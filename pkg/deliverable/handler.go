package deliverable

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/internal/rest"
	"github.com/agencydesk/agencydesk/internal/utils"
	log "github.com/sirupsen/logrus"
)

type DeliverableDTO struct {
	Id                int     `json:"id"`
	ClientId          int     `json:"clientId"`
	Type              string  `json:"type"`
	Title             string  `json:"title"`
	Status            string  `json:"status"`
	DueDate           string  `json:"dueDate"`
	CompletedDate     *string `json:"completedDate,omitempty"`
	CountsTowardHours bool    `json:"countsTowardHours"`
	Assignee          *string `json:"assignee,omitempty"`
	ExternalLink      *string `json:"externalLink,omitempty"`
	StatusChangedAt   string  `json:"statusChangedAt"`
}

type AdvanceDTO struct {
	Status string `json:"status"`
	// ExpectedStatus is the status the caller last saw. Optional.
	ExpectedStatus string `json:"expectedStatus,omitempty"`
}

type PendingApprovalDTO struct {
	Deliverable DeliverableDTO `json:"deliverable"`
	AgeDays     int            `json:"ageDays"`
}

type GeneratedDTO struct {
	Created int `json:"created"`
}

type Handler struct {
	service Service
	clock   utils.Clock
}

func NewHandler(service Service, clock utils.Clock) *Handler {
	return &Handler{service: service, clock: clock}
}

// ListForClient godoc
// @Summary List deliverables of a client ordered by due date
// @Tags Deliverable
// @Produce json
// @Param clientId path int true "Client ID"
// @Success 200 {array} DeliverableDTO
// @Router /api/engagement/{clientId}/deliverable [get]
// @Security XTenantId
func (h *Handler) ListForClient(w http.ResponseWriter, r *http.Request) {
	clientId, ok := rest.PathInt(w, r, "clientId")
	if !ok {
		return
	}
	log.Debugf("Listing deliverables of client %d", clientId)
	deliverables, err := h.service.ListForClient(r.Context(), clientId)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTOs(deliverables))
}

// Create godoc
// @Summary Create an ad hoc deliverable
// @Tags Deliverable
// @Accept json
// @Produce json
// @Param clientId path int true "Client ID"
// @Param deliverable body DeliverableDTO true "Deliverable"
// @Success 201 {object} DeliverableDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/engagement/{clientId}/deliverable [post]
// @Security XTenantId
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	clientId, ok := rest.PathInt(w, r, "clientId")
	if !ok {
		return
	}
	var dto DeliverableDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body", err.Error())
		return
	}
	dto.ClientId = clientId
	d, err := FromDTO(dto)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), d)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, ToDTO(created))
}

// Advance godoc
// @Summary Move a deliverable to the next status
// @Tags Deliverable
// @Accept json
// @Produce json
// @Param deliverableId path int true "Deliverable ID"
// @Param status body AdvanceDTO true "Target status"
// @Success 200 {object} DeliverableDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 409 {object} rest.ErrorResponse
// @Router /api/deliverable/{deliverableId}/status [put]
// @Security XTenantId
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	id, ok := rest.PathInt(w, r, "deliverableId")
	if !ok {
		return
	}
	var dto AdvanceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body", err.Error())
		return
	}
	d, err := h.service.AdvanceFrom(r.Context(), id, Status(dto.ExpectedStatus), Status(dto.Status))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(d))
}

// PendingApprovals godoc
// @Summary List deliverables of a client waiting for approval
// @Tags Deliverable
// @Produce json
// @Param clientId path int true "Client ID"
// @Success 200 {array} PendingApprovalDTO
// @Router /api/engagement/{clientId}/deliverable/pending-approval [get]
// @Security XTenantId
func (h *Handler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	clientId, ok := rest.PathInt(w, r, "clientId")
	if !ok {
		return
	}
	pending, err := h.service.PendingApprovals(r.Context(), clientId)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	dtos := make([]PendingApprovalDTO, 0, len(pending))
	for _, p := range pending {
		dtos = append(dtos, PendingApprovalDTO{Deliverable: ToDTO(p.Deliverable), AgeDays: p.AgeDays})
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// UnrollCampaign godoc
// @Summary Create the monthly quota deliverables of a campaign
// @Tags Deliverable
// @Produce json
// @Param clientId path int true "Client ID"
// @Success 200 {object} GeneratedDTO
// @Router /api/engagement/{clientId}/deliverable/unroll [post]
// @Security XTenantId
func (h *Handler) UnrollCampaign(w http.ResponseWriter, r *http.Request) {
	clientId, ok := rest.PathInt(w, r, "clientId")
	if !ok {
		return
	}
	created, err := h.service.UnrollCampaignQuota(r.Context(), clientId)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, GeneratedDTO{Created: created})
}

// MaterializeRecurring godoc
// @Summary Create the recurring retainer deliverables of a month
// @Tags Deliverable
// @Produce json
// @Param date query string false "Any day of the month (YYYY-MM-DD), defaults to today"
// @Success 200 {object} GeneratedDTO
// @Router /api/deliverable/recurring [post]
// @Security XTenantId
func (h *Handler) MaterializeRecurring(w http.ResponseWriter, r *http.Request) {
	month, ok := rest.QueryDate(w, r, "date", utils.Today(h.clock))
	if !ok {
		return
	}
	created, err := h.service.MaterializeRecurring(r.Context(), month)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, GeneratedDTO{Created: created})
}

func ToDTOs(deliverables []Deliverable) []DeliverableDTO {
	dtos := make([]DeliverableDTO, 0, len(deliverables))
	for _, d := range deliverables {
		dtos = append(dtos, ToDTO(d))
	}
	return dtos
}

func ToDTO(d Deliverable) DeliverableDTO {
	dto := DeliverableDTO{
		Id:                d.Id,
		ClientId:          d.ClientId,
		Type:              string(d.Type),
		Title:             d.Title,
		Status:            string(d.Status),
		DueDate:           d.DueDate.Format(time.DateOnly),
		CountsTowardHours: d.CountsTowardHours,
		Assignee:          d.Assignee,
		ExternalLink:      d.ExternalLink,
		StatusChangedAt:   d.StatusChangedAt.Format(time.RFC3339),
	}
	if d.CompletedDate != nil {
		completed := d.CompletedDate.Format(time.DateOnly)
		dto.CompletedDate = &completed
	}
	return dto
}

func FromDTO(dto DeliverableDTO) (Deliverable, error) {
	due, err := utils.ParseDate(dto.DueDate)
	if err != nil {
		return Deliverable{}, apperror.Invalid("dueDate", "must be in YYYY-MM-DD format")
	}
	return Deliverable{
		ClientId:          dto.ClientId,
		Type:              Type(dto.Type),
		Title:             dto.Title,
		DueDate:           due,
		CountsTowardHours: dto.CountsTowardHours,
		Assignee:          dto.Assignee,
		ExternalLink:      dto.ExternalLink,
	}, nil
}
