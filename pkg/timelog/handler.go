package timelog

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/internal/rest"
	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type EntryDTO struct {
	Id          string  `json:"id,omitempty"`
	ClientId    int     `json:"clientId"`
	TaskId      *int    `json:"taskId,omitempty"`
	UserId      int     `json:"userId,omitempty"`
	Date        string  `json:"date"`
	Hours       float64 `json:"hours"`
	Description string  `json:"description"`
	Billable    bool    `json:"billable"`
	Kind        string  `json:"kind,omitempty"`
	ReversesId  *string `json:"reversesId,omitempty"`
}

type ReversalDTO struct {
	Description string `json:"description"`
}

type EntryIdDTO struct {
	Id string `json:"id"`
}

type Handler struct {
	service Service
	clock   utils.Clock
}

func NewHandler(service Service, clock utils.Clock) *Handler {
	return &Handler{service: service, clock: clock}
}

// Record godoc
// @Summary Record hours spent for a client
// @Tags TimeEntry
// @Accept json
// @Produce json
// @Param clientId path int true "Client ID"
// @Param entry body EntryDTO true "Time entry"
// @Success 201 {object} EntryIdDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/engagement/{clientId}/time [post]
// @Security XTenantId
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	clientId, ok := rest.PathInt(w, r, "clientId")
	if !ok {
		return
	}
	var dto EntryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body", err.Error())
		return
	}
	dto.ClientId = clientId
	entry, err := FromDTO(dto)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	id, err := h.service.RecordEntry(r.Context(), entry)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, EntryIdDTO{Id: id.String()})
}

// Reverse godoc
// @Summary Cancel a time entry by appending a reversal
// @Tags TimeEntry
// @Accept json
// @Produce json
// @Param entryId path string true "Entry ID"
// @Param reversal body ReversalDTO false "Reason"
// @Success 201 {object} EntryIdDTO
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/time/{entryId}/reversal [post]
// @Security XTenantId
func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	entryId, err := uuid.Parse(mux.Vars(r)["entryId"])
	if err != nil {
		rest.WriteBadRequest(w, "Invalid entry id", err.Error())
		return
	}
	var dto ReversalDTO
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			rest.WriteBadRequest(w, "Invalid request body", err.Error())
			return
		}
	}
	id, err := h.service.RecordReversal(r.Context(), entryId, dto.Description)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, EntryIdDTO{Id: id.String()})
}

// List godoc
// @Summary List time entries of a client, ordered by date and insertion
// @Tags TimeEntry
// @Produce json
// @Param clientId path int true "Client ID"
// @Param from query string false "First day (YYYY-MM-DD), defaults to the first of the current month"
// @Param to query string false "Last day (YYYY-MM-DD), defaults to today"
// @Success 200 {array} EntryDTO
// @Router /api/engagement/{clientId}/time [get]
// @Security XTenantId
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	clientId, ok := rest.PathInt(w, r, "clientId")
	if !ok {
		return
	}
	today := utils.Today(h.clock)
	from, ok := rest.QueryDate(w, r, "from", today.AddDate(0, 0, 1-today.Day()))
	if !ok {
		return
	}
	to, ok := rest.QueryDate(w, r, "to", today)
	if !ok {
		return
	}
	log.Debugf("Listing time entries of client %d from %s to %s", clientId, from.Format(time.DateOnly), to.Format(time.DateOnly))

	entries, err := h.service.EntriesFor(r.Context(), clientId, from, to)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	dtos := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, ToDTO(e))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func ToDTO(e Entry) EntryDTO {
	dto := EntryDTO{
		Id:          e.Id.String(),
		ClientId:    e.ClientId,
		TaskId:      e.TaskId,
		UserId:      e.UserId,
		Date:        e.Date.Format(time.DateOnly),
		Hours:       e.Hours,
		Description: e.Description,
		Billable:    e.Billable,
		Kind:        string(e.Kind),
	}
	if e.ReversesId != nil {
		reverses := e.ReversesId.String()
		dto.ReversesId = &reverses
	}
	return dto
}

func FromDTO(dto EntryDTO) (Entry, error) {
	date, err := utils.ParseDate(dto.Date)
	if err != nil {
		return Entry{}, apperror.Invalid("date", "must be in YYYY-MM-DD format")
	}
	return Entry{
		ClientId:    dto.ClientId,
		TaskId:      dto.TaskId,
		Date:        date,
		Hours:       dto.Hours,
		Description: dto.Description,
		Billable:    dto.Billable,
	}, nil
}
