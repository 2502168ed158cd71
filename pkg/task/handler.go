package task

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/agencydesk/agencydesk/internal/apperror"
	"github.com/agencydesk/agencydesk/internal/rest"
	"github.com/agencydesk/agencydesk/internal/utils"
	log "github.com/sirupsen/logrus"
)

type TaskDTO struct {
	Id        int      `json:"id"`
	ClientId  *int     `json:"clientId,omitempty"`
	Title     string   `json:"title"`
	Status    string   `json:"status"`
	Priority  string   `json:"priority"`
	Assignees []string `json:"assignees"`
	DueDate   *string  `json:"dueDate,omitempty"`
}

type StatusDTO struct {
	Status string `json:"status"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// List godoc
// @Summary List tasks of the current agency
// @Tags Task
// @Produce json
// @Success 200 {array} TaskDTO
// @Router /api/task [get]
// @Security XTenantId
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing tasks")
	tasks, err := h.service.List(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	dtos := make([]TaskDTO, 0, len(tasks))
	for _, t := range tasks {
		dtos = append(dtos, ToDTO(t))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// Create godoc
// @Summary Create a task
// @Tags Task
// @Accept json
// @Produce json
// @Param task body TaskDTO true "Task"
// @Success 201 {object} TaskDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/task [post]
// @Security XTenantId
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto TaskDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body", err.Error())
		return
	}
	t, err := FromDTO(dto)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), t)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, ToDTO(created))
}

// UpdateStatus godoc
// @Summary Move a task to another status column
// @Tags Task
// @Accept json
// @Produce json
// @Param taskId path int true "Task ID"
// @Param status body StatusDTO true "Status"
// @Success 200 {object} TaskDTO
// @Router /api/task/{taskId}/status [put]
// @Security XTenantId
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	taskId, ok := rest.PathInt(w, r, "taskId")
	if !ok {
		return
	}
	var dto StatusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteBadRequest(w, "Invalid request body", err.Error())
		return
	}
	t, err := h.service.UpdateStatus(r.Context(), taskId, Status(dto.Status))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(t))
}

func ToDTO(t Task) TaskDTO {
	dto := TaskDTO{
		Id:        t.Id,
		ClientId:  t.ClientId,
		Title:     t.Title,
		Status:    string(t.Status),
		Priority:  string(t.Priority),
		Assignees: t.Assignees,
	}
	if dto.Assignees == nil {
		dto.Assignees = []string{}
	}
	if t.DueDate != nil {
		due := t.DueDate.Format(time.DateOnly)
		dto.DueDate = &due
	}
	return dto
}

func FromDTO(dto TaskDTO) (Task, error) {
	t := Task{
		ClientId:  dto.ClientId,
		Title:     dto.Title,
		Status:    Status(dto.Status),
		Priority:  Priority(dto.Priority),
		Assignees: dto.Assignees,
	}
	if dto.DueDate != nil {
		due, err := utils.ParseDate(*dto.DueDate)
		if err != nil {
			return Task{}, apperror.Invalid("dueDate", "must be in YYYY-MM-DD format")
		}
		t.DueDate = &due
	}
	return t, nil
}
