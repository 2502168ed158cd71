package dashboard

import (
	"net/http"

	"github.com/agencydesk/agencydesk/internal/rest"
	"github.com/agencydesk/agencydesk/pkg/task"
	log "github.com/sirupsen/logrus"
)

type SummaryDTO struct {
	Deliverables DeliverableCountsDTO `json:"deliverables"`
	Tasks        TaskCountsDTO        `json:"tasks"`
	Upcoming     []task.TaskDTO       `json:"upcoming"`
	Clients      int                  `json:"clients"`
	AtRisk       int                  `json:"atRiskClients"`
}

type DeliverableCountsDTO struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	Pending    int `json:"pending"`
	Overdue    int `json:"overdue"`
}

type TaskCountsDTO struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"byStatus"`
	Unassigned int            `json:"unassigned"`
	Overdue    int            `json:"overdue"`
	DueToday   int            `json:"dueToday"`
	NoDueDate  int            `json:"noDueDate"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetSummary godoc
// @Summary Agency-wide counts of deliverables, tasks and clients at risk
// @Tags Dashboard
// @Produce json
// @Success 200 {object} SummaryDTO
// @Router /api/dashboard [get]
// @Security XTenantId
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	log.Debug("Getting dashboard summary")
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(summary))
}

func ToDTO(s Summary) SummaryDTO {
	byStatus := make(map[string]int, len(s.Tasks.ByStatus))
	for status, count := range s.Tasks.ByStatus {
		byStatus[string(status)] = count
	}
	upcoming := make([]task.TaskDTO, 0, len(s.Upcoming))
	for _, t := range s.Upcoming {
		upcoming = append(upcoming, task.ToDTO(t))
	}
	return SummaryDTO{
		Deliverables: DeliverableCountsDTO(s.Deliverables),
		Tasks: TaskCountsDTO{
			Total:      s.Tasks.Total,
			ByStatus:   byStatus,
			Unassigned: s.Tasks.Unassigned,
			Overdue:    s.Tasks.Overdue,
			DueToday:   s.Tasks.DueToday,
			NoDueDate:  s.Tasks.NoDueDate,
		},
		Upcoming: upcoming,
		Clients:  s.Portfolio.Clients,
		AtRisk:   s.Portfolio.AtRiskClients,
	}
}
