package organization

import (
	"encoding/json"
	"net/http"

	"github.com/agencydesk/agencydesk/internal/rest"
	"github.com/agencydesk/agencydesk/pkg/tenant"
	log "github.com/sirupsen/logrus"
)

type OrganizationDTO struct {
	Id                 int    `json:"id"`
	Name               string `json:"name"`
	Slug               string `json:"slug"`
	Plan               string `json:"plan"`
	SubscriptionStatus string `json:"subscriptionStatus"`
	MaxClients         int    `json:"maxClients"`
	TimeTracking       bool   `json:"timeTracking"`
}

type SetupDTO struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	Plan string `json:"plan"`
}

type MemberDTO struct {
	UserId int    `json:"userId"`
	Role   string `json:"role"`
}

type SubscriptionStatusDTO struct {
	Status string `json:"status"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetCurrent godoc
// @Summary Get the current organization
// @Tags Organization
// @Produce json
// @Success 200 {object} OrganizationDTO
// @Failure 403 {object} rest.ErrorResponse
// @Router /api/organization [get]
// @Security XTenantId
func (h *Handler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	log.Debug("Getting current organization")
	org, err := h.service.Current(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(org))
}

// UpdateSubscriptionStatus godoc
// @Summary Set the subscription status reported by the billing system
// @Tags Organization
// @Accept json
// @Produce json
// @Param status body SubscriptionStatusDTO true "Subscription status"
// @Success 200 {object} OrganizationDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/organization/subscription [put]
// @Security XTenantId
func (h *Handler) UpdateSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	log.Debug("Updating subscription status")
	var body SubscriptionStatusDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rest.WriteBadRequest(w, "Invalid request body", err.Error())
		return
	}
	org, err := h.service.SetSubscriptionStatus(r.Context(), SubscriptionStatus(body.Status))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(org))
}

// Setup godoc
// @Summary Set up a new organization owned by the calling user
// @Tags Organization
// @Accept json
// @Produce json
// @Param organization body SetupDTO true "Organization"
// @Success 201 {object} OrganizationDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/organization/setup [post]
// @Security XUserId
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	log.Debug("Setting up organization")
	var body SetupDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rest.WriteBadRequest(w, "Invalid request body", err.Error())
		return
	}
	userId, err := tenant.CurrentUserId(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	org, err := h.service.Create(r.Context(), Organization{
		Name: body.Name,
		Slug: body.Slug,
		Plan: Plan(body.Plan),
	}, userId)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, toDTO(org))
}

// AddMember godoc
// @Summary Add a member to the current organization or change their role
// @Tags Organization
// @Accept json
// @Produce json
// @Param member body MemberDTO true "Member"
// @Success 200 {object} MemberDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 403 {object} rest.ErrorResponse
// @Router /api/organization/member [put]
// @Security XTenantId
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	log.Debug("Adding organization member")
	var body MemberDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rest.WriteBadRequest(w, "Invalid request body", err.Error())
		return
	}
	member, err := h.service.AddMember(r.Context(), body.UserId, tenant.Role(body.Role))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, MemberDTO{UserId: member.UserId, Role: string(member.Role)})
}

func toDTO(org Organization) OrganizationDTO {
	limits := LimitsFor(org.Plan)
	return OrganizationDTO{
		Id:                 org.Id,
		Name:               org.Name,
		Slug:               org.Slug,
		Plan:               string(org.Plan),
		SubscriptionStatus: string(org.SubscriptionStatus),
		MaxClients:         limits.MaxClients,
		TimeTracking:       limits.TimeTracking,
	}
}
