package organization

import "github.com/agencydesk/agencydesk/pkg/tenant"

type Plan string

const (
	PlanStarter    Plan = "starter"
	PlanPro        Plan = "pro"
	PlanAgency     Plan = "agency"
	PlanEnterprise Plan = "enterprise"
)

type SubscriptionStatus string

const (
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

type Organization struct {
	Id                 int
	Name               string             `validate:"required,max=200"`
	Slug               string             `validate:"required,max=63,lowercase"`
	Plan               Plan               `validate:"oneof=starter pro agency enterprise"`
	SubscriptionStatus SubscriptionStatus `validate:"oneof=trialing active past_due canceled"`
}

type Member struct {
	TenantId int
	UserId   int
	Role     tenant.Role
}

type PlanLimits struct {
	MaxClients   int
	MaxUsers     int
	TimeTracking bool
}

var planLimits = map[Plan]PlanLimits{
	PlanStarter:    {MaxClients: 3, MaxUsers: 1, TimeTracking: false},
	PlanPro:        {MaxClients: 15, MaxUsers: 5, TimeTracking: true},
	PlanAgency:     {MaxClients: 50, MaxUsers: 1000, TimeTracking: true},
	PlanEnterprise: {MaxClients: 10000, MaxUsers: 10000, TimeTracking: true},
}

// LimitsFor returns the limits of a plan. Unknown plans get the starter limits.
func LimitsFor(plan Plan) PlanLimits {
	if limits, ok := planLimits[plan]; ok {
		return limits
	}
	return planLimits[PlanStarter]
}

func CanAddClient(plan Plan, currentClientCount int) bool {
	return currentClientCount < LimitsFor(plan).MaxClients
}

// CanAddMember reports whether a plan has room for another member besides the currentMemberCount.
func CanAddMember(plan Plan, currentMemberCount int) bool {
	return currentMemberCount < LimitsFor(plan).MaxUsers
}

func (p Plan) Valid() bool {
	_, ok := planLimits[p]
	return ok
}

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionTrialing, SubscriptionActive, SubscriptionPastDue, SubscriptionCanceled:
		return true
	}
	return false
}

// Usable reports whether the organization may keep recording work.
func (s SubscriptionStatus) Usable() bool {
	return s == SubscriptionTrialing || s == SubscriptionActive || s == SubscriptionPastDue
}
