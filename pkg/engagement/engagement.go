package engagement

import (
	"time"
)

type Model string

const (
	ModelCampaign Model = "campaign"
	ModelRetainer Model = "retainer"
)

type Status string

const (
	StatusOnboarding Status = "onboarding"
	StatusActive     Status = "active"
	StatusPaused     Status = "paused"
	StatusCancelled  Status = "cancelled"
	StatusArchived   Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOnboarding, StatusActive, StatusPaused, StatusCancelled, StatusArchived:
		return true
	}
	return false
}

type DeliverableType string

const (
	DeliverableContent     DeliverableType = "content"
	DeliverableBacklink    DeliverableType = "backlink"
	DeliverableListingPost DeliverableType = "listing_post"
	DeliverableOther       DeliverableType = "other"
)

func (t DeliverableType) Valid() bool {
	switch t {
	case DeliverableContent, DeliverableBacklink, DeliverableListingPost, DeliverableOther:
		return true
	}
	return false
}

type RolloverPolicy string

const (
	// RolloverDefault defers to the configured policy.
	RolloverDefault RolloverPolicy = ""
	RolloverNone    RolloverPolicy = "none"
	// RolloverCarryPreviousMonth adds the unused hours of the previous month (never more than one month).
	RolloverCarryPreviousMonth RolloverPolicy = "carry_previous_month"
)

func (p RolloverPolicy) Valid() bool {
	return p == RolloverDefault || p == RolloverNone || p == RolloverCarryPreviousMonth
}

// Engagement is the work agreement with one client. The client id doubles as the engagement id.
type Engagement struct {
	ClientId       int
	TenantId       int
	Name           string `validate:"required"`
	Status         Status
	Tier           int `validate:"min=1,max=3"`
	AccountManager string
	// LaunchDate is the first day a retainer is worked on. Nil means active since forever.
	LaunchDate *time.Time
	Terms      Terms
}

// Terms is either Campaign or Retainer. Code that needs variant fields must switch on the concrete type.
type Terms interface {
	Model() Model
	isTerms()
}

type Campaign struct {
	StartDate            time.Time
	EndDate              time.Time
	TotalHours           float64 `validate:"gte=0"`
	MonthlyContentQuota  int     `validate:"gte=0"`
	MonthlyBacklinkQuota int     `validate:"gte=0"`
}

func (Campaign) Model() Model { return ModelCampaign }
func (Campaign) isTerms()     {}

type RecurringDeliverable struct {
	Type  DeliverableType `validate:"oneof=content backlink listing_post other"`
	Count int             `validate:"gte=0"`
}

type Retainer struct {
	MonthlyHours          float64                `validate:"gte=0"`
	RecurringDeliverables []RecurringDeliverable `validate:"dive"`
	Rollover              RolloverPolicy
}

func (Retainer) Model() Model { return ModelRetainer }
func (Retainer) isTerms()     {}

// Window is the accounting period an as-of date falls into.
type Window struct {
	Start time.Time
	End   time.Time
	// Contains is false for a campaign queried before its start or after its end.
	Contains bool
	// Budget is the hours allocated to the whole window.
	Budget float64
	// PlannedRemaining is the share of Budget planned for the days from the as-of date to End.
	// It is zero when the as-of date lies outside the window.
	PlannedRemaining float64
}

type BudgetStatus struct {
	Window    Window
	Allocated float64
	// Carried is the rollover from the previous retainer month; included in Total.
	Carried float64
	Total   float64
	Used    float64
	// Remaining may be negative; a negative value means over budget.
	Remaining float64
}

func (b BudgetStatus) OverBudget() bool {
	return b.Remaining < 0
}

// ContentSchedule is the content owed over the current window and how much of the window has elapsed.
type ContentSchedule struct {
	Target          int
	ElapsedFraction float64
	Window          Window
}
