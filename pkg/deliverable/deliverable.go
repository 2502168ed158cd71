package deliverable

import (
	"time"

	"github.com/agencydesk/agencydesk/pkg/engagement"
)

type Type = engagement.DeliverableType

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusApproved   Status = "approved"
	StatusPublished  Status = "published"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress},
	StatusInProgress: {StatusReview},
	// review may be sent back for a revision, the only backward edge
	StatusReview:   {StatusApproved, StatusInProgress},
	StatusApproved: {StatusPublished},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusReview, StatusApproved, StatusPublished:
		return true
	}
	return false
}

// CanAdvanceTo reports whether target is one edge away from s.
func (s Status) CanAdvanceTo(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Completed is true for the terminal statuses.
func (s Status) Completed() bool {
	return s == StatusApproved || s == StatusPublished
}

type Deliverable struct {
	Id                int
	TenantId          int
	ClientId          int       `validate:"gt=0"`
	Type              Type      `validate:"oneof=content backlink listing_post other"`
	Title             string    `validate:"required,max=300"`
	Status            Status
	DueDate           time.Time `validate:"required"`
	CompletedDate     *time.Time
	CountsTowardHours bool
	Assignee          *string
	ExternalLink      *string `validate:"omitempty,url"`
	StatusChangedAt   time.Time
	// SourceKey identifies deliverables generated from a template or quota so generation can be repeated safely.
	SourceKey *string
}

type PendingApproval struct {
	Deliverable Deliverable
	AgeDays     int
}

// PendingApprovals lists the deliverables waiting in review, oldest first by position in the input.
func PendingApprovals(deliverables []Deliverable, asOf time.Time) []PendingApproval {
	var result []PendingApproval
	for _, d := range deliverables {
		if d.Status != StatusReview {
			continue
		}
		age := int(asOf.Sub(d.StatusChangedAt).Hours() / 24)
		if age < 0 {
			age = 0
		}
		result = append(result, PendingApproval{Deliverable: d, AgeDays: age})
	}
	return result
}

// CountCompleted counts deliverables of a type completed within [from, to].
func CountCompleted(deliverables []Deliverable, t Type, from, to time.Time) int {
	count := 0
	for _, d := range deliverables {
		if d.Type != t || !d.Status.Completed() || d.CompletedDate == nil {
			continue
		}
		if d.CompletedDate.Before(from) || d.CompletedDate.After(to) {
			continue
		}
		count++
	}
	return count
}
