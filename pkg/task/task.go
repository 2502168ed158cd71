package task

import "time"

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// Statuses lists every status in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusReview, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// UnassignedLabel is the placeholder some imports put in place of an assignee.
const UnassignedLabel = "Unassigned"

type Task struct {
	Id        int
	TenantId  int
	ClientId  *int
	Title     string   `validate:"required"`
	Status    Status   `validate:"oneof=todo in_progress review done"`
	Priority  Priority `validate:"oneof=low medium high urgent"`
	Assignees []string
	DueDate   *time.Time
}

// Unassigned reports whether nobody real is assigned to the task.
func (t Task) Unassigned() bool {
	return len(t.Assignees) == 0 || t.Assignees[0] == UnassignedLabel
}
