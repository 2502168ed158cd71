package dashboard

import (
	"sort"
	"time"

	"github.com/agencydesk/agencydesk/pkg/deliverable"
	"github.com/agencydesk/agencydesk/pkg/task"
)

type DeliverableCounts struct {
	Total      int
	Completed  int
	InProgress int
	Pending    int
	Overdue    int
}

type TaskCounts struct {
	Total      int
	ByStatus   map[task.Status]int
	Unassigned int
	Overdue    int
	DueToday   int
	NoDueDate  int
}

// PortfolioCounts are the per-client risk figures computed elsewhere.
type PortfolioCounts struct {
	Clients       int
	AtRiskClients int
}

type Summary struct {
	Deliverables DeliverableCounts
	Tasks        TaskCounts
	Upcoming     []task.Task
	Portfolio    PortfolioCounts
}

// Summarize projects deliverables and tasks of one agency into dashboard figures as of today.
// Upcoming holds open tasks with a due date, earliest first, at most limit of them.
func Summarize(deliverables []deliverable.Deliverable, tasks []task.Task, portfolio PortfolioCounts, today time.Time, limit int) Summary {
	summary := Summary{
		Tasks:     TaskCounts{ByStatus: make(map[task.Status]int, len(task.Statuses))},
		Portfolio: portfolio,
		Upcoming:  []task.Task{},
	}
	for _, s := range task.Statuses {
		summary.Tasks.ByStatus[s] = 0
	}

	for _, d := range deliverables {
		summary.Deliverables.Total++
		switch d.Status {
		case deliverable.StatusApproved, deliverable.StatusPublished:
			summary.Deliverables.Completed++
		case deliverable.StatusInProgress, deliverable.StatusReview:
			summary.Deliverables.InProgress++
		case deliverable.StatusPending:
			summary.Deliverables.Pending++
		}
		if !d.Status.Completed() && d.DueDate.Before(today) {
			summary.Deliverables.Overdue++
		}
	}

	var open []task.Task
	for _, t := range tasks {
		summary.Tasks.Total++
		summary.Tasks.ByStatus[t.Status]++
		if t.Unassigned() {
			summary.Tasks.Unassigned++
		}
		if t.DueDate == nil {
			summary.Tasks.NoDueDate++
			continue
		}
		if t.Status == task.StatusDone {
			continue
		}
		switch {
		case t.DueDate.Before(today):
			summary.Tasks.Overdue++
		case t.DueDate.Equal(today):
			summary.Tasks.DueToday++
		}
		open = append(open, t)
	}

	sort.SliceStable(open, func(i, j int) bool {
		if !open[i].DueDate.Equal(*open[j].DueDate) {
			return open[i].DueDate.Before(*open[j].DueDate)
		}
		return open[i].Id < open[j].Id
	})
	if limit >= 0 && len(open) > limit {
		open = open[:limit]
	}
	summary.Upcoming = append(summary.Upcoming, open...)
	return summary
}
