package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/agencydesk/agencydesk/pkg/deliverable"
	"github.com/agencydesk/agencydesk/pkg/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = utils.Date(2025, 3, 10)

func due(day int) *time.Time {
	d := utils.Date(2025, 3, day)
	return &d
}

func deliverables() []deliverable.Deliverable {
	return []deliverable.Deliverable{
		{Id: 1, Status: deliverable.StatusPending, DueDate: utils.Date(2025, 3, 5)},
		{Id: 2, Status: deliverable.StatusInProgress, DueDate: utils.Date(2025, 3, 20)},
		{Id: 3, Status: deliverable.StatusReview, DueDate: utils.Date(2025, 3, 20)},
		{Id: 4, Status: deliverable.StatusApproved, DueDate: utils.Date(2025, 3, 1)},
		{Id: 5, Status: deliverable.StatusPublished, DueDate: utils.Date(2025, 3, 1)},
	}
}

func tasks() []task.Task {
	return []task.Task{
		{Id: 1, Status: task.StatusTodo, Assignees: []string{"Ana"}, DueDate: due(12)},
		{Id: 2, Status: task.StatusInProgress, DueDate: due(3)},
		{Id: 3, Status: task.StatusDone, Assignees: []string{"Ben"}, DueDate: due(1)},
		{Id: 4, Status: task.StatusReview, Assignees: []string{task.UnassignedLabel}, DueDate: due(10)},
		{Id: 5, Status: task.StatusTodo, Assignees: []string{"Ana"}},
		{Id: 6, Status: task.StatusTodo, Assignees: []string{"Ben"}, DueDate: due(12)},
	}
}

func TestSummarize(t *testing.T) {
	t.Run("should count deliverables by lifecycle group", func(t *testing.T) {
		summary := Summarize(deliverables(), nil, PortfolioCounts{}, today, 8)

		assert.Equal(t, DeliverableCounts{Total: 5, Completed: 2, InProgress: 2, Pending: 1, Overdue: 1}, summary.Deliverables)
	})

	t.Run("should build task histogram and open task counts", func(t *testing.T) {
		// when
		summary := Summarize(nil, tasks(), PortfolioCounts{}, today, 8)

		// then
		assert.Equal(t, 6, summary.Tasks.Total)
		assert.Equal(t, map[task.Status]int{
			task.StatusTodo:       3,
			task.StatusInProgress: 1,
			task.StatusReview:     1,
			task.StatusDone:       1,
		}, summary.Tasks.ByStatus)
		assert.Equal(t, 2, summary.Tasks.Unassigned)
		assert.Equal(t, 1, summary.Tasks.Overdue)
		assert.Equal(t, 1, summary.Tasks.DueToday)
		assert.Equal(t, 1, summary.Tasks.NoDueDate)
	})

	t.Run("should list open dated tasks earliest first up to the limit", func(t *testing.T) {
		// when
		summary := Summarize(nil, tasks(), PortfolioCounts{}, today, 3)

		// then
		ids := make([]int, 0, len(summary.Upcoming))
		for _, upcoming := range summary.Upcoming {
			ids = append(ids, upcoming.Id)
		}
		assert.Equal(t, []int{2, 4, 1}, ids)
	})

	t.Run("should return zeroed figures for an empty agency", func(t *testing.T) {
		summary := Summarize(nil, nil, PortfolioCounts{}, today, 8)

		assert.Equal(t, 0, summary.Deliverables.Total)
		assert.Len(t, summary.Tasks.ByStatus, 4)
		assert.NotNil(t, summary.Upcoming)
		assert.Empty(t, summary.Upcoming)
	})
}

type listStub[T any] []T

func (l listStub[T]) List(ctx context.Context) ([]T, error) {
	return l, nil
}

type portfolioStub struct {
	asOf time.Time
}

func (p *portfolioStub) CountAtRisk(ctx context.Context, asOf time.Time) (PortfolioCounts, error) {
	p.asOf = asOf
	return PortfolioCounts{Clients: 4, AtRiskClients: 1}, nil
}

func TestServiceImpl_Summary(t *testing.T) {
	// given
	portfolio := &portfolioStub{}
	clock := &utils.MockClock{FixedNow: time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)}
	service := NewService(listStub[deliverable.Deliverable](deliverables()), listStub[task.Task](tasks()), portfolio, clock, 0)

	// when
	summary, err := service.Summary(context.Background())

	// then
	require.NoError(t, err)
	assert.Equal(t, today, portfolio.asOf)
	assert.Equal(t, 1, summary.Portfolio.AtRiskClients)
	assert.Len(t, summary.Upcoming, 4)
	assert.Equal(t, 5, summary.Deliverables.Total)
}
