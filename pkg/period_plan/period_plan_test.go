package period_plan

import (
	"testing"
	"time"

	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/agencydesk/agencydesk/pkg/engagement"
	"github.com/agencydesk/agencydesk/pkg/timelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retainer(hours float64) engagement.Engagement {
	return engagement.Engagement{ClientId: 1, Name: "Bakery", Status: engagement.StatusActive, Terms: engagement.Retainer{MonthlyHours: hours}}
}

func TestPartitionMonth(t *testing.T) {
	t.Run("should clip anchored weeks to the month", func(t *testing.T) {
		// when
		buckets := PartitionMonth(2025, time.November, time.Monday)

		// then
		labels := make([]string, 0, len(buckets))
		full := make([]bool, 0, len(buckets))
		for _, b := range buckets {
			labels = append(labels, b.Label)
			full = append(full, b.Full)
		}
		assert.Equal(t, []string{"Nov 1-2", "Nov 3-9", "Nov 10-16", "Nov 17-23", "Nov 24-30"}, labels)
		assert.Equal(t, []bool{false, true, true, true, true}, full)
		assert.Equal(t, 1, buckets[0].WeekNumber)
		assert.Equal(t, 5, buckets[4].WeekNumber)
	})

	t.Run("should honour another anchor weekday", func(t *testing.T) {
		buckets := PartitionMonth(2025, time.November, time.Sunday)

		require.Len(t, buckets, 6)
		assert.Equal(t, "Nov 1", buckets[0].Label)
		assert.Equal(t, "Nov 2-8", buckets[1].Label)
		assert.Equal(t, "Nov 30", buckets[5].Label)
	})

	t.Run("should cover every day exactly once", func(t *testing.T) {
		for month := time.January; month <= time.December; month++ {
			for anchor := time.Sunday; anchor <= time.Saturday; anchor++ {
				buckets := PartitionMonth(2024, month, anchor)
				days := 0
				for i, b := range buckets {
					days += b.Days()
					assert.LessOrEqual(t, b.Days(), 7)
					if i > 0 {
						assert.Equal(t, buckets[i-1].End.AddDate(0, 0, 1), b.Start)
					}
				}
				assert.Equal(t, utils.Date(2024, month, 1).AddDate(0, 1, -1).Day(), days)
			}
		}
	})
}

func TestBuildMonthlyPlan(t *testing.T) {
	t.Run("should split retainer hours over four full weeks", func(t *testing.T) {
		// given February 2021 starts on a Monday and has exactly four weeks
		e := retainer(20)

		// when
		plan := BuildMonthlyPlan(e, utils.Date(2021, 2, 10), time.Monday, nil, nil)

		// then
		require.Len(t, plan.Weeks, 4)
		for _, week := range plan.Weeks {
			assert.Equal(t, 5.0, week.Planned)
			assert.Equal(t, 5.0, week.Variance)
		}
		assert.Equal(t, 20.0, plan.TotalPlanned)
		assert.Equal(t, 0.0, plan.TotalLogged)
		assert.Equal(t, 20.0, plan.TotalVariance)
		assert.Equal(t, utils.Date(2021, 2, 1), plan.Month)
	})

	t.Run("should plan nothing for short buckets", func(t *testing.T) {
		plan := BuildMonthlyPlan(retainer(22), utils.Date(2025, 11, 1), time.Monday, nil, nil)

		assert.Equal(t, []float64{0, 5.5, 5.5, 5.5, 5.5}, planned(plan))
		assert.Equal(t, 22.0, plan.TotalPlanned)
	})

	t.Run("should overlay signed billable hours per bucket", func(t *testing.T) {
		// given
		entries := []timelog.Entry{
			{Date: utils.Date(2025, 11, 1), Hours: 1, Billable: true, Kind: timelog.KindRegular},
			{Date: utils.Date(2025, 11, 4), Hours: 3, Billable: true, Kind: timelog.KindRegular},
			{Date: utils.Date(2025, 11, 5), Hours: 2, Billable: true, Kind: timelog.KindRegular},
			{Date: utils.Date(2025, 11, 5), Hours: 2, Billable: true, Kind: timelog.KindReversal},
			{Date: utils.Date(2025, 11, 6), Hours: 4, Billable: false, Kind: timelog.KindRegular},
			{Date: utils.Date(2025, 11, 30), Hours: 7, Billable: true, Kind: timelog.KindRegular},
		}

		// when
		plan := BuildMonthlyPlan(retainer(22), utils.Date(2025, 11, 1), time.Monday, entries, nil)

		// then
		assert.Equal(t, []float64{1, 3, 0, 0, 7}, logged(plan))
		assert.Equal(t, -1.0, plan.Weeks[0].Variance)
		assert.Equal(t, 2.5, plan.Weeks[1].Variance)
		assert.Equal(t, -1.5, plan.Weeks[4].Variance)
		assert.Equal(t, 11.0, plan.TotalLogged)
		assert.Equal(t, 11.0, plan.TotalVariance)
	})

	t.Run("should apply overrides to single buckets", func(t *testing.T) {
		overrides := []PlanOverride{
			{WeekStart: utils.Date(2025, 11, 3), PlannedHours: 8},
			{WeekStart: utils.Date(2025, 11, 1), PlannedHours: 1},
		}

		plan := BuildMonthlyPlan(retainer(22), utils.Date(2025, 11, 1), time.Monday, nil, overrides)

		assert.Equal(t, []float64{1, 8, 5.5, 5.5, 5.5}, planned(plan))
		assert.True(t, plan.Weeks[1].Overridden)
		assert.False(t, plan.Weeks[2].Overridden)
		assert.Equal(t, 25.5, plan.TotalPlanned)
	})

	t.Run("should return an all-zero plan before a campaign starts", func(t *testing.T) {
		// given
		campaign := engagement.Engagement{ClientId: 2, Terms: engagement.Campaign{
			StartDate: utils.Date(2025, 12, 1), EndDate: utils.Date(2026, 5, 31), TotalHours: 60,
		}}
		entries := []timelog.Entry{{Date: utils.Date(2025, 11, 20), Hours: 2, Billable: true}}

		// when
		plan := BuildMonthlyPlan(campaign, utils.Date(2025, 11, 1), time.Monday, entries, nil)

		// then
		assert.Equal(t, 0.0, plan.TotalPlanned)
		for _, week := range plan.Weeks {
			assert.False(t, week.Active)
			assert.Equal(t, 0.0, week.Planned)
		}
		assert.Equal(t, 2.0, plan.TotalLogged)
	})

	t.Run("should spread a campaign's last month over its active weeks", func(t *testing.T) {
		// given a campaign that ends on Tuesday July 15th
		campaign := engagement.Engagement{ClientId: 2, Terms: engagement.Campaign{
			StartDate: utils.Date(2025, 1, 15), EndDate: utils.Date(2025, 7, 15), TotalHours: 60,
		}}

		// when
		plan := BuildMonthlyPlan(campaign, utils.Date(2025, 7, 1), time.Monday, nil, nil)

		// then
		monthQuota := 60.0 * 15 / 182
		assert.InDelta(t, monthQuota, plan.TotalPlanned, 1e-9)
		assert.Equal(t, []bool{true, true, true, false, false}, active(plan))
		assert.Equal(t, 0.0, plan.Weeks[0].Planned)
		assert.InDelta(t, monthQuota/2, plan.Weeks[1].Planned, 1e-9)
		assert.Equal(t, 0.0, plan.Weeks[3].Planned)
	})

	t.Run("should keep totals equal to bucket sums and be repeatable", func(t *testing.T) {
		// given
		entries := []timelog.Entry{
			{Date: utils.Date(2025, 3, 3), Hours: 1.25, Billable: true},
			{Date: utils.Date(2025, 3, 19), Hours: 2.75, Billable: true},
		}
		overrides := []PlanOverride{{WeekStart: utils.Date(2025, 3, 10), PlannedHours: 3}}

		// when
		first := BuildMonthlyPlan(retainer(17), utils.Date(2025, 3, 1), time.Monday, entries, overrides)
		second := BuildMonthlyPlan(retainer(17), utils.Date(2025, 3, 1), time.Monday, entries, overrides)

		// then
		assert.Equal(t, first, second)
		var plannedSum, loggedSum float64
		for _, week := range first.Weeks {
			plannedSum += week.Planned
			loggedSum += week.Logged
			assert.Equal(t, week.Planned-week.Logged, week.Variance)
		}
		assert.Equal(t, plannedSum, first.TotalPlanned)
		assert.Equal(t, loggedSum, first.TotalLogged)
		assert.Equal(t, first.TotalPlanned-first.TotalLogged, first.TotalVariance)
	})
}

func TestParseWeekday(t *testing.T) {
	day, err := ParseWeekday(" Sunday")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, day)

	_, err = ParseWeekday("someday")
	assert.Error(t, err)
}

func planned(plan MonthlyPlan) []float64 {
	result := make([]float64, 0, len(plan.Weeks))
	for _, w := range plan.Weeks {
		result = append(result, w.Planned)
	}
	return result
}

func logged(plan MonthlyPlan) []float64 {
	result := make([]float64, 0, len(plan.Weeks))
	for _, w := range plan.Weeks {
		result = append(result, w.Logged)
	}
	return result
}

func active(plan MonthlyPlan) []bool {
	result := make([]bool, 0, len(plan.Weeks))
	for _, w := range plan.Weeks {
		result = append(result, w.Active)
	}
	return result
}
