package period_plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/agencydesk/agencydesk/pkg/engagement"
	"github.com/agencydesk/agencydesk/pkg/timelog"
)

// WeekBucket is a run of days of one month that belong to the same anchored week.
// Variance is Planned - Logged, so a positive value means delivery is behind plan.
type WeekBucket struct {
	WeekNumber int
	Start      time.Time
	End        time.Time
	Label      string
	// Full is true when all seven days of the week lie inside the month.
	Full       bool
	Active     bool
	Overridden bool
	Planned    float64
	Logged     float64
	Variance   float64
}

func (b WeekBucket) Days() int {
	return utils.DaysBetweenInclusive(b.Start, b.End)
}

func (b WeekBucket) Contains(day time.Time) bool {
	return !day.Before(b.Start) && !day.After(b.End)
}

type MonthlyPlan struct {
	ClientId      int
	Month         time.Time
	Weeks         []WeekBucket
	TotalPlanned  float64
	TotalLogged   float64
	TotalVariance float64
}

// PlanOverride replaces the computed planned hours of the bucket starting on WeekStart.
type PlanOverride struct {
	Id           int
	ClientId     int
	WeekStart    time.Time `validate:"required"`
	PlannedHours float64   `validate:"gte=0"`
	Notes        string    `validate:"max=500"`
}

// PartitionMonth splits a month into buckets of weeks starting on anchor, clipped to the month.
// The first and last bucket may be shorter than seven days. A week that straddles a month boundary
// is cut at the boundary rather than spilled whole into one month, so every day belongs to exactly
// one bucket of its own month and monthly totals never overlap.
func PartitionMonth(year int, month time.Month, anchor time.Weekday) []WeekBucket {
	first := utils.Date(year, month, 1)
	last := first.AddDate(0, 1, -1)

	var buckets []WeekBucket
	start := first
	for !start.After(last) {
		delta := (int(anchor) - int(start.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		end := start.AddDate(0, 0, delta-1)
		if end.After(last) {
			end = last
		}
		bucket := WeekBucket{
			WeekNumber: len(buckets) + 1,
			Start:      start,
			End:        end,
			Label:      label(start, end),
		}
		bucket.Full = bucket.Days() == 7
		buckets = append(buckets, bucket)
		start = end.AddDate(0, 0, 1)
	}
	return buckets
}

func label(start, end time.Time) string {
	if start.Equal(end) {
		return start.Format("Jan 2")
	}
	return fmt.Sprintf("%s-%d", start.Format("Jan 2"), end.Day())
}

// BuildMonthlyPlan spreads the month's hour quota evenly over the full buckets during which the engagement
// is active and overlays the billable hours logged in each bucket. Short buckets plan zero hours unless
// overridden. It has no side effects, so the same inputs always give the same plan.
func BuildMonthlyPlan(e engagement.Engagement, month time.Time, anchor time.Weekday, entries []timelog.Entry, overrides []PlanOverride) MonthlyPlan {
	monthStart, _ := engagement.MonthWindow(month)
	plan := MonthlyPlan{
		ClientId: e.ClientId,
		Month:    monthStart,
		Weeks:    PartitionMonth(monthStart.Year(), monthStart.Month(), anchor),
	}

	activeFull := 0
	for i := range plan.Weeks {
		plan.Weeks[i].Active = activeDuring(e, plan.Weeks[i])
		if plan.Weeks[i].Active && plan.Weeks[i].Full {
			activeFull++
		}
	}

	perBucket := 0.0
	if activeFull > 0 {
		perBucket = e.MonthlyHours(monthStart) / float64(activeFull)
	}

	overrideByStart := make(map[time.Time]PlanOverride, len(overrides))
	for _, o := range overrides {
		overrideByStart[utils.DateOf(o.WeekStart)] = o
	}

	for i := range plan.Weeks {
		bucket := &plan.Weeks[i]
		if bucket.Active && bucket.Full {
			bucket.Planned = perBucket
		}
		if o, ok := overrideByStart[bucket.Start]; ok {
			bucket.Planned = o.PlannedHours
			bucket.Overridden = true
		}
		for _, entry := range entries {
			if entry.Billable && bucket.Contains(entry.Date) {
				bucket.Logged += entry.SignedHours()
			}
		}
		bucket.Variance = bucket.Planned - bucket.Logged

		plan.TotalPlanned += bucket.Planned
		plan.TotalLogged += bucket.Logged
	}
	plan.TotalVariance = plan.TotalPlanned - plan.TotalLogged
	return plan
}

func activeDuring(e engagement.Engagement, bucket WeekBucket) bool {
	for day := bucket.Start; !day.After(bucket.End); day = day.AddDate(0, 0, 1) {
		if e.ActiveOn(day) {
			return true
		}
	}
	return false
}

// ParseWeekday accepts English weekday names in any case, e.g. "monday".
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), strings.TrimSpace(s)) {
			return d, nil
		}
	}
	return time.Monday, fmt.Errorf("unknown weekday: %q", s)
}
