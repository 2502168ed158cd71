package engagement

import (
	"math"
	"time"

	"github.com/agencydesk/agencydesk/internal/utils"
)

const averageDaysPerMonth = 365.25 / 12

// MonthWindow returns the first and last day of the calendar month containing day.
func MonthWindow(day time.Time) (time.Time, time.Time) {
	day = utils.DateOf(day)
	start := utils.Date(day.Year(), day.Month(), 1)
	return start, start.AddDate(0, 1, -1)
}

// CurrentWindow returns the accounting window for asOf: the fixed window of a campaign or the
// calendar month of a retainer.
func (e Engagement) CurrentWindow(asOf time.Time) Window {
	asOf = utils.DateOf(asOf)
	switch terms := e.Terms.(type) {
	case Campaign:
		return newWindow(utils.DateOf(terms.StartDate), utils.DateOf(terms.EndDate), terms.TotalHours, asOf)
	case Retainer:
		start, end := MonthWindow(asOf)
		return newWindow(start, end, terms.MonthlyHours, asOf)
	default:
		return Window{}
	}
}

func newWindow(start, end time.Time, budget float64, asOf time.Time) Window {
	w := Window{Start: start, End: end, Budget: budget}
	if asOf.Before(start) || asOf.After(end) {
		return w
	}
	w.Contains = true
	total := utils.DaysBetweenInclusive(start, end)
	if total > 0 {
		w.PlannedRemaining = budget * float64(utils.DaysBetweenInclusive(asOf, end)) / float64(total)
	}
	return w
}

// ActiveOn reports whether work is planned for day: inside the campaign window, or on or after
// a retainer's launch date.
func (e Engagement) ActiveOn(day time.Time) bool {
	day = utils.DateOf(day)
	switch terms := e.Terms.(type) {
	case Campaign:
		return !day.Before(utils.DateOf(terms.StartDate)) && !day.After(utils.DateOf(terms.EndDate))
	case Retainer:
		return e.LaunchDate == nil || !day.Before(utils.DateOf(*e.LaunchDate))
	default:
		return false
	}
}

// MonthlyHours is the hour quota of the calendar month containing day. A campaign's total is
// spread over its window in proportion to the days of the window falling into that month.
func (e Engagement) MonthlyHours(day time.Time) float64 {
	monthStart, monthEnd := MonthWindow(day)
	switch terms := e.Terms.(type) {
	case Campaign:
		start, end := utils.DateOf(terms.StartDate), utils.DateOf(terms.EndDate)
		windowDays := utils.DaysBetweenInclusive(start, end)
		if windowDays == 0 {
			return 0
		}
		overlap := utils.DaysBetweenInclusive(later(start, monthStart), earlier(end, monthEnd))
		return terms.TotalHours * float64(overlap) / float64(windowDays)
	case Retainer:
		return terms.MonthlyHours
	default:
		return 0
	}
}

// ContentSchedule returns the content items owed over the window containing asOf.
// Campaign windows owe the monthly quota for every (rounded) month of the window.
func (e Engagement) ContentSchedule(asOf time.Time) ContentSchedule {
	window := e.CurrentWindow(asOf)
	asOf = utils.DateOf(asOf)
	var target int
	switch terms := e.Terms.(type) {
	case Campaign:
		target = terms.MonthlyContentQuota * CampaignMonths(terms)
	case Retainer:
		for _, recurring := range terms.RecurringDeliverables {
			if recurring.Type == DeliverableContent {
				target += recurring.Count
			}
		}
	}
	return ContentSchedule{Target: target, ElapsedFraction: elapsedFraction(window, asOf), Window: window}
}

// CampaignMonths is the length of a campaign in months, rounded to the nearest whole month and at least one.
func CampaignMonths(c Campaign) int {
	days := utils.DaysBetweenInclusive(c.StartDate, c.EndDate)
	months := int(math.Round(float64(days) / averageDaysPerMonth))
	if months < 1 {
		return 1
	}
	return months
}

func elapsedFraction(window Window, asOf time.Time) float64 {
	if window.Start.IsZero() || asOf.Before(window.Start) {
		return 0
	}
	if asOf.After(window.End) {
		return 1
	}
	total := utils.DaysBetweenInclusive(window.Start, window.End)
	if total == 0 {
		return 0
	}
	return float64(utils.DaysBetweenInclusive(window.Start, asOf)) / float64(total)
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
