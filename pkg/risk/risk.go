package risk

import (
	"fmt"
	"math"

	"github.com/agencydesk/agencydesk/pkg/deliverable"
	"github.com/agencydesk/agencydesk/pkg/engagement"
)

type Rule string

const (
	// RuleSchedule flags a client only when content delivery is behind schedule.
	RuleSchedule Rule = "schedule"
	// RuleStrict additionally flags over-budget clients and approvals waiting too long.
	RuleStrict Rule = "strict"
)

func ParseRule(s string) (Rule, error) {
	switch Rule(s) {
	case RuleSchedule, RuleStrict:
		return Rule(s), nil
	case "":
		return RuleSchedule, nil
	}
	return "", fmt.Errorf("unknown risk rule: %q", s)
}

type Level string

const (
	LevelNormal       Level = "normal"
	LevelWarning      Level = "warning"
	LevelAtCapacity   Level = "at_capacity"
	LevelOverCapacity Level = "over_capacity"
)

type Config struct {
	Rule               Rule
	ApprovalMaxAgeDays int
	// WarningThreshold is the utilization percentage from which the warning level starts.
	WarningThreshold int
}

func DefaultConfig() Config {
	return Config{Rule: RuleSchedule, ApprovalMaxAgeDays: 7, WarningThreshold: 70}
}

// ContentProgress compares content items owed so far with items delivered.
type ContentProgress struct {
	Target    int
	DueToDate int
	Delivered int
	PastDue   int
	OnTrack   bool
}

func NewContentProgress(target, dueToDate, delivered int) ContentProgress {
	pastDue := dueToDate - delivered
	if pastDue < 0 {
		pastDue = 0
	}
	return ContentProgress{
		Target:    target,
		DueToDate: dueToDate,
		Delivered: delivered,
		PastDue:   pastDue,
		OnTrack:   pastDue == 0,
	}
}

// ScheduledContentProgress derives the items due so far from the elapsed share of the window, rounded down.
func ScheduledContentProgress(schedule engagement.ContentSchedule, delivered int) ContentProgress {
	dueToDate := int(math.Floor(schedule.ElapsedFraction*float64(schedule.Target) + 1e-9))
	return NewContentProgress(schedule.Target, dueToDate, delivered)
}

type Assessment struct {
	// UtilizationPct is the rounded share of the budget used, clamped to 0..100 for display.
	UtilizationPct int
	// UtilizationRatio is used/total without clamping. Zero when there is no budget.
	UtilizationRatio float64
	Level            Level
	IsAtRisk         bool
	Reasons          []string
}

// Evaluate folds budget consumption, content progress and waiting approvals into an assessment.
// It has no side effects. Every observed problem is listed in Reasons even when the rule ignores it.
func Evaluate(budget engagement.BudgetStatus, progress ContentProgress, approvals []deliverable.PendingApproval, cfg Config) Assessment {
	ratio := 0.0
	if budget.Total > 0 {
		ratio = budget.Used / budget.Total
	}
	a := Assessment{
		UtilizationPct:   clamp(int(math.Round(ratio*100)), 0, 100),
		UtilizationRatio: ratio,
		Level:            levelOf(ratio, cfg.WarningThreshold),
	}

	behind := !progress.OnTrack
	if behind {
		a.Reasons = append(a.Reasons, fmt.Sprintf("content behind schedule: %d of %d items due so far are missing", progress.PastDue, progress.DueToDate))
	}
	overBudget := ratio > 1
	if overBudget {
		a.Reasons = append(a.Reasons, fmt.Sprintf("over budget: %.2f of %.2f hours used", budget.Used, budget.Total))
	}
	stale := 0
	for _, p := range approvals {
		if p.AgeDays > cfg.ApprovalMaxAgeDays {
			stale++
		}
	}
	if stale > 0 {
		a.Reasons = append(a.Reasons, fmt.Sprintf("%d approvals waiting longer than %d days", stale, cfg.ApprovalMaxAgeDays))
	}

	switch cfg.Rule {
	case RuleStrict:
		a.IsAtRisk = behind || overBudget || stale > 0
	default:
		a.IsAtRisk = behind
	}
	return a
}

const epsilon = 1e-9

func levelOf(ratio float64, warningThreshold int) Level {
	switch {
	case ratio > 1+epsilon:
		return LevelOverCapacity
	case ratio >= 1-epsilon:
		return LevelAtCapacity
	case ratio*100 >= float64(warningThreshold)-epsilon:
		return LevelWarning
	default:
		return LevelNormal
	}
}

func clamp(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
