package application

import (
	"time"

	"github.com/example/prompt-scheduler/internal/persistence"
	"github.com/example/prompt-scheduler/internal/scheduler"
)

// Decision is the outcome of a regeneration check.
type Decision string

const (
	// DecisionSkip means the existing forward window already satisfies the
	// group's preferences and was left untouched.
	DecisionSkip Decision = "skip"
	// DecisionReplace means the forward window was deleted and rebuilt.
	DecisionReplace Decision = "replace"
)

// Result summarizes one queue generation run for logging and callers.
type Result struct {
	GroupID            string
	Decision           Decision
	SlotsScheduled     int
	Dates              []time.Time
	EligibleCategories []string
	CategoryCounts     map[string]int
	Anomalies          []scheduler.Anomaly
	// IceBreakerCompleted is set when this run closed the onboarding period.
	IceBreakerCompleted bool
}

// DailyOutcome reports what the daily pass did for one group.
type DailyOutcome struct {
	GroupID string
	// Question is the personalized text of today's prompt, ready for
	// delivery. Empty when no prompt could be scheduled.
	Question string
	PromptID string
	// Scheduled is true when the pass inserted a new slot rather than
	// finding one already in place.
	Scheduled bool
	// BirthdaysPinned counts the birthday slots pinned for today.
	BirthdaysPinned int
}

// DailySummary aggregates one whole daily pass across groups.
type DailySummary struct {
	Date     time.Time
	Groups   int
	Failures int
	Outcomes []DailyOutcome
}

// schedulingContext carries the per-group derived state one run needs. It
// is computed from persistence at the start of an operation and never
// stored.
type schedulingContext struct {
	groupID    string
	groupType  scheduler.GroupType
	createdAt  time.Time
	seed       string
	eligible   []string
	weights    map[string]float64
	members    []persistence.Member
	memorials  []persistence.Memorial
	onboarding bool
}
