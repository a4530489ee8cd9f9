// Package scheduler implements the deterministic daily prompt queue
// generator: category eligibility, weighted variety selection, queue
// building over a date range, pinned-slot insertion, and pre-persistence
// validation. All state is local to one invocation; the package performs
// no I/O.
package scheduler

import "time"

// Well-known prompt categories. Eligibility rules reference these by name;
// any other category found in the catalog is treated as opt-in content and
// never enters normal rotation on its own.
const (
	CategoryStandard    = "Standard"
	CategoryNSFW        = "Edgy/NSFW"
	CategoryRemembering = "Remembering"
	CategoryBirthday    = "Birthday"
)

// GroupType distinguishes the two supported group flavors. NSFW content is
// only ever eligible for friends groups.
type GroupType string

const (
	GroupTypeFamily  GroupType = "family"
	GroupTypeFriends GroupType = "friends"
)

// Prompt is a question template drawn from the external content catalog.
// A non-nil BirthdayType marks a date-pinned, user-specific prompt; a
// non-nil DeckID marks membership in an opt-in themed pack. Both are
// excluded from normal category rotation.
type Prompt struct {
	ID               string
	Category         string
	Question         string
	BirthdayType     *string
	DeckID           *string
	DeckOrder        int
	DynamicVariables []string
}

// InRotation reports whether the prompt participates in normal category
// rotation, i.e. it is neither birthday-typed nor part of a deck.
func (p Prompt) InRotation() bool {
	return p.BirthdayType == nil && p.DeckID == nil
}

// RequiresPersonalization reports whether the prompt carries dynamic
// variable placeholders and therefore cannot be used in fully automated
// selection.
func (p Prompt) RequiresPersonalization() bool {
	return len(p.DynamicVariables) > 0
}

// Slot is one (date, prompt) assignment produced by the builder. UserID is
// nil for general slots visible to the whole group and set for user-pinned
// slots such as birthdays. DeckID is set only when the slot was filled from
// an active deck.
type Slot struct {
	Date     time.Time
	PromptID string
	UserID   *string
	DeckID   *string
}

// General reports whether the slot is a general (whole-group) assignment.
func (s Slot) General() bool {
	return s.UserID == nil
}

// Deck identifies an opt-in themed pack active for a group.
type Deck struct {
	ID   string
	Name string
}

// Pinned describes a date-pinned, user-specific prompt to be inserted into
// a built queue, e.g. a birthday prompt.
type Pinned struct {
	Date     time.Time
	PromptID string
	UserID   string
}

// VarietyWindow is the number of consecutive dates over which category
// usage counts are tracked before being reset.
const VarietyWindow = 7

// SameDate reports whether two timestamps fall on the same calendar date
// in UTC. Scheduling operates on whole dates only.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// Midnight truncates a timestamp to its UTC calendar date.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
