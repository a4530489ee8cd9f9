// Package persistence defines the storage models and repository contracts
// for groups, the prompt catalog, preferences, decks, and the scheduled
// slot queue. Implementations live in subpackages; the scheduling logic
// never touches a database directly.
package persistence

import "time"

// GroupType mirrors the two supported group flavors at the storage level.
const (
	GroupTypeFamily  = "family"
	GroupTypeFriends = "friends"
)

// Group represents a social group whose members answer one prompt per day.
// IceBreakerCompletedDate is nil while the group is still in its onboarding
// period.
type Group struct {
	ID                      string
	Name                    string
	Type                    string
	CreatedAt               time.Time
	IceBreakerCompletedDate *time.Time
}

// Member represents one person in a group. Birthday is nil when the member
// has not shared one.
type Member struct {
	ID       string
	GroupID  string
	Name     string
	Birthday *time.Time
}

// Memorial represents a remembered person attached to a group. Its presence
// unlocks the Remembering prompt category.
type Memorial struct {
	ID      string
	GroupID string
	Name    string
}

// Prompt is one question template from the shared catalog. BirthdayType is
// "your_birthday" or "their_birthday" for birthday prompts and nil
// otherwise. DeckID ties the prompt to a themed deck; DeckOrder sequences
// prompts within it. DynamicVariables lists placeholder names embedded in
// the question text, e.g. "member_name".
type Prompt struct {
	ID               string
	Category         string
	Question         string
	BirthdayType     *string
	DeckID           *string
	DeckOrder        int
	IceBreaker       bool
	DynamicVariables []string
}

// Birthday prompt type discriminators.
const (
	BirthdayTypeYours  = "your_birthday"
	BirthdayTypeTheirs = "their_birthday"
)

// CategoryPreference is a per-group override of one category. Preference is
// one of "none", "default", "weighted"; "none" disables the category and
// makes the weight meaningless.
type CategoryPreference struct {
	GroupID    string
	Category   string
	Preference string
	Weight     float64
}

// Slot is one scheduled (group, date, prompt) row. UserID is nil for
// general slots shown to the whole group and set for user-pinned slots such
// as birthdays. DeckID is set when the slot was filled from an active deck.
// General slots are unique per (group, date); pinned slots per (group,
// date, user).
type Slot struct {
	ID        string
	GroupID   string
	PromptID  string
	Date      time.Time
	UserID    *string
	DeckID    *string
	CreatedAt time.Time
}

// Deck is an opt-in themed bundle of prompts a group can activate.
type Deck struct {
	ID   string
	Name string
}
