package persistence

import (
	"context"
	"time"
)

// GroupRepository exposes group, member, and memorial state.
type GroupRepository interface {
	CreateGroup(ctx context.Context, group Group) error
	GetGroup(ctx context.Context, id string) (Group, error)
	ListGroups(ctx context.Context) ([]Group, error)
	// SetIceBreakerCompleted records the date the onboarding period ended.
	SetIceBreakerCompleted(ctx context.Context, groupID string, date time.Time) error
	AddMember(ctx context.Context, member Member) error
	ListMembers(ctx context.Context, groupID string) ([]Member, error)
	AddMemorial(ctx context.Context, memorial Memorial) error
	ListMemorials(ctx context.Context, groupID string) ([]Memorial, error)
}

// PromptCatalog provides read access to the shared prompt catalog. The
// catalog is reference data; this layer never mutates it outside of seeding.
type PromptCatalog interface {
	AddPrompt(ctx context.Context, prompt Prompt) error
	GetPrompt(ctx context.Context, id string) (Prompt, error)
	// ListRotationPrompts returns prompts in the given categories that are
	// neither birthday-typed nor deck members.
	ListRotationPrompts(ctx context.Context, categories []string) ([]Prompt, error)
	// ListBirthdayPrompts returns prompts carrying a birthday type.
	ListBirthdayPrompts(ctx context.Context) ([]Prompt, error)
	// ListDeckPrompts returns prompts of the given decks ordered by deck id
	// then deck order.
	ListDeckPrompts(ctx context.Context, deckIDs []string) ([]Prompt, error)
	// ListIceBreakerPrompts returns the restricted onboarding set.
	ListIceBreakerPrompts(ctx context.Context) ([]Prompt, error)
}

// PreferenceRepository stores per-group category overrides.
type PreferenceRepository interface {
	UpsertPreference(ctx context.Context, pref CategoryPreference) error
	ListPreferences(ctx context.Context, groupID string) ([]CategoryPreference, error)
}

// DeckRepository tracks which decks a group has activated.
type DeckRepository interface {
	AddDeck(ctx context.Context, deck Deck) error
	ActivateDeck(ctx context.Context, groupID, deckID string) error
	DeactivateDeck(ctx context.Context, groupID, deckID string) error
	ListActiveDecks(ctx context.Context, groupID string) ([]Deck, error)
}

// SlotFilter narrows slot queries. Nil bounds are open; both bounds are
// inclusive. GeneralOnly excludes user-pinned slots.
type SlotFilter struct {
	GroupID     string
	From        *time.Time
	To          *time.Time
	GeneralOnly bool
}

// SlotRepository stores the scheduled queue. ReplaceGeneralSlots is the
// only compound mutation: it deletes general, non-deck-preserved slots of a
// group dated on or after the boundary and inserts the replacements inside
// one transaction, so a failed regeneration never leaves a half-written
// window.
type SlotRepository interface {
	InsertSlots(ctx context.Context, slots []Slot) error
	ListSlots(ctx context.Context, filter SlotFilter) ([]Slot, error)
	DeleteSlot(ctx context.Context, id string) error
	ReplaceGeneralSlots(ctx context.Context, groupID string, from time.Time, slots []Slot) error
	// UsedPromptIDs returns the ids of prompts appearing in any general slot
	// of the group dated on or before the boundary. A zero boundary means no
	// bound: every general slot counts, past and future.
	UsedPromptIDs(ctx context.Context, groupID string, through time.Time) (map[string]struct{}, error)
}
