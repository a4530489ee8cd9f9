package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/prompt-scheduler/internal/persistence"
)

var (
	groupCounter  uint64
	memberCounter uint64
	promptCounter uint64
	deckCounter   uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Group fixtures -----------------------------

// GroupOption configures the generated group fixture.
type GroupOption func(*persistence.Group)

// NewGroupFixture returns a deterministic friends group with the ice-breaker
// period already completed. Overrides adjust individual fields.
func NewGroupFixture(opts ...GroupOption) persistence.Group {
	idx := atomic.AddUint64(&groupCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	completed := created.Add(24 * time.Hour)
	fixture := persistence.Group{
		ID:                      fmt.Sprintf("group-%03d", idx),
		Name:                    fmt.Sprintf("Group %03d", idx),
		Type:                    persistence.GroupTypeFriends,
		CreatedAt:               created,
		IceBreakerCompletedDate: &completed,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithGroupID overrides the generated group ID.
func WithGroupID(id string) GroupOption {
	return func(g *persistence.Group) {
		g.ID = id
	}
}

// WithGroupType sets the group flavor.
func WithGroupType(groupType string) GroupOption {
	return func(g *persistence.Group) {
		g.Type = groupType
	}
}

// WithGroupCreatedAt sets the creation timestamp, which also fixes the
// scheduling seed.
func WithGroupCreatedAt(t time.Time) GroupOption {
	return func(g *persistence.Group) {
		g.CreatedAt = t
	}
}

// WithGroupOnboarding clears the ice-breaker completion marker so the group
// is treated as still onboarding.
func WithGroupOnboarding() GroupOption {
	return func(g *persistence.Group) {
		g.IceBreakerCompletedDate = nil
	}
}

// ----------------------------- Member fixtures ----------------------------

// MemberOption configures the generated member fixture.
type MemberOption func(*persistence.Member)

// NewMemberFixture returns a deterministic member of the given group.
func NewMemberFixture(groupID string, opts ...MemberOption) persistence.Member {
	idx := atomic.AddUint64(&memberCounter, 1)
	fixture := persistence.Member{
		ID:      fmt.Sprintf("member-%03d", idx),
		GroupID: groupID,
		Name:    fmt.Sprintf("Member %03d", idx),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMemberID overrides the generated member ID.
func WithMemberID(id string) MemberOption {
	return func(m *persistence.Member) {
		m.ID = id
	}
}

// WithMemberBirthday sets the member's birthday.
func WithMemberBirthday(birthday time.Time) MemberOption {
	return func(m *persistence.Member) {
		m.Birthday = &birthday
	}
}

// ----------------------------- Prompt fixtures ----------------------------

// PromptOption configures the generated prompt fixture.
type PromptOption func(*persistence.Prompt)

// NewPromptFixture returns a deterministic Standard rotation prompt.
func NewPromptFixture(opts ...PromptOption) persistence.Prompt {
	idx := atomic.AddUint64(&promptCounter, 1)
	fixture := persistence.Prompt{
		ID:       fmt.Sprintf("prompt-%03d", idx),
		Category: "Standard",
		Question: fmt.Sprintf("Question %03d?", idx),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithPromptID overrides the generated prompt ID.
func WithPromptID(id string) PromptOption {
	return func(p *persistence.Prompt) {
		p.ID = id
	}
}

// WithPromptCategory sets the prompt category.
func WithPromptCategory(category string) PromptOption {
	return func(p *persistence.Prompt) {
		p.Category = category
	}
}

// WithPromptQuestion sets the question text.
func WithPromptQuestion(question string) PromptOption {
	return func(p *persistence.Prompt) {
		p.Question = question
	}
}

// WithPromptBirthdayType marks the prompt as a birthday prompt of the given
// type, excluding it from normal rotation.
func WithPromptBirthdayType(birthdayType string) PromptOption {
	return func(p *persistence.Prompt) {
		p.BirthdayType = &birthdayType
		p.Category = "Birthday"
	}
}

// WithPromptDeck assigns the prompt to a deck at the given position,
// excluding it from normal rotation.
func WithPromptDeck(deckID string, order int) PromptOption {
	return func(p *persistence.Prompt) {
		p.DeckID = &deckID
		p.DeckOrder = order
	}
}

// WithPromptIceBreaker marks the prompt as part of the onboarding set.
func WithPromptIceBreaker() PromptOption {
	return func(p *persistence.Prompt) {
		p.IceBreaker = true
	}
}

// WithPromptDynamicVariables sets the placeholders the prompt requires.
func WithPromptDynamicVariables(variables ...string) PromptOption {
	return func(p *persistence.Prompt) {
		p.DynamicVariables = variables
	}
}

// ----------------------------- Deck fixtures ------------------------------

// NewDeckFixture returns a deterministic deck.
func NewDeckFixture() persistence.Deck {
	idx := atomic.AddUint64(&deckCounter, 1)
	return persistence.Deck{
		ID:   fmt.Sprintf("deck-%03d", idx),
		Name: fmt.Sprintf("Deck %03d", idx),
	}
}

// ----------------------------- Seeding helpers ----------------------------

// CatalogWriter is the subset of the prompt catalog fixtures write through.
type CatalogWriter interface {
	AddPrompt(ctx context.Context, prompt persistence.Prompt) error
}

// SeedRotation stores count Standard rotation prompts and returns them.
func SeedRotation(ctx context.Context, catalog CatalogWriter, count int) ([]persistence.Prompt, error) {
	prompts := make([]persistence.Prompt, 0, count)
	for i := 0; i < count; i++ {
		prompt := NewPromptFixture()
		if err := catalog.AddPrompt(ctx, prompt); err != nil {
			return nil, err
		}
		prompts = append(prompts, prompt)
	}
	return prompts, nil
}

// SeedBirthdayPrompts stores one prompt of each birthday type and returns
// them in (yours, theirs) order.
func SeedBirthdayPrompts(ctx context.Context, catalog CatalogWriter) (persistence.Prompt, persistence.Prompt, error) {
	yours := NewPromptFixture(
		WithPromptBirthdayType(persistence.BirthdayTypeYours),
		WithPromptQuestion("Happy birthday! What do you wish for this year?"),
	)
	theirs := NewPromptFixture(
		WithPromptBirthdayType(persistence.BirthdayTypeTheirs),
		WithPromptQuestion("What do you appreciate most about the birthday person?"),
	)
	if err := catalog.AddPrompt(ctx, yours); err != nil {
		return persistence.Prompt{}, persistence.Prompt{}, err
	}
	if err := catalog.AddPrompt(ctx, theirs); err != nil {
		return persistence.Prompt{}, persistence.Prompt{}, err
	}
	return yours, theirs, nil
}
