package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/example/prompt-scheduler/internal/persistence"
	"github.com/example/prompt-scheduler/internal/persistence/memory"
	"github.com/example/prompt-scheduler/internal/testfixtures"
)

// repoSet groups the repository interfaces one backend provides so the same
// contract assertions run against every implementation.
type repoSet struct {
	groups  persistence.GroupRepository
	prompts persistence.PromptCatalog
	decks   persistence.DeckRepository
	slots   persistence.SlotRepository
}

func TestRepositoryContract(t *testing.T) {
	t.Parallel()

	implementations := []struct {
		name string
		open func(t *testing.T) repoSet
	}{
		{
			name: "memory",
			open: func(t *testing.T) repoSet {
				store := memory.Open()
				return repoSet{groups: store, prompts: store, decks: store, slots: store}
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) repoSet {
				harness := testfixtures.NewSQLiteHarness(t)
				return repoSet{
					groups:  harness.Groups,
					prompts: harness.Prompts,
					decks:   harness.Decks,
					slots:   harness.Slots,
				}
			},
		},
	}

	for _, impl := range implementations {
		impl := impl
		t.Run(impl.name, func(t *testing.T) {
			t.Parallel()

			t.Run("ice breaker completion round trips", func(t *testing.T) {
				t.Parallel()

				repos := impl.open(t)
				group := testfixtures.NewGroupFixture(testfixtures.WithGroupOnboarding())
				if err := repos.groups.CreateGroup(context.Background(), group); err != nil {
					t.Fatalf("failed to create group: %v", err)
				}

				completed := testfixtures.ReferenceTime().AddDate(0, 0, 3)
				if err := repos.groups.SetIceBreakerCompleted(context.Background(), group.ID, completed); err != nil {
					t.Fatalf("failed to set completion: %v", err)
				}

				reloaded, err := repos.groups.GetGroup(context.Background(), group.ID)
				if err != nil {
					t.Fatalf("failed to reload group: %v", err)
				}
				if reloaded.IceBreakerCompletedDate == nil {
					t.Fatal("expected the completion date to be persisted")
				}
			})

			t.Run("rotation listing excludes special prompts", func(t *testing.T) {
				t.Parallel()

				repos := impl.open(t)
				plain := testfixtures.NewPromptFixture()
				if err := repos.prompts.AddPrompt(context.Background(), plain); err != nil {
					t.Fatalf("failed to add prompt: %v", err)
				}
				if _, _, err := testfixtures.SeedBirthdayPrompts(context.Background(), repos.prompts); err != nil {
					t.Fatalf("failed to seed birthday prompts: %v", err)
				}
				deck := testfixtures.NewDeckFixture()
				if err := repos.decks.AddDeck(context.Background(), deck); err != nil {
					t.Fatalf("failed to add deck: %v", err)
				}
				decked := testfixtures.NewPromptFixture(testfixtures.WithPromptDeck(deck.ID, 1))
				if err := repos.prompts.AddPrompt(context.Background(), decked); err != nil {
					t.Fatalf("failed to add deck prompt: %v", err)
				}

				rotation, err := repos.prompts.ListRotationPrompts(context.Background(), []string{"Standard", "Birthday"})
				if err != nil {
					t.Fatalf("failed to list rotation: %v", err)
				}
				if len(rotation) != 1 || rotation[0].ID != plain.ID {
					t.Fatalf("expected only the plain prompt in rotation, got %+v", rotation)
				}
			})

			t.Run("used prompt ids honor the zero boundary", func(t *testing.T) {
				t.Parallel()

				repos := impl.open(t)
				clock := testfixtures.NewClock(time.Time{})
				ids := testfixtures.NewIDGenerator("slot")

				group := testfixtures.NewGroupFixture()
				if err := repos.groups.CreateGroup(context.Background(), group); err != nil {
					t.Fatalf("failed to create group: %v", err)
				}
				prompts, err := testfixtures.SeedRotation(context.Background(), repos.prompts, 2)
				if err != nil {
					t.Fatalf("failed to seed rotation: %v", err)
				}

				day := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
				slots := []persistence.Slot{
					{ID: ids.Next(), GroupID: group.ID, PromptID: prompts[0].ID, Date: day.AddDate(0, 0, -1), CreatedAt: clock.Now()},
					{ID: ids.Next(), GroupID: group.ID, PromptID: prompts[1].ID, Date: day.AddDate(0, 0, 1), CreatedAt: clock.Now()},
				}
				if err := repos.slots.InsertSlots(context.Background(), slots); err != nil {
					t.Fatalf("failed to insert slots: %v", err)
				}

				bounded, err := repos.slots.UsedPromptIDs(context.Background(), group.ID, day)
				if err != nil {
					t.Fatalf("failed to list bounded used ids: %v", err)
				}
				if _, ok := bounded[prompts[0].ID]; !ok {
					t.Error("expected the past prompt inside the boundary")
				}
				if _, ok := bounded[prompts[1].ID]; ok {
					t.Error("expected the future prompt outside the boundary")
				}

				unbounded, err := repos.slots.UsedPromptIDs(context.Background(), group.ID, time.Time{})
				if err != nil {
					t.Fatalf("failed to list unbounded used ids: %v", err)
				}
				if len(unbounded) != 2 {
					t.Fatalf("expected both prompts with a zero boundary, got %d", len(unbounded))
				}
			})
		})
	}
}
