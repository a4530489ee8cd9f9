package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/prompt-scheduler/internal/persistence"
	"github.com/example/prompt-scheduler/internal/persistence/memory"
)

func TestInitializeQueue(t *testing.T) {
	t.Parallel()

	t.Run("builds a fifteen day window", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, false)
		seedRotation(t, store, "Standard", 6)
		service := newTestQueueService(store)

		result, err := service.InitializeQueue(context.Background(), "g1", EligibilityOverrides{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Decision != DecisionReplace {
			t.Errorf("expected replace, got %q", result.Decision)
		}

		slots := generalSlots(t, store, "g1")
		if len(slots) != 15 {
			t.Fatalf("expected 15 general slots, got %d", len(slots))
		}

		wantStart := time.Date(2024, time.June, 8, 0, 0, 0, 0, time.UTC)
		wantEnd := time.Date(2024, time.June, 22, 0, 0, 0, 0, time.UTC)
		if !slots[0].Date.Equal(wantStart) {
			t.Errorf("expected window to start %s, got %s", wantStart, slots[0].Date)
		}
		if !slots[len(slots)-1].Date.Equal(wantEnd) {
			t.Errorf("expected window to end %s, got %s", wantEnd, slots[len(slots)-1].Date)
		}
	})

	t.Run("same group state produces the same queue", func(t *testing.T) {
		t.Parallel()

		build := func() []string {
			store := memory.Open()
			seedGroup(t, store, "g1", persistence.GroupTypeFriends, false)
			seedRotation(t, store, "Standard", 6)
			service := newTestQueueService(store)
			if _, err := service.InitializeQueue(context.Background(), "g1", EligibilityOverrides{}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			return promptIDs(generalSlots(t, store, "g1"))
		}

		first := build()
		second := build()
		if len(first) != len(second) {
			t.Fatalf("expected equal queue lengths, got %d and %d", len(first), len(second))
		}
		for i := range first {
			if first[i] != second[i] {
				t.Fatalf("queues diverge at index %d: %q vs %q", i, first[i], second[i])
			}
		}
	})

	t.Run("skips when the existing window still satisfies preferences", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, false)
		seedRotation(t, store, "Standard", 6)
		service := newTestQueueService(store)

		if _, err := service.InitializeQueue(context.Background(), "g1", EligibilityOverrides{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		before := promptIDs(generalSlots(t, store, "g1"))

		result, err := service.InitializeQueue(context.Background(), "g1", EligibilityOverrides{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Decision != DecisionSkip {
			t.Errorf("expected skip, got %q", result.Decision)
		}

		after := promptIDs(generalSlots(t, store, "g1"))
		for i := range before {
			if before[i] != after[i] {
				t.Fatalf("expected queue untouched, diverges at index %d", i)
			}
		}
	})

	t.Run("fails when no category is eligible", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFamily, false)
		seedRotation(t, store, "Standard", 3)
		err := store.UpsertPreference(context.Background(), persistence.CategoryPreference{
			GroupID: "g1", Category: "Standard", Preference: "none",
		})
		if err != nil {
			t.Fatalf("failed to seed preference: %v", err)
		}
		service := newTestQueueService(store)

		_, err = service.InitializeQueue(context.Background(), "g1", EligibilityOverrides{})
		if !errors.Is(err, ErrNoEligibleCategories) {
			t.Fatalf("expected ErrNoEligibleCategories, got %v", err)
		}
	})

	t.Run("rejects an empty group id", func(t *testing.T) {
		t.Parallel()

		service := newTestQueueService(memory.Open())

		_, err := service.InitializeQueue(context.Background(), "", EligibilityOverrides{})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if vErr.FieldErrors["group_id"] != "required" {
			t.Errorf("expected group_id error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("onboarding draws from the ice breaker pool and records completion", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, true)
		seedRotation(t, store, "Standard", 6)
		for _, id := range []string{"ib-01", "ib-02", "ib-03"} {
			err := store.AddPrompt(context.Background(), persistence.Prompt{
				ID: id, Category: "Standard", Question: "ice breaker " + id, IceBreaker: true,
			})
			if err != nil {
				t.Fatalf("failed to seed ice breaker: %v", err)
			}
		}
		service := newTestQueueService(store)

		result, err := service.InitializeQueue(context.Background(), "g1", EligibilityOverrides{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IceBreakerCompleted {
			t.Error("expected the run to record ice breaker completion")
		}

		iceBreakers := map[string]bool{"ib-01": true, "ib-02": true, "ib-03": true}
		for _, slot := range generalSlots(t, store, "g1") {
			if !iceBreakers[slot.PromptID] {
				t.Fatalf("expected only ice breaker prompts, got %q", slot.PromptID)
			}
		}

		group, err := store.GetGroup(context.Background(), "g1")
		if err != nil {
			t.Fatalf("failed to reload group: %v", err)
		}
		if group.IceBreakerCompletedDate == nil {
			t.Error("expected completion date to be persisted")
		}
	})

	t.Run("onboarding falls back to standard rotation without ice breakers", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, true)
		standard := seedRotation(t, store, "Standard", 6)
		service := newTestQueueService(store)

		result, err := service.InitializeQueue(context.Background(), "g1", EligibilityOverrides{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IceBreakerCompleted {
			t.Error("expected the run to record ice breaker completion")
		}

		allowed := make(map[string]bool, len(standard))
		for _, id := range standard {
			allowed[id] = true
		}
		for _, slot := range generalSlots(t, store, "g1") {
			if !allowed[slot.PromptID] {
				t.Fatalf("expected standard rotation prompts, got %q", slot.PromptID)
			}
		}
	})

	t.Run("invocation flags win over derived eligibility", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, false)
		seedRotation(t, store, "Standard", 4)
		seedRotation(t, store, "Edgy/NSFW", 4)
		service := newTestQueueService(store)

		// No NSFW preference row exists yet; the flag asserts opt-in
		// content created in the same request.
		enabled := true
		result, err := service.InitializeQueue(context.Background(), "g1", EligibilityOverrides{
			NSFWEnabled: &enabled,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		found := false
		for _, category := range result.EligibleCategories {
			if category == "Edgy/NSFW" {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected Edgy/NSFW to be eligible, got %v", result.EligibleCategories)
		}
	})

	t.Run("memorial flag unlocks remembering before rows land", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFamily, false)
		err := store.UpsertPreference(context.Background(), persistence.CategoryPreference{
			GroupID: "g1", Category: "Standard", Preference: "none",
		})
		if err != nil {
			t.Fatalf("failed to seed preference: %v", err)
		}
		seedRotation(t, store, "Remembering", 4)
		service := newTestQueueService(store)

		// Without the flag the group has no memorials and no categories.
		_, err = service.InitializeQueue(context.Background(), "g1", EligibilityOverrides{})
		if !errors.Is(err, ErrNoEligibleCategories) {
			t.Fatalf("expected ErrNoEligibleCategories, got %v", err)
		}

		has := true
		result, err := service.InitializeQueue(context.Background(), "g1", EligibilityOverrides{
			HasMemorials: &has,
		})
		if err != nil {
			t.Fatalf("unexpected error with memorial flag: %v", err)
		}
		if len(result.EligibleCategories) != 1 || result.EligibleCategories[0] != "Remembering" {
			t.Fatalf("expected only Remembering, got %v", result.EligibleCategories)
		}
	})

	t.Run("pins birthday prompts for members with birthdays in the window", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, false)
		seedRotation(t, store, "Standard", 6)
		seedBirthdayPrompts(t, store)
		birthday := time.Date(1990, time.June, 18, 0, 0, 0, 0, time.UTC)
		seedMember(t, store, "g1", "m1", "Alex", &birthday)
		seedMember(t, store, "g1", "m2", "Blair", nil)
		seedMember(t, store, "g1", "m3", "Casey", nil)
		service := newTestQueueService(store)

		result, err := service.InitializeQueue(context.Background(), "g1", EligibilityOverrides{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// The pin displaces one general slot, extending the window a day.
		extended := time.Date(2024, time.June, 23, 0, 0, 0, 0, time.UTC)
		sawExtended := false
		for _, date := range result.Dates {
			if date.Equal(extended) {
				sawExtended = true
			}
		}
		if !sawExtended {
			t.Errorf("expected the result dates to include the extended day %s", extended)
		}

		pinned := pinnedSlots(t, store, "g1")
		if len(pinned) != 3 {
			t.Fatalf("expected 3 pinned slots, got %d", len(pinned))
		}

		target := time.Date(2024, time.June, 18, 0, 0, 0, 0, time.UTC)
		byUser := make(map[string]persistence.Slot, len(pinned))
		for _, slot := range pinned {
			if !slot.Date.Equal(target) {
				t.Errorf("expected pin on %s, got %s", target, slot.Date)
			}
			byUser[*slot.UserID] = slot
		}
		if byUser["m1"].PromptID != "b-yours" {
			t.Errorf("expected birthday member to get the your-birthday prompt, got %q", byUser["m1"].PromptID)
		}
		for _, other := range []string{"m2", "m3"} {
			if byUser[other].PromptID != "b-theirs" {
				t.Errorf("expected %s to get the their-birthday prompt, got %q", other, byUser[other].PromptID)
			}
		}
	})

	t.Run("excludes member name prompts from small groups", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, false)
		seedRotation(t, store, "Standard", 5)
		err := store.AddPrompt(context.Background(), persistence.Prompt{
			ID:               "dyn-01",
			Category:         "Standard",
			Question:         "What do you admire about {member_name}?",
			DynamicVariables: []string{"member_name"},
		})
		if err != nil {
			t.Fatalf("failed to seed prompt: %v", err)
		}
		seedMember(t, store, "g1", "m1", "Alex", nil)
		seedMember(t, store, "g1", "m2", "Blair", nil)
		service := newTestQueueService(store)

		if _, err := service.InitializeQueue(context.Background(), "g1", EligibilityOverrides{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, slot := range generalSlots(t, store, "g1") {
			if slot.PromptID == "dyn-01" {
				t.Fatal("expected member name prompt to be excluded for a two member group")
			}
		}
	})
}

func TestRegenerate(t *testing.T) {
	t.Parallel()

	t.Run("rejects groups still onboarding", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, true)
		seedRotation(t, store, "Standard", 6)
		service := newTestQueueService(store)

		_, err := service.Regenerate(context.Background(), "g1")
		if !errors.Is(err, ErrIceBreakerActive) {
			t.Fatalf("expected ErrIceBreakerActive, got %v", err)
		}
	})

	t.Run("replaces the forward window then skips on repeat", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, false)
		seedRotation(t, store, "Standard", 10)
		service := newTestQueueService(store)

		first, err := service.Regenerate(context.Background(), "g1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first.Decision != DecisionReplace {
			t.Errorf("expected replace, got %q", first.Decision)
		}

		slots := generalSlots(t, store, "g1")
		if len(slots) != 7 {
			t.Fatalf("expected 7 forward slots, got %d", len(slots))
		}
		wantStart := time.Date(2024, time.June, 17, 0, 0, 0, 0, time.UTC)
		if !slots[0].Date.Equal(wantStart) {
			t.Errorf("expected window to start %s, got %s", wantStart, slots[0].Date)
		}

		for i := 0; i < 2; i++ {
			repeat, err := service.Regenerate(context.Background(), "g1")
			if err != nil {
				t.Fatalf("unexpected error on repeat %d: %v", i, err)
			}
			if repeat.Decision != DecisionSkip {
				t.Errorf("expected skip on repeat %d, got %q", i, repeat.Decision)
			}
		}
	})

	t.Run("preserves today and tomorrow", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, false)
		seedRotation(t, store, "Standard", 10)
		today := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
		tomorrow := today.AddDate(0, 0, 1)
		err := store.InsertSlots(context.Background(), []persistence.Slot{
			{ID: "keep-1", GroupID: "g1", PromptID: "std-01", Date: today, CreatedAt: testNow},
			{ID: "keep-2", GroupID: "g1", PromptID: "std-02", Date: tomorrow, CreatedAt: testNow},
		})
		if err != nil {
			t.Fatalf("failed to seed slots: %v", err)
		}
		service := newTestQueueService(store)

		if _, err := service.Regenerate(context.Background(), "g1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		to := tomorrow
		near, err := store.ListSlots(context.Background(), persistence.SlotFilter{
			GroupID: "g1", To: &to, GeneralOnly: true,
		})
		if err != nil {
			t.Fatalf("failed to list slots: %v", err)
		}
		if len(near) != 2 {
			t.Fatalf("expected today and tomorrow untouched, got %d slots", len(near))
		}
	})

	t.Run("does not reuse prompts already scheduled", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, false)
		seedRotation(t, store, "Standard", 9)
		today := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
		err := store.InsertSlots(context.Background(), []persistence.Slot{
			{ID: "used-1", GroupID: "g1", PromptID: "std-01", Date: today, CreatedAt: testNow},
		})
		if err != nil {
			t.Fatalf("failed to seed slot: %v", err)
		}
		service := newTestQueueService(store)

		if _, err := service.Regenerate(context.Background(), "g1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		from := today.AddDate(0, 0, 2)
		forward, err := store.ListSlots(context.Background(), persistence.SlotFilter{
			GroupID: "g1", From: &from, GeneralOnly: true,
		})
		if err != nil {
			t.Fatalf("failed to list slots: %v", err)
		}
		for _, slot := range forward {
			if slot.PromptID == "std-01" {
				t.Fatal("expected std-01 to stay out of the regenerated window")
			}
		}
	})

	t.Run("interleaves one deck prompt per window", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, false)
		seedRotation(t, store, "Standard", 10)
		if err := store.AddDeck(context.Background(), persistence.Deck{ID: "d1", Name: "Deep Questions"}); err != nil {
			t.Fatalf("failed to seed deck: %v", err)
		}
		deckID := "d1"
		for i, id := range []string{"deck-01", "deck-02"} {
			err := store.AddPrompt(context.Background(), persistence.Prompt{
				ID: id, Category: "Standard", Question: "deck " + id, DeckID: &deckID, DeckOrder: i + 1,
			})
			if err != nil {
				t.Fatalf("failed to seed deck prompt: %v", err)
			}
		}
		if err := store.ActivateDeck(context.Background(), "g1", "d1"); err != nil {
			t.Fatalf("failed to activate deck: %v", err)
		}
		service := newTestQueueService(store)

		if _, err := service.Regenerate(context.Background(), "g1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var deckSlots []persistence.Slot
		for _, slot := range generalSlots(t, store, "g1") {
			if slot.DeckID != nil {
				deckSlots = append(deckSlots, slot)
			}
		}
		if len(deckSlots) != 1 {
			t.Fatalf("expected exactly one deck slot in a seven day window, got %d", len(deckSlots))
		}
		if deckSlots[0].PromptID != "deck-01" {
			t.Errorf("expected lowest ordered deck prompt first, got %q", deckSlots[0].PromptID)
		}
	})
}
