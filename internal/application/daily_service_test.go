package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/example/prompt-scheduler/internal/persistence"
	"github.com/example/prompt-scheduler/internal/persistence/memory"
)

func TestRunDaily(t *testing.T) {
	t.Parallel()

	today := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

	t.Run("keeps the queued prompt for today", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, false)
		seedRotation(t, store, "Standard", 5)
		err := store.InsertSlots(context.Background(), []persistence.Slot{
			{ID: "today-1", GroupID: "g1", PromptID: "std-03", Date: today, CreatedAt: testNow},
		})
		if err != nil {
			t.Fatalf("failed to seed slot: %v", err)
		}
		service := newTestDailyService(store)

		summary, err := service.RunDaily(context.Background(), time.Time{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(summary.Outcomes) != 1 {
			t.Fatalf("expected 1 outcome, got %d", len(summary.Outcomes))
		}

		outcome := summary.Outcomes[0]
		if outcome.PromptID != "std-03" {
			t.Errorf("expected queued prompt std-03, got %q", outcome.PromptID)
		}
		if outcome.Scheduled {
			t.Error("expected no new slot for an already scheduled day")
		}
	})

	t.Run("fills an empty day deterministically", func(t *testing.T) {
		t.Parallel()

		run := func() DailyOutcome {
			store := memory.Open()
			seedGroup(t, store, "g1", persistence.GroupTypeFriends, false)
			seedRotation(t, store, "Standard", 5)
			service := newTestDailyService(store)

			summary, err := service.RunDaily(context.Background(), today)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(summary.Outcomes) != 1 {
				t.Fatalf("expected 1 outcome, got %d", len(summary.Outcomes))
			}
			return summary.Outcomes[0]
		}

		first := run()
		if !first.Scheduled {
			t.Error("expected a new slot to be scheduled")
		}
		if first.PromptID == "" {
			t.Fatal("expected a prompt to be selected")
		}

		second := run()
		if second.PromptID != first.PromptID {
			t.Errorf("expected deterministic selection, got %q then %q", first.PromptID, second.PromptID)
		}
	})

	t.Run("never picks a prompt queued for a future date", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, false)
		seedRotation(t, store, "Standard", 3)
		err := store.InsertSlots(context.Background(), []persistence.Slot{
			{ID: "past-1", GroupID: "g1", PromptID: "std-02", Date: today.AddDate(0, 0, -1), CreatedAt: testNow},
			{ID: "future-1", GroupID: "g1", PromptID: "std-01", Date: today.AddDate(0, 0, 1), CreatedAt: testNow},
		})
		if err != nil {
			t.Fatalf("failed to seed slots: %v", err)
		}
		service := newTestDailyService(store)

		summary, err := service.RunDaily(context.Background(), today)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		outcome := summary.Outcomes[0]
		if !outcome.Scheduled {
			t.Fatal("expected today to be filled")
		}
		if outcome.PromptID != "std-03" {
			t.Errorf("expected the only unqueued prompt std-03, got %q", outcome.PromptID)
		}

		seen := make(map[string]time.Time)
		for _, slot := range generalSlots(t, store, "g1") {
			if previous, ok := seen[slot.PromptID]; ok {
				t.Fatalf("prompt %s appears on both %s and %s",
					slot.PromptID, previous.Format(time.DateOnly), slot.Date.Format(time.DateOnly))
			}
			seen[slot.PromptID] = slot.Date
		}
	})

	t.Run("second pass on the same day is a no-op", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, false)
		seedRotation(t, store, "Standard", 5)
		service := newTestDailyService(store)

		first, err := service.RunDaily(context.Background(), today)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := service.RunDaily(context.Background(), today)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !first.Outcomes[0].Scheduled {
			t.Error("expected the first pass to schedule")
		}
		if second.Outcomes[0].Scheduled {
			t.Error("expected the second pass to find the existing slot")
		}
		if first.Outcomes[0].PromptID != second.Outcomes[0].PromptID {
			t.Errorf("expected both passes to report the same prompt, got %q and %q",
				first.Outcomes[0].PromptID, second.Outcomes[0].PromptID)
		}
	})

	t.Run("replaces a remembering prompt when no memorials remain", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, false)
		seedRotation(t, store, "Standard", 5)
		err := store.AddPrompt(context.Background(), persistence.Prompt{
			ID: "rem-01", Category: "Remembering", Question: "What is your favorite memory of [Name]?",
		})
		if err != nil {
			t.Fatalf("failed to seed prompt: %v", err)
		}
		err = store.InsertSlots(context.Background(), []persistence.Slot{
			{ID: "stale-1", GroupID: "g1", PromptID: "rem-01", Date: today, CreatedAt: testNow},
		})
		if err != nil {
			t.Fatalf("failed to seed slot: %v", err)
		}
		service := newTestDailyService(store)

		summary, err := service.RunDaily(context.Background(), today)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		outcome := summary.Outcomes[0]
		if outcome.PromptID == "rem-01" {
			t.Fatal("expected the stale remembering prompt to be replaced")
		}
		if !outcome.Scheduled {
			t.Error("expected a replacement slot to be scheduled")
		}

		prompt, err := store.GetPrompt(context.Background(), outcome.PromptID)
		if err != nil {
			t.Fatalf("failed to load replacement prompt: %v", err)
		}
		if prompt.Category != "Standard" {
			t.Errorf("expected a standard replacement, got category %q", prompt.Category)
		}
	})

	t.Run("personalizes remembering questions with the memorial name", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, false)
		seedRotation(t, store, "Standard", 3)
		err := store.AddMemorial(context.Background(), persistence.Memorial{
			ID: "mem-1", GroupID: "g1", Name: "Grandma Rose",
		})
		if err != nil {
			t.Fatalf("failed to seed memorial: %v", err)
		}
		err = store.AddPrompt(context.Background(), persistence.Prompt{
			ID: "rem-01", Category: "Remembering", Question: "What is your favorite memory of [Name]?",
		})
		if err != nil {
			t.Fatalf("failed to seed prompt: %v", err)
		}
		err = store.InsertSlots(context.Background(), []persistence.Slot{
			{ID: "today-1", GroupID: "g1", PromptID: "rem-01", Date: today, CreatedAt: testNow},
		})
		if err != nil {
			t.Fatalf("failed to seed slot: %v", err)
		}
		service := newTestDailyService(store)

		summary, err := service.RunDaily(context.Background(), today)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		outcome := summary.Outcomes[0]
		if !strings.Contains(outcome.Question, "Grandma Rose") {
			t.Errorf("expected personalized question, got %q", outcome.Question)
		}
	})

	t.Run("pins birthday prompts landing today", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g1", persistence.GroupTypeFriends, false)
		seedRotation(t, store, "Standard", 5)
		seedBirthdayPrompts(t, store)
		birthday := time.Date(1991, time.June, 15, 0, 0, 0, 0, time.UTC)
		seedMember(t, store, "g1", "m1", "Alex", &birthday)
		seedMember(t, store, "g1", "m2", "Blair", nil)
		service := newTestDailyService(store)

		summary, err := service.RunDaily(context.Background(), today)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		outcome := summary.Outcomes[0]
		if outcome.BirthdaysPinned != 2 {
			t.Errorf("expected 2 birthday pins, got %d", outcome.BirthdaysPinned)
		}

		pinned := pinnedSlots(t, store, "g1")
		if len(pinned) != 2 {
			t.Fatalf("expected 2 pinned slots, got %d", len(pinned))
		}

		repeat, err := service.RunDaily(context.Background(), today)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repeat.Outcomes[0].BirthdaysPinned != 0 {
			t.Errorf("expected existing pins to be tolerated, got %d new pins",
				repeat.Outcomes[0].BirthdaysPinned)
		}
	})

	t.Run("one failing group does not stop the pass", func(t *testing.T) {
		t.Parallel()

		store := memory.Open()
		seedGroup(t, store, "g-bad", persistence.GroupTypeFamily, false)
		err := store.UpsertPreference(context.Background(), persistence.CategoryPreference{
			GroupID: "g-bad", Category: "Standard", Preference: "none",
		})
		if err != nil {
			t.Fatalf("failed to seed preference: %v", err)
		}
		seedGroup(t, store, "g-good", persistence.GroupTypeFriends, false)
		seedRotation(t, store, "Standard", 5)
		service := newTestDailyService(store)

		summary, err := service.RunDaily(context.Background(), today)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if summary.Groups != 2 {
			t.Errorf("expected 2 groups in the pass, got %d", summary.Groups)
		}
		if summary.Failures != 1 {
			t.Errorf("expected 1 failure, got %d", summary.Failures)
		}
		if len(summary.Outcomes) != 1 {
			t.Fatalf("expected 1 outcome, got %d", len(summary.Outcomes))
		}
		if summary.Outcomes[0].GroupID != "g-good" {
			t.Errorf("expected the healthy group to be scheduled, got %q", summary.Outcomes[0].GroupID)
		}
	})
}
