package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/prompt-scheduler/internal/persistence"
	"github.com/example/prompt-scheduler/internal/persistence/memory"
)

var testNow = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

func testClock() func() time.Time {
	return func() time.Time { return testNow }
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	counter := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		counter++
		return fmt.Sprintf("%s-%03d", prefix, counter)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestQueueService(store *memory.Storage) *QueueService {
	return NewQueueServiceWithLogger(store, store, store, store, store,
		sequentialIDs("slot"), testClock(), discardLogger())
}

func newTestDailyService(store *memory.Storage) *DailyService {
	return NewDailyService(store, store, store, store,
		sequentialIDs("daily"), testClock(), 2, discardLogger())
}

func seedGroup(t *testing.T, store *memory.Storage, id, groupType string, onboarding bool) {
	t.Helper()

	group := persistence.Group{
		ID:        id,
		Name:      "group " + id,
		Type:      groupType,
		CreatedAt: testNow.AddDate(0, -1, 0),
	}
	if !onboarding {
		completed := testNow.AddDate(0, -1, 1)
		group.IceBreakerCompletedDate = &completed
	}
	if err := store.CreateGroup(context.Background(), group); err != nil {
		t.Fatalf("failed to seed group %s: %v", id, err)
	}
}

func seedMember(t *testing.T, store *memory.Storage, groupID, id, name string, birthday *time.Time) {
	t.Helper()

	err := store.AddMember(context.Background(), persistence.Member{
		ID: id, GroupID: groupID, Name: name, Birthday: birthday,
	})
	if err != nil {
		t.Fatalf("failed to seed member %s: %v", id, err)
	}
}

func seedRotation(t *testing.T, store *memory.Storage, category string, count int) []string {
	t.Helper()

	ids := make([]string, count)
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("%s-%02d", categorySlug(category), i+1)
		err := store.AddPrompt(context.Background(), persistence.Prompt{
			ID:       id,
			Category: category,
			Question: fmt.Sprintf("question %s", id),
		})
		if err != nil {
			t.Fatalf("failed to seed prompt %s: %v", id, err)
		}
		ids[i] = id
	}
	return ids
}

func seedBirthdayPrompts(t *testing.T, store *memory.Storage) {
	t.Helper()

	for _, p := range []struct{ id, birthdayType, question string }{
		{"b-yours", persistence.BirthdayTypeYours, "Happy birthday! What do you wish for this year?"},
		{"b-theirs", persistence.BirthdayTypeTheirs, "What do you appreciate most about the birthday person?"},
	} {
		birthdayType := p.birthdayType
		err := store.AddPrompt(context.Background(), persistence.Prompt{
			ID:           p.id,
			Category:     "Birthday",
			Question:     p.question,
			BirthdayType: &birthdayType,
		})
		if err != nil {
			t.Fatalf("failed to seed birthday prompt %s: %v", p.id, err)
		}
	}
}

func categorySlug(category string) string {
	switch category {
	case "Standard":
		return "std"
	case "Edgy/NSFW":
		return "nsfw"
	case "Remembering":
		return "rem"
	default:
		return "misc"
	}
}

func generalSlots(t *testing.T, store *memory.Storage, groupID string) []persistence.Slot {
	t.Helper()

	slots, err := store.ListSlots(context.Background(), persistence.SlotFilter{
		GroupID: groupID, GeneralOnly: true,
	})
	if err != nil {
		t.Fatalf("failed to list slots: %v", err)
	}
	return slots
}

func pinnedSlots(t *testing.T, store *memory.Storage, groupID string) []persistence.Slot {
	t.Helper()

	all, err := store.ListSlots(context.Background(), persistence.SlotFilter{GroupID: groupID})
	if err != nil {
		t.Fatalf("failed to list slots: %v", err)
	}
	pinned := make([]persistence.Slot, 0, len(all))
	for _, slot := range all {
		if slot.UserID != nil {
			pinned = append(pinned, slot)
		}
	}
	return pinned
}

func promptIDs(slots []persistence.Slot) []string {
	ids := make([]string, len(slots))
	for i, slot := range slots {
		ids[i] = slot.PromptID
	}
	return ids
}
