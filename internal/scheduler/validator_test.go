package scheduler

import (
	"testing"
)

func catalogOf(prompts ...Prompt) map[string]Prompt {
	catalog := make(map[string]Prompt, len(prompts))
	for _, p := range prompts {
		catalog[p.ID] = p
	}
	return catalog
}

func TestValidate_DropsLaterDuplicate(t *testing.T) {
	t.Parallel()

	dates := dateRange("2024-06-01", 3)
	queue := []Slot{
		{Date: dates[0], PromptID: "p1"},
		{Date: dates[1], PromptID: "p2"},
		{Date: dates[2], PromptID: "p1"},
	}
	catalog := catalogOf(
		promptFixture("p1", CategoryStandard),
		promptFixture("p2", CategoryStandard),
	)

	repaired, anomalies := Validate(queue, catalog, []string{CategoryStandard})

	if len(repaired) != 2 {
		t.Fatalf("expected 2 slots after repair, got %d", len(repaired))
	}
	for _, slot := range repaired {
		if slot.PromptID == "p1" && !SameDate(slot.Date, dates[0]) {
			t.Fatalf("kept the wrong p1 occurrence: %s", slot.Date)
		}
	}
	if len(anomalies) != 1 {
		t.Fatalf("expected exactly 1 anomaly, got %d", len(anomalies))
	}
	if anomalies[0].Kind != AnomalyDuplicatePrompt || anomalies[0].PromptID != "p1" {
		t.Fatalf("unexpected anomaly %+v", anomalies[0])
	}
}

func TestValidate_DropsOutOfCategorySlot(t *testing.T) {
	t.Parallel()

	dates := dateRange("2024-06-01", 2)
	queue := []Slot{
		{Date: dates[0], PromptID: "p1"},
		{Date: dates[1], PromptID: "n1"},
	}
	catalog := catalogOf(
		promptFixture("p1", CategoryStandard),
		promptFixture("n1", CategoryNSFW),
	)

	repaired, anomalies := Validate(queue, catalog, []string{CategoryStandard})

	if len(repaired) != 1 || repaired[0].PromptID != "p1" {
		t.Fatalf("expected only p1 to survive, got %+v", repaired)
	}
	if len(anomalies) != 1 || anomalies[0].Kind != AnomalyCategoryViolation {
		t.Fatalf("expected a category violation anomaly, got %+v", anomalies)
	}
}

func TestValidate_DropsUnknownPrompt(t *testing.T) {
	t.Parallel()

	dates := dateRange("2024-06-01", 1)
	queue := []Slot{{Date: dates[0], PromptID: "ghost"}}

	repaired, anomalies := Validate(queue, catalogOf(), []string{CategoryStandard})

	if len(repaired) != 0 {
		t.Fatalf("expected unknown prompt to be dropped, got %+v", repaired)
	}
	if len(anomalies) != 1 || anomalies[0].Kind != AnomalyUnknownPrompt {
		t.Fatalf("expected an unknown prompt anomaly, got %+v", anomalies)
	}
}

func TestValidate_PinnedSlotsPassThrough(t *testing.T) {
	t.Parallel()

	dates := dateRange("2024-06-01", 2)
	userID := "u1"
	queue := []Slot{
		{Date: dates[0], PromptID: "p1"},
		// Birthday prompts sit outside the eligible rotation on purpose.
		{Date: dates[1], PromptID: "bday", UserID: &userID},
	}
	catalog := catalogOf(promptFixture("p1", CategoryStandard))

	repaired, anomalies := Validate(queue, catalog, []string{CategoryStandard})

	if len(repaired) != 2 {
		t.Fatalf("expected pinned slot to survive, got %+v", repaired)
	}
	if len(anomalies) != 0 {
		t.Fatalf("expected no anomalies, got %+v", anomalies)
	}
}

func TestValidate_CleanQueueUntouched(t *testing.T) {
	t.Parallel()

	dates := dateRange("2024-06-01", 3)
	queue := []Slot{
		{Date: dates[0], PromptID: "p1"},
		{Date: dates[1], PromptID: "p2"},
		{Date: dates[2], PromptID: "p3"},
	}
	catalog := catalogOf(
		promptFixture("p1", CategoryStandard),
		promptFixture("p2", CategoryRemembering),
		promptFixture("p3", CategoryStandard),
	)

	repaired, anomalies := Validate(queue, catalog, []string{CategoryStandard, CategoryRemembering})

	if len(repaired) != 3 {
		t.Fatalf("expected all slots kept, got %d", len(repaired))
	}
	if len(anomalies) != 0 {
		t.Fatalf("expected no anomalies, got %+v", anomalies)
	}
}
