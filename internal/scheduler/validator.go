package scheduler

import (
	"sort"
	"time"
)

// AnomalyKind labels the class of defect the validator repaired.
type AnomalyKind string

const (
	AnomalyDuplicatePrompt   AnomalyKind = "duplicate_prompt"
	AnomalyUnknownPrompt     AnomalyKind = "unknown_prompt"
	AnomalyCategoryViolation AnomalyKind = "category_violation"
)

// Anomaly records one slot the validator dropped and why. Anomalies signal
// an upstream logic defect and are meant for logging, never for users.
type Anomaly struct {
	Kind     AnomalyKind
	Date     time.Time
	PromptID string
	Category string
}

// Validate repairs a built queue before persistence. Among general slots it
// keeps only the first occurrence of each prompt id by date order, drops
// slots whose prompt is missing from the catalog, and drops slots whose
// category falls outside the eligible set. Pinned slots pass through
// untouched. Validation repairs and reports; it never fails.
func Validate(queue []Slot, catalog map[string]Prompt, eligible []string) ([]Slot, []Anomaly) {
	eligibleSet := make(map[string]struct{}, len(eligible))
	for _, category := range eligible {
		eligibleSet[category] = struct{}{}
	}

	ordered := make([]Slot, len(queue))
	copy(ordered, queue)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	seen := make(map[string]struct{}, len(ordered))
	repaired := make([]Slot, 0, len(ordered))
	var anomalies []Anomaly

	for _, slot := range ordered {
		if !slot.General() {
			repaired = append(repaired, slot)
			continue
		}

		prompt, known := catalog[slot.PromptID]
		if !known {
			anomalies = append(anomalies, Anomaly{
				Kind:     AnomalyUnknownPrompt,
				Date:     slot.Date,
				PromptID: slot.PromptID,
			})
			continue
		}

		if _, dup := seen[slot.PromptID]; dup {
			anomalies = append(anomalies, Anomaly{
				Kind:     AnomalyDuplicatePrompt,
				Date:     slot.Date,
				PromptID: slot.PromptID,
				Category: prompt.Category,
			})
			continue
		}

		if _, ok := eligibleSet[prompt.Category]; !ok {
			anomalies = append(anomalies, Anomaly{
				Kind:     AnomalyCategoryViolation,
				Date:     slot.Date,
				PromptID: slot.PromptID,
				Category: prompt.Category,
			})
			continue
		}

		seen[slot.PromptID] = struct{}{}
		repaired = append(repaired, slot)
	}

	return repaired, anomalies
}
