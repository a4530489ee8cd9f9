package scheduler

import "math"

// weightScale converts a fractional category weight into an integer
// repetition count for the sampling pool.
const weightScale = 10

// SelectNext picks one prompt for a scheduling slot, biased toward
// categories unused in the current variety window and toward higher
// configured weights.
//
// Category choice: categories with no recorded use in the window are
// preferred, one picked uniformly at random among them. Otherwise the
// least-used eligible category wins; ties resolve to the category that
// appears first in the eligible slice, whose order is fixed by
// EligibleCategories. Candidates are filtered to the chosen category, with
// the full candidate list as fallback so sparse pools still make progress.
//
// The final draw is uniform over a pool in which each candidate appears
// max(1, ceil(weight*10)) times, weight defaulting to 1.0.
//
// Returns nil only when candidates is empty; the caller should skip the
// slot rather than abort the run.
func SelectNext(candidates []Prompt, eligible []string, weights map[string]float64, recentUse map[string]int, rng func() float64) *Prompt {
	if len(candidates) == 0 {
		return nil
	}

	preferred := preferredCategory(eligible, recentUse, rng)

	pool := candidates
	if preferred != "" {
		matching := make([]Prompt, 0, len(candidates))
		for _, candidate := range candidates {
			if candidate.Category == preferred {
				matching = append(matching, candidate)
			}
		}
		if len(matching) > 0 {
			pool = matching
		}
	}

	weighted := WeightedPool(pool, weights)
	if len(weighted) == 0 {
		return nil
	}

	selected := weighted[int(rng()*float64(len(weighted)))]
	return &selected
}

// WeightedPool expands candidates into a sampling pool in which each prompt
// appears max(1, ceil(weight*10)) times, weight defaulting to 1.0 and
// negative weights clamping to the single mandatory copy. A uniform or
// modular index into the pool yields a weight-biased draw.
func WeightedPool(candidates []Prompt, weights map[string]float64) []Prompt {
	pool := make([]Prompt, 0, len(candidates)*weightScale)
	for _, candidate := range candidates {
		weight, ok := weights[candidate.Category]
		if !ok {
			weight = 1.0
		}
		if weight < 0 {
			weight = 0
		}
		repetitions := int(math.Ceil(weight * weightScale))
		if repetitions < 1 {
			repetitions = 1
		}
		for i := 0; i < repetitions; i++ {
			pool = append(pool, candidate)
		}
	}
	return pool
}

// preferredCategory applies the variety rules: unused categories first,
// then least-used with a stable tie-break on eligible-slice order.
func preferredCategory(eligible []string, recentUse map[string]int, rng func() float64) string {
	if len(eligible) == 0 {
		return ""
	}

	unused := make([]string, 0, len(eligible))
	for _, category := range eligible {
		if recentUse[category] == 0 {
			unused = append(unused, category)
		}
	}
	if len(unused) > 0 {
		return unused[int(rng()*float64(len(unused)))]
	}

	least := eligible[0]
	for _, category := range eligible[1:] {
		if recentUse[category] < recentUse[least] {
			least = category
		}
	}
	return least
}
