package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/example/prompt-scheduler/internal/prng"
)

// BuildInput carries everything one queue-building run needs. The builder
// itself performs no I/O; the caller loads candidates and the already-used
// set from persistence and writes the resulting slots back.
type BuildInput struct {
	// Candidates is the rotation pool: prompts from eligible categories,
	// excluding birthday-typed and deck prompts.
	Candidates []Prompt
	// Eligible is the ordered eligible-category set from EligibleCategories.
	Eligible []string
	// Weights maps categories to sampling weights; missing entries mean 1.0.
	Weights map[string]float64
	// Dates is the ordered range to fill, one general slot per date.
	Dates []time.Time
	// Seed drives every random decision; same seed, same queue.
	Seed string
	// UsedPromptIDs holds prompt ids consumed before this run (past and
	// preserved slots). Never mutated; reuse after exhaustion still respects
	// it.
	UsedPromptIDs map[string]struct{}
	// ActiveDecks and DeckPrompts feed the deck interleave and may be empty.
	// DeckPrompts holds the full prompt set of all active decks.
	ActiveDecks []Deck
	DeckPrompts []Prompt

	Logger *slog.Logger
}

// BuildResult reports what a run produced, for persistence and logging.
type BuildResult struct {
	Slots          []Slot
	SkippedDates   []time.Time
	CategoryCounts map[string]int
}

// BuildQueue fills every date in the input range with one general slot.
//
// The candidate pool is shuffled once from the seed and consumed without
// repeats. Category usage counts reset every VarietyWindow dates. When the
// pool runs dry the run-local used set clears and the pool reshuffles under
// a derived seed, so reuse cycles stay deterministic but ordered differently
// from the first pass; ids in UsedPromptIDs stay excluded even then. A date
// the selector cannot fill is skipped and logged, never fatal.
func BuildQueue(in BuildInput) BuildResult {
	in.ActiveDecks = nil
	in.DeckPrompts = nil
	return buildQueue(in)
}

// BuildQueueWithDecks behaves like BuildQueue and additionally interleaves
// deck prompts: within each VarietyWindow stretch of dates, each active deck
// contributes at most one prompt, chosen by ascending deck order from its
// unused prompts. Slots filled from a deck carry the deck id. A deck with no
// unused prompts left is passed over for the window.
func BuildQueueWithDecks(in BuildInput) BuildResult {
	return buildQueue(in)
}

func buildQueue(in BuildInput) BuildResult {
	logger := in.Logger
	if logger == nil {
		logger = slog.Default()
	}

	shuffled := prng.Shuffle(in.Candidates, in.Seed)
	rng := prng.New(in.Seed)

	categoryUse := make(map[string]int)
	runUsed := make(map[string]struct{})
	deckUsed := make(map[string]struct{})

	result := BuildResult{
		Slots:          make([]Slot, 0, len(in.Dates)),
		CategoryCounts: make(map[string]int),
	}

	for i, date := range in.Dates {
		if i%VarietyWindow == 0 {
			categoryUse = make(map[string]int)
			deckUsed = make(map[string]struct{})
		}

		available := availablePrompts(shuffled, in.UsedPromptIDs, runUsed)

		// Pool exhausted: begin a reuse cycle under a derived seed so the
		// repeat order differs from the first pass but stays deterministic.
		if len(available) == 0 {
			runUsed = make(map[string]struct{})
			shuffled = prng.Shuffle(in.Candidates, fmt.Sprintf("%s-reset-%d", in.Seed, i))
			available = availablePrompts(shuffled, in.UsedPromptIDs, runUsed)
		}

		var selected *Prompt
		var deckID *string

		if len(in.ActiveDecks) > 0 && len(in.DeckPrompts) > 0 {
			selected, deckID = selectDeckPrompt(in, deckUsed, runUsed, rng, logger, date)
		}

		if selected == nil {
			selected = SelectNext(available, in.Eligible, in.Weights, categoryUse, rng)
		}

		if selected == nil {
			logger.Warn("no prompt available for date, skipping",
				slog.String("date", date.Format(time.DateOnly)))
			result.SkippedDates = append(result.SkippedDates, date)
			continue
		}

		// The selector draws from an already-filtered pool, so a repeat here
		// signals a defect upstream. Substitute rather than persist it.
		if _, dup := runUsed[selected.ID]; dup {
			substitute := firstUnused(available, runUsed, selected.ID)
			if substitute == nil {
				logger.Warn("duplicate selection with no substitute, skipping date",
					slog.String("date", date.Format(time.DateOnly)),
					slog.String("prompt_id", selected.ID))
				result.SkippedDates = append(result.SkippedDates, date)
				continue
			}
			logger.Warn("substituted duplicate selection",
				slog.String("date", date.Format(time.DateOnly)),
				slog.String("duplicate_id", selected.ID),
				slog.String("substitute_id", substitute.ID))
			selected = substitute
		}

		runUsed[selected.ID] = struct{}{}
		categoryUse[selected.Category]++
		result.CategoryCounts[selected.Category]++

		result.Slots = append(result.Slots, Slot{
			Date:     Midnight(date),
			PromptID: selected.ID,
			DeckID:   deckID,
		})
	}

	return result
}

// selectDeckPrompt implements the per-window deck interleave. One unused
// deck is picked at random; its lowest-ordered unused prompt wins. A deck
// with nothing left is still marked used so it is not retried this window.
func selectDeckPrompt(in BuildInput, deckUsed, runUsed map[string]struct{}, rng func() float64, logger *slog.Logger, date time.Time) (*Prompt, *string) {
	unusedDecks := make([]Deck, 0, len(in.ActiveDecks))
	for _, deck := range in.ActiveDecks {
		if _, used := deckUsed[deck.ID]; !used {
			unusedDecks = append(unusedDecks, deck)
		}
	}
	if len(unusedDecks) == 0 {
		return nil, nil
	}

	deck := unusedDecks[int(rng()*float64(len(unusedDecks)))]
	deckUsed[deck.ID] = struct{}{}

	var best *Prompt
	for _, prompt := range in.DeckPrompts {
		if prompt.DeckID == nil || *prompt.DeckID != deck.ID {
			continue
		}
		if _, used := in.UsedPromptIDs[prompt.ID]; used {
			continue
		}
		if _, used := runUsed[prompt.ID]; used {
			continue
		}
		if best == nil || prompt.DeckOrder < best.DeckOrder {
			candidate := prompt
			best = &candidate
		}
	}

	if best == nil {
		logger.Info("active deck has no remaining prompts this window",
			slog.String("deck_id", deck.ID),
			slog.String("deck_name", deck.Name),
			slog.String("date", date.Format(time.DateOnly)))
		return nil, nil
	}

	deckID := deck.ID
	return best, &deckID
}

func availablePrompts(shuffled []Prompt, preUsed, runUsed map[string]struct{}) []Prompt {
	available := make([]Prompt, 0, len(shuffled))
	for _, prompt := range shuffled {
		if _, used := preUsed[prompt.ID]; used {
			continue
		}
		if _, used := runUsed[prompt.ID]; used {
			continue
		}
		available = append(available, prompt)
	}
	return available
}

func firstUnused(available []Prompt, runUsed map[string]struct{}, excludeID string) *Prompt {
	for _, prompt := range available {
		if prompt.ID == excludeID {
			continue
		}
		if _, used := runUsed[prompt.ID]; used {
			continue
		}
		candidate := prompt
		return &candidate
	}
	return nil
}
