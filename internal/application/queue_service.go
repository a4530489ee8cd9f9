package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/prompt-scheduler/internal/persistence"
	"github.com/example/prompt-scheduler/internal/scheduler"
)

// Queue window geometry, in days relative to "today". Initialization
// backfills a week so new members see history; regeneration preserves today
// and tomorrow for user-visible continuity and rebuilds the week after.
const (
	initPastDays         = 7
	initFutureDays       = 7
	regenerateLeadDays   = 2
	regenerateWindowDays = 7
)

// QueueService orchestrates queue generation for a group: deriving the
// scheduling context, loading candidates, building the queue, pinning
// birthdays, validating, and persisting the result. All scheduling state is
// local to one invocation; concurrent runs for the same group serialize on
// a per-group lock.
type QueueService struct {
	groups      persistence.GroupRepository
	prompts     persistence.PromptCatalog
	preferences persistence.PreferenceRepository
	decks       persistence.DeckRepository
	slots       persistence.SlotRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	locks       *groupLocks
	decisions   *decisionCache
}

const (
	defaultDecisionCacheTTL = 30 * time.Second
	decisionCacheMaxEntries = 256
)

// QueueServiceOption adjusts optional queue service behavior.
type QueueServiceOption func(*QueueService)

// WithDecisionCacheTTL overrides how long skip decisions are remembered.
func WithDecisionCacheTTL(ttl time.Duration) QueueServiceOption {
	return func(s *QueueService) {
		s.decisions = newDecisionCache(ttl, decisionCacheMaxEntries, s.now)
	}
}

// NewQueueService wires dependencies for queue operations.
func NewQueueService(groups persistence.GroupRepository, prompts persistence.PromptCatalog, preferences persistence.PreferenceRepository, decks persistence.DeckRepository, slots persistence.SlotRepository, idGenerator func() string, now func() time.Time, opts ...QueueServiceOption) *QueueService {
	return NewQueueServiceWithLogger(groups, prompts, preferences, decks, slots, idGenerator, now, nil, opts...)
}

// NewQueueServiceWithLogger wires dependencies with an explicit base logger.
func NewQueueServiceWithLogger(groups persistence.GroupRepository, prompts persistence.PromptCatalog, preferences persistence.PreferenceRepository, decks persistence.DeckRepository, slots persistence.SlotRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger, opts ...QueueServiceOption) *QueueService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	service := &QueueService{
		groups:      groups,
		prompts:     prompts,
		preferences: preferences,
		decks:       decks,
		slots:       slots,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
		locks:       newGroupLocks(),
		decisions:   newDecisionCache(defaultDecisionCacheTTL, decisionCacheMaxEntries, now),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// InitializeQueue builds the initial schedule for a group: one week of
// history, today, and one week ahead. A group still in its onboarding
// period draws from the ice-breaker pool chain, and a successful run
// records the completion marker. If a correctly categorized window already
// exists the call is a no-op. Overrides let the caller assert flags whose
// backing rows may have been written in the same request.
func (s *QueueService) InitializeQueue(ctx context.Context, groupID string, overrides EligibilityOverrides) (Result, error) {
	if groupID == "" {
		vErr := &ValidationError{}
		vErr.add("group_id", "required")
		return Result{}, vErr
	}

	release := s.locks.acquire(groupID)
	defer release()

	logger := serviceLogger(ctx, s.logger, "queue", "initialize", "group_id", groupID)

	sc, err := s.buildContext(ctx, groupID, overrides)
	if err != nil {
		logger.Error("failed to derive scheduling context", "error", err, "error_kind", ErrorKind(err))
		return Result{}, err
	}

	today := scheduler.Midnight(s.now())
	start := today.AddDate(0, 0, -initPastDays)
	dates := consecutiveDates(start, initPastDays+initFutureDays+1)

	from := start
	existing, err := s.slots.ListSlots(ctx, persistence.SlotFilter{
		GroupID: groupID, From: &from, GeneralOnly: true,
	})
	if err != nil {
		return Result{}, err
	}
	if len(existing) > 0 {
		ok, err := s.allEligible(ctx, existing, sc.eligible)
		if err != nil {
			return Result{}, err
		}
		if ok {
			logger.Info("queue already initialized with correct categories")
			return Result{
				GroupID:            groupID,
				Decision:           DecisionSkip,
				EligibleCategories: sc.eligible,
			}, nil
		}
		logger.Info("existing queue violates current eligibility, rebuilding",
			"existing_slots", len(existing))
	}

	candidates, err := s.loadCandidates(ctx, sc, logger)
	if err != nil {
		return Result{}, err
	}

	build := scheduler.BuildQueue(scheduler.BuildInput{
		Candidates: candidates,
		Eligible:   sc.eligible,
		Weights:    sc.weights,
		Dates:      dates,
		Seed:       sc.seed,
		Logger:     logger,
	})

	pins, err := s.birthdayPins(ctx, sc, dates)
	if err != nil {
		return Result{}, err
	}
	queue, _ := scheduler.InsertPinned(build.Slots, pins, dates)

	catalog := catalogFor(candidates)
	if err := s.addBirthdayPromptsToCatalog(ctx, catalog); err != nil {
		return Result{}, err
	}

	repaired, anomalies := scheduler.Validate(queue, catalog, sc.eligible)
	logAnomalies(logger, anomalies)

	scheduled, err := s.persistQueue(ctx, groupID, from, repaired)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		GroupID:            groupID,
		Decision:           DecisionReplace,
		SlotsScheduled:     scheduled,
		Dates:              slotDates(repaired),
		EligibleCategories: sc.eligible,
		CategoryCounts:     build.CategoryCounts,
		Anomalies:          anomalies,
	}

	if sc.onboarding && scheduled > 0 {
		if err := s.groups.SetIceBreakerCompleted(ctx, groupID, today); err != nil {
			return Result{}, fmt.Errorf("failed to record ice-breaker completion: %w", err)
		}
		result.IceBreakerCompleted = true
	}

	s.decisions.InvalidateGroup(groupID)
	logger.Info("queue initialized",
		"slots_scheduled", result.SlotsScheduled,
		"eligible_categories", sc.eligible,
		"anomalies", len(anomalies))
	return result, nil
}

// Regenerate rebuilds the forward window after a preference change. Today
// and tomorrow keep their prompts; the seven dates after tomorrow are
// replaced, interleaving prompts from the group's active decks. When every
// existing forward slot is still category-eligible the call skips, which
// makes back-to-back regenerations idempotent.
func (s *QueueService) Regenerate(ctx context.Context, groupID string) (Result, error) {
	if groupID == "" {
		vErr := &ValidationError{}
		vErr.add("group_id", "required")
		return Result{}, vErr
	}

	release := s.locks.acquire(groupID)
	defer release()

	logger := serviceLogger(ctx, s.logger, "queue", "regenerate", "group_id", groupID)

	sc, err := s.buildContext(ctx, groupID, EligibilityOverrides{})
	if err != nil {
		logger.Error("failed to derive scheduling context", "error", err, "error_kind", ErrorKind(err))
		return Result{}, err
	}
	if sc.onboarding {
		return Result{}, ErrIceBreakerActive
	}

	today := scheduler.Midnight(s.now())
	cacheKey := buildDecisionCacheKey(groupID, sc.eligible, today)
	if decision, ok := s.decisions.Get(cacheKey); ok && decision == DecisionSkip {
		return Result{GroupID: groupID, Decision: DecisionSkip, EligibleCategories: sc.eligible}, nil
	}

	start := today.AddDate(0, 0, regenerateLeadDays)
	dates := consecutiveDates(start, regenerateWindowDays)

	from := start
	existing, err := s.slots.ListSlots(ctx, persistence.SlotFilter{
		GroupID: groupID, From: &from, GeneralOnly: true,
	})
	if err != nil {
		return Result{}, err
	}
	if len(existing) > 0 {
		ok, err := s.allEligible(ctx, existing, sc.eligible)
		if err != nil {
			return Result{}, err
		}
		if ok {
			s.decisions.Store(cacheKey, DecisionSkip)
			logger.Info("forward window already satisfies preferences, skipping")
			return Result{GroupID: groupID, Decision: DecisionSkip, EligibleCategories: sc.eligible}, nil
		}
	}

	used, err := s.slots.UsedPromptIDs(ctx, groupID, today.AddDate(0, 0, 1))
	if err != nil {
		return Result{}, err
	}

	candidates, err := s.loadCandidates(ctx, sc, logger)
	if err != nil {
		return Result{}, err
	}

	activeDecks, deckPrompts, err := s.loadActiveDecks(ctx, groupID)
	if err != nil {
		return Result{}, err
	}

	build := scheduler.BuildQueueWithDecks(scheduler.BuildInput{
		Candidates:    candidates,
		Eligible:      sc.eligible,
		Weights:       sc.weights,
		Dates:         dates,
		Seed:          sc.seed,
		UsedPromptIDs: used,
		ActiveDecks:   activeDecks,
		DeckPrompts:   deckPrompts,
		Logger:        logger,
	})

	catalog := catalogFor(candidates)
	for _, prompt := range deckPrompts {
		catalog[prompt.ID] = prompt
	}

	// Deck prompts are opt-in content outside category rotation; their
	// categories pass validation alongside the eligible set.
	validationEligible := sc.eligible
	for _, prompt := range deckPrompts {
		validationEligible = appendUnique(validationEligible, prompt.Category)
	}

	repaired, anomalies := scheduler.Validate(build.Slots, catalog, validationEligible)
	logAnomalies(logger, anomalies)

	scheduled, err := s.persistQueue(ctx, groupID, from, repaired)
	if err != nil {
		return Result{}, err
	}

	s.decisions.InvalidateGroup(groupID)
	logger.Info("forward window regenerated",
		"slots_scheduled", scheduled,
		"active_decks", len(activeDecks),
		"anomalies", len(anomalies))
	return Result{
		GroupID:            groupID,
		Decision:           DecisionReplace,
		SlotsScheduled:     scheduled,
		Dates:              slotDates(repaired),
		EligibleCategories: sc.eligible,
		CategoryCounts:     build.CategoryCounts,
		Anomalies:          anomalies,
	}, nil
}

// buildContext derives the per-run scheduling state for a group.
func (s *QueueService) buildContext(ctx context.Context, groupID string, overrides EligibilityOverrides) (schedulingContext, error) {
	return deriveSchedulingContext(ctx, s.groups, s.preferences, groupID, overrides)
}

// loadCandidates resolves the rotation pool. Onboarding groups walk an
// ordered chain of pools and use the first non-empty one; established
// groups draw straight from the eligible rotation.
func (s *QueueService) loadCandidates(ctx context.Context, sc schedulingContext, logger *slog.Logger) ([]scheduler.Prompt, error) {
	type poolStrategy struct {
		name string
		load func(context.Context) ([]persistence.Prompt, error)
		// excludePersonalized drops prompts with dynamic variables entirely;
		// onboarding runs are fully automated and cannot fill them in.
		excludePersonalized bool
	}

	eligibleRotation := poolStrategy{
		name: "eligible_rotation",
		load: func(ctx context.Context) ([]persistence.Prompt, error) {
			return s.prompts.ListRotationPrompts(ctx, sc.eligible)
		},
	}

	strategies := []poolStrategy{eligibleRotation}
	if sc.onboarding {
		strategies = []poolStrategy{
			{name: "ice_breaker", load: s.prompts.ListIceBreakerPrompts, excludePersonalized: true},
			{name: "standard_rotation", load: func(ctx context.Context) ([]persistence.Prompt, error) {
				return s.prompts.ListRotationPrompts(ctx, []string{scheduler.CategoryStandard})
			}},
			eligibleRotation,
		}
	}

	for _, strategy := range strategies {
		prompts, err := strategy.load(ctx)
		if err != nil {
			return nil, err
		}
		if strategy.excludePersonalized {
			kept := prompts[:0:0]
			for _, prompt := range prompts {
				if len(prompt.DynamicVariables) == 0 {
					kept = append(kept, prompt)
				}
			}
			prompts = kept
		}
		candidates := s.convertCandidates(prompts, sc)
		if len(candidates) > 0 {
			if strategy.name != "eligible_rotation" {
				logger.Info("candidate pool selected", "pool", strategy.name, "size", len(candidates))
			}
			return candidates, nil
		}
	}

	logger.Warn("no candidate prompts available", "eligible_categories", sc.eligible)
	return nil, nil
}

// convertCandidates maps catalog rows to scheduler prompts, dropping those
// whose dynamic variables the group cannot satisfy: member_name prompts
// need at least three members to be answerable by everyone.
func (s *QueueService) convertCandidates(prompts []persistence.Prompt, sc schedulingContext) []scheduler.Prompt {
	candidates := make([]scheduler.Prompt, 0, len(prompts))
	for _, prompt := range prompts {
		if requiresMemberName(prompt) && len(sc.members) < 3 {
			continue
		}
		candidates = append(candidates, toSchedulerPrompt(prompt))
	}
	return candidates
}

// birthdayPins finds member birthdays inside the window and produces the
// pinned entries: the "your birthday" prompt for the birthday member and
// the "their birthday" prompt for everyone else.
func (s *QueueService) birthdayPins(ctx context.Context, sc schedulingContext, dates []time.Time) ([]scheduler.Pinned, error) {
	birthdayPrompts, err := s.prompts.ListBirthdayPrompts(ctx)
	if err != nil {
		return nil, err
	}

	var yours, theirs *persistence.Prompt
	for i := range birthdayPrompts {
		switch *birthdayPrompts[i].BirthdayType {
		case persistence.BirthdayTypeYours:
			if yours == nil {
				yours = &birthdayPrompts[i]
			}
		case persistence.BirthdayTypeTheirs:
			if theirs == nil {
				theirs = &birthdayPrompts[i]
			}
		}
	}
	if yours == nil && theirs == nil {
		return nil, nil
	}

	var pins []scheduler.Pinned
	for _, member := range sc.members {
		if member.Birthday == nil {
			continue
		}
		for _, date := range dates {
			if member.Birthday.Month() != date.Month() || member.Birthday.Day() != date.Day() {
				continue
			}
			if yours != nil {
				pins = append(pins, scheduler.Pinned{Date: date, PromptID: yours.ID, UserID: member.ID})
			}
			if theirs != nil {
				for _, other := range sc.members {
					if other.ID == member.ID {
						continue
					}
					pins = append(pins, scheduler.Pinned{Date: date, PromptID: theirs.ID, UserID: other.ID})
				}
			}
		}
	}
	return pins, nil
}

func (s *QueueService) loadActiveDecks(ctx context.Context, groupID string) ([]scheduler.Deck, []scheduler.Prompt, error) {
	decks, err := s.decks.ListActiveDecks(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	if len(decks) == 0 {
		return nil, nil, nil
	}

	deckIDs := make([]string, len(decks))
	converted := make([]scheduler.Deck, len(decks))
	for i, deck := range decks {
		deckIDs[i] = deck.ID
		converted[i] = scheduler.Deck{ID: deck.ID, Name: deck.Name}
	}

	prompts, err := s.prompts.ListDeckPrompts(ctx, deckIDs)
	if err != nil {
		return nil, nil, err
	}
	deckPrompts := make([]scheduler.Prompt, 0, len(prompts))
	for _, prompt := range prompts {
		deckPrompts = append(deckPrompts, toSchedulerPrompt(prompt))
	}

	return converted, deckPrompts, nil
}

// allEligible reports whether every listed slot's prompt still belongs to
// an eligible category. A missing prompt counts as a violation.
func (s *QueueService) allEligible(ctx context.Context, slots []persistence.Slot, eligible []string) (bool, error) {
	eligibleSet := make(map[string]struct{}, len(eligible))
	for _, category := range eligible {
		eligibleSet[category] = struct{}{}
	}

	for _, slot := range slots {
		if slot.DeckID != nil {
			continue
		}
		prompt, err := s.prompts.GetPrompt(ctx, slot.PromptID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		if _, ok := eligibleSet[prompt.Category]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// persistQueue writes a validated queue: general slots replace the forward
// window transactionally; pinned slots are additive, tolerating ones that
// already exist.
func (s *QueueService) persistQueue(ctx context.Context, groupID string, from time.Time, queue []scheduler.Slot) (int, error) {
	now := s.now().UTC()

	var generals, pinned []persistence.Slot
	for _, slot := range queue {
		row := persistence.Slot{
			ID:        s.idGenerator(),
			GroupID:   groupID,
			PromptID:  slot.PromptID,
			Date:      slot.Date,
			UserID:    slot.UserID,
			DeckID:    slot.DeckID,
			CreatedAt: now,
		}
		if slot.General() {
			generals = append(generals, row)
		} else {
			pinned = append(pinned, row)
		}
	}

	if err := s.slots.ReplaceGeneralSlots(ctx, groupID, from, generals); err != nil {
		return 0, err
	}

	scheduled := len(generals)
	for _, row := range pinned {
		if err := s.slots.InsertSlots(ctx, []persistence.Slot{row}); err != nil {
			if errors.Is(err, persistence.ErrDuplicate) {
				continue
			}
			return scheduled, err
		}
		scheduled++
	}
	return scheduled, nil
}

func (s *QueueService) addBirthdayPromptsToCatalog(ctx context.Context, catalog map[string]scheduler.Prompt) error {
	prompts, err := s.prompts.ListBirthdayPrompts(ctx)
	if err != nil {
		return err
	}
	for _, prompt := range prompts {
		catalog[prompt.ID] = toSchedulerPrompt(prompt)
	}
	return nil
}

func toSchedulerPrompt(prompt persistence.Prompt) scheduler.Prompt {
	return scheduler.Prompt{
		ID:               prompt.ID,
		Category:         prompt.Category,
		Question:         prompt.Question,
		BirthdayType:     prompt.BirthdayType,
		DeckID:           prompt.DeckID,
		DeckOrder:        prompt.DeckOrder,
		DynamicVariables: prompt.DynamicVariables,
	}
}

func requiresMemberName(prompt persistence.Prompt) bool {
	for _, variable := range prompt.DynamicVariables {
		if variable == "member_name" {
			return true
		}
	}
	return false
}

func catalogFor(candidates []scheduler.Prompt) map[string]scheduler.Prompt {
	catalog := make(map[string]scheduler.Prompt, len(candidates))
	for _, prompt := range candidates {
		catalog[prompt.ID] = prompt
	}
	return catalog
}

func consecutiveDates(start time.Time, days int) []time.Time {
	dates := make([]time.Time, days)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

func slotDates(queue []scheduler.Slot) []time.Time {
	dates := make([]time.Time, 0, len(queue))
	for _, slot := range queue {
		if slot.General() {
			dates = append(dates, slot.Date)
		}
	}
	return dates
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}
	return append(values, value)
}

func logAnomalies(logger *slog.Logger, anomalies []scheduler.Anomaly) {
	for _, anomaly := range anomalies {
		logger.Error("queue integrity violation repaired",
			"kind", string(anomaly.Kind),
			"date", anomaly.Date.Format(time.DateOnly),
			"prompt_id", anomaly.PromptID,
			"category", anomaly.Category)
	}
}
