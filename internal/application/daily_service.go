package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/prompt-scheduler/internal/persistence"
	"github.com/example/prompt-scheduler/internal/scheduler"
)

const defaultDailyWorkers = 4

// dayHashEpoch anchors the deterministic day-index fallback so every
// process computes the same index for the same date.
var dayHashEpoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// DailyService runs the once-a-day pass over every group: it pins birthday
// prompts landing today, repairs stale slots, and makes sure each group has
// a prompt for the day even when its queue ran dry. Groups are processed
// concurrently with a bounded worker pool; one group's failure never stops
// the pass.
type DailyService struct {
	groups      persistence.GroupRepository
	prompts     persistence.PromptCatalog
	preferences persistence.PreferenceRepository
	slots       persistence.SlotRepository
	idGenerator func() string
	now         func() time.Time
	workers     int
	logger      *slog.Logger
	locks       *groupLocks
}

// NewDailyService wires dependencies for the daily pass. workers bounds the
// number of groups processed concurrently; zero or negative selects the
// default.
func NewDailyService(groups persistence.GroupRepository, prompts persistence.PromptCatalog, preferences persistence.PreferenceRepository, slots persistence.SlotRepository, idGenerator func() string, now func() time.Time, workers int, logger *slog.Logger) *DailyService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if workers <= 0 {
		workers = defaultDailyWorkers
	}
	return &DailyService{
		groups:      groups,
		prompts:     prompts,
		preferences: preferences,
		slots:       slots,
		idGenerator: idGenerator,
		now:         now,
		workers:     workers,
		logger:      defaultLogger(logger),
		locks:       newGroupLocks(),
	}
}

// RunDaily executes one pass for the given date. A zero date means today.
func (s *DailyService) RunDaily(ctx context.Context, date time.Time) (DailySummary, error) {
	if date.IsZero() {
		date = s.now()
	}
	day := scheduler.Midnight(date)

	logger := serviceLogger(ctx, s.logger, "daily", "run", "date", day.Format(time.DateOnly))

	groups, err := s.groups.ListGroups(ctx)
	if err != nil {
		logger.Error("failed to list groups", "error", err, "error_kind", ErrorKind(err))
		return DailySummary{}, err
	}

	summary := DailySummary{Date: day, Groups: len(groups)}
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers)
	for _, group := range groups {
		group := group
		eg.Go(func() error {
			outcome, err := s.runGroup(egCtx, group.ID, day)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Error("daily pass failed for group",
					"group_id", group.ID, "error", err, "error_kind", ErrorKind(err))
				summary.Failures++
				return nil
			}
			summary.Outcomes = append(summary.Outcomes, outcome)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return summary, err
	}

	logger.Info("daily pass complete",
		"groups", summary.Groups,
		"failures", summary.Failures,
		"scheduled", len(summary.Outcomes))
	return summary, nil
}

// runGroup handles one group for one day.
func (s *DailyService) runGroup(ctx context.Context, groupID string, day time.Time) (DailyOutcome, error) {
	release := s.locks.acquire(groupID)
	defer release()

	sc, err := deriveSchedulingContext(ctx, s.groups, s.preferences, groupID, EligibilityOverrides{})
	if err != nil {
		return DailyOutcome{}, err
	}

	outcome := DailyOutcome{GroupID: groupID}

	pinnedCount, err := s.pinBirthdays(ctx, sc, day)
	if err != nil {
		return DailyOutcome{}, err
	}
	outcome.BirthdaysPinned = pinnedCount

	// Queue-first: an existing slot for today wins, unless it has become
	// invalid since it was scheduled.
	existing, err := s.todaysGeneralSlot(ctx, groupID, day)
	if err != nil {
		return DailyOutcome{}, err
	}
	if existing != nil {
		prompt, err := s.prompts.GetPrompt(ctx, existing.PromptID)
		switch {
		case err != nil && errors.Is(err, persistence.ErrNotFound):
			// Prompt removed from the catalog; replace the slot.
			if err := s.slots.DeleteSlot(ctx, existing.ID); err != nil {
				return DailyOutcome{}, err
			}
		case err != nil:
			return DailyOutcome{}, err
		case prompt.Category == scheduler.CategoryRemembering && len(sc.memorials) == 0:
			// The group no longer has memorials; a Remembering prompt
			// today would address nobody.
			if err := s.slots.DeleteSlot(ctx, existing.ID); err != nil {
				return DailyOutcome{}, err
			}
		default:
			outcome.PromptID = prompt.ID
			outcome.Question = s.personalize(prompt, sc)
			return outcome, nil
		}
	}

	prompt, err := s.selectForDay(ctx, sc, day)
	if err != nil {
		return DailyOutcome{}, err
	}
	if prompt == nil {
		return outcome, nil
	}

	slot := persistence.Slot{
		ID:        s.idGenerator(),
		GroupID:   groupID,
		PromptID:  prompt.ID,
		Date:      day,
		CreatedAt: s.now().UTC(),
	}
	if err := s.slots.InsertSlots(ctx, []persistence.Slot{slot}); err != nil {
		if !errors.Is(err, persistence.ErrDuplicate) {
			return DailyOutcome{}, err
		}
		// A concurrent writer filled today first; report its slot.
		current, err := s.todaysGeneralSlot(ctx, groupID, day)
		if err != nil || current == nil {
			return outcome, err
		}
		winner, err := s.prompts.GetPrompt(ctx, current.PromptID)
		if err != nil {
			return DailyOutcome{}, err
		}
		outcome.PromptID = winner.ID
		outcome.Question = s.personalize(winner, sc)
		return outcome, nil
	}

	outcome.PromptID = prompt.ID
	outcome.Question = s.personalize(*prompt, sc)
	outcome.Scheduled = true
	return outcome, nil
}

// selectForDay picks a prompt deterministically when the queue has nothing
// for today. The index walks a weighted pool of not-yet-used eligible
// prompts keyed by days since a fixed epoch plus a per-group offset, so
// groups that share a catalog still diverge.
func (s *DailyService) selectForDay(ctx context.Context, sc schedulingContext, day time.Time) (*persistence.Prompt, error) {
	rotation, err := s.prompts.ListRotationPrompts(ctx, sc.eligible)
	if err != nil {
		return nil, err
	}
	// Prompts queued for any date count as used, including future slots;
	// filling today with tomorrow's prompt would surface it twice in a row.
	used, err := s.slots.UsedPromptIDs(ctx, sc.groupID, time.Time{})
	if err != nil {
		return nil, err
	}

	fresh := make([]persistence.Prompt, 0, len(rotation))
	all := make([]persistence.Prompt, 0, len(rotation))
	for _, prompt := range rotation {
		if requiresMemberName(prompt) && len(sc.members) < 3 {
			continue
		}
		all = append(all, prompt)
		if _, seen := used[prompt.ID]; !seen {
			fresh = append(fresh, prompt)
		}
	}
	candidates := fresh
	if len(candidates) == 0 {
		// Catalog exhausted for this group; cycle through it again.
		candidates = all
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	byID := make(map[string]persistence.Prompt, len(candidates))
	converted := make([]scheduler.Prompt, 0, len(candidates))
	for _, prompt := range candidates {
		byID[prompt.ID] = prompt
		converted = append(converted, toSchedulerPrompt(prompt))
	}

	pool := scheduler.WeightedPool(converted, sc.weights)
	if len(pool) == 0 {
		return nil, nil
	}
	dayIndex := int(day.Sub(dayHashEpoch).Hours()/24) + len(sc.groupID)
	if dayIndex < 0 {
		dayIndex = -dayIndex
	}
	chosen := byID[pool[dayIndex%len(pool)].ID]
	return &chosen, nil
}

// pinBirthdays inserts today's birthday slots, tolerating ones already
// pinned by queue initialization.
func (s *DailyService) pinBirthdays(ctx context.Context, sc schedulingContext, day time.Time) (int, error) {
	var birthdayMembers []persistence.Member
	for _, member := range sc.members {
		if member.Birthday == nil {
			continue
		}
		if member.Birthday.Month() == day.Month() && member.Birthday.Day() == day.Day() {
			birthdayMembers = append(birthdayMembers, member)
		}
	}
	if len(birthdayMembers) == 0 {
		return 0, nil
	}

	birthdayPrompts, err := s.prompts.ListBirthdayPrompts(ctx)
	if err != nil {
		return 0, err
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

	pinned := 0
	insert := func(promptID, userID string) error {
		slot := persistence.Slot{
			ID:        s.idGenerator(),
			GroupID:   sc.groupID,
			PromptID:  promptID,
			Date:      day,
			UserID:    &userID,
			CreatedAt: s.now().UTC(),
		}
		if err := s.slots.InsertSlots(ctx, []persistence.Slot{slot}); err != nil {
			if errors.Is(err, persistence.ErrDuplicate) {
				return nil
			}
			return err
		}
		pinned++
		return nil
	}

	for _, member := range birthdayMembers {
		if yours != nil {
			if err := insert(yours.ID, member.ID); err != nil {
				return pinned, err
			}
		}
		if theirs != nil {
			for _, other := range sc.members {
				if other.ID == member.ID {
					continue
				}
				if err := insert(theirs.ID, other.ID); err != nil {
					return pinned, err
				}
			}
		}
	}
	return pinned, nil
}

func (s *DailyService) todaysGeneralSlot(ctx context.Context, groupID string, day time.Time) (*persistence.Slot, error) {
	from, to := day, day
	slots, err := s.slots.ListSlots(ctx, persistence.SlotFilter{
		GroupID: groupID, From: &from, To: &to, GeneralOnly: true,
	})
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, nil
	}
	slot := slots[0]
	return &slot, nil
}

// personalize renders the delivery-ready question text for a prompt.
func (s *DailyService) personalize(prompt persistence.Prompt, sc schedulingContext) string {
	if prompt.Category == scheduler.CategoryRemembering && len(sc.memorials) > 0 {
		return PersonalizeMemorialPrompt(prompt.Question, sc.memorials[0].Name)
	}
	return prompt.Question
}
