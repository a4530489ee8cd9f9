package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/prompt-scheduler/internal/persistence"
	"github.com/example/prompt-scheduler/internal/scheduler"
)

// EligibilityOverrides lets a caller assert the NSFW and memorial-content
// flags at invocation time. Non-nil values win over the derived state, which
// covers content created in the same request that the reads here would not
// see yet. The zero value applies no overrides.
type EligibilityOverrides struct {
	NSFWEnabled  *bool
	HasMemorials *bool
}

// deriveSchedulingContext loads a group's current state and computes the
// derived scheduling inputs every queue operation starts from. The eligible
// set is fatal when empty; scheduling cannot proceed without at least one
// category.
func deriveSchedulingContext(ctx context.Context, groups persistence.GroupRepository, preferences persistence.PreferenceRepository, groupID string, overrides EligibilityOverrides) (schedulingContext, error) {
	group, err := groups.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return schedulingContext{}, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
		}
		return schedulingContext{}, err
	}

	members, err := groups.ListMembers(ctx, groupID)
	if err != nil {
		return schedulingContext{}, err
	}
	memorials, err := groups.ListMemorials(ctx, groupID)
	if err != nil {
		return schedulingContext{}, err
	}
	prefs, err := preferences.ListPreferences(ctx, groupID)
	if err != nil {
		return schedulingContext{}, err
	}

	converted := make([]scheduler.CategoryPreference, 0, len(prefs))
	nsfwEnabled := false
	for _, pref := range prefs {
		converted = append(converted, scheduler.CategoryPreference{
			Category:   pref.Category,
			Preference: scheduler.PreferenceLevel(pref.Preference),
			Weight:     pref.Weight,
		})
		if pref.Category == scheduler.CategoryNSFW && pref.Preference != string(scheduler.PreferenceNone) {
			nsfwEnabled = true
		}
	}

	if overrides.NSFWEnabled != nil {
		nsfwEnabled = *overrides.NSFWEnabled
	}
	hasMemorials := len(memorials) > 0
	if overrides.HasMemorials != nil {
		hasMemorials = *overrides.HasMemorials
	}

	groupType := scheduler.GroupType(group.Type)
	eligible := scheduler.EligibleCategories(groupType, nsfwEnabled, hasMemorials,
		scheduler.DisabledCategories(converted))
	if len(eligible) == 0 {
		return schedulingContext{}, fmt.Errorf("group %s: %w", groupID, ErrNoEligibleCategories)
	}

	return schedulingContext{
		groupID:    group.ID,
		groupType:  groupType,
		createdAt:  group.CreatedAt,
		seed:       group.ID + "-" + group.CreatedAt.UTC().Format(time.RFC3339),
		eligible:   eligible,
		weights:    scheduler.CategoryWeights(converted),
		members:    members,
		memorials:  memorials,
		onboarding: group.IceBreakerCompletedDate == nil,
	}, nil
}
