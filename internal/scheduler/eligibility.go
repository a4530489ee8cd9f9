package scheduler

// EligibleCategories computes the set of prompt categories allowed for a
// group. Rules, in order:
//
//   - Standard is eligible unless explicitly disabled.
//   - Edgy/NSFW is eligible only for friends groups with the NSFW flag on,
//     and never for family groups regardless of the flag.
//   - Remembering is eligible only when the group has memorial content.
//
// An explicit disable always wins. The returned slice preserves the fixed
// construction order above; downstream tie-breaks depend on it. An empty
// result means no category is available and the caller must abort the run.
func EligibleCategories(groupType GroupType, nsfwEnabled, hasMemorialContent bool, disabled map[string]struct{}) []string {
	isDisabled := func(category string) bool {
		_, ok := disabled[category]
		return ok
	}

	eligible := make([]string, 0, 3)

	if !isDisabled(CategoryStandard) {
		eligible = append(eligible, CategoryStandard)
	}

	if groupType == GroupTypeFriends && nsfwEnabled && !isDisabled(CategoryNSFW) {
		eligible = append(eligible, CategoryNSFW)
	}

	if hasMemorialContent && !isDisabled(CategoryRemembering) {
		eligible = append(eligible, CategoryRemembering)
	}

	return eligible
}

// CategoryWeights folds per-category preference records into a weight map.
// Disabled categories map to weight zero; they are expected to be excluded
// from the eligible set before selection ever consults weights.
func CategoryWeights(preferences []CategoryPreference) map[string]float64 {
	weights := make(map[string]float64, len(preferences))
	for _, pref := range preferences {
		if pref.Preference == PreferenceNone {
			weights[pref.Category] = 0
			continue
		}
		weight := pref.Weight
		if weight == 0 {
			weight = 1.0
		}
		weights[pref.Category] = weight
	}
	return weights
}

// DisabledCategories extracts the set of categories a group has fully
// disabled via a "none" preference.
func DisabledCategories(preferences []CategoryPreference) map[string]struct{} {
	disabled := make(map[string]struct{})
	for _, pref := range preferences {
		if pref.Preference == PreferenceNone {
			disabled[pref.Category] = struct{}{}
		}
	}
	return disabled
}

// PreferenceLevel is the closed set of per-category preference states a
// group admin can choose. "none" fully disables a category; the weight is
// meaningful only for the other levels.
type PreferenceLevel string

const (
	PreferenceNone     PreferenceLevel = "none"
	PreferenceDefault  PreferenceLevel = "default"
	PreferenceWeighted PreferenceLevel = "weighted"
)

// CategoryPreference is a per-group category override.
type CategoryPreference struct {
	Category   string
	Preference PreferenceLevel
	Weight     float64
}
