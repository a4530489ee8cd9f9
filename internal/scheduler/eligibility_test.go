package scheduler

import (
	"reflect"
	"testing"
)

func TestEligibleCategories_FamilyNeverGetsNSFW(t *testing.T) {
	t.Parallel()

	got := EligibleCategories(GroupTypeFamily, true, false, nil)

	want := []string{CategoryStandard}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestEligibleCategories_DisableWinsOverMemorialContent(t *testing.T) {
	t.Parallel()

	disabled := map[string]struct{}{CategoryRemembering: {}}
	got := EligibleCategories(GroupTypeFriends, true, true, disabled)

	want := []string{CategoryStandard, CategoryNSFW}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestEligibleCategories_AllDisabledIsEmpty(t *testing.T) {
	t.Parallel()

	disabled := map[string]struct{}{
		CategoryStandard:    {},
		CategoryNSFW:        {},
		CategoryRemembering: {},
	}
	got := EligibleCategories(GroupTypeFriends, true, true, disabled)

	if len(got) != 0 {
		t.Fatalf("expected no eligible categories, got %v", got)
	}
}

func TestEligibleCategories_FriendsWithEverything(t *testing.T) {
	t.Parallel()

	got := EligibleCategories(GroupTypeFriends, true, true, nil)

	want := []string{CategoryStandard, CategoryNSFW, CategoryRemembering}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestEligibleCategories_NSFWRequiresFlag(t *testing.T) {
	t.Parallel()

	got := EligibleCategories(GroupTypeFriends, false, false, nil)

	want := []string{CategoryStandard}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCategoryWeights(t *testing.T) {
	t.Parallel()

	preferences := []CategoryPreference{
		{Category: CategoryStandard, Preference: PreferenceWeighted, Weight: 2.5},
		{Category: CategoryNSFW, Preference: PreferenceNone, Weight: 3.0},
		{Category: CategoryRemembering, Preference: PreferenceDefault},
	}

	weights := CategoryWeights(preferences)

	if weights[CategoryStandard] != 2.5 {
		t.Errorf("expected weight 2.5 for Standard, got %v", weights[CategoryStandard])
	}
	if weights[CategoryNSFW] != 0 {
		t.Errorf("expected weight 0 for disabled category, got %v", weights[CategoryNSFW])
	}
	if weights[CategoryRemembering] != 1.0 {
		t.Errorf("expected default weight 1.0, got %v", weights[CategoryRemembering])
	}
}

func TestDisabledCategories(t *testing.T) {
	t.Parallel()

	preferences := []CategoryPreference{
		{Category: CategoryStandard, Preference: PreferenceDefault},
		{Category: CategoryNSFW, Preference: PreferenceNone},
	}

	disabled := DisabledCategories(preferences)

	if _, ok := disabled[CategoryNSFW]; !ok {
		t.Error("expected Edgy/NSFW to be disabled")
	}
	if _, ok := disabled[CategoryStandard]; ok {
		t.Error("did not expect Standard to be disabled")
	}
}
