// Package memory provides an in-memory implementation of the persistence
// repositories. It backs the test suite and the default runner; semantics
// mirror the sqlite implementation, including uniqueness and foreign key
// checks.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/prompt-scheduler/internal/persistence"
)

// Storage holds every repository's state behind one lock. All returned
// records are clones; callers can never mutate stored state through them.
type Storage struct {
	mu          sync.RWMutex
	groups      map[string]persistence.Group
	members     map[string]persistence.Member
	memorials   map[string]persistence.Memorial
	prompts     map[string]persistence.Prompt
	preferences map[string]map[string]persistence.CategoryPreference
	decks       map[string]persistence.Deck
	activeDecks map[string]map[string]struct{}
	slots       map[string]persistence.Slot
}

// Open returns an empty Storage.
func Open() *Storage {
	return &Storage{
		groups:      make(map[string]persistence.Group),
		members:     make(map[string]persistence.Member),
		memorials:   make(map[string]persistence.Memorial),
		prompts:     make(map[string]persistence.Prompt),
		preferences: make(map[string]map[string]persistence.CategoryPreference),
		decks:       make(map[string]persistence.Deck),
		activeDecks: make(map[string]map[string]struct{}),
		slots:       make(map[string]persistence.Slot),
	}
}

// Close releases resources held by the storage. No-op for the in-memory
// implementation.
func (s *Storage) Close() error {
	return nil
}

// --- GroupRepository implementation ---

func (s *Storage) CreateGroup(ctx context.Context, group persistence.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if group.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.groups[group.ID]; ok {
		return persistence.ErrDuplicate
	}

	s.groups[group.ID] = cloneGroup(group)
	return nil
}

func (s *Storage) GetGroup(ctx context.Context, id string) (persistence.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	group, ok := s.groups[id]
	if !ok {
		return persistence.Group{}, persistence.ErrNotFound
	}

	return cloneGroup(group), nil
}

// ListGroups returns all groups ordered by CreatedAt ascending.
func (s *Storage) ListGroups(ctx context.Context) ([]persistence.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]persistence.Group, 0, len(s.groups))
	for _, group := range s.groups {
		groups = append(groups, cloneGroup(group))
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].CreatedAt.Equal(groups[j].CreatedAt) {
			return groups[i].ID < groups[j].ID
		}
		return groups[i].CreatedAt.Before(groups[j].CreatedAt)
	})

	return groups, nil
}

func (s *Storage) SetIceBreakerCompleted(ctx context.Context, groupID string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[groupID]
	if !ok {
		return persistence.ErrNotFound
	}

	completed := date
	group.IceBreakerCompletedDate = &completed
	s.groups[groupID] = group
	return nil
}

func (s *Storage) AddMember(ctx context.Context, member persistence.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if member.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.groups[member.GroupID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	if _, ok := s.members[member.ID]; ok {
		return persistence.ErrDuplicate
	}

	s.members[member.ID] = cloneMember(member)
	return nil
}

// ListMembers returns a group's members ordered by name.
func (s *Storage) ListMembers(ctx context.Context, groupID string) ([]persistence.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]persistence.Member, 0)
	for _, member := range s.members {
		if member.GroupID != groupID {
			continue
		}
		members = append(members, cloneMember(member))
	}

	sort.Slice(members, func(i, j int) bool {
		if members[i].Name == members[j].Name {
			return members[i].ID < members[j].ID
		}
		return members[i].Name < members[j].Name
	})

	return members, nil
}

func (s *Storage) AddMemorial(ctx context.Context, memorial persistence.Memorial) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if memorial.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.groups[memorial.GroupID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	if _, ok := s.memorials[memorial.ID]; ok {
		return persistence.ErrDuplicate
	}

	s.memorials[memorial.ID] = memorial
	return nil
}

func (s *Storage) ListMemorials(ctx context.Context, groupID string) ([]persistence.Memorial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	memorials := make([]persistence.Memorial, 0)
	for _, memorial := range s.memorials {
		if memorial.GroupID != groupID {
			continue
		}
		memorials = append(memorials, memorial)
	}

	sort.Slice(memorials, func(i, j int) bool {
		return memorials[i].ID < memorials[j].ID
	})

	return memorials, nil
}

// --- PromptCatalog implementation ---

func (s *Storage) AddPrompt(ctx context.Context, prompt persistence.Prompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prompt.ID == "" || prompt.Category == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.prompts[prompt.ID]; ok {
		return persistence.ErrDuplicate
	}
	if prompt.DeckID != nil {
		if _, ok := s.decks[*prompt.DeckID]; !ok {
			return persistence.ErrForeignKeyViolation
		}
	}

	s.prompts[prompt.ID] = clonePrompt(prompt)
	return nil
}

func (s *Storage) GetPrompt(ctx context.Context, id string) (persistence.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prompt, ok := s.prompts[id]
	if !ok {
		return persistence.Prompt{}, persistence.ErrNotFound
	}

	return clonePrompt(prompt), nil
}

// ListRotationPrompts returns rotation-eligible prompts in the given
// categories, ordered by id so callers see a stable sequence.
func (s *Storage) ListRotationPrompts(ctx context.Context, categories []string) ([]persistence.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(categories))
	for _, category := range categories {
		wanted[category] = struct{}{}
	}

	prompts := make([]persistence.Prompt, 0)
	for _, prompt := range s.prompts {
		if prompt.BirthdayType != nil || prompt.DeckID != nil {
			continue
		}
		if _, ok := wanted[prompt.Category]; !ok {
			continue
		}
		prompts = append(prompts, clonePrompt(prompt))
	}

	sortPromptsByID(prompts)
	return prompts, nil
}

func (s *Storage) ListBirthdayPrompts(ctx context.Context) ([]persistence.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prompts := make([]persistence.Prompt, 0)
	for _, prompt := range s.prompts {
		if prompt.BirthdayType == nil {
			continue
		}
		prompts = append(prompts, clonePrompt(prompt))
	}

	sortPromptsByID(prompts)
	return prompts, nil
}

// ListDeckPrompts returns prompts of the given decks ordered by deck id
// then deck order.
func (s *Storage) ListDeckPrompts(ctx context.Context, deckIDs []string) ([]persistence.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(deckIDs))
	for _, id := range deckIDs {
		wanted[id] = struct{}{}
	}

	prompts := make([]persistence.Prompt, 0)
	for _, prompt := range s.prompts {
		if prompt.DeckID == nil {
			continue
		}
		if _, ok := wanted[*prompt.DeckID]; !ok {
			continue
		}
		prompts = append(prompts, clonePrompt(prompt))
	}

	sort.Slice(prompts, func(i, j int) bool {
		if *prompts[i].DeckID == *prompts[j].DeckID {
			if prompts[i].DeckOrder == prompts[j].DeckOrder {
				return prompts[i].ID < prompts[j].ID
			}
			return prompts[i].DeckOrder < prompts[j].DeckOrder
		}
		return *prompts[i].DeckID < *prompts[j].DeckID
	})

	return prompts, nil
}

func (s *Storage) ListIceBreakerPrompts(ctx context.Context) ([]persistence.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prompts := make([]persistence.Prompt, 0)
	for _, prompt := range s.prompts {
		if !prompt.IceBreaker {
			continue
		}
		prompts = append(prompts, clonePrompt(prompt))
	}

	sortPromptsByID(prompts)
	return prompts, nil
}

// --- PreferenceRepository implementation ---

func (s *Storage) UpsertPreference(ctx context.Context, pref persistence.CategoryPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pref.GroupID == "" || pref.Category == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.groups[pref.GroupID]; !ok {
		return persistence.ErrForeignKeyViolation
	}

	byCategory, ok := s.preferences[pref.GroupID]
	if !ok {
		byCategory = make(map[string]persistence.CategoryPreference)
		s.preferences[pref.GroupID] = byCategory
	}
	byCategory[pref.Category] = pref
	return nil
}

// ListPreferences returns a group's overrides ordered by category.
func (s *Storage) ListPreferences(ctx context.Context, groupID string) ([]persistence.CategoryPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefs := make([]persistence.CategoryPreference, 0)
	for _, pref := range s.preferences[groupID] {
		prefs = append(prefs, pref)
	}

	sort.Slice(prefs, func(i, j int) bool {
		return prefs[i].Category < prefs[j].Category
	})

	return prefs, nil
}

// --- DeckRepository implementation ---

func (s *Storage) AddDeck(ctx context.Context, deck persistence.Deck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deck.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.decks[deck.ID]; ok {
		return persistence.ErrDuplicate
	}

	s.decks[deck.ID] = deck
	return nil
}

func (s *Storage) ActivateDeck(ctx context.Context, groupID, deckID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	if _, ok := s.decks[deckID]; !ok {
		return persistence.ErrForeignKeyViolation
	}

	active, ok := s.activeDecks[groupID]
	if !ok {
		active = make(map[string]struct{})
		s.activeDecks[groupID] = active
	}
	active[deckID] = struct{}{}
	return nil
}

func (s *Storage) DeactivateDeck(ctx context.Context, groupID, deckID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, ok := s.activeDecks[groupID]
	if !ok {
		return persistence.ErrNotFound
	}
	if _, ok := active[deckID]; !ok {
		return persistence.ErrNotFound
	}

	delete(active, deckID)
	return nil
}

// ListActiveDecks returns a group's active decks ordered by name.
func (s *Storage) ListActiveDecks(ctx context.Context, groupID string) ([]persistence.Deck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	decks := make([]persistence.Deck, 0)
	for deckID := range s.activeDecks[groupID] {
		deck, ok := s.decks[deckID]
		if !ok {
			continue
		}
		decks = append(decks, deck)
	}

	sort.Slice(decks, func(i, j int) bool {
		if decks[i].Name == decks[j].Name {
			return decks[i].ID < decks[j].ID
		}
		return decks[i].Name < decks[j].Name
	})

	return decks, nil
}

// --- SlotRepository implementation ---

func (s *Storage) InsertSlots(ctx context.Context, slots []persistence.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertSlotsLocked(slots)
}

func (s *Storage) insertSlotsLocked(slots []persistence.Slot) error {
	for _, slot := range slots {
		if slot.ID == "" || slot.GroupID == "" || slot.PromptID == "" {
			return persistence.ErrConstraintViolation
		}
		if _, ok := s.groups[slot.GroupID]; !ok {
			return persistence.ErrForeignKeyViolation
		}
		if _, ok := s.prompts[slot.PromptID]; !ok {
			return persistence.ErrForeignKeyViolation
		}
		if _, ok := s.slots[slot.ID]; ok {
			return persistence.ErrDuplicate
		}
		if s.slotDateTakenLocked(slot) {
			return persistence.ErrDuplicate
		}
	}

	for _, slot := range slots {
		s.slots[slot.ID] = cloneSlot(slot)
	}
	return nil
}

// slotDateTakenLocked enforces the queue uniqueness rules: one general slot
// per (group, date), one pinned slot per (group, date, user).
func (s *Storage) slotDateTakenLocked(candidate persistence.Slot) bool {
	for _, slot := range s.slots {
		if slot.GroupID != candidate.GroupID || !sameDate(slot.Date, candidate.Date) {
			continue
		}
		if slot.UserID == nil && candidate.UserID == nil {
			return true
		}
		if slot.UserID != nil && candidate.UserID != nil && *slot.UserID == *candidate.UserID {
			return true
		}
	}
	return false
}

// ListSlots returns slots matching the filter ordered by date ascending.
func (s *Storage) ListSlots(ctx context.Context, filter persistence.SlotFilter) ([]persistence.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := make([]persistence.Slot, 0)
	for _, slot := range s.slots {
		if !matchesSlotFilter(slot, filter) {
			continue
		}
		slots = append(slots, cloneSlot(slot))
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Date.Equal(slots[j].Date) {
			return slots[i].ID < slots[j].ID
		}
		return slots[i].Date.Before(slots[j].Date)
	})

	return slots, nil
}

func (s *Storage) DeleteSlot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slots[id]; !ok {
		return persistence.ErrNotFound
	}

	delete(s.slots, id)
	return nil
}

// ReplaceGeneralSlots atomically swaps the forward window: general slots of
// the group dated on or after the boundary are removed, then the
// replacements inserted. On any insert failure the deletion is rolled back.
func (s *Storage) ReplaceGeneralSlots(ctx context.Context, groupID string, from time.Time, slots []persistence.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]persistence.Slot)
	for id, slot := range s.slots {
		if slot.GroupID != groupID || slot.UserID != nil {
			continue
		}
		if slot.Date.Before(midnight(from)) {
			continue
		}
		removed[id] = slot
		delete(s.slots, id)
	}

	if err := s.insertSlotsLocked(slots); err != nil {
		for id, slot := range removed {
			s.slots[id] = slot
		}
		return err
	}

	return nil
}

func (s *Storage) UsedPromptIDs(ctx context.Context, groupID string, through time.Time) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	used := make(map[string]struct{})
	bounded := !through.IsZero()
	boundary := midnight(through)
	for _, slot := range s.slots {
		if slot.GroupID != groupID || slot.UserID != nil {
			continue
		}
		if bounded && slot.Date.After(boundary) {
			continue
		}
		used[slot.PromptID] = struct{}{}
	}

	return used, nil
}

// --- Helpers ---

func cloneGroup(group persistence.Group) persistence.Group {
	if group.IceBreakerCompletedDate != nil {
		date := *group.IceBreakerCompletedDate
		group.IceBreakerCompletedDate = &date
	}
	return group
}

func cloneMember(member persistence.Member) persistence.Member {
	if member.Birthday != nil {
		birthday := *member.Birthday
		member.Birthday = &birthday
	}
	return member
}

func clonePrompt(prompt persistence.Prompt) persistence.Prompt {
	if prompt.BirthdayType != nil {
		birthdayType := *prompt.BirthdayType
		prompt.BirthdayType = &birthdayType
	}
	if prompt.DeckID != nil {
		deckID := *prompt.DeckID
		prompt.DeckID = &deckID
	}
	variables := make([]string, len(prompt.DynamicVariables))
	copy(variables, prompt.DynamicVariables)
	prompt.DynamicVariables = variables
	return prompt
}

func cloneSlot(slot persistence.Slot) persistence.Slot {
	if slot.UserID != nil {
		userID := *slot.UserID
		slot.UserID = &userID
	}
	if slot.DeckID != nil {
		deckID := *slot.DeckID
		slot.DeckID = &deckID
	}
	return slot
}

func sortPromptsByID(prompts []persistence.Prompt) {
	sort.Slice(prompts, func(i, j int) bool {
		return prompts[i].ID < prompts[j].ID
	})
}

func matchesSlotFilter(slot persistence.Slot, filter persistence.SlotFilter) bool {
	if filter.GroupID != "" && slot.GroupID != filter.GroupID {
		return false
	}
	if filter.GeneralOnly && slot.UserID != nil {
		return false
	}
	if filter.From != nil && slot.Date.Before(midnight(*filter.From)) {
		return false
	}
	if filter.To != nil && slot.Date.After(midnight(*filter.To)) {
		return false
	}
	return true
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
