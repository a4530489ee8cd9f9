package sqlite

import (
	"context"

	"github.com/example/prompt-scheduler/internal/persistence"
)

// PreferenceRepository implements persistence.PreferenceRepository using SQLite.
type PreferenceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPreferenceRepository creates a new SQLite preference repository.
func NewPreferenceRepository(pool *ConnectionPool) *PreferenceRepository {
	return &PreferenceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

func (r *PreferenceRepository) UpsertPreference(ctx context.Context, pref persistence.CategoryPreference) error {
	if pref.GroupID == "" || pref.Category == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO category_preferences (group_id, category, preference, weight)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (group_id, category)
		DO UPDATE SET preference = excluded.preference, weight = excluded.weight
	`, pref.GroupID, pref.Category, pref.Preference, pref.Weight)
	return r.mapper.MapError(err)
}

// ListPreferences returns a group's overrides ordered by category.
func (r *PreferenceRepository) ListPreferences(ctx context.Context, groupID string) ([]persistence.CategoryPreference, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT group_id, category, preference, weight
		FROM category_preferences WHERE group_id = ? ORDER BY category
	`, groupID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var prefs []persistence.CategoryPreference
	for rows.Next() {
		var pref persistence.CategoryPreference
		if err := rows.Scan(&pref.GroupID, &pref.Category, &pref.Preference, &pref.Weight); err != nil {
			return nil, r.mapper.MapError(err)
		}
		prefs = append(prefs, pref)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return prefs, nil
}
