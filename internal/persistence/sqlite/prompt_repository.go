package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/prompt-scheduler/internal/persistence"
)

// PromptRepository implements persistence.PromptCatalog using SQLite.
type PromptRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPromptRepository creates a new SQLite prompt catalog.
func NewPromptRepository(pool *ConnectionPool) *PromptRepository {
	return &PromptRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const promptColumns = `id, category, question, birthday_type, deck_id, deck_order, ice_breaker, dynamic_variables`

func (r *PromptRepository) AddPrompt(ctx context.Context, prompt persistence.Prompt) error {
	if prompt.ID == "" || prompt.Category == "" {
		return persistence.ErrConstraintViolation
	}

	var birthdayType, deckID sql.NullString
	if prompt.BirthdayType != nil {
		birthdayType.String = *prompt.BirthdayType
		birthdayType.Valid = true
	}
	if prompt.DeckID != nil {
		deckID.String = *prompt.DeckID
		deckID.Valid = true
	}

	iceBreaker := 0
	if prompt.IceBreaker {
		iceBreaker = 1
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO prompts (`+promptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, prompt.ID, prompt.Category, prompt.Question, birthdayType, deckID,
		prompt.DeckOrder, iceBreaker, strings.Join(prompt.DynamicVariables, ","))
	return r.mapper.MapError(err)
}

func (r *PromptRepository) GetPrompt(ctx context.Context, id string) (persistence.Prompt, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+promptColumns+` FROM prompts WHERE id = ?`, id)

	prompt, err := scanPrompt(row)
	if err != nil {
		return persistence.Prompt{}, r.mapper.MapError(err)
	}
	return prompt, nil
}

// ListRotationPrompts returns rotation-eligible prompts in the given
// categories, ordered by id for a stable sequence.
func (r *PromptRepository) ListRotationPrompts(ctx context.Context, categories []string) ([]persistence.Prompt, error) {
	if len(categories) == 0 {
		return nil, nil
	}

	query := `SELECT ` + promptColumns + ` FROM prompts
		WHERE birthday_type IS NULL AND deck_id IS NULL
		AND category IN (?` + strings.Repeat(", ?", len(categories)-1) + `)
		ORDER BY id`

	args := make([]any, len(categories))
	for i, category := range categories {
		args[i] = category
	}

	return r.queryPrompts(ctx, query, args...)
}

func (r *PromptRepository) ListBirthdayPrompts(ctx context.Context) ([]persistence.Prompt, error) {
	return r.queryPrompts(ctx, `
		SELECT `+promptColumns+` FROM prompts
		WHERE birthday_type IS NOT NULL ORDER BY id
	`)
}

// ListDeckPrompts returns prompts of the given decks ordered by deck id
// then deck order.
func (r *PromptRepository) ListDeckPrompts(ctx context.Context, deckIDs []string) ([]persistence.Prompt, error) {
	if len(deckIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + promptColumns + ` FROM prompts
		WHERE deck_id IN (?` + strings.Repeat(", ?", len(deckIDs)-1) + `)
		ORDER BY deck_id, deck_order, id`

	args := make([]any, len(deckIDs))
	for i, id := range deckIDs {
		args[i] = id
	}

	return r.queryPrompts(ctx, query, args...)
}

func (r *PromptRepository) ListIceBreakerPrompts(ctx context.Context) ([]persistence.Prompt, error) {
	return r.queryPrompts(ctx, `
		SELECT `+promptColumns+` FROM prompts WHERE ice_breaker = 1 ORDER BY id
	`)
}

func (r *PromptRepository) queryPrompts(ctx context.Context, query string, args ...any) ([]persistence.Prompt, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var prompts []persistence.Prompt
	for rows.Next() {
		prompt, err := scanPrompt(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		prompts = append(prompts, prompt)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return prompts, nil
}

func scanPrompt(row rowScanner) (persistence.Prompt, error) {
	var prompt persistence.Prompt
	var birthdayType, deckID sql.NullString
	var iceBreaker int
	var variables string

	err := row.Scan(&prompt.ID, &prompt.Category, &prompt.Question,
		&birthdayType, &deckID, &prompt.DeckOrder, &iceBreaker, &variables)
	if err != nil {
		return persistence.Prompt{}, err
	}

	if birthdayType.Valid {
		value := birthdayType.String
		prompt.BirthdayType = &value
	}
	if deckID.Valid {
		value := deckID.String
		prompt.DeckID = &value
	}
	prompt.IceBreaker = iceBreaker != 0
	if variables != "" {
		prompt.DynamicVariables = strings.Split(variables, ",")
	}

	return prompt, nil
}
