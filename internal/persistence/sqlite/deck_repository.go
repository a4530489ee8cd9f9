package sqlite

import (
	"context"

	"github.com/example/prompt-scheduler/internal/persistence"
)

// DeckRepository implements persistence.DeckRepository using SQLite.
type DeckRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewDeckRepository creates a new SQLite deck repository.
func NewDeckRepository(pool *ConnectionPool) *DeckRepository {
	return &DeckRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

func (r *DeckRepository) AddDeck(ctx context.Context, deck persistence.Deck) error {
	if deck.ID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO decks (id, name) VALUES (?, ?)
	`, deck.ID, deck.Name)
	return r.mapper.MapError(err)
}

func (r *DeckRepository) ActivateDeck(ctx context.Context, groupID, deckID string) error {
	_, err := r.helper.Exec(ctx, `
		INSERT INTO group_active_decks (group_id, deck_id) VALUES (?, ?)
		ON CONFLICT (group_id, deck_id) DO NOTHING
	`, groupID, deckID)
	return r.mapper.MapError(err)
}

func (r *DeckRepository) DeactivateDeck(ctx context.Context, groupID, deckID string) error {
	result, err := r.helper.Exec(ctx, `
		DELETE FROM group_active_decks WHERE group_id = ? AND deck_id = ?
	`, groupID, deckID)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListActiveDecks returns a group's active decks ordered by name.
func (r *DeckRepository) ListActiveDecks(ctx context.Context, groupID string) ([]persistence.Deck, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT d.id, d.name FROM decks d
		JOIN group_active_decks gad ON gad.deck_id = d.id
		WHERE gad.group_id = ? ORDER BY d.name, d.id
	`, groupID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var decks []persistence.Deck
	for rows.Next() {
		var deck persistence.Deck
		if err := rows.Scan(&deck.ID, &deck.Name); err != nil {
			return nil, r.mapper.MapError(err)
		}
		decks = append(decks, deck)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return decks, nil
}
