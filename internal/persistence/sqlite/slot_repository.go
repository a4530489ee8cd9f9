package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/prompt-scheduler/internal/persistence"
)

// SlotRepository implements persistence.SlotRepository using SQLite.
type SlotRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewSlotRepository creates a new SQLite slot repository.
func NewSlotRepository(pool *ConnectionPool) *SlotRepository {
	return &SlotRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const slotColumns = `id, group_id, prompt_id, date, user_id, deck_id, created_at`

// InsertSlots writes a batch of slots inside one transaction so a failed
// insert never leaves a partial queue.
func (r *SlotRepository) InsertSlots(ctx context.Context, slots []persistence.Slot) error {
	if len(slots) == 0 {
		return nil
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			return r.insertSlotsTx(tx, slots)
		})
	})
}

func (r *SlotRepository) insertSlotsTx(tx *sql.Tx, slots []persistence.Slot) error {
	for _, slot := range slots {
		if slot.ID == "" || slot.GroupID == "" || slot.PromptID == "" {
			return persistence.ErrConstraintViolation
		}

		var userID, deckID sql.NullString
		if slot.UserID != nil {
			userID.String = *slot.UserID
			userID.Valid = true
		}
		if slot.DeckID != nil {
			deckID.String = *slot.DeckID
			deckID.Valid = true
		}

		_, err := r.helper.ExecTx(tx, `
			INSERT INTO daily_slots (`+slotColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, slot.ID, slot.GroupID, slot.PromptID,
			slot.Date.UTC().Format(time.DateOnly), userID, deckID,
			slot.CreatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

// ListSlots returns slots matching the filter ordered by date ascending.
func (r *SlotRepository) ListSlots(ctx context.Context, filter persistence.SlotFilter) ([]persistence.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM daily_slots WHERE 1 = 1`
	var args []any

	if filter.GroupID != "" {
		query += ` AND group_id = ?`
		args = append(args, filter.GroupID)
	}
	if filter.GeneralOnly {
		query += ` AND user_id IS NULL`
	}
	if filter.From != nil {
		query += ` AND date >= ?`
		args = append(args, filter.From.UTC().Format(time.DateOnly))
	}
	if filter.To != nil {
		query += ` AND date <= ?`
		args = append(args, filter.To.UTC().Format(time.DateOnly))
	}
	query += ` ORDER BY date, id`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var slots []persistence.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return slots, nil
}

func (r *SlotRepository) DeleteSlot(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM daily_slots WHERE id = ?`, id)
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

// ReplaceGeneralSlots deletes the group's general slots dated on or after
// the boundary and inserts the replacements, all within one transaction.
func (r *SlotRepository) ReplaceGeneralSlots(ctx context.Context, groupID string, from time.Time, slots []persistence.Slot) error {
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			_, err := r.helper.ExecTx(tx, `
				DELETE FROM daily_slots
				WHERE group_id = ? AND user_id IS NULL AND date >= ?
			`, groupID, from.UTC().Format(time.DateOnly))
			if err != nil {
				return r.mapper.MapError(err)
			}

			return r.insertSlotsTx(tx, slots)
		})
	})
}

func (r *SlotRepository) UsedPromptIDs(ctx context.Context, groupID string, through time.Time) (map[string]struct{}, error) {
	query := `
		SELECT DISTINCT prompt_id FROM daily_slots
		WHERE group_id = ? AND user_id IS NULL
	`
	args := []any{groupID}
	if !through.IsZero() {
		query += ` AND date <= ?`
		args = append(args, through.UTC().Format(time.DateOnly))
	}

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	used := make(map[string]struct{})
	for rows.Next() {
		var promptID string
		if err := rows.Scan(&promptID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		used[promptID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return used, nil
}

func scanSlot(row rowScanner) (persistence.Slot, error) {
	var slot persistence.Slot
	var date, createdAt string
	var userID, deckID sql.NullString

	err := row.Scan(&slot.ID, &slot.GroupID, &slot.PromptID, &date, &userID, &deckID, &createdAt)
	if err != nil {
		return persistence.Slot{}, err
	}

	slot.Date, err = time.Parse(time.DateOnly, date)
	if err != nil {
		return persistence.Slot{}, err
	}
	slot.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return persistence.Slot{}, err
	}

	if userID.Valid {
		value := userID.String
		slot.UserID = &value
	}
	if deckID.Valid {
		value := deckID.String
		slot.DeckID = &value
	}

	return slot, nil
}
