package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/prompt-scheduler/internal/persistence"
)

// GroupRepository implements persistence.GroupRepository using SQLite.
type GroupRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewGroupRepository creates a new SQLite group repository.
func NewGroupRepository(pool *ConnectionPool) *GroupRepository {
	return &GroupRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

func (r *GroupRepository) CreateGroup(ctx context.Context, group persistence.Group) error {
	if group.ID == "" {
		return persistence.ErrConstraintViolation
	}

	var completed sql.NullString
	if group.IceBreakerCompletedDate != nil {
		completed.String = group.IceBreakerCompletedDate.UTC().Format(time.DateOnly)
		completed.Valid = true
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO groups (id, name, type, created_at, ice_breaker_completed_date)
		VALUES (?, ?, ?, ?, ?)
	`, group.ID, group.Name, group.Type, group.CreatedAt.UTC().Format(time.RFC3339), completed)
	return r.mapper.MapError(err)
}

func (r *GroupRepository) GetGroup(ctx context.Context, id string) (persistence.Group, error) {
	row := r.helper.QueryRow(ctx, `
		SELECT id, name, type, created_at, ice_breaker_completed_date
		FROM groups WHERE id = ?
	`, id)

	group, err := scanGroup(row)
	if err != nil {
		return persistence.Group{}, r.mapper.MapError(err)
	}
	return group, nil
}

// ListGroups returns all groups ordered by creation time.
func (r *GroupRepository) ListGroups(ctx context.Context) ([]persistence.Group, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, name, type, created_at, ice_breaker_completed_date
		FROM groups ORDER BY created_at, id
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var groups []persistence.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return groups, nil
}

func (r *GroupRepository) SetIceBreakerCompleted(ctx context.Context, groupID string, date time.Time) error {
	result, err := r.helper.Exec(ctx, `
		UPDATE groups SET ice_breaker_completed_date = ? WHERE id = ?
	`, date.UTC().Format(time.DateOnly), groupID)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *GroupRepository) AddMember(ctx context.Context, member persistence.Member) error {
	if member.ID == "" {
		return persistence.ErrConstraintViolation
	}

	var birthday sql.NullString
	if member.Birthday != nil {
		birthday.String = member.Birthday.UTC().Format(time.DateOnly)
		birthday.Valid = true
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO members (id, group_id, name, birthday) VALUES (?, ?, ?, ?)
	`, member.ID, member.GroupID, member.Name, birthday)
	return r.mapper.MapError(err)
}

// ListMembers returns a group's members ordered by name.
func (r *GroupRepository) ListMembers(ctx context.Context, groupID string) ([]persistence.Member, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, group_id, name, birthday FROM members
		WHERE group_id = ? ORDER BY name, id
	`, groupID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var members []persistence.Member
	for rows.Next() {
		var member persistence.Member
		var birthday sql.NullString
		if err := rows.Scan(&member.ID, &member.GroupID, &member.Name, &birthday); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if birthday.Valid {
			parsed, err := time.Parse(time.DateOnly, birthday.String)
			if err != nil {
				return nil, fmt.Errorf("invalid birthday for member %s: %w", member.ID, err)
			}
			member.Birthday = &parsed
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return members, nil
}

func (r *GroupRepository) AddMemorial(ctx context.Context, memorial persistence.Memorial) error {
	if memorial.ID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO memorials (id, group_id, name) VALUES (?, ?, ?)
	`, memorial.ID, memorial.GroupID, memorial.Name)
	return r.mapper.MapError(err)
}

func (r *GroupRepository) ListMemorials(ctx context.Context, groupID string) ([]persistence.Memorial, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, group_id, name FROM memorials WHERE group_id = ? ORDER BY id
	`, groupID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var memorials []persistence.Memorial
	for rows.Next() {
		var memorial persistence.Memorial
		if err := rows.Scan(&memorial.ID, &memorial.GroupID, &memorial.Name); err != nil {
			return nil, r.mapper.MapError(err)
		}
		memorials = append(memorials, memorial)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return memorials, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (persistence.Group, error) {
	var group persistence.Group
	var createdAt string
	var completed sql.NullString

	if err := row.Scan(&group.ID, &group.Name, &group.Type, &createdAt, &completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Group{}, persistence.ErrNotFound
		}
		return persistence.Group{}, err
	}

	parsed, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return persistence.Group{}, fmt.Errorf("invalid created_at for group %s: %w", group.ID, err)
	}
	group.CreatedAt = parsed

	if completed.Valid {
		date, err := time.Parse(time.DateOnly, completed.String)
		if err != nil {
			return persistence.Group{}, fmt.Errorf("invalid completion date for group %s: %w", group.ID, err)
		}
		group.IceBreakerCompletedDate = &date
	}

	return group, nil
}
