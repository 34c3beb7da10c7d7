package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/study-helper/internal/apperror"
	"github.com/sakif/study-helper/internal/model"
	"github.com/sakif/study-helper/internal/repository"
)

// HistoryStore implements repository.HistoryRepository on the shared pool.
type HistoryStore struct {
	conn *sql.DB
}

var _ repository.HistoryRepository = (*HistoryStore)(nil)

// Create inserts a new history entry, assigning its ID and timestamp.
func (s *HistoryStore) Create(ctx context.Context, entry *model.HistoryEntry) error {
	entry.ID = xid.New().String()
	entry.CreatedAt = time.Now()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO history (id, user_id, type, input_text, result, url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.UserID,
		entry.Type,
		entry.InputText,
		entry.Result,
		entry.URL,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating history entry: %w", err)
	}

	return nil
}

// GetByID retrieves one entry, scoped to its owner. An existing entry
// owned by a different user comes back as NotFound — guessing IDs across
// accounts reveals nothing.
func (s *HistoryStore) GetByID(ctx context.Context, userID, id string) (*model.HistoryEntry, error) {
	var e model.HistoryEntry

	err := s.conn.QueryRowContext(ctx,
		`SELECT id, user_id, type, input_text, result, url, created_at
		 FROM history
		 WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(
		&e.ID,
		&e.UserID,
		&e.Type,
		&e.InputText,
		&e.Result,
		&e.URL,
		&e.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("history entry", id)
		}
		return nil, fmt.Errorf("sqlite: getting history entry %s: %w", id, err)
	}

	return &e, nil
}

// filterClause builds the WHERE tail shared by List and Count.
// SQLite's LIKE is case-insensitive for ASCII, matching the original
// case-insensitive search behavior.
func filterClause(userID string, filter repository.HistoryFilter) (string, []any) {
	where := `WHERE user_id = ?`
	args := []any{userID}

	if filter.Type != "" {
		where += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if filter.Search != "" {
		where += ` AND (input_text LIKE '%' || ? || '%' OR result LIKE '%' || ? || '%')`
		args = append(args, filter.Search, filter.Search)
	}

	return where, args
}

// List returns the owner's entries, newest first, with pagination.
func (s *HistoryStore) List(ctx context.Context, userID string, filter repository.HistoryFilter) ([]model.HistoryEntry, error) {
	where, args := filterClause(userID, filter)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, user_id, type, input_text, result, url, created_at
		 FROM history `+where+`
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing history: %w", err)
	}
	defer rows.Close()

	// Return an empty slice (not nil) so the JSON encodes as [].
	entries := []model.HistoryEntry{}
	for rows.Next() {
		var e model.HistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.InputText, &e.Result, &e.URL, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating history: %w", err)
	}

	return entries, nil
}

// Count returns the total number of entries matching the filter,
// disregarding pagination.
func (s *HistoryStore) Count(ctx context.Context, userID string, filter repository.HistoryFilter) (int, error) {
	where, args := filterClause(userID, filter)

	var count int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM history `+where, args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting history: %w", err)
	}

	return count, nil
}

// CountByType aggregates the owner's entry counts per type. Types with no
// entries are absent from the result; the service fills in zeroes.
func (s *HistoryStore) CountByType(ctx context.Context, userID string) ([]repository.TypeCount, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT type, COUNT(*) FROM history WHERE user_id = ? GROUP BY type`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting history by type: %w", err)
	}
	defer rows.Close()

	var counts []repository.TypeCount
	for rows.Next() {
		var tc repository.TypeCount
		if err := rows.Scan(&tc.Type, &tc.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning type count: %w", err)
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating type counts: %w", err)
	}

	return counts, nil
}

// CountSince counts the owner's entries created at or after the given time.
func (s *HistoryStore) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM history WHERE user_id = ? AND created_at >= ?`,
		userID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting recent history: %w", err)
	}
	return count, nil
}

// Delete removes one entry, scoped to its owner.
func (s *HistoryStore) Delete(ctx context.Context, userID, id string) error {
	result, err := s.conn.ExecContext(ctx,
		`DELETE FROM history WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting history entry %s: %w", id, err)
	}
	return requireRow(result, "history entry", id)
}

// DeleteAll removes every entry the user owns and returns how many went.
func (s *HistoryStore) DeleteAll(ctx context.Context, userID string) (int64, error) {
	result, err := s.conn.ExecContext(ctx,
		`DELETE FROM history WHERE user_id = ?`, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: clearing history: %w", err)
	}
	return result.RowsAffected()
}

// DeleteOlderThan removes the user's entries created before the cutoff.
func (s *HistoryStore) DeleteOlderThan(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	result, err := s.conn.ExecContext(ctx,
		`DELETE FROM history WHERE user_id = ? AND created_at < ?`,
		userID, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: cleaning up history: %w", err)
	}
	return result.RowsAffected()
}
