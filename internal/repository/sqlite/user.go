package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/study-helper/internal/apperror"
	"github.com/sakif/study-helper/internal/model"
	"github.com/sakif/study-helper/internal/repository"
)

// UserStore implements repository.UserRepository on the shared pool.
type UserStore struct {
	conn *sql.DB
}

var _ repository.UserRepository = (*UserStore)(nil)

// Create inserts a new account row. The ID, timestamps, and a fresh usage
// window are assigned here; the caller's struct is updated in place.
//
// Creation is atomic from the caller's perspective: either the row exists
// with the given hash, or the INSERT failed and nothing was written. A
// violation of the unique email index maps to apperror.ErrDuplicate.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Usage.DailyLimit == 0 {
		user.Usage.DailyLimit = model.DefaultDailyLimit
	}
	user.Usage.RequestCount = 0
	user.Usage.WindowStart = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, request_count, window_start, daily_limit, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Usage.RequestCount,
		user.Usage.WindowStart,
		user.Usage.DailyLimit,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Duplicate("an account already exists with this email")
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its internal ID.
// Returns apperror.ErrNotFound if no such account exists.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `WHERE id = ?`, id)
}

// GetByEmail retrieves an account by email. The lookup is case-insensitive
// (the column uses COLLATE NOCASE).
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, `WHERE email = ?`, email)
}

func (s *UserStore) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User

	err := s.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash, request_count, window_start, daily_limit, created_at, updated_at
		 FROM users `+where,
		arg,
	).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Usage.RequestCount,
		&u.Usage.WindowStart,
		&u.Usage.DailyLimit,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprintf("%v", arg))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	return &u, nil
}

// UpdatePassword replaces the stored hash. The plaintext never reaches
// this layer.
func (s *UserStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %s: %w", id, err)
	}
	return requireRow(result, "user", id)
}

// UpdateUsage overwrites the stored usage window.
func (s *UserStore) UpdateUsage(ctx context.Context, id string, usage model.APIUsage) error {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE users SET request_count = ?, window_start = ?, daily_limit = ?, updated_at = ?
		 WHERE id = ?`,
		usage.RequestCount, usage.WindowStart, usage.DailyLimit, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating usage for user %s: %w", id, err)
	}
	return requireRow(result, "user", id)
}

// IncrementUsage bumps the request counter by one. The increment happens
// inside a single UPDATE, so concurrent increments never lose counts.
func (s *UserStore) IncrementUsage(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE users SET request_count = request_count + 1, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing usage for user %s: %w", id, err)
	}
	return requireRow(result, "user", id)
}

// Delete removes an account. History rows cascade via the foreign key.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	return requireRow(result, "user", id)
}

// requireRow turns a zero-rows-affected result into NotFound. UPDATE and
// DELETE succeed silently in SQL even when the WHERE matched nothing.
func requireRow(result sql.Result, resource, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
