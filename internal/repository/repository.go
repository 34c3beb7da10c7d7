// Package repository defines the storage interfaces the service layer
// programs against. The concrete implementation lives in repository/sqlite;
// tests substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/study-helper/internal/model"
)

// HistoryFilter narrows and pages a history listing. All fields are
// optional; the zero value lists everything (up to the default limit).
type HistoryFilter struct {
	Type   string // one of model.HistoryTypes, or "" for all
	Search string // case-insensitive substring over input and result text
	Limit  int
	Offset int
}

// TypeCount is one bucket of a per-type history aggregation.
type TypeCount struct {
	Type  string
	Count int
}

// UserRepository persists accounts and their usage counters.
//
// Create returns apperror.ErrDuplicate when the email (case-insensitive)
// is already registered. Lookups return apperror.ErrNotFound for missing
// rows.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// UpdateUsage overwrites the stored usage window, used when the lazy
	// 24h reset fires or on a forced reset.
	UpdateUsage(ctx context.Context, id string, usage model.APIUsage) error
	// IncrementUsage adds one to the stored request count atomically
	// (read-modify-write happens inside one UPDATE statement).
	IncrementUsage(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// HistoryRepository persists saved AI interactions. Every read and delete
// is scoped to the owning user — an entry ID alone never grants access.
type HistoryRepository interface {
	Create(ctx context.Context, entry *model.HistoryEntry) error
	GetByID(ctx context.Context, userID, id string) (*model.HistoryEntry, error)
	List(ctx context.Context, userID string, filter HistoryFilter) ([]model.HistoryEntry, error)
	Count(ctx context.Context, userID string, filter HistoryFilter) (int, error)
	CountByType(ctx context.Context, userID string) ([]TypeCount, error)
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
	DeleteOlderThan(ctx context.Context, userID string, cutoff time.Time) (int64, error)
}
