package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/study-helper/internal/apperror"
	"github.com/sakif/study-helper/internal/model"
	"github.com/sakif/study-helper/internal/repository"
)

// History listing bounds. The original client fetches its whole sidebar in
// one go, hence the generous default.
const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 100
	DefaultCleanupDays  = 90
)

// HistoryService handles saved AI interactions. Every operation takes the
// owning user; nothing here can touch another account's entries.
type HistoryService struct {
	repo   repository.HistoryRepository
	logger *slog.Logger
}

// NewHistoryService creates a HistoryService.
func NewHistoryService(repo repository.HistoryRepository, logger *slog.Logger) *HistoryService {
	return &HistoryService{
		repo:   repo,
		logger: logger,
	}
}

// Save validates and stores a new history entry for the user.
func (s *HistoryService) Save(ctx context.Context, user *model.User, entryType, inputText, result, url string) (*model.HistoryEntry, error) {
	if entryType == "" || inputText == "" || result == "" {
		return nil, apperror.ValidationFailed("type", "missing required fields: type, inputText, result")
	}
	if !model.ValidHistoryType(entryType) {
		return nil, apperror.ValidationFailed("type",
			"invalid type, must be: "+strings.Join(model.HistoryTypes, ", "))
	}
	if len(inputText) > MaxInputLength {
		return nil, apperror.ValidationFailed("inputText",
			fmt.Sprintf("input text cannot exceed %d characters", MaxInputLength))
	}

	entry := &model.HistoryEntry{
		UserID:    user.ID,
		Type:      entryType,
		InputText: inputText,
		Result:    result,
		URL:       strings.TrimSpace(url),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("service/history: saving entry: %w", err)
	}

	s.logger.Info("history entry saved",
		slog.String("userID", user.ID),
		slog.String("entryID", entry.ID),
		slog.String("type", entry.Type),
	)

	return entry, nil
}

// ListParams narrows and pages a history listing.
type ListParams struct {
	Type   string
	Search string
	Limit  int
	Skip   int
}

// Pagination describes the page returned by List relative to the full
// filtered result set.
type Pagination struct {
	Total      int  `json:"total"`
	Limit      int  `json:"limit"`
	Skip       int  `json:"skip"`
	HasMore    bool `json:"hasMore"`
	Page       int  `json:"page"`
	TotalPages int  `json:"totalPages"`
}

// List returns the user's entries, newest first.
//
// An unknown type filter is ignored rather than rejected, matching the
// lenient query contract: ?type=garbage lists everything.
func (s *HistoryService) List(ctx context.Context, user *model.User, params ListParams) ([]model.HistoryEntry, Pagination, error) {
	if !model.ValidHistoryType(params.Type) {
		params.Type = ""
	}
	if params.Limit <= 0 {
		params.Limit = DefaultHistoryLimit
	}
	if params.Limit > MaxHistoryLimit {
		params.Limit = MaxHistoryLimit
	}
	if params.Skip < 0 {
		params.Skip = 0
	}

	filter := repository.HistoryFilter{
		Type:   params.Type,
		Search: params.Search,
		Limit:  params.Limit,
		Offset: params.Skip,
	}

	entries, err := s.repo.List(ctx, user.ID, filter)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("service/history: listing entries: %w", err)
	}

	total, err := s.repo.Count(ctx, user.ID, filter)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("service/history: counting entries: %w", err)
	}

	p := Pagination{
		Total:      total,
		Limit:      params.Limit,
		Skip:       params.Skip,
		HasMore:    total > params.Skip+params.Limit,
		Page:       params.Skip/params.Limit + 1,
		TotalPages: (total + params.Limit - 1) / params.Limit,
	}

	return entries, p, nil
}

// GetByID returns a single entry, owner-scoped.
func (s *HistoryService) GetByID(ctx context.Context, user *model.User, id string) (*model.HistoryEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "history entry ID is required")
	}
	return s.repo.GetByID(ctx, user.ID, id)
}

// Delete removes a single entry, owner-scoped.
func (s *HistoryService) Delete(ctx context.Context, user *model.User, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "history entry ID is required")
	}

	if err := s.repo.Delete(ctx, user.ID, id); err != nil {
		return err
	}

	s.logger.Info("history entry deleted",
		slog.String("userID", user.ID),
		slog.String("entryID", id),
	)
	return nil
}

// Clear removes all of the user's entries and returns how many went.
func (s *HistoryService) Clear(ctx context.Context, user *model.User) (int64, error) {
	deleted, err := s.repo.DeleteAll(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("service/history: clearing entries: %w", err)
	}

	s.logger.Info("history cleared",
		slog.String("userID", user.ID),
		slog.Int64("deleted", deleted),
	)
	return deleted, nil
}

// Stats summarizes the user's history.
type Stats struct {
	Total    int            `json:"total"`
	ByType   map[string]int `json:"byType"`
	Last7Day int            `json:"last7Days"`
}

// Stats aggregates per-type counts plus recent (7-day) activity. Types
// with no entries are reported as explicit zeroes.
func (s *HistoryService) Stats(ctx context.Context, user *model.User) (*Stats, error) {
	counts, err := s.repo.CountByType(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/history: aggregating stats: %w", err)
	}

	byType := make(map[string]int, len(model.HistoryTypes))
	for _, t := range model.HistoryTypes {
		byType[t] = 0
	}
	total := 0
	for _, tc := range counts {
		byType[tc.Type] = tc.Count
		total += tc.Count
	}

	recent, err := s.repo.CountSince(ctx, user.ID, time.Now().AddDate(0, 0, -7))
	if err != nil {
		return nil, fmt.Errorf("service/history: counting recent activity: %w", err)
	}

	return &Stats{
		Total:    total,
		ByType:   byType,
		Last7Day: recent,
	}, nil
}

// Cleanup deletes the user's entries older than the given number of days
// (default 90) and returns how many went.
func (s *HistoryService) Cleanup(ctx context.Context, user *model.User, days int) (int64, error) {
	if days <= 0 {
		days = DefaultCleanupDays
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	deleted, err := s.repo.DeleteOlderThan(ctx, user.ID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("service/history: cleaning up entries: %w", err)
	}

	s.logger.Info("old history cleaned up",
		slog.String("userID", user.ID),
		slog.Int("days", days),
		slog.Int64("deleted", deleted),
	)
	return deleted, nil
}
