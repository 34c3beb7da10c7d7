package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/study-helper/internal/apperror"
	"github.com/sakif/study-helper/internal/model"
	"github.com/sakif/study-helper/internal/repository"
)

func createTestEntry(t *testing.T, db *DB, userID, entryType, inputText string) *model.HistoryEntry {
	t.Helper()
	entry := &model.HistoryEntry{
		UserID:    userID,
		Type:      entryType,
		InputText: inputText,
		Result:    "result for " + inputText,
	}
	if err := db.History.Create(context.Background(), entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return entry
}

// backdate rewrites an entry's created_at, for testing time-based queries.
func backdate(t *testing.T, db *DB, id string, at time.Time) {
	t.Helper()
	if _, err := db.conn.Exec(`UPDATE history SET created_at = ? WHERE id = ?`, at, id); err != nil {
		t.Fatalf("backdating entry %s: %v", id, err)
	}
}

func TestCreateHistoryEntry(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")

	entry := createTestEntry(t, db, user.ID, model.HistoryTypeExplain, "quantum entanglement")

	if entry.ID == "" {
		t.Error("Create() did not assign an ID")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("Create() did not assign a timestamp")
	}

	got, err := db.History.GetByID(context.Background(), user.ID, entry.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.InputText != "quantum entanglement" || got.Type != model.HistoryTypeExplain {
		t.Errorf("GetByID() = %+v", got)
	}
}

func TestGetHistoryEntry_OwnerScoped(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice@example.com")
	mallory := createTestUser(t, db, "mallory@example.com")

	entry := createTestEntry(t, db, alice.ID, model.HistoryTypeExplain, "secret notes")

	// The entry exists, but for another account it must look absent.
	_, err := db.History.GetByID(context.Background(), mallory.ID, entry.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() for non-owner: error = %v, want ErrNotFound", err)
	}

	err = db.History.Delete(context.Background(), mallory.ID, entry.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() for non-owner: error = %v, want ErrNotFound", err)
	}

	// Still there for the owner.
	if _, err := db.History.GetByID(context.Background(), alice.ID, entry.ID); err != nil {
		t.Errorf("GetByID() for owner after failed cross-account delete: %v", err)
	}
}

func TestListHistory(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")

	first := createTestEntry(t, db, user.ID, model.HistoryTypeExplain, "oldest")
	backdate(t, db, first.ID, time.Now().Add(-2*time.Hour))
	second := createTestEntry(t, db, user.ID, model.HistoryTypeSummarize, "middle")
	backdate(t, db, second.ID, time.Now().Add(-1*time.Hour))
	third := createTestEntry(t, db, user.ID, model.HistoryTypeExplain, "newest")

	entries, err := db.History.List(context.Background(), user.ID, repository.HistoryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	// Newest first.
	if entries[0].ID != third.ID || entries[2].ID != first.ID {
		t.Errorf("order = [%s %s %s], want newest first", entries[0].InputText, entries[1].InputText, entries[2].InputText)
	}
}

func TestListHistory_Empty(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")

	entries, err := db.History.List(context.Background(), user.ID, repository.HistoryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	// Empty slice, not nil — the handler JSON-encodes this as [].
	if entries == nil {
		t.Error("List() returned nil, want empty slice")
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
}

func TestListHistory_Filters(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")
	other := createTestUser(t, db, "bob@example.com")

	createTestEntry(t, db, user.ID, model.HistoryTypeExplain, "the Krebs cycle")
	createTestEntry(t, db, user.ID, model.HistoryTypeFlashcards, "the Krebs cycle")
	createTestEntry(t, db, user.ID, model.HistoryTypeExplain, "French revolution")
	createTestEntry(t, db, other.ID, model.HistoryTypeExplain, "the Krebs cycle")

	tests := []struct {
		name   string
		filter repository.HistoryFilter
		want   int
	}{
		{"by type", repository.HistoryFilter{Type: model.HistoryTypeExplain, Limit: 10}, 2},
		{"by search", repository.HistoryFilter{Search: "krebs", Limit: 10}, 2},
		{"search matches result text", repository.HistoryFilter{Search: "result for French", Limit: 10}, 1},
		{"type and search", repository.HistoryFilter{Type: model.HistoryTypeFlashcards, Search: "krebs", Limit: 10}, 1},
		{"no match", repository.HistoryFilter{Search: "calculus", Limit: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := db.History.List(context.Background(), user.ID, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(entries) != tt.want {
				t.Errorf("len(entries) = %d, want %d", len(entries), tt.want)
			}

			count, err := db.History.Count(context.Background(), user.ID, tt.filter)
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if count != tt.want {
				t.Errorf("Count() = %d, want %d", count, tt.want)
			}
		})
	}
}

func TestListHistory_Pagination(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")

	for i := 0; i < 5; i++ {
		e := createTestEntry(t, db, user.ID, model.HistoryTypeExplain, "entry")
		backdate(t, db, e.ID, time.Now().Add(time.Duration(-5+i)*time.Hour))
	}

	page, err := db.History.List(context.Background(), user.ID, repository.HistoryFilter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page) != 1 {
		t.Errorf("len(page) = %d, want 1 past the end", len(page))
	}

	count, err := db.History.Count(context.Background(), user.ID, repository.HistoryFilter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 5 {
		t.Errorf("Count() = %d, want 5 — pagination must not affect the total", count)
	}
}

func TestCountByType(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")

	createTestEntry(t, db, user.ID, model.HistoryTypeExplain, "a")
	createTestEntry(t, db, user.ID, model.HistoryTypeExplain, "b")
	createTestEntry(t, db, user.ID, model.HistoryTypeSummarize, "c")

	counts, err := db.History.CountByType(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("CountByType() error = %v", err)
	}

	got := make(map[string]int)
	for _, tc := range counts {
		got[tc.Type] = tc.Count
	}
	if got[model.HistoryTypeExplain] != 2 || got[model.HistoryTypeSummarize] != 1 {
		t.Errorf("CountByType() = %v", got)
	}
	if _, present := got[model.HistoryTypeFlashcards]; present {
		t.Error("CountByType() should omit types with no entries")
	}
}

func TestCountSince(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")

	old := createTestEntry(t, db, user.ID, model.HistoryTypeExplain, "old")
	backdate(t, db, old.ID, time.Now().AddDate(0, 0, -10))
	createTestEntry(t, db, user.ID, model.HistoryTypeExplain, "recent")

	count, err := db.History.CountSince(context.Background(), user.ID, time.Now().AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("CountSince() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountSince() = %d, want 1", count)
	}
}

func TestDeleteAllHistory(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	createTestEntry(t, db, alice.ID, model.HistoryTypeExplain, "a")
	createTestEntry(t, db, alice.ID, model.HistoryTypeSummarize, "b")
	createTestEntry(t, db, bob.ID, model.HistoryTypeExplain, "c")

	deleted, err := db.History.DeleteAll(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("DeleteAll() = %d, want 2", deleted)
	}

	count, err := db.History.Count(context.Background(), bob.ID, repository.HistoryFilter{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("bob's count = %d, want 1 — DeleteAll must be owner-scoped", count)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")

	old := createTestEntry(t, db, user.ID, model.HistoryTypeExplain, "old")
	backdate(t, db, old.ID, time.Now().AddDate(0, 0, -100))
	kept := createTestEntry(t, db, user.ID, model.HistoryTypeExplain, "recent")

	deleted, err := db.History.DeleteOlderThan(context.Background(), user.ID, time.Now().AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("DeleteOlderThan() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteOlderThan() = %d, want 1", deleted)
	}

	if _, err := db.History.GetByID(context.Background(), user.ID, kept.ID); err != nil {
		t.Errorf("recent entry should survive cleanup: %v", err)
	}
	if _, err := db.History.GetByID(context.Background(), user.ID, old.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("old entry should be gone, got error = %v", err)
	}
}

func TestDeleteUser_CascadesHistory(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")
	survivor := createTestUser(t, db, "bob@example.com")

	createTestEntry(t, db, user.ID, model.HistoryTypeExplain, "a")
	createTestEntry(t, db, user.ID, model.HistoryTypeSummarize, "b")
	createTestEntry(t, db, survivor.ID, model.HistoryTypeExplain, "c")

	if err := db.Users.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	count, err := db.History.Count(context.Background(), user.ID, repository.HistoryFilter{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("deleted user still has %d history entries, want cascade to 0", count)
	}

	count, err = db.History.Count(context.Background(), survivor.ID, repository.HistoryFilter{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("survivor's count = %d, want 1", count)
	}
}
