package model

import "time"

// History entry types. The set is closed — validation rejects anything else.
const (
	HistoryTypeExplain    = "explain"
	HistoryTypeSummarize  = "summarize"
	HistoryTypeFlashcards = "flashcards"
)

// HistoryTypes lists the valid entry types in a stable order.
var HistoryTypes = []string{HistoryTypeExplain, HistoryTypeSummarize, HistoryTypeFlashcards}

// ValidHistoryType reports whether t is one of the known entry types.
func ValidHistoryType(t string) bool {
	for _, known := range HistoryTypes {
		if t == known {
			return true
		}
	}
	return false
}

// HistoryEntry is a saved AI interaction. Entries belong to exactly one
// user and are only ever queried, listed, or deleted by that owner.
type HistoryEntry struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"-"         db:"user_id"` // owner; implicit in every response
	Type      string    `json:"type"      db:"type"`
	InputText string    `json:"inputText" db:"input_text"`
	Result    string    `json:"result"    db:"result"`
	URL       string    `json:"url"       db:"url"` // optional source page
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
