package entity

import (
	"time"

	"tally/internal/core/id"
)

// TransitionTable is the fixed mapping of allowed next-states per current
// state. Documents with a status lifecycle declare one table and validate
// every change against it.
type TransitionTable map[string][]string

// Allowed reports whether from → to is present in the table.
func (t TransitionTable) Allowed(from, to string) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Next returns the allowed target statuses for the given state.
func (t TransitionTable) Next(from string) []string {
	return t[from]
}

// IsTerminal reports whether the state has no outgoing transitions.
func (t TransitionTable) IsTerminal(state string) bool {
	return len(t[state]) == 0
}

// StatusHistory is an append-only record of a status transition.
// Rows are never updated or deleted.
type StatusHistory struct {
	ID           id.ID     `db:"id" json:"id"`
	DocumentID   id.ID     `db:"document_id" json:"documentId"`
	DocumentType string    `db:"document_type" json:"documentType"`
	FromStatus   string    `db:"from_status" json:"fromStatus"`
	ToStatus     string    `db:"to_status" json:"toStatus"`
	Comment      string    `db:"comment" json:"comment,omitempty"`
	UserID       string    `db:"user_id" json:"userId,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// NewStatusHistory creates a history row for a successful transition.
func NewStatusHistory(documentID id.ID, documentType, from, to, comment, userID string) StatusHistory {
	return StatusHistory{
		ID:           id.New(),
		DocumentID:   documentID,
		DocumentType: documentType,
		FromStatus:   from,
		ToStatus:     to,
		Comment:      comment,
		UserID:       userID,
		CreatedAt:    time.Now().UTC(),
	}
}
