package entity

import (
	"testing"

	"tally/internal/core/id"
)

func TestTransitionTable(t *testing.T) {
	table := TransitionTable{
		"draft": {"sent", "rejected"},
		"sent":  {"accepted", "rejected"},
	}

	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"allowed forward", "draft", "sent", true},
		{"allowed alternative", "draft", "rejected", true},
		{"skipping a state", "draft", "accepted", false},
		{"backwards", "sent", "draft", false},
		{"from terminal state", "rejected", "draft", false},
		{"unknown state", "nonsense", "draft", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.Allowed(tt.from, tt.to); got != tt.want {
				t.Errorf("Allowed(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTransitionTable_IsTerminal(t *testing.T) {
	table := TransitionTable{
		"draft": {"sent"},
		"sent":  {"accepted"},
	}

	if table.IsTerminal("draft") {
		t.Error("draft has outgoing transitions, must not be terminal")
	}
	if !table.IsTerminal("accepted") {
		t.Error("accepted has no outgoing transitions, must be terminal")
	}
	if !table.IsTerminal("unknown") {
		t.Error("unknown states are terminal")
	}
}

func TestTransitionTable_Next(t *testing.T) {
	table := TransitionTable{"draft": {"sent", "rejected"}}

	next := table.Next("draft")
	if len(next) != 2 {
		t.Fatalf("Next(draft) = %v, want 2 entries", next)
	}
	if next := table.Next("rejected"); len(next) != 0 {
		t.Errorf("Next(rejected) = %v, want empty", next)
	}
}

func TestNewStatusHistory(t *testing.T) {
	docID := id.New()
	row := NewStatusHistory(docID, "Quote", "draft", "sent", "to client", "user-1")

	if id.IsNil(row.ID) {
		t.Error("history row must get its own ID")
	}
	if row.DocumentID != docID {
		t.Errorf("DocumentID = %v, want %v", row.DocumentID, docID)
	}
	if row.FromStatus != "draft" || row.ToStatus != "sent" {
		t.Errorf("transition = %s → %s, want draft → sent", row.FromStatus, row.ToStatus)
	}
	if row.CreatedAt.IsZero() {
		t.Error("CreatedAt must be set")
	}
}
