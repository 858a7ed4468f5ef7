// Package audit provides the administrative action log and the login log.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"tally/internal/core/id"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionRestore      Action = "restore"
	ActionStatusChange Action = "status_change"
	ActionConvert      Action = "convert"
)

// Entry is a single audit log record.
type Entry struct {
	ID         id.ID           `db:"id" json:"id"`
	EntityType string          `db:"entity_type" json:"entityType"`
	EntityID   id.ID           `db:"entity_id" json:"entityId"`
	Action     Action          `db:"action" json:"action"`
	UserID     string          `db:"user_id" json:"userId"`
	UserEmail  string          `db:"user_email" json:"userEmail,omitempty"`
	Changes    json.RawMessage `db:"changes" json:"changes,omitempty"`
	Metadata   json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

// LoginEntry records one authentication attempt, successful or not.
type LoginEntry struct {
	ID        id.ID     `db:"id" json:"id"`
	UserID    *string   `db:"user_id" json:"userId,omitempty"`
	Email     string    `db:"email" json:"email"`
	IP        string    `db:"ip" json:"ip"`
	UserAgent string    `db:"user_agent" json:"userAgent"`
	Success   bool      `db:"success" json:"success"`
	Failure   *string   `db:"failure" json:"failure,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// QueryFilter narrows audit log queries.
type QueryFilter struct {
	EntityType *string
	EntityID   *id.ID
	Action     *Action
	UserID     *string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// Store persists audit entries. The postgres implementation compresses
// large change payloads.
type Store interface {
	Log(ctx context.Context, entry Entry) error
	Query(ctx context.Context, filter QueryFilter) ([]Entry, error)
	GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error)
}

// LoginStore persists login attempts.
type LoginStore interface {
	Record(ctx context.Context, entry LoginEntry) error
	List(ctx context.Context, email *string, limit, offset int) ([]LoginEntry, error)
}
