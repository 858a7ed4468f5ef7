package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appctx "tally/internal/core/context"
	"tally/internal/core/id"
	"tally/pkg/logger"
)

// Service records audit and login events. It is wired into domain
// service hooks; failures are logged and never break the business
// operation that triggered them.
type Service struct {
	store  Store
	logins LoginStore
}

// NewService creates an audit service.
func NewService(store Store, logins LoginStore) *Service {
	return &Service{store: store, logins: logins}
}

// LogAction records an entity action with an optional change set.
func (s *Service) LogAction(ctx context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) {
	entry := Entry{
		ID:         id.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     appctx.GetUserID(ctx),
		CreatedAt:  time.Now().UTC(),
	}
	if user := appctx.GetUser(ctx); user != nil {
		entry.UserEmail = user.Email
	}

	if len(changes) > 0 {
		payload, err := json.Marshal(changes)
		if err != nil {
			logger.Warn(ctx, "audit: marshal changes failed", "error", err)
		} else {
			entry.Changes = payload
		}
	}

	meta := appctx.GetRequestMetadata(ctx)
	if meta.IP != "" || meta.UserAgent != "" {
		payload, err := json.Marshal(map[string]string{"ip": meta.IP, "userAgent": meta.UserAgent})
		if err == nil {
			entry.Metadata = payload
		}
	}

	if err := s.store.Log(ctx, entry); err != nil {
		logger.Warn(ctx, "audit: log failed",
			"entity_type", entityType, "entity_id", entityID, "action", action, "error", err)
	}
}

// LogChange records an update with a field-level diff of two states.
func (s *Service) LogChange(ctx context.Context, entityType string, entityID id.ID, action Action, oldState, newState map[string]any) {
	s.LogAction(ctx, entityType, entityID, action, Diff(oldState, newState))
}

// RecordLogin stores one authentication attempt with request metadata.
func (s *Service) RecordLogin(ctx context.Context, userID *string, email string, success bool, failure *string) {
	meta := appctx.GetRequestMetadata(ctx)
	entry := LoginEntry{
		ID:        id.New(),
		UserID:    userID,
		Email:     email,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Success:   success,
		Failure:   failure,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.logins.Record(ctx, entry); err != nil {
		logger.Warn(ctx, "audit: record login failed", "email", email, "error", err)
	}
}

// Query returns audit entries matching the filter.
func (s *Service) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	return s.store.Query(ctx, filter)
}

// EntityHistory returns the audit trail of one entity, newest first.
func (s *Service) EntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.GetEntityHistory(ctx, entityType, entityID, limit)
}

// Logins returns recorded login attempts, newest first.
func (s *Service) Logins(ctx context.Context, email *string, limit, offset int) ([]LoginEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.logins.List(ctx, email, limit, offset)
}

// Diff calculates the field-level difference between two entity states.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)

	for key, newVal := range newState {
		oldVal, exists := oldState[key]
		if !exists {
			changes[key] = map[string]any{"old": nil, "new": newVal}
		} else if !equal(oldVal, newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}

	for key, oldVal := range oldState {
		if _, exists := newState[key]; !exists {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}

	return changes
}

func equal(a, b any) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
