package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/klauspost/compress/zstd"

	"tally/internal/core/id"
	"tally/internal/domain/audit"
)

const (
	auditTable = "sys_audit"
	loginTable = "sys_login_log"
)

// CompressionAlgo specifies the compression algorithm used for a stored
// change payload.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditStore implements audit.Store on PostgreSQL.
// Change payloads above the threshold are zstd-compressed before insert;
// queries decompress transparently.
type AuditStore struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditStore creates a new audit store.
func NewAuditStore(txManager *TxManager) (*AuditStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditStore{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024, // 10KB
	}, nil
}

// Log records an audit entry.
func (s *AuditStore) Log(ctx context.Context, entry audit.Entry) error {
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}

	changes := []byte(entry.Changes)
	var compressed []byte
	algo := CompressionNone
	if len(changes) > s.compressThreshold {
		compressed = s.encoder.EncodeAll(changes, nil)
		changes = nil
		algo = CompressionZstd
	}

	sql := `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, user_id, user_email,
			changes, changes_compressed, compression_algo, metadata,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql,
		entry.ID, entry.EntityType, entry.EntityID, entry.Action,
		entry.UserID, entry.UserEmail,
		changes, compressed, algo,
		[]byte(entry.Metadata), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// Query retrieves audit entries matching the filter, newest first.
func (s *AuditStore) Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Entry, error) {
	q := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("id", "entity_type", "entity_id", "action", "user_id", "user_email",
			"changes", "changes_compressed", "compression_algo", "metadata", "created_at").
		From(auditTable).
		OrderBy("created_at DESC")

	if filter.EntityType != nil {
		q = q.Where(squirrel.Eq{"entity_type": *filter.EntityType})
	}
	if filter.EntityID != nil {
		q = q.Where(squirrel.Eq{"entity_id": *filter.EntityID})
	}
	if filter.Action != nil {
		q = q.Where(squirrel.Eq{"action": *filter.Action})
	}
	if filter.UserID != nil {
		q = q.Where(squirrel.Eq{"user_id": *filter.UserID})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.To})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return s.scanEntries(ctx, sql, args...)
}

// GetEntityHistory retrieves audit history for an entity.
func (s *AuditStore) GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	sql := `
		SELECT id, entity_type, entity_id, action, user_id, user_email,
			   changes, changes_compressed, compression_algo, metadata,
			   created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	return s.scanEntries(ctx, sql, entityType, entityID, limit)
}

func (s *AuditStore) scanEntries(ctx context.Context, sql string, args ...any) ([]audit.Entry, error) {
	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var compressed []byte
		var algo CompressionAlgo
		err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.UserID, &e.UserEmail,
			&e.Changes, &compressed, &algo, &e.Metadata, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		if algo == CompressionZstd && len(compressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(compressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress changes: %w", err)
			}
			e.Changes = decompressed
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// LoginLogStore implements audit.LoginStore on PostgreSQL.
type LoginLogStore struct {
	txManager *TxManager
}

// NewLoginLogStore creates a new login log store.
func NewLoginLogStore(txManager *TxManager) *LoginLogStore {
	return &LoginLogStore{txManager: txManager}
}

// Record inserts a login attempt.
func (s *LoginLogStore) Record(ctx context.Context, entry audit.LoginEntry) error {
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}

	sql := `
		INSERT INTO sys_login_log (id, user_id, email, ip, user_agent, success, failure, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql,
		entry.ID, entry.UserID, entry.Email, entry.IP, entry.UserAgent,
		entry.Success, entry.Failure, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert login entry: %w", err)
	}

	return nil
}

// List retrieves login attempts, newest first, optionally for one email.
func (s *LoginLogStore) List(ctx context.Context, email *string, limit, offset int) ([]audit.LoginEntry, error) {
	q := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("id", "user_id", "email", "ip", "user_agent", "success", "failure", "created_at").
		From(loginTable).
		OrderBy("created_at DESC")

	if email != nil {
		q = q.Where(squirrel.Eq{"email": *email})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query login entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.LoginEntry
	for rows.Next() {
		var e audit.LoginEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Email, &e.IP, &e.UserAgent, &e.Success, &e.Failure, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan login entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
