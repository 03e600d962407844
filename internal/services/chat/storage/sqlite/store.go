// Package sqlite provides SQLite-backed persistence for chat conversations,
// messages, and the role roster.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/firehall/stationhouse/internal/platform/storage/sqlitemigrate"
	"github.com/firehall/stationhouse/internal/services/chat/storage"
	"github.com/firehall/stationhouse/internal/services/chat/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for chat state.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a chat SQLite store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensureForeignKeysEnabled(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) runMigrations() error {
	return sqlitemigrate.ApplyMigrations(s.sqlDB, migrations.FS, "")
}

func ensureForeignKeysEnabled(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("sqlite db is required")
	}
	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}

// FindOrCreateDirect returns the conversation between two users, creating it
// on first use. The pair is normalized so argument order does not matter.
func (s *Store) FindOrCreateDirect(ctx context.Context, userA, userB int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if userA <= 0 || userB <= 0 {
		return 0, fmt.Errorf("user ids must be positive")
	}

	low, high := userA, userB
	if low > high {
		low, high = high, low
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin direct conversation tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var id int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM conversations WHERE kind = ? AND user_low = ? AND user_high = ?",
		storage.ConversationKindDirect, low, high,
	).Scan(&id)
	if err == nil {
		return id, tx.Commit()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find direct conversation: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		"INSERT INTO conversations (kind, user_low, user_high, created_at) VALUES (?, ?, ?, ?)",
		storage.ConversationKindDirect, low, high, toMillis(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("create direct conversation: %w", err)
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read direct conversation id: %w", err)
	}

	for _, participant := range []int64{low, high} {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO conversation_participants (conversation_id, user_id) VALUES (?, ?)",
			id, participant,
		); err != nil {
			return 0, fmt.Errorf("enroll direct participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit direct conversation: %w", err)
	}
	return id, nil
}

// FindOrCreateRoleGroup returns the broadcast conversation of a role,
// creating it on first use with every rostered member as a participant.
func (s *Store) FindOrCreateRoleGroup(ctx context.Context, role string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	role = strings.TrimSpace(role)
	if role == "" {
		return 0, fmt.Errorf("role is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin role conversation tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var id int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM conversations WHERE kind = ? AND role_name = ?",
		storage.ConversationKindRole, role,
	).Scan(&id)
	if err == nil {
		return id, tx.Commit()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find role conversation: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		"INSERT INTO conversations (kind, role_name, created_at) VALUES (?, ?, ?)",
		storage.ConversationKindRole, role, toMillis(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("create role conversation: %w", err)
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read role conversation id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO conversation_participants (conversation_id, user_id) SELECT ?, user_id FROM role_roster WHERE role = ?",
		id, role,
	); err != nil {
		return 0, fmt.Errorf("enroll role participants: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit role conversation: %w", err)
	}
	return id, nil
}

// Conversation loads one conversation row, or storage.ErrNotFound.
func (s *Store) Conversation(ctx context.Context, id int64) (storage.ConversationRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ConversationRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ConversationRecord{}, fmt.Errorf("storage is not configured")
	}

	var record storage.ConversationRecord
	var roleName sql.NullString
	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT id, kind, role_name, created_at FROM conversations WHERE id = ?", id,
	).Scan(&record.ID, &record.Kind, &roleName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ConversationRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.ConversationRecord{}, fmt.Errorf("load conversation: %w", err)
	}
	record.RoleName = roleName.String
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

// PersistMessage durably stores one message and returns the stored record.
func (s *Store) PersistMessage(ctx context.Context, conversationID, senderID int64, content string) (storage.MessageRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.MessageRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.MessageRecord{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(content) == "" {
		return storage.MessageRecord{}, fmt.Errorf("message content is required")
	}

	if _, err := s.Conversation(ctx, conversationID); err != nil {
		return storage.MessageRecord{}, err
	}

	sentAt := time.Now().UTC()
	result, err := s.sqlDB.ExecContext(ctx,
		"INSERT INTO messages (conversation_id, sender_id, content, sent_at) VALUES (?, ?, ?, ?)",
		conversationID, senderID, content, toMillis(sentAt),
	)
	if err != nil {
		return storage.MessageRecord{}, fmt.Errorf("persist message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.MessageRecord{}, fmt.Errorf("read message id: %w", err)
	}

	return storage.MessageRecord{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		SentAt:         fromMillis(toMillis(sentAt)),
	}, nil
}

// UpsertRosterEntry records that a user holds a role.
func (s *Store) UpsertRosterEntry(ctx context.Context, userID int64, role string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	role = strings.TrimSpace(role)
	if userID <= 0 || role == "" {
		return fmt.Errorf("user id and role are required")
	}

	_, err := s.sqlDB.ExecContext(ctx,
		"INSERT INTO role_roster (user_id, role, updated_at) VALUES (?, ?, ?) ON CONFLICT(user_id, role) DO UPDATE SET updated_at = excluded.updated_at",
		userID, role, toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upsert roster entry: %w", err)
	}
	return nil
}
