// Package storage defines the persistence contracts consumed by the chat
// service: conversation lookup/creation, message persistence, and the role
// roster that feeds role-group conversations.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested conversation or message is missing.
	ErrNotFound = errors.New("record not found")
)

// ConversationKind identifies one conversation shape.
type ConversationKind string

const (
	// ConversationKindDirect is a two-party conversation.
	ConversationKindDirect ConversationKind = "direct"
	// ConversationKindRole is the broadcast conversation of one role.
	ConversationKindRole ConversationKind = "role"
	// ConversationKindGroup is an ad-hoc multi-party conversation.
	ConversationKindGroup ConversationKind = "group"
)

// ConversationRecord stores one conversation row.
type ConversationRecord struct {
	ID        int64
	Kind      ConversationKind
	RoleName  string
	CreatedAt time.Time
}

// MessageRecord stores one persisted chat message.
type MessageRecord struct {
	ID             int64
	ConversationID int64
	SenderID       int64
	Content        string
	SentAt         time.Time
}

// ConversationStore resolves and creates conversations.
type ConversationStore interface {
	// FindOrCreateDirect returns the conversation between two users,
	// creating it on first use. The pair is unordered: (a,b) and (b,a)
	// resolve to the same conversation.
	FindOrCreateDirect(ctx context.Context, userA, userB int64) (int64, error)
	// FindOrCreateRoleGroup returns the broadcast conversation of a role,
	// creating it on first use with every rostered member of that role as
	// a participant.
	FindOrCreateRoleGroup(ctx context.Context, role string) (int64, error)
	// Conversation loads one conversation, or ErrNotFound.
	Conversation(ctx context.Context, id int64) (ConversationRecord, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
	// PersistMessage durably stores one message and returns the stored
	// record. Callers must not announce a message before this returns.
	PersistMessage(ctx context.Context, conversationID, senderID int64, content string) (MessageRecord, error)
}

// RoleRoster records which users hold which roles, so role-group
// conversations can enroll members who are currently offline.
type RoleRoster interface {
	UpsertRosterEntry(ctx context.Context, userID int64, role string) error
}
