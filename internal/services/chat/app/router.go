package server

import (
	"bytes"
	"context"
	stderrors "errors"
	"strconv"
	"unicode/utf8"

	"github.com/firehall/stationhouse/internal/platform/errors"
	"github.com/firehall/stationhouse/internal/services/chat/domain"
	"github.com/firehall/stationhouse/internal/services/chat/storage"
)

// fanoutRouter runs every sendMessage through the same pipeline:
// validate, resolve the target conversation, persist, broadcast to room
// members, then deliver tagged copies to superusers outside the room.
// Persistence always completes before the first copy leaves the process, so
// a delivered message is always a stored message.
type fanoutRouter struct {
	registry      *connRegistry
	rooms         *roomMembership
	conversations storage.ConversationStore
	messages      storage.MessageStore
}

func newFanoutRouter(registry *connRegistry, rooms *roomMembership, conversations storage.ConversationStore, messages storage.MessageStore) *fanoutRouter {
	return &fanoutRouter{
		registry:      registry,
		rooms:         rooms,
		conversations: conversations,
		messages:      messages,
	}
}

// dispatch validates, persists, and fans out one outbound message.
func (r *fanoutRouter) dispatch(ctx context.Context, sender domain.Principal, payload sendMessagePayload) error {
	content := payload.Message
	if content == "" {
		return errors.New(errors.CodeMessageEmpty, "message content is required")
	}
	if utf8.RuneCountInString(content) > maxMessageBodyRunes {
		return errors.New(errors.CodeMessageTooLong, "message must be at most 2000 characters")
	}

	conversationID, targetRooms, err := r.resolveTarget(ctx, sender, payload)
	if err != nil {
		return err
	}

	record, err := r.messages.PersistMessage(ctx, conversationID, sender.ID, content)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.Wrap(errors.CodeConversationNotFound, "conversation not found", err)
		}
		return errors.Wrap(errors.CodePersistenceFailed, "persist message", err)
	}

	delivered := make(map[string]struct{})
	for _, room := range targetRooms {
		r.rooms.ensurePrivilegedMembership(room, r.registry)
		for _, connID := range r.rooms.membersOf(room) {
			if _, done := delivered[connID]; done {
				continue
			}
			delivered[connID] = struct{}{}
			r.deliver(connID, record, sender.ID, false)
		}
	}

	// Superusers see everything. Any superuser connection the room fan-out
	// missed gets a copy tagged so the client can render it as oversight
	// traffic rather than addressed mail.
	for _, conn := range r.registry.snapshot() {
		if !conn.principal.IsSuperuser() {
			continue
		}
		if _, done := delivered[conn.id]; done {
			continue
		}
		delivered[conn.id] = struct{}{}
		r.deliver(conn.id, record, sender.ID, true)
	}

	return nil
}

// resolveTarget maps a payload to its conversation id and broadcast rooms.
// Exactly one of Role, IsGroup, or a direct recipient applies; role wins
// over the group flag when both are set.
func (r *fanoutRouter) resolveTarget(ctx context.Context, sender domain.Principal, payload sendMessagePayload) (int64, []string, error) {
	if payload.Role != "" {
		role, err := domain.ParseRole(payload.Role)
		if err != nil {
			return 0, nil, errors.Wrap(errors.CodeMessageTargetInvalid, "unknown role target", err)
		}
		conversationID, err := r.conversations.FindOrCreateRoleGroup(ctx, string(role))
		if err != nil {
			return 0, nil, errors.Wrap(errors.CodePersistenceFailed, "resolve role conversation", err)
		}
		return conversationID, []string{roleRoom(role), userRoom(sender.ID)}, nil
	}

	targetID, err := parseTargetID(payload.To)
	if err != nil {
		return 0, nil, errors.Wrap(errors.CodeMessageTargetInvalid, "invalid message target", err)
	}

	if payload.IsGroup {
		if _, err := r.conversations.Conversation(ctx, targetID); err != nil {
			if stderrors.Is(err, storage.ErrNotFound) {
				return 0, nil, errors.Wrap(errors.CodeConversationNotFound, "conversation not found", err)
			}
			return 0, nil, errors.Wrap(errors.CodePersistenceFailed, "load conversation", err)
		}
		return targetID, []string{conversationRoom(targetID, true), userRoom(sender.ID)}, nil
	}

	conversationID, err := r.conversations.FindOrCreateDirect(ctx, sender.ID, targetID)
	if err != nil {
		return 0, nil, errors.Wrap(errors.CodePersistenceFailed, "resolve direct conversation", err)
	}
	return conversationID, []string{userRoom(targetID), userRoom(sender.ID)}, nil
}

func (r *fanoutRouter) deliver(connID string, record storage.MessageRecord, senderID int64, superuserCopy bool) {
	conn, ok := r.registry.connection(connID)
	if !ok {
		return
	}
	_ = conn.peer.writeFrame(wsFrame{
		Type: eventNewMessage,
		Payload: mustJSON(newMessagePayload{
			ID:              record.ID,
			Content:         record.Content,
			SenderID:        record.SenderID,
			ConversationID:  record.ConversationID,
			SentAt:          record.SentAt,
			IsOwn:           conn.principal.ID == senderID,
			IsSuperuserCopy: superuserCopy,
		}),
	})
}

// parseTargetID accepts the id as a JSON number or a numeric string.
func parseTargetID(raw []byte) (int64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0, stderrors.New("missing id")
	}
	trimmed = bytes.Trim(trimmed, `"`)
	id, err := strconv.ParseInt(string(trimmed), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, stderrors.New("id must be positive")
	}
	return id, nil
}
