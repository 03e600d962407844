package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/firehall/stationhouse/internal/platform/errors"
	"github.com/firehall/stationhouse/internal/services/chat/domain"
	"github.com/firehall/stationhouse/internal/services/chat/storage"
)

// NewHandler creates the chat HTTP routes: /up for health probes and /ws
// for the websocket endpoint. Token verification happens inside the socket
// handshake so rejected clients receive an error frame before the close,
// not a bare HTTP status.
func NewHandler(verifier TokenVerifier, conversations storage.ConversationStore, messages storage.MessageStore, roster storage.RoleRoster) http.Handler {
	hub := newChatHub(conversations, messages, roster)

	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, hub, verifier)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

// chatHub bundles the per-server state every connection shares.
type chatHub struct {
	registry      *connRegistry
	rooms         *roomMembership
	presence      *presenceNotifier
	router        *fanoutRouter
	conversations storage.ConversationStore
	roster        storage.RoleRoster
}

func newChatHub(conversations storage.ConversationStore, messages storage.MessageStore, roster storage.RoleRoster) *chatHub {
	hub := &chatHub{
		registry:      newConnRegistry(),
		rooms:         newRoomMembership(),
		conversations: conversations,
		roster:        roster,
	}
	hub.presence = newPresenceNotifier(hub.broadcastAll)
	hub.router = newFanoutRouter(hub.registry, hub.rooms, conversations, messages)
	return hub
}

// broadcastAll writes a frame to every live connection.
func (h *chatHub) broadcastAll(frame wsFrame) {
	for _, conn := range h.registry.snapshot() {
		_ = conn.peer.writeFrame(frame)
	}
}

// accessTokenFromRequest resolves the session token from the auth cookie,
// the Authorization header, or the token query parameter, in that order.
// The query fallback exists for browser WebSocket clients, which cannot set
// headers on the upgrade request.
func accessTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if cookie, err := r.Cookie(tokenCookieName); err == nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token
		}
	}
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if token, ok := strings.CutPrefix(authorization, "Bearer "); ok {
		if token = strings.TrimSpace(token); token != "" {
			return token
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func handleWSConn(conn *websocket.Conn, hub *chatHub, verifier TokenVerifier) {
	defer func() {
		_ = conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	peer := newWSPeer(json.NewEncoder(conn))

	ctx := context.Background()
	var token, remote string
	if request := conn.Request(); request != nil {
		ctx = request.Context()
		token = accessTokenFromRequest(request)
		remote = request.RemoteAddr
	}

	principal, err := verifier.Verify(ctx, token)
	if err != nil {
		log.Printf("chat: websocket unauthorized remote=%q err=%v", remote, err)
		_ = peer.writeFrame(wsFrame{
			Type: eventError,
			Payload: mustJSON(errorPayload{
				Message: "authentication required",
				Error:   string(errors.CodeOf(err)),
			}),
		})
		return
	}

	connID := uuid.NewString()
	first := hub.registry.register(connID, principal, peer)
	defer func() {
		hub.rooms.leaveAll(connID)
		_, existed, last := hub.registry.unregister(connID)
		hub.presence.connectionClosed(principal.ID, existed, last)
	}()

	// Keep the role roster current so role conversations created later
	// enroll this user. A write failure degrades roster freshness only, so
	// it is logged rather than aborting the connection.
	for _, role := range principal.Roles {
		if err := hub.roster.UpsertRosterEntry(ctx, principal.ID, string(role)); err != nil {
			log.Printf("chat: roster upsert failed user=%d role=%s err=%v", principal.ID, role, err)
		}
	}

	hub.rooms.join(connID, userRoom(principal.ID))
	for _, role := range principal.Roles {
		hub.rooms.join(connID, roleRoom(role))
	}
	if principal.IsSuperuser() {
		for _, role := range domain.KnownRoles() {
			hub.rooms.join(connID, roleRoom(role))
		}
	}

	_ = peer.writeFrame(wsFrame{
		Type: eventConnected,
		Payload: mustJSON(connectedPayload{
			ClientID: connID,
			UserID:   principal.ID,
		}),
	})
	_ = peer.writeFrame(wsFrame{
		Type: eventOnlineUsers,
		Payload: mustJSON(onlineUsersPayload{
			UserIDs: hub.registry.onlineUserIDs(),
		}),
	})
	hub.presence.connectionOpened(principal.ID, first)

	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if stderrors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeAck(peer, "", false, "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0
		hub.registry.touch(connID)

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeAck(peer, frame.RequestID, false, "payload too large")
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			_ = writeAck(peer, frame.RequestID, false, "rate limit exceeded")
			return
		}

		switch frame.Type {
		case eventJoinConversation:
			handleJoinConversation(ctx, hub, connID, peer, frame)
		case eventSendMessage:
			handleSendMessage(ctx, hub, connID, principal, peer, frame)
		case eventTyping:
			handleTyping(hub, connID, principal, frame)
		default:
			_ = writeAck(peer, frame.RequestID, false, "unsupported frame type")
		}
	}
}

// handleJoinConversation switches the connection onto a conversation or
// group room. Threads are exclusive: joining one leaves any previous
// conversation/group room, while role and user rooms are untouched.
func handleJoinConversation(ctx context.Context, hub *chatHub, connID string, peer *wsPeer, frame wsFrame) {
	var payload joinConversationPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeAck(peer, frame.RequestID, false, "invalid join payload")
		return
	}

	conversationID, err := parseTargetID(payload.ConversationID)
	if err != nil {
		_ = writeAck(peer, frame.RequestID, false, "conversationId is required")
		return
	}
	if _, err := hub.conversations.Conversation(ctx, conversationID); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			_ = writeAck(peer, frame.RequestID, false, "conversation not found")
			return
		}
		log.Printf("chat: conversation lookup failed id=%d err=%v", conversationID, err)
		_ = writeAck(peer, frame.RequestID, false, "conversation lookup failed")
		return
	}

	room := conversationRoom(conversationID, payload.IsGroup)
	hub.rooms.leaveAllMatching(connID, isThreadRoom)
	hub.rooms.join(connID, room)
	hub.rooms.ensurePrivilegedMembership(room, hub.registry)

	_ = writeAck(peer, frame.RequestID, true, "")
}

func handleSendMessage(ctx context.Context, hub *chatHub, connID string, principal domain.Principal, peer *wsPeer, frame wsFrame) {
	var payload sendMessagePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeAck(peer, frame.RequestID, false, "invalid send payload")
		return
	}

	if err := hub.router.dispatch(ctx, principal, payload); err != nil {
		message := "internal error"
		if code := errors.CodeOf(err); code != errors.CodeUnknown {
			message = err.Error()
		}
		log.Printf("chat: send failed conn=%s user=%d err=%v", connID, principal.ID, err)
		_ = writeAck(peer, frame.RequestID, false, message)
		return
	}

	_ = writeAck(peer, frame.RequestID, true, "")
}

// handleTyping relays a typing indicator to the other members of the
// sender's current thread room. Identity fields are stamped from the
// verified principal; whatever the client sent there is discarded.
func handleTyping(hub *chatHub, connID string, principal domain.Principal, frame wsFrame) {
	var payload typingPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		return
	}
	payload.UserID = principal.ID
	payload.Username = principal.Name

	room, ok := hub.rooms.currentThreadRoom(connID)
	if !ok {
		return
	}

	relay := wsFrame{Type: eventTyping, Payload: mustJSON(payload)}
	for _, memberID := range hub.rooms.membersOf(room) {
		if memberID == connID {
			continue
		}
		if member, ok := hub.registry.connection(memberID); ok {
			_ = member.peer.writeFrame(relay)
		}
	}
}

func writeAck(peer *wsPeer, requestID string, success bool, errorMessage string) error {
	return peer.writeFrame(wsFrame{
		Type:      eventAck,
		RequestID: requestID,
		Payload: mustJSON(ackPayload{
			Success: success,
			Error:   errorMessage,
		}),
	})
}
