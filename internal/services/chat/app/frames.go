package server

import (
	"encoding/json"
	"log"
	"time"
)

// Wire protocol: every frame is a JSON object with a type, an optional
// request id echoed back on acks, and a type-specific payload.
const (
	eventConnected        = "connected"
	eventUserStatus       = "userStatus"
	eventOnlineUsers      = "onlineUsers"
	eventJoinConversation = "joinConversation"
	eventSendMessage      = "sendMessage"
	eventNewMessage       = "newMessage"
	eventTyping           = "typing"
	eventError            = "error"
	eventAck              = "ack"
)

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type connectedPayload struct {
	ClientID string `json:"clientId"`
	UserID   int64  `json:"userId"`
}

type userStatusPayload struct {
	UserID int64  `json:"userId"`
	Status string `json:"status"`
}

type onlineUsersPayload struct {
	UserIDs []int64 `json:"userIds"`
}

// joinConversationPayload keeps ConversationID raw so clients may send the
// id as a JSON number or a numeric string.
type joinConversationPayload struct {
	ConversationID json.RawMessage `json:"conversationId"`
	IsGroup        bool            `json:"isGroup"`
}

type sendMessagePayload struct {
	To      json.RawMessage `json:"to,omitempty"`
	Role    string          `json:"role,omitempty"`
	Message string          `json:"message"`
	IsGroup bool            `json:"isGroup,omitempty"`
}

type newMessagePayload struct {
	ID              int64     `json:"id"`
	Content         string    `json:"content"`
	SenderID        int64     `json:"senderId"`
	ConversationID  int64     `json:"conversationId"`
	SentAt          time.Time `json:"sentAt"`
	IsOwn           bool      `json:"isOwn"`
	IsSuperuserCopy bool      `json:"isSuperuserCopy,omitempty"`
}

type typingPayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
	IsGroup  bool   `json:"isGroup,omitempty"`
}

type ackPayload struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("chat: failed to marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}
