package server

import (
	"fmt"
	"strings"
	"sync"

	"github.com/firehall/stationhouse/internal/services/chat/domain"
)

// Rooms are plain strings in three shapes: "user:<id>" (private inbox),
// "role:<name>" (broadcast group), and "conversation:<id>"/"group:<id>"
// (thread). Membership is transient and rebuilt per connection lifetime.

func userRoom(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func roleRoom(role domain.Role) string {
	return fmt.Sprintf("role:%s", role)
}

func conversationRoom(conversationID int64, group bool) string {
	if group {
		return fmt.Sprintf("group:%d", conversationID)
	}
	return fmt.Sprintf("conversation:%d", conversationID)
}

func isThreadRoom(room string) bool {
	return strings.HasPrefix(room, "conversation:") || strings.HasPrefix(room, "group:")
}

func isRoleRoom(room string) bool {
	return strings.HasPrefix(room, "role:")
}

// roomMembership maps rooms to connection ids and back. All mutations are
// guarded by one mutex per instance.
type roomMembership struct {
	mu      sync.Mutex
	members map[string]map[string]struct{}
	joined  map[string]map[string]struct{}
}

func newRoomMembership() *roomMembership {
	return &roomMembership{
		members: make(map[string]map[string]struct{}),
		joined:  make(map[string]map[string]struct{}),
	}
}

// join adds the connection to a room. Joining twice is a no-op.
func (m *roomMembership) join(connID, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joinLocked(connID, room)
}

func (m *roomMembership) joinLocked(connID, room string) {
	if m.members[room] == nil {
		m.members[room] = make(map[string]struct{})
	}
	m.members[room][connID] = struct{}{}
	if m.joined[connID] == nil {
		m.joined[connID] = make(map[string]struct{})
	}
	m.joined[connID][room] = struct{}{}
}

// leaveAllMatching removes the connection from every room the predicate
// selects. Used for thread exclusivity: a connection observes at most one
// conversation/group room at a time, but any number of role rooms.
func (m *roomMembership) leaveAllMatching(connID string, predicate func(string) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for room := range m.joined[connID] {
		if !predicate(room) {
			continue
		}
		delete(m.joined[connID], room)
		if members, ok := m.members[room]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(m.members, room)
			}
		}
	}
}

// leaveAll removes the connection from every room it joined.
func (m *roomMembership) leaveAll(connID string) {
	m.leaveAllMatching(connID, func(string) bool { return true })
	m.mu.Lock()
	delete(m.joined, connID)
	m.mu.Unlock()
}

// membersOf returns the connection ids currently in the room.
func (m *roomMembership) membersOf(room string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.members[room]))
	for id := range m.members[room] {
		ids = append(ids, id)
	}
	return ids
}

// isMember reports whether the connection is currently in the room.
func (m *roomMembership) isMember(connID, room string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.members[room][connID]
	return ok
}

// currentThreadRoom returns the conversation/group room the connection is
// observing, if any.
func (m *roomMembership) currentThreadRoom(connID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for room := range m.joined[connID] {
		if isThreadRoom(room) {
			return room, true
		}
	}
	return "", false
}

// ensurePrivilegedMembership joins every registered superuser connection to
// the room. It runs when a role or thread room is first used and again on
// each dispatch, covering superusers who connected after the room was
// created. User inbox rooms are excluded: superusers receive tagged copies
// of direct traffic through the fan-out router instead.
func (m *roomMembership) ensurePrivilegedMembership(room string, registry *connRegistry) {
	if !isThreadRoom(room) && !isRoleRoom(room) {
		return
	}

	for _, conn := range registry.snapshot() {
		if !conn.principal.IsSuperuser() {
			continue
		}
		m.mu.Lock()
		m.joinLocked(conn.id, room)
		m.mu.Unlock()
	}
}
