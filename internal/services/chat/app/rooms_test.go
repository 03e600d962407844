package server

import (
	"testing"

	"github.com/firehall/stationhouse/internal/services/chat/domain"
)

func TestJoinIsIdempotent(t *testing.T) {
	rooms := newRoomMembership()

	rooms.join("conn-1", "conversation:5")
	rooms.join("conn-1", "conversation:5")

	if got := rooms.membersOf("conversation:5"); len(got) != 1 {
		t.Fatalf("member count = %d, want 1", len(got))
	}
}

func TestLeaveAllMatchingEnforcesThreadExclusivity(t *testing.T) {
	rooms := newRoomMembership()
	rooms.join("conn-1", userRoom(7))
	rooms.join("conn-1", roleRoom(domain.RoleMedic))
	rooms.join("conn-1", "conversation:5")

	// Switching threads leaves the previous conversation but keeps the
	// user inbox and role rooms.
	rooms.leaveAllMatching("conn-1", isThreadRoom)
	rooms.join("conn-1", "group:9")

	if rooms.isMember("conn-1", "conversation:5") {
		t.Fatal("expected conn-1 to have left conversation:5")
	}
	if !rooms.isMember("conn-1", "group:9") {
		t.Fatal("expected conn-1 to be in group:9")
	}
	if !rooms.isMember("conn-1", userRoom(7)) {
		t.Fatal("user room membership must survive thread switches")
	}
	if !rooms.isMember("conn-1", roleRoom(domain.RoleMedic)) {
		t.Fatal("role room membership must survive thread switches")
	}

	room, ok := rooms.currentThreadRoom("conn-1")
	if !ok || room != "group:9" {
		t.Fatalf("current thread room = %q ok=%v, want group:9", room, ok)
	}
}

func TestLeaveAllClearsEveryRoom(t *testing.T) {
	rooms := newRoomMembership()
	rooms.join("conn-1", userRoom(7))
	rooms.join("conn-1", "conversation:5")

	rooms.leaveAll("conn-1")

	if rooms.isMember("conn-1", userRoom(7)) || rooms.isMember("conn-1", "conversation:5") {
		t.Fatal("expected conn-1 to have left all rooms")
	}
	if _, ok := rooms.currentThreadRoom("conn-1"); ok {
		t.Fatal("expected no thread room after leaveAll")
	}
}

func TestEnsurePrivilegedMembershipJoinsSuperusers(t *testing.T) {
	registry := newConnRegistry()
	registry.register("conn-su", testPrincipal(1, domain.RoleSuperuser), nil)
	registry.register("conn-vol", testPrincipal(2, domain.RoleVolunteer), nil)

	rooms := newRoomMembership()
	rooms.ensurePrivilegedMembership("conversation:5", registry)

	if !rooms.isMember("conn-su", "conversation:5") {
		t.Fatal("expected superuser connection in the thread room")
	}
	if rooms.isMember("conn-vol", "conversation:5") {
		t.Fatal("volunteer must not be auto-joined")
	}
}

func TestEnsurePrivilegedMembershipSkipsUserRooms(t *testing.T) {
	registry := newConnRegistry()
	registry.register("conn-su", testPrincipal(1, domain.RoleSuperuser), nil)

	rooms := newRoomMembership()
	rooms.ensurePrivilegedMembership(userRoom(2), registry)

	if rooms.isMember("conn-su", userRoom(2)) {
		t.Fatal("user inbox rooms must not gain privileged members")
	}
}
