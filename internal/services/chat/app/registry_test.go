package server

import (
	"testing"

	"github.com/firehall/stationhouse/internal/services/chat/domain"
)

func testPrincipal(id int64, roles ...domain.Role) domain.Principal {
	return domain.Principal{ID: id, Name: "user", Roles: roles}
}

func TestRegisterReportsFirstConnectionPerUser(t *testing.T) {
	registry := newConnRegistry()

	if first := registry.register("conn-1", testPrincipal(7), nil); !first {
		t.Fatal("expected first connection for user 7")
	}
	if first := registry.register("conn-2", testPrincipal(7), nil); first {
		t.Fatal("second tab must not report a first connection")
	}
	if first := registry.register("conn-3", testPrincipal(8), nil); !first {
		t.Fatal("expected first connection for user 8")
	}
}

func TestUnregisterReportsLastConnectionPerUser(t *testing.T) {
	registry := newConnRegistry()
	registry.register("conn-1", testPrincipal(7), nil)
	registry.register("conn-2", testPrincipal(7), nil)

	principal, existed, last := registry.unregister("conn-1")
	if !existed {
		t.Fatal("expected conn-1 to exist")
	}
	if last {
		t.Fatal("user still has conn-2 open, not the last connection")
	}
	if principal.ID != 7 {
		t.Fatalf("principal id = %d, want 7", principal.ID)
	}

	_, existed, last = registry.unregister("conn-2")
	if !existed || !last {
		t.Fatalf("existed=%v last=%v, want true/true", existed, last)
	}
}

func TestUnregisterUnknownConnectionIsNoOp(t *testing.T) {
	registry := newConnRegistry()

	_, existed, last := registry.unregister("ghost")
	if existed || last {
		t.Fatalf("existed=%v last=%v, want false/false", existed, last)
	}
}

func TestOnlineUserIDsDeduplicatesTabs(t *testing.T) {
	registry := newConnRegistry()
	registry.register("conn-1", testPrincipal(7), nil)
	registry.register("conn-2", testPrincipal(7), nil)
	registry.register("conn-3", testPrincipal(3), nil)

	got := registry.onlineUserIDs()
	want := []int64{3, 7}
	if len(got) != len(want) {
		t.Fatalf("online users = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("online users = %v, want %v", got, want)
		}
	}
}
