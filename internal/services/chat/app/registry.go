package server

import (
	"sort"
	"sync"
	"time"

	"github.com/firehall/stationhouse/internal/services/chat/domain"
)

// connection is one live transport connection and its authenticated identity.
type connection struct {
	id        string
	principal domain.Principal
	peer      *wsPeer
	lastSeen  time.Time
}

// connRegistry tracks live connections keyed by connection id.
//
// It is built from zero on process start and owns no persistent state. One
// registry exists per server; it is passed by reference to the components
// that need it rather than living in package-level state.
type connRegistry struct {
	mu    sync.Mutex
	conns map[string]*connection
}

func newConnRegistry() *connRegistry {
	return &connRegistry{conns: make(map[string]*connection)}
}

// register stores a verified connection and reports whether it is the user's
// first live connection. The transition is computed under the registry lock
// so two tabs connecting at once cannot both read a stale snapshot.
func (r *connRegistry) register(id string, principal domain.Principal, peer *wsPeer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	first := true
	for _, conn := range r.conns {
		if conn.principal.ID == principal.ID {
			first = false
			break
		}
	}
	r.conns[id] = &connection{
		id:        id,
		principal: principal,
		peer:      peer,
		lastSeen:  time.Now(),
	}
	return first
}

// unregister removes a connection. It reports the principal, whether the
// entry still existed, and whether the user now has zero live connections.
// Removing an already-removed connection is a safe no-op: disconnect events
// may race cleanup.
func (r *connRegistry) unregister(id string) (domain.Principal, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok {
		return domain.Principal{}, false, false
	}
	delete(r.conns, id)

	for _, other := range r.conns {
		if other.principal.ID == conn.principal.ID {
			return conn.principal, true, false
		}
	}
	return conn.principal, true, true
}

// touch refreshes the connection's last-seen time.
func (r *connRegistry) touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.conns[id]; ok {
		conn.lastSeen = time.Now()
	}
}

// connection returns the live connection for id, if registered.
func (r *connRegistry) connection(id string) (*connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// onlineUserIDs returns the deduplicated ids of all connected users,
// ascending.
func (r *connRegistry) onlineUserIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int64]struct{}, len(r.conns))
	for _, conn := range r.conns {
		seen[conn.principal.ID] = struct{}{}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// snapshot returns the current connections. The expected connection count is
// a single station's volunteers, so callers scan it linearly.
func (r *connRegistry) snapshot() []*connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := make([]*connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}
