package membership

import (
	"sync"

	"github.com/dreamware/terrastore/internal/cluster"
)

// StaticMembership is a GroupMembership driven by explicit Join/Leave calls
// rather than a gossip protocol: seeded from a fixed initial node list (spec
// §6's config surface, or an operator CLI) and thereafter mutated by
// whatever drives it — a config reload, an admin command, or a test.
//
// Grounded on internal/coordinator/health_monitor.go's
// SetOnUnhealthy/onUnhealthy single-callback pattern, generalized to
// multiple registered callbacks and both join and leave transitions.
type StaticMembership struct {
	mu       sync.Mutex
	members  map[string]cluster.NodeAddress
	joinCbs  []func(cluster.NodeAddress)
	leaveCbs []func(id string)
}

// NewStaticMembership creates a StaticMembership seeded with initial.
func NewStaticMembership(initial []cluster.NodeAddress) *StaticMembership {
	m := &StaticMembership{members: make(map[string]cluster.NodeAddress, len(initial))}
	for _, addr := range initial {
		m.members[addr.ID] = addr
	}
	return m
}

// CurrentMembers returns the IDs of every member currently known.
func (m *StaticMembership) CurrentMembers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.members))
	for id := range m.members {
		out = append(out, id)
	}
	return out
}

// OnJoin registers cb and immediately replays every currently known member
// through it, so a late subscriber observes the members present at
// registration time exactly as if each had just joined.
func (m *StaticMembership) OnJoin(cb func(cluster.NodeAddress)) {
	m.mu.Lock()
	existing := make([]cluster.NodeAddress, 0, len(m.members))
	for _, addr := range m.members {
		existing = append(existing, addr)
	}
	m.joinCbs = append(m.joinCbs, cb)
	m.mu.Unlock()

	for _, addr := range existing {
		cb(addr)
	}
}

// OnLeave registers cb to be invoked on every future Leave call.
func (m *StaticMembership) OnLeave(cb func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveCbs = append(m.leaveCbs, cb)
}

// Join adds addr to the member set and notifies every registered join
// callback. Joining an already-known ID replaces its address and is still
// announced, since the address itself (host/port) may have changed.
func (m *StaticMembership) Join(addr cluster.NodeAddress) {
	m.mu.Lock()
	m.members[addr.ID] = addr
	cbs := append([]func(cluster.NodeAddress){}, m.joinCbs...)
	m.mu.Unlock()

	for _, cb := range cbs {
		cb(addr)
	}
}

// Leave removes id from the member set and notifies every registered leave
// callback. Leaving an unknown ID is not an error; callbacks still fire, so
// a Coordinator can treat it as idempotent cleanup.
func (m *StaticMembership) Leave(id string) {
	m.mu.Lock()
	delete(m.members, id)
	cbs := append([]func(string){}, m.leaveCbs...)
	m.mu.Unlock()

	for _, cb := range cbs {
		cb(id)
	}
}
