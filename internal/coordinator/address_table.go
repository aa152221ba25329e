package coordinator

import (
	"sync"

	"github.com/dreamware/terrastore/internal/cluster"
)

// AddressTable publishes and resolves node reachability within a local
// cluster (spec §4.10: "publish its address to the shared address table").
// Implementations must be safe for concurrent use.
type AddressTable interface {
	// Publish records addr as the current reachability info for its ID.
	Publish(addr cluster.NodeAddress)

	// Lookup returns the published address for id, if any.
	Lookup(id string) (cluster.NodeAddress, bool)

	// All returns every currently published address, for answering a
	// remote cluster's Membership poll (spec §4.9) about this local
	// cluster's members.
	All() []cluster.NodeAddress
}

// MemoryAddressTable is an in-process AddressTable: sufficient for a single
// binary hosting several local nodes, and the table cmd/terrastore-node's
// HTTP handlers (POST /cluster/publish) write into for genuinely remote
// processes.
type MemoryAddressTable struct {
	mu    sync.RWMutex
	addrs map[string]cluster.NodeAddress
}

// NewMemoryAddressTable creates an empty MemoryAddressTable.
func NewMemoryAddressTable() *MemoryAddressTable {
	return &MemoryAddressTable{addrs: make(map[string]cluster.NodeAddress)}
}

// Publish implements AddressTable.
func (t *MemoryAddressTable) Publish(addr cluster.NodeAddress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addrs[addr.ID] = addr
}

// Lookup implements AddressTable.
func (t *MemoryAddressTable) Lookup(id string) (cluster.NodeAddress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	addr, ok := t.addrs[id]
	return addr, ok
}

// All implements AddressTable.
func (t *MemoryAddressTable) All() []cluster.NodeAddress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]cluster.NodeAddress, 0, len(t.addrs))
	for _, addr := range t.addrs {
		out = append(out, addr)
	}
	return out
}
