// Package ring implements the ClusterPartitioner (spec §4.2): a fixed-size
// slot ring that maps a bucket, or a bucket+key pair, to exactly one node
// within a single cluster.
//
// One Ring exists per cluster. Unlike a consistent-hashing ring with
// virtual nodes, Ring uses simple modulo slot assignment and rebuilds the
// entire slot array on every membership change — spec §4.2 chooses this
// deliberately over minimal-remap schemes because lookup snapshots are
// already invalidated on every change, so minimizing remap cost buys
// nothing here.
//
// The assignment map + RWMutex + O(n) rebuild idiom is grounded on
// coordinator.ShardRegistry; RebalanceShards' round-robin-over-sorted-nodes
// loop becomes Ring's slot[i] = members[i % len(members)] rebuild.
package ring

import (
	"sort"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/dreamware/terrastore/internal/errs"
	"github.com/dreamware/terrastore/internal/hashfunc"
)

// DefaultMaxPartitions is the slot count used when a cluster's
// configuration does not override it (spec §4.2).
const DefaultMaxPartitions = 1024

// Ring is the per-cluster partitioning ring. The zero value is not usable;
// construct with New.
type Ring struct {
	mu            sync.RWMutex
	maxPartitions int
	members       []string // sorted, unique
	slots         []string // length maxPartitions, slots[i] = members[i % len(members)]
}

// New creates an empty Ring with the given slot count. A maxPartitions <= 0
// falls back to DefaultMaxPartitions.
func New(maxPartitions int) *Ring {
	if maxPartitions <= 0 {
		maxPartitions = DefaultMaxPartitions
	}
	return &Ring{maxPartitions: maxPartitions}
}

// AddNode inserts name into the ring's member set and rebuilds the slot
// array under an exclusive lock. Adding an already-present name is a no-op
// rebuild (idempotent).
func (r *Ring) AddNode(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m == name {
			return
		}
	}
	r.members = append(r.members, name)
	sort.Strings(r.members)
	r.rebuild()
}

// RemoveNode removes name from the ring's member set and rebuilds the slot
// array. Removing an absent name is a no-op.
func (r *Ring) RemoveNode(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, m := range r.members {
		if m == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	r.members = append(r.members[:idx], r.members[idx+1:]...)
	r.rebuild()
}

// rebuild recomputes the slot array from the sorted member list. Callers
// must hold the write lock. O(maxPartitions) regardless of member count.
func (r *Ring) rebuild() {
	if len(r.members) == 0 {
		r.slots = nil
		return
	}
	slots := make([]string, r.maxPartitions)
	for i := range slots {
		slots[i] = r.members[i%len(r.members)]
	}
	r.slots = slots
}

// LookupBucket returns the node owning bucket, or MissingRoute if the ring
// has no members.
func (r *Ring) LookupBucket(bucket string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.slots) == 0 {
		return "", errs.NewMissingRoute("ring has no members for bucket %q", bucket)
	}
	idx := int(hashfunc.Hash([]byte(bucket))) % r.maxPartitions
	if idx < 0 {
		idx += r.maxPartitions
	}
	return r.slots[idx], nil
}

// LookupKey returns the node owning the (bucket, key) pair, or
// MissingRoute if the ring has no members.
func (r *Ring) LookupKey(bucket, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.slots) == 0 {
		return "", errs.NewMissingRoute("ring has no members for bucket %q key %q", bucket, key)
	}
	combined := hashfunc.Combine([]byte(bucket), []byte(key))
	idx := int(combined) % r.maxPartitions
	if idx < 0 {
		idx += r.maxPartitions
	}
	return r.slots[idx], nil
}

// Nodes returns a snapshot copy of the current member set (not ring
// slots), per spec §4.2's getNodesFor.
func (r *Ring) Nodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.members)
}

// MaxPartitions returns the configured slot count.
func (r *Ring) MaxPartitions() int {
	return r.maxPartitions
}

// Empty reports whether the ring currently has no members.
func (r *Ring) Empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members) == 0
}
