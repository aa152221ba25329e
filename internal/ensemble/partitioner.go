// Package ensemble implements the EnsemblePartitioner (spec §4.3) and the
// EnsembleManager (spec §4.9): the inter-cluster half of Terrastore's
// two-tier routing, and the background process that keeps remote clusters'
// membership views fresh.
package ensemble

import (
	"sort"
	"sync"

	"github.com/dreamware/terrastore/internal/hashfunc"
)

// Partitioner maps a bucket to exactly one cluster name. Key granularity
// is deliberately not modeled here — spec §4.3 routes to a cluster by
// bucket only, letting a whole bucket's contents live in one cluster so
// per-bucket range scans never need a cross-cluster merge.
//
// Partitioner shares the sorted-rebuild idiom with ring.Ring but has no
// slot array: ensemble membership changes far less often than node
// membership, so a direct modulo over the sorted cluster list is rebuilt
// in full on every change rather than cached into slots.
type Partitioner struct {
	mu       sync.RWMutex
	clusters []string // sorted, unique cluster names
}

// NewPartitioner returns an empty Partitioner.
func NewPartitioner() *Partitioner {
	return &Partitioner{}
}

// SetupClusters replaces the cluster set. It is idempotent for equal
// inputs: calling it twice with the same (unordered) set of names leaves
// GetClusterFor's results unchanged.
func (p *Partitioner) SetupClusters(names []string) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.clusters = sorted
}

// GetClusterFor returns the cluster owning bucket, or ("", false) if no
// clusters are configured.
func (p *Partitioner) GetClusterFor(bucket string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.clusters) == 0 {
		return "", false
	}
	idx := int(hashfunc.Hash([]byte(bucket))) % len(p.clusters)
	if idx < 0 {
		idx += len(p.clusters)
	}
	return p.clusters[idx], true
}

// Clusters returns a snapshot copy of the configured cluster names.
func (p *Partitioner) Clusters() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]string, len(p.clusters))
	copy(out, p.clusters)
	return out
}
