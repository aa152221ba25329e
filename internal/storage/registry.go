package storage

import "sync"

// Registry is a local node's set of named buckets, created on first use.
// It is the concrete BucketStore the command package dispatches against;
// grounded on cmd/node/main.go's Node.shards map (AddShard/GetShard),
// generalized from a fixed numbered-shard set to on-demand named buckets.
type Registry struct {
	mu      sync.RWMutex
	buckets map[string]*Bucket
}

// NewRegistry creates an empty bucket registry.
func NewRegistry() *Registry {
	return &Registry{buckets: make(map[string]*Bucket)}
}

// Bucket returns the named bucket if it exists.
func (r *Registry) Bucket(name string) (*Bucket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.buckets[name]
	return b, ok
}

// Buckets returns the names of every bucket currently present.
func (r *Registry) Buckets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.buckets))
	for name := range r.buckets {
		out = append(out, name)
	}
	return out
}

// CreateBucket creates the named bucket if absent and returns it,
// returning the existing one if it already exists.
func (r *Registry) CreateBucket(name string) *Bucket {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buckets[name]; ok {
		return b
	}
	b := NewBucket(name)
	r.buckets[name] = b
	return b
}

// DropBucket removes the named bucket, reporting whether it existed.
func (r *Registry) DropBucket(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buckets[name]; !ok {
		return false
	}
	delete(r.buckets, name)
	return true
}
