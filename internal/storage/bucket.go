package storage

import (
	"errors"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// ErrKeyNotFound is returned by Bucket.Get when key has no stored value.
var ErrKeyNotFound = errors.New("key not found")

// Comparator names recognized by KeysInRange (spec §4.5's
// "comparator-name"). Lexicographic is byte-wise string order; Numeric
// parses each key as a float64 and falls back to lexicographic order for
// keys that don't parse, so a mixed bucket degrades gracefully instead of
// erroring.
const (
	ComparatorLexicographic = "lexicographic"
	ComparatorNumeric       = "numeric"
)

// ComparatorLess resolves a comparator name to the less-func it denotes.
// Exported so callers merging KeysInRange partials gathered from several
// nodes (internal/service's QueryByRange) can order them the same way a
// single bucket would.
func ComparatorLess(name string) func(a, b string) bool {
	switch name {
	case ComparatorNumeric:
		return func(a, b string) bool {
			af, aerr := strconv.ParseFloat(a, 64)
			bf, berr := strconv.ParseFloat(b, 64)
			if aerr != nil || berr != nil {
				return a < b
			}
			return af < bf
		}
	default:
		return func(a, b string) bool { return a < b }
	}
}

// OperationCounters tracks per-bucket operation counts, updated atomically
// to avoid lock contention. Grounded on shard.OperationStats, extended
// with Removes and Updates for the command kinds Bucket now serves.
type OperationCounters struct {
	Gets    uint64
	Puts    uint64
	Removes uint64
	Updates uint64
}

// ValueStats is a point-in-time snapshot of a bucket's stored key count and
// total value size. Grounded on shard.ShardStats' storage-usage fields.
type ValueStats struct {
	Keys  int
	Bytes int
}

// BucketStats is a point-in-time snapshot of a bucket's operation counts
// and value storage usage. Grounded on shard.ShardStats.
type BucketStats struct {
	Ops     OperationCounters
	Storage ValueStats
}

// snapshot caches a sorted view of a bucket's keys so that repeated range
// queries within the same TTL window (spec §4.5/§6's timeToLive parameter)
// don't re-sort on every call. It is invalidated by any mutation and by
// Flush, and is the concrete "sorted snapshot... invalidated by routing
// changes" object named in the spec's glossary.
type snapshot struct {
	builtAt time.Time
	byComp  map[string][]string // comparator name -> sorted keys
}

// Bucket is the local, per-node handle for one named bucket: an in-memory
// key/value map plus operation counters plus a TTL-cached sorted snapshot.
// It is the adapted descendant of shard.Shard, generalized from a numbered
// partition to a named bucket, folding in the teacher's standalone
// MemoryStore (there was never a second Store implementation to abstract
// over) and fitted to spec §4.5's KeysInRange/Flush contracts.
type Bucket struct {
	Name string

	valuesMu sync.RWMutex
	values   map[string][]byte

	ops OperationCounters

	mu   sync.Mutex // protects snap
	snap *snapshot
}

// NewBucket creates an empty bucket.
func NewBucket(name string) *Bucket {
	return &Bucket{
		Name:   name,
		values: make(map[string][]byte),
	}
}

// Get retrieves a value, counting the attempt whether or not it succeeds.
func (b *Bucket) Get(key string) ([]byte, error) {
	atomic.AddUint64(&b.ops.Gets, 1)

	b.valuesMu.RLock()
	defer b.valuesMu.RUnlock()

	value, ok := b.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Put stores a value and invalidates the cached sorted snapshot, since the
// key set may have changed.
func (b *Bucket) Put(key string, value []byte) error {
	atomic.AddUint64(&b.ops.Puts, 1)

	stored := make([]byte, len(value))
	copy(stored, value)

	b.valuesMu.Lock()
	b.values[key] = stored
	b.valuesMu.Unlock()

	b.invalidate()
	return nil
}

// Remove deletes a key (idempotent) and invalidates the cached snapshot.
func (b *Bucket) Remove(key string) error {
	atomic.AddUint64(&b.ops.Removes, 1)

	b.valuesMu.Lock()
	delete(b.values, key)
	b.valuesMu.Unlock()

	b.invalidate()
	return nil
}

// CountUpdate records an Update command execution against this bucket;
// Update's actual value mutation goes through Put, so this only tracks the
// distinct counter spec §4.5 implies by giving Update its own command kind.
func (b *Bucket) CountUpdate() {
	atomic.AddUint64(&b.ops.Updates, 1)
}

// ListKeys returns all keys currently in the bucket, unsorted.
func (b *Bucket) ListKeys() []string {
	b.valuesMu.RLock()
	defer b.valuesMu.RUnlock()

	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	return keys
}

// KeysInRange returns the sorted keys in [start, end] (inclusive both
// ends, matching spec §4.5's "[start,end]") under the named comparator, up
// to limit keys (0 means unlimited). If a cached snapshot for this
// comparator is younger than ttl, it is reused instead of re-sorting.
func (b *Bucket) KeysInRange(start, end, comparatorName string, ttl time.Duration, limit int) []string {
	sorted := b.sortedKeys(comparatorName, ttl)
	less := ComparatorLess(comparatorName)

	inRange := func(k string) bool {
		if start != "" && less(k, start) {
			return false
		}
		if end != "" && less(end, k) {
			return false
		}
		return true
	}

	out := make([]string, 0)
	for _, k := range sorted {
		if !inRange(k) {
			continue
		}
		out = append(out, k)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// sortedKeys returns the bucket's keys sorted by the named comparator,
// reusing a cached snapshot if it is younger than ttl.
func (b *Bucket) sortedKeys(comparatorName string, ttl time.Duration) []string {
	b.mu.Lock()
	if b.snap != nil && ttl > 0 && time.Since(b.snap.builtAt) < ttl {
		if cached, ok := b.snap.byComp[comparatorName]; ok {
			b.mu.Unlock()
			return cached
		}
	}
	b.mu.Unlock()

	keys := b.ListKeys()
	less := ComparatorLess(comparatorName)
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.snap == nil || (ttl <= 0 || time.Since(b.snap.builtAt) >= ttl) {
		b.snap = &snapshot{builtAt: time.Now(), byComp: make(map[string][]string)}
	}
	b.snap.byComp[comparatorName] = keys
	return keys
}

// invalidate drops the cached snapshot. Called on every mutation and by
// Flush.
func (b *Bucket) invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap = nil
}

// Flush evicts from the bucket every key for which keep returns false,
// then invalidates the snapshot. This is the storage-engine operation the
// Coordinator invokes after a ring rebuild (spec §4.10, glossary "Flush"):
// keep is the new ring's ownership predicate for this node, so any key
// that the node no longer owns is dropped.
func (b *Bucket) Flush(keep func(key string) bool) int {
	b.valuesMu.Lock()
	dropped := 0
	for k := range b.values {
		if !keep(k) {
			delete(b.values, k)
			dropped++
		}
	}
	b.valuesMu.Unlock()

	b.invalidate()
	return dropped
}

// Stats returns a point-in-time snapshot of operation counts and value
// storage usage.
func (b *Bucket) Stats() BucketStats {
	b.valuesMu.RLock()
	totalBytes := 0
	for _, v := range b.values {
		totalBytes += len(v)
	}
	keys := len(b.values)
	b.valuesMu.RUnlock()

	return BucketStats{
		Ops: OperationCounters{
			Gets:    atomic.LoadUint64(&b.ops.Gets),
			Puts:    atomic.LoadUint64(&b.ops.Puts),
			Removes: atomic.LoadUint64(&b.ops.Removes),
			Updates: atomic.LoadUint64(&b.ops.Updates),
		},
		Storage: ValueStats{Keys: keys, Bytes: totalBytes},
	}
}
