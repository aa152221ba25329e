// Package storage holds the local, per-node data a Bucket owns: an
// in-memory key/value map, operation counters, and a TTL-cached sorted
// snapshot for range queries.
//
// # Overview
//
// Terrastore buckets are the unit of storage a node actually holds in
// memory; the Ring decides which node owns which bucket (or partition
// key within it), and the Coordinator decides when a Bucket's contents
// need to be flushed after a ring change. This package only implements
// the local data structure: Get/Put/Remove, KeysInRange for spec §4.5's
// sorted range queries, and Flush for spec §4.10's post-rebuild
// eviction.
//
// # Concurrency
//
// Bucket uses two independent locks: valuesMu (sync.RWMutex) guards the
// key/value map itself, and mu (sync.Mutex) guards the cached sorted
// snapshot. They are never held together, so a KeysInRange call that
// rebuilds its snapshot does not block concurrent Get/Put calls for
// longer than the scan itself takes.
//
// # Snapshot caching
//
// KeysInRange sorts and caches one snapshot per comparator name
// (lexicographic, numeric), reused as long as it is younger than the
// caller-supplied ttl. Any mutation (Put, Remove, Flush) invalidates the
// cached snapshot unconditionally, so a stale sort is never returned
// across a write.
//
// # Error Handling
//
// ErrKeyNotFound is the only sentinel error this package defines; it is
// returned by Get when the key has no stored value. Put and Remove never
// fail under normal operation — there is no size limit, persistence
// layer, or schema to reject against.
package storage
