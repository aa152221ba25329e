// Package ring: see ring.go for the ClusterPartitioner implementation.
//
// # Concurrency
//
// AddNode/RemoveNode take the write lock and perform an O(maxPartitions)
// rebuild; LookupBucket/LookupKey take the read lock and are O(1). No
// network or disk I/O ever happens while a lock is held — rings are
// in-memory-only.
//
// # Determinism
//
// Two rings built from the same member set, regardless of the order
// AddNode was called in, produce identical slot arrays: members are kept
// sorted, and rebuild is a pure function of the sorted list. This is the
// property the Router relies on when it swaps in a fresh ring snapshot
// after an ensemble membership change (internal/router, internal/ensemble).
package ring
