// Package ensemble: see partitioner.go for the EnsemblePartitioner and
// manager.go for the EnsembleManager.
//
// # Architecture
//
// Partitioner answers "which cluster owns this bucket"; Manager keeps each
// remote cluster's node set current by polling a Membership command
// against one contact at a time, failing over to the next known contact,
// and pushing diffs into a RouterView. The two are independent: Partitioner
// has no knowledge of liveness, and Manager has no knowledge of bucket
// hashing.
//
// # Failure handling
//
// A tick that exhausts every known contact for a cluster leaves that
// cluster's last-known node set untouched in the Router and marks the
// cluster unreachable for that tick only; the next tick tries again from
// the first contact. This matches spec §4.9's explicit non-goal of
// reshaping the ensemble's cluster set automatically — only node-level
// membership within a cluster is refreshed this way.
package ensemble
