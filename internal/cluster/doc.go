// Package cluster defines the ensemble's cluster/node vocabulary and a
// lightweight address-table discovery transport layered on top of it.
//
// # Overview
//
// Terrastore organizes storage as an ensemble of independently-operated
// clusters (spec §3). Every cluster owns a disjoint slice of the bucket
// keyspace via its own partitioning ring (internal/ring); the ensemble
// partitioner (internal/ensemble) decides which cluster a given bucket
// belongs to. This package supplies the shared vocabulary both layers build
// on — Cluster and NodeAddress — plus the HTTP/JSON transport a node uses
// to publish its own reachability and a Coordinator uses to broadcast
// topology transitions ahead of the binary wire protocol.
//
// # Architecture
//
// Unlike a hub-and-spoke coordinator design, Terrastore's ensemble is
// symmetric: any node can route a request, and the Router (internal/router)
// composes per-cluster rings with an ensemble-level partitioner to find the
// right cluster and node for a bucket/key pair.
//
//	            в”Ңв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Ғв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Ғ
//	            в”Ӯ  EnsemblePartitioner: bucket -> cluster name         в”Ӯ
//	            в””в”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Ғв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Ғв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Ғв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җ
//	                     в”Ӯ                в”Ӯ                в”Ӯ
//	              в”Ңв”Җв”Җв”Җв”Җв”Җв–јв”Җв”Җв”Җв”Җв”Җв”Ғ  в”Ңв”Җв”Җв”Җв”Җв”Җв–јв”Җв”Җв”Җв”Җв”Җв”Ғ  в”Ңв”Җв”Җв”Җв”Җв”Җв–јв”Җв”Җв”Җв”Җв”Җв”Ғ
//	              в”Ӯ cluster c1 в”Ӯ  в”Ӯ cluster c2 в”Ӯ  в”Ӯ cluster c3 в”Ӯ
//	              в”Ӯ  ring,     в”Ӯ  в”Ӯ  ring,     в”Ӯ  в”Ӯ  ring,     в”Ӯ
//	              в”Ӯ  nodes     в”Ӯ  в”Ӯ  nodes     в”Ӯ  в”Ӯ  nodes     в”Ӯ
//	              в””в”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Ғ  в””в”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Ғ  в””в”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Ғ
//
// # Core Types
//
// Cluster: one ensemble member — a name and whether it is this process's
// local cluster.
//
// NodeAddress: a node's dialable address plus optional Status/LastSeen
// health fields, which are carried through JSON but not set by any
// component of this module.
//
// # Communication Protocol
//
// The package uses HTTP/JSON only for the address table, never for the
// data plane:
//
// Address publication (POST /cluster/publish):
//   - A node announces its NodeAddress on joining its local cluster.
//
// Topology broadcast (POST /cluster/broadcast):
//   - A Coordinator posts a pause/resume notification to one configured
//     broadcast URL around the flush that follows a routing-table change
//     (spec §4.10); the receiving handler only logs it.
//
// All request dispatch, get/put/remove, and membership polling travel over
// the binary wire protocol in internal/wire and internal/command instead.
//
// # Concurrency Model
//
// PostJSON and GetJSON are stateless and safe for concurrent use; the
// shared httpClient pools connections internally. Callers that maintain an
// address table (the Coordinator, the EnsembleManager) protect their own
// maps with a sync.RWMutex as described in their respective packages.
//
// # See Also
//
// Related packages:
//   - internal/ensemble: ensemble partitioner and remote-membership polling
//   - internal/ring: per-cluster partitioning ring
//   - internal/router: composes clusters/rings into request routing
//   - internal/coordinator: reacts to local membership join/leave
package cluster
