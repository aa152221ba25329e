// Package membership abstracts the external group-membership collaborator
// the Coordinator reacts to (spec §4.10, §9's resolved Open Question): "any
// gossip or cluster-membership library satisfies this" — real deployments
// plug in one; StaticMembership stands in for local development, tests, and
// deployments content with a fixed, operator-managed node list.
package membership

import "github.com/dreamware/terrastore/internal/cluster"

// GroupMembership reports a local cluster's current node set and notifies
// subscribers of join/leave transitions. Implementations must be safe for
// concurrent use; callbacks registered via OnJoin/OnLeave may be invoked
// from any goroutine.
type GroupMembership interface {
	// CurrentMembers returns the IDs of every node presently considered a
	// member, as of the call.
	CurrentMembers() []string

	// OnJoin registers cb to be called whenever a node joins, including
	// (per implementation) a replay of members already present at
	// registration time.
	OnJoin(cb func(cluster.NodeAddress))

	// OnLeave registers cb to be called with a node's ID whenever it
	// leaves.
	OnLeave(cb func(id string))
}
