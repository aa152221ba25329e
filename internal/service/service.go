// Package service lifts the command protocol into the four service-level
// interfaces spec §6 names as the HTTP front-end's contract:
// UpdateService, QueryService, BackupService, StatsService. The HTTP layer
// itself is an external collaborator (spec §1's out-of-scope list) and is
// not built here; these interfaces are what it would depend on.
//
// Grounded on cmd/coordinator/main.go's handler set (handleData,
// handleShardAssign, handleBroadcast), whose HTTP-verb-to-operation
// mapping is generalized here into verb-free Go methods operating over
// internal/router and internal/command instead of net/http directly.
// Every call that crosses a node boundary is wrapped in failure.Retry at
// the call site (spec §4.8: "FailureDecorator sits above Services").
package service

import (
	"github.com/dreamware/terrastore/internal/node"
)

// Router is the subset of *router.Router the service layer depends on.
// Declared locally (rather than imported as a concrete type) so tests can
// substitute a fake without constructing a real ring.
type Router interface {
	RouteToNodeFor(bucket string) (node.Node, error)
	RouteToNodeForKey(bucket, key string) (node.Node, error)
	ClusterFor(bucket string) (string, error)
	ClusterRoute(clusterName string) ([]node.Node, error)
	BroadcastRoute() map[string][]node.Node
}
