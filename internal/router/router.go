// Package router implements the Router (spec §4.6): the two-tier lookup
// composing an ensemble.Partitioner (bucket → cluster) with one ring.Ring
// per cluster (bucket/key → node name), plus a live node registry
// (node name → node.Node) translating ring membership into connections.
//
// Grounded on internal/coordinator/shard_registry.go's RWMutex-protected,
// copy-returning registry discipline, generalized from one flat shard map
// to a per-cluster ring map, composed with internal/ensemble's
// partitioner.
package router

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/maps"

	"github.com/dreamware/terrastore/internal/cluster"
	"github.com/dreamware/terrastore/internal/ensemble"
	"github.com/dreamware/terrastore/internal/errs"
	"github.com/dreamware/terrastore/internal/node"
	"github.com/dreamware/terrastore/internal/ring"
	"github.com/dreamware/terrastore/internal/telemetry"
)

// disconnector is implemented by node.Node values that hold a live
// connection worth tearing down on Cleanup (node.RemoteNode does; a
// node.LocalNode does not).
type disconnector interface {
	Disconnect() error
}

// state is the Router's routing table: which clusters have rings, and
// which live Node each ring's member names resolve to. Every mutation
// stores a new state under mu, copying whichever map it adds or removes
// entries in, and reads load the state pointer without taking mu. The
// ring.Ring values are shared between successive states and are rebuilt
// in place under each ring's own RWMutex, so a state is not an immutable
// snapshot: a lookup can wait on a concurrent ring rebuild and sees ring
// changes made after it loaded the state.
type state struct {
	rings map[string]*ring.Ring
	nodes map[string]node.Node
}

// Router is the process-wide routing table described in spec §4.6.
type Router struct {
	localCluster  string
	maxPartitions int
	partitioner   *ensemble.Partitioner

	mu    sync.Mutex
	state atomic.Pointer[state]
}

// New creates a Router for the process whose local cluster is
// localCluster. maxPartitions sizes every cluster's ring (spec §6's
// cluster.partitions, default ring.DefaultMaxPartitions).
func New(localCluster string, maxPartitions int) *Router {
	r := &Router{localCluster: localCluster, maxPartitions: maxPartitions, partitioner: ensemble.NewPartitioner()}
	r.state.Store(&state{rings: make(map[string]*ring.Ring), nodes: make(map[string]node.Node)})
	return r
}

// SetupClusters configures the full ensemble cluster set once at startup
// (spec §4.6), propagating to the EnsemblePartitioner and ensuring every
// named cluster has a ring.
func (r *Router) SetupClusters(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.partitioner.SetupClusters(names)

	old := r.state.Load()
	wanted := make(map[string]bool, len(names))
	rings := make(map[string]*ring.Ring, len(names))
	for _, name := range names {
		wanted[name] = true
		if rg, ok := old.rings[name]; ok {
			rings[name] = rg
		} else {
			rings[name] = ring.New(r.maxPartitions)
		}
	}
	r.state.Store(&state{rings: rings, nodes: old.nodes})
}

// AddRouteToLocalNode registers n as a member of this process's own
// cluster.
func (r *Router) AddRouteToLocalNode(n node.Node) error {
	return r.AddRouteTo(r.localCluster, n)
}

// AddRouteTo registers n as a member of clusterName's ring and records it
// in the node registry. Fails with MissingRoute if clusterName was never
// named in SetupClusters.
func (r *Router) AddRouteTo(clusterName string, n node.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.state.Load()
	rg, ok := old.rings[clusterName]
	if !ok {
		return errs.NewMissingRoute("cluster %q not configured", clusterName)
	}
	rg.AddNode(n.ID())

	nodes := cloneNodes(old.nodes)
	nodes[n.ID()] = n
	r.state.Store(&state{rings: old.rings, nodes: nodes})
	return nil
}

// RemoveRouteTo drops n from clusterName's ring and the node registry.
// Not an error if n was never a member.
func (r *Router) RemoveRouteTo(clusterName string, n node.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.state.Load()
	if rg, ok := old.rings[clusterName]; ok {
		rg.RemoveNode(n.ID())
	}

	nodes := cloneNodes(old.nodes)
	delete(nodes, n.ID())
	r.state.Store(&state{rings: old.rings, nodes: nodes})
	return nil
}

// SetClusterNodes replaces clusterName's ring membership with exactly the
// node IDs in addrs, diffing against the current membership. It satisfies
// ensemble.RouterView: the EnsembleManager calls this after discovering a
// remote cluster's current node set. A cluster not yet known to
// SetupClusters gets a ring created on demand, since ensemble membership
// discovery can race startup's SetupClusters call.
func (r *Router) SetClusterNodes(clusterName string, addrs []cluster.NodeAddress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.state.Load()
	rings := cloneRings(old.rings)
	rg, ok := rings[clusterName]
	if !ok {
		rg = ring.New(r.maxPartitions)
		rings[clusterName] = rg
	}

	wanted := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		wanted[a.ID] = true
	}
	for _, existing := range rg.Nodes() {
		if !wanted[existing] {
			rg.RemoveNode(existing)
		}
	}
	for id := range wanted {
		rg.AddNode(id)
	}

	r.state.Store(&state{rings: rings, nodes: old.nodes})
}

// ClusterFor resolves the cluster owning bucket, without resolving a node
// within it. Used by callers (internal/service) that must fan a command
// out to every node of the owning cluster rather than the single node a
// ring lookup would return.
func (r *Router) ClusterFor(bucket string) (string, error) {
	clusterName, ok := r.partitioner.GetClusterFor(bucket)
	if !ok {
		return "", errs.NewMissingRoute("no cluster for bucket %q", bucket)
	}
	return clusterName, nil
}

// RouteToNodeFor resolves the node owning bucket: the cluster the
// EnsemblePartitioner assigns it to, then the node the cluster's ring
// assigns it to.
func (r *Router) RouteToNodeFor(bucket string) (n node.Node, err error) {
	start := time.Now()
	defer func() { observeRouteLookup(start, err) }()

	st := r.state.Load()
	clusterName, ok := r.partitioner.GetClusterFor(bucket)
	if !ok {
		return nil, errs.NewMissingRoute("no cluster for bucket %q", bucket)
	}
	rg, ok := st.rings[clusterName]
	if !ok {
		return nil, errs.NewMissingRoute("cluster %q has no ring", clusterName)
	}
	nodeName, lookupErr := rg.LookupBucket(bucket)
	if lookupErr != nil {
		return nil, lookupErr
	}
	return r.resolveNode(st, nodeName)
}

// RouteToNodeForKey resolves the node owning (bucket, key).
func (r *Router) RouteToNodeForKey(bucket, key string) (n node.Node, err error) {
	start := time.Now()
	defer func() { observeRouteLookup(start, err) }()

	st := r.state.Load()
	clusterName, ok := r.partitioner.GetClusterFor(bucket)
	if !ok {
		return nil, errs.NewMissingRoute("no cluster for bucket %q", bucket)
	}
	rg, ok := st.rings[clusterName]
	if !ok {
		return nil, errs.NewMissingRoute("cluster %q has no ring", clusterName)
	}
	nodeName, lookupErr := rg.LookupKey(bucket, key)
	if lookupErr != nil {
		return nil, lookupErr
	}
	return r.resolveNode(st, nodeName)
}

// observeRouteLookup records a RouteToNodeFor/RouteToNodeForKey call's
// duration under "resolved" or "failed", per telemetry.RouteLookupDuration's
// doc.
func observeRouteLookup(start time.Time, err error) {
	outcome := "resolved"
	if err != nil {
		outcome = "failed"
	}
	telemetry.RouteLookupDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// RouteToNodesFor groups keys by the node owning (bucket, key), in a
// single pass over keys.
func (r *Router) RouteToNodesFor(bucket string, keys []string) (map[node.Node][]string, error) {
	st := r.state.Load()
	clusterName, ok := r.partitioner.GetClusterFor(bucket)
	if !ok {
		return nil, errs.NewMissingRoute("no cluster for bucket %q", bucket)
	}
	rg, ok := st.rings[clusterName]
	if !ok {
		return nil, errs.NewMissingRoute("cluster %q has no ring", clusterName)
	}

	out := make(map[node.Node][]string)
	for _, key := range keys {
		nodeName, err := rg.LookupKey(bucket, key)
		if err != nil {
			return nil, err
		}
		n, err := r.resolveNode(st, nodeName)
		if err != nil {
			return nil, err
		}
		out[n] = append(out[n], key)
	}
	return out, nil
}

// ClusterRoute returns every current member of clusterName.
func (r *Router) ClusterRoute(clusterName string) ([]node.Node, error) {
	st := r.state.Load()
	rg, ok := st.rings[clusterName]
	if !ok {
		return nil, errs.NewMissingRoute("cluster %q has no ring", clusterName)
	}
	names := rg.Nodes()
	out := make([]node.Node, 0, len(names))
	for _, name := range names {
		if n, ok := st.nodes[name]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// BroadcastRoute returns every current member of every configured cluster.
// Empty member sets are returned as-is (spec §4.6: "callers treat them as
// errors for non-idempotent operations", not the Router itself).
func (r *Router) BroadcastRoute() map[string][]node.Node {
	st := r.state.Load()
	out := make(map[string][]node.Node, len(st.rings))
	for clusterName, rg := range st.rings {
		names := rg.Nodes()
		nodes := make([]node.Node, 0, len(names))
		for _, name := range names {
			if n, ok := st.nodes[name]; ok {
				nodes = append(nodes, n)
			}
		}
		out[clusterName] = nodes
	}
	return out
}

// Cleanup drops every route and disconnects every node that supports it.
// The configured clusters stay, each with an empty ring.
func (r *Router) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.state.Load()
	for _, n := range old.nodes {
		if d, ok := n.(disconnector); ok {
			_ = d.Disconnect()
		}
	}
	rings := make(map[string]*ring.Ring, len(old.rings))
	for name := range old.rings {
		rings[name] = ring.New(r.maxPartitions)
	}
	r.state.Store(&state{rings: rings, nodes: make(map[string]node.Node)})
}

func (r *Router) resolveNode(st *state, nodeName string) (node.Node, error) {
	n, ok := st.nodes[nodeName]
	if !ok {
		return nil, errs.NewMissingRoute("node %q has no registered connection", nodeName)
	}
	return n, nil
}

func cloneNodes(in map[string]node.Node) map[string]node.Node {
	return maps.Clone(in)
}

func cloneRings(in map[string]*ring.Ring) map[string]*ring.Ring {
	return maps.Clone(in)
}
