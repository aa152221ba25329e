package router

import (
	"context"
	"sync"

	"github.com/dreamware/terrastore/internal/cluster"
	"github.com/dreamware/terrastore/internal/node"
)

// Dialer connects to a remote node's address, returning a ready-to-use
// node.Node. Shaped to match internal/coordinator.Dialer structurally (a
// *coordinator.RemoteDialer satisfies this too) without an import cycle,
// since internal/coordinator already depends on internal/router.
type Dialer interface {
	Dial(ctx context.Context, addr cluster.NodeAddress) (node.Node, error)
}

// RemoteSync adapts a *Router into an ensemble.RouterView, additionally
// performing the half of spec §4.9's EnsembleManager tick that ring
// membership bookkeeping alone cannot: "drop departed nodes (disconnecting
// them), create new remote nodes for new addresses, connect them."
// Router.SetClusterNodes only diffs ring membership by node name; it never
// had a Dialer to create the underlying connection with, since Router's own
// job is routing table state, not connection lifecycle (that's
// internal/coordinator's job for the local cluster, and RemoteSync's for
// remote ensemble clusters the Coordinator never joins).
type RemoteSync struct {
	router *Router
	dialer Dialer

	mu    sync.Mutex
	conns map[string]map[string]node.Node // cluster name -> node id -> connection
}

// NewRemoteSync creates a RemoteSync driving r's routing table, dialing
// new remote nodes through dialer.
func NewRemoteSync(r *Router, dialer Dialer) *RemoteSync {
	return &RemoteSync{router: r, dialer: dialer, conns: make(map[string]map[string]node.Node)}
}

// SetClusterNodes implements ensemble.RouterView. Connections that fail to
// dial are skipped, not retried inline: the next EnsembleManager tick will
// see the address again (still "wanted") and retry naturally.
func (s *RemoteSync) SetClusterNodes(clusterName string, addrs []cluster.NodeAddress) {
	wanted := make(map[string]cluster.NodeAddress, len(addrs))
	for _, a := range addrs {
		wanted[a.ID] = a
	}

	s.mu.Lock()
	existing, ok := s.conns[clusterName]
	if !ok {
		existing = make(map[string]node.Node)
		s.conns[clusterName] = existing
	}
	var departed []node.Node
	for id, n := range existing {
		if _, stillWanted := wanted[id]; !stillWanted {
			departed = append(departed, n)
			delete(existing, id)
		}
	}
	var toDial []cluster.NodeAddress
	for id, addr := range wanted {
		if _, already := existing[id]; !already {
			toDial = append(toDial, addr)
		}
	}
	s.mu.Unlock()

	for _, n := range departed {
		_ = s.router.RemoveRouteTo(clusterName, n)
		if d, ok := n.(disconnector); ok {
			_ = d.Disconnect()
		}
	}

	ctx := context.Background()
	for _, addr := range toDial {
		n, err := s.dialer.Dial(ctx, addr)
		if err != nil {
			continue
		}
		if err := s.router.AddRouteTo(clusterName, n); err != nil {
			if d, ok := n.(disconnector); ok {
				_ = d.Disconnect()
			}
			continue
		}
		s.mu.Lock()
		s.conns[clusterName][addr.ID] = n
		s.mu.Unlock()
	}
}
