package coordinator

import (
	"context"
	"time"

	"github.com/dreamware/terrastore/internal/cluster"
	"github.com/dreamware/terrastore/internal/node"
)

// Dialer connects to a remote node's address, returning a ready-to-use
// node.Node. Abstracted so tests can substitute an in-memory peer instead
// of a real TCP dial.
type Dialer interface {
	Dial(ctx context.Context, addr cluster.NodeAddress) (node.Node, error)
}

// RemoteDialer dials addr over the binary wire protocol via
// internal/node.RemoteNode, bounding every subsequent Send by nodeTimeout
// (spec §5/§6).
type RemoteDialer struct {
	NodeTimeout time.Duration
}

// Dial implements Dialer.
func (d RemoteDialer) Dial(ctx context.Context, addr cluster.NodeAddress) (node.Node, error) {
	rn := node.NewRemoteNode(addr.ID, addr.Addr(), d.NodeTimeout)
	if err := rn.Connect(ctx); err != nil {
		return nil, err
	}
	return rn, nil
}
