package node

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dreamware/terrastore/internal/command"
)

// LocalNode executes commands in-process against the local storage engine
// over a bounded worker pool (spec §5: "one worker pool per local node,
// size = node.concurrency"), and can be paused so that in-flight topology
// transitions see a stable snapshot (spec §4.10/§5).
//
// Grounded on cmd/node/main.go's Node: an identity plus a mutex-protected
// map of local storage, generalized here to an identity plus a bounded
// pool and a pause gate over command.Dispatch.
type LocalNode struct {
	id   string
	deps command.Deps
	sem  chan struct{}

	mu       sync.Mutex
	paused   bool
	resumeCh chan struct{}
}

// NewLocalNode creates a LocalNode dispatching against deps with at most
// concurrency commands executing at once.
func NewLocalNode(id string, deps command.Deps, concurrency int) *LocalNode {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &LocalNode{
		id:   id,
		deps: deps,
		sem:  make(chan struct{}, concurrency),
	}
}

// ID returns the local node's identifier.
func (n *LocalNode) ID() string { return n.id }

// Send waits out any active pause, acquires a pool slot, and dispatches
// cmd against the local storage engine.
func (n *LocalNode) Send(ctx context.Context, cmd command.Command) (json.RawMessage, error) {
	if err := n.waitIfPaused(ctx); err != nil {
		return nil, err
	}

	select {
	case n.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-n.sem }()

	return command.Dispatch(ctx, n.deps, cmd)
}

// Pause parks all future Sends on a condition until Resume is called.
// Idempotent: pausing an already-paused node is a no-op.
func (n *LocalNode) Pause() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.paused {
		return
	}
	n.paused = true
	n.resumeCh = make(chan struct{})
}

// Resume releases any Sends parked by Pause. Idempotent.
func (n *LocalNode) Resume() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.paused {
		return
	}
	n.paused = false
	close(n.resumeCh)
}

// Paused reports whether the node is currently paused.
func (n *LocalNode) Paused() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.paused
}

func (n *LocalNode) waitIfPaused(ctx context.Context) error {
	n.mu.Lock()
	if !n.paused {
		n.mu.Unlock()
		return nil
	}
	ch := n.resumeCh
	n.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
