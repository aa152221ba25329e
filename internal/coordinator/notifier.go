package coordinator

import (
	"context"
	"encoding/json"

	"github.com/dreamware/terrastore/internal/cluster"
)

// Notifier pushes a topology-transition notice at the pause and resume
// steps of spec §4.10's pause/flush/resume sequence, which runs after the
// Router's routing table has already been changed. Best-effort: a failed
// notification does not abort the transition, since the Router's own
// routing-table swap is what actually matters for correctness.
type Notifier interface {
	Notify(ctx context.Context, path string) error
}

// NoopNotifier discards every notification. Suitable for a single-process
// deployment with one local cluster and no peer coordinators to inform.
type NoopNotifier struct{}

// Notify implements Notifier.
func (NoopNotifier) Notify(context.Context, string) error { return nil }

// HTTPNotifier posts each notice to the single BroadcastURL, typically a
// /cluster/broadcast endpoint (cmd layer's HTTP handler). That handler
// only logs the notice; it is not forwarded to other addresses.
type HTTPNotifier struct {
	BroadcastURL string
}

// Notify implements Notifier.
func (n HTTPNotifier) Notify(ctx context.Context, path string) error {
	return cluster.PostJSON(ctx, n.BroadcastURL, cluster.BroadcastRequest{Path: path, Payload: json.RawMessage("null")}, nil)
}
