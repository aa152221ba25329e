// Package node implements the Node abstraction (spec §4.4): a uniform
// Send(Command) entry point with two concrete shapes, LocalNode (executes
// in-process against the storage engine) and RemoteNode (forwards over
// the wire protocol to another process).
package node

import (
	"context"
	"encoding/json"

	"github.com/dreamware/terrastore/internal/command"
)

// Node is the uniform entry point routing targets a command at. Send is
// safe to call from any goroutine; ordering between concurrent Sends is
// not guaranteed (spec §4.4).
type Node interface {
	ID() string
	Send(ctx context.Context, cmd command.Command) (json.RawMessage, error)
}
