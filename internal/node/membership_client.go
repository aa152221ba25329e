package node

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dreamware/terrastore/internal/cluster"
	"github.com/dreamware/terrastore/internal/command"
	"github.com/dreamware/terrastore/internal/errs"
)

// RemoteMembershipClient implements ensemble.MembershipClient by briefly
// connecting to a remote cluster's contact, sending a Membership command,
// and disconnecting. One-shot per call rather than a persistent
// connection: discovery contacts are polled on EnsembleManager's own
// interval (seconds to minutes), far too infrequent to justify the
// bookkeeping a kept-alive RemoteNode needs.
type RemoteMembershipClient struct {
	// DialTimeout bounds both the connection attempt and the Membership
	// round trip.
	DialTimeout time.Duration
}

// QueryMembership implements ensemble.MembershipClient.
func (c RemoteMembershipClient) QueryMembership(ctx context.Context, contact cluster.NodeAddress) ([]cluster.NodeAddress, error) {
	rn := NewRemoteNode(contact.ID, contact.Addr(), c.DialTimeout)
	dialCtx := ctx
	if c.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.DialTimeout)
		defer cancel()
	}
	if err := rn.Connect(dialCtx); err != nil {
		return nil, err
	}
	defer rn.Disconnect()

	cmd := command.Command{
		Kind:    command.Membership,
		Version: command.CurrentVersion,
		Payload: json.RawMessage("{}"),
	}
	raw, err := rn.Send(ctx, cmd)
	if err != nil {
		return nil, err
	}

	var result command.MembershipResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errs.NewProtocol("malformed membership result: %v", err)
	}
	return result.Members, nil
}
