package node

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dreamware/terrastore/internal/command"
	"github.com/dreamware/terrastore/internal/errs"
	"github.com/dreamware/terrastore/internal/wire"
)

// outcome is what the read loop delivers to a waiting Send: either a
// decoded response body, or an error (a CommunicationError if the
// connection failed before any response arrived, or whatever taxonomy the
// response's status byte maps to).
type outcome struct {
	body []byte
	err  error
}

// RemoteNode forwards commands to another process over a persistent TCP
// connection using the binary wire protocol (spec §6). Requests are
// correlated to responses by a monotonically increasing request ID;
// concurrent Sends share one connection and a single read loop fans
// responses back out to their waiting callers.
//
// Connect/Disconnect are explicit and idempotent. Disconnect cancels every
// in-flight awaiter with a CommunicationError (spec §4.4).
type RemoteNode struct {
	id          string
	addr        string
	nodeTimeout time.Duration

	writeMu sync.Mutex // serializes frame writes on the shared connection

	mu        sync.Mutex
	conn      net.Conn
	connected bool
	nextReqID uint64
	awaiters  map[uint64]chan outcome
}

// NewRemoteNode creates a RemoteNode targeting addr, not yet connected.
// nodeTimeout bounds every Send (spec §5: "every remote send has
// nodeTimeout").
func NewRemoteNode(id, addr string, nodeTimeout time.Duration) *RemoteNode {
	return &RemoteNode{
		id:          id,
		addr:        addr,
		nodeTimeout: nodeTimeout,
		awaiters:    make(map[uint64]chan outcome),
	}
}

// ID returns the remote node's identifier.
func (n *RemoteNode) ID() string { return n.id }

// Connect dials the remote node and starts its response read loop.
// Idempotent: calling Connect while already connected is a no-op. Callers
// wanting bounded dial retries wrap this with internal/failure.Retry, the
// way cmd/node/main.go's register() retries registration.
func (n *RemoteNode) Connect(ctx context.Context) error {
	n.mu.Lock()
	if n.connected {
		n.mu.Unlock()
		return nil
	}
	n.mu.Unlock()

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", n.addr)
	if err != nil {
		return errs.NewCommunication("dial "+n.addr, err)
	}

	n.mu.Lock()
	if n.connected {
		n.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	n.conn = conn
	n.connected = true
	n.mu.Unlock()

	go n.readLoop(conn)
	return nil
}

// Connected reports whether the remote node currently has a live
// connection.
func (n *RemoteNode) Connected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connected
}

// Disconnect closes the connection and fails every in-flight Send with a
// CommunicationError. Idempotent.
func (n *RemoteNode) Disconnect() error {
	n.mu.Lock()
	if !n.connected {
		n.mu.Unlock()
		return nil
	}
	conn := n.conn
	n.connected = false
	n.conn = nil
	n.mu.Unlock()

	closeErr := conn.Close()
	n.failAllAwaiters(errs.NewCommunication("connection to "+n.addr+" closed", closeErr))
	if closeErr != nil {
		return errs.NewCommunication("close connection to "+n.addr, closeErr)
	}
	return nil
}

// Send encodes cmd, writes it as a request frame, and blocks for the
// matching response, bounded by the smaller of ctx's deadline and
// nodeTimeout.
func (n *RemoteNode) Send(ctx context.Context, cmd command.Command) (json.RawMessage, error) {
	n.mu.Lock()
	if !n.connected {
		n.mu.Unlock()
		return nil, errs.NewCommunication("not connected to "+n.addr, nil)
	}
	conn := n.conn
	reqID := atomic.AddUint64(&n.nextReqID, 1)
	awaiter := make(chan outcome, 1)
	n.awaiters[reqID] = awaiter
	n.mu.Unlock()

	defer n.deregister(reqID)

	if n.nodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.nodeTimeout)
		defer cancel()
	}

	req := wire.Request{RequestID: reqID, Kind: uint16(cmd.Kind), Version: cmd.Version, Body: cmd.Payload}

	n.writeMu.Lock()
	writeErr := wire.WriteRequest(conn, req)
	n.writeMu.Unlock()
	if writeErr != nil {
		return nil, writeErr
	}

	select {
	case o := <-awaiter:
		return o.body, o.err
	case <-ctx.Done():
		return nil, errs.NewCommunication("send to "+n.addr+" timed out", ctx.Err())
	}
}

func (n *RemoteNode) deregister(reqID uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.awaiters, reqID)
}

func (n *RemoteNode) readLoop(conn net.Conn) {
	for {
		resp, err := wire.ReadResponse(conn)
		if err != nil {
			n.failAllAwaiters(errs.NewCommunication("connection to "+n.addr+" lost", err))
			return
		}

		n.mu.Lock()
		awaiter, ok := n.awaiters[resp.RequestID]
		n.mu.Unlock()
		if ok {
			awaiter <- outcome{body: resp.Body, err: wire.ErrorForStatus(resp.Status, resp.Body)}
		}
	}
}

func (n *RemoteNode) failAllAwaiters(cause error) {
	n.mu.Lock()
	awaiters := n.awaiters
	n.awaiters = make(map[uint64]chan outcome)
	n.connected = false
	n.mu.Unlock()

	for _, ch := range awaiters {
		ch <- outcome{err: cause}
	}
}
