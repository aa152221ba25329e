package node

import (
	"context"
	"net"
	"sync"

	"github.com/dreamware/terrastore/internal/command"
	"github.com/dreamware/terrastore/internal/errs"
	"github.com/dreamware/terrastore/internal/telemetry"
	"github.com/dreamware/terrastore/internal/wire"
)

// Serve accepts connections on ln and answers every request frame against
// deps using the wire protocol (spec §6), until ctx is cancelled or ln is
// closed. Each connection may carry many pipelined, concurrently-dispatched
// requests, matching the client side's RemoteNode.
//
// Grounded on cmd/node/main.go's HTTP handler loop: accept, dispatch,
// respond, generalized from one request per HTTP round trip to a
// persistent connection carrying many pipelined binary frames.
func Serve(ctx context.Context, ln net.Listener, deps command.Deps) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return errs.NewCommunication("accept connection", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveConn(ctx, conn, deps)
		}()
	}
}

// serveConn reads request frames off conn until it errors or closes,
// dispatching each in its own goroutine so a slow command never blocks
// its neighbors' responses; writes are serialized since they share one
// connection.
func serveConn(ctx context.Context, conn net.Conn, deps command.Deps) {
	defer conn.Close()

	var writeMu sync.Mutex
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		req, err := wire.ReadRequest(conn)
		if err != nil {
			return
		}

		wg.Add(1)
		go func(req wire.Request) {
			defer wg.Done()
			handleRequest(ctx, deps, conn, &writeMu, req)
		}(req)
	}
}

func handleRequest(ctx context.Context, deps command.Deps, conn net.Conn, writeMu *sync.Mutex, req wire.Request) {
	cmd := command.Command{Kind: command.Kind(req.Kind), Version: req.Version, Payload: req.Body}
	body, dispatchErr := command.Dispatch(ctx, deps, cmd)

	resp := wire.Response{RequestID: req.RequestID, Status: wire.StatusForError(dispatchErr)}
	if dispatchErr != nil {
		resp.Body = []byte(dispatchErr.Error())
	} else {
		resp.Body = body
	}

	telemetry.NodeOpsTotal.WithLabelValues(cmd.Kind.String(), outcomeLabel(dispatchErr)).Inc()

	writeMu.Lock()
	_ = wire.WriteResponse(conn, resp)
	writeMu.Unlock()
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	kind, ok := errs.KindOf(err)
	if !ok {
		return "unknown_error"
	}
	switch kind {
	case errs.KindValidation:
		return "validation_error"
	case errs.KindProtocol:
		return "protocol_error"
	case errs.KindCommunication:
		return "communication_error"
	default:
		return "processing_error"
	}
}
