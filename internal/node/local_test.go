package node

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dreamware/terrastore/internal/command"
	"github.com/dreamware/terrastore/internal/storage"
)

func newLocalTestNode(concurrency int) (*LocalNode, *storage.Registry) {
	reg := storage.NewRegistry()
	return NewLocalNode("n1", command.Deps{Buckets: reg}, concurrency), reg
}

func TestLocalNodeSendDispatchesCommand(t *testing.T) {
	n, _ := newLocalTestNode(4)

	payload, _ := json.Marshal(command.PutValuePayload{Bucket: "orders", Key: "k1", Value: []byte("v1")})
	_, err := n.Send(context.Background(), command.Command{Kind: command.PutValue, Version: command.CurrentVersion, Payload: payload})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestLocalNodeID(t *testing.T) {
	n, _ := newLocalTestNode(1)
	if n.ID() != "n1" {
		t.Fatalf("ID() = %q, want n1", n.ID())
	}
}

func TestLocalNodePauseBlocksSend(t *testing.T) {
	n, _ := newLocalTestNode(1)
	n.Pause()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	payload, _ := json.Marshal(command.GetKeysPayload{Bucket: "orders"})
	_, err := n.Send(ctx, command.Command{Kind: command.GetKeys, Version: command.CurrentVersion, Payload: payload})
	if err == nil {
		t.Fatal("expected Send to block and time out while paused")
	}
}

func TestLocalNodeResumeReleasesParkedSend(t *testing.T) {
	n, reg := newLocalTestNode(1)
	reg.CreateBucket("orders")
	n.Pause()

	done := make(chan error, 1)
	go func() {
		payload, _ := json.Marshal(command.GetKeysPayload{Bucket: "orders"})
		_, err := n.Send(context.Background(), command.Command{Kind: command.GetKeys, Version: command.CurrentVersion, Payload: payload})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	n.Resume()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Send after Resume: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not unblock after Resume")
	}
}

func TestLocalNodePauseResumeIdempotent(t *testing.T) {
	n, _ := newLocalTestNode(1)
	n.Pause()
	n.Pause()
	if !n.Paused() {
		t.Fatal("expected paused after double Pause")
	}
	n.Resume()
	n.Resume()
	if n.Paused() {
		t.Fatal("expected not paused after double Resume")
	}
}

func TestLocalNodePoolSizeMatchesConcurrency(t *testing.T) {
	n, _ := newLocalTestNode(3)
	if cap(n.sem) != 3 {
		t.Fatalf("pool capacity = %d, want 3", cap(n.sem))
	}
}

func TestLocalNodeConcurrentSendsAllComplete(t *testing.T) {
	n, reg := newLocalTestNode(2)
	reg.CreateBucket("orders")

	var wg sync.WaitGroup
	errCh := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, _ := json.Marshal(command.GetKeysPayload{Bucket: "orders"})
			_, err := n.Send(context.Background(), command.Command{Kind: command.GetKeys, Version: command.CurrentVersion, Payload: payload})
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
}
