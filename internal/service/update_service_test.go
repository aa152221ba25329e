package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dreamware/terrastore/internal/command"
	"github.com/dreamware/terrastore/internal/errs"
	"github.com/dreamware/terrastore/internal/failure"
	"github.com/dreamware/terrastore/internal/node"
	"github.com/dreamware/terrastore/internal/storage"
)

type fakeFunctions struct {
	fns map[string]command.UpdateFunction
}

func (f fakeFunctions) Function(name string) (command.UpdateFunction, bool) {
	fn, ok := f.fns[name]
	return fn, ok
}

func newLocalNode(t *testing.T, id string, reg *storage.Registry, fns command.FunctionRegistry) *node.LocalNode {
	t.Helper()
	return node.NewLocalNode(id, command.Deps{Buckets: reg, Functions: fns}, 2)
}

func TestUpdateServicePutValueStoresOnOwningNode(t *testing.T) {
	reg := storage.NewRegistry()
	n := newLocalNode(t, "n1", reg, nil)
	r := newFakeRouter()
	r.setKeyOwner("orders", "k1", n)

	svc := DefaultUpdateService{Router: r, Retry: failure.RetryConfig{Retries: 1}}
	if err := svc.PutValue(context.Background(), "orders", "k1", []byte("v1"), ""); err != nil {
		t.Fatalf("PutValue: %v", err)
	}

	b, ok := reg.Bucket("orders")
	if !ok {
		t.Fatal("expected bucket to be created")
	}
	v, err := b.Get("k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(v) != "v1" {
		t.Fatalf("Get = %q, want v1", v)
	}
}

func TestUpdateServicePutValueMissingRouteNotRetriedToSuccess(t *testing.T) {
	r := newFakeRouter() // no owner registered
	svc := DefaultUpdateService{Router: r, Retry: failure.RetryConfig{Retries: 2}}

	err := svc.PutValue(context.Background(), "orders", "k1", []byte("v1"), "")
	if err == nil {
		t.Fatal("expected error with no route configured")
	}
	if kind, ok := errs.KindOf(err); !ok || kind != errs.KindMissingRoute {
		t.Fatalf("expected MissingRoute, got %v", err)
	}
}

func TestUpdateServiceRemoveValueDeletesKey(t *testing.T) {
	reg := storage.NewRegistry()
	n := newLocalNode(t, "n1", reg, nil)
	b := reg.CreateBucket("orders")
	_ = b.Put("k1", []byte("v1"))

	r := newFakeRouter()
	r.setKeyOwner("orders", "k1", n)
	svc := DefaultUpdateService{Router: r}

	if err := svc.RemoveValue(context.Background(), "orders", "k1"); err != nil {
		t.Fatalf("RemoveValue: %v", err)
	}
	if _, err := b.Get("k1"); err == nil {
		t.Fatal("expected key to be removed")
	}
}

func TestUpdateServiceUpdateValueRunsRegisteredFunction(t *testing.T) {
	reg := storage.NewRegistry()
	fns := fakeFunctions{fns: map[string]command.UpdateFunction{
		"append": func(current []byte, params json.RawMessage) ([]byte, error) {
			var suffix string
			_ = json.Unmarshal(params, &suffix)
			return append(append([]byte{}, current...), []byte(suffix)...), nil
		},
	}}
	n := newLocalNode(t, "n1", reg, fns)
	r := newFakeRouter()
	r.setKeyOwner("orders", "k1", n)

	svc := DefaultUpdateService{Router: r}
	params, _ := json.Marshal("-tail")
	value, err := svc.UpdateValue(context.Background(), "orders", "k1", "append", params, 0)
	if err != nil {
		t.Fatalf("UpdateValue: %v", err)
	}
	if string(value) != "-tail" {
		t.Fatalf("UpdateValue result = %q, want -tail", value)
	}
}

func TestUpdateServiceRemoveBucketBroadcastsToOneNodePerCluster(t *testing.T) {
	regA, regB := storage.NewRegistry(), storage.NewRegistry()
	_ = regA.CreateBucket("orders")
	_ = regB.CreateBucket("orders")
	nA := newLocalNode(t, "a1", regA, nil)
	nB := newLocalNode(t, "b1", regB, nil)

	r := newFakeRouter()
	r.clusterMembers["alpha"] = []node.Node{nA}
	r.clusterMembers["beta"] = []node.Node{nB}

	svc := DefaultUpdateService{Router: r, Concurrency: 2}
	if err := svc.RemoveBucket(context.Background(), "orders"); err != nil {
		t.Fatalf("RemoveBucket: %v", err)
	}
	if _, ok := regA.Bucket("orders"); ok {
		t.Fatal("expected bucket dropped on cluster alpha")
	}
	if _, ok := regB.Bucket("orders"); ok {
		t.Fatal("expected bucket dropped on cluster beta")
	}
}

func TestUpdateServiceRemoveBucketFailsOnEmptyCluster(t *testing.T) {
	r := newFakeRouter()
	r.clusterMembers["alpha"] = nil

	svc := DefaultUpdateService{Router: r, Concurrency: 1}
	err := svc.RemoveBucket(context.Background(), "orders")
	if err == nil {
		t.Fatal("expected error for empty cluster")
	}
	if kind, ok := errs.KindOf(err); !ok || kind != errs.KindMissingRoute {
		t.Fatalf("expected MissingRoute, got %v", err)
	}
}

func TestUpdateServiceRemoveBucketFailsWithNoClusters(t *testing.T) {
	r := newFakeRouter()
	svc := DefaultUpdateService{Router: r}

	if err := svc.RemoveBucket(context.Background(), "orders"); err == nil {
		t.Fatal("expected error with no clusters configured")
	}
}
