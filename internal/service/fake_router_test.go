package service

import (
	"github.com/dreamware/terrastore/internal/errs"
	"github.com/dreamware/terrastore/internal/node"
)

// fakeRouter is a deterministic, test-only Router: every lookup is a plain
// map access rather than a ring/partitioner computation, since
// internal/router already has its own tests for that math.
type fakeRouter struct {
	clusterOf      map[string]string
	clusterMembers map[string][]node.Node
	keyOwner       map[string]node.Node // "bucket\x00key" -> node
	bucketOwner    map[string]node.Node
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{
		clusterOf:      make(map[string]string),
		clusterMembers: make(map[string][]node.Node),
		keyOwner:       make(map[string]node.Node),
		bucketOwner:    make(map[string]node.Node),
	}
}

func (r *fakeRouter) setKeyOwner(bucket, key string, n node.Node) {
	r.keyOwner[bucket+"\x00"+key] = n
}

func (r *fakeRouter) RouteToNodeFor(bucket string) (node.Node, error) {
	if n, ok := r.bucketOwner[bucket]; ok {
		return n, nil
	}
	return nil, errs.NewMissingRoute("no owner for bucket %q", bucket)
}

func (r *fakeRouter) RouteToNodeForKey(bucket, key string) (node.Node, error) {
	if n, ok := r.keyOwner[bucket+"\x00"+key]; ok {
		return n, nil
	}
	return nil, errs.NewMissingRoute("no owner for %q/%q", bucket, key)
}

func (r *fakeRouter) ClusterFor(bucket string) (string, error) {
	if c, ok := r.clusterOf[bucket]; ok {
		return c, nil
	}
	return "", errs.NewMissingRoute("no cluster for bucket %q", bucket)
}

func (r *fakeRouter) ClusterRoute(clusterName string) ([]node.Node, error) {
	nodes, ok := r.clusterMembers[clusterName]
	if !ok {
		return nil, errs.NewMissingRoute("cluster %q has no ring", clusterName)
	}
	return nodes, nil
}

func (r *fakeRouter) BroadcastRoute() map[string][]node.Node {
	return r.clusterMembers
}
