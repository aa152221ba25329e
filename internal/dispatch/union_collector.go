package dispatch

import "sync"

// UnionCollector concatenates partial maps into one map, keyed union with
// later-write-wins on collision (spec §4.7). It's the collector to use when
// prior routing already guarantees disjoint key sets across partials, e.g.
// Router.RouteToNodesFor's per-node key groupings.
type UnionCollector[K comparable, V any] struct {
	mu  sync.Mutex
	out map[K]V
}

// NewUnionCollector creates an empty UnionCollector.
func NewUnionCollector[K comparable, V any]() *UnionCollector[K, V] {
	return &UnionCollector[K, V]{out: make(map[K]V)}
}

// Add merges partial into the accumulated map. Safe for concurrent use.
func (c *UnionCollector[K, V]) Add(partial map[K]V) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range partial {
		c.out[k] = v
	}
	return nil
}

// Result returns the accumulated union map.
func (c *UnionCollector[K, V]) Result() map[K]V {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out
}
