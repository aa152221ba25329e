package ensemble

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dreamware/terrastore/internal/cluster"
	"github.com/dreamware/terrastore/internal/telemetry"
)

// MembershipClient queries one remote contact for its cluster's current
// node set. Implementations live in internal/node (a RemoteNode sending a
// command.Membership command); this interface exists so that ensemble does
// not need to import internal/node, mirroring health_monitor.go's
// pluggable checkFunc.
type MembershipClient interface {
	QueryMembership(ctx context.Context, contact cluster.NodeAddress) ([]cluster.NodeAddress, error)
}

// RouterView receives the outcome of a tick: the new node set for a remote
// cluster, to be swapped into the Router's ring atomically. Implemented by
// internal/router.Router.
type RouterView interface {
	SetClusterNodes(clusterName string, nodes []cluster.NodeAddress)
}

// ClusterView tracks one remote cluster's known contacts and last-seen
// node set, so EnsembleManager can pick a contact, detect a diff, and fail
// over to the next known contact without needing an external registry.
type ClusterView struct {
	mu          sync.RWMutex
	name        string
	contacts    []cluster.NodeAddress
	nodes       []cluster.NodeAddress
	unreachable bool
}

func newClusterView(name string, contacts []cluster.NodeAddress) *ClusterView {
	return &ClusterView{name: name, contacts: append([]cluster.NodeAddress(nil), contacts...)}
}

// Nodes returns a snapshot of the last-known node set.
func (c *ClusterView) Nodes() []cluster.NodeAddress {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]cluster.NodeAddress, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Unreachable reports whether the most recent tick failed against every
// known contact.
func (c *ClusterView) Unreachable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.unreachable
}

// Strategy decides how long to wait before the next tick. Implementations
// must be stateless between calls with respect to correctness (spec §9):
// NextInterval may read Stats but must not depend on hidden state that
// would make two managers with identical Stats histories diverge.
type Strategy interface {
	NextInterval(observed Stats) time.Duration
}

// Stats is the per-tick feedback an adaptive Strategy consumes: the
// observed request rate and the previous tick's round-trip latency.
type Stats struct {
	RequestRate float64       // requests/sec observed since the last tick
	PriorLatency time.Duration // round-trip latency of the previous tick
}

// FixedInterval implements the fixed-interval strategy: always wait T.
type FixedInterval struct {
	Interval time.Duration
}

// NextInterval returns the configured fixed interval, ignoring Stats.
func (f FixedInterval) NextInterval(Stats) time.Duration {
	return f.Interval
}

// AdaptiveInterval implements the fuzzy-controller strategy described in
// spec §9 (REDESIGN FLAGS): polling interval is a function of request rate
// and prior latency, classified into three linguistic bands (low/medium/
// high) per input, bounded to [Min, Max]. This substitutes a simple,
// monotonic weighted-average controller for the source's full
// fuzzy-inference engine, honoring the two contracts spec §9 requires:
// bounded output and tick-to-tick statelessness.
type AdaptiveInterval struct {
	Min, Max          time.Duration
	RateHighWatermark float64       // requests/sec considered "high" load
	LatencyHighMark   time.Duration // latency considered "high"
}

// band classifies a ratio of observed/threshold into low/medium/high,
// returning a weight in [0,1] where 0 means "back off to Max" and 1 means
// "tighten toward Min".
func band(observed, highMark float64) float64 {
	if highMark <= 0 {
		return 0.5
	}
	ratio := observed / highMark
	switch {
	case ratio <= 0.33:
		return 0.0 // low band: no pressure to poll faster
	case ratio >= 1.0:
		return 1.0 // high band: poll as fast as allowed
	default:
		return (ratio - 0.33) / (1.0 - 0.33) // medium band: linear blend
	}
}

// NextInterval blends the rate and latency bands into a single weight and
// interpolates linearly between Max (low pressure) and Min (high
// pressure), then clamps to [Min, Max].
func (a AdaptiveInterval) NextInterval(observed Stats) time.Duration {
	rateWeight := band(observed.RequestRate, a.RateHighWatermark)
	latencyWeight := band(float64(observed.PriorLatency), float64(a.LatencyHighMark))
	weight := (rateWeight + latencyWeight) / 2

	span := float64(a.Max - a.Min)
	interval := a.Max - time.Duration(weight*span)

	if interval < a.Min {
		interval = a.Min
	}
	if interval > a.Max {
		interval = a.Max
	}
	return interval
}

// Manager is the EnsembleManager (spec §4.9): it periodically polls every
// known remote cluster's membership and pushes diffs into a RouterView.
//
// Grounded on health_monitor.go's HealthMonitor: ticker + context
// cancellation + pluggable per-target check function + WaitGroup-guarded
// shutdown, generalized from "check node health" to "poll Membership
// against one contact per remote cluster, failing over to the next known
// contact, marking the cluster unreachable if all fail."
type Manager struct {
	client   MembershipClient
	router   RouterView
	strategy Strategy
	log      zerolog.Logger

	mu       sync.RWMutex
	clusters map[string]*ClusterView

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsMu sync.Mutex
	stats   Stats
}

// NewManager creates a Manager with the given membership client, router
// view, and polling strategy. Tick failures log through logger (the
// zero value is zerolog's usual discard-everything logger).
func NewManager(client MembershipClient, router RouterView, strategy Strategy, logger zerolog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		client:   client,
		router:   router,
		strategy: strategy,
		log:      logger,
		clusters: make(map[string]*ClusterView),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// AddCluster registers a remote cluster and its known contacts. Calling it
// again for the same name replaces the contact list.
func (m *Manager) AddCluster(name string, contacts []cluster.NodeAddress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusters[name] = newClusterView(name, contacts)
}

// RemoveCluster stops tracking a remote cluster.
func (m *Manager) RemoveCluster(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clusters, name)
}

// RecordStats feeds request-rate/latency observations to an adaptive
// Strategy. No component in this module calls it, so unless a caller
// does, every tick sees zero-valued Stats; Manager only reads the latest
// value at each tick boundary.
func (m *Manager) RecordStats(s Stats) {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	m.stats = s
}

func (m *Manager) currentStats() Stats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.stats
}

// Run blocks, ticking at intervals chosen by the configured Strategy,
// until ctx is cancelled or Stop is called.
func (m *Manager) Run(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	for {
		m.tickAll(ctx)

		interval := m.strategy.NextInterval(m.currentStats())

		timer := time.NewTimer(interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		case <-m.ctx.Done():
			timer.Stop()
			return
		}
	}
}

// Stop cancels the manager's internal context and waits for Run to return.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

// tickAll polls every tracked cluster once, concurrently.
func (m *Manager) tickAll(ctx context.Context) {
	m.mu.RLock()
	views := make([]*ClusterView, 0, len(m.clusters))
	for _, v := range m.clusters {
		views = append(views, v)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, v := range views {
		wg.Add(1)
		go func(v *ClusterView) {
			defer wg.Done()
			m.tickOne(ctx, v)
		}(v)
	}
	wg.Wait()
}

// tickOne polls one cluster's contacts in order until one responds,
// diffs the result against the last-known view, and if it changed, pushes
// the new node set into the RouterView.
func (m *Manager) tickOne(ctx context.Context, v *ClusterView) {
	v.mu.RLock()
	contacts := append([]cluster.NodeAddress(nil), v.contacts...)
	v.mu.RUnlock()

	for _, contact := range contacts {
		nodes, err := m.client.QueryMembership(ctx, contact)
		if err != nil {
			m.log.Error().Err(err).Str("cluster", v.name).Str("contact", contact.Addr()).
				Msg("ensemble: contact failed")
			continue
		}

		v.mu.Lock()
		changed := !sameNodeSet(v.nodes, nodes)
		v.nodes = nodes
		v.unreachable = false
		v.mu.Unlock()

		if changed {
			m.router.SetClusterNodes(v.name, nodes)
		}
		telemetry.EnsembleTicksTotal.WithLabelValues(v.name, "ok").Inc()
		return
	}

	// Every contact failed this tick: leave the view unchanged, mark
	// unreachable.
	v.mu.Lock()
	v.unreachable = true
	v.mu.Unlock()
	m.log.Error().Str("cluster", v.name).Int("contacts", len(contacts)).
		Msg("ensemble: cluster unreachable this tick, all contacts failed")
	telemetry.EnsembleTicksTotal.WithLabelValues(v.name, "unreachable").Inc()
}

func sameNodeSet(a, b []cluster.NodeAddress) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, n := range a {
		seen[n.ID+"@"+n.Addr()] = true
	}
	for _, n := range b {
		if !seen[n.ID+"@"+n.Addr()] {
			return false
		}
	}
	return true
}
