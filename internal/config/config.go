// Package config loads the configuration surface spec §6 enumerates as
// "options, not flags": node identity/concurrency/timeout, failover
// retry policy, cluster partition count, ensemble polling strategy, and
// which event bus implementation to use.
//
// Grounded on cuemby-warren's cmd/warren/apply.go: read the whole file,
// gopkg.in/yaml.v3-unmarshal it into a typed struct. The teacher itself
// (cmd/coordinator/main.go) configures only a listen address, entirely
// from a single environment variable (COORDINATOR_ADDR) with no file at
// all; that env-var-override idiom is generalized here to one override
// per field, applied after the YAML file is parsed, so an operator can
// still tweak a single value at container-launch time without editing
// the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dreamware/terrastore/internal/errs"
)

// Node configures the local process's own identity and local worker pool
// (spec §6: node.id, node.concurrency, node.timeout).
type Node struct {
	ID            string `yaml:"id"`
	Concurrency   int    `yaml:"concurrency"`
	TimeoutMillis int64  `yaml:"timeout"`
}

// Timeout is node.timeout as a time.Duration.
func (n Node) Timeout() time.Duration { return time.Duration(n.TimeoutMillis) * time.Millisecond }

// Failover configures FailureDecorator (spec §6: failover.retries,
// failover.interval).
type Failover struct {
	Retries        int   `yaml:"retries"`
	IntervalMillis int64 `yaml:"interval"`
}

// Interval is failover.interval as a time.Duration.
func (f Failover) Interval() time.Duration { return time.Duration(f.IntervalMillis) * time.Millisecond }

// Cluster configures every cluster's ring (spec §6: cluster.partitions).
type Cluster struct {
	Partitions int `yaml:"partitions"`
}

// Ensemble strategy names (spec §6: ensemble.strategy).
const (
	StrategyFixed    = "fixed"
	StrategyAdaptive = "adaptive"
)

// Ensemble configures the EnsembleManager's polling cadence (spec §6:
// ensemble.strategy, ensemble.interval).
type Ensemble struct {
	Strategy       string `yaml:"strategy"`
	IntervalMillis int64  `yaml:"interval"`
}

// Interval is ensemble.interval as a time.Duration, meaningful only when
// Strategy is StrategyFixed.
func (e Ensemble) Interval() time.Duration { return time.Duration(e.IntervalMillis) * time.Millisecond }

// EventBus configures which event-bus implementation buckets publish to
// (spec §6: eventBus.impl). The event bus itself is an external
// collaborator (spec §1); this is only the selector.
type EventBus struct {
	Impl string `yaml:"impl"`
}

const (
	EventBusMemory   = "memory"
	EventBusExternal = "external"
)

// Config is the full configuration surface spec §6 enumerates.
type Config struct {
	Node     Node     `yaml:"node"`
	Failover Failover `yaml:"failover"`
	Cluster  Cluster  `yaml:"cluster"`
	Ensemble Ensemble `yaml:"ensemble"`
	EventBus EventBus `yaml:"eventBus"`
}

// Defaults returns a Config with every field spec §6 gives a stated
// default for; fields it doesn't (node.id, node.concurrency, node.timeout,
// failover.retries/interval, ensemble.interval) are left at their Go zero
// value for the caller's YAML/env overrides to fill in.
func Defaults() Config {
	return Config{
		Cluster:  Cluster{Partitions: 1024},
		Ensemble: Ensemble{Strategy: StrategyFixed},
		EventBus: EventBus{Impl: EventBusMemory},
	}
}

// Load reads path as YAML into Defaults(), then applies any of the
// TERRASTORE_* environment overrides that are set, and validates the
// result.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errs.NewValidation("failed to read config file %q: %v", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errs.NewValidation("failed to parse config file %q: %v", path, err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports a ValidationError for any field spec's semantics
// cannot operate with (spec §7: malformed input is surfaced, not a panic
// waiting to happen at first use).
func (c Config) Validate() error {
	if c.Node.ID == "" {
		return errs.NewValidation("node.id is required")
	}
	if c.Cluster.Partitions <= 0 {
		return errs.NewValidation("cluster.partitions must be positive, got %d", c.Cluster.Partitions)
	}
	switch c.Ensemble.Strategy {
	case StrategyFixed, StrategyAdaptive:
	default:
		return errs.NewValidation("ensemble.strategy must be %q or %q, got %q", StrategyFixed, StrategyAdaptive, c.Ensemble.Strategy)
	}
	switch c.EventBus.Impl {
	case EventBusMemory, EventBusExternal:
	default:
		return errs.NewValidation("eventBus.impl must be %q or %q, got %q", EventBusMemory, EventBusExternal, c.EventBus.Impl)
	}
	return nil
}

// applyEnvOverrides pairs each TERRASTORE_-prefixed environment variable with
// the setter it feeds, mirroring the teacher's COORDINATOR_ADDR: one named
// variable per runtime-tunable value, applied after file parsing.
func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		name string
		set  func(string) error
	}{
		{"TERRASTORE_NODE_ID", func(v string) error { cfg.Node.ID = v; return nil }},
		{"TERRASTORE_NODE_CONCURRENCY", intSetter(&cfg.Node.Concurrency)},
		{"TERRASTORE_NODE_TIMEOUT", int64Setter(&cfg.Node.TimeoutMillis)},
		{"TERRASTORE_FAILOVER_RETRIES", intSetter(&cfg.Failover.Retries)},
		{"TERRASTORE_FAILOVER_INTERVAL", int64Setter(&cfg.Failover.IntervalMillis)},
		{"TERRASTORE_CLUSTER_PARTITIONS", intSetter(&cfg.Cluster.Partitions)},
		{"TERRASTORE_ENSEMBLE_STRATEGY", func(v string) error { cfg.Ensemble.Strategy = v; return nil }},
		{"TERRASTORE_ENSEMBLE_INTERVAL", int64Setter(&cfg.Ensemble.IntervalMillis)},
		{"TERRASTORE_EVENTBUS_IMPL", func(v string) error { cfg.EventBus.Impl = v; return nil }},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.name); ok {
			_ = o.set(v) // malformed values leave the file-provided setting in place
		}
	}
}

func intSetter(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer %q: %w", v, err)
		}
		*dst = n
		return nil
	}
}

func int64Setter(dst *int64) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q: %w", v, err)
		}
		*dst = n
		return nil
	}
}
