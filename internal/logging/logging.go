// Package logging wraps zerolog with Terrastore's own field vocabulary:
// node, cluster, and bucket identities instead of warren's
// service/task/scheduler ones.
//
// Grounded on cuemby-warren/pkg/log: a package-level Logger set once by
// Init, plus With*-prefixed helpers that return a child logger carrying
// one more structured field. The level/format/output Config shape is
// carried over unchanged; only the domain-specific With* helpers differ.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger, set once by Init and read by every
// package that accepts a zerolog.Logger in its Config.
var Logger zerolog.Logger

// Level names accepted by Config.Level.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config configures Init.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the package-level Logger. Call once at process
// startup, before any collaborator captures a child logger from it.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

// WithNode returns a child logger tagged with this process's node identity
// (spec §6's node.id).
func WithNode(nodeID string) zerolog.Logger {
	return Logger.With().Str("node", nodeID).Logger()
}

// WithCluster returns a child logger tagged with a cluster name.
func WithCluster(clusterName string) zerolog.Logger {
	return Logger.With().Str("cluster", clusterName).Logger()
}

// WithBucket returns a child logger tagged with a bucket name.
func WithBucket(bucket string) zerolog.Logger {
	return Logger.With().Str("bucket", bucket).Logger()
}
