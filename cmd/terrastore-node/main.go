// Command terrastore-node runs one node process of a Terrastore ensemble:
// the binary wire-protocol listener (spec §6), an HTTP control plane
// (health, address-table publish/lookup, metrics), and the full
// config→logging→telemetry→storage→router→coordinator→ensemble-manager
// wiring graph described in SPEC_FULL.md's cmd section.
//
// Grounded on the teacher's cmd/node/main.go (construct, serve, signal,
// shutdown skeleton; NODE_LISTEN/NODE_ADDR bind-vs-advertise split) and
// cmd/coordinator/main.go (HTTP mux with health/broadcast endpoints), with
// cuemby-warren/cmd/warren's cobra rootCmd/flag structure replacing the
// teacher's raw os.Getenv handling.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dreamware/terrastore/internal/cluster"
	"github.com/dreamware/terrastore/internal/command"
	"github.com/dreamware/terrastore/internal/config"
	"github.com/dreamware/terrastore/internal/coordinator"
	"github.com/dreamware/terrastore/internal/ensemble"
	"github.com/dreamware/terrastore/internal/logging"
	"github.com/dreamware/terrastore/internal/membership"
	"github.com/dreamware/terrastore/internal/node"
	"github.com/dreamware/terrastore/internal/router"
	"github.com/dreamware/terrastore/internal/storage"
	"github.com/dreamware/terrastore/internal/telemetry"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "terrastore-node:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "terrastore-node",
	Short: "Runs one node process of a Terrastore ensemble",
	RunE:  runNode,
}

func init() {
	f := rootCmd.Flags()
	f.String("config", "", "path to the node's YAML configuration file (spec §6)")
	f.String("cluster", "", "name of the local cluster this node belongs to")
	f.String("listen", ":7700", "bind address for the binary wire-protocol listener")
	f.String("advertise", "", "address other nodes dial to reach this node's wire listener (defaults to --listen)")
	f.String("control-listen", ":7800", "bind address for the HTTP control plane (health/metrics/address-table)")
	f.StringSlice("peer", nil, "id=host:port of another node already in the local cluster, repeatable")
	f.StringSlice("remote-cluster", nil, "name=host:port[,host:port...] contacts for a remote ensemble cluster, repeatable")
	f.String("broadcast-url", "", "control-plane URL to notify at the pause/resume steps of a topology change; omit to skip best-effort cross-process notification")
	f.Bool("generate-node-id", false, "mint node.id via uuid.New() instead of requiring it in config (spec §6: the core is stateless across restarts)")
	f.String("log-level", "info", "log level: debug, info, warn, error")
	f.Bool("log-json", true, "emit structured JSON logs")
	_ = rootCmd.MarkFlagRequired("config")
	_ = rootCmd.MarkFlagRequired("cluster")
}

func runNode(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	localCluster, _ := flags.GetString("cluster")
	listenAddr, _ := flags.GetString("listen")
	advertiseAddr, _ := flags.GetString("advertise")
	controlListen, _ := flags.GetString("control-listen")
	peerFlags, _ := flags.GetStringSlice("peer")
	remoteClusterFlags, _ := flags.GetStringSlice("remote-cluster")
	broadcastURL, _ := flags.GetString("broadcast-url")
	generateNodeID, _ := flags.GetBool("generate-node-id")
	logLevel, _ := flags.GetString("log-level")
	logJSON, _ := flags.GetBool("log-json")

	if advertiseAddr == "" {
		advertiseAddr = listenAddr
	}
	if generateNodeID {
		os.Setenv("TERRASTORE_NODE_ID", uuid.New().String())
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{Level: logging.Level(logLevel), JSONOutput: logJSON, Output: os.Stdout})
	log := logging.WithCluster(localCluster)
	log = log.With().Str("node", cfg.Node.ID).Logger()

	advertiseHost, advertisePort, err := splitHostPort(advertiseAddr)
	if err != nil {
		return fmt.Errorf("--advertise: %w", err)
	}
	selfAddr := cluster.NodeAddress{ID: cfg.Node.ID, Host: advertiseHost, Port: advertisePort}

	peers, err := parsePeers(peerFlags)
	if err != nil {
		return fmt.Errorf("--peer: %w", err)
	}
	remoteClusters, err := parseRemoteClusters(remoteClusterFlags)
	if err != nil {
		return fmt.Errorf("--remote-cluster: %w", err)
	}

	buckets := storage.NewRegistry()

	allClusterNames := make([]string, 0, 1+len(remoteClusters))
	allClusterNames = append(allClusterNames, localCluster)
	for name := range remoteClusters {
		allClusterNames = append(allClusterNames, name)
	}

	rtr := router.New(localCluster, cfg.Cluster.Partitions)
	rtr.SetupClusters(allClusterNames)

	addresses := coordinator.NewMemoryAddressTable()
	addresses.Publish(selfAddr)
	for _, p := range peers {
		addresses.Publish(p)
	}

	var notifier coordinator.Notifier = coordinator.NoopNotifier{}
	if broadcastURL != "" {
		notifier = coordinator.HTTPNotifier{BroadcastURL: broadcastURL}
	}

	coord := coordinator.New(coordinator.Config{
		LocalCluster: localCluster,
		Router:       rtr,
		Buckets:      buckets,
		Deps:         command.Deps{Buckets: buckets},
		Addresses:    addresses,
		Dialer:       coordinator.RemoteDialer{NodeTimeout: cfg.Node.Timeout()},
		Notifier:     notifier,
		Concurrency:  cfg.Node.Concurrency,
		Logger:       log,
	})

	staticMembers := append([]cluster.NodeAddress{selfAddr}, peers...)
	gm := membership.NewStaticMembership(staticMembers)
	coord.Watch(gm, cfg.Node.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mgr *ensemble.Manager
	if len(remoteClusters) > 0 {
		strategy := ensembleStrategy(cfg)
		remoteSync := router.NewRemoteSync(rtr, coordinator.RemoteDialer{NodeTimeout: cfg.Node.Timeout()})
		membershipClient := node.RemoteMembershipClient{DialTimeout: cfg.Node.Timeout()}
		mgr = ensemble.NewManager(membershipClient, remoteSync, strategy, log)
		for name, contacts := range remoteClusters {
			mgr.AddCluster(name, contacts)
		}
		go mgr.Run(ctx)
	}

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listenAddr, err)
	}
	go func() {
		if err := node.Serve(ctx, ln, command.Deps{Buckets: buckets, Membership: coord}); err != nil {
			log.Error().Err(err).Msg("wire listener stopped")
		}
	}()

	controlSrv := &http.Server{
		Addr:              controlListen,
		Handler:           controlMux(addresses, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := controlSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("control listener stopped")
		}
	}()

	log.Info().Str("wire", listenAddr).Str("control", controlListen).Msg("terrastore-node started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutting down")

	cancel()
	if mgr != nil {
		mgr.Stop()
	}
	coord.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = controlSrv.Shutdown(shutdownCtx)

	log.Info().Msg("shutdown complete")
	return nil
}

func ensembleStrategy(cfg config.Config) ensemble.Strategy {
	if cfg.Ensemble.Strategy == config.StrategyAdaptive {
		return ensemble.AdaptiveInterval{
			Min:               500 * time.Millisecond,
			Max:               30 * time.Second,
			RateHighWatermark: 100,
			LatencyHighMark:   250 * time.Millisecond,
		}
	}
	return ensemble.FixedInterval{Interval: cfg.Ensemble.Interval()}
}

// controlMux builds the HTTP control plane: health, address-table
// publish/lookup (for deployments that push addresses at runtime rather
// than via --peer), metrics, and an advisory /cluster/broadcast receiver.
//
// Grounded on cmd/coordinator/main.go's mux of small, single-purpose
// handlers over the coordinator's in-process state.
func controlMux(addresses coordinator.AddressTable, log zerolog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/cluster/publish", func(w http.ResponseWriter, r *http.Request) {
		var req cluster.PublishRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		addresses.Publish(req.Node)
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/cluster/lookup", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		addr, ok := addresses.Lookup(id)
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(addr)
	})

	mux.HandleFunc("/cluster/broadcast", func(w http.ResponseWriter, r *http.Request) {
		var req cluster.BroadcastRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Info().Str("path", req.Path).Msg("received topology notification")
		w.WriteHeader(http.StatusNoContent)
	})

	mux.Handle("/metrics", telemetry.Handler())

	return mux
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, port, nil
}

// parsePeers decodes a repeated --peer id=host:port flag into node
// addresses.
func parsePeers(raw []string) ([]cluster.NodeAddress, error) {
	out := make([]cluster.NodeAddress, 0, len(raw))
	for _, entry := range raw {
		id, hostport, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("malformed peer %q, want id=host:port", entry)
		}
		host, port, err := splitHostPort(hostport)
		if err != nil {
			return nil, fmt.Errorf("peer %q: %w", entry, err)
		}
		out = append(out, cluster.NodeAddress{ID: id, Host: host, Port: port})
	}
	return out, nil
}

// parseRemoteClusters decodes a repeated --remote-cluster
// name=host:port[,host:port...] flag into contact lists per cluster name.
func parseRemoteClusters(raw []string) (map[string][]cluster.NodeAddress, error) {
	out := make(map[string][]cluster.NodeAddress, len(raw))
	for _, entry := range raw {
		name, hostports, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("malformed remote-cluster %q, want name=host:port", entry)
		}
		var contacts []cluster.NodeAddress
		for i, hostport := range strings.Split(hostports, ",") {
			host, port, err := splitHostPort(hostport)
			if err != nil {
				return nil, fmt.Errorf("remote-cluster %q: %w", entry, err)
			}
			contacts = append(contacts, cluster.NodeAddress{ID: fmt.Sprintf("%s-contact-%d", name, i), Host: host, Port: port})
		}
		out[name] = contacts
	}
	return out, nil
}
