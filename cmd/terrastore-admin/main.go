// Command terrastore-admin is a small operator CLI for an already-running
// terrastore-node process: inspect its buckets and key counts over the
// wire protocol (spec §6), trigger and print a Membership poll, and hit
// its HTTP control plane for address-table lookups and health.
//
// Grounded on cuemby-warren/cmd/warren's rootCmd/subcommand structure
// (clusterCmd/nodeCmd/serviceCmd, each a parent cobra.Command with
// RunE-bearing children) — terrastore-admin mirrors that shape with
// bucketsCmd/membershipCmd/clusterCmd/healthCmd in place of warren's
// orchestration-specific subcommands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dreamware/terrastore/internal/cluster"
	"github.com/dreamware/terrastore/internal/command"
	"github.com/dreamware/terrastore/internal/node"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "terrastore-admin:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "terrastore-admin",
	Short: "Operator CLI for inspecting a running terrastore-node",
}

func init() {
	rootCmd.PersistentFlags().String("addr", "127.0.0.1:7700", "node's wire-protocol listener address")
	rootCmd.PersistentFlags().String("control-addr", "127.0.0.1:7800", "node's HTTP control-plane address")
	rootCmd.PersistentFlags().Duration("timeout", 5*time.Second, "deadline for the admin request")

	rootCmd.AddCommand(bucketsCmd, membershipCmd, clusterCmd, healthCmd)
}

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "List buckets and their key counts",
	RunE:  runBuckets,
}

func runBuckets(cmd *cobra.Command, _ []string) error {
	ctx, cancel, rn, err := dialWire(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer rn.Disconnect()

	bucketsBody, err := rn.Send(ctx, command.Command{Kind: command.GetBuckets, Version: command.CurrentVersion, Payload: []byte(`{}`)})
	if err != nil {
		return fmt.Errorf("GetBuckets: %w", err)
	}
	var buckets command.GetBucketsResult
	if err := json.Unmarshal(bucketsBody, &buckets); err != nil {
		return fmt.Errorf("decode GetBuckets result: %w", err)
	}

	for _, name := range buckets.Buckets {
		payload, err := json.Marshal(command.GetKeysPayload{Bucket: name})
		if err != nil {
			return fmt.Errorf("encode GetKeys payload: %w", err)
		}
		keysBody, err := rn.Send(ctx, command.Command{Kind: command.GetKeys, Version: command.CurrentVersion, Payload: payload})
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t<error: %v>\n", name, err)
			continue
		}
		var keys command.GetKeysResult
		if err := json.Unmarshal(keysBody, &keys); err != nil {
			return fmt.Errorf("decode GetKeys result: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d keys\n", name, len(keys.Keys))
	}
	return nil
}

var membershipCmd = &cobra.Command{
	Use:   "membership",
	Short: "Trigger a Membership poll against a node and print its answer",
	RunE:  runMembership,
}

func runMembership(cmd *cobra.Command, _ []string) error {
	ctx, cancel, rn, err := dialWire(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer rn.Disconnect()

	body, err := rn.Send(ctx, command.Command{Kind: command.Membership, Version: command.CurrentVersion, Payload: []byte(`{}`)})
	if err != nil {
		return fmt.Errorf("Membership: %w", err)
	}
	var result command.MembershipResult
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decode Membership result: %w", err)
	}
	for _, m := range result.Members {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.ID, m.Addr())
	}
	return nil
}

var clusterCmd = &cobra.Command{
	Use:   "cluster-lookup <node-id>",
	Short: "Look up a node's published address via the control plane",
	Args:  cobra.ExactArgs(1),
	RunE:  runClusterLookup,
}

func runClusterLookup(cmd *cobra.Command, args []string) error {
	controlAddr, _ := cmd.Flags().GetString("control-addr")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	httpClient := &http.Client{Timeout: timeout}
	resp, err := httpClient.Get(fmt.Sprintf("http://%s/cluster/lookup?id=%s", controlAddr, args[0]))
	if err != nil {
		return fmt.Errorf("GET /cluster/lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /cluster/lookup: status %s", resp.Status)
	}
	var addr cluster.NodeAddress
	if err := json.NewDecoder(resp.Body).Decode(&addr); err != nil {
		return fmt.Errorf("decode lookup response: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", addr.ID, addr.Addr())
	return nil
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check a node's /health endpoint",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, _ []string) error {
	controlAddr, _ := cmd.Flags().GetString("control-addr")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	httpClient := &http.Client{Timeout: timeout}
	resp, err := httpClient.Get(fmt.Sprintf("http://%s/health", controlAddr))
	if err != nil {
		return fmt.Errorf("GET /health: %w", err)
	}
	defer resp.Body.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", controlAddr, resp.Status)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("node reported unhealthy status %s", resp.Status)
	}
	return nil
}

// dialWire connects to the node named by --addr and returns a context
// bounded by --timeout, its cancel func, and the connected RemoteNode.
func dialWire(cmd *cobra.Command) (context.Context, context.CancelFunc, *node.RemoteNode, error) {
	addr, _ := cmd.Flags().GetString("addr")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	rn := node.NewRemoteNode("admin", addr, timeout)
	if err := rn.Connect(ctx); err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	return ctx, cancel, rn, nil
}
