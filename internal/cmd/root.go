// Package cmd wires the hyper-recovery command-line surface: a cobra
// root command with daemon, tui, and status subcommands, sharing a
// small set of persistent flags that map onto the daemon's config
// layering.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hyper-recovery",
	Short: "First-boot and recovery WiFi configuration daemon",
	Long: `hyper-recovery brings an appliance onto a network when no connection
is configured: it waits out a short grace period for an existing
connection, falls back to a self-hosted access point and captive
portal when none appears, and remembers networks it has joined so
future boots reconnect automatically.`,
}

// Execute runs the root command with a signal-aware context and
// returns the process exit code.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd.SetContext(ctx)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a config file (yaml/json/toml)")
	rootCmd.PersistentFlags().String("socket", "", "path to the daemon's IPC socket (default /run/hyper-wifi-setup.sock)")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(statusCmd)
}

func socketPathFlag(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("socket")
	if path == "" {
		path, _ = cmd.InheritedFlags().GetString("socket")
	}
	if path == "" {
		return "/run/hyper-wifi-setup.sock"
	}
	return path
}

func configPathFlag(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path, _ = cmd.InheritedFlags().GetString("config")
	}
	return path
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "hyper-recovery: "+format+"\n", args...)
	os.Exit(1)
}
