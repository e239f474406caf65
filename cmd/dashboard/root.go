package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live telemetry dashboard for the grid trading bot",
	Long: `dashboard keeps a merged view of the bot's state, orders, config and report
snapshots. It follows the bot's push channel when one is advertised and falls
back to polling the snapshot files every 5 seconds whenever the channel is down.

The merged view is served to browsers over HTTP and websocket, and can also be
recorded to SQLite/Postgres, fanned out over redis and reported through gRPC
health checks.`,
	SilenceUsage: true,
}

var (
	configPath string
	pollOnly   bool
	pushURL    string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file (defaults apply when omitted)")
	rootCmd.PersistentFlags().BoolVar(&pollOnly, "poll-only", false, "never open the push channel, poll only")
	rootCmd.PersistentFlags().StringVar(&pushURL, "push-url", "", "push channel URL, overrides ws_url from config.json")
}
