package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"trade-dashboard/src/config"
	datasource "trade-dashboard/src/data_source"
	"trade-dashboard/src/interfaces"
	"trade-dashboard/src/logger"
	"trade-dashboard/src/models"
	"trade-dashboard/src/network"
	"trade-dashboard/src/utils"
)

// -----------------------------------------------------------------------------

// loadConfig reads the config file and environment, then applies CLI flags on
// top of both.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	conf, err := config.NewConfig(configPath)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("poll-only") {
		conf.Live.PollOnly = pollOnly
	}
	if pushURL != "" {
		conf.Live.PushURL = pushURL
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return conf, nil
}

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(cfg *models.MConfig) interfaces.INetworkManager {
	networkLogger := logger.NewLogger(cfg, "NetworkManager")
	return network.NewAsyncNetworkManager(cfg, networkLogger)
}

// -----------------------------------------------------------------------------

// setupSource initializes the HTTP snapshot source
func setupSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, clock utils.Clock) interfaces.ISnapshotSource {
	sourceLogger := logger.NewLogger(cfg, "SnapshotSource")
	return datasource.NewHTTPSnapshotSource(cfg, netMgr, clock, sourceLogger)
}
