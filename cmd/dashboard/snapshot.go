package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"trade-dashboard/src/analysis"
	datasource "trade-dashboard/src/data_source"
	"trade-dashboard/src/helpers"
	"trade-dashboard/src/logger"
	"trade-dashboard/src/metrics"
	"trade-dashboard/src/models"
	"trade-dashboard/src/store"
	"trade-dashboard/src/utils"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Pull every snapshot once and print the resulting frame as JSON",
	RunE:  runSnapshot,
}

var snapshotTimeout time.Duration

func init() {
	rootCmd.AddCommand(snapshotCmd)

	snapshotCmd.Flags().DurationVar(&snapshotTimeout, "timeout", 10*time.Second, "overall timeout for the pull")
}

// -----------------------------------------------------------------------------

func runSnapshot(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg := conf.MConfig
	appLogger := logger.NewLogger(cfg, cfg.Name)
	defer appLogger.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), snapshotTimeout)
	defer cancel()

	clock := utils.RealClock()
	source := setupSource(cfg, setupNetwork(cfg), clock)

	snaps := datasource.FetchAll(ctx, source, cfg.Source.ConcurrentRequests, helpers.NewErrorHandler(appLogger), metrics.NewMetrics())

	st := store.NewSnapshotStore()
	for _, kind := range models.AllKinds {
		st.ApplyFull(kind, snaps[kind])
	}

	facade := analysis.NewAnalysisFacade(cfg, clock, appLogger.Named("analysis"))
	frame := facade.BuildFrame(st.View(), models.LinkPoll, models.OriginPoll)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(frame)
}
