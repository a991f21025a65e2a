package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/buyvia/catalogsync/internal/syncer"
)

var (
	startStoreID   int64
	startProductID int64
	syncChunkSize  int
	syncPrune      bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one catalog sync pass and exit",
	Long:  "Probes every tracked product for current price and availability, records price changes in the ledger, and optionally prunes long-unavailable products. Use the start flags to resume an interrupted pass from its last committed chunk.",
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().Int64Var(&startStoreID, "start-store-id", 0, "store id to start from")
	syncCmd.Flags().Int64Var(&startProductID, "start-product-id", 0, "product id to start from within the first store")
	syncCmd.Flags().IntVar(&syncChunkSize, "chunk-size", 0, "override configured chunk size")
	syncCmd.Flags().BoolVar(&syncPrune, "prune", false, "prune long-unavailable products during the pass")
	rootCmd.AddCommand(syncCmd)
}

func runSync(_ *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	var opts []syncer.EngineOption
	if startStoreID > 0 {
		opts = append(opts, syncer.WithResume(startStoreID, startProductID))
	}
	if syncChunkSize > 0 {
		opts = append(opts, syncer.WithChunkSize(syncChunkSize))
	}
	if syncPrune {
		opts = append(opts, syncer.WithPruning(true, cfg.Sync.Pruning.Retention))
	}
	eng := newEngine(cfg, cat, log, opts...)

	probed, err := eng.RunSyncPass(ctx)
	if err != nil {
		return err
	}

	log.Info("sync pass complete", "probed", probed)
	return nil
}
