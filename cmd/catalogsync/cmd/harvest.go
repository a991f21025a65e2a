package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Run one listing harvest pass and exit",
	Long:  "Searches every store for the configured search terms and reconciles the discovered listings into the catalog.",
	RunE:  runHarvest,
}

func init() {
	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(_ *cobra.Command, _ []string) error {
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

	upserted, err := newEngine(cfg, cat, log).RunHarvestPass(ctx)
	if err != nil {
		return err
	}

	log.Info("harvest pass complete", "upserted", upserted)
	return nil
}
