package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var localizeCmd = &cobra.Command{
	Use:   "localize",
	Short: "Run one title localization pass and exit",
	Long:  "Backfills translated titles for products that don't yet have one in the configured language.",
	RunE:  runLocalize,
}

func init() {
	rootCmd.AddCommand(localizeCmd)
}

func runLocalize(_ *cobra.Command, _ []string) error {
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

	written, err := newEngine(cfg, cat, log).RunLocalizePass(ctx)
	if err != nil {
		return err
	}

	log.Info("localization pass complete", "written", written)
	return nil
}
