// Package cmd implements the CLI commands for catalogsync.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/buyvia/catalogsync/internal/catalog"
	"github.com/buyvia/catalogsync/internal/config"
	"github.com/buyvia/catalogsync/internal/shop"
	"github.com/buyvia/catalogsync/internal/syncer"
	"github.com/buyvia/catalogsync/pkg/logger"
	domain "github.com/buyvia/catalogsync/pkg/types"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "catalogsync",
	Short: "Keep the product catalog aligned with external stores",
	Long:  "A service that keeps a local product catalog aligned with external store listings: it probes tracked products for price and availability changes, discovers new listings via search terms, and backfills localized titles.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.AddCommand(versionCommand())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads the config file and builds the logger from it.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, logger.New(cfg.Logging.Level, cfg.Logging.Format), nil
}

// openCatalog connects to the database.
func openCatalog(ctx context.Context, cfg *config.Config) (*catalog.PostgresCatalog, error) {
	cat, err := catalog.NewPostgresCatalog(ctx, cfg.Database.DSN(),
		catalog.WithPoolSize(cfg.Database.PoolSize),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return cat, nil
}

// newRegistry wires one adapter per supported store. All fetchers share
// a single rate limiter so the daily fetch cap applies across stores.
func newRegistry(cfg *config.Config) *shop.Registry {
	client := &http.Client{Timeout: cfg.Fetch.Timeout}
	limiter := shop.NewRateLimiter(cfg.Fetch.PerSecond, cfg.Fetch.Burst, cfg.Fetch.DailyLimit)

	fetcher := func(store string) *shop.Fetcher {
		return shop.NewFetcher(store,
			shop.WithHTTPClient(client),
			shop.WithRateLimiter(limiter),
			shop.WithUserAgent(cfg.Fetch.UserAgent),
		)
	}

	return shop.NewRegistry(
		shop.NewAmazonAdapter(fetcher(domain.StoreAmazon)),
		shop.NewJarirAdapter(fetcher(domain.StoreJarir)),
		shop.NewExtraAdapter(fetcher(domain.StoreExtra)),
	)
}

// newEngine builds the pass engine from config, with optional overrides.
func newEngine(cfg *config.Config, cat catalog.Catalog, log *slog.Logger, opts ...syncer.EngineOption) *syncer.Engine {
	base := []syncer.EngineOption{
		syncer.WithLogger(log),
		syncer.WithChunkSize(cfg.Sync.ChunkSize),
		syncer.WithPruning(cfg.Sync.Pruning.Enabled, cfg.Sync.Pruning.Retention),
		syncer.WithHarvestRetries(cfg.Harvest.Retries, cfg.Harvest.Backoff),
		syncer.WithTermsFile(cfg.Harvest.TermsFile),
		syncer.WithLocalization(cfg.Localize.Language, cfg.Localize.ChunkSize),
	}
	if cfg.Sync.Resume.StoreID > 0 {
		base = append(base, syncer.WithResume(cfg.Sync.Resume.StoreID, cfg.Sync.Resume.ProductID))
	}
	return syncer.NewEngine(cat, newRegistry(cfg), append(base, opts...)...)
}
