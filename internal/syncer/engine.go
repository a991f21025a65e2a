// Package syncer orchestrates the recurring passes that keep the local
// catalog aligned with the external stores: the sync pass (probe and
// reconcile every tracked product), the harvest pass (discover listings
// via search terms) and the localization pass (backfill translated
// titles).
package syncer

import (
	"log/slog"
	"time"

	"github.com/buyvia/catalogsync/internal/catalog"
	"github.com/buyvia/catalogsync/internal/shop"
)

const (
	defaultChunkSize      = 2000
	defaultPruneRetention = 14 * 24 * time.Hour
	defaultHarvestRetries = 3
	defaultHarvestBackoff = 5 * time.Second
	defaultLocalizeLang   = "ar"
	defaultLocalizeChunk  = 100
)

// Engine runs the catalog passes against injected dependencies.
type Engine struct {
	catalog  catalog.Catalog
	registry *shop.Registry
	log      *slog.Logger

	chunkSize      int
	pruningEnabled bool
	pruneRetention time.Duration

	resumeStoreID   int64
	resumeProductID int64

	harvestRetries int
	harvestBackoff time.Duration
	termsFile      string

	localizeLang  string
	localizeChunk int

	nowFunc func() time.Time
}

// NewEngine creates a new Engine with injected dependencies.
func NewEngine(c catalog.Catalog, r *shop.Registry, opts ...EngineOption) *Engine {
	eng := &Engine{
		catalog:        c,
		registry:       r,
		log:            slog.Default(),
		chunkSize:      defaultChunkSize,
		pruneRetention: defaultPruneRetention,
		harvestRetries: defaultHarvestRetries,
		harvestBackoff: defaultHarvestBackoff,
		localizeLang:   defaultLocalizeLang,
		localizeChunk:  defaultLocalizeChunk,
		nowFunc:        time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithChunkSize sets how many products a sync chunk covers.
func WithChunkSize(n int) EngineOption {
	return func(e *Engine) {
		e.chunkSize = n
	}
}

// WithPruning enables deletion of products that have been unavailable
// for longer than retention.
func WithPruning(enabled bool, retention time.Duration) EngineOption {
	return func(e *Engine) {
		e.pruningEnabled = enabled
		if retention > 0 {
			e.pruneRetention = retention
		}
	}
}

// WithResume sets the watermark a sync pass restarts from: stores with
// id >= storeID, and within the first store, products with id >=
// productID.
func WithResume(storeID, productID int64) EngineOption {
	return func(e *Engine) {
		e.resumeStoreID = storeID
		e.resumeProductID = productID
	}
}

// WithHarvestRetries sets per-adapter retry count and backoff for the
// harvest pass.
func WithHarvestRetries(retries int, backoff time.Duration) EngineOption {
	return func(e *Engine) {
		e.harvestRetries = retries
		e.harvestBackoff = backoff
	}
}

// WithTermsFile sets the JSON file holding harvest search terms.
func WithTermsFile(path string) EngineOption {
	return func(e *Engine) {
		e.termsFile = path
	}
}

// WithLocalization sets the target language and chunk size for the
// localization pass.
func WithLocalization(lang string, chunkSize int) EngineOption {
	return func(e *Engine) {
		if lang != "" {
			e.localizeLang = lang
		}
		if chunkSize > 0 {
			e.localizeChunk = chunkSize
		}
	}
}

// WithNowFunc overrides the time source for testing.
func WithNowFunc(f func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowFunc = f
	}
}
