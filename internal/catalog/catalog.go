// Package catalog defines the datastore abstraction for the sync engine.
// All passes depend on the Catalog interface, never on concrete
// implementations, so orchestration logic is testable without a running
// database.
package catalog

import (
	"context"
	"errors"
	"time"

	domain "github.com/buyvia/catalogsync/pkg/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// UpsertResult reports what a harvest upsert did.
type UpsertResult struct {
	Created bool
	Updated bool
}

// Catalog defines all data access operations for the sync engine.
type Catalog interface {
	// Stores
	EnsureStore(ctx context.Context, name string) (*domain.Store, error)
	ListStores(ctx context.Context, fromStoreID int64) ([]domain.Store, error)

	// Products
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	// PageProducts returns up to limit products of one store with
	// product_id strictly greater than afterProductID, in id order.
	PageProducts(ctx context.Context, storeID, afterProductID int64, limit int) ([]domain.Product, error)
	CountProducts(ctx context.Context, storeID int64) (int, error)
	// UpsertFromHarvest inserts a listing keyed by (store, title), or
	// updates price, link, image and search term when they changed.
	// Info is only written on insert; availability starts true and is
	// owned by the sync pass afterwards.
	UpsertFromHarvest(ctx context.Context, storeID int64, term string, listing domain.RawListing) (UpsertResult, error)

	// Begin opens a chunk transaction for a sync pass. All probe
	// mutations and prune deletions of one chunk commit atomically.
	Begin(ctx context.Context) (Chunk, error)

	// Price ledger
	ListPriceHistory(ctx context.Context, productID int64, limit int) ([]domain.PriceHistoryEntry, error)

	// Localization
	// PageUntranslated returns products of one store that have no
	// translation row for lang yet, with product_id strictly greater
	// than afterProductID, in id order.
	PageUntranslated(ctx context.Context, storeID int64, lang string, afterProductID int64, limit int) ([]domain.Product, error)
	UpsertTranslation(ctx context.Context, t *domain.TitleTranslation) error
	GetTranslation(ctx context.Context, productID int64, lang string) (*domain.TitleTranslation, error)

	// Pass bookkeeping
	InsertPassRun(ctx context.Context, passName string) (id string, err error)
	CompletePassRun(ctx context.Context, id string, status string, errText string, rowsAffected int) error
	ListPassRuns(ctx context.Context, passName string, limit int) ([]domain.PassRun, error)
	RecoverStalePassRuns(ctx context.Context, olderThan time.Duration) (int, error)
	AcquirePassLock(ctx context.Context, passName string, holder string, ttl time.Duration) (bool, error)
	ReleasePassLock(ctx context.Context, passName string, holder string) error

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}

// Chunk is a transaction covering one chunk of a sync pass.
//
// ApplyProbe and DeleteProduct buffer writes inside the transaction;
// nothing is visible to readers until Commit. A failed Commit leaves
// the whole chunk unapplied, which is what lets the pass cursor stay
// honest: it only advances past a chunk that fully landed.
type Chunk interface {
	// ApplyProbe reconciles the probe against the product and writes
	// the resulting mutation. The product struct is updated in place to
	// its post-reconcile state so the caller can evaluate pruning
	// against current values. The returned Decision reports what was
	// done; a zero Decision means the probe was unknown and nothing was
	// written.
	ApplyProbe(ctx context.Context, p *domain.Product, probe domain.ProbeResult, now time.Time) (Decision, error)

	// DeleteProduct removes a product and, via cascade, its price
	// history and translations.
	DeleteProduct(ctx context.Context, productID int64) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
