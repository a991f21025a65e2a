package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/buyvia/catalogsync/pkg/types"
)

const defaultPoolSize = 10

// PostgresCatalog implements Catalog using pgxpool (connection-pooled
// PostgreSQL).
//
// TODO(test): PostgresCatalog methods require live Postgres, tested via integration tests.
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

// PostgresOption configures the PostgresCatalog.
type PostgresOption func(*pgxpool.Config)

// WithPoolSize overrides the default connection pool size.
func WithPoolSize(n int) PostgresOption {
	return func(cfg *pgxpool.Config) {
		cfg.MaxConns = int32(n)
	}
}

// NewPostgresCatalog creates a new PostgresCatalog with connection pooling.
func NewPostgresCatalog(ctx context.Context, connString string, opts ...PostgresOption) (*PostgresCatalog, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresCatalog{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (c *PostgresCatalog) Close() {
	c.pool.Close()
}

// Ping verifies the database connection is alive.
func (c *PostgresCatalog) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (c *PostgresCatalog) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, c.pool)
}

// EnsureStore returns the store row for name, creating it on first use.
func (c *PostgresCatalog) EnsureStore(ctx context.Context, name string) (*domain.Store, error) {
	s := &domain.Store{}
	if err := c.pool.QueryRow(ctx, queryEnsureStore, name).Scan(&s.ID, &s.Name); err != nil {
		return nil, fmt.Errorf("ensuring store %q: %w", name, err)
	}
	return s, nil
}

// ListStores returns stores with store_id >= fromStoreID in id order.
// A fromStoreID of 0 lists everything.
func (c *PostgresCatalog) ListStores(ctx context.Context, fromStoreID int64) ([]domain.Store, error) {
	rows, err := c.pool.Query(ctx, queryListStoresFrom, fromStoreID)
	if err != nil {
		return nil, fmt.Errorf("querying stores: %w", err)
	}
	defer rows.Close()

	var stores []domain.Store
	for rows.Next() {
		var s domain.Store
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("scanning store: %w", err)
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

// GetProduct retrieves a product by its ID.
func (c *PostgresCatalog) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p := &domain.Product{}
	err := scanProduct(c.pool.QueryRow(ctx, queryGetProduct, id), p)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PageProducts returns up to limit products of one store with
// product_id strictly greater than afterProductID, in id order.
func (c *PostgresCatalog) PageProducts(
	ctx context.Context,
	storeID, afterProductID int64,
	limit int,
) ([]domain.Product, error) {
	rows, err := c.pool.Query(ctx, queryPageProducts, storeID, afterProductID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying product page: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// CountProducts returns the number of products tracked for a store.
func (c *PostgresCatalog) CountProducts(ctx context.Context, storeID int64) (int, error) {
	var count int
	if err := c.pool.QueryRow(ctx, queryCountProducts, storeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return count, nil
}

// UpsertFromHarvest inserts or updates a harvested listing keyed by
// (store, title). On update, only price, link, image and search term
// are rewritten, and only when at least one of them changed; a price
// change also lands in the ledger. Info is written on insert only, and
// availability stays owned by the sync pass.
func (c *PostgresCatalog) UpsertFromHarvest(
	ctx context.Context,
	storeID int64,
	term string,
	listing domain.RawListing,
) (UpsertResult, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("beginning harvest upsert: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	existing := &domain.Product{}
	err = scanProduct(tx.QueryRow(ctx, queryGetProductByStoreTitle, storeID, listing.Title), existing)

	var res UpsertResult
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		res, err = c.insertHarvested(ctx, tx, storeID, term, listing)
		if err != nil {
			return UpsertResult{}, err
		}
	case err != nil:
		return UpsertResult{}, fmt.Errorf("looking up product by title: %w", err)
	default:
		priceChanged := !priceEqual(existing.Price, listing.Price)
		changed := priceChanged ||
			existing.Link != listing.Link ||
			existing.ImageURL != listing.ImageURL
		if changed {
			if _, err := tx.Exec(ctx, queryUpdateHarvestFields,
				existing.ID, listing.Price, listing.Link, listing.ImageURL, term,
			); err != nil {
				return UpsertResult{}, fmt.Errorf("updating harvested product: %w", err)
			}
			// A listing without a price cannot produce a ledger entry;
			// new_price is NOT NULL.
			if priceChanged && listing.Price != nil {
				if _, err := tx.Exec(ctx, queryInsertPriceHistory,
					existing.ID, existing.Price, *listing.Price, time.Now().UTC(),
				); err != nil {
					return UpsertResult{}, fmt.Errorf("recording harvest price change: %w", err)
				}
			}
			res.Updated = true
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return UpsertResult{}, fmt.Errorf("committing harvest upsert: %w", err)
	}
	return res, nil
}

func (c *PostgresCatalog) insertHarvested(
	ctx context.Context,
	tx pgx.Tx,
	storeID int64,
	term string,
	listing domain.RawListing,
) (UpsertResult, error) {
	var categoryID int64
	if err := tx.QueryRow(ctx, queryEnsureCategory, domain.DefaultCategory).Scan(&categoryID); err != nil {
		return UpsertResult{}, fmt.Errorf("ensuring default category: %w", err)
	}

	var info *string
	if listing.Info != "" && listing.Info != "N/A" {
		info = &listing.Info
	}

	args := pgx.NamedArgs{
		"title":       listing.Title,
		"price":       listing.Price,
		"link":        listing.Link,
		"image_url":   listing.ImageURL,
		"info":        info,
		"search_term": term,
		"store_id":    storeID,
		"category_id": categoryID,
	}

	var productID int64
	err := tx.QueryRow(ctx, queryInsertProduct, args).Scan(&productID)
	// ON CONFLICT DO NOTHING returns no rows when a concurrent harvest
	// already inserted the same (store, title) — treat as a no-op.
	if errors.Is(err, pgx.ErrNoRows) {
		return UpsertResult{}, nil
	}
	if err != nil {
		return UpsertResult{}, fmt.Errorf("inserting harvested product: %w", err)
	}
	return UpsertResult{Created: true}, nil
}

// Begin opens a chunk transaction for a sync pass.
func (c *PostgresCatalog) Begin(ctx context.Context) (Chunk, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning chunk: %w", err)
	}
	return &pgxChunk{tx: tx}, nil
}

// ListPriceHistory returns ledger entries for a product, newest first.
func (c *PostgresCatalog) ListPriceHistory(
	ctx context.Context,
	productID int64,
	limit int,
) ([]domain.PriceHistoryEntry, error) {
	rows, err := c.pool.Query(ctx, queryListPriceHistory, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying price history: %w", err)
	}
	defer rows.Close()

	var entries []domain.PriceHistoryEntry
	for rows.Next() {
		var e domain.PriceHistoryEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.OldPrice, &e.NewPrice, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("scanning price history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PageUntranslated returns products of one store missing a translation
// for lang, with product_id strictly greater than afterProductID.
func (c *PostgresCatalog) PageUntranslated(
	ctx context.Context,
	storeID int64,
	lang string,
	afterProductID int64,
	limit int,
) ([]domain.Product, error) {
	rows, err := c.pool.Query(ctx, queryPageUntranslated, storeID, lang, afterProductID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying untranslated products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// UpsertTranslation inserts or replaces a localized title.
func (c *PostgresCatalog) UpsertTranslation(ctx context.Context, t *domain.TitleTranslation) error {
	_, err := c.pool.Exec(ctx, queryUpsertTranslation, t.ProductID, t.Language, t.TranslatedTitle)
	if err != nil {
		return fmt.Errorf("upserting translation: %w", err)
	}
	return nil
}

// GetTranslation retrieves a translation row.
func (c *PostgresCatalog) GetTranslation(
	ctx context.Context,
	productID int64,
	lang string,
) (*domain.TitleTranslation, error) {
	t := &domain.TitleTranslation{}
	err := c.pool.QueryRow(ctx, queryGetTranslation, productID, lang).Scan(
		&t.ProductID, &t.Language, &t.TranslatedTitle,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("translation %d/%s: %w", productID, lang, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// InsertPassRun records the start of a scheduled pass and returns its UUID.
func (c *PostgresCatalog) InsertPassRun(ctx context.Context, passName string) (string, error) {
	var id string
	if err := c.pool.QueryRow(ctx, queryInsertPassRun, passName).Scan(&id); err != nil {
		return "", fmt.Errorf("inserting pass run: %w", err)
	}
	return id, nil
}

// CompletePassRun marks a pass run as finished with the given status and metadata.
func (c *PostgresCatalog) CompletePassRun(
	ctx context.Context,
	id string,
	status string,
	errText string,
	rowsAffected int,
) error {
	_, err := c.pool.Exec(ctx, queryCompletePassRun, id, status, errText, rowsAffected)
	if err != nil {
		return fmt.Errorf("completing pass run: %w", err)
	}
	return nil
}

// ListPassRuns returns the most recent runs for a pass, newest first.
func (c *PostgresCatalog) ListPassRuns(
	ctx context.Context,
	passName string,
	limit int,
) ([]domain.PassRun, error) {
	rows, err := c.pool.Query(ctx, queryListPassRuns, passName, limit)
	if err != nil {
		return nil, fmt.Errorf("querying pass runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.PassRun
	for rows.Next() {
		var r domain.PassRun
		if err := rows.Scan(
			&r.ID, &r.PassName, &r.StartedAt, &r.CompletedAt,
			&r.Status, &r.ErrorText, &r.RowsAffected,
		); err != nil {
			return nil, fmt.Errorf("scanning pass run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RecoverStalePassRuns marks any 'running' pass rows older than olderThan
// as 'crashed', then deletes all rows older than 30 days. Returns the
// number of rows marked as crashed.
func (c *PostgresCatalog) RecoverStalePassRuns(
	ctx context.Context,
	olderThan time.Duration,
) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	tag, err := c.pool.Exec(ctx, queryMarkStalePassRunsCrashed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("marking stale pass runs crashed: %w", err)
	}
	affected := int(tag.RowsAffected())

	if _, err := c.pool.Exec(ctx, queryDeleteOldPassRuns); err != nil {
		return affected, fmt.Errorf("deleting old pass runs: %w", err)
	}

	return affected, nil
}

// AcquirePassLock attempts to acquire a distributed lock for the given pass.
// Returns true if the lock was acquired, false if another holder owns it.
// The current holder may re-acquire before expiry, which extends the lock.
func (c *PostgresCatalog) AcquirePassLock(
	ctx context.Context,
	passName string,
	holder string,
	ttl time.Duration,
) (bool, error) {
	expiresAt := time.Now().Add(ttl)

	var gotName string
	err := c.pool.QueryRow(ctx, queryAcquirePassLock, passName, holder, expiresAt).Scan(&gotName)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil // lock held by another; conflict not replaced
	}
	if err != nil {
		return false, fmt.Errorf("acquiring pass lock: %w", err)
	}

	return true, nil
}

// ReleasePassLock deletes the lock row for the given pass and holder.
func (c *PostgresCatalog) ReleasePassLock(ctx context.Context, passName, holder string) error {
	_, err := c.pool.Exec(ctx, queryReleasePassLock, passName, holder)
	if err != nil {
		return fmt.Errorf("releasing pass lock: %w", err)
	}
	return nil
}

// pgxChunk implements Chunk on a pgx transaction.
type pgxChunk struct {
	tx pgx.Tx
}

// ApplyProbe reconciles the probe against the product and writes the
// resulting mutation inside the chunk transaction.
func (ch *pgxChunk) ApplyProbe(
	ctx context.Context,
	p *domain.Product,
	probe domain.ProbeResult,
	now time.Time,
) (Decision, error) {
	d := Reconcile(p, probe)
	if !d.Touch {
		return d, nil
	}

	switch {
	case d.PriceChanged:
		if _, err := ch.tx.Exec(ctx, queryUpdatePriceChange,
			p.ID, d.Availability, d.NewPrice, now,
		); err != nil {
			return Decision{}, fmt.Errorf("applying price change: %w", err)
		}
		if _, err := ch.tx.Exec(ctx, queryInsertPriceHistory,
			p.ID, d.OldPrice, d.NewPrice, now,
		); err != nil {
			return Decision{}, fmt.Errorf("appending price history: %w", err)
		}
		price := d.NewPrice
		p.Price = &price
		p.LastUpdated = now
	case d.AdvanceClock:
		if _, err := ch.tx.Exec(ctx, queryUpdateAvailabilityTouch,
			p.ID, d.Availability, now,
		); err != nil {
			return Decision{}, fmt.Errorf("applying availability: %w", err)
		}
		p.LastUpdated = now
	default:
		if _, err := ch.tx.Exec(ctx, queryUpdateAvailability, p.ID, d.Availability); err != nil {
			return Decision{}, fmt.Errorf("applying availability: %w", err)
		}
	}

	p.Availability = d.Availability
	return d, nil
}

// DeleteProduct removes a product; price history and translations
// cascade away with it.
func (ch *pgxChunk) DeleteProduct(ctx context.Context, productID int64) error {
	if _, err := ch.tx.Exec(ctx, queryDeleteProduct, productID); err != nil {
		return fmt.Errorf("deleting product %d: %w", productID, err)
	}
	return nil
}

// Commit applies the whole chunk atomically.
func (ch *pgxChunk) Commit(ctx context.Context) error {
	if err := ch.tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing chunk: %w", err)
	}
	return nil
}

// Rollback abandons the chunk.
func (ch *pgxChunk) Rollback(ctx context.Context) error {
	if err := ch.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rolling back chunk: %w", err)
	}
	return nil
}

// priceEqual compares two optional prices with the ledger epsilon.
func priceEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return math.Abs(*a-*b) <= priceEpsilon
}

// scannable abstracts pgx.Row and pgx.Rows for reuse.
type scannable interface {
	Scan(dest ...any) error
}

func scanProduct(row scannable, p *domain.Product) error {
	return row.Scan(
		&p.ID, &p.Title, &p.Price, &p.Availability, &p.Link, &p.ImageURL,
		&p.Info, &p.SearchTerm, &p.StoreID, &p.CategoryID, &p.GroupID, &p.LastUpdated,
	)
}

func scanProducts(rows pgx.Rows) ([]domain.Product, error) {
	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
