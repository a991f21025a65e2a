package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/buyvia/catalogsync/internal/metrics"
	"github.com/buyvia/catalogsync/internal/shop"
	domain "github.com/buyvia/catalogsync/pkg/types"
)

// RunSyncPass probes every tracked product store by store, in chunked
// transactions, and reconciles the results into the catalog. Returns
// the number of products probed.
//
// Each chunk commits atomically and the cursor only advances past a
// committed chunk, so a crashed pass can resume without losing or
// double-applying mutations. A single product failure never aborts its
// chunk; a chunk commit failure aborts the rest of that store's pass.
func (e *Engine) RunSyncPass(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.SyncPassDuration.Observe(time.Since(start).Seconds())
	}()

	stores, err := e.catalog.ListStores(ctx, e.resumeStoreID)
	if err != nil {
		return 0, fmt.Errorf("listing stores: %w", err)
	}

	total := 0
	for _, store := range stores {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		probed, storeErr := e.syncStore(ctx, store)
		total += probed

		if storeErr != nil {
			if errors.Is(storeErr, shop.ErrDailyLimitReached) {
				e.log.Warn("daily fetch limit reached, stopping sync pass",
					"store", store.Name,
					"probed", total,
				)
				break
			}
			e.log.Error("store sync failed", "store", store.Name, "error", storeErr)
			continue
		}
	}

	return total, nil
}

func (e *Engine) syncStore(ctx context.Context, store domain.Store) (int, error) {
	adapter, err := e.registry.Lookup(store.Name)
	if err != nil {
		// A store without an adapter is data from a decommissioned
		// source; its products stay frozen rather than flipped dead.
		e.log.Warn("skipping store without adapter", "store", store.Name)
		return 0, nil
	}

	sess, err := adapter.Open(ctx)
	if err != nil {
		return 0, fmt.Errorf("opening %s session: %w", store.Name, err)
	}
	defer sess.Close()

	e.log.Info("syncing store", "store", store.Name, "store_id", store.ID)

	var cursor int64
	if store.ID == e.resumeStoreID && e.resumeProductID > 0 {
		cursor = e.resumeProductID - 1
	}

	probed := 0
	for {
		page, err := e.catalog.PageProducts(ctx, store.ID, cursor, e.chunkSize)
		if err != nil {
			return probed, fmt.Errorf("paging products: %w", err)
		}
		if len(page) == 0 {
			break
		}

		n, limitErr, chunkErr := e.syncChunk(ctx, sess, store, page)
		probed += n
		if chunkErr != nil {
			return probed, chunkErr
		}

		// The committed chunk is durable; move the cursor past it.
		cursor = page[len(page)-1].ID

		if limitErr != nil {
			return probed, limitErr
		}
		if len(page) < e.chunkSize {
			break
		}
	}

	e.log.Info("store sync complete", "store", store.Name, "probed", probed)
	return probed, nil
}

// syncChunk probes one page of products inside a single transaction.
// It returns the probe count, a daily-limit error to surface after the
// partial chunk has been committed, and a hard error when the chunk
// could not be applied.
func (e *Engine) syncChunk(
	ctx context.Context,
	sess shop.Session,
	store domain.Store,
	page []domain.Product,
) (int, error, error) {
	chunk, err := e.catalog.Begin(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("beginning chunk: %w", err)
	}

	now := e.nowFunc().UTC()
	probed := 0
	var limitErr error

	for i := range page {
		if ctx.Err() != nil {
			_ = chunk.Rollback(ctx)
			return probed, nil, ctx.Err()
		}

		p := &page[i]
		// Timestamps written before the engine tracked zones come back
		// naive; treat them as UTC.
		p.LastUpdated = p.LastUpdated.UTC()

		probe, probeErr := sess.Probe(ctx, p.Link)
		probed++
		metrics.SyncProductsProbed.WithLabelValues(store.Name).Inc()

		if probeErr != nil {
			if errors.Is(probeErr, shop.ErrDailyLimitReached) {
				limitErr = probeErr
				break
			}
			// One failed product must not poison the chunk.
			e.log.Warn("probe failed",
				"store", store.Name,
				"product_id", p.ID,
				"link", p.Link,
				"error", probeErr,
			)
			metrics.SyncProbeUnknownsTotal.WithLabelValues(store.Name).Inc()
			continue
		}

		d, applyErr := chunk.ApplyProbe(ctx, p, probe, now)
		if applyErr != nil {
			_ = chunk.Rollback(ctx)
			return probed, nil, fmt.Errorf("applying probe for product %d: %w", p.ID, applyErr)
		}

		switch {
		case !d.Touch:
			metrics.SyncProbeUnknownsTotal.WithLabelValues(store.Name).Inc()
		case d.PriceChanged:
			metrics.SyncPriceChangesTotal.WithLabelValues(store.Name).Inc()
			e.log.Info("price change",
				"store", store.Name,
				"product_id", p.ID,
				"old_price", formatPrice(d.OldPrice),
				"new_price", d.NewPrice,
			)
		}

		if e.shouldPrune(p, now) {
			if delErr := chunk.DeleteProduct(ctx, p.ID); delErr != nil {
				_ = chunk.Rollback(ctx)
				return probed, nil, fmt.Errorf("pruning product %d: %w", p.ID, delErr)
			}
			metrics.SyncProductsPrunedTotal.WithLabelValues(store.Name).Inc()
			e.log.Info("pruned long-unavailable product",
				"store", store.Name,
				"product_id", p.ID,
				"last_updated", p.LastUpdated,
			)
		}
	}

	if err := chunk.Commit(ctx); err != nil {
		metrics.SyncChunkCommitFailuresTotal.Inc()
		return probed, nil, err
	}
	return probed, limitErr, nil
}

// shouldPrune reports whether a product, in its post-reconcile state,
// has been unavailable past the retention window. The comparison is
// strict: a product confirmed alive exactly retention ago survives.
func (e *Engine) shouldPrune(p *domain.Product, now time.Time) bool {
	if !e.pruningEnabled || p.Availability {
		return false
	}
	return p.LastUpdated.Before(now.Add(-e.pruneRetention))
}

func formatPrice(p *float64) any {
	if p == nil {
		return "none"
	}
	return *p
}
