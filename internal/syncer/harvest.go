package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/buyvia/catalogsync/internal/metrics"
	"github.com/buyvia/catalogsync/internal/shop"
	domain "github.com/buyvia/catalogsync/pkg/types"
)

// searchTermsFile is the on-disk format of the harvest terms file.
type searchTermsFile struct {
	SearchValues []string `json:"search_values"`
}

// loadSearchTerms reads the terms file and returns the terms shuffled,
// so repeated partial passes don't always hammer the same prefix.
func loadSearchTerms(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path from trusted config
	if err != nil {
		return nil, fmt.Errorf("reading search terms file: %w", err)
	}

	var f searchTermsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing search terms file: %w", err)
	}

	terms := f.SearchValues
	rand.Shuffle(len(terms), func(i, j int) {
		terms[i], terms[j] = terms[j], terms[i]
	})
	return terms, nil
}

// RunHarvestPass searches every store for every configured term and
// reconciles the discovered listings into the catalog. Returns the
// number of listings upserted (created or updated).
func (e *Engine) RunHarvestPass(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.HarvestPassDuration.Observe(time.Since(start).Seconds())
	}()

	terms, err := loadSearchTerms(e.termsFile)
	if err != nil {
		return 0, err
	}

	storeIDs := make(map[string]int64)
	total := 0

	for _, term := range terms {
		for _, name := range e.registry.Names() {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}

			n, harvestErr := e.harvestTerm(ctx, name, term, storeIDs)
			total += n

			if harvestErr != nil {
				if errors.Is(harvestErr, shop.ErrDailyLimitReached) {
					e.log.Warn("daily fetch limit reached, stopping harvest pass",
						"store", name,
						"upserted", total,
					)
					return total, nil
				}
				e.log.Error("harvest failed",
					"store", name,
					"term", term,
					"error", harvestErr,
				)
			}
		}
	}

	return total, nil
}

// harvestTerm runs one search term against one store, retrying with a
// fresh session on adapter failures.
func (e *Engine) harvestTerm(
	ctx context.Context,
	storeName, term string,
	storeIDs map[string]int64,
) (int, error) {
	adapter, err := e.registry.Lookup(storeName)
	if err != nil {
		return 0, err
	}

	listings, err := e.searchWithRetries(ctx, adapter, term)
	if err != nil {
		return 0, err
	}
	if len(listings) == 0 {
		return 0, nil
	}

	storeID, ok := storeIDs[storeName]
	if !ok {
		store, err := e.catalog.EnsureStore(ctx, storeName)
		if err != nil {
			return 0, fmt.Errorf("ensuring store %s: %w", storeName, err)
		}
		storeID = store.ID
		storeIDs[storeName] = storeID
	}

	upserted := 0
	for _, listing := range listings {
		if listing.Title == "" {
			continue
		}

		res, err := e.catalog.UpsertFromHarvest(ctx, storeID, term, listing)
		if err != nil {
			e.log.Error("harvest upsert failed",
				"store", storeName,
				"title", listing.Title,
				"error", err,
			)
			continue
		}

		if res.Created || res.Updated {
			upserted++
			metrics.HarvestListingsTotal.WithLabelValues(storeName).Inc()
		}
		if res.Created {
			metrics.HarvestNewProductsTotal.WithLabelValues(storeName).Inc()
		}
	}

	e.log.Info("harvested term",
		"store", storeName,
		"term", term,
		"listings", len(listings),
		"upserted", upserted,
	)
	return upserted, nil
}

// searchWithRetries opens a fresh session per attempt; a wedged session
// is discarded rather than reused.
func (e *Engine) searchWithRetries(
	ctx context.Context,
	adapter shop.Adapter,
	term string,
) ([]domain.RawListing, error) {
	var lastErr error

	for attempt := 1; attempt <= e.harvestRetries; attempt++ {
		listings, err := e.trySearch(ctx, adapter, term)
		if err == nil {
			return listings, nil
		}
		if errors.Is(err, shop.ErrDailyLimitReached) || errors.Is(err, context.Canceled) {
			return nil, err
		}

		lastErr = err
		e.log.Warn("search attempt failed",
			"store", adapter.Name(),
			"term", term,
			"attempt", attempt,
			"error", err,
		)
		metrics.HarvestRetriesTotal.WithLabelValues(adapter.Name()).Inc()

		if attempt < e.harvestRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.harvestBackoff):
			}
		}
	}

	return nil, fmt.Errorf("search exhausted %d attempts: %w", e.harvestRetries, lastErr)
}

func (e *Engine) trySearch(
	ctx context.Context,
	adapter shop.Adapter,
	term string,
) ([]domain.RawListing, error) {
	sess, err := adapter.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	defer sess.Close()

	return sess.Search(ctx, term)
}
