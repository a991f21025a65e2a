package syncer

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/buyvia/catalogsync/internal/metrics"
	"github.com/buyvia/catalogsync/internal/shop"
	domain "github.com/buyvia/catalogsync/pkg/types"
)

// RunLocalizePass backfills translated titles for products that don't
// have one yet in the configured language, store by store in small
// chunks. Returns the number of titles written.
//
// A product whose localized page yields no usable title is skipped, not
// recorded: writing placeholder titles would hide it from every future
// pass.
func (e *Engine) RunLocalizePass(ctx context.Context) (int, error) {
	tag, err := language.Parse(e.localizeLang)
	if err != nil {
		return 0, fmt.Errorf("invalid localization language %q: %w", e.localizeLang, err)
	}
	lang := tag.String()

	stores, err := e.catalog.ListStores(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("listing stores: %w", err)
	}

	total := 0
	for _, store := range stores {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		n, storeErr := e.localizeStore(ctx, store, lang)
		total += n
		if storeErr != nil {
			e.log.Error("store localization failed", "store", store.Name, "error", storeErr)
		}
	}

	return total, nil
}

func (e *Engine) localizeStore(ctx context.Context, store domain.Store, lang string) (int, error) {
	adapter, err := e.registry.Lookup(store.Name)
	if err != nil {
		e.log.Warn("skipping store without adapter", "store", store.Name)
		return 0, nil
	}

	sess, err := adapter.Open(ctx)
	if err != nil {
		return 0, fmt.Errorf("opening %s session: %w", store.Name, err)
	}
	defer sess.Close()

	written := 0
	var cursor int64

	for {
		page, err := e.catalog.PageUntranslated(ctx, store.ID, lang, cursor, e.localizeChunk)
		if err != nil {
			return written, fmt.Errorf("paging untranslated products: %w", err)
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			if ctx.Err() != nil {
				return written, ctx.Err()
			}
			if e.localizeProduct(ctx, sess, store, &page[i], lang) {
				written++
			}
		}

		// Skipped products stay untranslated; advancing past them keeps
		// the pass from spinning on a product that never yields a title.
		cursor = page[len(page)-1].ID
	}

	e.log.Info("store localization complete", "store", store.Name, "written", written)
	return written, nil
}

func (e *Engine) localizeProduct(
	ctx context.Context,
	sess shop.Session,
	store domain.Store,
	p *domain.Product,
	lang string,
) bool {
	title, err := sess.LocalizedTitle(ctx, p.Link, lang)
	if err != nil {
		e.log.Warn("localized title fetch failed",
			"store", store.Name,
			"product_id", p.ID,
			"error", err,
		)
		metrics.LocalizeSkipsTotal.WithLabelValues(store.Name).Inc()
		return false
	}

	title = strings.TrimSpace(title)
	if title == "" || title == "Title unavailable" {
		metrics.LocalizeSkipsTotal.WithLabelValues(store.Name).Inc()
		return false
	}

	if err := e.catalog.UpsertTranslation(ctx, &domain.TitleTranslation{
		ProductID:       p.ID,
		Language:        lang,
		TranslatedTitle: title,
	}); err != nil {
		e.log.Error("translation upsert failed",
			"store", store.Name,
			"product_id", p.ID,
			"error", err,
		)
		return false
	}

	metrics.LocalizeTitlesTotal.WithLabelValues(store.Name).Inc()
	return true
}
