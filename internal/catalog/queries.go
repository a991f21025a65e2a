package catalog

// SQL query constants organized by entity.
// All SQL lives here — PostgresCatalog methods reference these constants.

// Store and category queries.
const (
	queryEnsureStore = `
		INSERT INTO stores (store_name)
		VALUES ($1)
		ON CONFLICT (store_name) DO UPDATE SET store_name = EXCLUDED.store_name
		RETURNING store_id, store_name`

	queryListStoresFrom = `
		SELECT store_id, store_name
		FROM stores
		WHERE store_id >= $1
		ORDER BY store_id ASC`

	queryEnsureCategory = `
		INSERT INTO categories (category_name)
		VALUES ($1)
		ON CONFLICT (category_name) DO UPDATE SET category_name = EXCLUDED.category_name
		RETURNING category_id`
)

// Product queries.
const (
	productColumns = `product_id, title, price, availability, link, image_url,
		info, search_term, store_id, category_id, group_id, last_updated`

	queryGetProduct = `
		SELECT ` + productColumns + `
		FROM products
		WHERE product_id = $1`

	queryGetProductByStoreTitle = `
		SELECT ` + productColumns + `
		FROM products
		WHERE store_id = $1 AND title = $2`

	queryPageProducts = `
		SELECT ` + productColumns + `
		FROM products
		WHERE store_id = $1 AND product_id > $2
		ORDER BY product_id ASC
		LIMIT $3`

	queryCountProducts = `SELECT COUNT(*) FROM products WHERE store_id = $1`

	queryInsertProduct = `
		INSERT INTO products (
			title, price, availability, link, image_url,
			info, search_term, store_id, category_id, last_updated
		) VALUES (
			@title, @price, TRUE, @link, @image_url,
			@info, @search_term, @store_id, @category_id, now()
		)
		ON CONFLICT (store_id, title) DO NOTHING
		RETURNING product_id`

	queryUpdateHarvestFields = `
		UPDATE products SET
			price = $2,
			link = $3,
			image_url = $4,
			search_term = $5,
			last_updated = now()
		WHERE product_id = $1`
)

// Sync chunk queries.
const (
	queryUpdateAvailability = `
		UPDATE products SET availability = $2
		WHERE product_id = $1`

	queryUpdateAvailabilityTouch = `
		UPDATE products SET availability = $2, last_updated = $3
		WHERE product_id = $1`

	queryUpdatePriceChange = `
		UPDATE products SET availability = $2, price = $3, last_updated = $4
		WHERE product_id = $1`

	queryDeleteProduct = `DELETE FROM products WHERE product_id = $1`
)

// Price ledger queries.
const (
	queryInsertPriceHistory = `
		INSERT INTO price_history (product_id, old_price, new_price, changed_at)
		VALUES ($1, $2, $3, $4)`

	queryListPriceHistory = `
		SELECT history_id, product_id, old_price, new_price, changed_at
		FROM price_history
		WHERE product_id = $1
		ORDER BY changed_at DESC, history_id DESC
		LIMIT $2`
)

// Translation queries.
const (
	queryPageUntranslated = `
		SELECT p.product_id, p.title, p.price, p.availability, p.link, p.image_url,
			p.info, p.search_term, p.store_id, p.category_id, p.group_id, p.last_updated
		FROM products p
		LEFT JOIN title_translations t
			ON t.product_id = p.product_id AND t.language = $2
		WHERE p.store_id = $1 AND t.product_id IS NULL AND p.product_id > $3
		ORDER BY p.product_id ASC
		LIMIT $4`

	queryUpsertTranslation = `
		INSERT INTO title_translations (product_id, language, translated_title)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id, language) DO UPDATE SET
			translated_title = EXCLUDED.translated_title`

	queryGetTranslation = `
		SELECT product_id, language, translated_title
		FROM title_translations
		WHERE product_id = $1 AND language = $2`
)

// Pass bookkeeping queries.
const (
	queryInsertPassRun = `
		INSERT INTO pass_runs (pass_name, started_at, status)
		VALUES ($1, now(), 'running')
		RETURNING id`

	queryCompletePassRun = `
		UPDATE pass_runs SET
			completed_at = now(),
			status = $2,
			error_text = $3,
			rows_affected = $4
		WHERE id = $1`

	queryListPassRuns = `
		SELECT id, pass_name, started_at, completed_at, status, error_text, rows_affected
		FROM pass_runs
		WHERE pass_name = $1
		ORDER BY started_at DESC
		LIMIT $2`

	queryMarkStalePassRunsCrashed = `
		UPDATE pass_runs SET
			status = 'crashed',
			completed_at = now(),
			error_text = 'marked crashed by stale run recovery'
		WHERE status = 'running' AND started_at < $1`

	queryDeleteOldPassRuns = `
		DELETE FROM pass_runs
		WHERE started_at < now() - INTERVAL '30 days'`

	queryAcquirePassLock = `
		INSERT INTO pass_locks (pass_name, holder, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (pass_name) DO UPDATE SET
			holder = EXCLUDED.holder,
			expires_at = EXCLUDED.expires_at
		WHERE pass_locks.expires_at < now()
			OR pass_locks.holder = EXCLUDED.holder
		RETURNING pass_name`

	queryReleasePassLock = `
		DELETE FROM pass_locks
		WHERE pass_name = $1 AND holder = $2`
)
