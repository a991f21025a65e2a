package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/buyvia/catalogsync/pkg/types"
)

// MemoryCatalog is an in-memory Catalog implementation used by pass
// tests. It mirrors PostgresCatalog's semantics, including chunk
// atomicity: chunk writes buffer until Commit, and a forced commit
// failure discards them.
type MemoryCatalog struct {
	mu sync.Mutex

	stores       map[int64]*domain.Store
	products     map[int64]*domain.Product
	history      map[int64][]domain.PriceHistoryEntry
	translations map[string]*domain.TitleTranslation
	passRuns     map[string]*domain.PassRun
	locks        map[string]memoryLock

	nextStoreID   int64
	nextProductID int64
	nextHistoryID int64

	// FailCommits makes the next N chunk commits fail, for testing
	// cursor behavior on commit errors.
	FailCommits int
}

type memoryLock struct {
	holder    string
	expiresAt time.Time
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		stores:       make(map[int64]*domain.Store),
		products:     make(map[int64]*domain.Product),
		history:      make(map[int64][]domain.PriceHistoryEntry),
		translations: make(map[string]*domain.TitleTranslation),
		passRuns:     make(map[string]*domain.PassRun),
		locks:        make(map[string]memoryLock),
	}
}

func translationKey(productID int64, lang string) string {
	return fmt.Sprintf("%d/%s", productID, lang)
}

// AddProduct inserts a product directly, assigning an ID. Test helper.
func (m *MemoryCatalog) AddProduct(p domain.Product) domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextProductID++
	p.ID = m.nextProductID
	cp := p
	m.products[p.ID] = &cp
	return p
}

// Product returns a snapshot of one product. Test helper.
func (m *MemoryCatalog) Product(id int64) (domain.Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return domain.Product{}, false
	}
	return *p, true
}

// HistoryFor returns the ledger entries of one product, oldest first.
// Test helper.
func (m *MemoryCatalog) HistoryFor(productID int64) []domain.PriceHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]domain.PriceHistoryEntry(nil), m.history[productID]...)
}

// EnsureStore implements Catalog.
func (m *MemoryCatalog) EnsureStore(_ context.Context, name string) (*domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.stores {
		if s.Name == name {
			cp := *s
			return &cp, nil
		}
	}

	m.nextStoreID++
	s := &domain.Store{ID: m.nextStoreID, Name: name}
	m.stores[s.ID] = s
	cp := *s
	return &cp, nil
}

// ListStores implements Catalog.
func (m *MemoryCatalog) ListStores(_ context.Context, fromStoreID int64) ([]domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stores []domain.Store
	for _, s := range m.stores {
		if s.ID >= fromStoreID {
			stores = append(stores, *s)
		}
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].ID < stores[j].ID })
	return stores, nil
}

// GetProduct implements Catalog.
func (m *MemoryCatalog) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

// PageProducts implements Catalog.
func (m *MemoryCatalog) PageProducts(
	_ context.Context,
	storeID, afterProductID int64,
	limit int,
) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var page []domain.Product
	for _, p := range m.products {
		if p.StoreID == storeID && p.ID > afterProductID {
			page = append(page, *p)
		}
	}
	sort.Slice(page, func(i, j int) bool { return page[i].ID < page[j].ID })
	if len(page) > limit {
		page = page[:limit]
	}
	return page, nil
}

// CountProducts implements Catalog.
func (m *MemoryCatalog) CountProducts(_ context.Context, storeID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, p := range m.products {
		if p.StoreID == storeID {
			count++
		}
	}
	return count, nil
}

// UpsertFromHarvest implements Catalog.
func (m *MemoryCatalog) UpsertFromHarvest(
	_ context.Context,
	storeID int64,
	term string,
	listing domain.RawListing,
) (UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.products {
		if p.StoreID != storeID || p.Title != listing.Title {
			continue
		}
		priceChanged := !priceEqual(p.Price, listing.Price)
		changed := priceChanged ||
			p.Link != listing.Link ||
			p.ImageURL != listing.ImageURL
		if !changed {
			return UpsertResult{}, nil
		}
		if priceChanged && listing.Price != nil {
			m.nextHistoryID++
			m.history[p.ID] = append(m.history[p.ID], domain.PriceHistoryEntry{
				ID:        m.nextHistoryID,
				ProductID: p.ID,
				OldPrice:  p.Price,
				NewPrice:  *listing.Price,
				ChangedAt: time.Now().UTC(),
			})
		}
		p.Price = listing.Price
		p.Link = listing.Link
		p.ImageURL = listing.ImageURL
		p.SearchTerm = &term
		p.LastUpdated = time.Now().UTC()
		return UpsertResult{Updated: true}, nil
	}

	m.nextProductID++
	p := &domain.Product{
		ID:           m.nextProductID,
		Title:        listing.Title,
		Price:        listing.Price,
		Availability: true,
		Link:         listing.Link,
		ImageURL:     listing.ImageURL,
		SearchTerm:   &term,
		StoreID:      storeID,
		LastUpdated:  time.Now().UTC(),
	}
	if listing.Info != "" && listing.Info != "N/A" {
		info := listing.Info
		p.Info = &info
	}
	m.products[p.ID] = p
	return UpsertResult{Created: true}, nil
}

// Begin implements Catalog.
func (m *MemoryCatalog) Begin(_ context.Context) (Chunk, error) {
	return &memoryChunk{catalog: m}, nil
}

// ListPriceHistory implements Catalog.
func (m *MemoryCatalog) ListPriceHistory(
	_ context.Context,
	productID int64,
	limit int,
) ([]domain.PriceHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := append([]domain.PriceHistoryEntry(nil), m.history[productID]...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// PageUntranslated implements Catalog.
func (m *MemoryCatalog) PageUntranslated(
	_ context.Context,
	storeID int64,
	lang string,
	afterProductID int64,
	limit int,
) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var page []domain.Product
	for _, p := range m.products {
		if p.StoreID != storeID || p.ID <= afterProductID {
			continue
		}
		if _, ok := m.translations[translationKey(p.ID, lang)]; ok {
			continue
		}
		page = append(page, *p)
	}
	sort.Slice(page, func(i, j int) bool { return page[i].ID < page[j].ID })
	if len(page) > limit {
		page = page[:limit]
	}
	return page, nil
}

// UpsertTranslation implements Catalog.
func (m *MemoryCatalog) UpsertTranslation(_ context.Context, t *domain.TitleTranslation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *t
	m.translations[translationKey(t.ProductID, t.Language)] = &cp
	return nil
}

// GetTranslation implements Catalog.
func (m *MemoryCatalog) GetTranslation(
	_ context.Context,
	productID int64,
	lang string,
) (*domain.TitleTranslation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.translations[translationKey(productID, lang)]
	if !ok {
		return nil, fmt.Errorf("translation %d/%s: %w", productID, lang, ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

// InsertPassRun implements Catalog.
func (m *MemoryCatalog) InsertPassRun(_ context.Context, passName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.passRuns[id] = &domain.PassRun{
		ID:        id,
		PassName:  passName,
		StartedAt: time.Now().UTC(),
		Status:    "running",
	}
	return id, nil
}

// CompletePassRun implements Catalog.
func (m *MemoryCatalog) CompletePassRun(
	_ context.Context,
	id, status, errText string,
	rowsAffected int,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.passRuns[id]
	if !ok {
		return fmt.Errorf("pass run %s: %w", id, ErrNotFound)
	}
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.Status = status
	run.ErrorText = errText
	run.RowsAffected = &rowsAffected
	return nil
}

// ListPassRuns implements Catalog.
func (m *MemoryCatalog) ListPassRuns(
	_ context.Context,
	passName string,
	limit int,
) ([]domain.PassRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var runs []domain.PassRun
	for _, r := range m.passRuns {
		if r.PassName == passName {
			runs = append(runs, *r)
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// RecoverStalePassRuns implements Catalog.
func (m *MemoryCatalog) RecoverStalePassRuns(_ context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	recovered := 0
	for _, r := range m.passRuns {
		if r.Status == "running" && r.StartedAt.Before(cutoff) {
			now := time.Now().UTC()
			r.Status = "crashed"
			r.CompletedAt = &now
			r.ErrorText = "marked crashed by stale run recovery"
			recovered++
		}
	}
	return recovered, nil
}

// AcquirePassLock implements Catalog.
func (m *MemoryCatalog) AcquirePassLock(
	_ context.Context,
	passName, holder string,
	ttl time.Duration,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if lock, ok := m.locks[passName]; ok && lock.expiresAt.After(now) && lock.holder != holder {
		return false, nil
	}
	m.locks[passName] = memoryLock{holder: holder, expiresAt: now.Add(ttl)}
	return true, nil
}

// ReleasePassLock implements Catalog.
func (m *MemoryCatalog) ReleasePassLock(_ context.Context, passName, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lock, ok := m.locks[passName]; ok && lock.holder == holder {
		delete(m.locks, passName)
	}
	return nil
}

// Migrate implements Catalog. Nothing to do in memory.
func (m *MemoryCatalog) Migrate(_ context.Context) error { return nil }

// Ping implements Catalog.
func (m *MemoryCatalog) Ping(_ context.Context) error { return nil }

// memoryChunk buffers chunk writes until Commit.
type memoryChunk struct {
	catalog *MemoryCatalog
	writes  []func()
	done    bool
}

// ApplyProbe implements Chunk.
func (ch *memoryChunk) ApplyProbe(
	_ context.Context,
	p *domain.Product,
	probe domain.ProbeResult,
	now time.Time,
) (Decision, error) {
	d := Reconcile(p, probe)
	if !d.Touch {
		return d, nil
	}

	// Mutate the caller's struct now; persist at commit.
	p.Availability = d.Availability
	if d.PriceChanged {
		price := d.NewPrice
		p.Price = &price
	}
	if d.AdvanceClock {
		p.LastUpdated = now
	}

	state := *p
	ch.writes = append(ch.writes, func() {
		stored, ok := ch.catalog.products[state.ID]
		if !ok {
			return
		}
		stored.Availability = state.Availability
		stored.Price = state.Price
		stored.LastUpdated = state.LastUpdated
		if d.PriceChanged {
			ch.catalog.nextHistoryID++
			ch.catalog.history[state.ID] = append(ch.catalog.history[state.ID], domain.PriceHistoryEntry{
				ID:        ch.catalog.nextHistoryID,
				ProductID: state.ID,
				OldPrice:  d.OldPrice,
				NewPrice:  d.NewPrice,
				ChangedAt: now,
			})
		}
	})
	return d, nil
}

// DeleteProduct implements Chunk.
func (ch *memoryChunk) DeleteProduct(_ context.Context, productID int64) error {
	ch.writes = append(ch.writes, func() {
		delete(ch.catalog.products, productID)
		delete(ch.catalog.history, productID)
		for key := range ch.catalog.translations {
			if strings.HasPrefix(key, fmt.Sprintf("%d/", productID)) {
				delete(ch.catalog.translations, key)
			}
		}
	})
	return nil
}

// Commit implements Chunk.
func (ch *memoryChunk) Commit(_ context.Context) error {
	ch.catalog.mu.Lock()
	defer ch.catalog.mu.Unlock()

	if ch.done {
		return fmt.Errorf("chunk already finished")
	}
	ch.done = true

	if ch.catalog.FailCommits > 0 {
		ch.catalog.FailCommits--
		ch.writes = nil
		return fmt.Errorf("committing chunk: forced failure")
	}

	for _, write := range ch.writes {
		write()
	}
	ch.writes = nil
	return nil
}

// Rollback implements Chunk.
func (ch *memoryChunk) Rollback(_ context.Context) error {
	ch.done = true
	ch.writes = nil
	return nil
}
