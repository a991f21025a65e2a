// Package shop provides adapters for the external stores whose listings
// are tracked in the catalog. Each adapter knows how to probe a single
// product page, search the store for new listings, and extract a
// localized title, all behind a common interface so the sync passes never
// touch store-specific markup.
package shop

import (
	"context"
	"errors"
	"fmt"
	"sort"

	domain "github.com/buyvia/catalogsync/pkg/types"
)

// ErrUnknownStore is returned when a store name has no registered adapter.
var ErrUnknownStore = errors.New("no adapter registered for store")

// Session is a live connection to one store, opened at the start of a
// pass over that store's products and released when the pass moves on.
type Session interface {
	// Probe re-fetches the product's page and classifies its live state.
	// A result with Known=false means the page could not be classified;
	// the caller must leave the stored product untouched.
	Probe(ctx context.Context, link string) (domain.ProbeResult, error)

	// Search runs one search term against the store and returns the
	// listings found, already normalized.
	Search(ctx context.Context, term string) ([]domain.RawListing, error)

	// LocalizedTitle fetches the product page in the given language and
	// extracts its title. An empty return with nil error means the store
	// served the page but no usable title was found.
	LocalizedTitle(ctx context.Context, link, lang string) (string, error)

	// Close releases any resources held by the session.
	Close() error
}

// Adapter creates sessions for one store.
type Adapter interface {
	// Name returns the store name the adapter serves, matching the
	// store_name column in the catalog.
	Name() string

	// Open establishes a fresh session. Harvest retries discard the
	// failed session and open a new one.
	Open(ctx context.Context) (Session, error)
}

// Registry maps store names to their adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a registry from the given adapters. A duplicate
// name panics: that is a wiring bug, not a runtime condition.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, ok := r.adapters[a.Name()]; ok {
			panic(fmt.Sprintf("shop: duplicate adapter for store %q", a.Name()))
		}
		r.adapters[a.Name()] = a
	}
	return r
}

// Lookup returns the adapter for a store name.
func (r *Registry) Lookup(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, name)
	}
	return a, nil
}

// Names returns the registered store names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
