// Package domain defines the core business types for the catalog sync engine.
package domain

import "time"

// Known store names. Each maps to a shop adapter registered at startup.
const (
	StoreAmazon = "Amazon"
	StoreJarir  = "Jarir"
	StoreExtra  = "Extra"
)

// DefaultCategory is assigned to products first seen by the harvester.
// The classification subsystem reassigns categories later; this engine
// only reads and writes the foreign key.
const DefaultCategory = "General"

// Product is a single listing tracked in the local catalog.
//
// (StoreID, Title) is the dedup key; no external SKU is trusted.
// LastUpdated only advances when new information was actually observed:
// a price change, a field change during harvest, or a confirmed
// "available" probe. An unchanged, unavailable probe leaves it alone,
// which makes it usable as a last-confirmed-alive signal for pruning.
type Product struct {
	ID           int64     `json:"product_id"            db:"product_id"`
	Title        string    `json:"title"                 db:"title"`
	Price        *float64  `json:"price,omitempty"       db:"price"`
	Availability bool      `json:"availability"          db:"availability"`
	Link         string    `json:"link"                  db:"link"`
	ImageURL     string    `json:"image_url"             db:"image_url"`
	Info         *string   `json:"info,omitempty"        db:"info"`
	SearchTerm   *string   `json:"search_term,omitempty" db:"search_term"`
	StoreID      int64     `json:"store_id"              db:"store_id"`
	CategoryID   *int64    `json:"category_id,omitempty" db:"category_id"`
	GroupID      *int64    `json:"group_id,omitempty"    db:"group_id"`
	LastUpdated  time.Time `json:"last_updated"          db:"last_updated"`
}

// Store is an external shop whose listings are tracked.
// Created lazily on first harvested product, never deleted.
type Store struct {
	ID   int64  `json:"store_id"   db:"store_id"`
	Name string `json:"store_name" db:"store_name"`
}

// Category is a coarse product classification owned by the AI
// classification subsystem.
type Category struct {
	ID   int64  `json:"category_id"   db:"category_id"`
	Name string `json:"category_name" db:"category_name"`
}

// ProductGroup clusters duplicate products across stores. Owned by the
// grouping subsystem; carried here for the foreign key only.
type ProductGroup struct {
	ID         int64     `json:"group_id"    db:"group_id"`
	Name       string    `json:"group_name"  db:"group_name"`
	CategoryID *int64    `json:"category_id" db:"category_id"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"  db:"updated_at"`
}

// PriceHistoryEntry is one immutable record in the price ledger.
// OldPrice is nil when the product had no prior price.
type PriceHistoryEntry struct {
	ID        int64     `json:"history_id"          db:"history_id"`
	ProductID int64     `json:"product_id"          db:"product_id"`
	OldPrice  *float64  `json:"old_price,omitempty" db:"old_price"`
	NewPrice  float64   `json:"new_price"           db:"new_price"`
	ChangedAt time.Time `json:"changed_at"          db:"changed_at"`
}

// TitleTranslation is a localized product title, one row per
// (product, language).
type TitleTranslation struct {
	ProductID       int64  `json:"product_id"       db:"product_id"`
	Language        string `json:"language"         db:"language"`
	TranslatedTitle string `json:"translated_title" db:"translated_title"`
}

// ProbeResult is the outcome of re-fetching one product's live state.
//
// Known is false when the page could not be classified at all (layout
// change, timeout, network failure); callers must then leave both
// stored fields untouched. Price is nil when the page was classified
// but no price could be extracted.
type ProbeResult struct {
	Known        bool
	Availability bool
	Price        *float64
}

// RawListing is one search result as discovered by a shop adapter,
// before it is reconciled into the catalog.
type RawListing struct {
	Title    string
	Link     string
	Price    *float64
	Info     string
	ImageURL string
}

// PassRun records a single execution of a scheduled pass.
type PassRun struct {
	ID           string     `json:"id"                      db:"id"`
	PassName     string     `json:"pass_name"               db:"pass_name"`
	StartedAt    time.Time  `json:"started_at"              db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"  db:"completed_at"`
	Status       string     `json:"status"                  db:"status"`
	ErrorText    string     `json:"error_text,omitempty"    db:"error_text"`
	RowsAffected *int       `json:"rows_affected,omitempty" db:"rows_affected"`
}
