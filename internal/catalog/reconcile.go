package catalog

import (
	"math"

	domain "github.com/buyvia/catalogsync/pkg/types"
)

// priceEpsilon is the tolerance for treating two prices as equal, so
// float noise never produces a ledger entry.
const priceEpsilon = 1e-6

// Decision is the write plan produced by reconciling one probe result
// against a product's stored state.
type Decision struct {
	// Touch is false when the probe told us nothing; no field may be
	// written in that case, last_updated included.
	Touch bool

	// Availability is the value to store. Only meaningful when Touch.
	Availability bool

	// PriceChanged signals that NewPrice replaces the stored price and
	// a ledger entry (OldPrice -> NewPrice) must be appended.
	PriceChanged bool
	NewPrice     float64
	OldPrice     *float64

	// AdvanceClock bumps last_updated. It is set on any accepted price
	// change, and otherwise only when the probe confirmed the product
	// available, so last_updated stays usable as a last-confirmed-alive
	// signal.
	AdvanceClock bool
}

// Reconcile maps a probe result onto the stored product state.
//
// An unknown probe yields a no-op: a page we could not classify must
// not flip availability or disturb the pruning clock. A known probe
// always carries availability. A probe price is compared against the
// stored price with an epsilon; equal prices and absent prices leave
// the stored price and the ledger alone.
func Reconcile(p *domain.Product, probe domain.ProbeResult) Decision {
	if !probe.Known {
		return Decision{}
	}

	d := Decision{
		Touch:        true,
		Availability: probe.Availability,
	}

	if probe.Price == nil {
		d.AdvanceClock = probe.Availability
		return d
	}

	if p.Price == nil || math.Abs(*p.Price-*probe.Price) > priceEpsilon {
		d.PriceChanged = true
		d.NewPrice = *probe.Price
		d.OldPrice = p.Price
		d.AdvanceClock = true
		return d
	}

	d.AdvanceClock = probe.Availability
	return d
}
