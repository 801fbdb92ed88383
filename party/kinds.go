// Package party wraps the allocation engine with counterparty-specific
// rules: which allocation mode each counterparty kind uses, and the
// write-path gates every mutation must pass.
package party

import "github.com/girder/ledger-engine/ledger"

// Kind identifies what sort of counterparty a ledger is kept against and
// selects its allocation mode. The engine itself is kind-agnostic.
type Kind string

const (
	// KindVendor ledgers use pool mode: the payment pool is re-swept
	// across purchases on every read, with no payment-to-charge linkage.
	KindVendor Kind = "vendor"

	// KindContractor and KindMachine ledgers use persisted mode:
	// allocations are materialized so a deleted payment's links can be
	// found, then the whole set is rebuilt.
	KindContractor Kind = "contractor"
	KindMachine    Kind = "machine"
)

// Mode returns the allocation mode for this kind.
func (k Kind) Mode() ledger.AllocationMode {
	switch k {
	case KindContractor, KindMachine:
		return ledger.ModePersisted
	default:
		return ledger.ModePool
	}
}

func (k Kind) String() string { return string(k) }
