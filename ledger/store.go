/*
store.go - Persistence interfaces for charges, payments and allocations

PURPOSE:
  Defines the boundary between the engine and the database. The engine
  assumes consistent reads: a counterparty's charges and payments loaded
  for one computation must be a self-consistent snapshot (no phantom rows
  mid-computation).

KEY INTERFACES:
  ChargeStore / PaymentStore: consistent per-counterparty reads
  AllocationStore:            the materialized allocation set (persisted mode)
  LedgerStore:                all of the above plus the write operations the
                              counterparty write path needs

ATOMIC REPLACE:
  ReplaceAllocations is delete-all-then-insert-all, never a merge. A
  partially replaced allocation set would break the reconciliation
  identity, so implementations must make the swap atomic (one SQL
  transaction, one lock scope).

IMPLEMENTATIONS:
  - ledger/store/memory.go: in-memory, for tests and dev
  - store/sqlite/sqlite.go: SQLite-backed reference implementation
*/
package ledger

import "context"

// ChargeStore provides consistent reads of a counterparty's charges.
type ChargeStore interface {
	// Charges returns all charges for the counterparty, in no guaranteed
	// order; the engine applies its own (date, id) ordering.
	Charges(ctx context.Context, id CounterpartyID) ([]Charge, error)
}

// PaymentStore provides consistent reads of a counterparty's payments.
type PaymentStore interface {
	Payments(ctx context.Context, id CounterpartyID) ([]Payment, error)
}

// AllocationStore owns the materialized allocation rows for persisted-mode
// counterparties.
type AllocationStore interface {
	// ReplaceAllocations atomically swaps the counterparty's entire
	// allocation set. May return ErrRebuildConflict if it detects a
	// racing rebuild; callers retry the whole rebuild.
	ReplaceAllocations(ctx context.Context, id CounterpartyID, allocations []Allocation) error

	// Allocations returns the stored allocation set for the counterparty.
	Allocations(ctx context.Context, id CounterpartyID) ([]Allocation, error)

	// SumAllocationsByCharge returns the total allocated to one charge.
	SumAllocationsByCharge(ctx context.Context, id ChargeID) (Money, error)
}

// LedgerStore is the full contract the counterparty write path needs:
// snapshot reads, allocation ownership, and charge/payment mutations.
type LedgerStore interface {
	ChargeStore
	PaymentStore
	AllocationStore

	SaveCharge(ctx context.Context, c Charge) error
	DeleteCharge(ctx context.Context, id CounterpartyID, chargeID ChargeID) error
	SavePayment(ctx context.Context, p Payment) error
	DeletePayment(ctx context.Context, id CounterpartyID, paymentID PaymentID) error
}
