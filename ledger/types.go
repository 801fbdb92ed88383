/*
Package ledger provides the core FIFO payment-allocation engine.

PURPOSE:
  This package contains the domain-agnostic types and algorithms behind
  every counterparty ledger in the ERP (vendor, contractor, machine).
  Given the dated charges and dated payments of one counterparty, it
  deterministically decides which charges the payments have satisfied and
  derives a paid/remaining split for every charge.

KEY CONCEPTS IN THIS FILE (types.go):
  - Charge: one billable event (purchase, work entry) against a counterparty
  - Payment: money paid toward a counterparty's balance, not tied to a
    specific charge at creation time
  - Allocation: attribution of payment money to a charge (persisted mode)
  - ChargeStanding: the derived paid/remaining split for one charge

DESIGN PRINCIPLES:
  1. Immutability: charges and payments are value records; the engine is
     handed an immutable snapshot per computation
  2. Determinism: every ordering has an explicit (date, id) tie-break
  3. Precision: all arithmetic goes through Money (decimal-backed)
  4. Rebuild over patching: any mutation invalidates all allocations for
     the counterparty; correctness comes from recomputing, never merging

SEE ALSO:
  - allocator.go: the FIFO algorithms (pool and persisted modes)
  - rebuild.go: the stateful rebuild protocol around the allocator
  - view.go: merged statement rows for reporting
  - snapshot.go: scalar totals used by write-path gates
*/
package ledger

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CounterpartyID string
type ChargeID string
type PaymentID string

// AllocationMode selects how payment consumption is tracked for a
// counterparty. The two modes produce identical per-charge paid/remaining
// totals; only persisted mode can answer "which payment funded this charge".
type AllocationMode string

const (
	// ModePool keeps no payment-to-charge linkage. The total payment pool
	// is swept across charges on every read.
	ModePool AllocationMode = "pool"

	// ModePersisted materializes Allocation rows, rebuilt from scratch on
	// every mutation.
	ModePersisted AllocationMode = "persisted"
)

// =============================================================================
// CHARGE - One billable event against a counterparty
// =============================================================================

type Charge struct {
	ID             ChargeID
	CounterpartyID CounterpartyID
	Date           Date

	// Gross is the full billed amount. Always > 0.
	Gross Money

	// DirectPaid is the amount paid at the moment the charge was recorded,
	// separate from later FIFO-applied payments. A purchase can be entered
	// already partially paid. 0 <= DirectPaid <= Gross.
	DirectPaid Money

	Description string
}

// RemainingAtFace is the capacity left for FIFO allocation:
// Gross - DirectPaid. Fails with Underflow on a malformed charge.
func (c Charge) RemainingAtFace() (Money, error) {
	return c.Gross.Sub(c.DirectPaid)
}

// =============================================================================
// PAYMENT - One payment event against a counterparty
// =============================================================================

type Payment struct {
	ID             PaymentID
	CounterpartyID CounterpartyID
	Date           Date
	Amount         Money // always > 0
	Description    string
}

// =============================================================================
// ALLOCATION - Attribution of payment money to a charge
// =============================================================================

// Allocation is the engine's output in persisted mode: PaymentID funded
// Amount of ChargeID. Allocations are never edited in place; the whole set
// for a counterparty is discarded and rebuilt on every mutation.
type Allocation struct {
	CounterpartyID CounterpartyID
	ChargeID       ChargeID
	PaymentID      PaymentID
	Amount         Money // always > 0
}

// =============================================================================
// CHARGE STANDING - Derived paid/remaining split
// =============================================================================

// ChargeStanding is the per-charge result of an allocation pass.
//
//	Paid      = DirectPaid + allocated
//	Remaining = Gross - Paid
type ChargeStanding struct {
	Paid      Money
	Remaining Money
}
