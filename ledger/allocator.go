/*
allocator.go - The FIFO allocation algorithms

PURPOSE:
  Pure functions that decide which charges a counterparty's payments have
  satisfied. Two modes share one ordering rule:

  AllocatePool (pool mode):
    The total payment sum is swept across charges oldest-first. No record
    is kept of which payment funded which charge; callers re-sweep on
    every read. Used where the read path only needs per-charge
    paid/remaining (reporting-only views).

  RebuildAllocations (persisted mode):
    Payments are applied oldest-first against charges oldest-first with a
    cursor carried across payments. Produces explicit Allocation rows, so
    a later payment delete can be traced - the whole set is then rebuilt,
    never patched.

DETERMINISM:
  Charges and payments are ordered by (date, id) ascending. The id
  tie-break guarantees a total order even when dates collide; without it,
  same-day charges would allocate non-deterministically. Both functions
  are pure: same input, byte-identical output, safe for concurrent use.

FAILURE SEMANTICS:
  Well-formed input never fails. Malformed input (non-positive amounts,
  direct-paid above gross, cross-counterparty mixing) is rejected with
  InvalidInput before any allocation happens - never a partial result.
*/
package ledger

import "sort"

// sortedCharges returns a copy of charges ordered by (date, id) ascending.
func sortedCharges(charges []Charge) []Charge {
	out := make([]Charge, len(charges))
	copy(out, charges)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// sortedPayments returns a copy of payments ordered by (date, id) ascending.
func sortedPayments(payments []Payment) []Payment {
	out := make([]Payment, len(payments))
	copy(out, payments)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// validateInput rejects malformed or cross-counterparty data before any
// allocation math runs. Empty charge and payment sets are valid.
func validateInput(charges []Charge, payments []Payment) error {
	var owner CounterpartyID
	seen := false

	checkOwner := func(id CounterpartyID) error {
		if id == "" {
			return &InvalidInputError{Field: "counterpartyId", Reason: "empty"}
		}
		if !seen {
			owner, seen = id, true
			return nil
		}
		if id != owner {
			return &InvalidInputError{
				Field:  "counterpartyId",
				Reason: "mixed counterparties: " + string(owner) + " and " + string(id),
			}
		}
		return nil
	}

	for _, c := range charges {
		if c.ID == "" {
			return &InvalidInputError{Field: "charge.id", Reason: "empty"}
		}
		if err := checkOwner(c.CounterpartyID); err != nil {
			return err
		}
		if c.Date.IsZero() {
			return &InvalidInputError{Field: "charge.date", Reason: "zero date on " + string(c.ID)}
		}
		if c.Gross.IsZero() {
			return &InvalidInputError{Field: "charge.gross", Reason: "must be > 0 on " + string(c.ID)}
		}
		if c.DirectPaid.GreaterThan(c.Gross) {
			return &InvalidInputError{Field: "charge.directPaid", Reason: "exceeds gross on " + string(c.ID)}
		}
	}
	for _, p := range payments {
		if p.ID == "" {
			return &InvalidInputError{Field: "payment.id", Reason: "empty"}
		}
		if err := checkOwner(p.CounterpartyID); err != nil {
			return err
		}
		if p.Date.IsZero() {
			return &InvalidInputError{Field: "payment.date", Reason: "zero date on " + string(p.ID)}
		}
		if p.Amount.IsZero() {
			return &InvalidInputError{Field: "payment.amount", Reason: "must be > 0 on " + string(p.ID)}
		}
	}
	return nil
}

// =============================================================================
// POOL MODE
// =============================================================================

// AllocatePool sweeps the total payment pool across charges oldest-first
// and returns the paid/remaining standing of every charge.
//
// The pool is a local accumulator scoped to this call, not shared state.
// Once it hits zero the walk stops early; untouched charges keep their
// face values (DirectPaid paid, RemainingAtFace remaining).
//
// Guarantee: the total taken from the pool never exceeds the original
// pool, and no charge's Paid ever exceeds its Gross.
func AllocatePool(charges []Charge, payments []Payment) (map[ChargeID]ChargeStanding, error) {
	if err := validateInput(charges, payments); err != nil {
		return nil, err
	}

	standings := make(map[ChargeID]ChargeStanding, len(charges))
	pool := SumPayments(payments)
	ordered := sortedCharges(charges)

	for i, c := range ordered {
		need, err := c.RemainingAtFace()
		if err != nil {
			return nil, err
		}

		if pool.IsZero() {
			// Pool exhausted: every remaining charge keeps its face values.
			for _, rest := range ordered[i:] {
				r, err := rest.RemainingAtFace()
				if err != nil {
					return nil, err
				}
				standings[rest.ID] = ChargeStanding{Paid: rest.DirectPaid, Remaining: r}
			}
			break
		}

		take := need.Min(pool)
		pool, err = pool.Sub(take)
		if err != nil {
			return nil, err
		}

		paid := c.DirectPaid.Add(take)
		remaining, err := c.Gross.Sub(paid)
		if err != nil {
			return nil, err
		}
		standings[c.ID] = ChargeStanding{Paid: paid, Remaining: remaining}
	}
	return standings, nil
}

// =============================================================================
// PERSISTED MODE
// =============================================================================

// RebuildAllocations applies payments oldest-first to charges oldest-first
// and returns the explicit payment-to-charge allocation rows.
//
// A single charge cursor is carried across payments, not reset: once a
// charge is exhausted (or had no capacity at entry) it is never revisited.
// A payment fully absorbed by earlier charges leaves later charges
// untouched - that is correct FIFO behavior, not a bug.
//
// Zero charges or zero payments yield an empty allocation list.
func RebuildAllocations(charges []Charge, payments []Payment) ([]Allocation, error) {
	if err := validateInput(charges, payments); err != nil {
		return nil, err
	}

	cs := sortedCharges(charges)
	remaining := make([]Money, len(cs))
	for i, c := range cs {
		r, err := c.RemainingAtFace()
		if err != nil {
			return nil, err
		}
		remaining[i] = r
	}

	var allocations []Allocation
	cursor := 0

	for _, p := range sortedPayments(payments) {
		left := p.Amount

		for cursor < len(cs) && !left.IsZero() {
			if remaining[cursor].IsZero() {
				// Fully paid at entry, or exhausted by an earlier payment.
				cursor++
				continue
			}

			take := left.Min(remaining[cursor])

			var err error
			left, err = left.Sub(take)
			if err != nil {
				return nil, err
			}
			remaining[cursor], err = remaining[cursor].Sub(take)
			if err != nil {
				return nil, err
			}

			allocations = append(allocations, Allocation{
				CounterpartyID: p.CounterpartyID,
				ChargeID:       cs[cursor].ID,
				PaymentID:      p.ID,
				Amount:         take,
			})

			if remaining[cursor].IsZero() {
				cursor++
			}
		}
	}
	return allocations, nil
}

// StandingsFromAllocations derives per-charge paid/remaining splits from a
// materialized allocation set. This is the persisted-mode counterpart of
// AllocatePool's result and must agree with it on identical inputs.
func StandingsFromAllocations(charges []Charge, allocations []Allocation) (map[ChargeID]ChargeStanding, error) {
	byCharge := make(map[ChargeID]Money, len(charges))
	for _, a := range allocations {
		byCharge[a.ChargeID] = byCharge[a.ChargeID].Add(a.Amount)
	}

	standings := make(map[ChargeID]ChargeStanding, len(charges))
	for _, c := range charges {
		paid := c.DirectPaid.Add(byCharge[c.ID])
		remaining, err := c.Gross.Sub(paid)
		if err != nil {
			return nil, err
		}
		standings[c.ID] = ChargeStanding{Paid: paid, Remaining: remaining}
	}
	return standings, nil
}
