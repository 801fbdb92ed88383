/*
rebuild.go - The stateful rebuild protocol around the allocator

PURPOSE:
  The one stateful operation in the engine. After any charge or payment
  mutation for a persisted-mode counterparty, the calling layer invokes
  Rebuild: load the counterparty's charges and payments, recompute the
  full allocation set with RebuildAllocations, and atomically replace
  what is stored. There is no incremental patching - discarding and
  recomputing trades CPU for the elimination of drift bugs.

CONCURRENCY:
  Two rebuilds racing on the same counterparty (a payment delete and a
  charge insert, say) must not interleave their delete-all/insert-all
  steps. Rebuild serializes per counterparty with a keyed mutex; distinct
  counterparties never block each other.

TRIGGERING:
  Nothing here triggers automatically. The write path (party.Service, or
  whatever owns mutations) is responsible for calling Rebuild after every
  mutation. The guarantee is only: given a correct snapshot, the stored
  set satisfies the allocation invariants.
*/
package ledger

import (
	"context"
	"sync"
)

// Rebuilder owns the materialized allocation sets for persisted-mode
// counterparties and the rebuild protocol that keeps them consistent.
type Rebuilder struct {
	Charges     ChargeStore
	Payments    PaymentStore
	Allocations AllocationStore

	mu    sync.Mutex
	locks map[CounterpartyID]*sync.Mutex
}

func NewRebuilder(charges ChargeStore, payments PaymentStore, allocations AllocationStore) *Rebuilder {
	return &Rebuilder{
		Charges:     charges,
		Payments:    payments,
		Allocations: allocations,
		locks:       make(map[CounterpartyID]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing rebuilds for one counterparty.
func (r *Rebuilder) lockFor(id CounterpartyID) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

// Rebuild recomputes and atomically replaces the counterparty's entire
// allocation set from its current charges and payments. It returns the
// new set. Rebuilding an unchanged counterparty is idempotent.
func (r *Rebuilder) Rebuild(ctx context.Context, id CounterpartyID) ([]Allocation, error) {
	l := r.lockFor(id)
	l.Lock()
	defer l.Unlock()

	charges, err := r.Charges.Charges(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := r.Payments.Payments(ctx, id)
	if err != nil {
		return nil, err
	}

	allocations, err := RebuildAllocations(charges, payments)
	if err != nil {
		return nil, err
	}

	if err := r.Allocations.ReplaceAllocations(ctx, id, allocations); err != nil {
		return nil, err
	}
	return allocations, nil
}

// PaidAmountFor returns the total allocated to one charge from the stored
// allocation set. DirectPaid is not included; callers add it when they
// need the charge's full paid figure.
func (r *Rebuilder) PaidAmountFor(ctx context.Context, id ChargeID) (Money, error) {
	return r.Allocations.SumAllocationsByCharge(ctx, id)
}
