// Package store provides LedgerStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/girder/ledger-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	charges     map[ledger.CounterpartyID][]ledger.Charge
	payments    map[ledger.CounterpartyID][]ledger.Payment
	allocations map[ledger.CounterpartyID][]ledger.Allocation
}

func NewMemory() *Memory {
	return &Memory{
		charges:     make(map[ledger.CounterpartyID][]ledger.Charge),
		payments:    make(map[ledger.CounterpartyID][]ledger.Payment),
		allocations: make(map[ledger.CounterpartyID][]ledger.Allocation),
	}
}

// Charges returns a copy of the counterparty's charges.
func (m *Memory) Charges(_ context.Context, id ledger.CounterpartyID) ([]ledger.Charge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Charge, len(m.charges[id]))
	copy(out, m.charges[id])
	return out, nil
}

// Payments returns a copy of the counterparty's payments.
func (m *Memory) Payments(_ context.Context, id ledger.CounterpartyID) ([]ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Payment, len(m.payments[id]))
	copy(out, m.payments[id])
	return out, nil
}

// SaveCharge inserts or updates a charge by id.
func (m *Memory) SaveCharge(_ context.Context, c ledger.Charge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.charges[c.CounterpartyID]
	for i, existing := range rows {
		if existing.ID == c.ID {
			rows[i] = c
			return nil
		}
	}
	m.charges[c.CounterpartyID] = append(rows, c)
	return nil
}

// DeleteCharge removes a charge. Returns ErrChargeNotFound if absent.
func (m *Memory) DeleteCharge(_ context.Context, id ledger.CounterpartyID, chargeID ledger.ChargeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.charges[id]
	for i, c := range rows {
		if c.ID == chargeID {
			m.charges[id] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return ledger.ErrChargeNotFound
}

// SavePayment inserts or updates a payment by id.
func (m *Memory) SavePayment(_ context.Context, p ledger.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.payments[p.CounterpartyID]
	for i, existing := range rows {
		if existing.ID == p.ID {
			rows[i] = p
			return nil
		}
	}
	m.payments[p.CounterpartyID] = append(rows, p)
	return nil
}

// DeletePayment removes a payment. Returns ErrPaymentNotFound if absent.
func (m *Memory) DeletePayment(_ context.Context, id ledger.CounterpartyID, paymentID ledger.PaymentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.payments[id]
	for i, p := range rows {
		if p.ID == paymentID {
			m.payments[id] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return ledger.ErrPaymentNotFound
}

// ReplaceAllocations atomically swaps the counterparty's allocation set.
// The write lock makes delete-all-then-insert-all a single step.
func (m *Memory) ReplaceAllocations(_ context.Context, id ledger.CounterpartyID, allocations []ledger.Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	replacement := make([]ledger.Allocation, len(allocations))
	copy(replacement, allocations)
	m.allocations[id] = replacement
	return nil
}

// Allocations returns a copy of the counterparty's allocation set.
func (m *Memory) Allocations(_ context.Context, id ledger.CounterpartyID) ([]ledger.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Allocation, len(m.allocations[id]))
	copy(out, m.allocations[id])
	return out, nil
}

// SumAllocationsByCharge totals the allocations funding one charge.
func (m *Memory) SumAllocationsByCharge(_ context.Context, chargeID ledger.ChargeID) (ledger.Money, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := ledger.Money{}
	for _, set := range m.allocations {
		for _, a := range set {
			if a.ChargeID == chargeID {
				total = total.Add(a.Amount)
			}
		}
	}
	return total, nil
}
