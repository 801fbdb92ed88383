/*
service.go - Counterparty write path with validation gates

PURPOSE:
  The engine only computes; this service owns the mutations around it.
  Every write is gated by the totals aggregator before it lands:

  1. A new payment may not exceed the counterparty's remaining balance.
  2. Deleting or shrinking a charge may not leave total paid above total
     billed (a phantom overpayment that nothing could ever reconcile).

  After any mutation on a persisted-mode counterparty the whole
  allocation set is rebuilt. Pool-mode counterparties need no rebuild:
  their reads re-sweep the pool every time.

WHY A WRAPPER?
  The allocator never fails on well-formed input and knows nothing about
  "remaining balance" as a business rule. These gates are counterparty
  policy, so they live here, not in the engine.
*/
package party

import (
	"context"

	"github.com/google/uuid"

	"github.com/girder/ledger-engine/ledger"
)

// Service is the write path for one kind of counterparty ledger.
type Service struct {
	kind      Kind
	store     ledger.LedgerStore
	rebuilder *ledger.Rebuilder
	view      *ledger.View
	totals    *ledger.Aggregator
}

func NewService(kind Kind, store ledger.LedgerStore) *Service {
	return &Service{
		kind:      kind,
		store:     store,
		rebuilder: ledger.NewRebuilder(store, store, store),
		view: &ledger.View{
			Charges:     store,
			Payments:    store,
			Allocations: store,
			Mode:        kind.Mode(),
		},
		totals: &ledger.Aggregator{Charges: store, Payments: store},
	}
}

func (s *Service) Kind() Kind { return s.kind }

// =============================================================================
// WRITE PATH
// =============================================================================

// ChargeInput describes a new billable event.
type ChargeInput struct {
	CounterpartyID ledger.CounterpartyID
	Date           ledger.Date
	Gross          ledger.Money
	DirectPaid     ledger.Money
	Description    string
}

// AddCharge records a new charge and rebuilds allocations if the kind
// persists them. The charge may be entered already partially paid.
func (s *Service) AddCharge(ctx context.Context, in ChargeInput) (ledger.Charge, error) {
	c := ledger.Charge{
		ID:             ledger.ChargeID(uuid.NewString()),
		CounterpartyID: in.CounterpartyID,
		Date:           in.Date,
		Gross:          in.Gross,
		DirectPaid:     in.DirectPaid,
		Description:    in.Description,
	}
	if err := validateCharge(c); err != nil {
		return ledger.Charge{}, err
	}
	if err := s.store.SaveCharge(ctx, c); err != nil {
		return ledger.Charge{}, err
	}
	return c, s.rebuildIfPersisted(ctx, in.CounterpartyID)
}

// UpdateCharge replaces an existing charge. Rejected with ErrWouldOverpay
// if the edit would leave total paid above total billed.
func (s *Service) UpdateCharge(ctx context.Context, c ledger.Charge) error {
	if err := validateCharge(c); err != nil {
		return err
	}

	charges, err := s.store.Charges(ctx, c.CounterpartyID)
	if err != nil {
		return err
	}
	payments, err := s.store.Payments(ctx, c.CounterpartyID)
	if err != nil {
		return err
	}

	found := false
	next := make([]ledger.Charge, 0, len(charges))
	for _, existing := range charges {
		if existing.ID == c.ID {
			next = append(next, c)
			found = true
			continue
		}
		next = append(next, existing)
	}
	if !found {
		return ledger.ErrChargeNotFound
	}
	if wouldOverpay(next, payments) {
		return ledger.ErrWouldOverpay
	}

	if err := s.store.SaveCharge(ctx, c); err != nil {
		return err
	}
	return s.rebuildIfPersisted(ctx, c.CounterpartyID)
}

// DeleteCharge removes a charge. Rejected with ErrWouldOverpay if the
// removal would leave total paid above the shrunken total billed.
func (s *Service) DeleteCharge(ctx context.Context, id ledger.CounterpartyID, chargeID ledger.ChargeID) error {
	charges, err := s.store.Charges(ctx, id)
	if err != nil {
		return err
	}
	payments, err := s.store.Payments(ctx, id)
	if err != nil {
		return err
	}

	found := false
	next := make([]ledger.Charge, 0, len(charges))
	for _, existing := range charges {
		if existing.ID == chargeID {
			found = true
			continue
		}
		next = append(next, existing)
	}
	if !found {
		return ledger.ErrChargeNotFound
	}
	if wouldOverpay(next, payments) {
		return ledger.ErrWouldOverpay
	}

	if err := s.store.DeleteCharge(ctx, id, chargeID); err != nil {
		return err
	}
	return s.rebuildIfPersisted(ctx, id)
}

// PaymentInput describes a new payment event.
type PaymentInput struct {
	CounterpartyID ledger.CounterpartyID
	Date           ledger.Date
	Amount         ledger.Money
	Description    string
}

// AddPayment records a payment toward the counterparty's balance.
// Rejected with ErrInsufficientRemaining if the amount exceeds what is
// still owed.
func (s *Service) AddPayment(ctx context.Context, in PaymentInput) (ledger.Payment, error) {
	if in.Amount.IsZero() {
		return ledger.Payment{}, &ledger.InvalidInputError{Field: "payment.amount", Reason: "must be > 0"}
	}

	t, err := s.totals.Totals(ctx, in.CounterpartyID)
	if err != nil {
		return ledger.Payment{}, err
	}
	if in.Amount.GreaterThan(t.Remaining) {
		return ledger.Payment{}, ledger.ErrInsufficientRemaining
	}

	p := ledger.Payment{
		ID:             ledger.PaymentID(uuid.NewString()),
		CounterpartyID: in.CounterpartyID,
		Date:           in.Date,
		Amount:         in.Amount,
		Description:    in.Description,
	}
	if err := s.store.SavePayment(ctx, p); err != nil {
		return ledger.Payment{}, err
	}
	return p, s.rebuildIfPersisted(ctx, in.CounterpartyID)
}

// DeletePayment removes a payment. Its allocations (persisted mode) are
// not patched out individually: the whole set is rebuilt from what
// remains.
func (s *Service) DeletePayment(ctx context.Context, id ledger.CounterpartyID, paymentID ledger.PaymentID) error {
	if err := s.store.DeletePayment(ctx, id, paymentID); err != nil {
		return err
	}
	return s.rebuildIfPersisted(ctx, id)
}

// =============================================================================
// READ PATH
// =============================================================================

// Statement returns one page of the counterparty's merged ledger rows.
func (s *Service) Statement(ctx context.Context, id ledger.CounterpartyID, req ledger.PageRequest) (*ledger.StatementPage, error) {
	return s.view.Statement(ctx, id, req)
}

// Totals returns the counterparty's all-time billed/paid/remaining.
func (s *Service) Totals(ctx context.Context, id ledger.CounterpartyID) (ledger.Totals, error) {
	return s.totals.Totals(ctx, id)
}

// MonthlyTotals returns the reporting snapshot for one calendar month.
func (s *Service) MonthlyTotals(ctx context.Context, id ledger.CounterpartyID, anyDayInMonth ledger.Date) (ledger.Totals, error) {
	return s.totals.TotalsInPeriod(ctx, id, ledger.MonthOf(anyDayInMonth))
}

// PaidAmountFor returns the FIFO-allocated total for one charge
// (persisted-mode kinds only; pool mode keeps no linkage).
func (s *Service) PaidAmountFor(ctx context.Context, chargeID ledger.ChargeID) (ledger.Money, error) {
	return s.rebuilder.PaidAmountFor(ctx, chargeID)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) rebuildIfPersisted(ctx context.Context, id ledger.CounterpartyID) error {
	if s.kind.Mode() != ledger.ModePersisted {
		return nil
	}
	_, err := s.rebuilder.Rebuild(ctx, id)
	return err
}

func validateCharge(c ledger.Charge) error {
	if c.CounterpartyID == "" {
		return &ledger.InvalidInputError{Field: "charge.counterpartyId", Reason: "empty"}
	}
	if c.Date.IsZero() {
		return &ledger.InvalidInputError{Field: "charge.date", Reason: "zero date"}
	}
	if c.Gross.IsZero() {
		return &ledger.InvalidInputError{Field: "charge.gross", Reason: "must be > 0"}
	}
	if c.DirectPaid.GreaterThan(c.Gross) {
		return &ledger.InvalidInputError{Field: "charge.directPaid", Reason: "exceeds gross"}
	}
	return nil
}

// wouldOverpay reports whether the proposed charge set leaves more paid
// than billed.
func wouldOverpay(charges []ledger.Charge, payments []ledger.Payment) bool {
	billed, paid := ledger.Money{}, ledger.Money{}
	for _, c := range charges {
		billed = billed.Add(c.Gross)
		paid = paid.Add(c.DirectPaid)
	}
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	return paid.GreaterThan(billed)
}
