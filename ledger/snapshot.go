package ledger

import "context"

// =============================================================================
// TOTALS - Scalar snapshot of a counterparty's position
// =============================================================================

// Totals is the scalar snapshot consumed by write-path gates and summary
// displays: how much was billed, how much was paid (direct payments
// folded in), and what remains.
type Totals struct {
	TotalBilled Money
	TotalPaid   Money
	Remaining   Money
}

// ComputeTotals aggregates a counterparty's all-time position.
//
// Remaining is floored at zero: this value feeds displays and
// precondition gates, so inconsistent upstream data clamps rather than
// errors here. The allocation math itself never clamps.
func ComputeTotals(charges []Charge, payments []Payment) Totals {
	billed, paid := Money{}, Money{}
	for _, c := range charges {
		billed = billed.Add(c.Gross)
		paid = paid.Add(c.DirectPaid)
	}
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	return Totals{
		TotalBilled: billed,
		TotalPaid:   paid,
		Remaining:   billed.SubFloor(paid),
	}
}

// ComputeTotalsInPeriod aggregates the position for one date window,
// typically a calendar month (see MonthOf).
//
// This is a reporting view: both charges and payments are windowed to
// the period and no unpaid balance is carried forward from earlier
// periods, so a month's figures are not individually bound by the
// all-time reconciliation identity.
func ComputeTotalsInPeriod(charges []Charge, payments []Payment, p Period) Totals {
	var windowedCharges []Charge
	for _, c := range charges {
		if p.Contains(c.Date) {
			windowedCharges = append(windowedCharges, c)
		}
	}
	var windowedPayments []Payment
	for _, pay := range payments {
		if p.Contains(pay.Date) {
			windowedPayments = append(windowedPayments, pay)
		}
	}
	return ComputeTotals(windowedCharges, windowedPayments)
}

// =============================================================================
// AGGREGATOR - Store-backed totals reads
// =============================================================================

// Aggregator computes totals from stored charges and payments. Reads
// never mutate state.
type Aggregator struct {
	Charges  ChargeStore
	Payments PaymentStore
}

// Totals returns the counterparty's all-time position.
func (a *Aggregator) Totals(ctx context.Context, id CounterpartyID) (Totals, error) {
	charges, payments, err := a.load(ctx, id)
	if err != nil {
		return Totals{}, err
	}
	return ComputeTotals(charges, payments), nil
}

// TotalsInPeriod returns the counterparty's position for one date window.
func (a *Aggregator) TotalsInPeriod(ctx context.Context, id CounterpartyID, p Period) (Totals, error) {
	if !p.Valid() {
		return Totals{}, &InvalidInputError{Field: "period", Reason: "end before start"}
	}
	charges, payments, err := a.load(ctx, id)
	if err != nil {
		return Totals{}, err
	}
	return ComputeTotalsInPeriod(charges, payments, p), nil
}

func (a *Aggregator) load(ctx context.Context, id CounterpartyID) ([]Charge, []Payment, error) {
	charges, err := a.Charges.Charges(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	payments, err := a.Payments.Payments(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return charges, payments, nil
}
