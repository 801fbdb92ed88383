/*
view.go - Merged counterparty statement for reporting

PURPOSE:
  Merges a counterparty's charges and payments into one sorted row
  stream, each row tagged by kind, with the charge rows carrying their
  allocated paid/remaining split and every row carrying the running
  balance owed.

ORDERING:
  Display order is date DESCENDING (most recent first). On equal dates,
  charge rows come before payment rows, then id ascending. The tie-break
  is an arbitrary but fixed convention: it moves pagination page
  boundaries, so it is documented here and pinned by tests.

PAGINATION:
  Offset-based (page, pageSize) over the merged, already-sorted in-memory
  sequence. The two source collections must be merged before sorting, so
  pagination cannot be pushed down to the store.
*/
package ledger

import (
	"context"
	"sort"
)

// =============================================================================
// STATEMENT ROWS
// =============================================================================

type RowKind string

const (
	RowCharge  RowKind = "charge"
	RowPayment RowKind = "payment"
)

// StatementRow is one display row of a counterparty statement.
type StatementRow struct {
	Kind        RowKind
	Date        Date
	ChargeID    ChargeID  // charge rows only
	PaymentID   PaymentID // payment rows only
	Description string

	// Amount is the gross amount for charge rows, the payment amount for
	// payment rows.
	Amount Money

	// Paid and Remaining carry the charge's allocated split; DirectPaid is
	// the portion paid when the charge was recorded. Zero on payment rows.
	Paid       Money
	DirectPaid Money
	Remaining  Money

	// Balance is the amount still owed after this row, computed
	// chronologically (oldest row first) and floored at zero like the
	// display-facing totals.
	Balance Money
}

// BuildStatementRows merges charges and payments into display order and
// computes running balances. standings must cover every charge (the
// result of AllocatePool or StandingsFromAllocations).
func BuildStatementRows(charges []Charge, payments []Payment, standings map[ChargeID]ChargeStanding) []StatementRow {
	rows := make([]StatementRow, 0, len(charges)+len(payments))
	for _, c := range charges {
		s := standings[c.ID]
		rows = append(rows, StatementRow{
			Kind:        RowCharge,
			Date:        c.Date,
			ChargeID:    c.ID,
			Description: c.Description,
			Amount:      c.Gross,
			Paid:        s.Paid,
			DirectPaid:  c.DirectPaid,
			Remaining:   s.Remaining,
		})
	}
	for _, p := range payments {
		rows = append(rows, StatementRow{
			Kind:        RowPayment,
			Date:        p.Date,
			PaymentID:   p.ID,
			Description: p.Description,
			Amount:      p.Amount,
		})
	}

	// Date descending; on equal dates charges before payments, then id.
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.After(rows[j].Date)
		}
		if rows[i].Kind != rows[j].Kind {
			return rows[i].Kind == RowCharge
		}
		if rows[i].Kind == RowCharge {
			return rows[i].ChargeID < rows[j].ChargeID
		}
		return rows[i].PaymentID < rows[j].PaymentID
	})

	// Running balance, oldest row first (the reverse of display order).
	// Charge rows add their gross and their at-entry direct payment;
	// later FIFO money arrives through the payment rows themselves.
	billed, paid := Money{}, Money{}
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Kind == RowCharge {
			billed = billed.Add(rows[i].Amount)
			paid = paid.Add(rows[i].DirectPaid)
		} else {
			paid = paid.Add(rows[i].Amount)
		}
		rows[i].Balance = billed.SubFloor(paid)
	}
	return rows
}

// =============================================================================
// PAGINATION
// =============================================================================

// PageRequest is an offset-based page selection. Page is 1-based.
type PageRequest struct {
	Page     int
	PageSize int
}

// StatementPage is one page of the merged, sorted statement.
type StatementPage struct {
	Rows       []StatementRow
	Page       int
	PageSize   int
	TotalRows  int
	TotalPages int
}

func paginate(rows []StatementRow, req PageRequest) (*StatementPage, error) {
	if req.Page < 1 {
		return nil, &InvalidInputError{Field: "page", Reason: "must be >= 1"}
	}
	if req.PageSize < 1 {
		return nil, &InvalidInputError{Field: "pageSize", Reason: "must be >= 1"}
	}

	total := len(rows)
	totalPages := (total + req.PageSize - 1) / req.PageSize

	start := (req.Page - 1) * req.PageSize
	if start > total {
		start = total
	}
	end := start + req.PageSize
	if end > total {
		end = total
	}

	return &StatementPage{
		Rows:       rows[start:end],
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalRows:  total,
		TotalPages: totalPages,
	}, nil
}

// =============================================================================
// VIEW - Store-backed statement reads
// =============================================================================

// View produces paginated counterparty statements. In pool mode it
// re-sweeps the payment pool on every read; in persisted mode it derives
// charge standings from the stored allocation set. Reads never mutate
// state in either mode.
type View struct {
	Charges     ChargeStore
	Payments    PaymentStore
	Allocations AllocationStore // persisted mode only
	Mode        AllocationMode
}

// Statement returns one page of the merged, sorted statement.
func (v *View) Statement(ctx context.Context, id CounterpartyID, req PageRequest) (*StatementPage, error) {
	charges, err := v.Charges.Charges(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := v.Payments.Payments(ctx, id)
	if err != nil {
		return nil, err
	}

	var standings map[ChargeID]ChargeStanding
	switch v.Mode {
	case ModePersisted:
		allocations, err := v.Allocations.Allocations(ctx, id)
		if err != nil {
			return nil, err
		}
		standings, err = StandingsFromAllocations(charges, allocations)
		if err != nil {
			return nil, err
		}
	default:
		standings, err = AllocatePool(charges, payments)
		if err != nil {
			return nil, err
		}
	}

	return paginate(BuildStatementRows(charges, payments, standings), req)
}
