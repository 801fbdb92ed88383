/*
allocator_test.go - Executable specification of the FIFO allocator

ORGANIZATION:
  1. Concrete scenarios - the exact cases the surrounding ERP produces
  2. Determinism and tie-break ordering
  3. Conservation / oldest-first / no-overpayment properties
  4. Input rejection

Each test has GIVEN/WHEN/THEN comments explaining the scenario.
*/
package ledger_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/girder/ledger-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const cpty = ledger.CounterpartyID("vendor-1")

func money(s string) ledger.Money { return ledger.MustMoney(s) }

func charge(id string, date string, gross, direct string) ledger.Charge {
	return ledger.Charge{
		ID:             ledger.ChargeID(id),
		CounterpartyID: cpty,
		Date:           ledger.MustDate(date),
		Gross:          money(gross),
		DirectPaid:     money(direct),
	}
}

func payment(id string, date string, amount string) ledger.Payment {
	return ledger.Payment{
		ID:             ledger.PaymentID(id),
		CounterpartyID: cpty,
		Date:           ledger.MustDate(date),
		Amount:         money(amount),
	}
}

// =============================================================================
// CONCRETE SCENARIOS
// =============================================================================

func TestRebuild_SinglePaymentFullySatisfiesSingleCharge(t *testing.T) {
	// GIVEN: one charge of 150000 and one later payment of 150000
	// WHEN: allocations are rebuilt
	// THEN: one allocation links the two and the charge's remaining is zero

	charges := []ledger.Charge{charge("c1", "2025-01-10", "150000", "0")}
	payments := []ledger.Payment{payment("p1", "2025-02-05", "150000")}

	allocations, err := ledger.RebuildAllocations(charges, payments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(allocations) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(allocations))
	}
	a := allocations[0]
	if a.ChargeID != "c1" || a.PaymentID != "p1" || !a.Amount.Equal(money("150000")) {
		t.Errorf("unexpected allocation: %+v", a)
	}

	standings, err := ledger.StandingsFromAllocations(charges, allocations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !standings["c1"].Remaining.IsZero() {
		t.Errorf("expected remaining 0, got %v", standings["c1"].Remaining)
	}
}

func TestRebuild_PartialPaymentLeavesLaterChargeUntouched(t *testing.T) {
	// GIVEN: charges of 100 (Jan 5) and 50 (Jan 20), one payment of 80 (Jan 10)
	// WHEN: allocations are rebuilt
	// THEN: the first charge gets 80 (remaining 20), the second is untouched

	charges := []ledger.Charge{
		charge("c1", "2025-01-05", "100", "0"),
		charge("c2", "2025-01-20", "50", "0"),
	}
	payments := []ledger.Payment{payment("p1", "2025-01-10", "80")}

	allocations, err := ledger.RebuildAllocations(charges, payments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(allocations) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(allocations))
	}

	standings, err := ledger.StandingsFromAllocations(charges, allocations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !standings["c1"].Paid.Equal(money("80")) || !standings["c1"].Remaining.Equal(money("20")) {
		t.Errorf("first charge: got %+v", standings["c1"])
	}
	if !standings["c2"].Paid.IsZero() || !standings["c2"].Remaining.Equal(money("50")) {
		t.Errorf("second charge should be untouched: got %+v", standings["c2"])
	}
}

func TestAllocatePool_DirectPaidFoldedIntoPaidFigure(t *testing.T) {
	// GIVEN: a charge of 100 entered with 30 already paid, and a pool of 40
	// WHEN: the pool is swept
	// THEN: paid = 30 + min(70, 40) = 70, remaining = 30

	charges := []ledger.Charge{charge("c1", "2025-03-01", "100", "30")}
	payments := []ledger.Payment{payment("p1", "2025-03-15", "40")}

	standings, err := ledger.AllocatePool(charges, payments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !standings["c1"].Paid.Equal(money("70")) {
		t.Errorf("expected paid 70, got %v", standings["c1"].Paid)
	}
	if !standings["c1"].Remaining.Equal(money("30")) {
		t.Errorf("expected remaining 30, got %v", standings["c1"].Remaining)
	}
}

func TestRebuild_SameDateChargesConsumeInIDOrder(t *testing.T) {
	// GIVEN: three same-dated charges of 40 (ids c1, c2, c3) and a payment of 100
	// WHEN: allocations are rebuilt with the charges supplied in any order
	// THEN: c1 and c2 are fully paid, c3 gets 20 - the id tie-break makes
	//       the result independent of insertion order

	orders := [][]string{
		{"c1", "c2", "c3"},
		{"c3", "c1", "c2"},
		{"c2", "c3", "c1"},
	}
	payments := []ledger.Payment{payment("p1", "2025-04-02", "100")}

	for _, order := range orders {
		var charges []ledger.Charge
		for _, id := range order {
			charges = append(charges, charge(id, "2025-04-01", "40", "0"))
		}

		allocations, err := ledger.RebuildAllocations(charges, payments)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		standings, err := ledger.StandingsFromAllocations(charges, allocations)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !standings["c1"].Remaining.IsZero() || !standings["c2"].Remaining.IsZero() {
			t.Errorf("order %v: c1 and c2 should be fully paid: %+v %+v",
				order, standings["c1"], standings["c2"])
		}
		if !standings["c3"].Paid.Equal(money("20")) || !standings["c3"].Remaining.Equal(money("20")) {
			t.Errorf("order %v: c3 should get 20 of 40, got %+v", order, standings["c3"])
		}
	}
}

func TestRebuild_FullyPaidAtEntryChargeIsSkipped(t *testing.T) {
	// GIVEN: a charge already fully paid at entry, then an open charge
	// WHEN: a payment arrives
	// THEN: the cursor skips the closed charge entirely; no allocation
	//       references it

	charges := []ledger.Charge{
		charge("c1", "2025-05-01", "60", "60"),
		charge("c2", "2025-05-02", "40", "0"),
	}
	payments := []ledger.Payment{payment("p1", "2025-05-10", "25")}

	allocations, err := ledger.RebuildAllocations(charges, payments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(allocations) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(allocations))
	}
	if allocations[0].ChargeID != "c2" || !allocations[0].Amount.Equal(money("25")) {
		t.Errorf("unexpected allocation: %+v", allocations[0])
	}
}

func TestRebuild_EmptyInputsYieldEmptyAllocationList(t *testing.T) {
	// Zero charges or zero payments are valid and produce nothing.

	cases := []struct {
		name     string
		charges  []ledger.Charge
		payments []ledger.Payment
	}{
		{"no charges", nil, []ledger.Payment{payment("p1", "2025-01-01", "10")}},
		{"no payments", []ledger.Charge{charge("c1", "2025-01-01", "10", "0")}, nil},
		{"nothing", nil, nil},
	}

	for _, tc := range cases {
		allocations, err := ledger.RebuildAllocations(tc.charges, tc.payments)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if len(allocations) != 0 {
			t.Errorf("%s: expected no allocations, got %d", tc.name, len(allocations))
		}
	}
}

func TestAllocatePool_ExhaustedPoolLeavesFaceValues(t *testing.T) {
	// GIVEN: a pool smaller than the first charge
	// WHEN: the pool is swept
	// THEN: later charges keep their face values, including direct-paid
	//       bookkeeping, and every charge still has a standing

	charges := []ledger.Charge{
		charge("c1", "2025-06-01", "100", "0"),
		charge("c2", "2025-06-02", "80", "10"),
		charge("c3", "2025-06-03", "50", "0"),
	}
	payments := []ledger.Payment{payment("p1", "2025-06-05", "30")}

	standings, err := ledger.AllocatePool(charges, payments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(standings) != 3 {
		t.Fatalf("expected standings for all 3 charges, got %d", len(standings))
	}
	if !standings["c1"].Paid.Equal(money("30")) {
		t.Errorf("c1 should absorb the whole pool: %+v", standings["c1"])
	}
	if !standings["c2"].Paid.Equal(money("10")) || !standings["c2"].Remaining.Equal(money("70")) {
		t.Errorf("c2 should keep its face values: %+v", standings["c2"])
	}
	if !standings["c3"].Paid.IsZero() || !standings["c3"].Remaining.Equal(money("50")) {
		t.Errorf("c3 should keep its face values: %+v", standings["c3"])
	}
}

// =============================================================================
// DETERMINISM AND MODE AGREEMENT
// =============================================================================

func TestAllocator_RepeatedInvocationIsByteIdentical(t *testing.T) {
	// Same multiset of charges and payments, repeated invocations:
	// identical output every time, both modes.

	charges := []ledger.Charge{
		charge("c2", "2025-01-05", "120", "20"),
		charge("c1", "2025-01-05", "75", "0"),
		charge("c3", "2025-02-01", "200", "0"),
	}
	payments := []ledger.Payment{
		payment("p2", "2025-01-15", "90"),
		payment("p1", "2025-01-15", "60"),
	}

	firstAllocs, err := ledger.RebuildAllocations(charges, payments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstPool, err := ledger.AllocatePool(charges, payments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 10; i++ {
		allocs, err := ledger.RebuildAllocations(charges, payments)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(allocs, firstAllocs) {
			t.Fatalf("run %d: persisted output differs", i)
		}

		pool, err := ledger.AllocatePool(charges, payments)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(pool, firstPool) {
			t.Fatalf("run %d: pool output differs", i)
		}
	}
}

func TestAllocator_ModesAgreeOnPerChargeStandings(t *testing.T) {
	// Pool mode and persisted mode must produce the same aggregate
	// paid/remaining per charge; only the linkage differs.

	charges := []ledger.Charge{
		charge("c1", "2025-01-01", "100", "25"),
		charge("c2", "2025-01-10", "60", "0"),
		charge("c3", "2025-01-10", "40", "0"),
	}
	payments := []ledger.Payment{
		payment("p1", "2025-01-05", "50"),
		payment("p2", "2025-01-20", "55"),
	}

	poolStandings, err := ledger.AllocatePool(charges, payments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	allocations, err := ledger.RebuildAllocations(charges, payments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	persistedStandings, err := ledger.StandingsFromAllocations(charges, allocations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(poolStandings, persistedStandings) {
		t.Errorf("modes disagree:\npool:      %+v\npersisted: %+v",
			poolStandings, persistedStandings)
	}
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestAllocator_Conservation(t *testing.T) {
	// sum(paid) == min(sum(payments), sum(remainingAtFace)) + sum(directPaid)

	charges := []ledger.Charge{
		charge("c1", "2025-01-01", "100", "30"),
		charge("c2", "2025-01-15", "50", "0"),
		charge("c3", "2025-02-01", "75", "75"),
	}
	payments := []ledger.Payment{
		payment("p1", "2025-01-20", "60"),
		payment("p2", "2025-02-10", "200"),
	}

	standings, err := ledger.AllocatePool(charges, payments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	totalPaid := ledger.Money{}
	for _, s := range standings {
		totalPaid = totalPaid.Add(s.Paid)
	}

	faceRemaining := ledger.Money{}
	direct := ledger.Money{}
	for _, c := range charges {
		r, _ := c.RemainingAtFace()
		faceRemaining = faceRemaining.Add(r)
		direct = direct.Add(c.DirectPaid)
	}
	expected := ledger.SumPayments(payments).Min(faceRemaining).Add(direct)

	if !totalPaid.Equal(expected) {
		t.Errorf("conservation violated: paid %v, expected %v", totalPaid, expected)
	}
}

func TestAllocator_OldestFirst(t *testing.T) {
	// If any younger charge has allocated money, every older charge must
	// be fully satisfied.

	charges := []ledger.Charge{
		charge("c1", "2025-01-01", "40", "0"),
		charge("c2", "2025-01-10", "40", "0"),
		charge("c3", "2025-01-20", "40", "0"),
	}
	payments := []ledger.Payment{payment("p1", "2025-01-25", "90")}

	allocations, err := ledger.RebuildAllocations(charges, payments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	standings, err := ledger.StandingsFromAllocations(charges, allocations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ordered := []ledger.ChargeID{"c1", "c2", "c3"}
	for younger := 1; younger < len(ordered); younger++ {
		if standings[ordered[younger]].Paid.IsZero() {
			continue
		}
		for older := 0; older < younger; older++ {
			if !standings[ordered[older]].Remaining.IsZero() {
				t.Errorf("%s has money while older %s still has remaining %v",
					ordered[younger], ordered[older], standings[ordered[older]].Remaining)
			}
		}
	}
}

func TestAllocator_NoOverpayment(t *testing.T) {
	// No charge's paid exceeds its gross; no payment's outgoing
	// allocations exceed its amount.

	charges := []ledger.Charge{
		charge("c1", "2025-01-01", "30", "10"),
		charge("c2", "2025-01-05", "45", "0"),
	}
	payments := []ledger.Payment{
		payment("p1", "2025-01-10", "500"),
		payment("p2", "2025-01-11", "7"),
	}

	allocations, err := ledger.RebuildAllocations(charges, payments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	standings, err := ledger.StandingsFromAllocations(charges, allocations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range charges {
		if standings[c.ID].Paid.GreaterThan(c.Gross) {
			t.Errorf("charge %s overpaid: %v > %v", c.ID, standings[c.ID].Paid, c.Gross)
		}
	}

	outgoing := make(map[ledger.PaymentID]ledger.Money)
	for _, a := range allocations {
		outgoing[a.PaymentID] = outgoing[a.PaymentID].Add(a.Amount)
	}
	for _, p := range payments {
		if outgoing[p.ID].GreaterThan(p.Amount) {
			t.Errorf("payment %s over-allocated: %v > %v", p.ID, outgoing[p.ID], p.Amount)
		}
	}
}

func TestRebuild_PaymentSplitsAcrossChargesWithCursor(t *testing.T) {
	// GIVEN: a payment larger than the first charge
	// WHEN: allocations are rebuilt
	// THEN: the payment splits across charges and the next payment picks
	//       up exactly where the cursor left off

	charges := []ledger.Charge{
		charge("c1", "2025-01-01", "50", "0"),
		charge("c2", "2025-01-02", "50", "0"),
	}
	payments := []ledger.Payment{
		payment("p1", "2025-01-10", "70"),
		payment("p2", "2025-01-11", "30"),
	}

	allocations, err := ledger.RebuildAllocations(charges, payments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []ledger.Allocation{
		{CounterpartyID: cpty, ChargeID: "c1", PaymentID: "p1", Amount: money("50")},
		{CounterpartyID: cpty, ChargeID: "c2", PaymentID: "p1", Amount: money("20")},
		{CounterpartyID: cpty, ChargeID: "c2", PaymentID: "p2", Amount: money("30")},
	}
	if !reflect.DeepEqual(allocations, expected) {
		t.Errorf("unexpected allocation rows:\ngot:      %+v\nexpected: %+v", allocations, expected)
	}
}

// =============================================================================
// INPUT REJECTION
// =============================================================================

func TestAllocator_RejectsCrossCounterpartyMixing(t *testing.T) {
	charges := []ledger.Charge{charge("c1", "2025-01-01", "10", "0")}
	other := payment("p1", "2025-01-02", "10")
	other.CounterpartyID = "vendor-2"

	_, err := ledger.RebuildAllocations(charges, []ledger.Payment{other})
	if !errors.Is(err, ledger.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	_, err = ledger.AllocatePool(charges, []ledger.Payment{other})
	if !errors.Is(err, ledger.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAllocator_RejectsMalformedRecords(t *testing.T) {
	cases := []struct {
		name     string
		charges  []ledger.Charge
		payments []ledger.Payment
	}{
		{
			"zero gross",
			[]ledger.Charge{charge("c1", "2025-01-01", "0", "0")},
			nil,
		},
		{
			"direct paid above gross",
			[]ledger.Charge{charge("c1", "2025-01-01", "50", "60")},
			nil,
		},
		{
			"zero payment amount",
			nil,
			[]ledger.Payment{payment("p1", "2025-01-01", "0")},
		},
		{
			"empty charge id",
			[]ledger.Charge{charge("", "2025-01-01", "10", "0")},
			nil,
		},
		{
			"zero date",
			[]ledger.Charge{{ID: "c1", CounterpartyID: cpty, Gross: money("10")}},
			nil,
		},
	}

	for _, tc := range cases {
		if _, err := ledger.RebuildAllocations(tc.charges, tc.payments); !errors.Is(err, ledger.ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestDate_OrderingMatchesStringForm(t *testing.T) {
	// Ledger ordering compares dates on their YYYY-MM-DD form; Before must
	// agree with the lexicographic order of String().

	a := ledger.NewDate(2025, time.January, 9)
	b := ledger.NewDate(2025, time.January, 10)
	if !a.Before(b) || a.String() >= b.String() {
		t.Errorf("date ordering disagrees with string form: %s vs %s", a, b)
	}
}
