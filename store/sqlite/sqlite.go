/*
Package sqlite provides a SQLite-backed implementation of ledger.LedgerStore.

PURPOSE:
  Reference persistence for the allocation engine. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

ATOMIC REPLACE:
  ReplaceAllocations runs delete-all-then-insert-all inside one SQL
  transaction. A partially replaced allocation set would break the
  reconciliation identity, so the swap is all-or-nothing.

MONEY AND DATES:
  Amounts are stored as decimal strings (never floats) and dates as
  YYYY-MM-DD text, which sorts chronologically as-is.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WAL mode is enabled so readers
  don't block behind the single writer.

USAGE:
  st, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  rebuilder := ledger.NewRebuilder(st, st, st)

SEE ALSO:
  - ledger/store.go: interface definitions
  - ledger/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/girder/ledger-engine/ledger"
)

// Store implements ledger.LedgerStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS charges (
		id TEXT PRIMARY KEY,
		counterparty_id TEXT NOT NULL,
		date TEXT NOT NULL,
		gross TEXT NOT NULL,
		direct_paid TEXT NOT NULL,
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_charges_counterparty
		ON charges(counterparty_id, date);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		counterparty_id TEXT NOT NULL,
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_counterparty
		ON payments(counterparty_id, date);

	-- Materialized allocation rows (persisted mode). Never edited in
	-- place: the whole set for a counterparty is replaced on rebuild.
	CREATE TABLE IF NOT EXISTS allocations (
		counterparty_id TEXT NOT NULL,
		charge_id TEXT NOT NULL,
		payment_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_allocations_counterparty
		ON allocations(counterparty_id);
	CREATE INDEX IF NOT EXISTS idx_allocations_charge
		ON allocations(charge_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CHARGE STORE
// =============================================================================

// Charges returns all charges for a counterparty.
func (s *Store) Charges(ctx context.Context, id ledger.CounterpartyID) ([]ledger.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, counterparty_id, date, gross, direct_paid, description
		FROM charges
		WHERE counterparty_id = ?
		ORDER BY date ASC, id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query charges: %w", err)
	}
	defer rows.Close()

	var charges []ledger.Charge
	for rows.Next() {
		var (
			c                       ledger.Charge
			date, gross, directPaid string
			description             sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.CounterpartyID, &date, &gross, &directPaid, &description); err != nil {
			return nil, fmt.Errorf("failed to scan charge: %w", err)
		}
		if c.Date, err = ledger.ParseDate(date); err != nil {
			return nil, err
		}
		if c.Gross, err = ledger.ParseMoney(gross); err != nil {
			return nil, err
		}
		if c.DirectPaid, err = ledger.ParseMoney(directPaid); err != nil {
			return nil, err
		}
		c.Description = description.String
		charges = append(charges, c)
	}
	return charges, rows.Err()
}

// SaveCharge inserts or updates a charge.
func (s *Store) SaveCharge(ctx context.Context, c ledger.Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO charges (id, counterparty_id, date, gross, direct_paid, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			gross = excluded.gross,
			direct_paid = excluded.direct_paid,
			description = excluded.description`,
		c.ID, c.CounterpartyID, c.Date.String(), c.Gross.String(), c.DirectPaid.String(),
		c.Description, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save charge: %w", err)
	}
	return nil
}

// DeleteCharge removes a charge.
func (s *Store) DeleteCharge(ctx context.Context, id ledger.CounterpartyID, chargeID ledger.ChargeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM charges WHERE id = ? AND counterparty_id = ?", chargeID, id)
	if err != nil {
		return fmt.Errorf("failed to delete charge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrChargeNotFound
	}
	return nil
}

// =============================================================================
// PAYMENT STORE
// =============================================================================

// Payments returns all payments for a counterparty.
func (s *Store) Payments(ctx context.Context, id ledger.CounterpartyID) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, counterparty_id, date, amount, description
		FROM payments
		WHERE counterparty_id = ?
		ORDER BY date ASC, id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []ledger.Payment
	for rows.Next() {
		var (
			p            ledger.Payment
			date, amount string
			description  sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.CounterpartyID, &date, &amount, &description); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		if p.Date, err = ledger.ParseDate(date); err != nil {
			return nil, err
		}
		if p.Amount, err = ledger.ParseMoney(amount); err != nil {
			return nil, err
		}
		p.Description = description.String
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// SavePayment inserts or updates a payment.
func (s *Store) SavePayment(ctx context.Context, p ledger.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, counterparty_id, date, amount, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			amount = excluded.amount,
			description = excluded.description`,
		p.ID, p.CounterpartyID, p.Date.String(), p.Amount.String(),
		p.Description, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

// DeletePayment removes a payment.
func (s *Store) DeletePayment(ctx context.Context, id ledger.CounterpartyID, paymentID ledger.PaymentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM payments WHERE id = ? AND counterparty_id = ?", paymentID, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrPaymentNotFound
	}
	return nil
}

// =============================================================================
// ALLOCATION STORE
// =============================================================================

// ReplaceAllocations swaps the counterparty's entire allocation set inside
// one SQL transaction.
func (s *Store) ReplaceAllocations(ctx context.Context, id ledger.CounterpartyID, allocations []ledger.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM allocations WHERE counterparty_id = ?", id); err != nil {
		return fmt.Errorf("failed to clear allocations: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, a := range allocations {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO allocations (counterparty_id, charge_id, payment_id, amount, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			a.CounterpartyID, a.ChargeID, a.PaymentID, a.Amount.String(), now,
		); err != nil {
			return fmt.Errorf("failed to insert allocation: %w", err)
		}
	}
	return tx.Commit()
}

// Allocations returns the stored allocation set for a counterparty.
func (s *Store) Allocations(ctx context.Context, id ledger.CounterpartyID) ([]ledger.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT counterparty_id, charge_id, payment_id, amount
		FROM allocations
		WHERE counterparty_id = ?
		ORDER BY rowid ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var allocations []ledger.Allocation
	for rows.Next() {
		var (
			a      ledger.Allocation
			amount string
		)
		if err := rows.Scan(&a.CounterpartyID, &a.ChargeID, &a.PaymentID, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		if a.Amount, err = ledger.ParseMoney(amount); err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

// SumAllocationsByCharge totals the allocations funding one charge.
func (s *Store) SumAllocationsByCharge(ctx context.Context, chargeID ledger.ChargeID) (ledger.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT amount FROM allocations WHERE charge_id = ?", chargeID)
	if err != nil {
		return ledger.Money{}, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	// Summed in Go so decimal strings never round-trip through SQLite
	// floating-point arithmetic.
	total := ledger.Money{}
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return ledger.Money{}, fmt.Errorf("failed to scan allocation: %w", err)
		}
		m, err := ledger.ParseMoney(amount)
		if err != nil {
			return ledger.Money{}, err
		}
		total = total.Add(m)
	}
	return total, rows.Err()
}
