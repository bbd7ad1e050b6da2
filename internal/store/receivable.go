package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/clientbook/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReceivableStore struct {
	db *sql.DB
}

func NewReceivableStore(db *sql.DB) *ReceivableStore {
	return &ReceivableStore{db: db}
}

const receivableCols = `id, client_id, amount, due_date, paid, paid_at, created_at, updated_at`

func scanReceivable(scanner interface{ Scan(...any) error }) (*model.Receivable, error) {
	var (
		r      model.Receivable
		amount string
		paid   int
		paidAt sql.NullTime
	)
	if err := scanner.Scan(&r.ID, &r.ClientID, &amount, &r.DueDate, &paid, &paidAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("decode amount for receivable %s: %w", r.ID, err)
	}
	r.Amount = d
	r.Paid = paid != 0
	if paidAt.Valid {
		r.PaidAt = &paidAt.Time
	}
	r.ChargeHistory = []model.ChargeEvent{}
	return &r, nil
}

// Create inserts a receivable. An empty ID is replaced with a new UUID.
func (s *ReceivableStore) Create(r model.Receivable) (*model.Receivable, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	var paidAt sql.NullTime
	if r.Paid && r.PaidAt != nil {
		paidAt = sql.NullTime{Time: r.PaidAt.UTC(), Valid: true}
	}
	var paid int
	if r.Paid {
		paid = 1
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO receivables (id, client_id, amount, due_date, paid, paid_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.ClientID, r.Amount.String(), strings.TrimSpace(r.DueDate), paid, paidAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert receivable: %w", err)
	}
	for _, ev := range r.ChargeHistory {
		if _, err := tx.Exec(
			`INSERT INTO charge_events (receivable_id, at, channel) VALUES (?, ?, ?)`,
			r.ID, ev.At.UTC(), ev.Channel,
		); err != nil {
			return nil, fmt.Errorf("insert charge event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(r.ID)
}

func (s *ReceivableStore) GetByID(id string) (*model.Receivable, error) {
	row := s.db.QueryRow(`SELECT `+receivableCols+` FROM receivables WHERE id = ?`, id)
	r, err := scanReceivable(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get receivable: %w", err)
	}
	list := []model.Receivable{*r}
	if err := s.attachCharges(list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// List returns every receivable ordered by due date.
func (s *ReceivableStore) List() ([]model.Receivable, error) {
	return s.query(`SELECT ` + receivableCols + ` FROM receivables ORDER BY due_date, id`)
}

// ListByClient returns one client's history ordered by due date.
func (s *ReceivableStore) ListByClient(clientID string) ([]model.Receivable, error) {
	return s.query(`SELECT `+receivableCols+` FROM receivables WHERE client_id = ? ORDER BY due_date, id`, clientID)
}

// ListOpen returns unpaid receivables ordered by due date.
func (s *ReceivableStore) ListOpen() ([]model.Receivable, error) {
	return s.query(`SELECT ` + receivableCols + ` FROM receivables WHERE paid = 0 ORDER BY due_date, id`)
}

func (s *ReceivableStore) query(q string, args ...any) ([]model.Receivable, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list receivables: %w", err)
	}
	defer rows.Close()

	var out []model.Receivable
	for rows.Next() {
		r, err := scanReceivable(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receivable: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Release the connection before the charge query.
	rows.Close()
	if err := s.attachCharges(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ReceivableStore) attachCharges(rs []model.Receivable) error {
	if len(rs) == 0 {
		return nil
	}
	index := make(map[string]int, len(rs))
	args := make([]any, len(rs))
	for i, r := range rs {
		index[r.ID] = i
		args[i] = r.ID
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(rs)), ",")

	rows, err := s.db.Query(
		`SELECT receivable_id, at, channel FROM charge_events WHERE receivable_id IN (`+placeholders+`) ORDER BY at, id`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("list charge events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			ev model.ChargeEvent
		)
		if err := rows.Scan(&id, &ev.At, &ev.Channel); err != nil {
			return fmt.Errorf("scan charge event: %w", err)
		}
		if i, ok := index[id]; ok {
			rs[i].ChargeHistory = append(rs[i].ChargeHistory, ev)
		}
	}
	return rows.Err()
}

// MarkPaid marks a receivable paid at the given time. Paying an already-paid
// receivable keeps the original payment time. Returns nil if it does not exist.
func (s *ReceivableStore) MarkPaid(id string, at time.Time) (*model.Receivable, error) {
	_, err := s.db.Exec(
		`UPDATE receivables SET paid = 1, paid_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND paid = 0`,
		at.UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("mark receivable paid: %w", err)
	}
	return s.GetByID(id)
}

// Reopen clears the paid state of a receivable.
func (s *ReceivableStore) Reopen(id string) (*model.Receivable, error) {
	_, err := s.db.Exec(
		`UPDATE receivables SET paid = 0, paid_at = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("reopen receivable: %w", err)
	}
	return s.GetByID(id)
}

// AddCharge appends a charge contact to a receivable's history. Returns nil
// if the receivable does not exist.
func (s *ReceivableStore) AddCharge(id string, ev model.ChargeEvent) (*model.Receivable, error) {
	r, err := s.GetByID(id)
	if err != nil || r == nil {
		return r, err
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	if _, err := s.db.Exec(
		`INSERT INTO charge_events (receivable_id, at, channel) VALUES (?, ?, ?)`,
		id, ev.At.UTC(), ev.Channel,
	); err != nil {
		return nil, fmt.Errorf("insert charge event: %w", err)
	}
	if _, err := s.db.Exec(`UPDATE receivables SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("touch receivable: %w", err)
	}
	return s.GetByID(id)
}

func (s *ReceivableStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM charge_events WHERE receivable_id = ?`, id); err != nil {
		return fmt.Errorf("delete charge events: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM receivables WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete receivable: %w", err)
	}
	return nil
}
