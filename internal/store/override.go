package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/clientbook/internal/model"
	"github.com/dukerupert/clientbook/internal/override"
	"github.com/google/uuid"
)

// OverrideStore persists raw override documents. Each document id maps to
// one row; writing a document again replaces it under a new sequence number.
type OverrideStore struct {
	db *sql.DB
}

func NewOverrideStore(db *sql.DB) *OverrideStore {
	return &OverrideStore{db: db}
}

// Put stores w as a confirmed write and returns it with its id and sequence
// number filled in.
func (s *OverrideStore) Put(w model.OverrideWrite) (model.OverrideWrite, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.UpdatedAt.IsZero() {
		w.UpdatedAt = time.Now().UTC()
	}
	w.HasPendingWrites = false
	w.Seq = 0

	var dateKey, clientID string
	if id, ok := override.IdentityOf(w); ok {
		dateKey, clientID = id.DateKey, id.ClientID
	}

	body, err := json.Marshal(w)
	if err != nil {
		return w, fmt.Errorf("encode override write: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT OR REPLACE INTO override_writes (doc_id, date_key, client_id, body, updated_at) VALUES (?, ?, ?, ?, ?)`,
		w.ID, dateKey, clientID, string(body), w.UpdatedAt.UTC(),
	)
	if err != nil {
		return w, fmt.Errorf("put override write: %w", err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return w, fmt.Errorf("last insert id: %w", err)
	}
	w.Seq = seq
	return w, nil
}

func scanOverrideRows(rows *sql.Rows) ([]model.OverrideWrite, error) {
	var writes []model.OverrideWrite
	for rows.Next() {
		var (
			seq  int64
			body string
		)
		if err := rows.Scan(&seq, &body); err != nil {
			return nil, fmt.Errorf("scan override write: %w", err)
		}
		var w model.OverrideWrite
		if err := json.Unmarshal([]byte(body), &w); err != nil {
			return nil, fmt.Errorf("decode override write %d: %w", seq, err)
		}
		w.Seq = seq
		writes = append(writes, w)
	}
	return writes, rows.Err()
}

// ListSince returns writes with a sequence number above seq, oldest first.
// A limit of zero or less means no limit.
func (s *OverrideStore) ListSince(seq int64, limit int) ([]model.OverrideWrite, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT seq, body FROM override_writes WHERE seq > ? ORDER BY seq LIMIT ?`, seq, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list override writes since %d: %w", seq, err)
	}
	defer rows.Close()
	return scanOverrideRows(rows)
}

// ListByDateRange returns writes whose date key falls in [from, to].
func (s *OverrideStore) ListByDateRange(from, to string) ([]model.OverrideWrite, error) {
	rows, err := s.db.Query(
		`SELECT seq, body FROM override_writes WHERE date_key >= ? AND date_key <= ? ORDER BY seq`, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list override writes by date: %w", err)
	}
	defer rows.Close()
	return scanOverrideRows(rows)
}

// DeleteBefore retires writes dated before dateKey and returns how many were
// removed.
func (s *OverrideStore) DeleteBefore(dateKey string) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM override_writes WHERE date_key < ?`, dateKey)
	if err != nil {
		return 0, fmt.Errorf("delete override writes: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
