package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dukerupert/clientbook/internal/model"
	"github.com/dukerupert/clientbook/internal/recurrence"
	"github.com/google/uuid"
)

type ClientStore struct {
	db *sql.DB
}

func NewClientStore(db *sql.DB) *ClientStore {
	return &ClientStore{db: db}
}

const clientCols = `id, name, location, weekdays, default_time, weekday_times, created_at, updated_at`

func scanClient(scanner interface{ Scan(...any) error }) (*model.Client, error) {
	var (
		c            model.Client
		weekdays     string
		weekdayTimes string
	)
	err := scanner.Scan(&c.ID, &c.Name, &c.Location, &weekdays, &c.DefaultTime, &weekdayTimes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(weekdays), &c.Weekdays); err != nil {
		return nil, fmt.Errorf("decode weekdays for client %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(weekdayTimes), &c.WeekdayTimes); err != nil {
		return nil, fmt.Errorf("decode weekday times for client %s: %w", c.ID, err)
	}
	return &c, nil
}

// encodeSchedule normalizes the weekday set and drops blank per-day times.
func encodeSchedule(c model.Client) (weekdays, weekdayTimes string, err error) {
	days := recurrence.NormalizeWeekdays(c.Weekdays)
	if days == nil {
		days = []string{}
	}
	times := make(map[string]string, len(c.WeekdayTimes))
	for label, t := range c.WeekdayTimes {
		wd, ok := recurrence.ParseWeekday(label)
		if !ok || strings.TrimSpace(t) == "" {
			continue
		}
		times[recurrence.Label(wd)] = strings.TrimSpace(t)
	}

	wb, err := json.Marshal(days)
	if err != nil {
		return "", "", fmt.Errorf("encode weekdays: %w", err)
	}
	tb, err := json.Marshal(times)
	if err != nil {
		return "", "", fmt.Errorf("encode weekday times: %w", err)
	}
	return string(wb), string(tb), nil
}

// Create inserts a client. An empty ID is replaced with a new UUID.
func (s *ClientStore) Create(c model.Client) (*model.Client, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	weekdays, times, err := encodeSchedule(c)
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(
		`INSERT INTO clients (id, name, location, weekdays, default_time, weekday_times) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, strings.TrimSpace(c.Name), c.Location, weekdays, strings.TrimSpace(c.DefaultTime), times,
	)
	if err != nil {
		return nil, fmt.Errorf("insert client: %w", err)
	}
	return s.GetByID(c.ID)
}

func (s *ClientStore) GetByID(id string) (*model.Client, error) {
	row := s.db.QueryRow(`SELECT `+clientCols+` FROM clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

// List returns all clients ordered by name.
func (s *ClientStore) List() ([]model.Client, error) {
	rows, err := s.db.Query(`SELECT ` + clientCols + ` FROM clients ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

// Update replaces a client's definition. Returns nil if the client does not exist.
func (s *ClientStore) Update(c model.Client) (*model.Client, error) {
	weekdays, times, err := encodeSchedule(c)
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(
		`UPDATE clients SET name = ?, location = ?, weekdays = ?, default_time = ?, weekday_times = ? WHERE id = ?`,
		strings.TrimSpace(c.Name), c.Location, weekdays, strings.TrimSpace(c.DefaultTime), times, c.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	return s.GetByID(c.ID)
}

func (s *ClientStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	return nil
}

// Names maps client ids to display names.
func (s *ClientStore) Names() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT id, name FROM clients`)
	if err != nil {
		return nil, fmt.Errorf("list client names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan client name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}
