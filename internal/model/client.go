package model

import "time"

// Client is a client record together with its recurring weekly attendance pattern.
type Client struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	Weekdays    []string `json:"weekdays"`
	DefaultTime string   `json:"default_time"`
	// WeekdayTimes overrides DefaultTime for individual weekday labels.
	WeekdayTimes map[string]string `json:"weekday_times,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
