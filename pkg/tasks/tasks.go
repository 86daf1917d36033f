// Package tasks defines the messages that are sent to Kafka.
package tasks

import "time"

// SearchEvent records one catalog search so it can be written to search history off the request path.
type SearchEvent struct {
	EventID      string    `json:"event_id"`
	UserID       *uint     `json:"user_id,omitempty"`
	Query        string    `json:"query"`
	Category     string    `json:"category,omitempty"`
	Language     string    `json:"language"`
	ResultsCount int       `json:"results_count"`
	SearchedAt   time.Time `json:"searched_at"`
}
