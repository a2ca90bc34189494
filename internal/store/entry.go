package store

import "time"

// Entry is the index record of one saved report.
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	Rows      int       `json:"rows"`
	Columns   int       `json:"columns"`
	Warnings  int       `json:"warnings"`
	CreatedAt time.Time `json:"created_at"`
}
