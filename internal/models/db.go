package models

import "time"

// Project is the container files are grouped under. Only the columns the
// upload path reads are mapped.
type Project struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
