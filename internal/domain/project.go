package domain

import "time"

// Project maps a collector-supplied project identifier to a display name.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
