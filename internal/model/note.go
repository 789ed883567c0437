package model

import "time"

// Note is a private study note. Fully owned by its creator; nobody else can
// read or mutate it.
type Note struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}
