package model

import "time"

// Material is a study resource a tutor attaches to one of their sessions.
// Visible to the owning tutor and to admins unconditionally; visible to a
// student only when the access gate grants them the session.
type Material struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	TutorEmail string    `json:"tutorEmail"`
	Title      string    `json:"title"`
	Link       string    `json:"link"`
	CreatedAt  time.Time `json:"createdAt"`
}
