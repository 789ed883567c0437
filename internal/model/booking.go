package model

import "time"

// PaymentStatus tracks whether a booking has been paid for.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// BookedSession links a student to a study session. At most one booking may
// exist per (SessionID, StudentEmail) pair; the storage layer enforces this
// with a unique index so concurrent double-booking loses the race.
//
// SessionID is a weak reference: the session may be deleted afterwards, in
// which case the access gate denies the dangling booking.
type BookedSession struct {
	ID            string        `json:"id"`
	SessionID     string        `json:"sessionId"`
	SessionTitle  string        `json:"sessionTitle"`
	StudentEmail  string        `json:"studentEmail"`
	TutorEmail    string        `json:"tutorEmail"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	BookedAt      time.Time     `json:"bookedAt"`
}
