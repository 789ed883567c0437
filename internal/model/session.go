package model

import "time"

// SessionStatus is the approval state of a study session.
//
// The only reachable transitions are:
//
//	∅ → pending          (tutor creates; client-supplied status is ignored)
//	pending → approved   (admin approves, setting the fee)
//	pending → rejected   (admin rejects with reason + feedback)
//	rejected → pending   (tutor resends for approval)
type SessionStatus string

const (
	StatusPending  SessionStatus = "pending"
	StatusApproved SessionStatus = "approved"
	StatusRejected SessionStatus = "rejected"
)

// FreeFee is the sentinel fee value for sessions that cost nothing.
// The access gate compares against it verbatim.
const FreeFee = "Free"

// Review is one student review on a session. Reviews are append-only and
// keep submission order.
type Review struct {
	StudentName string  `json:"studentName"`
	ReviewText  string  `json:"reviewText"`
	Rating      float64 `json:"rating"`
}

// StudySession is a tutoring session proposed by a tutor and moderated by
// an admin. TutorEmail is immutable after creation.
//
// Fee is a string because the upstream contract allows the "Free" sentinel
// alongside numeric amounts. It defaults to "0" on creation.
//
// AverageRating is derived: round(mean(reviews.rating), 1 decimal), 0 when
// there are no reviews. It is recomputed atomically on every review append.
type StudySession struct {
	ID                    string        `json:"id"`
	Title                 string        `json:"title"`
	TutorName             string        `json:"tutorName"`
	TutorEmail            string        `json:"tutorEmail"`
	Description           string        `json:"description"`
	RegistrationStartDate time.Time     `json:"registrationStartDate"`
	RegistrationEndDate   time.Time     `json:"registrationEndDate"`
	ClassStartDate        time.Time     `json:"classStartDate"`
	ClassEndDate          time.Time     `json:"classEndDate"`
	Duration              string        `json:"duration"`
	Fee                   string        `json:"fee"`
	Status                SessionStatus `json:"status"`
	RejectionReason       string        `json:"rejectionReason,omitempty"`
	RejectionFeedback     string        `json:"rejectionFeedback,omitempty"`
	Reviews               []Review      `json:"reviews"`
	AverageRating         float64       `json:"averageRating"`
	CreatedAt             time.Time     `json:"createdAt"`
}

// Free reports whether the session is free to access once booked.
func (s *StudySession) Free() bool {
	return s.Fee == FreeFee
}
