package model

import "time"

// Transaction is one append-only ledger entry for a completed payment.
// Entries are never mutated, only inserted and listed newest-first.
type Transaction struct {
	ID           string    `json:"id"`
	StudentEmail string    `json:"studentEmail"`
	SessionID    string    `json:"sessionId"`
	SessionTitle string    `json:"sessionTitle"`
	Amount       string    `json:"amount"`
	PaymentRef   string    `json:"paymentRef"` // payment-processor intent reference
	Date         time.Time `json:"date"`
}
