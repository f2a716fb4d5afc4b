package domain

import "time"

// PaymentResult is the outcome of an accepted payment submission.
type PaymentResult struct {
	TransactionID string
	Amount        any
	ClientID      string
	Timestamp     time.Time
}
