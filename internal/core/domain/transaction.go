package domain

import "time"

// TransactionRecord is one immutable audit entry for an account.
type TransactionRecord struct {
	ID            int64     `json:"id"`            // Store assigned, sequential
	AccountNumber string    `json:"accountNumber"` // FK -> Account.AccountNumber
	Details       string    `json:"details"`
	Timestamp     time.Time `json:"timestamp"` // Store assigned at insert (UTC)
}
