package models

// Transaction is the row stored in the sqlite transactions table.
type Transaction struct {
	ID            int64  `db:"id"`
	AccountNumber string `db:"account_number"`
	Details       string `db:"details"`
	Timestamp     int64  `db:"timestamp"` // Unix nanoseconds, UTC
}
