package models

// Account is the row stored in the sqlite accounts table.
// Balance is kept as decimal text so no precision is lost to REAL affinity.
type Account struct {
	AccountNumber string `db:"account_number"`
	PIN           string `db:"pin"`
	Name          string `db:"name"`
	Balance       string `db:"balance"`
}
