package dto

import (
	"time"

	"github.com/SscSPs/atm_ledger/internal/core/domain"
)

// TimestampLayout is how history timestamps are printed.
const TimestampLayout = "2006-01-02 15:04:05"

// TransactionResponse is one printable history line.
type TransactionResponse struct {
	Timestamp string
	Details   string
}

// ToTransactionResponses converts records to printable lines in the given location, preserving order.
func ToTransactionResponses(records []domain.TransactionRecord, loc *time.Location) []TransactionResponse {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]TransactionResponse, len(records))
	for i, rec := range records {
		out[i] = TransactionResponse{
			Timestamp: rec.Timestamp.In(loc).Format(TimestampLayout),
			Details:   rec.Details,
		}
	}
	return out
}
