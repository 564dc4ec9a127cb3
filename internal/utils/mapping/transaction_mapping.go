package mapping

import (
	"time"

	"github.com/SscSPs/atm_ledger/internal/core/domain"
	"github.com/SscSPs/atm_ledger/internal/models"
)

// ToModelTransaction converts a domain TransactionRecord to a model Transaction
func ToModelTransaction(d domain.TransactionRecord) models.Transaction {
	return models.Transaction{
		ID:            d.ID,
		AccountNumber: d.AccountNumber,
		Details:       d.Details,
		Timestamp:     d.Timestamp.UTC().UnixNano(),
	}
}

// ToDomainTransactionRecord converts a model Transaction to a domain TransactionRecord
func ToDomainTransactionRecord(m models.Transaction) domain.TransactionRecord {
	return domain.TransactionRecord{
		ID:            m.ID,
		AccountNumber: m.AccountNumber,
		Details:       m.Details,
		Timestamp:     time.Unix(0, m.Timestamp).UTC(),
	}
}
