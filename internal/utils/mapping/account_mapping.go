package mapping

import (
	"fmt"

	"github.com/SscSPs/atm_ledger/internal/core/domain"
	"github.com/SscSPs/atm_ledger/internal/models"
	"github.com/shopspring/decimal"
)

// ToModelAccount converts a domain Account to a model Account
func ToModelAccount(d domain.Account) models.Account {
	return models.Account{
		AccountNumber: d.AccountNumber,
		PIN:           d.PIN,
		Name:          d.Name,
		Balance:       d.Balance.String(),
	}
}

// ToDomainAccount converts a model Account to a domain Account.
// It fails if the stored balance is not a decimal.
func ToDomainAccount(m models.Account) (domain.Account, error) {
	balance, err := decimal.NewFromString(m.Balance)
	if err != nil {
		return domain.Account{}, fmt.Errorf("corrupt balance %q for account %s: %w", m.Balance, m.AccountNumber, err)
	}
	return domain.Account{
		AccountNumber: m.AccountNumber,
		PIN:           m.PIN,
		Name:          m.Name,
		Balance:       balance,
	}, nil
}
