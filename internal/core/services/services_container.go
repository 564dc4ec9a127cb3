package services

import (
	portsrepo "github.com/SscSPs/atm_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/atm_ledger/internal/core/ports/services"
	"github.com/SscSPs/atm_ledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	return &portssvc.ServiceContainer{
		ATM: NewATMService(
			repos.Ledger,
			WithAccountNumberAttempts(cfg.AccountNumberAttempts),
			WithAccountNumberLength(cfg.AccountNumberLength),
		),
	}
}
