package services

import (
	"github.com/efficienttutor/tuition_ledger_app/internal/core/allocation"
	portsrepo "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/services"
)

// NewServiceContainer creates a new service container with properly
// initialized dependencies. Allocation exception rules come from
// configuration and are shared by the ledger and backfill services so both
// split costs identically.
func NewServiceContainer(repos portsrepo.RepositoryProvider, rules []allocation.Rule) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Participant resolution first since the ledger and backfill depend on it.
	container.Participant = NewParticipantService(repos.ParticipantRepo)

	container.Ledger = NewLedgerService(repos.EntryRepo, container.Participant, repos.ParticipantRepo, rules)
	container.Governance = NewGovernanceService(repos.AdminRepo)
	container.Backfill = NewBackfillService(repos.EntryRepo, container.Participant, repos.ParticipantRepo, rules)

	return container
}
