package pgsql

import (
	portsrepo "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	entryRepo := newPgxEntryRepository(dbPool)
	adminRepo := newPgxAdminRepository(dbPool)
	participantRepo := newPgxParticipantRepository(dbPool)

	return portsrepo.RepositoryProvider{
		EntryRepo:       entryRepo,
		AdminRepo:       adminRepo,
		ParticipantRepo: participantRepo,
	}
}
