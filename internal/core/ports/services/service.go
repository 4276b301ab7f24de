package services

// ServiceContainer holds all service facades needed by the handlers.
type ServiceContainer struct {
	Ledger      LedgerSvcFacade
	Governance  GovernanceSvcFacade
	Participant ParticipantSvcFacade
	Backfill    BackfillSvcFacade
}
