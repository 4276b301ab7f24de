package services

import (
	"context"

	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
)

// AttendeeResolution is the outcome of resolving a set of attendees to
// student records with their responsible payers.
type AttendeeResolution struct {
	Students []domain.Student
	// PayerOf maps student ID to the parent responsible for that student's
	// share.
	PayerOf map[string]string
	// LowConfidence is true when resolution fell back to name matching.
	LowConfidence bool
}

// ParticipantSvcFacade defines attendee and template resolution used by the
// ledger and backfill services.
type ParticipantSvcFacade interface {
	// ResolveByIDs resolves explicit student IDs. Unknown IDs fail with
	// apperrors.ErrNotFound.
	ResolveByIDs(ctx context.Context, studentIDs []string) (*AttendeeResolution, error)

	// ResolveByTemplate resolves the participant set of a session template.
	ResolveByTemplate(ctx context.Context, templateID string) (*AttendeeResolution, *domain.SessionTemplate, error)

	// ResolveByNames resolves free-text attendee names. Matches are marked
	// low confidence; unknown or ambiguous names fail with
	// apperrors.ErrNotFound.
	ResolveByNames(ctx context.Context, names []string) (*AttendeeResolution, error)
}
