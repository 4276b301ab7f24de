package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/efficienttutor/tuition_ledger_app/internal/apperrors"
	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
	portsrepo "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/services"
	"github.com/efficienttutor/tuition_ledger_app/internal/middleware"
)

// participantService resolves attendees to student records with their
// responsible payers.
type participantService struct {
	participantRepo portsrepo.ParticipantRepositoryFacade
}

// NewParticipantService creates a new ParticipantService.
func NewParticipantService(participantRepo portsrepo.ParticipantRepositoryFacade) portssvc.ParticipantSvcFacade {
	return &participantService{participantRepo: participantRepo}
}

var _ portssvc.ParticipantSvcFacade = (*participantService)(nil)

// ResolveByIDs resolves explicit student IDs.
// Implements portssvc.ParticipantSvcFacade
func (s *participantService) ResolveByIDs(ctx context.Context, studentIDs []string) (*portssvc.AttendeeResolution, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if len(studentIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one attendee is required", apperrors.ErrValidation)
	}

	studentsMap, err := s.participantRepo.FindStudentsByIDs(ctx, studentIDs)
	if err != nil {
		logger.Error("Failed to fetch students for resolution", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to fetch students: %w", err)
	}

	resolution := &portssvc.AttendeeResolution{
		Students: make([]domain.Student, 0, len(studentIDs)),
		PayerOf:  make(map[string]string, len(studentIDs)),
	}
	for _, id := range studentIDs {
		student, found := studentsMap[id]
		if !found {
			return nil, fmt.Errorf("%w: unknown student %s", apperrors.ErrValidation, id)
		}
		resolution.Students = append(resolution.Students, student)
		resolution.PayerOf[student.StudentID] = student.ParentID
	}
	return resolution, nil
}

// ResolveByTemplate resolves the participant set of a session template.
// Implements portssvc.ParticipantSvcFacade
func (s *participantService) ResolveByTemplate(ctx context.Context, templateID string) (*portssvc.AttendeeResolution, *domain.SessionTemplate, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	template, err := s.participantRepo.FindTemplateByID(ctx, templateID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to find session template", slog.String("error", err.Error()), slog.String("template_id", templateID))
		}
		return nil, nil, fmt.Errorf("failed to find session template %s: %w", templateID, err)
	}

	resolution, err := s.ResolveByIDs(ctx, template.StudentIDs)
	if err != nil {
		return nil, nil, err
	}
	return resolution, template, nil
}

// ResolveByNames resolves free-text attendee names. Used only by the
// backfill fallback; results are marked low confidence.
// Implements portssvc.ParticipantSvcFacade
func (s *participantService) ResolveByNames(ctx context.Context, names []string) (*portssvc.AttendeeResolution, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if len(names) == 0 {
		return nil, fmt.Errorf("%w: at least one attendee name is required", apperrors.ErrValidation)
	}

	studentsMap, err := s.participantRepo.FindStudentsByNames(ctx, names)
	if err != nil {
		logger.Error("Failed to fetch students by name", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to fetch students by name: %w", err)
	}

	resolution := &portssvc.AttendeeResolution{
		Students:      make([]domain.Student, 0, len(names)),
		PayerOf:       make(map[string]string, len(names)),
		LowConfidence: true,
	}
	for _, name := range names {
		student, found := studentsMap[name]
		if !found {
			return nil, fmt.Errorf("%w: no unambiguous student named %q", apperrors.ErrValidation, name)
		}
		resolution.Students = append(resolution.Students, student)
		resolution.PayerOf[student.StudentID] = student.ParentID
	}
	return resolution, nil
}
