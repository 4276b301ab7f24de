package repositories

import (
	"context"

	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
)

// ParticipantReader defines read operations for students, parents and
// session templates.
type ParticipantReader interface {
	// FindStudentsByIDs retrieves students keyed by student ID. Missing IDs
	// are simply absent from the map.
	FindStudentsByIDs(ctx context.Context, studentIDs []string) (map[string]domain.Student, error)

	// FindStudentsByNames retrieves students keyed by their full display
	// name. Used by the backfill name-matching fallback; ambiguous names
	// (two students sharing one name) are omitted.
	FindStudentsByNames(ctx context.Context, names []string) (map[string]domain.Student, error)

	// FindParentsByIDs retrieves parents keyed by parent ID.
	FindParentsByIDs(ctx context.Context, parentIDs []string) (map[string]domain.Parent, error)

	// FindTemplateByID retrieves a session template with its participant set.
	FindTemplateByID(ctx context.Context, templateID string) (*domain.SessionTemplate, error)
}

// TemplateWriter defines write operations for session templates.
type TemplateWriter interface {
	// UpsertTemplate inserts the template if its (deterministic) ID is not
	// present yet. Returns true when a row was created.
	UpsertTemplate(ctx context.Context, template domain.SessionTemplate) (bool, error)
}

// ParticipantRepositoryFacade combines participant repository interfaces.
type ParticipantRepositoryFacade interface {
	ParticipantReader
	TemplateWriter
}
