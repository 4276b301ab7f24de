package pgsql

import (
	"context"
	"errors"

	"github.com/efficienttutor/tuition_ledger_app/internal/apperrors"
	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
	portsrepo "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/repositories"
	"github.com/efficienttutor/tuition_ledger_app/internal/models"
	"github.com/efficienttutor/tuition_ledger_app/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxParticipantRepository struct {
	BaseRepository
}

// newPgxParticipantRepository creates a new repository for student, parent
// and session template data.
func newPgxParticipantRepository(pool *pgxpool.Pool) portsrepo.ParticipantRepositoryFacade {
	return &PgxParticipantRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxParticipantRepository implements portsrepo.ParticipantRepositoryFacade
var _ portsrepo.ParticipantRepositoryFacade = (*PgxParticipantRepository)(nil)

const studentColumns = `student_id, parent_id, first_name, last_name, grade, hourly_cost, status, created_at, created_by, last_updated_at, last_updated_by`

func scanStudent(row pgx.Row) (models.Student, error) {
	var m models.Student
	err := row.Scan(
		&m.StudentID,
		&m.ParentID,
		&m.FirstName,
		&m.LastName,
		&m.Grade,
		&m.HourlyCost,
		&m.Status,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// FindStudentsByIDs retrieves students keyed by student ID.
func (r *PgxParticipantRepository) FindStudentsByIDs(ctx context.Context, studentIDs []string) (map[string]domain.Student, error) {
	if len(studentIDs) == 0 {
		return map[string]domain.Student{}, nil
	}

	query := `SELECT ` + studentColumns + ` FROM students WHERE student_id = ANY($1);`
	rows, err := r.Pool.Query(ctx, query, studentIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query students by IDs", err)
	}
	defer rows.Close()

	students := make(map[string]domain.Student, len(studentIDs))
	for rows.Next() {
		m, err := scanStudent(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan student row", err)
		}
		students[m.StudentID] = mapping.ToDomainStudent(m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating student rows", err)
	}

	return students, nil
}

// FindStudentsByNames retrieves students keyed by their full display name.
// Names matching more than one student are omitted so the caller can treat
// them as unresolved rather than guessing.
func (r *PgxParticipantRepository) FindStudentsByNames(ctx context.Context, names []string) (map[string]domain.Student, error) {
	if len(names) == 0 {
		return map[string]domain.Student{}, nil
	}

	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE TRIM(CONCAT(first_name, ' ', last_name)) = ANY($1);
	`
	rows, err := r.Pool.Query(ctx, query, names)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query students by names", err)
	}
	defer rows.Close()

	students := make(map[string]domain.Student, len(names))
	ambiguous := make(map[string]struct{})
	for rows.Next() {
		m, err := scanStudent(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan student row", err)
		}
		student := mapping.ToDomainStudent(m)
		name := student.FullName()
		if _, dup := students[name]; dup {
			ambiguous[name] = struct{}{}
			continue
		}
		students[name] = student
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating student rows", err)
	}

	for name := range ambiguous {
		delete(students, name)
	}
	return students, nil
}

// FindParentsByIDs retrieves parents keyed by parent ID.
func (r *PgxParticipantRepository) FindParentsByIDs(ctx context.Context, parentIDs []string) (map[string]domain.Parent, error) {
	if len(parentIDs) == 0 {
		return map[string]domain.Parent{}, nil
	}

	query := `
		SELECT parent_id, first_name, last_name, currency_code, created_at, created_by, last_updated_at, last_updated_by
		FROM parents
		WHERE parent_id = ANY($1);
	`
	rows, err := r.Pool.Query(ctx, query, parentIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query parents by IDs", err)
	}
	defer rows.Close()

	parents := make(map[string]domain.Parent, len(parentIDs))
	for rows.Next() {
		var m models.Parent
		err := rows.Scan(
			&m.ParentID,
			&m.FirstName,
			&m.LastName,
			&m.CurrencyCode,
			&m.CreatedAt,
			&m.CreatedBy,
			&m.LastUpdatedAt,
			&m.LastUpdatedBy,
		)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan parent row", err)
		}
		parents[m.ParentID] = mapping.ToDomainParent(m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating parent rows", err)
	}

	return parents, nil
}

// FindTemplateByID retrieves a session template with its participant set.
func (r *PgxParticipantRepository) FindTemplateByID(ctx context.Context, templateID string) (*domain.SessionTemplate, error) {
	query := `
		SELECT template_id, teacher_id, subject, lesson_index, total_cost, created_at, created_by, last_updated_at, last_updated_by
		FROM session_templates
		WHERE template_id = $1;
	`
	var m models.SessionTemplate
	err := r.Pool.QueryRow(ctx, query, templateID).Scan(
		&m.TemplateID,
		&m.TeacherID,
		&m.Subject,
		&m.LessonIndex,
		&m.TotalCost,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find session template by ID "+templateID, err)
	}

	participantQuery := `
		SELECT student_id FROM template_participants
		WHERE template_id = $1
		ORDER BY student_id;
	`
	rows, err := r.Pool.Query(ctx, participantQuery, templateID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query participants of template "+templateID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var studentID string
		if err := rows.Scan(&studentID); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan template participant row", err)
		}
		m.StudentIDs = append(m.StudentIDs, studentID)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating template participant rows", err)
	}

	domainTemplate := mapping.ToDomainSessionTemplate(m)
	return &domainTemplate, nil
}

// UpsertTemplate inserts the template if its deterministic ID is not present
// yet. Returns true when a row was created.
func (r *PgxParticipantRepository) UpsertTemplate(ctx context.Context, template domain.SessionTemplate) (bool, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer r.Rollback(ctx, tx)

	modelTemplate := mapping.ToModelSessionTemplate(template)
	insertQuery := `
		INSERT INTO session_templates (template_id, teacher_id, subject, lesson_index, total_cost, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (template_id) DO NOTHING;
	`
	tag, err := tx.Exec(ctx, insertQuery,
		modelTemplate.TemplateID,
		modelTemplate.TeacherID,
		modelTemplate.Subject,
		modelTemplate.LessonIndex,
		modelTemplate.TotalCost,
		modelTemplate.CreatedAt,
		modelTemplate.CreatedBy,
		modelTemplate.LastUpdatedAt,
		modelTemplate.LastUpdatedBy,
	)
	if err != nil {
		return false, apperrors.NewAppError(500, "failed to upsert session template "+modelTemplate.TemplateID, err)
	}
	created := tag.RowsAffected() > 0

	if created {
		batch := &pgx.Batch{}
		participantQuery := `
			INSERT INTO template_participants (template_id, student_id)
			VALUES ($1, $2);
		`
		for _, studentID := range modelTemplate.StudentIDs {
			batch.Queue(participantQuery, modelTemplate.TemplateID, studentID)
		}
		br := tx.SendBatch(ctx, batch)
		if err := br.Close(); err != nil {
			return false, apperrors.NewAppError(500, "failed to insert participants of template "+modelTemplate.TemplateID, err)
		}
	}

	if err := r.Commit(ctx, tx); err != nil {
		return false, err
	}
	return created, nil
}
