package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/efficienttutor/tuition_ledger_app/internal/apperrors"
	"github.com/efficienttutor/tuition_ledger_app/internal/core/allocation"
	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
	portsrepo "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/services"
	"github.com/efficienttutor/tuition_ledger_app/internal/dto"
	"github.com/efficienttutor/tuition_ledger_app/internal/middleware"
)

// Namespace for deterministic backfill identifiers. Fixed forever: changing
// it would re-derive different IDs for the same historical records and break
// idempotency across runs.
var backfillNamespace = uuid.MustParse("3f1a6c2e-8b4d-4e0a-9f3b-7c5d2a1e6b90")

// backfillService rebuilds ledger history from a snapshot of pre-ledger
// records. Every derived entry ID is a pure function of the record's natural
// key, so re-running the same snapshot inserts nothing new.
type backfillService struct {
	entryRepo       portsrepo.EntryRepositoryWithTx
	participantSvc  portssvc.ParticipantSvcFacade
	participantRepo portsrepo.ParticipantRepositoryFacade
	rules           []allocation.Rule
}

// NewBackfillService creates a new BackfillService.
func NewBackfillService(entryRepo portsrepo.EntryRepositoryWithTx, participantSvc portssvc.ParticipantSvcFacade, participantRepo portsrepo.ParticipantRepositoryFacade, rules []allocation.Rule) portssvc.BackfillSvcFacade {
	return &backfillService{
		entryRepo:       entryRepo,
		participantSvc:  participantSvc,
		participantRepo: participantRepo,
		rules:           rules,
	}
}

var _ portssvc.BackfillSvcFacade = (*backfillService)(nil)

// TemplateIDFor derives the deterministic identifier of a session template
// from its natural key. Student IDs are sorted so attendance order in the
// source data never changes the result.
func TemplateIDFor(subject, teacherID string, lessonIndex int, studentIDs []string) string {
	sorted := append([]string(nil), studentIDs...)
	sort.Strings(sorted)
	key := strings.Join([]string{
		"template",
		subject,
		teacherID,
		strconv.Itoa(lessonIndex),
		strings.Join(sorted, ","),
	}, "|")
	return uuid.NewSHA1(backfillNamespace, []byte(key)).String()
}

// sessionEntryIDFor derives the deterministic identifier of a backfilled
// session log.
func sessionEntryIDFor(subject, teacherID string, startTime time.Time, studentIDs []string) string {
	sorted := append([]string(nil), studentIDs...)
	sort.Strings(sorted)
	key := strings.Join([]string{
		"session",
		subject,
		teacherID,
		startTime.UTC().Format(time.RFC3339),
		strings.Join(sorted, ","),
	}, "|")
	return uuid.NewSHA1(backfillNamespace, []byte(key)).String()
}

// paymentEntryIDFor derives the deterministic identifier of a backfilled
// payment log.
func paymentEntryIDFor(parentID, amount string, paymentDate time.Time) string {
	key := strings.Join([]string{
		"payment",
		parentID,
		amount,
		paymentDate.UTC().Format(time.RFC3339),
	}, "|")
	return uuid.NewSHA1(backfillNamespace, []byte(key)).String()
}

// resolveLegacyAttendees falls through the three resolution strategies:
// explicit student IDs, template participants, then name matching.
func (s *backfillService) resolveLegacyAttendees(ctx context.Context, record dto.LegacySessionRecord) (*portssvc.AttendeeResolution, *string, string, error) {
	if len(record.AttendeeIDs) > 0 {
		resolution, err := s.participantSvc.ResolveByIDs(ctx, record.AttendeeIDs)
		return resolution, nil, dto.ResolutionExplicitIDs, err
	}

	if record.TemplateKey != nil {
		templateID := TemplateIDFor(record.TemplateKey.Subject, record.TemplateKey.TeacherID, record.TemplateKey.LessonIndex, record.TemplateKey.StudentIDs)
		resolution, err := s.participantSvc.ResolveByIDs(ctx, record.TemplateKey.StudentIDs)
		return resolution, &templateID, dto.ResolutionTemplate, err
	}

	if len(record.AttendeeNames) > 0 {
		resolution, err := s.participantSvc.ResolveByNames(ctx, record.AttendeeNames)
		return resolution, nil, dto.ResolutionNameMatch, err
	}

	return nil, nil, "", fmt.Errorf("%w: record has no attendee IDs, template key or attendee names", apperrors.ErrValidation)
}

// ensureTemplate upserts the session template a legacy record references.
func (s *backfillService) ensureTemplate(ctx context.Context, key dto.TemplateKey, templateID, runBy string, now time.Time) (bool, error) {
	sorted := append([]string(nil), key.StudentIDs...)
	sort.Strings(sorted)
	template := domain.SessionTemplate{
		TemplateID:  templateID,
		TeacherID:   key.TeacherID,
		Subject:     key.Subject,
		LessonIndex: key.LessonIndex,
		StudentIDs:  sorted,
		TotalCost:   key.TotalCost,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     runBy,
			LastUpdatedAt: now,
			LastUpdatedBy: runBy,
		},
	}
	return s.participantRepo.UpsertTemplate(ctx, template)
}

// backfillSession processes one legacy session record. Returns the number of
// charges written (zero when the entry already existed or is uncosted).
func (s *backfillService) backfillSession(ctx context.Context, record dto.LegacySessionRecord, runBy string, now time.Time, report *dto.BackfillReport) (dto.BackfillRecordResult, int, error) {
	resolution, templateID, strategy, err := s.resolveLegacyAttendees(ctx, record)
	if err != nil {
		return dto.BackfillRecordResult{}, 0, err
	}

	if record.TemplateKey != nil && templateID != nil {
		created, err := s.ensureTemplate(ctx, *record.TemplateKey, *templateID, runBy, now)
		if err != nil {
			return dto.BackfillRecordResult{}, 0, fmt.Errorf("failed to upsert template: %w", err)
		}
		if created {
			report.TemplatesCreated++
		}
	}

	studentIDs := make([]string, len(resolution.Students))
	for i, student := range resolution.Students {
		studentIDs[i] = student.StudentID
	}
	entryID := sessionEntryIDFor(record.Subject, record.TeacherID, record.StartTime, studentIDs)

	result := dto.BackfillRecordResult{
		LegacyID:      record.LegacyID,
		EntryID:       entryID,
		Resolution:    strategy,
		LowConfidence: resolution.LowConfidence,
	}

	if _, err := s.entryRepo.FindEntryByID(ctx, entryID); err == nil {
		result.Skipped = true
		return result, 0, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return dto.BackfillRecordResult{}, 0, fmt.Errorf("failed to probe entry %s: %w", entryID, err)
	}

	payerID := resolution.PayerOf[resolution.Students[0].StudentID]
	parents, err := s.participantRepo.FindParentsByIDs(ctx, []string{payerID})
	if err != nil {
		return dto.BackfillRecordResult{}, 0, fmt.Errorf("failed to fetch payer: %w", err)
	}
	payer, found := parents[payerID]
	if !found {
		return dto.BackfillRecordResult{}, 0, fmt.Errorf("%w: parent %s", apperrors.ErrNotFound, payerID)
	}

	createType := domain.CreateCustom
	if templateID != nil {
		createType = domain.CreateScheduled
	}
	startTime := record.StartTime
	endTime := record.EndTime
	entry := domain.LedgerEntry{
		EntryID:      entryID,
		Kind:         domain.KindSession,
		PayerID:      payerID,
		Amount:       record.TotalCost,
		CurrencyCode: payer.CurrencyCode,
		Status:       domain.StatusActive,
		TeacherID:    record.TeacherID,
		Subject:      record.Subject,
		StartTime:    &startTime,
		EndTime:      &endTime,
		TemplateID:   templateID,
		LessonIndex:  record.LessonIndex,
		CreateType:   createType,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     runBy,
			LastUpdatedAt: now,
			LastUpdatedBy: runBy,
		},
	}

	var charges []domain.Charge
	if record.TotalCost != nil {
		shares, err := allocation.Allocate(*record.TotalCost, studentIDs, resolution.PayerOf, s.rules)
		if err != nil {
			return dto.BackfillRecordResult{}, 0, err
		}
		charges = make([]domain.Charge, len(shares))
		for i, share := range shares {
			charges[i] = domain.Charge{
				EntryID:   entryID,
				StudentID: share.StudentID,
				ParentID:  share.ParentID,
				Amount:    share.Amount,
				AuditFields: domain.AuditFields{
					CreatedAt:     now,
					CreatedBy:     runBy,
					LastUpdatedAt: now,
					LastUpdatedBy: runBy,
				},
			}
		}
	}

	if err := s.entryRepo.SaveEntry(ctx, entry, charges); err != nil {
		return dto.BackfillRecordResult{}, 0, fmt.Errorf("failed to save backfilled session: %w", err)
	}
	return result, len(charges), nil
}

// backfillPayment processes one legacy payment record.
func (s *backfillService) backfillPayment(ctx context.Context, record dto.LegacyPaymentRecord, runBy string, now time.Time) (dto.BackfillRecordResult, error) {
	entryID := paymentEntryIDFor(record.ParentID, record.Amount.StringFixed(2), record.PaymentDate)
	result := dto.BackfillRecordResult{LegacyID: record.LegacyID, EntryID: entryID}

	if _, err := s.entryRepo.FindEntryByID(ctx, entryID); err == nil {
		result.Skipped = true
		return result, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return dto.BackfillRecordResult{}, fmt.Errorf("failed to probe entry %s: %w", entryID, err)
	}

	parents, err := s.participantRepo.FindParentsByIDs(ctx, []string{record.ParentID})
	if err != nil {
		return dto.BackfillRecordResult{}, fmt.Errorf("failed to fetch payer: %w", err)
	}
	payer, found := parents[record.ParentID]
	if !found {
		return dto.BackfillRecordResult{}, fmt.Errorf("%w: parent %s", apperrors.ErrNotFound, record.ParentID)
	}

	amount := record.Amount
	paymentDate := record.PaymentDate
	entry := domain.LedgerEntry{
		EntryID:      entryID,
		Kind:         domain.KindPayment,
		PayerID:      record.ParentID,
		Amount:       &amount,
		CurrencyCode: payer.CurrencyCode,
		Status:       domain.StatusActive,
		Notes:        record.Notes,
		StartTime:    &paymentDate,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     runBy,
			LastUpdatedAt: now,
			LastUpdatedBy: runBy,
		},
	}

	if err := s.entryRepo.SaveEntry(ctx, entry, nil); err != nil {
		return dto.BackfillRecordResult{}, fmt.Errorf("failed to save backfilled payment: %w", err)
	}
	return result, nil
}

// Run processes the snapshot record by record, then re-checks ledger
// integrity. A record that fails is reported and skipped; it never aborts
// the rest of the run.
// Implements portssvc.BackfillSvcFacade
func (s *backfillService) Run(ctx context.Context, snapshot dto.BackfillSnapshot, runBy string) (*dto.BackfillReport, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now().UTC()
	report := &dto.BackfillReport{}

	for _, record := range snapshot.Sessions {
		result, chargeCount, err := s.backfillSession(ctx, record, runBy, now, report)
		if err != nil {
			logger.Warn("Backfill session record failed",
				slog.String("legacy_id", record.LegacyID), slog.String("error", err.Error()))
			report.Records = append(report.Records, dto.BackfillRecordResult{
				LegacyID: record.LegacyID,
				Error:    err.Error(),
			})
			continue
		}
		if !result.Skipped {
			report.EntriesCreated++
			report.ChargesCreated += chargeCount
		}
		if result.LowConfidence {
			report.LowConfidence = append(report.LowConfidence, result.EntryID)
		}
		report.Records = append(report.Records, result)
	}

	for _, record := range snapshot.Payments {
		result, err := s.backfillPayment(ctx, record, runBy, now)
		if err != nil {
			logger.Warn("Backfill payment record failed",
				slog.String("legacy_id", record.LegacyID), slog.String("error", err.Error()))
			report.Records = append(report.Records, dto.BackfillRecordResult{
				LegacyID: record.LegacyID,
				Error:    err.Error(),
			})
			continue
		}
		if !result.Skipped {
			report.EntriesCreated++
		}
		report.Records = append(report.Records, result)
	}

	// Post-run integrity sweep. Findings are reported, never dropped.
	orphans, err := s.entryRepo.OrphanedCharges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for orphaned charges: %w", err)
	}
	seen := make(map[string]struct{}, len(orphans))
	for _, charge := range orphans {
		if _, ok := seen[charge.EntryID]; ok {
			continue
		}
		seen[charge.EntryID] = struct{}{}
		report.Orphans = append(report.Orphans, charge.EntryID)
	}

	mismatches, err := s.entryRepo.ChargeSumMismatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for charge sum mismatches: %w", err)
	}
	for _, finding := range mismatches {
		report.SumMismatches = append(report.SumMismatches, finding.EntryID)
	}

	logger.Info("Backfill run finished",
		slog.Int("entries_created", report.EntriesCreated),
		slog.Int("charges_created", report.ChargesCreated),
		slog.Int("templates_created", report.TemplatesCreated),
		slog.Int("orphans", len(report.Orphans)),
		slog.Int("sum_mismatches", len(report.SumMismatches)))
	return report, nil
}
