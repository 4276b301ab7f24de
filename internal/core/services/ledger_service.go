package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/efficienttutor/tuition_ledger_app/internal/apperrors"
	"github.com/efficienttutor/tuition_ledger_app/internal/core/allocation"
	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
	portsrepo "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/services"
	"github.com/efficienttutor/tuition_ledger_app/internal/dto"
	"github.com/efficienttutor/tuition_ledger_app/internal/middleware"
	"github.com/shopspring/decimal"
)

var (
	ErrEndBeforeStart    = errors.New("session end time is not after its start time")
	ErrTemplateRequired  = errors.New("scheduled sessions require a template ID")
	ErrTeacherRequired   = errors.New("custom sessions require a teacher ID")
	ErrSubjectRequired   = errors.New("custom sessions require a subject")
	ErrAttendeesRequired = errors.New("custom sessions require at least one attendee")
	ErrNonPositiveAmount = errors.New("payment amount must be positive")
	ErrKindMismatch      = errors.New("correction must keep the kind of the entry it replaces")
)

// ledgerService provides the core append-only ledger operations: recording
// session and payment logs, voiding, corrections and balance reads.
type ledgerService struct {
	entryRepo       portsrepo.EntryRepositoryWithTx
	participantSvc  portssvc.ParticipantSvcFacade
	participantRepo portsrepo.ParticipantRepositoryFacade
	rules           []allocation.Rule
}

// NewLedgerService creates a new LedgerService. Exception rules are fixed at
// construction; they come from configuration, not from requests.
func NewLedgerService(entryRepo portsrepo.EntryRepositoryWithTx, participantSvc portssvc.ParticipantSvcFacade, participantRepo portsrepo.ParticipantRepositoryFacade, rules []allocation.Rule) portssvc.LedgerSvcFacade {
	return &ledgerService{
		entryRepo:       entryRepo,
		participantSvc:  participantSvc,
		participantRepo: participantRepo,
		rules:           rules,
	}
}

// Ensure ledgerService implements the portssvc.LedgerSvcFacade interface
var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// resolveSession turns a session request into the resolved attendee set and
// the effective teacher/subject/cost, honouring the scheduled/custom split.
func (s *ledgerService) resolveSession(ctx context.Context, req dto.RecordSessionRequest) (*portssvc.AttendeeResolution, dto.RecordSessionRequest, domain.SessionCreateType, error) {
	switch req.LogType {
	case "scheduled":
		if req.TemplateID == nil || *req.TemplateID == "" {
			return nil, req, "", fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrTemplateRequired)
		}
		resolution, template, err := s.participantSvc.ResolveByTemplate(ctx, *req.TemplateID)
		if err != nil {
			return nil, req, "", err
		}
		// Template values fill whatever the request left out; an explicit
		// totalCost on the request overrides the planned cost.
		if req.TeacherID == "" {
			req.TeacherID = template.TeacherID
		}
		if req.Subject == "" {
			req.Subject = template.Subject
		}
		if req.LessonIndex == nil {
			idx := template.LessonIndex
			req.LessonIndex = &idx
		}
		if req.TotalCost == nil {
			cost := template.TotalCost
			req.TotalCost = &cost
		}
		if len(req.AttendeeIDs) == 0 {
			req.AttendeeIDs = template.StudentIDs
		} else {
			// An attendee override (a sick sibling stayed home) re-resolves
			// against the explicit list instead of the template roster.
			resolution, err = s.participantSvc.ResolveByIDs(ctx, req.AttendeeIDs)
			if err != nil {
				return nil, req, "", err
			}
		}
		return resolution, req, domain.CreateScheduled, nil

	case "custom":
		if req.TeacherID == "" {
			return nil, req, "", fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrTeacherRequired)
		}
		if req.Subject == "" {
			return nil, req, "", fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrSubjectRequired)
		}
		if len(req.AttendeeIDs) == 0 {
			return nil, req, "", fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrAttendeesRequired)
		}
		resolution, err := s.participantSvc.ResolveByIDs(ctx, req.AttendeeIDs)
		if err != nil {
			return nil, req, "", err
		}
		return resolution, req, domain.CreateCustom, nil

	default:
		return nil, req, "", fmt.Errorf("%w: unknown log type %q", apperrors.ErrValidation, req.LogType)
	}
}

// buildSessionEntry assembles the domain entry and its charges from a
// resolved request. The charge sum is asserted against the entry amount here
// and re-verified by the repository inside the transaction.
func (s *ledgerService) buildSessionEntry(ctx context.Context, req dto.RecordSessionRequest, resolution *portssvc.AttendeeResolution, createType domain.SessionCreateType, createdBy string, now time.Time) (*domain.LedgerEntry, []domain.Charge, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrEndBeforeStart)
	}

	// The payer recorded on a session log is the first attendee's parent;
	// the per-payer attribution lives on the charges.
	payerID := resolution.PayerOf[resolution.Students[0].StudentID]
	parents, err := s.participantRepo.FindParentsByIDs(ctx, []string{payerID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch payer: %w", err)
	}
	payer, found := parents[payerID]
	if !found {
		return nil, nil, fmt.Errorf("%w: parent %s", apperrors.ErrNotFound, payerID)
	}

	startTime := req.StartTime
	endTime := req.EndTime
	entry := &domain.LedgerEntry{
		EntryID:      uuid.NewString(),
		Kind:         domain.KindSession,
		PayerID:      payerID,
		Amount:       req.TotalCost,
		CurrencyCode: payer.CurrencyCode,
		Status:       domain.StatusActive,
		Notes:        req.Notes,
		TeacherID:    req.TeacherID,
		Subject:      req.Subject,
		StartTime:    &startTime,
		EndTime:      &endTime,
		TemplateID:   req.TemplateID,
		LessonIndex:  req.LessonIndex,
		CreateType:   createType,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     createdBy,
			LastUpdatedAt: now,
			LastUpdatedBy: createdBy,
		},
	}

	// Uncosted sessions (cost agreed later) carry no charges.
	if req.TotalCost == nil {
		return entry, nil, nil
	}
	if req.TotalCost.IsNegative() {
		return nil, nil, fmt.Errorf("%w: total cost %s is negative", apperrors.ErrValidation, req.TotalCost.String())
	}

	participantIDs := make([]string, len(resolution.Students))
	for i, student := range resolution.Students {
		participantIDs[i] = student.StudentID
	}
	shares, err := allocation.Allocate(*req.TotalCost, participantIDs, resolution.PayerOf, s.rules)
	if err != nil {
		return nil, nil, err
	}
	if !allocation.Sum(shares).Equal(*req.TotalCost) {
		return nil, nil, fmt.Errorf("%w: allocated %s for a total of %s",
			apperrors.ErrIntegrity, allocation.Sum(shares).String(), req.TotalCost.String())
	}

	charges := make([]domain.Charge, len(shares))
	for i, share := range shares {
		charges[i] = domain.Charge{
			EntryID:   entry.EntryID,
			StudentID: share.StudentID,
			ParentID:  share.ParentID,
			Amount:    share.Amount,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     createdBy,
				LastUpdatedAt: now,
				LastUpdatedBy: createdBy,
			},
		}
	}
	return entry, charges, nil
}

// buildPaymentEntry assembles a payment log. Payments carry no charges.
func (s *ledgerService) buildPaymentEntry(ctx context.Context, req dto.RecordPaymentRequest, createdBy string, now time.Time) (*domain.LedgerEntry, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrNonPositiveAmount)
	}

	parents, err := s.participantRepo.FindParentsByIDs(ctx, []string{req.ParentID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payer: %w", err)
	}
	payer, found := parents[req.ParentID]
	if !found {
		return nil, fmt.Errorf("%w: parent %s", apperrors.ErrNotFound, req.ParentID)
	}

	amount := req.Amount
	paymentDate := req.PaymentDate
	return &domain.LedgerEntry{
		EntryID:      uuid.NewString(),
		Kind:         domain.KindPayment,
		PayerID:      req.ParentID,
		Amount:       &amount,
		CurrencyCode: payer.CurrencyCode,
		Status:       domain.StatusActive,
		Notes:        req.Notes,
		StartTime:    &paymentDate,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     createdBy,
			LastUpdatedAt: now,
			LastUpdatedBy: createdBy,
		},
	}, nil
}

// RecordSession validates, resolves attendees, allocates the cost and
// persists the session log with its charges atomically.
// Implements portssvc.LedgerSvcFacade
func (s *ledgerService) RecordSession(ctx context.Context, req dto.RecordSessionRequest, createdBy string) (*domain.LedgerEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	resolution, resolved, createType, err := s.resolveSession(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry, charges, err := s.buildSessionEntry(ctx, resolved, resolution, createType, createdBy, now)
	if err != nil {
		return nil, err
	}

	if err := s.entryRepo.SaveEntry(ctx, *entry, charges); err != nil {
		logger.Error("Failed to save session log", slog.String("error", err.Error()), slog.String("entry_id", entry.EntryID))
		return nil, fmt.Errorf("failed to save session log: %w", err)
	}

	logger.Info("Session log recorded",
		slog.String("entry_id", entry.EntryID),
		slog.String("subject", entry.Subject),
		slog.Int("charges", len(charges)))
	entry.Charges = charges
	return entry, nil
}

// RecordPayment persists a payment log.
// Implements portssvc.LedgerSvcFacade
func (s *ledgerService) RecordPayment(ctx context.Context, req dto.RecordPaymentRequest, createdBy string) (*domain.LedgerEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	entry, err := s.buildPaymentEntry(ctx, req, createdBy, now)
	if err != nil {
		return nil, err
	}

	if err := s.entryRepo.SaveEntry(ctx, *entry, nil); err != nil {
		logger.Error("Failed to save payment log", slog.String("error", err.Error()), slog.String("entry_id", entry.EntryID))
		return nil, fmt.Errorf("failed to save payment log: %w", err)
	}

	logger.Info("Payment log recorded",
		slog.String("entry_id", entry.EntryID),
		slog.String("parent_id", entry.PayerID),
		slog.String("amount", entry.Amount.String()))
	return entry, nil
}

// VoidEntry terminally voids an entry. The status flip and its guards run
// inside one repository transaction with the row locked.
// Implements portssvc.LedgerSvcFacade
func (s *ledgerService) VoidEntry(ctx context.Context, entryID string, reason string, voidedBy string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if reason == "" {
		return fmt.Errorf("%w: a void reason is required", apperrors.ErrValidation)
	}

	if err := s.entryRepo.VoidEntry(ctx, entryID, reason, voidedBy, time.Now().UTC()); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrAlreadyVoid) && !errors.Is(err, apperrors.ErrSuperseded) {
			logger.Error("Failed to void ledger entry", slog.String("error", err.Error()), slog.String("entry_id", entryID))
		}
		return err
	}

	logger.Info("Ledger entry voided", slog.String("entry_id", entryID), slog.String("voided_by", voidedBy))
	return nil
}

// CorrectSession voids the target session log and inserts a replacement in
// one transaction. The replacement's CorrectedFrom points at the target.
// Implements portssvc.LedgerSvcFacade
func (s *ledgerService) CorrectSession(ctx context.Context, targetID string, req dto.RecordSessionRequest, correctedBy string) (*domain.LedgerEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	target, err := s.entryRepo.FindEntryByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to find entry %s: %w", targetID, err)
	}
	if target.Kind != domain.KindSession {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrKindMismatch)
	}

	resolution, resolved, createType, err := s.resolveSession(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	replacement, charges, err := s.buildSessionEntry(ctx, resolved, resolution, createType, correctedBy, now)
	if err != nil {
		return nil, err
	}
	replacement.CorrectedFrom = &targetID

	if err := s.entryRepo.VoidAndReplaceEntry(ctx, targetID, *replacement, charges); err != nil {
		if !errors.Is(err, apperrors.ErrAlreadyVoid) && !errors.Is(err, apperrors.ErrSuperseded) {
			logger.Error("Failed to correct session log", slog.String("error", err.Error()), slog.String("target_id", targetID))
		}
		return nil, err
	}

	logger.Info("Session log corrected",
		slog.String("target_id", targetID),
		slog.String("replacement_id", replacement.EntryID))
	replacement.Charges = charges
	return replacement, nil
}

// CorrectPayment voids the target payment log and inserts a replacement.
// Implements portssvc.LedgerSvcFacade
func (s *ledgerService) CorrectPayment(ctx context.Context, targetID string, req dto.RecordPaymentRequest, correctedBy string) (*domain.LedgerEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	target, err := s.entryRepo.FindEntryByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to find entry %s: %w", targetID, err)
	}
	if target.Kind != domain.KindPayment {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrKindMismatch)
	}

	now := time.Now().UTC()
	replacement, err := s.buildPaymentEntry(ctx, req, correctedBy, now)
	if err != nil {
		return nil, err
	}
	replacement.CorrectedFrom = &targetID

	if err := s.entryRepo.VoidAndReplaceEntry(ctx, targetID, *replacement, nil); err != nil {
		if !errors.Is(err, apperrors.ErrAlreadyVoid) && !errors.Is(err, apperrors.ErrSuperseded) {
			logger.Error("Failed to correct payment log", slog.String("error", err.Error()), slog.String("target_id", targetID))
		}
		return nil, err
	}

	logger.Info("Payment log corrected",
		slog.String("target_id", targetID),
		slog.String("replacement_id", replacement.EntryID))
	return replacement, nil
}

// GetEntryByID retrieves a ledger entry with its charges.
// Implements portssvc.LedgerSvcFacade
func (s *ledgerService) GetEntryByID(ctx context.Context, entryID string) (*domain.LedgerEntry, error) {
	entry, err := s.entryRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to find entry %s: %w", entryID, err)
	}
	if entry.Kind == domain.KindSession {
		charges, err := s.entryRepo.FindChargesByEntryID(ctx, entryID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch charges for entry %s: %w", entryID, err)
		}
		entry.Charges = charges
	}
	return entry, nil
}

// GetChain returns the full correction chain containing entryID, oldest
// first.
// Implements portssvc.LedgerSvcFacade
func (s *ledgerService) GetChain(ctx context.Context, entryID string) ([]domain.LedgerEntry, error) {
	chain, err := s.entryRepo.ChainOf(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to walk correction chain of %s: %w", entryID, err)
	}
	return chain, nil
}

// ListEntries returns a page of a payer's entries of one kind.
// Implements portssvc.LedgerSvcFacade
func (s *ledgerService) ListEntries(ctx context.Context, kind domain.EntryKind, params dto.ListEntriesParams) ([]domain.LedgerEntry, *string, error) {
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	entries, nextToken, err := s.entryRepo.ListEntriesByPayer(ctx, params.ParentID, kind, limit, params.NextToken, params.IncludeVoid)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nextToken, nil
}

// GetPayerBalance computes charged, paid and outstanding totals for a payer.
// Implements portssvc.LedgerSvcFacade
func (s *ledgerService) GetPayerBalance(ctx context.Context, parentID string, activeOnly bool) (*domain.PayerBalance, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	parents, err := s.participantRepo.FindParentsByIDs(ctx, []string{parentID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payer: %w", err)
	}
	parent, found := parents[parentID]
	if !found {
		return nil, fmt.Errorf("%w: parent %s", apperrors.ErrNotFound, parentID)
	}

	charged, err := s.entryRepo.SumChargesByPayer(ctx, parentID, activeOnly)
	if err != nil {
		logger.Error("Failed to sum charges", slog.String("error", err.Error()), slog.String("parent_id", parentID))
		return nil, fmt.Errorf("failed to sum charges: %w", err)
	}
	paid, err := s.entryRepo.SumPaymentsByPayer(ctx, parentID, activeOnly)
	if err != nil {
		logger.Error("Failed to sum payments", slog.String("error", err.Error()), slog.String("parent_id", parentID))
		return nil, fmt.Errorf("failed to sum payments: %w", err)
	}

	return &domain.PayerBalance{
		ParentID:     parentID,
		CurrencyCode: parent.CurrencyCode,
		TotalCharged: charged,
		TotalPaid:    paid,
		Balance:      paid.Sub(charged),
		ActiveOnly:   activeOnly,
	}, nil
}

// PreviewAllocation runs the allocation engine without persisting anything.
// Implements portssvc.LedgerSvcFacade
func (s *ledgerService) PreviewAllocation(ctx context.Context, total decimal.Decimal, attendeeIDs []string) ([]domain.Charge, error) {
	resolution, err := s.participantSvc.ResolveByIDs(ctx, attendeeIDs)
	if err != nil {
		return nil, err
	}

	participantIDs := make([]string, len(resolution.Students))
	for i, student := range resolution.Students {
		participantIDs[i] = student.StudentID
	}
	shares, err := allocation.Allocate(total, participantIDs, resolution.PayerOf, s.rules)
	if err != nil {
		return nil, err
	}

	charges := make([]domain.Charge, len(shares))
	for i, share := range shares {
		charges[i] = domain.Charge{
			StudentID: share.StudentID,
			ParentID:  share.ParentID,
			Amount:    share.Amount,
		}
	}
	return charges, nil
}

// FindOrphanedCharges lists entry IDs of charges whose owning log is gone.
// Implements portssvc.LedgerSvcFacade
func (s *ledgerService) FindOrphanedCharges(ctx context.Context) ([]string, error) {
	orphans, err := s.entryRepo.OrphanedCharges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for orphaned charges: %w", err)
	}
	seen := make(map[string]struct{}, len(orphans))
	entryIDs := make([]string, 0, len(orphans))
	for _, charge := range orphans {
		if _, ok := seen[charge.EntryID]; ok {
			continue
		}
		seen[charge.EntryID] = struct{}{}
		entryIDs = append(entryIDs, charge.EntryID)
	}
	return entryIDs, nil
}

// FindChargeSumMismatches lists active costed logs violating the
// sum-of-charges invariant.
// Implements portssvc.LedgerSvcFacade
func (s *ledgerService) FindChargeSumMismatches(ctx context.Context) ([]domain.IntegrityFinding, error) {
	findings, err := s.entryRepo.ChargeSumMismatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for charge sum mismatches: %w", err)
	}
	return findings, nil
}
