package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/efficienttutor/tuition_ledger_app/internal/apperrors"
	"github.com/efficienttutor/tuition_ledger_app/internal/core/allocation"
	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
	portsrepo "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/services"
	"github.com/efficienttutor/tuition_ledger_app/internal/core/services"
	"github.com/efficienttutor/tuition_ledger_app/internal/dto"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock EntryRepository ---
type MockEntryRepository struct {
	mock.Mock
}

// Ensure MockEntryRepository implements portsrepo.EntryRepositoryWithTx
var _ portsrepo.EntryRepositoryWithTx = (*MockEntryRepository)(nil)

func (m *MockEntryRepository) SaveEntry(ctx context.Context, entry domain.LedgerEntry, charges []domain.Charge) error {
	args := m.Called(ctx, entry, charges)
	return args.Error(0)
}

func (m *MockEntryRepository) VoidEntry(ctx context.Context, entryID, reason, voidedBy string, at time.Time) error {
	args := m.Called(ctx, entryID, reason, voidedBy, at)
	return args.Error(0)
}

func (m *MockEntryRepository) VoidAndReplaceEntry(ctx context.Context, targetID string, replacement domain.LedgerEntry, charges []domain.Charge) error {
	args := m.Called(ctx, targetID, replacement, charges)
	return args.Error(0)
}

func (m *MockEntryRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

func (m *MockEntryRepository) FindChargesByEntryID(ctx context.Context, entryID string) ([]domain.Charge, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Charge), args.Error(1)
}

func (m *MockEntryRepository) ChainOf(ctx context.Context, entryID string) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}

func (m *MockEntryRepository) ListEntriesByPayer(ctx context.Context, payerID string, kind domain.EntryKind, limit int, nextToken *string, includeVoid bool) ([]domain.LedgerEntry, *string, error) {
	args := m.Called(ctx, payerID, kind, limit, nextToken, includeVoid)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.LedgerEntry), returnedNextToken, args.Error(2)
}

func (m *MockEntryRepository) SumChargesByPayer(ctx context.Context, payerID string, activeOnly bool) (decimal.Decimal, error) {
	args := m.Called(ctx, payerID, activeOnly)
	if args.Get(0) == nil {
		return decimal.Zero, args.Error(1)
	}
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockEntryRepository) SumPaymentsByPayer(ctx context.Context, payerID string, activeOnly bool) (decimal.Decimal, error) {
	args := m.Called(ctx, payerID, activeOnly)
	if args.Get(0) == nil {
		return decimal.Zero, args.Error(1)
	}
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockEntryRepository) OrphanedCharges(ctx context.Context) ([]domain.Charge, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Charge), args.Error(1)
}

func (m *MockEntryRepository) ChargeSumMismatches(ctx context.Context) ([]domain.IntegrityFinding, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.IntegrityFinding), args.Error(1)
}

func (m *MockEntryRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockEntryRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockEntryRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// --- Mock ParticipantService ---
type MockParticipantService struct {
	mock.Mock
}

var _ portssvc.ParticipantSvcFacade = (*MockParticipantService)(nil)

func (m *MockParticipantService) ResolveByIDs(ctx context.Context, studentIDs []string) (*portssvc.AttendeeResolution, error) {
	args := m.Called(ctx, studentIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.AttendeeResolution), args.Error(1)
}

func (m *MockParticipantService) ResolveByTemplate(ctx context.Context, templateID string) (*portssvc.AttendeeResolution, *domain.SessionTemplate, error) {
	args := m.Called(ctx, templateID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*portssvc.AttendeeResolution), args.Get(1).(*domain.SessionTemplate), args.Error(2)
}

func (m *MockParticipantService) ResolveByNames(ctx context.Context, names []string) (*portssvc.AttendeeResolution, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.AttendeeResolution), args.Error(1)
}

// --- Mock ParticipantRepository ---
type MockParticipantRepository struct {
	mock.Mock
}

var _ portsrepo.ParticipantRepositoryFacade = (*MockParticipantRepository)(nil)

func (m *MockParticipantRepository) FindStudentsByIDs(ctx context.Context, studentIDs []string) (map[string]domain.Student, error) {
	args := m.Called(ctx, studentIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Student), args.Error(1)
}

func (m *MockParticipantRepository) FindStudentsByNames(ctx context.Context, names []string) (map[string]domain.Student, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Student), args.Error(1)
}

func (m *MockParticipantRepository) FindParentsByIDs(ctx context.Context, parentIDs []string) (map[string]domain.Parent, error) {
	args := m.Called(ctx, parentIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Parent), args.Error(1)
}

func (m *MockParticipantRepository) FindTemplateByID(ctx context.Context, templateID string) (*domain.SessionTemplate, error) {
	args := m.Called(ctx, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionTemplate), args.Error(1)
}

func (m *MockParticipantRepository) UpsertTemplate(ctx context.Context, template domain.SessionTemplate) (bool, error) {
	args := m.Called(ctx, template)
	return args.Bool(0), args.Error(1)
}

// --- Test Suite Setup ---
type LedgerServiceTestSuite struct {
	suite.Suite
	mockEntryRepo       *MockEntryRepository
	mockParticipantSvc  *MockParticipantService
	mockParticipantRepo *MockParticipantRepository
	service             portssvc.LedgerSvcFacade
	parent              domain.Parent
	otherParent         domain.Parent
	studentA            domain.Student
	studentB            domain.Student
	studentC            domain.Student
	adminID             string
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.mockEntryRepo = new(MockEntryRepository)
	suite.mockParticipantSvc = new(MockParticipantService)
	suite.mockParticipantRepo = new(MockParticipantRepository)
	suite.service = services.NewLedgerService(suite.mockEntryRepo, suite.mockParticipantSvc, suite.mockParticipantRepo, nil)

	suite.adminID = uuid.NewString()

	suite.parent = domain.Parent{
		ParentID:     uuid.NewString(),
		FirstName:    "Dana",
		LastName:     "Lee",
		CurrencyCode: "USD",
	}
	suite.otherParent = domain.Parent{
		ParentID:     uuid.NewString(),
		FirstName:    "Sam",
		LastName:     "Reyes",
		CurrencyCode: "USD",
	}
	suite.studentA = domain.Student{
		StudentID: uuid.NewString(),
		ParentID:  suite.parent.ParentID,
		FirstName: "Ava",
		LastName:  "Lee",
		Status:    domain.StudentActive,
	}
	suite.studentB = domain.Student{
		StudentID: uuid.NewString(),
		ParentID:  suite.parent.ParentID,
		FirstName: "Ben",
		LastName:  "Lee",
		Status:    domain.StudentActive,
	}
	suite.studentC = domain.Student{
		StudentID: uuid.NewString(),
		ParentID:  suite.otherParent.ParentID,
		FirstName: "Cleo",
		LastName:  "Reyes",
		Status:    domain.StudentActive,
	}
}

func (suite *LedgerServiceTestSuite) resolutionFor(students ...domain.Student) *portssvc.AttendeeResolution {
	payerOf := make(map[string]string, len(students))
	for _, s := range students {
		payerOf[s.StudentID] = s.ParentID
	}
	return &portssvc.AttendeeResolution{Students: students, PayerOf: payerOf}
}

func (suite *LedgerServiceTestSuite) customSessionRequest(total string, attendees ...domain.Student) dto.RecordSessionRequest {
	cost := decimal.RequireFromString(total)
	ids := make([]string, len(attendees))
	for i, s := range attendees {
		ids[i] = s.StudentID
	}
	start := time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	return dto.RecordSessionRequest{
		LogType:     "custom",
		TeacherID:   uuid.NewString(),
		Subject:     "Mathematics",
		StartTime:   start,
		EndTime:     end,
		TotalCost:   &cost,
		AttendeeIDs: ids,
	}
}

// --- RecordSession ---

func (suite *LedgerServiceTestSuite) TestRecordSession_CustomSuccess() {
	ctx := context.Background()
	req := suite.customSessionRequest("100.00", suite.studentA, suite.studentB)
	resolution := suite.resolutionFor(suite.studentA, suite.studentB)

	suite.mockParticipantSvc.On("ResolveByIDs", ctx, req.AttendeeIDs).Return(resolution, nil).Once()
	suite.mockParticipantRepo.On("FindParentsByIDs", ctx, []string{suite.parent.ParentID}).
		Return(map[string]domain.Parent{suite.parent.ParentID: suite.parent}, nil).Once()
	suite.mockEntryRepo.On("SaveEntry", ctx, mock.AnythingOfType("domain.LedgerEntry"), mock.AnythingOfType("[]domain.Charge")).Return(nil).Once()

	entry, err := suite.service.RecordSession(ctx, req, suite.adminID)

	suite.Require().NoError(err)
	suite.Require().NotNil(entry)
	suite.Equal(domain.KindSession, entry.Kind)
	suite.Equal(domain.StatusActive, entry.Status)
	suite.Equal(suite.parent.ParentID, entry.PayerID)
	suite.Equal(domain.CreateCustom, entry.CreateType)
	suite.Nil(entry.CorrectedFrom)
	suite.Require().Len(entry.Charges, 2)
	suite.True(entry.Charges[0].Amount.Add(entry.Charges[1].Amount).Equal(decimal.RequireFromString("100.00")))

	suite.mockEntryRepo.AssertExpectations(suite.T())
	suite.mockParticipantSvc.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestRecordSession_UnknownAttendeeIsValidationError() {
	ctx := context.Background()
	ghostID := uuid.NewString()
	req := suite.customSessionRequest("60.00", suite.studentA)
	req.AttendeeIDs = append(req.AttendeeIDs, ghostID)

	// Wire the real resolver so the unknown-student failure takes the same
	// path a request would.
	ledgerSvc := services.NewLedgerService(suite.mockEntryRepo, services.NewParticipantService(suite.mockParticipantRepo), suite.mockParticipantRepo, nil)

	suite.mockParticipantRepo.On("FindStudentsByIDs", ctx, req.AttendeeIDs).Return(map[string]domain.Student{
		suite.studentA.StudentID: suite.studentA,
	}, nil).Once()

	entry, err := ledgerSvc.RecordSession(ctx, req, suite.adminID)

	suite.Require().Error(err)
	suite.Nil(entry)
	// An unknown attendee is a bad request, not a missing ledger resource.
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.NotErrorIs(err, apperrors.ErrNotFound)
	suite.mockEntryRepo.AssertNotCalled(suite.T(), "SaveEntry")
}

func (suite *LedgerServiceTestSuite) TestRecordSession_RemainderCentsGoToFirstAttendees() {
	ctx := context.Background()
	req := suite.customSessionRequest("100.00", suite.studentA, suite.studentB, suite.studentC)
	resolution := suite.resolutionFor(suite.studentA, suite.studentB, suite.studentC)

	suite.mockParticipantSvc.On("ResolveByIDs", ctx, req.AttendeeIDs).Return(resolution, nil).Once()
	suite.mockParticipantRepo.On("FindParentsByIDs", ctx, []string{suite.parent.ParentID}).
		Return(map[string]domain.Parent{suite.parent.ParentID: suite.parent}, nil).Once()
	suite.mockEntryRepo.On("SaveEntry", ctx, mock.AnythingOfType("domain.LedgerEntry"), mock.AnythingOfType("[]domain.Charge")).Return(nil).Once()

	entry, err := suite.service.RecordSession(ctx, req, suite.adminID)

	suite.Require().NoError(err)
	suite.Require().Len(entry.Charges, 3)
	// 10000 cents over 3: the first attendee absorbs the remainder cent.
	suite.True(entry.Charges[0].Amount.Equal(decimal.RequireFromString("33.34")))
	suite.True(entry.Charges[1].Amount.Equal(decimal.RequireFromString("33.33")))
	suite.True(entry.Charges[2].Amount.Equal(decimal.RequireFromString("33.33")))
	// Charges are attributed per attendee's own payer.
	suite.Equal(suite.parent.ParentID, entry.Charges[0].ParentID)
	suite.Equal(suite.otherParent.ParentID, entry.Charges[2].ParentID)
}

func (suite *LedgerServiceTestSuite) TestRecordSession_UncostedCarriesNoCharges() {
	ctx := context.Background()
	req := suite.customSessionRequest("1.00", suite.studentA)
	req.TotalCost = nil
	resolution := suite.resolutionFor(suite.studentA)

	suite.mockParticipantSvc.On("ResolveByIDs", ctx, req.AttendeeIDs).Return(resolution, nil).Once()
	suite.mockParticipantRepo.On("FindParentsByIDs", ctx, []string{suite.parent.ParentID}).
		Return(map[string]domain.Parent{suite.parent.ParentID: suite.parent}, nil).Once()
	suite.mockEntryRepo.On("SaveEntry", ctx, mock.AnythingOfType("domain.LedgerEntry"), mock.Anything).
		Run(func(args mock.Arguments) {
			suite.Nil(args.Get(2))
		}).Return(nil).Once()

	entry, err := suite.service.RecordSession(ctx, req, suite.adminID)

	suite.Require().NoError(err)
	suite.Nil(entry.Amount)
	suite.Empty(entry.Charges)
}

func (suite *LedgerServiceTestSuite) TestRecordSession_ScheduledFillsFromTemplate() {
	ctx := context.Background()
	templateID := uuid.NewString()
	lessonIndex := 2
	template := &domain.SessionTemplate{
		TemplateID:  templateID,
		TeacherID:   uuid.NewString(),
		Subject:     "Physics",
		LessonIndex: lessonIndex,
		StudentIDs:  []string{suite.studentA.StudentID, suite.studentB.StudentID},
		TotalCost:   decimal.RequireFromString("80.00"),
	}
	resolution := suite.resolutionFor(suite.studentA, suite.studentB)

	start := time.Date(2026, 3, 4, 17, 0, 0, 0, time.UTC)
	req := dto.RecordSessionRequest{
		LogType:    "scheduled",
		TemplateID: &templateID,
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
	}

	suite.mockParticipantSvc.On("ResolveByTemplate", ctx, templateID).Return(resolution, template, nil).Once()
	suite.mockParticipantRepo.On("FindParentsByIDs", ctx, []string{suite.parent.ParentID}).
		Return(map[string]domain.Parent{suite.parent.ParentID: suite.parent}, nil).Once()
	suite.mockEntryRepo.On("SaveEntry", ctx, mock.AnythingOfType("domain.LedgerEntry"), mock.AnythingOfType("[]domain.Charge")).Return(nil).Once()

	entry, err := suite.service.RecordSession(ctx, req, suite.adminID)

	suite.Require().NoError(err)
	suite.Equal(template.TeacherID, entry.TeacherID)
	suite.Equal("Physics", entry.Subject)
	suite.Equal(domain.CreateScheduled, entry.CreateType)
	suite.Require().NotNil(entry.Amount)
	suite.True(entry.Amount.Equal(template.TotalCost))
	suite.Require().Len(entry.Charges, 2)
}

func (suite *LedgerServiceTestSuite) TestRecordSession_ScheduledAttendeeOverride() {
	ctx := context.Background()
	templateID := uuid.NewString()
	template := &domain.SessionTemplate{
		TemplateID:  templateID,
		TeacherID:   uuid.NewString(),
		Subject:     "Physics",
		LessonIndex: 1,
		StudentIDs:  []string{suite.studentA.StudentID, suite.studentB.StudentID},
		TotalCost:   decimal.RequireFromString("80.00"),
	}
	templateResolution := suite.resolutionFor(suite.studentA, suite.studentB)
	overrideResolution := suite.resolutionFor(suite.studentA)

	start := time.Date(2026, 3, 4, 17, 0, 0, 0, time.UTC)
	req := dto.RecordSessionRequest{
		LogType:     "scheduled",
		TemplateID:  &templateID,
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		AttendeeIDs: []string{suite.studentA.StudentID},
	}

	suite.mockParticipantSvc.On("ResolveByTemplate", ctx, templateID).Return(templateResolution, template, nil).Once()
	suite.mockParticipantSvc.On("ResolveByIDs", ctx, []string{suite.studentA.StudentID}).Return(overrideResolution, nil).Once()
	suite.mockParticipantRepo.On("FindParentsByIDs", ctx, []string{suite.parent.ParentID}).
		Return(map[string]domain.Parent{suite.parent.ParentID: suite.parent}, nil).Once()
	suite.mockEntryRepo.On("SaveEntry", ctx, mock.AnythingOfType("domain.LedgerEntry"), mock.AnythingOfType("[]domain.Charge")).Return(nil).Once()

	entry, err := suite.service.RecordSession(ctx, req, suite.adminID)

	suite.Require().NoError(err)
	suite.Require().Len(entry.Charges, 1)
	suite.Equal(suite.studentA.StudentID, entry.Charges[0].StudentID)
	suite.True(entry.Charges[0].Amount.Equal(template.TotalCost))
}

func (suite *LedgerServiceTestSuite) TestRecordSession_ScheduledWithoutTemplateFails() {
	ctx := context.Background()
	start := time.Now().UTC()
	req := dto.RecordSessionRequest{
		LogType:   "scheduled",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}

	entry, err := suite.service.RecordSession(ctx, req, suite.adminID)

	suite.Require().Error(err)
	suite.Nil(entry)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockEntryRepo.AssertNotCalled(suite.T(), "SaveEntry", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestRecordSession_EndBeforeStartFails() {
	ctx := context.Background()
	req := suite.customSessionRequest("50.00", suite.studentA)
	req.EndTime = req.StartTime.Add(-time.Minute)
	resolution := suite.resolutionFor(suite.studentA)

	suite.mockParticipantSvc.On("ResolveByIDs", ctx, req.AttendeeIDs).Return(resolution, nil).Once()

	entry, err := suite.service.RecordSession(ctx, req, suite.adminID)

	suite.Require().Error(err)
	suite.Nil(entry)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestRecordSession_CustomWithoutAttendeesFails() {
	ctx := context.Background()
	req := suite.customSessionRequest("50.00", suite.studentA)
	req.AttendeeIDs = nil

	entry, err := suite.service.RecordSession(ctx, req, suite.adminID)

	suite.Require().Error(err)
	suite.Nil(entry)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

// --- RecordPayment ---

func (suite *LedgerServiceTestSuite) TestRecordPayment_Success() {
	ctx := context.Background()
	req := dto.RecordPaymentRequest{
		ParentID:    suite.parent.ParentID,
		Amount:      decimal.RequireFromString("250.00"),
		PaymentDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	suite.mockParticipantRepo.On("FindParentsByIDs", ctx, []string{suite.parent.ParentID}).
		Return(map[string]domain.Parent{suite.parent.ParentID: suite.parent}, nil).Once()
	suite.mockEntryRepo.On("SaveEntry", ctx, mock.AnythingOfType("domain.LedgerEntry"), mock.Anything).Return(nil).Once()

	entry, err := suite.service.RecordPayment(ctx, req, suite.adminID)

	suite.Require().NoError(err)
	suite.Equal(domain.KindPayment, entry.Kind)
	suite.Equal(suite.parent.ParentID, entry.PayerID)
	suite.Require().NotNil(entry.Amount)
	suite.True(entry.Amount.Equal(req.Amount))
	suite.Empty(entry.Charges)
}

func (suite *LedgerServiceTestSuite) TestRecordPayment_NonPositiveAmountFails() {
	ctx := context.Background()
	req := dto.RecordPaymentRequest{
		ParentID:    suite.parent.ParentID,
		Amount:      decimal.Zero,
		PaymentDate: time.Now().UTC(),
	}

	entry, err := suite.service.RecordPayment(ctx, req, suite.adminID)

	suite.Require().Error(err)
	suite.Nil(entry)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockEntryRepo.AssertNotCalled(suite.T(), "SaveEntry", mock.Anything, mock.Anything, mock.Anything)
}

// --- VoidEntry ---

func (suite *LedgerServiceTestSuite) TestVoidEntry_Success() {
	ctx := context.Background()
	entryID := uuid.NewString()

	suite.mockEntryRepo.On("VoidEntry", ctx, entryID, "duplicate record", suite.adminID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.VoidEntry(ctx, entryID, "duplicate record", suite.adminID)

	suite.Require().NoError(err)
	suite.mockEntryRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestVoidEntry_EmptyReasonFails() {
	ctx := context.Background()

	err := suite.service.VoidEntry(ctx, uuid.NewString(), "", suite.adminID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockEntryRepo.AssertNotCalled(suite.T(), "VoidEntry", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestVoidEntry_AlreadyVoidSurfaces() {
	ctx := context.Background()
	entryID := uuid.NewString()

	suite.mockEntryRepo.On("VoidEntry", ctx, entryID, "reason", suite.adminID, mock.AnythingOfType("time.Time")).
		Return(apperrors.ErrAlreadyVoid).Once()

	err := suite.service.VoidEntry(ctx, entryID, "reason", suite.adminID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrAlreadyVoid)
}

func (suite *LedgerServiceTestSuite) TestVoidEntry_SupersededSurfaces() {
	ctx := context.Background()
	entryID := uuid.NewString()

	suite.mockEntryRepo.On("VoidEntry", ctx, entryID, "reason", suite.adminID, mock.AnythingOfType("time.Time")).
		Return(apperrors.ErrSuperseded).Once()

	err := suite.service.VoidEntry(ctx, entryID, "reason", suite.adminID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrSuperseded)
}

// --- Corrections ---

func (suite *LedgerServiceTestSuite) TestCorrectSession_LinksReplacementToTarget() {
	ctx := context.Background()
	targetID := uuid.NewString()
	target := &domain.LedgerEntry{EntryID: targetID, Kind: domain.KindSession, Status: domain.StatusActive}

	req := suite.customSessionRequest("60.00", suite.studentA)
	resolution := suite.resolutionFor(suite.studentA)

	suite.mockEntryRepo.On("FindEntryByID", ctx, targetID).Return(target, nil).Once()
	suite.mockParticipantSvc.On("ResolveByIDs", ctx, req.AttendeeIDs).Return(resolution, nil).Once()
	suite.mockParticipantRepo.On("FindParentsByIDs", ctx, []string{suite.parent.ParentID}).
		Return(map[string]domain.Parent{suite.parent.ParentID: suite.parent}, nil).Once()
	suite.mockEntryRepo.On("VoidAndReplaceEntry", ctx, targetID, mock.AnythingOfType("domain.LedgerEntry"), mock.AnythingOfType("[]domain.Charge")).
		Run(func(args mock.Arguments) {
			replacement := args.Get(2).(domain.LedgerEntry)
			suite.Require().NotNil(replacement.CorrectedFrom)
			suite.Equal(targetID, *replacement.CorrectedFrom)
		}).Return(nil).Once()

	replacement, err := suite.service.CorrectSession(ctx, targetID, req, suite.adminID)

	suite.Require().NoError(err)
	suite.Require().NotNil(replacement.CorrectedFrom)
	suite.Equal(targetID, *replacement.CorrectedFrom)
	suite.NotEqual(targetID, replacement.EntryID)
	suite.mockEntryRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestCorrectSession_KindMismatchFails() {
	ctx := context.Background()
	targetID := uuid.NewString()
	target := &domain.LedgerEntry{EntryID: targetID, Kind: domain.KindPayment, Status: domain.StatusActive}

	suite.mockEntryRepo.On("FindEntryByID", ctx, targetID).Return(target, nil).Once()

	replacement, err := suite.service.CorrectSession(ctx, targetID, suite.customSessionRequest("60.00", suite.studentA), suite.adminID)

	suite.Require().Error(err)
	suite.Nil(replacement)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockEntryRepo.AssertNotCalled(suite.T(), "VoidAndReplaceEntry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestCorrectSession_SupersededTargetSurfaces() {
	ctx := context.Background()
	targetID := uuid.NewString()
	target := &domain.LedgerEntry{EntryID: targetID, Kind: domain.KindSession, Status: domain.StatusVoid}

	req := suite.customSessionRequest("60.00", suite.studentA)
	resolution := suite.resolutionFor(suite.studentA)

	suite.mockEntryRepo.On("FindEntryByID", ctx, targetID).Return(target, nil).Once()
	suite.mockParticipantSvc.On("ResolveByIDs", ctx, req.AttendeeIDs).Return(resolution, nil).Once()
	suite.mockParticipantRepo.On("FindParentsByIDs", ctx, []string{suite.parent.ParentID}).
		Return(map[string]domain.Parent{suite.parent.ParentID: suite.parent}, nil).Once()
	suite.mockEntryRepo.On("VoidAndReplaceEntry", ctx, targetID, mock.AnythingOfType("domain.LedgerEntry"), mock.AnythingOfType("[]domain.Charge")).
		Return(apperrors.ErrSuperseded).Once()

	replacement, err := suite.service.CorrectSession(ctx, targetID, req, suite.adminID)

	suite.Require().Error(err)
	suite.Nil(replacement)
	suite.ErrorIs(err, apperrors.ErrSuperseded)
}

func (suite *LedgerServiceTestSuite) TestCorrectPayment_Success() {
	ctx := context.Background()
	targetID := uuid.NewString()
	target := &domain.LedgerEntry{EntryID: targetID, Kind: domain.KindPayment, Status: domain.StatusActive}

	req := dto.RecordPaymentRequest{
		ParentID:    suite.parent.ParentID,
		Amount:      decimal.RequireFromString("300.00"),
		PaymentDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	suite.mockEntryRepo.On("FindEntryByID", ctx, targetID).Return(target, nil).Once()
	suite.mockParticipantRepo.On("FindParentsByIDs", ctx, []string{suite.parent.ParentID}).
		Return(map[string]domain.Parent{suite.parent.ParentID: suite.parent}, nil).Once()
	suite.mockEntryRepo.On("VoidAndReplaceEntry", ctx, targetID, mock.AnythingOfType("domain.LedgerEntry"), mock.Anything).Return(nil).Once()

	replacement, err := suite.service.CorrectPayment(ctx, targetID, req, suite.adminID)

	suite.Require().NoError(err)
	suite.Require().NotNil(replacement.CorrectedFrom)
	suite.Equal(targetID, *replacement.CorrectedFrom)
	suite.True(replacement.Amount.Equal(req.Amount))
}

// --- Reads ---

func (suite *LedgerServiceTestSuite) TestGetChain_ReturnsOldestFirst() {
	ctx := context.Background()
	rootID := uuid.NewString()
	headID := uuid.NewString()
	chain := []domain.LedgerEntry{
		{EntryID: rootID, Kind: domain.KindSession, Status: domain.StatusVoid},
		{EntryID: headID, Kind: domain.KindSession, Status: domain.StatusActive, CorrectedFrom: &rootID},
	}

	suite.mockEntryRepo.On("ChainOf", ctx, headID).Return(chain, nil).Once()

	got, err := suite.service.GetChain(ctx, headID)

	suite.Require().NoError(err)
	suite.Require().Len(got, 2)
	suite.Equal(rootID, got[0].EntryID)
	suite.Equal(headID, got[1].EntryID)
}

func (suite *LedgerServiceTestSuite) TestListEntries_ClampsLimit() {
	ctx := context.Background()
	params := dto.ListEntriesParams{ParentID: suite.parent.ParentID, Limit: 0}

	suite.mockEntryRepo.On("ListEntriesByPayer", ctx, suite.parent.ParentID, domain.KindSession, 20, (*string)(nil), false).
		Return([]domain.LedgerEntry{}, nil, nil).Once()

	_, _, err := suite.service.ListEntries(ctx, domain.KindSession, params)

	suite.Require().NoError(err)
	suite.mockEntryRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestGetPayerBalance_PaidMinusCharged() {
	ctx := context.Background()

	suite.mockParticipantRepo.On("FindParentsByIDs", ctx, []string{suite.parent.ParentID}).
		Return(map[string]domain.Parent{suite.parent.ParentID: suite.parent}, nil).Once()
	suite.mockEntryRepo.On("SumChargesByPayer", ctx, suite.parent.ParentID, true).
		Return(decimal.RequireFromString("180.00"), nil).Once()
	suite.mockEntryRepo.On("SumPaymentsByPayer", ctx, suite.parent.ParentID, true).
		Return(decimal.RequireFromString("250.00"), nil).Once()

	balance, err := suite.service.GetPayerBalance(ctx, suite.parent.ParentID, true)

	suite.Require().NoError(err)
	suite.True(balance.Balance.Equal(decimal.RequireFromString("70.00")))
	suite.True(balance.ActiveOnly)
	suite.Equal("USD", balance.CurrencyCode)
}

func (suite *LedgerServiceTestSuite) TestPreviewAllocation_UsesRules() {
	ctx := context.Background()
	rules := []allocation.Rule{{
		Name:       "sibling-discount",
		StudentIDs: []string{suite.studentA.StudentID, suite.studentB.StudentID},
		EachAmount: decimal.RequireFromString("20.00"),
	}}
	ruledService := services.NewLedgerService(suite.mockEntryRepo, suite.mockParticipantSvc, suite.mockParticipantRepo, rules)

	resolution := suite.resolutionFor(suite.studentA, suite.studentB, suite.studentC)
	ids := []string{suite.studentA.StudentID, suite.studentB.StudentID, suite.studentC.StudentID}

	suite.mockParticipantSvc.On("ResolveByIDs", ctx, ids).Return(resolution, nil).Once()

	charges, err := ruledService.PreviewAllocation(ctx, decimal.RequireFromString("100.00"), ids)

	suite.Require().NoError(err)
	suite.Require().Len(charges, 3)
	suite.True(charges[0].Amount.Equal(decimal.RequireFromString("20.00")))
	suite.True(charges[1].Amount.Equal(decimal.RequireFromString("20.00")))
	// The unruled attendee absorbs the residual.
	suite.True(charges[2].Amount.Equal(decimal.RequireFromString("60.00")))
}

func (suite *LedgerServiceTestSuite) TestFindOrphanedCharges_DedupesEntryIDs() {
	ctx := context.Background()
	entryID := uuid.NewString()
	orphans := []domain.Charge{
		{EntryID: entryID, StudentID: suite.studentA.StudentID},
		{EntryID: entryID, StudentID: suite.studentB.StudentID},
	}

	suite.mockEntryRepo.On("OrphanedCharges", ctx).Return(orphans, nil).Once()

	got, err := suite.service.FindOrphanedCharges(ctx)

	suite.Require().NoError(err)
	suite.Equal([]string{entryID}, got)
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}
