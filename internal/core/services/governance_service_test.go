package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/efficienttutor/tuition_ledger_app/internal/apperrors"
	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
	portsrepo "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/services"
	"github.com/efficienttutor/tuition_ledger_app/internal/core/services"
	"github.com/efficienttutor/tuition_ledger_app/internal/dto"
	"github.com/efficienttutor/tuition_ledger_app/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock AdminRepository ---
type MockAdminRepository struct {
	mock.Mock
}

// Ensure MockAdminRepository implements portsrepo.AdminRepositoryFacade
var _ portsrepo.AdminRepositoryFacade = (*MockAdminRepository)(nil)

func (m *MockAdminRepository) FindAdminByID(ctx context.Context, adminID string) (*domain.AdminAccount, error) {
	args := m.Called(ctx, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdminAccount), args.Error(1)
}

func (m *MockAdminRepository) ListAdmins(ctx context.Context) ([]domain.AdminAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AdminAccount), args.Error(1)
}

func (m *MockAdminRepository) CountMasters(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockAdminRepository) CreateAdmin(ctx context.Context, admin domain.AdminAccount) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *MockAdminRepository) BootstrapMaster(ctx context.Context, admin domain.AdminAccount) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *MockAdminRepository) UpdatePrivilege(ctx context.Context, adminID string, privilege domain.PrivilegeLevel, updatedBy string, at time.Time) error {
	args := m.Called(ctx, adminID, privilege, updatedBy, at)
	return args.Error(0)
}

func (m *MockAdminRepository) DeleteAdmin(ctx context.Context, adminID string) error {
	args := m.Called(ctx, adminID)
	return args.Error(0)
}

func (m *MockAdminRepository) TransferMaster(ctx context.Context, fromID, toID, updatedBy string, at time.Time) error {
	args := m.Called(ctx, fromID, toID, updatedBy, at)
	return args.Error(0)
}

// --- Test Suite Setup ---
type GovernanceServiceTestSuite struct {
	suite.Suite
	mockAdminRepo *MockAdminRepository
	service       portssvc.GovernanceSvcFacade
	master        domain.AdminAccount
	normal        domain.AdminAccount
}

func (suite *GovernanceServiceTestSuite) SetupTest() {
	suite.mockAdminRepo = new(MockAdminRepository)
	suite.service = services.NewGovernanceService(suite.mockAdminRepo)

	suite.master = domain.AdminAccount{
		AdminID:     uuid.NewString(),
		DisplayName: "Head Tutor",
		Privilege:   domain.PrivilegeMaster,
	}
	suite.normal = domain.AdminAccount{
		AdminID:     uuid.NewString(),
		DisplayName: "Assistant",
		Privilege:   domain.PrivilegeNormal,
	}
}

func (suite *GovernanceServiceTestSuite) expectActor(actor domain.AdminAccount) {
	account := actor
	suite.mockAdminRepo.On("FindAdminByID", mock.Anything, actor.AdminID).Return(&account, nil).Once()
}

// --- CreateAdmin ---

func (suite *GovernanceServiceTestSuite) TestCreateAdmin_Success() {
	ctx := context.Background()
	suite.expectActor(suite.master)
	suite.mockAdminRepo.On("CreateAdmin", ctx, mock.AnythingOfType("domain.AdminAccount")).Return(nil).Once()

	req := dto.CreateAdminRequest{DisplayName: "New Assistant", Password: "s3cretpass", Privilege: "NORMAL"}
	admin, err := suite.service.CreateAdmin(ctx, req, suite.master.AdminID)

	suite.Require().NoError(err)
	suite.Require().NotNil(admin)
	suite.Equal(domain.PrivilegeNormal, admin.Privilege)
	suite.NotEmpty(admin.AdminID)
	suite.NotEqual("s3cretpass", admin.PasswordHash)
	suite.mockAdminRepo.AssertExpectations(suite.T())
}

func (suite *GovernanceServiceTestSuite) TestCreateAdmin_NonMasterActorForbidden() {
	ctx := context.Background()
	suite.expectActor(suite.normal)

	req := dto.CreateAdminRequest{DisplayName: "New Assistant", Password: "s3cretpass", Privilege: "NORMAL"}
	admin, err := suite.service.CreateAdmin(ctx, req, suite.normal.AdminID)

	suite.Require().Error(err)
	suite.Nil(admin)
	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.mockAdminRepo.AssertNotCalled(suite.T(), "CreateAdmin", mock.Anything, mock.Anything)
}

func (suite *GovernanceServiceTestSuite) TestCreateAdmin_MasterPrivilegeRejected() {
	ctx := context.Background()
	suite.expectActor(suite.master)

	req := dto.CreateAdminRequest{DisplayName: "Usurper", Password: "s3cretpass", Privilege: "MASTER"}
	admin, err := suite.service.CreateAdmin(ctx, req, suite.master.AdminID)

	suite.Require().Error(err)
	suite.Nil(admin)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

// --- BootstrapMaster ---

func (suite *GovernanceServiceTestSuite) TestBootstrapMaster_Success() {
	ctx := context.Background()
	suite.mockAdminRepo.On("BootstrapMaster", ctx, mock.AnythingOfType("domain.AdminAccount")).
		Run(func(args mock.Arguments) {
			admin := args.Get(1).(domain.AdminAccount)
			suite.Equal(domain.PrivilegeMaster, admin.Privilege)
		}).Return(nil).Once()

	admin, err := suite.service.BootstrapMaster(ctx, "Head Tutor", "s3cretpass")

	suite.Require().NoError(err)
	suite.Equal(domain.PrivilegeMaster, admin.Privilege)
}

func (suite *GovernanceServiceTestSuite) TestBootstrapMaster_SecondBootstrapRejected() {
	ctx := context.Background()
	suite.mockAdminRepo.On("BootstrapMaster", ctx, mock.AnythingOfType("domain.AdminAccount")).
		Return(apperrors.ErrDuplicateMaster).Once()

	admin, err := suite.service.BootstrapMaster(ctx, "Second Master", "s3cretpass")

	suite.Require().Error(err)
	suite.Nil(admin)
	suite.ErrorIs(err, apperrors.ErrDuplicateMaster)
}

// --- UpdatePrivilege ---

func (suite *GovernanceServiceTestSuite) TestUpdatePrivilege_Success() {
	ctx := context.Background()
	suite.expectActor(suite.master)
	suite.mockAdminRepo.On("UpdatePrivilege", ctx, suite.normal.AdminID, domain.PrivilegeReadOnly, suite.master.AdminID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.UpdatePrivilege(ctx, suite.normal.AdminID, domain.PrivilegeReadOnly, suite.master.AdminID)

	suite.Require().NoError(err)
	suite.mockAdminRepo.AssertExpectations(suite.T())
}

func (suite *GovernanceServiceTestSuite) TestUpdatePrivilege_SelfChangeRejected() {
	ctx := context.Background()
	suite.expectActor(suite.master)

	err := suite.service.UpdatePrivilege(ctx, suite.master.AdminID, domain.PrivilegeNormal, suite.master.AdminID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockAdminRepo.AssertNotCalled(suite.T(), "UpdatePrivilege", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *GovernanceServiceTestSuite) TestUpdatePrivilege_PromotionToMasterRejected() {
	ctx := context.Background()
	suite.expectActor(suite.master)

	err := suite.service.UpdatePrivilege(ctx, suite.normal.AdminID, domain.PrivilegeMaster, suite.master.AdminID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrDuplicateMaster)
	suite.mockAdminRepo.AssertNotCalled(suite.T(), "UpdatePrivilege", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *GovernanceServiceTestSuite) TestUpdatePrivilege_LastMasterGuardSurfaces() {
	ctx := context.Background()
	suite.expectActor(suite.master)
	suite.mockAdminRepo.On("UpdatePrivilege", ctx, suite.normal.AdminID, domain.PrivilegeReadOnly, suite.master.AdminID, mock.AnythingOfType("time.Time")).
		Return(apperrors.ErrLastMaster).Once()

	err := suite.service.UpdatePrivilege(ctx, suite.normal.AdminID, domain.PrivilegeReadOnly, suite.master.AdminID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrLastMaster)
}

// --- DeleteAdmin ---

func (suite *GovernanceServiceTestSuite) TestDeleteAdmin_Success() {
	ctx := context.Background()
	suite.expectActor(suite.master)
	suite.mockAdminRepo.On("DeleteAdmin", ctx, suite.normal.AdminID).Return(nil).Once()

	err := suite.service.DeleteAdmin(ctx, suite.normal.AdminID, suite.master.AdminID)

	suite.Require().NoError(err)
}

func (suite *GovernanceServiceTestSuite) TestDeleteAdmin_MasterTargetRejected() {
	ctx := context.Background()
	suite.expectActor(suite.master)
	suite.mockAdminRepo.On("DeleteAdmin", ctx, suite.master.AdminID).Return(apperrors.ErrLastMaster).Once()

	err := suite.service.DeleteAdmin(ctx, suite.master.AdminID, suite.master.AdminID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrLastMaster)
}

// --- TransferMaster ---

func (suite *GovernanceServiceTestSuite) TestTransferMaster_Success() {
	ctx := context.Background()
	suite.expectActor(suite.master)
	suite.mockAdminRepo.On("TransferMaster", ctx, suite.master.AdminID, suite.normal.AdminID, suite.master.AdminID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.TransferMaster(ctx, suite.master.AdminID, suite.normal.AdminID, suite.master.AdminID)

	suite.Require().NoError(err)
	suite.mockAdminRepo.AssertExpectations(suite.T())
}

func (suite *GovernanceServiceTestSuite) TestTransferMaster_ActorMustBeSource() {
	ctx := context.Background()
	suite.expectActor(suite.master)

	// The sitting master tries to transfer somebody else's privilege.
	err := suite.service.TransferMaster(ctx, suite.normal.AdminID, uuid.NewString(), suite.master.AdminID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.mockAdminRepo.AssertNotCalled(suite.T(), "TransferMaster", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *GovernanceServiceTestSuite) TestTransferMaster_SameAccountRejected() {
	ctx := context.Background()
	suite.expectActor(suite.master)

	err := suite.service.TransferMaster(ctx, suite.master.AdminID, suite.master.AdminID, suite.master.AdminID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

// --- Authenticate ---

func (suite *GovernanceServiceTestSuite) TestAuthenticate_Success() {
	ctx := context.Background()
	hash, err := utils.HashPassword("s3cretpass")
	suite.Require().NoError(err)
	account := suite.normal
	account.PasswordHash = hash

	suite.mockAdminRepo.On("FindAdminByID", ctx, account.AdminID).Return(&account, nil).Once()

	admin, err := suite.service.Authenticate(ctx, account.AdminID, "s3cretpass")

	suite.Require().NoError(err)
	suite.Equal(account.AdminID, admin.AdminID)
}

func (suite *GovernanceServiceTestSuite) TestAuthenticate_WrongPassword() {
	ctx := context.Background()
	hash, err := utils.HashPassword("s3cretpass")
	suite.Require().NoError(err)
	account := suite.normal
	account.PasswordHash = hash

	suite.mockAdminRepo.On("FindAdminByID", ctx, account.AdminID).Return(&account, nil).Once()

	admin, err := suite.service.Authenticate(ctx, account.AdminID, "wrongpass")

	suite.Require().Error(err)
	suite.Nil(admin)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *GovernanceServiceTestSuite) TestAuthenticate_UnknownAccountSameError() {
	ctx := context.Background()
	unknownID := uuid.NewString()

	suite.mockAdminRepo.On("FindAdminByID", ctx, unknownID).Return(nil, apperrors.ErrNotFound).Once()

	admin, err := suite.service.Authenticate(ctx, unknownID, "whatever")

	suite.Require().Error(err)
	suite.Nil(admin)
	// Unknown account and bad password must be indistinguishable.
	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.NotErrorIs(err, apperrors.ErrNotFound)
}

func TestGovernanceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(GovernanceServiceTestSuite))
}
