package dto

import (
	"time"

	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
)

// CreateAdminRequest carries the data for creating an admin account.
// Privilege may be READONLY or NORMAL; MASTER accounts are only created by
// bootstrap or by a master transfer.
type CreateAdminRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
	Privilege   string `json:"privilege" binding:"required,oneof=READONLY NORMAL"`
}

// UpdatePrivilegeRequest carries a privilege change for an admin account.
type UpdatePrivilegeRequest struct {
	Privilege string `json:"privilege" binding:"required,oneof=READONLY NORMAL MASTER"`
}

// TransferMasterRequest moves the Master privilege between two accounts
// atomically.
type TransferMasterRequest struct {
	FromAdminID string `json:"fromAdminID" binding:"required,uuid"`
	ToAdminID   string `json:"toAdminID" binding:"required,uuid"`
}

// BootstrapMasterRequest creates the very first Master account on a fresh
// deployment.
type BootstrapMasterRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
}

// LoginRequest carries admin credentials.
type LoginRequest struct {
	AdminID  string `json:"adminID" binding:"required,uuid"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse returns the signed token for an authenticated admin.
type LoginResponse struct {
	Token     string `json:"token"`
	AdminID   string `json:"adminID"`
	Privilege string `json:"privilege"`
}

// AdminResponse defines the data returned for an admin account.
type AdminResponse struct {
	AdminID     string    `json:"adminID"`
	DisplayName string    `json:"displayName"`
	Privilege   string    `json:"privilege"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ToAdminResponse converts a domain AdminAccount to an AdminResponse DTO.
func ToAdminResponse(a *domain.AdminAccount) AdminResponse {
	return AdminResponse{
		AdminID:     a.AdminID,
		DisplayName: a.DisplayName,
		Privilege:   string(a.Privilege),
		CreatedAt:   a.CreatedAt,
	}
}

// ToAdminResponses converts a slice of domain AdminAccounts to DTOs.
func ToAdminResponses(admins []domain.AdminAccount) []AdminResponse {
	responses := make([]AdminResponse, len(admins))
	for i := range admins {
		responses[i] = ToAdminResponse(&admins[i])
	}
	return responses
}
