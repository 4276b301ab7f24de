package models

// PrivilegeLevel mirrors domain.PrivilegeLevel at the persistence layer.
type PrivilegeLevel string

const (
	PrivilegeReadOnly PrivilegeLevel = "READONLY"
	PrivilegeNormal   PrivilegeLevel = "NORMAL"
	PrivilegeMaster   PrivilegeLevel = "MASTER"
)

// AdminAccount maps one row of the admin_accounts table.
type AdminAccount struct {
	AdminID      string         `json:"adminID"`
	DisplayName  string         `json:"displayName"`
	PasswordHash string         `json:"-"`
	Privilege    PrivilegeLevel `json:"privilege"`
	AuditFields
}
