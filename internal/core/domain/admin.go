package domain

// PrivilegeLevel defines the privilege of an admin account.
type PrivilegeLevel string

const (
	PrivilegeReadOnly PrivilegeLevel = "READONLY"
	PrivilegeNormal   PrivilegeLevel = "NORMAL"
	PrivilegeMaster   PrivilegeLevel = "MASTER"
)

// Valid reports whether the level is one of the three known privileges.
func (p PrivilegeLevel) Valid() bool {
	switch p {
	case PrivilegeReadOnly, PrivilegeNormal, PrivilegeMaster:
		return true
	}
	return false
}

// AdminAccount represents an administrator of the ledger. Invariant: at all
// times exactly one account holds PrivilegeMaster; the governance guard
// enforces this inside the same transaction as any admin mutation.
type AdminAccount struct {
	AdminID      string         `json:"adminID"` // Shared with the underlying user identity
	DisplayName  string         `json:"displayName"`
	PasswordHash string         `json:"-"`
	Privilege    PrivilegeLevel `json:"privilege"`
	AuditFields
}
