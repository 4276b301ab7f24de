package mapping

import (
	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
	"github.com/efficienttutor/tuition_ledger_app/internal/models"
)

// ToModelAdminAccount converts a domain AdminAccount to a model AdminAccount
func ToModelAdminAccount(d domain.AdminAccount) models.AdminAccount {
	return models.AdminAccount{
		AdminID:      d.AdminID,
		DisplayName:  d.DisplayName,
		PasswordHash: d.PasswordHash,
		Privilege:    models.PrivilegeLevel(d.Privilege),
		AuditFields:  ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainAdminAccount converts a model AdminAccount to a domain AdminAccount
func ToDomainAdminAccount(m models.AdminAccount) domain.AdminAccount {
	return domain.AdminAccount{
		AdminID:      m.AdminID,
		DisplayName:  m.DisplayName,
		PasswordHash: m.PasswordHash,
		Privilege:    domain.PrivilegeLevel(m.Privilege),
		AuditFields:  ToDomainAuditFields(m.AuditFields),
	}
}
