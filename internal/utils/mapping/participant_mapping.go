package mapping

import (
	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
	"github.com/efficienttutor/tuition_ledger_app/internal/models"
)

// ToDomainParent converts a model Parent to a domain Parent
func ToDomainParent(m models.Parent) domain.Parent {
	return domain.Parent{
		ParentID:     m.ParentID,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		CurrencyCode: m.CurrencyCode,
		AuditFields:  ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainStudent converts a model Student to a domain Student
func ToDomainStudent(m models.Student) domain.Student {
	return domain.Student{
		StudentID:   m.StudentID,
		ParentID:    m.ParentID,
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		Grade:       m.Grade,
		HourlyCost:  m.HourlyCost,
		Status:      domain.StudentStatus(m.Status),
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainSessionTemplate converts a model SessionTemplate to a domain SessionTemplate
func ToDomainSessionTemplate(m models.SessionTemplate) domain.SessionTemplate {
	return domain.SessionTemplate{
		TemplateID:  m.TemplateID,
		TeacherID:   m.TeacherID,
		Subject:     m.Subject,
		LessonIndex: m.LessonIndex,
		StudentIDs:  m.StudentIDs,
		TotalCost:   m.TotalCost,
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelSessionTemplate converts a domain SessionTemplate to a model SessionTemplate
func ToModelSessionTemplate(d domain.SessionTemplate) models.SessionTemplate {
	return models.SessionTemplate{
		TemplateID:  d.TemplateID,
		TeacherID:   d.TeacherID,
		Subject:     d.Subject,
		LessonIndex: d.LessonIndex,
		StudentIDs:  d.StudentIDs,
		TotalCost:   d.TotalCost,
		AuditFields: ToModelAuditFields(d.AuditFields),
	}
}
