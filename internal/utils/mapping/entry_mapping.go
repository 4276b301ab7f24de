package mapping

import (
	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
	"github.com/efficienttutor/tuition_ledger_app/internal/models"
)

// ToModelLedgerEntry converts a domain LedgerEntry to a model LedgerEntry
func ToModelLedgerEntry(d domain.LedgerEntry) models.LedgerEntry {
	m := models.LedgerEntry{
		EntryID:       d.EntryID,
		Kind:          models.EntryKind(d.Kind),
		PayerID:       d.PayerID,
		Amount:        d.Amount,
		CurrencyCode:  d.CurrencyCode,
		Status:        models.EntryStatus(d.Status),
		CorrectedFrom: d.CorrectedFrom,
		TemplateID:    d.TemplateID,
		LessonIndex:   d.LessonIndex,
		StartTime:     d.StartTime,
		EndTime:       d.EndTime,
		AuditFields:   ToModelAuditFields(d.AuditFields),
	}
	if d.VoidReason != "" {
		m.VoidReason = &d.VoidReason
	}
	if d.Notes != "" {
		m.Notes = &d.Notes
	}
	if d.TeacherID != "" {
		m.TeacherID = &d.TeacherID
	}
	if d.Subject != "" {
		m.Subject = &d.Subject
	}
	if d.CreateType != "" {
		ct := string(d.CreateType)
		m.CreateType = &ct
	}
	return m
}

// ToDomainLedgerEntry converts a model LedgerEntry to a domain LedgerEntry
func ToDomainLedgerEntry(m models.LedgerEntry) domain.LedgerEntry {
	d := domain.LedgerEntry{
		EntryID:       m.EntryID,
		Kind:          domain.EntryKind(m.Kind),
		PayerID:       m.PayerID,
		Amount:        m.Amount,
		CurrencyCode:  m.CurrencyCode,
		Status:        domain.EntryStatus(m.Status),
		CorrectedFrom: m.CorrectedFrom,
		TemplateID:    m.TemplateID,
		LessonIndex:   m.LessonIndex,
		StartTime:     m.StartTime,
		EndTime:       m.EndTime,
		AuditFields:   ToDomainAuditFields(m.AuditFields),
	}
	if m.VoidReason != nil {
		d.VoidReason = *m.VoidReason
	}
	if m.Notes != nil {
		d.Notes = *m.Notes
	}
	if m.TeacherID != nil {
		d.TeacherID = *m.TeacherID
	}
	if m.Subject != nil {
		d.Subject = *m.Subject
	}
	if m.CreateType != nil {
		d.CreateType = domain.SessionCreateType(*m.CreateType)
	}
	return d
}

// ToModelCharge converts a domain Charge to a model Charge
func ToModelCharge(d domain.Charge) models.Charge {
	return models.Charge{
		EntryID:     d.EntryID,
		StudentID:   d.StudentID,
		ParentID:    d.ParentID,
		Amount:      d.Amount,
		AuditFields: ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainCharge converts a model Charge to a domain Charge
func ToDomainCharge(m models.Charge) domain.Charge {
	return domain.Charge{
		EntryID:     m.EntryID,
		StudentID:   m.StudentID,
		ParentID:    m.ParentID,
		Amount:      m.Amount,
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainChargeSlice converts a slice of model Charges to domain Charges
func ToDomainChargeSlice(ms []models.Charge) []domain.Charge {
	ds := make([]domain.Charge, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainCharge(m)
	}
	return ds
}
