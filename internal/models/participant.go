package models

import "github.com/shopspring/decimal"

// Parent maps one row of the parents table.
type Parent struct {
	ParentID     string `json:"parentID"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	CurrencyCode string `json:"currencyCode"`
	AuditFields
}

// Student maps one row of the students table.
type Student struct {
	StudentID  string          `json:"studentID"`
	ParentID   string          `json:"parentID"`
	FirstName  string          `json:"firstName"`
	LastName   string          `json:"lastName"`
	Grade      *int            `json:"grade"`
	HourlyCost decimal.Decimal `json:"hourlyCost"`
	Status     string          `json:"status"`
	AuditFields
}

// SessionTemplate maps one row of the session_templates table; participant
// IDs come from the template_participants join table.
type SessionTemplate struct {
	TemplateID  string          `json:"templateID"`
	TeacherID   string          `json:"teacherID"`
	Subject     string          `json:"subject"`
	LessonIndex int             `json:"lessonIndex"`
	StudentIDs  []string        `json:"studentIDs"`
	TotalCost   decimal.Decimal `json:"totalCost"`
	AuditFields
}
