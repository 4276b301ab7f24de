package domain

import "github.com/shopspring/decimal"

// StudentStatus indicates whether a student is currently enrolled.
type StudentStatus string

const (
	StudentActive   StudentStatus = "ACTIVE"
	StudentInactive StudentStatus = "INACTIVE"
)

// Parent is the paying party for one or more students. Currency is stored
// per payer and never converted.
type Parent struct {
	ParentID     string `json:"parentID"` // Primary Key (UUID)
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	CurrencyCode string `json:"currencyCode"`
	AuditFields
}

// Student is a session participant. Every student resolves to exactly one
// responsible payer via ParentID.
type Student struct {
	StudentID  string          `json:"studentID"` // Primary Key (UUID)
	ParentID   string          `json:"parentID"`  // FK -> parents.parent_id
	FirstName  string          `json:"firstName"`
	LastName   string          `json:"lastName"`
	Grade      *int            `json:"grade,omitempty"`
	HourlyCost decimal.Decimal `json:"hourlyCost"` // Planned per-lesson cost from enrolment
	Status     StudentStatus   `json:"status"`
	AuditFields
}

// FullName returns the student's display name as used by the backfill
// name-matching fallback.
func (s *Student) FullName() string {
	switch {
	case s.FirstName == "" && s.LastName == "":
		return ""
	case s.LastName == "":
		return s.FirstName
	case s.FirstName == "":
		return s.LastName
	default:
		return s.FirstName + " " + s.LastName
	}
}

// SessionTemplate describes a recurring session: which students attend,
// with which teacher, for which subject and weekly slot. Template IDs are
// deterministic so re-deriving a template from its natural key always
// yields the same identifier.
type SessionTemplate struct {
	TemplateID  string          `json:"templateID"` // Deterministic UUID (v5 over natural key)
	TeacherID   string          `json:"teacherID"`
	Subject     string          `json:"subject"`
	LessonIndex int             `json:"lessonIndex"` // Nth weekly lesson of this group
	StudentIDs  []string        `json:"studentIDs"`  // Canonically sorted
	TotalCost   decimal.Decimal `json:"totalCost"`   // Planned cost per occurrence
	AuditFields
}
