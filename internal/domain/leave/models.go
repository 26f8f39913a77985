package leave

import (
	"time"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/employee"
)

type Category string

const (
	CategoryAnnual    Category = "annual"
	CategorySick      Category = "sick"
	CategoryMaternity Category = "maternity"
	CategoryPaternity Category = "paternity"
	CategoryNoPay     Category = "nopay"
	CategoryFR        Category = "fr"
)

var Categories = []Category{CategoryAnnual, CategorySick, CategoryMaternity, CategoryPaternity, CategoryNoPay, CategoryFR}

func (c Category) Valid() bool {
	for _, candidate := range Categories {
		if c == candidate {
			return true
		}
	}
	return false
}

// BalanceKey names the employee counter the category consumes, if any.
func (c Category) BalanceKey() (employee.BalanceKey, bool) {
	switch c {
	case CategoryAnnual:
		return employee.BalanceAnnual, true
	case CategoryFR:
		return employee.BalanceFR, true
	case CategorySick:
		return employee.BalanceSick, true
	}
	return "", false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

var Statuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusCancelled}

func (s Status) Valid() bool {
	for _, candidate := range Statuses {
		if s == candidate {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type HalfDayPeriod string

const (
	HalfDayMorning   HalfDayPeriod = "morning"
	HalfDayAfternoon HalfDayPeriod = "afternoon"
)

func (h HalfDayPeriod) Valid() bool {
	return h == HalfDayMorning || h == HalfDayAfternoon
}

type Comment struct {
	AuthorID   string    `json:"authorId" bson:"author_id"`
	AuthorName string    `json:"authorName,omitempty" bson:"author_name,omitempty"`
	Role       auth.Role `json:"role" bson:"role"`
	Text       string    `json:"text" bson:"text"`
	CreatedAt  time.Time `json:"createdAt" bson:"created_at"`
}

type Request struct {
	ID                string        `json:"id" bson:"_id"`
	EmployeeID        string        `json:"employeeId" bson:"employee_id"`
	EmployeeName      string        `json:"employeeName" bson:"employee_name"`
	Category          Category      `json:"category" bson:"category"`
	From              time.Time     `json:"from" bson:"from"`
	To                time.Time     `json:"to" bson:"to"`
	IsHalfDay         bool          `json:"isHalfDay" bson:"is_half_day"`
	HalfDayPeriod     HalfDayPeriod `json:"halfDayPeriod,omitempty" bson:"half_day_period,omitempty"`
	TotalDays         float64       `json:"totalDays" bson:"total_days"`
	Reason            string        `json:"reason" bson:"reason"`
	Replacement       string        `json:"replacement,omitempty" bson:"replacement,omitempty"`
	EmergencyContact  string        `json:"emergencyContact,omitempty" bson:"emergency_contact,omitempty"`
	AttachmentURL     string        `json:"attachmentUrl,omitempty" bson:"attachment_url,omitempty"`
	DoctorCertificate string        `json:"doctorCertificate,omitempty" bson:"doctor_certificate,omitempty"`
	Priority          Priority      `json:"priority" bson:"priority"`
	Status            Status        `json:"status" bson:"status"`
	ApprovedBy        string        `json:"approvedBy,omitempty" bson:"approved_by,omitempty"`
	ApprovedByName    string        `json:"approvedByName,omitempty" bson:"approved_by_name,omitempty"`
	ApprovedAt        *time.Time    `json:"approvedAt,omitempty" bson:"approved_at,omitempty"`
	RejectedBy        string        `json:"rejectedBy,omitempty" bson:"rejected_by,omitempty"`
	RejectedByName    string        `json:"rejectedByName,omitempty" bson:"rejected_by_name,omitempty"`
	RejectedAt        *time.Time    `json:"rejectedAt,omitempty" bson:"rejected_at,omitempty"`
	CancelledAt       *time.Time    `json:"cancelledAt,omitempty" bson:"cancelled_at,omitempty"`
	Comments          []Comment     `json:"comments" bson:"comments"`
	CreatedAt         time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt         time.Time     `json:"updatedAt" bson:"updated_at"`
}

type Submission struct {
	EmployeeID        string
	Category          Category
	From              time.Time
	To                time.Time
	IsHalfDay         bool
	HalfDayPeriod     HalfDayPeriod
	Reason            string
	Replacement       string
	EmergencyContact  string
	AttachmentURL     string
	DoctorCertificate string
	Priority          Priority
}

// Patch is an owner edit of a pending request; nil fields are left untouched.
type Patch struct {
	Category          *Category
	From              *time.Time
	To                *time.Time
	IsHalfDay         *bool
	HalfDayPeriod     *HalfDayPeriod
	Reason            *string
	Replacement       *string
	EmergencyContact  *string
	AttachmentURL     *string
	DoctorCertificate *string
	Priority          *Priority
}

func (p Patch) Empty() bool {
	return p.Category == nil && p.From == nil && p.To == nil && p.IsHalfDay == nil &&
		p.HalfDayPeriod == nil && p.Reason == nil && p.Replacement == nil &&
		p.EmergencyContact == nil && p.AttachmentURL == nil && p.DoctorCertificate == nil &&
		p.Priority == nil
}

func (p Patch) touchesSpan() bool {
	return p.From != nil || p.To != nil || p.IsHalfDay != nil || p.HalfDayPeriod != nil
}

// Apply returns a copy of req with the supplied fields replaced.
func (p Patch) Apply(req Request) Request {
	if p.Category != nil {
		req.Category = *p.Category
	}
	if p.From != nil {
		req.From = DateOnly(*p.From)
	}
	if p.To != nil {
		req.To = DateOnly(*p.To)
	}
	if p.IsHalfDay != nil {
		req.IsHalfDay = *p.IsHalfDay
	}
	if p.HalfDayPeriod != nil {
		req.HalfDayPeriod = *p.HalfDayPeriod
	}
	if !req.IsHalfDay {
		req.HalfDayPeriod = ""
	}
	if p.Reason != nil {
		req.Reason = *p.Reason
	}
	if p.Replacement != nil {
		req.Replacement = *p.Replacement
	}
	if p.EmergencyContact != nil {
		req.EmergencyContact = *p.EmergencyContact
	}
	if p.AttachmentURL != nil {
		req.AttachmentURL = *p.AttachmentURL
	}
	if p.DoctorCertificate != nil {
		req.DoctorCertificate = *p.DoctorCertificate
	}
	if p.Priority != nil {
		req.Priority = *p.Priority
	}
	return req
}

// Transition describes a guarded move out of pending. Stores apply it only
// while the stored status is still pending. With DebitBalance set, the store
// also debits the counter derived from the row it matched, in the same write.
type Transition struct {
	Status       Status
	ActorID      string
	ActorName    string
	At           time.Time
	Comment      *Comment
	DebitBalance bool
}

// Apply returns req after the transition. It does not check the current status.
func (t Transition) Apply(req Request) Request {
	at := t.At
	req.Status = t.Status
	switch t.Status {
	case StatusApproved:
		req.ApprovedBy, req.ApprovedByName, req.ApprovedAt = t.ActorID, t.ActorName, &at
	case StatusRejected:
		req.RejectedBy, req.RejectedByName, req.RejectedAt = t.ActorID, t.ActorName, &at
	case StatusCancelled:
		req.CancelledAt = &at
	}
	if t.Comment != nil {
		req.Comments = append(append([]Comment(nil), req.Comments...), *t.Comment)
	}
	req.UpdatedAt = at
	return req
}

// Debit adds Days to one employee counter's taken value.
type Debit struct {
	EmployeeID string
	Key        employee.BalanceKey
	Days       float64
}

// DebitFor returns the debit t implies for req as currently stored. The
// second value is false when t carries no debit or req's category is not
// counted.
func (t Transition) DebitFor(req Request) (Debit, bool) {
	if !t.DebitBalance || t.Status != StatusApproved {
		return Debit{}, false
	}
	key, ok := req.Category.BalanceKey()
	if !ok {
		return Debit{}, false
	}
	return Debit{EmployeeID: req.EmployeeID, Key: key, Days: req.TotalDays}, true
}

// Filter selects requests by their From date in [FromStart, FromEnd).
// Limit 0 means no limit; results are newest From first unless Ascending.
type Filter struct {
	EmployeeID string
	Status     Status
	Category   Category
	FromStart  *time.Time
	FromEnd    *time.Time
	Ascending  bool
	Limit      int
	Offset     int
}

type ListResult struct {
	Requests []Request
	Total    int
}
