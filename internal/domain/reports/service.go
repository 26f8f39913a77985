// Package reports flattens leave requests into report rows. Encoding the
// rows into files happens in the transport layer.
package reports

import (
	"context"
	"strconv"
	"time"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/errs"
	"hrleave/internal/domain/leave"
)

type RequestLister interface {
	ListRequests(ctx context.Context, filter leave.Filter) (leave.ListResult, error)
}

type Query struct {
	EmployeeID string
	Status     leave.Status
	Category   leave.Category
	Range      RangeKind
	From       *time.Time
	To         *time.Time
}

type Row struct {
	EmployeeName     string         `json:"employeeName"`
	EmployeeID       string         `json:"employeeId"`
	Category         leave.Category `json:"category"`
	From             string         `json:"from"`
	To               string         `json:"to"`
	TotalDays        float64        `json:"totalDays"`
	Status           leave.Status   `json:"status"`
	Priority         leave.Priority `json:"priority"`
	Reason           string         `json:"reason"`
	Replacement      string         `json:"replacement"`
	EmergencyContact string         `json:"emergencyContact"`
	ApprovedByName   string         `json:"approvedByName"`
	ApprovedAt       string         `json:"approvedAt"`
	RejectedByName   string         `json:"rejectedByName"`
	RejectedAt       string         `json:"rejectedAt"`
}

// Summary counts rows per status and sums approved days per category.
type Summary struct {
	Total        int                        `json:"total"`
	ByStatus     map[leave.Status]int       `json:"byStatus"`
	ApprovedDays map[leave.Category]float64 `json:"approvedDays"`
}

type Report struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Rows        []Row     `json:"rows"`
	Summary     Summary   `json:"summary"`
}

var Header = []string{
	"Employee Name", "Employee ID", "Category", "From", "To", "Total Days",
	"Status", "Priority", "Reason", "Replacement", "Emergency Contact",
	"Approved By", "Approved At", "Rejected By", "Rejected At",
}

type Service struct {
	Requests RequestLister
	Location *time.Location
	Now      func() time.Time
}

func NewService(requests RequestLister, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{Requests: requests, Location: loc, Now: time.Now}
}

// Leave builds the leave report. Employees only ever see their own rows;
// privileged callers may narrow by EmployeeID.
func (s *Service) Leave(ctx context.Context, q Query) (Report, error) {
	caller, err := auth.RequireCaller(ctx)
	if err != nil {
		return Report{}, err
	}
	if !auth.Can(caller, auth.ActionReportAll, auth.Resource{}) {
		q.EmployeeID = caller.ID
	}
	if q.Status != "" && !q.Status.Valid() {
		return Report{}, errs.Validation("unknown status %q", q.Status)
	}
	if q.Category != "" && !q.Category.Valid() {
		return Report{}, errs.Validation("unknown category %q", q.Category)
	}

	now := s.now()
	start, end, err := Bounds(q.Range, leave.DateOnly(now.In(s.location())), q.From, q.To)
	if err != nil {
		return Report{}, err
	}

	result, err := s.Requests.ListRequests(ctx, leave.Filter{
		EmployeeID: q.EmployeeID,
		Status:     q.Status,
		Category:   q.Category,
		FromStart:  start,
		FromEnd:    end,
		Ascending:  true,
	})
	if err != nil {
		return Report{}, err
	}

	report := Report{
		GeneratedAt: now,
		Rows:        make([]Row, 0, len(result.Requests)),
		Summary: Summary{
			ByStatus:     map[leave.Status]int{},
			ApprovedDays: map[leave.Category]float64{},
		},
	}
	for _, req := range result.Requests {
		report.Rows = append(report.Rows, rowFor(req))
		report.Summary.Total++
		report.Summary.ByStatus[req.Status]++
		if req.Status == leave.StatusApproved {
			report.Summary.ApprovedDays[req.Category] += req.TotalDays
		}
	}
	return report, nil
}

func rowFor(req leave.Request) Row {
	return Row{
		EmployeeName:     req.EmployeeName,
		EmployeeID:       req.EmployeeID,
		Category:         req.Category,
		From:             req.From.Format(leave.DateLayout),
		To:               req.To.Format(leave.DateLayout),
		TotalDays:        req.TotalDays,
		Status:           req.Status,
		Priority:         req.Priority,
		Reason:           req.Reason,
		Replacement:      req.Replacement,
		EmergencyContact: req.EmergencyContact,
		ApprovedByName:   req.ApprovedByName,
		ApprovedAt:       stamp(req.ApprovedAt),
		RejectedByName:   req.RejectedByName,
		RejectedAt:       stamp(req.RejectedAt),
	}
}

func stamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Table returns the rows as string cells in Header order.
func (r Report) Table() [][]string {
	out := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		out = append(out, []string{
			row.EmployeeName,
			row.EmployeeID,
			string(row.Category),
			row.From,
			row.To,
			strconv.FormatFloat(row.TotalDays, 'f', -1, 64),
			string(row.Status),
			string(row.Priority),
			row.Reason,
			row.Replacement,
			row.EmergencyContact,
			row.ApprovedByName,
			row.ApprovedAt,
			row.RejectedByName,
			row.RejectedAt,
		})
	}
	return out
}

func (s *Service) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
