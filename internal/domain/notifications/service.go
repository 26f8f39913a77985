// Package notifications turns leave events into emails: approvers hear about
// new, changed and cancelled requests; the employee hears about decisions and
// comments left by someone else.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/employee"
	"hrleave/internal/domain/leave"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Directory interface {
	List(ctx context.Context, filter employee.ListFilter) (employee.ListResult, error)
}

type Message struct {
	To      string
	Subject string
	Body    string
}

type Service struct {
	Mailer    Mailer
	Directory Directory
	From      string
}

func New(mailer Mailer, directory Directory, from string) *Service {
	return &Service{Mailer: mailer, Directory: directory, From: from}
}

// Notify sends every message the event calls for. Delivery errors are joined
// so the caller can retry the whole event.
func (s *Service) Notify(ctx context.Context, event leave.Event) error {
	approvers, err := s.approverEmails(ctx, event)
	if err != nil {
		return err
	}
	var sendErrs []error
	for _, msg := range Compose(event, approvers) {
		if err := s.Mailer.Send(ctx, s.From, msg.To, msg.Subject, msg.Body); err != nil {
			slog.Warn("notification email send failed", "err", err, "type", event.Type, "request_id", event.RequestID)
			sendErrs = append(sendErrs, err)
		}
	}
	return errors.Join(sendErrs...)
}

func (s *Service) approverEmails(ctx context.Context, event leave.Event) ([]string, error) {
	if !toApprovers(event.Type) || s.Directory == nil {
		return nil, nil
	}
	var emails []string
	for _, role := range []auth.Role{auth.RoleAdmin, auth.RoleMD} {
		result, err := s.Directory.List(ctx, employee.ListFilter{Role: role})
		if err != nil {
			return nil, fmt.Errorf("list approvers: %w", err)
		}
		for _, emp := range result.Employees {
			if emp.ID != event.ActorID {
				emails = append(emails, emp.Email)
			}
		}
	}
	return emails, nil
}

func toApprovers(t leave.EventType) bool {
	return t == leave.EventSubmitted || t == leave.EventUpdated || t == leave.EventCancelled
}

// Compose builds the messages for an event. Employees are not told about
// their own actions.
func Compose(event leave.Event, approvers []string) []Message {
	format, ok := subjects[event.Type]
	if !ok {
		return nil
	}
	body := describe(event)

	if toApprovers(event.Type) {
		subject := fmt.Sprintf(format, event.EmployeeName)
		out := make([]Message, 0, len(approvers))
		for _, to := range approvers {
			out = append(out, Message{To: to, Subject: subject, Body: body})
		}
		return out
	}

	if event.EmployeeEmail == "" || event.ActorID == event.EmployeeID {
		return nil
	}
	return []Message{{To: event.EmployeeEmail, Subject: format, Body: body}}
}

func describe(event leave.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Employee: %s\n", event.EmployeeName)
	fmt.Fprintf(&b, "Category: %s\n", event.Category)
	fmt.Fprintf(&b, "Dates: %s to %s (%s days)\n", event.From, event.To, formatDays(event.TotalDays))
	fmt.Fprintf(&b, "Status: %s\n", event.Status)
	if event.ActorName != "" {
		fmt.Fprintf(&b, "By: %s\n", event.ActorName)
	}
	if event.Comment != "" {
		fmt.Fprintf(&b, "\n%s\n", event.Comment)
	}
	return b.String()
}

func formatDays(days float64) string {
	if days == float64(int64(days)) {
		return fmt.Sprintf("%d", int64(days))
	}
	return fmt.Sprintf("%.1f", days)
}
