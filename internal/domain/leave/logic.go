package leave

import (
	"errors"
	"strings"
	"time"

	"hrleave/internal/domain/errs"
)

const halfDayLength = 0.5

var errNoWorkingDays = errors.New("no working days in range")

// RequestDays is 0.5 for half-day requests whatever the span, otherwise the
// calendar's working-day count.
func RequestDays(cal Calendar, from, to time.Time, halfDay bool) (float64, error) {
	if DateOnly(to).Before(DateOnly(from)) {
		return 0, errors.New("end date before start date")
	}
	if halfDay {
		return halfDayLength, nil
	}
	days, err := cal.WorkingDays(from, to)
	if err != nil {
		return 0, err
	}
	if days == 0 {
		return 0, errNoWorkingDays
	}
	return float64(days), nil
}

// validateRequest checks the whole request and fills TotalDays.
// today is the caller-local calendar date used by the backdating rule.
func validateRequest(cal Calendar, req *Request, today time.Time) error {
	var fields errs.Fields
	if !req.Category.Valid() {
		fields.Add("category", "must be one of annual, sick, maternity, paternity, nopay, fr")
	}
	if req.From.IsZero() {
		fields.Add("from", "is required")
	}
	if req.To.IsZero() {
		fields.Add("to", "is required")
	}
	if strings.TrimSpace(req.Reason) == "" {
		fields.Add("reason", "is required")
	}
	if req.Priority == "" {
		req.Priority = PriorityMedium
	}
	if !req.Priority.Valid() {
		fields.Add("priority", "must be one of low, medium, high, urgent")
	}
	if req.IsHalfDay {
		if !req.HalfDayPeriod.Valid() {
			fields.Add("halfDayPeriod", "must be morning or afternoon")
		}
	} else {
		req.HalfDayPeriod = ""
	}

	if !req.From.IsZero() && !req.To.IsZero() {
		req.From, req.To = DateOnly(req.From), DateOnly(req.To)
		if req.To.Before(req.From) {
			fields.Add("to", "must be on or after from")
		} else if req.From.Before(DateOnly(today)) && !backdatingAllowed(req.Priority, req.Category) {
			fields.Add("from", "must not be in the past unless priority is urgent or category is sick")
		} else {
			days, err := RequestDays(cal, req.From, req.To, req.IsHalfDay)
			if err != nil {
				fields.Add("to", "range contains no working days")
			}
			req.TotalDays = days
		}
	}
	return fields.Err()
}

func backdatingAllowed(priority Priority, category Category) bool {
	return priority == PriorityUrgent || category == CategorySick
}

func trimRequest(req *Request) {
	req.Reason = strings.TrimSpace(req.Reason)
	req.Replacement = strings.TrimSpace(req.Replacement)
	req.EmergencyContact = strings.TrimSpace(req.EmergencyContact)
	req.AttachmentURL = strings.TrimSpace(req.AttachmentURL)
	req.DoctorCertificate = strings.TrimSpace(req.DoctorCertificate)
}
