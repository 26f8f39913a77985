package reports

import (
	"strings"
	"time"

	"hrleave/internal/domain/errs"
	"hrleave/internal/domain/leave"
)

type RangeKind string

const (
	RangeAll       RangeKind = "all"
	RangeThisMonth RangeKind = "thisMonth"
	RangeLastMonth RangeKind = "lastMonth"
	RangeThisYear  RangeKind = "thisYear"
	RangeCustom    RangeKind = "custom"
)

// ParseRange accepts the canonical names case-insensitively; empty means all.
func ParseRange(value string) (RangeKind, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return RangeAll, nil
	}
	for _, kind := range []RangeKind{RangeAll, RangeThisMonth, RangeLastMonth, RangeThisYear, RangeCustom} {
		if strings.EqualFold(value, string(kind)) {
			return kind, nil
		}
	}
	return "", errs.Validation("unknown range %q", value)
}

// Bounds returns the half-open [start, end) window on the request From date.
// today is the current date in the organisation's timezone; from and to are
// only read for RangeCustom, where both are required and inclusive.
func Bounds(kind RangeKind, today time.Time, from, to *time.Time) (start, end *time.Time, err error) {
	y, m, _ := today.Date()
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)

	switch kind {
	case RangeAll, "":
		return nil, nil, nil
	case RangeThisMonth:
		return window(monthStart, monthStart.AddDate(0, 1, 0))
	case RangeLastMonth:
		return window(monthStart.AddDate(0, -1, 0), monthStart)
	case RangeThisYear:
		yearStart := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		return window(yearStart, yearStart.AddDate(1, 0, 0))
	case RangeCustom:
		var fields errs.Fields
		if from == nil {
			fields.Add("from", "is required for a custom range")
		}
		if to == nil {
			fields.Add("to", "is required for a custom range")
		}
		if from != nil && to != nil && to.Before(*from) {
			fields.Add("to", "must be on or after from")
		}
		if err := fields.Err(); err != nil {
			return nil, nil, err
		}
		return window(leave.DateOnly(*from), leave.DateOnly(*to).AddDate(0, 0, 1))
	}
	return nil, nil, errs.Validation("unknown range %q", kind)
}

func window(start, end time.Time) (*time.Time, *time.Time, error) {
	return &start, &end, nil
}
