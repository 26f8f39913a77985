package leave

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Calendar is the organisation's non-working days: a weekly rest day set
// plus dated public holidays. The zero value has no holidays at all.
type Calendar struct {
	weekly   map[time.Weekday]struct{}
	holidays map[string]struct{}
}

// DefaultWeekly is the regional weekend.
var DefaultWeekly = []time.Weekday{time.Friday}

func NewCalendar(weekly []time.Weekday, holidays []time.Time) Calendar {
	cal := Calendar{
		weekly:   make(map[time.Weekday]struct{}, len(weekly)),
		holidays: make(map[string]struct{}, len(holidays)),
	}
	for _, day := range weekly {
		cal.weekly[day] = struct{}{}
	}
	for _, date := range holidays {
		cal.holidays[date.Format(DateLayout)] = struct{}{}
	}
	return cal
}

// ParseCalendar builds a calendar from day names ("friday") and ISO dates.
// An empty weekly list falls back to DefaultWeekly.
func ParseCalendar(weekly []string, holidays []string) (Calendar, error) {
	days := make([]time.Weekday, 0, len(weekly))
	for _, name := range weekly {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		day, err := parseWeekday(name)
		if err != nil {
			return Calendar{}, err
		}
		days = append(days, day)
	}
	if len(days) == 0 {
		days = DefaultWeekly
	}

	dates := make([]time.Time, 0, len(holidays))
	for _, raw := range holidays {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if len(raw) > len(DateLayout) {
			raw = raw[:len(DateLayout)]
		}
		date, err := time.Parse(DateLayout, raw)
		if err != nil {
			return Calendar{}, fmt.Errorf("invalid holiday date %q: %w", raw, err)
		}
		dates = append(dates, date)
	}
	return NewCalendar(days, dates), nil
}

func parseWeekday(name string) (time.Weekday, error) {
	for day := time.Sunday; day <= time.Saturday; day++ {
		full := strings.ToLower(day.String())
		lower := strings.ToLower(name)
		if lower == full || lower == full[:3] {
			return day, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", name)
}

func (c Calendar) IsHoliday(date time.Time) bool {
	if _, ok := c.weekly[date.Weekday()]; ok {
		return true
	}
	_, ok := c.holidays[date.Format(DateLayout)]
	return ok
}

// WorkingDays counts the days in [from, to] that are not holidays.
func (c Calendar) WorkingDays(from, to time.Time) (int, error) {
	from, to = DateOnly(from), DateOnly(to)
	if to.Before(from) {
		return 0, errors.New("end date before start date")
	}
	count := 0
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if !c.IsHoliday(day) {
			count++
		}
	}
	return count, nil
}

// Holidays lists the dated holidays in ascending order.
func (c Calendar) Holidays() []string {
	out := make([]string, 0, len(c.holidays))
	for date := range c.holidays {
		out = append(out, date)
	}
	sort.Strings(out)
	return out
}

func (c Calendar) Weekly() []string {
	out := make([]string, 0, len(c.weekly))
	for day := time.Sunday; day <= time.Saturday; day++ {
		if _, ok := c.weekly[day]; ok {
			out = append(out, strings.ToLower(day.String()))
		}
	}
	return out
}

// DateOnly truncates t to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
