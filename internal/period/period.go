// Package period models the calendar-month billing window.
package period

import (
	"errors"
	"fmt"
	"time"
)

// Period is a half-open calendar-month window [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

var ErrInvalidPeriodKey = errors.New("invalid_period_key")

// ForMonth builds the period covering the month containing t.
func ForMonth(t time.Time) Period {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}

// Previous returns the calendar month before the one containing now.
func Previous(now time.Time) Period {
	return ForMonth(ForMonth(now).Start.AddDate(0, 0, -1))
}

// Parse resolves a "YYYY-MM" key into its period.
func Parse(key string) (Period, error) {
	start, err := time.ParseInLocation("2006-01", key, time.UTC)
	if err != nil {
		return Period{}, ErrInvalidPeriodKey
	}
	return ForMonth(start), nil
}

// Key returns the "YYYY-MM" identifier for the period.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Start.Year(), int(p.Start.Month()))
}

// Contains reports whether t falls inside the window.
func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(p.Start) && t.Before(p.End)
}

// InGraceWindow reports whether now is within the first graceDays calendar days
// of the month following the period. Statement generation for a period only
// runs inside this window.
func (p Period) InGraceWindow(now time.Time, graceDays int) bool {
	now = now.UTC()
	if graceDays <= 0 {
		return false
	}
	return !now.Before(p.End) && now.Before(p.End.AddDate(0, 0, graceDays))
}
