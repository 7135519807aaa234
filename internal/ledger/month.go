package ledger

import (
	"fmt"
	"time"
)

// Month identifies one allowance period (the reset cycle is a calendar
// month).
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the period containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// String renders the period as "YYYY-MM".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Bounds returns the half-open [start, end) UTC range of the period.
func (m Month) Bounds() (time.Time, time.Time) {
	start := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Days is the true calendar length of the period.
func (m Month) Days() int {
	start, end := m.Bounds()
	return int(end.Sub(start).Hours() / 24)
}

// Contains reports whether the calendar day of t falls inside the period.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}
