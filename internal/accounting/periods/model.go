package periods

import "time"

// Status of a fiscal period. Only locked periods refuse postings; a closed
// period still accepts late adjustments until it is locked.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
	StatusLocked Status = "locked"
)

// Period is one row of accounting_periods. Both bounds are inclusive dates.
type Period struct {
	ID        int64
	Code      string
	StartDate time.Time
	EndDate   time.Time
	Status    Status
}

func (p Period) Covers(date time.Time) bool {
	d := truncateDay(date)
	return !d.Before(truncateDay(p.StartDate)) && !d.After(truncateDay(p.EndDate))
}

func (p Period) AcceptsPostings() bool {
	return p.Status != StatusLocked
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
