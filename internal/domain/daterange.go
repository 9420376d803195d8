package domain

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DateRange is an inclusive span of calendar dates. Start and End are UTC
// midnights.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func ParseDate(raw string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}

	return parsed, nil
}

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

func NewDateRange(start, end time.Time) (DateRange, error) {
	start = DateOf(start)
	end = DateOf(end)
	if end.Before(start) {
		return DateRange{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalidDateRange, end.Format(DateLayout), start.Format(DateLayout))
	}

	return DateRange{Start: start, End: end}, nil
}

func ParseDateRange(start, end string) (DateRange, error) {
	startDate, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	endDate, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}

	return NewDateRange(startDate, endDate)
}

func (r DateRange) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days is the number of calendar dates in the range, both ends included.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + "/" + r.End.Format(DateLayout)
}

func (r DateRange) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}
