package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the textual form of a Date.
const DateLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// MaxDate is the last day whose YYYY-MM-DD form can be read back.
var MaxDate = NewDate(9999, time.December, 31)

// Date is a UTC calendar day. License validity is computed in whole days,
// so a license is valid through its end date and expired from the next day.
type Date struct {
	t time.Time
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, m, d)
}

// NewDate returns the given UTC calendar day.
func NewDate(year int, month time.Month, dayOfMonth int) Date {
	return Date{t: time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// AddDays returns d shifted by n days. n must keep the result within
// MaxDate; use Extend for counts that come from callers.
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// Extend returns d moved forward by n days. It reports false when n is not
// positive or the result would fall after MaxDate.
func (d Date) Extend(n int) (Date, bool) {
	if n <= 0 || n > d.DaysUntil(MaxDate) {
		return Date{}, false
	}
	return d.AddDays(n), true
}

// DaysUntil returns the number of whole days from d to other. It is negative
// when other is before d.
func (d Date) DaysUntil(other Date) int {
	return int((other.t.Unix() - d.t.Unix()) / secondsPerDay)
}

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }
func (d Date) IsZero() bool           { return d.t.IsZero() }

// Time returns midnight UTC of d.
func (d Date) Time() time.Time { return d.t }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	return d.UnmarshalText([]byte(s))
}
