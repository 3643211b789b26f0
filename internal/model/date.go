// Package model defines the data structures used throughout the application.
package model

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day component.
//
// Practice dates ("recorded on", "followed on") are days, not instants, so they
// travel as "2024-01-01" in JSON and are stored as the same TEXT in SQLite.
// Embedding time.Time keeps Before/After/Equal available to callers.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar day in the server's local zone.
func Today() Date {
	return NewDate(time.Now())
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("model: invalid date %q: %w", s, err)
	}
	return NewDate(t), nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON writes the date as a quoted "YYYY-MM-DD" string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD". A JSON null leaves the zero Date, which
// validation treats as "missing".
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("model: date must be a string in %s format", DateLayout)
	}
	parsed, err := ParseDate(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer so a Date can be passed straight to ExecContext.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner.
//
// modernc.org/sqlite hands back TEXT columns as string, but it converts
// values from DATE-typed columns to time.Time, so both are accepted.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
	case time.Time:
		*d = NewDate(v)
	default:
		return fmt.Errorf("model: cannot scan %T into Date", src)
	}
	return nil
}
