package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	// Event is a dated, typed entry of the case timeline.
	Event struct {
		ID          int64  `json:"id"`
		Title       string `json:"title"`
		Date        Date   `json:"date"`
		Description string `json:"description"`
		Type        string `json:"type"`  // open category set, used for filtering only
		Color       Color  `json:"color"` // closed set, unknown tags fall back to ColorDefault
		Source      string `json:"source,omitempty"`
	}
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidEvent = errors.New("invalid event")
	ErrEmptyTitle   = errors.New("empty title")
	ErrEmptyType    = errors.New("empty event type")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// String returns the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// DisplayDate renders the date the way an en-US locale prints a short date (8/1/2022).
func (d Date) DisplayDate() string {
	if d.IsZero() {
		return ""
	}
	return strconv.Itoa(int(d.Month())) + "/" + strconv.Itoa(d.Day()) + "/" + strconv.Itoa(d.Year())
}

// AxisLabel renders a compact month label for timeline axes (Aug 22).
func (d Date) AxisLabel() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("Jan 06")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

// UnmarshalJSON accepts YYYY-MM-DD or a full RFC 3339 timestamp.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		*d = Date{Time: t}
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return ErrInvalidDate
	}
	y, m, day := t.Date()
	*d = Date{Time: time.Date(y, m, day, 0, 0, 0, 0, time.UTC)}
	return nil
}

// Validate checks the fields a producer must supply. Type is not checked
// against a fixed list.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return invalid(ErrEmptyTitle)
	}
	if len(e.Title) > 200 {
		return invalid(errors.New("title too long (max 200 characters)"))
	}
	if err := e.Date.Validate(); err != nil {
		return invalid(ErrInvalidDate)
	}
	if strings.TrimSpace(e.Type) == "" {
		return invalid(ErrEmptyType)
	}
	if len(e.Description) > 2000 {
		return invalid(errors.New("description too long (max 2000 characters)"))
	}
	return nil
}

// invalid wraps err so callers can match both ErrInvalidEvent and err.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
}
