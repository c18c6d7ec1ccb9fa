package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Pagination represents common pagination parameters
type Pagination struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// DefaultPageSize matches the patient table of the dashboard.
const DefaultPageSize = 5

// Normalize clamps the page to 1 and falls back to DefaultPageSize.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	return p
}

// AppointmentFilter carries the list view's filter and free-text search.
type AppointmentFilter struct {
	Filter string `json:"filter" form:"filter"`
	Search string `json:"search" form:"search"`
}

// PatientFilter carries the patient table's search and page.
type PatientFilter struct {
	Pagination
	Search string `json:"search" form:"search"`
}

// zoneless is the location for timestamps stored without an offset, such as
// the minute-precision values produced by a datetime-local input. It must be
// the clinic time zone so those values land on the clinic's calendar day.
var zoneless atomic.Pointer[time.Location]

// SetZonelessLocation sets the location zoneless timestamps are read in.
// A nil loc restores UTC.
func SetZonelessLocation(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	zoneless.Store(loc)
}

// ZonelessLocation returns the location zoneless timestamps are read in.
func ZonelessLocation() *time.Location {
	if loc := zoneless.Load(); loc != nil {
		return loc
	}
	return time.UTC
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// isoLayout matches the millisecond ISO form the dashboard stores.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// DateTime is an instant serialized as an ISO 8601 string.
type DateTime struct {
	time.Time
}

// FormatISO renders t in UTC with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func NewDateTime(t time.Time) DateTime {
	return DateTime{Time: t}
}

// ParseDateTime accepts RFC 3339 as well as zoneless second or minute
// precision values, which are read in ZonelessLocation.
func ParseDateTime(s string) (DateTime, error) {
	return ParseDateTimeIn(s, ZonelessLocation())
}

// ParseDateTimeIn is ParseDateTime with an explicit location for zoneless
// values.
func ParseDateTimeIn(s string, loc *time.Location) (DateTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return DateTime{Time: t}, nil
		}
	}
	return DateTime{}, fmt.Errorf("invalid date-time %q", s)
}

// OptionalDateTime returns nil for the zero instant and a copy of d
// otherwise.
func OptionalDateTime(d DateTime) *DateTime {
	if d.IsZero() {
		return nil
	}
	return &d
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(FormatISO(d.Time))
}

func (d *DateTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = DateTime{}
		return nil
	}
	parsed, err := ParseDateTime(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

const dateLayout = "2006-01-02"

// Date is a calendar date serialized as YYYY-MM-DD. Full timestamps are
// accepted on input.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	dt, err := ParseDateTime(s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", s)
	}
	return Date{Time: dt.Time}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
