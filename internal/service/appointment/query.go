package appointment

import (
	"sort"
	"strings"
	"time"

	"github.com/jwalitptl/dental-api/internal/model"
)

const (
	FilterAll   = "all"
	FilterToday = "today"
)

// Filter applies the list view's filter and search. filter is "all",
// "today" (same calendar date as now in loc) or a status compared
// case-insensitively. search is a case-insensitive substring over the
// descriptive fields. Both must match.
func Filter(appts []model.Appointment, f model.AppointmentFilter, now time.Time, loc *time.Location) []model.Appointment {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]model.Appointment, 0, len(appts))
	for _, a := range appts {
		if matchesFilter(a, f.Filter, now, loc) && matchesSearch(a, term) {
			out = append(out, a)
		}
	}
	return out
}

func matchesFilter(a model.Appointment, filter string, now time.Time, loc *time.Location) bool {
	switch strings.ToLower(strings.TrimSpace(filter)) {
	case "", FilterAll:
		return true
	case FilterToday:
		return sameDay(a.AppointmentDate.Time, now, loc)
	default:
		return strings.EqualFold(string(a.Status), filter)
	}
}

func matchesSearch(a model.Appointment, term string) bool {
	if term == "" {
		return true
	}
	for _, field := range []string{a.Title, a.Description, a.PatientID, a.Comments, a.Treatment, a.PatientName} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// Upcoming returns appointments strictly after now, earliest first.
func Upcoming(appts []model.Appointment, now time.Time) []model.Appointment {
	out := make([]model.Appointment, 0, len(appts))
	for _, a := range appts {
		if a.AppointmentDate.After(now) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AppointmentDate.Before(out[j].AppointmentDate.Time)
	})
	return out
}

// Next is the earliest upcoming appointment, or nil.
func Next(appts []model.Appointment, now time.Time) *model.Appointment {
	upcoming := Upcoming(appts, now)
	if len(upcoming) == 0 {
		return nil
	}
	return &upcoming[0]
}

// Completed returns completed appointments, most recent first.
func Completed(appts []model.Appointment) []model.Appointment {
	out := make([]model.Appointment, 0, len(appts))
	for _, a := range appts {
		if a.Status == model.AppointmentStatusCompleted {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AppointmentDate.After(out[j].AppointmentDate.Time)
	})
	return out
}

// LastVisit is the most recent completed appointment, or nil.
func LastVisit(appts []model.Appointment) *model.Appointment {
	completed := Completed(appts)
	if len(completed) == 0 {
		return nil
	}
	return &completed[0]
}

// ForPatient keeps the appointments that belong to the session's patient.
// Ownership is the patient id from the credential store; the display name
// can be edited on the session and the denormalized patientName drifts, so
// neither decides access.
func ForPatient(appts []model.Appointment, sess *model.Session) []model.Appointment {
	out := make([]model.Appointment, 0)
	if sess == nil || sess.PatientID == "" {
		return out
	}
	for _, a := range appts {
		if a.PatientID == sess.PatientID {
			out = append(out, a)
		}
	}
	return out
}

func ownedBy(a model.Appointment, sess *model.Session) bool {
	return len(ForPatient([]model.Appointment{a}, sess)) == 1
}

// DayBucket holds the appointments of one calendar day, earliest first.
type DayBucket struct {
	Date         string              `json:"date"`
	Appointments []model.Appointment `json:"appointments"`
}

// OnDay returns the appointments whose date in loc is the same calendar day
// as day, earliest first.
func OnDay(appts []model.Appointment, day time.Time, loc *time.Location) []model.Appointment {
	out := make([]model.Appointment, 0)
	for _, a := range appts {
		if sameDay(a.AppointmentDate.Time, day, loc) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AppointmentDate.Before(out[j].AppointmentDate.Time)
	})
	return out
}

func bucket(appts []model.Appointment, day time.Time, loc *time.Location) DayBucket {
	return DayBucket{
		Date:         day.In(loc).Format("2006-01-02"),
		Appointments: OnDay(appts, day, loc),
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// WeekOf returns the seven days, Sunday first, of the week containing day.
func WeekOf(appts []model.Appointment, day time.Time, loc *time.Location) []DayBucket {
	start := startOfDay(day, loc)
	start = start.AddDate(0, 0, -int(start.Weekday()))
	days := make([]DayBucket, 7)
	for i := range days {
		days[i] = bucket(appts, start.AddDate(0, 0, i), loc)
	}
	return days
}

// MonthGrid is a calendar month. LeadingBlanks is the number of empty cells
// before the 1st in a Sunday-first grid.
type MonthGrid struct {
	Year          int         `json:"year"`
	Month         int         `json:"month"`
	LeadingBlanks int         `json:"leading_blanks"`
	Days          []DayBucket `json:"days"`
}

func Month(appts []model.Appointment, year int, month time.Month, loc *time.Location) MonthGrid {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	n := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	grid := MonthGrid{
		Year:          year,
		Month:         int(month),
		LeadingBlanks: int(first.Weekday()),
		Days:          make([]DayBucket, n),
	}
	for i := 0; i < n; i++ {
		grid.Days[i] = bucket(appts, first.AddDate(0, 0, i), loc)
	}
	return grid
}
