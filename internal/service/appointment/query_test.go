package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-api/internal/model"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func at(t time.Time) model.DateTime { return model.NewDateTime(t) }

func TestNextAndLastVisit(t *testing.T) {
	appts := []model.Appointment{
		{ID: "past", AppointmentDate: at(now.Add(-24 * time.Hour)), Status: model.AppointmentStatusCompleted, Cost: 100},
		{ID: "future", AppointmentDate: at(now.Add(24 * time.Hour)), Status: model.AppointmentStatusScheduled, Cost: 200},
	}

	next := Next(appts, now)
	require.NotNil(t, next)
	assert.Equal(t, "future", next.ID)

	last := LastVisit(appts)
	require.NotNil(t, last)
	assert.Equal(t, "past", last.ID)
}

func TestNextAndLastVisit_None(t *testing.T) {
	assert.Nil(t, Next(nil, now))
	assert.Nil(t, LastVisit([]model.Appointment{{Status: model.AppointmentStatusScheduled}}))
}

func TestUpcoming_SortedAndStrict(t *testing.T) {
	appts := []model.Appointment{
		{ID: "c", AppointmentDate: at(now.Add(3 * time.Hour))},
		{ID: "now", AppointmentDate: at(now)},
		{ID: "a", AppointmentDate: at(now.Add(time.Hour))},
		{ID: "b", AppointmentDate: at(now.Add(2 * time.Hour))},
	}

	got := Upcoming(appts, now)
	ids := make([]string, len(got))
	for i, a := range got {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestLastVisit_MostRecentCompleted(t *testing.T) {
	appts := []model.Appointment{
		{ID: "old", AppointmentDate: at(now.AddDate(0, -2, 0)), Status: model.AppointmentStatusCompleted},
		{ID: "cancelled", AppointmentDate: at(now.AddDate(0, 0, -1)), Status: model.AppointmentStatusCancelled},
		{ID: "recent", AppointmentDate: at(now.AddDate(0, 0, -7)), Status: model.AppointmentStatusCompleted},
	}
	assert.Equal(t, "recent", LastVisit(appts).ID)
}

func TestFilter_TodayAndSearch(t *testing.T) {
	appts := []model.Appointment{
		{ID: "1", Title: "Toothache", AppointmentDate: at(now.Add(-2 * time.Hour)), Status: model.AppointmentStatusScheduled},
		{ID: "2", Title: "Checkup", AppointmentDate: at(now.Add(72 * time.Hour)), Status: model.AppointmentStatusScheduled},
	}

	got := Filter(appts, model.AppointmentFilter{Filter: "today", Search: "tooth"}, now, time.UTC)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestFilter(t *testing.T) {
	appts := []model.Appointment{
		{ID: "1", Title: "Cleaning", PatientName: "John Doe", Status: model.AppointmentStatusCompleted, AppointmentDate: at(now)},
		{ID: "2", Title: "Filling", Comments: "left molar", Status: model.AppointmentStatusFollowUp, AppointmentDate: at(now)},
		{ID: "3", Title: "Extraction", PatientID: "p7", Treatment: "Surgery", Status: model.AppointmentStatusCancelled, AppointmentDate: at(now)},
	}

	tests := []struct {
		name   string
		filter model.AppointmentFilter
		want   []string
	}{
		{"all", model.AppointmentFilter{Filter: "all"}, []string{"1", "2", "3"}},
		{"empty means all", model.AppointmentFilter{}, []string{"1", "2", "3"}},
		{"status case-insensitive", model.AppointmentFilter{Filter: "COMPLETED"}, []string{"1"}},
		{"follow-up", model.AppointmentFilter{Filter: "follow-up"}, []string{"2"}},
		{"unknown status", model.AppointmentFilter{Filter: "pending"}, nil},
		{"search comments", model.AppointmentFilter{Search: "MOLAR"}, []string{"2"}},
		{"search patient id", model.AppointmentFilter{Search: "p7"}, []string{"3"}},
		{"search treatment", model.AppointmentFilter{Search: "surg"}, []string{"3"}},
		{"search patient name", model.AppointmentFilter{Search: "doe"}, []string{"1"}},
		{"and-combined", model.AppointmentFilter{Filter: "cancelled", Search: "clean"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(appts, tt.filter, now, time.UTC)
			var ids []string
			for _, a := range got {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFilter_TodayUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 16:00 UTC on the 15th is already the 16th in Tokyo.
	appts := []model.Appointment{{ID: "late", AppointmentDate: at(time.Date(2025, 6, 15, 16, 0, 0, 0, time.UTC))}}
	morning := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	assert.Len(t, Filter(appts, model.AppointmentFilter{Filter: "today"}, morning, time.UTC), 1)
	assert.Empty(t, Filter(appts, model.AppointmentFilter{Filter: "today"}, morning, tokyo))
}

func TestForPatient(t *testing.T) {
	appts := []model.Appointment{
		{ID: "by-id", PatientID: "p1", PatientName: "Someone Else"},
		{ID: "by-name", PatientID: "p9", PatientName: "John Doe"},
		{ID: "other", PatientID: "p2", PatientName: "Jane Roe"},
	}
	sess := &model.Session{User: model.User{Role: model.RolePatient, Name: "John Doe", PatientID: "p1"}}

	got := ForPatient(appts, sess)
	require.Len(t, got, 1)
	assert.Equal(t, "by-id", got[0].ID)

	renamed := sess.Clone()
	renamed.Name = "Jane Roe"
	got = ForPatient(appts, renamed)
	require.Len(t, got, 1)
	assert.Equal(t, "by-id", got[0].ID)

	assert.Empty(t, ForPatient(appts, nil))
	assert.Empty(t, ForPatient(appts, &model.Session{User: model.User{Role: model.RolePatient, Name: "John Doe"}}))
}

func TestOnDay(t *testing.T) {
	appts := []model.Appointment{
		{ID: "late", AppointmentDate: at(time.Date(2025, 6, 15, 17, 0, 0, 0, time.UTC))},
		{ID: "early", AppointmentDate: at(time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC))},
		{ID: "next-day", AppointmentDate: at(time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC))},
		{ID: "other-year", AppointmentDate: at(time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC))},
	}

	got := OnDay(appts, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), time.UTC)
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].ID)
	assert.Equal(t, "late", got[1].ID)
}

func TestWeekOf(t *testing.T) {
	appts := []model.Appointment{
		{ID: "sun", AppointmentDate: at(time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC))},
		{ID: "sat", AppointmentDate: at(time.Date(2025, 6, 21, 9, 0, 0, 0, time.UTC))},
		{ID: "next-sun", AppointmentDate: at(time.Date(2025, 6, 22, 9, 0, 0, 0, time.UTC))},
	}

	// Wednesday 18 June 2025.
	week := WeekOf(appts, time.Date(2025, 6, 18, 15, 0, 0, 0, time.UTC), time.UTC)
	require.Len(t, week, 7)
	assert.Equal(t, "2025-06-15", week[0].Date)
	assert.Equal(t, "2025-06-21", week[6].Date)
	assert.Len(t, week[0].Appointments, 1)
	assert.Len(t, week[6].Appointments, 1)
	assert.Empty(t, week[3].Appointments)
}

func TestMonth(t *testing.T) {
	appts := []model.Appointment{
		{ID: "a", AppointmentDate: at(time.Date(2025, 2, 28, 9, 0, 0, 0, time.UTC))},
	}

	grid := Month(appts, 2025, time.February, time.UTC)
	assert.Equal(t, 2025, grid.Year)
	assert.Equal(t, 2, grid.Month)
	// 1 February 2025 is a Saturday.
	assert.Equal(t, 6, grid.LeadingBlanks)
	require.Len(t, grid.Days, 28)
	assert.Len(t, grid.Days[27].Appointments, 1)
	assert.Equal(t, "2025-02-28", grid.Days[27].Date)
}

func TestOnDay_ZonelessInClinicZone(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	late, err := model.ParseDateTimeIn("2025-06-05T01:00", newYork)
	require.NoError(t, err)
	appts := []model.Appointment{{ID: "early-morning", AppointmentDate: late}}

	june5 := time.Date(2025, time.June, 5, 0, 0, 0, 0, newYork)
	june4 := time.Date(2025, time.June, 4, 0, 0, 0, 0, newYork)
	assert.Len(t, OnDay(appts, june5, newYork), 1)
	assert.Empty(t, OnDay(appts, june4, newYork))
}
