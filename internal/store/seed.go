package store

import (
	"context"
	"strconv"
	"time"

	"github.com/jwalitptl/dental-api/internal/model"
)

func DemoPatients() []model.Patient {
	return []model.Patient{
		{
			ID:         "p1",
			Name:       "John Doe",
			DOB:        "1990-05-10",
			Contact:    "1234567890",
			HealthInfo: "No allergies",
			Visits:     1,
		},
	}
}

// DemoAppointments returns one appointment scheduled for the day after now.
func DemoAppointments(now time.Time) []model.Appointment {
	next := model.NewDateTime(now.Add(7 * 24 * time.Hour))
	return []model.Appointment{
		{
			ID:                  "i" + strconv.FormatInt(now.UnixMilli(), 10),
			PatientID:           "p1",
			PatientName:         "John Doe",
			Title:               "Toothache",
			Description:         "Upper molar pain",
			Comments:            "Sensitive to cold",
			AppointmentDate:     model.NewDateTime(now.Add(24 * time.Hour)),
			Cost:                150,
			Treatment:           "Root canal treatment",
			Status:              model.AppointmentStatusScheduled,
			NextAppointmentDate: &next,
			Files: []model.File{
				{Name: "invoice.pdf", URL: "/assets/invoice.pdf", Type: model.FileTypePDF},
				{Name: "xray.png", URL: "/assets/xray.png", Type: model.FileTypeImage},
			},
			CreatedAt: model.NewDateTime(now),
		},
	}
}

func DemoTreatments() []model.Treatment {
	return []model.Treatment{
		{
			ID:        "t1",
			PatientID: "p1",
			Name:      "Root Canal",
			Status:    model.TreatmentStatusCompleted,
			Cost:      500,
			Date:      model.NewDate(2025, time.June, 20),
		},
	}
}

// SeedDemoData initializes every absent collection with demo records.
func SeedDemoData(ctx context.Context, a *Adapter, now time.Time) error {
	if _, err := ReadOrInitialize(ctx, a, CollectionPatients, DemoPatients()); err != nil {
		return err
	}
	if _, err := ReadOrInitialize(ctx, a, CollectionAppointments, DemoAppointments(now)); err != nil {
		return err
	}
	if _, err := ReadOrInitialize(ctx, a, CollectionTreatments, DemoTreatments()); err != nil {
		return err
	}
	return nil
}
