package repository

import (
	"context"
	"errors"

	"github.com/jwalitptl/dental-api/internal/model"
)

// ErrNotFound is returned when no record carries the requested id.
var ErrNotFound = errors.New("record not found")

// All repository interfaces in one file. Put inserts a record or replaces
// the one with the same id.
type (
	PatientRepository interface {
		List(ctx context.Context) ([]model.Patient, error)
		Get(ctx context.Context, id string) (*model.Patient, error)
		Put(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id string) error
	}

	AppointmentRepository interface {
		List(ctx context.Context) ([]model.Appointment, error)
		Get(ctx context.Context, id string) (*model.Appointment, error)
		Put(ctx context.Context, appointment *model.Appointment) error
		Delete(ctx context.Context, id string) error
	}

	TreatmentRepository interface {
		List(ctx context.Context) ([]model.Treatment, error)
		Get(ctx context.Context, id string) (*model.Treatment, error)
		Put(ctx context.Context, treatment *model.Treatment) error
		Delete(ctx context.Context, id string) error
	}
)
