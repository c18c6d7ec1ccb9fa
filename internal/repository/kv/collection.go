// Package kv implements the repositories over whole-collection blobs held by
// the store adapter.
package kv

import (
	"context"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/store"
)

type collection[T any] struct {
	adapter *store.Adapter
	name    string
	id      func(T) string
}

func (c collection[T]) List(ctx context.Context) ([]T, error) {
	return store.Read[T](ctx, c.adapter, c.name)
}

func (c collection[T]) Get(ctx context.Context, id string) (*T, error) {
	records, err := store.Read[T](ctx, c.adapter, c.name)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if c.id(records[i]) == id {
			return &records[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (c collection[T]) Put(ctx context.Context, record *T) error {
	_, err := store.Update(ctx, c.adapter, c.name, func(records []T) ([]T, error) {
		id := c.id(*record)
		for i := range records {
			if c.id(records[i]) == id {
				records[i] = *record
				return records, nil
			}
		}
		return append(records, *record), nil
	})
	return err
}

// Delete removes the record by id. Nothing else is touched; records in other
// collections that reference it are left dangling.
func (c collection[T]) Delete(ctx context.Context, id string) error {
	_, err := store.Update(ctx, c.adapter, c.name, func(records []T) ([]T, error) {
		kept := records[:0]
		found := false
		for _, r := range records {
			if c.id(r) == id {
				found = true
				continue
			}
			kept = append(kept, r)
		}
		if !found {
			return nil, repository.ErrNotFound
		}
		return kept, nil
	})
	return err
}

type PatientRepository struct {
	collection[model.Patient]
}

var _ repository.PatientRepository = (*PatientRepository)(nil)

func NewPatientRepository(a *store.Adapter) *PatientRepository {
	return &PatientRepository{collection[model.Patient]{
		adapter: a,
		name:    store.CollectionPatients,
		id:      func(p model.Patient) string { return p.ID },
	}}
}

type AppointmentRepository struct {
	collection[model.Appointment]
}

var _ repository.AppointmentRepository = (*AppointmentRepository)(nil)

func NewAppointmentRepository(a *store.Adapter) *AppointmentRepository {
	return &AppointmentRepository{collection[model.Appointment]{
		adapter: a,
		name:    store.CollectionAppointments,
		id:      func(a model.Appointment) string { return a.ID },
	}}
}

type TreatmentRepository struct {
	collection[model.Treatment]
}

var _ repository.TreatmentRepository = (*TreatmentRepository)(nil)

func NewTreatmentRepository(a *store.Adapter) *TreatmentRepository {
	return &TreatmentRepository{collection[model.Treatment]{
		adapter: a,
		name:    store.CollectionTreatments,
		id:      func(t model.Treatment) string { return t.ID },
	}}
}
