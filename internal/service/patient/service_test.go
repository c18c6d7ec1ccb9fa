package patient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository/kv"
	"github.com/jwalitptl/dental-api/internal/store"
	"github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/kvstore/memory"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestTop(t *testing.T) {
	patients := []model.Patient{
		{ID: "a", Visits: 2},
		{ID: "b", Visits: 9},
		{ID: "c", Visits: 2},
		{ID: "d", Visits: 5},
	}

	top := Top(patients, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "b", top[0].ID)
	assert.Equal(t, "d", top[1].ID)
	assert.Equal(t, "a", top[2].ID)
	assert.Equal(t, "a", patients[0].ID, "input left untouched")
}

func TestSearch(t *testing.T) {
	patients := []model.Patient{
		{ID: "1", Name: "John Doe", Contact: "1234567890"},
		{ID: "2", Name: "Jane Roe", Contact: "5550001", Email: "Jane@Example.com"},
	}

	assert.Len(t, Search(patients, ""), 2)
	assert.Equal(t, "1", Search(patients, "JOHN")[0].ID)
	assert.Equal(t, "1", Search(patients, "4567")[0].ID)
	assert.Equal(t, "2", Search(patients, "example.COM")[0].ID)
	assert.Empty(t, Search(patients, "nobody"))
}

func TestPaginate(t *testing.T) {
	patients := make([]model.Patient, 12)
	for i := range patients {
		patients[i].Visits = i
	}

	assert.Len(t, Paginate(patients, model.Pagination{}), 5)
	page3 := Paginate(patients, model.Pagination{Page: 3, PageSize: 5})
	require.Len(t, page3, 2)
	assert.Equal(t, 10, page3[0].Visits)
	assert.Empty(t, Paginate(patients, model.Pagination{Page: 4, PageSize: 5}))
}

func newTestService(t *testing.T) (*Service, *store.Adapter) {
	t.Helper()
	a := store.NewAdapter(memory.New())
	require.NoError(t, store.SeedDemoData(context.Background(), a, now))
	return NewService(kv.NewPatientRepository(a), func() time.Time { return now }), a
}

func TestService_CreateUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &model.CreatePatientRequest{
		Name:    "Jane Roe",
		DOB:     "1985-02-03",
		Contact: "5550001",
		Email:   "jane@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "1749988800000", created.ID)
	assert.Equal(t, "2025-06-15T12:00:00.000Z", created.CreatedAt)

	second, err := svc.Create(ctx, &model.CreatePatientRequest{Name: "Jim", Contact: "1"})
	require.NoError(t, err)
	assert.Equal(t, "1749988800001", second.ID)

	visits := 4
	info := "Penicillin allergy"
	updated, err := svc.Update(ctx, created.ID, &model.PatientPatch{Visits: &visits, HealthInfo: &info})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Visits)
	assert.Equal(t, "Jane Roe", updated.Name)

	top, err := svc.Top(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, created.ID, top[0].ID)

	badEmail := "not-an-email"
	_, err = svc.Update(ctx, created.ID, &model.PatientPatch{Email: &badEmail})
	assert.True(t, errors.HasCode(err, errors.ErrBadRequest))

	_, err = svc.Create(ctx, &model.CreatePatientRequest{Name: "No Contact"})
	assert.True(t, errors.HasCode(err, errors.ErrBadRequest))

	_, err = svc.Get(ctx, "missing")
	assert.True(t, errors.HasCode(err, errors.ErrNotFound))
}

func TestService_List(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.List(ctx, model.PatientFilter{Search: "doe"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 5, res.Pagination.PageSize)
	assert.Equal(t, "p1", res.Patients[0].ID)
}

// Deleting a patient leaves appointments that reference it in place. This
// locks in current behavior; there is no cascade.
func TestService_DeleteKeepsDanglingAppointments(t *testing.T) {
	svc, a := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, "p1"))
	_, err := svc.Get(ctx, "p1")
	assert.True(t, errors.HasCode(err, errors.ErrNotFound))

	appts, err := kv.NewAppointmentRepository(a).List(ctx)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "p1", appts[0].PatientID)

	treatments, err := kv.NewTreatmentRepository(a).List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p1", treatments[0].PatientID)

	assert.True(t, errors.HasCode(svc.Delete(ctx, "p1"), errors.ErrNotFound))
}
