package patient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/validator"
)

type Service struct {
	repo      repository.PatientRepository
	validator validator.Validator
	now       func() time.Time
}

func NewService(repo repository.PatientRepository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, validator: validator.New(), now: now}
}

// ListResult is one page of the filtered patient table.
type ListResult struct {
	Patients   []model.Patient
	Total      int
	Pagination model.Pagination
}

func (s *Service) List(ctx context.Context, filter model.PatientFilter) (*ListResult, error) {
	patients, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	matched := Search(patients, filter.Search)
	page := filter.Pagination.Normalize()
	return &ListResult{
		Patients:   Paginate(matched, page),
		Total:      len(matched),
		Pagination: page,
	}, nil
}

func (s *Service) All(ctx context.Context) ([]model.Patient, error) {
	patients, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (s *Service) Top(ctx context.Context, n int) ([]model.Patient, error) {
	patients, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return Top(patients, n), nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return patient, nil
}

func (s *Service) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.NewBadRequest(err.Error(), err)
	}

	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	now := s.now()
	patient := &model.Patient{
		ID:         nextID(now, existing),
		Name:       req.Name,
		DOB:        req.DOB,
		Contact:    req.Contact,
		Email:      req.Email,
		HealthInfo: req.HealthInfo,
		Visits:     req.Visits,
		CreatedAt:  model.FormatISO(now),
	}
	if err := s.repo.Put(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	return patient, nil
}

func (s *Service) Update(ctx context.Context, id string, patch *model.PatientPatch) (*model.Patient, error) {
	if err := s.validator.Validate(patch); err != nil {
		return nil, apperrors.NewBadRequest(err.Error(), err)
	}

	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	patch.Apply(patient)
	if err := s.repo.Put(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return patient, nil
}

// Delete removes only the patient. Appointments and treatments that
// reference it are kept.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return wrapNotFound(err)
	}
	return nil
}

// nextID uses the creation time in milliseconds, stepping forward past any
// id already taken.
func nextID(now time.Time, existing []model.Patient) string {
	taken := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		taken[p.ID] = struct{}{}
	}
	ms := now.UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		if _, ok := taken[id]; !ok {
			return id
		}
		ms++
	}
}

func wrapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("patient", err)
	}
	return fmt.Errorf("patient repository: %w", err)
}
