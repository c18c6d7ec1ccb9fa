package appointment

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
	repo      repository.AppointmentRepository
	patients  repository.PatientRepository
	validator validator.Validator
	loc       *time.Location
	now       func() time.Time
}

func NewService(repo repository.AppointmentRepository, patients repository.PatientRepository, loc *time.Location, now func() time.Time) *Service {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      repo,
		patients:  patients,
		validator: validator.New(),
		loc:       loc,
		now:       now,
	}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// visible returns every appointment for admins and only their own for
// patients.
func (s *Service) visible(ctx context.Context, sess *model.Session) ([]model.Appointment, error) {
	appts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	if sess.IsAdmin() {
		return appts, nil
	}
	return ForPatient(appts, sess), nil
}

func (s *Service) List(ctx context.Context, sess *model.Session, f model.AppointmentFilter) ([]model.Appointment, error) {
	appts, err := s.visible(ctx, sess)
	if err != nil {
		return nil, err
	}
	return Filter(appts, f, s.now(), s.loc), nil
}

// Upcoming returns up to limit upcoming appointments; limit <= 0 means all.
func (s *Service) Upcoming(ctx context.Context, sess *model.Session, limit int) ([]model.Appointment, error) {
	appts, err := s.visible(ctx, sess)
	if err != nil {
		return nil, err
	}
	upcoming := Upcoming(appts, s.now())
	if limit > 0 && len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming, nil
}

func (s *Service) Next(ctx context.Context, sess *model.Session) (*model.Appointment, error) {
	appts, err := s.visible(ctx, sess)
	if err != nil {
		return nil, err
	}
	return Next(appts, s.now()), nil
}

func (s *Service) LastVisit(ctx context.Context, sess *model.Session) (*model.Appointment, error) {
	appts, err := s.visible(ctx, sess)
	if err != nil {
		return nil, err
	}
	return LastVisit(appts), nil
}

func (s *Service) Get(ctx context.Context, sess *model.Session, id string) (*model.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	if !sess.IsAdmin() && !ownedBy(*appt, sess) {
		return nil, apperrors.ErrPermissionDenied
	}
	return appt, nil
}

func (s *Service) Create(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.NewBadRequest(err.Error(), err)
	}

	name := req.PatientName
	if name == "" {
		p, err := s.patients.Get(ctx, req.PatientID)
		switch {
		case err == nil:
			name = p.Name
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("failed to look up patient: %w", err)
		}
	}

	status := req.Status
	if status == "" {
		status = model.AppointmentStatusScheduled
	}

	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	var next *model.DateTime
	if req.NextAppointmentDate != nil {
		next = model.OptionalDateTime(*req.NextAppointmentDate)
	}

	now := s.now()
	appt := &model.Appointment{
		ID:                  nextID(now, existing),
		PatientID:           req.PatientID,
		PatientName:         name,
		Title:               req.Title,
		Description:         req.Description,
		Comments:            req.Comments,
		AppointmentDate:     req.AppointmentDate,
		Cost:                req.Cost,
		Treatment:           req.Treatment,
		Status:              status,
		NextAppointmentDate: next,
		Files:               req.Files,
		CreatedAt:           model.NewDateTime(now),
	}
	if err := s.repo.Put(ctx, appt); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) Update(ctx context.Context, id string, patch *model.AppointmentPatch) (*model.Appointment, error) {
	if err := s.validator.Validate(patch); err != nil {
		return nil, apperrors.NewBadRequest(err.Error(), err)
	}
	return s.modify(ctx, id, func(a *model.Appointment) error {
		patch.Apply(a)
		return nil
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return wrapNotFound(err)
	}
	return nil
}

// AttachFile records file metadata on the appointment. The type is derived
// from the MIME type.
func (s *Service) AttachFile(ctx context.Context, id string, req *model.AttachFileRequest) (*model.Appointment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.NewBadRequest(err.Error(), err)
	}
	return s.modify(ctx, id, func(a *model.Appointment) error {
		a.Files = append(a.Files, model.File{
			Name: req.Name,
			URL:  req.URL,
			Type: model.ClassifyFile(req.MimeType),
			Size: req.Size,
		})
		return nil
	})
}

func (s *Service) DetachFile(ctx context.Context, id string, index int) (*model.Appointment, error) {
	return s.modify(ctx, id, func(a *model.Appointment) error {
		if index < 0 || index >= len(a.Files) {
			return apperrors.NewBadRequest("file index out of range", nil)
		}
		a.Files = append(a.Files[:index:index], a.Files[index+1:]...)
		return nil
	})
}

func (s *Service) modify(ctx context.Context, id string, fn func(*model.Appointment) error) (*model.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	if err := fn(appt); err != nil {
		return nil, err
	}
	if err := s.repo.Put(ctx, appt); err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) Day(ctx context.Context, day time.Time) (DayBucket, error) {
	appts, err := s.repo.List(ctx)
	if err != nil {
		return DayBucket{}, fmt.Errorf("failed to list appointments: %w", err)
	}
	return bucket(appts, day, s.loc), nil
}

func (s *Service) Week(ctx context.Context, day time.Time) ([]DayBucket, error) {
	appts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return WeekOf(appts, day, s.loc), nil
}

func (s *Service) Month(ctx context.Context, year int, month time.Month) (MonthGrid, error) {
	appts, err := s.repo.List(ctx)
	if err != nil {
		return MonthGrid{}, fmt.Errorf("failed to list appointments: %w", err)
	}
	return Month(appts, year, month, s.loc), nil
}

// Today returns the current date in the service's location.
func (s *Service) Today() time.Time {
	return startOfDay(s.now(), s.loc)
}

// nextID is "i" plus the creation time in milliseconds, stepping forward
// past any id already taken.
func nextID(now time.Time, existing []model.Appointment) string {
	taken := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		taken[a.ID] = struct{}{}
	}
	ms := now.UnixMilli()
	for {
		id := "i" + strconv.FormatInt(ms, 10)
		if _, ok := taken[id]; !ok {
			return id
		}
		ms++
	}
}

func wrapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("appointment", err)
	}
	return fmt.Errorf("appointment repository: %w", err)
}
