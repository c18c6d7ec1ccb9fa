package treatment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
)

type Service struct {
	repo   repository.TreatmentRepository
	policy RevenuePolicy
	loc    *time.Location
	now    func() time.Time
}

func NewService(repo repository.TreatmentRepository, policy RevenuePolicy, loc *time.Location, now func() time.Time) *Service {
	if policy == "" {
		policy = PolicyMonth
	}
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, policy: policy, loc: loc, now: now}
}

// RevenueReport is the monthly revenue figure with the month it covers.
type RevenueReport struct {
	Year   int           `json:"year"`
	Month  int           `json:"month"`
	Policy RevenuePolicy `json:"policy"`
	Amount float64       `json:"amount"`
}

func (s *Service) visible(ctx context.Context, sess *model.Session) ([]model.Treatment, error) {
	treatments, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list treatments: %w", err)
	}
	if sess.IsAdmin() {
		return treatments, nil
	}
	if sess == nil {
		return []model.Treatment{}, nil
	}
	return ForPatient(treatments, sess.PatientID), nil
}

func (s *Service) List(ctx context.Context, sess *model.Session) ([]model.Treatment, error) {
	return s.visible(ctx, sess)
}

func (s *Service) Recent(ctx context.Context, sess *model.Session, n int) ([]model.Treatment, error) {
	treatments, err := s.visible(ctx, sess)
	if err != nil {
		return nil, err
	}
	return Recent(treatments, n), nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Treatment, error) {
	t, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("treatment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("treatment repository: %w", err)
	}
	return t, nil
}

func (s *Service) Summary(ctx context.Context) (model.TreatmentSummary, error) {
	treatments, err := s.repo.List(ctx)
	if err != nil {
		return model.TreatmentSummary{}, fmt.Errorf("failed to list treatments: %w", err)
	}
	return Summarize(treatments), nil
}

func (s *Service) Revenue(ctx context.Context) (RevenueReport, error) {
	treatments, err := s.repo.List(ctx)
	if err != nil {
		return RevenueReport{}, fmt.Errorf("failed to list treatments: %w", err)
	}
	now := s.now().In(s.loc)
	return RevenueReport{
		Year:   now.Year(),
		Month:  int(now.Month()),
		Policy: s.policy,
		Amount: MonthlyRevenue(treatments, now, s.policy),
	}, nil
}
