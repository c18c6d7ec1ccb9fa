// Package dashboard computes the landing-page statistics for each role.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/service/appointment"
	"github.com/jwalitptl/dental-api/internal/service/patient"
	"github.com/jwalitptl/dental-api/internal/service/treatment"
	"github.com/jwalitptl/dental-api/pkg/messaging"
)

const (
	upcomingLimit    = 5
	topPatientsLimit = 3
	recentLimit      = 5
)

type AdminStats struct {
	TodayAppointments int                     `json:"today_appointments"`
	TotalPatients     int                     `json:"total_patients"`
	PendingTreatments int                     `json:"pending_treatments"`
	MonthlyRevenue    float64                 `json:"monthly_revenue"`
	Upcoming          []model.Appointment     `json:"upcoming"`
	TopPatients       []model.Patient         `json:"top_patients"`
	Treatments        model.TreatmentSummary  `json:"treatments"`
	RecentTreatments  []model.Treatment       `json:"recent_treatments"`
	Policy            treatment.RevenuePolicy `json:"revenue_policy"`
}

type PatientStats struct {
	NextAppointment   *model.Appointment  `json:"next_appointment"`
	LastVisit         *model.Appointment  `json:"last_visit"`
	CompletedVisits   int                 `json:"completed_visits"`
	PendingTreatments int                 `json:"pending_treatments"`
	PendingEstimate   float64             `json:"pending_estimate"`
	TotalSpent        float64             `json:"total_spent"`
	Upcoming          []model.Appointment `json:"upcoming"`
	RecentTreatments  []model.Treatment   `json:"recent_treatments"`
}

// Stats carries exactly one of Admin or Patient.
type Stats struct {
	Role        model.Role    `json:"role"`
	GeneratedAt time.Time     `json:"generated_at"`
	Admin       *AdminStats   `json:"admin,omitempty"`
	Patient     *PatientStats `json:"patient,omitempty"`
}

type Config struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type Service struct {
	appointments repository.AppointmentRepository
	patients     repository.PatientRepository
	treatments   repository.TreatmentRepository
	policy       treatment.RevenuePolicy
	loc          *time.Location
	now          func() time.Time
	cache        *cache.Cache
	logger       zerolog.Logger
}

func NewService(
	appointments repository.AppointmentRepository,
	patients repository.PatientRepository,
	treatments repository.TreatmentRepository,
	policy treatment.RevenuePolicy,
	loc *time.Location,
	cfg Config,
	logger zerolog.Logger,
) *Service {
	if loc == nil {
		loc = time.Local
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Service{
		appointments: appointments,
		patients:     patients,
		treatments:   treatments,
		policy:       policy,
		loc:          loc,
		now:          time.Now,
		cache:        cache.New(ttl, 2*ttl),
		logger:       logger,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ForSession returns the stats for the session's role, served from cache
// until the TTL passes or a collection changes.
func (s *Service) ForSession(ctx context.Context, sess *model.Session) (*Stats, error) {
	if sess == nil {
		return nil, fmt.Errorf("dashboard: no session")
	}
	key := cacheKey(sess)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*Stats), nil
	}

	var (
		stats *Stats
		err   error
	)
	if sess.IsAdmin() {
		stats, err = s.admin(ctx)
	} else {
		stats, err = s.patient(ctx, sess)
	}
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, stats)
	return stats, nil
}

func cacheKey(sess *model.Session) string {
	if sess.IsAdmin() {
		return "admin"
	}
	return "patient:" + sess.PatientID
}

func (s *Service) admin(ctx context.Context) (*Stats, error) {
	appts, patients, treatments, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	summary := treatment.Summarize(treatments)
	upcoming := appointment.Upcoming(appts, now)
	if len(upcoming) > upcomingLimit {
		upcoming = upcoming[:upcomingLimit]
	}

	return &Stats{
		Role:        model.RoleAdmin,
		GeneratedAt: now,
		Admin: &AdminStats{
			TodayAppointments: len(appointment.Filter(appts, model.AppointmentFilter{Filter: appointment.FilterToday}, now, s.loc)),
			TotalPatients:     len(patients),
			PendingTreatments: summary.PendingCount,
			MonthlyRevenue:    treatment.MonthlyRevenue(treatments, now.In(s.loc), s.policy),
			Upcoming:          upcoming,
			TopPatients:       patient.Top(patients, topPatientsLimit),
			Treatments:        summary,
			RecentTreatments:  treatment.Recent(treatments, recentLimit),
			Policy:            s.policy,
		},
	}, nil
}

func (s *Service) patient(ctx context.Context, sess *model.Session) (*Stats, error) {
	appts, _, treatments, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	own := appointment.ForPatient(appts, sess)
	ownTreatments := treatment.ForPatient(treatments, sess.PatientID)
	summary := treatment.Summarize(ownTreatments)
	upcoming := appointment.Upcoming(own, now)
	if len(upcoming) > upcomingLimit {
		upcoming = upcoming[:upcomingLimit]
	}

	return &Stats{
		Role:        model.RolePatient,
		GeneratedAt: now,
		Patient: &PatientStats{
			NextAppointment:   appointment.Next(own, now),
			LastVisit:         appointment.LastVisit(own),
			CompletedVisits:   len(appointment.Completed(own)),
			PendingTreatments: summary.PendingCount,
			PendingEstimate:   summary.PotentialRevenue,
			TotalSpent:        summary.Revenue,
			Upcoming:          upcoming,
			RecentTreatments:  treatment.Recent(ownTreatments, recentLimit),
		},
	}, nil
}

func (s *Service) load(ctx context.Context) ([]model.Appointment, []model.Patient, []model.Treatment, error) {
	appts, err := s.appointments.List(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	patients, err := s.patients.List(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list patients: %w", err)
	}
	treatments, err := s.treatments.List(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list treatments: %w", err)
	}
	return appts, patients, treatments, nil
}

// Invalidate drops every cached result.
func (s *Service) Invalidate() {
	s.cache.Flush()
}

// Subscribe invalidates the cache whenever a collection change event
// arrives on channel. It stops when ctx is cancelled.
func (s *Service) Subscribe(ctx context.Context, broker messaging.Broker, channel string) error {
	return messaging.ConsumeChanges(ctx, broker, channel, s.logger, func(evt messaging.ChangeEvent) {
		s.logger.Debug().Str("collection", evt.Collection).Msg("invalidating dashboard cache")
		s.Invalidate()
	})
}
