// Package monitor aggregates read-only health metrics over the appointment
// store and the history log. Results are approximate: the snapshot is cached
// for a fixed window and only time expires it.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/calmcare/therapy-booking/internal/appointment"
)

const DefaultCacheTTL = 5 * time.Minute

// Store is the slice of the repository the monitor reads from.
type Store interface {
	CountAppointments(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[appointment.Status]int64, error)
	CountTransitions(ctx context.Context) ([]appointment.TransitionCount, error)
	CountTransitionsSince(ctx context.Context, since time.Time) (int64, error)
	SystemHealthCounts(ctx context.Context) (appointment.HealthCounts, error)
}

// SystemHealth flags drift between the persisted data and the state machine.
type SystemHealth struct {
	LegacyStatusCount      int64 `json:"legacy_status_count"`
	InconsistentStateCount int64 `json:"inconsistent_state_count"`
	MissingFieldsCount     int64 `json:"missing_fields_count"`
}

// StatusMetrics is one cached snapshot of state-machine health.
type StatusMetrics struct {
	TotalAppointments  int64                         `json:"total_appointments"`
	StatusDistribution map[appointment.Status]int64  `json:"status_distribution"`
	TransitionMatrix   []appointment.TransitionCount `json:"transition_matrix"`
	TransitionsLast24h int64                         `json:"transitions_last_24h"`
	AvgTransitionMs    int64                         `json:"avg_transition_ms"`    // not measured yet, always 0
	Health             SystemHealth                  `json:"health"`
	GeneratedAt        time.Time                     `json:"generated_at"`
}

// Report wraps a metrics snapshot with operator-facing alerts.
type Report struct {
	Metrics         StatusMetrics `json:"metrics"`
	Alerts          []string      `json:"alerts"`
	Recommendations []string      `json:"recommendations"`
}

// Service computes and caches StatusMetrics. The clock is injectable so
// tests control cache expiry.
type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	cached   *StatusMetrics
	cachedAt time.Time
}

func NewService(store Store, ttl time.Duration, now func() time.Time) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, ttl: ttl, now: now}
}

// Metrics returns the cached snapshot, recomputing it when the TTL has
// passed.
func (s *Service) Metrics(ctx context.Context) (StatusMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Sub(s.cachedAt) < s.ttl {
		return *s.cached, nil
	}

	m, err := s.compute(ctx)
	if err != nil {
		return StatusMetrics{}, err
	}

	s.cached = &m
	s.cachedAt = s.now()
	return m, nil
}

func (s *Service) compute(ctx context.Context) (StatusMetrics, error) {
	total, err := s.store.CountAppointments(ctx)
	if err != nil {
		return StatusMetrics{}, fmt.Errorf("count appointments: %w", err)
	}

	distribution, err := s.store.CountByStatus(ctx)
	if err != nil {
		return StatusMetrics{}, fmt.Errorf("status distribution: %w", err)
	}

	matrix, err := s.store.CountTransitions(ctx)
	if err != nil {
		return StatusMetrics{}, fmt.Errorf("transition matrix: %w", err)
	}

	last24h, err := s.store.CountTransitionsSince(ctx, s.now().Add(-24*time.Hour))
	if err != nil {
		return StatusMetrics{}, fmt.Errorf("rolling transition count: %w", err)
	}

	health, err := s.store.SystemHealthCounts(ctx)
	if err != nil {
		return StatusMetrics{}, fmt.Errorf("health counts: %w", err)
	}

	return StatusMetrics{
		TotalAppointments:  total,
		StatusDistribution: distribution,
		TransitionMatrix:   matrix,
		TransitionsLast24h: last24h,
		AvgTransitionMs:    0,
		Health: SystemHealth{
			LegacyStatusCount:      health.LegacyStatus,
			InconsistentStateCount: health.InconsistentState,
			MissingFieldsCount:     health.MissingFields,
		},
		GeneratedAt: s.now(),
	}, nil
}

// DetailedReport derives alerts and recommendations from the current
// snapshot.
func (s *Service) DetailedReport(ctx context.Context) (Report, error) {
	m, err := s.Metrics(ctx)
	if err != nil {
		return Report{}, err
	}

	report := Report{Metrics: m}

	if m.Health.LegacyStatusCount > 0 {
		report.Alerts = append(report.Alerts,
			fmt.Sprintf("%d appointments still carry a legacy status label", m.Health.LegacyStatusCount))
		report.Recommendations = append(report.Recommendations,
			"run the status migration to normalize legacy labels")
	}
	if m.Health.InconsistentStateCount > 0 {
		report.Alerts = append(report.Alerts,
			fmt.Sprintf("%d appointments are in logically inconsistent states", m.Health.InconsistentStateCount))
		report.Recommendations = append(report.Recommendations,
			"review inconsistent appointments against the transition history")
	}
	if m.Health.MissingFieldsCount > 0 {
		report.Alerts = append(report.Alerts,
			fmt.Sprintf("%d appointments are missing required fields", m.Health.MissingFieldsCount))
		report.Recommendations = append(report.Recommendations,
			"backfill missing status and payment fields")
	}

	return report, nil
}
