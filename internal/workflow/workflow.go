// Package workflow is the single entry point callers use to change an
// appointment's status. It routes each call to either the transition engine
// or the legacy direct-write path, selected by an injected flag accessor so
// the rollout can be toggled at runtime.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/calmcare/therapy-booking/internal/appointment"
	"github.com/calmcare/therapy-booking/internal/events"
	"github.com/google/uuid"
)

// Service fronts the two status-change paths. The legacy path exists only
// for staged migration: it skips the rule table and the guards but produces
// the same calendar and notification side effects.
type Service struct {
	engine    *appointment.Engine
	repo      appointment.Repository
	calendar  events.CalendarSync
	notifier  events.Notifier
	useEngine func() bool
}

func NewService(engine *appointment.Engine, repo appointment.Repository, calendar events.CalendarSync, notifier events.Notifier, useEngine func() bool) *Service {
	if useEngine == nil {
		useEngine = func() bool { return true }
	}
	return &Service{
		engine:    engine,
		repo:      repo,
		calendar:  calendar,
		notifier:  notifier,
		useEngine: useEngine,
	}
}

// UpdateStatus applies a status change through whichever path the flag
// currently selects.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, target appointment.Status, actor appointment.Actor, opts appointment.TransitionOptions) (*appointment.Appointment, error) {
	if s.useEngine() {
		return s.engine.Transition(ctx, id, target, actor, opts)
	}
	return s.legacyUpdate(ctx, id, target)
}

// legacyUpdate is the pre-state-machine code path: assign the status
// directly and fire side effects inline. No validation, no guards, no
// history.
func (s *Service) legacyUpdate(ctx context.Context, id uuid.UUID, target appointment.Status) (*appointment.Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, appointment.ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, target)
	if err != nil {
		return nil, fmt.Errorf("legacy status write: %w", err)
	}

	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		log.Printf("workflow: legacy path failed to load detail for appointment %s: %v", id, err)
		return updated, nil
	}

	if err := s.calendar.SyncOnStatusChange(ctx, detail, target); err != nil {
		log.Printf("workflow: legacy calendar sync failed for appointment %s: %v", id, err)
	}
	if err := s.notifier.SendStatusChangeNotice(ctx, detail, target); err != nil {
		log.Printf("workflow: legacy notification failed for appointment %s: %v", id, err)
	}

	return updated, nil
}
