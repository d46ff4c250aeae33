package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrForbiddenTransition means the rule table has no edge from the
	// current status to the requested one.
	ErrForbiddenTransition = errors.New("transition not allowed")

	// ErrBusinessRule means the transition is structurally legal but a domain
	// guard rejected it.
	ErrBusinessRule = errors.New("business rule violation")
)

// Dispatcher fans a committed transition out to side-effect handlers. It
// never reports failure to the engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, events []StatusChangedEvent)
}

// Locker serializes transitions per appointment id. A no-op implementation
// is acceptable where single-writer access is guaranteed.
type Locker interface {
	WithAppointmentLock(ctx context.Context, id uuid.UUID, fn func(ctx context.Context) error) error
}

// NopLocker runs the critical section without any locking.
type NopLocker struct{}

func (NopLocker) WithAppointmentLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Engine validates and applies appointment status transitions. History
// recording and event dispatch happen after the status write commits and are
// best-effort.
type Engine struct {
	repo    Repository
	history *Recorder
	events  Dispatcher
	locker  Locker
	now     func() time.Time
}

func NewEngine(repo Repository, history *Recorder, events Dispatcher, locker Locker) *Engine {
	if locker == nil {
		locker = NopLocker{}
	}
	return &Engine{
		repo:    repo,
		history: history,
		events:  events,
		locker:  locker,
		now:     time.Now,
	}
}

// Transition moves the appointment to target if the rule table and the
// domain guards permit it.
func (e *Engine) Transition(ctx context.Context, id uuid.UUID, target Status, actor Actor, opts TransitionOptions) (*Appointment, error) {
	var (
		updated *Appointment
		from    Status
	)

	err := e.locker.WithAppointmentLock(ctx, id, func(lockCtx context.Context) error {
		appt, err := e.repo.GetAppointmentByID(lockCtx, id)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return err
			}
			return fmt.Errorf("load appointment: %w", err)
		}

		from = NormalizeStatus(appt.Status)

		if !IsTransitionAllowed(from, target) {
			return fmt.Errorf("%w: %s -> %s (allowed from %s: %v)",
				ErrForbiddenTransition, from, target, from, AllowedTransitions(from))
		}

		if err := checkGuards(appt, target); err != nil {
			return err
		}

		// CAS on the raw stored status so a concurrent writer that slipped in
		// between load and write surfaces as a conflict.
		updated, err = e.repo.UpdateAppointmentStatus(lockCtx, id, appt.Status, target)
		if err != nil {
			if errors.Is(err, ErrStatusConflict) || errors.Is(err, ErrAppointmentNotFound) {
				return err
			}
			return fmt.Errorf("persist status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Audit and side effects are outside the transactional boundary: the
	// status change stands even if either fails.
	e.history.Record(ctx, updated, from, target, actor, opts.Reason, opts.Metadata)
	e.events.Dispatch(ctx, []StatusChangedEvent{{
		AppointmentID: updated.ID,
		From:          from,
		To:            target,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		OccurredAt:    e.now(),
		Metadata:      opts.Metadata,
	}})

	return updated, nil
}

// checkGuards applies the target-specific preconditions that go beyond state
// adjacency. Guards inspect only the loaded appointment.
func checkGuards(appt *Appointment, target Status) error {
	switch target {
	case StatusPendingMatch:
		if appt.PaymentStatus != PaymentCompleted {
			return fmt.Errorf("%w: cannot match before payment is completed (payment is %q)",
				ErrBusinessRule, appt.PaymentStatus)
		}
	case StatusPendingScheduling:
		if appt.TherapistID == nil {
			return fmt.Errorf("%w: cannot schedule without therapist assigned", ErrBusinessRule)
		}
	case StatusConfirmed:
		if appt.ScheduledAt == nil {
			return fmt.Errorf("%w: cannot confirm without a scheduled date/time", ErrBusinessRule)
		}
	}
	return nil
}
