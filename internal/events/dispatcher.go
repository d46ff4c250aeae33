// Package events fans committed status changes out to side-effect handlers.
// Dispatch is best-effort by contract: every handler failure is logged and
// swallowed, and a failure in one handler never stops the others.
package events

import (
	"context"
	"log"

	"github.com/calmcare/therapy-booking/internal/appointment"
	"github.com/google/uuid"
)

// Ports implemented by the external collaborators.

type CalendarSync interface {
	SyncOnStatusChange(ctx context.Context, appt *appointment.AppointmentDetail, newStatus appointment.Status) error
}

type Notifier interface {
	SendStatusChangeNotice(ctx context.Context, appt *appointment.AppointmentDetail, newStatus appointment.Status) error
}

type PayoutService interface {
	UpdateEligibility(ctx context.Context, appt *appointment.AppointmentDetail) error
}

// AppointmentLoader re-fetches the appointment with participant details for
// notification content.
type AppointmentLoader interface {
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*appointment.AppointmentDetail, error)
}

// DefaultDedupSize bounds the dispatcher's idempotency memory. Old
// fingerprints are evicted first-in first-out once the bound is reached.
const DefaultDedupSize = 4096

// Dispatcher routes StatusChangedEvents to the calendar, notification, and
// payout collaborators. Structurally identical events are processed at most
// once while their fingerprint remains in the dedup window.
type Dispatcher struct {
	loader   AppointmentLoader
	calendar CalendarSync
	notifier Notifier
	payouts  PayoutService
	seen     *fingerprintSet
}

func NewDispatcher(loader AppointmentLoader, calendar CalendarSync, notifier Notifier, payouts PayoutService) *Dispatcher {
	return &Dispatcher{
		loader:   loader,
		calendar: calendar,
		notifier: notifier,
		payouts:  payouts,
		seen:     newFingerprintSet(DefaultDedupSize),
	}
}

// Dispatch processes each event at most once. It never returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, evs []appointment.StatusChangedEvent) {
	for _, ev := range evs {
		fp, err := fingerprint(ev)
		if err != nil {
			log.Printf("events: failed to fingerprint event for appointment %s: %v", ev.AppointmentID, err)
			continue
		}
		if !d.seen.add(fp) {
			log.Printf("events: skipping duplicate status change %s -> %s for appointment %s",
				ev.From, ev.To, ev.AppointmentID)
			continue
		}
		d.handleStatusChanged(ctx, ev)
	}
}

func (d *Dispatcher) handleStatusChanged(ctx context.Context, ev appointment.StatusChangedEvent) {
	detail, err := d.loader.GetAppointmentDetail(ctx, ev.AppointmentID)
	if err != nil {
		log.Printf("events: failed to load appointment %s for side effects: %v", ev.AppointmentID, err)
		return
	}

	if err := d.calendar.SyncOnStatusChange(ctx, detail, ev.To); err != nil {
		log.Printf("events: calendar sync failed for appointment %s: %v", ev.AppointmentID, err)
	}

	if err := d.notifier.SendStatusChangeNotice(ctx, detail, ev.To); err != nil {
		log.Printf("events: status change notice failed for appointment %s: %v", ev.AppointmentID, err)
	}

	if ev.To == appointment.StatusCompleted {
		if err := d.payouts.UpdateEligibility(ctx, detail); err != nil {
			log.Printf("events: payout eligibility update failed for appointment %s: %v", ev.AppointmentID, err)
		}
	}

	if ev.To == appointment.StatusConfirmed {
		// Reminder scheduling is not built yet; the log line keeps the hook
		// visible in production traces.
		log.Printf("events: reminder scheduling pending for confirmed appointment %s", ev.AppointmentID)
	}
}
