// Package integrations holds the wiring-level adapters for the external
// calendar, notification, and payout collaborators. The real services live
// outside this repository; these adapters log what would be sent so the
// binaries run end to end without them.
package integrations

import (
	"context"
	"log"

	"github.com/calmcare/therapy-booking/internal/appointment"
)

type LogCalendarSync struct{}

func (LogCalendarSync) SyncOnStatusChange(_ context.Context, appt *appointment.AppointmentDetail, newStatus appointment.Status) error {
	log.Printf("calendar: sync appointment %s to status %s", appt.ID, newStatus)
	return nil
}

type LogNotifier struct{}

func (LogNotifier) SendStatusChangeNotice(_ context.Context, appt *appointment.AppointmentDetail, newStatus appointment.Status) error {
	recipient := "patient"
	if appt.Patient != nil {
		recipient = appt.Patient.Name
	}
	log.Printf("notify: appointment %s is now %s (recipient %s)", appt.ID, newStatus, recipient)
	return nil
}

type LogPayoutService struct{}

func (LogPayoutService) UpdateEligibility(_ context.Context, appt *appointment.AppointmentDetail) error {
	if appt.Therapist != nil {
		log.Printf("payouts: appointment %s completed, updating eligibility for therapist %s", appt.ID, appt.Therapist.ID)
	} else {
		log.Printf("payouts: appointment %s completed without assigned therapist", appt.ID)
	}
	return nil
}
