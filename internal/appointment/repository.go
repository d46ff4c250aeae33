package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrTherapistNotFound   = errors.New("therapist not found")

	// ErrStatusConflict means a compare-and-swap status write found the row
	// already changed by a concurrent transition.
	ErrStatusConflict = errors.New("appointment status changed concurrently")
)

// TransitionCount is one cell of the transition-frequency matrix.
type TransitionCount struct {
	From  Status
	To    Status
	Count int64
}

// HealthCounts are the monitor's consistency probes over the appointment
// store.
type HealthCounts struct {
	LegacyStatus      int64
	InconsistentState int64
	MissingFields     int64
}

// Repository contains all DB interactions needed by the engine, the history
// recorder, and the status monitor.
type Repository interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)

	// UpdateAppointmentStatus writes the new status only if the row still
	// carries the status observed at load time. ErrStatusConflict when it
	// does not.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, observed, next Status) (*Appointment, error)

	// History log
	InsertHistoryEntry(ctx context.Context, entry HistoryEntry) error
	ListHistory(ctx context.Context, appointmentID uuid.UUID, limit int) ([]HistoryEntry, error)

	// Monitor aggregates
	CountAppointments(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
	CountTransitions(ctx context.Context) ([]TransitionCount, error)
	CountTransitionsSince(ctx context.Context, since time.Time) (int64, error)
	SystemHealthCounts(ctx context.Context) (HealthCounts, error)
}
