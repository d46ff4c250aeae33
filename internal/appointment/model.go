package appointment

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentFailed    PaymentStatus = "failed"
)

type ActorRole string

const (
	RolePatient   ActorRole = "patient"
	RoleTherapist ActorRole = "therapist"
	RoleAdmin     ActorRole = "admin"
)

// Actor identifies who requested a transition.
type Actor struct {
	ID   uuid.UUID
	Role ActorRole
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Therapist struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is the engine's view of a booking. Status holds the raw stored
// value, which may still be a legacy label; normalize it before consulting
// the rule table.
type Appointment struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	TherapistID   *uuid.UUID
	Status        Status
	PaymentStatus PaymentStatus
	ScheduledAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HistoryEntry is one immutable audit record of a successful transition.
type HistoryEntry struct {
	ID            int64
	AppointmentID uuid.UUID
	FromStatus    Status
	ToStatus      Status
	ActorID       uuid.UUID
	ActorRole     ActorRole
	Reason        *string
	Metadata      []byte
	CreatedAt     time.Time
}

// StatusChangedEvent describes a committed transition for side-effect
// handlers. It is not persisted by this subsystem.
type StatusChangedEvent struct {
	AppointmentID uuid.UUID
	From          Status
	To            Status
	ActorID       uuid.UUID
	ActorRole     ActorRole
	OccurredAt    time.Time
	Metadata      map[string]any
}

type AppointmentDetail struct {
	Appointment
	Patient   *Patient
	Therapist *Therapist
}

// TransitionOptions carries the optional parts of a transition request.
type TransitionOptions struct {
	Reason   *string
	Metadata map[string]any
}
