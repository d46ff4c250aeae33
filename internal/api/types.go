package api

import (
	"time"

	"github.com/google/uuid"
)

type TransitionRequest struct {
	TargetStatus string         `json:"target_status"`
	ActorID      string         `json:"actor_id"`
	ActorRole    string         `json:"actor_role"`
	Reason       *string        `json:"reason,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type AppointmentResponse struct {
	ID            uuid.UUID  `json:"id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	TherapistID   *uuid.UUID `json:"therapist_id,omitempty"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type HistoryEntryResponse struct {
	ID         int64     `json:"id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    uuid.UUID `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Reason     *string   `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type AllowedTransitionsResponse struct {
	From    string   `json:"from"`
	Allowed []string `json:"allowed"`
}

type TransitionAllowedResponse struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Allowed bool   `json:"allowed"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
