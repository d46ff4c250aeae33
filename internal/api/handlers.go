package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calmcare/therapy-booking/internal/appointment"
	redisclient "github.com/calmcare/therapy-booking/internal/redis"
)

// StatusUpdater is the workflow facade as the handlers see it.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, target appointment.Status, actor appointment.Actor, opts appointment.TransitionOptions) (*appointment.Appointment, error)
}

// HistoryReader serves the audit log.
type HistoryReader interface {
	History(ctx context.Context, appointmentID uuid.UUID, limit int) ([]appointment.HistoryEntry, error)
}

func transitionHandler(svc StatusUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		actorID, err := uuid.Parse(req.ActorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor_id", "actor_id must be a valid UUID")
			return
		}

		role := appointment.ActorRole(req.ActorRole)
		switch role {
		case appointment.RolePatient, appointment.RoleTherapist, appointment.RoleAdmin:
		default:
			writeError(w, http.StatusBadRequest, "invalid_actor_role", "actor_role must be patient, therapist, or admin")
			return
		}

		appt, err := svc.UpdateStatus(r.Context(), id, appointment.Status(req.TargetStatus),
			appointment.Actor{ID: actorID, Role: role},
			appointment.TransitionOptions{Reason: req.Reason, Metadata: req.Metadata})
		if err != nil {
			handleTransitionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func historyHandler(history HistoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			limit, err = strconv.Atoi(v)
			if err != nil || limit < 0 {
				writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
				return
			}
		}

		entries, err := history.History(r.Context(), id, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]HistoryEntryResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, HistoryEntryResponse{
				ID:         e.ID,
				FromStatus: string(e.FromStatus),
				ToStatus:   string(e.ToStatus),
				ActorID:    e.ActorID,
				ActorRole:  string(e.ActorRole),
				Reason:     e.Reason,
				CreatedAt:  e.CreatedAt,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func allowedTransitionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from := appointment.Status(chi.URLParam(r, "status"))

		allowed := appointment.AllowedTransitions(from)
		out := make([]string, 0, len(allowed))
		for _, s := range allowed {
			out = append(out, string(s))
		}

		writeJSON(w, http.StatusOK, AllowedTransitionsResponse{
			From:    string(appointment.NormalizeStatus(from)),
			Allowed: out,
		})
	}
}

func transitionAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from := appointment.Status(chi.URLParam(r, "status"))
		to := appointment.Status(chi.URLParam(r, "target"))

		writeJSON(w, http.StatusOK, TransitionAllowedResponse{
			From:    string(appointment.NormalizeStatus(from)),
			To:      string(to),
			Allowed: appointment.IsTransitionAllowed(from, to),
		})
	}
}

func handleTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrForbiddenTransition):
		writeError(w, http.StatusConflict, "forbidden_transition", err.Error())
	case errors.Is(err, appointment.ErrBusinessRule):
		writeError(w, http.StatusBadRequest, "business_rule_violation", err.Error())
	case errors.Is(err, appointment.ErrStatusConflict),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "status_conflict", "appointment is being updated concurrently, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:            a.ID,
		PatientID:     a.PatientID,
		TherapistID:   a.TherapistID,
		Status:        string(a.Status),
		PaymentStatus: string(a.PaymentStatus),
		ScheduledAt:   a.ScheduledAt,
		UpdatedAt:     a.UpdatedAt,
	}
}
