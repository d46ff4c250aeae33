package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var therapistID *uuid.UUID
	var scheduledAt *time.Time

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&therapistID,
		&a.Status,
		&a.PaymentStatus,
		&scheduledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.TherapistID = therapistID
	a.ScheduledAt = scheduledAt
	return &a, nil
}

func scanHistoryEntry(row pgx.Row) (*HistoryEntry, error) {
	var h HistoryEntry
	var reason *string

	err := row.Scan(
		&h.ID,
		&h.AppointmentID,
		&h.FromStatus,
		&h.ToStatus,
		&h.ActorID,
		&h.ActorRole,
		&reason,
		&h.Metadata,
		&h.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	h.Reason = reason
	return &h, nil
}

// Interface methods

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, therapist_id, status, payment_status, scheduled_at, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	appt, err := r.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &AppointmentDetail{Appointment: *appt}

	var p Patient
	var email *string
	err = r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, appt.PatientID).Scan(&p.ID, &p.Name, &email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	p.Email = email
	detail.Patient = &p

	if appt.TherapistID != nil {
		var t Therapist
		var specialty *string
		err = r.pool.QueryRow(ctx, `
			SELECT id, name, specialty, created_at, updated_at
			FROM therapists
			WHERE id = $1
		`, *appt.TherapistID).Scan(&t.ID, &t.Name, &specialty, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrTherapistNotFound
			}
			return nil, err
		}
		t.Specialty = specialty
		detail.Therapist = &t
	}

	return detail, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, observed, next Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING id, patient_id, therapist_id, status, payment_status, scheduled_at, created_at, updated_at
	`, id, next, observed)

	appt, err := scanAppointment(row)
	if err != nil {
		if !errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		// Distinguish a vanished row from a concurrent status change.
		var exists bool
		checkErr := r.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)
		`, id).Scan(&exists)
		if checkErr != nil {
			return nil, checkErr
		}
		if exists {
			return nil, ErrStatusConflict
		}
		return nil, ErrAppointmentNotFound
	}

	return appt, nil
}

func (r *PgRepository) InsertHistoryEntry(ctx context.Context, entry HistoryEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment_history (appointment_id, from_status, to_status, actor_id, actor_role, reason, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
	`, entry.AppointmentID, entry.FromStatus, entry.ToStatus, entry.ActorID, entry.ActorRole, entry.Reason, entry.Metadata, nullableTime(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	return nil
}

func (r *PgRepository) ListHistory(ctx context.Context, appointmentID uuid.UUID, limit int) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, from_status, to_status, actor_id, actor_role, reason, metadata, created_at
		FROM appointment_history
		WHERE appointment_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, appointmentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []HistoryEntry
	for rows.Next() {
		h, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *h)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CountAppointments(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointments`).Scan(&n)
	return n, err
}

func (r *PgRepository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM appointments
		GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[Status]int64)
	for rows.Next() {
		var s Status
		var n int64
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		result[s] = n
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CountTransitions(ctx context.Context) ([]TransitionCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT from_status, to_status, COUNT(*)
		FROM appointment_history
		GROUP BY from_status, to_status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TransitionCount
	for rows.Next() {
		var tc TransitionCount
		if err := rows.Scan(&tc.From, &tc.To, &tc.Count); err != nil {
			return nil, err
		}
		result = append(result, tc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CountTransitionsSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM appointment_history
		WHERE created_at >= $1
	`, since).Scan(&n)
	return n, err
}

func (r *PgRepository) SystemHealthCounts(ctx context.Context) (HealthCounts, error) {
	var hc HealthCounts

	legacy := make([]string, 0, len(legacyStatuses))
	for s := range legacyStatuses {
		legacy = append(legacy, string(s))
	}

	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments WHERE status = ANY($1)
	`, legacy).Scan(&hc.LegacyStatus)
	if err != nil {
		return HealthCounts{}, err
	}

	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE (status = 'unpaid' AND payment_status = 'completed')
		   OR (status = 'confirmed' AND scheduled_at IS NULL)
		   OR (status = 'pending_scheduling' AND therapist_id IS NULL)
	`).Scan(&hc.InconsistentState)
	if err != nil {
		return HealthCounts{}, err
	}

	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE status IS NULL OR status = '' OR payment_status IS NULL OR payment_status = ''
	`).Scan(&hc.MissingFields)
	if err != nil {
		return HealthCounts{}, err
	}

	return hc, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
