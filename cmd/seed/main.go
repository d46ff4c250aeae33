package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calmcare/therapy-booking/internal/appointment"
	"github.com/calmcare/therapy-booking/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	therapists, err := seedTherapists(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed therapists: %v", err)
	}
	patients, err := seedPatients(context.Background(), pool, 2000)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, patients, therapists, 5000); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedTherapists(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d therapists", count)

	specialties := []string{
		"CBT",
		"Couples Therapy",
		"Family Therapy",
		"Trauma",
		"Anxiety & Depression",
		"Addiction",
		"Child & Adolescent",
		"Grief Counselling",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO therapists (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("therapists seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	ids := make([]uuid.UUID, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return ids, nil
}

// seedAppointments spreads bookings across the lifecycle, including a small
// share of legacy-labelled rows so the monitor's leakage probe has real data
// to find.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, patients, therapists []uuid.UUID, count int) error {
	log.Printf("seeding %d appointments", count)

	statuses := appointment.CanonicalStatuses()
	legacy := []appointment.Status{"new", "paid", "matched", "scheduled", "done"}

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			patientID := patients[gofakeit.Number(0, len(patients)-1)]

			status := statuses[gofakeit.Number(0, len(statuses)-1)]
			if gofakeit.Number(0, 99) < 5 {
				status = legacy[gofakeit.Number(0, len(legacy)-1)]
			}

			normalized := appointment.NormalizeStatus(status)

			var therapistID *uuid.UUID
			switch normalized {
			case appointment.StatusPendingScheduling, appointment.StatusConfirmed,
				appointment.StatusRescheduled, appointment.StatusCompleted, appointment.StatusNoShow:
				t := therapists[gofakeit.Number(0, len(therapists)-1)]
				therapistID = &t
			}

			var scheduledAt *time.Time
			switch normalized {
			case appointment.StatusConfirmed, appointment.StatusRescheduled,
				appointment.StatusCompleted, appointment.StatusNoShow:
				at := gofakeit.DateRange(time.Now().AddDate(0, -1, 0), time.Now().AddDate(0, 1, 0))
				scheduledAt = &at
			}

			payment := appointment.PaymentPending
			if normalized != appointment.StatusUnpaid && normalized != appointment.StatusPending {
				payment = appointment.PaymentCompleted
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (id, patient_id, therapist_id, status, payment_status, scheduled_at, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			`, id, patientID, therapistID, status, payment, scheduledAt)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("appointments seeded: %d/%d", end, count)
	}

	log.Println("appointments seeded")
	return nil
}
