package appointment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memRepo is an in-memory Repository used across the package tests.
type memRepo struct {
	mu          sync.Mutex
	appts       map[uuid.UUID]*Appointment
	patients    map[uuid.UUID]*Patient
	therapists  map[uuid.UUID]*Therapist
	history     []HistoryEntry
	nextID      int64
	failHistory error
}

func newMemRepo() *memRepo {
	return &memRepo{
		appts:      make(map[uuid.UUID]*Appointment),
		patients:   make(map[uuid.UUID]*Patient),
		therapists: make(map[uuid.UUID]*Therapist),
	}
}

func (r *memRepo) put(a *Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.appts[a.ID] = &cp
	if _, ok := r.patients[a.PatientID]; !ok {
		r.patients[a.PatientID] = &Patient{ID: a.PatientID, Name: "Test Patient"}
	}
	if a.TherapistID != nil {
		if _, ok := r.therapists[*a.TherapistID]; !ok {
			r.therapists[*a.TherapistID] = &Therapist{ID: *a.TherapistID, Name: "Test Therapist"}
		}
	}
}

func (r *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	a, err := r.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	detail := &AppointmentDetail{Appointment: *a}
	detail.Patient = r.patients[a.PatientID]
	if a.TherapistID != nil {
		detail.Therapist = r.therapists[*a.TherapistID]
	}
	return detail, nil
}

func (r *memRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, observed, next Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if a.Status != observed {
		return nil, ErrStatusConflict
	}
	a.Status = next
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (r *memRepo) InsertHistoryEntry(_ context.Context, entry HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failHistory != nil {
		return r.failHistory
	}
	r.nextID++
	entry.ID = r.nextID
	r.history = append(r.history, entry)
	return nil
}

func (r *memRepo) ListHistory(_ context.Context, appointmentID uuid.UUID, limit int) ([]HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []HistoryEntry
	for _, h := range r.history {
		if h.AppointmentID == appointmentID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) CountAppointments(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.appts)), nil
}

func (r *memRepo) CountByStatus(_ context.Context) (map[Status]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Status]int64)
	for _, a := range r.appts {
		out[a.Status]++
	}
	return out, nil
}

func (r *memRepo) CountTransitions(_ context.Context) ([]TransitionCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[[2]Status]int64)
	for _, h := range r.history {
		counts[[2]Status{h.FromStatus, h.ToStatus}]++
	}
	var out []TransitionCount
	for k, n := range counts {
		out = append(out, TransitionCount{From: k[0], To: k[1], Count: n})
	}
	return out, nil
}

func (r *memRepo) CountTransitionsSince(_ context.Context, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, h := range r.history {
		if !h.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) SystemHealthCounts(_ context.Context) (HealthCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var hc HealthCounts
	for _, a := range r.appts {
		if IsLegacyStatus(a.Status) {
			hc.LegacyStatus++
		}
		if (a.Status == StatusUnpaid && a.PaymentStatus == PaymentCompleted) ||
			(a.Status == StatusConfirmed && a.ScheduledAt == nil) ||
			(a.Status == StatusPendingScheduling && a.TherapistID == nil) {
			hc.InconsistentState++
		}
		if a.Status == "" || a.PaymentStatus == "" {
			hc.MissingFields++
		}
	}
	return hc, nil
}

var errRepoDown = errors.New("repository unavailable")
