package appointment

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

const DefaultHistoryLimit = 50

// Recorder appends audit entries for committed transitions. Record never
// propagates failure: losing an audit line must not undo a status change
// that already committed.
type Recorder struct {
	repo Repository
	now  func() time.Time
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, now: time.Now}
}

func (r *Recorder) Record(ctx context.Context, appt *Appointment, from, to Status, actor Actor, reason *string, meta map[string]any) {
	var data []byte
	if len(meta) > 0 {
		var err error
		data, err = json.Marshal(meta)
		if err != nil {
			log.Printf("history: failed to marshal metadata for appointment %s: %v", appt.ID, err)
			data = nil
		}
	}

	entry := HistoryEntry{
		AppointmentID: appt.ID,
		FromStatus:    from,
		ToStatus:      to,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		Reason:        reason,
		Metadata:      data,
		CreatedAt:     r.now(),
	}

	if err := r.repo.InsertHistoryEntry(ctx, entry); err != nil {
		log.Printf("history: failed to record %s -> %s for appointment %s: %v", from, to, appt.ID, err)
	}
}

// History returns the most recent entries for an appointment, newest first.
func (r *Recorder) History(ctx context.Context, appointmentID uuid.UUID, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return r.repo.ListHistory(ctx, appointmentID, limit)
}
