package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	actor := Actor{ID: uuid.New(), Role: RoleTherapist}

	t.Run("record appends an immutable entry", func(t *testing.T) {
		repo := newMemRepo()
		recorder := NewRecorder(repo)
		appt := seedAppointment(repo, StatusPending)

		recorder.Record(ctx, appt, StatusUnpaid, StatusPending, actor, nil, nil)

		entries, err := recorder.History(ctx, appt.ID, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, appt.ID, entries[0].AppointmentID)
		assert.Equal(t, StatusUnpaid, entries[0].FromStatus)
		assert.Equal(t, StatusPending, entries[0].ToStatus)
		assert.Equal(t, actor.ID, entries[0].ActorID)
		assert.Equal(t, RoleTherapist, entries[0].ActorRole)
		assert.Nil(t, entries[0].Reason)
	})

	t.Run("record swallows repository failures", func(t *testing.T) {
		repo := newMemRepo()
		recorder := NewRecorder(repo)
		appt := seedAppointment(repo, StatusPending)
		repo.failHistory = errRepoDown

		// Must not panic and must not surface the error anywhere.
		recorder.Record(ctx, appt, StatusUnpaid, StatusPending, actor, nil, nil)

		repo.failHistory = nil
		entries, err := recorder.History(ctx, appt.ID, 0)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("history is newest first and respects the limit", func(t *testing.T) {
		repo := newMemRepo()
		recorder := &Recorder{repo: repo, now: time.Now}
		appt := seedAppointment(repo, StatusPending)

		base := time.Now()
		steps := []struct {
			from, to Status
		}{
			{StatusUnpaid, StatusPending},
			{StatusPending, StatusPendingMatch},
			{StatusPendingMatch, StatusMatchedPending},
		}
		for i, s := range steps {
			at := base.Add(time.Duration(i) * time.Minute)
			recorder.now = func() time.Time { return at }
			recorder.Record(ctx, appt, s.from, s.to, actor, nil, nil)
		}

		entries, err := recorder.History(ctx, appt.ID, 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, StatusMatchedPending, entries[0].ToStatus)
		assert.Equal(t, StatusPendingMatch, entries[1].ToStatus)
	})

	t.Run("zero limit falls back to the default", func(t *testing.T) {
		repo := newMemRepo()
		recorder := NewRecorder(repo)
		appt := seedAppointment(repo, StatusPending)

		for i := 0; i < DefaultHistoryLimit+10; i++ {
			recorder.Record(ctx, appt, StatusPending, StatusUnpaid, actor, nil, nil)
		}

		entries, err := recorder.History(ctx, appt.ID, 0)
		require.NoError(t, err)
		assert.Len(t, entries, DefaultHistoryLimit)
	})
}
