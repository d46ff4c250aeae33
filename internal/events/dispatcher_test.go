package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmcare/therapy-booking/internal/appointment"
)

type fakeLoader struct {
	details map[uuid.UUID]*appointment.AppointmentDetail
	err     error
}

func (l *fakeLoader) GetAppointmentDetail(_ context.Context, id uuid.UUID) (*appointment.AppointmentDetail, error) {
	if l.err != nil {
		return nil, l.err
	}
	d, ok := l.details[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return d, nil
}

type fakeCalendar struct {
	calls int
	err   error
}

func (c *fakeCalendar) SyncOnStatusChange(context.Context, *appointment.AppointmentDetail, appointment.Status) error {
	c.calls++
	return c.err
}

type fakeNotifier struct {
	calls int
	err   error
}

func (n *fakeNotifier) SendStatusChangeNotice(context.Context, *appointment.AppointmentDetail, appointment.Status) error {
	n.calls++
	return n.err
}

type fakePayouts struct {
	calls int
	err   error
}

func (p *fakePayouts) UpdateEligibility(context.Context, *appointment.AppointmentDetail) error {
	p.calls++
	return p.err
}

func testEvent(id uuid.UUID, to appointment.Status) appointment.StatusChangedEvent {
	return appointment.StatusChangedEvent{
		AppointmentID: id,
		From:          appointment.StatusConfirmed,
		To:            to,
		ActorID:       uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		ActorRole:     appointment.RoleAdmin,
		OccurredAt:    time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
}

func newTestDispatcher(id uuid.UUID) (*Dispatcher, *fakeCalendar, *fakeNotifier, *fakePayouts) {
	loader := &fakeLoader{details: map[uuid.UUID]*appointment.AppointmentDetail{
		id: {Appointment: appointment.Appointment{ID: id}},
	}}
	calendar := &fakeCalendar{}
	notifier := &fakeNotifier{}
	payouts := &fakePayouts{}
	return NewDispatcher(loader, calendar, notifier, payouts), calendar, notifier, payouts
}

func TestDispatcher(t *testing.T) {
	ctx := context.Background()

	t.Run("invokes calendar and notifier for a status change", func(t *testing.T) {
		id := uuid.New()
		d, calendar, notifier, payouts := newTestDispatcher(id)

		d.Dispatch(ctx, []appointment.StatusChangedEvent{testEvent(id, appointment.StatusCancelled)})

		assert.Equal(t, 1, calendar.calls)
		assert.Equal(t, 1, notifier.calls)
		assert.Equal(t, 0, payouts.calls, "payout only runs on completion")
	})

	t.Run("payout eligibility runs only on completed", func(t *testing.T) {
		id := uuid.New()
		d, _, _, payouts := newTestDispatcher(id)

		d.Dispatch(ctx, []appointment.StatusChangedEvent{testEvent(id, appointment.StatusCompleted)})

		assert.Equal(t, 1, payouts.calls)
	})

	t.Run("identical events are handled exactly once", func(t *testing.T) {
		id := uuid.New()
		d, calendar, notifier, payouts := newTestDispatcher(id)
		ev := testEvent(id, appointment.StatusCompleted)

		d.Dispatch(ctx, []appointment.StatusChangedEvent{ev, ev})
		d.Dispatch(ctx, []appointment.StatusChangedEvent{ev})

		assert.Equal(t, 1, calendar.calls)
		assert.Equal(t, 1, notifier.calls)
		assert.Equal(t, 1, payouts.calls)
	})

	t.Run("differing events are both handled", func(t *testing.T) {
		id := uuid.New()
		d, calendar, _, _ := newTestDispatcher(id)

		ev1 := testEvent(id, appointment.StatusCancelled)
		ev2 := testEvent(id, appointment.StatusNoShow)

		d.Dispatch(ctx, []appointment.StatusChangedEvent{ev1, ev2})

		assert.Equal(t, 2, calendar.calls)
	})

	t.Run("calendar failure does not stop notification or payout", func(t *testing.T) {
		id := uuid.New()
		d, calendar, notifier, payouts := newTestDispatcher(id)
		calendar.err = errors.New("calendar unavailable")
		notifier.err = errors.New("smtp down")

		d.Dispatch(ctx, []appointment.StatusChangedEvent{testEvent(id, appointment.StatusCompleted)})

		assert.Equal(t, 1, calendar.calls)
		assert.Equal(t, 1, notifier.calls)
		assert.Equal(t, 1, payouts.calls)
	})

	t.Run("load failure skips handlers but keeps the batch going", func(t *testing.T) {
		known := uuid.New()
		d, calendar, _, _ := newTestDispatcher(known)

		missing := testEvent(uuid.New(), appointment.StatusCancelled)
		present := testEvent(known, appointment.StatusCancelled)

		d.Dispatch(ctx, []appointment.StatusChangedEvent{missing, present})

		assert.Equal(t, 1, calendar.calls)
	})
}

func TestFingerprintSet(t *testing.T) {
	t.Run("eviction frees old fingerprints", func(t *testing.T) {
		s := newFingerprintSet(2)

		fp := func(b byte) [32]byte {
			var out [32]byte
			out[0] = b
			return out
		}

		require.True(t, s.add(fp(1)))
		require.True(t, s.add(fp(2)))
		require.False(t, s.add(fp(1)))

		// Third insert evicts the oldest entry.
		require.True(t, s.add(fp(3)))
		assert.True(t, s.add(fp(1)), "evicted fingerprint is accepted again")
	})

	t.Run("fingerprint is deterministic over structure", func(t *testing.T) {
		id := uuid.New()
		a := testEvent(id, appointment.StatusCompleted)
		b := testEvent(id, appointment.StatusCompleted)

		fa, err := fingerprint(a)
		require.NoError(t, err)
		fb, err := fingerprint(b)
		require.NoError(t, err)
		assert.Equal(t, fa, fb)

		b.To = appointment.StatusCancelled
		fc, err := fingerprint(b)
		require.NoError(t, err)
		assert.NotEqual(t, fa, fc)
	})
}
