package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionRules(t *testing.T) {
	t.Run("every canonical status has a rule-table row", func(t *testing.T) {
		for _, s := range CanonicalStatuses() {
			assert.True(t, IsCanonicalStatus(s), "missing row for %s", s)
		}
	})

	t.Run("terminal statuses have no outgoing transitions", func(t *testing.T) {
		terminals := []Status{StatusCompleted, StatusCancelled, StatusNoShow}
		for _, s := range terminals {
			assert.True(t, IsTerminalStatus(s), "%s should be terminal", s)
			assert.Empty(t, AllowedTransitions(s))
		}
	})

	t.Run("non-terminal statuses have at least one outgoing transition", func(t *testing.T) {
		for _, s := range CanonicalStatuses() {
			if IsTerminalStatus(s) {
				continue
			}
			assert.NotEmpty(t, AllowedTransitions(s), "%s should have successors", s)
		}
	})

	t.Run("IsTransitionAllowed agrees with AllowedTransitions", func(t *testing.T) {
		for _, from := range CanonicalStatuses() {
			allowed := make(map[Status]bool)
			for _, to := range AllowedTransitions(from) {
				allowed[to] = true
			}
			for _, to := range CanonicalStatuses() {
				assert.Equal(t, allowed[to], IsTransitionAllowed(from, to),
					"disagreement for %s -> %s", from, to)
			}
		}
	})

	t.Run("expected edges", func(t *testing.T) {
		assert.ElementsMatch(t, []Status{StatusPending}, AllowedTransitions(StatusUnpaid))
		assert.ElementsMatch(t, []Status{StatusPendingMatch, StatusUnpaid}, AllowedTransitions(StatusPending))
		assert.ElementsMatch(t, []Status{StatusMatchedPending}, AllowedTransitions(StatusPendingMatch))
		assert.ElementsMatch(t, []Status{StatusPendingScheduling, StatusCancelled}, AllowedTransitions(StatusMatchedPending))
		assert.ElementsMatch(t, []Status{StatusConfirmed, StatusCancelled}, AllowedTransitions(StatusPendingScheduling))
		assert.ElementsMatch(t, []Status{StatusCompleted, StatusCancelled, StatusNoShow}, AllowedTransitions(StatusConfirmed))
		assert.ElementsMatch(t, []Status{StatusConfirmed}, AllowedTransitions(StatusRescheduled))
	})

	t.Run("mutating the returned slice does not corrupt the table", func(t *testing.T) {
		allowed := AllowedTransitions(StatusConfirmed)
		require.NotEmpty(t, allowed)
		allowed[0] = StatusUnpaid
		assert.False(t, IsTransitionAllowed(StatusConfirmed, StatusUnpaid))
	})
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[Status]Status{
		"new":              StatusUnpaid,
		"awaiting_payment": StatusUnpaid,
		"paid":             StatusPending,
		"matched":          StatusMatchedPending,
		"scheduled":        StatusConfirmed,
		"done":             StatusCompleted,
		"canceled":         StatusCancelled,
		"noshow":           StatusNoShow,
		"no-show":          StatusNoShow,
	}

	for legacy, want := range cases {
		assert.Equal(t, want, NormalizeStatus(legacy), "legacy %q", legacy)
		assert.True(t, IsLegacyStatus(legacy))
	}

	t.Run("canonical statuses pass through unchanged", func(t *testing.T) {
		for _, s := range CanonicalStatuses() {
			assert.Equal(t, s, NormalizeStatus(s))
			assert.False(t, IsLegacyStatus(s))
		}
	})

	t.Run("unknown labels pass through unchanged", func(t *testing.T) {
		assert.Equal(t, Status("mystery"), NormalizeStatus("mystery"))
	})

	t.Run("legality queries normalize their input", func(t *testing.T) {
		// "scheduled" is legacy for confirmed, so its successors must match.
		assert.Equal(t, AllowedTransitions(StatusConfirmed), AllowedTransitions("scheduled"))
		assert.True(t, IsTransitionAllowed("scheduled", StatusCompleted))
		assert.True(t, IsTerminalStatus("done"))
	})
}
