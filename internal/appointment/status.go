package appointment

type Status string

const (
	StatusUnpaid            Status = "unpaid"
	StatusPending           Status = "pending"
	StatusPendingMatch      Status = "pending_match"
	StatusMatchedPending    Status = "matched_pending_therapist_acceptance"
	StatusPendingScheduling Status = "pending_scheduling"
	StatusConfirmed         Status = "confirmed"
	StatusRescheduled       Status = "rescheduled"
	StatusCompleted         Status = "completed"
	StatusCancelled         Status = "cancelled"
	StatusNoShow            Status = "no_show"
)

// legacyStatuses maps labels that predate the state machine to canonical
// statuses. Anything not listed here is assumed to already be canonical and
// passes through NormalizeStatus unchanged.
var legacyStatuses = map[Status]Status{
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

// transitionRules is the authoritative adjacency table. Terminal statuses map
// to an empty slice.
var transitionRules = map[Status][]Status{
	StatusUnpaid:            {StatusPending},
	StatusPending:           {StatusPendingMatch, StatusUnpaid},
	StatusPendingMatch:      {StatusMatchedPending},
	StatusMatchedPending:    {StatusPendingScheduling, StatusCancelled},
	StatusPendingScheduling: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:         {StatusCompleted, StatusCancelled, StatusNoShow},
	StatusRescheduled:       {StatusConfirmed},
	StatusCompleted:         {},
	StatusCancelled:         {},
	StatusNoShow:            {},
}

// NormalizeStatus translates a legacy label into its canonical status.
func NormalizeStatus(s Status) Status {
	if canonical, ok := legacyStatuses[s]; ok {
		return canonical
	}
	return s
}

// IsCanonicalStatus reports whether s is a member of the taxonomy without
// normalization.
func IsCanonicalStatus(s Status) bool {
	_, ok := transitionRules[s]
	return ok
}

// IsLegacyStatus reports whether s is a known pre-state-machine label.
func IsLegacyStatus(s Status) bool {
	_, ok := legacyStatuses[s]
	return ok
}

// IsTerminalStatus reports whether no transitions leave s.
func IsTerminalStatus(s Status) bool {
	return len(transitionRules[NormalizeStatus(s)]) == 0 && IsCanonicalStatus(NormalizeStatus(s))
}

// AllowedTransitions returns the statuses directly reachable from s. The
// result is a copy; callers may not mutate the rule table through it.
func AllowedTransitions(s Status) []Status {
	allowed := transitionRules[NormalizeStatus(s)]
	out := make([]Status, len(allowed))
	copy(out, allowed)
	return out
}

// IsTransitionAllowed reports whether the rule table permits moving from one
// status to another. Guards are not consulted here.
func IsTransitionAllowed(from, to Status) bool {
	for _, s := range transitionRules[NormalizeStatus(from)] {
		if s == to {
			return true
		}
	}
	return false
}

// CanonicalStatuses lists every status in the taxonomy, in lifecycle order.
func CanonicalStatuses() []Status {
	return []Status{
		StatusUnpaid,
		StatusPending,
		StatusPendingMatch,
		StatusMatchedPending,
		StatusPendingScheduling,
		StatusConfirmed,
		StatusRescheduled,
		StatusCompleted,
		StatusCancelled,
		StatusNoShow,
	}
}
