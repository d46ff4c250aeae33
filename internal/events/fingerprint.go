package events

import (
	"crypto/sha256"
	"encoding/json"
	"sync"

	"github.com/calmcare/therapy-booking/internal/appointment"
)

// fingerprint derives a stable content hash from the full structure of an
// event. Two events are duplicates iff their fingerprints match.
func fingerprint(ev appointment.StatusChangedEvent) ([32]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// fingerprintSet is a bounded set with FIFO eviction. It keeps the
// dispatcher's idempotency memory from growing without limit in long-running
// processes.
type fingerprintSet struct {
	mu    sync.Mutex
	limit int
	seen  map[[32]byte]struct{}
	order [][32]byte
	next  int
}

func newFingerprintSet(limit int) *fingerprintSet {
	return &fingerprintSet{
		limit: limit,
		seen:  make(map[[32]byte]struct{}, limit),
		order: make([][32]byte, 0, limit),
	}
}

// add inserts fp and reports whether it was new.
func (s *fingerprintSet) add(fp [32]byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[fp]; ok {
		return false
	}

	if len(s.order) < s.limit {
		s.order = append(s.order, fp)
	} else {
		delete(s.seen, s.order[s.next])
		s.order[s.next] = fp
		s.next = (s.next + 1) % s.limit
	}
	s.seen[fp] = struct{}{}
	return true
}
