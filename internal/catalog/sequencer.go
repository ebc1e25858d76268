package catalog

import "sync/atomic"

// Sequencer tags fetches with increasing tickets so that a response which
// arrives after a newer request was issued can be discarded.
type Sequencer struct {
	latest atomic.Uint64
}

// Next issues a new ticket. Tickets start at 1.
func (s *Sequencer) Next() uint64 {
	return s.latest.Add(1)
}

// IsLatest reports whether ticket is still the newest one issued.
func (s *Sequencer) IsLatest(ticket uint64) bool {
	return s.latest.Load() == ticket
}
