package dashboard

// sequencer numbers the requests of one view. Callers hold the view's lock.
type sequencer struct {
	last uint64
}

func (s *sequencer) next() uint64 {
	s.last++
	return s.last
}

func (s *sequencer) latest(n uint64) bool {
	return n == s.last
}
