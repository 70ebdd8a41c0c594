package app

import "sync"

// latestSlot is a single-value handoff between a producer and a consumer.
// Put never blocks: a value the consumer has not taken yet is replaced and
// handed back so the producer can release it. Take blocks until a value is
// available or done is closed.
type latestSlot[T any] struct {
	mu    sync.Mutex
	value T
	full  bool
	ready chan struct{}
}

func newLatestSlot[T any]() *latestSlot[T] {
	return &latestSlot[T]{ready: make(chan struct{}, 1)}
}

// Put stores v. If an untaken value was replaced it is returned with true.
func (s *latestSlot[T]) Put(v T) (dropped T, ok bool) {
	s.mu.Lock()
	dropped, ok = s.value, s.full
	s.value, s.full = v, true
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
	return dropped, ok
}

// Take waits for the next value. It returns false once done is closed.
func (s *latestSlot[T]) Take(done <-chan struct{}) (T, bool) {
	for {
		select {
		case <-done:
			var zero T
			return zero, false
		case <-s.ready:
		}

		s.mu.Lock()
		v, ok := s.value, s.full
		var zero T
		s.value, s.full = zero, false
		s.mu.Unlock()
		if ok {
			return v, true
		}
	}
}

// Drain removes and returns any pending value.
func (s *latestSlot[T]) Drain() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.value, s.full
	var zero T
	s.value, s.full = zero, false
	return v, ok
}
