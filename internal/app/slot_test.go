package app

import (
	"sync"
	"testing"
	"time"
)

func TestLatestSlot_PutReplaces(t *testing.T) {
	s := newLatestSlot[int]()

	if _, dropped := s.Put(1); dropped {
		t.Error("first Put should not drop")
	}
	old, dropped := s.Put(2)
	if !dropped || old != 1 {
		t.Errorf("Put(2) dropped = %v, %d; want true, 1", dropped, old)
	}

	done := make(chan struct{})
	v, ok := s.Take(done)
	if !ok || v != 2 {
		t.Errorf("Take() = %d, %v; want 2, true", v, ok)
	}

	if _, ok := s.Drain(); ok {
		t.Error("slot should be empty after Take")
	}
}

func TestLatestSlot_TakeStops(t *testing.T) {
	s := newLatestSlot[string]()
	done := make(chan struct{})

	result := make(chan bool)
	go func() {
		_, ok := s.Take(done)
		result <- ok
	}()

	close(done)
	select {
	case ok := <-result:
		if ok {
			t.Error("Take should report false after done")
		}
	case <-time.After(time.Second):
		t.Fatal("Take did not return after done was closed")
	}
}

func TestLatestSlot_ConsumerSeesNewest(t *testing.T) {
	s := newLatestSlot[int]()
	done := make(chan struct{})
	defer close(done)

	const n = 1000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= n; i++ {
			s.Put(i)
		}
	}()
	wg.Wait()

	v, ok := s.Take(done)
	if !ok || v != n {
		t.Errorf("Take() = %d, %v; want %d", v, ok, n)
	}
}

func TestLatestSlot_DrainAfterTakeToken(t *testing.T) {
	s := newLatestSlot[int]()
	s.Put(7)
	if v, ok := s.Drain(); !ok || v != 7 {
		t.Fatalf("Drain() = %d, %v", v, ok)
	}

	// the ready token from the drained Put must not yield a zero value
	done := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		s.Put(8)
	}()
	v, ok := s.Take(done)
	if !ok || v != 8 {
		t.Errorf("Take() = %d, %v; want 8", v, ok)
	}
}
