package rt

import "testing"

func TestRingFIFO(t *testing.T) {
	r := NewRing[int](4)
	for i := 0; i < 4; i++ {
		if !r.Push(i) {
			t.Fatalf("push %d failed", i)
		}
	}
	if r.Push(99) {
		t.Error("push succeeded on a full ring")
	}
	for i := 0; i < 4; i++ {
		v, ok := r.Pop()
		if !ok || v != i {
			t.Errorf("pop %d = %d, %v", i, v, ok)
		}
	}
	if _, ok := r.Pop(); ok {
		t.Error("pop succeeded on an empty ring")
	}
}

func TestRingWrapAround(t *testing.T) {
	r := NewRing[int](2)
	for round := 0; round < 100; round++ {
		if !r.Push(round) {
			t.Fatalf("push failed on round %d", round)
		}
		v, ok := r.Pop()
		if !ok || v != round {
			t.Fatalf("round %d: got %d, %v", round, v, ok)
		}
	}
}

func TestRingRoundsUpCapacity(t *testing.T) {
	r := NewRing[int](5)
	n := 0
	for r.Push(n) {
		n++
	}
	if n != 8 {
		t.Errorf("capacity = %d, want 8", n)
	}
	if r.Len() != 8 {
		t.Errorf("Len = %d, want 8", r.Len())
	}
}

func TestRingConcurrentSmoke(t *testing.T) {
	const count = 100000
	r := NewRing[int](64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		next := 0
		for next < count {
			if v, ok := r.Pop(); ok {
				if v != next {
					t.Errorf("popped %d, want %d", v, next)
					return
				}
				next++
			}
		}
	}()
	for i := 0; i < count; {
		if r.Push(i) {
			i++
		}
	}
	<-done
}
