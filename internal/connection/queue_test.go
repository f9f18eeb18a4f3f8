package connection

import (
	"sync"
	"testing"
	"time"
)

func TestQueue_BasicSendReceive(t *testing.T) {
	q := NewQueue[int](10, 100)

	for i := 0; i < 5; i++ {
		if !q.Send(i) {
			t.Fatalf("Send(%d) returned false", i)
		}
	}

	if got := q.Stats().Count; got != 5 {
		t.Errorf("Count = %d, want 5", got)
	}

	for i := 0; i < 5; i++ {
		val, ok := q.Receive()
		if !ok {
			t.Fatalf("Receive() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("received %d, want %d", val, i)
		}
	}

	stats := q.Stats()
	if stats.Count != 0 || stats.TotalQueued != 5 || stats.TotalSent != 5 {
		t.Errorf("Stats() = %+v, want empty queue with 5 queued and 5 sent", stats)
	}
}

func TestQueue_GrowAt70Percent(t *testing.T) {
	q := NewQueue[int](10, 100)

	for i := 0; i < 7; i++ {
		q.Send(i)
	}

	stats := q.Stats()
	if stats.Capacity <= 10 {
		t.Errorf("Capacity = %d, expected growth after 70%% fill", stats.Capacity)
	}
	if stats.ResizeCount != 1 {
		t.Errorf("ResizeCount = %d, want 1", stats.ResizeCount)
	}

	for i := 0; i < 7; i++ {
		val, _ := q.Receive()
		if val != i {
			t.Errorf("received %d, want %d", val, i)
		}
	}
}

func TestQueue_RejectsAtLimit(t *testing.T) {
	q := NewQueue[int](2, 4)

	for i := 0; i < 4; i++ {
		if !q.Send(i) {
			t.Fatalf("Send(%d) refused below limit", i)
		}
	}
	if q.Send(4) {
		t.Error("Send succeeded at limit")
	}
	if got := q.Stats().Rejected; got != 1 {
		t.Errorf("Rejected = %d, want 1", got)
	}

	// Draining frees room again.
	q.Receive()
	if !q.Send(5) {
		t.Error("Send refused after draining")
	}
}

func TestQueue_LimitRaisedToInitialCapacity(t *testing.T) {
	q := NewQueue[int](8, 2)
	if got := q.Stats().Limit; got != 8 {
		t.Errorf("Limit = %d, want 8", got)
	}
}

func TestQueue_WrapAround(t *testing.T) {
	q := NewQueue[int](10, 100)

	for i := 0; i < 6; i++ {
		q.Send(i)
	}
	for i := 0; i < 5; i++ {
		q.Receive()
	}
	// tail wraps past the end of the ring, then the ring grows while wrapped.
	for i := 6; i < 12; i++ {
		q.Send(i)
	}
	if got := q.Stats().ResizeCount; got != 1 {
		t.Fatalf("ResizeCount = %d, want 1", got)
	}

	for want := 5; want < 12; want++ {
		got, ok := q.Receive()
		if !ok {
			t.Fatalf("Receive() returned false, want %d", want)
		}
		if got != want {
			t.Errorf("received %d, want %d", got, want)
		}
	}
}

func TestQueue_CloseDrainsThenStops(t *testing.T) {
	q := NewQueue[int](10, 100)
	q.Send(1)
	q.Send(2)
	q.Close()

	if q.Send(3) {
		t.Error("Send after Close returned true")
	}

	for _, want := range []int{1, 2} {
		got, ok := q.Receive()
		if !ok || got != want {
			t.Errorf("Receive() = %d, %v; want %d, true", got, ok, want)
		}
	}
	if _, ok := q.Receive(); ok {
		t.Error("Receive() on closed empty queue returned true")
	}
}

func TestQueue_CloseUnblocksReceive(t *testing.T) {
	q := NewQueue[int](10, 100)

	done := make(chan bool)
	go func() {
		_, ok := q.Receive()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Receive() returned true after Close on empty queue")
		}
	case <-time.After(time.Second):
		t.Fatal("Receive() did not unblock after Close")
	}
}

func TestQueue_ConcurrentSendReceive(t *testing.T) {
	q := NewQueue[int](4, 10000)
	const n = 1000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			q.Send(i)
		}
		q.Close()
	}()

	next := 0
	for {
		v, ok := q.Receive()
		if !ok {
			break
		}
		if v != next {
			t.Fatalf("received %d, want %d (order violated)", v, next)
		}
		next++
	}
	wg.Wait()

	if next != n {
		t.Errorf("received %d items, want %d", next, n)
	}
}
