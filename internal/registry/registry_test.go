package registry

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistry_AdmitUpToCap(t *testing.T) {
	r := New(3)

	for i := 0; i < 3; i++ {
		if !r.Admit(fmt.Sprintf("s%d", i)) {
			t.Fatalf("Admit(s%d) refused below cap", i)
		}
	}

	if r.Admit("s3") {
		t.Error("Admit succeeded at cap")
	}
	if r.Count() != 3 {
		t.Errorf("Count() = %d after refused admit, want 3", r.Count())
	}
	if r.Contains("s3") {
		t.Error("refused id must not be registered")
	}
}

func TestRegistry_AdmitDuplicate(t *testing.T) {
	r := New(1)

	if !r.Admit("a") {
		t.Fatal("Admit(a) refused")
	}
	if !r.Admit("a") {
		t.Error("re-admitting a present id should succeed")
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistry_RemoveIdempotent(t *testing.T) {
	r := New(2)
	r.Admit("a")

	if !r.Remove("a") {
		t.Error("Remove(a) = false, want true")
	}
	if r.Remove("a") {
		t.Error("second Remove(a) = true, want false")
	}
	if r.Remove("never") {
		t.Error("Remove of absent id = true, want false")
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}

	// Capacity frees up after removal.
	r.Admit("b")
	r.Admit("c")
	if r.Admit("d") {
		t.Error("Admit succeeded at cap")
	}
	r.Remove("b")
	if !r.Admit("d") {
		t.Error("Admit refused after a slot was freed")
	}
}

func TestRegistry_ConcurrentAdmitNeverExceedsCap(t *testing.T) {
	const max = 10
	r := New(max)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if r.Admit(fmt.Sprintf("s%d", i)) {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if admitted != max {
		t.Errorf("admitted = %d, want %d", admitted, max)
	}
	if r.Count() != max {
		t.Errorf("Count() = %d, want %d", r.Count(), max)
	}
}

func TestRegistry_IDs(t *testing.T) {
	r := New(5)
	for _, id := range []string{"c", "a", "b"} {
		r.Admit(id)
	}
	r.Remove("b")

	got := r.IDs()
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("IDs() = %v, want [a c]", got)
	}
}
