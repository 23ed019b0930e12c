package monotone

import (
	"math/rand"
	"sync"
	"testing"
)

func TestReconcilePassthroughWhileGrowing(t *testing.T) {
	r := NewReconciler()
	for _, raw := range []float64{0, 10, 10, 250, 1000} {
		if got := r.Reconcile("tup_fetched", raw); got != raw {
			t.Fatalf("Reconcile(%v) = %v, want passthrough", raw, got)
		}
	}
}

func TestReconcileFirstObservationReportedAsIs(t *testing.T) {
	r := NewReconciler()
	if got := r.Reconcile("xact_total", 4200); got != 4200 {
		t.Fatalf("first Reconcile() = %v, want 4200", got)
	}
}

func TestReconcileReanchorsAfterReset(t *testing.T) {
	r := NewReconciler()
	raws := []float64{100, 150, 20}
	want := []float64{100, 150, 170}
	for i, raw := range raws {
		if got := r.Reconcile("blks_hit", raw); got != want[i] {
			t.Fatalf("step %d: Reconcile(%v) = %v, want %v", i, raw, got, want[i])
		}
	}
}

func TestReconcileResetStorm(t *testing.T) {
	r := NewReconciler()
	raws := []float64{50, 0, 0, 5}
	want := []float64{50, 50, 50, 55}
	for i, raw := range raws {
		if got := r.Reconcile("buffers_clean", raw); got != want[i] {
			t.Fatalf("step %d: Reconcile(%v) = %v, want %v", i, raw, got, want[i])
		}
	}
}

func TestReconcileFetchOutageDoesNotRegress(t *testing.T) {
	r := NewReconciler()
	if got := r.Reconcile("tup_inserted", 80); got != 80 {
		t.Fatalf("healthy reading = %v, want 80", got)
	}
	// A failed fetch reports the 0 sentinel.
	if got := r.Reconcile("tup_inserted", 0); got != 80 {
		t.Fatalf("outage reading = %v, want 80", got)
	}
	if got := r.Reconcile("tup_inserted", 10); got != 90 {
		t.Fatalf("post-outage reading = %v, want 90", got)
	}
}

func TestReconcileRepeatedIdenticalRawIsNoOp(t *testing.T) {
	r := NewReconciler()
	r.Reconcile("tmp_bytes", 300)
	first := r.Reconcile("tmp_bytes", 300)
	second := r.Reconcile("tmp_bytes", 300)
	if first != 300 || second != 300 {
		t.Fatalf("repeated raw = %v, %v, want 300 both times", first, second)
	}
	// Offset must not have moved: the next growth step is still passthrough.
	if got := r.Reconcile("tmp_bytes", 301); got != 301 {
		t.Fatalf("growth after repeats = %v, want 301", got)
	}
}

func TestReconcileKeysAreIsolated(t *testing.T) {
	r := NewReconciler()
	r.Reconcile("a", 500)
	r.Reconcile("a", 5) // reset on "a"

	if got := r.Reconcile("b", 3); got != 3 {
		t.Fatalf(`key "b" = %v, want 3`, got)
	}
	if got := r.Reconcile("a", 10); got != 510 {
		t.Fatalf(`key "a" = %v, want 510`, got)
	}
}

func TestReconcileMonotonicOverRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	r := NewReconciler()

	last := -1.0
	for i := 0; i < 10000; i++ {
		raw := float64(rng.Intn(1000))
		got := r.Reconcile("random", raw)
		if got < last {
			t.Fatalf("step %d: corrected %v < previous %v", i, got, last)
		}
		last = got
	}
}

func TestSnapshotReturnsCorrectedValues(t *testing.T) {
	r := NewReconciler()
	r.Reconcile("a", 100)
	r.Reconcile("a", 7) // reset detected, corrected becomes 107
	r.Reconcile("b", 12)

	snap := r.Snapshot()
	if snap["a"] != 107 {
		t.Fatalf(`snapshot["a"] = %v, want 107`, snap["a"])
	}
	if snap["b"] != 12 {
		t.Fatalf(`snapshot["b"] = %v, want 12`, snap["b"])
	}

	snap["a"] = 0
	if got := r.Reconcile("a", 7); got != 107 {
		t.Fatalf("snapshot mutation leaked into state: %v", got)
	}
}

func TestOnResetFiresPerDetectedReset(t *testing.T) {
	r := NewReconciler()
	var fired []string
	r.OnReset = func(key string) { fired = append(fired, key) }

	r.Reconcile("a", 100)
	r.Reconcile("a", 150)
	r.Reconcile("a", 20)
	r.Reconcile("a", 25)

	if len(fired) != 1 || fired[0] != "a" {
		t.Fatalf("OnReset fired = %v, want [a]", fired)
	}
}

func TestReconcileSameKeyConcurrently(t *testing.T) {
	r := NewReconciler()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 2000; i++ {
				r.Reconcile("shared", float64(rng.Intn(500)))
			}
		}(int64(g))
	}
	wg.Wait()

	// Whatever the interleaving, the state must still be internally
	// consistent: a huge raw reading reports at least that much.
	final := r.Reconcile("shared", 1e9)
	if next := r.Reconcile("shared", 1e9); next < final {
		t.Fatalf("corrected regressed under concurrency: %v then %v", final, next)
	}
}
