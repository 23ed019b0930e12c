// Package monotone converts resettable raw counter readings into
// never-decreasing corrected values, tracked independently per key.
//
// PostgreSQL's cumulative statistics can be snapped back toward zero by
// pg_stat_reset() at any time, with no signal beyond the value itself
// dropping. A visible drop on a published counter is indistinguishable from
// a process restart for downstream rate calculations, so every raw reading
// passes through a Reconciler before being exposed.
package monotone

import "sync"

type state struct {
	mu            sync.Mutex
	lastCorrected float64
	offset        float64
}

// Reconciler owns the per-key reconciliation state. The zero value is not
// usable; construct with NewReconciler. Entries are created lazily on first
// use of a key and live for the lifetime of the Reconciler.
type Reconciler struct {
	// OnReset, when non-nil, is invoked with the key each time a raw
	// counter reset is inferred. Set it before the first Reconcile call.
	OnReset func(key string)

	mu     sync.RWMutex
	states map[string]*state
}

func NewReconciler() *Reconciler {
	return &Reconciler{states: make(map[string]*state)}
}

// Reconcile observes one raw reading for key and returns the corrected
// value, guaranteed to be >= every value previously returned for that key.
//
// A raw counter reset is inferred when raw plus the accumulated offset falls
// below the highest corrected value reported so far. The offset is then
// re-anchored at that maximum, so the corrected stream continues climbing
// from where it left off by whatever the raw counter reports next. A reset
// immediately followed by raw growth that overtakes the pre-reset maximum
// before the next poll is undetectable and under-counts; that limitation is
// inherent to the signal.
//
// Calls for distinct keys proceed in parallel. Calls for the same key
// serialize on that key's entry, so the read-modify-write of the pair
// (lastCorrected, offset) is atomic.
func (r *Reconciler) Reconcile(key string, raw float64) float64 {
	st := r.entry(key)

	st.mu.Lock()
	corrected := raw + st.offset
	reset := corrected < st.lastCorrected
	if reset {
		st.offset = st.lastCorrected
		corrected = st.lastCorrected + raw
	}
	st.lastCorrected = corrected
	st.mu.Unlock()

	if reset && r.OnReset != nil {
		r.OnReset(key)
	}
	return corrected
}

// Snapshot returns the current corrected value for every key observed so
// far. The returned map is a copy; mutating it does not affect the
// Reconciler.
func (r *Reconciler) Snapshot() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]float64, len(r.states))
	for key, st := range r.states {
		st.mu.Lock()
		out[key] = st.lastCorrected
		st.mu.Unlock()
	}
	return out
}

func (r *Reconciler) entry(key string) *state {
	r.mu.RLock()
	st, ok := r.states[key]
	r.mu.RUnlock()
	if ok {
		return st
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[key]; ok {
		return st
	}
	st = &state{}
	r.states[key] = st
	return st
}
