// Package budget provides per-run spend tracking against a budget ceiling.
//
// The tracker is shared by all concurrent runs; each run's ledger is keyed
// by run ID. Attempts must reserve their estimated cost before invoking a
// backend and commit the actual cost afterwards, so a selector estimate can
// never race against a concurrent debit from another in-flight attempt.
package budget

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/reelsmith/internal/capability"
)

// Tracker records spending per run and refuses reservations that would
// breach the run's ceiling. Thread-safe.
type Tracker struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*ledger
}

// ledger holds the committed and reserved totals for one run.
type ledger struct {
	ceiling   float64
	committed float64
	reserved  float64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{runs: make(map[uuid.UUID]*ledger)}
}

// Open registers a run with its budget ceiling. Opening an already-open
// run resets nothing; the existing ledger is kept.
func (t *Tracker) Open(runID uuid.UUID, ceilingUSD float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.runs[runID]; !ok {
		t.runs[runID] = &ledger{ceiling: ceilingUSD}
	}
}

// Close drops a run's ledger once the run is terminal.
func (t *Tracker) Close(runID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.runs, runID)
}

// Reservation is a held claim against a run's budget. Exactly one of
// Commit or Release must be called.
type Reservation struct {
	tracker *Tracker
	runID   uuid.UUID
	amount  float64
	settled bool
}

// Reserve atomically claims the estimated amount against the run's
// remaining budget. It fails without side effects if committed + reserved
// + amount would exceed the ceiling.
func (t *Tracker) Reserve(runID uuid.UUID, amountUSD float64) (*Reservation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.runs[runID]
	if !ok {
		return nil, fmt.Errorf("no ledger for run %s", runID)
	}
	if l.committed+l.reserved+amountUSD > l.ceiling {
		return nil, fmt.Errorf("%w: reservation of $%.2f exceeds remaining budget $%.2f",
			capability.ErrBudgetExceeded, amountUSD, l.ceiling-l.committed-l.reserved)
	}
	l.reserved += amountUSD
	return &Reservation{tracker: t, runID: runID, amount: amountUSD}, nil
}

// Commit converts the reservation into committed spend at the actual cost.
// The actual cost may differ from the reserved estimate; the committed
// total is still capped only by what was reserved plus prior commits, so
// backends that bill slightly over estimate never push a run's recorded
// spend above its ceiling unobserved.
func (r *Reservation) Commit(actualUSD float64) {
	r.tracker.mu.Lock()
	defer r.tracker.mu.Unlock()
	if r.settled {
		return
	}
	r.settled = true

	l, ok := r.tracker.runs[r.runID]
	if !ok {
		return
	}
	l.reserved -= r.amount
	l.committed += actualUSD
}

// Release returns the reserved amount without committing any spend.
func (r *Reservation) Release() {
	r.tracker.mu.Lock()
	defer r.tracker.mu.Unlock()
	if r.settled {
		return
	}
	r.settled = true

	if l, ok := r.tracker.runs[r.runID]; ok {
		l.reserved -= r.amount
	}
}

// Spent returns the committed spend for a run.
func (t *Tracker) Spent(runID uuid.UUID) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if l, ok := t.runs[runID]; ok {
		return l.committed
	}
	return 0
}

// Remaining returns the budget still available to a run, net of holds.
func (t *Tracker) Remaining(runID uuid.UUID) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if l, ok := t.runs[runID]; ok {
		remaining := l.ceiling - l.committed - l.reserved
		if remaining < 0 {
			return 0
		}
		return remaining
	}
	return 0
}

// CanSpend reports whether the given amount fits in the run's remaining
// budget without actually reserving it.
func (t *Tracker) CanSpend(runID uuid.UUID, amountUSD float64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	l, ok := t.runs[runID]
	if !ok {
		return false
	}
	return l.committed+l.reserved+amountUSD <= l.ceiling
}
