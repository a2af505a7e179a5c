package selector

import (
	"sync"

	"github.com/jonathan/reelsmith/internal/types"
)

// historyKey identifies a (candidate, phase) pair in the success table.
type historyKey struct {
	candidateID string
	phase       types.Phase
}

// historyTable tracks per-candidate attempt outcomes. Shared across all
// concurrent runs: single writer per record under the lock, concurrent
// readers during ranking.
type historyTable struct {
	mu      sync.RWMutex
	records map[historyKey]*historyRecord
}

type historyRecord struct {
	attempts  int
	successes int
}

func newHistoryTable() *historyTable {
	return &historyTable{records: make(map[historyKey]*historyRecord)}
}

func (h *historyTable) record(candidateID string, phase types.Phase, success bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := historyKey{candidateID: candidateID, phase: phase}
	rec, ok := h.records[key]
	if !ok {
		rec = &historyRecord{}
		h.records[key] = rec
	}
	rec.attempts++
	if success {
		rec.successes++
	}
}

// successRate returns the observed success ratio, or the neutral prior
// when the pair has no history yet.
func (h *historyTable) successRate(candidateID string, phase types.Phase) float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rec, ok := h.records[historyKey{candidateID: candidateID, phase: phase}]
	if !ok || rec.attempts == 0 {
		return neutralSuccessRate
	}
	return float64(rec.successes) / float64(rec.attempts)
}
