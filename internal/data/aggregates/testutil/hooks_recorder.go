package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/yungbote/trainforge-backend/internal/data/aggregates"
)

// OpStats is what one aggregate operation (e.g. "training.module.save") reported.
type OpStats struct {
	Calls     int
	Statuses  map[string]int
	Last      string
	Conflicts int
	Retries   int
	Total     time.Duration
}

// HooksRecorder keeps a per-operation ledger of aggregate hook signals.
type HooksRecorder struct {
	mu  sync.Mutex
	ops map[string]*OpStats
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) entry(op string) *OpStats {
	if h.ops == nil {
		h.ops = map[string]*OpStats{}
	}
	s, ok := h.ops[op]
	if !ok {
		s = &OpStats{Statuses: map[string]int{}}
		h.ops[op] = s
	}
	return s
}

func (h *HooksRecorder) ObserveOperation(op, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.entry(op)
	s.Calls++
	s.Statuses[status]++
	s.Last = status
	s.Total += dur
}

func (h *HooksRecorder) IncConflict(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entry(op).Conflicts++
}

func (h *HooksRecorder) IncRetry(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entry(op).Retries++
}

// Stats returns a copy of the ledger entry for op. Unseen operations return zero stats.
func (h *HooksRecorder) Stats(op string) OpStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.ops[op]
	if !ok {
		return OpStats{Statuses: map[string]int{}}
	}
	out := *s
	out.Statuses = make(map[string]int, len(s.Statuses))
	for k, v := range s.Statuses {
		out.Statuses[k] = v
	}
	return out
}

// LastStatus returns the status of the most recent call to op.
func (h *HooksRecorder) LastStatus(op string) (string, bool) {
	s := h.Stats(op)
	return s.Last, s.Calls > 0
}

// Ops lists every operation that reported anything, sorted.
func (h *HooksRecorder) Ops() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.ops))
	for op := range h.ops {
		out = append(out, op)
	}
	sort.Strings(out)
	return out
}

func (h *HooksRecorder) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ops = nil
}
