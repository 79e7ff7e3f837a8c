package engine

import (
	"sync"
	"time"
)

// AgentDebate captures the arguments behind a decision
type AgentDebate struct {
	BullArgument      string `json:"bull_argument"`
	BearArgument      string `json:"bear_argument"`
	ResearchSummary   string `json:"research_summary"`
	TechnicalAnalysis string `json:"technical_analysis"`
}

// DecisionRecord is one stored decision
type DecisionRecord struct {
	Symbol     string       `json:"symbol"`
	Timestamp  time.Time    `json:"timestamp"`
	Action     string       `json:"action"`
	Size       float64      `json:"size"`
	Confidence float64      `json:"confidence"`
	Sentiment  float64      `json:"sentiment"`
	Reason     string       `json:"reason"`
	Iterations int          `json:"iterations"`
	Debate     *AgentDebate `json:"agent_debate,omitempty"`
}

// recordRing is a per-symbol bounded buffer indexed modulo capacity
type recordRing struct {
	records []DecisionRecord
	head    int
	size    int
}

// History keeps the last N decisions per symbol. Single writer (the decide
// node), concurrent readers.
type History struct {
	mu       sync.RWMutex
	capacity int
	rings    map[string]*recordRing
}

// NewHistory creates a history keeping up to capacity records per symbol
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{capacity: capacity, rings: make(map[string]*recordRing)}
}

// Add appends a record to its symbol's ring
func (h *History) Add(record DecisionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ring := h.rings[record.Symbol]
	if ring == nil {
		ring = &recordRing{records: make([]DecisionRecord, h.capacity)}
		h.rings[record.Symbol] = ring
	}

	ring.records[(ring.head+ring.size)%h.capacity] = record
	if ring.size < h.capacity {
		ring.size++
	} else {
		ring.head = (ring.head + 1) % h.capacity
	}
}

// Get returns up to limit records for a symbol, oldest-first, optionally
// filtered to those at or after since. limit <= 0 returns all retained.
func (h *History) Get(symbol string, limit int, since time.Time) []DecisionRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ring := h.rings[symbol]
	if ring == nil {
		return nil
	}

	var out []DecisionRecord
	for i := 0; i < ring.size; i++ {
		r := ring.records[(ring.head+i)%h.capacity]
		if !since.IsZero() && r.Timestamp.Before(since) {
			continue
		}
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Symbols returns the symbols with at least one record
func (h *History) Symbols() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.rings))
	for symbol := range h.rings {
		out = append(out, symbol)
	}
	return out
}
