package temporal

import "sync"

// AccessStats summarizes the audit log
type AccessStats struct {
	Total      int              `json:"total"`
	Violations int              `json:"violations"`
	ByType     map[DataType]int `json:"by_type"`
}

// auditLog is a bounded ring of access records. Single writer (the gateway),
// concurrent readers via Records().
type auditLog struct {
	mu         sync.RWMutex
	records    []AccessRecord
	head       int
	size       int
	capacity   int
	total      int
	violations int
	byType     map[DataType]int
}

func newAuditLog(capacity int) *auditLog {
	if capacity < 1 {
		capacity = 1
	}
	return &auditLog{
		records:  make([]AccessRecord, capacity),
		capacity: capacity,
		byType:   make(map[DataType]int),
	}
}

func (l *auditLog) append(record AccessRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[(l.head+l.size)%l.capacity] = record
	if l.size < l.capacity {
		l.size++
	} else {
		l.head = (l.head + 1) % l.capacity
	}

	l.total++
	l.byType[record.DataType]++
	if !record.Allowed {
		l.violations++
	}
}

// Records returns the retained records oldest-first
func (l *auditLog) Records() []AccessRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]AccessRecord, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.records[(l.head+i)%l.capacity]
	}
	return out
}

// Stats returns counters over the full lifetime, not just retained records
func (l *auditLog) Stats() AccessStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	byType := make(map[DataType]int, len(l.byType))
	for k, v := range l.byType {
		byType[k] = v
	}
	return AccessStats{
		Total:      l.total,
		Violations: l.violations,
		ByType:     byType,
	}
}
