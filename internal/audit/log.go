// Package audit keeps a bounded in-memory record of every processed
// operation and answers queries over it.
package audit

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of records kept before the oldest are evicted.
const DefaultCapacity = 1000

// Log is a concurrency-safe, bounded, append-only audit log.
type Log struct {
	mu       sync.RWMutex
	records  []Record
	capacity int
	sinks    []Sink
	now      func() time.Time
}

// NewLog creates a log holding at most capacity records.
func NewLog(capacity int, sinks ...Sink) *Log {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Log{
		records:  make([]Record, 0, min(capacity, 64)),
		capacity: capacity,
		sinks:    sinks,
		now:      time.Now,
	}
}

// AddSink registers an additional sink. Not safe to call concurrently with Record.
func (l *Log) AddSink(s Sink) {
	l.sinks = append(l.sinks, s)
}

// Record appends rec, assigning its ID and timestamp if unset, and returns
// the stored copy.
func (l *Log) Record(rec Record) Record {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.now().UTC()
	}
	rec = rec.clone()

	l.mu.Lock()
	if len(l.records) >= l.capacity {
		// Drop from the front; copy keeps the backing array from growing.
		n := copy(l.records, l.records[len(l.records)-l.capacity+1:])
		l.records = l.records[:n]
	}
	l.records = append(l.records, rec)
	l.mu.Unlock()

	for _, s := range l.sinks {
		s.Log(rec.clone())
	}
	return rec.clone()
}

// Query returns matching records, newest first.
func (l *Log) Query(q Query) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, 0)
	for i := len(l.records) - 1; i >= 0; i-- {
		r := l.records[i]
		if q.Operation != "" && r.Operation != q.Operation {
			continue
		}
		if q.Success != nil && r.Success != *q.Success {
			continue
		}
		out = append(out, r.clone())
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out
}

// Stats aggregates over every record currently held.
func (l *Log) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st := Stats{OperationsByType: make(map[string]int)}
	var totalMS float64
	for _, r := range l.records {
		st.TotalOperations++
		if r.Success {
			st.SuccessfulOperations++
		} else {
			st.FailedOperations++
		}
		st.OperationsByType[r.Operation]++
		totalMS += r.ExecutionTimeMS
	}
	if st.TotalOperations > 0 {
		st.SuccessRate = float64(st.SuccessfulOperations) / float64(st.TotalOperations)
		st.AverageExecutionMS = round2(totalMS / float64(st.TotalOperations))
	}
	return st
}

// Operations returns the distinct operation names present, sorted.
func (l *Log) Operations() []string {
	l.mu.RLock()
	seen := make(map[string]struct{})
	for _, r := range l.records {
		seen[r.Operation] = struct{}{}
	}
	l.mu.RUnlock()

	ops := make([]string, 0, len(seen))
	for op := range seen {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Clear removes every record and returns how many were dropped.
func (l *Log) Clear() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.records)
	l.records = l.records[:0]
	return n
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

func (l *Log) Capacity() int {
	return l.capacity
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
