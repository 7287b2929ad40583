// Package store holds the bounded in-memory window of recently ingested
// records. It is the only shared mutable state in the receiver: connection
// handlers append, the query engine reads through Snapshot, and nothing
// holds a reference into the internal ring.
package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/logharbor/logharbor/internal/model"
)

// DefaultMaxLogs is the default retention window in records.
const DefaultMaxLogs = 10000

// LogStore is a fixed-capacity FIFO buffer of records. When full, appending
// evicts the single oldest record. Append is O(1); Snapshot is O(current
// length). All methods are safe for concurrent use.
type LogStore struct {
	mu    sync.Mutex
	ring  []model.Record
	head  int // index of the oldest record
	count int // number of records currently held

	// Cumulative counters, independent of eviction.
	totalAppended int64
	totalBytes    int64
	decodeErrors  int64

	// Ingestion rate sampling.
	windowCounter int64
	currentRate   atomic.Value // float64
}

// Stats is a point-in-time view of the store's counters for the stats API.
type Stats struct {
	IngestionRate float64 `json:"ingestion_rate"` // records/sec
	TotalLogs     int64   `json:"total_logs"`     // cumulative appends
	CurrentLogs   int     `json:"current_logs"`   // currently retained
	MaxLogs       int     `json:"max_logs"`       // retention capacity
	BytesIngested int64   `json:"bytes_ingested"` // cumulative serialized bytes
	DecodeErrors  int64   `json:"decode_errors"`  // malformed lines dropped
}

// New creates an empty store with the given capacity. Capacities below 1
// fall back to DefaultMaxLogs.
func New(maxLogs int) *LogStore {
	if maxLogs <= 0 {
		maxLogs = DefaultMaxLogs
	}
	s := &LogStore{ring: make([]model.Record, maxLogs)}
	s.currentRate.Store(float64(0))
	return s
}

// Append adds record as the newest entry, evicting the oldest when at
// capacity. The critical section is O(1) regardless of capacity.
func (s *LogStore) Append(record model.Record) {
	s.mu.Lock()
	if s.count == len(s.ring) {
		// Overwrite the oldest slot and advance the head.
		s.ring[s.head] = record
		s.head = (s.head + 1) % len(s.ring)
	} else {
		s.ring[(s.head+s.count)%len(s.ring)] = record
		s.count++
	}
	s.mu.Unlock()

	atomic.AddInt64(&s.totalAppended, 1)
	atomic.AddInt64(&s.totalBytes, int64(record.Size()))
	atomic.AddInt64(&s.windowCounter, 1)
}

// Snapshot returns a copy of the current contents, oldest first. Later
// appends never alter a snapshot already taken.
func (s *LogStore) Snapshot() []model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Record, s.count)
	for i := 0; i < s.count; i++ {
		out[i] = s.ring[(s.head+i)%len(s.ring)]
	}
	return out
}

// Len returns the number of records currently retained.
func (s *LogStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// TotalCount returns the cumulative number of records ever appended,
// monotonically non-decreasing and unaffected by eviction.
func (s *LogStore) TotalCount() int64 {
	return atomic.LoadInt64(&s.totalAppended)
}

// CountDecodeError records one malformed line dropped by a handler.
func (s *LogStore) CountDecodeError() {
	atomic.AddInt64(&s.decodeErrors, 1)
}

// Stats returns the current counters and ingestion rate.
func (s *LogStore) Stats() Stats {
	return Stats{
		IngestionRate: s.currentRate.Load().(float64),
		TotalLogs:     s.TotalCount(),
		CurrentLogs:   s.Len(),
		MaxLogs:       len(s.ring),
		BytesIngested: atomic.LoadInt64(&s.totalBytes),
		DecodeErrors:  atomic.LoadInt64(&s.decodeErrors),
	}
}

// StartRateTicker starts a background goroutine that recomputes the
// ingestion rate once per interval, until the context is cancelled.
func (s *LogStore) StartRateTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				count := atomic.SwapInt64(&s.windowCounter, 0)
				s.currentRate.Store(float64(count) / interval.Seconds())
			case <-ctx.Done():
				return
			}
		}
	}()
}
