package database

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Metrics accumulates per-query-kind counters for the database layer.
type Metrics struct {
	mu       sync.RWMutex
	logger   *zap.Logger
	started  time.Time
	counters map[string]*queryCounter
}

type queryCounter struct {
	Count         int64
	Errors        int64
	TotalDuration time.Duration
	MaxDuration   time.Duration
}

// MetricsSnapshot is a point-in-time copy of accumulated query metrics.
type MetricsSnapshot struct {
	Uptime  time.Duration           `json:"uptime"`
	Queries map[string]QueryMetrics `json:"queries"`
}

// QueryMetrics summarizes one query kind.
type QueryMetrics struct {
	Count       int64         `json:"count"`
	Errors      int64         `json:"errors"`
	AvgDuration time.Duration `json:"avg_duration"`
	MaxDuration time.Duration `json:"max_duration"`
}

// NewMetrics creates a new metrics accumulator.
func NewMetrics(logger *zap.Logger) *Metrics {
	return &Metrics{
		logger:   logger,
		started:  time.Now(),
		counters: make(map[string]*queryCounter),
	}
}

// RecordQuery records one query execution.
func (m *Metrics) RecordQuery(kind string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[kind]
	if !ok {
		c = &queryCounter{}
		m.counters[kind] = c
	}

	c.Count++
	c.TotalDuration += duration
	if duration > c.MaxDuration {
		c.MaxDuration = duration
	}
	if err != nil {
		c.Errors++
	}
}

// Snapshot returns a copy of the accumulated metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := &MetricsSnapshot{
		Uptime:  time.Since(m.started),
		Queries: make(map[string]QueryMetrics, len(m.counters)),
	}
	for kind, c := range m.counters {
		avg := time.Duration(0)
		if c.Count > 0 {
			avg = c.TotalDuration / time.Duration(c.Count)
		}
		snapshot.Queries[kind] = QueryMetrics{
			Count:       c.Count,
			Errors:      c.Errors,
			AvgDuration: avg,
			MaxDuration: c.MaxDuration,
		}
	}
	return snapshot
}
