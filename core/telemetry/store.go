// Package telemetry holds the latest gauge and meter readings feeding the
// input assembler. Readings arrive from the MQTT subscriber or from tests;
// the assembler only ever reads.
package telemetry

import (
	"sort"
	"sync"
	"time"
)

// Reading is one timestamped observation of a named gauge.
type Reading struct {
	Gauge     string    `json:"gauge"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the observation surface consumed by the input assembler.
type Store interface {
	Record(Reading)
	Latest(gauge string) (Reading, bool)
	Series(gauge string, from, to time.Time) []Reading
}

// MemoryStore keeps readings per gauge, ordered by timestamp.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]Reading
	// MaxAge drops readings older than this on insert; zero keeps everything.
	MaxAge time.Duration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]Reading{}}
}

func (s *MemoryStore) Record(r Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	series := append(s.data[r.Gauge], r)
	sort.Slice(series, func(i, j int) bool { return series[i].Timestamp.Before(series[j].Timestamp) })
	if s.MaxAge > 0 {
		cutoff := r.Timestamp.Add(-s.MaxAge)
		i := 0
		for i < len(series) && series[i].Timestamp.Before(cutoff) {
			i++
		}
		series = series[i:]
	}
	s.data[r.Gauge] = series
}

// Latest returns the most recent reading for the gauge.
func (s *MemoryStore) Latest(gauge string) (Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.data[gauge]
	if len(series) == 0 {
		return Reading{}, false
	}
	return series[len(series)-1], true
}

// Series returns readings with from <= timestamp < to, oldest first.
func (s *MemoryStore) Series(gauge string, from, to time.Time) []Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Reading
	for _, r := range s.data[gauge] {
		if r.Timestamp.Before(from) || !r.Timestamp.Before(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}
