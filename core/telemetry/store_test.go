package telemetry

import (
	"testing"
	"time"
)

func TestMemoryStoreLatest(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	s.Record(Reading{Gauge: "R4", Value: 700, Timestamp: base})
	s.Record(Reading{Gauge: "R4", Value: 710, Timestamp: base.Add(time.Hour)})
	// Out-of-order insert must not displace the newest reading.
	s.Record(Reading{Gauge: "R4", Value: 690, Timestamp: base.Add(-time.Hour)})

	r, ok := s.Latest("R4")
	if !ok {
		t.Fatalf("expected a reading")
	}
	if r.Value != 710 {
		t.Fatalf("expected newest reading, got %v", r.Value)
	}
	if _, ok := s.Latest("R30"); ok {
		t.Fatalf("unexpected reading for empty gauge")
	}
}

func TestMemoryStoreSeries(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.Record(Reading{Gauge: "ABAY_ft", Value: 1170 + float64(i), Timestamp: base.Add(time.Duration(i) * time.Hour)})
	}
	got := s.Series("ABAY_ft", base.Add(time.Hour), base.Add(4*time.Hour))
	if len(got) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(got))
	}
	if got[0].Value != 1171 || got[2].Value != 1173 {
		t.Fatalf("unexpected window contents: %+v", got)
	}
}

func TestMemoryStoreMaxAge(t *testing.T) {
	s := NewMemoryStore()
	s.MaxAge = 2 * time.Hour
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.Record(Reading{Gauge: "R20", Value: float64(i), Timestamp: base.Add(time.Duration(i) * time.Hour)})
	}
	got := s.Series("R20", base, base.Add(5*time.Hour))
	if len(got) != 3 {
		t.Fatalf("expected pruned series of 3, got %d", len(got))
	}
}
