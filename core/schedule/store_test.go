package schedule

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pcwa-smotley/abayopt/core/model"
)

func record(status model.SolverStatus, at time.Time) RunRecord {
	return RunRecord{
		ID:        uuid.New(),
		CreatedAt: at,
		Status:    status,
		BiasCFS:   120,
		Rows: model.RowSequence{{
			Timestamp:    at,
			SetpointMW:   3.2,
			GenerationMW: 3.1,
			ElevationFt:  1171.2,
			Mode:         model.ModeGen,
			Provenance:   model.ProvForecast,
		}},
	}
}

func TestJSONLStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	s, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	rec := record(model.StatusOptimal, base)
	if err := s.Append(context.Background(), rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(context.Background(), record(model.StatusFallback, base.Add(time.Hour))); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.Query(context.Background(), Query{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ID != rec.ID || got[0].Rows[0].ElevationFt != 1171.2 {
		t.Fatalf("record not preserved: %+v", got[0])
	}
}

func TestJSONLStoreQueryFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	s, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	_ = s.Append(context.Background(), record(model.StatusOptimal, base))
	fb := record(model.StatusFallback, base.Add(2*time.Hour))
	_ = s.Append(context.Background(), fb)

	want := model.StatusFallback
	got, err := s.Query(context.Background(), Query{Status: &want})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ID != fb.ID {
		t.Fatalf("status filter failed: %+v", got)
	}

	got, err = s.Query(context.Background(), Query{Start: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ID != fb.ID {
		t.Fatalf("time filter failed: %+v", got)
	}

	rec, ok, err := s.Latest(context.Background())
	if err != nil || !ok {
		t.Fatalf("latest: %v %v", ok, err)
	}
	if rec.ID != fb.ID {
		t.Fatalf("latest returned wrong record")
	}
}

func TestWriteCSV(t *testing.T) {
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	rows := model.RowSequence{{
		Timestamp:    base,
		SetpointMW:   3.25,
		GenerationMW: 3.2,
		ElevationFt:  1171.23,
		StorageAF:    2400.5,
		Mode:         model.ModeSpill,
		Provenance:   model.ProvForecast,
		Degraded:     true,
	}}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp_utc,provenance,oxph_setpoint_mw") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "SPILL") || !strings.Contains(lines[1], "1171.23") {
		t.Fatalf("unexpected row: %s", lines[1])
	}
	if !strings.HasSuffix(lines[1], ",true") {
		t.Fatalf("degraded flag missing: %s", lines[1])
	}
}
