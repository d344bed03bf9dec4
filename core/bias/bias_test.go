package bias

import (
	"math"
	"testing"
	"time"

	"github.com/pcwa-smotley/abayopt/core/flow"
	"github.com/pcwa-smotley/abayopt/core/model"
	"github.com/pcwa-smotley/abayopt/core/physics"
)

// lookbackWithOffset builds n observed hours whose actual elevation trace
// runs offsetCFS hotter than the components predict.
func lookbackWithOffset(n int, offsetCFS float64) model.RowSequence {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	rows := make(model.RowSequence, n)
	elev := 1170.0
	for i := range rows {
		rows[i] = model.Row{
			Timestamp:    start.Add(time.Duration(i) * time.Hour),
			R30:          model.Comp(300),
			R4:           model.Comp(800),
			R20:          model.Comp(120),
			R5L:          model.Comp(200),
			R26:          model.Comp(50),
			MFRA:         model.Comp(100),
			GenerationMW: 2.0,
			Mode:         model.ModeGen,
			Provenance:   model.ProvObserved,
			ElevationFt:  elev,
		}
		expected := flow.ExpectedNetCFS(&rows[i])
		af := physics.StorageFromFeet(elev) + (expected+offsetCFS)*physics.AFPerCFSHour
		elev = physics.FeetFromStorage(af)
	}
	return rows
}

func TestComputeRecoversOffset(t *testing.T) {
	rows := lookbackWithOffset(26, 150.0)
	got := Compute(rows, Config{})
	if math.Abs(got-150.0) > 1.0 {
		t.Fatalf("expected bias near 150 got %v", got)
	}
}

func TestComputeSignedNegative(t *testing.T) {
	rows := lookbackWithOffset(26, -80.0)
	got := Compute(rows, Config{})
	if math.Abs(got+80.0) > 1.0 {
		t.Fatalf("expected bias near -80 got %v", got)
	}
}

func TestComputeClampsAnomaly(t *testing.T) {
	rows := lookbackWithOffset(26, 10000.0)
	got := Compute(rows, Config{})
	if got > 2000.0+1e-9 {
		t.Fatalf("bias must be clamped, got %v", got)
	}
}

func TestComputeEmpty(t *testing.T) {
	if got := Compute(nil, Config{}); got != 0 {
		t.Fatalf("expected 0 got %v", got)
	}
}

func TestDecayedHalfLife(t *testing.T) {
	base := 200.0
	hl := 12 * time.Hour
	if got := Decayed(base, 0, hl); got != base {
		t.Fatalf("expected base at t=0 got %v", got)
	}
	got := Decayed(base, 12*time.Hour, hl)
	if math.Abs(got-100.0) > 1e-9 {
		t.Fatalf("expected half after one half-life got %v", got)
	}
}

func TestDecayedLegacyHold(t *testing.T) {
	if got := Decayed(150, 48*time.Hour, 0); got != 150 {
		t.Fatalf("zero half-life must hold constant, got %v", got)
	}
}

func TestStampPerRow(t *testing.T) {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	rows := make(model.RowSequence, 4)
	for i := range rows {
		rows[i].Timestamp = start.Add(time.Duration(i) * time.Hour)
	}
	Stamp(rows, 100, 1*time.Hour)
	if rows[0].BiasCFS != 100 {
		t.Fatalf("first row keeps base, got %v", rows[0].BiasCFS)
	}
	if math.Abs(rows[1].BiasCFS-50) > 1e-9 {
		t.Fatalf("expected 50 at +1h got %v", rows[1].BiasCFS)
	}
	if math.Abs(rows[3].BiasCFS-12.5) > 1e-9 {
		t.Fatalf("expected 12.5 at +3h got %v", rows[3].BiasCFS)
	}
}
