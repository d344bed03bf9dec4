package flow

import (
	"math"
	"testing"

	"github.com/pcwa-smotley/abayopt/core/model"
	"github.com/pcwa-smotley/abayopt/core/physics"
)

func TestSideReduction(t *testing.T) {
	if got := SideReductionMW(800, 200); got != 60 {
		t.Fatalf("expected 60 got %v", got)
	}
	if got := SideReductionMW(100, 300); got != 0 {
		t.Fatalf("negative surplus must clamp to 0, got %v", got)
	}
	if got := SideReductionMW(2000, 0); got != 86 {
		t.Fatalf("expected cap 86 got %v", got)
	}
}

func TestMF12MWGen(t *testing.T) {
	got := MF12MW(150, 800, 200, model.ModeGen)
	if math.Abs(got-53.1) > 1e-9 {
		t.Fatalf("expected 53.1 got %v", got)
	}
}

func TestMF12MWSpillBypassesReduction(t *testing.T) {
	// SPILL never includes the side-channel reduction used in GEN.
	gen := MF12MW(150, 800, 200, model.ModeGen)
	spill := MF12MW(150, 800, 200, model.ModeSpill)
	if math.Abs(spill-150*0.59) > 1e-9 {
		t.Fatalf("expected %v got %v", 150*0.59, spill)
	}
	if spill <= gen {
		t.Fatalf("spill output must exceed gen output when reduction applies")
	}
}

func TestMF12MWFloor(t *testing.T) {
	if got := MF12MW(2, 2000, 0, model.ModeGen); got != 0 {
		t.Fatalf("expected 0 got %v", got)
	}
}

func TestRegulatedGenCFS(t *testing.T) {
	// Cap binds.
	if got := RegulatedGenCFS(500, 800, 200); got != 886 {
		t.Fatalf("expected cap 886 got %v", got)
	}
	// Floor binds when the combined term would go negative.
	if got := RegulatedGenCFS(10, 0, 100); got != 0 {
		t.Fatalf("expected floor 0 got %v", got)
	}
	// Interior value.
	if got := RegulatedGenCFS(100, 500, 200); got != 400 {
		t.Fatalf("expected 400 got %v", got)
	}
}

func testRow(mode model.Mode) *model.Row {
	return &model.Row{
		R30:  model.Comp(300),
		R4:   model.Comp(800),
		R20:  model.Comp(120),
		R5L:  model.Comp(200),
		R26:  model.Comp(50),
		MFRA: model.Comp(150),
		Mode: mode,
	}
}

func TestResolvePrefersActual(t *testing.T) {
	row := testRow(model.ModeGen)
	row.R4.SetActual(850)
	terms := Resolve(row)
	if terms.R4 != 850 {
		t.Fatalf("expected actual 850 got %v", terms.R4)
	}
}

func TestNetCFSByMode(t *testing.T) {
	gen := Resolve(testRow(model.ModeGen))
	spill := Resolve(testRow(model.ModeSpill))

	base := 300.0 + 800 + (120 - 200) - 50
	mf12Gen := physics.MF12CFS((150 - 60) * 0.59)
	reg := RegulatedGenCFS(mf12Gen, 800, 200)
	wantGen := base + reg - physics.OxbowCFS(2.0)
	if got := gen.NetCFS(2.0); math.Abs(got-wantGen) > 1e-9 {
		t.Fatalf("gen net: expected %v got %v", wantGen, got)
	}

	mf12Spill := physics.MF12CFS(150 * 0.59)
	wantSpill := base + mf12Spill - physics.OxbowCFS(2.0)
	if got := spill.NetCFS(2.0); math.Abs(got-wantSpill) > 1e-9 {
		t.Fatalf("spill net: expected %v got %v", wantSpill, got)
	}
	if gen.RegulatedCFS == 0 {
		t.Fatalf("gen mode should carry a regulated component")
	}
	if spill.RegulatedCFS != 0 {
		t.Fatalf("spill mode must not carry the regulated component")
	}
}
