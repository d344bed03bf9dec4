package rafting

import (
	"testing"
	"time"
)

func mustPolicy(t *testing.T, cfg Config) *Policy {
	t.Helper()
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	return p
}

func ptTime(t *testing.T, y int, m time.Month, d, h, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return time.Date(y, m, d, h, min, 0, 0, loc)
}

func TestLaborDay(t *testing.T) {
	if got := laborDay(2025); got.Day() != 1 || got.Month() != time.September {
		t.Fatalf("labor day 2025 should be Sept 1, got %v", got)
	}
}

func TestMemorialDayWeekendStart(t *testing.T) {
	if got := memorialDayWeekendStart(2025); got.Month() != time.May || got.Day() != 24 {
		t.Fatalf("expected May 24 2025, got %v", got)
	}
}

func TestActiveInsideWindow(t *testing.T) {
	p := mustPolicy(t, Config{WaterYearType: BelowNormal})
	// Tuesday July 8 2025, 10:00 PT: main season weekday window 09:00-12:00.
	if !p.Active(ptTime(t, 2025, time.July, 8, 10, 0)) {
		t.Fatalf("expected active window")
	}
	// Monday is not a release day for Below Normal.
	if p.Active(ptTime(t, 2025, time.July, 7, 10, 0)) {
		t.Fatalf("monday must not be active")
	}
	// Night hour outside bounds.
	if p.Active(ptTime(t, 2025, time.July, 8, 22, 0)) {
		t.Fatalf("night hour must not be active")
	}
}

func TestActiveOutOfSeason(t *testing.T) {
	p := mustPolicy(t, Config{WaterYearType: Wet})
	if p.Active(ptTime(t, 2025, time.November, 5, 10, 0)) {
		t.Fatalf("november is out of season")
	}
}

func TestEarlyReleaseSaturday(t *testing.T) {
	p := mustPolicy(t, Config{
		WaterYearType:         BelowNormal,
		EarlyReleaseSaturdays: []string{"2025-06-28"},
	})
	// 05:00 Saturday is active only on an early-release weekend.
	if !p.Active(ptTime(t, 2025, time.June, 28, 5, 0)) {
		t.Fatalf("early release saturday should be active at 05:00")
	}
	if p.Active(ptTime(t, 2025, time.June, 14, 5, 0)) {
		t.Fatalf("plain saturday must not be active at 05:00")
	}
}

func TestPostLaborDaySchedule(t *testing.T) {
	p := mustPolicy(t, Config{WaterYearType: BelowNormal})
	// Thursday Sept 11 2025 is after Labor Day: Below Normal drops Thursday.
	if p.Active(ptTime(t, 2025, time.September, 11, 10, 0)) {
		t.Fatalf("post-labor-day thursday must not be active")
	}
	// Tuesday stays in the schedule.
	if !p.Active(ptTime(t, 2025, time.September, 9, 10, 0)) {
		t.Fatalf("post-labor-day tuesday should be active")
	}
}

func TestCheckConflict(t *testing.T) {
	p := mustPolicy(t, Config{WaterYearType: BelowNormal})
	start := ptTime(t, 2025, time.July, 8, 7, 0)
	end := ptTime(t, 2025, time.July, 8, 14, 0)

	c := p.CheckConflict(4.0, start, end)
	if c == nil {
		t.Fatalf("4.0 MW during an active window must conflict")
	}
	if c.Window.TargetMW != 5.8 {
		t.Fatalf("expected target 5.8 got %v", c.Window.TargetMW)
	}
	if c.Window.Day != "Tuesday" {
		t.Fatalf("expected Tuesday got %s", c.Window.Day)
	}

	if c := p.CheckConflict(5.8, start, end); c != nil {
		t.Fatalf("meeting the target must not conflict: %v", c)
	}
}

func TestCheckConflictOutsideWindows(t *testing.T) {
	p := mustPolicy(t, Config{WaterYearType: BelowNormal})
	// Overnight range with no windows.
	start := ptTime(t, 2025, time.July, 8, 20, 0)
	end := ptTime(t, 2025, time.July, 9, 2, 0)
	if c := p.CheckConflict(1.0, start, end); c != nil {
		t.Fatalf("no window overlaps, expected nil got %v", c)
	}
}
