// Package rafting implements the recreational-flow window policy: which hours
// carry a minimum-generation commitment, and whether a proposed setpoint
// change conflicts with one.
package rafting

import (
	"fmt"
	"time"
)

// WaterYearType selects the release schedule in force for the season.
type WaterYearType string

const (
	Wet             WaterYearType = "Wet"
	AboveNormal     WaterYearType = "Above Normal"
	BelowNormal     WaterYearType = "Below Normal"
	Dry             WaterYearType = "Dry"
	Critical        WaterYearType = "Critical"
	ExtremeCritical WaterYearType = "Extreme Critical"
)

// minuteOfDay is a clock time expressed as minutes after midnight PT.
type minuteOfDay int

func mins(h, m int) minuteOfDay { return minuteOfDay(h*60 + m) }

func (m minuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// block is one weekday/weekend release block of a schedule period.
type block struct {
	days       []time.Weekday
	start, end minuteOfDay
}

func (b block) appliesTo(d time.Weekday) bool {
	for _, w := range b.days {
		if w == d {
			return true
		}
	}
	return false
}

type period struct {
	weekdays block
	weekends block
}

var weekdayMF = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
var weekendSS = []time.Weekday{time.Saturday, time.Sunday}

// schedules maps water year type to the main-season and post-Labor-Day
// release blocks. Times are Pacific.
var schedules = map[WaterYearType]struct{ main, postLaborDay period }{
	Wet: {
		main: period{
			weekdays: block{days: weekdayMF, start: mins(9, 0), end: mins(12, 0)},
			weekends: block{days: weekendSS, start: mins(8, 0), end: mins(12, 0)},
		},
		postLaborDay: period{
			weekdays: block{days: []time.Weekday{time.Tuesday, time.Wednesday, time.Thursday, time.Friday}, start: mins(9, 0), end: mins(12, 0)},
			weekends: block{days: weekendSS, start: mins(8, 0), end: mins(12, 0)},
		},
	},
	AboveNormal: {
		main: period{
			weekdays: block{days: weekdayMF, start: mins(9, 0), end: mins(12, 0)},
			weekends: block{days: weekendSS, start: mins(8, 0), end: mins(12, 0)},
		},
		postLaborDay: period{
			weekdays: block{days: []time.Weekday{time.Tuesday, time.Wednesday, time.Friday}, start: mins(9, 0), end: mins(12, 0)},
			weekends: block{days: weekendSS, start: mins(8, 0), end: mins(12, 0)},
		},
	},
	BelowNormal: {
		main: period{
			weekdays: block{days: []time.Weekday{time.Tuesday, time.Wednesday, time.Thursday, time.Friday}, start: mins(9, 0), end: mins(12, 0)},
			weekends: block{days: weekendSS, start: mins(8, 0), end: mins(12, 0)},
		},
		postLaborDay: period{
			weekdays: block{days: []time.Weekday{time.Tuesday, time.Wednesday, time.Friday}, start: mins(9, 0), end: mins(12, 0)},
			weekends: block{days: weekendSS, start: mins(8, 0), end: mins(12, 0)},
		},
	},
	Dry: {
		main: period{
			weekdays: block{days: []time.Weekday{time.Tuesday, time.Wednesday, time.Thursday}, start: mins(8, 0), end: mins(11, 0)},
			weekends: block{days: weekendSS, start: mins(8, 0), end: mins(12, 0)},
		},
		postLaborDay: period{
			weekdays: block{days: []time.Weekday{time.Wednesday, time.Friday}, start: mins(8, 0), end: mins(11, 0)},
			weekends: block{days: weekendSS, start: mins(8, 0), end: mins(12, 0)},
		},
	},
	Critical: {
		main: period{
			weekdays: block{days: []time.Weekday{time.Wednesday, time.Friday}, start: mins(8, 0), end: mins(11, 0)},
			weekends: block{days: weekendSS, start: mins(8, 0), end: mins(12, 0)},
		},
		postLaborDay: period{
			weekends: block{days: []time.Weekday{time.Saturday}, start: mins(8, 0), end: mins(12, 0)},
		},
	},
	ExtremeCritical: {
		main: period{
			weekdays: block{days: []time.Weekday{time.Wednesday}, start: mins(8, 0), end: mins(11, 0)},
			weekends: block{days: weekendSS, start: mins(8, 0), end: mins(12, 0)},
		},
	},
}

// earlyReleaseStart replaces the Saturday block start on designated event
// weekends.
var earlyReleaseStart = mins(4, 0)

// Config holds the operator-tunable policy parameters.
type Config struct {
	WaterYearType WaterYearType `json:"water_year_type"`
	TargetMW      float64       `json:"target_mw"`
	ToleranceMW   float64       `json:"tolerance_mw"`
	// SeasonEndMonth/Day close the season (Sept 30 by default).
	SeasonEndMonth time.Month `json:"season_end_month"`
	SeasonEndDay   int        `json:"season_end_day"`
	// EarlyReleaseSaturdays lists event weekends with a 04:00 start,
	// formatted YYYY-MM-DD.
	EarlyReleaseSaturdays []string `json:"early_release_saturdays"`
	// Timezone defaults to America/Los_Angeles.
	Timezone string `json:"timezone"`
}

// SetDefaults fills zero values with the reference constants.
func (c *Config) SetDefaults() {
	if c.WaterYearType == "" {
		c.WaterYearType = BelowNormal
	}
	if c.TargetMW == 0 {
		c.TargetMW = 5.8
	}
	if c.ToleranceMW == 0 {
		c.ToleranceMW = 0.05
	}
	if c.SeasonEndMonth == 0 {
		c.SeasonEndMonth = time.September
		c.SeasonEndDay = 30
	}
	if c.Timezone == "" {
		c.Timezone = "America/Los_Angeles"
	}
}

// Validate checks that the configured water year type exists.
func (c Config) Validate() error {
	if _, ok := schedules[c.WaterYearType]; !ok {
		return fmt.Errorf("unknown water year type %q", c.WaterYearType)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}
	return nil
}

// Window is one active release commitment on a given local day.
type Window struct {
	Day      string  `json:"day"`
	Start    string  `json:"start"`
	End      string  `json:"end"`
	TargetMW float64 `json:"target_mw"`
}

// Conflict describes a proposed setpoint that undercuts a release window, so
// the caller can obtain operator confirmation before applying the change.
type Conflict struct {
	Window     Window  `json:"window"`
	SetpointMW float64 `json:"setpoint_mw"`
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("setpoint %.2f MW below rafting target %.2f MW during %s %s-%s",
		c.SetpointMW, c.Window.TargetMW, c.Window.Day, c.Window.Start, c.Window.End)
}

// Policy evaluates recreational-flow windows.
type Policy struct {
	cfg Config
	loc *time.Location
}

// New builds a policy from the configuration.
func New(cfg Config) (*Policy, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	return &Policy{cfg: cfg, loc: loc}, nil
}

// TargetMW returns the configured rafting target.
func (p *Policy) TargetMW() float64 { return p.cfg.TargetMW }

// windowFor returns the release block applying to the local day of ts, or nil
// outside the season and on non-release days.
func (p *Policy) windowFor(ts time.Time) *block {
	local := ts.In(p.loc)
	year := local.Year()
	day := time.Date(year, local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	seasonStart := memorialDayWeekendStart(year)
	seasonEnd := time.Date(year, p.cfg.SeasonEndMonth, p.cfg.SeasonEndDay, 0, 0, 0, 0, time.UTC)
	if day.Before(seasonStart) || day.After(seasonEnd) {
		return nil
	}

	sched := schedules[p.cfg.WaterYearType]
	per := sched.main
	if day.After(laborDay(year)) {
		per = sched.postLaborDay
	}

	wd := local.Weekday()
	var b block
	if wd == time.Saturday || wd == time.Sunday {
		b = per.weekends
	} else {
		b = per.weekdays
	}
	if len(b.days) == 0 || !b.appliesTo(wd) {
		return nil
	}
	if wd == time.Saturday && p.isEarlyRelease(day) {
		b.start = earlyReleaseStart
	}
	return &b
}

func (p *Policy) isEarlyRelease(day time.Time) bool {
	for _, s := range p.cfg.EarlyReleaseSaturdays {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			continue
		}
		if sameDate(d, day) {
			return true
		}
	}
	return false
}

// Active reports whether the hour-ending timestamp falls inside a release
// window, by PT minute-of-day comparison against the block bounds.
func (p *Policy) Active(ts time.Time) bool {
	b := p.windowFor(ts)
	if b == nil {
		return false
	}
	local := ts.In(p.loc)
	m := mins(local.Hour(), local.Minute())
	return m >= b.start && m <= b.end
}

// CheckConflict reports whether the proposed setpoint undercuts the rafting
// target during any active window overlapping [start, end]. A setpoint at or
// above the target (within tolerance) never conflicts.
func (p *Policy) CheckConflict(setpointMW float64, start, end time.Time) *Conflict {
	if setpointMW >= p.cfg.TargetMW-p.cfg.ToleranceMW {
		return nil
	}
	for ts := start; !ts.After(end); ts = ts.Add(time.Hour) {
		b := p.windowFor(ts)
		if b == nil {
			continue
		}
		local := ts.In(p.loc)
		m := mins(local.Hour(), local.Minute())
		if m < b.start || m > b.end {
			continue
		}
		return &Conflict{
			SetpointMW: setpointMW,
			Window: Window{
				Day:      local.Weekday().String(),
				Start:    b.start.String(),
				End:      b.end.String(),
				TargetMW: p.cfg.TargetMW,
			},
		}
	}
	return nil
}
