package model

import "time"

// Provenance distinguishes rows backed by observed data from forecast rows.
type Provenance int

const (
	ProvForecast Provenance = iota
	ProvObserved
)

// String returns a human-readable representation of the provenance flag.
func (p Provenance) String() string {
	if p == ProvObserved {
		return "observed"
	}
	return "forecast"
}

// Component is a single named inflow/outflow series value for one hour. The
// forecast value is always present; an actual reading, when available,
// supersedes it everywhere the value is consumed.
type Component struct {
	Forecast float64  `json:"forecast"`
	Actual   *float64 `json:"actual,omitempty"`
}

// Value returns the actual reading when present and the forecast otherwise.
// Both the scheduler and the recalculation engine resolve components through
// this method so the two paths can never disagree on inputs.
func (c Component) Value() float64 {
	if c.Actual != nil {
		return *c.Actual
	}
	return c.Forecast
}

// SetActual records an observed reading for the component.
func (c *Component) SetActual(v float64) {
	c.Actual = &v
}

// Comp builds a Component holding only a forecast value.
func Comp(forecast float64) Component { return Component{Forecast: forecast} }

// Row is one hour-ending time step of the schedule.
type Row struct {
	Timestamp time.Time `json:"timestamp"`

	// Operator command and the ramp/head-limited output it produces. The two
	// are allowed to differ; Generation is never assigned from Setpoint other
	// than through the physics pass.
	SetpointMW   float64 `json:"setpoint_mw"`
	GenerationMW float64 `json:"generation_mw"`

	// Inflow/outflow components. River gauges in CFS, MFRA in MW.
	R30  Component `json:"r30"`
	R4   Component `json:"r4"`
	R20  Component `json:"r20"`
	R5L  Component `json:"r5l"`
	R26  Component `json:"r26"`
	MFRA Component `json:"mfra"`

	Mode    Mode    `json:"mode"`
	FloatFt float64 `json:"float_ft"` // operational float (spill) elevation target
	BiasCFS float64 `json:"bias_cfs"` // correction applied to net inflow this hour

	// Derived reservoir state. ObservedElevationFt carries the gauge reading
	// when one exists for the hour; ElevationFt is the expected (computed)
	// trace.
	ElevationFt         float64  `json:"elevation_ft"`
	StorageAF           float64  `json:"storage_af"`
	ObservedElevationFt *float64 `json:"observed_elevation_ft,omitempty"`

	Provenance Provenance `json:"provenance"`
	// Degraded marks rows whose inputs came from a persistence fallback
	// rather than a live forecast.
	Degraded bool `json:"degraded,omitempty"`

	// Rafting window bookkeeping stamped by the input assembler.
	SummerWindow bool    `json:"summer_window,omitempty"`
	SmoothWeight float64 `json:"smooth_weight,omitempty"`

	// Diagnostics written by the physics passes.
	MF12MW             float64 `json:"mf12_mw"`
	MF12CFS            float64 `json:"mf12_cfs"`
	RegulatedCFS       float64 `json:"regulated_cfs"`
	OutflowCFS         float64 `json:"outflow_cfs"`
	HeadLimitMW        float64 `json:"head_limit_mw"`
	SetpointChangeTime string  `json:"setpoint_change_time,omitempty"`

	ViolatesMin   bool `json:"violates_min,omitempty"`
	ViolatesFloat bool `json:"violates_float,omitempty"`
	ViolatesHead  bool `json:"violates_head,omitempty"`
}

// RowSequence is an ordered, hour-ending series of rows.
type RowSequence []Row

// Clone returns a deep copy of the sequence. Component actuals are copied so
// edits on the clone cannot leak into the original.
func (rs RowSequence) Clone() RowSequence {
	out := make(RowSequence, len(rs))
	copy(out, rs)
	for i := range out {
		out[i].R30 = cloneComp(rs[i].R30)
		out[i].R4 = cloneComp(rs[i].R4)
		out[i].R20 = cloneComp(rs[i].R20)
		out[i].R5L = cloneComp(rs[i].R5L)
		out[i].R26 = cloneComp(rs[i].R26)
		out[i].MFRA = cloneComp(rs[i].MFRA)
		if rs[i].ObservedElevationFt != nil {
			v := *rs[i].ObservedElevationFt
			out[i].ObservedElevationFt = &v
		}
	}
	return out
}

func cloneComp(c Component) Component {
	if c.Actual != nil {
		v := *c.Actual
		c.Actual = &v
	}
	return c
}

// IndexAt returns the position of the row with the given hour-ending
// timestamp, or -1 when absent.
func (rs RowSequence) IndexAt(ts time.Time) int {
	for i := range rs {
		if rs[i].Timestamp.Equal(ts) {
			return i
		}
	}
	return -1
}
