package scheduler

import (
	"math"
	"time"

	"github.com/pcwa-smotley/abayopt/core/model"
	"github.com/pcwa-smotley/abayopt/core/physics"
)

// setpointChangeThresholdMW filters annotation noise: a change smaller than
// this is the solver dithering, not an operator action.
const setpointChangeThresholdMW = 0.1

// annotateSetpointChanges stamps each forecast row with the latest minute in
// its hour when the operator must enter the new setpoint so the unit, ramping
// at its fixed rate, reaches every future end-of-hour target on time. Rows
// are hour-ending; the scan looks forward and accumulates ramp minutes until
// the implied start time falls inside the row's own hour.
func annotateSetpointChanges(rows model.RowSequence, first int, cfg Config) {
	T := len(rows) - first
	if T <= 0 {
		return
	}
	pt, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		pt = time.UTC
	}

	initial := rows[first].SetpointMW
	if first > 0 {
		initial = rows[first-1].GenerationMW
	}

	gEnd := func(t int) float64 { return rows[first+t].GenerationMW }

	for h := 0; h < T; h++ {
		he := rows[first+h].Timestamp
		hePrev := he.Add(-time.Hour)

		cum := 0.0
		gLeft := initial
		if h > 0 {
			gLeft = gEnd(h - 1)
		}
		for t := h; t < T; t++ {
			gRight := gEnd(t)
			cum += math.Abs(gRight-gLeft) / physics.OxbowRampPerMin
			latest := rows[first+t].Timestamp.Add(-time.Duration(cum * float64(time.Minute)))
			if latest.After(hePrev) && !latest.After(he) {
				rows[first+h].SetpointChangeTime = latest.In(pt).Format("03:04 PM")
				break
			}
			gLeft = gRight
		}
	}

	// Only keep a time where the setpoint actually moved.
	prev := initial
	for h := 0; h < T; h++ {
		if math.Abs(rows[first+h].SetpointMW-prev) <= setpointChangeThresholdMW {
			rows[first+h].SetpointChangeTime = ""
		}
		prev = rows[first+h].SetpointMW
	}
}
