package schedule

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pcwa-smotley/abayopt/core/model"
)

// csvHeader mirrors the operator spreadsheet column order.
var csvHeader = []string{
	"timestamp_utc",
	"provenance",
	"oxph_setpoint_mw",
	"oxph_generation_mw",
	"setpoint_change_time",
	"oxph_outflow_cfs",
	"r30_cfs",
	"r4_cfs",
	"r20_cfs",
	"r5l_cfs",
	"r26_cfs",
	"mfra_mw",
	"mf12_mw",
	"mf12_cfs",
	"regulated_cfs",
	"mode",
	"abay_ft",
	"abay_af",
	"float_ft",
	"head_limit_mw",
	"bias_cfs",
	"degraded",
}

// WriteCSV renders the schedule, one line per hour, oldest first.
func WriteCSV(w io.Writer, rows model.RowSequence) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			r.Provenance.String(),
			f2(r.SetpointMW),
			f2(r.GenerationMW),
			r.SetpointChangeTime,
			f1(r.OutflowCFS),
			f1(r.R30.Value()),
			f1(r.R4.Value()),
			f1(r.R20.Value()),
			f1(r.R5L.Value()),
			f1(r.R26.Value()),
			f2(r.MFRA.Value()),
			f2(r.MF12MW),
			f1(r.MF12CFS),
			f1(r.RegulatedCFS),
			r.Mode.String(),
			f2(r.ElevationFt),
			f1(r.StorageAF),
			f2(r.FloatFt),
			f2(r.HeadLimitMW),
			f1(r.BiasCFS),
			boolStr(r.Degraded),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the schedule to path, replacing any existing file.
func WriteCSVFile(path string, rows model.RowSequence) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func f1(v float64) string { return fmt.Sprintf("%.1f", v) }
func f2(v float64) string { return fmt.Sprintf("%.2f", v) }

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return ""
}
