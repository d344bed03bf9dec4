// Package events defines the notifications published on the internal bus
// after a solve or a replay completes.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/pcwa-smotley/abayopt/core/model"
)

// SolveEvent is published once per completed schedule solve.
type SolveEvent struct {
	RunID      uuid.UUID          `json:"run_id"`
	Status     model.SolverStatus `json:"status"`
	Reason     string             `json:"reason,omitempty"`
	Objective  float64            `json:"objective"`
	Horizon    int                `json:"horizon_hours"`
	BiasCFS    float64            `json:"bias_cfs"`
	MFRASource string             `json:"mfra_source"`
	Duration   time.Duration      `json:"duration"`
	Timestamp  time.Time          `json:"timestamp"`
}

// RecalcEvent is published after a forward replay triggered by an edit.
type RecalcEvent struct {
	RunID       uuid.UUID `json:"run_id"`
	EditedIndex int       `json:"edited_index"`
	RowsChanged int       `json:"rows_changed"`
	MinElevFt   float64   `json:"min_elev_ft"`
	Violations  int       `json:"violations"`
	Timestamp   time.Time `json:"timestamp"`
}
