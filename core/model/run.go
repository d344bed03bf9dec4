package model

import (
	"time"

	"github.com/google/uuid"
)

// SolverStatus tags how a schedule was produced.
type SolverStatus int

const (
	StatusOptimal SolverStatus = iota
	StatusFallback
	StatusInfeasible
)

// String returns a human-readable representation of the status.
func (s SolverStatus) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFallback:
		return "fallback"
	case StatusInfeasible:
		return "infeasible"
	default:
		return "unknown"
	}
}

// SolveResult carries the scheduled rows together with the tagged solver
// outcome. Reason is set for fallback and infeasible results only.
type SolveResult struct {
	Rows      RowSequence
	Status    SolverStatus
	Reason    string
	Objective float64
}

// RunContext holds the state of one optimization run. Every call that needs
// the row sequence, the applied bias or the run metadata receives the context
// explicitly; there is no ambient run state.
type RunContext struct {
	ID        uuid.UUID
	CreatedAt time.Time

	LookbackWindow time.Duration
	HorizonWindow  time.Duration

	BiasCFS       float64
	BiasHalfLife  time.Duration
	InitialElevFt float64
	InitialGenMW  float64

	// MFRASource records where the MFRA forecast came from
	// ("awards", "persistence" or "actual").
	MFRASource string
	Historical bool
}

// NewRunContext creates a run context with a fresh identifier.
func NewRunContext() *RunContext {
	return &RunContext{ID: uuid.New(), CreatedAt: time.Now().UTC()}
}
