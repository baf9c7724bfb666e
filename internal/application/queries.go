package application

import (
	"time"

	"github.com/bnema/memsim/internal/domain"
)

// Overview is everything the status view shows for one memory.
type Overview struct {
	Memory        domain.Memory
	Price         float64
	Formula       string
	CurveUnlocked bool
	Players       []PlayerStats
	UpdatedAt     time.Time
}

type CurveUpdate struct {
	Previous string
	Formula  string
	Results  []RecalculateResult
}

type StepReport struct {
	Index  int
	Action StepAction
	// Detail is a short human-readable summary of a successful step.
	Detail string
	Err    error
}

type ScenarioReport struct {
	Name     string
	Steps    []StepReport
	Snapshot domain.Snapshot
	// Overview describes the first memory after the last step.
	Overview Overview
	Failed   int
}
