// Package runtime wires TemporalContext, the engram store, WorldGraph, the
// perception pipeline, and the Action Center into the single-threaded,
// tick-driven Agent Runtime.
package runtime

import (
	"cca8/internal/action"
	"cca8/internal/temporal"
)

// Ctx is the small piece of mutable state threaded through every tick:
// developmental age, tick counters, and the soft-clock fingerprint of the
// last episode boundary, grounded on the reference run loop's own Ctx.
type Ctx struct {
	Sigma   float64
	Jump    float64
	AgeDays float64
	Ticks   int
	Profile string

	WinnersK int

	Temporal *temporal.Context

	TvecLastBoundary []float64
	BoundaryNo       int
	BoundaryVhash64  string

	ControllerSteps int
	CogCycles       int

	LastDriveFlags []string

	RLEnabled bool
	RLEpsilon float64
}

// NewCtx constructs a Ctx with a fresh TemporalContext and the boundary
// fingerprint initialized to tick zero.
func NewCtx(profile string, sigma, jump float64) *Ctx {
	tc := temporal.New(temporal.DefaultDim, sigma, jump, nil)
	c := &Ctx{
		Sigma:    sigma,
		Jump:     jump,
		Profile:  profile,
		WinnersK: 1,
		Temporal: tc,
	}
	c.TvecLastBoundary = tc.Vector()
	c.BoundaryVhash64 = temporal.Vhash64(c.TvecLastBoundary)
	return c
}

// Tvec64 returns the current temporal vector's 64-bit sign-hash
// fingerprint.
func (c *Ctx) Tvec64() string {
	return temporal.Vhash64(c.Temporal.Vector())
}

// CosToLastBoundary returns the cosine similarity between the current
// temporal vector and the vector recorded at the last boundary.
func (c *Ctx) CosToLastBoundary() float64 {
	return temporal.Cosine(c.Temporal.Vector(), c.TvecLastBoundary)
}

// Boundary advances the temporal context by a boundary jump and records
// the new fingerprint as the latest boundary reference.
func (c *Ctx) Boundary() {
	c.Temporal.Boundary()
	c.TvecLastBoundary = c.Temporal.Vector()
	c.BoundaryNo++
	c.BoundaryVhash64 = c.Tvec64()
}

// Step advances the temporal context by one ordinary drift step.
func (c *Ctx) Step() {
	c.Temporal.Step()
}

// ResetControllerSteps zeroes the controller step counter (used by
// BodyMap staleness checks and periodic keyframe gating).
func (c *Ctx) ResetControllerSteps() { c.ControllerSteps = 0 }

// ResetCogCycles zeroes the cognitive-cycle counter.
func (c *Ctx) ResetCogCycles() { c.CogCycles = 0 }

// ActionContext projects the fields action.Gate implementations need.
func (c *Ctx) ActionContext() action.Context {
	return action.Context{AgeDays: c.AgeDays, RLEnabled: c.RLEnabled, RLEpsilon: c.RLEpsilon}
}
