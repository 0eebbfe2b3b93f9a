package runtime

import (
	"cca8/internal/action"
	"cca8/internal/logging"
	"cca8/internal/perception"
)

// TickResult summarizes one Tick call's side effects for CLI/log display.
type TickResult struct {
	Perception perception.Result
	Action     *action.Outcome // nil if no policy matched
}

// Tick runs one end-to-end controller tick: perception ingestion, WM
// compose, policy selection/execution, and counter bookkeeping. There are
// no suspension points within a tick.
func (r *Runtime) Tick(obs perception.Observation) TickResult {
	log := logging.Get(logging.CategoryRuntime)

	percRes := r.Percept.Ingest(obs, r.World, r.Ctx.ControllerSteps, r.Sleeping)
	if percRes.Keyframe {
		r.Ctx.Boundary()
		log.Debug("keyframe at tick %d: %v", r.Ctx.Ticks, percRes.KeyframeReasons)
	} else {
		r.Ctx.Step()
	}

	outcome := r.Policy.ConsiderAndMaybeFire(
		r.World, r.Percept.BodyMap(), r.Percept.WorkingMap(), &r.Drives, r.Ctx.ActionContext(),
	)
	if outcome != nil {
		log.Debug("policy %s -> %s (reward=%.2f)", outcome.Policy, outcome.Status, outcome.Reward)
	}

	r.Ctx.Ticks++
	r.Ctx.ControllerSteps++
	r.Ctx.CogCycles++
	r.Ctx.LastDriveFlags = r.Drives.Flags()

	return TickResult{Perception: percRes, Action: outcome}
}
