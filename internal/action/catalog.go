package action

import (
	"cca8/internal/scratch"
	"cca8/internal/worldgraph"
)

// CatalogOrder is the authoritative scan order: the first triggered gate
// wins ties on score, matching the reference controller's ordered-scan
// semantics generalized to the full gate set.
var CatalogOrder = []string{
	"policy:stand_up",
	"policy:seek_nipple",
	"policy:rest",
	"policy:suckle",
	"policy:recover_miss",
	"policy:recover_fall",
	"policy:probe",
}

const nearNowHops = 3

func fallenNearNow(world *worldgraph.WorldGraph, body *scratch.BodyMap) bool {
	if body.HasPosture("fallen") {
		return true // Body-first: BodyMap overrides even if WG lacks the tag
	}
	now, ok := world.Anchor("NOW")
	if !ok {
		return false
	}
	return world.ReachableTag(now, "pred:posture:fallen", nearNowHops)
}

func anyCuePresent(world *worldgraph.WorldGraph, cues ...string) bool {
	now, ok := world.Anchor("NOW")
	if !ok {
		return false
	}
	for _, c := range cues {
		if world.ReachableTag(now, "cue:"+c, nearNowHops) {
			return true
		}
	}
	return false
}

func tagNearNow(world *worldgraph.WorldGraph, tag string) bool {
	now, ok := world.Anchor("NOW")
	if !ok {
		return false
	}
	return world.ReachableTag(now, tag, nearNowHops)
}

// --- policy:stand_up ---------------------------------------------------

type standUpGate struct{}

func (standUpGate) Name() string { return "policy:stand_up" }

func (standUpGate) DevGate(ctx Context) bool { return ctx.AgeDays <= 3.0 }

func (g standUpGate) Trigger(world *worldgraph.WorldGraph, body *scratch.BodyMap, wm *scratch.WorkingMap, drives Drives, ctx Context) bool {
	if body.HasPosture("standing") {
		return false
	}
	return tagNearNow(world, "pred:stand")
}

func (standUpGate) Execute(world *worldgraph.WorldGraph, drives *Drives, ctx Context) Outcome {
	meta := stampCreatedBy(nil, "policy:stand_up")
	a1, err := world.AddAction("push_up", "latest", meta, nil)
	if err != nil {
		return Outcome{Policy: "policy:stand_up", Status: StatusError, Notes: err.Error()}
	}
	if _, err := world.AddAction("extend_legs", "latest", meta, nil); err != nil {
		return Outcome{Policy: "policy:stand_up", Status: StatusError, Notes: err.Error()}
	}
	if _, err := world.AddPredicate("posture:standing", "latest", stampCreatedBy(nil, "policy:stand_up"), nil); err != nil {
		return Outcome{Policy: "policy:stand_up", Status: StatusError, Notes: err.Error()}
	}
	drives.Fatigue = Clamp01(drives.Fatigue + 0.05)
	return Outcome{Policy: "policy:stand_up", Status: StatusOK, Reward: 1.0, Notes: "stood up via " + a1}
}

// --- policy:seek_nipple --------------------------------------------------

type seekNippleGate struct{}

func (seekNippleGate) Name() string          { return "policy:seek_nipple" }
func (seekNippleGate) DevGate(ctx Context) bool { return true }

func (seekNippleGate) Trigger(world *worldgraph.WorldGraph, body *scratch.BodyMap, wm *scratch.WorkingMap, drives Drives, ctx Context) bool {
	if !body.HasPosture("standing") || body.HasPosture("fallen") {
		return false
	}
	if drives.Hunger <= HungerHighThreshold {
		return false
	}
	if tagNearNow(world, "pred:seeking_mom") {
		return false
	}
	return anyCuePresent(world, "vision:silhouette:mom", "scent:milk", "sound:bleat:mom")
}

func (seekNippleGate) Execute(world *worldgraph.WorldGraph, drives *Drives, ctx Context) Outcome {
	meta := stampCreatedBy(nil, "policy:seek_nipple")
	if _, err := world.AddAction("orient_to_mom", "latest", meta, nil); err != nil {
		return Outcome{Policy: "policy:seek_nipple", Status: StatusError, Notes: err.Error()}
	}
	if _, err := world.AddPredicate("seeking_mom", "latest", stampCreatedBy(nil, "policy:seek_nipple"), nil); err != nil {
		return Outcome{Policy: "policy:seek_nipple", Status: StatusError, Notes: err.Error()}
	}
	return Outcome{Policy: "policy:seek_nipple", Status: StatusOK, Reward: 0.5}
}

// --- policy:rest -----------------------------------------------------------

type restGate struct{}

func (restGate) Name() string          { return "policy:rest" }
func (restGate) DevGate(ctx Context) bool { return true }

func (restGate) Trigger(world *worldgraph.WorldGraph, body *scratch.BodyMap, wm *scratch.WorkingMap, drives Drives, ctx Context) bool {
	if drives.Fatigue > FatigueHighThreshold {
		return true
	}
	return anyCuePresent(world, "drive:fatigue_high")
}

func (restGate) Execute(world *worldgraph.WorldGraph, drives *Drives, ctx Context) Outcome {
	if _, err := world.AddPredicate("resting", "latest", stampCreatedBy(nil, "policy:rest"), nil); err != nil {
		return Outcome{Policy: "policy:rest", Status: StatusError, Notes: err.Error()}
	}
	drives.Fatigue = Clamp01(drives.Fatigue - 0.2)
	return Outcome{Policy: "policy:rest", Status: StatusOK, Reward: 0.5}
}

// --- policy:suckle -----------------------------------------------------

type suckleGate struct{}

func (suckleGate) Name() string          { return "policy:suckle" }
func (suckleGate) DevGate(ctx Context) bool { return true }

func (suckleGate) Trigger(world *worldgraph.WorldGraph, body *scratch.BodyMap, wm *scratch.WorkingMap, drives Drives, ctx Context) bool {
	return tagNearNow(world, "pred:proximity:mom:close") || tagNearNow(world, "pred:nipple:found")
}

func (suckleGate) Execute(world *worldgraph.WorldGraph, drives *Drives, ctx Context) Outcome {
	if _, err := world.AddPredicate("nipple:latched", "latest", stampCreatedBy(nil, "policy:suckle"), nil); err != nil {
		return Outcome{Policy: "policy:suckle", Status: StatusError, Notes: err.Error()}
	}
	if _, err := world.AddPredicate("milk:drinking", "latest", stampCreatedBy(nil, "policy:suckle"), nil); err != nil {
		return Outcome{Policy: "policy:suckle", Status: StatusError, Notes: err.Error()}
	}
	drives.Hunger = Clamp01(drives.Hunger - 0.3)
	return Outcome{Policy: "policy:suckle", Status: StatusOK, Reward: 1.0}
}

// --- policy:recover_miss -------------------------------------------------

type recoverMissGate struct{}

func (recoverMissGate) Name() string          { return "policy:recover_miss" }
func (recoverMissGate) DevGate(ctx Context) bool { return true }

func (recoverMissGate) Trigger(world *worldgraph.WorldGraph, body *scratch.BodyMap, wm *scratch.WorkingMap, drives Drives, ctx Context) bool {
	return tagNearNow(world, "pred:nipple:missed")
}

func (recoverMissGate) Execute(world *worldgraph.WorldGraph, drives *Drives, ctx Context) Outcome {
	if _, err := world.AddAction("orient_to_mom", "latest", stampCreatedBy(nil, "policy:recover_miss"), nil); err != nil {
		return Outcome{Policy: "policy:recover_miss", Status: StatusError, Notes: err.Error()}
	}
	return Outcome{Policy: "policy:recover_miss", Status: StatusOK, Reward: 0.2}
}

// --- policy:recover_fall -------------------------------------------------

type recoverFallGate struct{}

func (recoverFallGate) Name() string          { return "policy:recover_fall" }
func (recoverFallGate) DevGate(ctx Context) bool { return true }

func (recoverFallGate) Trigger(world *worldgraph.WorldGraph, body *scratch.BodyMap, wm *scratch.WorkingMap, drives Drives, ctx Context) bool {
	return fallenNearNow(world, body) || anyCuePresent(world, "vestibular:fall", "touch:flank_on_ground")
}

func (recoverFallGate) Execute(world *worldgraph.WorldGraph, drives *Drives, ctx Context) Outcome {
	if _, err := world.AddAction("push_up", "latest", stampCreatedBy(nil, "policy:recover_fall"), nil); err != nil {
		return Outcome{Policy: "policy:recover_fall", Status: StatusError, Notes: err.Error()}
	}
	return Outcome{Policy: "policy:recover_fall", Status: StatusOK, Reward: 0.3}
}

// --- policy:probe ------------------------------------------------------

type probeGate struct{}

func (probeGate) Name() string          { return "policy:probe" }
func (probeGate) DevGate(ctx Context) bool { return true }

func (probeGate) Trigger(world *worldgraph.WorldGraph, body *scratch.BodyMap, wm *scratch.WorkingMap, drives Drives, ctx Context) bool {
	if wm == nil {
		return false
	}
	bid := wm.EnsureEntity(scratch.SelfEntityID)
	dto, ok := wm.Graph().Binding(bid)
	if !ok {
		return false
	}
	for _, e := range dto.Edges {
		if e.Label == "ambiguity" {
			return true
		}
	}
	return false
}

func (probeGate) Execute(world *worldgraph.WorldGraph, drives *Drives, ctx Context) Outcome {
	if _, err := world.AddCue("policy:probe", "latest", stampCreatedBy(nil, "policy:probe"), nil); err != nil {
		return Outcome{Policy: "policy:probe", Status: StatusError, Notes: err.Error()}
	}
	return Outcome{Policy: "policy:probe", Status: StatusOK, Reward: 0.0, Notes: "probe cue recorded; grid radius unchanged"}
}

// DefaultCatalog returns fresh Gate instances in CatalogOrder.
func DefaultCatalog() []Gate {
	return []Gate{
		standUpGate{},
		seekNippleGate{},
		restGate{},
		suckleGate{},
		recoverMissGate{},
		recoverFallGate{},
		probeGate{},
	}
}
