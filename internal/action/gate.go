package action

import (
	"cca8/internal/scratch"
	"cca8/internal/worldgraph"
)

// Context is the slice of runtime state a gate needs to decide dev-gating,
// triggering, and tie-breaking: age, and the RL tie-break knobs. It is
// deliberately narrower than the full runtime Ctx so this package stays
// free of a dependency on internal/runtime.
type Context struct {
	AgeDays   float64
	RLEnabled bool
	RLEpsilon float64
}

// Status is a policy execution outcome.
type Status string

const (
	StatusOK    Status = "ok"
	StatusFail  Status = "fail"
	StatusNoop  Status = "noop"
	StatusError Status = "error"
)

// Outcome is what a policy's Execute returns, matching the reference
// controller's {policy, status, reward, notes} convention.
type Outcome struct {
	Policy string
	Status Status
	Reward float64
	Notes  string
}

// Gate is one PolicyGate: a developmental eligibility check, a trigger
// condition, and an execution that mutates the long-term graph and drives.
type Gate interface {
	Name() string
	DevGate(ctx Context) bool
	Trigger(world *worldgraph.WorldGraph, body *scratch.BodyMap, wm *scratch.WorkingMap, drives Drives, ctx Context) bool
	Execute(world *worldgraph.WorldGraph, drives *Drives, ctx Context) Outcome
}

// score returns the drive-deficit score used to rank simultaneously
// triggered gates. Without rl_enabled, ties are broken by catalog order;
// with rl_enabled, an epsilon-random pick among the tied gates comes first,
// otherwise the highest skill ledger Q wins (catalog order on equal Q).
func score(name string, drives Drives) float64 {
	switch name {
	case "policy:seek_nipple":
		d := drives.Hunger - HungerHighThreshold
		if d < 0 {
			d = 0
		}
		return d
	case "policy:rest":
		d := drives.Fatigue - FatigueHighThreshold
		if d < 0 {
			d = 0
		}
		return 0.7 * d
	default:
		return 0.0
	}
}

// stampCreatedBy sets meta.policy on a binding a gate is about to create.
// Edges auto-linked alongside that binding derive meta.created_by from this
// same value at the WorldGraph layer (see edgeMeta in internal/worldgraph).
func stampCreatedBy(meta map[string]interface{}, policy string) map[string]interface{} {
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["policy"] = policy
	return meta
}
