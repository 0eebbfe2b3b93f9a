package action

import (
	"math/rand"
	"sort"

	"cca8/internal/logging"
	"cca8/internal/scratch"
	"cca8/internal/worldgraph"
)

// safetyOverrideSet restricts candidates to these names whenever the agent
// is fallen, regardless of what else triggered.
var safetyOverrideSet = map[string]bool{
	"policy:recover_fall": true,
	"policy:stand_up":     true,
}

// PolicyRuntime scans Gates in catalog order each tick, applies the safety
// override and drive-deficit scoring, executes at most one policy, and
// updates the skill ledger from its outcome.
type PolicyRuntime struct {
	gates  []Gate
	index  map[string]int
	ledger *SkillLedger
	rng    *rand.Rand
}

// NewPolicyRuntime builds a runtime over the given gates (typically
// DefaultCatalog()); catalog order is taken from the slice order.
func NewPolicyRuntime(gates []Gate, rng *rand.Rand) *PolicyRuntime {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	idx := make(map[string]int, len(gates))
	for i, g := range gates {
		idx[g.Name()] = i
	}
	return &PolicyRuntime{gates: gates, index: idx, ledger: NewSkillLedger(), rng: rng}
}

// Ledger exposes the skill ledger for introspection/persistence.
func (r *PolicyRuntime) Ledger() *SkillLedger { return r.ledger }

// RefreshLoaded returns the subset of gates whose DevGate passes for ctx.
func (r *PolicyRuntime) RefreshLoaded(ctx Context) []Gate {
	var loaded []Gate
	for _, g := range r.gates {
		if g.DevGate(ctx) {
			loaded = append(loaded, g)
		}
	}
	return loaded
}

// ConsiderAndMaybeFire runs one Action Center tick: trigger evaluation,
// safety override, scoring, execution of the winning gate, and skill
// ledger update. Returns Outcome{Status: "no_match"-equivalent} via a nil
// *Outcome when nothing fired.
func (r *PolicyRuntime) ConsiderAndMaybeFire(world *worldgraph.WorldGraph, body *scratch.BodyMap, wm *scratch.WorkingMap, drives *Drives, ctx Context) *Outcome {
	loaded := r.RefreshLoaded(ctx)

	var candidates []Gate
	for _, g := range loaded {
		fired := func() (ok bool) {
			defer func() {
				if rec := recover(); rec != nil {
					logging.Get(logging.CategoryAction).Warn("trigger panic for %s: %v (skipping)", g.Name(), rec)
					ok = false
				}
			}()
			return g.Trigger(world, body, wm, *drives, ctx)
		}()
		if fired {
			candidates = append(candidates, g)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	if fallenNearNow(world, body) {
		var restricted []Gate
		for _, g := range candidates {
			if safetyOverrideSet[g.Name()] {
				restricted = append(restricted, g)
			}
		}
		if len(restricted) > 0 {
			candidates = restricted
		}
	}

	winner := r.pickWinner(candidates, *drives, ctx)

	outcome := func() (out Outcome) {
		defer func() {
			if rec := recover(); rec != nil {
				out = Outcome{Policy: winner.Name(), Status: StatusError, Reward: 0.0, Notes: "execute panic"}
			}
		}()
		return winner.Execute(world, drives, ctx)
	}()

	r.ledger.Update(outcome.Policy, outcome.Reward, outcome.Status == StatusOK)
	return &outcome
}

func (r *PolicyRuntime) pickWinner(candidates []Gate, drives Drives, ctx Context) Gate {
	type scored struct {
		gate  Gate
		score float64
	}
	scoredList := make([]scored, len(candidates))
	for i, g := range candidates {
		scoredList[i] = scored{gate: g, score: score(g.Name(), drives)}
	}
	sort.SliceStable(scoredList, func(i, j int) bool {
		if scoredList[i].score != scoredList[j].score {
			return scoredList[i].score > scoredList[j].score
		}
		return r.index[scoredList[i].gate.Name()] < r.index[scoredList[j].gate.Name()]
	})

	top := scoredList[0].score
	var tied []scored
	for _, s := range scoredList {
		if s.score == top {
			tied = append(tied, s)
		}
	}
	if len(tied) == 1 || !ctx.RLEnabled {
		return tied[0].gate
	}

	if ctx.RLEpsilon > 0 && r.rng.Float64() < ctx.RLEpsilon {
		return tied[r.rng.Intn(len(tied))].gate
	}
	best := tied[0]
	bestQ := r.ledger.Get(best.gate.Name()).Q
	for _, s := range tied[1:] {
		q := r.ledger.Get(s.gate.Name()).Q
		if q > bestQ {
			best, bestQ = s, q
		}
	}
	return best.gate
}
