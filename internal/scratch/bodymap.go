// Package scratch implements the per-tick short-lived views the runtime
// keeps alongside the long-term WorldGraph: the BodyMap (proprioception
// snapshot), the WorkingMap (per-tick entity scratchpad), and the
// MapSurface (a SELF-centered schematic view fed by the composed
// SurfaceGrid). All three are thin worldgraph.WorldGraph instances used as
// scratch structures rather than as episodic memory.
package scratch

import (
	"strings"

	"cca8/internal/lexicon"
	"cca8/internal/worldgraph"
)

// BodySlots are the fixed proprioception slots a BodyMap tracks. Each
// slot's tags are overwritten wholesale on every observation that reports
// that slot's family.
var BodySlots = []string{"posture", "mom", "nipple", "shelter", "cliff", "milk", "resting"}

// slotPrefix maps each body slot to the observed-predicate prefixes that
// update it.
var slotPrefix = map[string][]string{
	"posture": {"posture:"},
	"mom":     {"proximity:mom:"},
	"nipple":  {"nipple:"},
	"shelter": {"proximity:shelter:"},
	"cliff":   {"hazard:cliff:"},
	"milk":    {"milk:"},
	"resting": {"resting"},
}

// BodyMap is a tiny WorldGraph with one binding per body slot, overwritten
// each observation to reflect current proprioception.
type BodyMap struct {
	wg             *worldgraph.WorldGraph
	slotBindings   map[string]string
	lastUpdateStep int
}

// NewBodyMap constructs a BodyMap with one empty binding per slot in
// BodySlots.
func NewBodyMap() *BodyMap {
	wg := worldgraph.New(worldgraph.MemoryEpisodic, lexicon.New())
	wg.SetTagPolicy(lexicon.PolicyAllow) // scratch graph: no lexicon gating
	bm := &BodyMap{wg: wg, slotBindings: map[string]string{}}
	for _, slot := range BodySlots {
		bid := wg.AddBinding([]string{"slot:" + slot}, nil, nil)
		bm.slotBindings[slot] = bid
	}
	return bm
}

// MatchSlot returns the body slot whose prefix matches an observed
// predicate token (without the "pred:" namespace), or "" if none matches.
func MatchSlot(token string) string {
	for slot, prefixes := range slotPrefix {
		for _, p := range prefixes {
			if strings.HasPrefix(token, p) || token == strings.TrimSuffix(p, ":") {
				return slot
			}
		}
	}
	return ""
}

// Overwrite replaces slot's tags with exactly the given predicate tokens
// (without "pred:" prefix) and records the controller step of this update.
func (b *BodyMap) Overwrite(slot string, tokens []string, controllerStep int) {
	bid, ok := b.slotBindings[slot]
	if !ok {
		return
	}
	b.wg.DeleteBinding(bid, true, true)
	tags := make([]string, 0, len(tokens)+1)
	tags = append(tags, "slot:"+slot)
	for _, t := range tokens {
		tags = append(tags, "pred:"+t)
	}
	newBid := b.wg.AddBinding(tags, nil, nil)
	b.slotBindings[slot] = newBid
	b.lastUpdateStep = controllerStep
}

// Tags returns the current predicate tokens (without "pred:" prefix) held
// by slot.
func (b *BodyMap) Tags(slot string) []string {
	bid, ok := b.slotBindings[slot]
	if !ok {
		return nil
	}
	dto, ok := b.wg.Binding(bid)
	if !ok {
		return nil
	}
	var out []string
	for _, t := range dto.Tags {
		if rest, found := strings.CutPrefix(t, "pred:"); found {
			out = append(out, rest)
		}
	}
	return out
}

// LastUpdateStep returns the controller step of the most recent Overwrite
// call ("bodymap_last_update_step").
func (b *BodyMap) LastUpdateStep() int {
	return b.lastUpdateStep
}

// IsStale reports whether more than maxSteps controller steps have elapsed
// since the last Overwrite ("bodymap_is_stale").
func (b *BodyMap) IsStale(currentStep, maxSteps int) bool {
	return currentStep-b.lastUpdateStep > maxSteps
}

// HasPosture reports whether slot "posture" currently carries the given
// local posture token (e.g. "fallen", "standing").
func (b *BodyMap) HasPosture(token string) bool {
	for _, t := range b.Tags("posture") {
		if t == "posture:"+token || t == token {
			return true
		}
	}
	return false
}
