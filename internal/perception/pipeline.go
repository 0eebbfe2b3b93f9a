package perception

import (
	"strings"

	"cca8/internal/engram"
	"cca8/internal/scratch"
	"cca8/internal/worldgraph"
)

// WriteMode selects how the perception pipeline emits to long-term memory.
type WriteMode string

const (
	WriteRaw     WriteMode = "raw"     // every tick writes a full snapshot of bindings
	WriteChanges WriteMode = "changes" // only slot-family changes and keyframes are written
)

// Config tunes one Pipeline instance.
type Config struct {
	WorkingEnabled bool
	WriteMode      WriteMode
	ObsMaskProb    float64
	ObsMaskSeed    int64
	Keyframe       KeyframeConfig
	GridRadius     int

	MapSurfaceAutoretrieve MapSurfaceAutoretrieveConfig
}

// Result reports the side effects of one Ingest call.
type Result struct {
	Keyframe        bool
	KeyframeReasons []string
	StageChanged    bool
	ZoneChanged     bool
	PredErrBit      int
	MaskedPredCount int
	MaskedCueCount  int

	MapSurfaceStoredID  string // non-empty if a snapshot engram was written this tick
	MapSurfaceRetrieved bool   // true if a prior snapshot was merged into the WorkingMap this tick
	Autoretrieve        AutoretrieveDecision
}

// Pipeline wires BodyMap, WorkingMap/MapSurface, the engram column store,
// and long-term WorldGraph writes into the per-tick ingestion described for
// the runtime's perception stage.
type Pipeline struct {
	cfg Config

	body    *scratch.BodyMap
	wm      *scratch.WorkingMap
	ms      *scratch.MapSurface
	engrams *engram.Store

	predErr  *PredErrTracker
	keyframe *KeyframeState

	lastSlotTags map[string][]string // last-written slot family snapshot, for "changes" mode
}

// NewPipeline constructs a Pipeline over fresh BodyMap/WorkingMap state,
// storing NavPatch and MapSurface engrams through store.
func NewPipeline(cfg Config, store *engram.Store) *Pipeline {
	wm := scratch.NewWorkingMap()
	return &Pipeline{
		cfg:          cfg,
		body:         scratch.NewBodyMap(),
		wm:           wm,
		ms:           scratch.NewMapSurface(wm),
		engrams:      store,
		predErr:      NewPredErrTracker(64),
		keyframe:     NewKeyframeState(),
		lastSlotTags: map[string][]string{},
	}
}

func (p *Pipeline) BodyMap() *scratch.BodyMap       { return p.body }
func (p *Pipeline) WorkingMap() *scratch.WorkingMap { return p.wm }
func (p *Pipeline) MapSurface() *scratch.MapSurface { return p.ms }

// ExpectPosture posts a next-tick posture expectation for pred-err v0.
func (p *Pipeline) ExpectPosture(posture string) { p.predErr.Expect(posture) }

// Ingest runs one tick of perception: BodyMap update, optional WorkingMap
// mirror, partial-observability masking, pred-err bookkeeping, keyframe
// evaluation, and gated long-term writes to wg.
func (p *Pipeline) Ingest(obs Observation, wg *worldgraph.WorldGraph, controllerStep int, sleeping bool) Result {
	maskedPreds := MaskPredicates(obs.Predicates, p.cfg.ObsMaskProb, p.cfg.ObsMaskSeed, obs.Meta.StepIndex)
	maskedCues := MaskCues(obs.Cues, p.cfg.ObsMaskProb, p.cfg.ObsMaskSeed, obs.Meta.StepIndex)

	p.updateBodyMap(maskedPreds, controllerStep)

	if p.cfg.WorkingEnabled {
		p.mirrorWorkingMap(maskedPreds, maskedCues, obs)
	}

	observedPosture := firstWithPrefix(maskedPreds, "posture:")
	bit := p.predErr.Observe(strings.TrimPrefix(observedPosture, "posture:"))

	fired, reasons, stageChanged, zoneChanged := p.keyframe.Evaluate(
		p.cfg.Keyframe,
		obs.Meta.ScenarioStage, obs.Meta.Zone, strings.TrimPrefix(observedPosture, "posture:"),
		obs.Meta.Milestones, p.predErr.Streak(), obs.Meta.EmotionLevel, sleeping,
	)

	p.writeLongTerm(wg, maskedPreds, maskedCues, fired)

	storedID, retrieved, decision := p.handleMapSurfaceLifecycle(wg, obs, fired, stageChanged, zoneChanged, bit)

	return Result{
		Keyframe:            fired,
		KeyframeReasons:     reasons,
		StageChanged:        stageChanged,
		ZoneChanged:         zoneChanged,
		PredErrBit:          bit,
		MaskedPredCount:     len(obs.Predicates) - len(maskedPreds),
		MaskedCueCount:      len(obs.Cues) - len(maskedCues),
		MapSurfaceStoredID:  storedID,
		MapSurfaceRetrieved: retrieved,
		Autoretrieve:        decision,
	}
}

// handleMapSurfaceLifecycle persists a MapSurface snapshot engram on every
// keyframe and, when the autoretrieve guard allows it, merges the best
// matching prior snapshot back into the WorkingMap.
func (p *Pipeline) handleMapSurfaceLifecycle(wg *worldgraph.WorldGraph, obs Observation, keyframe, stageChanged, zoneChanged bool, predErrBit int) (storedID string, retrieved bool, decision AutoretrieveDecision) {
	if p.engrams == nil || !p.cfg.WorkingEnabled {
		return "", false, AutoretrieveDecision{Why: "disabled"}
	}

	if keyframe {
		id, err := p.ms.StoreSnapshotV1(wg, p.engrams, obs.Meta.ScenarioStage, obs.Meta.Zone)
		if err == nil {
			storedID = id
		}
	}

	boundaryReason := ""
	if predErrBit != 0 {
		boundaryReason = "pred_err"
	}
	decision = ShouldAutoretrieveMapSurface(p.cfg.MapSurfaceAutoretrieve, stageChanged, zoneChanged, boundaryReason)
	if !decision.OK {
		return storedID, false, decision
	}

	selfPreds := p.ms.SelfTags()
	payload, found, err := scratch.PickBestMapSurfaceRecord(
		p.engrams, wg, obs.Meta.ScenarioStage, obs.Meta.Zone, selfPreds, storedID, decision.TopK,
	)
	if err != nil || !found {
		return storedID, false, decision
	}
	if decision.Mode == "replace" {
		p.ms.WriteSlotFamilies(nil)
	}
	p.ms.MergeV1(payload)
	return storedID, true, decision
}

func firstWithPrefix(tokens []string, prefix string) string {
	for _, t := range tokens {
		if strings.HasPrefix(t, prefix) {
			return t
		}
	}
	return ""
}

func (p *Pipeline) updateBodyMap(predicates []string, controllerStep int) {
	bySlot := map[string][]string{}
	for _, pred := range predicates {
		slot := scratch.MatchSlot(pred)
		if slot == "" {
			continue
		}
		bySlot[slot] = append(bySlot[slot], pred)
	}
	for slot, toks := range bySlot {
		p.body.Overwrite(slot, toks, controllerStep)
	}
}

func (p *Pipeline) mirrorWorkingMap(predicates, cues []string, obs Observation) {
	p.wm.SetEntityTags(scratch.SelfEntityID, predicates, cues)

	if len(obs.NavPatches) == 0 {
		return
	}
	patches := make([]*engram.NavPatch, 0, len(obs.NavPatches))
	for _, np := range obs.NavPatches {
		patch := np.toNavPatch()
		patches = append(patches, patch)
		p.storeNavPatch(patch, obs)
	}
	w, h, cs := maxExtent(obs.NavPatches)
	p.wm.LoadPatches(w, h, cs, 0, 0, patches)
	p.ms.RefreshFromGrid(w/2, h/2, p.cfg.GridRadius)
}

// storeNavPatch persists patch through the run-scoped dedup cache: storing
// the same logical NavPatch twice (by SignatureV1) within one run reuses
// the first call's engram id instead of writing a duplicate column.
func (p *Pipeline) storeNavPatch(patch *engram.NavPatch, obs Observation) {
	if p.engrams == nil {
		return
	}
	patch.StoreV1(p.engrams, map[string]interface{}{
		"stage": obs.Meta.ScenarioStage,
		"zone":  obs.Meta.Zone,
	})
}

// maxExtent picks a composition extent covering the largest NavPatch seen
// this tick, in its own cell size.
func maxExtent(patches []NavPatchObs) (width, height int, cellSize float64) {
	for _, p := range patches {
		if p.Width*p.Height > width*height {
			width, height, cellSize = p.Width, p.Height, p.CellSize
		}
	}
	if cellSize == 0 {
		cellSize = 1.0
	}
	return
}

func (p *Pipeline) writeLongTerm(wg *worldgraph.WorldGraph, predicates, cues []string, keyframe bool) {
	if p.cfg.WriteMode == WriteRaw {
		for _, pred := range predicates {
			wg.AddPredicate(pred, "now", nil, nil)
		}
		for _, cue := range cues {
			wg.AddCue(cue, "now", nil, nil)
		}
		return
	}

	// changes/dedup mode: only write a slot family when it actually
	// changed, or unconditionally on a keyframe.
	bySlot := map[string][]string{}
	for _, pred := range predicates {
		slot := scratch.MatchSlot(pred)
		bySlot[slot] = append(bySlot[slot], pred)
	}
	for slot, toks := range bySlot {
		if slot == "" {
			continue
		}
		if !keyframe && sameSet(p.lastSlotTags[slot], toks) {
			continue
		}
		p.lastSlotTags[slot] = append([]string(nil), toks...)
		for _, tok := range toks {
			wg.AddPredicate(tok, "now", map[string]interface{}{"keyframe": keyframe}, nil)
		}
	}
	if keyframe {
		for _, cue := range cues {
			wg.AddCue(cue, "now", map[string]interface{}{"keyframe": true}, nil)
		}
	}
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[string]bool{}
	for _, x := range a {
		seen[x] = true
	}
	for _, x := range b {
		if !seen[x] {
			return false
		}
	}
	return true
}
