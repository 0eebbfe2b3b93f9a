package perception

import (
	"testing"

	"cca8/internal/lexicon"
	"cca8/internal/worldgraph"
)

func newGraph() *worldgraph.WorldGraph {
	wg := worldgraph.New(worldgraph.MemoryEpisodic, lexicon.New())
	wg.EnsureAnchor("NOW")
	return wg
}

func TestMaskPredicatesProtectedNeverDropped(t *testing.T) {
	preds := []string{"posture:fallen", "valence:like"}
	out := MaskPredicates(preds, 1.0, 42, 1)
	if !containsStr(out, "posture:fallen") {
		t.Fatalf("expected protected prefix to survive p=1.0, got %v", out)
	}
}

func TestMaskPredicatesNoopAtZero(t *testing.T) {
	preds := []string{"a", "b", "c"}
	out := MaskPredicates(preds, 0, 1, 1)
	if len(out) != 3 {
		t.Fatalf("expected no-op at p=0, got %v", out)
	}
}

func TestMaskPredicatesKeepsAtLeastOne(t *testing.T) {
	preds := []string{"valence:like", "alert"}
	out := MaskPredicates(preds, 1.0, 7, 3)
	if len(out) == 0 {
		t.Fatal("expected at least one predicate to survive total masking")
	}
}

func TestMaskReproducible(t *testing.T) {
	preds := []string{"valence:like", "alert", "resting", "seeking_mom"}
	a := MaskPredicates(preds, 0.5, 99, 5)
	b := MaskPredicates(preds, 0.5, 99, 5)
	if len(a) != len(b) {
		t.Fatalf("expected reproducible masking, got %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected identical masking results, got %v vs %v", a, b)
		}
	}
}

func TestPredErrTrackerStreak(t *testing.T) {
	tr := NewPredErrTracker(8)
	tr.Expect("standing")
	tr.Observe("fallen")
	tr.Expect("standing")
	tr.Observe("fallen")
	if tr.Streak() != 2 {
		t.Fatalf("expected streak 2, got %d", tr.Streak())
	}
	tr.Expect("standing")
	tr.Observe("standing")
	if tr.Streak() != 0 {
		t.Fatalf("expected streak reset to 0, got %d", tr.Streak())
	}
}

func TestKeyframeStageChange(t *testing.T) {
	ks := NewKeyframeState()
	cfg := KeyframeConfig{StageChangeEnabled: true}
	fired, _, _, _ := ks.Evaluate(cfg, "neonate", "", "", nil, 0, 0, false)
	if fired {
		t.Fatal("first observation should not fire (no prior stage)")
	}
	fired, reasons, stageChanged, _ := ks.Evaluate(cfg, "infant", "", "", nil, 0, 0, false)
	if !stageChanged {
		t.Fatal("expected stageChanged to be reported on neonate->infant")
	}
	if !fired || !containsStr(reasons, "stage_change") {
		t.Fatalf("expected stage_change keyframe, got fired=%v reasons=%v", fired, reasons)
	}
}

func TestKeyframeMilestoneOnPostureTransition(t *testing.T) {
	ks := NewKeyframeState()
	cfg := KeyframeConfig{MilestoneEnabled: true}
	ks.Evaluate(cfg, "", "", "fallen", nil, 0, 0, false)
	fired, reasons, _, _ := ks.Evaluate(cfg, "", "", "standing", nil, 0, 0, false)
	if !fired || !containsStr(reasons, "milestone") {
		t.Fatalf("expected milestone keyframe on fallen->standing, got %v %v", fired, reasons)
	}
}

func TestPipelineIngestUpdatesBodyMapAndGraph(t *testing.T) {
	wg := newGraph()
	p := NewPipeline(Config{WorkingEnabled: true, WriteMode: WriteRaw, GridRadius: 1}, nil)

	obs := Observation{
		Predicates: []string{"posture:fallen", "hazard:cliff:near"},
		Cues:       []string{"vestibular:fall"},
		Meta:       EnvMeta{ScenarioStage: "neonate", StepIndex: 0},
	}
	res := p.Ingest(obs, wg, 1, false)
	if !p.BodyMap().HasPosture("fallen") {
		t.Fatalf("expected BodyMap posture=fallen, got %v", p.BodyMap().Tags("posture"))
	}
	if res.MaskedPredCount != 0 {
		t.Fatalf("expected no masking at default config, got %d masked", res.MaskedPredCount)
	}
	if wg.Len() == 0 {
		t.Fatal("expected raw write mode to populate the graph")
	}
}

func TestPipelineChangesModeSkipsUnchangedSlots(t *testing.T) {
	wg := newGraph()
	p := NewPipeline(Config{WriteMode: WriteChanges}, nil)

	obs := Observation{Predicates: []string{"posture:standing"}, Meta: EnvMeta{StepIndex: 0}}
	p.Ingest(obs, wg, 1, false)
	before := wg.Len()

	p.Ingest(obs, wg, 2, false)
	after := wg.Len()

	if after != before {
		t.Fatalf("expected no new bindings for unchanged slot, before=%d after=%d", before, after)
	}
}
