package runtime

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"cca8/internal/engram"
	"cca8/internal/perception"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	return newTestRuntimeWithPerception(t, perception.Config{
		WorkingEnabled: true,
		WriteMode:      perception.WriteRaw,
		GridRadius:     1,
	})
}

func newTestRuntimeWithPerception(t *testing.T, pcfg perception.Config) *Runtime {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	rt, err := New(Config{AgeDays: 1.0, Perception: pcfg}, db)
	if err != nil {
		t.Fatal(err)
	}
	return rt
}

func TestTickAdvancesCounters(t *testing.T) {
	rt := newTestRuntime(t)
	obs := perception.Observation{Predicates: []string{"posture:fallen"}}
	rt.Tick(obs)
	if rt.Ctx.Ticks != 1 {
		t.Fatalf("expected 1 tick, got %d", rt.Ctx.Ticks)
	}
	if rt.Ctx.ControllerSteps != 1 {
		t.Fatalf("expected 1 controller step, got %d", rt.Ctx.ControllerSteps)
	}
}

func TestTickFiresStandUpOnFallenWithStandGoal(t *testing.T) {
	rt := newTestRuntime(t)
	rt.World.AddPredicate("stand", "now", nil, nil)
	res := rt.Tick(perception.Observation{Predicates: []string{"posture:fallen"}})
	if res.Action == nil || res.Action.Policy != "policy:stand_up" {
		t.Fatalf("expected stand_up to fire, got %+v", res.Action)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	rt := newTestRuntime(t)
	rt.Tick(perception.Observation{Predicates: []string{"posture:standing"}})
	before := rt.World.Len()
	rt.Drives.Hunger = 0.42
	rt.Policy.Ledger().Update("policy:rest", 0.5, true)

	path := filepath.Join(t.TempDir(), "snap.json")
	if err := rt.Save(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}

	rt2 := newTestRuntime(t)
	if err := rt2.Load(path); err != nil {
		t.Fatal(err)
	}
	if rt2.World.Len() != before {
		t.Fatalf("expected %d bindings after load, got %d", before, rt2.World.Len())
	}
	if rt2.Ctx.Ticks != rt.Ctx.Ticks {
		t.Fatalf("expected ticks to survive round-trip: %d vs %d", rt.Ctx.Ticks, rt2.Ctx.Ticks)
	}
	if rt2.Drives.Hunger != 0.42 {
		t.Fatalf("expected drives to survive round-trip, got hunger=%f", rt2.Drives.Hunger)
	}
	if q := rt2.Policy.Ledger().Get("policy:rest").Q; q != 0.15 {
		t.Fatalf("expected skill ledger to survive round-trip, got q=%f", q)
	}
}

func navPatchObs() perception.NavPatchObs {
	return perception.NavPatchObs{
		Width: 2, Height: 1, CellSize: 1.0,
		Cells:    []engram.CellCode{engram.CellTraversable, engram.CellHazard},
		EntityID: "self",
	}
}

func TestTickDedupsRepeatedNavPatchAcrossTicks(t *testing.T) {
	rt := newTestRuntime(t)
	obs := perception.Observation{
		Predicates: []string{"posture:standing"},
		NavPatches: []perception.NavPatchObs{navPatchObs()},
	}
	rt.Tick(obs)
	rt.Tick(obs)

	recs, err := rt.Engrams.Find(engram.FindOptions{NameContains: "navpatch"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected exactly one stored navpatch engram after two identical ticks, got %d", len(recs))
	}
}

func TestTickStoresMapSurfaceSnapshotOnKeyframe(t *testing.T) {
	rt := newTestRuntimeWithPerception(t, perception.Config{
		WorkingEnabled: true,
		WriteMode:      perception.WriteRaw,
		GridRadius:     1,
		Keyframe:       perception.KeyframeConfig{StageChangeEnabled: true},
	})

	rt.Tick(perception.Observation{Meta: perception.EnvMeta{ScenarioStage: "first_stand"}})
	res := rt.Tick(perception.Observation{Meta: perception.EnvMeta{ScenarioStage: "first_latch"}})

	if !res.Perception.Keyframe {
		t.Fatal("expected stage change to fire a keyframe")
	}
	if res.Perception.MapSurfaceStoredID == "" {
		t.Fatal("expected a mapsurface_v1 engram to be stored on the keyframe tick")
	}
	ptrs := rt.World.BindingsByTag("cue:wm:mapsurface_snapshot")
	if len(ptrs) != 1 {
		t.Fatalf("expected one mapsurface pointer binding, got %d", len(ptrs))
	}
}
