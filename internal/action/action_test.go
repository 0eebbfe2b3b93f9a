package action

import (
	"math/rand"
	"testing"

	"cca8/internal/lexicon"
	"cca8/internal/scratch"
	"cca8/internal/worldgraph"
)

func setup(t *testing.T) (*worldgraph.WorldGraph, *scratch.BodyMap, *scratch.WorkingMap) {
	t.Helper()
	wg := worldgraph.New(worldgraph.MemoryEpisodic, lexicon.New())
	wg.EnsureAnchor("NOW")
	return wg, scratch.NewBodyMap(), scratch.NewWorkingMap()
}

func TestDrivesFlags(t *testing.T) {
	d := Drives{Hunger: 0.8, Fatigue: 0.2, Warmth: 0.1}
	flags := d.Flags()
	if !containsFlag(flags, "hunger_high") || !containsFlag(flags, "cold") {
		t.Fatalf("expected hunger_high and cold, got %v", flags)
	}
	if containsFlag(flags, "fatigue_high") {
		t.Fatalf("did not expect fatigue_high, got %v", flags)
	}
}

func containsFlag(xs []string, target string) bool {
	for _, x := range xs {
		if x == target {
			return true
		}
	}
	return false
}

func TestSkillLedgerEMA(t *testing.T) {
	l := NewSkillLedger()
	l.Update("policy:rest", 0.5, true)
	q1 := l.Get("policy:rest").Q
	if q1 != 0.15 {
		t.Fatalf("expected q=0.15 after first ok reward 0.5, got %f", q1)
	}
	l.Update("policy:rest", 0.0, false)
	q2 := l.Get("policy:rest").Q
	want := 0.7 * 0.15
	if diff := q2 - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected q=%f after fail, got %f", want, q2)
	}
	stat := l.Get("policy:rest")
	if stat.N != 2 || stat.Succ != 1 || stat.LastReward != 0.0 {
		t.Fatalf("unexpected stat after two updates: %+v", stat)
	}
}

func TestStandUpFires(t *testing.T) {
	wg, body, wm := setup(t)
	wg.AddPredicate("stand", "now", nil, nil)
	body.Overwrite("posture", []string{"posture:fallen"}, 0)

	rt := NewPolicyRuntime(DefaultCatalog(), rand.New(rand.NewSource(1)))
	drives := Drives{}
	out := rt.ConsiderAndMaybeFire(wg, body, wm, &drives, Context{AgeDays: 1.0})
	if out == nil || out.Policy != "policy:stand_up" {
		t.Fatalf("expected policy:stand_up to fire, got %+v", out)
	}
}

func TestSafetyOverrideRestrictsToRecoverySet(t *testing.T) {
	wg, body, wm := setup(t)
	body.Overwrite("posture", []string{"posture:fallen"}, 0)
	wg.AddPredicate("stand", "now", nil, nil)
	wg.AddCue("scent:milk", "now", nil, nil)

	rt := NewPolicyRuntime(DefaultCatalog(), rand.New(rand.NewSource(1)))
	drives := Drives{Hunger: 0.9}
	out := rt.ConsiderAndMaybeFire(wg, body, wm, &drives, Context{AgeDays: 1.0})
	if out == nil {
		t.Fatal("expected a policy to fire")
	}
	if !safetyOverrideSet[out.Policy] {
		t.Fatalf("expected safety-restricted policy, got %s", out.Policy)
	}
}

func TestRestFiresOnHighFatigue(t *testing.T) {
	wg, body, wm := setup(t)
	rt := NewPolicyRuntime(DefaultCatalog(), rand.New(rand.NewSource(1)))
	drives := Drives{Fatigue: 0.9}
	out := rt.ConsiderAndMaybeFire(wg, body, wm, &drives, Context{AgeDays: 10})
	if out == nil || out.Policy != "policy:rest" {
		t.Fatalf("expected policy:rest to fire, got %+v", out)
	}
	if drives.Fatigue >= 0.9 {
		t.Fatalf("expected fatigue to drop after rest, got %f", drives.Fatigue)
	}
}

func TestNoMatchReturnsNil(t *testing.T) {
	wg, body, wm := setup(t)
	rt := NewPolicyRuntime(DefaultCatalog(), rand.New(rand.NewSource(1)))
	drives := Drives{}
	out := rt.ConsiderAndMaybeFire(wg, body, wm, &drives, Context{AgeDays: 10})
	if out != nil {
		t.Fatalf("expected no match, got %+v", out)
	}
}
