package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadObservationParsesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.json")
	body := `{
		"predicates": ["posture:fallen"],
		"cues": ["cue:nipple:visible"],
		"meta": {"scenario_stage": "neonate", "step_index": 3, "zone": "den"}
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	obs, err := loadObservation(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(obs.Predicates) != 1 || obs.Predicates[0] != "posture:fallen" {
		t.Fatalf("unexpected predicates: %v", obs.Predicates)
	}
	if obs.Meta.Zone != "den" {
		t.Fatalf("expected zone den, got %q", obs.Meta.Zone)
	}
	if obs.Meta.StepIndex != 3 {
		t.Fatalf("expected step index 3, got %d", obs.Meta.StepIndex)
	}
}

func TestLoadObservationMissingFile(t *testing.T) {
	if _, err := loadObservation(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
