package runtime

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"time"

	"cca8/internal/action"
	"cca8/internal/temporal"
)

// appVersion is the snapshot-format application version stamped on every
// save, independent of the module's own version tags.
const appVersion = "cca8-0.1"

// drivesDTO is the wire form of action.Drives.
type drivesDTO struct {
	Hunger  float64 `json:"hunger"`
	Fatigue float64 `json:"fatigue"`
	Warmth  float64 `json:"warmth"`
}

// snapshot is the top-level on-disk form of a Runtime: the WorldGraph
// snapshot plus the Ctx/Drives/skill-ledger fields needed to resume ticking.
type snapshot struct {
	SavedAt  string `json:"saved_at"`
	AppVersion string `json:"app_version"`
	Platform string `json:"platform"`

	World           json.RawMessage `json:"world"`
	Drives          drivesDTO       `json:"drives"`
	Skills          map[string]action.SkillStat `json:"skills"`

	Sigma           float64         `json:"sigma"`
	Jump            float64         `json:"jump"`
	AgeDays         float64         `json:"age_days"`
	Ticks           int             `json:"ticks"`
	Profile         string          `json:"profile"`
	TemporalVector  []float64       `json:"temporal_vector"`
	BoundaryVector  []float64       `json:"boundary_vector"`
	BoundaryNo      int             `json:"boundary_no"`
	ControllerSteps int             `json:"controller_steps"`
	CogCycles       int             `json:"cog_cycles"`
	RLEnabled       bool            `json:"rl_enabled"`
	RLEpsilon       float64         `json:"rl_epsilon"`
}

// Save atomically writes the runtime's full state to path: it writes to a
// temp file in the same directory, then renames over the destination, so a
// crash mid-write never leaves a corrupt snapshot.
func (r *Runtime) Save(path string) error {
	worldJSON, err := r.World.ToDict()
	if err != nil {
		return fmt.Errorf("runtime: save world: %w", err)
	}
	snap := snapshot{
		SavedAt:    time.Now().UTC().Format(time.RFC3339),
		AppVersion: appVersion,
		Platform:   goruntime.GOOS + "/" + goruntime.GOARCH,
		World:      worldJSON,
		Drives: drivesDTO{
			Hunger:  r.Drives.Hunger,
			Fatigue: r.Drives.Fatigue,
			Warmth:  r.Drives.Warmth,
		},
		Skills:          r.Policy.Ledger().Snapshot(),
		Sigma:           r.Ctx.Sigma,
		Jump:            r.Ctx.Jump,
		AgeDays:         r.Ctx.AgeDays,
		Ticks:           r.Ctx.Ticks,
		Profile:         r.Ctx.Profile,
		TemporalVector:  r.Ctx.Temporal.Vector(),
		BoundaryVector:  r.Ctx.TvecLastBoundary,
		BoundaryNo:      r.Ctx.BoundaryNo,
		ControllerSteps: r.Ctx.ControllerSteps,
		CogCycles:       r.Ctx.CogCycles,
		RLEnabled:       r.Ctx.RLEnabled,
		RLEpsilon:       r.Ctx.RLEpsilon,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("runtime: marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".cca8-snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("runtime: create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("runtime: write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("runtime: close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("runtime: rename snapshot: %w", err)
	}
	return nil
}

// Load replaces the runtime's WorldGraph, Drives, skill ledger, and Ctx
// state from path.
func (r *Runtime) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("runtime: read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("runtime: unmarshal snapshot: %w", err)
	}
	if err := r.World.FromDict(snap.World); err != nil {
		return fmt.Errorf("runtime: restore world: %w", err)
	}

	r.Drives = action.Drives{
		Hunger:  snap.Drives.Hunger,
		Fatigue: snap.Drives.Fatigue,
		Warmth:  snap.Drives.Warmth,
	}
	r.Policy.Ledger().Restore(snap.Skills)

	r.Ctx.Sigma = snap.Sigma
	r.Ctx.Jump = snap.Jump
	r.Ctx.AgeDays = snap.AgeDays
	r.Ctx.Ticks = snap.Ticks
	r.Ctx.Profile = snap.Profile
	r.Ctx.BoundaryNo = snap.BoundaryNo
	r.Ctx.ControllerSteps = snap.ControllerSteps
	r.Ctx.CogCycles = snap.CogCycles
	r.Ctx.RLEnabled = snap.RLEnabled
	r.Ctx.RLEpsilon = snap.RLEpsilon
	r.Ctx.TvecLastBoundary = snap.BoundaryVector
	if len(snap.TemporalVector) > 0 {
		r.Ctx.Temporal = temporal.New(len(snap.TemporalVector), snap.Sigma, snap.Jump, nil)
		r.Ctx.Temporal.SetVector(snap.TemporalVector)
	}
	r.Ctx.BoundaryVhash64 = temporal.Vhash64(r.Ctx.TvecLastBoundary)
	return nil
}
