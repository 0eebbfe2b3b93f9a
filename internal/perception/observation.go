// Package perception implements the one-tick ingestion pipeline: turning a
// raw Observation into BodyMap overwrites, an optional WorkingMap mirror,
// and gated long-term WorldGraph writes.
package perception

import (
	"cca8/internal/engram"
)

// EnvMeta carries the scripted-environment side-channel fields riding
// along with an Observation.
type EnvMeta struct {
	ScenarioStage  string
	StepIndex      int
	TimeSinceBirth float64
	Milestones     []string
	EmotionKind    string
	EmotionLevel   float64
	Zone           string
}

// NavPatchObs is the wire form of a NavPatch as carried on an Observation,
// before being decoded into an engram.NavPatch.
type NavPatchObs struct {
	Width    int
	Height   int
	CellSize float64
	OriginX  float64
	OriginY  float64
	Cells    []engram.CellCode

	EntityID string
	Role     string
	Frame    string
	Tags     []string
	Extent   map[string]interface{}
}

// Observation is one tick's raw sensory input: predicate/cue tokens
// (without namespace prefixes), zero or more NavPatches, and environment
// metadata.
type Observation struct {
	Predicates []string
	Cues       []string
	NavPatches []NavPatchObs
	Meta       EnvMeta
}

func (o NavPatchObs) toNavPatch() *engram.NavPatch {
	return &engram.NavPatch{
		Width: o.Width, Height: o.Height, CellSize: o.CellSize,
		OriginX: o.OriginX, OriginY: o.OriginY, Cells: o.Cells,
		EntityID: o.EntityID, Role: o.Role, Frame: o.Frame,
		Tags: o.Tags, Extent: o.Extent,
	}
}
