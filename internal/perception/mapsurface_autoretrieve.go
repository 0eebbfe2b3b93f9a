package perception

import "strings"

// MapSurfaceAutoretrieveConfig tunes whether/how a keyframe stage or zone
// boundary should trigger retrieving a prior MapSurface engram snapshot
// and merging it back into the current WorkingMap.
type MapSurfaceAutoretrieveConfig struct {
	Enabled bool
	Mode    string // "merge" (default) | "replace"
	TopK    int    // candidates considered when picking the best prior; clamped to [1,10]
}

// AutoretrieveDecision is the guard's verdict for one tick.
type AutoretrieveDecision struct {
	OK   bool
	Why  string // "disabled" | "not_boundary" | "enabled_boundary_<reason>"
	Mode string
	TopK int
}

// ShouldAutoretrieveMapSurface gates MapSurface auto-retrieval on a stage or
// zone boundary plus a caller-supplied boundaryReason (e.g. "pred_err" when
// the tick's posture prediction missed) that justifies spending a retrieval
// on this particular boundary rather than every one.
func ShouldAutoretrieveMapSurface(cfg MapSurfaceAutoretrieveConfig, stageChanged, zoneChanged bool, boundaryReason string) AutoretrieveDecision {
	if !cfg.Enabled {
		return AutoretrieveDecision{OK: false, Why: "disabled"}
	}
	if !stageChanged && !zoneChanged {
		return AutoretrieveDecision{OK: false, Why: "not_boundary"}
	}
	if boundaryReason == "" {
		return AutoretrieveDecision{OK: false, Why: "not_boundary"}
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode != "replace" {
		mode = "merge"
	}
	topK := cfg.TopK
	if topK < 1 {
		topK = 1
	}
	if topK > 10 {
		topK = 10
	}
	return AutoretrieveDecision{OK: true, Why: "enabled_boundary_" + boundaryReason, Mode: mode, TopK: topK}
}
