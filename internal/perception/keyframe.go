package perception

// KeyframeConfig controls which keyframe triggers are enabled and their
// parameters.
type KeyframeConfig struct {
	StageChangeEnabled bool
	ZoneChangeEnabled  bool
	PeriodicEnabled    bool
	PeriodicEveryN     int
	PeriodicResetOnAny bool
	PredErrStreakLen   int
	MilestoneEnabled   bool
	EmotionThreshold   float64 // 0 disables emotion trigger
}

// KeyframeState holds the mutable gating state carried across ticks.
type KeyframeState struct {
	lastStage          string
	lastZone           string
	ticksSincePeriodic int
	lastPosture        string
}

// NewKeyframeState builds an empty gating state.
func NewKeyframeState() *KeyframeState {
	return &KeyframeState{}
}

// Evaluate checks every enabled trigger for this tick and returns whether a
// keyframe fired, the reasons, and whether stage/zone actually changed this
// tick — the latter two are reported regardless of whether their cfg flags
// gate the keyframe itself, since callers like the MapSurface auto-retrieve
// guard need "did the boundary change" independent of "should that change
// alone force a keyframe". sleeping suppresses the periodic trigger (not
// the others) when true.
func (s *KeyframeState) Evaluate(
	cfg KeyframeConfig,
	stage, zone, posture string,
	milestones []string,
	predErrStreak int,
	emotionLevel float64,
	sleeping bool,
) (fired bool, reasons []string, stageChanged bool, zoneChanged bool) {
	stageChanged = s.lastStage != "" && stage != s.lastStage
	zoneChanged = s.lastZone != "" && zone != s.lastZone

	if cfg.StageChangeEnabled && stageChanged {
		reasons = append(reasons, "stage_change")
	}
	if cfg.ZoneChangeEnabled && zoneChanged {
		reasons = append(reasons, "zone_change")
	}
	if cfg.PeriodicEnabled && !sleeping {
		s.ticksSincePeriodic++
		if cfg.PeriodicEveryN > 0 && s.ticksSincePeriodic >= cfg.PeriodicEveryN {
			reasons = append(reasons, "periodic")
			s.ticksSincePeriodic = 0
		}
	}
	if cfg.PredErrStreakLen > 0 && predErrStreak >= cfg.PredErrStreakLen {
		reasons = append(reasons, "pred_err_streak")
	}
	if cfg.MilestoneEnabled {
		for _, m := range milestones {
			if m == "stood_up" {
				reasons = append(reasons, "milestone")
				break
			}
		}
		if s.lastPosture == "fallen" && posture == "standing" {
			reasons = append(reasons, "milestone")
		}
	}
	if cfg.EmotionThreshold > 0 && emotionLevel >= cfg.EmotionThreshold {
		reasons = append(reasons, "emotion")
	}

	fired = len(reasons) > 0
	if fired && cfg.PeriodicResetOnAny {
		s.ticksSincePeriodic = 0
	}
	s.lastStage = stage
	s.lastZone = zone
	s.lastPosture = posture
	return fired, reasons, stageChanged, zoneChanged
}
