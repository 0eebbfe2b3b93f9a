package main

import (
	"encoding/json"
	"fmt"
	"os"

	"cca8/internal/perception"
)

// obsFile is the on-disk JSON form of a perception.Observation, one
// observation per file (the tick --obs file, or each *.json file read by
// run and watch).
type obsFile struct {
	Predicates []string `json:"predicates"`
	Cues       []string `json:"cues"`
	Meta       struct {
		ScenarioStage  string   `json:"scenario_stage"`
		StepIndex      int      `json:"step_index"`
		TimeSinceBirth float64  `json:"time_since_birth"`
		Milestones     []string `json:"milestones"`
		EmotionKind    string   `json:"emotion_kind"`
		EmotionLevel   float64  `json:"emotion_level"`
		Zone           string   `json:"zone"`
	} `json:"meta"`
}

func (f obsFile) toObservation() perception.Observation {
	return perception.Observation{
		Predicates: f.Predicates,
		Cues:       f.Cues,
		Meta: perception.EnvMeta{
			ScenarioStage:  f.Meta.ScenarioStage,
			StepIndex:      f.Meta.StepIndex,
			TimeSinceBirth: f.Meta.TimeSinceBirth,
			Milestones:     f.Meta.Milestones,
			EmotionKind:    f.Meta.EmotionKind,
			EmotionLevel:   f.Meta.EmotionLevel,
			Zone:           f.Meta.Zone,
		},
	}
}

func loadObservation(path string) (perception.Observation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return perception.Observation{}, fmt.Errorf("read observation: %w", err)
	}
	var f obsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return perception.Observation{}, fmt.Errorf("parse observation: %w", err)
	}
	return f.toObservation(), nil
}
