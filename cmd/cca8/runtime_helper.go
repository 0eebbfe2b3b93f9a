package main

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"cca8/internal/lexicon"
	"cca8/internal/perception"
	"cca8/internal/runtime"
	"cca8/internal/worldgraph"
)

var (
	dbPath    string
	memMode   string
	tagPolicy string
	stage     string
	rlEnabled bool
	rlEpsilon float64
	ageDays   float64
	profile   string

	wmMapSurfaceAutoretrieve     bool
	wmMapSurfaceAutoretrieveMode string
	wmMapSurfaceAutoretrieveTopK int
)

func addRuntimeFlags(fs interface {
	StringVar(*string, string, string, string)
	BoolVar(*bool, string, bool, string)
	Float64Var(*float64, string, float64, string)
	IntVar(*int, string, int, string)
}) {
	fs.StringVar(&dbPath, "db", ".cca8/engrams.db", "engram store sqlite3 path")
	fs.StringVar(&memMode, "memory-mode", "episodic", "worldgraph memory mode: episodic|semantic")
	fs.StringVar(&tagPolicy, "tag-policy", "allow", "tag gating policy: allow|warn|strict")
	fs.StringVar(&stage, "stage", "neonate", "developmental stage: neonate|infant|juvenile|adult")
	fs.BoolVar(&rlEnabled, "rl", false, "enable skill-ledger-weighted policy selection")
	fs.Float64Var(&rlEpsilon, "rl-epsilon", 0.1, "epsilon for RL exploration")
	fs.Float64Var(&ageDays, "age-days", 0.0, "agent age in days")
	fs.StringVar(&profile, "profile", "default", "runtime profile label")
	fs.BoolVar(&wmMapSurfaceAutoretrieve, "wm-mapsurface-autoretrieve-enabled", false, "auto-retrieve a prior MapSurface engram snapshot on stage/zone boundaries")
	fs.StringVar(&wmMapSurfaceAutoretrieveMode, "wm-mapsurface-autoretrieve-mode", "merge", "mapsurface autoretrieve mode: merge|replace")
	fs.IntVar(&wmMapSurfaceAutoretrieveTopK, "wm-mapsurface-autoretrieve-top-k", 5, "candidate snapshots considered when picking the best prior (1-10)")
}

func openEngramDB() (*sql.DB, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := ensureDir(dir); err != nil {
				return nil, err
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open engram db %s: %w", dbPath, err)
	}
	return db, nil
}

func buildRuntime() (*runtime.Runtime, error) {
	db, err := openEngramDB()
	if err != nil {
		return nil, err
	}
	cfg := runtime.Config{
		MemoryMode: worldgraph.MemoryMode(memMode),
		TagPolicy:  lexicon.Policy(tagPolicy),
		Stage:      lexicon.Stage(stage),
		AgeDays:    ageDays,
		Profile:    profile,
		RLEnabled:  rlEnabled,
		RLEpsilon:  rlEpsilon,
		Perception: perception.Config{
			WorkingEnabled: true,
			WriteMode:      perception.WriteChanges,
			GridRadius:     2,
			Keyframe: perception.KeyframeConfig{
				StageChangeEnabled: true,
				ZoneChangeEnabled:  true,
				PeriodicEnabled:    true,
				PeriodicEveryN:     20,
				PredErrStreakLen:   3,
				MilestoneEnabled:   true,
				EmotionThreshold:   0.7,
			},
			MapSurfaceAutoretrieve: perception.MapSurfaceAutoretrieveConfig{
				Enabled: wmMapSurfaceAutoretrieve,
				Mode:    wmMapSurfaceAutoretrieveMode,
				TopK:    wmMapSurfaceAutoretrieveTopK,
			},
		},
	}
	rt, err := runtime.New(cfg, db)
	if err != nil {
		return nil, fmt.Errorf("build runtime: %w", err)
	}
	if snapshotIn != "" {
		if err := rt.Load(snapshotIn); err != nil {
			logger.Sugar().Debugf("no existing snapshot loaded from %s: %v", snapshotIn, err)
		}
	}
	return rt, nil
}
