package runtime

import (
	"database/sql"

	"cca8/internal/action"
	"cca8/internal/engram"
	"cca8/internal/lexicon"
	"cca8/internal/perception"
	"cca8/internal/worldgraph"
)

// Config assembles everything a Runtime needs at construction time.
type Config struct {
	MemoryMode worldgraph.MemoryMode
	TagPolicy  lexicon.Policy
	Stage      lexicon.Stage

	Sigma float64
	Jump  float64

	Perception perception.Config

	RLEnabled bool
	RLEpsilon float64

	AgeDays float64
	Profile string
}

// Runtime is the single-threaded, tick-driven Agent Runtime: the owner of
// the WorldGraph, engram store, perception pipeline, and Action Center.
type Runtime struct {
	World   *worldgraph.WorldGraph
	Engrams *engram.Store
	Percept *perception.Pipeline
	Policy  *action.PolicyRuntime
	Ctx     *Ctx
	Drives  action.Drives

	Sleeping bool
}

// New wires a fresh Runtime. db backs the engram column store (typically
// an in-memory or on-disk sqlite3 *sql.DB already opened by the caller).
func New(cfg Config, db *sql.DB) (*Runtime, error) {
	lex := lexicon.New()
	world := worldgraph.New(string(cfg.MemoryMode), lex)
	if cfg.TagPolicy != "" {
		if err := world.SetTagPolicy(cfg.TagPolicy); err != nil {
			return nil, err
		}
	}
	if cfg.Stage != "" {
		if err := world.SetStage(cfg.Stage); err != nil {
			return nil, err
		}
	}
	world.EnsureAnchor("NOW")

	store, err := engram.Open(db)
	if err != nil {
		return nil, err
	}

	sigma, jump := cfg.Sigma, cfg.Jump
	if sigma == 0 {
		sigma = 0.02
	}
	if jump == 0 {
		jump = 0.25
	}
	ctx := NewCtx(cfg.Profile, sigma, jump)
	ctx.AgeDays = cfg.AgeDays
	ctx.RLEnabled = cfg.RLEnabled
	ctx.RLEpsilon = cfg.RLEpsilon

	return &Runtime{
		World:   world,
		Engrams: store,
		Percept: perception.NewPipeline(cfg.Perception, store),
		Policy:  action.NewPolicyRuntime(action.DefaultCatalog(), nil),
		Ctx:     ctx,
	}, nil
}
