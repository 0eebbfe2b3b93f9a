package worldgraph

import (
	"encoding/json"
	"fmt"

	"cca8/internal/lexicon"
)

// snapshotVersion is the literal wire-format version stamped on every
// snapshot, matching the reference implementation's to_dict output.
const snapshotVersion = "0.1"

// snapshotDTO is the full on-disk/wire form of a WorldGraph, mirroring the
// reference implementation's to_dict/from_dict pair. There is no next_id
// field on the wire: like the reference, FromDict always recomputes the id
// counter from the loaded bindings rather than trusting a persisted value.
type snapshotDTO struct {
	Bindings     map[string]bindingDTO `json:"bindings"`
	Anchors      map[string]string     `json:"anchors"`
	Latest       string                `json:"latest"`
	Version      string                `json:"version"`
	TagPolicy    string                `json:"tag_policy"`
	Stage        string                `json:"stage"`
	PlanStrategy string                `json:"plan_strategy"`
	MemoryMode   string                `json:"memory_mode"`
}

// ToDict renders the graph to its JSON-serializable snapshot form.
func (g *WorldGraph) ToDict() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	bindings := make(map[string]bindingDTO, len(g.bindings))
	for id, b := range g.bindings {
		bindings[id] = b.toDTO()
	}
	anchors := make(map[string]string, len(g.anchors))
	for k, v := range g.anchors {
		anchors[k] = v
	}

	dto := snapshotDTO{
		Bindings:     bindings,
		Anchors:      anchors,
		Latest:       g.latestBindingID,
		Version:      snapshotVersion,
		TagPolicy:    string(g.tagPolicy),
		Stage:        string(g.stage),
		PlanStrategy: g.planStrategy,
		MemoryMode:   g.memoryMode,
	}
	out, err := json.MarshalIndent(dto, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: marshal snapshot: %v", ErrIOError, err)
	}
	return out, nil
}

// nextIDAfterLoad recomputes the id counter from the loaded bindings,
// matching the reference implementation's from_dict: max(idnum(bid) for
// bid in bindings) + 1, defaulting to 1 when bindings is empty or none of
// its keys parse as "b<N>" (bidNum's 1<<30 sentinel is excluded from the
// max so a single malformed id can't poison the counter).
func nextIDAfterLoad(bindings map[string]*Binding) int {
	max := 0
	for id := range bindings {
		if n := bidNum(id); n < 1<<30 && n > max {
			max = n
		}
	}
	return max + 1
}

// FromDict replaces the graph's in-memory state with the given snapshot.
// The lexicon used for future tag-enforcement calls is left as-is; it is
// the caller's responsibility to construct the graph with a lexicon whose
// stage set matches the snapshot's stage/tag_policy fields.
func (g *WorldGraph) FromDict(data []byte) error {
	var dto snapshotDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return fmt.Errorf("%w: unmarshal snapshot: %v", ErrIOError, err)
	}

	bindings := make(map[string]*Binding, len(dto.Bindings))
	for id, bd := range dto.Bindings {
		if bd.ID == "" {
			bd.ID = id
		}
		bindings[id] = bindingFromDTO(bd)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.bindings = bindings
	g.anchors = dto.Anchors
	if g.anchors == nil {
		g.anchors = map[string]string{}
	}
	g.latestBindingID = dto.Latest
	g.nextID = nextIDAfterLoad(bindings)
	if dto.TagPolicy != "" {
		g.tagPolicy = lexicon.Policy(dto.TagPolicy)
	}
	if dto.Stage != "" {
		g.stage = lexicon.Stage(dto.Stage)
	}
	if dto.PlanStrategy != "" {
		g.planStrategy = dto.PlanStrategy
	}
	if dto.MemoryMode != "" {
		g.memoryMode = dto.MemoryMode
	} else {
		g.memoryMode = MemoryEpisodic
	}
	g.rebuildSemanticIndexLocked()
	return nil
}
