package scratch

import (
	"fmt"

	"cca8/internal/engram"
	"cca8/internal/lexicon"
	"cca8/internal/worldgraph"
)

// SelfEntityID is the reserved entity id for the agent itself.
const SelfEntityID = "self"

// EntityPosition is a 2D world position attached to a WorkingMap entity.
type EntityPosition struct {
	X float64
	Y float64
}

// WorkingMap is the per-tick scratch WorldGraph: entity bindings keyed by
// entity_id, each carrying position metadata and tags, plus scratch items
// for unresolved NavPatch ambiguities. It is rebuilt (or selectively
// refreshed) every tick and is not itself persisted across ticks in
// long-term memory.
type WorkingMap struct {
	wg       *worldgraph.WorldGraph
	entities map[string]string // entity_id -> binding id
	patches  []*engram.NavPatch
	grid     *engram.SurfaceGridV1
}

// NewWorkingMap constructs an empty WorkingMap.
func NewWorkingMap() *WorkingMap {
	wg := worldgraph.New(worldgraph.MemoryEpisodic, lexicon.New())
	wg.SetTagPolicy(lexicon.PolicyAllow)
	return &WorkingMap{wg: wg, entities: map[string]string{}}
}

// EnsureEntity creates (if absent) a binding for entityID and returns its
// binding id.
func (w *WorkingMap) EnsureEntity(entityID string) string {
	if bid, ok := w.entities[entityID]; ok {
		return bid
	}
	bid := w.wg.AddBinding([]string{"entity:" + entityID}, map[string]interface{}{"entity_id": entityID}, nil)
	w.entities[entityID] = bid
	return bid
}

// SetEntityTags overwrites entityID's predicate/cue tags (given without
// namespace prefix) with the supplied ones, preserving the entity:* tag.
func (w *WorkingMap) SetEntityTags(entityID string, predTokens, cueTokens []string) {
	bid := w.EnsureEntity(entityID)
	dto, ok := w.wg.Binding(bid)
	meta := map[string]interface{}{}
	if ok {
		meta = dto.Meta
	}
	w.wg.DeleteBinding(bid, true, true)

	tags := []string{"entity:" + entityID}
	for _, t := range predTokens {
		tags = append(tags, "pred:"+t)
	}
	for _, t := range cueTokens {
		tags = append(tags, "cue:"+t)
	}
	newBid := w.wg.AddBinding(tags, meta, nil)
	w.entities[entityID] = newBid
}

// SetEntityPosition records entityID's world position in its binding meta.
func (w *WorkingMap) SetEntityPosition(entityID string, pos EntityPosition) {
	bid := w.EnsureEntity(entityID)
	dto, _ := w.wg.Binding(bid)
	meta := dto.Meta
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["x"] = pos.X
	meta["y"] = pos.Y
	w.wg.DeleteBinding(bid, true, true)
	newBid := w.wg.AddBinding(dto.Tags, meta, nil)
	w.entities[entityID] = newBid
}

// Position returns entityID's last recorded position.
func (w *WorkingMap) Position(entityID string) (EntityPosition, bool) {
	bid, ok := w.entities[entityID]
	if !ok {
		return EntityPosition{}, false
	}
	dto, ok := w.wg.Binding(bid)
	if !ok {
		return EntityPosition{}, false
	}
	x, _ := dto.Meta["x"].(float64)
	y, _ := dto.Meta["y"].(float64)
	return EntityPosition{X: x, Y: y}, true
}

// AddScratchItem records an unresolved NavPatch-match ambiguity as a cue
// binding attached to the given entity, returning the new binding id.
func (w *WorkingMap) AddScratchItem(entityID string, note map[string]interface{}) string {
	bid := w.wg.AddBinding([]string{"cue:wm:ambiguity"}, note, nil)
	if eb, ok := w.entities[entityID]; ok {
		w.wg.AddEdge(eb, bid, "ambiguity", nil, false)
	}
	return bid
}

// LoadPatches replaces the set of active NavPatches and recomposes the
// SurfaceGrid over the given world extent.
func (w *WorkingMap) LoadPatches(width, height int, cellSize, originX, originY float64, patches []*engram.NavPatch) {
	w.patches = patches
	w.grid = engram.ComposeSurfaceGridV1(width, height, cellSize, originX, originY, patches)
}

// Grid returns the most recently composed SurfaceGrid, or nil if none has
// been loaded yet.
func (w *WorkingMap) Grid() *engram.SurfaceGridV1 {
	return w.grid
}

// Graph exposes the underlying scratch WorldGraph (for planners/analytics
// that want to operate on it directly).
func (w *WorkingMap) Graph() *worldgraph.WorldGraph {
	return w.wg
}

// String renders a short debug summary.
func (w *WorkingMap) String() string {
	return fmt.Sprintf("WorkingMap{entities=%d, patches=%d}", len(w.entities), len(w.patches))
}
