package scratch

import (
	"math"
	"sort"
	"strings"
)

// slotFamilyPrefixes lists the pred:* family prefixes MapSurface owns and
// overwrites wholesale each tick: any existing SELF tag under one of these
// prefixes not present in the new derivation is dropped, and any new token
// is added. Tags outside these prefixes (e.g. manually-set cues) are left
// untouched.
var slotFamilyPrefixes = []string{"hazard:", "terrain:", "goal:dir:"}

func ownedByMapSurface(localTag string) bool {
	for _, p := range slotFamilyPrefixes {
		if strings.HasPrefix(localTag, p) {
			return true
		}
	}
	return false
}

// MapSurface maintains the distinguished SELF binding within a WorkingMap,
// onto which grid-derived slot-family predicates are written each tick by
// overwrite-by-family-prefix: stale family tokens are replaced, unrelated
// tags are preserved, and no cue:* tags are ever created here.
type MapSurface struct {
	wm *WorkingMap
}

// NewMapSurface wraps wm, ensuring its SELF entity exists.
func NewMapSurface(wm *WorkingMap) *MapSurface {
	wm.EnsureEntity(SelfEntityID)
	return &MapSurface{wm: wm}
}

// WriteSlotFamilies overwrites SELF's hazard:*/terrain:*/goal:dir:*
// predicate tags with exactly the given tokens (local form, e.g.
// "hazard:near"), preserving every other tag on SELF. Boolean families
// like "hazard:near" are represented purely by tag presence/absence.
func (m *MapSurface) WriteSlotFamilies(tokens []string) {
	bid := m.wm.EnsureEntity(SelfEntityID)
	wg := m.wm.Graph()

	dto, ok := wg.Binding(bid)
	if !ok {
		return
	}

	kept := map[string]bool{}
	for _, t := range dto.Tags {
		local, isPred := strings.CutPrefix(t, "pred:")
		if isPred && ownedByMapSurface(local) {
			continue // dropped: replaced below by fresh derivation
		}
		kept[t] = true
	}
	for _, tok := range tokens {
		kept["pred:"+tok] = true
	}

	tagList := make([]string, 0, len(kept))
	for t := range kept {
		tagList = append(tagList, t)
	}

	meta := dto.Meta
	wg.DeleteBinding(bid, true, true)
	newBid := wg.AddBinding(tagList, meta, nil)
	m.wm.entities[SelfEntityID] = newBid
}

// SelfTags returns SELF's current local predicate tokens.
func (m *MapSurface) SelfTags() []string {
	bid := m.wm.EnsureEntity(SelfEntityID)
	dto, ok := m.wm.Graph().Binding(bid)
	if !ok {
		return nil
	}
	var out []string
	for _, t := range dto.Tags {
		if local, ok := strings.CutPrefix(t, "pred:"); ok {
			out = append(out, local)
		}
	}
	return out
}

// RefreshFromGrid composes the WorkingMap's current SurfaceGrid around
// (cx, cy) within radius cells and writes the resulting slot families to
// SELF. It is a no-op if no grid has been loaded.
func (m *MapSurface) RefreshFromGrid(cx, cy, radius int) {
	grid := m.wm.Grid()
	if grid == nil {
		return
	}
	m.WriteSlotFamilies(grid.SlotFamilies(cx, cy, radius))
}

// distanceNear/distanceMid are the world-unit thresholds used to bucket an
// entity's distance from SELF into a coarse "near"/"mid"/"far" class for
// the mapsurface_v1 engram payload's relations list.
const (
	distanceNear = 1.5
	distanceMid  = 4.0
)

func distanceClass(d float64) string {
	switch {
	case d <= distanceNear:
		return "near"
	case d <= distanceMid:
		return "mid"
	default:
		return "far"
	}
}

// MapSurfaceEntityV1 is one entity's snapshot within a mapsurface_v1
// payload: its position (if known) and its local pred/cue tokens.
type MapSurfaceEntityV1 struct {
	EntityID string   `json:"entity_id"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Preds    []string `json:"preds,omitempty"`
	Cues     []string `json:"cues,omitempty"`
}

// MapSurfaceRelationV1 is a SELF-relative spatial relation recorded at
// snapshot time.
type MapSurfaceRelationV1 struct {
	From          string `json:"from"`
	To            string `json:"to"`
	Label         string `json:"label"`
	DistanceClass string `json:"distance_class,omitempty"`
}

// MapSurfacePayloadV1 is the wire form of one MapSurface snapshot, stored
// as a column engram and later merged back into a fresh WorkingMap.
type MapSurfacePayloadV1 struct {
	Schema    string                 `json:"schema"`
	Stage     string                 `json:"stage"`
	Zone      string                 `json:"zone"`
	Entities  []MapSurfaceEntityV1   `json:"entities"`
	Relations []MapSurfaceRelationV1 `json:"relations,omitempty"`
}

func splitTags(tags []string) (preds, cues []string) {
	for _, t := range tags {
		if local, ok := strings.CutPrefix(t, "pred:"); ok {
			preds = append(preds, local)
			continue
		}
		if local, ok := strings.CutPrefix(t, "cue:"); ok {
			cues = append(cues, local)
		}
	}
	return preds, cues
}

// SnapshotV1 serializes the WorkingMap's current entities, positions, and
// SELF-relative distance classes into a MapSurfacePayloadV1, ready to be
// written out as a column engram by StoreSnapshotV1.
func (m *MapSurface) SnapshotV1(stage, zone string) MapSurfacePayloadV1 {
	wg := m.wm.Graph()
	selfPos, haveSelfPos := m.wm.Position(SelfEntityID)

	ids := make([]string, 0, len(m.wm.entities))
	for id := range m.wm.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	payload := MapSurfacePayloadV1{Schema: "mapsurface_v1", Stage: stage, Zone: zone}
	for _, id := range ids {
		bid := m.wm.entities[id]
		dto, ok := wg.Binding(bid)
		if !ok {
			continue
		}
		preds, cues := splitTags(dto.Tags)
		ent := MapSurfaceEntityV1{EntityID: id, Preds: preds, Cues: cues}
		if pos, ok := m.wm.Position(id); ok {
			x, y := pos.X, pos.Y
			ent.X, ent.Y = &x, &y
		}
		payload.Entities = append(payload.Entities, ent)

		if id == SelfEntityID || !haveSelfPos {
			continue
		}
		if pos, ok := m.wm.Position(id); ok {
			dx, dy := pos.X-selfPos.X, pos.Y-selfPos.Y
			d := dx*dx + dy*dy
			payload.Relations = append(payload.Relations, MapSurfaceRelationV1{
				From:          SelfEntityID,
				To:            id,
				Label:         "distance",
				DistanceClass: distanceClass(math.Sqrt(d)),
			})
		}
	}
	return payload
}

// mergePreds folds candidate pred tokens into existing, never overwriting a
// slot family (hazard:*/terrain:*/goal:dir:*) that existing already sets:
// existing wins regardless of direction or specificity. Non-family preds
// are added if not already present.
func mergePreds(existing, candidate []string) []string {
	have := map[string]bool{}
	haveFamily := map[string]bool{}
	out := append([]string{}, existing...)
	for _, t := range existing {
		have[t] = true
		if ownedByMapSurface(t) {
			haveFamily[familyOf(t)] = true
		}
	}
	for _, t := range candidate {
		if have[t] {
			continue
		}
		if ownedByMapSurface(t) && haveFamily[familyOf(t)] {
			continue
		}
		out = append(out, t)
		have[t] = true
	}
	return out
}

func familyOf(localTag string) string {
	for _, p := range slotFamilyPrefixes {
		if strings.HasPrefix(localTag, p) {
			return p
		}
	}
	return ""
}

// MergeV1 folds a retrieved mapsurface_v1 payload into the WorkingMap:
// existing slot families are never overwritten, payload cue tokens are
// never written as WM tags (they survive only as meta.prior_cues), and new
// non-conflicting entities/relations are added.
func (m *MapSurface) MergeV1(prior MapSurfacePayloadV1) {
	for _, ent := range prior.Entities {
		m.mergeEntity(ent)
	}
	for _, rel := range prior.Relations {
		m.mergeRelation(rel)
	}
}

func (m *MapSurface) mergeEntity(ent MapSurfaceEntityV1) {
	wg := m.wm.Graph()
	bid := m.wm.EnsureEntity(ent.EntityID)
	dto, _ := wg.Binding(bid)

	existingPreds, existingCues := splitTags(dto.Tags)
	mergedPreds := mergePreds(existingPreds, ent.Preds)

	meta := dto.Meta
	if meta == nil {
		meta = map[string]interface{}{}
	}
	if len(ent.Cues) > 0 {
		meta["prior_cues"] = append([]string{}, ent.Cues...)
	}
	if _, ok := meta["x"]; !ok && ent.X != nil {
		meta["x"] = *ent.X
	}
	if _, ok := meta["y"]; !ok && ent.Y != nil {
		meta["y"] = *ent.Y
	}

	tags := []string{"entity:" + ent.EntityID}
	for _, t := range mergedPreds {
		tags = append(tags, "pred:"+t)
	}
	for _, t := range existingCues {
		tags = append(tags, "cue:"+t)
	}

	wg.DeleteBinding(bid, true, true)
	newBid := wg.AddBinding(tags, meta, nil)
	m.wm.entities[ent.EntityID] = newBid
}

func (m *MapSurface) mergeRelation(rel MapSurfaceRelationV1) {
	fromBid, ok := m.wm.entities[rel.From]
	if !ok {
		return
	}
	toBid, ok := m.wm.entities[rel.To]
	if !ok {
		return
	}
	dto, ok := m.wm.Graph().Binding(fromBid)
	if ok {
		for _, e := range dto.Edges {
			if e.To == toBid && e.Label == rel.Label {
				return // already present
			}
		}
	}
	m.wm.Graph().AddEdge(fromBid, toBid, rel.Label, map[string]interface{}{
		"source":         "mapsurface_merge",
		"distance_class": rel.DistanceClass,
	}, false)
}
