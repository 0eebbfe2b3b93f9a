package scratch

import (
	"encoding/json"

	"cca8/internal/engram"
	"cca8/internal/worldgraph"
)

const mapSurfaceSnapshotCue = "wm:mapsurface_snapshot"

// StoreSnapshotV1 serializes the WorkingMap's current state as a
// mapsurface_v1 column engram and attaches a pointer binding (tagged
// cue:wm:mapsurface_snapshot, source "world_pointers") onto world so a
// later tick can find it without scanning the whole column store.
func (m *MapSurface) StoreSnapshotV1(world *worldgraph.WorldGraph, store *engram.Store, stage, zone string) (string, error) {
	payload := m.SnapshotV1(stage, zone)
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	selfPreds := m.SelfTags()
	id, err := store.Put(engram.KindMapSurface, "mapsurface_snapshot", data, map[string]interface{}{
		"column":     "column01",
		"stage":      stage,
		"zone":       zone,
		"self_preds": selfPreds,
	})
	if err != nil {
		return "", err
	}

	if _, err := world.AddCue(mapSurfaceSnapshotCue, "now",
		map[string]interface{}{"source": "world_pointers"},
		map[string]interface{}{"column01": map[string]interface{}{"id": id, "act": 1.0}},
	); err != nil {
		return id, err
	}
	return id, nil
}

// iterNewestMapSurfaceIDs returns up to topK mapsurface_v1 engram ids,
// newest first. World pointer bindings are preferred over a direct column
// scan; the column store is only consulted as a fallback when no pointer
// bindings exist (e.g. a snapshot stored before the pointer binding code
// existed, or a store opened without the matching WorldGraph).
func iterNewestMapSurfaceIDs(store *engram.Store, world *worldgraph.WorldGraph, topK int) []string {
	var ids []string
	for _, b := range world.BindingsByTag("cue:" + mapSurfaceSnapshotCue) {
		if src, _ := b.Meta["source"].(string); src != "world_pointers" {
			continue
		}
		for _, v := range b.Engrams {
			ptr, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			if id, ok := ptr["id"].(string); ok {
				ids = append(ids, id)
			}
		}
		if len(ids) >= topK {
			break
		}
	}
	if len(ids) > 0 {
		if len(ids) > topK {
			ids = ids[:topK]
		}
		return ids
	}

	recs, err := store.Find(engram.FindOptions{NameContains: "mapsurface_snapshot"})
	if err != nil {
		return nil
	}
	for i := len(recs) - 1; i >= 0 && len(ids) < topK; i-- {
		ids = append(ids, recs[i].ID)
	}
	return ids
}

// salienceOverlap counts how many of selfPreds also appear on the payload's
// own SELF entity, the ranking signal PickBestMapSurfaceRecord uses to
// prefer the prior snapshot most relevant to the agent's current state.
func salienceOverlap(payload MapSurfacePayloadV1, selfPreds []string) int {
	want := map[string]bool{}
	for _, p := range selfPreds {
		want[p] = true
	}
	count := 0
	for _, ent := range payload.Entities {
		if ent.EntityID != SelfEntityID {
			continue
		}
		for _, p := range ent.Preds {
			if want[p] {
				count++
			}
		}
	}
	return count
}

// PickBestMapSurfaceRecord scans up to topK of the newest mapsurface_v1
// engrams (via iterNewestMapSurfaceIDs) and returns the one best matching
// stage/zone and salience overlap with selfPreds, breaking ties by
// recency. excludeEngramID skips a specific id (typically the snapshot
// just stored this same tick). Returns ok=false if nothing usable was
// found.
func PickBestMapSurfaceRecord(store *engram.Store, world *worldgraph.WorldGraph, stage, zone string, selfPreds []string, excludeEngramID string, topK int) (payload MapSurfacePayloadV1, ok bool, err error) {
	ids := iterNewestMapSurfaceIDs(store, world, topK)

	bestScore := -1
	bestRank := -1
	for i, id := range ids {
		if id == excludeEngramID {
			continue
		}
		rec, getErr := store.Get(id)
		if getErr != nil {
			continue
		}
		var cand MapSurfacePayloadV1
		if jsonErr := json.Unmarshal(rec.Payload, &cand); jsonErr != nil {
			continue
		}

		score := salienceOverlap(cand, selfPreds)
		if cand.Stage == stage && cand.Zone == zone {
			score += 1000
		}
		rank := len(ids) - i // ids are newest-first; earlier index is more recent
		if score > bestScore || (score == bestScore && rank > bestRank) {
			payload, bestScore, bestRank, ok = cand, score, rank, true
		}
	}
	return payload, ok, nil
}
