package scratch

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"cca8/internal/engram"
	"cca8/internal/lexicon"
	"cca8/internal/worldgraph"
)

func openTestEngramStore(t *testing.T) *engram.Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s, err := engram.Open(db)
	if err != nil {
		t.Fatalf("engram.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMapSurfaceSnapshotV1CapturesEntitiesAndPosition(t *testing.T) {
	wm := NewWorkingMap()
	ms := NewMapSurface(wm)
	ms.WriteSlotFamilies([]string{"hazard:near"})
	wm.SetEntityPosition(SelfEntityID, EntityPosition{X: 0, Y: 0})
	wm.SetEntityTags("mom", []string{"proximity:mom:close"}, []string{"scent:milk"})
	wm.SetEntityPosition("mom", EntityPosition{X: 1, Y: 0})

	payload := ms.SnapshotV1("first_stand", "nest")
	if payload.Schema != "mapsurface_v1" || payload.Stage != "first_stand" || payload.Zone != "nest" {
		t.Fatalf("unexpected payload header: %+v", payload)
	}
	if len(payload.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %d: %+v", len(payload.Entities), payload.Entities)
	}
	if len(payload.Relations) != 1 || payload.Relations[0].DistanceClass != "near" {
		t.Fatalf("expected one near relation to mom, got %+v", payload.Relations)
	}
}

func TestMapSurfaceMergeV1NeverOverwritesExistingSlotFamily(t *testing.T) {
	wm := NewWorkingMap()
	ms := NewMapSurface(wm)
	ms.WriteSlotFamilies([]string{"hazard:near"})

	prior := MapSurfacePayloadV1{
		Schema: "mapsurface_v1",
		Entities: []MapSurfaceEntityV1{
			{EntityID: SelfEntityID, Preds: []string{"hazard:far", "goal:dir:N"}, Cues: []string{"scent:milk"}},
		},
	}
	ms.MergeV1(prior)

	tags := ms.SelfTags()
	if !containsStr(tags, "hazard:near") {
		t.Fatalf("expected existing hazard:near to survive merge, got %v", tags)
	}
	if containsStr(tags, "hazard:far") {
		t.Fatalf("expected prior hazard:far to be dropped (family already set), got %v", tags)
	}
	if !containsStr(tags, "goal:dir:N") {
		t.Fatalf("expected new non-conflicting family goal:dir:N to be added, got %v", tags)
	}

	bid := wm.EnsureEntity(SelfEntityID)
	dto, _ := wm.Graph().Binding(bid)
	for _, tg := range dto.Tags {
		if tg == "cue:scent:milk" {
			t.Fatalf("expected prior cue tokens never written as WM tags, got %v", dto.Tags)
		}
	}
	prior2, _ := dto.Meta["prior_cues"].([]string)
	if len(prior2) != 1 || prior2[0] != "scent:milk" {
		t.Fatalf("expected prior_cues=[scent:milk] in meta, got %+v", dto.Meta["prior_cues"])
	}
}

func TestMapSurfaceMergeV1AddsNonConflictingEntity(t *testing.T) {
	wm := NewWorkingMap()
	ms := NewMapSurface(wm)

	prior := MapSurfacePayloadV1{
		Entities: []MapSurfaceEntityV1{
			{EntityID: "cliff", Preds: []string{"hazard:near"}},
		},
	}
	ms.MergeV1(prior)

	bid, ok := wm.entities["cliff"]
	if !ok {
		t.Fatal("expected merge to create a new cliff entity")
	}
	dto, _ := wm.Graph().Binding(bid)
	if !containsStr(dto.Tags, "pred:hazard:near") {
		t.Fatalf("expected merged cliff entity to carry hazard:near, got %v", dto.Tags)
	}
}

func TestStoreSnapshotV1AndPickBestMapSurfaceRecord(t *testing.T) {
	store := openTestEngramStore(t)
	world := worldgraph.New(worldgraph.MemoryEpisodic, lexicon.New())
	world.EnsureAnchor("NOW")

	wm := NewWorkingMap()
	ms := NewMapSurface(wm)
	ms.WriteSlotFamilies([]string{"hazard:near"})

	id, err := ms.StoreSnapshotV1(world, store, "first_stand", "nest")
	if err != nil {
		t.Fatalf("StoreSnapshotV1: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty engram id")
	}

	ptrs := world.BindingsByTag("cue:wm:mapsurface_snapshot")
	if len(ptrs) != 1 {
		t.Fatalf("expected one pointer binding, got %d", len(ptrs))
	}
	col, _ := ptrs[0].Engrams["column01"].(map[string]interface{})
	if col["id"] != id {
		t.Fatalf("expected pointer binding to reference stored id %s, got %+v", id, col)
	}

	payload, found, err := PickBestMapSurfaceRecord(store, world, "first_stand", "nest", ms.SelfTags(), "", 5)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected a matching prior record")
	}
	if payload.Stage != "first_stand" || payload.Zone != "nest" {
		t.Fatalf("unexpected picked payload: %+v", payload)
	}

	_, found, err = PickBestMapSurfaceRecord(store, world, "first_stand", "nest", ms.SelfTags(), id, 5)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected excludeEngramID to skip the only stored record")
	}
}
