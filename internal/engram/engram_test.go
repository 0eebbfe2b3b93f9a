package engram

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s, err := Open(db)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	id, err := s.Put(KindRaw, "greeting", []byte("hello"), map[string]interface{}{"column": "column01"})
	if err != nil {
		t.Fatal(err)
	}
	if len(id) != 32 {
		t.Fatalf("expected 32-char hex id, got %q (%d)", id, len(id))
	}
	rec, err := s.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if string(rec.Payload) != "hello" {
		t.Fatalf("unexpected payload %q", rec.Payload)
	}
	if rec.Name != "greeting" {
		t.Fatalf("unexpected name %q", rec.Name)
	}
	if rec.Attrs["column"] != "column01" {
		t.Fatalf("unexpected attrs %v", rec.Attrs)
	}
}

func TestGetUnknownID(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get("deadbeef"); err == nil {
		t.Fatal("expected error for unknown id")
	}
}

func TestPutDedupReusesID(t *testing.T) {
	s := openTestStore(t)
	id1, err := s.PutDedup(KindRaw, "sig-a", "dup", []byte("payload"), nil)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := s.PutDedup(KindRaw, "sig-a", "dup", []byte("payload"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("expected dedup reuse, got %s and %s", id1, id2)
	}
}

func TestExistsCountListIDs(t *testing.T) {
	s := openTestStore(t)
	if n, err := s.Count(); err != nil || n != 0 {
		t.Fatalf("expected empty store, got n=%d err=%v", n, err)
	}
	id, err := s.Put(KindRaw, "a", []byte("x"), nil)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := s.Exists(id)
	if err != nil || !ok {
		t.Fatalf("expected Exists true, got ok=%v err=%v", ok, err)
	}
	if ok, _ := s.Exists("missing"); ok {
		t.Fatal("expected Exists false for unknown id")
	}
	if n, err := s.Count(); err != nil || n != 1 {
		t.Fatalf("expected count 1, got n=%d err=%v", n, err)
	}
	ids, err := s.ListIDs()
	if err != nil || len(ids) != 1 || ids[0] != id {
		t.Fatalf("unexpected ListIDs result: %v err=%v", ids, err)
	}
}

func TestFindFiltersByNameEpochAndAttr(t *testing.T) {
	s := openTestStore(t)
	epoch0 := 0
	epoch1 := 1
	if _, err := s.Put(KindRaw, "mapsurface_snapshot:column01", []byte("a"), map[string]interface{}{"column": "column01", "epoch": 0}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(KindRaw, "mapsurface_snapshot:column02", []byte("b"), map[string]interface{}{"column": "column02", "epoch": 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(KindRaw, "other", []byte("c"), nil); err != nil {
		t.Fatal(err)
	}

	byName, err := s.Find(FindOptions{NameContains: "mapsurface_snapshot"})
	if err != nil || len(byName) != 2 {
		t.Fatalf("expected 2 name matches, got %d err=%v", len(byName), err)
	}
	byEpoch, err := s.Find(FindOptions{Epoch: &epoch1})
	if err != nil || len(byEpoch) != 1 || byEpoch[0].Name != "mapsurface_snapshot:column02" {
		t.Fatalf("unexpected epoch filter result: %v err=%v", byEpoch, err)
	}
	byEpoch0, err := s.Find(FindOptions{Epoch: &epoch0, HasAttr: "column"})
	if err != nil || len(byEpoch0) != 1 {
		t.Fatalf("unexpected combined filter result: %v err=%v", byEpoch0, err)
	}
	byAttr, err := s.Find(FindOptions{HasAttr: "column"})
	if err != nil || len(byAttr) != 2 {
		t.Fatalf("expected 2 has-attr matches, got %d err=%v", len(byAttr), err)
	}
}

func TestNavPatchSignatureStableAcrossObservedAt(t *testing.T) {
	p1 := &NavPatch{Width: 2, Height: 1, CellSize: 1.0, Cells: []CellCode{CellTraversable, CellHazard}, ObservedAt: "t0"}
	p2 := &NavPatch{Width: 2, Height: 1, CellSize: 1.0, Cells: []CellCode{CellTraversable, CellHazard}, ObservedAt: "t1"}
	sig1, err := p1.SignatureV1()
	if err != nil {
		t.Fatal(err)
	}
	sig2, err := p2.SignatureV1()
	if err != nil {
		t.Fatal(err)
	}
	if sig1 != sig2 {
		t.Fatalf("expected identical signatures, got %s and %s", sig1, sig2)
	}
	if len(sig1) != 40 {
		t.Fatalf("expected 40-char sha1 hex, got %d", len(sig1))
	}
}

func TestNavPatchStoreV1DedupsSecondCall(t *testing.T) {
	s := openTestStore(t)
	p := &NavPatch{Width: 2, Height: 1, CellSize: 1.0, Cells: []CellCode{CellTraversable, CellHazard}, EntityID: "self"}

	id1, stored1, err := p.StoreV1(s, map[string]interface{}{"stage": "neonate"})
	if err != nil {
		t.Fatal(err)
	}
	if !stored1 {
		t.Fatal("expected first StoreV1 call to actually store a new row")
	}

	id2, stored2, err := p.StoreV1(s, map[string]interface{}{"stage": "neonate"})
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("expected dedup cache to reuse the same engram id, got %s and %s", id1, id2)
	}
	if stored2 {
		t.Fatal("expected second StoreV1 call to report dedup reuse, not a fresh store")
	}

	n, err := s.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected exactly one stored row after two identical StoreV1 calls, got %d", n)
	}
}

func TestNavPatchErrorsDetectsMismatch(t *testing.T) {
	p := &NavPatch{Width: 2, Height: 2, CellSize: 1.0, Cells: []CellCode{CellTraversable}}
	errs := p.Errors()
	if len(errs) == 0 {
		t.Fatal("expected validation error for mismatched cell count")
	}
}

func TestComposeSurfaceGridOverlayPriority(t *testing.T) {
	base := &NavPatch{Width: 1, Height: 1, CellSize: 1.0, OriginX: 0, OriginY: 0, Cells: []CellCode{CellHazard}}
	overlay := &NavPatch{Width: 1, Height: 1, CellSize: 1.0, OriginX: 0, OriginY: 0, Cells: []CellCode{CellTraversable}}

	grid := ComposeSurfaceGridV1(1, 1, 1.0, 0, 0, []*NavPatch{base, overlay})
	if grid.at(0, 0) != CellHazard {
		t.Fatalf("expected hazard to survive lower-priority overlay, got %v", grid.at(0, 0))
	}
}

func TestTensorPayloadRoundTrip(t *testing.T) {
	tp, err := NewTensorPayload([]int{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	raw := tp.ToBytes()
	got, err := TensorFromBytes(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Data) != 6 || got.Data[5] != 6 {
		t.Fatalf("unexpected round-trip data: %v", got.Data)
	}
	if got.Dims[0] != 2 || got.Dims[1] != 3 {
		t.Fatalf("unexpected round-trip dims: %v", got.Dims)
	}
}

func TestTensorPayloadDimMismatch(t *testing.T) {
	if _, err := NewTensorPayload([]int{2, 2}, []float32{1, 2, 3}); err == nil {
		t.Fatal("expected dims/data mismatch error")
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	v := []float32{1, 0, 0}
	if s := CosineSimilarity(v, v); s < 0.999 {
		t.Fatalf("expected similarity ~1, got %f", s)
	}
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if s := CosineSimilarity(a, b); s > 1e-9 || s < -1e-9 {
		t.Fatalf("expected orthogonal similarity ~0, got %f", s)
	}
}
