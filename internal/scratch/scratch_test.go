package scratch

import (
	"testing"

	"cca8/internal/engram"
)

func TestBodyMapOverwriteReplacesTags(t *testing.T) {
	bm := NewBodyMap()
	bm.Overwrite("posture", []string{"posture:fallen"}, 1)
	if !bm.HasPosture("fallen") {
		t.Fatalf("expected fallen posture, got %v", bm.Tags("posture"))
	}
	bm.Overwrite("posture", []string{"posture:standing"}, 2)
	if bm.HasPosture("fallen") {
		t.Fatal("expected fallen tag to be gone after overwrite")
	}
	if !bm.HasPosture("standing") {
		t.Fatalf("expected standing posture, got %v", bm.Tags("posture"))
	}
	if bm.LastUpdateStep() != 2 {
		t.Fatalf("expected last update step 2, got %d", bm.LastUpdateStep())
	}
}

func TestBodyMapStaleness(t *testing.T) {
	bm := NewBodyMap()
	bm.Overwrite("posture", []string{"posture:standing"}, 10)
	if bm.IsStale(12, 5) {
		t.Fatal("should not be stale yet")
	}
	if !bm.IsStale(20, 5) {
		t.Fatal("should be stale")
	}
}

func TestMatchSlot(t *testing.T) {
	if got := MatchSlot("posture:fallen"); got != "posture" {
		t.Fatalf("expected posture slot, got %q", got)
	}
	if got := MatchSlot("proximity:mom:close"); got != "mom" {
		t.Fatalf("expected mom slot, got %q", got)
	}
	if got := MatchSlot("unrecognized:thing"); got != "" {
		t.Fatalf("expected no slot match, got %q", got)
	}
}

func TestWorkingMapEntityLifecycle(t *testing.T) {
	wm := NewWorkingMap()
	wm.SetEntityTags("mom", []string{"proximity:mom:close"}, []string{"scent:milk"})
	wm.SetEntityPosition("mom", EntityPosition{X: 1, Y: 2})

	pos, ok := wm.Position("mom")
	if !ok || pos.X != 1 || pos.Y != 2 {
		t.Fatalf("unexpected position %+v ok=%v", pos, ok)
	}
}

func TestMapSurfaceOverwriteByFamily(t *testing.T) {
	wm := NewWorkingMap()
	ms := NewMapSurface(wm)

	ms.WriteSlotFamilies([]string{"hazard:near", "goal:dir:N"})
	tags := ms.SelfTags()
	if !containsStr(tags, "hazard:near") || !containsStr(tags, "goal:dir:N") {
		t.Fatalf("expected hazard/goal tags, got %v", tags)
	}

	ms.WriteSlotFamilies([]string{"terrain:traversable_near"})
	tags = ms.SelfTags()
	if containsStr(tags, "hazard:near") {
		t.Fatalf("expected stale hazard tag removed, got %v", tags)
	}
	if !containsStr(tags, "terrain:traversable_near") {
		t.Fatalf("expected fresh terrain tag, got %v", tags)
	}
}

func TestMapSurfaceRefreshFromGrid(t *testing.T) {
	wm := NewWorkingMap()
	ms := NewMapSurface(wm)

	patch := &engram.NavPatch{
		Width: 3, Height: 3, CellSize: 1.0,
		Cells: []engram.CellCode{
			engram.CellTraversable, engram.CellTraversable, engram.CellTraversable,
			engram.CellTraversable, engram.CellHazard, engram.CellTraversable,
			engram.CellTraversable, engram.CellTraversable, engram.CellTraversable,
		},
	}
	wm.LoadPatches(3, 3, 1.0, 0, 0, []*engram.NavPatch{patch})
	ms.RefreshFromGrid(1, 1, 1)

	tags := ms.SelfTags()
	if !containsStr(tags, "hazard:near") {
		t.Fatalf("expected hazard:near from grid, got %v", tags)
	}
}

func containsStr(xs []string, target string) bool {
	for _, x := range xs {
		if x == target {
			return true
		}
	}
	return false
}
