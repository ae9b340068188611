package atlas

import (
	"testing"

	"github.com/Faultbox/surface-atlas/pkg/math"
)

// twoFaced proposes a 640 unit cube that captures only its X faces,
// giving two 64 texel tiles.
func twoFaced(h Handle, x float32) Proposal {
	p := cube(h, math.Vec3{X: x}, 640, true)
	p.FaceMask = 1<<FacePositiveX | 1<<FaceNegativeX
	return p
}

type tileRect struct{ x, y int }

func rects(obj *Object) map[tileRect]bool {
	out := map[tileRect]bool{}
	for _, t := range obj.Tiles {
		if t != nil {
			out[tileRect{t.X, t.Y}] = true
		}
	}
	return out
}

func TestFullAtlasRecoversAfterEviction(t *testing.T) {
	c := NewCache(128, 10, 60, 0)
	d := NewDirtyTracker()
	p := testPolicy()
	view := math.Vec3{}

	a := p.Apply(c, d, twoFaced(1, 0), view, 1)
	b := p.Apply(c, d, twoFaced(2, 10), view, 1)
	if a == nil || b == nil || a.TileCount() != 2 || b.TileCount() != 2 {
		t.Fatal("expected A and B to fit")
	}
	if got := p.Apply(c, d, twoFaced(3, 20), view, 1); got != nil {
		t.Fatal("expected C to fail on a full atlas")
	}
	if c.Len() != 2 {
		t.Errorf("expected C not to be cached, got %d objects", c.Len())
	}
	c.Sweep(1)
	aRects := rects(a)

	// A leaves the scene.
	p.Apply(c, d, twoFaced(2, 10), view, 2)
	if evicted := c.Sweep(2); evicted != 1 {
		t.Fatalf("expected A evicted, got %d", evicted)
	}

	p.Apply(c, d, twoFaced(2, 10), view, 3)
	got := p.Apply(c, d, twoFaced(3, 20), view, 3)
	if got == nil || got.TileCount() != 2 {
		t.Fatal("expected C to fit after A was evicted")
	}
	for r := range rects(got) {
		if !aRects[r] {
			t.Errorf("expected C to reuse A's space, got tile at %v", r)
		}
	}
}

func TestSweepEvictsObjectsNotSeenThisFrame(t *testing.T) {
	c := NewCache(512, 10, 60, 0)
	d := NewDirtyTracker()
	p := testPolicy()

	for frame := uint64(1); frame <= 5; frame++ {
		p.Apply(c, d, cube(7, math.Vec3{}, 1000, true), math.Vec3{}, frame)
		p.Apply(c, d, cube(8, math.Vec3{X: 50}, 1000, true), math.Vec3{}, frame)
		c.Sweep(frame)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 objects, got %d", c.Len())
	}

	// Object 7 was last seen on frame 5.
	p.Apply(c, d, cube(8, math.Vec3{X: 50}, 1000, true), math.Vec3{}, 6)
	if n := c.Sweep(6); n != 1 {
		t.Errorf("expected 1 eviction, got %d", n)
	}
	if c.Get(7) != nil {
		t.Error("expected object 7 to be evicted")
	}
	if c.Packer().Count() != FaceCount {
		t.Errorf("expected only object 8's tiles to remain, got %d", c.Packer().Count())
	}
	if got := c.Handles(); len(got) != 1 || got[0] != 8 {
		t.Errorf("expected handles [8], got %v", got)
	}
}

func TestNeedsDefragment(t *testing.T) {
	c := NewCache(128, 10, 60, 0)
	if c.allocate(128, 100) == nil {
		t.Fatal("expected first allocation to fill the atlas")
	}
	if c.NeedsDefragment(101) {
		t.Error("expected no defragmentation without a failure")
	}
	if c.allocate(8, 100) != nil {
		t.Fatal("expected allocation on a full atlas to fail")
	}

	if !c.NeedsDefragment(101) || !c.NeedsDefragment(109) {
		t.Error("expected defragmentation within the failure window")
	}
	if c.NeedsDefragment(110) {
		t.Error("expected the failure window to close after 10 frames")
	}

	c.Clear(101)
	if c.Len() != 0 || c.Packer().Count() != 0 {
		t.Error("expected empty cache after clear")
	}
	c.allocate(128, 102)
	c.allocate(128, 102)
	if c.NeedsDefragment(103) {
		t.Error("expected the cooldown to hold after a defragmentation")
	}
	c.allocate(128, 160)
	if !c.NeedsDefragment(162) {
		t.Error("expected defragmentation once the cooldown passes")
	}
}

func TestCacheCounters(t *testing.T) {
	c := NewCache(512, 10, 60, 0)
	p := testPolicy()
	d := NewDirtyTracker()
	p.Apply(c, d, cube(1, math.Vec3{}, 1000, true), math.Vec3{}, 1)
	c.Sweep(2)

	got := c.takeCounters()
	if got.inserted != FaceCount || got.freed != FaceCount || got.evicted != 1 {
		t.Errorf("unexpected counters %+v", got)
	}
	if c.takeCounters() != (cacheCounters{}) {
		t.Error("expected counters reset after take")
	}
}
