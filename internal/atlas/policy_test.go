package atlas

import (
	"testing"

	"github.com/Faultbox/surface-atlas/pkg/math"
)

func TestDistanceScale(t *testing.T) {
	p := testPolicy()
	tests := []struct {
		distance float32
		want     float32
	}{
		{0, 1},
		{2000, 1},
		{3500, 0.6},
		{5000, 0.2},
		{12000, 0.2},
	}
	for _, tt := range tests {
		got := p.DistanceScale(tt.distance)
		if d := got - tt.want; d > 1e-5 || d < -1e-5 {
			t.Errorf("DistanceScale(%g): expected %g, got %g", tt.distance, tt.want, got)
		}
	}
}

func TestTileResolution(t *testing.T) {
	tests := []struct {
		name  string
		size  math.Vec3
		face  Face
		scale float32
		want  int
		ok    bool
	}{
		{"clamped to minimum", math.Splat(100), FacePositiveX, 0.1, 8, true},
		{"below capture threshold", math.Splat(30), FacePositiveX, 0.1, 0, false},
		{"rounded down", math.Splat(1000), FacePositiveZ, 0.1, 96, true},
		{"rounded down odd", math.Splat(1039), FacePositiveZ, 0.1, 96, true},
		{"clamped to maximum", math.Splat(5000), FaceNegativeY, 0.1, 192, true},
		{"face axis ignored", math.Vec3{X: 10, Y: 1000, Z: 1000}, FacePositiveX, 0.1, 96, true},
		{"thin side skipped", math.Vec3{X: 10, Y: 1000, Z: 1000}, FacePositiveY, 0.1, 0, false},
		{"distance scaled", math.Splat(1000), FacePositiveX, 0.02, 16, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TileResolution(tt.size, tt.face, tt.scale)
			if ok != tt.ok || got != tt.want {
				t.Errorf("expected (%d, %v), got (%d, %v)", tt.want, tt.ok, got, ok)
			}
		})
	}
}

func TestTileResolutionAlwaysAligned(t *testing.T) {
	for s := float32(40); s < 4000; s += 7.3 {
		for f := Face(0); f < FaceCount; f++ {
			r, ok := TileResolution(math.Vec3{X: s, Y: s * 1.7, Z: s * 0.6}, f, 0.1)
			if !ok {
				continue
			}
			if r%TileAlign != 0 || r < TileSizeMin || r > TileSizeMax {
				t.Fatalf("size %g face %s: resolution %d not aligned within [%d,%d]",
					s, f, r, TileSizeMin, TileSizeMax)
			}
		}
	}
}

func TestApplyReusesWithinRefitStep(t *testing.T) {
	c := NewCache(1024, 10, 60, 0)
	d := NewDirtyTracker()
	p := testPolicy()

	obj := p.Apply(c, d, cube(1, math.Vec3{}, 1000, true), math.Vec3{}, 1)
	if obj == nil {
		t.Fatal("expected object to get tiles")
	}
	if obj.TileCount() != FaceCount {
		t.Fatalf("expected %d tiles, got %d", FaceCount, obj.TileCount())
	}
	if !d.Has(1) {
		t.Error("expected new object to be dirty")
	}
	before := obj.Tiles

	// 1100 units asks for 104 texels against 96 held: inside the refit step.
	d.Reset()
	obj = p.Apply(c, d, cube(1, math.Vec3{}, 1100, true), math.Vec3{}, 2)
	if obj.Tiles != before {
		t.Error("expected tiles to be kept within the refit step")
	}
	if d.Has(1) {
		t.Error("expected kept tiles not to be redrawn")
	}

	// 1500 units asks for 144 texels: reallocate and redraw.
	d.Reset()
	obj = p.Apply(c, d, cube(1, math.Vec3{}, 1500, true), math.Vec3{}, 3)
	for f, tile := range obj.Tiles {
		if tile == before[f] || tile.Width != 144 {
			t.Errorf("face %s: expected a new 144 tile, got %d", Face(f), tile.Width)
		}
	}
	if !d.Has(1) {
		t.Error("expected resized object to be dirty")
	}
	if c.Packer().Count() != FaceCount {
		t.Errorf("expected old tiles freed, packer holds %d", c.Packer().Count())
	}
}

func TestApplyFaceMaskAndThinFaces(t *testing.T) {
	c := NewCache(1024, 10, 60, 0)
	d := NewDirtyTracker()
	p := testPolicy()

	prop := cube(1, math.Vec3{}, 1000, true)
	prop.FaceMask = 1<<FacePositiveX | 1<<FaceNegativeX
	if obj := p.Apply(c, d, prop, math.Vec3{}, 1); obj.TileCount() != 2 {
		t.Errorf("expected 2 masked tiles, got %d", obj.TileCount())
	}

	thin := cube(2, math.Vec3{}, 1000, true)
	thin.LocalBounds = math.AABB{Min: math.Vec3{X: -500, Y: -500, Z: -5}, Max: math.Vec3{X: 500, Y: 500, Z: 5}}
	obj := p.Apply(c, d, thin, math.Vec3{}, 1)
	if obj == nil {
		t.Fatal("expected the broad faces to be captured")
	}
	for f, tile := range obj.Tiles {
		want := Face(f).Axis() == 2
		if (tile != nil) != want {
			t.Errorf("face %s: expected tile=%v", Face(f), want)
		}
	}
}

func TestApplyNarrowedMaskFreesTiles(t *testing.T) {
	c := NewCache(1024, 10, 60, 0)
	d := NewDirtyTracker()
	p := testPolicy()

	prop := cube(1, math.Vec3{}, 1000, true)
	p.Apply(c, d, prop, math.Vec3{}, 1)

	prop.FaceMask = 1 << FacePositiveZ
	obj := p.Apply(c, d, prop, math.Vec3{}, 2)
	if obj.TileCount() != 1 {
		t.Errorf("expected 1 tile, got %d", obj.TileCount())
	}
	if obj.Tiles[FacePositiveZ] == nil {
		t.Error("expected the masked face to keep its tile")
	}
	if c.Packer().Count() != 1 {
		t.Errorf("expected unmasked tiles freed, packer holds %d", c.Packer().Count())
	}
}

func TestApplyTooSmallReturnsNil(t *testing.T) {
	c := NewCache(256, 10, 60, 0)
	d := NewDirtyTracker()
	if obj := testPolicy().Apply(c, d, cube(1, math.Vec3{}, 30, false), math.Vec3{}, 1); obj != nil {
		t.Error("expected no tiles for an object below the capture threshold")
	}
	if c.Len() != 0 {
		t.Errorf("expected no cache entry, got %d", c.Len())
	}
}

func TestPeriodicRedrawIsStaggered(t *testing.T) {
	c := NewCache(1024, 10, 60, 0)
	d := NewDirtyTracker()
	p := testPolicy()
	prop := cube(42, math.Vec3{}, 1000, false)

	p.Apply(c, d, prop, math.Vec3{}, 10)
	want := 10 + p.RedrawFramesDynamic + stagger(42, p.RedrawFramesDynamic)

	var got uint64
	for frame := uint64(11); frame < 30 && got == 0; frame++ {
		d.Reset()
		p.Apply(c, d, prop, math.Vec3{}, frame)
		if d.Has(42) {
			got = frame
		}
	}
	if got != want {
		t.Errorf("expected periodic redraw at frame %d, got %d", want, got)
	}
	if got-10 < p.RedrawFramesDynamic || got-10 >= 2*p.RedrawFramesDynamic {
		t.Errorf("redraw after %d frames outside [%d, %d)", got-10, p.RedrawFramesDynamic, 2*p.RedrawFramesDynamic)
	}
}

func TestDirtyTrackerDedupes(t *testing.T) {
	d := NewDirtyTracker()
	d.Mark(3)
	d.Mark(1)
	d.Mark(3)
	if d.Len() != 2 {
		t.Fatalf("expected 2 marks, got %d", d.Len())
	}
	got := d.Drain()
	if len(got) != 2 || got[0] != 3 || got[1] != 1 {
		t.Errorf("expected [3 1], got %v", got)
	}
	if d.Len() != 0 || d.Has(3) {
		t.Error("expected empty tracker after drain")
	}
}
