package chunks

import (
	"slices"
	"testing"

	"github.com/Faultbox/surface-atlas/pkg/math"
)

// record builds a packed object of size float4s whose first element carries id.
func record(id float32, size int) []math.Vec4 {
	data := make([]math.Vec4, size)
	data[0] = math.Vec4{id, 0, 0, 0}
	data[1] = math.Uint4(0, 0, 0, uint32(size))
	return data
}

func entry(center math.Vec3, radius float32, id float32) Entry {
	return Entry{
		Bounds: math.Sphere{Center: center, Radius: radius},
		Data:   record(id, 6),
	}
}

func TestGridCoordMatchesBounds(t *testing.T) {
	g := NewGrid(math.Vec3{X: 100, Y: 0, Z: -50}, 400, 40)
	if g.ChunkSize != 10 {
		t.Fatalf("expected chunk size 10, got %f", g.ChunkSize)
	}

	points := []math.Vec3{
		{X: 100, Y: 0, Z: -50},
		{X: -99, Y: 199, Z: 149},
		{X: 255.5, Y: -3, Z: 0},
	}
	for _, p := range points {
		x, y, z, ok := g.Coord(p)
		if !ok {
			t.Errorf("expected %v inside grid", p)
			continue
		}
		b := g.Bounds(x, y, z)
		if p.X < b.Min.X || p.X >= b.Max.X || p.Y < b.Min.Y || p.Y >= b.Max.Y || p.Z < b.Min.Z || p.Z >= b.Max.Z {
			t.Errorf("point %v not inside its chunk %v", p, b)
		}
	}

	if _, _, _, ok := g.Coord(math.Vec3{X: 301, Y: 0, Z: -50}); ok {
		t.Error("expected point beyond half distance to be outside")
	}
}

func TestBuildSingleObject(t *testing.T) {
	ix := New(40)
	g := NewGrid(math.Vec3{}, 400, ix.Resolution())
	stats := ix.Build(g, []Entry{entry(math.Vec3{X: 5, Y: 5, Z: 5}, 1, 7)}, 1024)

	if stats.Chunks != 1 || stats.Pairs != 1 {
		t.Fatalf("expected 1 chunk and 1 pair, got %+v", stats)
	}
	if ix.Counter() != 1+1+6 {
		t.Errorf("expected counter 8, got %d", ix.Counter())
	}
	if got := ix.Address(20, 20, 20); got != 1 {
		t.Errorf("expected first list at address 1, got %d", got)
	}

	count, data := ix.Lookup(math.Vec3{X: 1, Y: 9, Z: 2})
	if count != 1 || len(data) != 6 {
		t.Fatalf("expected one 6-element record, got count=%d len=%d", count, len(data))
	}
	if data[0][0] != 7 {
		t.Errorf("expected record id 7, got %f", data[0][0])
	}

	if count, _ := ix.Lookup(math.Vec3{X: -50, Y: 5, Z: 5}); count != 0 {
		t.Errorf("expected empty chunk, got %d objects", count)
	}
}

func TestBuildStraddlingObject(t *testing.T) {
	ix := New(40)
	stats := ix.Build(NewGrid(math.Vec3{}, 400, 40), []Entry{entry(math.Vec3{X: 10, Y: 5, Z: 5}, 1, 1)}, 1024)
	if stats.Chunks != 2 || stats.Pairs != 2 {
		t.Errorf("expected object on a chunk border in 2 chunks, got %+v", stats)
	}
	if ix.Address(20, 20, 20) == 0 || ix.Address(21, 20, 20) == 0 {
		t.Error("expected both neighbouring chunks populated")
	}
}

func TestBuildOverflowKeepsCounting(t *testing.T) {
	ix := New(40)
	entries := []Entry{
		entry(math.Vec3{X: 5, Y: 5, Z: 5}, 1, 1),
		entry(math.Vec3{X: 55, Y: 5, Z: 5}, 1, 2),
	}
	stats := ix.Build(NewGrid(math.Vec3{}, 400, 40), entries, 8)

	if stats.Overflows != 1 {
		t.Errorf("expected 1 overflow, got %d", stats.Overflows)
	}
	if ix.Counter() != 15 {
		t.Errorf("expected counter to include the dropped list (15), got %d", ix.Counter())
	}
	if ix.Address(25, 20, 20) != 0 {
		t.Error("expected overflowing chunk to read as empty")
	}
	if len(ix.Culled()) > 8 {
		t.Errorf("expected culled buffer within capacity, got %d", len(ix.Culled()))
	}
}

func TestBuildSkipsCounterChunk(t *testing.T) {
	ix := New(40)
	ix.Build(NewGrid(math.Vec3{}, 400, 40), []Entry{entry(math.Vec3{X: -195, Y: -195, Z: -195}, 1, 1)}, 1024)
	if ix.Stats().Pairs != 0 {
		t.Errorf("expected chunk 0 to stay unassigned, got %d pairs", ix.Stats().Pairs)
	}
	if ix.Counter() != 1 {
		t.Errorf("expected empty counter 1, got %d", ix.Counter())
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	entries := []Entry{
		entry(math.Vec3{X: 5, Y: 5, Z: 5}, 30, 1),
		entry(math.Vec3{X: -40, Y: 12, Z: 80}, 25, 2),
		entry(math.Vec3{X: 0, Y: 0, Z: 0}, 50, 3),
	}
	a := New(40)
	b := New(40)
	g := NewGrid(math.Vec3{}, 400, 40)
	a.Build(g, entries, 1<<16)
	b.Build(g, entries, 1<<16)

	if !slices.Equal(a.Chunks(), b.Chunks()) {
		t.Error("expected identical chunk tables")
	}
	if !slices.Equal(a.Culled(), b.Culled()) {
		t.Error("expected identical culled buffers")
	}

	// Rebuilding reuses buffers without leaking the previous frame.
	a.Build(g, entries[:1], 1<<16)
	if a.Stats().Entries != 1 || a.Counter() >= b.Counter() {
		t.Errorf("expected smaller rebuild, got %+v", a.Stats())
	}
}

func TestVisitCountsObjects(t *testing.T) {
	ix := New(40)
	entries := []Entry{
		entry(math.Vec3{X: 5, Y: 5, Z: 5}, 1, 1),
		entry(math.Vec3{X: 6, Y: 6, Z: 6}, 1, 2),
	}
	ix.Build(NewGrid(math.Vec3{}, 400, 40), entries, 1024)

	visited := 0
	ix.Visit(func(x, y, z, count int) {
		visited++
		if x != 20 || y != 20 || z != 20 || count != 2 {
			t.Errorf("unexpected chunk (%d,%d,%d) with %d objects", x, y, z, count)
		}
	})
	if visited != 1 {
		t.Errorf("expected 1 populated chunk, got %d", visited)
	}

	if got := len(ix.ChunkBytes(nil)); got != 40*40*40*4 {
		t.Errorf("expected %d chunk bytes, got %d", 40*40*40*4, got)
	}
}
