package atlas

import (
	"iter"
	"slices"
	"testing"

	"github.com/Faultbox/surface-atlas/internal/gpu/memdev"
	"github.com/Faultbox/surface-atlas/pkg/math"
)

type sliceScene []Proposal

func (s sliceScene) Proposals(Query) iter.Seq[Proposal] {
	return slices.Values(s)
}

// cube proposes an axis-aligned cube of edge size centred on center.
func cube(h Handle, center math.Vec3, size float32, static bool) Proposal {
	ext := math.Splat(size / 2)
	return Proposal{
		Handle:       h,
		Static:       static,
		LocalBounds:  math.AABB{Min: ext.Neg(), Max: ext},
		LocalToWorld: math.Translate(center.X, center.Y, center.Z),
		Sphere:       math.Sphere{Center: center, Radius: ext.Length()},
		LayerMask:    1,
	}
}

func testPolicy() Policy {
	return DefaultSettings().Policy
}

type drawCall struct {
	handle Handle
	face   Face
	tile   *Tile
}

type recorder struct {
	fullClears   int
	clearedTiles int
	draws        []drawCall
}

func (r *recorder) ClearAtlas()              { r.fullClears++ }
func (r *recorder) ClearTiles(tiles []*Tile) { r.clearedTiles += len(tiles) }
func (r *recorder) DrawTile(obj *Object, face Face, tile *Tile) {
	r.draws = append(r.draws, drawCall{obj.Handle, face, tile})
}

func (r *recorder) reset() { *r = recorder{} }

var allLayers = View{LayerMask: ^uint32(0)}

func newTestPass(t *testing.T, settings Settings, latency int) (*Pass, *FrameCounter, *memdev.Device) {
	t.Helper()
	dev := memdev.New(memdev.Options{Latency: latency})
	clock := &FrameCounter{}
	p, err := NewPass(dev, clock, settings, nil)
	if err != nil {
		t.Fatalf("NewPass: %v", err)
	}
	return p, clock, dev
}

func smallSettings() Settings {
	s := DefaultSettings()
	s.Resolution = 512
	return s
}
