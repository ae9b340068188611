package atlas

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/surface-atlas/pkg/math"
)

// Policy decides tile sizes for proposed objects and when their tiles are
// redrawn.
type Policy struct {
	TexelsPerWorldUnit   float32
	DistanceScalingStart float32
	DistanceScalingEnd   float32
	DistanceScaling      float32
	// RefitStep is the size change, in texels, below which a tile is kept.
	RefitStep           int
	RedrawFramesStatic  uint64
	RedrawFramesDynamic uint64
}

// DistanceScale returns the tile scale multiplier for an object at distance.
// It is 1 up to DistanceScalingStart and reaches DistanceScaling at
// DistanceScalingEnd.
func (p Policy) DistanceScale(distance float32) float32 {
	span := p.DistanceScalingEnd - p.DistanceScalingStart
	if span <= 0 {
		if distance >= p.DistanceScalingEnd {
			return p.DistanceScaling
		}
		return 1
	}
	a := math32.Min(math32.Max((distance-p.DistanceScalingStart)/span, 0), 1)
	return 1 + (p.DistanceScaling-1)*a
}

// TileResolution returns the tile edge for one face of a box of world size
// size, or false if the face is too small to capture.
func TileResolution(size math.Vec3, face Face, scale float32) (int, bool) {
	edges := size.Abs().WithAxis(face.Axis(), math32.MaxFloat32)
	texels := edges.MinComponent() * scale
	if !(texels >= MinTileResolution) {
		return 0, false
	}
	r := TileSizeMax
	if texels < TileSizeMax {
		r = max(int(texels), TileSizeMin)
	}
	return r / TileAlign * TileAlign, true
}

// RedrawPeriod returns the forced redraw period for an object.
func (p Policy) RedrawPeriod(static bool) uint64 {
	if static {
		return p.RedrawFramesStatic
	}
	return p.RedrawFramesDynamic
}

// redrawDue reports whether obj's periodic redraw has come up. The period
// is stretched by a per-object offset so objects do not all redraw on the
// same frame.
func (p Policy) redrawDue(obj *Object, frame uint64) bool {
	period := p.RedrawPeriod(obj.Static)
	if period == 0 {
		return false
	}
	return frame-obj.LastFrameDirty >= period+stagger(obj.Handle, period)
}

func stagger(h Handle, period uint64) uint64 {
	// splitmix64 finalizer
	z := uint64(h) + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return z % period
}

// Apply allocates or keeps tiles for one proposal. It returns the object
// if it holds any tile after the call, or nil.
func (p Policy) Apply(c *Cache, dirty *DirtyTracker, prop Proposal, view math.Vec3, frame uint64) *Object {
	box := math.NewOrientedBox(prop.LocalBounds, prop.LocalToWorld)
	size := box.Size()
	scale := p.TexelsPerWorldUnit * p.DistanceScale(prop.Sphere.DistanceToPoint(view))

	obj := c.Get(prop.Handle)
	anyTile, redraw := false, false
	for f := 0; f < FaceCount; f++ {
		face := Face(f)
		if !prop.FaceMask.Has(face) {
			if obj != nil {
				c.release(obj, face)
			}
			continue
		}

		res, ok := TileResolution(size, face, scale)
		if !ok {
			if obj != nil {
				c.release(obj, face)
			}
			continue
		}

		if obj != nil && obj.Tiles[face] != nil {
			if abs(res-obj.Tiles[face].Width) < p.RefitStep {
				anyTile = true
				continue
			}
			c.release(obj, face)
		}

		t := c.allocate(res, frame)
		if t == nil {
			continue
		}
		if obj == nil {
			obj = c.GetOrCreate(prop.Handle)
		}
		obj.Tiles[face] = t
		anyTile, redraw = true, true
	}
	if !anyTile {
		return nil
	}

	obj.Actor = prop.Actor
	obj.Static = prop.Static
	obj.Bounds = box
	obj.Sphere = prop.Sphere
	c.MarkUsed(obj, frame)

	if redraw || obj.invalidated || p.redrawDue(obj, frame) {
		obj.LastFrameDirty = frame
		obj.invalidated = false
		dirty.Mark(obj.Handle)
	}
	return obj
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
