package atlas

import (
	"iter"

	"github.com/Faultbox/surface-atlas/pkg/math"
)

// Handle identifies a scene object across frames.
type Handle uint64

// Object is a cache entry: the tiles an object owns plus the state that
// decides when they are redrawn.
type Object struct {
	Handle Handle
	// Actor is the scene's back-reference, passed through to the face renderer.
	Actor  any
	Static bool

	Tiles [FaceCount]*Tile

	LastFrameUsed  uint64
	LastFrameDirty uint64

	Bounds math.OrientedBox
	Sphere math.Sphere

	// Address is the object record's float4 address in this frame's object buffer.
	Address uint32

	invalidated bool
}

// TileCount returns the number of faces holding a tile.
func (o *Object) TileCount() int {
	n := 0
	for _, t := range o.Tiles {
		if t != nil {
			n++
		}
	}
	return n
}

// Proposal is a scene object offered to the atlas for one frame.
type Proposal struct {
	Handle       Handle
	Actor        any
	Static       bool
	LocalBounds  math.AABB
	LocalToWorld math.Mat4
	Sphere       math.Sphere
	LayerMask    uint32
	FaceMask     FaceMask
}

// Query carries the filters a scene applies when proposing objects.
type Query struct {
	ViewPosition math.Vec3
	Distance     float32
	MinRadius    float32
	LayerMask    uint32
}

// Accepts reports whether p passes the layer, size and distance filters.
func (q Query) Accepts(p Proposal) bool {
	return q.LayerMask&p.LayerMask != 0 &&
		p.Sphere.Radius >= q.MinRadius &&
		p.Sphere.DistanceToPoint(q.ViewPosition) < q.Distance
}

// Scene yields the objects to consider this frame. Implementations may
// pre-filter with q; the atlas filters again.
type Scene interface {
	Proposals(q Query) iter.Seq[Proposal]
}
