// Package debug provides debug visualization utilities for the surface atlas.
package debug

import (
	"github.com/Faultbox/surface-atlas/internal/atlas"
	"github.com/Faultbox/surface-atlas/internal/chunks"
	"github.com/Faultbox/surface-atlas/pkg/math"
)

// ChunkDrawDistance limits chunk outlines to chunks near the viewer.
const ChunkDrawDistance = 2000

// BoxVertexCount is the number of line vertices per box (12 edges × 2).
const BoxVertexCount = 24

// Vertex is a colored line endpoint.
type Vertex struct {
	X, Y, Z float32
	R, G, B float32
}

// Color is an RGB triple in [0, 1].
type Color [3]float32

var (
	ChunkColor   = Color{0.2, 0.8, 0.3}
	StaticColor  = Color{0.3, 0.5, 1.0}
	DynamicColor = Color{1.0, 0.6, 0.1}
)

// boxEdges indexes the 8 corners produced by corner(i): bit 0 is X, bit 1
// is Y and bit 2 is Z.
var boxEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7}, // X edges
	{0, 2}, {1, 3}, {4, 6}, {5, 7}, // Y edges
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // Z edges
}

func corner(i int, lo, hi math.Vec3) math.Vec3 {
	c := lo
	if i&1 != 0 {
		c.X = hi.X
	}
	if i&2 != 0 {
		c.Y = hi.Y
	}
	if i&4 != 0 {
		c.Z = hi.Z
	}
	return c
}

// AppendBoxLines appends the 12 edges of the box spanned by corners.
func AppendBoxLines(dst []Vertex, corners [8]math.Vec3, color Color) []Vertex {
	for _, e := range boxEdges {
		a, b := corners[e[0]], corners[e[1]]
		dst = append(dst,
			Vertex{a.X, a.Y, a.Z, color[0], color[1], color[2]},
			Vertex{b.X, b.Y, b.Z, color[0], color[1], color[2]},
		)
	}
	return dst
}

// AABBCorners returns the corners of an axis-aligned box, optionally padded.
func AABBCorners(b math.AABB, padding float32) [8]math.Vec3 {
	lo := b.Min.Sub(math.Splat(padding))
	hi := b.Max.Add(math.Splat(padding))
	var out [8]math.Vec3
	for i := range out {
		out[i] = corner(i, lo, hi)
	}
	return out
}

// OrientedCorners returns the world-space corners of an oriented box.
func OrientedCorners(o math.OrientedBox) [8]math.Vec3 {
	var out [8]math.Vec3
	for i := range out {
		out[i] = o.LocalToWorld(corner(i, o.Extents.Neg(), o.Extents))
	}
	return out
}

// ChunkLines outlines populated chunks within ChunkDrawDistance of viewer.
// Brighter chunks reference more objects.
func ChunkLines(ix *chunks.Index, viewer math.Vec3) []Vertex {
	grid := ix.Grid()
	var out []Vertex
	ix.Visit(func(x, y, z, count int) {
		b := grid.Bounds(x, y, z)
		if b.Center().Distance(viewer) > ChunkDrawDistance {
			return
		}
		k := min(float32(count)/8, 1)
		c := Color{ChunkColor[0] * (0.4 + 0.6*k), ChunkColor[1] * (0.4 + 0.6*k), ChunkColor[2] * (0.4 + 0.6*k)}
		out = AppendBoxLines(out, AABBCorners(b, 0), c)
	})
	return out
}

// ObjectLines outlines the box of every cached object.
func ObjectLines(c *atlas.Cache) []Vertex {
	out := make([]Vertex, 0, c.Len()*BoxVertexCount)
	for _, h := range c.Handles() {
		obj := c.Get(h)
		color := DynamicColor
		if obj.Static {
			color = StaticColor
		}
		out = AppendBoxLines(out, OrientedCorners(obj.Bounds), color)
	}
	return out
}
