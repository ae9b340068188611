package atlas

import (
	"github.com/Faultbox/surface-atlas/pkg/math"
)

// objectBuffer packs object and tile records for the sampling shaders.
//
// Object record (ObjectDataStride float4s):
//
//	[0] bounding sphere center, radius
//	[1] xyz: tile offsets as uint16 pairs, w: record size incl. tiles
//	[2..4] world-to-local rows
//	[5] box extents
//
// Tile record (TileDataStride float4s):
//
//	[0] atlas rectangle minus padding, in UV units
//	[1..3] view matrix rows
//	[4] view bounds size
type objectBuffer struct {
	data []math.Vec4
}

func (b *objectBuffer) reset() {
	b.data = b.data[:0]
}

func (b *objectBuffer) len() int { return len(b.data) }

// write appends obj and its tiles, assigning record addresses and tile
// views. It returns the object's records.
func (b *objectBuffer) write(obj *Object, invResolution float32) []math.Vec4 {
	start := len(b.data)
	obj.Address = uint32(start)

	var offsets [FaceCount]uint32
	size := uint32(ObjectDataStride)
	for f, t := range obj.Tiles {
		if t == nil {
			continue
		}
		offsets[f] = size
		t.Value.ObjectAddressOffset = size
		t.Value.Address = obj.Address + size
		size += TileDataStride
	}

	worldToLocal := obj.Bounds.WorldToLocal()
	s := obj.Sphere
	b.data = append(b.data,
		math.Vec4{s.Center.X, s.Center.Y, s.Center.Z, s.Radius},
		math.Uint4(
			offsets[0]|offsets[1]<<16,
			offsets[2]|offsets[3]<<16,
			offsets[4]|offsets[5]<<16,
			size,
		),
		worldToLocal.Row(0),
		worldToLocal.Row(1),
		worldToLocal.Row(2),
		math.Vec4{obj.Bounds.Extents.X, obj.Bounds.Extents.Y, obj.Bounds.Extents.Z, 0},
	)

	for f, t := range obj.Tiles {
		if t == nil {
			continue
		}
		setupTileView(obj, Face(f), t)
		v := t.Value
		b.data = append(b.data,
			math.Vec4{
				float32(t.X) * invResolution,
				float32(t.Y) * invResolution,
				float32(t.Width-TilePadding) * invResolution,
				float32(t.Height-TilePadding) * invResolution,
			},
			v.ViewMatrix.Row(0),
			v.ViewMatrix.Row(1),
			v.ViewMatrix.Row(2),
			math.Vec4{v.ViewBoundsSize.X, v.ViewBoundsSize.Y, v.ViewBoundsSize.Z, 0},
		)
	}
	return b.data[start:]
}

// bytes encodes the buffer for upload.
func (b *objectBuffer) bytes(dst []byte) []byte {
	return math.AppendVec4Bytes(dst, b.data)
}

// TileOffset decodes the tile record offset for face from an object record,
// 0 when the face has no tile.
func TileOffset(record []math.Vec4, face Face) uint32 {
	packed := record[1].Uint(int(face) / 2)
	if face&1 == 1 {
		return packed >> 16
	}
	return packed & 0xffff
}
