package atlas

// Layout constants shared with the atlas sampling shaders.
const (
	// TilePadding texels are left empty on the right and top of every tile.
	TilePadding = 1
	// TileSizeMin and TileSizeMax bound a tile edge in texels.
	TileSizeMin = 8
	TileSizeMax = 192
	// TileAlign is the granularity tile edges are rounded down to.
	TileAlign = 8
	// MinTileResolution drops faces whose unclamped size is below it.
	MinTileResolution = 4
	// TileProjPlaneOffset pushes the tile near and far planes apart so the
	// closest triangles are not clipped.
	TileProjPlaneOffset = 0.1

	// ObjectDataStride is the size of an object record in float4 elements.
	ObjectDataStride = 6
	// TileDataStride is the size of a tile record in float4 elements.
	TileDataStride = 5

	// MinResolution is the smallest atlas edge in texels.
	MinResolution = 256
	// FaceCount is the number of box faces an object can capture.
	FaceCount = 6
)

// A padded minimum tile must keep at least one usable texel.
const _ = uint(TileSizeMin - TilePadding - 1)

// Tile size bounds must be aligned so rounding down never leaves the range.
const (
	_ = uint(-(TileSizeMin % TileAlign))
	_ = uint(-(TileSizeMax % TileAlign))
)

// Tile offsets are packed as uint16 values inside the object record.
const _ = uint16(ObjectDataStride + FaceCount*TileDataStride)
