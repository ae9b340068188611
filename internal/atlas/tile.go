package atlas

import (
	"fmt"

	"github.com/Faultbox/surface-atlas/internal/rectpack"
	"github.com/Faultbox/surface-atlas/pkg/math"
)

// Face identifies one of the six box faces. The capture camera for a face
// sits on that side of the box and looks towards its centre.
type Face int

const (
	FacePositiveX Face = iota
	FaceNegativeX
	FacePositiveY
	FaceNegativeY
	FacePositiveZ
	FaceNegativeZ
)

var faceNames = [FaceCount]string{"+X", "-X", "+Y", "-Y", "+Z", "-Z"}

func (f Face) String() string {
	if f < 0 || int(f) >= FaceCount {
		return fmt.Sprintf("Face(%d)", int(f))
	}
	return faceNames[f]
}

// Axis returns the box axis the face is perpendicular to.
func (f Face) Axis() int {
	return int(f) / 2
}

// Direction returns the local-space view direction of the face camera.
func (f Face) Direction() math.Vec3 {
	s := float32(-1)
	if f&1 == 1 {
		s = 1
	}
	return math.Vec3{}.WithAxis(f.Axis(), s)
}

// Up returns the local-space up vector of the face camera.
func (f Face) Up() math.Vec3 {
	if f.Axis() == 1 {
		return math.Vec3Right
	}
	return math.Vec3Up
}

// FaceMask selects faces; bit i enables Face(i). Zero means all faces.
type FaceMask uint8

// AllFaces enables every face.
const AllFaces FaceMask = 1<<FaceCount - 1

// Has reports whether f is enabled.
func (m FaceMask) Has(f Face) bool {
	return m == 0 || m&(1<<f) != 0
}

// TileData is the payload carried by every allocated atlas tile.
type TileData struct {
	Face Face
	// Address is the tile record's float4 address in the object buffer.
	Address uint32
	// ObjectAddressOffset is the tile record's offset from its object record.
	ObjectAddressOffset uint32

	ViewPosition   math.Vec3
	ViewDirection  math.Vec3
	ViewBoundsSize math.Vec3
	ViewMatrix     math.Mat4
}

// Tile is an allocated atlas rectangle.
type Tile = rectpack.Node[TileData]

// Viewport is the drawable area of a tile: the tile minus its padding.
type Viewport struct {
	X, Y          int
	Width, Height int
}

// TileViewport returns the drawable area of t.
func TileViewport(t *Tile) Viewport {
	return Viewport{X: t.X, Y: t.Y, Width: t.Width - TilePadding, Height: t.Height - TilePadding}
}

// TileProjection returns the orthographic projection used to draw t.
func TileProjection(t *Tile) math.Mat4 {
	size := t.Value.ViewBoundsSize
	return math.OrthoCentered(size.X, size.Y, -TileProjPlaneOffset, size.Z+2*TileProjPlaneOffset)
}

// setupTileView places the face camera on the object's box and fits the
// view volume around it.
func setupTileView(obj *Object, face Face, t *Tile) {
	box := obj.Bounds
	z := face.Direction()
	y := face.Up()
	x := y.Cross(z)

	localPos := z.Neg().Mul(box.Extents)
	pos := box.LocalToWorld(localPos)
	xw := box.LocalToWorldVector(x).Normalize()
	yw := box.LocalToWorldVector(y).Normalize()
	zw := box.LocalToWorldVector(z).Normalize()

	view := math.ViewFromBasis(xw, yw, zw, pos)
	viewBox := box.Transformed(view)
	extent := viewBox.LocalToWorldVector(box.Extents).Abs()

	t.Value.Face = face
	t.Value.ViewPosition = pos
	t.Value.ViewDirection = zw
	t.Value.ViewMatrix = view
	t.Value.ViewBoundsSize = extent.Scale(2)
}
