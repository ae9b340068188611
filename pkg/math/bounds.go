package math

import "github.com/chewxy/math32"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max Vec3
}

// NewAABB returns the box spanning center ± extents.
func NewAABB(center, extents Vec3) AABB {
	return AABB{Min: center.Sub(extents), Max: center.Add(extents)}
}

// Size returns the box dimensions.
func (b AABB) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the box midpoint.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// IntersectsSphere reports whether the box and sphere overlap.
func (b AABB) IntersectsSphere(s Sphere) bool {
	closest := s.Center.Max(b.Min).Min(b.Max)
	return closest.Sub(s.Center).LengthSquared() <= s.Radius*s.Radius
}

// Sphere is a bounding sphere.
type Sphere struct {
	Center Vec3
	Radius float32
}

// DistanceToPoint returns the distance from p to the sphere surface, or 0
// when p is inside.
func (s Sphere) DistanceToPoint(p Vec3) float32 {
	return math32.Max(s.Center.Distance(p)-s.Radius, 0)
}

// Bounds returns the sphere's enclosing box.
func (s Sphere) Bounds() AABB {
	return NewAABB(s.Center, Splat(s.Radius))
}

// OrientedBox is a box with local half-size Extents placed in the world by
// Transform (translation, rotation and scale).
type OrientedBox struct {
	Extents   Vec3
	Transform Mat4
}

// NewOrientedBox places the local-space box local with localToWorld.
func NewOrientedBox(local AABB, localToWorld Mat4) OrientedBox {
	c := local.Center()
	return OrientedBox{
		Extents:   local.Size().Scale(0.5),
		Transform: localToWorld.Mul(Translate(c.X, c.Y, c.Z)),
	}
}

// Center returns the world-space centre.
func (o OrientedBox) Center() Vec3 {
	return Vec3{o.Transform[12], o.Transform[13], o.Transform[14]}
}

// LocalToWorld transforms a box-local point into world space.
func (o OrientedBox) LocalToWorld(p Vec3) Vec3 {
	return o.Transform.TransformVec3(p)
}

// LocalToWorldVector transforms a box-local direction into world space.
func (o OrientedBox) LocalToWorldVector(v Vec3) Vec3 {
	return o.Transform.TransformDirection(v)
}

// WorldToLocal returns the inverse placement matrix.
func (o OrientedBox) WorldToLocal() Mat4 {
	return o.Transform.Inverse()
}

// Transformed returns the box moved by m (applied after the current placement).
func (o OrientedBox) Transformed(m Mat4) OrientedBox {
	return OrientedBox{Extents: o.Extents, Transform: m.Mul(o.Transform)}
}

// Size returns the world-space edge lengths along the box's own axes,
// including any scale in the placement.
func (o OrientedBox) Size() Vec3 {
	return Vec3{
		2 * o.Extents.X * o.Transform.Column(0).Length(),
		2 * o.Extents.Y * o.Transform.Column(1).Length(),
		2 * o.Extents.Z * o.Transform.Column(2).Length(),
	}
}
