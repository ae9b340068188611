package math

import (
	"testing"
)

func TestAABBIntersectsSphere(t *testing.T) {
	box := AABB{Min: Vec3{0, 0, 0}, Max: Vec3{10, 10, 10}}
	tests := []struct {
		name   string
		sphere Sphere
		want   bool
	}{
		{"inside", Sphere{Vec3{5, 5, 5}, 1}, true},
		{"touching face", Sphere{Vec3{12, 5, 5}, 2}, true},
		{"near corner outside", Sphere{Vec3{12, 12, 12}, 3}, false},
		{"near corner overlapping", Sphere{Vec3{11, 11, 11}, 2}, true},
		{"far away", Sphere{Vec3{50, 5, 5}, 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := box.IntersectsSphere(tt.sphere); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSphereDistanceToPoint(t *testing.T) {
	s := Sphere{Center: Vec3{0, 0, 0}, Radius: 5}
	if got := s.DistanceToPoint(Vec3{0, 0, 2}); got != 0 {
		t.Errorf("inside point should be 0, got %v", got)
	}
	if got := s.DistanceToPoint(Vec3{0, 12, 0}); got != 7 {
		t.Errorf("expected 7, got %v", got)
	}
}

func TestOrientedBox(t *testing.T) {
	local := AABB{Min: Vec3{-1, 0, -1}, Max: Vec3{1, 4, 1}}
	world := Compose(Vec3{10, 0, 0}, QuatIdentity(), Vec3{2, 2, 2})
	obb := NewOrientedBox(local, world)

	if obb.Extents != (Vec3{1, 2, 1}) {
		t.Errorf("expected extents (1,2,1), got %v", obb.Extents)
	}
	// Local centre (0,2,0) scaled by 2 and moved by +10 on X
	if c := obb.Center(); c != (Vec3{10, 4, 0}) {
		t.Errorf("expected centre (10,4,0), got %v", c)
	}
	top := obb.LocalToWorld(Vec3{0, obb.Extents.Y, 0})
	if top != (Vec3{10, 8, 0}) {
		t.Errorf("expected top face centre (10,8,0), got %v", top)
	}
	back := obb.WorldToLocal().TransformVec3(top)
	if back.Distance(Vec3{0, 2, 0}) > 1e-4 {
		t.Errorf("world to local round trip: got %v", back)
	}
}

func TestOrientedBoxSize(t *testing.T) {
	local := AABB{Min: Vec3{-1, -2, -3}, Max: Vec3{1, 2, 3}}
	rot := QuatFromAxisAngle(Vec3Up, 0.7)
	obb := NewOrientedBox(local, Compose(Vec3{5, 0, 0}, rot, Vec3{2, 1, 0.5}))

	got := obb.Size()
	want := Vec3{4, 4, 3}
	if abs(got.X-want.X) > 1e-4 || abs(got.Y-want.Y) > 1e-4 || abs(got.Z-want.Z) > 1e-4 {
		t.Errorf("expected size %v, got %v", want, got)
	}
}
