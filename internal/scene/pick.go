package scene

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/surface-atlas/pkg/math"
)

// Ray is a half-line with a normalized direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3
}

// ScreenToRay converts pixel coordinates to a world-space ray.
// invViewProj is the inverse of the view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj math.Mat4) Ray {
	ndcX := 2*screenX/viewportW - 1
	ndcY := 1 - 2*screenY/viewportH // screen Y grows downwards

	near := unproject(invViewProj, math.Vec4{ndcX, ndcY, -1, 1})
	far := unproject(invViewProj, math.Vec4{ndcX, ndcY, 1, 1})
	return Ray{Origin: near, Direction: far.Sub(near).Normalize()}
}

func unproject(m math.Mat4, v math.Vec4) math.Vec3 {
	w := m.MulVec4(v)
	if w[3] != 0 {
		return math.Vec3{X: w[0] / w[3], Y: w[1] / w[3], Z: w[2] / w[3]}
	}
	return math.Vec3{X: w[0], Y: w[1], Z: w[2]}
}

// IntersectAABB runs the slab test. It returns the entry distance, or the
// exit distance when the ray starts inside the box.
func (r Ray) IntersectAABB(box math.AABB) (float32, bool) {
	tmin := float32(-math32.MaxFloat32)
	tmax := float32(math32.MaxFloat32)

	for axis := 0; axis < 3; axis++ {
		o, d := r.Origin.Axis(axis), r.Direction.Axis(axis)
		lo, hi := box.Min.Axis(axis), box.Max.Axis(axis)
		if d == 0 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		t1, t2 := (lo-o)/d, (hi-o)/d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math32.Max(tmin, t1)
		tmax = math32.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}

	if tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// Pick returns the nearest actor whose box the ray hits, or nil.
func (s *Scene) Pick(r Ray) *Actor {
	var best *Actor
	bestT := float32(math32.MaxFloat32)
	for _, a := range s.actors {
		inv := a.LocalToWorld().Inverse()
		local := Ray{
			Origin:    inv.TransformVec3(r.Origin),
			Direction: inv.TransformDirection(r.Direction),
		}
		// Distances stay comparable because the local direction is not renormalized.
		t, ok := local.IntersectAABB(a.Local)
		if ok && t < bestT {
			best, bestT = a, t
		}
	}
	return best
}
