// Package scene holds the actors offered to the surface atlas and a
// synthetic scene generator for tools and benchmarks.
package scene

import (
	"github.com/Faultbox/surface-atlas/internal/atlas"
	"github.com/Faultbox/surface-atlas/pkg/math"
)

// Actor is a box-shaped scene object.
type Actor struct {
	ID       uint64
	Name     string
	Position math.Vec3
	Rotation math.Quat
	Scale    math.Vec3
	// Local is the actor's bounding box before placement.
	Local     math.AABB
	Static    bool
	LayerMask uint32
	FaceMask  atlas.FaceMask

	// Spin is the yaw rate of dynamic actors in radians per second.
	Spin float32
}

// LocalToWorld returns the actor placement matrix.
func (a *Actor) LocalToWorld() math.Mat4 {
	return math.Compose(a.Position, a.Rotation, a.Scale)
}

// Sphere returns the world-space bounding sphere.
func (a *Actor) Sphere() math.Sphere {
	box := math.NewOrientedBox(a.Local, a.LocalToWorld())
	return math.Sphere{
		Center: box.Center(),
		Radius: box.Size().Scale(0.5).Length(),
	}
}

// Proposal converts the actor for the atlas.
func (a *Actor) Proposal() atlas.Proposal {
	return atlas.Proposal{
		Handle:       atlas.Handle(a.ID),
		Actor:        a,
		Static:       a.Static,
		LocalBounds:  a.Local,
		LocalToWorld: a.LocalToWorld(),
		Sphere:       a.Sphere(),
		LayerMask:    a.LayerMask,
		FaceMask:     a.FaceMask,
	}
}
