package scene

import (
	"iter"
	"slices"

	"github.com/Faultbox/surface-atlas/internal/atlas"
	"github.com/Faultbox/surface-atlas/pkg/math"
)

// Scene is a flat list of actors.
type Scene struct {
	actors []*Actor
	byID   map[uint64]*Actor
	nextID uint64

	// OnStaticChanged is called when a static actor is modified, so cached
	// surfaces can be invalidated.
	OnStaticChanged func(id uint64)
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{byID: make(map[uint64]*Actor), nextID: 1}
}

// Add inserts a. A zero ID is replaced with a fresh one.
func (s *Scene) Add(a *Actor) *Actor {
	if a.ID == 0 {
		a.ID = s.nextID
	}
	if a.ID >= s.nextID {
		s.nextID = a.ID + 1
	}
	if a.Scale == (math.Vec3{}) {
		a.Scale = math.Splat(1)
	}
	if a.Rotation == (math.Quat{}) {
		a.Rotation = math.QuatIdentity()
	}
	if old, ok := s.byID[a.ID]; ok {
		s.actors = slices.DeleteFunc(s.actors, func(x *Actor) bool { return x == old })
	}
	s.byID[a.ID] = a
	s.actors = append(s.actors, a)
	return a
}

// Remove deletes the actor with id.
func (s *Scene) Remove(id uint64) bool {
	a, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	s.actors = slices.DeleteFunc(s.actors, func(x *Actor) bool { return x == a })
	return true
}

// Get returns the actor with id, or nil.
func (s *Scene) Get(id uint64) *Actor { return s.byID[id] }

// Len returns the number of actors.
func (s *Scene) Len() int { return len(s.actors) }

// Actors returns the actors in insertion order.
func (s *Scene) Actors() []*Actor { return s.actors }

// Move places actor id at pos. Moving a static actor fires OnStaticChanged.
func (s *Scene) Move(id uint64, pos math.Vec3) {
	a, ok := s.byID[id]
	if !ok {
		return
	}
	a.Position = pos
	if a.Static && s.OnStaticChanged != nil {
		s.OnStaticChanged(id)
	}
}

// Update advances dynamic actors by dt seconds.
func (s *Scene) Update(dt float32) {
	for _, a := range s.actors {
		if a.Static || a.Spin == 0 {
			continue
		}
		a.Rotation = math.QuatFromAxisAngle(math.Vec3Up, a.Spin*dt).Mul(a.Rotation).Normalize()
	}
}

// Proposals yields the actors passing q in insertion order.
func (s *Scene) Proposals(q atlas.Query) iter.Seq[atlas.Proposal] {
	return func(yield func(atlas.Proposal) bool) {
		for _, a := range s.actors {
			p := a.Proposal()
			if !q.Accepts(p) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}
