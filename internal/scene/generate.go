package scene

import (
	"fmt"
	"math/rand/v2"

	"github.com/Faultbox/surface-atlas/pkg/math"
)

// GenerateConfig describes a synthetic scene of boxes scattered over a
// square ground area.
type GenerateConfig struct {
	Count int
	// Extent is the half-size of the ground square.
	Extent      float32
	MinSize     float32
	MaxSize     float32
	StaticRatio float64
	MaxSpin     float32
	Seed        uint64
}

// DefaultGenerateConfig returns a city-block sized scene.
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		Count:       500,
		Extent:      8000,
		MinSize:     100,
		MaxSize:     1200,
		StaticRatio: 0.8,
		MaxSpin:     0.5,
		Seed:        1,
	}
}

// Generate builds a scene from cfg. The same config always yields the same scene.
func Generate(cfg GenerateConfig) *Scene {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5851f42d4c957f2d))
	s := New()

	span := cfg.MaxSize - cfg.MinSize
	for i := 0; i < cfg.Count; i++ {
		w := cfg.MinSize + rng.Float32()*span
		h := cfg.MinSize + rng.Float32()*span
		d := cfg.MinSize + rng.Float32()*span
		ext := math.Vec3{X: w / 2, Y: h / 2, Z: d / 2}

		a := &Actor{
			Name: fmt.Sprintf("box-%d", i),
			Position: math.Vec3{
				X: (rng.Float32()*2 - 1) * cfg.Extent,
				Y: ext.Y,
				Z: (rng.Float32()*2 - 1) * cfg.Extent,
			},
			Rotation:  math.QuatFromAxisAngle(math.Vec3Up, rng.Float32()*6.2831855),
			Scale:     math.Splat(1),
			Local:     math.AABB{Min: ext.Neg(), Max: ext},
			Static:    rng.Float64() < cfg.StaticRatio,
			LayerMask: 1,
		}
		if !a.Static {
			a.Spin = (rng.Float32()*2 - 1) * cfg.MaxSpin
		}
		s.Add(a)
	}
	return s
}
