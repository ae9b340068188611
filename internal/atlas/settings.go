package atlas

import (
	"errors"
	"fmt"

	"github.com/Faultbox/surface-atlas/internal/capacity"
	"github.com/Faultbox/surface-atlas/internal/chunks"
)

// ErrInvalidSettings is returned by Settings.Validate.
var ErrInvalidSettings = errors.New("atlas: invalid settings")

// Settings configures a Pass.
type Settings struct {
	// Resolution is the requested atlas edge; it is clamped to
	// [MinResolution, device maximum].
	Resolution int
	// Distance is the draw distance for objects and the chunk grid span.
	Distance        float32
	MinObjectRadius float32
	Policy          Policy

	// A failed insertion within DefragFailWindow frames clears the atlas,
	// at most once every DefragCooldown frames.
	DefragFailWindow uint64
	DefragCooldown   uint64

	ChunkResolution int
	Capacity        capacity.Options
}

// DefaultSettings returns the tuning used by the engine's global illumination.
func DefaultSettings() Settings {
	return Settings{
		Resolution:      2048,
		Distance:        20000,
		MinObjectRadius: 20,
		Policy: Policy{
			TexelsPerWorldUnit:   0.1,
			DistanceScalingStart: 2000,
			DistanceScalingEnd:   5000,
			DistanceScaling:      0.2,
			RefitStep:            32,
			RedrawFramesStatic:   120,
			RedrawFramesDynamic:  4,
		},
		DefragFailWindow: 10,
		DefragCooldown:   60,
		ChunkResolution:  chunks.DefaultResolution,
		Capacity:         capacity.DefaultOptions(),
	}
}

// Validate checks the settings for values the pass cannot work with.
func (s Settings) Validate() error {
	switch {
	case s.Resolution <= 0:
		return fmt.Errorf("%w: resolution %d", ErrInvalidSettings, s.Resolution)
	case s.Distance <= 0:
		return fmt.Errorf("%w: distance %g", ErrInvalidSettings, s.Distance)
	case s.MinObjectRadius < 0:
		return fmt.Errorf("%w: min object radius %g", ErrInvalidSettings, s.MinObjectRadius)
	case s.Policy.TexelsPerWorldUnit <= 0:
		return fmt.Errorf("%w: texels per world unit %g", ErrInvalidSettings, s.Policy.TexelsPerWorldUnit)
	case s.Policy.DistanceScaling <= 0 || s.Policy.DistanceScaling > 1:
		return fmt.Errorf("%w: distance scaling %g not in (0, 1]", ErrInvalidSettings, s.Policy.DistanceScaling)
	case s.Policy.DistanceScalingEnd < s.Policy.DistanceScalingStart:
		return fmt.Errorf("%w: distance scaling end %g before start %g",
			ErrInvalidSettings, s.Policy.DistanceScalingEnd, s.Policy.DistanceScalingStart)
	case s.Policy.RefitStep < 0:
		return fmt.Errorf("%w: refit step %d", ErrInvalidSettings, s.Policy.RefitStep)
	case s.ChunkResolution <= 0 || s.ChunkResolution%chunks.GroupSize != 0:
		return fmt.Errorf("%w: chunk resolution %d must be a positive multiple of %d",
			ErrInvalidSettings, s.ChunkResolution, chunks.GroupSize)
	}
	return nil
}
