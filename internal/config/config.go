// Package config handles surface atlas tool configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/surface-atlas/internal/atlas"
	"github.com/Faultbox/surface-atlas/internal/capacity"
	"github.com/Faultbox/surface-atlas/internal/scene"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid")

// Config holds all tool settings.
type Config struct {
	Atlas    AtlasConfig    `yaml:"atlas"`
	Chunks   ChunksConfig   `yaml:"chunks"`
	Capacity CapacityConfig `yaml:"capacity"`
	Device   DeviceConfig   `yaml:"device"`
	Scene    SceneConfig    `yaml:"scene"`
	Bench    BenchConfig    `yaml:"bench"`
	Window   WindowConfig   `yaml:"window"`
	Trace    TraceConfig    `yaml:"trace"`
	Observer ObserverConfig `yaml:"observer"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AtlasConfig holds allocation and redraw tuning.
type AtlasConfig struct {
	Resolution           int     `yaml:"resolution"`
	Distance             float32 `yaml:"distance"`
	MinObjectRadius      float32 `yaml:"min_object_radius"`
	TexelsPerWorldUnit   float32 `yaml:"texels_per_world_unit"`
	DistanceScalingStart float32 `yaml:"distance_scaling_start"`
	DistanceScalingEnd   float32 `yaml:"distance_scaling_end"`
	DistanceScaling      float32 `yaml:"distance_scaling"`
	RefitStep            int     `yaml:"refit_step"`
	RedrawFramesStatic   uint64  `yaml:"redraw_frames_static"`
	RedrawFramesDynamic  uint64  `yaml:"redraw_frames_dynamic"`
	DefragFailWindow     uint64  `yaml:"defrag_fail_window"`
	DefragCooldown       uint64  `yaml:"defrag_cooldown"`
}

// ChunksConfig holds the spatial grid settings.
type ChunksConfig struct {
	Resolution int `yaml:"resolution"`
}

// CapacityConfig holds the readback ring settings.
type CapacityConfig struct {
	Slots         int     `yaml:"slots"`
	Latency       uint64  `yaml:"latency"`
	Timeout       uint64  `yaml:"timeout"`
	FallbackScale float32 `yaml:"fallback_scale"`
}

// DeviceConfig configures the in-memory device used by headless runs.
type DeviceConfig struct {
	MaxTextureSize  int `yaml:"max_texture_size"`
	ReadbackLatency int `yaml:"readback_latency"`
}

// SceneConfig describes the generated test scene.
type SceneConfig struct {
	Count       int     `yaml:"count"`
	Extent      float32 `yaml:"extent"`
	MinSize     float32 `yaml:"min_size"`
	MaxSize     float32 `yaml:"max_size"`
	StaticRatio float64 `yaml:"static_ratio"`
	MaxSpin     float32 `yaml:"max_spin"`
	Seed        uint64  `yaml:"seed"`
}

// BenchConfig holds headless run settings.
type BenchConfig struct {
	Frames    int           `yaml:"frames"`
	FrameTime time.Duration `yaml:"frame_time"`
	// OccupancyImage is written after the run when non-empty.
	OccupancyImage string `yaml:"occupancy_image"`
	// OccupancyImageSize caps the image edge. Zero keeps the atlas resolution.
	OccupancyImageSize int `yaml:"occupancy_image_size"`
	// History is a SQLite file that finished runs are appended to.
	History string `yaml:"history"`
}

// WindowConfig holds viewer display settings.
type WindowConfig struct {
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	VSync  bool `yaml:"vsync"`
}

// TraceConfig controls the compressed frame stats log.
type TraceConfig struct {
	Path string `yaml:"path"` // empty disables tracing
}

// ObserverConfig controls the websocket stats feed.
type ObserverConfig struct {
	Addr string `yaml:"addr"` // empty disables the feed
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	as := atlas.DefaultSettings()
	gen := scene.DefaultGenerateConfig()
	return &Config{
		Atlas: AtlasConfig{
			Resolution:           as.Resolution,
			Distance:             as.Distance,
			MinObjectRadius:      as.MinObjectRadius,
			TexelsPerWorldUnit:   as.Policy.TexelsPerWorldUnit,
			DistanceScalingStart: as.Policy.DistanceScalingStart,
			DistanceScalingEnd:   as.Policy.DistanceScalingEnd,
			DistanceScaling:      as.Policy.DistanceScaling,
			RefitStep:            as.Policy.RefitStep,
			RedrawFramesStatic:   as.Policy.RedrawFramesStatic,
			RedrawFramesDynamic:  as.Policy.RedrawFramesDynamic,
			DefragFailWindow:     as.DefragFailWindow,
			DefragCooldown:       as.DefragCooldown,
		},
		Chunks: ChunksConfig{
			Resolution: as.ChunkResolution,
		},
		Capacity: CapacityConfig{
			Slots:         as.Capacity.Slots,
			Latency:       as.Capacity.Latency,
			Timeout:       as.Capacity.Timeout,
			FallbackScale: as.Capacity.FallbackScale,
		},
		Device: DeviceConfig{
			MaxTextureSize:  16384,
			ReadbackLatency: 2,
		},
		Scene: SceneConfig{
			Count:       gen.Count,
			Extent:      gen.Extent,
			MinSize:     gen.MinSize,
			MaxSize:     gen.MaxSize,
			StaticRatio: gen.StaticRatio,
			MaxSpin:     gen.MaxSpin,
			Seed:        gen.Seed,
		},
		Bench: BenchConfig{
			Frames:             600,
			FrameTime:          16 * time.Millisecond,
			OccupancyImageSize: 1024,
		},
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// AtlasSettings converts the atlas, chunk and capacity sections into
// settings for atlas.NewPass.
func (c *Config) AtlasSettings() atlas.Settings {
	a := c.Atlas
	return atlas.Settings{
		Resolution:      a.Resolution,
		Distance:        a.Distance,
		MinObjectRadius: a.MinObjectRadius,
		Policy: atlas.Policy{
			TexelsPerWorldUnit:   a.TexelsPerWorldUnit,
			DistanceScalingStart: a.DistanceScalingStart,
			DistanceScalingEnd:   a.DistanceScalingEnd,
			DistanceScaling:      a.DistanceScaling,
			RefitStep:            a.RefitStep,
			RedrawFramesStatic:   a.RedrawFramesStatic,
			RedrawFramesDynamic:  a.RedrawFramesDynamic,
		},
		DefragFailWindow: a.DefragFailWindow,
		DefragCooldown:   a.DefragCooldown,
		ChunkResolution:  c.Chunks.Resolution,
		Capacity: capacity.Options{
			Slots:         c.Capacity.Slots,
			Latency:       c.Capacity.Latency,
			Timeout:       c.Capacity.Timeout,
			FallbackScale: c.Capacity.FallbackScale,
		},
	}
}

// GenerateConfig converts the scene section for scene.Generate.
func (c *Config) GenerateConfig() scene.GenerateConfig {
	s := c.Scene
	return scene.GenerateConfig{
		Count:       s.Count,
		Extent:      s.Extent,
		MinSize:     s.MinSize,
		MaxSize:     s.MaxSize,
		StaticRatio: s.StaticRatio,
		MaxSpin:     s.MaxSpin,
		Seed:        s.Seed,
	}
}

// Validate reports the first setting the tools cannot run with.
func (c *Config) Validate() error {
	if err := c.AtlasSettings().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch {
	case c.Capacity.Slots <= 0:
		return fmt.Errorf("%w: capacity slots %d", ErrInvalid, c.Capacity.Slots)
	case c.Device.MaxTextureSize < atlas.MinResolution:
		return fmt.Errorf("%w: max texture size %d below %d", ErrInvalid, c.Device.MaxTextureSize, atlas.MinResolution)
	case c.Device.ReadbackLatency < 0:
		return fmt.Errorf("%w: readback latency %d", ErrInvalid, c.Device.ReadbackLatency)
	case c.Scene.Count < 0:
		return fmt.Errorf("%w: scene count %d", ErrInvalid, c.Scene.Count)
	case c.Scene.MinSize <= 0 || c.Scene.MaxSize < c.Scene.MinSize:
		return fmt.Errorf("%w: scene sizes [%g, %g]", ErrInvalid, c.Scene.MinSize, c.Scene.MaxSize)
	case c.Scene.StaticRatio < 0 || c.Scene.StaticRatio > 1:
		return fmt.Errorf("%w: static ratio %g", ErrInvalid, c.Scene.StaticRatio)
	case c.Bench.Frames <= 0:
		return fmt.Errorf("%w: bench frames %d", ErrInvalid, c.Bench.Frames)
	case c.Bench.OccupancyImageSize < 0:
		return fmt.Errorf("%w: occupancy image size %d", ErrInvalid, c.Bench.OccupancyImageSize)
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	}
	return nil
}
