// Package bench drives the surface atlas headless over a generated scene,
// recording per-frame statistics.
package bench

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/surface-atlas/internal/atlas"
	"github.com/Faultbox/surface-atlas/internal/config"
	"github.com/Faultbox/surface-atlas/internal/debug"
	"github.com/Faultbox/surface-atlas/internal/gpu/memdev"
	"github.com/Faultbox/surface-atlas/internal/history"
	"github.com/Faultbox/surface-atlas/internal/observer"
	"github.com/Faultbox/surface-atlas/internal/scene"
	"github.com/Faultbox/surface-atlas/internal/trace"
	"github.com/Faultbox/surface-atlas/pkg/math"
)

// MoveInterval is how often, in frames, one static actor is relocated to
// exercise invalidation.
const MoveInterval = 120

// Report summarizes a finished run.
type Report struct {
	trace.Summary
	Draws       int           `json:"draws"`
	TexelsDrawn int64         `json:"texels_drawn"`
	Moves       int           `json:"static_moves"`
	Elapsed     time.Duration `json:"elapsed"`
	Textures    int           `json:"textures"`
	Buffers     int           `json:"buffers"`
	MemoryBytes int64         `json:"memory_bytes"`
	// RunID is the history row, zero when no history is kept.
	RunID int64 `json:"run_id,omitempty"`
}

// countingRenderer stands in for a GPU rasterizer and counts the work.
type countingRenderer struct {
	draws  int
	texels int64
}

func (r *countingRenderer) ClearAtlas()              {}
func (r *countingRenderer) ClearTiles([]*atlas.Tile) {}
func (r *countingRenderer) DrawTile(_ *atlas.Object, _ atlas.Face, t *atlas.Tile) {
	vp := atlas.TileViewport(t)
	r.draws++
	r.texels += int64(vp.Width * vp.Height)
}

// Runner owns one headless session.
type Runner struct {
	cfg *config.Config
	log *zap.Logger

	dev      *memdev.Device
	clock    *atlas.FrameCounter
	pass     *atlas.Pass
	scene    *scene.Scene
	camera   *scene.OrbitCamera
	renderer countingRenderer

	trace *trace.Writer
	hub   *observer.Hub

	report Report
}

// New builds the scene, device and pass described by cfg.
func New(cfg *config.Config, log *zap.Logger) (*Runner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:   cfg,
		log:   log,
		clock: &atlas.FrameCounter{},
		dev: memdev.New(memdev.Options{
			MaxTextureSize: cfg.Device.MaxTextureSize,
			Latency:        cfg.Device.ReadbackLatency,
		}),
		scene:  scene.Generate(cfg.GenerateConfig()),
		camera: scene.NewOrbitCamera(),
	}
	r.camera.Distance = cfg.Scene.Extent * 0.5

	pass, err := atlas.NewPass(r.dev, r.clock, cfg.AtlasSettings(), log.Named("atlas"))
	if err != nil {
		return nil, err
	}
	r.pass = pass
	r.scene.OnStaticChanged = func(id uint64) {
		r.pass.Invalidate(atlas.Handle(id))
	}

	if cfg.Trace.Path != "" {
		w, err := trace.Create(cfg.Trace.Path)
		if err != nil {
			pass.Release()
			return nil, fmt.Errorf("opening trace: %w", err)
		}
		r.trace = w
	}
	if cfg.Observer.Addr != "" {
		r.hub = observer.NewHub(log.Named("observer"))
	}

	log.Info("bench ready",
		zap.Int("actors", r.scene.Len()),
		zap.Int("resolution", cfg.Atlas.Resolution),
		zap.Int("frames", cfg.Bench.Frames),
	)
	return r, nil
}

// Pass exposes the atlas pass.
func (r *Runner) Pass() *atlas.Pass { return r.pass }

// Scene exposes the simulated scene.
func (r *Runner) Scene() *scene.Scene { return r.scene }

// Step simulates and renders one frame.
func (r *Runner) Step() (atlas.FrameStats, error) {
	frame := r.clock.Advance()
	dt := float32(r.cfg.Bench.FrameTime.Seconds())

	r.scene.Update(dt)
	r.camera.Advance(dt)
	if frame%MoveInterval == 0 {
		r.moveStatic(frame)
	}

	view := atlas.View{Position: r.camera.Position(), LayerMask: ^uint32(0)}
	res, err := r.pass.Render(view, r.scene, &r.renderer)
	if err != nil {
		return atlas.FrameStats{}, err
	}
	r.dev.EndFrame()

	stats := res.Stats
	r.report.Add(stats)
	if stats.Rebuilt || stats.Defragmented {
		r.log.Debug("atlas reset",
			zap.Uint64("frame", frame),
			zap.Bool("rebuilt", stats.Rebuilt),
			zap.Bool("defragmented", stats.Defragmented),
		)
	}

	if r.trace != nil {
		if err := r.trace.Write(stats); err != nil {
			return stats, fmt.Errorf("writing trace: %w", err)
		}
	}
	if r.hub != nil {
		if err := r.hub.Publish(stats); err != nil {
			r.log.Warn("publishing frame", zap.Error(err))
		}
	}
	return stats, nil
}

// moveStatic nudges one static actor so its tiles must be redrawn.
func (r *Runner) moveStatic(frame uint64) {
	actors := r.scene.Actors()
	if len(actors) == 0 {
		return
	}
	start := int(frame/MoveInterval) % len(actors)
	for i := range actors {
		a := actors[(start+i)%len(actors)]
		if a.Static {
			r.scene.Move(a.ID, a.Position.Add(math.Vec3{X: 10}))
			r.report.Moves++
			return
		}
	}
}

// Run steps through the configured number of frames or until ctx is done.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	serveErr := make(chan error, 1)
	if r.hub != nil {
		go func() { serveErr <- r.hub.Serve(ctx, r.cfg.Observer.Addr) }()
	}

	start := time.Now()
	var runErr error
	for i := 0; i < r.cfg.Bench.Frames; i++ {
		if err := ctx.Err(); err != nil {
			r.log.Info("bench interrupted", zap.Int("frames", i))
			break
		}
		if _, err := r.Step(); err != nil {
			runErr = err
			break
		}
		select {
		case err := <-serveErr:
			if err != nil {
				r.log.Warn("observer stopped", zap.Error(err))
			}
		default:
		}
	}
	r.report.Elapsed = time.Since(start)

	if path := r.cfg.Bench.OccupancyImage; path != "" && runErr == nil {
		if err := debug.SavePNG(path, debug.Downscale(debug.OccupancyImage(r.pass.Cache()), r.cfg.Bench.OccupancyImageSize)); err != nil {
			runErr = fmt.Errorf("writing occupancy image: %w", err)
		} else {
			r.log.Info("occupancy image written", zap.String("path", path))
		}
	}

	report := r.Report()
	if path := r.cfg.Bench.History; path != "" && runErr == nil {
		// Recorded even when interrupted.
		id, err := r.record(context.WithoutCancel(ctx), path, report)
		if err != nil {
			runErr = fmt.Errorf("recording history: %w", err)
		}
		report.RunID = id
		r.report.RunID = id
	}

	r.log.Info("bench finished",
		zap.Int("frames", report.Frames),
		zap.Duration("elapsed", report.Elapsed),
		zap.Float64("mean_occupancy", report.MeanOccupancy),
		zap.Int("defragments", report.Defragments),
		zap.Int("insert_failures", report.InsertFailures),
		zap.Int("draws", report.Draws),
		zap.Int("peak_capacity_bytes", report.PeakCapacity),
	)
	return report, runErr
}

// record appends the report to the history and logs how it compares with
// the previous run at the same resolution.
func (r *Runner) record(ctx context.Context, path string, rep Report) (int64, error) {
	db, err := history.Open(path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	run := history.Run{
		Resolution: r.cfg.Atlas.Resolution,
		Distance:   r.cfg.Atlas.Distance,
		Objects:    r.scene.Len(),
		Seed:       r.cfg.Scene.Seed,
		Elapsed:    rep.Elapsed,
		Summary:    rep.Summary,
	}
	id, err := db.Record(ctx, run)
	if err != nil {
		return 0, err
	}

	base, ok, err := db.Baseline(ctx, run.Resolution, id)
	if err != nil {
		return id, err
	}
	if ok {
		r.log.Info("compared with previous run",
			zap.Int64("run", id),
			zap.Int64("baseline", base.ID),
			zap.Float64("mean_occupancy_delta", rep.MeanOccupancy-base.Summary.MeanOccupancy),
			zap.Int("defragments_delta", rep.Defragments-base.Summary.Defragments),
			zap.Int("insert_failures_delta", rep.InsertFailures-base.Summary.InsertFailures),
		)
	}
	return id, nil
}

// Report returns the statistics gathered so far.
func (r *Runner) Report() Report {
	rep := r.report
	rep.Draws = r.renderer.draws
	rep.TexelsDrawn = r.renderer.texels
	rep.Textures, rep.Buffers, rep.MemoryBytes = r.dev.Stats()
	return rep
}

// Close releases the pass and flushes the trace.
func (r *Runner) Close() error {
	r.pass.Release()
	if r.trace != nil {
		return r.trace.Close()
	}
	return nil
}
