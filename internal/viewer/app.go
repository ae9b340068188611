package viewer

import (
	"fmt"
	"image"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/surface-atlas/internal/atlas"
	"github.com/Faultbox/surface-atlas/internal/config"
	"github.com/Faultbox/surface-atlas/internal/debug"
	"github.com/Faultbox/surface-atlas/internal/gpu/gldev"
	"github.com/Faultbox/surface-atlas/internal/observer"
	"github.com/Faultbox/surface-atlas/internal/scene"
	"github.com/Faultbox/surface-atlas/pkg/math"
)

// App is the interactive atlas viewer.
type App struct {
	cfg *config.Config
	log *zap.Logger

	window  *Window
	input   *Input
	dev     *gldev.Device
	clock   *atlas.FrameCounter
	pass    *atlas.Pass
	tiles   *TileRenderer
	preview *Preview
	scene   *scene.Scene
	camera  *scene.OrbitCamera
	hub     *observer.Hub

	showChunks bool
	showBoxes  bool
	showAtlas  bool
	paused     bool
}

// NewApp opens the window and creates every GL resource.
func NewApp(cfg *config.Config, log *zap.Logger, hub *observer.Hub) (*App, error) {
	win, err := NewWindow(WindowConfig{
		Title:  "Surface Atlas",
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
		VSync:  cfg.Window.VSync,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		log:       log,
		window:    win,
		input:     NewInput(),
		clock:     &atlas.FrameCounter{},
		scene:     scene.Generate(cfg.GenerateConfig()),
		camera:    scene.NewOrbitCamera(),
		hub:       hub,
		showBoxes: true,
		showAtlas: true,
	}

	if a.dev, err = gldev.New(); err != nil {
		a.Close()
		return nil, err
	}
	if a.pass, err = atlas.NewPass(a.dev, a.clock, cfg.AtlasSettings(), log.Named("atlas")); err != nil {
		a.Close()
		return nil, err
	}
	if a.tiles, err = NewTileRenderer(a.pass, log.Named("tiles")); err != nil {
		a.Close()
		return nil, err
	}
	if a.preview, err = NewPreview(); err != nil {
		a.Close()
		return nil, err
	}

	a.scene.OnStaticChanged = func(id uint64) {
		a.pass.Invalidate(atlas.Handle(id))
	}
	return a, nil
}

// Run loops until the window is closed.
func (a *App) Run() error {
	last := time.Now()
	for {
		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now

		act := a.input.Poll()
		if act.Quit {
			return nil
		}
		a.apply(act)

		if !a.paused {
			a.scene.Update(dt)
			a.camera.Advance(dt)
		}

		a.clock.Advance()
		view := atlas.View{Position: a.camera.Position(), LayerMask: ^uint32(0)}
		res, err := a.pass.Render(view, a.scene, a.tiles)
		if err != nil {
			return fmt.Errorf("rendering atlas: %w", err)
		}
		if a.hub != nil {
			_ = a.hub.Publish(res.Stats)
		}

		a.draw(res)
		a.window.SwapBuffers()
		a.window.SetTitle(fmt.Sprintf("Surface Atlas  %d objects  %.0f%% used  %d dirty",
			res.Stats.Objects, res.Stats.Occupancy*100, res.Stats.Dirty))
	}
}

func (a *App) apply(act Actions) {
	a.camera.HandleDrag(act.DragX, act.DragY)
	if act.Zoom != 0 {
		a.camera.HandleZoom(act.Zoom)
	}
	if act.Forward != 0 || act.Right != 0 {
		a.camera.HandleMovement(act.Forward, act.Right)
	}
	a.showChunks = a.showChunks != act.ToggleChunks
	a.showBoxes = a.showBoxes != act.ToggleBoxes
	a.showAtlas = a.showAtlas != act.ToggleAtlas
	a.paused = a.paused != act.TogglePause

	if act.InvalidateAll {
		for _, h := range a.pass.Cache().Handles() {
			a.pass.Invalidate(h)
		}
	}
	if act.Pick {
		a.pick(act.PickX, act.PickY)
	}
	if act.Resolution != 0 {
		a.log.Info("changing atlas resolution", zap.Int("resolution", act.Resolution))
		a.pass.SetResolution(act.Resolution)
	}
	if act.Snapshot {
		a.snapshot()
	}
}

// snapshot writes the occupancy map and the rendered base color next to each other.
func (a *App) snapshot() {
	stamp := time.Now().Format("2006-01-02_15-04-05")
	images := map[string]*image.RGBA{
		"atlas_occupancy_" + stamp + ".png": debug.OccupancyImage(a.pass.Cache()),
	}
	if img, err := a.tiles.Snapshot(); err != nil {
		a.log.Warn("reading atlas", zap.Error(err))
	} else {
		images["atlas_color_"+stamp+".png"] = img
	}
	for path, img := range images {
		if err := debug.SavePNG(path, img); err != nil {
			a.log.Warn("saving snapshot", zap.String("path", path), zap.Error(err))
			continue
		}
		a.log.Info("snapshot saved", zap.String("path", path))
	}
}

// pick invalidates the actor under the cursor.
func (a *App) pick(x, y float32) {
	w, h := a.window.PointSize()
	ray := scene.ScreenToRay(x, y, float32(w), float32(h), a.viewProj(w, h).Inverse())
	actor := a.scene.Pick(ray)
	if actor == nil {
		return
	}
	a.pass.Invalidate(atlas.Handle(actor.ID))
	a.log.Debug("picked actor", zap.Uint64("id", actor.ID), zap.Bool("static", actor.Static))
}

func (a *App) viewProj(w, h int) math.Mat4 {
	aspect := float32(w) / math32.Max(float32(h), 1)
	return math.Perspective(math32.Pi/3, aspect, 10, a.cfg.Atlas.Distance*2).Mul(a.camera.ViewMatrix())
}

func (a *App) draw(res atlas.Result) {
	w, h := a.window.Size()
	gl.Viewport(0, 0, int32(w), int32(h))
	gl.ClearColor(0.08, 0.08, 0.1, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	viewProj := a.viewProj(w, h)

	var lines []debug.Vertex
	if a.showBoxes {
		lines = append(lines, debug.ObjectLines(a.pass.Cache())...)
	}
	if a.showChunks {
		lines = append(lines, debug.ChunkLines(a.pass.Index(), a.camera.Position())...)
	}
	a.preview.DrawLines(lines, viewProj)

	if a.showAtlas {
		if tex, ok := res.Textures.GBuffer0.(*gldev.Texture); ok {
			size := min(w, h) / 3
			a.preview.DrawAtlas(tex, w-size-8, 8, size)
		}
	}
}

// Close releases resources in reverse creation order.
func (a *App) Close() {
	if a.preview != nil {
		a.preview.Release()
	}
	if a.tiles != nil {
		a.tiles.Release()
	}
	if a.pass != nil {
		a.pass.Release()
	}
	if a.window != nil {
		a.window.Close()
	}
}
