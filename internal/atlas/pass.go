package atlas

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/surface-atlas/internal/capacity"
	"github.com/Faultbox/surface-atlas/internal/chunks"
	"github.com/Faultbox/surface-atlas/internal/gpu"
	"github.com/Faultbox/surface-atlas/pkg/math"
)

// FrameClock supplies the current frame number.
type FrameClock interface {
	Frame() uint64
}

// FrameCounter is a FrameClock advanced by its owner.
type FrameCounter struct {
	frame uint64
}

func (c *FrameCounter) Frame() uint64 { return c.frame }

// Advance moves to the next frame and returns it.
func (c *FrameCounter) Advance() uint64 {
	c.frame++
	return c.frame
}

// FaceRenderer draws object faces into the atlas.
type FaceRenderer interface {
	// ClearAtlas clears every atlas texture.
	ClearAtlas()
	// ClearTiles clears the given tiles before they are redrawn.
	ClearTiles(tiles []*Tile)
	// DrawTile rasterizes one face of obj into tile.
	// Use TileViewport and TileProjection for the target rectangle and camera.
	DrawTile(obj *Object, face Face, tile *Tile)
}

// View is the per-frame camera input.
type View struct {
	Position  math.Vec3
	LayerMask uint32
}

// Textures are the atlas render targets.
type Textures struct {
	Depth    gpu.Texture
	Emissive gpu.Texture
	GBuffer0 gpu.Texture
	GBuffer1 gpu.Texture
	GBuffer2 gpu.Texture
	Lighting gpu.Texture
}

// All returns the textures in creation order.
func (t Textures) All() []gpu.Texture {
	return []gpu.Texture{t.Depth, t.Emissive, t.GBuffer0, t.GBuffer1, t.GBuffer2, t.Lighting}
}

var textureLayout = []struct {
	name   string
	format gpu.Format
	slot   func(*Textures) *gpu.Texture
}{
	{"GlobalSurfaceAtlas.Depth", gpu.FormatDepth16, func(t *Textures) *gpu.Texture { return &t.Depth }},
	{"GlobalSurfaceAtlas.Emissive", gpu.FormatR11G11B10F, func(t *Textures) *gpu.Texture { return &t.Emissive }},
	{"GlobalSurfaceAtlas.GBuffer0", gpu.FormatRGBA8, func(t *Textures) *gpu.Texture { return &t.GBuffer0 }},
	{"GlobalSurfaceAtlas.GBuffer1", gpu.FormatRGB10A2, func(t *Textures) *gpu.Texture { return &t.GBuffer1 }},
	{"GlobalSurfaceAtlas.GBuffer2", gpu.FormatRGBA8, func(t *Textures) *gpu.Texture { return &t.GBuffer2 }},
	{"GlobalSurfaceAtlas.Lighting", gpu.FormatR11G11B10F, func(t *Textures) *gpu.Texture { return &t.Lighting }},
}

// Constants are what a sampler needs to map a world position to a chunk.
type Constants struct {
	ViewPosition math.Vec3
	ChunkSize    float32
	Resolution   float32
	ObjectsCount int
}

// Result is the published output of one frame. It must be treated as
// read-only; the next Render replaces it.
type Result struct {
	Textures      Textures
	Objects       gpu.Buffer
	Chunks        gpu.Buffer
	CulledObjects gpu.Buffer
	Constants     Constants
	// NotReady is set while the culled-objects capacity is still a guess
	// and some chunk lists may be missing.
	NotReady bool
	Stats    FrameStats
}

// Pass owns the atlas and rebuilds its bookkeeping once per frame.
// It is driven from a single goroutine.
type Pass struct {
	dev      gpu.Device
	clock    FrameClock
	settings Settings
	log      *zap.Logger

	cache     *Cache
	dirty     *DirtyTracker
	objects   objectBuffer
	entries   []chunks.Entry
	index     *chunks.Index
	estimator *capacity.Estimator

	resolution int
	textures   Textures
	objectsBuf gpu.Buffer
	chunksBuf  gpu.Buffer
	culledBuf  gpu.Buffer
	scratch    []byte
	tiles      []*Tile

	rendered  bool
	lastFrame uint64
	result    Result
}

// NewPass creates a pass. Resources are created on the first Render.
// A nil logger disables logging.
func NewPass(dev gpu.Device, clock FrameClock, settings Settings, log *zap.Logger) (*Pass, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pass{
		dev:       dev,
		clock:     clock,
		settings:  settings,
		log:       log,
		cache:     NewCache(MinResolution, settings.DefragFailWindow, settings.DefragCooldown, clock.Frame()),
		dirty:     NewDirtyTracker(),
		index:     chunks.New(settings.ChunkResolution),
		estimator: capacity.New(dev, settings.Capacity),
	}, nil
}

// Settings returns the active settings.
func (p *Pass) Settings() Settings { return p.settings }

// SetResolution requests a new atlas resolution, applied on the next Render.
func (p *Pass) SetResolution(resolution int) {
	if resolution > 0 {
		p.settings.Resolution = resolution
	}
}

// Textures returns the current atlas render targets. They change only
// when the atlas is rebuilt, which happens before any face is drawn.
func (p *Pass) Textures() Textures { return p.textures }

// Cache exposes the object cache for inspection.
func (p *Pass) Cache() *Cache { return p.cache }

// Index exposes the chunk index of the last frame.
func (p *Pass) Index() *chunks.Index { return p.index }

// Result returns the last published result.
func (p *Pass) Result() (Result, bool) { return p.result, p.rendered }

// Invalidate forces the object's tiles to be redrawn the next time it is
// proposed. Unknown handles are ignored.
func (p *Pass) Invalidate(h Handle) {
	if obj := p.cache.Get(h); obj != nil {
		obj.invalidated = true
	}
}

func (p *Pass) targetResolution() int {
	r := max(p.settings.Resolution, MinResolution)
	if limit := p.dev.MaxTextureSize(); limit > 0 {
		r = min(r, limit)
	}
	return r
}

// Render updates the atlas for the current frame and publishes the result.
// Calling it again within the same frame returns the published result.
// r may be nil when nothing needs to be drawn, for example in tools that
// only inspect allocation.
func (p *Pass) Render(view View, scene Scene, r FaceRenderer) (Result, error) {
	frame := p.clock.Frame()
	if p.rendered && p.lastFrame == frame {
		return p.result, nil
	}
	stats := FrameStats{Frame: frame}
	issued, dropped := p.estimator.Stats()

	resolution := p.targetResolution()
	if resolution != p.resolution {
		if err := p.rebuild(resolution, frame); err != nil {
			return Result{}, err
		}
		stats.Rebuilt = true
	} else if p.cache.NeedsDefragment(frame) {
		p.log.Debug("defragmenting surface atlas",
			zap.Uint64("frame", frame),
			zap.Int("objects", p.cache.Len()),
			zap.Float64("occupancy", p.cache.Packer().Occupancy()),
		)
		p.cache.Clear(frame)
		p.estimator.Reset()
		stats.Defragmented = true
	}
	stats.Resolution = resolution

	p.collect(view, scene, frame, &stats)
	stats.Evicted = p.cache.Sweep(frame)
	stats.Dirty = p.redraw(r, stats.Rebuilt || stats.Defragmented)

	if err := p.uploadObjects(); err != nil {
		return Result{}, err
	}
	stats.ObjectFloat4s = p.objects.len()

	notReady := false
	if p.cache.Len() != 0 {
		est := p.estimator.Update(frame, p.chunksBuf, p.objects.len()*capacity.Float4Bytes)
		if err := p.ensureBuffer(&p.culledBuf, "GlobalSurfaceAtlas.CulledObjects", est.Bytes); err != nil {
			return Result{}, err
		}
		grid := chunks.NewGrid(view.Position, p.settings.Distance, p.index.Resolution())
		cs := p.index.Build(grid, p.entries, p.culledBuf.Desc().Size/capacity.Float4Bytes)
		if err := p.uploadChunks(); err != nil {
			return Result{}, err
		}
		if cs.Overflows > 0 {
			p.log.Debug("culled objects buffer overflow",
				zap.Uint64("frame", frame),
				zap.Int("overflows", cs.Overflows),
				zap.Uint32("needed", cs.Counter),
				zap.Int("capacity_bytes", p.culledBuf.Desc().Size),
			)
		}
		notReady = est.NotReady
		stats.Chunks = cs.Chunks
		stats.ChunkPairs = cs.Pairs
		stats.ChunkCounter = cs.Counter
		stats.ChunkOverflows = cs.Overflows
		stats.CapacityBytes = p.culledBuf.Desc().Size
	}

	counters := p.cache.takeCounters()
	stats.Inserted = counters.inserted
	stats.Freed = counters.freed
	stats.InsertFailures = counters.failed
	stats.Objects = p.cache.Len()
	stats.Tiles = p.cache.Packer().Count()
	stats.Occupancy = p.cache.Packer().Occupancy()
	stats.NotReady = notReady
	issuedNow, droppedNow := p.estimator.Stats()
	stats.ReadbacksIssued = int(issuedNow - issued)
	stats.ReadbacksDropped = int(droppedNow - dropped)

	p.result = Result{
		Textures:      p.textures,
		Objects:       p.objectsBuf,
		Chunks:        p.chunksBuf,
		CulledObjects: p.culledBuf,
		Constants: Constants{
			ViewPosition: view.Position,
			ChunkSize:    p.settings.Distance / float32(p.index.Resolution()),
			Resolution:   float32(resolution),
			ObjectsCount: p.cache.Len(),
		},
		NotReady: notReady,
		Stats:    stats,
	}
	p.rendered = true
	p.lastFrame = frame
	return p.result, nil
}

// collect runs every accepted proposal through the policy and records the
// resident ones in the object buffer.
func (p *Pass) collect(view View, scene Scene, frame uint64, stats *FrameStats) {
	p.dirty.Reset()
	p.objects.reset()
	p.entries = p.entries[:0]
	if scene == nil {
		return
	}

	query := Query{
		ViewPosition: view.Position,
		Distance:     p.settings.Distance,
		MinRadius:    p.settings.MinObjectRadius,
		LayerMask:    view.LayerMask,
	}
	invResolution := 1 / float32(p.resolution)
	for prop := range scene.Proposals(query) {
		stats.Proposals++
		if !query.Accepts(prop) {
			stats.Rejected++
			continue
		}
		if obj := p.cache.Get(prop.Handle); obj != nil && obj.LastFrameUsed == frame {
			// Proposed twice this frame.
			stats.Rejected++
			continue
		}
		obj := p.settings.Policy.Apply(p.cache, p.dirty, prop, view.Position, frame)
		if obj == nil {
			continue
		}
		record := p.objects.write(obj, invResolution)
		p.entries = append(p.entries, chunks.Entry{Bounds: obj.Sphere, Data: record})
	}
}

// redraw hands the dirty objects to r and returns how many there were.
func (p *Pass) redraw(r FaceRenderer, fullClear bool) int {
	handles := p.dirty.Drain()
	if r == nil || len(handles) == 0 {
		return len(handles)
	}

	if fullClear {
		r.ClearAtlas()
	} else {
		p.tiles = p.tiles[:0]
		for _, h := range handles {
			if obj := p.cache.Get(h); obj != nil {
				for _, t := range obj.Tiles {
					if t != nil {
						p.tiles = append(p.tiles, t)
					}
				}
			}
		}
		r.ClearTiles(p.tiles)
	}

	for _, h := range handles {
		obj := p.cache.Get(h)
		if obj == nil {
			continue
		}
		for f, t := range obj.Tiles {
			if t != nil {
				r.DrawTile(obj, Face(f), t)
			}
		}
	}
	return len(handles)
}

// rebuild recreates the atlas textures for a new resolution and drops
// every cached object.
func (p *Pass) rebuild(resolution int, frame uint64) error {
	p.releaseTextures()
	p.resolution = 0

	var memory int64
	for _, l := range textureLayout {
		desc := gpu.TextureDesc{Name: l.name, Width: resolution, Height: resolution, Format: l.format}
		tex, err := p.dev.CreateTexture(desc)
		if err != nil {
			p.releaseTextures()
			return fmt.Errorf("creating %s: %w", l.name, err)
		}
		*l.slot(&p.textures) = tex
		memory += desc.MemoryUsage()
	}

	if p.chunksBuf == nil {
		n := p.index.Resolution()
		buf, err := p.dev.CreateBuffer(gpu.BufferDesc{Name: "GlobalSurfaceAtlas.ChunksBuffer", Size: n * n * n * 4})
		if err != nil {
			p.releaseTextures()
			return fmt.Errorf("creating chunks buffer: %w", err)
		}
		p.chunksBuf = buf
	}

	p.cache.Resize(resolution, frame)
	p.estimator.Reset()
	p.resolution = resolution

	p.log.Info("surface atlas created",
		zap.Int("resolution", resolution),
		zap.Int64("memory_mb", memory/(1024*1024)),
	)
	return nil
}

func (p *Pass) releaseTextures() {
	for _, l := range textureLayout {
		slot := l.slot(&p.textures)
		if *slot != nil {
			(*slot).Release()
			*slot = nil
		}
	}
}

// ensureBuffer grows *buf to hold at least size bytes.
func (p *Pass) ensureBuffer(buf *gpu.Buffer, name string, size int) error {
	if *buf != nil && (*buf).Desc().Size >= size {
		return nil
	}
	size = capacity.AlignUp(size)
	created, err := p.dev.CreateBuffer(gpu.BufferDesc{Name: name, Size: size})
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if *buf != nil {
		(*buf).Release()
	}
	*buf = created
	p.log.Debug("resized buffer", zap.String("name", name), zap.Int("bytes", size))
	return nil
}

func (p *Pass) uploadObjects() error {
	if p.objects.len() == 0 {
		return nil
	}
	p.scratch = p.objects.bytes(p.scratch[:0])
	if err := p.ensureBuffer(&p.objectsBuf, "GlobalSurfaceAtlas.Objects", len(p.scratch)); err != nil {
		return err
	}
	return p.dev.UpdateBuffer(p.objectsBuf, 0, p.scratch)
}

func (p *Pass) uploadChunks() error {
	p.scratch = p.index.ChunkBytes(p.scratch[:0])
	if err := p.dev.UpdateBuffer(p.chunksBuf, 0, p.scratch); err != nil {
		return err
	}
	p.scratch = p.index.CulledBytes(p.scratch[:0])
	return p.dev.UpdateBuffer(p.culledBuf, 0, p.scratch)
}

// Release frees every device resource. The pass must not be used afterwards.
func (p *Pass) Release() {
	p.estimator.Reset()
	p.releaseTextures()
	for _, b := range []*gpu.Buffer{&p.objectsBuf, &p.chunksBuf, &p.culledBuf} {
		if *b != nil {
			(*b).Release()
			*b = nil
		}
	}
}
