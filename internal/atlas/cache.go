package atlas

import (
	"maps"
	"slices"

	"github.com/Faultbox/surface-atlas/internal/rectpack"
)

// Cache maps handles to resident objects and owns the atlas packer.
// An object is present only while it holds at least one tile.
type Cache struct {
	objects map[Handle]*Object
	packer  *rectpack.Packer[TileData]

	failWindow uint64
	cooldown   uint64

	insertFailed   bool
	lastInsertFail uint64
	lastDefrag     uint64

	counters cacheCounters
}

type cacheCounters struct {
	inserted int
	freed    int
	failed   int
	evicted  int
}

// NewCache creates an empty cache over a resolution x resolution atlas.
// A failed insertion within failWindow frames triggers defragmentation,
// at most once every cooldown frames.
func NewCache(resolution int, failWindow, cooldown uint64, frame uint64) *Cache {
	return &Cache{
		objects:    make(map[Handle]*Object),
		packer:     rectpack.New[TileData](resolution, resolution),
		failWindow: failWindow,
		cooldown:   cooldown,
		lastDefrag: frame,
	}
}

// Resolution returns the atlas edge in texels.
func (c *Cache) Resolution() int { return c.packer.Width() }

// Packer exposes the tile allocator for inspection.
func (c *Cache) Packer() *rectpack.Packer[TileData] { return c.packer }

// Len returns the number of resident objects.
func (c *Cache) Len() int { return len(c.objects) }

// Get returns the object for h, or nil.
func (c *Cache) Get(h Handle) *Object {
	return c.objects[h]
}

// GetOrCreate returns the object for h, creating an empty entry if needed.
// Callers must give a new entry a tile before the next Sweep.
func (c *Cache) GetOrCreate(h Handle) *Object {
	obj, ok := c.objects[h]
	if !ok {
		obj = &Object{Handle: h}
		c.objects[h] = obj
	}
	return obj
}

// MarkUsed keeps obj resident through this frame's Sweep.
func (c *Cache) MarkUsed(obj *Object, frame uint64) {
	obj.LastFrameUsed = frame
}

// Handles returns the resident handles in ascending order.
func (c *Cache) Handles() []Handle {
	return slices.Sorted(maps.Keys(c.objects))
}

func (c *Cache) allocate(size int, frame uint64) *Tile {
	t := c.packer.Insert(size, size)
	if t == nil {
		c.insertFailed = true
		c.lastInsertFail = frame
		c.counters.failed++
		return nil
	}
	c.counters.inserted++
	return t
}

func (c *Cache) release(obj *Object, face Face) {
	if t := obj.Tiles[face]; t != nil {
		t.Free()
		obj.Tiles[face] = nil
		c.counters.freed++
	}
}

// Sweep evicts every object not used in frame and frees its tiles.
// It returns the number of evicted objects.
func (c *Cache) Sweep(frame uint64) int {
	n := 0
	for h, obj := range c.objects {
		if obj.LastFrameUsed == frame {
			continue
		}
		for f := range obj.Tiles {
			c.release(obj, Face(f))
		}
		delete(c.objects, h)
		n++
	}
	c.counters.evicted += n
	return n
}

// NeedsDefragment reports whether a recent insertion failure warrants
// rebuilding the atlas from scratch.
func (c *Cache) NeedsDefragment(frame uint64) bool {
	return c.insertFailed &&
		frame-c.lastInsertFail < c.failWindow &&
		frame-c.lastDefrag > c.cooldown
}

// Clear drops every object and tile. Objects still in view are
// reinserted by the same frame's proposals.
func (c *Cache) Clear(frame uint64) {
	clear(c.objects)
	c.packer.Reset()
	c.insertFailed = false
	c.lastDefrag = frame
}

// Resize replaces the atlas with an empty one of the given resolution.
func (c *Cache) Resize(resolution int, frame uint64) {
	c.packer = rectpack.New[TileData](resolution, resolution)
	c.Clear(frame)
}

func (c *Cache) takeCounters() cacheCounters {
	counters := c.counters
	c.counters = cacheCounters{}
	return counters
}
