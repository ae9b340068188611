// Package chunks builds the per-frame spatial index over a viewer-centred
// grid of cubic chunks.
//
// Each chunk stores the float4 address of its object list in a shared
// culled-objects buffer. Address 0 means empty: chunk slot 0 is never
// assigned and holds the write counter instead, and every list starts at 1
// or later.
package chunks

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/surface-atlas/pkg/math"
)

const (
	// DefaultResolution is the number of chunks along each axis.
	DefaultResolution = 40
	// GroupSize is the chunk dispatch group edge; resolutions must be multiples of it.
	GroupSize = 4
	// HeaderFloat4s precedes every chunk list and holds its object count.
	HeaderFloat4s = 1
)

// Entry is one cached object offered to the index.
type Entry struct {
	Bounds math.Sphere
	// Data is the object's packed record, copied verbatim into every chunk
	// list that references it.
	Data []math.Vec4
}

// Grid maps world positions to chunk coordinates.
type Grid struct {
	Center     math.Vec3
	ChunkSize  float32
	Resolution int
}

// NewGrid centres a resolution³ grid spanning distance on center.
func NewGrid(center math.Vec3, distance float32, resolution int) Grid {
	return Grid{
		Center:     center,
		ChunkSize:  distance / float32(resolution),
		Resolution: resolution,
	}
}

// Len returns the number of chunks.
func (g Grid) Len() int {
	return g.Resolution * g.Resolution * g.Resolution
}

// Index flattens a chunk coordinate.
func (g Grid) Index(x, y, z int) int {
	return x + (y+z*g.Resolution)*g.Resolution
}

// Bounds returns the world-space box of a chunk.
func (g Grid) Bounds(x, y, z int) math.AABB {
	half := float32(g.Resolution) * 0.5
	lo := g.Center.Add(math.Vec3{
		X: float32(x) - half,
		Y: float32(y) - half,
		Z: float32(z) - half,
	}.Scale(g.ChunkSize))
	return math.AABB{Min: lo, Max: lo.Add(math.Splat(g.ChunkSize))}
}

func (g Grid) cell(v float32) int {
	return int(math32.Floor(v/g.ChunkSize + float32(g.Resolution)*0.5))
}

// Coord returns the chunk containing p.
func (g Grid) Coord(p math.Vec3) (x, y, z int, ok bool) {
	d := p.Sub(g.Center)
	x, y, z = g.cell(d.X), g.cell(d.Y), g.cell(d.Z)
	ok = g.inside(x) && g.inside(y) && g.inside(z)
	return x, y, z, ok
}

func (g Grid) inside(c int) bool {
	return c >= 0 && c < g.Resolution
}

func (g Grid) clamp(c int) int {
	return max(0, min(c, g.Resolution-1))
}

// span returns the chunk range overlapped by an axis interval.
func (g Grid) span(lo, hi float32) (int, int, bool) {
	a, b := g.cell(lo), g.cell(hi)
	if b < 0 || a >= g.Resolution {
		return 0, 0, false
	}
	return g.clamp(a), g.clamp(b), true
}

// Stats describes one build.
type Stats struct {
	Entries   int
	Chunks    int
	Pairs     int
	Counter   uint32
	Overflows int
}

// Index is the chunk table plus the culled-objects buffer. Build replaces
// the previous contents; the index is not safe for concurrent use.
type Index struct {
	grid     Grid
	chunks   []uint32
	culled   []math.Vec4
	lists    [][]int32
	capacity int
	stats    Stats
}

// New creates an index for a resolution³ grid.
func New(resolution int) *Index {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	n := resolution * resolution * resolution
	return &Index{
		grid:   Grid{Resolution: resolution},
		chunks: make([]uint32, n),
		lists:  make([][]int32, n),
	}
}

// Resolution returns the number of chunks along each axis.
func (ix *Index) Resolution() int { return ix.grid.Resolution }

// Build scatters entries into chunks. capacity limits the culled buffer in
// float4 elements; lists that would end past it are dropped and their
// chunk reads as empty, but the counter still grows by their size so a
// readback reports the capacity that was needed.
//
// The grid's resolution must match the index; use NewGrid with Resolution.
func (ix *Index) Build(grid Grid, entries []Entry, capacity int) Stats {
	grid.Resolution = ix.grid.Resolution
	ix.grid = grid
	ix.capacity = capacity
	ix.stats = Stats{Entries: len(entries)}
	for i := range ix.lists {
		ix.lists[i] = ix.lists[i][:0]
	}
	clear(ix.chunks)
	ix.culled = append(ix.culled[:0], math.Vec4{})

	for i, e := range entries {
		ix.scatter(int32(i), e.Bounds)
	}

	counter := uint32(HeaderFloat4s)
	for idx := 1; idx < len(ix.lists); idx++ {
		list := ix.lists[idx]
		if len(list) == 0 {
			continue
		}
		size := HeaderFloat4s
		for _, ei := range list {
			size += len(entries[ei].Data)
		}
		addr := counter
		counter += uint32(size)
		ix.stats.Chunks++
		ix.stats.Pairs += len(list)

		if int(addr)+size > capacity {
			ix.stats.Overflows++
			continue
		}
		ix.chunks[idx] = addr
		ix.grow(int(addr) + size)
		ix.culled[addr] = math.Uint4(uint32(len(list)), 0, 0, 0)
		at := int(addr) + HeaderFloat4s
		for _, ei := range list {
			at += copy(ix.culled[at:], entries[ei].Data)
		}
	}
	ix.chunks[0] = counter
	ix.stats.Counter = counter
	return ix.stats
}

func (ix *Index) scatter(entry int32, s math.Sphere) {
	g := ix.grid
	x0, x1, ok := g.span(s.Center.X-s.Radius, s.Center.X+s.Radius)
	if !ok {
		return
	}
	y0, y1, ok := g.span(s.Center.Y-s.Radius, s.Center.Y+s.Radius)
	if !ok {
		return
	}
	z0, z1, ok := g.span(s.Center.Z-s.Radius, s.Center.Z+s.Radius)
	if !ok {
		return
	}
	for z := z0; z <= z1; z++ {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				idx := g.Index(x, y, z)
				if idx == 0 || !g.Bounds(x, y, z).IntersectsSphere(s) {
					continue
				}
				ix.lists[idx] = append(ix.lists[idx], entry)
			}
		}
	}
}

func (ix *Index) grow(n int) {
	if n <= len(ix.culled) {
		return
	}
	if n <= cap(ix.culled) {
		ix.culled = ix.culled[:n]
		return
	}
	grown := make([]math.Vec4, n, max(n, 2*cap(ix.culled)))
	copy(grown, ix.culled)
	ix.culled = grown
}

// Grid returns the grid of the last build.
func (ix *Index) Grid() Grid { return ix.grid }

// Stats returns the statistics of the last build.
func (ix *Index) Stats() Stats { return ix.stats }

// Counter returns the float4 size the last build needed, header slot included.
func (ix *Index) Counter() uint32 { return ix.chunks[0] }

// Chunks returns the chunk address table. Slot 0 holds the counter.
func (ix *Index) Chunks() []uint32 { return ix.chunks }

// Culled returns the culled-objects buffer contents.
func (ix *Index) Culled() []math.Vec4 { return ix.culled }

// Address returns the list address of a chunk, 0 when empty.
func (ix *Index) Address(x, y, z int) uint32 {
	idx := ix.grid.Index(x, y, z)
	if idx == 0 {
		return 0
	}
	return ix.chunks[idx]
}

// Lookup returns the object count and packed records of the chunk at p.
func (ix *Index) Lookup(p math.Vec3) (int, []math.Vec4) {
	x, y, z, ok := ix.grid.Coord(p)
	if !ok {
		return 0, nil
	}
	addr := ix.Address(x, y, z)
	if addr == 0 {
		return 0, nil
	}
	count := int(ix.culled[addr].Uint(0))
	start := int(addr) + HeaderFloat4s
	end := start
	for i := 0; i < count && end+1 < len(ix.culled); i++ {
		n := objectSize(ix.culled, end)
		if n <= 0 {
			break
		}
		end += n
	}
	return count, ix.culled[start:min(end, len(ix.culled))]
}

// ObjectSizeComponent is the component of an object's second record float4
// carrying its total size in float4 elements.
const ObjectSizeComponent = 3

func objectSize(data []math.Vec4, at int) int {
	return int(data[at+1].Uint(ObjectSizeComponent))
}

// Visit calls fn for every populated chunk, in index order.
func (ix *Index) Visit(fn func(x, y, z int, count int)) {
	res := ix.grid.Resolution
	for idx := 1; idx < len(ix.chunks); idx++ {
		addr := ix.chunks[idx]
		if addr == 0 {
			continue
		}
		x := idx % res
		y := (idx / res) % res
		z := idx / (res * res)
		fn(x, y, z, int(ix.culled[addr].Uint(0)))
	}
}

// ChunkBytes encodes the chunk table for upload.
func (ix *Index) ChunkBytes(dst []byte) []byte {
	return math.AppendUint32Bytes(dst, ix.chunks)
}

// CulledBytes encodes the culled-objects buffer for upload.
func (ix *Index) CulledBytes(dst []byte) []byte {
	return math.AppendVec4Bytes(dst, ix.culled)
}
