// Package rectpack implements a binary-tree rectangle packer for square
// texture atlases.
//
// Each free rectangle is split into at most two children on insertion: the
// part that holds the request and the remainder. Freeing a node merges free
// siblings back into their parent, so a long-running atlas does not slowly
// shatter into slivers.
package rectpack

// Node is a rectangle in the packing tree. Leaf nodes are either free or hold
// an allocation. Value carries the caller's per-allocation payload.
type Node[T any] struct {
	X, Y          int
	Width, Height int
	Value         T

	packer *Packer[T]
	parent *Node[T]
	left   *Node[T]
	right  *Node[T]
	used   bool
}

// Used reports whether the node currently holds an allocation.
func (n *Node[T]) Used() bool {
	return n.used
}

// Area returns the node's area in texels.
func (n *Node[T]) Area() int {
	return n.Width * n.Height
}

// Free releases the allocation held by n. Freeing a node twice is a no-op.
func (n *Node[T]) Free() {
	if n.packer != nil {
		n.packer.Free(n)
	}
}

func (n *Node[T]) isLeaf() bool {
	return n.left == nil && n.right == nil
}

func (n *Node[T]) insert(width, height int) *Node[T] {
	if !n.isLeaf() {
		if found := n.left.insert(width, height); found != nil {
			return found
		}
		return n.right.insert(width, height)
	}
	if n.used || n.Width < width || n.Height < height {
		return nil
	}
	if n.Width == width && n.Height == height {
		n.used = true
		return n
	}

	// Split along the axis with more slack so the remainder stays as square
	// as possible.
	if n.Width-width > n.Height-height {
		n.left = n.child(n.X, n.Y, width, n.Height)
		n.right = n.child(n.X+width, n.Y, n.Width-width, n.Height)
	} else {
		n.left = n.child(n.X, n.Y, n.Width, height)
		n.right = n.child(n.X, n.Y+height, n.Width, n.Height-height)
	}
	return n.left.insert(width, height)
}

func (n *Node[T]) child(x, y, w, h int) *Node[T] {
	return &Node[T]{X: x, Y: y, Width: w, Height: h, packer: n.packer, parent: n}
}

func (n *Node[T]) walk(fn func(*Node[T])) {
	if n.isLeaf() {
		if n.used {
			fn(n)
		}
		return
	}
	n.left.walk(fn)
	n.right.walk(fn)
}

// Packer allocates rectangles from a fixed-size region.
type Packer[T any] struct {
	root     *Node[T]
	width    int
	height   int
	count    int
	usedArea int
}

// New creates a packer covering a width x height region.
func New[T any](width, height int) *Packer[T] {
	p := &Packer[T]{width: width, height: height}
	p.Reset()
	return p
}

// Reset drops every allocation. Nodes handed out earlier become detached
// and freeing them afterwards does nothing.
func (p *Packer[T]) Reset() {
	if p.root != nil {
		p.root.walk(func(n *Node[T]) { n.packer = nil })
	}
	p.root = &Node[T]{Width: p.width, Height: p.height, packer: p}
	p.count = 0
	p.usedArea = 0
}

// Insert allocates a width x height rectangle. It returns nil when no free
// rectangle is large enough.
func (p *Packer[T]) Insert(width, height int) *Node[T] {
	if width <= 0 || height <= 0 {
		return nil
	}
	n := p.root.insert(width, height)
	if n == nil {
		return nil
	}
	p.count++
	p.usedArea += n.Area()
	return n
}

// Free releases n and coalesces free siblings into their parent.
func (p *Packer[T]) Free(n *Node[T]) {
	if n == nil || n.packer != p || !n.used {
		return
	}
	n.used = false
	var zero T
	n.Value = zero
	p.count--
	p.usedArea -= n.Area()

	for parent := n.parent; parent != nil; parent = parent.parent {
		l, r := parent.left, parent.right
		if !l.isLeaf() || !r.isLeaf() || l.used || r.used {
			break
		}
		l.packer, r.packer = nil, nil
		parent.left, parent.right = nil, nil
	}
}

// Width returns the packer's region width.
func (p *Packer[T]) Width() int { return p.width }

// Height returns the packer's region height.
func (p *Packer[T]) Height() int { return p.height }

// Count returns the number of live allocations.
func (p *Packer[T]) Count() int { return p.count }

// UsedArea returns the total area of live allocations.
func (p *Packer[T]) UsedArea() int { return p.usedArea }

// Occupancy returns the fraction of the region held by live allocations.
func (p *Packer[T]) Occupancy() float64 {
	total := p.width * p.height
	if total == 0 {
		return 0
	}
	return float64(p.usedArea) / float64(total)
}

// Walk calls fn for every live allocation in tree order.
func (p *Packer[T]) Walk(fn func(*Node[T])) {
	p.root.walk(fn)
}
