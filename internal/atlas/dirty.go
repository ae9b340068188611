package atlas

// DirtyTracker collects the objects whose tiles must be redrawn this frame.
type DirtyTracker struct {
	handles []Handle
	marked  map[Handle]struct{}
}

// NewDirtyTracker creates an empty tracker.
func NewDirtyTracker() *DirtyTracker {
	return &DirtyTracker{marked: make(map[Handle]struct{})}
}

// Mark adds h once per frame.
func (d *DirtyTracker) Mark(h Handle) {
	if _, ok := d.marked[h]; ok {
		return
	}
	d.marked[h] = struct{}{}
	d.handles = append(d.handles, h)
}

// Has reports whether h is marked.
func (d *DirtyTracker) Has(h Handle) bool {
	_, ok := d.marked[h]
	return ok
}

// Len returns the number of marked objects.
func (d *DirtyTracker) Len() int { return len(d.handles) }

// Reset unmarks everything.
func (d *DirtyTracker) Reset() {
	d.handles = d.handles[:0]
	clear(d.marked)
}

// Drain returns the marked handles in marking order and resets the tracker.
func (d *DirtyTracker) Drain() []Handle {
	out := d.handles
	d.handles = nil
	clear(d.marked)
	return out
}
