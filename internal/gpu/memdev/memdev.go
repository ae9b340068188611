// Package memdev is an in-memory gpu.Device. Readbacks complete a fixed
// number of frames after they are issued, which mimics the latency of a
// real device queue.
package memdev

import (
	"fmt"
	"sync"

	"github.com/Faultbox/surface-atlas/internal/gpu"
)

// DefaultMaxTextureSize matches the common desktop limit.
const DefaultMaxTextureSize = 16384

// Options configures a Device.
type Options struct {
	MaxTextureSize int
	// Latency is the number of EndFrame calls before a readback completes.
	Latency int
}

// Device keeps every resource in host memory.
type Device struct {
	mu       sync.Mutex
	opts     Options
	frame    uint64
	textures int
	buffers  int
	memory   int64
	// readbacks is the number of readbacks issued and not yet released.
	readbacks int
}

// New creates a device.
func New(opts Options) *Device {
	if opts.MaxTextureSize <= 0 {
		opts.MaxTextureSize = DefaultMaxTextureSize
	}
	if opts.Latency < 0 {
		opts.Latency = 0
	}
	return &Device{opts: opts}
}

// Texture is a host-side texture. Texel contents are not stored.
type Texture struct {
	dev      *Device
	desc     gpu.TextureDesc
	released bool
}

func (t *Texture) Desc() gpu.TextureDesc { return t.desc }

func (t *Texture) Release() {
	t.dev.mu.Lock()
	defer t.dev.mu.Unlock()
	if t.released {
		return
	}
	t.released = true
	t.dev.textures--
	t.dev.memory -= t.desc.MemoryUsage()
}

// Buffer is a host-side byte buffer.
type Buffer struct {
	dev      *Device
	desc     gpu.BufferDesc
	data     []byte
	released bool
}

func (b *Buffer) Desc() gpu.BufferDesc { return b.desc }

// Bytes returns the buffer contents.
func (b *Buffer) Bytes() []byte { return b.data }

func (b *Buffer) Release() {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	if b.released {
		return
	}
	b.released = true
	b.dev.buffers--
	b.dev.memory -= int64(b.desc.Size)
}

type readback struct {
	dev      *Device
	ready    uint64
	data     []byte
	released bool
}

func (r *readback) Poll() ([]byte, bool) {
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	if r.dev.frame < r.ready {
		return nil, false
	}
	return r.data, true
}

func (r *readback) Release() {
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	r.dev.readbacks--
}

func (d *Device) MaxTextureSize() int { return d.opts.MaxTextureSize }

func (d *Device) CreateTexture(desc gpu.TextureDesc) (gpu.Texture, error) {
	if err := desc.Validate(d.opts.MaxTextureSize); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.textures++
	d.memory += desc.MemoryUsage()
	return &Texture{dev: d, desc: desc}, nil
}

func (d *Device) CreateBuffer(desc gpu.BufferDesc) (gpu.Buffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffers++
	d.memory += int64(desc.Size)
	return &Buffer{dev: d, desc: desc, data: make([]byte, desc.Size)}, nil
}

func (d *Device) UpdateBuffer(b gpu.Buffer, offset int, data []byte) error {
	buf, err := d.buffer(b)
	if err != nil {
		return err
	}
	if err := gpu.CheckRange(b, offset, len(data)); err != nil {
		return err
	}
	copy(buf.data[offset:], data)
	return nil
}

// Readback snapshots the range now and makes it visible after Latency frames.
func (d *Device) Readback(src gpu.Buffer, offset, size int) (gpu.Readback, error) {
	buf, err := d.buffer(src)
	if err != nil {
		return nil, err
	}
	if err := gpu.CheckRange(src, offset, size); err != nil {
		return nil, err
	}
	data := make([]byte, size)
	copy(data, buf.data[offset:offset+size])

	d.mu.Lock()
	defer d.mu.Unlock()
	d.readbacks++
	return &readback{dev: d, ready: d.frame + uint64(d.opts.Latency), data: data}, nil
}

func (d *Device) buffer(b gpu.Buffer) (*Buffer, error) {
	buf, ok := b.(*Buffer)
	if !ok || buf.dev != d {
		return nil, fmt.Errorf("%w: buffer %q not owned by this device", gpu.ErrInvalidDescription, b.Desc().Name)
	}
	if buf.released {
		return nil, fmt.Errorf("%w: buffer %q released", gpu.ErrInvalidDescription, buf.desc.Name)
	}
	return buf, nil
}

// EndFrame advances the device clock used to complete readbacks.
func (d *Device) EndFrame() {
	d.mu.Lock()
	d.frame++
	d.mu.Unlock()
}

// Stats reports live resource counts and their total memory.
func (d *Device) Stats() (textures, buffers int, memory int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.textures, d.buffers, d.memory
}

// Readbacks reports how many readbacks are issued and not yet released.
func (d *Device) Readbacks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readbacks
}
