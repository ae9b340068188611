// Package gldev implements gpu.Device on OpenGL 4.1 core.
// All calls must happen on the thread that owns the GL context.
package gldev

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/surface-atlas/internal/gpu"
	"github.com/Faultbox/surface-atlas/internal/logger"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Device is an OpenGL-backed gpu.Device.
type Device struct {
	maxTextureSize int
}

// New initializes OpenGL function pointers and queries device limits.
// IMPORTANT: Must be called AFTER the OpenGL context is created!
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	var maxSize int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxSize)

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.Int32("max_texture_size", maxSize),
	)

	return &Device{maxTextureSize: int(maxSize)}, nil
}

func (d *Device) MaxTextureSize() int { return d.maxTextureSize }

// Texture is a GL 2D texture.
type Texture struct {
	id   uint32
	desc gpu.TextureDesc
}

// ID returns the GL texture name.
func (t *Texture) ID() uint32 { return t.id }

func (t *Texture) Desc() gpu.TextureDesc { return t.desc }

func (t *Texture) Release() {
	if t.id != 0 {
		gl.DeleteTextures(1, &t.id)
		t.id = 0
	}
}

type glFormat struct {
	internal int32
	format   uint32
	xtype    uint32
}

func formatOf(f gpu.Format) (glFormat, error) {
	switch f {
	case gpu.FormatRGBA8:
		return glFormat{gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE}, nil
	case gpu.FormatRGBA16F:
		return glFormat{gl.RGBA16F, gl.RGBA, gl.HALF_FLOAT}, nil
	case gpu.FormatR11G11B10F:
		return glFormat{gl.R11F_G11F_B10F, gl.RGB, gl.UNSIGNED_INT_10F_11F_11F_REV}, nil
	case gpu.FormatRGB10A2:
		return glFormat{gl.RGB10_A2, gl.RGBA, gl.UNSIGNED_INT_2_10_10_10_REV}, nil
	case gpu.FormatDepth16:
		return glFormat{gl.DEPTH_COMPONENT16, gl.DEPTH_COMPONENT, gl.UNSIGNED_SHORT}, nil
	}
	return glFormat{}, fmt.Errorf("%w: format %s", gpu.ErrUnsupported, f)
}

func (d *Device) CreateTexture(desc gpu.TextureDesc) (gpu.Texture, error) {
	if err := desc.Validate(d.maxTextureSize); err != nil {
		return nil, err
	}
	f, err := formatOf(desc.Format)
	if err != nil {
		return nil, err
	}

	t := &Texture{desc: desc}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, f.internal, int32(desc.Width), int32(desc.Height), 0, f.format, f.xtype, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		t.Release()
		return nil, fmt.Errorf("creating texture %q: GL error 0x%x", desc.Name, code)
	}
	return t, nil
}

// Buffer is a GL buffer object.
type Buffer struct {
	id   uint32
	desc gpu.BufferDesc
}

// ID returns the GL buffer name.
func (b *Buffer) ID() uint32 { return b.id }

func (b *Buffer) Desc() gpu.BufferDesc { return b.desc }

func (b *Buffer) Release() {
	if b.id != 0 {
		gl.DeleteBuffers(1, &b.id)
		b.id = 0
	}
}

func (d *Device) CreateBuffer(desc gpu.BufferDesc) (gpu.Buffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	b := &Buffer{desc: desc}
	gl.GenBuffers(1, &b.id)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, b.id)
	gl.BufferData(gl.COPY_WRITE_BUFFER, desc.Size, nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
	return b, nil
}

func (d *Device) UpdateBuffer(b gpu.Buffer, offset int, data []byte) error {
	buf, ok := b.(*Buffer)
	if !ok || buf.id == 0 {
		return fmt.Errorf("%w: buffer %q not owned by this device", gpu.ErrInvalidDescription, b.Desc().Name)
	}
	if err := gpu.CheckRange(b, offset, len(data)); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, buf.id)
	gl.BufferSubData(gl.COPY_WRITE_BUFFER, offset, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
	return nil
}

// readback copies into a staging buffer and guards it with a fence.
type readback struct {
	staging uint32
	fence   uintptr
	size    int
	data    []byte
	done    bool
	freed   bool
}

func (r *readback) Poll() ([]byte, bool) {
	if r.done {
		return r.data, true
	}
	if r.freed {
		return nil, false
	}
	switch gl.ClientWaitSync(r.fence, 0, 0) {
	case gl.ALREADY_SIGNALED, gl.CONDITION_SATISFIED:
	default:
		return nil, false
	}

	r.data = make([]byte, r.size)
	gl.BindBuffer(gl.COPY_READ_BUFFER, r.staging)
	gl.GetBufferSubData(gl.COPY_READ_BUFFER, 0, r.size, gl.Ptr(r.data))
	gl.BindBuffer(gl.COPY_READ_BUFFER, 0)

	r.Release()
	r.done = true
	return r.data, true
}

// Release deletes the fence and staging buffer. Copied data stays readable.
func (r *readback) Release() {
	if r.freed {
		return
	}
	r.freed = true
	gl.DeleteSync(r.fence)
	gl.DeleteBuffers(1, &r.staging)
}

func (d *Device) Readback(src gpu.Buffer, offset, size int) (gpu.Readback, error) {
	buf, ok := src.(*Buffer)
	if !ok || buf.id == 0 {
		return nil, fmt.Errorf("%w: buffer %q not owned by this device", gpu.ErrInvalidDescription, src.Desc().Name)
	}
	if err := gpu.CheckRange(src, offset, size); err != nil {
		return nil, err
	}

	r := &readback{size: size}
	gl.GenBuffers(1, &r.staging)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, r.staging)
	gl.BufferData(gl.COPY_WRITE_BUFFER, size, nil, gl.STREAM_READ)
	gl.BindBuffer(gl.COPY_READ_BUFFER, buf.id)
	gl.CopyBufferSubData(gl.COPY_READ_BUFFER, gl.COPY_WRITE_BUFFER, offset, 0, size)
	gl.BindBuffer(gl.COPY_READ_BUFFER, 0)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)

	r.fence = gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0)
	return r, nil
}
