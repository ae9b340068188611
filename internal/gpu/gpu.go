// Package gpu defines the narrow device interface the surface atlas needs:
// render-target textures, byte buffers, uploads and non-blocking readbacks.
package gpu

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is returned when a device cannot satisfy a request,
	// for example a texture larger than its maximum size.
	ErrUnsupported = errors.New("gpu: unsupported")
	// ErrInvalidDescription is returned for malformed texture or buffer descriptions.
	ErrInvalidDescription = errors.New("gpu: invalid description")
)

// Format is a texture pixel format.
type Format int

const (
	FormatRGBA8 Format = iota
	FormatRGBA16F
	FormatR11G11B10F
	FormatRGB10A2
	FormatDepth16
)

// BytesPerPixel returns the storage size of one texel.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGBA16F:
		return 8
	case FormatDepth16:
		return 2
	default:
		return 4
	}
}

func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatRGBA16F:
		return "RGBA16F"
	case FormatR11G11B10F:
		return "R11G11B10F"
	case FormatRGB10A2:
		return "RGB10A2"
	case FormatDepth16:
		return "D16"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// IsDepth reports whether the format is a depth format.
func (f Format) IsDepth() bool {
	return f == FormatDepth16
}

// TextureDesc describes a 2D render target.
type TextureDesc struct {
	Name   string
	Width  int
	Height int
	Format Format
}

// Validate checks the description against the device limit.
func (d TextureDesc) Validate(maxSize int) error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: texture %q size %dx%d", ErrInvalidDescription, d.Name, d.Width, d.Height)
	}
	if d.Width > maxSize || d.Height > maxSize {
		return fmt.Errorf("%w: texture %q size %dx%d exceeds %d", ErrUnsupported, d.Name, d.Width, d.Height, maxSize)
	}
	return nil
}

// MemoryUsage returns the texture's storage size in bytes.
func (d TextureDesc) MemoryUsage() int64 {
	return int64(d.Width) * int64(d.Height) * int64(d.Format.BytesPerPixel())
}

// BufferDesc describes a linear byte buffer.
type BufferDesc struct {
	Name string
	Size int
}

// Validate checks the description.
func (d BufferDesc) Validate() error {
	if d.Size <= 0 {
		return fmt.Errorf("%w: buffer %q size %d", ErrInvalidDescription, d.Name, d.Size)
	}
	return nil
}

// Texture is a device render target.
type Texture interface {
	Desc() TextureDesc
	Release()
}

// Buffer is a device byte buffer.
type Buffer interface {
	Desc() BufferDesc
	Release()
}

// Readback is a pending device-to-host copy. Poll never blocks: it returns
// the copied bytes and true once the device has finished the copy.
// Release frees the staging resources whether or not the copy completed;
// it may be called more than once.
type Readback interface {
	Poll() ([]byte, bool)
	Release()
}

// Device creates resources and moves bytes between host and device.
type Device interface {
	MaxTextureSize() int
	CreateTexture(desc TextureDesc) (Texture, error)
	CreateBuffer(desc BufferDesc) (Buffer, error)
	// UpdateBuffer writes data into b starting at offset.
	UpdateBuffer(b Buffer, offset int, data []byte) error
	// Readback schedules a copy of size bytes from src at offset.
	Readback(src Buffer, offset, size int) (Readback, error)
}

// CheckRange validates an [offset, offset+size) range against a buffer.
func CheckRange(b Buffer, offset, size int) error {
	d := b.Desc()
	if offset < 0 || size < 0 || offset+size > d.Size {
		return fmt.Errorf("%w: range [%d,%d) outside buffer %q of %d bytes",
			ErrInvalidDescription, offset, offset+size, d.Name, d.Size)
	}
	return nil
}
