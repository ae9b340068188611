package memdev

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Faultbox/surface-atlas/internal/gpu"
)

func TestReadbackLatency(t *testing.T) {
	d := New(Options{Latency: 2})
	b, err := d.CreateBuffer(gpu.BufferDesc{Name: "counter", Size: 16})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if err := d.UpdateBuffer(b, 0, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("UpdateBuffer: %v", err)
	}

	rb, err := d.Readback(b, 0, 4)
	if err != nil {
		t.Fatalf("Readback: %v", err)
	}
	// Later writes must not leak into the snapshot.
	_ = d.UpdateBuffer(b, 0, []byte{9, 9, 9, 9})

	for i := 0; i < 2; i++ {
		if _, ok := rb.Poll(); ok {
			t.Fatalf("readback ready after %d frames", i)
		}
		d.EndFrame()
	}
	data, ok := rb.Poll()
	if !ok {
		t.Fatal("expected readback to complete")
	}
	if !bytes.Equal(data, []byte{1, 2, 3, 4}) {
		t.Errorf("expected snapshot [1 2 3 4], got %v", data)
	}
}

func TestCreateTextureLimits(t *testing.T) {
	d := New(Options{MaxTextureSize: 1024})
	if _, err := d.CreateTexture(gpu.TextureDesc{Name: "big", Width: 2048, Height: 2048}); !errors.Is(err, gpu.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}

	tex, err := d.CreateTexture(gpu.TextureDesc{Name: "ok", Width: 1024, Height: 1024, Format: gpu.FormatRGBA8})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	textures, _, memory := d.Stats()
	if textures != 1 || memory != 1024*1024*4 {
		t.Errorf("expected 1 texture of %d bytes, got %d / %d", 1024*1024*4, textures, memory)
	}

	tex.Release()
	tex.Release()
	textures, _, memory = d.Stats()
	if textures != 0 || memory != 0 {
		t.Errorf("expected empty device after release, got %d / %d", textures, memory)
	}
}

func TestUpdateBufferOutOfRange(t *testing.T) {
	d := New(Options{})
	b, _ := d.CreateBuffer(gpu.BufferDesc{Name: "b", Size: 8})
	if err := d.UpdateBuffer(b, 6, []byte{1, 2, 3}); !errors.Is(err, gpu.ErrInvalidDescription) {
		t.Errorf("expected ErrInvalidDescription, got %v", err)
	}

	b.Release()
	if err := d.UpdateBuffer(b, 0, []byte{1}); err == nil {
		t.Error("expected error writing a released buffer")
	}
}

func TestForeignBufferRejected(t *testing.T) {
	a := New(Options{})
	b := New(Options{})
	buf, _ := a.CreateBuffer(gpu.BufferDesc{Name: "a", Size: 4})
	if _, err := b.Readback(buf, 0, 4); err == nil {
		t.Error("expected error reading another device's buffer")
	}
}

func TestReadbackRelease(t *testing.T) {
	d := New(Options{Latency: 5})
	b, _ := d.CreateBuffer(gpu.BufferDesc{Name: "counter", Size: 16})

	first, _ := d.Readback(b, 0, 4)
	second, _ := d.Readback(b, 4, 4)
	if n := d.Readbacks(); n != 2 {
		t.Fatalf("expected 2 live readbacks, got %d", n)
	}

	first.Release()
	first.Release()
	if n := d.Readbacks(); n != 1 {
		t.Errorf("expected double release to count once, got %d live", n)
	}
	second.Release()
	if n := d.Readbacks(); n != 0 {
		t.Errorf("expected no live readbacks, got %d", n)
	}
}
