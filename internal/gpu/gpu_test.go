package gpu

import (
	"errors"
	"testing"
)

type fakeBuffer struct{ desc BufferDesc }

func (b fakeBuffer) Desc() BufferDesc { return b.desc }
func (b fakeBuffer) Release()         {}

func TestTextureDescValidate(t *testing.T) {
	tests := []struct {
		name string
		desc TextureDesc
		want error
	}{
		{"ok", TextureDesc{Name: "a", Width: 256, Height: 256}, nil},
		{"zero", TextureDesc{Name: "a", Width: 0, Height: 256}, ErrInvalidDescription},
		{"too large", TextureDesc{Name: "a", Width: 8192, Height: 8192}, ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate(4096)
			if tt.want == nil && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestMemoryUsage(t *testing.T) {
	d := TextureDesc{Width: 512, Height: 512, Format: FormatRGBA16F}
	if got := d.MemoryUsage(); got != 512*512*8 {
		t.Errorf("expected %d, got %d", 512*512*8, got)
	}
	d.Format = FormatDepth16
	if got := d.MemoryUsage(); got != 512*512*2 {
		t.Errorf("expected %d, got %d", 512*512*2, got)
	}
}

func TestCheckRange(t *testing.T) {
	b := fakeBuffer{BufferDesc{Name: "b", Size: 64}}
	if err := CheckRange(b, 60, 4); err != nil {
		t.Errorf("expected in range, got %v", err)
	}
	if err := CheckRange(b, 61, 4); !errors.Is(err, ErrInvalidDescription) {
		t.Errorf("expected ErrInvalidDescription, got %v", err)
	}
	if err := CheckRange(b, -1, 4); err == nil {
		t.Error("expected error for negative offset")
	}
}
