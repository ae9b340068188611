package math

import (
	"encoding/binary"
	"testing"
)

func TestUint4RoundTrip(t *testing.T) {
	v := Uint4(1, 0xffff, 1<<31, 42)
	want := []uint32{1, 0xffff, 1 << 31, 42}
	for i, w := range want {
		if got := v.Uint(i); got != w {
			t.Errorf("component %d: expected %d, got %d", i, w, got)
		}
	}
}

func TestAppendBytes(t *testing.T) {
	b := AppendVec4Bytes(nil, []Vec4{{1, 2, 3, 4}, Uint4(7, 0, 0, 0)})
	if len(b) != 32 {
		t.Fatalf("expected 32 bytes, got %d", len(b))
	}
	if got := binary.LittleEndian.Uint32(b[16:]); got != 7 {
		t.Errorf("expected raw 7 at offset 16, got %d", got)
	}

	u := AppendUint32Bytes(nil, []uint32{5, 6})
	if binary.LittleEndian.Uint32(u[4:]) != 6 {
		t.Errorf("expected 6 at offset 4, got %v", u)
	}
}
