package math

import (
	"encoding/binary"
	stdmath "math"
)

// Uint4 stores four raw uint32 values in a Vec4 bit-for-bit.
func Uint4(x, y, z, w uint32) Vec4 {
	return Vec4{
		stdmath.Float32frombits(x),
		stdmath.Float32frombits(y),
		stdmath.Float32frombits(z),
		stdmath.Float32frombits(w),
	}
}

// Uint returns component i reinterpreted as a uint32.
func (v Vec4) Uint(i int) uint32 {
	return stdmath.Float32bits(v[i])
}

// AppendVec4Bytes appends vs to dst as little-endian float32s.
func AppendVec4Bytes(dst []byte, vs []Vec4) []byte {
	for _, v := range vs {
		for _, f := range v {
			dst = binary.LittleEndian.AppendUint32(dst, stdmath.Float32bits(f))
		}
	}
	return dst
}

// AppendUint32Bytes appends vs to dst as little-endian uint32s.
func AppendUint32Bytes(dst []byte, vs []uint32) []byte {
	for _, v := range vs {
		dst = binary.LittleEndian.AppendUint32(dst, v)
	}
	return dst
}
