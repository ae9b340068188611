package math

import (
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	result := m.Mul(Identity())

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestTransformVec3(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		in   Vec3
		want Vec3
	}{
		{"translate", Translate(10, 20, 30), Vec3{1, 2, 3}, Vec3{11, 22, 33}},
		{"scale", Scale(2, 2, 2), Vec3{1, 2, 3}, Vec3{2, 4, 6}},
		{"compose", Compose(Vec3{1, 0, 0}, QuatIdentity(), Vec3{2, 3, 4}), Vec3{1, 1, 1}, Vec3{3, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.TransformVec3(tt.in)
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTransformDirectionIgnoresTranslation(t *testing.T) {
	m := Translate(5, 5, 5)
	got := m.TransformDirection(Vec3{0, 1, 0})
	if got != (Vec3{0, 1, 0}) {
		t.Errorf("expected (0,1,0), got %v", got)
	}
}

func TestViewFromBasis(t *testing.T) {
	// Looking down -Z from (0,0,5): basis is the identity frame.
	eye := Vec3{0, 0, 5}
	view := ViewFromBasis(Vec3{1, 0, 0}, Vec3{0, 1, 0}, Vec3{0, 0, 1}, eye)

	got := view.TransformVec3(eye)
	if got.Length() > 1e-5 {
		t.Errorf("eye should map to origin, got %v", got)
	}
	got = view.TransformVec3(Vec3{1, 2, 0})
	if abs(got.X-1) > 1e-5 || abs(got.Y-2) > 1e-5 || abs(got.Z+5) > 1e-5 {
		t.Errorf("expected (1,2,-5), got %v", got)
	}
}

func TestInverse(t *testing.T) {
	m := Compose(Vec3{3, -2, 7}, QuatFromAxisAngle(Vec3Up, 0.7), Vec3{2, 1, 0.5})
	p := Vec3{4, 5, 6}
	back := m.Inverse().TransformVec3(m.TransformVec3(p))
	if back.Distance(p) > 1e-3 {
		t.Errorf("inverse round trip: expected %v, got %v", p, back)
	}
}

func TestInverseSingular(t *testing.T) {
	if got := Scale(0, 1, 1).Inverse(); got != Identity() {
		t.Errorf("singular inverse should be identity, got %v", got)
	}
}

func TestOrthoCentered(t *testing.T) {
	m := OrthoCentered(4, 2, 0, 10)
	if m[0] != 0.5 || m[5] != 1 {
		t.Errorf("unexpected scale terms: %v %v", m[0], m[5])
	}
	if m[15] != 1 {
		t.Errorf("ortho [15] should be 1, got %f", m[15])
	}
}

func TestPerspective(t *testing.T) {
	m := Perspective(0.785398, 1, 0.1, 100)

	if m[0] == 0 || m[5] == 0 {
		t.Error("Perspective should have non-zero elements")
	}
	if m[15] != 0 {
		t.Errorf("Perspective [15] should be 0, got %f", m[15])
	}
	if m[11] != -1 {
		t.Errorf("Perspective [11] should be -1, got %f", m[11])
	}
}

func TestLookAt(t *testing.T) {
	eye := Vec3{X: 0, Y: 0, Z: 5}
	m := LookAt(eye, Vec3{}, Vec3{Y: 1})

	// The eye maps to the view origin and the target lies down -Z.
	if p := m.TransformVec3(eye); p.Length() > 1e-5 {
		t.Errorf("expected eye at origin, got %v", p)
	}
	if p := m.TransformVec3(Vec3{}); abs(p.Z+5) > 1e-5 || abs(p.X) > 1e-5 {
		t.Errorf("expected target at (0,0,-5), got %v", p)
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
