package math3d

import (
	"math"
	"testing"
)

func BenchmarkMat4Mul(b *testing.B) {
	m1 := Viewport(320, 200)
	m2 := LookAt(V3(1, 2, 3), V3(0, 0, 0))

	for b.Loop() {
		_ = m1.Mul(m2)
	}
}

func BenchmarkMat4MulVec4(b *testing.B) {
	m := Viewport(320, 200).Mul(LookAt(V3(1, 2, 3), V3(0, 0, 0)))
	v := V4(1, 2, 3, 1)

	for b.Loop() {
		_ = m.MulVec4(v)
	}
}

func BenchmarkMat4Project(b *testing.B) {
	m := Perspective(math.Pi/4, 1.333, 10, 5000).Mul(LookAt(V3(0, 0, -100), V3(0, 0, 0)))
	v := V4(10, 20, 30, 1)

	for b.Loop() {
		_ = m.Project(v)
	}
}

func BenchmarkPlaneSide(b *testing.B) {
	p := Plane(V3(0, 1, 0), 4)
	v := V4(1, 2, 3, 1)

	for b.Loop() {
		_ = p.Side(v)
	}
}

func BenchmarkLookAt(b *testing.B) {
	eye := V3(0, 0, 10)
	target := V3(0, 0, 0)

	for b.Loop() {
		_ = LookAt(eye, target)
	}
}

func BenchmarkViewProjectionViewport(b *testing.B) {
	// The rasterizer builds this once per frame.
	view := LookAt(V3(0, 0, 10), V3(0, 0, 0))
	proj := Perspective(math.Pi/4, 1.333, 10, 5000)
	vp := Viewport(320, 200)

	for b.Loop() {
		_ = vp.Mul(proj).Mul(view)
	}
}
