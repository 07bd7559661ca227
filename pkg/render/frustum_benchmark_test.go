package render

import (
	"math/rand"
	"testing"

	"github.com/taigrr/bspview/pkg/math3d"
)

// BenchmarkFrustumExtract benchmarks plane extraction from projection*view.
func BenchmarkFrustumExtract(b *testing.B) {
	cam := NewCamera()
	viewProj := cam.ProjectionMatrix().Mul(cam.ViewMatrix())

	for b.Loop() {
		_ = NewFrustum(viewProj)
	}
}

// BenchmarkLeafCulling simulates testing leaf bounds, about half in view.
func BenchmarkLeafCulling(b *testing.B) {
	cam := NewCamera()
	cam.SetPosition(math3d.V3(0, 50, -200))
	cam.LookAt(math3d.V3(0, 0, 0))
	f := NewFrustum(cam.ProjectionMatrix().Mul(cam.ViewMatrix()))

	rng := rand.New(rand.NewSource(42))
	boxes := make([]math3d.AABB, 256)
	for i := range boxes {
		c := math3d.V3(rng.Float64()*2000-1000, rng.Float64()*200, rng.Float64()*2000-1000)
		boxes[i] = math3d.NewAABB(c.Sub(math3d.V3(32, 32, 32)), c.Add(math3d.V3(32, 32, 32)))
	}

	for b.Loop() {
		visible := 0
		for i := range boxes {
			if f.IntersectAABB(boxes[i]) {
				visible++
			}
		}
		_ = visible
	}
}
