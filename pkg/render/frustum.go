// Package render implements the software rasterization pipeline: frustum
// clipping, perspective-correct scan conversion with a surface and a light
// map, and a depth-buffered packed-color framebuffer.
package render

import (
	"github.com/taigrr/bspview/pkg/math3d"
)

// Frustum holds the 6 view-frustum planes in world space.
// Each plane is stored with its normal pointing outward, so a point p is
// outside plane i when Planes[i].Side(p) > 0.
type Frustum struct {
	Planes [6]math3d.Vec4
}

// Frustum plane indices. The order is also the clipping order.
const (
	FrustumNear = iota
	FrustumFar
	FrustumLeft
	FrustumRight
	FrustumBottom // NDC y = -1
	FrustumTop    // NDC y = +1
)

// NewFrustum extracts world-space planes from a projection*view matrix with
// the Gribb/Hartmann method. The projection maps depth onto [0,1].
func NewFrustum(viewProj math3d.Mat4) Frustum {
	r0, r1, r2, r3 := viewProj.Row(0), viewProj.Row(1), viewProj.Row(2), viewProj.Row(3)

	var f Frustum
	f.Planes[FrustumNear] = outward(r2)
	f.Planes[FrustumFar] = outward(r3.Sub(r2))
	f.Planes[FrustumLeft] = outward(r3.Add(r0))
	f.Planes[FrustumRight] = outward(r3.Sub(r0))
	f.Planes[FrustumBottom] = outward(r3.Add(r1))
	f.Planes[FrustumTop] = outward(r3.Sub(r1))
	return f
}

// outward turns inward coefficients k (inside when k·p >= 0) into a
// normalized plane whose Side is positive outside.
func outward(k math3d.Vec4) math3d.Vec4 {
	return math3d.V4(-k.X, -k.Y, -k.Z, k.W).NormalizePlane()
}

// IntersectAABB reports whether any part of box may be inside the frustum.
// For each plane only the box corner deepest inside needs testing.
func (f *Frustum) IntersectAABB(box math3d.AABB) bool {
	for i := range f.Planes {
		p := f.Planes[i]
		corner := math3d.V3(
			selectComponent(p.X >= 0, box.Min.X, box.Max.X),
			selectComponent(p.Y >= 0, box.Min.Y, box.Max.Y),
			selectComponent(p.Z >= 0, box.Min.Z, box.Max.Z),
		)
		if p.Distance(corner) > 0 {
			return false
		}
	}
	return true
}

func selectComponent(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
