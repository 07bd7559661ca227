package render

import (
	"math"

	"github.com/taigrr/bspview/pkg/math3d"
)

// Wireframe draws world-space lines over a framebuffer, clipped to the
// view frustum and without depth testing.
type Wireframe struct {
	fb        *Framebuffer
	transform math3d.Mat4 // viewport * projection * view
	frustum   Frustum
}

// NewWireframe creates a line renderer drawing into fb.
func NewWireframe(fb *Framebuffer) *Wireframe {
	return &Wireframe{
		fb:        fb,
		transform: math3d.Identity(),
	}
}

// SetCamera configures projection and clipping for following draws.
func (w *Wireframe) SetCamera(v Viewer) {
	viewProj := v.ProjectionMatrix().Mul(v.ViewMatrix())
	w.frustum = NewFrustum(viewProj)
	w.transform = math3d.Viewport(w.fb.Width, w.fb.Height).Mul(viewProj)
}

// DrawLine3D draws the part of segment p1-p2 inside the frustum.
func (w *Wireframe) DrawLine3D(p1, p2 math3d.Vec3, c uint32) {
	t0, t1 := 0.0, 1.0
	for i := range w.frustum.Planes {
		d0 := w.frustum.Planes[i].Distance(p1)
		d1 := w.frustum.Planes[i].Distance(p2)
		switch {
		case d0 > 0 && d1 > 0:
			return
		case d0 > 0:
			t0 = math.Max(t0, d0/(d0-d1))
		case d1 > 0:
			t1 = math.Min(t1, d0/(d0-d1))
		}
	}
	if t0 > t1 {
		return
	}

	a := w.transform.Project(p1.Lerp(p2, t0).Point())
	b := w.transform.Project(p1.Lerp(p2, t1).Point())
	w.fb.DrawLine(
		int(math.Round(a.X)), int(math.Round(a.Y)),
		int(math.Round(b.X)), int(math.Round(b.Y)),
		c,
	)
}

// boxEdges indexes the corners produced by boxCorners.
var boxEdges = [12][2]int{
	// Bottom
	{0, 1}, {1, 3}, {3, 2}, {2, 0},
	// Top
	{4, 5}, {5, 7}, {7, 6}, {6, 4},
	// Verticals
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// boxCorners returns the corners of box; bit 0 of the index selects max X,
// bit 1 max Z and bit 2 max Y.
func boxCorners(box math3d.AABB) [8]math3d.Vec3 {
	var c [8]math3d.Vec3
	for i := range c {
		c[i] = math3d.V3(
			selectComponent(i&1 != 0, box.Max.X, box.Min.X),
			selectComponent(i&4 != 0, box.Max.Y, box.Min.Y),
			selectComponent(i&2 != 0, box.Max.Z, box.Min.Z),
		)
	}
	return c
}

// DrawBox outlines an axis-aligned box.
func (w *Wireframe) DrawBox(box math3d.AABB, c uint32) {
	corners := boxCorners(box)
	for _, e := range boxEdges {
		w.DrawLine3D(corners[e[0]], corners[e[1]], c)
	}
}

// DrawPoint draws a point as a small 3D cross.
func (w *Wireframe) DrawPoint(pos math3d.Vec3, size float64, c uint32) {
	h := size / 2
	w.DrawLine3D(math3d.V3(pos.X-h, pos.Y, pos.Z), math3d.V3(pos.X+h, pos.Y, pos.Z), c)
	w.DrawLine3D(math3d.V3(pos.X, pos.Y-h, pos.Z), math3d.V3(pos.X, pos.Y+h, pos.Z), c)
	w.DrawLine3D(math3d.V3(pos.X, pos.Y, pos.Z-h), math3d.V3(pos.X, pos.Y, pos.Z+h), c)
}
