package render

import "github.com/taigrr/bspview/pkg/math3d"

// Gradients holds the screen-space rates of change of everything the
// scanline loop interpolates across one triangle.
//
// Texel attributes are interpolated premultiplied by 1/w and divided by the
// interpolated 1/w once per pixel, which keeps them perspective correct.
type Gradients struct {
	OneOverW [3]float64

	DZdX, DZdY               float64
	DOneOverWdX, DOneOverWdY float64
	DTdX, DTdY               math3d.Vec4
}

// Configure computes the gradients of a projected triangle. The vertices
// carry screen X/Y, depth in Z and view depth in W.
func (g *Gradients) Configure(v0, v1, v2 *Vertex) {
	g.OneOverW[0] = 1 / v0.Coord.W
	g.OneOverW[1] = 1 / v1.Coord.W
	g.OneOverW[2] = 1 / v2.Coord.W

	dx0 := v0.Coord.X - v2.Coord.X
	dx1 := v1.Coord.X - v2.Coord.X
	dy0 := v0.Coord.Y - v2.Coord.Y
	dy1 := v1.Coord.Y - v2.Coord.Y

	oneOverDX := 1 / (dx1*dy0 - dx0*dy1)
	oneOverDY := -oneOverDX

	ddx := func(f0, f1, f2 float64) float64 {
		return oneOverDX * ((f1-f2)*dy0 - (f0-f2)*dy1)
	}
	ddy := func(f0, f1, f2 float64) float64 {
		return oneOverDY * ((f1-f2)*dx0 - (f0-f2)*dx1)
	}

	g.DZdX = ddx(v0.Coord.Z, v1.Coord.Z, v2.Coord.Z)
	g.DZdY = ddy(v0.Coord.Z, v1.Coord.Z, v2.Coord.Z)

	w0, w1, w2 := g.OneOverW[0], g.OneOverW[1], g.OneOverW[2]
	g.DOneOverWdX = ddx(w0, w1, w2)
	g.DOneOverWdY = ddy(w0, w1, w2)

	t0 := v0.Texel.Scale(w0)
	t1 := v1.Texel.Scale(w1)
	t2 := v2.Texel.Scale(w2)
	g.DTdX = math3d.V4(
		ddx(t0.X, t1.X, t2.X),
		ddx(t0.Y, t1.Y, t2.Y),
		ddx(t0.Z, t1.Z, t2.Z),
		ddx(t0.W, t1.W, t2.W),
	)
	g.DTdY = math3d.V4(
		ddy(t0.X, t1.X, t2.X),
		ddy(t0.Y, t1.Y, t2.Y),
		ddy(t0.Z, t1.Z, t2.Z),
		ddy(t0.W, t1.W, t2.W),
	)
}
