package render

import (
	"math"

	"github.com/taigrr/bspview/pkg/math3d"
)

// Edge walks one triangle edge from its top to its bottom scanline.
// Values are prestepped to pixel centers on integer rows (top-left rule).
type Edge struct {
	X, XStep float64
	Y        int
	Height   int

	Z, ZStep               float64
	OneOverW, OneOverWStep float64
	T, TStep               math3d.Vec4
}

// Configure sets up the edge from top to bottom. topOneOverW is 1/w of the
// top vertex. Height <= 0 means the edge covers no scanline.
func (e *Edge) Configure(g *Gradients, top, bottom *Vertex, topOneOverW float64) {
	e.Y = int(math.Ceil(top.Coord.Y))
	e.Height = int(math.Ceil(bottom.Coord.Y)) - e.Y
	if e.Height <= 0 {
		return
	}

	yPre := float64(e.Y) - top.Coord.Y
	e.XStep = (bottom.Coord.X - top.Coord.X) / (bottom.Coord.Y - top.Coord.Y)
	e.X = e.XStep*yPre + top.Coord.X
	xPre := e.X - top.Coord.X

	e.Z = top.Coord.Z + yPre*g.DZdY + xPre*g.DZdX
	e.ZStep = e.XStep*g.DZdX + g.DZdY

	e.OneOverW = topOneOverW + yPre*g.DOneOverWdY + xPre*g.DOneOverWdX
	e.OneOverWStep = e.XStep*g.DOneOverWdX + g.DOneOverWdY

	e.T = top.Texel.Scale(topOneOverW).Add(g.DTdY.Scale(yPre)).Add(g.DTdX.Scale(xPre))
	e.TStep = g.DTdX.Scale(e.XStep).Add(g.DTdY)
}

// Step advances the edge to the next scanline.
func (e *Edge) Step() {
	e.X += e.XStep
	e.Z += e.ZStep
	e.OneOverW += e.OneOverWStep
	e.T = e.T.Add(e.TStep)
}
