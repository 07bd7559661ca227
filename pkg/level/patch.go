package level

import (
	"github.com/taigrr/bspview/pkg/math3d"
	"github.com/taigrr/bspview/pkg/render"
)

// TessellationDegree is the number of subdivisions along each axis of a
// 3x3 patch block.
const TessellationDegree = 6

// PatchGrid holds one tessellated block: row r runs across the control
// rows, column c along them.
type PatchGrid [TessellationDegree + 1][TessellationDegree + 1]render.Vertex

// PatchBlocks returns how many 3x3 blocks a patch face spans horizontally
// and vertically. Neighboring blocks share their edge control points.
func PatchBlocks(f *Face) (wide, high int) {
	return (f.PatchWidth - 1) / 2, (f.PatchHeight - 1) / 2
}

// Tessellate evaluates block (bx, by) of patch face f into g.
func (l *Level) Tessellate(g *PatchGrid, f *Face, bx, by int) {
	w := f.PatchWidth
	off := f.FirstVertex + 2*by*w + 2*bx
	cp := l.Vertices

	var r0, r1, r2 render.Vertex
	for u := 0; u <= TessellationDegree; u++ {
		tu := float64(u) / TessellationDegree
		bezier(&r0, &cp[off], &cp[off+1], &cp[off+2], tu)
		bezier(&r1, &cp[off+w], &cp[off+w+1], &cp[off+w+2], tu)
		bezier(&r2, &cp[off+2*w], &cp[off+2*w+1], &cp[off+2*w+2], tu)
		for v := 0; v <= TessellationDegree; v++ {
			bezier(&g[v][u], &r0, &r1, &r2, float64(v)/TessellationDegree)
		}
	}
}

// Emit sends the two triangles of every grid cell to dst, wound the same
// way as the control grid.
func (g *PatchGrid) Emit(dst TriangleSink) {
	for r := 1; r <= TessellationDegree; r++ {
		for c := 0; c < TessellationDegree; c++ {
			dst.Draw(&g[r-1][c], &g[r][c], &g[r-1][c+1])
			dst.Draw(&g[r-1][c+1], &g[r][c], &g[r][c+1])
		}
	}
}

// bezier evaluates the quadratic curve through c0, c1, c2 at t.
func bezier(dst, c0, c1, c2 *render.Vertex, t float64) {
	a := t * t
	b := 2*t - 2*a
	c := 1 - 2*t + a
	dst.Coord = blend(c0.Coord, c1.Coord, c2.Coord, c, b, a)
	dst.Coord.W = 1
	dst.Texel = blend(c0.Texel, c1.Texel, c2.Texel, c, b, a)
}

func blend(p0, p1, p2 math3d.Vec4, w0, w1, w2 float64) math3d.Vec4 {
	return math3d.Vec4{
		X: p0.X*w0 + p1.X*w1 + p2.X*w2,
		Y: p0.Y*w0 + p1.Y*w1 + p2.Y*w2,
		Z: p0.Z*w0 + p1.Z*w1 + p2.Z*w2,
		W: p0.W*w0 + p1.W*w1 + p2.W*w2,
	}
}
