package render

import "github.com/taigrr/bspview/pkg/math3d"

// Vertex is a position plus the interpolated attributes.
// Texel packs (surface u, surface v, light u, light v).
type Vertex struct {
	Coord math3d.Vec4
	Texel math3d.Vec4
}

// V creates a world-space vertex (w = 1).
func V(pos math3d.Vec3, su, sv, lu, lv float64) Vertex {
	return Vertex{
		Coord: pos.Point(),
		Texel: math3d.V4(su, sv, lu, lv),
	}
}

// lerp stores the interpolation of a and b at t into v.
func (v *Vertex) lerp(a, b *Vertex, t float64) {
	v.Coord = a.Coord.Lerp(b.Coord, t)
	v.Texel = a.Texel.Lerp(b.Texel, t)
}
