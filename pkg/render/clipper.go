package render

import "github.com/taigrr/bspview/pkg/math3d"

// ClipReject is returned by ComputeMask when all three vertices lie outside
// the same frustum plane.
const ClipReject = -1

const (
	// MaxClipVertices is the capacity of each polygon buffer. A triangle
	// clipped by 6 planes has at most 9 vertices.
	MaxClipVertices = 12

	clipArenaSize = 16
)

// Clipper clips triangles against the view frustum with Sutherland–Hodgman.
//
// Vertices produced by Clip live in an arena owned by the Clipper and stay
// valid only until the next call to Clip.
type Clipper struct {
	frustum Frustum

	// Polygon buffers hold arena indices; Clip ping-pongs between them.
	buf   [2][MaxClipVertices]int
	cur   int
	count int

	arena  [clipArenaSize]Vertex
	cursor int
}

// Configure derives the clip planes from the camera's projection*view.
func (c *Clipper) Configure(viewProj math3d.Mat4) {
	c.frustum = NewFrustum(viewProj)
}

// Frustum returns the planes the clipper was last configured with.
func (c *Clipper) Frustum() *Frustum {
	return &c.frustum
}

// ComputeMask returns a bit per frustum plane that at least one vertex is
// outside of, or ClipReject if one plane has all three vertices outside.
// A zero mask means the triangle is fully inside.
func (c *Clipper) ComputeMask(v0, v1, v2 *Vertex) int {
	mask := 0
	for i := range c.frustum.Planes {
		p := &c.frustum.Planes[i]
		out := 0
		if p.Side(v0.Coord) > 0 {
			out++
		}
		if p.Side(v1.Coord) > 0 {
			out++
		}
		if p.Side(v2.Coord) > 0 {
			out++
		}
		if out == 3 {
			return ClipReject
		}
		if out > 0 {
			mask |= 1 << i
		}
	}
	return mask
}

// Clip clips the triangle against every plane flagged in mask, in plane
// order. It reports true when the polygon is clipped away entirely;
// otherwise the result is available through Len and Vertex.
func (c *Clipper) Clip(v0, v1, v2 *Vertex, mask int) bool {
	c.cursor = 0
	c.cur = 0
	c.count = 3
	for i, v := range [3]*Vertex{v0, v1, v2} {
		idx := c.alloc()
		c.arena[idx] = *v
		c.buf[0][i] = idx
	}

	for i := range c.frustum.Planes {
		if mask&(1<<i) == 0 {
			continue
		}
		c.clipPlane(&c.frustum.Planes[i])
		if c.count < 3 {
			return true
		}
	}
	return false
}

// Len returns the vertex count of the last clipped polygon.
func (c *Clipper) Len() int {
	return c.count
}

// Vertex returns vertex i of the last clipped polygon.
func (c *Clipper) Vertex(i int) *Vertex {
	return &c.arena[c.buf[c.cur][i]]
}

func (c *Clipper) alloc() int {
	idx := c.cursor
	c.cursor++
	return idx
}

// clipPlane intersects the current polygon with one plane and writes the
// result into the other buffer. Vertices with Side <= 0 are kept.
func (c *Clipper) clipPlane(p *math3d.Vec4) {
	src := &c.buf[c.cur]
	dst := &c.buf[c.cur^1]
	n := 0

	a := src[c.count-1]
	aIn := p.Side(c.arena[a].Coord) <= 0
	for i := 0; i < c.count; i++ {
		b := src[i]
		bIn := p.Side(c.arena[b].Coord) <= 0

		if aIn != bIn {
			// Always interpolate from the inside vertex so both directions
			// of a shared edge produce the same point.
			from, to := a, b
			if !aIn {
				from, to = b, a
			}
			t := p.Intersect(c.arena[from].Coord, c.arena[to].Coord)
			idx := c.alloc()
			c.arena[idx].lerp(&c.arena[from], &c.arena[to], t)
			dst[n] = idx
			n++
		}
		if bIn {
			dst[n] = b
			n++
		}
		a, aIn = b, bIn
	}

	c.cur ^= 1
	c.count = n
}
