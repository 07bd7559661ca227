package render

import (
	"math"

	"github.com/taigrr/bspview/pkg/math3d"
)

// FarDepth is the depth buffer clear value. Larger depths are farther away.
const FarDepth = 1.0

// Rasterizer draws world-space triangles into a framebuffer.
//
// Each triangle is clipped against the view frustum, projected, and filled
// scanline by scanline with a perspective-correct product of a color map and
// a light map, behind a strict less-than depth test.
//
// All scratch state is owned by the Rasterizer and reused between calls. It
// is not safe for concurrent use.
type Rasterizer struct {
	fb    *Framebuffer
	depth []float64 // Private depth buffer, row-major

	transform math3d.Mat4 // viewport * projection * view
	clipper   Clipper

	colorMap Sampler
	lightMap Sampler

	rv     [3]Vertex
	grads  Gradients
	major  Edge
	minor0 Edge
	minor1 Edge

	Stats                 FrameStats // Counters for the current frame
	EnableBackfaceCulling bool       // If true, skip triangles wound counter-clockwise on screen
}

// FrameStats counts what happened to submitted triangles since Clear.
type FrameStats struct {
	Submitted int // Triangles passed to Draw
	Rejected  int // Entirely outside one frustum plane
	Clipped   int // Crossed at least one frustum plane
	Culled    int // Back-facing or zero-area after projection
	Rendered  int // Triangles that reached the scanline loop
}

// NewRasterizer creates a rasterizer drawing into fb.
func NewRasterizer(fb *Framebuffer) *Rasterizer {
	r := &Rasterizer{
		fb:        fb,
		transform: math3d.Identity(),
		colorMap:  DefaultColorMap,
		lightMap:  DefaultLightMap,
	}
	r.Resize()
	return r
}

// Resize reallocates the depth buffer to match the framebuffer.
func (r *Rasterizer) Resize() {
	if r.fb == nil {
		r.depth = nil
		return
	}
	r.depth = make([]float64, r.fb.Width*r.fb.Height)
	fill(r.depth, FarDepth)
}

// Framebuffer returns the color buffer being drawn into.
func (r *Rasterizer) Framebuffer() *Framebuffer {
	return r.fb
}

// Clear resets the color buffer to opaque black, the depth buffer to
// FarDepth and the frame statistics.
func (r *Rasterizer) Clear() {
	r.fb.Clear(0xFF000000)
	fill(r.depth, FarDepth)
	r.Stats = FrameStats{}
}

// SetCamera configures clipping and projection for the next frame.
func (r *Rasterizer) SetCamera(v Viewer) {
	viewProj := v.ProjectionMatrix().Mul(v.ViewMatrix())
	r.clipper.Configure(viewProj)
	r.transform = math3d.Viewport(r.fb.Width, r.fb.Height).Mul(viewProj)
}

// Frustum returns the world-space frustum of the current camera.
func (r *Rasterizer) Frustum() *Frustum {
	return r.clipper.Frustum()
}

// UseColorMap selects the surface texture for following draws.
// A nil sampler selects DefaultColorMap.
func (r *Rasterizer) UseColorMap(s Sampler) {
	if s == nil {
		s = DefaultColorMap
	}
	r.colorMap = s
}

// UseLightMap selects the light map for following draws.
// A nil sampler selects DefaultLightMap.
func (r *Rasterizer) UseLightMap(s Sampler) {
	if s == nil {
		s = DefaultLightMap
	}
	r.lightMap = s
}

// Draw clips, projects and fills one world-space triangle.
// The vertices are copied and never retained.
func (r *Rasterizer) Draw(v0, v1, v2 *Vertex) {
	r.Stats.Submitted++

	mask := r.clipper.ComputeMask(v0, v1, v2)
	switch mask {
	case ClipReject:
		r.Stats.Rejected++
		return
	case 0:
		r.project(0, v0)
		r.project(1, v1)
		r.project(2, v2)
		r.render(&r.rv[0], &r.rv[1], &r.rv[2])
		return
	}

	r.Stats.Clipped++
	if r.clipper.Clip(v0, v1, v2, mask) {
		return
	}

	// Fan from the first vertex: (p0, p[i-1], p[i]).
	n := r.clipper.Len()
	r.project(0, r.clipper.Vertex(0))
	r.project(2, r.clipper.Vertex(1))
	for i := 2; i < n; i++ {
		r.rv[1] = r.rv[2]
		r.project(2, r.clipper.Vertex(i))
		r.render(&r.rv[0], &r.rv[1], &r.rv[2])
	}
}

func (r *Rasterizer) project(slot int, v *Vertex) {
	r.rv[slot].Coord = r.transform.Project(v.Coord)
	r.rv[slot].Texel = v.Texel
}

// render fills a projected triangle.
func (r *Rasterizer) render(v0, v1, v2 *Vertex) {
	// Front faces wind clockwise on the y-down screen.
	area := (v1.Coord.X-v0.Coord.X)*(v2.Coord.Y-v0.Coord.Y) -
		(v1.Coord.Y-v0.Coord.Y)*(v2.Coord.X-v0.Coord.X)
	if area == 0 || (area < 0 && r.EnableBackfaceCulling) {
		r.Stats.Culled++
		return
	}

	r.grads.Configure(v0, v1, v2)

	// Sort by screen y; insertion sort keeps vertex order on ties.
	vs := [3]*Vertex{v0, v1, v2}
	ow := r.grads.OneOverW
	if vs[1].Coord.Y < vs[0].Coord.Y {
		vs[0], vs[1] = vs[1], vs[0]
		ow[0], ow[1] = ow[1], ow[0]
	}
	if vs[2].Coord.Y < vs[1].Coord.Y {
		vs[1], vs[2] = vs[2], vs[1]
		ow[1], ow[2] = ow[2], ow[1]
		if vs[1].Coord.Y < vs[0].Coord.Y {
			vs[0], vs[1] = vs[1], vs[0]
			ow[0], ow[1] = ow[1], ow[0]
		}
	}
	top, mid, bot := vs[0], vs[1], vs[2]

	// Which side of the major edge (top to bottom) the middle vertex is on.
	side := (bot.Coord.X-top.Coord.X)*(mid.Coord.Y-top.Coord.Y) -
		(bot.Coord.Y-top.Coord.Y)*(mid.Coord.X-top.Coord.X)
	midLeft := side > 0

	r.major.Configure(&r.grads, top, bot, ow[0])
	if r.major.Height <= 0 {
		return
	}
	r.Stats.Rendered++

	r.minor0.Configure(&r.grads, top, mid, ow[0])
	if r.minor0.Height > 0 {
		if midLeft {
			r.scanline(r.minor0.Y, r.minor0.Height, &r.minor0, &r.major)
		} else {
			r.scanline(r.minor0.Y, r.minor0.Height, &r.major, &r.minor0)
		}
	}

	r.minor1.Configure(&r.grads, mid, bot, ow[1])
	if r.minor1.Height > 0 {
		if midLeft {
			r.scanline(r.minor1.Y, r.minor1.Height, &r.minor1, &r.major)
		} else {
			r.scanline(r.minor1.Y, r.minor1.Height, &r.major, &r.minor1)
		}
	}
}

// scanline fills height rows starting at y between the left and right edges,
// stepping both edges once per row. Attributes come from the left edge.
func (r *Rasterizer) scanline(y, height int, left, right *Edge) {
	g := &r.grads
	width, rows := r.fb.Width, r.fb.Height
	pixels := r.fb.Pixels

	for ; height > 0; height-- {
		if y >= 0 && y < rows {
			x0 := int(math.Ceil(left.X))
			x1 := int(math.Ceil(right.X))
			if x0 < 0 {
				x0 = 0
			}
			if x1 > width {
				x1 = width
			}

			pre := float64(x0) - left.X
			z := left.Z + pre*g.DZdX
			oneOverW := left.OneOverW + pre*g.DOneOverWdX
			t := left.T.Add(g.DTdX.Scale(pre))

			row := y * width
			for x := x0; x < x1; x++ {
				i := row + x
				if z < r.depth[i] {
					r.depth[i] = z
					w := 1 / oneOverW
					c := r.colorMap.Sample(t.X*w, t.Y*w)
					l := r.lightMap.Sample(t.Z*w, t.W*w)
					pixels[i] = modulate(c, l)
				}
				z += g.DZdX
				oneOverW += g.DOneOverWdX
				t = t.Add(g.DTdX)
			}
		}

		left.Step()
		right.Step()
		y++
	}
}

// modulate multiplies color by light per channel. A light channel of 128 is
// full intensity; brighter values overbright up to 255.
func modulate(c, l uint32) uint32 {
	r := min((c>>16&0xFF)*(l>>16&0xFF)>>7, 0xFF)
	g := min((c>>8&0xFF)*(l>>8&0xFF)>>7, 0xFF)
	b := min((c&0xFF)*(l&0xFF)>>7, 0xFF)
	return 0xFF000000 | r<<16 | g<<8 | b
}
