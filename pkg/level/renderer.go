package level

import (
	"github.com/taigrr/bspview/pkg/math3d"
	"github.com/taigrr/bspview/pkg/render"
)

// TriangleSink consumes world-space triangles. Vertices are only valid for
// the duration of the call.
type TriangleSink interface {
	Draw(v0, v1, v2 *render.Vertex)
}

// Rasterizer is what Renderer draws into. *render.Rasterizer implements it.
type Rasterizer interface {
	TriangleSink
	UseColorMap(s render.Sampler)
	UseLightMap(s render.Sampler)
}

// frustumer is implemented by rasterizers that can report the current view
// frustum, enabling per-leaf culling.
type frustumer interface {
	Frustum() *render.Frustum
}

// RenderStats counts the work done by the last Draw.
type RenderStats struct {
	Leaf       int // Leaf containing the eye
	Cluster    int // Its visibility cluster
	Leaves     int // Leaves that passed the visibility test
	Culled     int // Leaves rejected by the frustum
	Faces      int // Faces drawn
	Patches    int // Patch blocks tessellated
	Duplicates int // Faces skipped because another leaf already drew them
}

// Renderer walks a Level front to back and submits every potentially
// visible face exactly once per frame. It is not safe for concurrent use.
type Renderer struct {
	level     *Level
	faceTicks []uint64
	tick      uint64
	grid      PatchGrid

	dst     Rasterizer
	frustum *render.Frustum
	eye     math3d.Vec3
	cluster int

	// DisableFrustumCulling turns off leaf bounds tests.
	DisableFrustumCulling bool

	Stats RenderStats
}

// NewRenderer creates a renderer for lvl.
func NewRenderer(lvl *Level) *Renderer {
	return &Renderer{
		level:     lvl,
		faceTicks: make([]uint64, len(lvl.Faces)),
	}
}

// Level returns the level being drawn.
func (r *Renderer) Level() *Level {
	return r.level
}

// Draw performs one traversal from eye, submitting triangles to dst.
// The caller configures dst with the matching camera beforehand.
func (r *Renderer) Draw(dst Rasterizer, eye math3d.Vec3) {
	r.tick++
	r.dst = dst
	r.eye = eye
	r.frustum = nil
	if f, ok := dst.(frustumer); ok && !r.DisableFrustumCulling {
		r.frustum = f.Frustum()
	}

	leaf := r.level.FindLeaf(eye)
	r.cluster = r.level.Leaves[leaf].Cluster
	r.Stats = RenderStats{Leaf: leaf, Cluster: r.cluster}

	r.walk(r.level.Root())
	r.dst = nil
}

func (r *Renderer) walk(c Child) {
	if c.IsLeaf() {
		r.drawLeaf(&r.level.Leaves[c.Index])
		return
	}
	n := &r.level.Nodes[c.Index]
	if r.level.Planes[n.Plane].Distance(r.eye) >= 0 {
		r.walk(n.Front)
		r.walk(n.Back)
	} else {
		r.walk(n.Back)
		r.walk(n.Front)
	}
}

func (r *Renderer) drawLeaf(leaf *Leaf) {
	if !r.level.Vis.IsClusterVisible(r.cluster, leaf.Cluster) {
		return
	}
	if r.frustum != nil && !r.frustum.IntersectAABB(leaf.Bounds) {
		r.Stats.Culled++
		return
	}
	r.Stats.Leaves++

	for _, fi := range r.level.LeafFaces[leaf.FirstFace : leaf.FirstFace+leaf.NumFaces] {
		if r.faceTicks[fi] == r.tick {
			r.Stats.Duplicates++
			continue
		}
		r.faceTicks[fi] = r.tick
		r.drawFace(&r.level.Faces[fi])
	}
}

func (r *Renderer) drawFace(f *Face) {
	if f.Kind != FacePolygon && f.Kind != FacePatch {
		return
	}
	r.Stats.Faces++
	r.dst.UseColorMap(r.level.ColorMap(f.Texture))
	r.dst.UseLightMap(r.level.LightMap(f.LightMap))

	if f.Kind == FacePolygon {
		vs := r.level.Vertices[f.FirstVertex:]
		idx := r.level.Indices[f.FirstIndex : f.FirstIndex+f.NumIndices]
		for k := 0; k+2 < len(idx); k += 3 {
			r.dst.Draw(&vs[idx[k]], &vs[idx[k+1]], &vs[idx[k+2]])
		}
		return
	}

	wide, high := PatchBlocks(f)
	for by := range high {
		for bx := range wide {
			r.level.Tessellate(&r.grid, f, bx, by)
			r.grid.Emit(r.dst)
			r.Stats.Patches++
		}
	}
}
