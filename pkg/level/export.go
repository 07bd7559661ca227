package level

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/taigrr/bspview/pkg/render"
)

// primitiveBuilder collects the triangles sharing one surface.
type primitiveBuilder struct {
	positions [][3]float32
	surfaceUV [][2]float32
	lightUV   [][2]float32
	indices   []uint32
}

func (p *primitiveBuilder) add(v *render.Vertex) {
	p.indices = append(p.indices, uint32(len(p.positions)))
	// Mirror Z: the level is left-handed, glTF is right-handed. The
	// reflection also turns our clockwise front faces counter-clockwise.
	p.positions = append(p.positions, [3]float32{float32(v.Coord.X), float32(v.Coord.Y), float32(-v.Coord.Z)})
	p.surfaceUV = append(p.surfaceUV, [2]float32{float32(v.Texel.X), float32(v.Texel.Y)})
	p.lightUV = append(p.lightUV, [2]float32{float32(v.Texel.Z), float32(v.Texel.W)})
}

// Draw implements TriangleSink.
func (p *primitiveBuilder) Draw(v0, v1, v2 *render.Vertex) {
	p.add(v0)
	p.add(v1)
	p.add(v2)
}

// ExportGLTF writes every drawable face of lvl as a binary glTF (GLB).
// Patches are tessellated the same way Renderer draws them. There is one
// primitive per surface, each with a material named after the surface, and
// the light map coordinates are stored as TEXCOORD_1.
func ExportGLTF(w io.Writer, lvl *Level) error {
	prims := make(map[int]*primitiveBuilder)
	var grid PatchGrid

	for i := range lvl.Faces {
		f := &lvl.Faces[i]
		if f.Kind != FacePolygon && f.Kind != FacePatch {
			continue
		}
		pb, ok := prims[f.Texture]
		if !ok {
			pb = new(primitiveBuilder)
			prims[f.Texture] = pb
		}
		switch f.Kind {
		case FacePolygon:
			vs := lvl.Vertices[f.FirstVertex:]
			idx := lvl.Indices[f.FirstIndex : f.FirstIndex+f.NumIndices]
			for k := 0; k+2 < len(idx); k += 3 {
				pb.Draw(&vs[idx[k]], &vs[idx[k+1]], &vs[idx[k+2]])
			}
		case FacePatch:
			wide, high := PatchBlocks(f)
			for by := range high {
				for bx := range wide {
					lvl.Tessellate(&grid, f, bx, by)
					grid.Emit(pb)
				}
			}
		}
	}
	if len(prims) == 0 {
		return fmt.Errorf("export gltf: level has no drawable faces")
	}

	doc := gltf.NewDocument()
	mesh := &gltf.Mesh{Name: "level"}
	for _, tex := range slices.Sorted(maps.Keys(prims)) {
		pb := prims[tex]
		doc.Materials = append(doc.Materials, &gltf.Material{Name: surfaceName(lvl, tex)})
		mesh.Primitives = append(mesh.Primitives, &gltf.Primitive{
			Indices: gltf.Index(modeler.WriteIndices(doc, pb.indices)),
			Attributes: map[string]int{
				gltf.POSITION:   modeler.WritePosition(doc, pb.positions),
				gltf.TEXCOORD_0: modeler.WriteTextureCoord(doc, pb.surfaceUV),
				gltf.TEXCOORD_1: modeler.WriteTextureCoord(doc, pb.lightUV),
			},
			Material: gltf.Index(len(doc.Materials) - 1),
		})
	}
	doc.Meshes = []*gltf.Mesh{mesh}
	doc.Nodes = []*gltf.Node{{Name: "level", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("export gltf: %w", err)
	}
	Logger().Debug("exported level", "primitives", len(mesh.Primitives), "faces", len(lvl.Faces))
	return nil
}

func surfaceName(lvl *Level, id int) string {
	if id >= 0 && id < len(lvl.Surfaces) && lvl.Surfaces[id].Name != "" {
		return lvl.Surfaces[id].Name
	}
	return fmt.Sprintf("surface%d", id)
}
