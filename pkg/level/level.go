// Package level holds the in-memory BSP level and the two engines that walk
// it: Renderer draws the visible faces front to back and Collider sweeps
// spheres against solid brushes.
package level

import (
	"fmt"

	"github.com/taigrr/bspview/pkg/math3d"
	"github.com/taigrr/bspview/pkg/render"
)

// ChildKind tells whether a BSP child reference points at a node or a leaf.
type ChildKind uint8

const (
	ChildNode ChildKind = iota
	ChildLeaf
)

// Child is a reference from a node to one of its children.
type Child struct {
	Kind  ChildKind
	Index int
}

// NodeRef references node i.
func NodeRef(i int) Child { return Child{Kind: ChildNode, Index: i} }

// LeafRef references leaf i.
func LeafRef(i int) Child { return Child{Kind: ChildLeaf, Index: i} }

// DecodeChild converts the on-disk encoding, where negative values
// reference leaf -(ref)-1, into a Child.
func DecodeChild(ref int32) Child {
	if ref < 0 {
		return LeafRef(int(-ref - 1))
	}
	return NodeRef(int(ref))
}

// IsLeaf reports whether c references a leaf.
func (c Child) IsLeaf() bool { return c.Kind == ChildLeaf }

// Node splits space with Planes[Plane]. Front is the side the normal
// points to, including the plane itself.
type Node struct {
	Plane int
	Front Child
	Back  Child
}

// Leaf is a convex region at the bottom of the tree.
type Leaf struct {
	Cluster    int // Visibility cluster, -1 when outside the map
	FirstFace  int // Into LeafFaces
	NumFaces   int
	FirstBrush int // Into LeafBrushes
	NumBrushes int
	Bounds     math3d.AABB
}

// FaceKind tags how a face's geometry is stored.
type FaceKind uint8

const (
	FaceOther   FaceKind = iota // Not drawn (billboards, unknown types)
	FacePolygon                 // Pre-triangulated index list
	FacePatch                   // Biquadratic Bezier control grid
)

// Face is a drawable surface.
//
// Polygons reference NumIndices entries from Indices starting at FirstIndex;
// each entry is an offset from FirstVertex. Patches reference a
// PatchWidth x PatchHeight grid of control points starting at FirstVertex.
type Face struct {
	Kind     FaceKind
	Texture  int
	LightMap int

	FirstVertex int
	NumVertices int
	FirstIndex  int
	NumIndices  int

	PatchWidth  int
	PatchHeight int
}

// Brush is a convex solid bounded by NumSides brush sides.
type Brush struct {
	FirstSide int
	NumSides  int
	Texture   int
}

// BrushSide is one bounding plane of a brush. Normals point out of the brush.
type BrushSide struct {
	Plane   int
	Texture int
}

// ContentsSolid marks surfaces that block movement.
const ContentsSolid = 0x1

// Surface describes a texture entry shared by faces and brushes.
type Surface struct {
	Name     string
	Flags    int
	Contents int
}

// Solid reports whether brushes using this surface block movement.
func (s Surface) Solid() bool {
	return s.Contents&ContentsSolid != 0
}

// Level is an immutable BSP level. Node 0 is the root.
type Level struct {
	Surfaces    []Surface
	Planes      []math3d.Vec4
	Nodes       []Node
	Leaves      []Leaf
	LeafFaces   []int
	LeafBrushes []int
	Brushes     []Brush
	BrushSides  []BrushSide
	Vertices    []render.Vertex
	Indices     []int
	Faces       []Face
	Vis         Visibility

	// Samplers by id. Nil entries and unknown ids use the defaults.
	ColorMaps []render.Sampler
	LightMaps []render.Sampler
}

// ColorMap returns the surface texture for id or render.DefaultColorMap.
func (l *Level) ColorMap(id int) render.Sampler {
	if id >= 0 && id < len(l.ColorMaps) && l.ColorMaps[id] != nil {
		return l.ColorMaps[id]
	}
	return render.DefaultColorMap
}

// LightMap returns the light map for id or render.DefaultLightMap.
func (l *Level) LightMap(id int) render.Sampler {
	if id >= 0 && id < len(l.LightMaps) && l.LightMaps[id] != nil {
		return l.LightMaps[id]
	}
	return render.DefaultLightMap
}

// Root returns the reference traversal starts from. A level without nodes
// is a single leaf.
func (l *Level) Root() Child {
	if len(l.Nodes) == 0 {
		return LeafRef(0)
	}
	return NodeRef(0)
}

// Bounds returns the box around every leaf. It is the zero box for a level
// without leaves.
func (l *Level) Bounds() math3d.AABB {
	if len(l.Leaves) == 0 {
		return math3d.AABB{}
	}
	b := l.Leaves[0].Bounds
	for _, leaf := range l.Leaves[1:] {
		b = b.Extend(leaf.Bounds.Min).Extend(leaf.Bounds.Max)
	}
	return b
}

// Validate checks that every cross reference is in range so the per-frame
// walks can index without checks.
func (l *Level) Validate() error {
	if len(l.Nodes) == 0 && len(l.Leaves) == 0 {
		return fmt.Errorf("level has no nodes or leaves")
	}
	checkChild := func(node int, c Child) error {
		switch {
		case c.Kind == ChildLeaf && (c.Index < 0 || c.Index >= len(l.Leaves)):
			return fmt.Errorf("node %d: leaf %d out of range", node, c.Index)
		case c.Kind == ChildNode && (c.Index <= node || c.Index >= len(l.Nodes)):
			return fmt.Errorf("node %d: child node %d out of range", node, c.Index)
		}
		return nil
	}
	for i, n := range l.Nodes {
		if n.Plane < 0 || n.Plane >= len(l.Planes) {
			return fmt.Errorf("node %d: plane %d out of range", i, n.Plane)
		}
		if err := checkChild(i, n.Front); err != nil {
			return err
		}
		if err := checkChild(i, n.Back); err != nil {
			return err
		}
	}
	for i, lf := range l.Leaves {
		if !inRange(lf.FirstFace, lf.NumFaces, len(l.LeafFaces)) {
			return fmt.Errorf("leaf %d: faces out of range", i)
		}
		if !inRange(lf.FirstBrush, lf.NumBrushes, len(l.LeafBrushes)) {
			return fmt.Errorf("leaf %d: brushes out of range", i)
		}
	}
	for i, f := range l.LeafFaces {
		if f < 0 || f >= len(l.Faces) {
			return fmt.Errorf("leaf face %d: face %d out of range", i, f)
		}
	}
	for i, b := range l.LeafBrushes {
		if b < 0 || b >= len(l.Brushes) {
			return fmt.Errorf("leaf brush %d: brush %d out of range", i, b)
		}
	}
	for i, b := range l.Brushes {
		if !inRange(b.FirstSide, b.NumSides, len(l.BrushSides)) {
			return fmt.Errorf("brush %d: sides out of range", i)
		}
		if b.Texture < 0 || b.Texture >= len(l.Surfaces) {
			return fmt.Errorf("brush %d: surface %d out of range", i, b.Texture)
		}
	}
	for i, s := range l.BrushSides {
		if s.Plane < 0 || s.Plane >= len(l.Planes) {
			return fmt.Errorf("brush side %d: plane %d out of range", i, s.Plane)
		}
	}
	for i, f := range l.Faces {
		if err := l.validateFace(f); err != nil {
			return fmt.Errorf("face %d: %w", i, err)
		}
	}
	return nil
}

func (l *Level) validateFace(f Face) error {
	switch f.Kind {
	case FacePolygon:
		if f.NumIndices%3 != 0 || !inRange(f.FirstIndex, f.NumIndices, len(l.Indices)) {
			return fmt.Errorf("indices out of range")
		}
		for _, idx := range l.Indices[f.FirstIndex : f.FirstIndex+f.NumIndices] {
			if v := f.FirstVertex + idx; v < 0 || v >= len(l.Vertices) {
				return fmt.Errorf("vertex %d out of range", v)
			}
		}
	case FacePatch:
		if f.PatchWidth < 3 || f.PatchHeight < 3 || f.PatchWidth%2 == 0 || f.PatchHeight%2 == 0 {
			return fmt.Errorf("bad patch size %dx%d", f.PatchWidth, f.PatchHeight)
		}
		if !inRange(f.FirstVertex, f.PatchWidth*f.PatchHeight, len(l.Vertices)) {
			return fmt.Errorf("patch control points out of range")
		}
	}
	return nil
}

func inRange(first, n, length int) bool {
	return first >= 0 && n >= 0 && first+n <= length
}
