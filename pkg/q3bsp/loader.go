// Package q3bsp loads Quake III Arena IBSP (version 46) maps into a
// level.Level.
//
// Coordinates are converted from the file's Z-up frame to the left-handed
// Y-up frame used by the renderer by swapping Y and Z.
package q3bsp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/taigrr/bspview/pkg/level"
	"github.com/taigrr/bspview/pkg/math3d"
	"github.com/taigrr/bspview/pkg/render"
)

var (
	ErrBadMagic   = errors.New("q3bsp: not an IBSP file")
	ErrBadVersion = errors.New("q3bsp: unsupported version")
	ErrLumpRange  = errors.New("q3bsp: lump out of range")
)

// Map is a loaded level plus its entities.
type Map struct {
	*level.Level
	Entities []*Entity
}

// SpawnPoints returns the origins of all player start entities.
func (m *Map) SpawnPoints() []math3d.Vec3 {
	var pts []math3d.Vec3
	for _, e := range m.Entities {
		switch e.ClassName() {
		case "info_player_deathmatch", "info_player_start":
			if p, err := e.Origin(); err == nil {
				pts = append(pts, p)
			}
		}
	}
	return pts
}

// Loader reads IBSP files.
type Loader struct {
	// TextureDir is searched for <name><ext> for every surface. Empty
	// disables texture loading; faces then use render.DefaultColorMap.
	TextureDir string
	// TextureExts are tried in order.
	TextureExts []string
	// TextureSize is the edge length textures are rescaled to. Must be a
	// power of two.
	TextureSize int
	// TextureFilter is applied to loaded color maps. Light maps are always
	// bilinear.
	TextureFilter render.FilterMode
}

// NewLoader creates a loader with default options.
func NewLoader() *Loader {
	return &Loader{
		TextureExts: []string{".jpg", ".jpeg", ".png"},
		TextureSize: 256,
	}
}

// Load reads and parses the map at path.
func (l *Loader) Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	m, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return m, nil
}

// Parse decodes an in-memory IBSP file.
func (l *Loader) Parse(data []byte) (*Map, error) {
	var h header
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if h.Magic != bspMagic {
		return nil, ErrBadMagic
	}
	if h.Version != bspVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, h.Version)
	}

	r := lumpReader{data: data, lumps: &h.Lumps}
	textures := readLump[texture](&r, lumpTextures)
	planes := readLump[plane](&r, lumpPlanes)
	nodes := readLump[node](&r, lumpNodes)
	leaves := readLump[leaf](&r, lumpLeafs)
	leafFaces := readLump[int32](&r, lumpLeafFaces)
	leafBrushes := readLump[int32](&r, lumpLeafBrushes)
	brushes := readLump[brush](&r, lumpBrushes)
	brushSides := readLump[brushSide](&r, lumpBrushSides)
	vertices := readLump[vertex](&r, lumpVertexes)
	meshVerts := readLump[int32](&r, lumpMeshVerts)
	faces := readLump[face](&r, lumpFaces)
	lightMaps := readLump[lightMap](&r, lumpLightMaps)
	vis := r.visibility()
	entities := r.bytes(lumpEntities)
	if r.err != nil {
		return nil, r.err
	}

	lvl := &level.Level{
		Surfaces:    make([]level.Surface, len(textures)),
		Planes:      make([]math3d.Vec4, len(planes)),
		Nodes:       make([]level.Node, len(nodes)),
		Leaves:      make([]level.Leaf, len(leaves)),
		LeafFaces:   toInts(leafFaces),
		LeafBrushes: toInts(leafBrushes),
		Brushes:     make([]level.Brush, len(brushes)),
		BrushSides:  make([]level.BrushSide, len(brushSides)),
		Vertices:    make([]render.Vertex, len(vertices)),
		Indices:     toInts(meshVerts),
		Faces:       make([]level.Face, len(faces)),
		Vis:         vis,
	}
	for i, t := range textures {
		lvl.Surfaces[i] = level.Surface{
			Name:     cString(t.Name[:]),
			Flags:    int(t.Flags),
			Contents: int(t.Contents),
		}
	}
	for i, p := range planes {
		lvl.Planes[i] = math3d.Plane(swizzle(p.Normal), float64(p.Dist))
	}
	for i, n := range nodes {
		lvl.Nodes[i] = level.Node{
			Plane: int(n.Plane),
			Front: level.DecodeChild(n.Children[0]),
			Back:  level.DecodeChild(n.Children[1]),
		}
	}
	for i, lf := range leaves {
		lvl.Leaves[i] = level.Leaf{
			Cluster:    int(lf.Cluster),
			FirstFace:  int(lf.LeafFace),
			NumFaces:   int(lf.NLeafFaces),
			FirstBrush: int(lf.LeafBrush),
			NumBrushes: int(lf.NLeafBrushs),
			Bounds:     math3d.NewAABB(swizzleInt(lf.Mins), swizzleInt(lf.Maxs)),
		}
	}
	for i, b := range brushes {
		lvl.Brushes[i] = level.Brush{
			FirstSide: int(b.BrushSide),
			NumSides:  int(b.NBrushSide),
			Texture:   int(b.Texture),
		}
	}
	for i, s := range brushSides {
		lvl.BrushSides[i] = level.BrushSide{Plane: int(s.Plane), Texture: int(s.Texture)}
	}
	for i, v := range vertices {
		lvl.Vertices[i] = render.V(swizzle(v.Position),
			float64(v.TexCoord[0][0]), float64(v.TexCoord[0][1]),
			float64(v.TexCoord[1][0]), float64(v.TexCoord[1][1]))
	}
	for i, f := range faces {
		lvl.Faces[i] = convertFace(&f)
	}

	if err := lvl.Validate(); err != nil {
		return nil, fmt.Errorf("invalid map: %w", err)
	}

	lvl.LightMaps = make([]render.Sampler, len(lightMaps))
	for i := range lightMaps {
		tex, err := lightMapTexture(&lightMaps[i])
		if err != nil {
			return nil, fmt.Errorf("light map %d: %w", i, err)
		}
		lvl.LightMaps[i] = tex
	}
	lvl.ColorMaps = l.loadTextures(lvl.Surfaces)

	m := &Map{Level: lvl, Entities: parseEntities(entities)}
	level.Logger().Info("loaded map",
		"nodes", len(lvl.Nodes),
		"leaves", len(lvl.Leaves),
		"faces", len(lvl.Faces),
		"brushes", len(lvl.Brushes),
		"clusters", vis.NumClusters,
		"lightmaps", len(lightMaps),
		"entities", len(m.Entities))
	return m, nil
}

func convertFace(f *face) level.Face {
	out := level.Face{
		Texture:     int(f.Texture),
		LightMap:    int(f.LMIndex),
		FirstVertex: int(f.Vertex),
		NumVertices: int(f.NVertexes),
	}
	switch f.Type {
	case facePolygon, faceMesh:
		out.Kind = level.FacePolygon
		out.FirstIndex = int(f.MeshVert)
		out.NumIndices = int(f.NMeshVerts)
	case facePatch:
		out.Kind = level.FacePatch
		out.PatchWidth = int(f.Size[0])
		out.PatchHeight = int(f.Size[1])
	default:
		out.Kind = level.FaceOther
	}
	return out
}

// loadTextures resolves a color map for every surface. Surfaces sharing a
// name share the texture; missing images are left nil.
func (l *Loader) loadTextures(surfaces []level.Surface) []render.Sampler {
	maps := make([]render.Sampler, len(surfaces))
	if l.TextureDir == "" {
		return maps
	}
	cache := make(map[string]render.Sampler)
	missing := 0
	for i, s := range surfaces {
		if tex, ok := cache[s.Name]; ok {
			maps[i] = tex
			continue
		}
		tex := l.loadTexture(s.Name)
		if tex == nil {
			missing++
			cache[s.Name] = nil
			continue
		}
		cache[s.Name] = tex
		maps[i] = tex
	}
	level.Logger().Info("loaded textures", "surfaces", len(surfaces), "missing", missing)
	return maps
}

func (l *Loader) loadTexture(name string) render.Sampler {
	base := filepath.Join(l.TextureDir, filepath.FromSlash(name))
	for _, ext := range l.TextureExts {
		path := base + ext
		if _, err := os.Stat(path); err != nil {
			continue
		}
		tex, err := render.LoadTexture(path, l.TextureSize)
		if err != nil {
			level.Logger().Warn("texture unusable", "path", path, "err", err)
			continue
		}
		tex.Filter = l.TextureFilter
		return tex
	}
	level.Logger().Debug("texture not found", "name", name)
	return nil
}

// lightMapTexture converts a raw light map to a texture. Each texel is
// brightened by a gamma of 2.7/255 and then scaled down as a whole, so hue
// is kept when a channel would overflow.
func lightMapTexture(lm *lightMap) (*render.Texture, error) {
	const gamma = 2.7 / 255
	tex, err := render.NewTexture(lightMapSize)
	if err != nil {
		return nil, err
	}
	for y := range lightMapSize {
		for x := range lightMapSize {
			c := lm[y][x]
			r := gamma * float64(c[0])
			g := gamma * float64(c[1])
			b := gamma * float64(c[2])
			scale := 1.0
			if m := max(r, g, b); m > 1 {
				scale = 1 / m
			}
			scale *= 255
			tex.SetPixel(x, y, render.PackRGB(uint8(r*scale), uint8(g*scale), uint8(b*scale)))
		}
	}
	return tex, nil
}

// lumpReader reads lumps from the file, remembering the first error.
type lumpReader struct {
	data  []byte
	lumps *[numLumps]directory
	err   error
}

func (r *lumpReader) bytes(i int) []byte {
	if r.err != nil {
		return nil
	}
	d := r.lumps[i]
	off, n := int(d.Offset), int(d.Length)
	if off < 0 || n < 0 || off > len(r.data) || n > len(r.data)-off {
		r.err = fmt.Errorf("%w: lump %d at %d+%d, file is %d bytes", ErrLumpRange, i, off, n, len(r.data))
		return nil
	}
	return r.data[off : off+n]
}

// readLump decodes lump i as a packed array of T. Trailing bytes that do
// not form a whole record are ignored.
func readLump[T any](r *lumpReader, i int) []T {
	b := r.bytes(i)
	if r.err != nil {
		return nil
	}
	var zero T
	size := binary.Size(zero)
	out := make([]T, len(b)/size)
	if len(out) == 0 {
		return out
	}
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, out); err != nil {
		r.err = fmt.Errorf("read lump %d: %w", i, err)
		return nil
	}
	return out
}

func (r *lumpReader) visibility() level.Visibility {
	b := r.bytes(lumpVisData)
	if r.err != nil || len(b) == 0 {
		return level.Visibility{}
	}
	var hdr struct {
		NumVecs  int32
		SizeVecs int32
	}
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &hdr); err != nil {
		r.err = fmt.Errorf("read visibility: %w", err)
		return level.Visibility{}
	}
	n := int(hdr.NumVecs) * int(hdr.SizeVecs)
	if hdr.NumVecs < 0 || hdr.SizeVecs < 0 || n > len(b)-8 {
		r.err = fmt.Errorf("%w: visibility %dx%d in %d bytes", ErrLumpRange, hdr.NumVecs, hdr.SizeVecs, len(b))
		return level.Visibility{}
	}
	return level.Visibility{
		NumClusters:     int(hdr.NumVecs),
		BytesPerCluster: int(hdr.SizeVecs),
		Bits:            b[8 : 8+n],
	}
}

func swizzle(v [3]float32) math3d.Vec3 {
	return math3d.V3(float64(v[0]), float64(v[2]), float64(v[1]))
}

func swizzleInt(v [3]int32) math3d.Vec3 {
	return math3d.V3(float64(v[0]), float64(v[2]), float64(v[1]))
}

func toInts(in []int32) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
