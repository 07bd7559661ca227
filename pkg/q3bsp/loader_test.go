package q3bsp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/taigrr/bspview/pkg/level"
	"github.com/taigrr/bspview/pkg/math3d"
	"github.com/taigrr/bspview/pkg/render"
)

// bspBuilder assembles an IBSP file from lump contents.
type bspBuilder struct {
	version int32
	lumps   [numLumps][]byte
}

func (b *bspBuilder) set(t testing.TB, lump int, v any) {
	t.Helper()
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		t.Fatalf("encode lump %d: %v", lump, err)
	}
	b.lumps[lump] = buf.Bytes()
}

func (b *bspBuilder) bytes(t testing.TB) []byte {
	t.Helper()
	h := header{Magic: bspMagic, Version: b.version}
	off := binary.Size(h)
	var body bytes.Buffer
	for i, l := range b.lumps {
		h.Lumps[i] = directory{Offset: int32(off + body.Len()), Length: int32(len(l))}
		body.Write(l)
	}
	var out bytes.Buffer
	if err := binary.Write(&out, binary.LittleEndian, h); err != nil {
		t.Fatal(err)
	}
	out.Write(body.Bytes())
	return out.Bytes()
}

func name64(s string) [64]byte {
	var b [64]byte
	copy(b[:], s)
	return b
}

// testMap builds a two-leaf map in the file's Z-up frame: a triangle, a
// 3x3 patch and a billboard in leaf 0, a one-sided brush, one light map
// and two clusters of which only cluster 1 sees cluster 0.
func testMap(t testing.TB) *bspBuilder {
	b := &bspBuilder{version: bspVersion}
	b.set(t, lumpEntities, []byte("{\n\"classname\" \"worldspawn\"\n}\n"+
		"{\n\"classname\" \"info_player_deathmatch\"\n\"origin\" \"10 20 30\"\n\"message\" \"{not a block}\"\n}\n\x00"))
	b.set(t, lumpTextures, []texture{
		{Name: name64("textures/base/floor"), Contents: 1},
		{Name: name64("textures/liquids/water"), Contents: 0x20},
	})
	b.set(t, lumpPlanes, []plane{
		{Normal: [3]float32{1, 0, 0}, Dist: 0},
		{Normal: [3]float32{0, 0, 1}, Dist: 5},
	})
	b.set(t, lumpNodes, []node{{Plane: 0, Children: [2]int32{-1, -2}}})
	b.set(t, lumpLeafs, []leaf{
		{Cluster: 0, Mins: [3]int32{0, -16, -32}, Maxs: [3]int32{8, 16, 32}, NLeafFaces: 3, NLeafBrushs: 1},
		{Cluster: 1, Mins: [3]int32{-8, -16, -32}, Maxs: [3]int32{0, 16, 32}},
	})
	b.set(t, lumpLeafFaces, []int32{0, 1, 2})
	b.set(t, lumpLeafBrushes, []int32{0})
	b.set(t, lumpBrushes, []brush{{BrushSide: 0, NBrushSide: 1, Texture: 0}})
	b.set(t, lumpBrushSides, []brushSide{{Plane: 1, Texture: 0}})

	verts := []vertex{
		{Position: [3]float32{0, 0, 0}},
		{Position: [3]float32{1, 2, 3}, TexCoord: [2][2]float32{{0.25, 0.5}, {0.125, 0.75}}},
		{Position: [3]float32{4, 0, 0}},
	}
	for r := range 3 {
		for c := range 3 {
			verts = append(verts, vertex{Position: [3]float32{float32(c), float32(r), 0}})
		}
	}
	b.set(t, lumpVertexes, verts)
	b.set(t, lumpMeshVerts, []int32{0, 1, 2})
	b.set(t, lumpFaces, []face{
		{Texture: 0, Type: facePolygon, Vertex: 0, NVertexes: 3, MeshVert: 0, NMeshVerts: 3, LMIndex: 0},
		{Texture: 0, Type: facePatch, Vertex: 3, NVertexes: 9, LMIndex: -1, Size: [2]int32{3, 3}},
		{Texture: 1, Type: faceBillboard, Vertex: 0, NVertexes: 1, LMIndex: -1},
	})

	var lm lightMap
	lm[0][0] = [3]uint8{255, 0, 0}
	lm[0][1] = [3]uint8{10, 20, 30}
	b.set(t, lumpLightMaps, []lightMap{lm})

	b.set(t, lumpVisData, struct {
		NumVecs, SizeVecs int32
		Bits              [2]byte
	}{2, 1, [2]byte{0b01, 0b11}})
	return b
}

func TestParse(t *testing.T) {
	m, err := NewLoader().Parse(testMap(t).bytes(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	lvl := m.Level

	if got := lvl.Surfaces[0]; got.Name != "textures/base/floor" || !got.Solid() {
		t.Errorf("surface 0 = %+v", got)
	}
	if lvl.Surfaces[1].Solid() {
		t.Error("water should not be solid")
	}
	if got, want := lvl.Planes[1], math3d.Plane(math3d.V3(0, 1, 0), 5); got != want {
		t.Errorf("plane 1 = %v, want %v (Y and Z swapped)", got, want)
	}
	if n := lvl.Nodes[0]; n.Front != level.LeafRef(0) || n.Back != level.LeafRef(1) {
		t.Errorf("node 0 = %+v", n)
	}
	if got, want := lvl.Leaves[1].Bounds, math3d.NewAABB(math3d.V3(-8, -32, -16), math3d.V3(0, 32, 16)); got != want {
		t.Errorf("leaf 1 bounds = %+v, want %+v", got, want)
	}

	v := lvl.Vertices[1]
	if v.Coord != math3d.V4(1, 3, 2, 1) {
		t.Errorf("vertex 1 at %v, want (1,3,2,1)", v.Coord)
	}
	if v.Texel != math3d.V4(0.25, 0.5, 0.125, 0.75) {
		t.Errorf("vertex 1 texel %v", v.Texel)
	}

	kinds := []level.FaceKind{level.FacePolygon, level.FacePatch, level.FaceOther}
	for i, k := range kinds {
		if lvl.Faces[i].Kind != k {
			t.Errorf("face %d kind %d, want %d", i, lvl.Faces[i].Kind, k)
		}
	}
	if f := lvl.Faces[0]; f.NumIndices != 3 || f.LightMap != 0 {
		t.Errorf("polygon face = %+v", f)
	}
	if f := lvl.Faces[1]; f.PatchWidth != 3 || f.PatchHeight != 3 || f.FirstVertex != 3 {
		t.Errorf("patch face = %+v", f)
	}

	if !lvl.Vis.IsClusterVisible(1, 0) || lvl.Vis.IsClusterVisible(0, 1) {
		t.Errorf("visibility = %+v", lvl.Vis)
	}

	if got := lvl.FindLeaf(math3d.V3(-1, 0, 0)); got != 1 {
		t.Errorf("FindLeaf = %d, want 1", got)
	}

	spawns := m.SpawnPoints()
	if len(spawns) != 1 || spawns[0] != math3d.V3(10, 30, 20) {
		t.Errorf("spawn points = %v, want [(10,30,20)]", spawns)
	}
	if len(m.Entities) != 2 {
		t.Errorf("%d entities, want 2", len(m.Entities))
	}
	if msg, _ := m.Entities[1].Property("message"); msg != "{not a block}" {
		t.Errorf("message = %q", msg)
	}

	if lvl.ColorMaps[0] != nil {
		t.Error("color maps loaded without a texture directory")
	}
}

func TestLightMapConversion(t *testing.T) {
	m, err := NewLoader().Parse(testMap(t).bytes(t))
	if err != nil {
		t.Fatal(err)
	}
	tex, ok := m.LightMaps[0].(*render.Texture)
	if !ok || tex.Size != lightMapSize {
		t.Fatalf("light map 0 = %T", m.LightMaps[0])
	}

	near := func(got color.RGBA, r, g, b int) bool {
		d := func(a uint8, b int) bool { return abs(int(a)-b) <= 1 }
		return got.A == 255 && d(got.R, r) && d(got.G, g) && d(got.B, b)
	}

	// Overbright: rescaled so the brightest channel is 255.
	if got := render.Unpack(tex.GetPixel(0, 0)); !near(got, 255, 0, 0) {
		t.Errorf("texel (0,0) = %v", got)
	}
	// Dim: brightened by the gamma factor 2.7.
	if got := render.Unpack(tex.GetPixel(1, 0)); !near(got, 27, 54, 81) {
		t.Errorf("texel (1,0) = %v", got)
	}
	// Black stays black.
	if got := render.Unpack(tex.GetPixel(5, 5)); !near(got, 0, 0, 0) {
		t.Errorf("texel (5,5) = %v", got)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func TestParseErrors(t *testing.T) {
	valid := testMap(t).bytes(t)

	badVersion := testMap(t)
	badVersion.version = 47

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad magic", append([]byte("VBSP"), valid[4:]...), ErrBadMagic},
		{"bad version", badVersion.bytes(t), ErrBadVersion},
		{"truncated", valid[:len(valid)-100], ErrLumpRange},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader().Parse(tc.data)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := NewLoader().Parse(valid[:20]); err == nil {
		t.Error("short header accepted")
	}

	broken := testMap(t)
	broken.set(t, lumpLeafFaces, []int32{0, 1, 7})
	if _, err := NewLoader().Parse(broken.bytes(t)); err == nil {
		t.Error("out of range face index accepted")
	}
}

func TestLoadWithTextures(t *testing.T) {
	dir := t.TempDir()
	mapPath := filepath.Join(dir, "test.bsp")
	if err := os.WriteFile(mapPath, testMap(t).bytes(t), 0o644); err != nil {
		t.Fatal(err)
	}

	texDir := filepath.Join(dir, "textures", "base")
	if err := os.MkdirAll(texDir, 0o755); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xC0
	}
	f, err := os.Create(filepath.Join(texDir, "floor.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	l := NewLoader()
	l.TextureDir = dir
	l.TextureSize = 16
	m, err := l.Load(mapPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tex, ok := m.ColorMaps[0].(*render.Texture)
	if !ok || tex.Size != 16 {
		t.Fatalf("color map 0 = %T, want a 16x16 texture", m.ColorMaps[0])
	}
	if tex.Filter != render.FilterBilinear {
		t.Errorf("default filter = %v, want bilinear", tex.Filter)
	}
	if m.ColorMaps[1] != nil {
		t.Error("missing water texture should be nil")
	}
	if got := m.ColorMap(1).Sample(0.01, 0.01); got != render.DefaultColorMap.Sample(0.01, 0.01) {
		t.Error("missing texture does not fall back to the default")
	}

	l.TextureFilter = render.FilterNearest
	m, err = l.Load(mapPath)
	if err != nil {
		t.Fatalf("Load nearest: %v", err)
	}
	if tex, ok := m.ColorMaps[0].(*render.Texture); !ok || tex.Filter != render.FilterNearest {
		t.Errorf("color map 0 not switched to nearest filtering")
	}
	if lm, ok := m.LightMaps[0].(*render.Texture); !ok || lm.Filter != render.FilterBilinear {
		t.Errorf("light map filter changed with the color maps")
	}

	if _, err := l.Load(filepath.Join(dir, "missing.bsp")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: err = %v", err)
	}
}

func TestParseEntities(t *testing.T) {
	data := []byte(`{
"classname" "worldspawn"
"message" "a } in a value"
}
{
"classname" "info_player_start"
"origin" "-64 128 24"
}
{
"classname" "light"
"origin" "bad"
}`)
	es := parseEntities(data)
	if len(es) != 3 {
		t.Fatalf("%d entities, want 3", len(es))
	}
	if msg, _ := es[0].Property("message"); msg != "a } in a value" {
		t.Errorf("message = %q", msg)
	}
	p, err := es[1].Origin()
	if err != nil || p != math3d.V3(-64, 24, 128) {
		t.Errorf("origin = %v, %v", p, err)
	}
	if _, err := es[2].Origin(); err == nil {
		t.Error("bad origin parsed")
	}
	if _, err := es[0].Origin(); err == nil {
		t.Error("worldspawn has no origin")
	}
}

func BenchmarkParse(b *testing.B) {
	data := testMap(b).bytes(b)
	l := NewLoader()

	for b.Loop() {
		if _, err := l.Parse(data); err != nil {
			b.Fatal(err)
		}
	}
}
