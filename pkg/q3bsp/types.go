package q3bsp

// On-disk records of an IBSP version 46 file. All values are little endian.

const (
	lumpEntities = iota
	lumpTextures
	lumpPlanes
	lumpNodes
	lumpLeafs
	lumpLeafFaces
	lumpLeafBrushes
	lumpModels
	lumpBrushes
	lumpBrushSides
	lumpVertexes
	lumpMeshVerts
	lumpEffects
	lumpFaces
	lumpLightMaps
	lumpLightVols
	lumpVisData
	numLumps
)

const (
	bspVersion   = 46
	lightMapSize = 128
)

var bspMagic = [4]byte{'I', 'B', 'S', 'P'}

// called lump_t in the map compiler
type directory struct {
	Offset int32
	Length int32
}

type header struct {
	Magic   [4]byte
	Version int32
	Lumps   [numLumps]directory
}

type texture struct {
	Name     [64]byte
	Flags    int32
	Contents int32
}

type plane struct {
	Normal [3]float32
	Dist   float32
}

type node struct {
	Plane    int32
	Children [2]int32 // Front, back. Negative means leaf -(c)-1
	Mins     [3]int32
	Maxs     [3]int32
}

type leaf struct {
	Cluster     int32
	Area        int32
	Mins        [3]int32
	Maxs        [3]int32
	LeafFace    int32
	NLeafFaces  int32
	LeafBrush   int32
	NLeafBrushs int32
}

type brush struct {
	BrushSide  int32
	NBrushSide int32
	Texture    int32
}

type brushSide struct {
	Plane   int32
	Texture int32
}

type vertex struct {
	Position [3]float32
	TexCoord [2][2]float32 // Surface, lightmap
	Normal   [3]float32
	Color    [4]uint8
}

// Face types.
const (
	facePolygon = iota + 1
	facePatch
	faceMesh
	faceBillboard
)

type face struct {
	Texture    int32
	Effect     int32
	Type       int32
	Vertex     int32
	NVertexes  int32
	MeshVert   int32
	NMeshVerts int32
	LMIndex    int32
	LMStart    [2]int32
	LMSize     [2]int32
	LMOrigin   [3]float32
	LMVecs     [2][3]float32
	Normal     [3]float32
	Size       [2]int32 // Patch control grid
}

type lightMap [lightMapSize][lightMapSize][3]uint8
