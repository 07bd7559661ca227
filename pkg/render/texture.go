package render

import (
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math/bits"
	"os"

	"golang.org/x/image/draw"
)

// Sampler returns a packed ARGB color for texture coordinates (u, v).
// Coordinates are in texture repeats: 1.0 spans the whole texture once.
type Sampler interface {
	Sample(u, v float64) uint32
}

// SamplerFunc adapts a function to the Sampler interface.
type SamplerFunc func(u, v float64) uint32

// Sample calls f(u, v).
func (f SamplerFunc) Sample(u, v float64) uint32 {
	return f(u, v)
}

// Default samplers for faces whose texture or light map is missing.
var (
	DefaultColorMap Sampler = SamplerFunc(checker)
	DefaultLightMap Sampler = SamplerFunc(func(u, v float64) uint32 { return 0xFFFFFFFF })
)

func checker(u, v float64) uint32 {
	if (int(u*8)+int(v*8))&1 == 1 {
		return 0xFFFFFFFF
	}
	return 0xFF7F7F7F
}

// FilterMode determines how texture sampling is performed.
type FilterMode int

const (
	FilterBilinear FilterMode = iota // 8-bit fixed point bilinear
	FilterNearest                    // Nearest texel
)

// Texture is a square power-of-two grid of packed ARGB texels.
// Coordinates wrap around in both directions.
type Texture struct {
	Size   int
	Pixels []uint32 // Row-major texel data
	Filter FilterMode

	shift uint // log2(Size)
	mask  int  // Size - 1
}

// NewTexture creates an empty size x size texture.
// size must be a power of two.
func NewTexture(size int) (*Texture, error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, fmt.Errorf("texture size %d is not a power of two", size)
	}
	return &Texture{
		Size:   size,
		Pixels: make([]uint32, size*size),
		shift:  uint(bits.TrailingZeros(uint(size))),
		mask:   size - 1,
	}, nil
}

// LoadTexture decodes a PNG or JPEG file and rescales it to size x size.
func LoadTexture(path string, size int) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return TextureFromImage(img, size)
}

// TextureFromImage rescales img to a size x size texture.
func TextureFromImage(img image.Image, size int) (*Texture, error) {
	tex, err := NewTexture(size)
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	for i := range tex.Pixels {
		p := dst.Pix[i*4 : i*4+4 : i*4+4]
		tex.Pixels[i] = uint32(p[3])<<24 | uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
	}
	return tex, nil
}

// NewCheckerTexture creates a procedural checkerboard texture.
func NewCheckerTexture(size, checkSize int, c1, c2 uint32) (*Texture, error) {
	tex, err := NewTexture(size)
	if err != nil {
		return nil, err
	}
	for y := range size {
		for x := range size {
			if (x/checkSize+y/checkSize)%2 == 0 {
				tex.SetPixel(x, y, c1)
			} else {
				tex.SetPixel(x, y, c2)
			}
		}
	}
	return tex, nil
}

// SetPixel sets the texel at (x, y), wrapping coordinates.
func (t *Texture) SetPixel(x, y int, c uint32) {
	t.Pixels[(y&t.mask)<<t.shift|x&t.mask] = c
}

// GetPixel returns the texel at (x, y), wrapping coordinates.
func (t *Texture) GetPixel(x, y int) uint32 {
	return t.Pixels[(y&t.mask)<<t.shift|x&t.mask]
}

// Sample returns the filtered color at (u, v).
// Texel centers sit at half-integer positions, so (0.5/Size, 0.5/Size)
// returns texel (0, 0) exactly.
func (t *Texture) Sample(u, v float64) uint32 {
	size := float64(t.Size)
	u8 := int(256 * (u*size - 0.5))
	v8 := int(256 * (v*size - 0.5))

	x0 := (u8 >> 8) & t.mask
	y0 := (v8 >> 8) & t.mask

	if t.Filter == FilterNearest {
		x0 = ((u8 + 128) >> 8) & t.mask
		y0 = ((v8 + 128) >> 8) & t.mask
		return t.Pixels[y0<<t.shift|x0]
	}

	x1 := (x0 + 1) & t.mask
	row0 := y0 << t.shift
	row1 := ((y0 + 1) & t.mask) << t.shift

	tu := uint32(u8 & 0xFF)
	tv := uint32(v8 & 0xFF)

	w1 := (256 - tu) * (256 - tv) >> 8
	w2 := tu * tv >> 8
	w3 := tu - w2
	w4 := tv - w2

	a := t.Pixels[row0|x0]
	b := t.Pixels[row0|x1]
	c := t.Pixels[row1|x0]
	d := t.Pixels[row1|x1]

	// Blend red/blue and alpha/green as two 16-bit lanes.
	rb := (a&0x00FF00FF)*w1 + (b&0x00FF00FF)*w3 + (c&0x00FF00FF)*w4 + (d&0x00FF00FF)*w2
	ag := (a>>8&0x00FF00FF)*w1 + (b>>8&0x00FF00FF)*w3 + (c>>8&0x00FF00FF)*w4 + (d>>8&0x00FF00FF)*w2

	return (rb>>8)&0x00FF00FF | ag&0xFF00FF00
}
