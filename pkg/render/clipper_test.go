package render

import (
	"math"
	"math/rand"
	"testing"

	"github.com/taigrr/bspview/pkg/math3d"
)

func testClipper() *Clipper {
	cam := NewCamera()
	var c Clipper
	c.Configure(cam.ProjectionMatrix().Mul(cam.ViewMatrix()))
	return &c
}

func tv(x, y, z, u, v float64) Vertex {
	return V(math3d.V3(x, y, z), u, v, u*2, v*2)
}

func TestComputeMask(t *testing.T) {
	c := testClipper() // near 10, far 5000, looking down +Z

	tests := []struct {
		name string
		tri  [3]Vertex
		want int
	}{
		{
			"fully inside",
			[3]Vertex{tv(-10, -10, 100, 0, 0), tv(0, 10, 100, 0, 1), tv(10, -10, 100, 1, 0)},
			0,
		},
		{
			"behind the camera",
			[3]Vertex{tv(-10, -10, -100, 0, 0), tv(0, 10, -100, 0, 1), tv(10, -10, -100, 1, 0)},
			ClipReject,
		},
		{
			"beyond far",
			[3]Vertex{tv(-10, -10, 6000, 0, 0), tv(0, 10, 6000, 0, 1), tv(10, -10, 6000, 1, 0)},
			ClipReject,
		},
		{
			"crosses near",
			[3]Vertex{tv(-1, -1, 5, 0, 0), tv(0, 1, 100, 0, 1), tv(1, -1, 100, 1, 0)},
			1 << FrustumNear,
		},
		{
			"crosses left and right",
			[3]Vertex{tv(-1000, 0, 100, 0, 0), tv(0, 1, 100, 0, 1), tv(1000, 0, 100, 1, 0)},
			1<<FrustumLeft | 1<<FrustumRight,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := c.ComputeMask(&tc.tri[0], &tc.tri[1], &tc.tri[2])
			if got != tc.want {
				t.Errorf("ComputeMask = %#x, want %#x", got, tc.want)
			}
		})
	}
}

// signedArea2D is twice the signed area of a polygon in the XY plane.
func signedArea2D(pts []math3d.Vec4) float64 {
	a := 0.0
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a
}

func TestClipSinglePlane(t *testing.T) {
	var c Clipper
	// Keep x >= 0: outward normal -X through the origin.
	c.frustum.Planes[FrustumLeft] = math3d.Plane(math3d.V3(-1, 0, 0), 0)

	a := tv(-1, 0, 0, 0, 0)
	b := tv(1, 0, 0, 1, 0)
	d := tv(1, 2, 0, 1, 1)

	if c.Clip(&a, &b, &d, 1<<FrustumLeft) {
		t.Fatal("polygon clipped away, want quad")
	}
	if c.Len() != 4 {
		t.Fatalf("Len = %d, want 4", c.Len())
	}

	got := make([]math3d.Vec4, c.Len())
	for i := range got {
		got[i] = c.Vertex(i).Coord
		if got[i].X < -1e-12 {
			t.Errorf("vertex %d outside plane: %v", i, got[i])
		}
	}

	// Winding is preserved.
	orig := signedArea2D([]math3d.Vec4{a.Coord, b.Coord, d.Coord})
	if clipped := signedArea2D(got); math.Signbit(orig) != math.Signbit(clipped) {
		t.Errorf("winding flipped: original %v, clipped %v", orig, clipped)
	}

	// Crossing vertices are exact affine interpolations.
	want := []struct {
		from, to *Vertex
		t        float64
	}{
		{&d, &a, 0.5}, // on edge d->a at x=0
		{&b, &a, 0.5}, // on edge b->a at x=0
	}
	for i, w := range want {
		var ref Vertex
		ref.lerp(w.from, w.to, w.t)
		v := c.Vertex(i)
		if !vec4Near(v.Coord, ref.Coord, 1e-12) || !vec4Near(v.Texel, ref.Texel, 1e-12) {
			t.Errorf("vertex %d = %+v, want %+v", i, *v, ref)
		}
	}
	if *c.Vertex(2) != b || *c.Vertex(3) != d {
		t.Errorf("inside vertices not carried through unchanged")
	}
}

func TestClipAway(t *testing.T) {
	var c Clipper
	c.frustum.Planes[FrustumLeft] = math3d.Plane(math3d.V3(-1, 0, 0), 0)

	a := tv(-3, 0, 0, 0, 0)
	b := tv(-1, 0, 0, 1, 0)
	d := tv(-2, 2, 0, 1, 1)
	if !c.Clip(&a, &b, &d, 1<<FrustumLeft) {
		t.Errorf("triangle left of plane should clip away, got %d vertices", c.Len())
	}
}

func TestClipCapacity(t *testing.T) {
	c := testClipper()
	rng := rand.New(rand.NewSource(7))

	rnd := func() Vertex {
		return tv(rng.Float64()*20000-10000, rng.Float64()*20000-10000, rng.Float64()*12000-6000, rng.Float64(), rng.Float64())
	}

	clipped := 0
	for range 5000 {
		v0, v1, v2 := rnd(), rnd(), rnd()
		mask := c.ComputeMask(&v0, &v1, &v2)
		if mask == ClipReject || mask == 0 {
			continue
		}
		clipped++
		if c.Clip(&v0, &v1, &v2, mask) {
			continue
		}
		if c.Len() > 9 || c.Len() > MaxClipVertices {
			t.Fatalf("clipped polygon has %d vertices", c.Len())
		}
		if c.cursor > clipArenaSize {
			t.Fatalf("arena overflow: %d allocations", c.cursor)
		}
		for i := range c.Len() {
			p := c.Vertex(i).Coord
			for j, pl := range c.frustum.Planes {
				if mask&(1<<j) != 0 && pl.Side(p) > 1e-6*math.Max(1, math.Abs(pl.W)) {
					t.Fatalf("vertex %v outside plane %d by %v", p, j, pl.Side(p))
				}
			}
		}
	}
	if clipped == 0 {
		t.Fatal("no triangle exercised the clipper")
	}
}

func vec4Near(a, b math3d.Vec4, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol && math.Abs(a.W-b.W) <= tol
}
