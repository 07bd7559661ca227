package math3d

import "math"

// Vec4 is either a homogeneous point (W is the weight) or a plane, in which
// case (X, Y, Z) is the unit normal and W the signed distance of the plane
// from the origin along that normal.
type Vec4 struct {
	X, Y, Z, W float64
}

// V4 creates a new Vec4.
func V4(x, y, z, w float64) Vec4 {
	return Vec4{x, y, z, w}
}

// Plane builds a plane from a normal and its distance from the origin.
func Plane(normal Vec3, dist float64) Vec4 {
	return Vec4{normal.X, normal.Y, normal.Z, dist}
}

// Vec3 returns the XYZ components (the normal, for a plane).
func (v Vec4) Vec3() Vec3 {
	return Vec3{v.X, v.Y, v.Z}
}

// Add returns the component-wise sum a + b.
func (a Vec4) Add(b Vec4) Vec4 {
	return Vec4{a.X + b.X, a.Y + b.Y, a.Z + b.Z, a.W + b.W}
}

// Sub returns the component-wise difference a - b.
func (a Vec4) Sub(b Vec4) Vec4 {
	return Vec4{a.X - b.X, a.Y - b.Y, a.Z - b.Z, a.W - b.W}
}

// Scale multiplies every component by s.
func (v Vec4) Scale(s float64) Vec4 {
	return Vec4{v.X * s, v.Y * s, v.Z * s, v.W * s}
}

// Dot returns the four-component dot product.
func (a Vec4) Dot(b Vec4) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W
}

// Lerp interpolates all four components between a and b by t.
func (a Vec4) Lerp(b Vec4, t float64) Vec4 {
	return Vec4{
		a.X + (b.X-a.X)*t,
		a.Y + (b.Y-a.Y)*t,
		a.Z + (b.Z-a.Z)*t,
		a.W + (b.W-a.W)*t,
	}
}

// Side returns the signed distance of the point p from plane v.
// Positive values lie on the side the normal points to.
func (v Vec4) Side(p Vec4) float64 {
	return v.X*p.X + v.Y*p.Y + v.Z*p.Z - v.W
}

// Distance is Side for a Vec3 point.
func (v Vec4) Distance(p Vec3) float64 {
	return v.X*p.X + v.Y*p.Y + v.Z*p.Z - v.W
}

// Intersect returns the edge-crossing parameter t in [0,1] at which the
// segment a→b meets plane v. The caller guarantees the segment crosses it.
func (v Vec4) Intersect(a, b Vec4) float64 {
	d := (b.X-a.X)*v.X + (b.Y-a.Y)*v.Y + (b.Z-a.Z)*v.Z
	return -v.Side(a) / d
}

// NormalizePlane rescales a plane given as (a, b, c, d) with a·x+b·y+c·z+d
// so that its normal is unit length. The distance is kept in W.
func (v Vec4) NormalizePlane() Vec4 {
	l := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	if l == 0 {
		return v
	}
	return Vec4{v.X / l, v.Y / l, v.Z / l, v.W / l}
}
