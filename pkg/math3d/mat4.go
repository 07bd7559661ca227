package math3d

import "math"

// Mat4 is a 4x4 matrix stored in row-major order.
//
// Memory layout (indices):
// | 0  1  2  3  |
// | 4  5  6  7  |
// | 8  9  10 11 |
// | 12 13 14 15 |
//
// Translation lives in the last column (indices 3, 7, 11).
type Mat4 [16]float64

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// LookAt creates a left-handed view matrix for an eye looking at target with
// world Y as up. View-space X points right, Y points down the screen and Z
// into the scene, so no flip is needed in the viewport transform.
// The eye must not look straight up or down.
func LookAt(eye, target Vec3) Mat4 {
	f := target.Sub(eye).Normalize()

	// Right vector stays in the horizontal plane.
	s := 1 / math.Sqrt(f.X*f.X+f.Z*f.Z)
	rx, rz := f.Z*s, -f.X*s

	// Down vector completes the basis.
	dx := -rz * f.Y
	dy := rz*f.X - rx*f.Z
	dz := rx * f.Y

	return Mat4{
		rx, 0, rz, -(eye.X*rx + eye.Z*rz),
		dx, dy, dz, -(eye.X*dx + eye.Y*dy + eye.Z*dz),
		f.X, f.Y, f.Z, -eye.Dot(f),
		0, 0, 0, 1,
	}
}

// Perspective creates a left-handed perspective projection that maps view
// depth near..far onto [0,1] and copies view Z into W.
func Perspective(fovy, aspect, near, far float64) Mat4 {
	f := 1 / math.Tan(fovy/2)
	q := far / (far - near)
	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, q, -q * near,
		0, 0, 1, 0,
	}
}

// Viewport maps normalized device X/Y in [-1,1] onto pixel centers of a
// width x height buffer.
func Viewport(width, height int) Mat4 {
	hw, hh := float64(width)/2, float64(height)/2
	return Mat4{
		hw, 0, 0, hw - 0.5,
		0, hh, 0, hh - 0.5,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns the matrix product a * b.
func (a Mat4) Mul(b Mat4) Mat4 {
	var m Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			m[r*4+c] = a[r*4]*b[c] + a[r*4+1]*b[4+c] + a[r*4+2]*b[8+c] + a[r*4+3]*b[12+c]
		}
	}
	return m
}

// MulVec4 transforms the homogeneous vector v.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		m[0]*v.X + m[1]*v.Y + m[2]*v.Z + m[3]*v.W,
		m[4]*v.X + m[5]*v.Y + m[6]*v.Z + m[7]*v.W,
		m[8]*v.X + m[9]*v.Y + m[10]*v.Z + m[11]*v.W,
		m[12]*v.X + m[13]*v.Y + m[14]*v.Z + m[15]*v.W,
	}
}

// Project transforms v and divides X, Y and Z by the resulting W.
// W itself is kept so perspective-correct interpolation can use 1/W.
func (m Mat4) Project(v Vec4) Vec4 {
	t := m.MulVec4(v)
	inv := 1 / t.W
	return Vec4{t.X * inv, t.Y * inv, t.Z * inv, t.W}
}

// Row returns row i as a Vec4.
func (m Mat4) Row(i int) Vec4 {
	return Vec4{m[i*4], m[i*4+1], m[i*4+2], m[i*4+3]}
}
