package render

import (
	"math"

	"github.com/taigrr/bspview/pkg/math3d"
)

// Viewer supplies the matrices the rasterizer is configured with each frame.
type Viewer interface {
	ViewMatrix() math3d.Mat4
	ProjectionMatrix() math3d.Mat4
}

// Camera is an eye looking at a target point in a left-handed, Y-up world.
//
// The view and projection matrices are recomputed on demand; SetPosition,
// LookAt and the projection setters mark them stale.
type Camera struct {
	Position math3d.Vec3
	Target   math3d.Vec3

	// Derived from the view direction by LookAt.
	Pitch float64 // Up/down, positive looks up
	Yaw   float64 // Around Y

	FOV         float64 // Vertical field of view in radians
	AspectRatio float64 // Width / Height
	Near        float64
	Far         float64

	viewMatrix math3d.Mat4
	projMatrix math3d.Mat4
	viewDirty  bool
	projDirty  bool
}

// NewCamera creates a camera at the origin looking down +Z.
func NewCamera() *Camera {
	c := &Camera{
		FOV:         math.Pi / 4,
		AspectRatio: 4.0 / 3.0,
		Near:        10,
		Far:         5000,
		projDirty:   true,
	}
	c.LookAt(math3d.V3(0, 0, 1))
	return c
}

// SetPosition moves the eye and keeps the view direction.
func (c *Camera) SetPosition(pos math3d.Vec3) {
	c.Target = c.Target.Add(pos.Sub(c.Position))
	c.Position = pos
	c.viewDirty = true
}

// LookAt points the camera at target.
func (c *Camera) LookAt(target math3d.Vec3) {
	c.Target = target
	dir := target.Sub(c.Position).Normalize()
	c.Pitch = math.Asin(dir.Y)
	c.Yaw = math.Atan2(-dir.X, -dir.Z)
	c.viewDirty = true
}

// SetFOV sets the vertical field of view (in radians).
func (c *Camera) SetFOV(fov float64) {
	c.FOV = fov
	c.projDirty = true
}

// SetAspectRatio sets the aspect ratio.
func (c *Camera) SetAspectRatio(aspect float64) {
	c.AspectRatio = aspect
	c.projDirty = true
}

// SetClipPlanes sets the near and far clipping distances.
func (c *Camera) SetClipPlanes(near, far float64) {
	c.Near = near
	c.Far = far
	c.projDirty = true
}

// Forward returns the unit view direction for the current yaw and pitch.
func (c *Camera) Forward() math3d.Vec3 {
	return math3d.V3(
		-math.Sin(c.Yaw)*math.Cos(c.Pitch),
		math.Sin(c.Pitch),
		-math.Cos(c.Yaw)*math.Cos(c.Pitch),
	)
}

// Right returns the horizontal unit vector to the right of the view.
func (c *Camera) Right() math3d.Vec3 {
	return math3d.V3(-math.Cos(c.Yaw), 0, math.Sin(c.Yaw))
}

// Rotate turns the camera by the given angles (in radians).
// Pitch is clamped short of straight up and down.
func (c *Camera) Rotate(deltaPitch, deltaYaw float64) {
	const maxPitch = math.Pi/2 - 0.01
	pitch := math.Max(-maxPitch, math.Min(maxPitch, c.Pitch+deltaPitch))
	yaw := c.Yaw + deltaYaw

	dir := math3d.V3(
		-math.Sin(yaw)*math.Cos(pitch),
		math.Sin(pitch),
		-math.Cos(yaw)*math.Cos(pitch),
	)
	c.LookAt(c.Position.Add(dir))
}

// ViewMatrix returns the view matrix, recomputing it if stale.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	if c.viewDirty {
		c.viewMatrix = math3d.LookAt(c.Position, c.Target)
		c.viewDirty = false
	}
	return c.viewMatrix
}

// ProjectionMatrix returns the projection matrix, recomputing it if stale.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	if c.projDirty {
		c.projMatrix = math3d.Perspective(c.FOV, c.AspectRatio, c.Near, c.Far)
		c.projDirty = false
	}
	return c.projMatrix
}
