package main

import (
	"github.com/charmbracelet/harmonica"
	"github.com/taigrr/bspview/pkg/math3d"
	"github.com/taigrr/bspview/pkg/render"
)

// Axis is one movement input smoothed by a spring. Keys set Target and
// Velocity follows it without overshoot.
type Axis struct {
	Target   float64
	Velocity float64
	spring   harmonica.Spring
	accel    float64 // spring velocity of Velocity
}

// NewAxis creates an axis updated fps times per second. Higher frequency
// makes Velocity reach Target sooner.
func NewAxis(fps int, frequency float64) Axis {
	return Axis{
		// Damping 1.0 = critically damped
		spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, 1.0),
	}
}

// Update moves Velocity one frame toward Target.
func (a *Axis) Update() {
	a.Velocity, a.accel = a.spring.Update(a.Velocity, a.accel, a.Target)
}

// Motion holds the fly camera inputs.
type Motion struct {
	Forward, Strafe, Lift Axis // Fractions of the movement speed
	Pitch, Yaw            Axis // Radians per second
	fps                   int
}

func NewMotion(fps int) *Motion {
	return &Motion{
		Forward: NewAxis(fps, 6.0),
		Strafe:  NewAxis(fps, 6.0),
		Lift:    NewAxis(fps, 6.0),
		Pitch:   NewAxis(fps, 8.0),
		Yaw:     NewAxis(fps, 8.0),
		fps:     fps,
	}
}

func (m *Motion) axes() [5]*Axis {
	return [5]*Axis{&m.Forward, &m.Strafe, &m.Lift, &m.Pitch, &m.Yaw}
}

func (m *Motion) Update() {
	for _, a := range m.axes() {
		a.Update()
	}
}

// Release scales every target by decay. Terminals rarely report key
// releases, so held keys are kept alive by key repeat instead.
func (m *Motion) Release(decay float64) {
	for _, a := range m.axes() {
		a.Target *= decay
	}
}

// Stop zeroes all targets and velocities.
func (m *Motion) Stop() {
	*m = *NewMotion(m.fps)
}

// Step turns cam by the look velocities over dt seconds and returns where
// the move velocities would take it. The camera is not moved so the caller
// can run the result through the collider first.
func (m *Motion) Step(cam *render.Camera, speed, dt float64) math3d.Vec3 {
	if m.Pitch.Velocity != 0 || m.Yaw.Velocity != 0 {
		cam.Rotate(m.Pitch.Velocity*dt, m.Yaw.Velocity*dt)
	}
	move := cam.Forward().Scale(m.Forward.Velocity).
		Add(cam.Right().Scale(m.Strafe.Velocity)).
		Add(math3d.Up().Scale(m.Lift.Velocity))
	return cam.Position.Add(move.Scale(speed * dt))
}
