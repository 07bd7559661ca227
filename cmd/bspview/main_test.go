package main

import (
	"math"
	"strings"
	"testing"

	"github.com/taigrr/bspview/pkg/math3d"
	"github.com/taigrr/bspview/pkg/render"
)

func TestParseVec3(t *testing.T) {
	tests := []struct {
		in      string
		want    math3d.Vec3
		wantErr bool
	}{
		{"1,2,3", math3d.V3(1, 2, 3), false},
		{"-64.5,0,1e3", math3d.V3(-64.5, 0, 1000), false},
		{"1,2", math3d.Vec3{}, true},
		{"x,y,z", math3d.Vec3{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseVec3(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if !tc.wantErr && got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"640x480", 640, 480, false},
		{"1x1", 1, 1, false},
		{"0x480", 0, 0, true},
		{"640", 0, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			w, h, err := parseSize(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if w != tc.w || h != tc.h {
				t.Errorf("got %dx%d, want %dx%d", w, h, tc.w, tc.h)
			}
		})
	}
}

func TestCheckFPS(t *testing.T) {
	tests := []struct {
		fps     int
		wantErr bool
	}{
		{30, false},
		{1, false},
		{0, true},
		{-5, true},
	}
	for _, tc := range tests {
		if err := checkFPS(tc.fps); (err != nil) != tc.wantErr {
			t.Errorf("checkFPS(%d) = %v, wantErr %v", tc.fps, err, tc.wantErr)
		}
	}
}

func TestRunRejectsZeroFPS(t *testing.T) {
	old := *targetFPS
	defer func() { *targetFPS = old }()
	*targetFPS = 0

	err := run("missing.bsp")
	if err == nil || !strings.Contains(err.Error(), "-fps") {
		t.Fatalf("run error = %v, want a -fps error", err)
	}
}

func TestAxisFollowsTarget(t *testing.T) {
	a := NewAxis(60, 6.0)
	a.Target = 1
	for range 120 {
		a.Update()
		if a.Velocity > 1+1e-9 {
			t.Fatalf("velocity overshot to %v", a.Velocity)
		}
	}
	if math.Abs(a.Velocity-1) > 1e-3 {
		t.Errorf("velocity %v after 2s, want 1", a.Velocity)
	}

	a.Target = 0
	for range 120 {
		a.Update()
	}
	if math.Abs(a.Velocity) > 1e-3 {
		t.Errorf("velocity %v after release, want 0", a.Velocity)
	}
}

func TestMotionRelease(t *testing.T) {
	m := NewMotion(60)
	m.Forward.Target = 1
	m.Yaw.Target = -2
	m.Release(0.5)
	if m.Forward.Target != 0.5 || m.Yaw.Target != -1 {
		t.Errorf("targets %v, %v after release", m.Forward.Target, m.Yaw.Target)
	}

	m.Forward.Velocity = 3
	m.Stop()
	if m.Forward.Velocity != 0 || m.Forward.Target != 0 || m.Yaw.Target != 0 {
		t.Error("Stop left motion behind")
	}
}

func TestMotionStep(t *testing.T) {
	near := func(a, b math3d.Vec3) bool { return a.Sub(b).Len() < 1e-9 }

	tests := []struct {
		name  string
		setup func(*Motion)
		want  math3d.Vec3
	}{
		{"still", func(*Motion) {}, math3d.V3(0, 0, 0)},
		{"forward", func(m *Motion) { m.Forward.Velocity = 1 }, math3d.V3(0, 0, 50)},
		{"strafe right", func(m *Motion) { m.Strafe.Velocity = 1 }, math3d.V3(50, 0, 0)},
		{"down", func(m *Motion) { m.Lift.Velocity = -1 }, math3d.V3(0, -50, 0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cam := render.NewCamera() // Looks down +Z
			m := NewMotion(60)
			tc.setup(m)
			if got := m.Step(cam, 100, 0.5); !near(got, tc.want) {
				t.Errorf("Step = %v, want %v", got, tc.want)
			}
			if cam.Position != (math3d.Vec3{}) {
				t.Errorf("Step moved the camera to %v", cam.Position)
			}
		})
	}
}

func TestMotionStepTurns(t *testing.T) {
	cam := render.NewCamera()
	m := NewMotion(60)
	m.Yaw.Velocity = math.Pi / 2
	m.Forward.Velocity = 1
	got := m.Step(cam, 10, 1)

	// A quarter turn right from +Z faces +X.
	if want := math3d.V3(10, 0, 0); got.Sub(want).Len() > 1e-9 {
		t.Errorf("Step = %v, want %v", got, want)
	}
}
