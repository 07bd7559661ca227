// bspview - Terminal Quake III Level Viewer
// Fly through IBSP maps in your terminal with a software renderer.
//
// Controls:
//
//	W/S         - Move forward/back
//	A/D         - Strafe left/right
//	E/Q         - Move up/down
//	Arrows      - Look around
//	Mouse drag  - Look around
//	R           - Return to the start position
//	N           - Toggle noclip
//	C           - Toggle leaf frustum culling
//	B           - Toggle back face culling
//	X           - Outline the leaf around the eye
//	P           - Save the current frame as a PNG
//	?           - Toggle HUD overlay (FPS, leaf, cluster, counts)
//	Esc         - Quit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/taigrr/bspview/pkg/level"
	"github.com/taigrr/bspview/pkg/math3d"
	"github.com/taigrr/bspview/pkg/q3bsp"
	"github.com/taigrr/bspview/pkg/render"
)

var (
	textureDir = flag.String("textures", "", "Directory holding the map's textures (textures/<name>.jpg)")
	targetFPS  = flag.Int("fps", 30, "Target FPS")
	fovDegrees = flag.Float64("fov", 75, "Vertical field of view in degrees")
	radius     = flag.Float64("radius", 20, "Collision sphere radius")
	speed      = flag.Float64("speed", 300, "Movement speed in units per second")
	startPos   = flag.String("pos", "", "Start position (X,Y,Z); defaults to the first spawn point")
	noclip     = flag.Bool("noclip", false, "Start with collision disabled")
	nearest    = flag.Bool("nearest", false, "Sample textures without filtering")
	snapshot   = flag.String("snapshot", "", "Render one frame to this PNG and exit")
	snapSize   = flag.String("size", "640x480", "Snapshot size (WxH)")
	exportPath = flag.String("export", "", "Write the level as binary glTF to this file and exit")
	logPath    = flag.String("log", "", "Write logs to this file")
	verbose    = flag.Bool("v", false, "Log at debug level")
)

const (
	lookSpeed  = 1.5  // Radians per second at full arrow input
	dragSpeed  = 0.01 // Radians per cell of mouse drag
	inputDecay = 0.85 // Per-frame target decay without key repeat
)

var boundsColor = render.PackRGB(255, 220, 0)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "bspview - Terminal Quake III Level Viewer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: bspview [options] <map.bsp>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  W/S/A/D     - Move and strafe\n")
		fmt.Fprintf(os.Stderr, "  E/Q         - Up/down\n")
		fmt.Fprintf(os.Stderr, "  Arrows      - Look around\n")
		fmt.Fprintf(os.Stderr, "  Mouse drag  - Look around\n")
		fmt.Fprintf(os.Stderr, "  R           - Back to start\n")
		fmt.Fprintf(os.Stderr, "  N           - Toggle noclip\n")
		fmt.Fprintf(os.Stderr, "  C           - Toggle leaf culling\n")
		fmt.Fprintf(os.Stderr, "  B           - Toggle back face culling\n")
		fmt.Fprintf(os.Stderr, "  X           - Outline current leaf\n")
		fmt.Fprintf(os.Stderr, "  P           - Save frame as PNG\n")
		fmt.Fprintf(os.Stderr, "  ?           - Toggle HUD overlay\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging routes library logs to the -log file. The returned function
// closes it.
func setupLogging() (func() error, error) {
	if *logPath == "" {
		return func() error { return nil }, nil
	}
	f, err := os.Create(*logPath)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	lv := slog.LevelInfo
	if *verbose {
		lv = slog.LevelDebug
	}
	level.SetLogger(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: lv})))
	return f.Close, nil
}

// parseVec3 reads "X,Y,Z".
func parseVec3(s string) (math3d.Vec3, error) {
	var v math3d.Vec3
	if _, err := fmt.Sscanf(s, "%g,%g,%g", &v.X, &v.Y, &v.Z); err != nil {
		return v, fmt.Errorf("bad position %q: %w", s, err)
	}
	return v, nil
}

// parseSize reads "WxH".
func parseSize(s string) (w, h int, err error) {
	if _, err := fmt.Sscanf(s, "%dx%d", &w, &h); err != nil {
		return 0, 0, fmt.Errorf("bad size %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("bad size %q: must be positive", s)
	}
	return w, h, nil
}

// startPosition picks -pos, then the first spawn point, then the middle of
// the level.
func startPosition(m *q3bsp.Map) (math3d.Vec3, error) {
	if *startPos != "" {
		return parseVec3(*startPos)
	}
	if spawns := m.SpawnPoints(); len(spawns) > 0 {
		return spawns[0], nil
	}
	center := m.Bounds().Center()
	level.Logger().Warn("no spawn points, starting at the level center", "pos", center)
	return center, nil
}

func newCamera(pos math3d.Vec3, aspect float64) *render.Camera {
	cam := render.NewCamera()
	cam.SetFOV(*fovDegrees * math.Pi / 180)
	cam.SetAspectRatio(aspect)
	cam.SetClipPlanes(4, 8192)
	cam.SetPosition(pos)
	return cam
}

// checkFPS rejects frame rates the frame timer cannot divide by.
func checkFPS(fps int) error {
	if fps <= 0 {
		return fmt.Errorf("bad -fps %d: must be positive", fps)
	}
	return nil
}

func run(mapPath string) error {
	if err := checkFPS(*targetFPS); err != nil {
		return err
	}
	closeLog, err := setupLogging()
	if err != nil {
		return err
	}
	defer closeLog()

	loader := q3bsp.NewLoader()
	loader.TextureDir = *textureDir
	if *nearest {
		loader.TextureFilter = render.FilterNearest
	}
	m, err := loader.Load(mapPath)
	if err != nil {
		return fmt.Errorf("load map: %w", err)
	}

	if *exportPath != "" {
		return export(m.Level, *exportPath)
	}

	start, err := startPosition(m)
	if err != nil {
		return err
	}

	if *snapshot != "" {
		return renderSnapshot(m.Level, start, *snapshot)
	}

	return view(m.Level, filepath.Base(mapPath), start)
}

func export(lvl *level.Level, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := level.ExportGLTF(f, lvl); err != nil {
		f.Close()
		return fmt.Errorf("export: %w", err)
	}
	return f.Close()
}

// renderSnapshot draws a single frame from start without a terminal.
func renderSnapshot(lvl *level.Level, start math3d.Vec3, path string) error {
	w, h, err := parseSize(*snapSize)
	if err != nil {
		return err
	}
	fb := render.NewFramebuffer(w, h)
	ras := render.NewRasterizer(fb)
	cam := newCamera(start, float64(w)/float64(h))

	r := level.NewRenderer(lvl)
	ras.Clear()
	ras.SetCamera(cam)
	r.Draw(ras, cam.Position)

	level.Logger().Info("snapshot",
		"leaf", r.Stats.Leaf, "faces", r.Stats.Faces, "triangles", ras.Stats.Rendered)
	if err := fb.SavePNG(path); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// viewer is the interactive session state.
type viewer struct {
	term          *uv.Terminal
	width, height int

	fb   *render.Framebuffer
	ras  *render.Rasterizer
	wire *render.Wireframe
	cam  *render.Camera

	renderer *level.Renderer
	collider *level.Collider
	motion   *Motion
	state    *ViewState
	hud      *HUD
	start    math3d.Vec3

	mouseDown              bool
	lastMouseX, lastMouseY int
}

// resize rebuilds the framebuffer for a terminal of w x h cells. Each cell
// shows two pixels stacked vertically.
func (v *viewer) resize(w, h int) {
	w, h = max(w, 1), max(h, 1)
	v.width, v.height = w, h
	v.fb = render.NewFramebuffer(w, h*2)
	v.ras = render.NewRasterizer(v.fb)
	v.ras.EnableBackfaceCulling = v.state.BackCull
	v.wire = render.NewWireframe(v.fb)
	v.cam.SetAspectRatio(float64(w) / float64(h*2))
}

// handle applies one terminal event. It returns false to quit.
func (v *viewer) handle(ev uv.Event) bool {
	switch ev := ev.(type) {
	case uv.WindowSizeEvent:
		v.term.Erase()
		v.term.Resize(ev.Width, ev.Height)
		v.resize(ev.Width, ev.Height)

	case uv.KeyPressEvent:
		m := v.motion
		switch {
		case ev.MatchString("escape", "ctrl+c"):
			return false
		case ev.MatchString("w"):
			m.Forward.Target = 1
		case ev.MatchString("s"):
			m.Forward.Target = -1
		case ev.MatchString("d"):
			m.Strafe.Target = 1
		case ev.MatchString("a"):
			m.Strafe.Target = -1
		case ev.MatchString("e", "space"):
			m.Lift.Target = 1
		case ev.MatchString("q"):
			m.Lift.Target = -1
		case ev.MatchString("up"):
			m.Pitch.Target = lookSpeed
		case ev.MatchString("down"):
			m.Pitch.Target = -lookSpeed
		case ev.MatchString("right"):
			m.Yaw.Target = lookSpeed
		case ev.MatchString("left"):
			m.Yaw.Target = -lookSpeed
		case ev.MatchString("r"):
			m.Stop()
			v.cam.SetPosition(v.start)
		case ev.MatchString("n"):
			v.state.NoClip = !v.state.NoClip
		case ev.MatchString("c"):
			v.state.NoCull = !v.state.NoCull
			v.renderer.DisableFrustumCulling = v.state.NoCull
		case ev.MatchString("b"):
			v.state.BackCull = !v.state.BackCull
			v.ras.EnableBackfaceCulling = v.state.BackCull
		case ev.MatchString("x"):
			v.state.Bounds = !v.state.Bounds
		case ev.MatchString("p"):
			v.state.Snapshots++
			path := fmt.Sprintf("bspview-%03d.png", v.state.Snapshots)
			if err := v.fb.SavePNG(path); err != nil {
				level.Logger().Error("save frame", "path", path, "err", err)
			} else {
				level.Logger().Info("saved frame", "path", path)
			}
		case ev.MatchString("?"), ev.MatchString("shift+/"):
			v.state.ShowHUD = !v.state.ShowHUD
		}

	case uv.KeyReleaseEvent:
		switch {
		case ev.MatchString("w"), ev.MatchString("s"):
			v.motion.Forward.Target = 0
		case ev.MatchString("a"), ev.MatchString("d"):
			v.motion.Strafe.Target = 0
		case ev.MatchString("e"), ev.MatchString("q"), ev.MatchString("space"):
			v.motion.Lift.Target = 0
		case ev.MatchString("up"), ev.MatchString("down"):
			v.motion.Pitch.Target = 0
		case ev.MatchString("left"), ev.MatchString("right"):
			v.motion.Yaw.Target = 0
		}

	case uv.MouseClickEvent:
		v.mouseDown = true
		v.lastMouseX, v.lastMouseY = ev.X, ev.Y

	case uv.MouseReleaseEvent:
		v.mouseDown = false

	case uv.MouseMotionEvent:
		if v.mouseDown {
			dx := ev.X - v.lastMouseX
			dy := ev.Y - v.lastMouseY
			// Cells are two pixels tall.
			v.cam.Rotate(-float64(dy)*dragSpeed*2, float64(dx)*dragSpeed)
			v.lastMouseX, v.lastMouseY = ev.X, ev.Y
		}
	}
	return true
}

// frame advances the simulation by dt seconds and draws the result.
func (v *viewer) frame(dt float64) error {
	v.motion.Release(inputDecay)
	v.motion.Update()

	pos := v.motion.Step(v.cam, *speed, dt)
	if !v.state.NoClip && pos != v.cam.Position {
		pos = v.collider.TraceSphere(v.cam.Position, pos, *radius)
	}
	v.cam.SetPosition(pos)

	v.ras.Clear()
	v.ras.SetCamera(v.cam)
	v.renderer.Draw(v.ras, v.cam.Position)
	if v.state.Bounds {
		v.drawBounds()
	}

	v.fb.Draw(v.term, uv.Rect(0, 0, v.width, v.height))
	v.hud.UpdateFPS()
	v.hud.Draw(v.term, v.width, v.height, v.state, v.renderer.Stats, v.ras.Stats)
	if err := v.term.Display(); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	return nil
}

// drawBounds outlines the leaf containing the eye and marks the eye's
// projection on the leaf floor.
func (v *viewer) drawBounds() {
	leaves := v.renderer.Level().Leaves
	i := v.renderer.Stats.Leaf
	if i < 0 || i >= len(leaves) {
		return
	}
	box := leaves[i].Bounds
	v.wire.SetCamera(v.cam)
	v.wire.DrawBox(box, boundsColor)
	v.wire.DrawPoint(math3d.V3(v.cam.Position.X, box.Min.Y, v.cam.Position.Z), *radius, boundsColor)
}

func view(lvl *level.Level, name string, start math3d.Vec3) error {
	// Create terminal
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// Enable mouse mode
	fmt.Fprint(os.Stdout, "\x1b[?1003h") // Enable any-event mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1006h") // Enable SGR extended mouse mode

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}
	defer cleanup()

	v := &viewer{
		term:     term,
		cam:      newCamera(start, 1),
		renderer: level.NewRenderer(lvl),
		collider: level.NewCollider(lvl),
		motion:   NewMotion(*targetFPS),
		state:    &ViewState{ShowHUD: true, NoClip: *noclip},
		hud:      NewHUD(name),
		start:    start,
	}
	v.resize(width, height)

	// Context for clean shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Main loop
	events := term.Events()
	targetDuration := time.Second / time.Duration(*targetFPS)
	lastFrame := time.Now()

	for {
		// Apply pending input on this goroutine so the viewer state is
		// never shared.
	drain:
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return errors.New("terminal closed")
				}
				if !v.handle(ev) {
					return nil
				}
			default:
				break drain
			}
		}

		now := time.Now()
		dt := now.Sub(lastFrame).Seconds()
		lastFrame = now

		if dt > 0.1 {
			dt = 0.1
		}

		if err := v.frame(dt); err != nil {
			return err
		}

		// Frame timing
		elapsed := time.Since(now)
		if elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}
