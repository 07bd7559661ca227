package main

import (
	"fmt"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/charmbracelet/x/ansi"
	"github.com/taigrr/bspview/pkg/level"
	"github.com/taigrr/bspview/pkg/render"
)

// ViewState holds the toggles the keyboard controls.
type ViewState struct {
	ShowHUD   bool // Whether to show the HUD overlay
	NoClip    bool // Move without collision
	NoCull    bool // Skip leaf frustum culling
	BackCull  bool // Skip back faces
	Bounds    bool // Outline the eye's leaf
	Snapshots int  // Frames saved with P
}

// HUD renders an overlay with map info and frame statistics.
type HUD struct {
	filename  string
	fps       float64
	fpsFrames int
	fpsTime   time.Time
}

func NewHUD(filename string) *HUD {
	return &HUD{
		filename: filename,
		fpsTime:  time.Now(),
	}
}

// UpdateFPS updates the FPS counter (call once per frame)
func (h *HUD) UpdateFPS() {
	h.fpsFrames++
	elapsed := time.Since(h.fpsTime)
	if elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = time.Now()
	}
}

const (
	reset    = "\x1b[0m"
	bold     = "\x1b[1m"
	dim      = "\x1b[2m"
	bgBlack  = "\x1b[40m"
	fgWhite  = "\x1b[97m"
	fgGreen  = "\x1b[92m"
	fgYellow = "\x1b[93m"
	fgCyan   = "\x1b[96m"
)

// Draw writes the overlay into the top and bottom rows of scr.
func (h *HUD) Draw(scr uv.Screen, width, height int, v *ViewState, rs level.RenderStats, fs render.FrameStats) {
	if !v.ShowHUD || width <= 0 || height <= 0 {
		return
	}

	// Top left: FPS
	put(scr, 0, 0, fmt.Sprintf("%s%s %.0f FPS %s", bgBlack, fgGreen, h.fps, reset))

	// Top middle: filename
	title := fmt.Sprintf("%s%s%s %s %s", bold, bgBlack, fgWhite, h.filename, reset)
	put(scr, max((width-ansi.StringWidth(title))/2, 0), 0, title)

	// Top right: where the eye is
	where := fmt.Sprintf("%s%s%s leaf %d cluster %d %s", bgBlack, fgCyan, bold, rs.Leaf, rs.Cluster, reset)
	put(scr, max(width-ansi.StringWidth(where), 0), 0, where)

	if height < 2 {
		return
	}

	// Bottom left: traversal and rasterizer counts
	counts := fmt.Sprintf("%s%s %d leaves %d culled %d faces %d patches %d tris %s",
		bgBlack, fgWhite, rs.Leaves, rs.Culled, rs.Faces, rs.Patches, fs.Rendered, reset)
	put(scr, 0, height-1, counts)

	// Bottom right: toggles
	modes := fmt.Sprintf("%s%s%s %s clip  %s cull  %s backcull %s",
		bgBlack, dim, fgYellow, check(!v.NoClip), check(!v.NoCull), check(v.BackCull), reset)
	put(scr, max(width-ansi.StringWidth(modes), 0), height-1, modes)
}

func check(on bool) string {
	if on {
		return "[✓]"
	}
	return "[ ]"
}

// put draws a styled string at column x of row y, covering only its own
// cells.
func put(scr uv.Screen, x, y int, s string) {
	uv.NewStyledString(s).Draw(scr, uv.Rect(x, y, ansi.StringWidth(s), 1))
}
