package level

import "github.com/taigrr/bspview/pkg/math3d"

// Sweep tuning. Neither value has a geometric derivation; they were chosen
// empirically and can be overridden per Collider.
const (
	DefaultTraceAttempts = 3
	DefaultTraceEpsilon  = 1.0 / 32
)

// Collider sweeps spheres through a Level against its solid brushes.
// It keeps per-trace scratch state and is not safe for concurrent use.
type Collider struct {
	level *Level

	// MaxAttempts bounds the number of slide corrections per trace.
	MaxAttempts int
	// Epsilon is how far a blocked sphere is kept off a surface.
	Epsilon float64

	start, end math3d.Vec3
	radius     float64

	fraction float64
	blocked  bool
	normal   math3d.Vec3
	endDist  float64
}

// NewCollider creates a collider for lvl with the default tuning.
func NewCollider(lvl *Level) *Collider {
	return &Collider{
		level:       lvl,
		MaxAttempts: DefaultTraceAttempts,
		Epsilon:     DefaultTraceEpsilon,
	}
}

// TraceSphere moves a sphere of the given radius from start toward end and
// returns where it may legally stop. When the sweep hits a brush the end
// point is pushed back out along the blocking plane and the sweep retried,
// which lets the sphere slide along walls and into corners. If no free end
// point is found within MaxAttempts, start is returned unchanged.
func (c *Collider) TraceSphere(start, end math3d.Vec3, radius float64) math3d.Vec3 {
	c.start = start
	c.end = end
	c.radius = radius

	for range c.MaxAttempts {
		c.fraction = 1
		c.blocked = false
		c.checkNode(c.level.Root(), 0, 1, c.start, c.end)
		if !c.blocked {
			return c.end
		}
		c.end = c.end.Add(c.normal.Scale(-c.endDist + c.Epsilon))
	}
	return start
}

func (c *Collider) checkNode(ch Child, startF, endF float64, start, end math3d.Vec3) {
	if ch.IsLeaf() {
		c.checkLeaf(&c.level.Leaves[ch.Index])
		return
	}

	n := &c.level.Nodes[ch.Index]
	plane := c.level.Planes[n.Plane]
	s := plane.Distance(start)
	e := plane.Distance(end)
	off := c.radius

	switch {
	case s >= off && e >= off:
		c.checkNode(n.Front, startF, endF, start, end)
		return
	case s < -off && e < -off:
		c.checkNode(n.Back, startF, endF, start, end)
		return
	}

	// The segment straddles the thickened plane: visit both sides, each
	// over the part of the segment that can touch it.
	var side1, side2 Child
	var f1, f2 float64
	eps := c.Epsilon
	switch {
	case s < e:
		side1, side2 = n.Back, n.Front
		inv := 1 / (s - e)
		f1 = (s - off + eps) * inv
		f2 = (s + off + eps) * inv
	case e < s:
		side1, side2 = n.Front, n.Back
		inv := 1 / (s - e)
		f1 = (s + off + eps) * inv
		f2 = (s - off - eps) * inv
	default:
		side1, side2 = n.Front, n.Back
		f1, f2 = 1, 0
	}
	f1 = clamp01(f1)
	f2 = clamp01(f2)

	mid := start.Lerp(end, f1)
	c.checkNode(side1, startF, startF+(endF-startF)*f1, start, mid)

	mid = start.Lerp(end, f2)
	c.checkNode(side2, startF+(endF-startF)*f2, endF, mid, end)
}

func (c *Collider) checkLeaf(leaf *Leaf) {
	lvl := c.level
	for _, bi := range lvl.LeafBrushes[leaf.FirstBrush : leaf.FirstBrush+leaf.NumBrushes] {
		b := &lvl.Brushes[bi]
		if b.NumSides > 0 && lvl.Surfaces[b.Texture].Solid() {
			c.checkBrush(b)
		}
	}
}

// checkBrush clips the whole input segment against one convex brush,
// inflated by the sphere radius, and records the earliest entry.
func (c *Collider) checkBrush(b *Brush) {
	startsOut, endsOut := false, false
	startF, endF := -1.0, 1.0
	var normal math3d.Vec3
	var endDist float64
	eps := c.Epsilon

	for _, side := range c.level.BrushSides[b.FirstSide : b.FirstSide+b.NumSides] {
		plane := c.level.Planes[side.Plane]
		n := plane.Vec3()
		s := c.start.Dot(n) - (plane.W + c.radius)
		e := c.end.Dot(n) - (plane.W + c.radius)

		if s > 0 {
			startsOut = true
		}
		if e > 0 {
			endsOut = true
		}
		if s > 0 && e > 0 {
			// Entirely in front of one side: no contact.
			return
		}
		if s <= 0 && e <= 0 {
			continue
		}

		if s > e {
			f := max(0, (s-eps)/(s-e))
			if f > startF {
				startF = f
				normal = n
				endDist = e
			}
		} else {
			endF = min(endF, (s+eps)/(s-e))
		}
	}

	if !startsOut && !endsOut {
		return
	}
	if startF < endF && startF > -1 && startF < c.fraction {
		c.blocked = true
		c.fraction = max(0, startF)
		c.normal = normal
		c.endDist = endDist
	}
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
