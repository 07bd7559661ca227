package level

import "github.com/taigrr/bspview/pkg/math3d"

// FindLeaf returns the index of the leaf containing p. Points on a splitting
// plane belong to its front side.
func (l *Level) FindLeaf(p math3d.Vec3) int {
	c := l.Root()
	for !c.IsLeaf() {
		n := &l.Nodes[c.Index]
		if l.Planes[n.Plane].Distance(p) >= 0 {
			c = n.Front
		} else {
			c = n.Back
		}
	}
	return c.Index
}

// Cluster returns the visibility cluster of the leaf containing p.
func (l *Level) Cluster(p math3d.Vec3) int {
	if len(l.Leaves) == 0 {
		return -1
	}
	return l.Leaves[l.FindLeaf(p)].Cluster
}
