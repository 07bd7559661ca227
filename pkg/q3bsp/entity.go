package q3bsp

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/taigrr/bspview/pkg/math3d"
)

// Entity is one block of key/value pairs from the entities lump.
type Entity struct {
	properties map[string]string
}

func newEntity(p []byte) *Entity {
	e := &Entity{properties: make(map[string]string)}
	// Each line looks like: "key" "value"
	for _, l := range bytes.Split(p, []byte("\n")) {
		var fields [4]int
		n := 0
		for i, b := range l {
			if b == '"' && n < len(fields) {
				fields[n] = i
				n++
			}
		}
		if n < len(fields) {
			continue
		}
		key := string(l[fields[0]+1 : fields[1]])
		e.properties[key] = string(l[fields[2]+1 : fields[3]])
	}
	return e
}

// Property returns the value stored under name.
func (e *Entity) Property(name string) (string, bool) {
	v, ok := e.properties[name]
	return v, ok
}

// ClassName returns the entity's classname, e.g. "info_player_deathmatch".
func (e *Entity) ClassName() string {
	return e.properties["classname"]
}

// Origin parses the "origin" property and converts it to the level's Y-up
// frame.
func (e *Entity) Origin() (math3d.Vec3, error) {
	v, ok := e.properties["origin"]
	if !ok {
		return math3d.Vec3{}, fmt.Errorf("entity %q has no origin", e.ClassName())
	}
	f := strings.Fields(v)
	if len(f) != 3 {
		return math3d.Vec3{}, fmt.Errorf("bad origin %q", v)
	}
	var xyz [3]float64
	for i, s := range f {
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math3d.Vec3{}, fmt.Errorf("bad origin %q: %w", v, err)
		}
		xyz[i] = x
	}
	return math3d.V3(xyz[0], xyz[2], xyz[1]), nil
}

// parseEntities splits the entities lump into its top level blocks:
//
//	{
//	"classname" "worldspawn"
//	"message" "The Longest Yard"
//	}
//
// Braces inside quoted values are ignored.
func parseEntities(data []byte) []*Entity {
	var es []*Entity
	depth := 0
	quoted := false
	start := -1
	for i, b := range data {
		switch {
		case b == '"':
			quoted = !quoted
		case quoted:
		case b == '{':
			if depth == 0 {
				start = i
			}
			depth++
		case b == '}':
			if depth == 0 {
				// Unbalanced input
				return es
			}
			depth--
			if depth == 0 {
				es = append(es, newEntity(data[start:i+1]))
			}
		}
	}
	return es
}
