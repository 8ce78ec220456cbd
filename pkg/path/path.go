// Package path loads the waypoint files that the pursuit controller follows.
//
// A path file holds one waypoint per line, "x, y, speed", with x and y in
// field inches and speed in drive output units (0-127).  The waypoints end at
// a line reading "endData"; anything after it is ignored.
package path

import (
	"bufio"
	"embed"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const endMarker = "endData"

type Point struct {
	X, Y  float64
	Speed float64
}

type Path struct {
	Name   string
	Points []Point
}

var ErrEmpty = errors.New("path has no waypoints")

// Parse reads a path file.
func Parse(name string, r io.Reader) (*Path, error) {
	p := &Path{Name: name}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	ended := false
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == endMarker {
			ended = true
			break
		}
		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			return nil, errors.Errorf("%s:%d: expected \"x, y, speed\", got %q", name, lineNo, line)
		}
		var vals [3]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "%s:%d", name, lineNo)
			}
			vals[i] = v
		}
		p.Points = append(p.Points, Point{X: vals[0], Y: vals[1], Speed: vals[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", name)
	}
	if !ended {
		return nil, errors.Errorf("%s: missing %s marker", name, endMarker)
	}
	if len(p.Points) == 0 {
		return nil, errors.Wrap(ErrEmpty, name)
	}
	return p, nil
}

// Length is the total distance along the waypoints, in inches.
func (p *Path) Length() float64 {
	var l float64
	for i := 1; i < len(p.Points); i++ {
		a, b := p.Points[i-1], p.Points[i]
		l += math.Hypot(b.X-a.X, b.Y-a.Y)
	}
	return l
}

// Reverse returns a copy of the path running end to start.
func (p *Path) Reverse() *Path {
	r := &Path{Name: p.Name + " (reversed)", Points: make([]Point, len(p.Points))}
	for i, pt := range p.Points {
		r.Points[len(p.Points)-1-i] = pt
	}
	return r
}

func (p *Path) Start() Point {
	return p.Points[0]
}

func (p *Path) End() Point {
	return p.Points[len(p.Points)-1]
}

//go:embed assets/*.txt
var assets embed.FS

// Load returns a built-in path by name, e.g. "pathUnderHang".
func Load(name string) (*Path, error) {
	f, err := assets.Open("assets/" + strings.TrimSuffix(name, ".txt") + ".txt")
	if err != nil {
		return nil, errors.Errorf("unknown path %q", name)
	}
	defer f.Close()
	return Parse(name, f)
}

// Names lists the built-in paths.
func Names() []string {
	entries, _ := assets.ReadDir("assets")
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".txt"))
	}
	sort.Strings(names)
	return names
}
