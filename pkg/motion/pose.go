package motion

import (
	"fmt"
	"math"

	"github.com/quartercastle/vector"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/angle"
)

// Pose is a position on the field in inches and a heading in degrees.
// Theta 0 faces +Y and headings increase clockwise.
type Pose struct {
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Theta float64 `yaml:"theta"`
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.1f°)", p.X, p.Y, p.Theta)
}

func (p Pose) Vec() vector.Vector {
	return vector.Vector{p.X, p.Y}
}

func (p Pose) Distance(other Pose) float64 {
	return math.Hypot(other.X-p.X, other.Y-p.Y)
}

// AngleTo returns the heading that would face other from p.
func (p Pose) AngleTo(other Pose) float64 {
	return angle.ToDegrees(math.Atan2(other.X-p.X, other.Y-p.Y))
}

// Heading returns the unit vector the pose faces.
func (p Pose) Heading() vector.Vector {
	r := angle.ToRadians(p.Theta)
	return vector.Vector{math.Sin(r), math.Cos(r)}
}

// Flipped returns the pose facing the other way; used to drive backwards.
func (p Pose) Flipped() Pose {
	p.Theta += 180
	return p
}

// Curvature of the arc that leaves p tangent to its heading and passes
// through target.  Positive curves clockwise.
func Curvature(p Pose, target vector.Vector) float64 {
	d := target.Sub(p.Vec())
	lenSq := d.Dot(d)
	if lenSq < 1e-9 {
		return 0
	}
	h := p.Heading()
	// Component of d to the right of the heading.
	right := h[1]*d[0] - h[0]*d[1]
	return 2 * right / lenSq
}

func pointPose(x, y float64) Pose {
	return Pose{X: x, Y: y}
}

func fromVec(v vector.Vector) Pose {
	return Pose{X: v[0], Y: v[1]}
}
