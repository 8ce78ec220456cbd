package motion

import (
	"math"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/angle"
)

// odometry integrates drive encoder deltas and the inertial heading into a
// field pose.  It is not goroutine-safe; the Chassis serialises access.
type odometry struct {
	inchesPerDegree float64
	trackWidth      float64

	pose Pose

	primed      bool
	lastLeft    float64
	lastRight   float64
	lastHeading float64
	haveHeading bool
}

type odomSample struct {
	left, right float64
	heading     float64
	headingOK   bool
}

// reset moves the pose without disturbing the encoder baseline.
func (o *odometry) reset(p Pose) {
	o.pose = p
}

func (o *odometry) update(s odomSample) {
	if !o.primed {
		o.lastLeft, o.lastRight = s.left, s.right
		o.lastHeading, o.haveHeading = s.heading, s.headingOK
		o.primed = true
		return
	}
	dl := (s.left - o.lastLeft) * o.inchesPerDegree
	dr := (s.right - o.lastRight) * o.inchesPerDegree
	o.lastLeft, o.lastRight = s.left, s.right

	var dTheta float64
	if s.headingOK && o.haveHeading {
		dTheta = s.heading - o.lastHeading
	} else {
		// No gyro; fall back on the wheels.
		dTheta = angle.ToDegrees((dl - dr) / o.trackWidth)
	}
	o.lastHeading, o.haveHeading = s.heading, s.headingOK

	d := (dl + dr) / 2
	mid := angle.ToRadians(o.pose.Theta + dTheta/2)
	o.pose.X += d * math.Sin(mid)
	o.pose.Y += d * math.Cos(mid)
	o.pose.Theta += dTheta
}
