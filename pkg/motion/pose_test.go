package motion

import (
	"testing"

	"github.com/quartercastle/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAngleTo(t *testing.T) {
	origin := Pose{}
	assert.InDelta(t, 0, origin.AngleTo(Pose{Y: 10}), 1e-9)
	assert.InDelta(t, 90, origin.AngleTo(Pose{X: 10}), 1e-9)
	assert.InDelta(t, 180, origin.AngleTo(Pose{Y: -10}), 1e-9)
	assert.InDelta(t, -90, origin.AngleTo(Pose{X: -10}), 1e-9)
}

func TestCurvatureSign(t *testing.T) {
	p := Pose{}
	assert.Greater(t, Curvature(p, vector.Vector{5, 5}), 0.0, "right of heading curves clockwise")
	assert.Less(t, Curvature(p, vector.Vector{-5, 5}), 0.0)
	assert.InDelta(t, 0, Curvature(p, vector.Vector{0, 5}), 1e-12)
	// A point 10 inches to the right is on a circle of radius 5.
	assert.InDelta(t, 1.0/5, Curvature(p, vector.Vector{10, 0}), 1e-9)
}

func TestCarrot(t *testing.T) {
	target := Pose{X: 10, Y: 10, Theta: 90}
	c := Carrot(target, 20, 0.5)
	// The carrot sits behind the target along its approach line.
	assert.InDelta(t, 0, c[0], 1e-9)
	assert.InDelta(t, 10, c[1], 1e-9)
}

func TestLookaheadPoint(t *testing.T) {
	pts := []vector.Vector{{0, 0}, {0, 10}, {10, 10}}
	p, progress, ok := LookaheadPoint(pts, vector.Vector{0, 0}, 5, 0)
	require.True(t, ok)
	assert.InDelta(t, 0, p[0], 1e-9)
	assert.InDelta(t, 5, p[1], 1e-9)
	assert.InDelta(t, 0.5, progress, 1e-9)

	// Near the corner the furthest crossing is on the second segment.
	p, progress, ok = LookaheadPoint(pts, vector.Vector{0, 9}, 5, progress)
	require.True(t, ok)
	assert.Greater(t, progress, 1.0)
	assert.InDelta(t, 10, p[1], 1e-9)

	// Never goes backwards.
	_, _, ok = LookaheadPoint(pts, vector.Vector{0, 0}, 1, 1.5)
	assert.False(t, ok)
}

func TestOdometryStraightAndTurn(t *testing.T) {
	o := odometry{inchesPerDegree: 0.1, trackWidth: 12}
	o.reset(Pose{X: 1, Y: 2})
	o.update(odomSample{headingOK: true})
	o.update(odomSample{left: 100, right: 100, headingOK: true})
	assert.InDelta(t, 1, o.pose.X, 1e-9)
	assert.InDelta(t, 12, o.pose.Y, 1e-9)

	// Quarter turn clockwise on the spot, from the gyro.
	o.update(odomSample{left: 100, right: 100, heading: 90, headingOK: true})
	assert.InDelta(t, 90, o.pose.Theta, 1e-9)
	o.update(odomSample{left: 200, right: 200, heading: 90, headingOK: true})
	assert.InDelta(t, 11, o.pose.X, 1e-9)
	assert.InDelta(t, 12, o.pose.Y, 1e-9)
}

func TestOdometryFallsBackToWheels(t *testing.T) {
	o := odometry{inchesPerDegree: 1, trackWidth: 12}
	o.update(odomSample{})
	// Left forward, right back: clockwise spin of 2 rad.
	o.update(odomSample{left: 12, right: -12})
	assert.InDelta(t, 2*180/3.14159265358979, o.pose.Theta, 1e-6)
	assert.InDelta(t, 0, o.pose.X, 1e-9)
	assert.InDelta(t, 0, o.pose.Y, 1e-9)
}
