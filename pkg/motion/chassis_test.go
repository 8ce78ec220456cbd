package motion_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/angle"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/motion"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/path"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/simbot"
)

func newSimChassis(t *testing.T) (context.Context, *simbot.Robot, *motion.Chassis) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	dt := motion.DefaultDrivetrain()
	sim := simbot.New(simbot.DefaultConfig(dt))
	t.Cleanup(sim.Start(ctx))

	c := motion.NewChassis(sim.LeftDrive, sim.RightDrive, sim.IMU, dt,
		motion.DefaultLinearSettings(), motion.DefaultAngularSettings())
	require.NoError(t, c.Calibrate(ctx))
	t.Cleanup(c.Stop)
	return ctx, sim, c
}

func TestNotCalibrated(t *testing.T) {
	sim := simbot.New(simbot.DefaultConfig(motion.DefaultDrivetrain()))
	c := motion.NewChassis(sim.LeftDrive, sim.RightDrive, sim.IMU, motion.DefaultDrivetrain(),
		motion.DefaultLinearSettings(), motion.DefaultAngularSettings())
	_, err := c.MoveToPoint(context.Background(), 0, 10, time.Second, motion.Params{})
	assert.ErrorIs(t, err, motion.ErrNotCalibrated)
}

func TestMoveToPointSettles(t *testing.T) {
	ctx, sim, c := newSimChassis(t)

	m, err := c.MoveToPoint(ctx, 0, 24, 3*time.Second, motion.Params{})
	require.NoError(t, err)
	assert.Equal(t, motion.Settled, m.Outcome())
	assert.InDelta(t, 24, c.Pose().Y, 3)
	assert.InDelta(t, 24, sim.TruePose().Y, 3)
	assert.InDelta(t, 24, m.Travelled(), 4)
	assert.Zero(t, sim.Left[0].Command(), "drive stopped at the end")
}

func TestMoveToPointReverse(t *testing.T) {
	ctx, sim, c := newSimChassis(t)

	m, err := c.MoveToPoint(ctx, 0, -20, 3*time.Second, motion.Params{Reverse: true})
	require.NoError(t, err)
	assert.Equal(t, motion.Settled, m.Outcome())
	assert.InDelta(t, -20, sim.TruePose().Y, 3)
	// Backed up rather than turning round.
	assert.InDelta(t, 0, sim.TruePose().Theta, 20)
}

func TestTimeoutIsHardCeiling(t *testing.T) {
	ctx, sim, c := newSimChassis(t)
	sim.SetStalled(true)

	const timeout = 300 * time.Millisecond
	start := time.Now()
	m, err := c.MoveToPoint(ctx, 0, 48, timeout, motion.Params{})
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.Equal(t, motion.TimedOut, m.Outcome())
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+100*time.Millisecond)
	assert.Zero(t, sim.Right[0].Command(), "drive stopped on timeout")
}

func TestTurnTo(t *testing.T) {
	ctx, sim, c := newSimChassis(t)

	m, err := c.TurnTo(ctx, 10, 0, 2*time.Second, motion.Params{})
	require.NoError(t, err)
	assert.Equal(t, motion.Settled, m.Outcome())
	assert.InDelta(t, 90, c.Pose().Theta, 4)
	assert.InDelta(t, 90, sim.TruePose().Theta, 4)
	assert.InDelta(t, 0, sim.TruePose().X, 1, "turned on the spot")
}

func TestTurnToHeading(t *testing.T) {
	ctx, sim, c := newSimChassis(t)

	m, err := c.TurnToHeading(ctx, 270, 2*time.Second, motion.Params{})
	require.NoError(t, err)
	assert.Equal(t, motion.Settled, m.Outcome())
	assert.InDelta(t, 0, angle.Error(270, c.Pose().Theta), 4)
	assert.InDelta(t, 0, angle.Error(270, sim.TruePose().Theta), 4)
	assert.InDelta(t, 0, sim.TruePose().Y, 1, "turned on the spot")
}

func TestMoveToPose(t *testing.T) {
	ctx, sim, c := newSimChassis(t)

	m, err := c.MoveToPose(ctx, 20, 30, 90, 4*time.Second, motion.Params{})
	require.NoError(t, err)
	assert.NotEqual(t, motion.Cancelled, m.Outcome())
	p := sim.TruePose()
	assert.InDelta(t, 20, p.X, 4)
	assert.InDelta(t, 30, p.Y, 4)
}

func TestAsyncAndWaitUntil(t *testing.T) {
	ctx, _, c := newSimChassis(t)

	m, err := c.MoveToPoint(ctx, 0, 30, 3*time.Second, motion.Params{Async: true})
	require.NoError(t, err)
	select {
	case <-m.Done():
		t.Fatal("async motion should still be running")
	default:
	}
	require.NoError(t, c.WaitUntil(ctx, 10))
	assert.GreaterOrEqual(t, m.Travelled(), 10.0)
	select {
	case <-m.Done():
		t.Fatal("motion finished before travelling 30 inches")
	default:
	}
	outcome, err := c.WaitUntilDone(ctx)
	require.NoError(t, err)
	assert.Equal(t, motion.Settled, outcome)

	// Waiting on a finished motion returns at once.
	require.NoError(t, c.WaitUntil(ctx, 1000))
}

func TestMotionsQueue(t *testing.T) {
	ctx, sim, c := newSimChassis(t)
	sim.SetStalled(true)

	first, err := c.MoveToPoint(ctx, 0, 48, 200*time.Millisecond, motion.Params{Async: true})
	require.NoError(t, err)
	start := time.Now()
	second, err := c.TurnTo(ctx, 10, 0, 100*time.Millisecond, motion.Params{Async: true})
	require.NoError(t, err)

	// The second command could only start once the first was done.
	select {
	case <-first.Done():
	default:
		t.Fatal("second motion started while the first was running")
	}
	assert.Equal(t, motion.TimedOut, first.Outcome())
	assert.Same(t, second, c.Current())
	outcome, err := second.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, motion.TimedOut, outcome)
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
}

func TestCancelMotion(t *testing.T) {
	ctx, sim, c := newSimChassis(t)
	sim.SetStalled(true)

	m, err := c.MoveToPoint(ctx, 0, 48, 5*time.Second, motion.Params{Async: true})
	require.NoError(t, err)
	c.CancelMotion()
	outcome, err := m.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, motion.Cancelled, outcome)
}

func TestContextEndCancelsMotion(t *testing.T) {
	ctx, sim, c := newSimChassis(t)
	sim.SetStalled(true)

	phaseCtx, endPhase := context.WithTimeout(ctx, 100*time.Millisecond)
	defer endPhase()
	m, err := c.MoveToPoint(phaseCtx, 0, 48, 5*time.Second, motion.Params{})
	require.NoError(t, err)
	assert.Equal(t, motion.Cancelled, m.Outcome())
}

func TestFollow(t *testing.T) {
	ctx, sim, c := newSimChassis(t)

	p := &path.Path{Name: "straight"}
	for y := 0.0; y <= 40; y += 2 {
		p.Points = append(p.Points, path.Point{X: 0.2 * y, Y: y, Speed: 80})
	}
	m, err := c.Follow(ctx, p, 10, 4*time.Second, motion.Params{})
	require.NoError(t, err)
	assert.Equal(t, motion.Settled, m.Outcome())
	end := sim.TruePose()
	assert.Less(t, math.Hypot(end.X-8, end.Y-40), 12.0, "ended near the end of the path: %v", end)
}
