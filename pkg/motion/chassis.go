package motion

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
)

var log = logrus.WithField("component", "motion")

var ErrNotCalibrated = errors.New("chassis not calibrated")

// LoopInterval is the period of both the odometry and the motion control
// loops.
const LoopInterval = 10 * time.Millisecond

// Chassis owns the drive motors and the pose estimate.  At most one motion
// runs at a time; a motion issued while another is running waits for it to
// finish.
type Chassis struct {
	left, right hardware.Motor
	imu         hardware.Inertial

	Drivetrain Drivetrain
	Linear     ControllerSettings
	Angular    ControllerSettings

	lock         sync.Mutex
	odom         odometry
	calibrated   bool
	current      *Motion
	cancelMotion context.CancelFunc

	// slot holds a token while a motion is running.
	slot chan struct{}

	trackCancel context.CancelFunc
	trackWG     sync.WaitGroup
}

func NewChassis(
	left, right hardware.Motor,
	imu hardware.Inertial,
	drivetrain Drivetrain,
	linear, angular ControllerSettings,
) *Chassis {
	return &Chassis{
		left:       left,
		right:      right,
		imu:        imu,
		Drivetrain: drivetrain,
		Linear:     linear,
		Angular:    angular,
		odom: odometry{
			inchesPerDegree: drivetrain.InchesPerMotorDegree(),
			trackWidth:      drivetrain.TrackWidth,
		},
		slot: make(chan struct{}, 1),
	}
}

// Calibrate calibrates the inertial sensor, resets the pose to the origin
// and starts pose tracking.  Tracking runs until ctx is done or Stop is
// called.  The robot must be stationary.
func (c *Chassis) Calibrate(ctx context.Context) error {
	c.Stop()

	if err := c.imu.Calibrate(ctx); err != nil {
		return errors.Wrap(err, "failed to calibrate inertial sensor")
	}

	c.lock.Lock()
	c.odom.primed = false
	c.odom.reset(Pose{})
	c.calibrated = true
	c.lock.Unlock()
	c.sampleOdometry()

	var trackCtx context.Context
	trackCtx, c.trackCancel = context.WithCancel(ctx)
	c.trackWG.Add(1)
	go c.trackLoop(trackCtx)
	log.Info("Chassis calibrated; tracking pose")
	return nil
}

// Stop cancels any running motion and stops pose tracking.
func (c *Chassis) Stop() {
	c.CancelMotion()
	if c.trackCancel != nil {
		c.trackCancel()
		c.trackWG.Wait()
		c.trackCancel = nil
	}
}

func (c *Chassis) trackLoop(ctx context.Context) {
	defer c.trackWG.Done()
	defer log.Info("Pose tracking loop exited")

	ticker := time.NewTicker(LoopInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		c.sampleOdometry()
	}
}

func (c *Chassis) sampleOdometry() {
	var s odomSample
	var err error
	if s.left, err = c.left.Position(); err != nil {
		log.WithError(err).Debug("Failed to read left drive position")
		return
	}
	if s.right, err = c.right.Position(); err != nil {
		log.WithError(err).Debug("Failed to read right drive position")
		return
	}
	s.heading, err = c.imu.Heading()
	if err != nil {
		log.WithError(err).Debug("Failed to read heading; using wheels")
	}
	s.headingOK = err == nil

	c.lock.Lock()
	defer c.lock.Unlock()
	c.odom.update(s)
}

func (c *Chassis) Calibrated() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.calibrated
}

func (c *Chassis) SetPose(p Pose) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.odom.reset(p)
}

func (c *Chassis) Pose() Pose {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.odom.pose
}

// Tank drives each side directly, velocities in [-127, 127].
func (c *Chassis) Tank(left, right int) error {
	errL := c.left.Move(left)
	errR := c.right.Move(right)
	if errL != nil {
		return errors.Wrap(errL, "left drive")
	}
	return errors.Wrap(errR, "right drive")
}

func (c *Chassis) SetBrakeMode(mode hardware.BrakeMode) error {
	if err := c.left.SetBrakeMode(mode); err != nil {
		return err
	}
	return c.right.SetBrakeMode(mode)
}

func (c *Chassis) drive(left, right float64) {
	if err := c.Tank(int(math.Round(left)), int(math.Round(right))); err != nil {
		log.WithError(err).Debug("Failed to drive")
	}
}

// Current returns the motion most recently started, which may already be
// finished, or nil if there has been none.
func (c *Chassis) Current() *Motion {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.current
}

// CancelMotion stops the running motion, if any.  Queued motions still run.
func (c *Chassis) CancelMotion() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.cancelMotion != nil {
		c.cancelMotion()
	}
}

// WaitUntil blocks until the current motion has travelled at least dist
// (inches, or degrees for a turn) or has finished.
func (c *Chassis) WaitUntil(ctx context.Context, dist float64) error {
	m := c.Current()
	if m == nil {
		return nil
	}
	return m.WaitUntil(ctx, dist)
}

// WaitUntilDone blocks until the current motion finishes and returns its
// outcome.
func (c *Chassis) WaitUntilDone(ctx context.Context) (Outcome, error) {
	m := c.Current()
	if m == nil {
		return Settled, nil
	}
	return m.Wait(ctx)
}

// controller computes one tick of drive output for a motion.
type controller interface {
	step(pose Pose, now time.Time) (left, right float64, done bool)
}

func (c *Chassis) start(ctx context.Context, kind string, timeout time.Duration, p Params, ctrl controller) (*Motion, error) {
	if !c.Calibrated() {
		return nil, ErrNotCalibrated
	}
	m := newMotion(kind, kind == KindTurnTo)

	select {
	case c.slot <- struct{}{}:
	case <-ctx.Done():
		m.finish(Cancelled)
		return m, nil
	}

	motionCtx, cancel := context.WithCancel(ctx)
	c.lock.Lock()
	c.current = m
	c.cancelMotion = cancel
	c.lock.Unlock()

	log.WithFields(logrus.Fields{"motion": kind, "timeout": timeout}).Debug("Starting motion")
	go c.run(motionCtx, cancel, m, timeout, ctrl)

	if !p.Async {
		<-m.Done()
	}
	return m, nil
}

func (c *Chassis) run(ctx context.Context, cancel context.CancelFunc, m *Motion, timeout time.Duration, ctrl controller) {
	defer cancel()

	m.started = time.Now()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(LoopInterval)
	defer ticker.Stop()

	outcome := Settled
	last := c.Pose()
loop:
	for {
		// Check for the end of the motion before doing any more driving.
		select {
		case <-ctx.Done():
			outcome = Cancelled
			break loop
		case <-deadline.C:
			outcome = TimedOut
			break loop
		default:
		}

		pose := c.Pose()
		m.track(last, pose)
		last = pose

		l, r, done := ctrl.step(pose, time.Now())
		if done {
			break
		}
		c.drive(l, r)

		select {
		case <-ctx.Done():
			outcome = Cancelled
			break loop
		case <-deadline.C:
			outcome = TimedOut
			break loop
		case <-ticker.C:
		}
	}
	c.drive(0, 0)

	c.lock.Lock()
	if c.current == m {
		c.cancelMotion = nil
	}
	c.lock.Unlock()

	log.WithFields(logrus.Fields{
		"motion":  m.Kind,
		"outcome": outcome,
		"elapsed": time.Since(m.started).Round(time.Millisecond),
	}).Debug("Motion finished")
	m.finish(outcome)
	<-c.slot
}

// normalize scales both sides down so neither exceeds max, keeping their
// ratio.
func normalize(left, right, max float64) (float64, float64) {
	biggest := math.Max(math.Abs(left), math.Abs(right))
	if biggest > max && biggest > 0 {
		left *= max / biggest
		right *= max / biggest
	}
	return left, right
}

// reverseSides maps outputs computed for a robot facing backwards onto the
// physical sides.
func reverseSides(left, right float64) (float64, float64) {
	return -right, -left
}
