// Package simbot is a kinematic simulation of the robot.  It stands in for
// the hardware in tests and when the controller runs with --sim.
package simbot

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/angle"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/motion"
)

var log = logrus.WithField("component", "simbot")

const (
	DriveStep     = 5 * time.Millisecond
	MechanismStep = 10 * time.Millisecond
)

type Config struct {
	Drivetrain motion.Drivetrain
	// Acceleration limit of each drive side, inches/s².
	Acceleration float64
	// CatapultSpeed is the catapult arm speed at full power, degrees/s.
	CatapultSpeed float64
	IntakeSpeed   float64
	// CalibrationTime is how long the simulated IMU takes to calibrate.
	CalibrationTime time.Duration
}

func DefaultConfig(dt motion.Drivetrain) Config {
	return Config{
		Drivetrain:    dt,
		Acceleration:  300,
		CatapultSpeed: 600,
		IntakeSpeed:   3600,
	}
}

// Robot is the simulated robot.  Its embedded RobotHardware is wired to the
// simulation.
type Robot struct {
	*hardware.RobotHardware

	cfg Config

	Left, Right   []*Motor
	IntakeMotor   *Motor
	CatapultMotor *Motor
	WingsOut      *hardware.DummyDigitalOut
	BlockerOut    *hardware.DummyDigitalOut
	Rotation      *Rotation
	Gyro          *Gyro

	lock                sync.Mutex
	pose                motion.Pose
	leftVel, rightVel   float64
	leftDist, rightDist float64
	stalled             bool
}

func New(cfg Config) *Robot {
	r := &Robot{
		cfg:           cfg,
		IntakeMotor:   &Motor{},
		CatapultMotor: &Motor{},
		WingsOut:      &hardware.DummyDigitalOut{Name: "wings"},
		BlockerOut:    &hardware.DummyDigitalOut{Name: "blocker"},
	}
	r.Rotation = &Rotation{}
	r.Gyro = &Gyro{robot: r}
	left, right := &hardware.MotorGroup{}, &hardware.MotorGroup{}
	for i := 0; i < 3; i++ {
		l, rt := &Motor{}, &Motor{}
		r.Left = append(r.Left, l)
		r.Right = append(r.Right, rt)
		left.Motors = append(left.Motors, l)
		right.Motors = append(right.Motors, rt)
	}
	r.RobotHardware = &hardware.RobotHardware{
		LeftDrive:        left,
		RightDrive:       right,
		Intake:           r.IntakeMotor,
		Catapult:         r.CatapultMotor,
		Wings:            r.WingsOut,
		Blocker:          r.BlockerOut,
		CatapultRotation: r.Rotation,
		IMU:              r.Gyro,
	}
	return r
}

// Run steps the simulation in real time until ctx is done.
func (r *Robot) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.loop(ctx, DriveStep, r.stepDrive)
	})
	g.Go(func() error {
		return r.loop(ctx, MechanismStep, r.stepMechanisms)
	})
	err := g.Wait()
	if err == context.Canceled {
		err = nil
	}
	return err
}

// Start runs the simulation in the background; the returned function stops
// it and waits for it to finish.
func (r *Robot) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := r.Run(ctx); err != nil {
			log.WithError(err).Error("Simulation failed")
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (r *Robot) loop(ctx context.Context, step time.Duration, f func(dt float64)) error {
	ticker := time.NewTicker(step)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			f(now.Sub(last).Seconds())
			last = now
		}
	}
}

func (r *Robot) maxWheelSpeed() float64 {
	dt := r.cfg.Drivetrain
	return dt.MotorRPM * 6 * dt.InchesPerMotorDegree()
}

func average(ms []*Motor) float64 {
	var sum float64
	for _, m := range ms {
		sum += float64(m.Command())
	}
	return sum / float64(len(ms))
}

func approach(current, target, maxChange float64) float64 {
	return motion.Slew(target, current, maxChange)
}

func (r *Robot) stepDrive(dt float64) {
	targetL := average(r.Left) / hardware.MaxVelocity * r.maxWheelSpeed()
	targetR := average(r.Right) / hardware.MaxVelocity * r.maxWheelSpeed()

	r.lock.Lock()
	if r.stalled {
		r.leftVel, r.rightVel = 0, 0
	} else {
		r.leftVel = approach(r.leftVel, targetL, r.cfg.Acceleration*dt)
		r.rightVel = approach(r.rightVel, targetR, r.cfg.Acceleration*dt)
	}
	dl, dr := r.leftVel*dt, r.rightVel*dt
	r.leftDist += dl
	r.rightDist += dr

	dTheta := angle.ToDegrees((dl - dr) / r.cfg.Drivetrain.TrackWidth)
	d := (dl + dr) / 2
	mid := angle.ToRadians(r.pose.Theta + dTheta/2)
	r.pose.X += d * math.Sin(mid)
	r.pose.Y += d * math.Cos(mid)
	r.pose.Theta += dTheta
	leftDeg := r.leftDist / r.cfg.Drivetrain.InchesPerMotorDegree()
	rightDeg := r.rightDist / r.cfg.Drivetrain.InchesPerMotorDegree()
	r.lock.Unlock()

	for _, m := range r.Left {
		m.setPosition(leftDeg)
	}
	for _, m := range r.Right {
		m.setPosition(rightDeg)
	}
}

func (r *Robot) stepMechanisms(dt float64) {
	cata := float64(r.CatapultMotor.Command()) / hardware.MaxVelocity * r.cfg.CatapultSpeed * dt
	r.CatapultMotor.advance(cata)
	r.Rotation.advance(cata)
	intake := float64(r.IntakeMotor.Command()) / hardware.MaxVelocity * r.cfg.IntakeSpeed * dt
	r.IntakeMotor.advance(intake)
}

// SetStalled pins the drive in place, as if pushed against a wall.
func (r *Robot) SetStalled(stalled bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.stalled = stalled
}

// TruePose is where the robot really is.
func (r *Robot) TruePose() motion.Pose {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.pose
}

// SetTruePose teleports the robot.  The gyro heading follows.
func (r *Robot) SetTruePose(p motion.Pose) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.pose = p
}

func (r *Robot) heading() float64 {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.pose.Theta
}

// Motor is a simulated smart motor.
type Motor struct {
	lock     sync.Mutex
	command  int
	brake    hardware.BrakeMode
	position float64
}

var _ hardware.Motor = (*Motor)(nil)

func (m *Motor) Move(velocity int) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.command = hardware.ClampVelocity(velocity)
	return nil
}

func (m *Motor) SetBrakeMode(mode hardware.BrakeMode) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.brake = mode
	return nil
}

func (m *Motor) Position() (float64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.position, nil
}

func (m *Motor) Command() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.command
}

func (m *Motor) BrakeMode() hardware.BrakeMode {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.brake
}

func (m *Motor) setPosition(deg float64) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.position = deg
}

func (m *Motor) advance(deg float64) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.position += deg
}

// Rotation simulates the catapult rotation sensor.  The arm turns with the
// catapult motor; tests can also place it or make it fail.
type Rotation struct {
	lock  sync.Mutex
	angle float64
	err   error
}

func (s *Rotation) Angle() (float64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.err != nil {
		return 0, hardware.SensorFault("catapult rotation", s.err)
	}
	return s.angle, nil
}

func (s *Rotation) SetAngle(deg float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.angle = angle.Wrap360(deg)
}

// SetFault makes every read fail with err until cleared with nil.
func (s *Rotation) SetFault(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.err = err
}

func (s *Rotation) advance(deg float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.angle = angle.Wrap360(s.angle + deg)
}

// Gyro reports the simulated heading relative to where it was calibrated.
type Gyro struct {
	robot *Robot

	lock       sync.Mutex
	offset     float64
	calibrated bool
}

func (g *Gyro) Calibrate(ctx context.Context) error {
	if t := g.robot.cfg.CalibrationTime; t > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t):
		}
	}
	g.lock.Lock()
	defer g.lock.Unlock()
	g.offset = g.robot.heading()
	g.calibrated = true
	return nil
}

func (g *Gyro) Heading() (float64, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	if !g.calibrated {
		return 0, hardware.SensorFault("inertial", hardware.ErrNotCalibrated)
	}
	return g.robot.heading() - g.offset, nil
}
