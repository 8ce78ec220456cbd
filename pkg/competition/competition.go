// Package competition owns the match lifecycle: which mode is driving the
// robot, and the transitions between phases.
package competition

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/motion"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/pausemode"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/testmode"
)

var log = logrus.WithField("component", "competition")

type Phase int

const (
	Initialize Phase = iota
	Disabled
	Autonomous
	DriverControl
	// PitCheck runs each mechanism in turn.  It is only reachable from
	// Disabled and is not part of a match.
	PitCheck
)

func (p Phase) String() string {
	switch p {
	case Initialize:
		return "Initialize"
	case Disabled:
		return "Disabled"
	case Autonomous:
		return "Autonomous"
	case DriverControl:
		return "Driver control"
	case PitCheck:
		return "Pit check"
	}
	return "Unknown"
}

type Mode interface {
	Name() string
	StartupSound() string
	Start(ctx context.Context)
	Stop()
}

type JoystickUser interface {
	OnJoystickEvent(event *joystick.Event)
}

// Chassis is the part of the motion controller the lifecycle manages.
type Chassis interface {
	Calibrate(ctx context.Context) error
	SetPose(p motion.Pose)
	SetBrakeMode(mode hardware.BrakeMode) error
	CancelMotion()
}

// Timing is the length of each phase of a timed match.
type Timing struct {
	Autonomous    time.Duration `yaml:"autonomous"`
	DriverControl time.Duration `yaml:"driverControl"`
}

func DefaultTiming() Timing {
	return Timing{
		Autonomous:    15 * time.Second,
		DriverControl: 105 * time.Second,
	}
}

// Lifecycle runs at most one mode at a time.  Entering a phase stops the
// previous mode, cancels any motion and zeroes every motor before the new
// mode starts.
type Lifecycle struct {
	hw      *hardware.RobotHardware
	chassis Chassis
	timing  Timing
	modes   map[Phase]Mode

	lock   sync.Mutex
	phase  Phase
	active Mode

	matchLock   sync.Mutex
	matchCancel context.CancelFunc
	matchWG     sync.WaitGroup
}

func New(hw *hardware.RobotHardware, chassis Chassis, timing Timing, auto, driver Mode) *Lifecycle {
	return &Lifecycle{
		hw:      hw,
		chassis: chassis,
		timing:  timing,
		modes: map[Phase]Mode{
			Disabled:      &pausemode.PauseMode{Hardware: hw},
			Autonomous:    auto,
			DriverControl: driver,
			PitCheck:      testmode.New(hw),
		},
		phase: Initialize,
	}
}

func (l *Lifecycle) Phase() Phase {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.phase
}

// Initialize readies the robot: brake modes, gyro calibration and the pose
// origin.  It leaves the robot disabled.
func (l *Lifecycle) Initialize(ctx context.Context) error {
	log.Info("Initializing")
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stopActive()

	if err := l.chassis.SetBrakeMode(hardware.BrakeCoast); err != nil {
		log.WithError(err).Warn("Failed to set drive brake mode")
	}
	for _, m := range []hardware.Motor{l.hw.Catapult, l.hw.Intake} {
		if m == nil {
			continue
		}
		if err := m.SetBrakeMode(hardware.BrakeHold); err != nil {
			log.WithError(err).Warn("Failed to set mechanism brake mode")
		}
	}

	if err := l.chassis.Calibrate(ctx); err != nil {
		return errors.Wrap(err, "failed to initialize chassis")
	}
	l.chassis.SetPose(motion.Pose{})

	l.startLocked(ctx, Disabled)
	return nil
}

// Enter switches to the given phase.
func (l *Lifecycle) Enter(ctx context.Context, phase Phase) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if _, ok := l.modes[phase]; !ok {
		return errors.Errorf("cannot enter phase %v", phase)
	}
	if l.phase == Initialize {
		return errors.New("robot not initialized")
	}
	l.stopActive()
	l.startLocked(ctx, phase)
	return nil
}

// EnterPitCheck starts the mechanism check.  The robot must be disabled.
func (l *Lifecycle) EnterPitCheck(ctx context.Context) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.phase != Disabled {
		return errors.Errorf("pit check needs the robot disabled, not in %v", l.phase)
	}
	l.stopActive()
	l.startLocked(ctx, PitCheck)
	return nil
}

func (l *Lifecycle) stopActive() {
	if l.active != nil {
		log.WithField("mode", l.active.Name()).Info("Stopping mode")
		l.active.Stop()
		l.active = nil
	}
	l.chassis.CancelMotion()
	l.hw.StopMotors()
}

func (l *Lifecycle) startLocked(ctx context.Context, phase Phase) {
	mode := l.modes[phase]
	l.phase = phase
	l.active = mode
	log.WithField("mode", mode.Name()).Infof("----- %s -----", phase)
	l.hw.PlaySound(mode.StartupSound())
	mode.Start(ctx)
}

// OnJoystickEvent handles the practice controls and passes everything else
// to the active mode.  Options steps through the phases by hand; Share
// starts a timed match; PS runs the pit check from Disabled.
func (l *Lifecycle) OnJoystickEvent(ctx context.Context, event *joystick.Event) {
	if event.Type == joystick.EventTypeButton && event.Value == 1 {
		switch event.Number {
		case joystick.ButtonOptions:
			l.cancelMatch()
			next := l.Phase() + 1
			if next > DriverControl {
				next = Disabled
			}
			log.Info("Options pressed: switching phase")
			if err := l.Enter(ctx, next); err != nil {
				log.WithError(err).Warn("Failed to switch phase")
			}
			return
		case joystick.ButtonShare:
			log.Info("Share pressed: starting match")
			l.StartMatch(ctx)
			return
		case joystick.ButtonPS:
			log.Info("PS pressed: starting pit check")
			if err := l.EnterPitCheck(ctx); err != nil {
				log.WithError(err).Warn("Ignoring pit check request")
			}
			return
		}
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	if ju, ok := l.active.(JoystickUser); ok {
		ju.OnJoystickEvent(event)
	}
}

// RunMatch runs autonomous then driver control for their configured times
// and finishes disabled.  If ctx ends first the current phase is left to
// the caller.
func (l *Lifecycle) RunMatch(ctx context.Context) error {
	for _, p := range []struct {
		phase Phase
		d     time.Duration
	}{
		{Autonomous, l.timing.Autonomous},
		{DriverControl, l.timing.DriverControl},
	} {
		if err := l.Enter(ctx, p.phase); err != nil {
			return err
		}
		timer := time.NewTimer(p.d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	log.Info("Match over")
	return l.Enter(ctx, Disabled)
}

// StartMatch runs a match in the background, replacing any match already
// running.
func (l *Lifecycle) StartMatch(ctx context.Context) {
	l.cancelMatch()

	l.matchLock.Lock()
	defer l.matchLock.Unlock()
	var matchCtx context.Context
	matchCtx, l.matchCancel = context.WithCancel(ctx)
	l.matchWG.Add(1)
	go func() {
		defer l.matchWG.Done()
		if err := l.RunMatch(matchCtx); err != nil && matchCtx.Err() == nil {
			log.WithError(err).Error("Match failed")
		}
	}()
}

func (l *Lifecycle) cancelMatch() {
	l.matchLock.Lock()
	cancel := l.matchCancel
	l.matchCancel = nil
	l.matchLock.Unlock()
	if cancel != nil {
		cancel()
		l.matchWG.Wait()
	}
}

// Shutdown stops any match and the active mode and zeroes the motors.
func (l *Lifecycle) Shutdown() {
	l.cancelMatch()
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stopActive()
}
