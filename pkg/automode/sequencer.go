package automode

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/motion"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/path"
)

var log = logrus.WithField("component", "automode")

// Chassis is what the sequencer needs from the motion controller.
type Chassis interface {
	SetPose(p motion.Pose)
	MoveToPose(ctx context.Context, x, y, theta float64, timeout time.Duration, p motion.Params) (*motion.Motion, error)
	MoveToPoint(ctx context.Context, x, y float64, timeout time.Duration, p motion.Params) (*motion.Motion, error)
	TurnTo(ctx context.Context, x, y float64, timeout time.Duration, p motion.Params) (*motion.Motion, error)
	TurnToHeading(ctx context.Context, heading float64, timeout time.Duration, p motion.Params) (*motion.Motion, error)
	Follow(ctx context.Context, p *path.Path, lookahead float64, timeout time.Duration, params motion.Params) (*motion.Motion, error)
	WaitUntil(ctx context.Context, dist float64) error
	WaitUntilDone(ctx context.Context) (motion.Outcome, error)
}

var _ Chassis = (*motion.Chassis)(nil)

type StepResult struct {
	Index int
	Step  Step
	// Start is the time into the routine at which the step was issued.
	Start   time.Duration
	Outcome motion.Outcome
	Err     error

	motion *motion.Motion
}

type Report struct {
	Routine string
	Elapsed time.Duration
	Steps   []StepResult
	// Aborted is set if the phase ended before the routine did.
	Aborted bool
}

// TimedOut lists the motions that were abandoned at their timeout.
func (r *Report) TimedOut() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if s.Step.IsMotion() && s.Outcome == motion.TimedOut {
			out = append(out, s)
		}
	}
	return out
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Routine %q: %v", r.Routine, r.Elapsed.Round(time.Millisecond))
	if r.Aborted {
		b.WriteString(" (aborted)")
	}
	b.WriteString("\n")
	for _, s := range r.Steps {
		fmt.Fprintf(&b, "  %2d %8v %-45s", s.Index, s.Start.Round(time.Millisecond), s.Step)
		if s.Step.IsMotion() || s.Outcome != motion.Settled {
			fmt.Fprintf(&b, " %v", s.Outcome)
		}
		if s.Err != nil {
			fmt.Fprintf(&b, " error: %v", s.Err)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Sequencer runs routines step by step against the chassis and the
// robot's mechanisms.
type Sequencer struct {
	chassis Chassis
	hw      *hardware.RobotHardware
	// Paths looks up path assets by name.
	Paths func(name string) (*path.Path, error)
}

func NewSequencer(chassis Chassis, hw *hardware.RobotHardware) *Sequencer {
	return &Sequencer{
		chassis: chassis,
		hw:      hw,
		Paths:   path.Load,
	}
}

// Run executes the routine.  A motion that times out is recorded and the
// routine carries on; step errors are logged and skipped.  When ctx ends
// the running motion is cancelled and the remaining steps are not run.
// Run returns once every motion it started has finished.
func (s *Sequencer) Run(ctx context.Context, r *Routine) *Report {
	report := &Report{Routine: r.Name}
	start := time.Now()
	rlog := log.WithField("routine", r.Name)
	rlog.Info("Starting routine")

	for i, step := range r.Steps {
		if ctx.Err() != nil {
			report.Aborted = true
			break
		}
		res := StepResult{Index: i, Step: step, Start: time.Since(start)}
		res.motion, res.Outcome, res.Err = s.runStep(ctx, step)
		if res.Err != nil {
			if ctx.Err() != nil {
				res.Outcome = motion.Cancelled
				res.Err = nil
				report.Aborted = true
			} else {
				rlog.WithError(res.Err).WithField("step", i).Warn("Step failed; continuing")
			}
		}
		report.Steps = append(report.Steps, res)
		if report.Aborted {
			break
		}
	}

	// Let the last motion run out (or be cancelled with the phase), then
	// collect every motion's outcome.
	for i := range report.Steps {
		res := &report.Steps[i]
		if res.motion == nil {
			continue
		}
		<-res.motion.Done()
		res.Outcome = res.motion.Outcome()
		if res.Outcome == motion.TimedOut {
			rlog.WithFields(logrus.Fields{"step": i, "motion": res.Step.String()}).Warn("Motion timed out")
		}
	}
	report.Elapsed = time.Since(start)
	rlog.WithFields(logrus.Fields{
		"elapsed":  report.Elapsed.Round(time.Millisecond),
		"timedOut": len(report.TimedOut()),
		"aborted":  report.Aborted,
	}).Info("Routine finished")
	return report
}

func (s *Sequencer) runStep(ctx context.Context, step Step) (*motion.Motion, motion.Outcome, error) {
	params := motion.Params{
		Reverse:  step.Reverse,
		MaxSpeed: step.MaxSpeed,
		Lead:     step.Lead,
		Async:    !step.Sync,
	}
	var m *motion.Motion
	var err error
	switch step.Kind {
	case StepSetPose:
		s.chassis.SetPose(motion.Pose{X: step.X, Y: step.Y, Theta: step.Theta})
		return nil, motion.Settled, nil
	case StepSetActuator:
		return nil, motion.Settled, s.setActuator(step.Actuator, step.Value)
	case StepMoveMotor:
		return nil, motion.Settled, s.moveMotor(step.Motor, step.Velocity)
	case StepMoveToPose:
		m, err = s.chassis.MoveToPose(ctx, step.X, step.Y, step.Theta, step.Timeout, params)
	case StepMoveToPoint:
		m, err = s.chassis.MoveToPoint(ctx, step.X, step.Y, step.Timeout, params)
	case StepTurnTo:
		m, err = s.chassis.TurnTo(ctx, step.X, step.Y, step.Timeout, params)
	case StepTurnToHeading:
		m, err = s.chassis.TurnToHeading(ctx, step.Theta, step.Timeout, params)
	case StepFollow:
		p, perr := s.Paths(step.Path)
		if perr != nil {
			return nil, motion.Settled, perr
		}
		m, err = s.chassis.Follow(ctx, p, step.Lookahead, step.Timeout, params)
	case StepWaitUntil:
		err := s.chassis.WaitUntil(ctx, step.Distance)
		if err == nil {
			// The motion may have ended because the phase did.
			err = ctx.Err()
		}
		if err != nil {
			return nil, motion.Cancelled, err
		}
		return nil, motion.Settled, nil
	case StepWaitUntilDone:
		o, err := s.chassis.WaitUntilDone(ctx)
		return nil, o, err
	case StepDelay:
		t := time.NewTimer(step.Duration)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, motion.Cancelled, ctx.Err()
		case <-t.C:
			return nil, motion.Settled, nil
		}
	default:
		return nil, motion.Settled, errors.Errorf("unknown step kind %q", step.Kind)
	}
	if err != nil {
		return nil, motion.Settled, err
	}
	return m, motion.Settled, nil
}

func (s *Sequencer) setActuator(name string, v bool) error {
	var d hardware.DigitalOut
	switch name {
	case ActuatorWings:
		d = s.hw.Wings
	case ActuatorBlocker:
		d = s.hw.Blocker
	default:
		return errors.Errorf("unknown actuator %q", name)
	}
	log.WithFields(logrus.Fields{"actuator": name, "value": v}).Debug("Setting actuator")
	return d.Set(v)
}

func (s *Sequencer) moveMotor(name string, v int) error {
	var m hardware.Motor
	switch name {
	case MotorIntake:
		m = s.hw.Intake
	case MotorCatapult:
		m = s.hw.Catapult
	default:
		return errors.Errorf("unknown motor %q", name)
	}
	return m.Move(v)
}
