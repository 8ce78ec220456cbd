package drivermode

import (
	"time"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
)

// IntakeMapping selects how the L1/L2 buttons drive the intake.
type IntakeMapping string

const (
	// IntakeCrossGated: L2 runs the intake forwards, L1 in reverse; with
	// both or neither held the intake keeps doing what it was doing.
	IntakeCrossGated IntakeMapping = "cross-gated"
	// IntakeSelfGated reproduces the competition program as it shipped:
	// each button only writes while released, so it can only ever write 0.
	IntakeSelfGated IntakeMapping = "self-gated"
	// IntakeDirect: L1 forwards, L2 reverse, neither stops.
	IntakeDirect IntakeMapping = "direct"
)

type Config struct {
	// Deadband below which stick values are treated as 0.
	Deadband int `yaml:"deadband"`

	// While R2 is released the catapult winds until its rotation sensor
	// reads strictly inside (CatapultOpenLow, CatapultOpenHigh) degrees.
	CatapultOpenLow  float64 `yaml:"catapultOpenLow"`
	CatapultOpenHigh float64 `yaml:"catapultOpenHigh"`
	CatapultPower    int     `yaml:"catapultPower"`

	IntakeMapping IntakeMapping `yaml:"intakeMapping"`
	IntakePower   int           `yaml:"intakePower"`

	LoopInterval time.Duration `yaml:"loopInterval"`
}

func DefaultConfig() Config {
	return Config{
		Deadband:         15,
		CatapultOpenLow:  55,
		CatapultOpenHigh: 350,
		CatapultPower:    hardware.MaxVelocity,
		IntakeMapping:    IntakeCrossGated,
		IntakePower:      hardware.MaxVelocity,
		LoopInterval:     10 * time.Millisecond,
	}
}

func (c Config) Validate() error {
	if c.Deadband < 0 || c.Deadband > hardware.MaxVelocity {
		return errors.Errorf("deadband %d outside [0, %d]", c.Deadband, hardware.MaxVelocity)
	}
	if c.CatapultOpenLow >= c.CatapultOpenHigh {
		return errors.Errorf("catapult band (%v, %v) is inverted", c.CatapultOpenLow, c.CatapultOpenHigh)
	}
	switch c.IntakeMapping {
	case IntakeCrossGated, IntakeSelfGated, IntakeDirect:
	default:
		return errors.Errorf("unknown intake mapping %q", c.IntakeMapping)
	}
	if c.CatapultPower < 0 || c.IntakePower < 0 {
		return errors.New("powers must not be negative")
	}
	if c.LoopInterval <= 0 {
		return errors.New("loop interval must be positive")
	}
	return nil
}

// Deadband zeroes values whose magnitude is below threshold.
func Deadband(v, threshold int) int {
	if v > -threshold && v < threshold {
		return 0
	}
	return v
}

// Toggle flips its state on each press.  Holding the button does nothing
// more: only the released-to-pressed transition counts.
type Toggle struct {
	State bool
	prev  bool
}

func NewToggle(initial bool) *Toggle {
	return &Toggle{State: initial}
}

func (t *Toggle) Update(pressed bool) bool {
	if pressed && !t.prev {
		t.State = !t.State
	}
	t.prev = pressed
	return t.State
}

// CatapultCommand decides the catapult power.  With the trigger held it
// fires continuously; released, it winds until the arm is in the open band.
// A rotation sensor fault while released stops the catapult.
func (c Config) CatapultCommand(trigger bool, angle float64, angleErr error) int {
	if trigger {
		return c.CatapultPower
	}
	if angleErr != nil {
		return 0
	}
	if angle > c.CatapultOpenLow && angle < c.CatapultOpenHigh {
		return 0
	}
	return c.CatapultPower
}

// IntakeCommand maps the intake buttons to a power, given the power from
// the previous tick.
func (c Config) IntakeCommand(l1, l2 bool, prev int) int {
	power := c.IntakePower
	switch c.IntakeMapping {
	case IntakeSelfGated:
		out := prev
		if !l1 {
			out = power * b2i(l1)
		}
		if !l2 {
			out = -power * b2i(l2)
		}
		return out
	case IntakeDirect:
		switch {
		case l1 && !l2:
			return power
		case l2 && !l1:
			return -power
		}
		return 0
	default:
		out := prev
		if !l1 {
			out = power * b2i(l2)
		}
		if !l2 {
			out = -power * b2i(l1)
		}
		return out
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Input is one tick's worth of controller state.
type Input struct {
	LeftY, RightY int
	A, B          bool
	L1, L2, R2    bool
}

type Output struct {
	Left, Right int
	Wings       bool
	Blocker     bool
	Catapult    int
	Intake      int
}

// DriverControlState carries the memory of the driver-control loop between
// ticks: toggle states, previous buttons and the intake power.
type DriverControlState struct {
	cfg     Config
	wings   *Toggle
	blocker *Toggle
	intake  int
}

func NewDriverControlState(cfg Config, wings, blocker bool) *DriverControlState {
	return &DriverControlState{
		cfg:     cfg,
		wings:   NewToggle(wings),
		blocker: NewToggle(blocker),
	}
}

// Update computes one tick of outputs.  It has no side effects beyond the
// state's own memory.
func (s *DriverControlState) Update(in Input, catapultAngle float64, angleErr error) Output {
	s.intake = s.cfg.IntakeCommand(in.L1, in.L2, s.intake)
	return Output{
		Left:     Deadband(in.LeftY, s.cfg.Deadband),
		Right:    Deadband(in.RightY, s.cfg.Deadband),
		Wings:    s.wings.Update(in.A),
		Blocker:  s.blocker.Update(in.B),
		Catapult: s.cfg.CatapultCommand(in.R2, catapultAngle, angleErr),
		Intake:   s.intake,
	}
}
