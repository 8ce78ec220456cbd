package automode

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/path"
)

// AutonomousPeriod is the length of the autonomous phase of a match.
const AutonomousPeriod = 15 * time.Second

type StepKind string

const (
	StepSetPose       StepKind = "setPose"
	StepSetActuator   StepKind = "setActuator"
	StepMoveMotor     StepKind = "moveMotor"
	StepMoveToPose    StepKind = "moveToPose"
	StepMoveToPoint   StepKind = "moveToPoint"
	StepTurnTo        StepKind = "turnTo"
	StepTurnToHeading StepKind = "turnToHeading"
	StepFollow        StepKind = "follow"
	StepWaitUntil     StepKind = "waitUntil"
	StepWaitUntilDone StepKind = "waitUntilDone"
	StepDelay         StepKind = "delay"
)

// Step is one entry in a routine.  Which fields matter depends on Kind.
type Step struct {
	Kind StepKind `yaml:"kind"`

	// Targets, for setPose and the motions.  turnToHeading uses only Theta.
	X     float64 `yaml:"x,omitempty"`
	Y     float64 `yaml:"y,omitempty"`
	Theta float64 `yaml:"theta,omitempty"`

	// Motion parameters.
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	Reverse   bool          `yaml:"reverse,omitempty"`
	MaxSpeed  float64       `yaml:"maxSpeed,omitempty"`
	Lead      float64       `yaml:"lead,omitempty"`
	Sync      bool          `yaml:"sync,omitempty"`
	Path      string        `yaml:"path,omitempty"`
	Lookahead float64       `yaml:"lookahead,omitempty"`

	// Distance for waitUntil: inches, or degrees after a turn.
	Distance float64 `yaml:"distance,omitempty"`

	// setActuator: "wings" or "blocker".
	Actuator string `yaml:"actuator,omitempty"`
	Value    bool   `yaml:"value,omitempty"`

	// moveMotor: "intake" or "catapult".
	Motor    string `yaml:"motor,omitempty"`
	Velocity int    `yaml:"velocity,omitempty"`

	// delay.
	Duration time.Duration `yaml:"duration,omitempty"`

	// ExpectedElapsed notes the worst-case time into the routine by which
	// this step runs.  Checked by Budget, ignored when running.
	ExpectedElapsed time.Duration `yaml:"expectedElapsed,omitempty"`
}

func (s Step) IsMotion() bool {
	switch s.Kind {
	case StepMoveToPose, StepMoveToPoint, StepTurnTo, StepTurnToHeading, StepFollow:
		return true
	}
	return false
}

func (s Step) String() string {
	dir := ""
	if s.Reverse {
		dir = " reverse"
	}
	switch s.Kind {
	case StepSetPose:
		return fmt.Sprintf("setPose(%v, %v, %v)", s.X, s.Y, s.Theta)
	case StepSetActuator:
		return fmt.Sprintf("%s = %v", s.Actuator, s.Value)
	case StepMoveMotor:
		return fmt.Sprintf("%s.move(%d)", s.Motor, s.Velocity)
	case StepMoveToPose:
		return fmt.Sprintf("moveToPose(%v, %v, %v, %v%s)", s.X, s.Y, s.Theta, s.Timeout, dir)
	case StepMoveToPoint:
		return fmt.Sprintf("moveToPoint(%v, %v, %v%s)", s.X, s.Y, s.Timeout, dir)
	case StepTurnTo:
		return fmt.Sprintf("turnTo(%v, %v, %v%s)", s.X, s.Y, s.Timeout, dir)
	case StepTurnToHeading:
		return fmt.Sprintf("turnToHeading(%v, %v)", s.Theta, s.Timeout)
	case StepFollow:
		return fmt.Sprintf("follow(%s, %v, %v%s)", s.Path, s.Lookahead, s.Timeout, dir)
	case StepWaitUntil:
		return fmt.Sprintf("waitUntil(%v)", s.Distance)
	case StepWaitUntilDone:
		return "waitUntilDone()"
	case StepDelay:
		return fmt.Sprintf("delay(%v)", s.Duration)
	}
	return string(s.Kind)
}

type Routine struct {
	Name string `yaml:"name"`
	// PhaseBudget is the time the routine must fit in; defaults to the
	// autonomous period.
	PhaseBudget time.Duration `yaml:"phaseBudget,omitempty"`
	Steps       []Step        `yaml:"steps"`
}

func (r *Routine) Budget() time.Duration {
	if r.PhaseBudget <= 0 {
		return AutonomousPeriod
	}
	return r.PhaseBudget
}

// Validate checks that every step is well formed and that the paths it
// names exist.
func (r *Routine) Validate() error {
	for i, s := range r.Steps {
		if err := validateStep(s); err != nil {
			return errors.Wrapf(err, "step %d (%s)", i, s.Kind)
		}
	}
	return nil
}

func validateStep(s Step) error {
	if s.IsMotion() && s.Timeout <= 0 {
		return errors.New("motion needs a positive timeout")
	}
	switch s.Kind {
	case StepSetPose, StepMoveToPose, StepMoveToPoint, StepTurnTo, StepTurnToHeading, StepWaitUntilDone:
	case StepSetActuator:
		if s.Actuator != ActuatorWings && s.Actuator != ActuatorBlocker {
			return errors.Errorf("unknown actuator %q", s.Actuator)
		}
	case StepMoveMotor:
		if s.Motor != MotorIntake && s.Motor != MotorCatapult {
			return errors.Errorf("unknown motor %q", s.Motor)
		}
	case StepFollow:
		if s.Lookahead <= 0 {
			return errors.New("follow needs a positive lookahead")
		}
		if _, err := path.Load(s.Path); err != nil {
			return err
		}
	case StepWaitUntil:
		if s.Distance < 0 {
			return errors.New("negative distance")
		}
	case StepDelay:
		if s.Duration < 0 {
			return errors.New("negative delay")
		}
	default:
		return errors.Errorf("unknown step kind %q", s.Kind)
	}
	if s.MaxSpeed < 0 || s.Lead < 0 {
		return errors.New("negative motion parameter")
	}
	return nil
}

const (
	ActuatorWings   = "wings"
	ActuatorBlocker = "blocker"
	MotorIntake     = "intake"
	MotorCatapult   = "catapult"
)

// BudgetReport is the static worst-case timing of a routine: every motion
// runs to its timeout and every delay is served in full.
type BudgetReport struct {
	Routine string
	Budget  time.Duration
	Total   time.Duration
	// Cumulative[i] is the worst-case time at which step i has been issued
	// and every motion before it has finished.
	Cumulative []time.Duration
	// Mismatches lists steps whose ExpectedElapsed disagrees with the
	// worst case.
	Mismatches []string
}

func (b *BudgetReport) OK() bool {
	return b.Total <= b.Budget
}

// Budget sums a routine's motion timeouts and delays.  Motions queue
// behind each other, so the sum is the worst-case duration whether or not
// the sequence waits for them.  It fails if the total exceeds the phase
// budget.
func Budget(r *Routine) (*BudgetReport, error) {
	b := &BudgetReport{Routine: r.Name, Budget: r.Budget()}
	var total time.Duration
	for i, s := range r.Steps {
		if s.IsMotion() {
			total += s.Timeout
		}
		if s.Kind == StepDelay {
			total += s.Duration
		}
		b.Cumulative = append(b.Cumulative, total)
		if s.ExpectedElapsed != 0 && s.ExpectedElapsed != total {
			b.Mismatches = append(b.Mismatches, fmt.Sprintf(
				"step %d (%s): annotated %v, worst case %v", i, s, s.ExpectedElapsed, total))
		}
	}
	b.Total = total
	if !b.OK() {
		return b, errors.Errorf("routine %q needs up to %v but the phase is %v", r.Name, b.Total, b.Budget)
	}
	return b, nil
}

// LoadRoutine reads a routine from a YAML file.
func LoadRoutine(filename string) (*Routine, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read routine")
	}
	return ParseRoutine(data)
}

func ParseRoutine(data []byte) (*Routine, error) {
	var r Routine
	if err := yaml.UnmarshalStrict(data, &r); err != nil {
		return nil, errors.Wrap(err, "failed to parse routine")
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Encode renders the routine in the same YAML form LoadRoutine reads.
func (r *Routine) Encode() ([]byte, error) {
	return yaml.Marshal(r)
}
