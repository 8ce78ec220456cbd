package automode

import (
	"sort"
	"time"

	"github.com/pkg/errors"
)

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// MatchRoutine is the competition autonomous: score the preload and the
// match loads under the elevation bar, then push into the goal from the
// side.  Motions are issued asynchronously; each queues behind the last.
func MatchRoutine() *Routine {
	return &Routine{
		Name:        "match",
		PhaseBudget: AutonomousPeriod,
		Steps: []Step{
			{Kind: StepSetPose, X: 33, Y: -53, Theta: 0},
			{Kind: StepSetActuator, Actuator: ActuatorWings, Value: true},
			// Knock the triball out of the corner while heading to the
			// middle.
			{Kind: StepMoveToPose, X: 11, Y: -4, Theta: 309, Timeout: ms(1000)},
			{Kind: StepWaitUntil, Distance: 1},
			{Kind: StepSetActuator, Actuator: ActuatorWings, Value: false},
			{Kind: StepMoveMotor, Motor: MotorIntake, Velocity: 127, ExpectedElapsed: ms(1000)},

			// Sweep across the barrier with the wings out.
			{Kind: StepMoveToPose, X: 41, Y: -4, Theta: 90, Timeout: ms(800)},
			{Kind: StepWaitUntil, Distance: 2},
			{Kind: StepSetActuator, Actuator: ActuatorWings, Value: true},
			{Kind: StepWaitUntil, Distance: 4},
			{Kind: StepMoveMotor, Motor: MotorIntake, Velocity: -127, ExpectedElapsed: ms(1800)},

			{Kind: StepMoveToPoint, X: 20, Y: -4, Timeout: ms(600), Reverse: true},
			{Kind: StepSetActuator, Actuator: ActuatorWings, Value: false, ExpectedElapsed: ms(2400)},

			{Kind: StepMoveToPose, X: 11, Y: -20, Theta: 240, Timeout: ms(700)},
			{Kind: StepMoveMotor, Motor: MotorIntake, Velocity: 127, ExpectedElapsed: ms(3100)},

			// Under the elevation bar, spitting out the triball part way.
			{Kind: StepFollow, Path: "pathUnderHang", Lookahead: 15, Timeout: ms(3500)},
			{Kind: StepWaitUntil, Distance: 35},
			{Kind: StepMoveMotor, Motor: MotorIntake, Velocity: -127},
			{Kind: StepWaitUntil, Distance: 40},
			{Kind: StepMoveMotor, Motor: MotorIntake, Velocity: 127, ExpectedElapsed: ms(6600)},

			{Kind: StepMoveToPoint, X: 30, Y: -58, Timeout: ms(300), Reverse: true, ExpectedElapsed: ms(6900)},
			{Kind: StepTurnTo, X: 40, Y: -58, Timeout: ms(600), ExpectedElapsed: ms(7500)},

			// Push into the side of the goal twice.
			{Kind: StepFollow, Path: "pathCurveGoal", Lookahead: 10, Timeout: ms(3000), ExpectedElapsed: ms(10500)},
			{Kind: StepFollow, Path: "pathCurveGoal", Lookahead: 10, Timeout: ms(3000), Reverse: true, ExpectedElapsed: ms(13500)},
			{Kind: StepMoveToPoint, X: 8, Y: -58, Timeout: ms(300), Reverse: true, ExpectedElapsed: ms(13800)},
		},
	}
}

// NoneRoutine does nothing; for when the robot should just sit still.
func NoneRoutine() *Routine {
	return &Routine{Name: "none", PhaseBudget: AutonomousPeriod}
}

var builtins = map[string]func() *Routine{
	"match": MatchRoutine,
	"none":  NoneRoutine,
}

// Builtin returns a fresh copy of a built-in routine.
func Builtin(name string) (*Routine, error) {
	f, ok := builtins[name]
	if !ok {
		return nil, errors.Errorf("unknown routine %q", name)
	}
	return f(), nil
}

func BuiltinNames() []string {
	var names []string
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Select returns the routine file if one is given, otherwise the named
// built-in routine.
func Select(name, file string) (*Routine, error) {
	if file != "" {
		return LoadRoutine(file)
	}
	return Builtin(name)
}
