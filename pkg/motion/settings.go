package motion

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// ControllerSettings tunes one axis (linear or angular) of the motion
// controller.  The error ranges are in inches for the linear axis and
// degrees for the angular axis.
type ControllerSettings struct {
	KP float64 `yaml:"kP"`
	KD float64 `yaml:"kD"`

	SmallErrorRange   float64       `yaml:"smallErrorRange"`
	SmallErrorTimeout time.Duration `yaml:"smallErrorTimeout"`
	LargeErrorRange   float64       `yaml:"largeErrorRange"`
	LargeErrorTimeout time.Duration `yaml:"largeErrorTimeout"`

	// MaxSlew bounds the change in output per control tick; 0 disables.
	MaxSlew float64 `yaml:"maxSlew"`
}

// DefaultLinearSettings and DefaultAngularSettings are the tuned values for
// the competition robot.
func DefaultLinearSettings() ControllerSettings {
	return ControllerSettings{
		KP:                10,
		KD:                30,
		SmallErrorRange:   1,
		SmallErrorTimeout: 100 * time.Millisecond,
		LargeErrorRange:   3,
		LargeErrorTimeout: 500 * time.Millisecond,
		MaxSlew:           20,
	}
}

func DefaultAngularSettings() ControllerSettings {
	return ControllerSettings{
		KP:                2,
		KD:                10,
		SmallErrorRange:   1,
		SmallErrorTimeout: 100 * time.Millisecond,
		LargeErrorRange:   3,
		LargeErrorTimeout: 500 * time.Millisecond,
		MaxSlew:           20,
	}
}

func (s ControllerSettings) Validate() error {
	for name, v := range map[string]float64{
		"kP":              s.KP,
		"kD":              s.KD,
		"smallErrorRange": s.SmallErrorRange,
		"largeErrorRange": s.LargeErrorRange,
		"maxSlew":         s.MaxSlew,
	} {
		if v < 0 || math.IsNaN(v) {
			return errors.Errorf("%s must not be negative (got %v)", name, v)
		}
	}
	if s.SmallErrorTimeout < 0 || s.LargeErrorTimeout < 0 {
		return errors.New("exit timeouts must not be negative")
	}
	return nil
}

// Drivetrain holds the physical calibration constants of the chassis.
type Drivetrain struct {
	// TrackWidth is the distance between the left and right wheels, inches.
	TrackWidth    float64 `yaml:"trackWidth"`
	WheelDiameter float64 `yaml:"wheelDiameter"`
	// WheelRPM is the free speed of the wheels; MotorRPM is the free speed
	// of the motor cartridge driving them.
	WheelRPM float64 `yaml:"wheelRPM"`
	MotorRPM float64 `yaml:"motorRPM"`
	// ChasePower limits speed on curves so the wheels don't slip.
	ChasePower float64 `yaml:"chasePower"`
}

func DefaultDrivetrain() Drivetrain {
	return Drivetrain{
		TrackWidth:    12,
		WheelDiameter: 3.25,
		WheelRPM:      360,
		MotorRPM:      600,
		ChasePower:    8,
	}
}

func (d Drivetrain) Validate() error {
	if d.TrackWidth <= 0 || d.WheelDiameter <= 0 || d.WheelRPM <= 0 || d.MotorRPM <= 0 {
		return errors.New("drivetrain geometry must be positive")
	}
	if d.ChasePower < 0 {
		return errors.New("chase power must not be negative")
	}
	return nil
}

// InchesPerMotorDegree converts motor shaft rotation to wheel travel.
func (d Drivetrain) InchesPerMotorDegree() float64 {
	return math.Pi * d.WheelDiameter / 360 * d.WheelRPM / d.MotorRPM
}
