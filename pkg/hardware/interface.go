package hardware

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Velocity commands are on the controller's scale: full reverse to full
// forward.
const (
	MaxVelocity = 127
	MinVelocity = -127
)

type BrakeMode string

const (
	BrakeCoast BrakeMode = "coast"
	BrakeBrake BrakeMode = "brake"
	BrakeHold  BrakeMode = "hold"
)

// Gearset is the motor cartridge's internal reduction.
type Gearset int

const (
	Gearset36 Gearset = 36 // 100 rpm
	Gearset18 Gearset = 18 // 200 rpm
	Gearset6  Gearset = 6  // 600 rpm
)

// RPM returns the free speed of the cartridge's output shaft.
func (g Gearset) RPM() float64 {
	switch g {
	case Gearset36:
		return 100
	case Gearset6:
		return 600
	default:
		return 200
	}
}

// TicksPerRev returns encoder ticks per output shaft revolution.
func (g Gearset) TicksPerRev() float64 {
	switch g {
	case Gearset36:
		return 1800
	case Gearset6:
		return 300
	default:
		return 900
	}
}

type Motor interface {
	// Move commands a velocity in [MinVelocity, MaxVelocity]; out-of-range
	// values are clamped.
	Move(velocity int) error
	SetBrakeMode(mode BrakeMode) error
	// Position returns output shaft rotation in degrees since start-up.
	Position() (float64, error)
}

type DigitalOut interface {
	Set(on bool) error
	Value() bool
}

type RotationSensor interface {
	// Angle returns the sensor angle in degrees.
	Angle() (float64, error)
}

type Inertial interface {
	// Calibrate blocks until the sensor is calibrated; the robot must be
	// stationary.
	Calibrate(ctx context.Context) error
	// Heading returns the integrated heading in degrees, clockwise
	// positive, unbounded.
	Heading() (float64, error)
}

type PowerSensor interface {
	BatteryVolts() (float64, error)
}

type SoundPlayer interface {
	PlaySound(path string)
}

// ErrSensorFault is matched by every error that means a sensor could not
// give a trustworthy reading.
var ErrSensorFault = errors.New("sensor fault")

type SensorFaultError struct {
	Sensor string
	Err    error
}

func SensorFault(sensor string, err error) error {
	if err == nil {
		return nil
	}
	return &SensorFaultError{Sensor: sensor, Err: err}
}

func (e *SensorFaultError) Error() string {
	return fmt.Sprintf("sensor fault on %s: %v", e.Sensor, e.Err)
}

func (e *SensorFaultError) Unwrap() error {
	return e.Err
}

func (e *SensorFaultError) Is(target error) bool {
	return target == ErrSensorFault
}

func ClampVelocity(v int) int {
	if v > MaxVelocity {
		return MaxVelocity
	}
	if v < MinVelocity {
		return MinVelocity
	}
	return v
}
