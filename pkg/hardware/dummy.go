package hardware

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// DummyMotor records what it is told.  Position stays where it was set.
type DummyMotor struct {
	Name string

	lock     sync.Mutex
	velocity int
	brake    BrakeMode
	position float64
	history  []int
}

func (d *DummyMotor) Move(velocity int) error {
	v := ClampVelocity(velocity)
	d.lock.Lock()
	defer d.lock.Unlock()
	if len(d.history) == 0 || d.velocity != v {
		log.WithFields(logrus.Fields{"motor": d.Name, "velocity": v}).Debug("DHW: Move")
	}
	d.velocity = v
	d.history = append(d.history, v)
	return nil
}

func (d *DummyMotor) SetBrakeMode(mode BrakeMode) error {
	log.WithFields(logrus.Fields{"motor": d.Name, "mode": mode}).Debug("DHW: SetBrakeMode")
	d.lock.Lock()
	defer d.lock.Unlock()
	d.brake = mode
	return nil
}

func (d *DummyMotor) Position() (float64, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.position, nil
}

func (d *DummyMotor) SetPosition(deg float64) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.position = deg
}

func (d *DummyMotor) Velocity() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.velocity
}

func (d *DummyMotor) BrakeMode() BrakeMode {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.brake
}

// History returns every velocity commanded so far.
func (d *DummyMotor) History() []int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]int(nil), d.history...)
}

type DummyDigitalOut struct {
	Name string

	lock    sync.Mutex
	value   bool
	history []bool
}

func (d *DummyDigitalOut) Set(on bool) error {
	log.WithFields(logrus.Fields{"output": d.Name, "value": on}).Debug("DHW: Set")
	d.lock.Lock()
	defer d.lock.Unlock()
	d.value = on
	d.history = append(d.history, on)
	return nil
}

func (d *DummyDigitalOut) Value() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.value
}

func (d *DummyDigitalOut) History() []bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]bool(nil), d.history...)
}

// DummyRotation returns whatever angle (or error) it was last given.
type DummyRotation struct {
	lock  sync.Mutex
	angle float64
	err   error
}

func (d *DummyRotation) Angle() (float64, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.err != nil {
		return 0, SensorFault("catapult rotation", d.err)
	}
	return d.angle, nil
}

func (d *DummyRotation) SetAngle(deg float64) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.angle = deg
	d.err = nil
}

func (d *DummyRotation) SetError(err error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.err = err
}

type DummyInertial struct {
	lock       sync.Mutex
	heading    float64
	calibrated bool
}

func (d *DummyInertial) Calibrate(ctx context.Context) error {
	log.Debug("DHW: Calibrate")
	d.lock.Lock()
	defer d.lock.Unlock()
	d.calibrated = true
	d.heading = 0
	return nil
}

func (d *DummyInertial) Heading() (float64, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.heading, nil
}

func (d *DummyInertial) SetHeading(deg float64) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.heading = deg
}

type Dummy struct {
	*RobotHardware

	LeftMotors, RightMotors []*DummyMotor
	IntakeMotor             *DummyMotor
	CatapultMotor           *DummyMotor
	WingsOut                *DummyDigitalOut
	BlockerOut              *DummyDigitalOut
	Rotation                *DummyRotation
	Gyro                    *DummyInertial
}

// NewDummy builds a robot out of recording fakes.  Useful for tests and for
// running the controller on a desk.
func NewDummy() *Dummy {
	d := &Dummy{
		IntakeMotor:   &DummyMotor{Name: "intake"},
		CatapultMotor: &DummyMotor{Name: "catapult"},
		WingsOut:      &DummyDigitalOut{Name: "wings"},
		BlockerOut:    &DummyDigitalOut{Name: "blocker"},
		Rotation:      &DummyRotation{},
		Gyro:          &DummyInertial{},
	}
	left, right := &MotorGroup{}, &MotorGroup{}
	for i := 0; i < 3; i++ {
		l := &DummyMotor{Name: "left"}
		r := &DummyMotor{Name: "right"}
		d.LeftMotors = append(d.LeftMotors, l)
		d.RightMotors = append(d.RightMotors, r)
		left.Motors = append(left.Motors, l)
		right.Motors = append(right.Motors, r)
	}
	d.RobotHardware = &RobotHardware{
		LeftDrive:        left,
		RightDrive:       right,
		Intake:           d.IntakeMotor,
		Catapult:         d.CatapultMotor,
		Wings:            d.WingsOut,
		Blocker:          d.BlockerOut,
		CatapultRotation: d.Rotation,
		IMU:              d.Gyro,
	}
	return d
}
