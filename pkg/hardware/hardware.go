package hardware

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/as5600"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/imu"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/ina219"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/motorboard"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/pca9685"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/sound"
)

// New opens the real robot: the smart-port motor board, the solenoid
// board, the catapult rotation sensor, the gyro and (optionally) the
// battery monitor.  The gyro integration loop runs until ctx is done.
func New(ctx context.Context, ports PortMap, devices DeviceConfig) (*RobotHardware, error) {
	if err := ports.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid port map")
	}

	r := &RobotHardware{}
	fail := func(err error) (*RobotHardware, error) {
		r.Shutdown()
		return nil, err
	}

	board, err := motorboard.New(devices.I2CBus, devices.MotorBoardAddr)
	if err != nil {
		return fail(err)
	}
	r.addCloser(board.Close)
	if devices.WatchdogTimeout > 0 {
		if err := board.SetWatchdog(devices.WatchdogTimeout); err != nil {
			return fail(err)
		}
	}

	newMotor := func(p MotorPort) (Motor, error) {
		m := &boardMotor{
			board:    board,
			port:     p.Port,
			reversed: p.Reversed,
			gearset:  p.Gearset,
			encoder:  motorboard.NewEncoderTracker(board, p.Port),
		}
		if err := m.SetBrakeMode(p.Brake); err != nil {
			return nil, err
		}
		return m, nil
	}
	newGroup := func(ps []MotorPort) (*MotorGroup, error) {
		g := &MotorGroup{}
		for _, p := range ps {
			m, err := newMotor(p)
			if err != nil {
				return nil, err
			}
			g.Motors = append(g.Motors, m)
		}
		return g, nil
	}
	if r.LeftDrive, err = newGroup(ports.LeftDrive); err != nil {
		return fail(err)
	}
	if r.RightDrive, err = newGroup(ports.RightDrive); err != nil {
		return fail(err)
	}
	if r.Catapult, err = newMotor(ports.Catapult); err != nil {
		return fail(err)
	}
	if r.Intake, err = newMotor(ports.Intake); err != nil {
		return fail(err)
	}

	solenoids, err := pca9685.New(devices.I2CBus, devices.SolenoidBoardAddr)
	if err != nil {
		return fail(err)
	}
	r.addCloser(solenoids.Close)
	if err := solenoids.Configure(); err != nil {
		return fail(errors.Wrap(err, "configure solenoid board"))
	}
	if r.Wings, err = newSolenoid(solenoids, ports.Wings); err != nil {
		return fail(err)
	}
	if r.Blocker, err = newSolenoid(solenoids, ports.Blocker); err != nil {
		return fail(err)
	}

	rot, err := as5600.NewI2C(devices.I2CBus, devices.RotationAddr, devices.RotationReversed)
	if err != nil {
		return fail(err)
	}
	r.addCloser(rot.Close)
	r.CatapultRotation = &rotationSensor{dev: rot}

	gyro, err := imu.NewSPI(devices.IMUSPIDevice)
	if err != nil {
		return fail(err)
	}
	inertial := NewGyroInertial(gyro)
	r.IMU = inertial
	var loopDone sync.WaitGroup
	loopCtx, cancelLoop := context.WithCancel(ctx)
	loopDone.Add(1)
	go inertial.Loop(loopCtx, &loopDone)
	r.addCloser(func() error {
		cancelLoop()
		loopDone.Wait()
		return nil
	})

	if devices.BatteryAddr != 0 {
		batt, err := ina219.NewI2C(devices.I2CBus, devices.BatteryAddr)
		if err == nil {
			err = batt.Configure(0.1, 2.0)
		}
		if err != nil {
			// Not needed to drive; carry on without it.
			log.WithError(err).Warn("Failed to open battery monitor; ignoring")
		} else {
			r.Battery = batt
		}
	}

	r.enableSounds(devices.Sounds, func() SoundPlayer { return sound.NewPlayer() })

	return r, nil
}

type boardMotor struct {
	lock     sync.Mutex
	board    motorboard.Interface
	port     int
	reversed bool
	gearset  Gearset
	encoder  *motorboard.EncoderTracker
}

func (m *boardMotor) Move(velocity int) error {
	v := ClampVelocity(velocity)
	if m.reversed {
		v = -v
	}
	return m.board.SetVelocity(m.port, int16(v))
}

func (m *boardMotor) SetBrakeMode(mode BrakeMode) error {
	var bm motorboard.BrakeMode
	switch mode {
	case BrakeBrake:
		bm = motorboard.BrakeBrake
	case BrakeHold:
		bm = motorboard.BrakeHold
	default:
		bm = motorboard.BrakeCoast
	}
	return m.board.SetBrakeMode(m.port, bm)
}

func (m *boardMotor) Position() (float64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if err := m.encoder.Poll(); err != nil {
		return 0, SensorFault("motor encoder", err)
	}
	deg := float64(m.encoder.Ticks()) / m.gearset.TicksPerRev() * 360
	if m.reversed {
		deg = -deg
	}
	return deg, nil
}

type solenoid struct {
	lock    sync.Mutex
	board   pca9685.Interface
	channel int
	value   bool
}

func newSolenoid(board pca9685.Interface, letter string) (*solenoid, error) {
	ch, err := ThreeWireChannel(letter)
	if err != nil {
		return nil, err
	}
	s := &solenoid{board: board, channel: ch}
	return s, s.Set(false)
}

func (s *solenoid) Set(on bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.board.SetFull(s.channel, on); err != nil {
		return err
	}
	s.value = on
	return nil
}

func (s *solenoid) Value() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.value
}

type rotationSensor struct {
	dev as5600.Interface
}

func (r *rotationSensor) Angle() (float64, error) {
	a, err := r.dev.Angle()
	if err != nil {
		return 0, SensorFault("catapult rotation", err)
	}
	return a, nil
}
