package hardware

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

type MotorPort struct {
	Port     int       `yaml:"port"`
	Reversed bool      `yaml:"reversed"`
	Gearset  Gearset   `yaml:"gearset"`
	Brake    BrakeMode `yaml:"brake"`
}

// PortMap binds the logical devices to physical ports.  Motor ports are the
// numbered smart ports; pneumatics are on lettered three-wire ports.
type PortMap struct {
	LeftDrive  []MotorPort `yaml:"leftDrive"`
	RightDrive []MotorPort `yaml:"rightDrive"`
	Catapult   MotorPort   `yaml:"catapult"`
	Intake     MotorPort   `yaml:"intake"`

	Wings   string `yaml:"wings"`
	Blocker string `yaml:"blocker"`
}

// DefaultPortMap is the wiring of the competition robot.
func DefaultPortMap() PortMap {
	drive := func(port int, reversed bool) MotorPort {
		return MotorPort{Port: port, Reversed: reversed, Gearset: Gearset6, Brake: BrakeCoast}
	}
	return PortMap{
		LeftDrive:  []MotorPort{drive(20, true), drive(18, true), drive(19, false)},
		RightDrive: []MotorPort{drive(11, false), drive(13, false), drive(12, true)},
		Catapult:   MotorPort{Port: 15, Reversed: true, Gearset: Gearset36, Brake: BrakeHold},
		Intake:     MotorPort{Port: 14, Reversed: false, Gearset: Gearset6, Brake: BrakeHold},
		Wings:      "G",
		Blocker:    "H",
	}
}

// Validate checks that every motor has a distinct port in range and that
// the pneumatics are on distinct three-wire ports.
func (p PortMap) Validate() error {
	seen := map[int]string{}
	check := func(name string, m MotorPort) error {
		if m.Port < 1 || m.Port > 21 {
			return errors.Errorf("%s: port %d out of range", name, m.Port)
		}
		if other, ok := seen[m.Port]; ok {
			return errors.Errorf("%s: port %d already used by %s", name, m.Port, other)
		}
		seen[m.Port] = name
		switch m.Brake {
		case BrakeCoast, BrakeBrake, BrakeHold:
		default:
			return errors.Errorf("%s: unknown brake mode %q", name, m.Brake)
		}
		return nil
	}
	if len(p.LeftDrive) == 0 || len(p.RightDrive) == 0 {
		return errors.New("drive sides need at least one motor each")
	}
	for i, m := range p.LeftDrive {
		if err := check(fmt.Sprintf("left drive %d", i), m); err != nil {
			return err
		}
	}
	for i, m := range p.RightDrive {
		if err := check(fmt.Sprintf("right drive %d", i), m); err != nil {
			return err
		}
	}
	if err := check("catapult", p.Catapult); err != nil {
		return err
	}
	if err := check("intake", p.Intake); err != nil {
		return err
	}
	w, err := ThreeWireChannel(p.Wings)
	if err != nil {
		return errors.Wrap(err, "wings")
	}
	b, err := ThreeWireChannel(p.Blocker)
	if err != nil {
		return errors.Wrap(err, "blocker")
	}
	if w == b {
		return errors.Errorf("wings and blocker share three-wire port %s", p.Wings)
	}
	return nil
}

// ThreeWireChannel maps a three-wire port letter (A-H) onto the solenoid
// board channel that drives it.
func ThreeWireChannel(letter string) (int, error) {
	if len(letter) != 1 {
		return 0, errors.Errorf("bad three-wire port %q", letter)
	}
	c := letter[0]
	if c >= 'a' && c <= 'h' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'H' {
		return 0, errors.Errorf("bad three-wire port %q", letter)
	}
	return int(c - 'A'), nil
}

type DeviceConfig struct {
	I2CBus            string        `yaml:"i2cBus"`
	MotorBoardAddr    int           `yaml:"motorBoardAddr"`
	SolenoidBoardAddr int           `yaml:"solenoidBoardAddr"`
	RotationAddr      int           `yaml:"rotationAddr"`
	RotationReversed  bool          `yaml:"rotationReversed"`
	IMUSPIDevice      string        `yaml:"imuSPIDevice"`
	BatteryAddr       int           `yaml:"batteryAddr"` // 0 if not fitted
	WatchdogTimeout   time.Duration `yaml:"watchdogTimeout"`
	Sounds            bool          `yaml:"sounds"`
}

func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		I2CBus:            "/dev/i2c-1",
		MotorBoardAddr:    0x42,
		SolenoidBoardAddr: 0x40,
		RotationAddr:      0x36,
		IMUSPIDevice:      "/dev/spidev0.1",
		BatteryAddr:       0x41,
		WatchdogTimeout:   250 * time.Millisecond,
		Sounds:            true,
	}
}
