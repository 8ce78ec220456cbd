package hardware

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "hardware")

// RobotHardware is every actuator and sensor on the robot.  It is built once
// at start-up and handed to the control loops; nothing else owns hardware.
type RobotHardware struct {
	LeftDrive  *MotorGroup
	RightDrive *MotorGroup

	Intake   Motor
	Catapult Motor

	Wings   DigitalOut
	Blocker DigitalOut

	CatapultRotation RotationSensor
	IMU              Inertial

	// Battery is nil if no battery monitor is fitted.
	Battery PowerSensor
	Sounds  SoundPlayer

	closeOnce sync.Once
	closers   []func() error
}

// AllMotors returns every individual motor, drive first.
func (r *RobotHardware) AllMotors() []Motor {
	var all []Motor
	if r.LeftDrive != nil {
		all = append(all, r.LeftDrive.Motors...)
	}
	if r.RightDrive != nil {
		all = append(all, r.RightDrive.Motors...)
	}
	for _, m := range []Motor{r.Intake, r.Catapult} {
		if m != nil {
			all = append(all, m)
		}
	}
	return all
}

// StopMotors zeroes every motor.  Errors are logged, not returned: this is
// called on the way out of every phase and must not stop half way.
func (r *RobotHardware) StopMotors() {
	for i, m := range r.AllMotors() {
		if err := m.Move(0); err != nil {
			log.WithError(err).WithField("motor", i).Warn("Failed to stop motor")
		}
	}
}

// enableSounds installs the player built by newPlayer, or leaves Sounds nil
// when sounds are turned off so that PlaySound does nothing.
func (r *RobotHardware) enableSounds(on bool, newPlayer func() SoundPlayer) {
	if !on {
		log.Info("Sounds disabled")
		return
	}
	player := newPlayer()
	r.Sounds = player
	if c, ok := player.(interface{ Close() }); ok {
		r.addCloser(func() error {
			c.Close()
			return nil
		})
	}
}

func (r *RobotHardware) PlaySound(path string) {
	if r.Sounds == nil || path == "" {
		return
	}
	r.Sounds.PlaySound(path)
}

func (r *RobotHardware) Shutdown() {
	r.closeOnce.Do(func() {
		log.Info("Zeroing motors for shut down")
		r.StopMotors()
		for _, c := range r.closers {
			if err := c(); err != nil {
				log.WithError(err).Warn("Failed to close device")
			}
		}
	})
}

func (r *RobotHardware) addCloser(c func() error) {
	r.closers = append(r.closers, c)
}
