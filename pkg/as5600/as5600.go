package as5600

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x36

	RegStatus    = 0x0b
	RegRawAngle  = 0x0c // 12 bits, high byte first
	RegAngle     = 0x0e
	RegMagnitude = 0x1b

	StatusMagnetHigh     = 1 << 3
	StatusMagnetLow      = 1 << 4
	StatusMagnetDetected = 1 << 5

	CountsPerRev = 4096
)

// ErrNoMagnet means the sensor is alive but can't see the diametric magnet;
// any angle it reports is garbage.
var ErrNoMagnet = errors.New("as5600: magnet not detected")

type Interface interface {
	// Angle returns the shaft angle in degrees, [0, 360).
	Angle() (float64, error)
	Close() error
}

type port interface {
	ReadReg(reg byte, buf []byte) error
	Close() error
}

type AS5600 struct {
	dev     port
	reverse bool
}

func NewI2C(deviceFile string, addr int, reverse bool) (*AS5600, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, errors.Wrap(err, "open as5600")
	}
	return &AS5600{dev: dev, reverse: reverse}, nil
}

func (a *AS5600) Angle() (float64, error) {
	var status [1]byte
	if err := a.dev.ReadReg(RegStatus, status[:]); err != nil {
		return 0, errors.Wrap(err, "read as5600 status")
	}
	if status[0]&StatusMagnetDetected == 0 {
		return 0, ErrNoMagnet
	}

	var buf [2]byte
	if err := a.dev.ReadReg(RegRawAngle, buf[:]); err != nil {
		return 0, errors.Wrap(err, "read as5600 angle")
	}
	return CountsToDegrees(uint16(buf[0])<<8|uint16(buf[1]), a.reverse), nil
}

func (a *AS5600) Close() error {
	return a.dev.Close()
}

// CountsToDegrees converts a raw 12-bit reading to degrees in [0, 360).
func CountsToDegrees(raw uint16, reverse bool) float64 {
	counts := int(raw & 0x0fff)
	if reverse && counts != 0 {
		counts = CountsPerRev - counts
	}
	return float64(counts) * 360 / CountsPerRev
}
