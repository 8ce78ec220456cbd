package pca9685

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x40

	RegMode1 = 0x00
	RegMode2 = 0x01

	// Each output has two 16-bit (low byte first) registers.
	// First register is the on time, second is the off time.
	RegLEDBase = 0x06

	RegPreScale = 0xfe // Pre-scaler for PWM frequency.

	// Bit 4 of the high byte of either register forces the output fully
	// on/off, bypassing the counter.
	FullBit = 0x10

	PWMMax = 4095

	NumChannels = 16
)

var ErrBadChannel = errors.New("pca9685 channel out of range")

type Interface interface {
	Configure() error
	SetDuty(channel int, value float64) error
	SetFull(channel int, on bool) error
	Close() error
}

type port interface {
	WriteReg(reg byte, buf []byte) error
	Close() error
}

type PCA9685 struct {
	lock sync.Mutex
	dev  port
}

func New(deviceFile string, addr int) (*PCA9685, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, errors.Wrap(err, "open pca9685")
	}
	return &PCA9685{
		dev: dev,
	}, nil
}

func (p *PCA9685) Configure() (err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	// Put device to sleep.
	err = p.dev.WriteReg(RegMode1, []byte{0x11})
	if err != nil {
		return
	}
	// ~1kHz; solenoid drivers don't care much.
	err = p.dev.WriteReg(RegPreScale, []byte{0x05})
	if err != nil {
		return
	}
	err = p.dev.WriteReg(RegMode1, []byte{0x01})
	if err != nil {
		return
	}
	// Required delay after reset.
	time.Sleep(1 * time.Millisecond)
	// Enable, auto-increment.
	err = p.dev.WriteReg(RegMode1, []byte{0xa1})
	return
}

// SetDuty sets a channel's duty cycle in [0, 1].
func (p *PCA9685) SetDuty(channel int, value float64) error {
	if channel < 0 || channel >= NumChannels {
		return errors.Wrapf(ErrBadChannel, "channel %d", channel)
	}
	if value < 0 {
		value = 0
	} else if value > 1 {
		value = 1
	}

	pwmValue := uint16(PWMMax * value)
	return p.writeChannel(channel, []byte{0, 0, byte(pwmValue & 0xff), byte(pwmValue >> 8)})
}

// SetFull drives a channel fully on or fully off.
func (p *PCA9685) SetFull(channel int, on bool) error {
	if channel < 0 || channel >= NumChannels {
		return errors.Wrapf(ErrBadChannel, "channel %d", channel)
	}
	return p.writeChannel(channel, FullRegisters(on))
}

// FullRegisters returns the ON_L, ON_H, OFF_L, OFF_H bytes that hold a
// channel fully on or fully off.
func FullRegisters(on bool) []byte {
	if on {
		return []byte{0, FullBit, 0, 0}
	}
	return []byte{0, 0, 0, FullBit}
}

func (p *PCA9685) writeChannel(channel int, regs []byte) error {
	addr := RegLEDBase + channel*4
	p.lock.Lock()
	defer p.lock.Unlock()
	return errors.Wrapf(p.dev.WriteReg(byte(addr), regs), "write pca9685 channel %d", channel)
}

func (p *PCA9685) Close() error {
	return p.dev.Close()
}
