package motorboard

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

// The smart-port board exposes one register block per motor port.  Port
// numbering matches the labels printed on the board (1-21).
//
// Block layout (big-endian 16-bit registers):
//
//	+0 velocity command, signed, -127..127
//	+1 brake mode
//	+2 encoder ticks, signed, wraps
//	+3 status flags
const (
	DefaultAddr = 0x42

	NumPorts = 21

	RegCtrl        Register = 0x00
	RegStatus      Register = 0x01
	RegWatchdog    Register = 0x02
	RegFirstPort   Register = 0x10
	RegsPerPort             = 4
	regOffVelocity          = 0
	regOffBrake             = 1
	regOffEncoder           = 2
	regOffStatus            = 3
)

type Register byte

const (
	CtrlEnable uint16 = 1 << iota
	CtrlReset
	CtrlWatchdogEnable
)

type PortStatus uint16

const (
	PortStatusConnected PortStatus = 1 << iota
	PortStatusOverTemp
	PortStatusOverCurrent
)

type BrakeMode uint16

const (
	BrakeCoast BrakeMode = iota
	BrakeBrake
	BrakeHold
)

var ErrBadPort = errors.New("motor port out of range")

type Interface interface {
	SetVelocity(port int, velocity int16) error
	SetBrakeMode(port int, mode BrakeMode) error
	RawEncoder(port int) (int16, error)
	PortStatus(port int) (PortStatus, error)
	SetWatchdog(timeout time.Duration) error
	Close() error
}

type port interface {
	ReadReg(reg byte, buf []byte) error
	WriteReg(reg byte, buf []byte) error
	Close() error
}

// Board drives the smart-port board over I2C.  All methods are safe for
// concurrent use; the odometry task and the control loops share one bus.
type Board struct {
	lock sync.Mutex
	dev  port

	bus  string
	addr int

	enabled bool
}

var _ Interface = (*Board)(nil)

func New(deviceFile string, addr int) (*Board, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "open motor board at 0x%x", addr)
	}
	b := &Board{
		dev:  dev,
		bus:  deviceFile,
		addr: addr,
	}
	if err := b.writeReg(RegCtrl, CtrlEnable|CtrlReset); err != nil {
		_ = dev.Close()
		return nil, err
	}
	b.enabled = true
	return b, nil
}

func portReg(port int, off int) (Register, error) {
	if port < 1 || port > NumPorts {
		return 0, errors.Wrapf(ErrBadPort, "port %d", port)
	}
	return RegFirstPort + Register((port-1)*RegsPerPort+off), nil
}

func (b *Board) SetVelocity(port int, velocity int16) error {
	reg, err := portReg(port, regOffVelocity)
	if err != nil {
		return err
	}
	if velocity > 127 {
		velocity = 127
	} else if velocity < -127 {
		velocity = -127
	}
	return b.writeReg(reg, uint16(velocity))
}

func (b *Board) SetBrakeMode(port int, mode BrakeMode) error {
	reg, err := portReg(port, regOffBrake)
	if err != nil {
		return err
	}
	return b.writeReg(reg, uint16(mode))
}

func (b *Board) RawEncoder(port int) (int16, error) {
	reg, err := portReg(port, regOffEncoder)
	if err != nil {
		return 0, err
	}
	v, err := b.readReg(reg)
	return int16(v), err
}

func (b *Board) PortStatus(port int) (PortStatus, error) {
	reg, err := portReg(port, regOffStatus)
	if err != nil {
		return 0, err
	}
	v, err := b.readReg(reg)
	return PortStatus(v), err
}

// SetWatchdog arms the board's watchdog; if the board hears nothing for the
// timeout it stops every motor.  Zero disables it.
func (b *Board) SetWatchdog(timeout time.Duration) error {
	ms := timeout.Milliseconds()
	if ms > 0xffff {
		ms = 0xffff
	}
	if err := b.writeReg(RegWatchdog, uint16(ms)); err != nil {
		return err
	}
	ctrl := CtrlEnable
	if timeout > 0 {
		ctrl |= CtrlWatchdogEnable
	}
	return b.writeReg(RegCtrl, ctrl)
}

func (b *Board) Close() error {
	_ = b.writeReg(RegCtrl, CtrlReset)
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.dev.Close()
}

func (b *Board) writeReg(reg Register, value uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], value)

	b.lock.Lock()
	defer b.lock.Unlock()
	var err error
	for tries := 0; tries < 5; tries++ {
		err = b.dev.WriteReg(byte(reg), buf[:])
		if err == nil {
			return nil
		}
		// Bus glitches are common while the drive is under load; reopen
		// and retry before giving up.
		time.Sleep(1 * time.Millisecond)
		if b.bus == "" {
			continue
		}
		_ = b.dev.Close()
		dev, oerr := i2c.Open(&i2c.Devfs{Dev: b.bus}, b.addr)
		if oerr != nil {
			continue
		}
		b.dev = dev
	}
	return errors.Wrapf(err, "write motor board reg 0x%x", byte(reg))
}

func (b *Board) readReg(reg Register) (uint16, error) {
	var buf [2]byte
	b.lock.Lock()
	err := b.dev.ReadReg(byte(reg), buf[:])
	b.lock.Unlock()
	if err != nil {
		return 0, errors.Wrapf(err, "read motor board reg 0x%x", byte(reg))
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func (s PortStatus) String() string {
	return fmt.Sprintf("connected=%v overtemp=%v overcurrent=%v",
		s&PortStatusConnected != 0, s&PortStatusOverTemp != 0, s&PortStatusOverCurrent != 0)
}
