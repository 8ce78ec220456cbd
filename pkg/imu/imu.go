package imu

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/io/i2c"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

var log = logrus.WithField("component", "imu")

const (
	IMUAddr = 0x68

	RegSampleRateDiv = 25
	RegConfig        = 26
	RegGyroConf      = 27
	RegGyroZOffset   = 23
	RegFIFOEnable    = 35
	RegGyroZ         = 71 // 16 bits
	RegUserCtl       = 106
	RegFIFOCount     = 114 // 16 bits
	RegFIFORW        = 116 // n-bytes
	RegWhoAmI        = 117

	GyroRange = 2 // 1000 dps

	// With DLPF on and a divider of 9 the FIFO fills at 100Hz.
	SampleInterval = 10 // ms
)

type Interface interface {
	Configure() error
	Calibrate() error
	ReadYawRate() (int16, error)
	ReadFIFO() ([]int16, error)
	ResetFIFO() error
	DegreesPerLSB() float64
}

type port interface {
	// ReadReg reads len(buf) bytes from the device.
	ReadReg(reg byte, buf []byte) error
	WriteReg(reg byte, buf []byte) (err error)
}

type IMU struct {
	dev        port
	disableI2C bool
}

func NewI2C(deviceFile string) (Interface, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, IMUAddr)
	if err != nil {
		return nil, errors.Wrap(err, "open imu")
	}
	return &IMU{
		dev: dev,
	}, nil
}

func NewSPI(deviceFile string) (Interface, error) {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph init")
	}

	// Use spireg SPI port registry to find the SPI bus.
	p, err := spireg.Open(deviceFile)
	if err != nil {
		return nil, errors.Wrap(err, "open spi port")
	}

	// Convert the spi.Port into a spi.Conn so it can be used for communication.
	c, err := p.Connect(physic.KiloHertz*1000, spi.Mode3, 8)
	if err != nil {
		return nil, errors.Wrap(err, "connect spi")
	}

	return &IMU{
		dev:        &SPIAdapter{c: c},
		disableI2C: true,
	}, nil
}

type SPIAdapter struct {
	c spi.Conn

	r, w []byte
}

const W = 0x00
const R = 0x80

func (s *SPIAdapter) ReadReg(reg byte, buf []byte) error {
	// The read and write buffers need to be as long as the whole transaction.
	bufLen := 1 + len(buf)
	s.ensureBuf(bufLen)
	s.w[0] = R | reg
	err := s.c.Tx(s.w[:bufLen], s.r[:bufLen])
	if err != nil {
		return err
	}
	// The response only starts after the address byte.
	copy(buf, s.r[1:bufLen])
	return nil
}

func (s *SPIAdapter) WriteReg(reg byte, buf []byte) (err error) {
	bufLen := 1 + len(buf)
	s.ensureBuf(bufLen)
	s.w[0] = W | reg
	copy(s.w[1:], buf)
	return s.c.Tx(s.w[:bufLen], s.r[:bufLen])
}

func (s *SPIAdapter) ensureBuf(l int) {
	if len(s.r) < l {
		s.w = make([]byte, l)
		s.r = make([]byte, l)
		return
	}
	for i := 0; i < l; i++ {
		s.w[i] = 0
		s.r[i] = 0
	}
}

func (m *IMU) Configure() error {
	if m.disableI2C {
		if err := m.dev.WriteReg(RegUserCtl, []byte{0x10}); err != nil {
			return errors.Wrap(err, "disable imu i2c")
		}
	}
	for _, w := range []struct {
		reg byte
		val byte
	}{
		{RegGyroConf, GyroRange << 3},
		{RegConfig, 1},        // DLPF, Fs=1kHz
		{RegSampleRateDiv, 9}, // 100Hz
		{RegFIFOEnable, 1 << 4},
	} {
		if err := m.dev.WriteReg(w.reg, []byte{w.val}); err != nil {
			return errors.Wrapf(err, "configure imu reg %d", w.reg)
		}
	}
	return nil
}

func (m *IMU) DegreesPerLSB() float64 {
	return 1000.0 / math.MaxInt16
}

// Calibrate measures the gyro's zero-rate offset and programs it into the
// offset registers.  The robot must be still.
func (m *IMU) Calibrate() error {
	log.Info("Calibrating gyro")
	if err := m.dev.WriteReg(RegGyroZOffset, []byte{0, 0}); err != nil {
		return errors.Wrap(err, "clear gyro offset")
	}

	// Let the filter settle.
	for i := 0; i < 100; i++ {
		if _, err := m.ReadYawRate(); err != nil {
			return err
		}
	}

	var sum float64
	const n = 1000
	for i := 0; i < n; i++ {
		z, err := m.ReadYawRate()
		if err != nil {
			return err
		}
		sum -= float64(z)
	}
	offset := sum / n
	scaledOffset := int16(offset / 4 * math.Pow(2, GyroRange))
	log.WithFields(logrus.Fields{"offset": offset, "scaled": scaledOffset}).Info("Gyro calibrated")
	err := m.dev.WriteReg(RegGyroZOffset, []byte{byte(scaledOffset >> 8), byte(scaledOffset)})
	return errors.Wrap(err, "write gyro offset")
}

func (m *IMU) ReadYawRate() (int16, error) {
	return m.read16(RegGyroZ)
}

func (m *IMU) ResetFIFO() error {
	return m.dev.WriteReg(RegUserCtl, []byte{1<<6 | 1<<2})
}

// ReadFIFO drains the samples queued since the last read.
func (m *IMU) ReadFIFO() ([]int16, error) {
	count, err := m.read16(RegFIFOCount)
	if err != nil {
		return nil, err
	}
	count &= 0xfff
	if count > 512 {
		count = 512
	}
	count &^= 1
	if count == 0 {
		return nil, nil
	}
	var buf [512]byte
	if err := m.dev.ReadReg(RegFIFORW, buf[:count]); err != nil {
		return nil, errors.Wrap(err, "read imu fifo")
	}
	return DecodeSamples(buf[:count]), nil
}

// DecodeSamples splits big-endian 16-bit FIFO data into samples.
func DecodeSamples(buf []byte) []int16 {
	result := make([]int16, len(buf)/2)
	for i := range result {
		result[i] = int16(buf[i*2])<<8 | int16(buf[i*2+1])
	}
	return result
}

func (m *IMU) read16(reg byte) (int16, error) {
	var buf [2]byte
	if err := m.dev.ReadReg(reg, buf[:]); err != nil {
		return 0, errors.Wrapf(err, "read imu reg %d", reg)
	}
	return int16(buf[0])<<8 | int16(buf[1]), nil
}
