package ina219

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/io/i2c"
)

var log = logrus.WithField("component", "ina219")

const (
	DefaultAddr = 0x41

	RegConfig      = 0
	RegShuntV      = 1
	RegBusV        = 2
	RegPower       = 3
	RegCurrent     = 4
	RegCalibration = 5

	BusVoltageLSB = 0.004
)

type Interface interface {
	Configure(shuntOhms float64, maxCurrent float64) error
	ReadBusVoltage() (float64, error)
	ReadCurrent() (float64, error)
	ReadPower() (float64, error)
}

type port interface {
	// ReadReg reads len(buf) bytes from the device.
	ReadReg(reg byte, buf []byte) error
	WriteReg(reg byte, buf []byte) (err error)
}

type INA219 struct {
	currentLSB float64
	dev        port
}

func NewI2C(deviceFile string, addr int) (*INA219, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "open ina219 at 0x%x", addr)
	}
	return &INA219{
		dev: dev,
	}, nil
}

func (m *INA219) Configure(shuntOhms float64, maxCurrent float64) error {
	m.currentLSB = maxCurrent / (1 << 15)
	cval := CalculateCalibrationValue(m.currentLSB, shuntOhms)
	log.WithField("calibration", cval).Debug("Configuring INA219")
	err := m.dev.WriteReg(RegCalibration, []byte{byte(cval >> 8), byte(cval)})
	return errors.Wrap(err, "write ina219 calibration")
}

func (m *INA219) ReadBusVoltage() (float64, error) {
	raw, err := m.read16(RegBusV)
	return BusVoltage(raw), err
}

func (m *INA219) ReadCurrent() (float64, error) {
	raw, err := m.read16(RegCurrent)
	return float64(int16(raw)) * m.currentLSB, err
}

func (m *INA219) ReadPower() (float64, error) {
	raw, err := m.read16(RegPower)
	return float64(raw) * m.currentLSB * 20, err
}

// BatteryVolts is ReadBusVoltage under the name the hardware layer expects.
func (m *INA219) BatteryVolts() (float64, error) {
	return m.ReadBusVoltage()
}

func (m *INA219) read16(reg byte) (uint16, error) {
	var buf [2]byte
	if err := m.dev.ReadReg(reg, buf[:]); err != nil {
		return 0, errors.Wrapf(err, "read ina219 reg %d", reg)
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

// BusVoltage converts the bus voltage register; the low three bits are
// status flags.
func BusVoltage(raw uint16) float64 {
	return float64(raw>>3) * BusVoltageLSB
}

func CalculateCalibrationValue(currentLSB float64, shuntOhms float64) int16 {
	return int16(0.04096 / (currentLSB * shuntOhms))
}
