package ina219

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusVoltage(t *testing.T) {
	// 12.6V pack: 3150 counts of 4mV, shifted past the status bits.
	assert.InDelta(t, 12.6, BusVoltage(3150<<3|0x3), 1e-9)
}

func TestCalibrationValue(t *testing.T) {
	lsb := 2.0 / (1 << 15)
	assert.Equal(t, int16(6710), CalculateCalibrationValue(lsb, 0.1))
}
