package as5600

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegs map[byte][]byte

func (f fakeRegs) ReadReg(reg byte, buf []byte) error {
	copy(buf, f[reg])
	return nil
}

func (f fakeRegs) Close() error { return nil }

func TestCountsToDegrees(t *testing.T) {
	assert.Equal(t, 0.0, CountsToDegrees(0, false))
	assert.Equal(t, 90.0, CountsToDegrees(1024, false))
	assert.Equal(t, 270.0, CountsToDegrees(1024, true))
	// Top nibble is reserved and must be ignored.
	assert.Equal(t, 180.0, CountsToDegrees(0xf800, false))
}

func TestAngleRequiresMagnet(t *testing.T) {
	a := &AS5600{dev: fakeRegs{
		RegStatus:   {0},
		RegRawAngle: {0x04, 0x00},
	}}
	_, err := a.Angle()
	assert.ErrorIs(t, err, ErrNoMagnet)

	a = &AS5600{dev: fakeRegs{
		RegStatus:   {StatusMagnetDetected},
		RegRawAngle: {0x04, 0x00},
	}}
	deg, err := a.Angle()
	require.NoError(t, err)
	assert.Equal(t, 90.0, deg)
}
