package motorboard

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedEncoder struct {
	values []int16
}

func (s *scriptedEncoder) RawEncoder(port int) (int16, error) {
	v := s.values[0]
	s.values = s.values[1:]
	return v, nil
}

func TestEncoderTrackerAccumulates(t *testing.T) {
	enc := &scriptedEncoder{values: []int16{100, 150, 120, 400}}
	tr := NewEncoderTracker(enc, 3)
	for i := 0; i < 4; i++ {
		require.NoError(t, tr.Poll())
	}
	// The first poll only establishes the baseline.
	assert.Equal(t, int64(300), tr.Ticks())
}

func TestEncoderTrackerHandlesWrap(t *testing.T) {
	enc := &scriptedEncoder{values: []int16{math.MaxInt16 - 10, math.MinInt16 + 9, math.MinInt16 + 4}}
	tr := NewEncoderTracker(enc, 1)
	for i := 0; i < 3; i++ {
		require.NoError(t, tr.Poll())
	}
	assert.Equal(t, int64(15), tr.Ticks())

	tr.Zero()
	assert.Equal(t, int64(0), tr.Ticks())
}

func TestPortRegisterRange(t *testing.T) {
	_, err := portReg(0, regOffVelocity)
	assert.Error(t, err)
	_, err = portReg(NumPorts+1, regOffVelocity)
	assert.Error(t, err)

	reg, err := portReg(1, regOffEncoder)
	require.NoError(t, err)
	assert.Equal(t, RegFirstPort+2, reg)
}
