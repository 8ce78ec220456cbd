package pca9685

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPort struct {
	writes map[byte][]byte
}

func (r *recordingPort) WriteReg(reg byte, buf []byte) error {
	r.writes[reg] = append([]byte(nil), buf...)
	return nil
}

func (r *recordingPort) Close() error { return nil }

func TestSetFull(t *testing.T) {
	rp := &recordingPort{writes: map[byte][]byte{}}
	p := &PCA9685{dev: rp}

	require.NoError(t, p.SetFull(6, true))
	assert.Equal(t, []byte{0, FullBit, 0, 0}, rp.writes[RegLEDBase+6*4])

	require.NoError(t, p.SetFull(6, false))
	assert.Equal(t, []byte{0, 0, 0, FullBit}, rp.writes[RegLEDBase+6*4])
}

func TestChannelRange(t *testing.T) {
	p := &PCA9685{dev: &recordingPort{writes: map[byte][]byte{}}}
	assert.ErrorIs(t, p.SetFull(16, true), ErrBadChannel)
	assert.ErrorIs(t, p.SetDuty(-1, 0.5), ErrBadChannel)
}
