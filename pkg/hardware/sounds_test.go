package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingPlayer struct {
	played []string
	closed bool
}

func (p *recordingPlayer) PlaySound(path string) { p.played = append(p.played, path) }
func (p *recordingPlayer) Close()                { p.closed = true }

func TestSoundsDisabledLeavesPlayerNil(t *testing.T) {
	r := &RobotHardware{}
	r.enableSounds(false, func() SoundPlayer {
		t.Fatal("player built with sounds off")
		return nil
	})
	assert.Nil(t, r.Sounds)
	assert.NotPanics(t, func() { r.PlaySound("/sounds/fire.wav") })
	assert.Empty(t, r.closers)
}

func TestSoundsEnabledPlaysAndClosesOnShutdown(t *testing.T) {
	r := &RobotHardware{}
	p := &recordingPlayer{}
	r.enableSounds(true, func() SoundPlayer { return p })

	r.PlaySound("/sounds/fire.wav")
	r.PlaySound("")
	assert.Equal(t, []string{"/sounds/fire.wav"}, p.played)

	r.Shutdown()
	assert.True(t, p.closed)
}

func TestSoundsDefaultOn(t *testing.T) {
	assert.True(t, DefaultDeviceConfig().Sounds)
}
