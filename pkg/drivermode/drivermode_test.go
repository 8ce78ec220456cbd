package drivermode

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/joystick"
)

type fakeDrive struct {
	lock        sync.Mutex
	left, right int
}

func (d *fakeDrive) Tank(left, right int) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.left, d.right = left, right
	return nil
}

func (d *fakeDrive) get() (int, int) {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.left, d.right
}

type fakePad struct {
	lock sync.Mutex
	snap joystick.Snapshot
}

func (p *fakePad) Snapshot() joystick.Snapshot {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.snap
}

func (p *fakePad) set(f func(s *joystick.Snapshot)) {
	p.lock.Lock()
	defer p.lock.Unlock()
	f(&p.snap)
}

func TestDriverModeLoop(t *testing.T) {
	hw := hardware.NewDummy()
	hw.Rotation.SetAngle(100)
	drive := &fakeDrive{}
	pad := &fakePad{}
	m := New(DefaultConfig(), drive, hw.RobotHardware, pad)

	m.Start(context.Background())
	pad.set(func(s *joystick.Snapshot) {
		s.LeftY, s.RightY = 100, -5
		s.A = true
		s.R2 = true
	})
	assert.Eventually(t, func() bool {
		l, r := drive.get()
		return l == 100 && r == 0
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, hw.WingsOut.Value, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return hw.CatapultMotor.Velocity() == 127 }, time.Second, 5*time.Millisecond)

	// Releasing the trigger with the arm in the band stops the catapult.
	pad.set(func(s *joystick.Snapshot) { s.R2 = false })
	assert.Eventually(t, func() bool { return hw.CatapultMotor.Velocity() == 0 }, time.Second, 5*time.Millisecond)

	// A held throughout: wings toggled exactly once.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []bool{true}, hw.WingsOut.History())

	m.Stop()
	l, r := drive.get()
	assert.Equal(t, 0, l)
	assert.Equal(t, 0, r)
	assert.Equal(t, 0, hw.IntakeMotor.Velocity())
}

func TestDriverModeSensorFaultStopsCatapult(t *testing.T) {
	hw := hardware.NewDummy()
	hw.Rotation.SetError(assert.AnError)
	pad := &fakePad{}
	m := New(DefaultConfig(), &fakeDrive{}, hw.RobotHardware, pad)

	m.Start(context.Background())
	defer m.Stop()
	time.Sleep(50 * time.Millisecond)
	for _, v := range hw.CatapultMotor.History() {
		assert.Equal(t, 0, v)
	}
}
