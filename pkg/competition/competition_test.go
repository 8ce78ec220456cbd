package competition

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/motion"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/testmode"
)

// tracker counts how many of the recorded modes are running at once.
type tracker struct {
	lock    sync.Mutex
	running map[string]bool
	maxSeen int
	log     []string
}

func (t *tracker) set(name string, on bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.running[name] = on
	n := 0
	for _, r := range t.running {
		if r {
			n++
		}
	}
	if n > t.maxSeen {
		t.maxSeen = n
	}
	if on {
		t.log = append(t.log, "start "+name)
	} else {
		t.log = append(t.log, "stop "+name)
	}
}

func (t *tracker) events() []string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]string(nil), t.log...)
}

type fakeMode struct {
	name   string
	t      *tracker
	events chan *joystick.Event
	motor  hardware.Motor
}

func (m *fakeMode) Name() string         { return m.name }
func (m *fakeMode) StartupSound() string { return "" }
func (m *fakeMode) Start(ctx context.Context) {
	m.t.set(m.name, true)
	if m.motor != nil {
		_ = m.motor.Move(50)
	}
}
func (m *fakeMode) Stop() { m.t.set(m.name, false) }
func (m *fakeMode) OnJoystickEvent(e *joystick.Event) {
	m.events <- e
}

type fakeChassis struct {
	lock       sync.Mutex
	calibrated bool
	pose       motion.Pose
	brake      hardware.BrakeMode
	cancels    int
}

func (c *fakeChassis) Calibrate(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.calibrated = true
	return nil
}
func (c *fakeChassis) SetPose(p motion.Pose) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.pose = p
}
func (c *fakeChassis) SetBrakeMode(mode hardware.BrakeMode) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.brake = mode
	return nil
}
func (c *fakeChassis) CancelMotion() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.cancels++
}

type fixture struct {
	hw      *hardware.Dummy
	chassis *fakeChassis
	tracker *tracker
	auto    *fakeMode
	driver  *fakeMode
	l       *Lifecycle
}

func newFixture(timing Timing) *fixture {
	f := &fixture{
		hw:      hardware.NewDummy(),
		chassis: &fakeChassis{},
		tracker: &tracker{running: map[string]bool{}},
	}
	f.auto = &fakeMode{name: "auto", t: f.tracker, events: make(chan *joystick.Event, 10), motor: f.hw.Intake}
	f.driver = &fakeMode{name: "driver", t: f.tracker, events: make(chan *joystick.Event, 10), motor: f.hw.Catapult}
	f.l = New(f.hw.RobotHardware, f.chassis, timing, f.auto, f.driver)
	return f
}

func press(button uint8) *joystick.Event {
	return &joystick.Event{Type: joystick.EventTypeButton, Number: button, Value: 1}
}

func TestInitialize(t *testing.T) {
	f := newFixture(DefaultTiming())
	ctx := context.Background()
	require.NoError(t, f.l.Initialize(ctx))

	assert.Equal(t, Disabled, f.l.Phase())
	assert.True(t, f.chassis.calibrated)
	assert.Equal(t, hardware.BrakeCoast, f.chassis.brake)
	assert.Equal(t, hardware.BrakeHold, f.hw.CatapultMotor.BrakeMode())
	assert.Equal(t, hardware.BrakeHold, f.hw.IntakeMotor.BrakeMode())
	assert.Equal(t, motion.Pose{}, f.chassis.pose)
}

func TestEnterBeforeInitialize(t *testing.T) {
	f := newFixture(DefaultTiming())
	assert.Error(t, f.l.Enter(context.Background(), Autonomous))
	assert.Error(t, f.l.Enter(context.Background(), Initialize))
}

func TestEnterStopsPreviousMode(t *testing.T) {
	f := newFixture(DefaultTiming())
	ctx := context.Background()
	require.NoError(t, f.l.Initialize(ctx))

	require.NoError(t, f.l.Enter(ctx, Autonomous))
	assert.Equal(t, 50, f.hw.IntakeMotor.Velocity())
	cancels := f.chassis.cancels

	require.NoError(t, f.l.Enter(ctx, DriverControl))
	// The autonomous mode's actuators were zeroed on the way out.
	assert.Equal(t, 0, f.hw.IntakeMotor.Velocity())
	assert.Equal(t, 50, f.hw.CatapultMotor.Velocity())
	assert.Greater(t, f.chassis.cancels, cancels)

	require.NoError(t, f.l.Enter(ctx, Disabled))
	assert.Equal(t, 0, f.hw.CatapultMotor.Velocity())

	assert.Equal(t, 1, f.tracker.maxSeen)
	assert.Equal(t, []string{"start auto", "stop auto", "start driver", "stop driver"}, f.tracker.events())
}

func TestJoystickForwarding(t *testing.T) {
	f := newFixture(DefaultTiming())
	ctx := context.Background()
	require.NoError(t, f.l.Initialize(ctx))

	// Disabled doesn't take events.
	f.l.OnJoystickEvent(ctx, press(joystick.ButtonR1))
	require.NoError(t, f.l.Enter(ctx, Autonomous))
	f.l.OnJoystickEvent(ctx, press(joystick.ButtonR1))
	require.Len(t, f.auto.events, 1)
	assert.Len(t, f.driver.events, 0)
}

func TestOptionsCyclesPhases(t *testing.T) {
	f := newFixture(DefaultTiming())
	ctx := context.Background()
	require.NoError(t, f.l.Initialize(ctx))

	var seen []Phase
	for i := 0; i < 4; i++ {
		f.l.OnJoystickEvent(ctx, press(joystick.ButtonOptions))
		seen = append(seen, f.l.Phase())
	}
	assert.Equal(t, []Phase{Autonomous, DriverControl, Disabled, Autonomous}, seen)
	assert.Equal(t, 1, f.tracker.maxSeen)
}

func TestRunMatch(t *testing.T) {
	f := newFixture(Timing{Autonomous: 30 * time.Millisecond, DriverControl: 30 * time.Millisecond})
	ctx := context.Background()
	require.NoError(t, f.l.Initialize(ctx))

	start := time.Now()
	require.NoError(t, f.l.RunMatch(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	assert.Equal(t, Disabled, f.l.Phase())
	assert.Equal(t, []string{"start auto", "stop auto", "start driver", "stop driver"}, f.tracker.events())
	assert.Equal(t, 1, f.tracker.maxSeen)
}

func TestRunMatchCancelled(t *testing.T) {
	f := newFixture(Timing{Autonomous: time.Hour, DriverControl: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.l.Initialize(ctx))

	done := make(chan error)
	go func() { done <- f.l.RunMatch(ctx) }()
	assert.Eventually(t, func() bool { return f.l.Phase() == Autonomous }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	f.l.Shutdown()
	assert.Equal(t, []string{"start auto", "stop auto"}, f.tracker.events())
}

func TestShareStartsMatchAndOptionsCancelsIt(t *testing.T) {
	f := newFixture(Timing{Autonomous: time.Hour, DriverControl: time.Hour})
	ctx := context.Background()
	require.NoError(t, f.l.Initialize(ctx))

	f.l.OnJoystickEvent(ctx, press(joystick.ButtonShare))
	assert.Eventually(t, func() bool { return f.l.Phase() == Autonomous }, time.Second, time.Millisecond)

	// Options takes over from the match.
	f.l.OnJoystickEvent(ctx, press(joystick.ButtonOptions))
	assert.Equal(t, DriverControl, f.l.Phase())
	f.l.Shutdown()
	assert.Equal(t, 1, f.tracker.maxSeen)
}

func TestPitCheckOnlyFromDisabled(t *testing.T) {
	f := newFixture(DefaultTiming())
	ctx := context.Background()
	require.NoError(t, f.l.Initialize(ctx))
	defer f.l.Shutdown()

	f.l.OnJoystickEvent(ctx, press(joystick.ButtonPS))
	assert.Equal(t, PitCheck, f.l.Phase())
	// The check drives the first drive motor.
	assert.Eventually(t, func() bool {
		return f.hw.LeftMotors[0].Velocity() == testmode.DefaultTestPower
	}, time.Second, time.Millisecond)

	// Options leaves the check for Disabled and everything stops.
	f.l.OnJoystickEvent(ctx, press(joystick.ButtonOptions))
	assert.Equal(t, Disabled, f.l.Phase())
	assert.Zero(t, f.hw.LeftMotors[0].Velocity())

	f.l.OnJoystickEvent(ctx, press(joystick.ButtonOptions))
	require.Equal(t, Autonomous, f.l.Phase())
	f.l.OnJoystickEvent(ctx, press(joystick.ButtonPS))
	assert.Equal(t, Autonomous, f.l.Phase(), "no pit check outside Disabled")
	assert.Error(t, f.l.EnterPitCheck(ctx))
	assert.Equal(t, 1, f.tracker.maxSeen)
}

func TestPhaseNames(t *testing.T) {
	assert.Equal(t, "Pit check", PitCheck.String())
	assert.Equal(t, "Autonomous", Autonomous.String())
	assert.Equal(t, "Driver control", DriverControl.String())
	assert.Equal(t, "Unknown", Phase(42).String())
}
