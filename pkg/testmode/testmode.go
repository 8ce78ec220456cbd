// Package testmode exercises each mechanism in turn so a pit crew can check
// the wiring before a match.
package testmode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
)

var log = logrus.WithField("component", "testmode")

const (
	DefaultSpinTime  = time.Second
	DefaultTestPower = 40
)

// Result records what one check saw.
type Result struct {
	Device string
	// Moved is the encoder change in degrees while the motor was driven.
	Moved float64
	Err   error
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: FAILED: %v", r.Device, r.Err)
	}
	return fmt.Sprintf("%s: moved %.0f deg", r.Device, r.Moved)
}

func New(hw *hardware.RobotHardware) *TestMode {
	return &TestMode{
		hw:       hw,
		SpinTime: DefaultSpinTime,
		Power:    DefaultTestPower,
	}
}

type TestMode struct {
	hw       *hardware.RobotHardware
	SpinTime time.Duration
	Power    int

	cancel context.CancelFunc
	stopWG sync.WaitGroup

	lock    sync.Mutex
	results []Result
}

func (t *TestMode) Name() string {
	return "Pit check"
}

func (t *TestMode) StartupSound() string {
	return "/sounds/testmode.wav"
}

func (t *TestMode) Start(ctx context.Context) {
	t.stopWG.Add(1)
	var loopCtx context.Context
	loopCtx, t.cancel = context.WithCancel(ctx)
	go func() {
		defer t.stopWG.Done()
		failed := 0
		for _, r := range t.Run(loopCtx) {
			if r.Err != nil {
				failed++
			}
		}
		if loopCtx.Err() == nil {
			log.WithField("failed", failed).Info("Pit check finished")
		}
	}()
}

func (t *TestMode) Stop() {
	t.cancel()
	t.stopWG.Wait()
}

// Results returns the checks completed so far.
func (t *TestMode) Results() []Result {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]Result(nil), t.results...)
}

// Run spins each motor briefly, then toggles each pneumatic and reads the
// sensors.  Motors are zeroed on exit.
func (t *TestMode) Run(ctx context.Context) []Result {
	defer t.hw.StopMotors()

	t.lock.Lock()
	t.results = nil
	t.lock.Unlock()

	motors := map[string]hardware.Motor{}
	var order []string
	add := func(name string, m hardware.Motor) {
		if m != nil {
			motors[name] = m
			order = append(order, name)
		}
	}
	for i, m := range t.hw.LeftDrive.Motors {
		add(fmt.Sprintf("left drive %d", i), m)
	}
	for i, m := range t.hw.RightDrive.Motors {
		add(fmt.Sprintf("right drive %d", i), m)
	}
	add("intake", t.hw.Intake)
	add("catapult", t.hw.Catapult)

	for _, name := range order {
		if ctx.Err() != nil {
			return t.Results()
		}
		t.record(t.spin(ctx, name, motors[name]))
	}

	for name, out := range map[string]hardware.DigitalOut{"wings": t.hw.Wings, "blocker": t.hw.Blocker} {
		if out == nil {
			continue
		}
		initial := out.Value()
		err := out.Set(!initial)
		if err == nil {
			sleep(ctx, t.SpinTime/2)
			err = out.Set(initial)
		}
		t.record(Result{Device: name, Err: err})
	}

	if t.hw.CatapultRotation != nil {
		a, err := t.hw.CatapultRotation.Angle()
		log.WithField("angle", a).Info("Catapult rotation")
		t.record(Result{Device: "catapult rotation", Err: err})
	}
	if t.hw.IMU != nil {
		h, err := t.hw.IMU.Heading()
		log.WithField("heading", h).Info("Inertial")
		t.record(Result{Device: "inertial", Err: err})
	}
	return t.Results()
}

func (t *TestMode) spin(ctx context.Context, name string, m hardware.Motor) Result {
	log.WithField("motor", name).Info("Testing motor")
	r := Result{Device: name}
	before, err := m.Position()
	if err != nil {
		r.Err = err
		return r
	}
	if err := m.Move(t.Power); err != nil {
		r.Err = err
		return r
	}
	sleep(ctx, t.SpinTime)
	if err := m.Move(0); err != nil {
		r.Err = err
		return r
	}
	after, err := m.Position()
	r.Moved = after - before
	r.Err = err
	return r
}

func (t *TestMode) record(r Result) {
	log.Info(r.String())
	t.lock.Lock()
	defer t.lock.Unlock()
	t.results = append(t.results, r)
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
