package drivermode

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/joystick"
)

var log = logrus.WithField("component", "drivermode")

// Drive is the part of the chassis that driver control uses.
type Drive interface {
	Tank(left, right int) error
}

// Controller supplies a fresh snapshot of the gamepad each tick.
type Controller interface {
	Snapshot() joystick.Snapshot
}

type DriverMode struct {
	cfg   Config
	drive Drive
	hw    *hardware.RobotHardware
	pad   Controller

	cancel context.CancelFunc
	stopWG sync.WaitGroup
}

func New(cfg Config, drive Drive, hw *hardware.RobotHardware, pad Controller) *DriverMode {
	return &DriverMode{
		cfg:   cfg,
		drive: drive,
		hw:    hw,
		pad:   pad,
	}
}

func (m *DriverMode) Name() string {
	return "Driver control"
}

func (m *DriverMode) StartupSound() string {
	return "/sounds/drivermode.wav"
}

func (m *DriverMode) Start(ctx context.Context) {
	m.stopWG.Add(1)
	var loopCtx context.Context
	loopCtx, m.cancel = context.WithCancel(ctx)
	go m.loop(loopCtx)
}

func (m *DriverMode) Stop() {
	m.cancel()
	m.stopWG.Wait()
}

func (m *DriverMode) loop(ctx context.Context) {
	defer m.stopWG.Done()
	defer log.Info("Driver control loop exited")

	state := NewDriverControlState(m.cfg, m.hw.Wings.Value(), m.hw.Blocker.Value())
	defer m.stopAll()

	ticker := time.NewTicker(m.cfg.LoopInterval)
	defer ticker.Stop()

	faulted := false
	for {
		snap := m.pad.Snapshot()
		angle, err := m.hw.CatapultRotation.Angle()
		if err != nil && !faulted {
			log.WithError(err).Warn("Catapult rotation sensor fault; catapult will not wind")
		} else if err == nil && faulted {
			log.Info("Catapult rotation sensor recovered")
		}
		faulted = err != nil

		out := state.Update(InputFromSnapshot(snap), angle, err)
		m.apply(out)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// InputFromSnapshot picks out the controls driver control uses.
func InputFromSnapshot(s joystick.Snapshot) Input {
	return Input{
		LeftY:  s.LeftY,
		RightY: s.RightY,
		A:      s.A,
		B:      s.B,
		L1:     s.L1,
		L2:     s.L2,
		R2:     s.R2,
	}
}

func (m *DriverMode) apply(out Output) {
	if err := m.drive.Tank(out.Left, out.Right); err != nil {
		log.WithError(err).Debug("Failed to drive")
	}
	if err := m.hw.Intake.Move(out.Intake); err != nil {
		log.WithError(err).Debug("Failed to drive intake")
	}
	if err := m.hw.Catapult.Move(out.Catapult); err != nil {
		log.WithError(err).Debug("Failed to drive catapult")
	}
	setIfChanged(m.hw.Wings, out.Wings, "wings")
	setIfChanged(m.hw.Blocker, out.Blocker, "blocker")
}

func setIfChanged(d hardware.DigitalOut, v bool, name string) {
	if d.Value() == v {
		return
	}
	log.WithFields(logrus.Fields{"actuator": name, "value": v}).Info("Toggled")
	if err := d.Set(v); err != nil {
		log.WithError(err).WithField("actuator", name).Warn("Failed to set actuator")
	}
}

func (m *DriverMode) stopAll() {
	if err := m.drive.Tank(0, 0); err != nil {
		log.WithError(err).Warn("Failed to stop drive")
	}
	for _, mot := range []hardware.Motor{m.hw.Intake, m.hw.Catapult} {
		if err := mot.Move(0); err != nil {
			log.WithError(err).Warn("Failed to stop motor")
		}
	}
}
