// Package telemetry periodically reports the robot's pose to the display,
// the log and, optionally, a serial link.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/motion"
)

var log = logrus.WithField("component", "telemetry")

type Config struct {
	Period time.Duration `yaml:"period"`
	// BatteryEvery reads the battery on every Nth tick.
	BatteryEvery int `yaml:"batteryEvery"`
	// SerialPort, if set, receives a "x,y,theta" line per tick.
	SerialPort string `yaml:"serialPort"`
	BaudRate   int    `yaml:"baudRate"`
}

func DefaultConfig() Config {
	return Config{
		Period:       50 * time.Millisecond,
		BatteryEvery: 10,
		BaudRate:     115200,
	}
}

func (c Config) Validate() error {
	if c.Period <= 0 {
		return errors.New("telemetry period must be positive")
	}
	if c.BatteryEvery <= 0 {
		return errors.New("batteryEvery must be positive")
	}
	if c.SerialPort != "" && c.BaudRate <= 0 {
		return errors.New("baud rate must be positive")
	}
	return nil
}

// Display rows.
const (
	RowX = iota
	RowY
	RowTheta
	RowPhase
	RowBattery
	RowMatch
)

type PoseSource interface {
	Pose() motion.Pose
}

type Display interface {
	Print(row int, format string, args ...interface{})
	SetBatteryVolts(v float64)
}

type Task struct {
	cfg     Config
	pose    PoseSource
	display Display
	battery hardware.PowerSensor
	matchID string

	// Phase, if set, names the current competition phase.
	Phase func() string
	// Sink, if set, receives the pose stream.
	Sink io.Writer

	ticks int
}

func New(cfg Config, pose PoseSource, display Display, battery hardware.PowerSensor, matchID string) *Task {
	return &Task{
		cfg:     cfg,
		pose:    pose,
		display: display,
		battery: battery,
		matchID: matchID,
	}
}

// OpenSerial opens the serial pose stream.
func OpenSerial(port string, baud int) (serial.Port, error) {
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open telemetry serial port %s", port)
	}
	return p, nil
}

// Loop runs the telemetry task until ctx is done.  Nothing it does can
// fail: every problem is logged and the next tick tries again.
func (t *Task) Loop(ctx context.Context) error {
	defer log.Info("Telemetry loop exited")
	if t.display != nil && t.matchID != "" {
		t.display.Print(RowMatch, "Match %.8s", t.matchID)
	}
	ticker := time.NewTicker(t.cfg.Period)
	defer ticker.Stop()
	for {
		t.Tick()
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Tick does one round of reporting.
func (t *Task) Tick() {
	p := t.pose.Pose()
	if t.display != nil {
		t.display.Print(RowX, "X: %f", p.X)
		t.display.Print(RowY, "Y: %f", p.Y)
		t.display.Print(RowTheta, "Theta: %f", p.Theta)
	}
	entry := log.WithFields(logrus.Fields{
		"x":     p.X,
		"y":     p.Y,
		"theta": p.Theta,
	})
	if t.matchID != "" {
		entry = entry.WithField("match", t.matchID)
	}
	if t.Phase != nil {
		phase := t.Phase()
		entry = entry.WithField("phase", phase)
		if t.display != nil {
			t.display.Print(RowPhase, "%s", phase)
		}
	}
	entry.Info("Chassis pose")

	if t.Sink != nil {
		if _, err := fmt.Fprintf(t.Sink, "%.3f,%.3f,%.3f\n", p.X, p.Y, p.Theta); err != nil {
			log.WithError(err).Debug("Failed to write pose to sink")
		}
	}

	if t.battery != nil && t.ticks%t.cfg.BatteryEvery == 0 {
		v, err := t.battery.BatteryVolts()
		if err != nil {
			log.WithError(err).Debug("Failed to read battery")
		} else if t.display != nil {
			t.display.SetBatteryVolts(v)
			t.display.Print(RowBattery, "Battery: %.1fV", v)
		}
	}
	t.ticks++
}
