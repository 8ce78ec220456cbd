// Package joystick reads the driver's gamepad through the Linux joystick
// API (/dev/input/jsN) and tracks its state.
package joystick

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "joystick")

// The robot is driven with a PS4-layout pad:
//
//	Left stick Y   left side of the drive (tank)
//	Right stick Y  right side of the drive
//	A (Cross)      toggle the wings
//	B (Circle)     toggle the blocker
//	L1, L2         intake, mapping depends on the profile
//	R1             re-run the autonomous routine
//	R2             hold to fire the catapult
//	Square         abort the autonomous routine
//	Options        step to the next match phase
//	Share          run a timed match
//
// Sticks report -32767 for up/left and +32767 for down/right.  L2 and R2
// are also axes, but only their button events are used.

type EventType uint8

const (
	EventTypeButton = 1
	EventTypeAxis   = 2

	// eventTypeInit is or-ed into the synthetic events the driver sends
	// to report the initial state.
	eventTypeInit = 0x80
)

const (
	ButtonCross    = 0
	ButtonCircle   = 1
	ButtonTriangle = 2
	ButtonSquare   = 3
	ButtonL1       = 4
	ButtonR1       = 5
	ButtonL2       = 6
	ButtonR2       = 7
	ButtonShare    = 8
	ButtonOptions  = 9
	ButtonPS       = 10
	ButtonLStick   = 11
	ButtonRStick   = 12

	ButtonA = ButtonCross
	ButtonB = ButtonCircle
	ButtonX = ButtonSquare
	ButtonY = ButtonTriangle

	AxisLStickX = 0
	AxisLStickY = 1
	AxisRStickX = 3
	AxisRStickY = 4
	AxisDPadX   = 6
	AxisDPadY   = 7
)

func (e EventType) String() string {
	switch e {
	case EventTypeAxis:
		return "axis"
	case EventTypeButton:
		return "button"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

type Joystick struct {
	device *os.File

	deviceEpoch    uint32
	wallclockEpoch time.Time
}

type rawEvent struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

type Event struct {
	Time   time.Time
	Value  int16
	Type   EventType
	Number uint8
}

func (e *Event) String() string {
	return fmt.Sprintf("%v(%v)=%v", e.Type, e.Number, e.Value)
}

func NewJoystick(device string) (*Joystick, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, err
	}
	return newJoystick(f), nil
}

func newJoystick(f *os.File) *Joystick {
	return &Joystick{device: f}
}

// Open waits for the pad to appear, trying every retry until ctx is done.
// The pad is often switched on after the robot.
func Open(ctx context.Context, device string, retry time.Duration) (*Joystick, error) {
	logged := false
	for {
		j, err := NewJoystick(device)
		if err == nil {
			log.WithField("device", device).Info("Opened joystick")
			return j, nil
		}
		if !logged {
			log.WithError(err).WithField("device", device).Info("Waiting for joystick")
			logged = true
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retry):
		}
	}
}

func (j *Joystick) ReadEvent() (*Event, error) {
	var raw rawEvent
	err := binary.Read(j.device, binary.LittleEndian, &raw)
	if err != nil {
		return nil, err
	}

	if j.deviceEpoch == 0 {
		j.deviceEpoch = raw.Time
		j.wallclockEpoch = time.Now()
	}

	return &Event{
		Time:   j.wallclockEpoch.Add(time.Duration(raw.Time-j.deviceEpoch) * time.Millisecond),
		Value:  raw.Value,
		Type:   EventType(raw.Type &^ eventTypeInit),
		Number: raw.Number,
	}, nil
}

// Run copies events to the channel until ctx is done or a read fails.  It
// closes the device and the channel on return.  It returns ctx.Err() after
// cancellation and the read error otherwise.
func (j *Joystick) Run(ctx context.Context, events chan<- *Event) error {
	defer close(events)
	// A blocked read only returns once the device is closed.
	stop := context.AfterFunc(ctx, func() { _ = j.Close() })
	defer func() {
		if stop() {
			_ = j.Close()
		}
	}()

	for {
		event, err := j.ReadEvent()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "read joystick")
		}
		log.WithField("event", event).Debug("Joy")
		select {
		case events <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (j *Joystick) Close() error {
	return j.device.Close()
}
