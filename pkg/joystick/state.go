package joystick

import (
	"math"
	"sync"
)

// AxisMax is the scale of Snapshot axes.
const AxisMax = 127

// Snapshot is the controller state at an instant.  Stick axes are scaled to
// [-127, 127] with up and right positive.
type Snapshot struct {
	LeftX, LeftY   int
	RightX, RightY int

	// Face buttons, named as on an Xbox pad.
	A, B, X, Y bool

	L1, L2, R1, R2 bool
}

// State tracks the controller by applying events as they arrive.  It is
// safe to read from one goroutine while another applies events.
type State struct {
	lock    sync.Mutex
	axes    map[uint8]int16
	buttons map[uint8]bool
}

func NewState() *State {
	return &State{
		axes:    map[uint8]int16{},
		buttons: map[uint8]bool{},
	}
}

func (s *State) Apply(e *Event) {
	s.lock.Lock()
	defer s.lock.Unlock()
	switch e.Type {
	case EventTypeAxis:
		s.axes[e.Number] = e.Value
	case EventTypeButton:
		s.buttons[e.Number] = e.Value != 0
	}
}

func (s *State) Snapshot() Snapshot {
	s.lock.Lock()
	defer s.lock.Unlock()
	return Snapshot{
		LeftX:  ScaleAxis(s.axes[AxisLStickX]),
		LeftY:  -ScaleAxis(s.axes[AxisLStickY]),
		RightX: ScaleAxis(s.axes[AxisRStickX]),
		RightY: -ScaleAxis(s.axes[AxisRStickY]),

		A: s.buttons[ButtonA],
		B: s.buttons[ButtonB],
		X: s.buttons[ButtonX],
		Y: s.buttons[ButtonY],

		L1: s.buttons[ButtonL1],
		L2: s.buttons[ButtonL2],
		R1: s.buttons[ButtonR1],
		R2: s.buttons[ButtonR2],
	}
}

// Reset forgets everything, as if all sticks were centred and all buttons
// released.
func (s *State) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.axes = map[uint8]int16{}
	s.buttons = map[uint8]bool{}
}

// ScaleAxis maps a raw axis value onto [-127, 127].
func ScaleAxis(raw int16) int {
	v := int(math.Round(float64(raw) * AxisMax / math.MaxInt16))
	if v < -AxisMax {
		v = -AxisMax
	}
	return v
}
