package motion

import (
	"context"
	"math"
	"sync"
	"time"
)

type Outcome int

const (
	Settled Outcome = iota
	TimedOut
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Settled:
		return "settled"
	case TimedOut:
		return "timed out"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

const (
	KindMoveToPose  = "moveToPose"
	KindMoveToPoint = "moveToPoint"
	KindTurnTo      = "turnTo"
	KindFollow      = "follow"
)

const (
	DefaultMaxSpeed = 127
	DefaultLead     = 0.6
)

// Params are the optional parameters shared by the motion commands.
type Params struct {
	// Reverse drives the robot backwards.
	Reverse bool
	// MaxSpeed caps the drive output; 0 means full speed.
	MaxSpeed float64
	// Lead is the carrot distance for MoveToPose as a fraction of the
	// remaining distance; 0 means DefaultLead.
	Lead float64
	// Async returns as soon as the motion has started.
	Async bool
}

func (p Params) maxSpeed() float64 {
	if p.MaxSpeed <= 0 || p.MaxSpeed > DefaultMaxSpeed {
		return DefaultMaxSpeed
	}
	return p.MaxSpeed
}

func (p Params) lead() float64 {
	if p.Lead <= 0 {
		return DefaultLead
	}
	return p.Lead
}

// Motion is a handle on a running or finished motion command.
type Motion struct {
	Kind string

	angular bool
	started time.Time
	done    chan struct{}

	lock      sync.Mutex
	travelled float64
	outcome   Outcome
}

func newMotion(kind string, angular bool) *Motion {
	return &Motion{
		Kind:    kind,
		angular: angular,
		done:    make(chan struct{}),
	}
}

func (m *Motion) track(from, to Pose) {
	var d float64
	if m.angular {
		d = math.Abs(to.Theta - from.Theta)
	} else {
		d = from.Distance(to)
	}
	m.lock.Lock()
	m.travelled += d
	m.lock.Unlock()
}

func (m *Motion) finish(o Outcome) {
	m.lock.Lock()
	m.outcome = o
	m.lock.Unlock()
	close(m.done)
}

func (m *Motion) Done() <-chan struct{} {
	return m.done
}

// Travelled returns the distance covered so far: inches, or degrees for a
// turn.
func (m *Motion) Travelled() float64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.travelled
}

// Outcome is only meaningful once Done is closed.
func (m *Motion) Outcome() Outcome {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.outcome
}

func (m *Motion) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-m.done:
		return m.Outcome(), nil
	case <-ctx.Done():
		return Cancelled, ctx.Err()
	}
}

func (m *Motion) WaitUntil(ctx context.Context, dist float64) error {
	ticker := time.NewTicker(LoopInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return nil
		default:
		}
		if m.Travelled() >= dist {
			return nil
		}
		select {
		case <-m.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
