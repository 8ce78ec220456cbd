package hardware

import "github.com/pkg/errors"

// MotorGroup drives several motors as one.  Commands fan out to every
// member; Position is the members' average.
type MotorGroup struct {
	Motors []Motor
}

var _ Motor = (*MotorGroup)(nil)

func NewMotorGroup(motors ...Motor) *MotorGroup {
	return &MotorGroup{Motors: motors}
}

func (g *MotorGroup) Move(velocity int) error {
	var firstErr error
	for i, m := range g.Motors {
		if err := m.Move(velocity); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "motor group member %d", i)
		}
	}
	return firstErr
}

func (g *MotorGroup) SetBrakeMode(mode BrakeMode) error {
	var firstErr error
	for i, m := range g.Motors {
		if err := m.SetBrakeMode(mode); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "motor group member %d", i)
		}
	}
	return firstErr
}

// Position averages the members that answered.  It only fails when none
// did.
func (g *MotorGroup) Position() (float64, error) {
	var sum float64
	var n int
	var lastErr error
	for _, m := range g.Motors {
		p, err := m.Position()
		if err != nil {
			lastErr = err
			continue
		}
		sum += p
		n++
	}
	if n == 0 {
		if lastErr == nil {
			lastErr = errors.New("empty motor group")
		}
		return 0, SensorFault("drive encoders", lastErr)
	}
	return sum / float64(n), nil
}
