package hardware

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/imu"
)

var ErrNotCalibrated = errors.New("inertial sensor not calibrated")

// GyroInertial integrates the gyro's yaw rate into a heading.  Loop must be
// running for the heading to move.
type GyroInertial struct {
	imu imu.Interface

	lock       sync.Mutex
	calibrated bool
	heading    float64
	lastErr    error
}

func NewGyroInertial(m imu.Interface) *GyroInertial {
	return &GyroInertial{imu: m}
}

func (g *GyroInertial) Calibrate(ctx context.Context) error {
	g.lock.Lock()
	g.calibrated = false
	g.lock.Unlock()

	done := make(chan error, 1)
	go func() {
		if err := g.imu.Configure(); err != nil {
			done <- err
			return
		}
		if err := g.imu.Calibrate(); err != nil {
			done <- err
			return
		}
		done <- g.imu.ResetFIFO()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return SensorFault("inertial", err)
		}
	}

	g.lock.Lock()
	g.calibrated = true
	g.heading = 0
	g.lastErr = nil
	g.lock.Unlock()
	return nil
}

func (g *GyroInertial) Heading() (float64, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	if !g.calibrated {
		return 0, SensorFault("inertial", ErrNotCalibrated)
	}
	if g.lastErr != nil {
		return 0, g.lastErr
	}
	return g.heading, nil
}

func (g *GyroInertial) Loop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer log.Info("Gyro loop exited")

	ticker := time.NewTicker(imu.SampleInterval * time.Millisecond)
	defer ticker.Stop()

	sampleDT := (imu.SampleInterval * time.Millisecond).Seconds()
	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		g.lock.Lock()
		calibrated := g.calibrated
		g.lock.Unlock()
		if !calibrated {
			continue
		}

		samples, err := g.imu.ReadFIFO()
		g.lock.Lock()
		if err != nil {
			g.lastErr = SensorFault("inertial", err)
			g.lock.Unlock()
			continue
		}
		g.lastErr = nil
		for _, s := range samples {
			// Gyro Z is anticlockwise-positive looking down; headings
			// are clockwise-positive.
			g.heading -= float64(s) * g.imu.DegreesPerLSB() * sampleDT
		}
		g.lock.Unlock()
	}
}
