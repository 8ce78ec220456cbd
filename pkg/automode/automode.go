package automode

import (
	"context"
	"sync"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/joystick"
)

// AutoMode runs a routine once when started.  In practice it can be rerun
// with R1 and aborted with Square.
type AutoMode struct {
	seq     *Sequencer
	routine *Routine

	cancel         context.CancelFunc
	stopWG         sync.WaitGroup
	joystickEvents chan *joystick.Event
	loopDone       chan struct{}

	reportLock sync.Mutex
	lastReport *Report
}

func New(seq *Sequencer, routine *Routine) *AutoMode {
	return &AutoMode{
		seq:            seq,
		routine:        routine,
		joystickEvents: make(chan *joystick.Event),
	}
}

func (m *AutoMode) Name() string {
	return "Autonomous"
}

func (m *AutoMode) StartupSound() string {
	return "/sounds/automode.wav"
}

func (m *AutoMode) Start(ctx context.Context) {
	m.stopWG.Add(1)
	m.loopDone = make(chan struct{})
	var loopCtx context.Context
	loopCtx, m.cancel = context.WithCancel(ctx)
	go m.loop(loopCtx)
}

func (m *AutoMode) Stop() {
	m.cancel()
	m.stopWG.Wait()
}

// OnJoystickEvent must only be called between Start and Stop.
func (m *AutoMode) OnJoystickEvent(event *joystick.Event) {
	select {
	case m.joystickEvents <- event:
	case <-m.loopDone:
	}
}

// LastReport returns the report of the most recent completed run, or nil.
func (m *AutoMode) LastReport() *Report {
	m.reportLock.Lock()
	defer m.reportLock.Unlock()
	return m.lastReport
}

func (m *AutoMode) loop(ctx context.Context) {
	defer m.stopWG.Done()
	defer close(m.loopDone)

	var running bool
	var cancelRun context.CancelFunc
	done := make(chan *Report, 1)
	run := func() {
		if running {
			log.Info("Routine already running")
			return
		}
		running = true
		var runCtx context.Context
		runCtx, cancelRun = context.WithCancel(ctx)
		go func() {
			done <- m.seq.Run(runCtx, m.routine)
		}()
	}
	defer func() {
		if running {
			cancelRun()
			m.record(<-done)
		}
	}()

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-done:
			running = false
			cancelRun()
			m.record(r)
		case event := <-m.joystickEvents:
			if event.Type != joystick.EventTypeButton || event.Value != 1 {
				continue
			}
			switch event.Number {
			case joystick.ButtonR1:
				run()
			case joystick.ButtonSquare:
				if running {
					log.Info("Aborting routine")
					cancelRun()
				}
			}
		}
	}
}

func (m *AutoMode) record(r *Report) {
	log.Infof("Autonomous report:\n%s", r)
	m.reportLock.Lock()
	defer m.reportLock.Unlock()
	m.lastReport = r
}
