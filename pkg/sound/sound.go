package sound

import (
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "sound")

// Player plays WAV files on a background goroutine.  A new sound cuts off
// the one that is playing.
type Player struct {
	soundsToPlay chan string
	closeOnce    sync.Once
	closed       chan struct{}
}

func NewPlayer() *Player {
	p := &Player{
		soundsToPlay: make(chan string),
		closed:       make(chan struct{}),
	}
	go p.loop()
	return p
}

// PlaySound queues a sound without blocking the caller for more than a
// few milliseconds; a busy or broken speaker just drops it.
func (p *Player) PlaySound(path string) {
	select {
	case <-p.closed:
		return
	default:
	}
	select {
	case p.soundsToPlay <- path:
	case <-p.closed:
	case <-time.After(10 * time.Millisecond):
		log.WithField("sound", path).Debug("Timed out trying to play sound")
	}
}

func (p *Player) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
	})
}

func (p *Player) loop() {
	sampleRate := beep.SampleRate(44100)
	speakerOK := true
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/5)); err != nil {
		log.WithError(err).Warn("Failed to open speaker")
		speakerOK = false
	}

	var ctrl *beep.Ctrl
	var s beep.StreamSeekCloser
	for {
		var soundToPlay string
		select {
		case <-p.closed:
			if s != nil {
				s.Close()
			}
			return
		case soundToPlay = <-p.soundsToPlay:
		}
		if !speakerOK {
			log.WithField("sound", soundToPlay).Debug("No speaker; unable to play")
			continue
		}

		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if s != nil {
			s.Close()
			s = nil
		}

		f, err := os.Open(soundToPlay)
		if err != nil {
			log.WithError(err).Warn("Failed to open sound")
			continue
		}
		s, _, err = wav.Decode(f)
		if err != nil {
			log.WithError(err).Warn("Failed to decode sound")
			f.Close()
			s = nil
			continue
		}
		ctrl = &beep.Ctrl{Streamer: s}
		speaker.Play(ctrl)
	}
}
