// Package screen drives the robot's small status display: a handful of
// text rows and a battery gauge, rendered to the framebuffer.
package screen

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "screen")

const (
	DefaultDevice  = "/dev/fb1"
	RefreshPeriod  = 500 * time.Millisecond
	Size           = 128
	NumRows        = 8
	rowHeight      = 13
	gaugeLeft      = 96
	minCellVoltage = 3
	maxCellVoltage = 4.2
)

type Screen struct {
	lock    sync.Mutex
	rows    [NumRows]string
	voltage float64
}

func New() *Screen {
	return &Screen{}
}

// Print sets a row of text.  Rows outside the display are ignored.
func (s *Screen) Print(row int, format string, args ...interface{}) {
	if row < 0 || row >= NumRows {
		return
	}
	line := fmt.Sprintf(format, args...)
	s.lock.Lock()
	defer s.lock.Unlock()
	s.rows[row] = line
}

func (s *Screen) Clear() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.rows = [NumRows]string{}
}

func (s *Screen) Rows() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.rows[:]...)
}

func (s *Screen) SetBatteryVolts(v float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.voltage = v
}

func (s *Screen) String() string {
	return strings.Join(s.Rows(), "\n")
}

// Render draws the current state.
func (s *Screen) Render() image.Image {
	s.lock.Lock()
	rows := s.rows
	voltage := s.voltage
	s.lock.Unlock()

	dc := gg.NewContext(Size, Size)
	dc.SetRGBA(1, 0.9, 0, 1)
	for i, r := range rows {
		dc.DrawString(r, 2, float64((i+1)*rowHeight))
	}
	if voltage > 0 {
		dc.Push()
		dc.Translate(gaugeLeft, 5)
		drawPowerBar(dc, voltage)
		dc.Pop()
	}
	return dc.Image()
}

// Loop redraws the display until ctx is done, then blanks it.  If the
// framebuffer can't be opened the display is silently disabled.
func (s *Screen) Loop(ctx context.Context, device string) {
	f, err := os.OpenFile(device, os.O_RDWR, 0666)
	if err != nil {
		log.WithError(err).Info("Failed to open screen, ignoring")
		return
	}
	defer f.Close()

	ticker := time.NewTicker(RefreshPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			var buf [Size * Size * 2]byte
			_, _ = f.Seek(0, 0)
			_, _ = f.Write(buf[:])
			return
		case <-ticker.C:
		}
		if err := writeFrame(f, Encode565(s.Render())); err != nil {
			log.WithError(err).Warn("Screen failure")
			return
		}
	}
}

func writeFrame(f *os.File, buf []byte) error {
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	for i := 0; i < Size; i++ {
		if _, err := f.Write(buf[i*Size*2 : (i+1)*Size*2]); err != nil {
			return err
		}
		time.Sleep(10 * time.Microsecond)
	}
	return nil
}

// Encode565 converts an image to the display's RGB565 format, rotated to
// match how the panel is mounted.
func Encode565(img image.Image) []byte {
	buf := make([]byte, Size*Size*2)
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(Size-1-y)*2+x*Size*2+1] = (rb << 3) | (gb >> 3)
			buf[(Size-1-y)*2+x*Size*2] = bb | (gb << 5)
		}
	}
	return buf
}

// Charge estimates the state of charge, 0-1, of a 2S or 4S pack.
func Charge(voltage float64) float64 {
	var cellVoltage float64
	if voltage > 9 {
		cellVoltage = voltage / 4
	} else {
		cellVoltage = voltage / 2
	}
	c := (cellVoltage - minCellVoltage) / (maxCellVoltage - minCellVoltage)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func drawPowerBar(dc *gg.Context, voltage float64) {
	charge := Charge(voltage)

	// Colour depends on charge level.
	if charge < 0.1 {
		dc.SetRGBA(1, 0.2, 0, 1)
	}
	dc.DrawRectangle(0, 70, 30, 10)
	for n := 2; n < 13; n++ {
		if charge >= (float64(n) / 13) {
			dc.DrawRectangle(2, 75-float64(n)*5, 26, 3)
		}
	}
	dc.Fill()
	dc.DrawString(fmt.Sprintf("%.1fv", voltage), -2, 93)
}
