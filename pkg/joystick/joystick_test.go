package joystick

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRaw(t *testing.T, w *os.File, ev rawEvent) {
	t.Helper()
	require.NoError(t, binary.Write(w, binary.LittleEndian, ev))
}

func TestReadEventDecodes(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()
	j := newJoystick(r)
	defer j.Close()

	writeRaw(t, w, rawEvent{Time: 1000, Value: 1, Type: EventTypeButton | eventTypeInit, Number: ButtonR2})
	writeRaw(t, w, rawEvent{Time: 1250, Value: -32767, Type: EventTypeAxis, Number: AxisLStickY})

	first, err := j.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, EventType(EventTypeButton), first.Type, "init flag is stripped")
	assert.Equal(t, uint8(ButtonR2), first.Number)
	assert.Equal(t, int16(1), first.Value)

	second, err := j.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, EventType(EventTypeAxis), second.Type)
	assert.Equal(t, int16(-32767), second.Value)
	assert.Equal(t, 250*time.Millisecond, second.Time.Sub(first.Time))
	assert.Equal(t, "axis(1)=-32767", second.String())
}

func TestRunDeliversUntilCancelled(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()
	j := newJoystick(r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan *Event)
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx, events) }()

	writeRaw(t, w, rawEvent{Time: 5, Value: 1, Type: EventTypeButton, Number: ButtonA})
	select {
	case e := <-events:
		assert.Equal(t, uint8(ButtonA), e.Number)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	// Nothing more is written so Run is blocked in a read.
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	_, ok := <-events
	assert.False(t, ok, "channel closed")
}

func TestRunReportsReadFailure(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	j := newJoystick(r)
	require.NoError(t, w.Close())

	events := make(chan *Event, 1)
	err = j.Run(context.Background(), events)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, context.Canceled)
	_, ok := <-events
	assert.False(t, ok)
}

func TestOpenWaitsForDevice(t *testing.T) {
	dev := filepath.Join(t.TempDir(), "js0")
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(dev, nil, 0o644)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	j, err := Open(ctx, dev, 5*time.Millisecond)
	require.NoError(t, err)
	assert.NoError(t, j.Close())
}

func TestOpenGivesUpOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Open(ctx, filepath.Join(t.TempDir(), "missing"), 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
