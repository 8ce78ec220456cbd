package motorboard

type encoderReader interface {
	RawEncoder(port int) (int16, error)
}

// EncoderTracker turns the board's wrapping 16-bit encoder registers into
// an unbounded tick count for one port.
type EncoderTracker struct {
	board encoderReader
	port  int

	doneFirstPoll bool
	lastRaw       int16

	accumulator int64
}

func NewEncoderTracker(board encoderReader, port int) *EncoderTracker {
	return &EncoderTracker{
		board: board,
		port:  port,
	}
}

func (d *EncoderTracker) Poll() error {
	raw, err := d.board.RawEncoder(d.port)
	if err != nil {
		return err
	}

	if d.doneFirstPoll {
		// int16 subtraction wraps, which is exactly what we want when
		// the register rolls over.
		delta := raw - d.lastRaw
		d.accumulator += int64(delta)
	}

	d.lastRaw = raw
	d.doneFirstPoll = true
	return nil
}

func (d *EncoderTracker) Ticks() int64 {
	return d.accumulator
}

func (d *EncoderTracker) Zero() {
	d.accumulator = 0
}
