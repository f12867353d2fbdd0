package engine

import "github.com/mkarlsen/stepbox"

// Delay is a feedback delay with a buffer length fixed at construction.
// out = dry*in + wet*delayed, and in + feedback*delayed goes back into the
// line.
type Delay struct {
	buf stepbox.AudioBuffer
	pos int

	dry, wet, feedback *Param
}

// NewDelay makes a delay of the given length in frames.
func NewDelay(frames int) *Delay {
	return &Delay{
		buf:      make(stepbox.AudioBuffer, max(frames, 1)),
		dry:      NewParam(ParamInfo{Name: "dry", Min: 0, Max: 1, Steps: [2]float64{0.01, 0.1}, Format: formatPercent, SmoothLen: 1024}, 0.8),
		wet:      NewParam(ParamInfo{Name: "wet", Min: 0, Max: 1, Steps: [2]float64{0.01, 0.1}, Format: formatPercent, SmoothLen: 1024}, 0.8),
		feedback: NewParam(ParamInfo{Name: "feedback", Min: 0, Max: 0.99, Steps: [2]float64{0.01, 0.1}, Format: formatPercent, SmoothLen: 1024}, 0.5),
	}
}

func (d *Delay) Params() Params {
	return Params{d.dry, d.wet, d.feedback}
}

// SendEvent is a no-op; the delay has no note handling.
func (d *Delay) SendEvent(ev stepbox.Event) {}

func (d *Delay) Render(in, out stepbox.AudioBuffer) {
	for i := range out {
		dry := float32(d.dry.next())
		wet := float32(d.wet.next())
		fb := float32(d.feedback.next())
		delayed := d.buf[d.pos]
		x := in[i]
		out[i] = x.Scale(dry).Add(delayed.Scale(wet))
		d.buf[d.pos] = x.Add(delayed.Scale(fb))
		d.pos++
		if d.pos >= len(d.buf) {
			d.pos = 0
		}
	}
}
