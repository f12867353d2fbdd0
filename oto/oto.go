// Package oto adapts ebitengine/oto/v3 to the stepbox AudioContext
// interface, pulling rendered blocks through an io.Reader as 16-bit PCM.
package oto

import (
	"fmt"
	"io"

	"github.com/ebitengine/oto/v3"
	"github.com/mkarlsen/stepbox"
)

type Context struct {
	ctx *oto.Context
}

// NewContext opens the system audio output at the stepbox sample rate and
// waits until it is ready.
func NewContext() (*Context, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   stepbox.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx}, nil
}

// Play starts pulling audio from callback on the playback thread. The
// returned closer stops playback.
func (c *Context) Play(callback func(stepbox.AudioBuffer) error) io.Closer {
	player := c.ctx.NewPlayer(&renderReader{callback: callback})
	player.Play()
	return player
}

func (c *Context) Close() error {
	// oto contexts cannot be destroyed, suspending is the best we can do
	return c.ctx.Suspend()
}

// renderReader turns the pull-based player into render callbacks, one per
// FramesPerBuffer block, converting to interleaved 16-bit little-endian.
type renderReader struct {
	callback func(stepbox.AudioBuffer) error
	buf      stepbox.AudioBuffer
	pending  []byte
	err      error
}

func (r *renderReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if len(r.pending) == 0 {
		if r.buf == nil {
			r.buf = make(stepbox.AudioBuffer, stepbox.FramesPerBuffer)
		}
		if err := r.callback(r.buf); err != nil {
			r.err = err
			return 0, err
		}
		r.pending = frames16BitLE(r.buf, r.pending[:0])
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// frames16BitLE appends the frames to dst as clamped 16-bit little-endian
// samples, reusing dst's capacity.
func frames16BitLE(frames stepbox.AudioBuffer, dst []byte) []byte {
	for _, f := range frames {
		for ch := 0; ch < 2; ch++ {
			v := f[ch]
			var s int16
			if v < -1 {
				s = -32767
			} else if v > 1 {
				s = 32767
			} else {
				s = int16(v * 32767)
			}
			dst = append(dst, byte(s), byte(s>>8))
		}
	}
	return dst
}
