package oto

import (
	"bytes"
	"testing"

	"github.com/mkarlsen/stepbox"
)

func TestFrames16BitLE(t *testing.T) {
	frames := stepbox.AudioBuffer{{0, 1}, {-1, 2}, {-2, 0.5}}
	got := frames16BitLE(frames, nil)
	want := []byte{
		0x00, 0x00, 0xff, 0x7f, // 0, 32767
		0x01, 0x80, 0xff, 0x7f, // -32767, clamped 32767
		0x01, 0x80, 0xff, 0x3f, // clamped -32767, 16383
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestRenderReaderStopsOnError(t *testing.T) {
	calls := 0
	r := &renderReader{callback: func(buf stepbox.AudioBuffer) error {
		calls++
		if calls > 1 {
			return bytes.ErrTooLarge
		}
		return nil
	}}
	p := make([]byte, stepbox.FramesPerBuffer*4)
	if _, err := r.Read(p); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if _, err := r.Read(p); err == nil {
		t.Fatal("callback error not propagated")
	}
	if _, err := r.Read(p); err == nil {
		t.Fatal("reader did not stay failed")
	}
	if calls != 2 {
		t.Errorf("callback called %d times, want 2", calls)
	}
}
