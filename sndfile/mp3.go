package sndfile

import (
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/mkarlsen/stepbox"
)

func decodeMp3(r io.Reader) (stepbox.AudioBuffer, int, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, err
	}
	// go-mp3 always outputs 16-bit little-endian stereo
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, err
	}
	samples := make([]float32, len(raw)/2)
	for i := range samples {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		samples[i] = float32(v) / 32768
	}
	frames, err := deinterleave(samples, 2)
	if err != nil {
		return nil, 0, err
	}
	return frames, dec.SampleRate(), nil
}
