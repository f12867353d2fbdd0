package sndfile

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mkarlsen/stepbox"
)

func decodeWav(r io.ReadSeeker) (stepbox.AudioBuffer, int, error) {
	dec := wav.NewDecoder(r)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if buf.Format == nil || len(buf.Data) == 0 {
		return nil, 0, errors.New("empty wav file")
	}
	samples, err := normalizePCM(buf, dec.BitDepth)
	if err != nil {
		return nil, 0, err
	}
	frames, err := deinterleave(samples, buf.Format.NumChannels)
	if err != nil {
		return nil, 0, err
	}
	return frames, buf.Format.SampleRate, nil
}

func normalizePCM(buf *audio.IntBuffer, depth uint16) ([]float32, error) {
	samples := make([]float32, len(buf.Data))
	switch depth {
	case 8:
		// 8-bit wav is unsigned
		for i, v := range buf.Data {
			samples[i] = (float32(v) - 128) / 128
		}
	case 16, 24, 32:
		scale := float32(int64(1) << (depth - 1))
		for i, v := range buf.Data {
			samples[i] = float32(v) / scale
		}
	default:
		return nil, fmt.Errorf("unsupported wav bit depth %d", depth)
	}
	return samples, nil
}
