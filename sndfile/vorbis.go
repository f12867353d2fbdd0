package sndfile

import (
	"io"

	"github.com/jfreymuth/oggvorbis"
	"github.com/mkarlsen/stepbox"
)

func decodeVorbis(r io.Reader) (stepbox.AudioBuffer, int, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, 0, err
	}
	var samples []float32
	chunk := make([]float32, 4096)
	for {
		n, err := dec.Read(chunk)
		samples = append(samples, chunk[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}
	frames, err := deinterleave(samples, dec.Channels())
	if err != nil {
		return nil, 0, err
	}
	return frames, dec.SampleRate(), nil
}
