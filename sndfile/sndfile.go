// Package sndfile decodes sample files into stepbox Sounds. Wav, mp3 and
// ogg/vorbis are supported; everything decodes to stereo float32 at the
// file's native rate, playback resampling is the sampler's job.
package sndfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkarlsen/stepbox"
)

// silenceThreshold is the absolute sample level below which leading audio
// counts as encoder padding.
const silenceThreshold = 0.01

// Load decodes the file at path, dispatching on its extension.
func Load(path string) (*stepbox.Sound, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var frames stepbox.AudioBuffer
	var rate int
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		frames, rate, err = decodeWav(f)
	case ".mp3":
		frames, rate, err = decodeMp3(f)
	case ".ogg", ".oga":
		frames, rate, err = decodeVorbis(f)
	default:
		return nil, fmt.Errorf("unsupported sample format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &stepbox.Sound{
		Frames:     frames,
		SampleRate: rate,
		Offset:     silenceOffset(frames),
		Path:       path,
	}, nil
}

// silenceOffset returns the index of the first audible frame, so triggering
// skips any padding the encoder put in front of the sample.
func silenceOffset(frames stepbox.AudioBuffer) int {
	for i, f := range frames {
		if f[0] >= silenceThreshold || f[0] <= -silenceThreshold ||
			f[1] >= silenceThreshold || f[1] <= -silenceThreshold {
			return i
		}
	}
	return 0
}

// deinterleave packs interleaved samples into stereo frames, duplicating
// mono onto both channels.
func deinterleave(samples []float32, channels int) (stepbox.AudioBuffer, error) {
	switch channels {
	case 1:
		frames := make(stepbox.AudioBuffer, len(samples))
		for i, v := range samples {
			frames[i] = stepbox.Stereo{v, v}
		}
		return frames, nil
	case 2:
		frames := make(stepbox.AudioBuffer, len(samples)/2)
		for i := range frames {
			frames[i] = stepbox.Stereo{samples[i*2], samples[i*2+1]}
		}
		return frames, nil
	}
	return nil, fmt.Errorf("unsupported channel count %d", channels)
}
