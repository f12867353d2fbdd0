// Package stepbox contains the domain types of the stepbox step sequencer:
// editable patterns, compiled engine patterns, decoded sounds, and the state
// snapshots exchanged between the control thread and the audio thread. The
// real-time scheduler itself lives in the engine package; the control-thread
// model in the app package.
package stepbox

import "io"

const (
	// SampleRate is fixed; all sounds are resampled to it on playback via
	// each voice's pitch ratio.
	SampleRate = 44100

	// FramesPerBuffer is the block size used by the bundled players. The
	// engine itself accepts buffers of any length.
	FramesPerBuffer = 512

	// TicksPerLine subdivides one pattern line for micro-timing. Offset
	// effect values are clamped to 0..TicksPerLine-1.
	TicksPerLine = 12

	MaxPatternLength = 512
	MaxPatterns      = 256

	// MaxVoices is the polyphony of a single sampler device.
	MaxVoices = 8
)

// Node indices are handed out from two disjoint ranges so that a device keeps
// its identity even when tracks are inserted or removed around it.
const (
	MaxTrackNodes  = 32
	MaxDeviceNodes = 64
	MaxNodes       = MaxTrackNodes + MaxDeviceNodes
)

const (
	// RootPitch plays a sound at its native rate; it is the pitch entered by
	// the 'z' key on octave 4.
	RootPitch = 48

	MaxPitch = 108

	// NoteOff is the reserved pitch that releases the sounding note instead
	// of triggering a new one.
	NoteOff = 109

	DefaultVelocity = 80
)

// AudioContext provides real-time audio output. The callback passed to Play
// is invoked on the platform audio thread and must fill the whole buffer.
type AudioContext interface {
	Play(callback func(AudioBuffer) error) io.Closer
	Close() error
}
