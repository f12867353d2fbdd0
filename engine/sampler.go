package engine

import (
	"math"

	"github.com/mkarlsen/stepbox"
)

// forcedReleaseMs is the ramp applied to a voice displaced by a retrigger on
// its column, long enough to avoid a click and short enough to be inaudible
// as a tail.
const forcedReleaseMs = 1

type voice struct {
	sound    *stepbox.Sound
	track    stepbox.NodeID
	pitch    uint8
	position float64
	step     float64
	gain     float64
	seq      uint64
	env      Envelope
}

func (v *voice) busy() bool { return v.sound != nil }

func (v *voice) free() {
	v.sound = nil
}

// Sampler plays a sound with an 8-voice pool, linear interpolation pitch
// shifting and a per-voice ADSR.
type Sampler struct {
	voices [stepbox.MaxVoices]voice
	cued   *stepbox.Sound

	// seq counts rendered blocks. Voices remember the seq they started on,
	// which tells the same-column release apart from a chord: events landing
	// on one tick arrive between two blocks and share a seq.
	seq uint64

	attack, decay, sustain, release *Param

	// Dropped counts note-ons discarded because every voice was busy. Read
	// by the engine after each block; audio thread only.
	Dropped int
}

func NewSampler() *Sampler {
	return &Sampler{
		attack:  NewParam(ParamInfo{Name: "attack", Min: 1, Max: 10000, Steps: [2]float64{1, 50}, Format: formatMs}, 1),
		decay:   NewParam(ParamInfo{Name: "decay", Min: 1, Max: 10000, Steps: [2]float64{1, 50}, Format: formatMs}, 500),
		sustain: NewParam(ParamInfo{Name: "sustain", Min: 0, Max: 1, Steps: [2]float64{0.01, 0.1}, Format: formatPercent}, 1),
		release: NewParam(ParamInfo{Name: "release", Min: 1, Max: 10000, Steps: [2]float64{1, 50}, Format: formatMs}, 100),
	}
}

func (s *Sampler) Params() Params {
	return Params{s.attack, s.decay, s.sustain, s.release}
}

// Cue sets the sound new notes will play. Voices already sounding keep their
// old sound; free voices pick the new one up on the next render.
func (s *Sampler) Cue(sound *stepbox.Sound) {
	s.cued = sound
}

// SendEvent triggers or releases voices. The note off sentinel pitch
// releases every voice on the event's column; a regular note off releases
// only the matching pitch. A note on first forces a short release on every
// voice already sounding on its column, sparing voices started since the
// last block so the notes of one chord do not silence each other.
func (s *Sampler) SendEvent(ev stepbox.Event) {
	if !ev.On {
		for i := range s.voices {
			v := &s.voices[i]
			if v.busy() && v.track == ev.Track && (ev.Pitch == stepbox.NoteOff || v.pitch == ev.Pitch) {
				v.env.Release(s.release.Value())
			}
		}
		return
	}
	sound := s.cued
	if ev.Pitch > stepbox.MaxPitch || sound == nil {
		return
	}
	// too short for the interpolation window, or silent to the end
	if len(sound.Frames) < 2 || sound.Offset >= len(sound.Frames)-1 {
		return
	}
	for i := range s.voices {
		v := &s.voices[i]
		if v.busy() && v.track == ev.Track && v.seq != s.seq {
			v.env.Release(forcedReleaseMs)
		}
	}
	var target *voice
	for i := range s.voices {
		if !s.voices[i].busy() {
			target = &s.voices[i]
			break
		}
	}
	if target == nil {
		s.Dropped++
		return
	}
	target.sound = sound
	target.track = ev.Track
	target.pitch = ev.Pitch
	target.position = float64(sound.Offset)
	target.step = math.Pow(2, float64(int(ev.Pitch)-stepbox.RootPitch)/12) *
		float64(sound.SampleRate) / stepbox.SampleRate
	target.gain = velocityGain(ev.Velocity)
	target.seq = s.seq
	target.env.Reset(s.sustain.Value())
	target.env.Gate(s.attack.Value())
}

// ReleaseAll sends every sounding voice into its release stage, for stopping
// the transport.
func (s *Sampler) ReleaseAll() {
	for i := range s.voices {
		if v := &s.voices[i]; v.busy() {
			v.env.Release(s.release.Value())
		}
	}
}

// velocityGain maps velocity 0..127 linearly onto -60..0 dB.
func velocityGain(velocity uint8) float64 {
	db := float64(min(velocity, 127))/127*60 - 60
	return math.Pow(10, db/20)
}

// Render adds the active voices on top of out. in is ignored; the sampler is
// always the head of its chain.
func (s *Sampler) Render(in, out stepbox.AudioBuffer) {
	s.seq++
	decay, sustain := s.decay.Value(), s.sustain.Value()
	for i := range s.voices {
		v := &s.voices[i]
		if !v.busy() {
			continue
		}
		end := float64(len(v.sound.Frames) - 1)
		if v.position >= end {
			v.free()
			continue
		}
		for j := range out {
			level := v.env.Next(decay, sustain)
			if v.env.Idle() {
				v.free()
				break
			}
			out[j] = out[j].Add(v.sound.At(v.position).Scale(float32(level * v.gain)))
			v.position += v.step
			if v.position >= end {
				v.free()
				break
			}
		}
	}
}

// Active counts the voices currently sounding.
func (s *Sampler) Active() int {
	n := 0
	for i := range s.voices {
		if s.voices[i].busy() {
			n++
		}
	}
	return n
}
