package engine

import (
	"math"

	"github.com/mkarlsen/stepbox"
)

type envStage uint8

const (
	envIdle envStage = iota
	envAttack
	envDecay
	envSustain
	envRelease
)

// envEpsilon overshoots each stage target so the one-pole smoother crosses
// its threshold in finite time instead of approaching it forever.
const envEpsilon = 0.001

// sustainSmoothLen low-passes live sustain edits over ~23 ms so a turning
// knob never steps the level audibly.
const sustainSmoothLen = 1024

// Envelope is a one-pole ADSR evaluated per sample. Each stage chases a
// target slightly past its threshold; reaching the threshold clamps the value
// and moves to the next stage.
type Envelope struct {
	stage   envStage
	value   float64
	pole    float64
	sustain float64
}

func pole(ms float64) float64 {
	n := ms / 1000 * stepbox.SampleRate
	if n < 1 {
		n = 1
	}
	return math.Pow(0.0001, 1/n)
}

// Gate starts the attack stage. Retriggering a sounding envelope restarts the
// attack from the current level, so there is no click.
func (e *Envelope) Gate(attackMs float64) {
	e.stage = envAttack
	e.pole = pole(attackMs)
}

// Release starts the release stage. The time constant scales with the
// current level so the perceived fade rate does not depend on sustain.
func (e *Envelope) Release(releaseMs float64) {
	if e.stage == envIdle {
		return
	}
	e.stage = envRelease
	e.pole = pole(releaseMs * e.value)
}

// Next advances one sample and returns the envelope level in [0, 1]. The
// decay time and sustain level are read every sample so edits apply to
// already sounding notes.
func (e *Envelope) Next(decayMs, sustain float64) float64 {
	sp := math.Pow(0.0001, 1.0/sustainSmoothLen)
	e.sustain = sp*e.sustain + (1-sp)*sustain
	switch e.stage {
	case envIdle:
		return 0
	case envAttack:
		e.value = e.pole*e.value + (1-e.pole)*(1+envEpsilon)
		if e.value >= 1 {
			e.value = 1
			e.stage = envDecay
			e.pole = pole(decayMs)
		}
	case envDecay:
		e.value = e.pole*e.value + (1-e.pole)*(e.sustain-envEpsilon)
		if e.value <= e.sustain {
			e.value = e.sustain
			e.stage = envSustain
		}
	case envSustain:
		e.value = e.sustain
	case envRelease:
		e.value = e.pole*e.value + (1-e.pole)*(-envEpsilon)
		if e.value <= 0 {
			e.value = 0
			e.stage = envIdle
		}
	}
	return e.value
}

// Idle reports whether the envelope has fully faded out.
func (e *Envelope) Idle() bool { return e.stage == envIdle }

// Reset snaps the envelope to silence, for voices reused from the free pool.
func (e *Envelope) Reset(sustain float64) {
	e.stage = envIdle
	e.value = 0
	e.sustain = sustain
}
