// Package engine contains the audio-thread side of stepbox: the sample
// accurate scheduler, the sampler and effect devices and the parameter
// plumbing. Nothing here locks, blocks or allocates while rendering; all
// state arrives through the snapshots and rings of the rt package.
package engine

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/mkarlsen/stepbox"
)

// Device is a renderable node: a sound source or an effect. SendEvent and
// Render run on the audio thread; parameter targets may be written from the
// control thread at any time through Params.
type Device interface {
	// SendEvent delivers a sequencer event. Effects ignore events they do
	// not understand.
	SendEvent(ev stepbox.Event)

	// Render processes one block. Sources ignore in and add their output on
	// top of out; effects read in and overwrite out. in and out are the same
	// slice for the head of a chain.
	Render(in, out stepbox.AudioBuffer)

	Params() Params
}

// ParamInfo is the static description of a parameter.
type ParamInfo struct {
	Name      string
	Min, Max  float64
	Steps     [2]float64 // fine and coarse adjustment step
	Format    func(float64) string
	SmoothLen int // smoothing length in samples, 0 for stepwise
}

// Param is a single device parameter. The control thread writes the target
// through an atomic; the audio thread owns the smoothed current value, so the
// two never contend.
type Param struct {
	target  atomic.Uint64 // math.Float64bits of the target
	current float64
	pole    float64
	info    ParamInfo
}

func NewParam(info ParamInfo, value float64) *Param {
	p := &Param{info: info, current: value}
	if info.SmoothLen > 0 {
		// decay to 0.01 % of a step over SmoothLen samples
		p.pole = math.Pow(0.0001, 1/float64(info.SmoothLen))
	}
	p.target.Store(math.Float64bits(value))
	return p
}

func (p *Param) Info() ParamInfo { return p.info }

// Value returns the target, not the smoothed current value.
func (p *Param) Value() float64 {
	return math.Float64frombits(p.target.Load())
}

// Set rejects values outside [Min, Max] and leaves the parameter unchanged.
func (p *Param) Set(value float64) error {
	if value < p.info.Min || value > p.info.Max {
		return fmt.Errorf("%s: value %v outside range %v..%v", p.info.Name, value, p.info.Min, p.info.Max)
	}
	p.target.Store(math.Float64bits(value))
	return nil
}

// Add nudges the target by one step, clamping at the range ends.
func (p *Param) Add(direction int, coarse bool) {
	step := p.info.Steps[0]
	if coarse {
		step = p.info.Steps[1]
	}
	v := p.Value() + float64(direction)*step
	v = math.Min(math.Max(v, p.info.Min), p.info.Max)
	p.target.Store(math.Float64bits(v))
}

// next advances the smoothed value by one sample. Audio thread only.
func (p *Param) next() float64 {
	t := p.Value()
	if p.pole == 0 {
		p.current = t
	} else {
		p.current = p.pole*p.current + (1-p.pole)*t
	}
	return p.current
}

type Params []*Param

func (ps Params) Find(name string) *Param {
	for _, p := range ps {
		if p.info.Name == name {
			return p
		}
	}
	return nil
}

func formatMs(v float64) string      { return fmt.Sprintf("%.0f ms", v) }
func formatPercent(v float64) string { return fmt.Sprintf("%.0f %%", v*100) }
