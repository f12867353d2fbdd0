package engine

import (
	"math"
	"testing"

	"github.com/mkarlsen/stepbox"
)

func TestDelayImpulseTaps(t *testing.T) {
	const delayLen = 4
	d := NewDelay(delayLen)
	in := make(stepbox.AudioBuffer, delayLen*4)
	out := make(stepbox.AudioBuffer, delayLen*4)
	in[0] = stepbox.Stereo{1, 1}
	d.Render(in, out)
	dry := d.dry.Value()
	wet := d.wet.Value()
	fb := d.feedback.Value()
	check := func(i int, want float64) {
		t.Helper()
		if math.Abs(float64(out[i][0])-want) > 1e-6 {
			t.Errorf("out[%d] = %v, want %v", i, out[i][0], want)
		}
	}
	check(0, dry)
	check(delayLen, wet)
	check(2*delayLen, wet*fb)
	check(3*delayLen, wet*fb*fb)
	for i, f := range out {
		if i%delayLen != 0 && f[0] != 0 {
			t.Errorf("out[%d] = %v, want silence between taps", i, f[0])
		}
	}
}

func TestDelayParamRangeRejected(t *testing.T) {
	d := NewDelay(100)
	if err := d.feedback.Set(1.5); err == nil {
		t.Error("feedback beyond range accepted")
	}
	if got := d.feedback.Value(); got != 0.5 {
		t.Errorf("rejected set changed the value to %v", got)
	}
	if err := d.feedback.Set(0.25); err != nil {
		t.Errorf("valid set rejected: %v", err)
	}
}

func TestParamAddClampsAndSteps(t *testing.T) {
	p := NewParam(ParamInfo{Name: "x", Min: 0, Max: 1, Steps: [2]float64{0.01, 0.1}}, 0.5)
	p.Add(1, false)
	if got := p.Value(); math.Abs(got-0.51) > 1e-12 {
		t.Errorf("fine step: %v", got)
	}
	p.Add(1, true)
	if got := p.Value(); math.Abs(got-0.61) > 1e-12 {
		t.Errorf("coarse step: %v", got)
	}
	for i := 0; i < 100; i++ {
		p.Add(1, true)
	}
	if got := p.Value(); got != 1 {
		t.Errorf("Add did not clamp at max: %v", got)
	}
}

func TestParamsFind(t *testing.T) {
	d := NewDelay(100)
	if d.Params().Find("wet") == nil {
		t.Error("wet not found")
	}
	if d.Params().Find("nope") != nil {
		t.Error("found a parameter that does not exist")
	}
}
