package stepbox_test

import (
	"math"
	"testing"

	"github.com/mkarlsen/stepbox"
)

func TestStereoArithmetic(t *testing.T) {
	a := stepbox.Stereo{1, -2}
	b := stepbox.Stereo{0.5, 4}
	if got := a.Add(b); got != (stepbox.Stereo{1.5, 2}) {
		t.Errorf("Add = %v", got)
	}
	if got := a.Sub(b); got != (stepbox.Stereo{0.5, -6}) {
		t.Errorf("Sub = %v", got)
	}
	if got := a.Scale(2); got != (stepbox.Stereo{2, -4}) {
		t.Errorf("Scale = %v", got)
	}
	if got := a.MulElem(b); got != (stepbox.Stereo{0.5, -8}) {
		t.Errorf("MulElem = %v", got)
	}
}

func TestAudioBufferAccumulate(t *testing.T) {
	dst := stepbox.AudioBuffer{{1, 1}, {2, 2}}
	src := stepbox.AudioBuffer{{1, 0}, {0, 1}}
	dst.Accumulate(src, 0.5)
	want := stepbox.AudioBuffer{{1.5, 1}, {2, 2.5}}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("frame %d: got %v, want %v", i, dst[i], want[i])
		}
	}
	dst.Zero()
	for i, f := range dst {
		if f != (stepbox.Stereo{}) {
			t.Errorf("frame %d not zeroed: %v", i, f)
		}
	}
}

func TestRmsConstantSignal(t *testing.T) {
	rms := stepbox.NewRms(64)
	buf := make(stepbox.AudioBuffer, 32)
	for i := range buf {
		buf[i] = stepbox.Stereo{0.5, -0.25}
	}
	rms.Add(buf)
	rms.Add(buf)
	got := rms.Value()
	if math.Abs(float64(got[0])-0.5) > 1e-5 || math.Abs(float64(got[1])-0.25) > 1e-5 {
		t.Errorf("constant signal rms = %v, want {0.5 0.25}", got)
	}
}

func TestRmsWindowForgets(t *testing.T) {
	rms := stepbox.NewRms(16)
	loud := make(stepbox.AudioBuffer, 16)
	for i := range loud {
		loud[i] = stepbox.Stereo{1, 1}
	}
	rms.Add(loud)
	rms.Add(make(stepbox.AudioBuffer, 16)) // silence fills the whole window
	got := rms.Value()
	if got[0] > 1e-4 || got[1] > 1e-4 {
		t.Errorf("rms after silent window = %v, want ~0", got)
	}
}

func TestVolumeClampAndSteps(t *testing.T) {
	tests := []struct {
		set    float64
		wantDB float64
	}{
		{0, 0},
		{5, 3},
		{-100, -60},
		{-6.02, -6.02},
	}
	for _, tt := range tests {
		v := stepbox.NewVolume(tt.set)
		if v.DB != tt.wantDB {
			t.Errorf("Set(%v): DB = %v, want %v", tt.set, v.DB, tt.wantDB)
		}
		wantLin := math.Pow(10, tt.wantDB/20)
		if math.Abs(v.Linear-wantLin) > 1e-12 {
			t.Errorf("Set(%v): Linear = %v, want %v", tt.set, v.Linear, wantLin)
		}
	}
	v := stepbox.NewVolume(0)
	v.Inc()
	if v.DB != 0.25 {
		t.Errorf("Inc from 0 dB: got %v, want 0.25", v.DB)
	}
	v = stepbox.NewVolume(3)
	v.Inc()
	if v.DB != 3 {
		t.Errorf("Inc at ceiling: got %v, want 3", v.DB)
	}
	v = stepbox.NewVolume(-60)
	v.Dec()
	if v.DB != -60 {
		t.Errorf("Dec at floor: got %v, want -60", v.DB)
	}
}
