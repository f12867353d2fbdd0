package engine

import (
	"testing"

	"github.com/mkarlsen/stepbox"
)

func TestEnvelopeAttackReachesFullScale(t *testing.T) {
	var e Envelope
	e.Reset(1)
	e.Gate(10)
	bound := 2 * 10 * stepbox.SampleRate / 1000
	for i := 0; i < bound; i++ {
		if e.Next(500, 1) >= 1 {
			return
		}
	}
	t.Errorf("envelope did not reach full scale within %d samples", bound)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	var e Envelope
	e.Reset(0.5)
	e.Gate(1)
	// run through attack and decay into sustain
	var v float64
	for i := 0; i < stepbox.SampleRate; i++ {
		v = e.Next(10, 0.5)
		if e.stage == envSustain {
			break
		}
	}
	if e.stage != envSustain {
		t.Fatalf("never reached sustain, stage %d value %v", e.stage, v)
	}
	if v < 0.45 || v > 0.55 {
		t.Errorf("sustain level = %v, want ~0.5", v)
	}
	e.Release(10)
	for i := 0; i < stepbox.SampleRate; i++ {
		v = e.Next(10, 0.5)
		if e.Idle() {
			break
		}
	}
	if !e.Idle() || v != 0 {
		t.Errorf("envelope did not return to idle zero, stage %d value %v", e.stage, v)
	}
	// idle envelope stays at zero
	if got := e.Next(10, 0.5); got != 0 {
		t.Errorf("idle Next = %v", got)
	}
}

func TestEnvelopeSustainEditGlides(t *testing.T) {
	var e Envelope
	e.Reset(1)
	e.Gate(1)
	for i := 0; i < stepbox.SampleRate && e.stage != envSustain; i++ {
		e.Next(1, 1)
	}
	if e.stage != envSustain {
		t.Fatal("never reached sustain")
	}
	// drop sustain to 0.2; the level must glide down without jumping
	prev := e.Next(1, 0.2)
	for i := 0; i < 10000; i++ {
		v := e.Next(1, 0.2)
		if v > prev+1e-9 {
			t.Fatalf("sustain glide not monotone at sample %d: %v after %v", i, v, prev)
		}
		prev = v
	}
	if prev > 0.21 {
		t.Errorf("sustain did not glide to the new level, still at %v", prev)
	}
}

func TestEnvelopeReleaseBeforeGateIsNoop(t *testing.T) {
	var e Envelope
	e.Reset(1)
	e.Release(100)
	if !e.Idle() {
		t.Error("releasing an idle envelope should stay idle")
	}
}
