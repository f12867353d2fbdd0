package app

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/mkarlsen/stepbox"
)

// testKick is a short decaying sine, standing in for a kick sample.
func testKick() *stepbox.Sound {
	s := &stepbox.Sound{Frames: make(stepbox.AudioBuffer, 4000), SampleRate: stepbox.SampleRate}
	for i := range s.Frames {
		v := float32(math.Sin(2*math.Pi*60*float64(i)/stepbox.SampleRate) * math.Exp(-float64(i)/1000))
		s.Frames[i] = stepbox.Stereo{v, v}
	}
	return s
}

func newTestApp(t *testing.T) (*App, func(stepbox.AudioBuffer)) {
	t.Helper()
	a, eng := New()
	a.loadSound = func(path string) (*stepbox.Sound, error) {
		if path != "kick.wav" {
			return nil, fmt.Errorf("no such file %s", path)
		}
		return testKick(), nil
	}
	return a, eng.Render
}

func send(t *testing.T, a *App, msgs ...Msg) {
	t.Helper()
	for _, m := range msgs {
		if err := a.Send(m); err != nil {
			t.Fatalf("Send(%T): %v", m, err)
		}
	}
}

func TestPlaybackIsDeterministic(t *testing.T) {
	render := func() stepbox.AudioBuffer {
		a, renderBlock := newTestApp(t)
		send(t, a,
			CreateTrack{Type: stepbox.TrackInstrument},
			LoadSound{Slot: 0, Path: "kick.wav"},
		)
		for _, line := range []int{0, 4, 8, 12} {
			send(t, a, SetKey{Pos: stepbox.Position{Line: line}, Key: 'z'})
		}
		send(t, a, TogglePlay{})
		out := make(stepbox.AudioBuffer, 0, stepbox.SampleRate)
		buf := make(stepbox.AudioBuffer, stepbox.FramesPerBuffer)
		for len(out) < stepbox.SampleRate {
			renderBlock(buf)
			out = append(out, buf...)
		}
		return out
	}
	a, b := render(), render()
	var peak float32
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("renders differ at frame %d: %v vs %v", i, a[i], b[i])
		}
		if v := float32(math.Abs(float64(a[i][0]))); v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		t.Fatal("playback produced silence")
	}
	// the first note lands on the very first tick
	var head float32
	for _, f := range a[:stepbox.FramesPerBuffer] {
		head += float32(math.Abs(float64(f[0])))
	}
	if head <= 0 {
		t.Error("no audio in the first block")
	}
}

func TestUnknownDeviceRejected(t *testing.T) {
	a, _ := newTestApp(t)
	if err := a.Send(AddDevice{Track: 0, Name: "flanger"}); err == nil {
		t.Error("unknown device name accepted")
	}
}

func TestParamSetOutOfRangeRejected(t *testing.T) {
	a, _ := newTestApp(t)
	send(t, a, AddDevice{Track: 0, Name: "delay"})
	node := a.state.Tracks[0].Devices[0].Node
	if err := a.Send(SetParam{Node: node, Name: "feedback", Value: 2}); err == nil {
		t.Error("out-of-range parameter accepted")
	}
	send(t, a, SetParam{Node: node, Name: "feedback", Value: 0.3})
	if got := a.devices[node].Params().Find("feedback").Value(); got != 0.3 {
		t.Errorf("feedback = %v, want 0.3", got)
	}
	if err := a.Send(SetParam{Node: node, Name: "nope", Value: 0}); err == nil {
		t.Error("unknown parameter accepted")
	}
}

func TestJamNoteRequiresInstrumentTrack(t *testing.T) {
	a, _ := newTestApp(t)
	if err := a.Send(JamNote{Track: 0, Pitch: stepbox.RootPitch, On: true}); err == nil {
		t.Error("jamming on the bus track accepted")
	}
	send(t, a, CreateTrack{Type: stepbox.TrackInstrument})
	send(t, a, JamNote{Track: 1, Pitch: stepbox.RootPitch, Velocity: 100, On: true})
}

func TestCommandQueueFullSurfaces(t *testing.T) {
	a, _ := newTestApp(t)
	send(t, a, CreateTrack{Type: stepbox.TrackInstrument})
	var err error
	// the engine never renders here, so the ring eventually fills
	for i := 0; i < 2*commandRingSize && err == nil; i++ {
		err = a.Send(JamNote{Track: 1, Pitch: stepbox.RootPitch, Velocity: 100, On: true})
	}
	if !errors.Is(err, ErrCommandQueueFull) {
		t.Errorf("expected ErrCommandQueueFull, got %v", err)
	}
}

func TestPatternLifecycle(t *testing.T) {
	a, _ := newTestApp(t)
	send(t, a, CreatePattern{})
	if len(a.state.Song) != 2 || a.songPos != 1 {
		t.Fatalf("song after create = %v, pos %d", a.state.Song, a.songPos)
	}
	send(t, a, RepeatPattern{})
	if len(a.state.Song) != 3 || a.state.Song[2] != a.state.Song[1] {
		t.Fatalf("repeat should reuse the id: %v", a.state.Song)
	}
	send(t, a, ClonePattern{})
	if len(a.state.Song) != 4 || a.state.Song[3] == a.state.Song[2] {
		t.Fatalf("clone should mint a new id: %v", a.state.Song)
	}
	// deleting the repeated slot keeps the pattern, it is still referenced
	send(t, a, SelectPattern{Index: 2})
	shared := a.state.Song[2]
	send(t, a, DeletePattern{})
	if _, ok := a.patterns[shared]; !ok {
		t.Error("pattern freed while still referenced by another slot")
	}
	// deleting the last reference frees it
	cloned := a.state.Song[2]
	send(t, a, DeletePattern{})
	if _, ok := a.patterns[cloned]; ok {
		t.Error("unreferenced pattern not freed")
	}
}

func TestPatternCapacity(t *testing.T) {
	a, _ := newTestApp(t)
	var err error
	for i := 0; i < stepbox.MaxPatterns+1 && err == nil; i++ {
		err = a.Send(CreatePattern{})
	}
	if err == nil {
		t.Error("pattern capacity never enforced")
	}
}

func TestLoopToggleAndExtend(t *testing.T) {
	a, _ := newTestApp(t)
	send(t, a, CreatePattern{}, CreatePattern{}, CreatePattern{})
	send(t, a, SelectPattern{Index: 1}, ToggleLoop{})
	if loop, ok := a.state.Loop.Unpack(); !ok || loop != [2]int{1, 1} {
		t.Fatalf("loop = %v, %v", a.state.Loop, ok)
	}
	send(t, a, SelectPattern{Index: 3}, ExtendLoop{})
	if loop, _ := a.state.Loop.Unpack(); loop != [2]int{1, 3} {
		t.Fatalf("extended loop = %v", loop)
	}
	send(t, a, ToggleLoop{})
	if !a.state.Loop.Empty() {
		t.Error("toggle did not clear the loop")
	}
}

func TestTrackLifecycle(t *testing.T) {
	a, renderBlock := newTestApp(t)
	send(t, a, CreateTrack{Type: stepbox.TrackInstrument}, CreateTrack{Type: stepbox.TrackInstrument})
	if got := a.instrumentCount(); got != 2 {
		t.Fatalf("instrument count = %d", got)
	}
	p, _ := a.selectedPattern()
	if len(p.Tracks) != 2 {
		t.Fatalf("pattern tracks = %d, want 2", len(p.Tracks))
	}
	if err := a.Send(DeleteTrack{Index: 0}); err == nil {
		t.Error("deleting the main bus accepted")
	}
	send(t, a, AddDevice{Track: 1, Name: "delay"})
	devNode := a.state.Tracks[1].Devices[0].Node
	buf := make(stepbox.AudioBuffer, 64)
	renderBlock(buf) // engine installs the nodes
	send(t, a, DeleteTrack{Index: 1})
	if got := a.instrumentCount(); got != 1 {
		t.Errorf("instrument count after delete = %d", got)
	}
	if _, ok := a.devices[devNode]; ok {
		t.Error("device reference kept after its track was deleted")
	}
	renderBlock(buf) // engine processes the deletes and reports disposals
	send(t, a, ToggleMute{Track: 1})
	if !a.state.Tracks[1].Mute {
		t.Error("mute did not toggle")
	}
}

func TestVolumeMessages(t *testing.T) {
	a, _ := newTestApp(t)
	send(t, a, SetVolume{Track: 0, DB: -6})
	if got := a.state.Tracks[0].Volume.DB; got != -6 {
		t.Errorf("volume = %v", got)
	}
	send(t, a, AdjustVolume{Track: 0, Direction: 1})
	if got := a.state.Tracks[0].Volume.DB; got != -5.75 {
		t.Errorf("volume after inc = %v", got)
	}
	send(t, a, SetVolume{Track: 0, DB: 99})
	if got := a.state.Tracks[0].Volume.DB; got != 3 {
		t.Errorf("volume should clamp to +3 dB, got %v", got)
	}
}

func TestTempoValidation(t *testing.T) {
	a, _ := newTestApp(t)
	if err := a.Send(SetBPM{Value: 0}); err == nil {
		t.Error("bpm 0 accepted")
	}
	if err := a.Send(SetLinesPerBeat{Value: 33}); err == nil {
		t.Error("lines per beat 33 accepted")
	}
	if err := a.Send(SetOctave{Value: 10}); err == nil {
		t.Error("octave 10 accepted")
	}
	send(t, a, SetBPM{Value: 140})
	if a.state.BPM != 140 {
		t.Errorf("bpm = %d", a.state.BPM)
	}
}

func TestSoundCacheSweep(t *testing.T) {
	a, _ := newTestApp(t)
	send(t, a, LoadSound{Slot: 0, Path: "kick.wav"})
	if _, ok := a.cache["kick.wav"]; !ok {
		t.Fatal("sound not cached")
	}
	// replacing the slot leaves the old path unreferenced
	loads := 0
	a.loadSound = func(path string) (*stepbox.Sound, error) {
		loads++
		return testKick(), nil
	}
	send(t, a, LoadSound{Slot: 0, Path: "snare.wav"})
	if _, ok := a.cache["kick.wav"]; ok {
		t.Error("unreferenced cache entry not dropped")
	}
	send(t, a, LoadSound{Slot: 1, Path: "snare.wav"})
	if loads != 1 {
		t.Errorf("referenced sound loaded %d times, want 1", loads)
	}
}
