package engine

import (
	"fmt"

	"github.com/mkarlsen/stepbox"
	"github.com/mkarlsen/stepbox/rt"
)

type CommandKind uint8

const (
	// CommandCreateNode installs Device at node index Node.
	CommandCreateNode CommandKind = iota
	// CommandDeleteNode removes the device at Node and returns it through
	// the disposal ring, so it is freed off the audio thread.
	CommandDeleteNode
	// CommandPreview cues Sound on the preview sampler and plays it at root
	// pitch, independent of the sequencer.
	CommandPreview
	// CommandEvent delivers Event to its target node, for live jamming.
	CommandEvent
)

// Command travels from the control thread to the engine through a ring;
// delete commands travel back through the disposal ring carrying the device.
type Command struct {
	Kind   CommandKind
	Node   stepbox.NodeID
	Device Device
	Sound  *stepbox.Sound
	Event  stepbox.Event
}

// NewDevice makes an effect device by name, for the control thread to insert
// into a track chain.
func NewDevice(name string) (Device, error) {
	switch name {
	case "delay":
		return NewDelay(stepbox.SampleRate / 2), nil
	}
	return nil, fmt.Errorf("unknown device %q", name)
}

const rmsWindow = 1024

// Engine renders the published snapshot sample-accurately. Render is the
// audio callback; everything else it needs arrives through the snapshot
// output and the command ring, so Render never locks and, once the scratch
// buffers have seen the host's block size, never allocates.
type Engine struct {
	app      *rt.Output[stepbox.AppState]
	stateOut *rt.Input[stepbox.EngineState]
	commands *rt.Ring[Command]
	disposal *rt.Ring[Command]

	nodes   [stepbox.MaxNodes]Device
	preview *Sampler

	state         stepbox.EngineState
	playing       bool
	samplesToTick int

	scratch [2]stepbox.AudioBuffer
	bus     stepbox.AudioBuffer
	meter   stepbox.AudioBuffer
	rms     [stepbox.MaxTrackNodes]*stepbox.Rms
}

func New(app *rt.Output[stepbox.AppState], stateOut *rt.Input[stepbox.EngineState],
	commands, disposal *rt.Ring[Command]) *Engine {
	e := &Engine{
		app:      app,
		stateOut: stateOut,
		commands: commands,
		disposal: disposal,
		preview:  NewSampler(),
	}
	for i := range e.rms {
		e.rms[i] = stepbox.NewRms(rmsWindow)
	}
	e.ensureScratch(stepbox.FramesPerBuffer)
	return e
}

// Render fills buf with the next block. This is the audio callback.
func (e *Engine) Render(buf stepbox.AudioBuffer) {
	app := e.app.Read()
	e.drainCommands()
	e.cueSounds(app)
	e.syncPlaying(app)
	buf.Zero()
	rem := buf
	for len(rem) > 0 {
		n := len(rem)
		if e.playing {
			if e.samplesToTick <= 0 {
				e.tick(app)
			}
			// never render across a tick boundary
			n = min(n, e.samplesToTick)
		}
		e.renderBlock(app, rem[:n])
		if e.playing {
			e.samplesToTick -= n
		}
		rem = rem[n:]
	}
	e.publishState(app)
}

func (e *Engine) drainCommands() {
	for {
		cmd, ok := e.commands.Pop()
		if !ok {
			return
		}
		switch cmd.Kind {
		case CommandCreateNode:
			if cmd.Node >= 0 && cmd.Node < stepbox.MaxNodes {
				e.nodes[cmd.Node] = cmd.Device
			}
		case CommandDeleteNode:
			if cmd.Node >= 0 && cmd.Node < stepbox.MaxNodes {
				cmd.Device = e.nodes[cmd.Node]
				e.nodes[cmd.Node] = nil
				e.disposal.Push(cmd)
			}
		case CommandPreview:
			e.preview.Cue(cmd.Sound)
			e.preview.SendEvent(stepbox.Event{On: true, Pitch: stepbox.RootPitch, Velocity: 127})
		case CommandEvent:
			e.dispatch(cmd.Event)
		}
	}
}

// cueSounds points each track's sampler at the sound its slot holds in this
// snapshot. Sounding voices keep the sound they started with.
func (e *Engine) cueSounds(app *stepbox.AppState) {
	for i := range app.Tracks {
		tr := &app.Tracks[i]
		if tr.Type != stepbox.TrackInstrument {
			continue
		}
		s, ok := e.node(tr.Node).(*Sampler)
		if !ok {
			continue
		}
		if tr.Slot >= 0 && tr.Slot < len(app.Sounds) {
			s.Cue(app.Sounds[tr.Slot])
		} else {
			s.Cue(nil)
		}
	}
}

func (e *Engine) syncPlaying(app *stepbox.AppState) {
	if app.Playing == e.playing {
		return
	}
	e.playing = app.Playing
	if e.playing {
		e.state.Tick = -1
		e.state.Pattern = 0
		if loop, ok := app.Loop.Unpack(); ok {
			e.state.Pattern = loop[0]
		}
		e.samplesToTick = 0
		return
	}
	// stopped: release everything, tails fade out on their own
	for _, dev := range e.nodes {
		if s, ok := dev.(*Sampler); ok {
			s.ReleaseAll()
		}
	}
	e.preview.ReleaseAll()
}

// tick advances the playhead one tick, dispatches the events scheduled there
// and refreshes the tick length from the snapshot's tempo.
func (e *Engine) tick(app *stepbox.AppState) {
	pat := e.resolvePattern(app)
	e.state.Tick++
	if pat == nil || e.state.Tick >= pat.Length {
		e.state.Tick = 0
		if pat != nil {
			e.state.Pattern = nextPatternIndex(app, e.state.Pattern)
			pat = e.resolvePattern(app)
		}
	}
	if pat != nil {
		for _, ev := range pat.EventsAt(e.state.Tick) {
			e.dispatch(ev)
		}
	}
	e.samplesToTick = app.SamplesToTick()
}

// resolvePattern returns the pattern at the current song position, advancing
// past missing entries. Returns nil when nothing in the song is playable.
func (e *Engine) resolvePattern(app *stepbox.AppState) *stepbox.EnginePattern {
	if len(app.Song) == 0 {
		return nil
	}
	for try := 0; try <= len(app.Song); try++ {
		if e.state.Pattern < 0 || e.state.Pattern >= len(app.Song) {
			e.state.Pattern = 0
		}
		if pat, ok := app.Patterns[app.Song[e.state.Pattern]]; ok {
			return pat
		}
		e.state.Pattern = nextPatternIndex(app, e.state.Pattern)
	}
	return nil
}

// nextPatternIndex steps the song position honoring the loop range. A
// position outside the range snaps to the range start once it passes the
// range end, and walks forward into the range otherwise.
func nextPatternIndex(app *stepbox.AppState, current int) int {
	next := current + 1
	if loop, ok := app.Loop.Unpack(); ok {
		if next > loop[1] {
			next = loop[0]
		}
	}
	if next >= len(app.Song) {
		next = 0
	}
	return next
}

func (e *Engine) dispatch(ev stepbox.Event) {
	if dev := e.node(ev.Node); dev != nil {
		dev.SendEvent(ev)
	}
}

func (e *Engine) node(id stepbox.NodeID) Device {
	if id < 0 || id >= stepbox.MaxNodes {
		return nil
	}
	return e.nodes[id]
}

// renderBlock runs the published node order over one sub-block: instrument
// chains render into the scratch pair and mix onto the bus, the bus track
// chain reads the bus and mixes onto the output.
func (e *Engine) renderBlock(app *stepbox.AppState, out stepbox.AudioBuffer) {
	e.ensureScratch(len(out))
	bus := e.bus[:len(out)]
	bus.Zero()
	cur := 0
	for _, entry := range app.NodeOrder {
		if bufs, ok := entry.Buffers.Unpack(); ok {
			src := e.scratch[bufs[0]&1][:len(out)]
			dst := e.scratch[bufs[1]&1][:len(out)]
			dev := e.node(entry.Node)
			if bufs[0] == bufs[1] {
				// chain head: a source generates, a bus chain pulls the mix
				dst.Zero()
				if dev != nil {
					dev.Render(dst, dst)
				} else if tr := e.track(app, entry.Track); tr != nil && tr.Type == stepbox.TrackBus {
					copy(dst, bus)
				}
			} else if dev != nil {
				dev.Render(src, dst)
			} else {
				copy(dst, src)
			}
			cur = bufs[1] & 1
			continue
		}
		tr := e.track(app, entry.Track)
		if tr == nil {
			continue
		}
		sig := e.scratch[cur][:len(out)]
		gain := float32(tr.Volume.Linear)
		if tr.Mute {
			gain = 0
		}
		if tr.Type == stepbox.TrackBus {
			out.Accumulate(sig, gain)
		} else {
			bus.Accumulate(sig, gain)
		}
		if tr.Node >= 0 && tr.Node < stepbox.MaxTrackNodes {
			meter := e.meter[:len(out)]
			meter.Zero()
			meter.Accumulate(sig, gain)
			e.rms[tr.Node].Add(meter)
		}
	}
	e.preview.Render(out, out)
}

func (e *Engine) track(app *stepbox.AppState, i int) *stepbox.Track {
	if i < 0 || i >= len(app.Tracks) {
		return nil
	}
	return &app.Tracks[i]
}

func (e *Engine) ensureScratch(n int) {
	if len(e.bus) >= n {
		return
	}
	e.scratch[0] = make(stepbox.AudioBuffer, n)
	e.scratch[1] = make(stepbox.AudioBuffer, n)
	e.bus = make(stepbox.AudioBuffer, n)
	e.meter = make(stepbox.AudioBuffer, n)
}

func (e *Engine) publishState(app *stepbox.AppState) {
	dropped := e.preview.Dropped
	for _, dev := range e.nodes {
		if s, ok := dev.(*Sampler); ok {
			dropped += s.Dropped
		}
	}
	e.state.DroppedEvents = dropped
	for i := range app.Tracks {
		tr := &app.Tracks[i]
		if tr.Node >= 0 && tr.Node < stepbox.MaxTrackNodes {
			e.state.Levels[tr.Node] = e.rms[tr.Node].Value()
		}
	}
	e.stateOut.Publish(e.state)
}
