// Package app is the control-thread side of stepbox. App owns the editable
// state, applies Msg edits one at a time and publishes complete snapshots to
// the engine; nothing here ever runs on the audio thread.
package app

import (
	"errors"
	"fmt"

	"github.com/mkarlsen/stepbox"
	"github.com/mkarlsen/stepbox/engine"
	"github.com/mkarlsen/stepbox/rt"
	"github.com/mkarlsen/stepbox/sndfile"
)

var (
	ErrCommandQueueFull = errors.New("command queue full")
	ErrNoPattern        = errors.New("no pattern selected")
)

const (
	defaultPatternLength = 16
	maxSoundSlots        = 100 // the instrument column is two digits
	commandRingSize      = 128
)

// App holds the canonical musical state. Send is the only mutation entry
// point and is not safe for concurrent use; all callers funnel through one
// goroutine, the control thread.
type App struct {
	state       stepbox.AppState
	patterns    map[stepbox.PatternID]*stepbox.Pattern
	nextPattern stepbox.PatternID
	songPos     int

	alloc   stepbox.NodeAllocator
	devices map[stepbox.NodeID]engine.Device
	cache   map[string]*stepbox.Sound

	// loadSound is swappable so tests run without sample files on disk.
	loadSound func(path string) (*stepbox.Sound, error)

	snapshots   *rt.Input[stepbox.AppState]
	engineState *rt.Output[stepbox.EngineState]
	commands    *rt.Ring[engine.Command]
	disposal    *rt.Ring[engine.Command]

	dirtyAll, dirtySelected bool
}

// New builds an App and its Engine, already wired together. The app starts
// with the main bus and one empty pattern.
func New() (*App, *engine.Engine) {
	appIn, appOut := rt.NewTripleBuffer[stepbox.AppState]()
	stateIn, stateOut := rt.NewTripleBuffer[stepbox.EngineState]()
	commands := rt.NewRing[engine.Command](commandRingSize)
	disposal := rt.NewRing[engine.Command](commandRingSize)
	eng := engine.New(appOut, stateIn, commands, disposal)
	a := &App{
		patterns:    map[stepbox.PatternID]*stepbox.Pattern{0: stepbox.NewPattern(defaultPatternLength, 0)},
		nextPattern: 1,
		alloc:       stepbox.NewNodeAllocator(),
		devices:     map[stepbox.NodeID]engine.Device{},
		cache:       map[string]*stepbox.Sound{},
		loadSound:   sndfile.Load,
		snapshots:   appIn,
		engineState: stateOut,
		commands:    commands,
		disposal:    disposal,
	}
	a.state = stepbox.AppState{
		BPM:          120,
		LinesPerBeat: 4,
		Octave:       4,
		Song:         []stepbox.PatternID{0},
		Patterns:     map[stepbox.PatternID]*stepbox.EnginePattern{},
	}
	busNode, _ := a.alloc.ReserveTrack()
	a.state.Tracks = []stepbox.Track{{
		Node: busNode, Type: stepbox.TrackBus, Volume: stepbox.NewVolume(0), Name: "main",
	}}
	a.rebuildNodeOrder()
	a.recompileAll()
	a.snapshots.Publish(a.state.Copy())
	return a, eng
}

// State exposes the current state for read-only display.
func (a *App) State() *stepbox.AppState { return &a.state }

// SongPos returns the selected slot in the song order.
func (a *App) SongPos() int { return a.songPos }

// EngineState returns the latest playhead snapshot from the audio thread.
func (a *App) EngineState() stepbox.EngineState { return *a.engineState.Read() }

// Send applies one edit. On error the state is unchanged and nothing is
// published.
func (a *App) Send(msg Msg) error {
	a.drainDisposal()
	a.dirtyAll, a.dirtySelected = false, false
	if err := a.dispatch(msg); err != nil {
		return err
	}
	if a.dirtyAll {
		a.recompileAll()
	} else if a.dirtySelected {
		a.recompileOne(a.state.Selected)
	}
	a.sweepCache()
	a.snapshots.Publish(a.state.Copy())
	return nil
}

func (a *App) dispatch(msg Msg) error {
	switch m := msg.(type) {
	case TogglePlay:
		a.state.Playing = !a.state.Playing
	case SetBPM:
		if m.Value < 1 || m.Value > 999 {
			return fmt.Errorf("bpm %d out of range 1..999", m.Value)
		}
		a.state.BPM = m.Value
	case SetLinesPerBeat:
		if m.Value < 1 || m.Value > 32 {
			return fmt.Errorf("lines per beat %d out of range 1..32", m.Value)
		}
		a.state.LinesPerBeat = m.Value
	case SetOctave:
		if m.Value < 0 || m.Value > 9 {
			return fmt.Errorf("octave %d out of range 0..9", m.Value)
		}
		a.state.Octave = m.Value

	case SetPatternLength:
		p, err := a.selectedPattern()
		if err != nil {
			return err
		}
		p.SetLength(m.Value)
		a.dirtySelected = true
	case SetKey:
		p, err := a.selectedPattern()
		if err != nil {
			return err
		}
		if p.SetKey(m.Pos, m.Key, a.state.Octave) {
			a.dirtySelected = true
		}
	case InputDigit:
		p, err := a.selectedPattern()
		if err != nil {
			return err
		}
		if p.InputDigit(m.Pos, m.Digit) {
			a.dirtySelected = true
		}
	case SetEffectKind:
		p, err := a.selectedPattern()
		if err != nil {
			return err
		}
		if p.SetEffectKind(m.Pos, m.Kind) {
			a.dirtySelected = true
		}
	case AddToStep:
		p, err := a.selectedPattern()
		if err != nil {
			return err
		}
		if p.Add(m.Pos, m.Delta, m.Coarse) {
			a.dirtySelected = true
		}
	case ClearStep:
		p, err := a.selectedPattern()
		if err != nil {
			return err
		}
		if p.Delete(m.Pos) {
			a.dirtySelected = true
		}

	case CreatePattern:
		return a.createPattern()
	case DeletePattern:
		return a.deletePattern()
	case RepeatPattern:
		if len(a.state.Song) == 0 {
			return ErrNoPattern
		}
		a.insertSongSlot(a.state.Selected)
	case ClonePattern:
		return a.clonePattern()
	case SelectPattern:
		if m.Index < 0 || m.Index >= len(a.state.Song) {
			return fmt.Errorf("song slot %d out of range", m.Index)
		}
		a.songPos = m.Index
		a.state.Selected = a.state.Song[m.Index]
	case ToggleLoop:
		if a.state.Loop.Empty() {
			a.state.Loop = stepbox.Some([2]int{a.songPos, a.songPos})
		} else {
			a.state.Loop = stepbox.None[[2]int]()
		}
	case ExtendLoop:
		loop, ok := a.state.Loop.Unpack()
		if !ok {
			a.state.Loop = stepbox.Some([2]int{a.songPos, a.songPos})
			break
		}
		a.state.Loop = stepbox.Some([2]int{min(loop[0], a.songPos), max(loop[1], a.songPos)})

	case LoadSound:
		return a.loadSlot(m.Slot, m.Path)
	case PreviewSound:
		s, err := a.sound(m.Path)
		if err != nil {
			return err
		}
		if !a.commands.Push(engine.Command{Kind: engine.CommandPreview, Sound: s}) {
			return ErrCommandQueueFull
		}

	case CreateTrack:
		return a.createTrack(m.Type)
	case DeleteTrack:
		return a.deleteTrack(m.Index)
	case AddDevice:
		return a.addDevice(m.Track, m.Name)
	case DeleteDevice:
		return a.deleteDevice(m.Track, m.Index)

	case AdjustParam:
		p, err := a.param(m.Node, m.Name)
		if err != nil {
			return err
		}
		p.Add(m.Direction, m.Coarse)
	case SetParam:
		p, err := a.param(m.Node, m.Name)
		if err != nil {
			return err
		}
		return p.Set(m.Value)

	case ToggleMute:
		tr, err := a.track(m.Track)
		if err != nil {
			return err
		}
		tr.Mute = !tr.Mute
	case AdjustVolume:
		tr, err := a.track(m.Track)
		if err != nil {
			return err
		}
		if m.Direction > 0 {
			tr.Volume.Inc()
		} else {
			tr.Volume.Dec()
		}
	case SetVolume:
		tr, err := a.track(m.Track)
		if err != nil {
			return err
		}
		tr.Volume.Set(m.DB)

	case JamNote:
		tr, err := a.track(m.Track)
		if err != nil {
			return err
		}
		if tr.Type != stepbox.TrackInstrument {
			return fmt.Errorf("track %d is not an instrument", m.Track)
		}
		ev := stepbox.Event{On: m.On, Pitch: m.Pitch, Velocity: m.Velocity, Track: tr.Node, Node: tr.Node}
		if !a.commands.Push(engine.Command{Kind: engine.CommandEvent, Event: ev}) {
			return ErrCommandQueueFull
		}

	default:
		return fmt.Errorf("unhandled message %T", msg)
	}
	return nil
}

func (a *App) selectedPattern() (*stepbox.Pattern, error) {
	p, ok := a.patterns[a.state.Selected]
	if !ok {
		return nil, ErrNoPattern
	}
	return p, nil
}

func (a *App) track(i int) (*stepbox.Track, error) {
	if i < 0 || i >= len(a.state.Tracks) {
		return nil, fmt.Errorf("track %d out of range", i)
	}
	return &a.state.Tracks[i], nil
}

func (a *App) param(node stepbox.NodeID, name string) (*engine.Param, error) {
	dev, ok := a.devices[node]
	if !ok {
		return nil, fmt.Errorf("no device at node %d", node)
	}
	p := dev.Params().Find(name)
	if p == nil {
		return nil, fmt.Errorf("node %d has no parameter %q", node, name)
	}
	return p, nil
}

func (a *App) createPattern() error {
	if len(a.patterns) >= stepbox.MaxPatterns {
		return fmt.Errorf("reached max. number of patterns (%d)", stepbox.MaxPatterns)
	}
	id := a.nextPattern
	a.nextPattern++
	a.patterns[id] = stepbox.NewPattern(defaultPatternLength, a.instrumentCount())
	a.insertSongSlot(id)
	a.state.Selected = id
	a.dirtyAll = true
	return nil
}

func (a *App) clonePattern() error {
	src, err := a.selectedPattern()
	if err != nil {
		return err
	}
	if len(a.patterns) >= stepbox.MaxPatterns {
		return fmt.Errorf("reached max. number of patterns (%d)", stepbox.MaxPatterns)
	}
	id := a.nextPattern
	a.nextPattern++
	a.patterns[id] = src.Copy()
	a.insertSongSlot(id)
	a.state.Selected = id
	a.dirtyAll = true
	return nil
}

// insertSongSlot places id right after the selected slot and moves the
// selection onto it.
func (a *App) insertSongSlot(id stepbox.PatternID) {
	pos := min(a.songPos+1, len(a.state.Song))
	a.state.Song = append(a.state.Song, 0)
	copy(a.state.Song[pos+1:], a.state.Song[pos:])
	a.state.Song[pos] = id
	a.songPos = pos
}

func (a *App) deletePattern() error {
	if len(a.state.Song) == 0 {
		return ErrNoPattern
	}
	a.state.Song = append(a.state.Song[:a.songPos], a.state.Song[a.songPos+1:]...)
	if a.songPos >= len(a.state.Song) {
		a.songPos = max(0, len(a.state.Song)-1)
	}
	if len(a.state.Song) > 0 {
		a.state.Selected = a.state.Song[a.songPos]
	}
	// free patterns nothing in the song references anymore
	used := map[stepbox.PatternID]bool{}
	for _, id := range a.state.Song {
		used[id] = true
	}
	for id := range a.patterns {
		if !used[id] {
			delete(a.patterns, id)
			delete(a.state.Patterns, id)
		}
	}
	if loop, ok := a.state.Loop.Unpack(); ok && loop[1] >= len(a.state.Song) {
		a.state.Loop = stepbox.None[[2]int]()
	}
	a.dirtyAll = true
	return nil
}

func (a *App) loadSlot(slot int, path string) error {
	if slot < 0 || slot >= maxSoundSlots {
		return fmt.Errorf("sound slot %d out of range 0..%d", slot, maxSoundSlots-1)
	}
	s, err := a.sound(path)
	if err != nil {
		return err
	}
	for len(a.state.Sounds) <= slot {
		a.state.Sounds = append(a.state.Sounds, nil)
	}
	a.state.Sounds[slot] = s
	a.dirtyAll = true
	return nil
}

func (a *App) sound(path string) (*stepbox.Sound, error) {
	if s, ok := a.cache[path]; ok {
		return s, nil
	}
	s, err := a.loadSound(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	s.Path = path
	a.cache[path] = s
	return s, nil
}

// sweepCache drops cache entries no sound slot refers to. The engine may
// still hold such a sound; it stays alive through its own reference.
func (a *App) sweepCache() {
	used := map[string]bool{}
	for _, s := range a.state.Sounds {
		if s != nil {
			used[s.Path] = true
		}
	}
	for path := range a.cache {
		if !used[path] {
			delete(a.cache, path)
		}
	}
}

func (a *App) instrumentCount() int {
	n := 0
	for _, tr := range a.state.Tracks {
		if tr.Type == stepbox.TrackInstrument {
			n++
		}
	}
	return n
}

// instruments returns, in track order, the sampler node and the slotted
// sound of every instrument track. Both slices are indexed by instrument
// ordinal, the compiler's instrument numbering.
func (a *App) instruments() (nodes []stepbox.NodeID, sounds []*stepbox.Sound) {
	for _, tr := range a.state.Tracks {
		if tr.Type != stepbox.TrackInstrument {
			continue
		}
		nodes = append(nodes, tr.Node)
		var s *stepbox.Sound
		if tr.Slot >= 0 && tr.Slot < len(a.state.Sounds) {
			s = a.state.Sounds[tr.Slot]
		}
		sounds = append(sounds, s)
	}
	return nodes, sounds
}

func (a *App) recompileAll() {
	nodes, sounds := a.instruments()
	for id, p := range a.patterns {
		compiled := stepbox.Compile(p, sounds, nodes)
		a.state.Patterns[id] = &compiled
	}
}

func (a *App) recompileOne(id stepbox.PatternID) {
	p, ok := a.patterns[id]
	if !ok {
		return
	}
	nodes, sounds := a.instruments()
	compiled := stepbox.Compile(p, sounds, nodes)
	a.state.Patterns[id] = &compiled
}

func (a *App) createTrack(typ stepbox.TrackType) error {
	node, err := a.alloc.ReserveTrack()
	if err != nil {
		return err
	}
	tr := stepbox.Track{Node: node, Type: typ, Volume: stepbox.NewVolume(0)}
	if typ == stepbox.TrackInstrument {
		tr.Slot = a.instrumentCount()
		tr.Name = fmt.Sprintf("track %d", tr.Slot+1)
		sampler := engine.NewSampler()
		if !a.commands.Push(engine.Command{Kind: engine.CommandCreateNode, Node: node, Device: sampler}) {
			a.alloc.Release(node)
			return ErrCommandQueueFull
		}
		a.devices[node] = sampler
	} else {
		tr.Name = fmt.Sprintf("bus %d", len(a.state.Tracks))
	}
	a.state.Tracks = append(a.state.Tracks, tr)
	a.resizePatternTracks()
	a.rebuildNodeOrder()
	a.dirtyAll = true
	return nil
}

func (a *App) deleteTrack(i int) error {
	if i == 0 {
		return errors.New("cannot delete the main bus")
	}
	tr, err := a.track(i)
	if err != nil {
		return err
	}
	needed := len(tr.Devices)
	if tr.Type == stepbox.TrackInstrument {
		needed++
	}
	if a.commands.Cap()-a.commands.Len() < needed {
		return ErrCommandQueueFull
	}
	for _, dev := range tr.Devices {
		a.commands.Push(engine.Command{Kind: engine.CommandDeleteNode, Node: dev.Node})
		a.alloc.Release(dev.Node)
		delete(a.devices, dev.Node)
	}
	if tr.Type == stepbox.TrackInstrument {
		a.commands.Push(engine.Command{Kind: engine.CommandDeleteNode, Node: tr.Node})
		delete(a.devices, tr.Node)
	}
	a.alloc.Release(tr.Node)
	a.state.Tracks = append(a.state.Tracks[:i], a.state.Tracks[i+1:]...)
	a.resizePatternTracks()
	a.rebuildNodeOrder()
	a.dirtyAll = true
	return nil
}

func (a *App) addDevice(track int, name string) error {
	tr, err := a.track(track)
	if err != nil {
		return err
	}
	dev, err := engine.NewDevice(name)
	if err != nil {
		return err
	}
	node, err := a.alloc.ReserveDevice()
	if err != nil {
		return err
	}
	if !a.commands.Push(engine.Command{Kind: engine.CommandCreateNode, Node: node, Device: dev}) {
		a.alloc.Release(node)
		return ErrCommandQueueFull
	}
	a.devices[node] = dev
	tr.Devices = append(tr.Devices, stepbox.DeviceInfo{Node: node, Name: name})
	a.rebuildNodeOrder()
	return nil
}

func (a *App) deleteDevice(track, index int) error {
	tr, err := a.track(track)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(tr.Devices) {
		return fmt.Errorf("device %d out of range on track %d", index, track)
	}
	node := tr.Devices[index].Node
	if !a.commands.Push(engine.Command{Kind: engine.CommandDeleteNode, Node: node}) {
		return ErrCommandQueueFull
	}
	a.alloc.Release(node)
	delete(a.devices, node)
	tr.Devices = append(tr.Devices[:index], tr.Devices[index+1:]...)
	a.rebuildNodeOrder()
	return nil
}

func (a *App) resizePatternTracks() {
	n := a.instrumentCount()
	for _, p := range a.patterns {
		p.SetTrackCount(n)
	}
}

// rebuildNodeOrder lays out the render order: every instrument chain renders
// and mixes onto the bus, then the bus chains read the mix and write the
// output. Within a chain the devices ping-pong between the two scratch
// buffers.
func (a *App) rebuildNodeOrder() {
	order := a.state.NodeOrder[:0]
	for _, want := range []stepbox.TrackType{stepbox.TrackInstrument, stepbox.TrackBus} {
		for i := range a.state.Tracks {
			tr := &a.state.Tracks[i]
			if tr.Type != want {
				continue
			}
			cur := 0
			order = append(order, stepbox.NodeEntry{Node: tr.Node, Buffers: stepbox.Some([2]int{0, 0}), Track: i})
			for _, dev := range tr.Devices {
				order = append(order, stepbox.NodeEntry{Node: dev.Node, Buffers: stepbox.Some([2]int{cur, 1 - cur}), Track: i})
				cur = 1 - cur
			}
			order = append(order, stepbox.NodeEntry{Node: tr.Node, Track: i})
		}
	}
	a.state.NodeOrder = order
}

func (a *App) drainDisposal() {
	for {
		if _, ok := a.disposal.Pop(); !ok {
			return
		}
	}
}
