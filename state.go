package stepbox

import (
	"errors"
	"math/bits"
)

type (
	// NodeID is a stable handle to a renderable node (a track or a device).
	// Identity survives reordering; the engine's node table is indexed by it.
	NodeID int

	// PatternID is a stable handle to a pattern, unrelated to its position in
	// the song order.
	PatternID int

	TrackType uint8

	// DeviceInfo describes one device on a track, as seen by the control
	// thread. The device object itself lives in the engine's node table.
	DeviceInfo struct {
		Node NodeID
		Name string
	}

	// Track is one mixer lane. Instrument tracks start their chain from a
	// sampler; bus tracks sum the instrument tracks and end at the output.
	Track struct {
		Node    NodeID
		Type    TrackType
		Slot    int // sound slot for instrument tracks
		Devices []DeviceInfo
		Mute    bool
		Volume  Volume
		Name    string
	}

	// NodeEntry is one step of the engine's render order. Buffers names the
	// scratch buffer pair (in, out) for a device in a chain; an empty Buffers
	// marks a terminal entry that mixes the chain result into the track bus,
	// with Track telling which track the chain belonged to.
	NodeEntry struct {
		Node    NodeID
		Buffers Optional[[2]int]
		Track   int
	}

	// AppState is the complete control-thread snapshot the engine renders
	// from. It is published whole through a triple buffer; the engine never
	// mutates it.
	AppState struct {
		BPM          int
		LinesPerBeat int
		Octave       int
		Playing      bool
		Song         []PatternID
		Patterns     map[PatternID]*EnginePattern
		Selected     PatternID
		Loop         Optional[[2]int]
		Sounds       []*Sound
		Tracks       []Track
		NodeOrder    []NodeEntry
	}

	// EngineState is the audio-thread snapshot flowing the other way.
	EngineState struct {
		Tick    int
		Pattern int
		Levels  [MaxTrackNodes]Stereo

		// DroppedEvents counts note-ons discarded because every voice of the
		// target sampler was busy.
		DroppedEvents int
	}
)

const (
	TrackBus TrackType = iota
	TrackInstrument
)

// Copy returns a deep copy of the state, safe to publish while the original
// keeps being edited. Compiled patterns and sounds are immutable after
// construction, so they are shared, not cloned.
func (s *AppState) Copy() AppState {
	c := *s
	c.Song = append([]PatternID(nil), s.Song...)
	c.Patterns = make(map[PatternID]*EnginePattern, len(s.Patterns))
	for id, p := range s.Patterns {
		c.Patterns[id] = p
	}
	c.Sounds = append([]*Sound(nil), s.Sounds...)
	c.Tracks = make([]Track, len(s.Tracks))
	for i, t := range s.Tracks {
		t.Devices = append([]DeviceInfo(nil), t.Devices...)
		c.Tracks[i] = t
	}
	c.NodeOrder = append([]NodeEntry(nil), s.NodeOrder...)
	return c
}

// SamplesToTick returns how many output frames one sequencer tick spans at
// the snapshot's tempo.
func (s *AppState) SamplesToTick() int {
	perLine := float64(SampleRate*60) / float64(s.BPM*s.LinesPerBeat)
	ret := int(perLine/TicksPerLine + 0.5)
	return max(ret, 1)
}

var ErrNodesExhausted = errors.New("reached max. number of nodes")

// NodeAllocator hands out node indices from two disjoint ranges: tracks get
// [0, MaxTrackNodes), devices [MaxTrackNodes, MaxNodes). A bit set means the
// index is free.
type NodeAllocator struct {
	tracks  uint64
	devices uint64
}

func NewNodeAllocator() NodeAllocator {
	return NodeAllocator{
		tracks:  1<<MaxTrackNodes - 1,
		devices: 1<<MaxDeviceNodes - 1,
	}
}

func (a *NodeAllocator) ReserveTrack() (NodeID, error) {
	i := bits.TrailingZeros64(a.tracks)
	if i >= MaxTrackNodes {
		return 0, ErrNodesExhausted
	}
	a.tracks &^= 1 << i
	return NodeID(i), nil
}

func (a *NodeAllocator) ReserveDevice() (NodeID, error) {
	i := bits.TrailingZeros64(a.devices)
	if i >= MaxDeviceNodes {
		return 0, ErrNodesExhausted
	}
	a.devices &^= 1 << i
	return NodeID(MaxTrackNodes + i), nil
}

func (a *NodeAllocator) Release(id NodeID) {
	switch {
	case id >= 0 && id < MaxTrackNodes:
		a.tracks |= 1 << id
	case id >= MaxTrackNodes && id < MaxNodes:
		a.devices |= 1 << (id - MaxTrackNodes)
	}
}
