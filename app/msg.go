package app

import "github.com/mkarlsen/stepbox"

// Msg is one edit operation dispatched through App.Send. The set is closed;
// external surfaces (terminal UI, MIDI) translate their input into these.
type Msg interface{ isMsg() }

type (
	// TogglePlay starts or stops the sequencer.
	TogglePlay struct{}

	SetBPM          struct{ Value int }
	SetLinesPerBeat struct{ Value int }
	SetOctave       struct{ Value int }

	// SetPatternLength resizes the selected pattern, in lines.
	SetPatternLength struct{ Value int }

	// SetKey enters the note mapped to a typed key at the cursor.
	SetKey struct {
		Pos stepbox.Position
		Key rune
	}

	// InputDigit enters a digit on an instrument or effect value column.
	InputDigit struct {
		Pos   stepbox.Position
		Digit uint8
	}

	// SetEffectKind writes the effect kind on an effect lane.
	SetEffectKind struct {
		Pos  stepbox.Position
		Kind stepbox.EffectKind
	}

	// AddToStep nudges the value under the cursor.
	AddToStep struct {
		Pos    stepbox.Position
		Delta  int
		Coarse bool
	}

	// ClearStep deletes the cell under the cursor.
	ClearStep struct{ Pos stepbox.Position }

	// CreatePattern appends a fresh pattern to the song and selects it.
	CreatePattern struct{}

	// DeletePattern removes the selected song slot. Patterns no other slot
	// references are freed.
	DeletePattern struct{}

	// RepeatPattern inserts the selected pattern again after the current
	// slot; both slots share the pattern, edits show up in each.
	RepeatPattern struct{}

	// ClonePattern inserts an independent copy after the current slot.
	ClonePattern struct{}

	// SelectPattern moves the selection to the given song slot.
	SelectPattern struct{ Index int }

	// ToggleLoop loops the selected slot, or clears the loop when one is
	// already set.
	ToggleLoop struct{}

	// ExtendLoop grows the loop range to include the selected slot.
	ExtendLoop struct{}

	// LoadSound decodes a sample file into a sound slot.
	LoadSound struct {
		Slot int
		Path string
	}

	// PreviewSound plays a sample file once at root pitch, bypassing the
	// sequencer.
	PreviewSound struct{ Path string }

	// CreateTrack appends a mixer track. Instrument tracks get a sampler.
	CreateTrack struct{ Type stepbox.TrackType }

	// DeleteTrack removes a track and all its devices.
	DeleteTrack struct{ Index int }

	// AddDevice appends an effect to a track's chain by name.
	AddDevice struct {
		Track int
		Name  string
	}

	// DeleteDevice removes the device at position Index from a track chain.
	DeleteDevice struct {
		Track int
		Index int
	}

	// AdjustParam nudges a device parameter by one step.
	AdjustParam struct {
		Node      stepbox.NodeID
		Name      string
		Direction int
		Coarse    bool
	}

	// SetParam writes a device parameter; out-of-range values are rejected
	// with the parameter unchanged.
	SetParam struct {
		Node  stepbox.NodeID
		Name  string
		Value float64
	}

	ToggleMute   struct{ Track int }
	AdjustVolume struct {
		Track     int
		Direction int
	}
	SetVolume struct {
		Track int
		DB    float64
	}

	// JamNote plays or releases a note on a track's instrument immediately,
	// outside the sequencer.
	JamNote struct {
		Track    int
		Pitch    uint8
		Velocity uint8
		On       bool
	}
)

func (TogglePlay) isMsg()       {}
func (SetBPM) isMsg()           {}
func (SetLinesPerBeat) isMsg()  {}
func (SetOctave) isMsg()        {}
func (SetPatternLength) isMsg() {}
func (SetKey) isMsg()           {}
func (InputDigit) isMsg()       {}
func (SetEffectKind) isMsg()    {}
func (AddToStep) isMsg()        {}
func (ClearStep) isMsg()        {}
func (CreatePattern) isMsg()    {}
func (DeletePattern) isMsg()    {}
func (RepeatPattern) isMsg()    {}
func (ClonePattern) isMsg()     {}
func (SelectPattern) isMsg()    {}
func (ToggleLoop) isMsg()       {}
func (ExtendLoop) isMsg()       {}
func (LoadSound) isMsg()        {}
func (PreviewSound) isMsg()     {}
func (CreateTrack) isMsg()      {}
func (DeleteTrack) isMsg()      {}
func (AddDevice) isMsg()        {}
func (DeleteDevice) isMsg()     {}
func (AdjustParam) isMsg()      {}
func (SetParam) isMsg()         {}
func (ToggleMute) isMsg()       {}
func (AdjustVolume) isMsg()     {}
func (SetVolume) isMsg()        {}
func (JamNote) isMsg()          {}
