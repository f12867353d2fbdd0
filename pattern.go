package stepbox

type (
	// EffectKind selects the meaning of an effect value on a step.
	EffectKind uint8

	// Effect is one of the two effect lanes of a step. A kind with an empty
	// value does nothing.
	Effect struct {
		Kind  EffectKind      `yaml:"kind"`
		Value Optional[uint8] `yaml:"value,omitempty"`
	}

	// Step is one cell of a pattern track: an optional pitch, an optional
	// instrument slot override and two effect lanes.
	Step struct {
		Pitch      Optional[uint8] `yaml:"pitch,omitempty"`
		Instrument Optional[uint8] `yaml:"instrument,omitempty"`
		Fx1        Effect          `yaml:"fx1,omitempty"`
		Fx2        Effect          `yaml:"fx2,omitempty"`
	}

	// PatternTrack is the column of steps belonging to one instrument track.
	// The backing slice always holds MaxPatternLength steps so shortening and
	// relengthening a pattern does not lose data.
	PatternTrack struct {
		Steps []Step `yaml:",flow"`
	}

	// Pattern is the editable step grid. Length counts lines; only the first
	// Length steps of each track are played.
	Pattern struct {
		Length int            `yaml:"length"`
		Tracks []PatternTrack `yaml:"tracks"`
	}

	// Position addresses one editable cell of a pattern.
	Position struct {
		Line   int
		Track  int
		Column Column
	}

	// Column is the sub-column of a track a cursor sits on.
	Column uint8
)

const (
	EffectNone EffectKind = iota
	EffectChord
	EffectVelocity
	EffectOffset
	numEffectKinds
)

const (
	ColPitch Column = iota
	ColInstrument
	ColFx1Kind
	ColFx1Value
	ColFx2Kind
	ColFx2Value
	ColumnsPerTrack
)

func NewPattern(length, tracks int) *Pattern {
	p := &Pattern{Length: length}
	for i := 0; i < tracks; i++ {
		p.Tracks = append(p.Tracks, PatternTrack{Steps: make([]Step, MaxPatternLength)})
	}
	return p
}

func (p *Pattern) Copy() *Pattern {
	tracks := make([]PatternTrack, len(p.Tracks))
	for i, t := range p.Tracks {
		steps := make([]Step, len(t.Steps))
		copy(steps, t.Steps)
		tracks[i] = PatternTrack{Steps: steps}
	}
	return &Pattern{Length: p.Length, Tracks: tracks}
}

// SetLength clamps to [1, MaxPatternLength]. Steps beyond the new length are
// kept so growing the pattern back reveals them again.
func (p *Pattern) SetLength(length int) {
	p.Length = max(1, min(length, MaxPatternLength))
}

// SetTrackCount grows or shrinks the track columns, preserving existing ones.
func (p *Pattern) SetTrackCount(n int) {
	for len(p.Tracks) < n {
		p.Tracks = append(p.Tracks, PatternTrack{Steps: make([]Step, MaxPatternLength)})
	}
	p.Tracks = p.Tracks[:n]
}

func (p *Pattern) step(pos Position) *Step {
	if pos.Track < 0 || pos.Track >= len(p.Tracks) || pos.Line < 0 || pos.Line >= p.Length {
		return nil
	}
	return &p.Tracks[pos.Track].Steps[pos.Line]
}

func (p *Pattern) effect(pos Position) *Effect {
	s := p.step(pos)
	if s == nil {
		return nil
	}
	switch pos.Column {
	case ColFx1Kind, ColFx1Value:
		return &s.Fx1
	case ColFx2Kind, ColFx2Value:
		return &s.Fx2
	}
	return nil
}

// SetPitch writes a pitch on the step. Pitches beyond MaxPitch are rejected
// except for the NoteOff sentinel.
func (p *Pattern) SetPitch(pos Position, pitch uint8) bool {
	s := p.step(pos)
	if s == nil || (pitch > MaxPitch && pitch != NoteOff) {
		return false
	}
	s.Pitch = Some(pitch)
	return true
}

// SetKey enters the pitch mapped to a typed key, relative to octave.
func (p *Pattern) SetKey(pos Position, key rune, octave int) bool {
	pitch, ok := KeyToPitch(key, octave)
	if !ok {
		return false
	}
	return p.SetPitch(pos, pitch)
}

// InputDigit handles a typed digit. On the instrument column it is a rolling
// two-digit entry; on an effect value column likewise.
func (p *Pattern) InputDigit(pos Position, digit uint8) bool {
	if digit > 9 {
		return false
	}
	switch pos.Column {
	case ColInstrument:
		s := p.step(pos)
		if s == nil {
			return false
		}
		cur := uint8(0)
		if v, ok := s.Instrument.Unpack(); ok {
			cur = v
		}
		s.Instrument = Some((cur*10 + digit) % 100)
		return true
	case ColFx1Value, ColFx2Value:
		fx := p.effect(pos)
		if fx == nil || fx.Kind == EffectNone {
			return false
		}
		cur := uint8(0)
		if v, ok := fx.Value.Unpack(); ok {
			cur = v
		}
		fx.Value = Some((cur*10 + digit) % 100)
		return true
	}
	return false
}

// SetEffectKind writes the kind on an effect lane, keeping the value.
func (p *Pattern) SetEffectKind(pos Position, kind EffectKind) bool {
	fx := p.effect(pos)
	if fx == nil || kind >= numEffectKinds {
		return false
	}
	fx.Kind = kind
	return true
}

// Add adjusts the value under the cursor by delta; large selects the coarse
// step (an octave on the pitch column, tens elsewhere).
func (p *Pattern) Add(pos Position, delta int, large bool) bool {
	switch pos.Column {
	case ColPitch:
		s := p.step(pos)
		if s == nil {
			return false
		}
		pitch, ok := s.Pitch.Unpack()
		if !ok || pitch == NoteOff {
			return false
		}
		if large {
			delta *= 12
		}
		s.Pitch = Some(uint8(max(0, min(int(pitch)+delta, MaxPitch))))
		return true
	case ColInstrument:
		s := p.step(pos)
		if s == nil {
			return false
		}
		cur, ok := s.Instrument.Unpack()
		if !ok {
			return false
		}
		if large {
			delta *= 10
		}
		s.Instrument = Some(uint8(max(0, min(int(cur)+delta, 99))))
		return true
	case ColFx1Kind, ColFx2Kind:
		fx := p.effect(pos)
		if fx == nil {
			return false
		}
		n := int(numEffectKinds)
		fx.Kind = EffectKind((int(fx.Kind) + delta%n + n) % n)
		return true
	case ColFx1Value, ColFx2Value:
		fx := p.effect(pos)
		if fx == nil || fx.Kind == EffectNone {
			return false
		}
		cur, ok := fx.Value.Unpack()
		if !ok {
			return false
		}
		if large {
			delta *= 10
		}
		fx.Value = Some(uint8(max(0, min(int(cur)+delta, 99))))
		return true
	}
	return false
}

// Delete clears the cell under the cursor. Clearing an effect kind clears the
// whole lane.
func (p *Pattern) Delete(pos Position) bool {
	s := p.step(pos)
	if s == nil {
		return false
	}
	switch pos.Column {
	case ColPitch:
		s.Pitch = None[uint8]()
	case ColInstrument:
		s.Instrument = None[uint8]()
	case ColFx1Kind:
		s.Fx1 = Effect{}
	case ColFx1Value:
		s.Fx1.Value = None[uint8]()
	case ColFx2Kind:
		s.Fx2 = Effect{}
	case ColFx2Value:
		s.Fx2.Value = None[uint8]()
	}
	return true
}
