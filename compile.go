package stepbox

import "sort"

type (
	// Event is one compiled sequencer event, dispatched by the engine when
	// its tick is reached.
	Event struct {
		Tick     int
		On       bool
		Pitch    uint8
		Velocity uint8

		// Track is the routing column the event plays on; voices are keyed
		// by it. Node is the device receiving the event.
		Track NodeID
		Node  NodeID
	}

	// EnginePattern is the compiled, immutable form of a Pattern. Events are
	// sorted ascending by tick; Length is always lines times TicksPerLine.
	EnginePattern struct {
		Events []Event
		Length int
	}
)

// EventsAt returns the events scheduled exactly at tick.
func (p *EnginePattern) EventsAt(tick int) []Event {
	lo := sort.Search(len(p.Events), func(i int) bool { return p.Events[i].Tick >= tick })
	hi := lo
	for hi < len(p.Events) && p.Events[hi].Tick == tick {
		hi++
	}
	return p.Events[lo:hi]
}

// Compile turns an editable pattern into its engine form. nodes[i] is the
// sampler node of instrument track i and sounds[i] its loaded sound; steps
// whose resolved instrument has no sound are skipped. The instrument column
// overrides the sampler a step plays on, defaulting to the step's own
// column; Track always stays the originating column's node, so note offs and
// retriggers act on the column the note was written in.
//
// Compilation runs on the control thread only; the result reaches the engine
// inside the next published snapshot.
func Compile(p *Pattern, sounds []*Sound, nodes []NodeID) EnginePattern {
	out := EnginePattern{Length: p.Length * TicksPerLine}
	for ti, track := range p.Tracks {
		if ti >= len(nodes) {
			break
		}
		for li := 0; li < p.Length && li < len(track.Steps); li++ {
			step := track.Steps[li]
			pitch, ok := step.Pitch.Unpack()
			if !ok {
				continue
			}
			inst := int(step.Instrument.Or(uint8(ti)))
			if inst >= len(nodes) || inst >= len(sounds) || sounds[inst] == nil {
				continue
			}
			tick := li * TicksPerLine
			velocity := uint8(DefaultVelocity)
			var chord uint8
			for _, fx := range [2]Effect{step.Fx1, step.Fx2} {
				v, ok := fx.Value.Unpack()
				if !ok {
					continue
				}
				switch fx.Kind {
				case EffectOffset:
					tick += int(min(v, TicksPerLine-1))
				case EffectVelocity:
					velocity = v
				case EffectChord:
					chord = v
				}
			}
			ev := Event{Tick: tick, Pitch: pitch, Velocity: velocity, Track: nodes[ti], Node: nodes[inst]}
			if pitch == NoteOff {
				out.Events = append(out.Events, ev)
				continue
			}
			ev.On = true
			out.Events = append(out.Events, ev)
			// A chord value plays up to two more notes, one per decimal
			// digit of semitone offset: 47 stacks +4 and +7 on the root.
			for _, d := range [2]uint8{chord / 10, chord % 10} {
				if d == 0 || int(pitch)+int(d) > MaxPitch {
					continue
				}
				ev.Pitch = pitch + d
				out.Events = append(out.Events, ev)
			}
		}
	}
	sort.SliceStable(out.Events, func(i, j int) bool { return out.Events[i].Tick < out.Events[j].Tick })
	return out
}
