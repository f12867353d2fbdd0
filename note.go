package stepbox

import "fmt"

// keySemitones maps the bottom keyboard row to semitones within an octave,
// piano style with the black keys on the home row.
var keySemitones = map[rune]uint8{
	'z': 0, 's': 1, 'x': 2, 'd': 3, 'c': 4, 'v': 5,
	'g': 6, 'b': 7, 'h': 8, 'n': 9, 'j': 10, 'm': 11,
}

// KeyToPitch converts a typed key on the given octave to a pitch. The 'a' key
// maps to NoteOff. The second return value is false for keys outside the note
// row or pitches beyond MaxPitch.
func KeyToPitch(key rune, octave int) (uint8, bool) {
	if key == 'a' {
		return NoteOff, true
	}
	semi, ok := keySemitones[key]
	if !ok {
		return 0, false
	}
	pitch := octave*12 + int(semi)
	if pitch < 0 || pitch > MaxPitch {
		return 0, false
	}
	return uint8(pitch), true
}

var noteNames = [12]string{"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-"}

// NoteName returns a tracker-style name for a pitch, e.g. "C-4" for RootPitch.
// NoteOff renders as "OFF".
func NoteName(pitch uint8) string {
	if pitch == NoteOff {
		return "OFF"
	}
	return fmt.Sprintf("%s%d", noteNames[pitch%12], pitch/12)
}
