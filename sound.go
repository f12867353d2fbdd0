package stepbox

// Sound is a decoded sample, stored as stereo float32 at its native rate.
// Playback at other pitches resamples by stepping a fractional cursor, so the
// frames are never converted after load.
type Sound struct {
	// Frames is the full decoded sample data.
	Frames AudioBuffer

	// SampleRate is the native rate of the file. Voices scale their cursor
	// step by SampleRate/stepbox.SampleRate so RootPitch plays at the
	// original speed regardless of the file's rate.
	SampleRate int

	// Offset is the index of the first non-silent frame. Voices start here
	// so that samples with encoder padding still trigger on the tick.
	Offset int

	// Path the sound was loaded from, used as the cache key and for display.
	Path string
}

// At returns the frame at a fractional position by linear interpolation
// between the two neighbouring frames. The caller keeps pos < len(Frames)-1.
func (s *Sound) At(pos float64) Stereo {
	i := int(pos)
	frac := float32(pos - float64(i))
	a, b := s.Frames[i], s.Frames[i+1]
	return Stereo{
		a[0] + (b[0]-a[0])*frac,
		a[1] + (b[1]-a[1])*frac,
	}
}
