package stepbox

import (
	"math"

	"github.com/viterin/vek/vek32"
)

type (
	// Stereo is one two-channel sample frame. It is a plain value type with
	// pointwise arithmetic; buffers of frames are shared freely because a
	// frame is never mutated in place.
	Stereo [2]float32

	// AudioBuffer is a slice of stereo frames.
	AudioBuffer []Stereo
)

func (f Stereo) Add(g Stereo) Stereo     { return Stereo{f[0] + g[0], f[1] + g[1]} }
func (f Stereo) Sub(g Stereo) Stereo     { return Stereo{f[0] - g[0], f[1] - g[1]} }
func (f Stereo) Scale(a float32) Stereo  { return Stereo{f[0] * a, f[1] * a} }
func (f Stereo) MulElem(g Stereo) Stereo { return Stereo{f[0] * g[0], f[1] * g[1]} }

// Zero clears the buffer.
func (b AudioBuffer) Zero() {
	for i := range b {
		b[i] = Stereo{}
	}
}

// Accumulate adds src scaled by gain into b. The slices must have equal
// length.
func (b AudioBuffer) Accumulate(src AudioBuffer, gain float32) {
	for i := range b {
		b[i][0] += src[i][0] * gain
		b[i][1] += src[i][1] * gain
	}
}

// Interleave appends the frames of b to dst as interleaved float32 samples.
func (b AudioBuffer) Interleave(dst []float32) []float32 {
	for _, f := range b {
		dst = append(dst, f[0], f[1])
	}
	return dst
}

// Rms measures the windowed root-mean-square level of a signal, per channel.
// Frames are added a block at a time; Value reports the RMS over the last
// window frames. The squaring is done channel-wise on scratch slices so the
// bulk of the work vectorizes.
//
// TODO: recompute the running sum from scratch every few minutes to stop
// floating point drift from accumulating.
type Rms struct {
	squared   []Stereo
	sum       Stereo
	position  int
	length    int
	tmp, tmp2 []float32
}

func NewRms(windowSize int) *Rms {
	return &Rms{squared: make([]Stereo, windowSize)}
}

// Add slides the window over all frames of buf.
func (r *Rms) Add(buf AudioBuffer) {
	if len(r.tmp) < len(buf) {
		r.tmp = append(r.tmp, make([]float32, len(buf)-len(r.tmp))...)
		r.tmp2 = append(r.tmp2, make([]float32, len(buf)-len(r.tmp2))...)
	}
	for chn := 0; chn < 2; chn++ {
		for i, f := range buf {
			r.tmp[i] = f[chn]
		}
		sq := vek32.Mul_Into(r.tmp2, r.tmp[:len(buf)], r.tmp[:len(buf)])
		pos := r.position
		for _, s := range sq {
			r.sum[chn] += s - r.squared[pos][chn]
			r.squared[pos][chn] = s
			pos++
			if pos >= len(r.squared) {
				pos = 0
			}
		}
	}
	r.position = (r.position + len(buf)) % len(r.squared)
	r.length = min(r.length+len(buf), len(r.squared))
}

// Value returns the current per-channel RMS level.
func (r *Rms) Value() Stereo {
	if r.length == 0 {
		return Stereo{}
	}
	n := float32(r.length)
	return Stereo{
		float32(math.Sqrt(float64(max(r.sum[0], 0) / n))),
		float32(math.Sqrt(float64(max(r.sum[1], 0) / n))),
	}
}

// Volume is a decibel-valued level with its linear factor cached, so the
// audio thread never computes a Pow. The zero value is 0 dB.
type Volume struct {
	DB     float64
	Linear float64
}

const (
	minVolumeDB = -60
	maxVolumeDB = 3
	volumeStep  = 0.25
)

func NewVolume(db float64) Volume {
	var v Volume
	v.Set(db)
	return v
}

// Set clamps db to [-60, +3] and refreshes the linear factor.
func (v *Volume) Set(db float64) {
	db = math.Min(db, maxVolumeDB)
	db = math.Max(db, minVolumeDB)
	v.DB = db
	v.Linear = DBToLinear(db)
}

func (v *Volume) Inc() { v.Set(v.DB + volumeStep) }
func (v *Volume) Dec() { v.Set(v.DB - volumeStep) }

// DBToLinear converts a decibel value to a linear gain factor.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}
