package stepbox

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Wav encodes the buffer as a 44100 Hz stereo .wav file, 16-bit PCM when
// pcm16 is set and 32-bit IEEE float otherwise.
func (b AudioBuffer) Wav(pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	writeWavHeader(buf, len(b)*2, pcm16)
	if err := b.writeSamples(buf, pcm16); err != nil {
		return nil, fmt.Errorf("Wav failed: %v", err)
	}
	return buf.Bytes(), nil
}

// Raw encodes the buffer as headerless interleaved samples.
func (b AudioBuffer) Raw(pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := b.writeSamples(buf, pcm16); err != nil {
		return nil, fmt.Errorf("Raw failed: %v", err)
	}
	return buf.Bytes(), nil
}

func (b AudioBuffer) writeSamples(buf *bytes.Buffer, pcm16 bool) error {
	interleaved := b.Interleave(make([]float32, 0, len(b)*2))
	var err error
	if pcm16 {
		pcm := make([]int16, len(interleaved))
		for i, v := range interleaved {
			s := int(v * math.MaxInt16)
			pcm[i] = int16(max(math.MinInt16, min(s, math.MaxInt16)))
		}
		err = binary.Write(buf, binary.LittleEndian, pcm)
	} else {
		err = binary.Write(buf, binary.LittleEndian, interleaved)
	}
	if err != nil {
		return fmt.Errorf("could not write samples: %v", err)
	}
	return nil
}

// writeWavHeader writes the RIFF/WAVE header for stereo audio at SampleRate.
// samples counts individual values (left + right), not frames. Float files
// get the extended fmt chunk plus a fact chunk, as the format requires for
// anything but plain PCM.
func writeWavHeader(buf *bytes.Buffer, samples int, pcm16 bool) {
	const channels = 2
	sampleBytes, format := 4, 3 // IEEE float
	if pcm16 {
		sampleBytes, format = 2, 1 // integer PCM
	}
	dataSize := samples * sampleBytes
	riffSize := 36 + dataSize
	fmtSize := 16
	if !pcm16 {
		riffSize += 14 // fmt extension field + fact chunk
		fmtSize = 18
	}
	le := func(v any) { binary.Write(buf, binary.LittleEndian, v) }
	buf.WriteString("RIFF")
	le(uint32(riffSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	le(uint32(fmtSize))
	le(uint16(format))
	le(uint16(channels))
	le(uint32(SampleRate))
	le(uint32(SampleRate * channels * sampleBytes)) // bytes per second
	le(uint16(channels * sampleBytes))              // frame alignment
	le(uint16(8 * sampleBytes))
	if !pcm16 {
		le(uint16(0)) // empty fmt extension
		buf.WriteString("fact")
		le(uint32(4))
		le(uint32(samples))
	}
	buf.WriteString("data")
	le(uint32(dataSize))
}
