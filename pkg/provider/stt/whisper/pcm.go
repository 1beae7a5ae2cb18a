package whisper

import (
	"encoding/binary"
	"math"
)

// int16Scale maps the int16 sample range onto [-1.0, 1.0).
const int16Scale = 1.0 / 32768.0

// monoSamples decodes 16-bit signed little-endian PCM into the mono float32
// samples whisper.cpp expects, averaging interleaved channels per frame.
// A trailing partial frame is dropped.
func monoSamples(pcm []byte, channels int) []float32 {
	if channels < 1 {
		channels = 1
	}
	frameBytes := 2 * channels
	out := make([]float32, len(pcm)/frameBytes)
	scale := float32(int16Scale) / float32(channels)
	for f := range out {
		var sum float32
		base := f * frameBytes
		for off := 0; off < frameBytes; off += 2 {
			sum += float32(int16(binary.LittleEndian.Uint16(pcm[base+off:])))
		}
		out[f] = sum * scale
	}
	return out
}

// rmsLevel returns the root-mean-square level of 16-bit little-endian PCM on
// the int16 sample scale, the unit defaultRMSThreshold is expressed in.
func rmsLevel(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// chunkDurationMs returns the playback duration of a PCM chunk in
// milliseconds for the given sample rate and channel count.
func chunkDurationMs(pcm []byte, sampleRate, channels int) int {
	bytesPerMs := sampleRate * channels * (bitsPerSample / 8) / 1000
	if bytesPerMs <= 0 {
		return 0
	}
	return len(pcm) / bytesPerMs
}
