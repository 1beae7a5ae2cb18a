package whisper

import (
	"encoding/binary"
	"math"
	"testing"
)

func pcmFromSamples(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestMonoSamples_Normalisation(t *testing.T) {
	t.Parallel()

	pcm := pcmFromSamples([]int16{0, 16384, -16384, 32767, -32768})
	got := monoSamples(pcm, 1)

	want := []float32{0, 0.5, -0.5, 32767.0 / 32768.0, -1.0}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestMonoSamples_StereoDownmix(t *testing.T) {
	t.Parallel()

	// Two stereo frames: (L=16384, R=0) and (L=-16384, R=-16384).
	pcm := pcmFromSamples([]int16{16384, 0, -16384, -16384})
	got := monoSamples(pcm, 2)

	want := []float32{0.25, -0.5}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("frame %d = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestMonoSamples_PartialTrailingFrameDropped(t *testing.T) {
	t.Parallel()

	// A stereo stream cut mid-frame: only the complete frame survives.
	pcm := append(pcmFromSamples([]int16{100, 200}), pcmFromSamples([]int16{300})...)
	if got := monoSamples(pcm, 2); len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}

	odd := append(pcmFromSamples([]int16{100, 200}), 0x7f)
	if got := monoSamples(odd, 1); len(got) != 2 {
		t.Fatalf("len with trailing odd byte = %d, want 2", len(got))
	}
}

func TestMonoSamples_ZeroChannelsTreatedAsMono(t *testing.T) {
	t.Parallel()

	pcm := pcmFromSamples([]int16{16384})
	got := monoSamples(pcm, 0)
	if len(got) != 1 || math.Abs(float64(got[0]-0.5)) > 1e-6 {
		t.Errorf("samples = %v, want [0.5]", got)
	}
}

func TestRMSLevel(t *testing.T) {
	t.Parallel()

	if rms := rmsLevel(pcmFromSamples(make([]int16, 160))); rms != 0 {
		t.Errorf("silence rms = %f, want 0", rms)
	}

	samples := make([]int16, 160)
	for i := range samples {
		samples[i] = 1000
	}
	if rms := rmsLevel(pcmFromSamples(samples)); math.Abs(rms-1000) > 0.5 {
		t.Errorf("constant amplitude rms = %f, want ~1000", rms)
	}
}

func TestChunkDurationMs(t *testing.T) {
	t.Parallel()

	// 16 kHz mono s16le: 32 bytes per millisecond.
	if got := chunkDurationMs(make([]byte, 3200), 16000, 1); got != 100 {
		t.Errorf("duration = %d ms, want 100", got)
	}
	if got := chunkDurationMs(make([]byte, 3200), 0, 1); got != 0 {
		t.Errorf("duration with zero rate = %d, want 0", got)
	}
}
