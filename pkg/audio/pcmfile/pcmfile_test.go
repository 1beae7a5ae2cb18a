package pcmfile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mverran/scrivano/pkg/audio/pcmfile"
)

// writePCM creates a raw PCM file of n zero bytes and returns its path.
func writePCM(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.raw")
	if err := os.WriteFile(path, make([]byte, n), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	return path
}

func TestOpen_EmitsAllFramesThenCloses(t *testing.T) {
	t.Parallel()

	// 16 kHz mono s16le, 100 ms frames = 3200 bytes per frame.
	// 2.5 frames of data → two full frames plus one partial.
	path := writePCM(t, 8000)
	src, err := pcmfile.New(path, 16000, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer src.Close()

	frames, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var sizes []int
	var stamps []time.Duration
	for f := range frames {
		sizes = append(sizes, len(f.Data))
		stamps = append(stamps, f.Timestamp)
		if f.SampleRate != 16000 || f.Channels != 1 {
			t.Errorf("frame format = %d Hz / %d ch, want 16000/1", f.SampleRate, f.Channels)
		}
	}

	wantSizes := []int{3200, 3200, 1600}
	if len(sizes) != len(wantSizes) {
		t.Fatalf("got %d frames (%v), want %d", len(sizes), sizes, len(wantSizes))
	}
	for i, want := range wantSizes {
		if sizes[i] != want {
			t.Errorf("frame %d size = %d, want %d", i, sizes[i], want)
		}
	}
	if stamps[0] != 0 || stamps[1] != 100*time.Millisecond {
		t.Errorf("timestamps = %v, want 0 and 100ms", stamps[:2])
	}
}

func TestOpen_MissingFile_ReturnsError(t *testing.T) {
	t.Parallel()

	src, err := pcmfile.New(filepath.Join(t.TempDir(), "missing.raw"), 16000, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := src.Open(context.Background()); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestOpen_Twice_ReturnsError(t *testing.T) {
	t.Parallel()

	src, err := pcmfile.New(writePCM(t, 3200), 16000, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames, err := src.Open(ctx)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := src.Open(ctx); err == nil {
		t.Error("second Open should return an error")
	}
	for range frames {
	}
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()

	src, err := pcmfile.New(writePCM(t, 0), 16000, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	frames, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for range frames {
	}
	if err := src.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
