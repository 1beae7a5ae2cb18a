package transcript_test

import (
	"testing"
	"time"

	"github.com/mverran/scrivano/internal/transcript"
)

func mustAppend(t *testing.T, s *transcript.Store, seg transcript.Segment) transcript.Segment {
	t.Helper()
	out, err := s.Append(seg)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	return out
}

func TestStore_AppendAssignsOrder(t *testing.T) {
	t.Parallel()

	s := transcript.NewStore()
	base := time.Date(2026, 3, 14, 14, 15, 20, 0, time.Local)

	a := mustAppend(t, s, transcript.Segment{ID: "a", Start: base, End: base.Add(time.Second), SpeakerID: "sp1", Text: "one"})
	b := mustAppend(t, s, transcript.Segment{ID: "b", Start: base.Add(time.Second), End: base.Add(2 * time.Second), SpeakerID: "sp1", Text: "two"})

	if a.Order != 0 || b.Order != 1 {
		t.Errorf("orders = %d, %d; want 0, 1", a.Order, b.Order)
	}
	all := s.All()
	if len(all) != 2 || all[0].ID != "a" || all[1].ID != "b" {
		t.Errorf("All() = %+v", all)
	}
}

func TestStore_RejectsEndBeforeStart(t *testing.T) {
	t.Parallel()

	s := transcript.NewStore()
	base := time.Now()
	_, err := s.Append(transcript.Segment{ID: "x", Start: base, End: base.Add(-time.Second)})
	if err == nil {
		t.Fatal("expected error for end before start")
	}
	if s.Len() != 0 {
		t.Errorf("store length = %d after rejected append, want 0", s.Len())
	}
}

func TestStore_RejectsDuplicateID(t *testing.T) {
	t.Parallel()

	s := transcript.NewStore()
	base := time.Now()
	mustAppend(t, s, transcript.Segment{ID: "dup", Start: base, End: base})
	if _, err := s.Append(transcript.Segment{ID: "dup", Start: base, End: base}); err == nil {
		t.Fatal("expected error for duplicate id")
	}
}

func TestStore_GeneratesIDWhenEmpty(t *testing.T) {
	t.Parallel()

	s := transcript.NewStore()
	base := time.Now()
	a := mustAppend(t, s, transcript.Segment{Start: base, End: base})
	b := mustAppend(t, s, transcript.Segment{Start: base, End: base})
	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Errorf("generated ids = %q, %q; want distinct non-empty", a.ID, b.ID)
	}
	if got, ok := s.Get(a.ID); !ok || got.Order != 0 {
		t.Errorf("Get(%q) = %+v, %v", a.ID, got, ok)
	}
}

func TestFormatRange(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 14, 14, 15, 20, 0, time.Local)
	end := time.Date(2026, 3, 14, 14, 15, 23, 456e6, time.Local)
	got := transcript.FormatRange(start, end)
	want := "14:15:20.000-14:15:23.456"
	if got != want {
		t.Errorf("FormatRange = %q, want %q", got, want)
	}
}
