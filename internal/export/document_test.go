package export_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mverran/scrivano/internal/export"
	"github.com/mverran/scrivano/internal/note"
	"github.com/mverran/scrivano/internal/textmodel"
	"github.com/mverran/scrivano/internal/transcript"
)

func sampleInputs() ([]transcript.Speaker, []textmodel.Line, []note.Note, time.Time) {
	base := time.Date(2026, 3, 14, 14, 15, 20, 0, time.Local)
	speakers := []transcript.Speaker{
		{ID: "sp1", Name: "Alice", Color: "#1f77b4"},
		{ID: "sp2", Name: "Bob", Color: "#ff7f0e"},
	}
	lines := []textmodel.Line{
		{SegmentID: "s1", Start: base, End: base.Add(3456 * time.Millisecond), SpeakerID: "sp1", SpeakerName: "Alice", Body: "Hello, edited."},
	}
	notes := []note.Note{
		{
			ID: "n1", SegmentID: "s1",
			Start: base, End: base.Add(3456 * time.Millisecond),
			SpeakerName: "Alice (old name)", SpeakerColor: "#1f77b4",
			Text:      "verify this",
			CreatedAt: base.Add(10 * time.Second),
		},
	}
	return speakers, lines, notes, base.Add(time.Hour)
}

func TestBuild(t *testing.T) {
	t.Parallel()

	speakers, lines, notes, at := sampleInputs()
	doc := export.Build(speakers, lines, notes, at)

	if doc.Metadata.ExportedAt != at.Format("2006-01-02T15:04:05.000Z07:00") {
		t.Errorf("exported_at = %q", doc.Metadata.ExportedAt)
	}
	if len(doc.Speakers) != 2 || doc.Speakers[0].Name != "Alice" || doc.Speakers[1].Color != "#ff7f0e" {
		t.Errorf("speakers = %+v", doc.Speakers)
	}
	if len(doc.Transcript) != 1 {
		t.Fatalf("transcript entries = %d, want 1", len(doc.Transcript))
	}
	entry := doc.Transcript[0]
	if entry.Timestamp != "14:15:20.000-14:15:23.456" {
		t.Errorf("timestamp = %q", entry.Timestamp)
	}
	if entry.Speaker != "Alice" || entry.Text != "Hello, edited." {
		t.Errorf("entry = %+v, want edited body text", entry)
	}
	if len(doc.Notes) != 1 {
		t.Fatalf("note entries = %d, want 1", len(doc.Notes))
	}
	// Notes keep their creation-time snapshot even when the registry has
	// since been renamed.
	if doc.Notes[0].Speaker != "Alice (old name)" {
		t.Errorf("note speaker = %q, snapshot not preserved", doc.Notes[0].Speaker)
	}
}

func TestBuild_EmptySessionHasEmptyArrays(t *testing.T) {
	t.Parallel()

	doc := export.Build(nil, nil, nil, time.Now())
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"speakers", "transcript", "notes"} {
		if string(decoded[key]) != "[]" {
			t.Errorf("%s serializes as %s, want []", key, decoded[key])
		}
	}
}

func TestDocument_JSONShape(t *testing.T) {
	t.Parallel()

	speakers, lines, notes, at := sampleInputs()
	raw, err := json.Marshal(export.Build(speakers, lines, notes, at))
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Metadata struct {
			ExportedAt string `json:"exported_at"`
		} `json:"metadata"`
		Speakers []struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		} `json:"speakers"`
		Transcript []struct {
			Timestamp string `json:"timestamp"`
			Speaker   string `json:"speaker"`
			Text      string `json:"text"`
		} `json:"transcript"`
		Notes []struct {
			Timestamp string `json:"timestamp"`
			Speaker   string `json:"speaker"`
			Color     string `json:"color"`
			Text      string `json:"text"`
		} `json:"notes"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Metadata.ExportedAt == "" {
		t.Error("metadata.exported_at missing")
	}
	if len(decoded.Speakers) != 2 || len(decoded.Transcript) != 1 || len(decoded.Notes) != 1 {
		t.Errorf("decoded shape: %+v", decoded)
	}
	if decoded.Transcript[0].Speaker != "Alice" {
		t.Errorf("transcript[0].speaker = %q", decoded.Transcript[0].Speaker)
	}
}
