package export_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mverran/scrivano/internal/export"
)

func TestWrite(t *testing.T) {
	t.Parallel()

	speakers, lines, notes, at := sampleInputs()
	doc := export.Build(speakers, lines, notes, at)

	path := filepath.Join(t.TempDir(), "session.json")
	if err := export.Write(doc, path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(raw), "{\n  \"metadata\"") {
		t.Errorf("output not indented:\n%s", raw[:min(len(raw), 40)])
	}

	var got export.Document
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("written file is not valid JSON: %v", err)
	}
	if got.Metadata.ExportedAt != doc.Metadata.ExportedAt {
		t.Errorf("round trip lost metadata: %+v", got.Metadata)
	}
	if len(got.Transcript) != 1 || got.Transcript[0].Text != "Hello, edited." {
		t.Errorf("round trip transcript = %+v", got.Transcript)
	}
}

func TestWrite_OverwritesAtomically(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	if err := export.Write(export.Build(nil, nil, nil, time.Now()), path); err != nil {
		t.Fatal(err)
	}
	speakers, lines, notes, at := sampleInputs()
	if err := export.Write(export.Build(speakers, lines, notes, at), path); err != nil {
		t.Fatal(err)
	}

	var got export.Document
	raw, _ := os.ReadFile(path)
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Speakers) != 2 {
		t.Errorf("second write not visible: %+v", got)
	}

	// No temp files may survive.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("stray files left in export dir: %v", entries)
	}
}

func TestWrite_MissingDirectoryFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nope", "session.json")
	if err := export.Write(export.Document{}, path); err == nil {
		t.Fatal("Write into missing directory succeeded")
	}
}
