package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Write serializes the document as indented JSON to path. The write is
// atomic: content goes to a temporary file in the target directory first
// and is renamed into place only after a successful encode, so a failure
// partway through never clobbers an existing export.
func Write(doc Document, path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("export: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("export: encode document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("export: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("export: rename into place: %w", err)
	}
	return nil
}
