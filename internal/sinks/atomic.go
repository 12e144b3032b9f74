package sinks

import (
	"os"
	"path/filepath"

	"tracereplay/internal/errs"
)

// writeFileAtomic writes data to path via a temp-file-then-rename commit, so
// a killed process never leaves a half-written artifact at path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.IOErrorf("creating %s: %v", dir, err)
		}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return errs.IOErrorf("creating temp file for %s: %v", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		return errs.IOErrorf("writing %s: %v", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errs.IOErrorf("closing %s: %v", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errs.IOErrorf("renaming into %s: %v", path, err)
	}
	return nil
}
