package util

import (
	"os"
	"path/filepath"

	"github.com/teranos/redpen/errors"
)

// WriteFileAtomic writes data to a temporary file in the same directory as
// path, fsyncs it and renames it over path. Readers observe either the old
// or the new content, never a mix.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "._tmp_"+filepath.Base(path)+"_*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file in %s", dir)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to write %s", tmpPath)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to sync %s", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", tmpPath)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return errors.Wrapf(err, "failed to chmod %s", tmpPath)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrapf(err, "failed to rename %s to %s", tmpPath, path)
	}
	return nil
}
