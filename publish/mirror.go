package publish

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/teranos/redpen/errors"
)

// excluded lists entry names never copied out of a working copy, at any
// depth, so submodule .git files and nested checkouts are dropped too.
var excluded = map[string]bool{
	".git": true,
}

// copyTree copies src into the empty or missing directory dst, skipping
// version-control metadata. Regular files, directories and symlinks are
// copied; other file types are ignored.
func copyTree(src, dst string) (int, error) {
	count := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return os.MkdirAll(dst, 0o755)
		}
		if excluded[d.Name()] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			count++
			return copyFile(path, target, info.Mode().Perm())
		}
		return nil
	})
	if err != nil {
		return count, errors.Wrapf(err, "failed to copy %s to %s", src, dst)
	}
	return count, nil
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// replaceFile copies src over dst through a temp file in dst's directory, so
// a concurrent reader sees the old or the new file, never a partial one.
func replaceFile(src, dst string, perm fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "._tmp_"+filepath.Base(dst)+"_*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	in, err := os.Open(src)
	if err != nil {
		tmp.Close()
		return err
	}
	_, err = io.Copy(tmp, in)
	in.Close()
	if err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, dst)
}

// mirrorInto makes dst an exact copy of src in place. Each file is replaced
// atomically; entries absent from src are removed afterwards.
func mirrorInto(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", dst)
	}

	keep := map[string]bool{}
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil || rel == "." {
			return err
		}
		keep[rel] = true
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			if existing, err := os.Lstat(target); err == nil && !existing.IsDir() {
				if err := os.RemoveAll(target); err != nil {
					return err
				}
			}
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if current, err := os.Readlink(target); err == nil && current == link {
				return nil
			}
			if err := os.RemoveAll(target); err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			if existing, err := os.Lstat(target); err == nil && existing.IsDir() {
				if err := os.RemoveAll(target); err != nil {
					return err
				}
			}
			return replaceFile(path, target, info.Mode().Perm())
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to mirror %s into %s", src, dst)
	}

	return removeExtraneous(dst, keep)
}

// removeExtraneous deletes everything under dst whose relative path is not
// in keep.
func removeExtraneous(dst string, keep map[string]bool) error {
	var stale []string
	err := filepath.WalkDir(dst, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dst, path)
		if err != nil || rel == "." {
			return err
		}
		if !keep[rel] {
			stale = append(stale, path)
			if d.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to scan %s", dst)
	}
	for _, path := range stale {
		if err := os.RemoveAll(path); err != nil {
			return errors.Wrapf(err, "failed to remove %s", path)
		}
	}
	return nil
}
