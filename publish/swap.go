package publish

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/teranos/redpen/errors"
)

const (
	releasesDir  = "releases"
	stampLayout  = "20060102T150405.000000000"
	adoptedLabel = "adopted"
)

// newReleaseDir creates an empty release directory whose name sorts by
// creation time.
func newReleaseDir(stagingDir string) (string, error) {
	root := filepath.Join(stagingDir, releasesDir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	return os.MkdirTemp(root, time.Now().UTC().Format(stampLayout)+"-")
}

// swapSymlink points publicPath at target by renaming a fresh symlink over
// it. rename(2) replaces the link atomically, so every path lookup resolves
// to either the old or the new release.
//
// A real directory at publicPath (a deployment that predates releases) is
// first moved into the releases directory. That single switch leaves
// publicPath briefly absent.
func swapSymlink(stagingDir, target, publicPath string) error {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return err
	}

	info, err := os.Lstat(publicPath)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(filepath.Dir(publicPath), 0o755); err != nil {
			return err
		}
	case err != nil:
		return err
	case info.Mode()&os.ModeSymlink == 0:
		if !info.IsDir() {
			return errors.Newf("%s exists and is neither a directory nor a symlink", publicPath)
		}
		adopted := filepath.Join(stagingDir, releasesDir, time.Now().UTC().Format(stampLayout)+"-"+adoptedLabel)
		if err := os.Rename(publicPath, adopted); err != nil {
			return errors.Wrap(err, "failed to adopt existing public directory")
		}
	}

	tmp := filepath.Join(filepath.Dir(publicPath), "."+filepath.Base(publicPath)+".swap-"+filepath.Base(absTarget))
	_ = os.Remove(tmp)
	if err := os.Symlink(absTarget, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, publicPath); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// currentRelease returns the absolute release path publicPath points at, or
// "" if it is not a symlink.
func currentRelease(publicPath string) string {
	target, err := os.Readlink(publicPath)
	if err != nil {
		return ""
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(publicPath), target)
	}
	return filepath.Clean(target)
}

// pruneReleases removes all but the newest keep releases. The live release
// is never removed.
func pruneReleases(stagingDir, live string, keep int) ([]string, error) {
	root := filepath.Join(stagingDir, releasesDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) <= keep {
		return nil, nil
	}

	var removed []string
	for _, name := range names[:len(names)-keep] {
		path := filepath.Join(root, name)
		if abs, err := filepath.Abs(path); err == nil && abs == live {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return removed, err
		}
		removed = append(removed, name)
	}
	return removed, nil
}
