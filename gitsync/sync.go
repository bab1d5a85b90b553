// Package gitsync keeps a local working copy of the content repository in
// step with a remote ref.
//
// The first sync clones into a temporary sibling directory and renames it into
// place, so an interrupted clone never leaves a half-populated working copy.
// Later syncs fetch, then hard-reset to the remote-tracking ref. A failed
// fetch or reset leaves the previous working copy untouched.
package gitsync

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/teranos/redpen/errors"
	"github.com/teranos/redpen/logger"
	"go.uber.org/zap"
)

const (
	remoteName = "origin"
	fetchSpec  = "+refs/heads/*:refs/remotes/origin/*"
)

// Syncer owns the working copy directory.
type Syncer struct {
	workDir string
	depth   int
	timeout time.Duration
	logger  *zap.SugaredLogger

	mu sync.Mutex
}

// NewSyncer creates a syncer for workDir. depth 0 means full history;
// timeout 0 means no bound beyond the caller's context.
func NewSyncer(workDir string, depth int, timeout time.Duration, log *zap.SugaredLogger) *Syncer {
	if log == nil {
		log = logger.ComponentLogger("gitsync")
	}
	return &Syncer{
		workDir: workDir,
		depth:   depth,
		timeout: timeout,
		logger:  log,
	}
}

// WorkDir returns the working copy path.
func (s *Syncer) WorkDir() string {
	return s.workDir
}

// Sync brings the working copy to ref of repoURL and returns the checked-out
// commit hash. All failures are marked errors.ErrSync.
func (s *Syncer) Sync(ctx context.Context, repoURL, ref string) (string, error) {
	if repoURL == "" {
		return "", errors.WrapSync(errors.New("repository URL is not configured"), "sync")
	}
	if ref == "" {
		return "", errors.WrapSync(errors.New("ref is not configured"), "sync")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	url := NormalizeRepoURL(repoURL)
	log := s.logger.With(logger.FieldRepo, RepoName(url), logger.FieldRef, ref)
	start := time.Now()

	repo, err := git.PlainOpen(s.workDir)
	switch {
	case errors.Is(err, git.ErrRepositoryNotExists):
		log.Infow("No working copy, cloning", "work_dir", s.workDir, "depth", s.depth)
		repo, err = s.clone(ctx, url, ref)
		if err != nil {
			return "", errors.WrapSync(err, "clone failed")
		}
	case err != nil:
		return "", errors.WrapSync(err, "failed to open working copy")
	default:
		if err := s.update(ctx, repo, url, ref); err != nil {
			return "", errors.WrapSync(err, "update failed")
		}
	}

	head, err := repo.Head()
	if err != nil {
		return "", errors.WrapSync(err, "failed to read HEAD")
	}
	commit := head.Hash().String()

	log.Infow("Working copy synced",
		logger.FieldCommit, commit,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return commit, nil
}

// clone performs the first-run clone into a sibling temp dir, then renames it
// over the working copy path.
func (s *Syncer) clone(ctx context.Context, url, ref string) (*git.Repository, error) {
	parent := filepath.Dir(s.workDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create working copy parent")
	}
	if err := s.clearEmptyWorkDir(); err != nil {
		return nil, err
	}

	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(s.workDir)+"-clone-*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create clone directory")
	}
	defer os.RemoveAll(tmp)

	refs := []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(ref),
		plumbing.NewTagReferenceName(ref),
	}
	var cloneErr error
	for _, name := range refs {
		_, cloneErr = git.PlainCloneContext(ctx, tmp, false, &git.CloneOptions{
			URL:           url,
			RemoteName:    remoteName,
			ReferenceName: name,
			SingleBranch:  true,
			Depth:         s.depth,
		})
		if cloneErr == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "clone interrupted")
		}
		s.logger.Debugw("Clone attempt failed", logger.FieldRef, name.String(), logger.FieldError, cloneErr)
		// A failed attempt can leave partial objects behind
		if err := resetDir(tmp); err != nil {
			return nil, err
		}
	}
	if cloneErr != nil {
		return nil, errors.Wrapf(cloneErr, "failed to clone %s at %s", url, ref)
	}

	if err := os.Rename(tmp, s.workDir); err != nil {
		return nil, errors.Wrap(err, "failed to move clone into place")
	}
	return git.PlainOpen(s.workDir)
}

// update fetches all heads with pruning and resets the worktree. The remote
// URL is re-pointed if configuration changed since the clone.
func (s *Syncer) update(ctx context.Context, repo *git.Repository, url, ref string) error {
	if err := ensureRemoteURL(repo, url); err != nil {
		return err
	}

	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{fetchSpec},
		Depth:      s.depth,
		Prune:      true,
		Force:      true,
		Tags:       git.AllTags,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return errors.Wrap(err, "fetch failed")
	}

	wt, err := repo.Worktree()
	if err != nil {
		return errors.Wrap(err, "failed to open worktree")
	}

	remoteRef := plumbing.Revision(plumbing.NewRemoteReferenceName(remoteName, ref).String())
	if hash, err := repo.ResolveRevision(remoteRef); err == nil {
		err = wt.Reset(&git.ResetOptions{Commit: *hash, Mode: git.HardReset})
		if err == nil {
			return nil
		}
		s.logger.Warnw("Hard reset failed, falling back to checkout", logger.FieldRef, ref, logger.FieldError, err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return errors.Wrapf(err, "ref %s not found", ref)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return errors.Wrapf(err, "checkout of %s failed", ref)
	}
	return nil
}

func ensureRemoteURL(repo *git.Repository, url string) error {
	cfg, err := repo.Config()
	if err != nil {
		return errors.Wrap(err, "failed to read repository config")
	}
	remote, ok := cfg.Remotes[remoteName]
	if !ok {
		cfg.Remotes[remoteName] = &config.RemoteConfig{
			Name:  remoteName,
			URLs:  []string{url},
			Fetch: []config.RefSpec{fetchSpec},
		}
		return repo.SetConfig(cfg)
	}
	if len(remote.URLs) == 1 && remote.URLs[0] == url {
		return nil
	}
	remote.URLs = []string{url}
	return repo.SetConfig(cfg)
}

// clearEmptyWorkDir removes an empty pre-existing working directory so the
// clone can be renamed onto it. A non-empty directory that is not a
// repository is never touched.
func (s *Syncer) clearEmptyWorkDir() error {
	entries, err := os.ReadDir(s.workDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to inspect working copy")
	}
	if len(entries) > 0 {
		return errors.Newf("working directory %s is not empty and not a repository", s.workDir)
	}
	return os.Remove(s.workDir)
}

func resetDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, "failed to reset clone directory")
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return errors.Wrap(err, "failed to reset clone directory")
		}
	}
	return nil
}
