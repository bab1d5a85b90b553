package publish

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teranos/redpen/am"
	"github.com/teranos/redpen/errors"
	"go.uber.org/zap"
)

const bootstrapJS = "(function(){\nfunction apiBase(path){ return path; }\nfetch(apiBase('/pages/1'));\n})();\n"

type siteFixture struct {
	root    string
	work    string
	public  string
	staging string
}

func newSiteFixture(t *testing.T) *siteFixture {
	t.Helper()
	root := t.TempDir()
	f := &siteFixture{
		root:    root,
		work:    filepath.Join(root, "repo"),
		public:  filepath.Join(root, "public"),
		staging: filepath.Join(root, "staging"),
	}
	f.write(t, map[string]string{
		"index.html":                     "<html><head><title>t</title></head><body>v1</body></html>",
		"pages/007.html":                 "<html><head></head><body>007</body></html>",
		"js/redpen-editor-bootstrap.js":  bootstrapJS,
		".git/HEAD":                      "ref: refs/heads/main\n",
		".git/objects/pack/pack-abc.idx": "binary",
	})
	return f
}

func (f *siteFixture) write(t *testing.T, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(f.work, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func (f *siteFixture) publisher(t *testing.T, opts Options) *Publisher {
	t.Helper()
	opts.StagingDir = f.staging
	p, err := New(opts, zap.NewNop().Sugar())
	require.NoError(t, err)
	return p
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh required")
	}
}

func TestPublish_SymlinkRelease(t *testing.T) {
	f := newSiteFixture(t)
	p := f.publisher(t, Options{Strategy: am.StrategySymlink, KeepReleases: 3})

	err := p.Publish(context.Background(), f.work, f.public, Injections{APIBaseURL: "https://api.example.com"})
	require.NoError(t, err)

	info, err := os.Lstat(f.public)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink, "public path should be a symlink")

	assert.NoDirExists(t, filepath.Join(f.public, ".git"))
	assert.Equal(t,
		`window.APP_CONFIG={"apiBaseUrl":"https://api.example.com"};`,
		readFile(t, filepath.Join(f.public, "app-config.js")))

	index := readFile(t, filepath.Join(f.public, "index.html"))
	assert.Contains(t, index, `<script src="/app-config.js"></script>`+"\n</head>")
	assert.Equal(t, 1, strings.Count(index, "app-config.js"))
	assert.Contains(t, readFile(t, filepath.Join(f.public, "pages", "007.html")), "app-config.js")

	js := readFile(t, filepath.Join(f.public, "js", "redpen-editor-bootstrap.js"))
	assert.NotContains(t, js, apiBaseNeedle)
	assert.Contains(t, js, "window.APP_CONFIG.apiBaseUrl")

	// The working copy itself is never modified
	assert.NotContains(t, readFile(t, filepath.Join(f.work, "index.html")), "app-config.js")
}

func TestPublish_RepublishPrunesReleases(t *testing.T) {
	f := newSiteFixture(t)
	p := f.publisher(t, Options{Strategy: am.StrategySymlink, KeepReleases: 2})

	for i := 0; i < 4; i++ {
		f.write(t, map[string]string{"version.txt": string(rune('a' + i))})
		require.NoError(t, p.Publish(context.Background(), f.work, f.public, Injections{}))
	}

	assert.Equal(t, "d", readFile(t, filepath.Join(f.public, "version.txt")))

	entries, err := os.ReadDir(filepath.Join(f.staging, releasesDir))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	live := currentRelease(f.public)
	assert.DirExists(t, live)
	assert.Equal(t, filepath.Join(f.staging, releasesDir), filepath.Dir(live))
}

func TestPublish_AdoptsExistingDirectory(t *testing.T) {
	f := newSiteFixture(t)
	require.NoError(t, os.MkdirAll(f.public, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.public, "old.html"), []byte("old"), 0o644))

	p := f.publisher(t, Options{Strategy: am.StrategySymlink, KeepReleases: 3})
	require.NoError(t, p.Publish(context.Background(), f.work, f.public, Injections{}))

	assert.NoFileExists(t, filepath.Join(f.public, "old.html"))
	assert.FileExists(t, filepath.Join(f.public, "index.html"))

	matches, err := filepath.Glob(filepath.Join(f.staging, releasesDir, "*-"+adoptedLabel, "old.html"))
	require.NoError(t, err)
	assert.Len(t, matches, 1, "previous content is kept as a release")
}

func TestPublish_NoInjectionsLeavesHTMLAlone(t *testing.T) {
	f := newSiteFixture(t)
	p := f.publisher(t, Options{Strategy: am.StrategySymlink})

	require.NoError(t, p.Publish(context.Background(), f.work, f.public, Injections{}))

	assert.NoFileExists(t, filepath.Join(f.public, "app-config.js"))
	assert.NotContains(t, readFile(t, filepath.Join(f.public, "index.html")), "app-config.js")
	// The bootstrap patch falls back to relative paths, so it is always applied
	assert.NotContains(t, readFile(t, filepath.Join(f.public, "js", "redpen-editor-bootstrap.js")), apiBaseNeedle)
}

func TestPublish_FailureLeavesPublicUntouched(t *testing.T) {
	for _, strategy := range []string{am.StrategySymlink, am.StrategyMirror} {
		t.Run(strategy, func(t *testing.T) {
			f := newSiteFixture(t)
			p := f.publisher(t, Options{Strategy: strategy})
			require.NoError(t, p.Publish(context.Background(), f.work, f.public, Injections{}))
			before := readFile(t, filepath.Join(f.public, "index.html"))

			err := p.Publish(context.Background(), filepath.Join(f.root, "missing"), f.public, Injections{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrPublish))

			assert.Equal(t, before, readFile(t, filepath.Join(f.public, "index.html")))
		})
	}
}

func TestPublish_CancelledBeforeSwap(t *testing.T) {
	f := newSiteFixture(t)
	p := f.publisher(t, Options{Strategy: am.StrategySymlink})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, f.work, f.public, Injections{})
	require.Error(t, err)
	assert.NoFileExists(t, f.public)

	entries, err := os.ReadDir(filepath.Join(f.staging, releasesDir))
	require.NoError(t, err)
	assert.Empty(t, entries, "aborted release is cleaned up")
}

func TestPublish_Mirror(t *testing.T) {
	f := newSiteFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Join(f.public, "stale"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.public, "stale", "x.html"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.public, "extra.txt"), []byte("x"), 0o644))

	p := f.publisher(t, Options{Strategy: am.StrategyMirror})
	require.NoError(t, p.Publish(context.Background(), f.work, f.public, Injections{APIBaseURL: "/api"}))

	info, err := os.Lstat(f.public)
	require.NoError(t, err)
	assert.True(t, info.IsDir(), "mirror keeps a real directory")

	assert.NoDirExists(t, filepath.Join(f.public, "stale"))
	assert.NoFileExists(t, filepath.Join(f.public, "extra.txt"))
	assert.NoDirExists(t, filepath.Join(f.public, ".git"))
	assert.FileExists(t, filepath.Join(f.public, "app-config.js"))
	assert.Contains(t, readFile(t, filepath.Join(f.public, "index.html")), "app-config.js")

	// Removing a file upstream removes it from the public directory
	require.NoError(t, os.Remove(filepath.Join(f.work, "pages", "007.html")))
	require.NoError(t, p.Publish(context.Background(), f.work, f.public, Injections{APIBaseURL: "/api"}))
	assert.NoFileExists(t, filepath.Join(f.public, "pages", "007.html"))
}

func TestPublish_PostProcessCommand(t *testing.T) {
	requireShell(t)
	f := newSiteFixture(t)
	p := f.publisher(t, Options{
		Strategy:           am.StrategySymlink,
		PostProcessCmd:     `sh -c 'echo "$REDPEN_API_BASE_URL" > processed.txt'`,
		PostProcessTimeout: 10 * time.Second,
	})

	require.NoError(t, p.Publish(context.Background(), f.work, f.public, Injections{APIBaseURL: "https://api.example.com"}))
	assert.Equal(t, "https://api.example.com\n", readFile(t, filepath.Join(f.public, "processed.txt")))
}

func TestPublish_PostProcessFailureIsDegraded(t *testing.T) {
	requireShell(t)
	tests := []struct {
		name    string
		cmd     string
		timeout time.Duration
	}{
		{"non-zero exit", `sh -c 'exit 3'`, 10 * time.Second},
		{"timeout", `sh -c 'sleep 5'`, 100 * time.Millisecond},
		{"missing binary", `redpen-no-such-binary --flag`, time.Second},
		{"bad quoting", `sh -c 'unterminated`, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSiteFixture(t)
			p := f.publisher(t, Options{
				Strategy:           am.StrategySymlink,
				PostProcessCmd:     tt.cmd,
				PostProcessTimeout: tt.timeout,
			})

			start := time.Now()
			require.NoError(t, p.Publish(context.Background(), f.work, f.public, Injections{}))
			assert.Less(t, time.Since(start), 4*time.Second)
			assert.FileExists(t, filepath.Join(f.public, "index.html"))
		})
	}
}

func TestMutate_Report(t *testing.T) {
	f := newSiteFixture(t)
	p := f.publisher(t, Options{Strategy: am.StrategySymlink})

	report, err := p.Mutate(context.Background(), f.work, Injections{
		APIBaseURL: "https://api.example.com",
		Extra:      map[string]string{"theme": "dark"},
	})
	require.NoError(t, err)

	assert.True(t, report.ConfigWritten)
	assert.Equal(t, 2, report.HTMLInjected)
	assert.True(t, report.BootstrapPatched)
	assert.Empty(t, report.Degraded)
	assert.Equal(t,
		`window.APP_CONFIG={"apiBaseUrl":"https://api.example.com","theme":"dark"};`,
		readFile(t, filepath.Join(f.work, "app-config.js")))

	// Running again is idempotent
	report, err = p.Mutate(context.Background(), f.work, Injections{APIBaseURL: "https://api.example.com"})
	require.NoError(t, err)
	assert.Zero(t, report.HTMLInjected)
	assert.False(t, report.BootstrapPatched)
}

func TestMutate_MissingDirectory(t *testing.T) {
	f := newSiteFixture(t)
	p := f.publisher(t, Options{})

	_, err := p.Mutate(context.Background(), filepath.Join(f.root, "nope"), Injections{})
	assert.True(t, errors.Is(err, errors.ErrPublish))
}

func TestNew_RejectsUnknownStrategy(t *testing.T) {
	_, err := New(Options{StagingDir: t.TempDir(), Strategy: "rsync"}, nil)
	assert.True(t, errors.IsValidation(err))

	_, err = New(Options{}, nil)
	assert.True(t, errors.IsValidation(err))
}

// Readers sampling the public tree during repeated publishes only ever see
// a complete old or a complete new version.
func TestPublish_ReadersNeverSeeMixedContent(t *testing.T) {
	for _, strategy := range []string{am.StrategySymlink, am.StrategyMirror} {
		t.Run(strategy, func(t *testing.T) {
			f := newSiteFixture(t)
			versions := map[string]string{
				"old": strings.Repeat("old content line\n", 4096),
				"new": strings.Repeat("NEW CONTENT LINE\n", 4096),
			}
			f.write(t, map[string]string{"data.txt": versions["old"], "tag.txt": "old"})

			p := f.publisher(t, Options{Strategy: strategy, KeepReleases: 3})
			require.NoError(t, p.Publish(context.Background(), f.work, f.public, Injections{}))

			var stop atomic.Bool
			var reads atomic.Int64
			var wg sync.WaitGroup
			for r := 0; r < 4; r++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for !stop.Load() {
						data, err := os.ReadFile(filepath.Join(f.public, "data.txt"))
						if !assert.NoError(t, err) {
							return
						}
						got := string(data)
						assert.True(t, got == versions["old"] || got == versions["new"], "torn read of %d bytes", len(got))
						reads.Add(1)

						if strategy == am.StrategySymlink {
							assertConsistentRelease(t, f.public, versions)
						}
					}
				}()
			}

			for i := 0; i < 10; i++ {
				name := "new"
				if i%2 == 1 {
					name = "old"
				}
				f.write(t, map[string]string{"data.txt": versions[name], "tag.txt": name})
				require.NoError(t, p.Publish(context.Background(), f.work, f.public, Injections{}))
			}
			stop.Store(true)
			wg.Wait()

			assert.Positive(t, reads.Load())
		})
	}
}

// assertConsistentRelease resolves the live release once and checks that
// two files read from it belong to the same version.
func assertConsistentRelease(t *testing.T, public string, versions map[string]string) {
	release := currentRelease(public)
	tag, err := os.ReadFile(filepath.Join(release, "tag.txt"))
	if os.IsNotExist(err) {
		return // pruned between resolve and read
	}
	data, err := os.ReadFile(filepath.Join(release, "data.txt"))
	if os.IsNotExist(err) {
		return
	}
	assert.Equal(t, versions[string(tag)], string(data))
}

func TestCopyTree_SkipsGitAtAnyDepth(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	files := map[string]string{
		"index.html":              "<html></html>",
		".git/HEAD":               "ref: refs/heads/main\n",
		"vendor/theme/.git":       "gitdir: ../../.git/modules/theme\n",
		"vendor/theme/style.css":  "body{}",
		"nested/repo/.git/config": "[core]\n",
		"nested/repo/page.html":   "<p></p>",
	}
	for rel, content := range files {
		path := filepath.Join(src, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	dst := filepath.Join(root, "dst")
	n, err := copyTree(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.FileExists(t, filepath.Join(dst, "index.html"))
	assert.FileExists(t, filepath.Join(dst, "vendor", "theme", "style.css"))
	assert.FileExists(t, filepath.Join(dst, "nested", "repo", "page.html"))
	assert.NoDirExists(t, filepath.Join(dst, ".git"))
	assert.NoFileExists(t, filepath.Join(dst, "vendor", "theme", ".git"))
	assert.NoDirExists(t, filepath.Join(dst, "nested", "repo", ".git"))
}
