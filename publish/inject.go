package publish

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/teranos/redpen/errors"
	"github.com/teranos/redpen/internal/util"
)

const (
	appConfigFile = "app-config.js"
	appConfigTag  = `<script src="/app-config.js"></script>`
	bootstrapFile = "js/redpen-editor-bootstrap.js"

	apiBaseNeedle      = "function apiBase(path){ return path; }"
	apiBaseReplacement = "function apiBase(path){ try { var c = (window.APP_CONFIG && window.APP_CONFIG.apiBaseUrl) ? String(window.APP_CONFIG.apiBaseUrl) : null; " +
		`if (c) { c = c.replace(/\/$/, ""); return c + path; } } catch(e) {} return path; }`
)

// Injections is the runtime configuration written into a published site.
type Injections struct {
	// APIBaseURL is exposed to the site as APP_CONFIG.apiBaseUrl
	APIBaseURL string
	// Extra keys are merged into APP_CONFIG verbatim
	Extra map[string]string
}

// Empty reports whether there is nothing to inject.
func (inj Injections) Empty() bool {
	return inj.APIBaseURL == "" && len(inj.Extra) == 0
}

func (inj Injections) values() map[string]string {
	out := make(map[string]string, len(inj.Extra)+1)
	for k, v := range inj.Extra {
		out[k] = v
	}
	if inj.APIBaseURL != "" {
		out["apiBaseUrl"] = inj.APIBaseURL
	}
	return out
}

// writeAppConfig writes app-config.js into dir. It is a no-op when there is
// nothing to inject.
func writeAppConfig(dir string, inj Injections) (bool, error) {
	if inj.Empty() {
		return false, nil
	}
	payload, err := json.Marshal(inj.values())
	if err != nil {
		return false, errors.Wrap(err, "failed to encode app config")
	}
	content := "window.APP_CONFIG=" + string(payload) + ";"
	if err := util.WriteFileAtomic(filepath.Join(dir, appConfigFile), []byte(content), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// injectConfigScript adds the app-config script tag before </head> in every
// HTML file under dir that does not reference it yet. Returns the number of
// files changed.
func injectConfigScript(dir string) (int, error) {
	changed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || !strings.EqualFold(filepath.Ext(path), ".html") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		text := string(data)
		if strings.Contains(text, appConfigFile) {
			return nil
		}
		updated := strings.Replace(text, "</head>", "  "+appConfigTag+"\n</head>", 1)
		if updated == text {
			return nil
		}
		if err := rewriteFile(path, d, updated); err != nil {
			return err
		}
		changed++
		return nil
	})
	return changed, err
}

// patchBootstrap rewrites the editor bootstrap so API calls honour
// APP_CONFIG.apiBaseUrl. Missing file or needle is not an error.
func patchBootstrap(dir string) (bool, error) {
	path := filepath.Join(dir, filepath.FromSlash(bootstrapFile))
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	text := string(data)
	if !strings.Contains(text, apiBaseNeedle) {
		return false, nil
	}
	updated := strings.ReplaceAll(text, apiBaseNeedle, apiBaseReplacement)
	if err := util.WriteFileAtomic(path, []byte(updated), info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}

func rewriteFile(path string, d fs.DirEntry, content string) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(path, []byte(content), info.Mode().Perm())
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
