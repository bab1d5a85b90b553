package gitsync

import (
	"regexp"
	"strings"
)

var knownHosts = []string{
	"github.com",
	"gitlab.com",
	"bitbucket.org",
	"codeberg.org",
	"sr.ht",
	"gitea.com",
}

var urlPathPattern = regexp.MustCompile(`^(?:https?|git|ssh)://[^/]+/(.+)$`)

func isGitHostURL(url string) bool {
	lowered := strings.ToLower(url)
	for _, host := range knownHosts {
		if strings.Contains(lowered, host) {
			return true
		}
	}
	return strings.HasSuffix(url, ".git")
}

// NormalizeRepoURL appends .git to HTTP(S) URLs of known hosts.
// Local paths and SSH remotes pass through unchanged.
func NormalizeRepoURL(url string) string {
	url = strings.TrimSpace(url)
	if strings.HasSuffix(url, ".git") {
		return url
	}
	url = strings.TrimSuffix(url, "/")
	if (strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://")) && isGitHostURL(url) {
		return url + ".git"
	}
	return url
}

// RepoName extracts the last path component of a repository URL or path,
// without the .git suffix. Used for log fields and webhook route matching.
func RepoName(input string) string {
	input = strings.TrimSuffix(strings.TrimSuffix(input, "/"), ".git")

	if strings.HasPrefix(input, "git@") {
		if idx := strings.Index(input, ":"); idx != -1 {
			input = input[idx+1:]
		}
	}
	if m := urlPathPattern.FindStringSubmatch(input); len(m) > 1 {
		input = m[1]
	}

	parts := strings.Split(input, "/")
	return parts[len(parts)-1]
}
