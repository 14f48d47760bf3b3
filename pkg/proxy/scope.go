package proxy

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/getmockd/netmock/pkg/config"
)

// Scope decides which proxied requests go through the VCR session. Anything
// outside it is forwarded directly and never touches an archive.
//
// Host and path entries are doublestar patterns. Hosts are matched
// case-insensitively; paths are not. A single path "*" stays within one
// segment, so "/v1/**" is needed to cover a whole subtree.
type Scope struct {
	// Methods limits recording to these request methods. Empty means all.
	Methods []string

	Hosts     []string
	SkipHosts []string
	Paths     []string
	SkipPaths []string
}

// NewScope builds a scope from the proxy section of the config file. Every
// pattern is validated up front so a typo fails at startup.
func NewScope(cfg config.ProxyConfig) (*Scope, error) {
	s := &Scope{
		Methods:   make([]string, 0, len(cfg.Methods)),
		Hosts:     cfg.IncludeHosts,
		SkipHosts: cfg.ExcludeHosts,
		Paths:     cfg.IncludePaths,
		SkipPaths: cfg.ExcludePaths,
	}
	for _, m := range cfg.Methods {
		s.Methods = append(s.Methods, strings.ToUpper(m))
	}

	for _, group := range [][]string{s.Hosts, s.SkipHosts, s.Paths, s.SkipPaths} {
		for _, pattern := range group {
			if !doublestar.ValidatePattern(pattern) {
				return nil, fmt.Errorf("invalid proxy pattern %q", pattern)
			}
		}
	}
	return s, nil
}

// Records reports whether req should be answered by the session. Skip lists
// win over include lists; an empty include list admits everything.
func (s *Scope) Records(req *http.Request) bool {
	if s == nil {
		return true
	}
	if len(s.Methods) > 0 && !slices.Contains(s.Methods, strings.ToUpper(req.Method)) {
		return false
	}

	host := strings.ToLower(req.URL.Hostname())
	path := req.URL.Path
	if path == "" {
		path = "/"
	}

	if anyMatch(s.SkipHosts, host, true) || anyMatch(s.SkipPaths, path, false) {
		return false
	}
	if len(s.Hosts) > 0 && !anyMatch(s.Hosts, host, true) {
		return false
	}
	return len(s.Paths) == 0 || anyMatch(s.Paths, path, false)
}

// anyMatch treats a malformed pattern as a non-match.
func anyMatch(patterns []string, s string, fold bool) bool {
	for _, p := range patterns {
		if fold {
			p = strings.ToLower(p)
		}
		if ok, _ := doublestar.Match(p, s); ok {
			return true
		}
	}
	return false
}
