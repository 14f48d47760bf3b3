package testing

import (
	"net/url"
	"strings"
	"testing"

	"github.com/getmockd/netmock/pkg/har"
	"github.com/getmockd/netmock/pkg/vcr"
)

// AssertRecorded asserts that the session's archive holds at least one
// entry for method and path.
func AssertRecorded(t testing.TB, s *vcr.Session, method, path string) {
	t.Helper()

	if len(entriesFor(s, method, path)) == 0 {
		t.Errorf("expected a recorded %s %s in archive %q, found none", method, path, s.Key())
	}
}

// AssertRecordedTimes asserts the number of entries for method and path.
func AssertRecordedTimes(t testing.TB, s *vcr.Session, method, path string, times int) {
	t.Helper()

	if n := len(entriesFor(s, method, path)); n != times {
		t.Errorf("expected %d recorded %s %s in archive %q, found %d", times, method, path, s.Key(), n)
	}
}

// AssertNotRecorded asserts that no entry exists for method and path.
func AssertNotRecorded(t testing.TB, s *vcr.Session, method, path string) {
	t.Helper()

	if n := len(entriesFor(s, method, path)); n > 0 {
		t.Errorf("expected no recorded %s %s in archive %q, found %d", method, path, s.Key(), n)
	}
}

// AssertNoSecrets asserts that none of the given values appears anywhere
// in the recorded request or response headers and cookies.
func AssertNoSecrets(t testing.TB, s *vcr.Session, secrets ...string) {
	t.Helper()

	for _, e := range s.Entries() {
		pairs := [][2]string{}
		for _, h := range e.Request.Headers {
			pairs = append(pairs, [2]string{h.Name, h.Value})
		}
		for _, c := range e.Request.Cookies {
			pairs = append(pairs, [2]string{c.Name, c.Value})
		}
		for _, h := range e.Response.Headers {
			pairs = append(pairs, [2]string{h.Name, h.Value})
		}
		for _, p := range pairs {
			for _, secret := range secrets {
				if secret != "" && strings.Contains(p[1], secret) {
					t.Errorf("secret leaked into archive %q via %s on %s %s", s.Key(), p[0], e.Request.Method, e.Request.URL)
				}
			}
		}
	}
}

func entriesFor(s *vcr.Session, method, path string) []har.Entry {
	var out []har.Entry
	for _, e := range s.Entries() {
		if e.Request.Method != method {
			continue
		}
		u, err := url.Parse(e.Request.URL)
		if err != nil || u.Path != path {
			continue
		}
		out = append(out, e)
	}
	return out
}
