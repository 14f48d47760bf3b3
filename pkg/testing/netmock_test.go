package testing

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/getmockd/netmock/pkg/archive"
	"github.com/getmockd/netmock/pkg/config"
	"github.com/getmockd/netmock/pkg/vcr"
)

// recordingTB captures failures instead of failing the real test.
type recordingTB struct {
	testing.TB
	mu       sync.Mutex
	errors   []string
	cleanups []func()
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Name() string { return "TestRecorded/sub case" }

func (r *recordingTB) Errorf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, format)
}

func (r *recordingTB) Logf(string, ...any) {}

func (r *recordingTB) Cleanup(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanups = append(r.cleanups, fn)
}

func (r *recordingTB) finish() {
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		r.cleanups[i]()
	}
}

func TestRecord_SavesUnderTestName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Set-Cookie", "session=s3cr3t")
		_, _ = io.WriteString(w, "hello")
	}))
	defer srv.Close()

	dbPath := filepath.Join(t.TempDir(), "archives.db")
	nm := NewContext(t, vcr.ContextOptions{
		Env:      func(string) (string, bool) { return "", false },
		Defaults: vcr.Options{NoMatch: config.NoMatchFetch, Store: "sqlite:" + dbPath},
	})

	tb := &recordingTB{TB: t}
	s := Record(tb, nm, vcr.Options{})

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/greeting", nil)
	req.Header.Set("Authorization", "Bearer s3cr3t")
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "hello" {
		t.Errorf("body = %q, want %q", body, "hello")
	}

	tb.finish()
	if len(tb.errors) != 0 {
		t.Fatalf("unexpected failures: %v", tb.errors)
	}

	AssertRecorded(t, s, http.MethodGet, "/greeting")
	AssertRecordedTimes(t, s, http.MethodGet, "/greeting", 1)
	AssertNotRecorded(t, s, http.MethodPost, "/greeting")
	AssertNoSecrets(t, s, "s3cr3t")

	store, err := archive.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	keys, err := store.Keys(t.Context())
	if err != nil {
		t.Fatalf("list keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "TestRecorded/sub case" {
		t.Errorf("keys = %v, want the test name", keys)
	}
}

func TestRecord_NoMatchFailsTest(t *testing.T) {
	nm := NewContext(t, vcr.ContextOptions{
		Env:   func(string) (string, bool) { return "", false },
		Store: archive.NewMemoryStore(),
	})

	tb := &recordingTB{TB: t}
	s := Record(tb, nm, vcr.Options{})

	resp, err := s.Client().Get("https://api.example.com/never-recorded")
	if err != nil {
		t.Fatalf("policy failures must not be transport errors: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if !strings.Contains(string(body), "did not match any stored entry") {
		t.Errorf("unexpected body: %s", body)
	}
	if len(tb.errors) != 1 {
		t.Errorf("expected exactly one reported failure, got %d", len(tb.errors))
	}
	tb.finish()
}

func TestHooks(t *testing.T) {
	h := Hooks(t)

	if h.DefaultSource() != t.Name() {
		t.Errorf("DefaultSource() = %q, want %q", h.DefaultSource(), t.Name())
	}
	if h.TestPath() != "." {
		t.Errorf("TestPath() = %q, want %q", h.TestPath(), ".")
	}
}
