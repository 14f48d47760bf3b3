package cli

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/netmock/pkg/archive"
	"github.com/getmockd/netmock/pkg/config"
	"github.com/getmockd/netmock/pkg/vcr"
)

func noEnv(string) (string, bool) { return "", false }

func TestRunProxy_RecordsAndSavesOnShutdown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer upstream.Close()
	target, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	store := archive.NewMemoryStore()
	run := proxyRun{
		Listen:  "127.0.0.1:0",
		Target:  target,
		Options: config.Options{Key: "cli-proxy", NoMatch: config.NoMatchFetch},
		Context: vcr.ContextOptions{Store: store, Env: noEnv},
	}

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- runProxy(ctx, run, ready) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("proxy exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("proxy did not start")
	}

	resp, err := http.Get("http://" + addr + "/v1/status")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("proxy did not shut down")
	}

	a, err := store.Get(context.Background(), "cli-proxy")
	require.NoError(t, err)
	require.Len(t, a.Log.Entries, 1)
	assert.Equal(t, upstream.URL+"/v1/status", a.Log.Entries[0].Request.URL)
}

func newProxyFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(proxyCmd.Flags())
	require.NoError(t, cmd.Flags().Parse(args))
	t.Cleanup(func() {
		cmd.Flags().Visit(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	})
	return cmd
}

func TestProxySettings(t *testing.T) {
	file := &config.File{
		Options: config.Options{Stale: config.StaleWarn},
		Proxy: config.ProxyConfig{
			Listen:       "127.0.0.1:9000",
			Target:       "https://api.example.com",
			ExcludePaths: []string{"/health"},
		},
	}

	t.Run("file values apply when flags are unset", func(t *testing.T) {
		run, err := proxySettings(newProxyFlags(t), file)
		require.NoError(t, err)

		assert.Equal(t, "127.0.0.1:9000", run.Listen)
		assert.Equal(t, "https://api.example.com", run.Target.String())
		assert.False(t, run.Scope.Records(httptest.NewRequest(http.MethodGet, "https://api.example.com/health", nil)))
		assert.Equal(t, config.StaleWarn, run.Context.Defaults.Stale)
		assert.Empty(t, run.Options.Key)
	})

	t.Run("flags override the file", func(t *testing.T) {
		cmd := newProxyFlags(t, "--listen", ":7000", "--key", "mine", "--no-match", "fetch", "--use-timings")
		run, err := proxySettings(cmd, file)
		require.NoError(t, err)

		assert.Equal(t, ":7000", run.Listen)
		assert.Equal(t, "mine", run.Options.Key)
		assert.Equal(t, config.NoMatchFetch, run.Options.NoMatch)
		assert.True(t, run.Options.Timings())
	})

	t.Run("invalid strategy", func(t *testing.T) {
		_, err := proxySettings(newProxyFlags(t, "--stale", "sometimes"), file)
		assert.ErrorIs(t, err, config.ErrInvalidStale)
	})

	t.Run("malformed scope pattern", func(t *testing.T) {
		bad := &config.File{Proxy: config.ProxyConfig{IncludePaths: []string{"/v1/[a-"}}}
		_, err := proxySettings(newProxyFlags(t), bad)
		assert.ErrorContains(t, err, "invalid proxy pattern")
	})

	t.Run("relative target", func(t *testing.T) {
		_, err := proxySettings(newProxyFlags(t, "--target", "/just/a/path"), &config.File{})
		assert.Error(t, err)
	})
}
