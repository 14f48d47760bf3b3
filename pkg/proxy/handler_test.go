package proxy

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPath(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"", "/v1/items", "/v1/items"},
		{"/", "", "/"},
		{"/api", "/v1/items", "/api/v1/items"},
		{"/api/", "/v1/items", "/api/v1/items"},
		{"/api", "/", "/api"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, joinPath(tt.base, tt.path), "joinPath(%q, %q)", tt.base, tt.path)
	}
}

func TestOutboundRequest(t *testing.T) {
	t.Run("forward mode uses the absolute request line", func(t *testing.T) {
		p := New(Options{})
		r := httptest.NewRequest(http.MethodGet, "http://api.example.com/v1/items?page=2", nil)
		r.Header.Set("Proxy-Connection", "keep-alive")
		r.Header.Set("X-Api-Version", "3")

		out, err := p.outboundRequest(r)
		require.NoError(t, err)

		assert.Equal(t, "http://api.example.com/v1/items?page=2", out.URL.String())
		assert.Empty(t, out.Header.Get("Proxy-Connection"))
		assert.Equal(t, "3", out.Header.Get("X-Api-Version"))
	})

	t.Run("reverse mode rewrites to the target", func(t *testing.T) {
		target, _ := url.Parse("https://upstream.example.com/base")
		p := New(Options{Target: target})
		r := httptest.NewRequest(http.MethodPost, "/v1/chat?stream=true", nil)

		out, err := p.outboundRequest(r)
		require.NoError(t, err)

		assert.Equal(t, "https://upstream.example.com/base/v1/chat?stream=true", out.URL.String())
		assert.Equal(t, http.MethodPost, out.Method)
	})

	t.Run("origin-form request without host", func(t *testing.T) {
		p := New(Options{})
		r := httptest.NewRequest(http.MethodGet, "/v1/items", nil)
		r.Host = ""
		r.URL.Host = ""

		_, err := p.outboundRequest(r)
		assert.ErrorIs(t, err, errNoHost)
	})
}

func TestSetScopeNilRecordsEverything(t *testing.T) {
	p := New(Options{Scope: &Scope{SkipHosts: []string{"x"}}})
	r := httptest.NewRequest(http.MethodGet, "http://x/", nil)
	assert.False(t, p.Scope().Records(r))

	p.SetScope(nil)
	assert.True(t, p.Scope().Records(r))
}
