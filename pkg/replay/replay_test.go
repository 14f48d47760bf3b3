package replay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/netmock/pkg/codec"
	"github.com/getmockd/netmock/pkg/har"
	"github.com/getmockd/netmock/pkg/sse"
)

func TestResponse_RoundTrip(t *testing.T) {
	upstream := httptest.NewRecorder()
	upstream.Header().Set("Content-Type", "application/json")
	upstream.Header().Set("X-Request-Id", "req_1")
	upstream.WriteHeader(http.StatusTeapot)
	_, _ = upstream.WriteString(`{"answer":42}`)

	encoded, err := codec.EncodeResponse(upstream.Result(), nil)
	require.NoError(t, err)
	entry := &har.Entry{Response: encoded}

	req := httptest.NewRequest(http.MethodGet, "https://api.example.com/x", nil)
	resp, err := Response(req, entry, false)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "418 I'm a teapot", resp.Status)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, codec.RedactedValue, resp.Header.Get("X-Request-Id"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"answer":42}`, string(body))
}

func TestResponse_DropsUnparseableContentLength(t *testing.T) {
	entry := &har.Entry{Response: har.Response{
		Status:  200,
		Headers: []har.Header{{Name: "content-length", Value: codec.RedactedValue}},
	}}

	resp, err := Response(httptest.NewRequest(http.MethodGet, "/", nil), entry, false)
	require.NoError(t, err)

	assert.Empty(t, resp.Header.Get("Content-Length"))
	assert.Equal(t, "200 OK", resp.Status)
}

func TestBody_Base64(t *testing.T) {
	entry := &har.Entry{Response: har.Response{Content: har.Content{
		MimeType: "image/png",
		Text:     "AAH+/w==",
		Encoding: har.EncodingBase64,
	}}}

	body, err := Body(context.Background(), entry, false)
	require.NoError(t, err)

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0xfe, 0xff}, data)
}

func TestBody_EmptyClosesImmediately(t *testing.T) {
	entry := &har.Entry{
		Response: har.Response{Headers: []har.Header{{Name: "content-type", Value: "text/event-stream"}}},
		Timings:  har.Timings{Wait: 1000, Receive: 1000},
	}

	start := time.Now()
	body, err := Body(context.Background(), entry, true)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)

	assert.Empty(t, data)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestBody_ReceiveDelay(t *testing.T) {
	entry := &har.Entry{
		Response: har.Response{Content: har.Content{MimeType: "text/plain", Text: "hello"}},
		Timings:  har.Timings{Receive: 40},
	}

	t.Run("applied with timings", func(t *testing.T) {
		start := time.Now()
		body, err := Body(context.Background(), entry, true)
		require.NoError(t, err)
		data, err := io.ReadAll(body)
		require.NoError(t, err)

		assert.Equal(t, "hello", string(data))
		assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		body, err := Body(ctx, entry, true)
		require.NoError(t, err)
		_, err = io.ReadAll(body)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBody_EventStream(t *testing.T) {
	stream := sse.NewEncodedEventStream(
		sse.Event{Timing: 10, Event: "token", Data: "a"},
		sse.Event{Timing: 5, Data: "b"},
		sse.Event{Timing: 20, Data: "c"},
	)
	text, err := stream.Marshal()
	require.NoError(t, err)

	entry := &har.Entry{Response: har.Response{
		Headers: []har.Header{{Name: "content-type", Value: "text/event-stream; charset=utf-8"}},
		Content: har.Content{MimeType: "text/event-stream", Text: text},
	}}

	t.Run("timed replay emits SSE records in order", func(t *testing.T) {
		body, err := Body(context.Background(), entry, true)
		require.NoError(t, err)
		data, err := io.ReadAll(body)
		require.NoError(t, err)

		assert.Equal(t, "data:a\nevent:token\n\ndata:b\n\ndata:c\n\n", string(data))
	})

	t.Run("untimed replay emits the stored text unchanged", func(t *testing.T) {
		body, err := Body(context.Background(), entry, false)
		require.NoError(t, err)
		data, err := io.ReadAll(body)
		require.NoError(t, err)

		assert.Equal(t, text, string(data))
	})

	t.Run("untagged text is replayed verbatim", func(t *testing.T) {
		raw := &har.Entry{Response: har.Response{
			Headers: []har.Header{{Name: "content-type", Value: "text/event-stream"}},
			Content: har.Content{MimeType: "text/event-stream", Text: "data: raw\n\n"},
		}}
		body, err := Body(context.Background(), raw, true)
		require.NoError(t, err)
		data, err := io.ReadAll(body)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(string(data), "data: raw"))
	})
}
